// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func jsonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Output raw JSON",
		},
		&cli.BoolFlag{
			Name:  "pretty",
			Usage: "Pretty-print JSON output",
		},
	}
}

func withJSON(flags ...cli.Flag) []cli.Flag {
	return append(flags, jsonFlags()...)
}

// setupCommand initializes local state
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Create the config file and the playlist archive",
		Commands: []*cli.Command{
			{
				Name:   "config",
				Usage:  "Write the default config file to --config",
				Action: r.SetupConfig,
			},
			{
				Name:   "database",
				Usage:  "Initialize the archive database and run migrations",
				Action: r.SetupDatabase,
			},
			{
				Name:   "rollback",
				Usage:  "Roll back the most recent archive migration",
				Action: r.SetupRollback,
			},
		},
	}
}

// serveCommand runs the HTTP API
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the catalog gateway over HTTP",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address (defaults to server.host:server.port)",
			},
		},
		Action: r.Serve,
	}
}

// searchCommand handles catalog search
func searchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "search",
		Usage: "Search the catalog for songs or albums",
		Arguments: []cli.Argument{
			&cli.StringArg{
				Name: "query",
			},
		},
		Flags: withJSON(
			&cli.IntFlag{
				Name:    "page",
				Aliases: []string{"p"},
				Usage:   "Result page, starting at 1",
				Value:   1,
			},
			&cli.StringFlag{
				Name:    "type",
				Aliases: []string{"t"},
				Usage:   "What to search for: music or album",
				Value:   "music",
			},
		),
		Action: r.Search,
	}
}

// playlistCommand resolves a playlist by id or shared reference
func playlistCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "playlist",
		Aliases: []string{"pl"},
		Usage:   "Resolve a playlist and print or export it",
		Flags: withJSON(
			&cli.StringFlag{
				Name:  "id",
				Usage: "Playlist ID",
			},
			&cli.StringFlag{
				Name:  "ref",
				Usage: "Shared link or text containing a playlist reference",
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Export format: json, csv, markdown, text",
				Value:   "json",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write an export to this directory instead of printing",
			},
			&cli.BoolFlag{
				Name:  "save",
				Usage: "Also save the playlist to the archive",
			},
		),
		Action: r.Playlist,
	}
}

// toplistsCommand lists the ranking groups
func toplistsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "toplists",
		Usage:  "List the ranking playlists",
		Flags:  jsonFlags(),
		Action: r.Toplists,
	}
}

func trackCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "track",
		Usage: "Show a single track",
		Flags: withJSON(
			&cli.StringFlag{
				Name:     "id",
				Usage:    "Track ID",
				Required: true,
			},
		),
		Action: r.Track,
	}
}

func lyricCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "lyric",
		Usage: "Show the lyric of a track",
		Flags: withJSON(
			&cli.StringFlag{
				Name:     "id",
				Usage:    "Track ID",
				Required: true,
			},
			&cli.BoolFlag{
				Name:  "raw",
				Usage: "Print the timed lyric text unparsed",
			},
		),
		Action: r.Lyric,
	}
}

func urlCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "url",
		Usage: "Show a playable URL for a track",
		Flags: withJSON(
			&cli.StringFlag{
				Name:     "id",
				Usage:    "Track ID",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "quality",
				Aliases: []string{"q"},
				Usage:   "Stream quality: low, standard, high, super",
				Value:   "standard",
			},
		),
		Action: r.MediaURL,
	}
}

// archiveCommand manages the local playlist archive
func archiveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "archive",
		Usage: "Manage archived playlist snapshots",
		Commands: []*cli.Command{
			{
				Name:  "save",
				Usage: "Resolve a playlist and save it to the archive",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "id",
						Usage:    "Playlist ID",
						Required: true,
					},
				},
				Action: r.ArchiveSave,
			},
			{
				Name:   "list",
				Usage:  "List archived playlists",
				Flags:  jsonFlags(),
				Action: r.ArchiveList,
			},
			{
				Name:  "show",
				Usage: "Show an archived playlist with its tracks",
				Flags: withJSON(
					&cli.Int64Flag{
						Name:     "id",
						Usage:    "Playlist ID",
						Required: true,
					},
				),
				Action: r.ArchiveShow,
			},
			{
				Name:  "delete",
				Usage: "Remove a playlist from the archive",
				Flags: []cli.Flag{
					&cli.Int64Flag{
						Name:     "id",
						Usage:    "Playlist ID",
						Required: true,
					},
				},
				Action: r.ArchiveDelete,
			},
			{
				Name:   "snapshot",
				Usage:  "Archive every ranking playlist",
				Action: r.ArchiveSnapshot,
			},
		},
	}
}

// exportCommand writes many playlists to disk
func exportCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export playlists to files concurrently",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:  "id",
				Usage: "Playlist ID to export (repeatable)",
			},
			&cli.BoolFlag{
				Name:  "toplists",
				Usage: "Export every ranking playlist",
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Export format: json, csv, markdown, text",
				Value:   "json",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Output directory (default: ncx_export_{epoch})",
			},
			&cli.IntFlag{
				Name:  "workers",
				Usage: "Concurrent file writers",
				Value: 5,
			},
			&cli.FloatFlag{
				Name:  "rate",
				Usage: "Playlist fetches per second",
				Value: 5,
			},
		},
		Action: r.Export,
	}
}

func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "tui",
		Usage:  "Browse rankings interactively",
		Action: r.TUI,
	}
}
