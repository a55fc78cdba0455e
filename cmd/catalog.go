package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/ncx/internal/formatter"
	"github.com/desertthunder/ncx/internal/models"
	"github.com/desertthunder/ncx/internal/services"
	"github.com/desertthunder/ncx/internal/shared"
	"github.com/desertthunder/ncx/internal/tasks"
)

// Search runs a catalog search and prints one page of results.
func (r *Runner) Search(ctx context.Context, cmd *cli.Command) error {
	query := cmd.StringArg("query")
	if strings.TrimSpace(query) == "" {
		return fmt.Errorf("%w: search query is required", shared.ErrMissingArgument)
	}

	page := cmd.Int("page")
	kind := cmd.String("type")
	if kind != services.KindMusic && kind != services.KindAlbum {
		return fmt.Errorf("%w: --type must be music or album, got %q", shared.ErrInvalidFlag, kind)
	}

	r.logger.Info("searching catalog", "query", query, "page", page, "type", kind)

	result, err := r.catalog.Search(ctx, query, page, kind)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(result, cmd.Bool("pretty"))
	}

	if kind == services.KindAlbum {
		r.writePlain("Found %d albums:\n\n", len(result.Albums))
		for i, a := range result.Albums {
			r.writePlain("%d. %s - %s\n", i+1, a.Artist, a.Title)
			r.writePlain("   ID: %d\n", a.ID)
			if a.Date != "" {
				r.writePlain("   Released: %s\n", a.Date)
			}
		}
	} else {
		r.writePlain("Found %d tracks:\n\n", len(result.Data))
		for i, t := range result.Data {
			r.writeTrack(i+1, t)
		}
	}

	if !result.IsEnd {
		r.writePlainln("More results: --page %d", page+1)
	}
	return nil
}

// Playlist resolves a playlist by id or reference, then prints, exports or archives it.
func (r *Runner) Playlist(ctx context.Context, cmd *cli.Command) error {
	id := cmd.String("id")
	ref := cmd.String("ref")

	if id == "" && ref == "" {
		return fmt.Errorf("%w: either --id or --ref must be provided", shared.ErrMissingArgument)
	}
	if id != "" && ref != "" {
		return fmt.Errorf("%w: cannot specify both --id and --ref", shared.ErrInvalidFlag)
	}

	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	var detail *models.PlaylistDetail
	if ref != "" {
		r.logger.Info("importing playlist from reference")
		detail, err = r.catalog.ImportFromReference(ctx, ref)
	} else {
		r.logger.Info("resolving playlist", "id", id)
		detail, err = r.catalog.ResolvePlaylist(ctx, id)
	}
	if err != nil {
		return err
	}

	if missing := detail.Playlist.TrackCount - len(detail.Tracks); missing > 0 {
		r.logger.Warn("playlist resolved partially", "id", detail.Playlist.ID, "missing", missing)
	}

	if cmd.Bool("save") {
		archive, err := r.Archive()
		if err != nil {
			return err
		}
		if err := archive.Save(detail); err != nil {
			return fmt.Errorf("failed to archive playlist: %w", err)
		}
		r.logger.Info("playlist archived", "id", detail.Playlist.ID)
	}

	if dir := cmd.String("output"); dir != "" {
		res := tasks.ExportPlaylist(detail, tasks.BulkExportOpts{
			Format:     format,
			OutputDir:  dir,
			FetchCover: r.fetchCover(ctx),
		})
		if res.Error != nil {
			return res.Error
		}

		r.writePlain("✓ Playlist exported to %s\n", dir)
		r.writePlain("  Playlist: %s\n", detail.Playlist.Name)
		r.writePlain("  Tracks: %d of %d\n", res.Tracks, res.Expected)
		for _, f := range res.Files {
			r.writePlain("  %s\n", f)
		}
		return nil
	}

	if cmd.Bool("json") {
		return r.writeJSON(detail, cmd.Bool("pretty"))
	}

	r.writePlaylist(detail)
	return nil
}

// Toplists prints every ranking group.
func (r *Runner) Toplists(ctx context.Context, cmd *cli.Command) error {
	groups, err := r.catalog.Toplists(ctx)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(groups, cmd.Bool("pretty"))
	}

	for _, g := range groups {
		r.writePlainHeader(g.Title)
		for _, item := range g.Data {
			r.writePlain("%s  %s\n", item.ID, item.Title)
			if item.Description != "" {
				r.writePlain("   %s\n", item.Description)
			}
		}
		r.writePlain("\n")
	}
	return nil
}

// Track prints a single resolved track.
func (r *Runner) Track(ctx context.Context, cmd *cli.Command) error {
	id := cmd.String("id")

	track, err := r.catalog.Track(ctx, id)
	if err != nil {
		return err
	}
	if track == nil {
		return fmt.Errorf("%w: track %s", shared.ErrNotFound, id)
	}

	if cmd.Bool("json") {
		return r.writeJSON(track, cmd.Bool("pretty"))
	}

	r.writeTrack(0, *track)
	return nil
}

// Lyric prints the lyric of a track with its translation.
func (r *Runner) Lyric(ctx context.Context, cmd *cli.Command) error {
	id := cmd.String("id")

	lyric, err := r.catalog.Lyric(ctx, id)
	if err != nil {
		return err
	}
	if lyric == nil {
		lyric = &models.Lyric{}
	}

	if cmd.Bool("json") {
		return r.writeJSON(lyric, cmd.Bool("pretty"))
	}

	if lyric.RawLrc == "" {
		r.writePlain("No lyric available\n")
		return nil
	}

	if cmd.Bool("raw") {
		r.writePlain("%s\n", lyric.RawLrc)
		if lyric.TranslatedLrc != "" {
			r.writePlainln("%s", lyric.TranslatedLrc)
		}
		return nil
	}

	r.writePlain("%s", formatter.FormatLyrics(formatter.ParseLRC(lyric.RawLrc)))
	if translated := formatter.ParseLRC(lyric.TranslatedLrc); len(translated) > 0 {
		r.writePlainln("Translation:")
		r.writePlain("%s", formatter.FormatLyrics(translated))
	}
	return nil
}

// MediaURL prints a playable URL for a track.
func (r *Runner) MediaURL(ctx context.Context, cmd *cli.Command) error {
	id := cmd.String("id")
	quality := models.Quality(cmd.String("quality"))

	switch quality {
	case models.QualityLow, models.QualityStandard, models.QualityHigh, models.QualitySuper:
	default:
		return fmt.Errorf("%w: unknown quality %q", shared.ErrInvalidFlag, quality)
	}

	src, err := r.catalog.MediaURL(ctx, id, quality)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(src, cmd.Bool("pretty"))
	}
	if src == nil {
		r.writePlain("No playable URL for track %s\n", id)
		return nil
	}

	r.writePlain("%s\n", src.URL)
	return nil
}

func (r *Runner) writeTrack(n int, t models.Track) {
	if n > 0 {
		r.writePlain("%d. %s - %s\n", n, t.Artist, t.Title)
	} else {
		r.writePlain("%s - %s\n", t.Artist, t.Title)
	}
	if t.Album != "" {
		r.writePlain("   Album: %s\n", t.Album)
	}
	r.writePlain("   ID: %d\n", t.ID)
	if t.Duration > 0 {
		r.writePlain("   Duration: %s\n", t.DurationString())
	}
}

func (r *Runner) writePlaylist(detail *models.PlaylistDetail) {
	r.writePlain("Playlist: %s\n", detail.Playlist.Name)
	if detail.Playlist.Creator != "" {
		r.writePlain("Creator: %s\n", detail.Playlist.Creator)
	}
	if detail.Playlist.Description != "" {
		r.writePlain("Description: %s\n", detail.Playlist.Description)
	}
	r.writePlain("Tracks: %d of %d\n\n", len(detail.Tracks), detail.Playlist.TrackCount)

	for i, t := range detail.Tracks {
		r.writeTrack(i+1, t)
	}
}

func (r *Runner) fetchCover(ctx context.Context) func(string) ([]byte, error) {
	return func(url string) ([]byte, error) {
		return formatter.DownloadImage(ctx, r.httpClient, url)
	}
}
