package main

import (
	"context"
	"fmt"
	"slices"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/ncx/internal/formatter"
	"github.com/desertthunder/ncx/internal/shared"
	"github.com/desertthunder/ncx/internal/tasks"
)

// ArchiveSave resolves a playlist and stores it in the archive.
func (r *Runner) ArchiveSave(ctx context.Context, cmd *cli.Command) error {
	id := cmd.String("id")

	archive, err := r.Archive()
	if err != nil {
		return err
	}

	detail, err := r.catalog.ResolvePlaylist(ctx, id)
	if err != nil {
		return err
	}

	if err := archive.Save(detail); err != nil {
		return fmt.Errorf("failed to archive playlist: %w", err)
	}

	r.logger.Info("playlist archived", "id", detail.Playlist.ID, "tracks", len(detail.Tracks))
	r.writePlain("✓ Archived %s (%d of %d tracks)\n", detail.Playlist.Name, len(detail.Tracks), detail.Playlist.TrackCount)
	return nil
}

// ArchiveList prints every archived playlist, most recently updated first.
func (r *Runner) ArchiveList(ctx context.Context, cmd *cli.Command) error {
	archive, err := r.Archive()
	if err != nil {
		return err
	}

	playlists, err := archive.List()
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(playlists, cmd.Bool("pretty"))
	}

	if len(playlists) == 0 {
		r.writePlain("Archive is empty\n")
		return nil
	}

	r.writePlain("Found %d archived playlists:\n\n", len(playlists))
	for i, p := range playlists {
		r.writePlain("%d. %s\n", i+1, p.Playlist.Name)
		r.writePlain("   ID: %d\n", p.Playlist.ID)
		r.writePlain("   Tracks: %d\n", p.Playlist.TrackCount)
		r.writePlain("   Updated: %s\n", p.UpdatedAt.Local().Format("2006-01-02 15:04"))
	}
	return nil
}

// ArchiveShow prints an archived playlist with its tracks.
func (r *Runner) ArchiveShow(ctx context.Context, cmd *cli.Command) error {
	archive, err := r.Archive()
	if err != nil {
		return err
	}

	playlist, err := archive.Get(cmd.Int64("id"))
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(playlist, cmd.Bool("pretty"))
	}

	r.writePlaylist(&playlist.PlaylistDetail)
	r.writePlainln("Archived: %s", playlist.UpdatedAt.Local().Format("2006-01-02 15:04"))
	return nil
}

// ArchiveDelete removes a playlist and any tracks no other playlist references.
func (r *Runner) ArchiveDelete(ctx context.Context, cmd *cli.Command) error {
	id := cmd.Int64("id")

	archive, err := r.Archive()
	if err != nil {
		return err
	}

	if err := archive.Delete(id); err != nil {
		return err
	}

	r.writePlain("✓ Deleted playlist %d\n", id)
	return nil
}

// ArchiveSnapshot archives every ranking playlist.
func (r *Runner) ArchiveSnapshot(ctx context.Context, cmd *cli.Command) error {
	engine, err := r.engine(true)
	if err != nil {
		return err
	}

	progress, done := r.printProgress()
	result, err := engine.SnapshotToplists(ctx, progress)
	close(progress)
	<-done

	if err != nil {
		return err
	}

	r.writePlain("\n")
	r.writePlainHeader("Snapshot Complete!")
	r.writePlain("Archived: %d\n", len(result.Archived))
	if result.Partial > 0 {
		r.writePlain("Partial: %d\n", result.Partial)
	}
	if len(result.Failed) > 0 {
		r.writePlain("Failed: %d\n", len(result.Failed))
		ids := make([]string, 0, len(result.Failed))
		for id := range result.Failed {
			ids = append(ids, id)
		}
		slices.Sort(ids)
		for _, id := range ids {
			r.writePlain("  - %s: %v\n", id, result.Failed[id])
		}
	}
	return nil
}

// Export writes the named playlists, or every ranking playlist, to files.
func (r *Runner) Export(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	ids := cmd.StringSlice("id")
	if cmd.Bool("toplists") {
		groups, err := r.catalog.Toplists(ctx)
		if err != nil {
			return fmt.Errorf("failed to fetch toplists: %w", err)
		}
		for _, id := range tasks.ToplistIDs(groups) {
			if !slices.Contains(ids, id) {
				ids = append(ids, id)
			}
		}
	}
	if len(ids) == 0 {
		return fmt.Errorf("%w: provide --id or --toplists", shared.ErrMissingArgument)
	}

	engine, err := r.engine(false)
	if err != nil {
		return err
	}

	r.logger.Info("starting bulk export", "playlists", len(ids), "format", format)

	progress, done := r.printProgress()
	result, err := engine.BulkExport(ctx, progress, ids, tasks.BulkExportOpts{
		Format:     format,
		OutputDir:  cmd.String("output"),
		NumWorkers: cmd.Int("workers"),
		RateLimit:  cmd.Float("rate"),
		FetchCover: r.fetchCover(ctx),
	})
	close(progress)
	<-done

	if err != nil {
		return err
	}

	r.writePlain("\n")
	r.writePlainHeader("Export Complete!")
	r.writePlain("Directory: %s\n", result.OutputDirectory)
	r.writePlain("Exported: %d/%d\n", result.SuccessfulExports, result.TotalPlaylists)
	r.writePlain("Manifest: %s\n", result.ManifestPath)
	return nil
}

// printProgress writes progress messages until the returned channel is closed.
func (r *Runner) printProgress() (chan tasks.ProgressUpdate, <-chan struct{}) {
	progress := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})

	go func() {
		defer close(done)
		for update := range progress {
			switch update.Phase {
			case tasks.FetchToplists:
				r.writePlain("📥 %s\n", update.Message)
			default:
				r.writePlain("   %s\n", update.Message)
			}
		}
	}()

	return progress, done
}
