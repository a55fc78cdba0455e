package tasks

import (
	"context"
	"fmt"
	"slices"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/ncx/internal/models"
	"github.com/desertthunder/ncx/internal/services"
	"github.com/desertthunder/ncx/internal/shared"
)

// Archiver persists resolved playlists. Implemented by repositories.PlaylistRepository.
type Archiver interface {
	Save(detail *models.PlaylistDetail) error
}

// SnapshotResult reports which ranking playlists were archived.
type SnapshotResult struct {
	Archived []models.PlaylistInfo
	Partial  int // archived playlists with fewer tracks than reported
	Failed   map[string]error
}

// Engine runs bulk operations against a [services.Catalog].
type Engine struct {
	catalog services.Catalog
	archive Archiver
	logger  *log.Logger
}

// NewEngine creates an Engine. archive may be nil when only exports are needed.
func NewEngine(catalog services.Catalog, archive Archiver, logger *log.Logger) *Engine {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Engine{
		catalog: catalog,
		archive: archive,
		logger:  shared.WithLogger(logger, "component", "tasks"),
	}
}

// sendProgress sends a progress update through the channel without blocking.
func (e *Engine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// ToplistIDs returns the distinct playlist ids behind every ranking, in page order.
func ToplistIDs(groups []models.Group) []string {
	var ids []string
	for _, g := range groups {
		for _, item := range g.Data {
			if item.ID == "" || slices.Contains(ids, item.ID) {
				continue
			}
			ids = append(ids, item.ID)
		}
	}
	return ids
}

// SnapshotToplists resolves every ranking playlist and saves it to the archive.
//
// A playlist that fails to resolve or save is recorded in the result and does not stop the run.
func (e *Engine) SnapshotToplists(ctx context.Context, progress chan<- ProgressUpdate) (*SnapshotResult, error) {
	if e.archive == nil {
		return nil, fmt.Errorf("%w: no archive configured", shared.ErrMissingConfig)
	}

	e.sendProgress(progress, fetchToplistsUpdate())
	groups, err := e.catalog.Toplists(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch toplists: %w", err)
	}

	ids := ToplistIDs(groups)
	result := &SnapshotResult{Failed: map[string]error{}}

	for i, id := range ids {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		e.sendProgress(progress, resolvingUpdate(i+1, len(ids), id))
		detail, err := e.catalog.ResolvePlaylist(ctx, id)
		if err != nil {
			e.logger.Warn("snapshot resolve failed", "id", id, "error", err)
			result.Failed[id] = err
			e.sendProgress(progress, archiveFailedUpdate(i+1, len(ids), id, err))
			continue
		}

		if err := e.archive.Save(detail); err != nil {
			e.logger.Error("snapshot save failed", "id", id, "error", err)
			result.Failed[id] = err
			e.sendProgress(progress, archiveFailedUpdate(i+1, len(ids), id, err))
			continue
		}

		if len(detail.Tracks) < detail.Playlist.TrackCount {
			result.Partial++
		}
		result.Archived = append(result.Archived, detail.Playlist)
		e.sendProgress(progress, archivedUpdate(i+1, len(ids), detail.Playlist.Name, len(detail.Tracks)))
	}

	e.logger.Info("toplist snapshot complete", "archived", len(result.Archived), "failed", len(result.Failed))
	return result, nil
}
