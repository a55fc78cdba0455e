package services

import (
	"context"

	"github.com/desertthunder/ncx/internal/models"
)

// Search kinds.
const (
	KindMusic = "music"
	KindAlbum = "album"
)

// Catalog is the set of operations the gateway exposes to the HTTP API, the CLI and the browser.
type Catalog interface {
	// Search returns one page of songs or albums. Unknown kinds yield an empty terminal page.
	Search(ctx context.Context, query string, page int, kind string) (*models.SearchResult, error)

	// ResolvePlaylist fetches a playlist and resolves every track it names.
	// Tracks that cannot be resolved are dropped, so the result may be partial.
	ResolvePlaylist(ctx context.Context, id string) (*models.PlaylistDetail, error)

	// ImportFromReference resolves the playlist a shared link or bare id points at.
	ImportFromReference(ctx context.Context, text string) (*models.PlaylistDetail, error)

	// Toplists returns the ranking groups, or a built-in list when the page is unavailable.
	Toplists(ctx context.Context) ([]models.Group, error)

	// Lyric returns the timed lyric and its translation, empty when none is available.
	Lyric(ctx context.Context, id string) (*models.Lyric, error)

	// MediaURL returns a playable URL, or nil when the media service has none.
	MediaURL(ctx context.Context, id string, quality models.Quality) (*models.MediaSource, error)

	// Track resolves a single track, or nil when the catalog has no usable record.
	Track(ctx context.Context, id string) (*models.Track, error)
}
