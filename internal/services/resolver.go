package services

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/desertthunder/ncx/internal/cache"
	"github.com/desertthunder/ncx/internal/models"
	"github.com/desertthunder/ncx/internal/shared"
)

const (
	DefaultChunkSize   = 100
	DefaultConcurrency = 8
)

// Resolver turns track id lists into normalized tracks with chunked parallel detail lookups.
//
// A failed chunk contributes no tracks and never fails its siblings or the caller.
type Resolver struct {
	client      *Client
	cache       cache.Store
	chunkSize   int
	concurrency int
	logger      *log.Logger
}

// NewResolver creates a resolver. Non-positive sizes fall back to the defaults.
func NewResolver(client *Client, store cache.Store, chunkSize, concurrency int, logger *log.Logger) *Resolver {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Resolver{
		client:      client,
		cache:       store,
		chunkSize:   chunkSize,
		concurrency: concurrency,
		logger:      shared.WithLogger(logger, "component", "resolver"),
	}
}

// chunkOutcome is the result of one chunk lookup.
type chunkOutcome struct {
	tracks []models.Track
	err    error
}

// Resolve returns the tracks for ids. See [Resolver.ResolveBatch].
func (r *Resolver) Resolve(ctx context.Context, ids []int64) []models.Track {
	tracks, _ := r.ResolveBatch(ctx, ids)
	return tracks
}

// ResolveBatch returns the tracks for ids and whether every chunk succeeded.
//
// Tracks are concatenated in chunk order. Within a chunk they follow the catalog's
// response order. The assembled batch is cached under the sorted id set only when
// complete, so a permutation of a cached id set is answered in the first caller's order.
func (r *Resolver) ResolveBatch(ctx context.Context, ids []int64) ([]models.Track, bool) {
	if len(ids) == 0 {
		return []models.Track{}, true
	}

	key := songsKey(ids)
	if tracks, ok := cache.GetJSON[[]models.Track](ctx, r.cache, key); ok {
		r.logger.Debug("batch cache hit", "ids", len(ids))
		return tracks, true
	}

	chunks := Chunk(ids, r.chunkSize)
	outcomes := make([]chunkOutcome, len(chunks))

	var g errgroup.Group
	g.SetLimit(r.concurrency)
	for i, c := range chunks {
		g.Go(func() error {
			tracks, err := r.resolveChunk(ctx, c)
			outcomes[i] = chunkOutcome{tracks: tracks, err: err}
			return nil
		})
	}
	_ = g.Wait()

	tracks := make([]models.Track, 0, len(ids))
	complete := true
	for i, o := range outcomes {
		if o.err != nil {
			complete = false
			r.logger.Warn("chunk failed", "chunk", i, "size", len(chunks[i]), "error", o.err)
			continue
		}
		tracks = append(tracks, o.tracks...)
	}

	if complete && len(chunks) > 1 {
		if err := cache.SetJSON(ctx, r.cache, key, tracks); err != nil {
			r.logger.Error("failed to cache batch", "error", err)
		}
	}
	return tracks, complete
}

func (r *Resolver) resolveChunk(ctx context.Context, ids []int64) ([]models.Track, error) {
	key := songsKey(ids)
	if tracks, ok := cache.GetJSON[[]models.Track](ctx, r.cache, key); ok {
		return tracks, nil
	}

	endpoint := r.client.conf.BaseURL + "/api/song/detail/?" + url.Values{"ids": {idList(ids)}}.Encode()
	body, err := r.client.getJSON(ctx, endpoint, r.client.apiHeaders(), r.client.conf.Short())
	if err != nil {
		return nil, err
	}

	songs := body.Get("songs")
	if !songs.IsArray() {
		return nil, fmt.Errorf("%w: detail response has no songs", shared.ErrMalformedUpstream)
	}

	tracks, skipped := NormalizeTracks(songs, r.client.conf.StreamTemplate)
	if skipped > 0 {
		r.logger.Debug("skipped malformed records", "skipped", skipped)
	}

	if err := cache.SetJSON(ctx, r.cache, key, tracks); err != nil {
		r.logger.Error("failed to cache chunk", "error", err)
	}
	return tracks, nil
}

// Chunk splits ids into consecutive slices of at most size elements.
func Chunk(ids []int64, size int) [][]int64 {
	if size <= 0 {
		size = DefaultChunkSize
	}
	chunks := make([][]int64, 0, (len(ids)+size-1)/size)
	for i := 0; i < len(ids); i += size {
		chunks = append(chunks, ids[i:min(i+size, len(ids))])
	}
	return chunks
}

func songsKey(ids []int64) string {
	return cache.Key("songs", map[string]string{"ids": cache.IDs(ids)})
}

// idList renders ids as the bracketed list the detail endpoint expects.
func idList(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return "[" + strings.Join(parts, ",") + "]"
}
