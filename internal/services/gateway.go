package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/tidwall/gjson"

	"github.com/desertthunder/ncx/internal/cache"
	"github.com/desertthunder/ncx/internal/extract"
	"github.com/desertthunder/ncx/internal/models"
	"github.com/desertthunder/ncx/internal/shared"
	"github.com/desertthunder/ncx/internal/weapi"
)

const playlistTrackLimit = 5000

// searchTypes maps a search kind onto the catalog's numeric result type.
var searchTypes = map[string]int{KindMusic: 1, KindAlbum: 10}

// Gateway implements [Catalog] against the catalog service.
//
// Every operation checks the cache first and stores its normalized result only on success.
// Degraded results (empty searches, fallback toplists, empty lyrics) are never cached.
type Gateway struct {
	client   *Client
	resolver *Resolver
	cache    cache.Store
	conf     shared.CatalogConfig
	logger   *log.Logger
}

// NewGateway wires a gateway around store. A nil httpClient uses [http.DefaultClient].
func NewGateway(conf shared.CatalogConfig, store cache.Store, httpClient *http.Client, logger *log.Logger) *Gateway {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	client := NewClient(conf, httpClient, shared.WithLogger(logger, "component", "client"))
	return &Gateway{
		client:   client,
		resolver: NewResolver(client, store, conf.ChunkSize, conf.MaxConcurrency, logger),
		cache:    store,
		conf:     conf,
		logger:   shared.WithLogger(logger, "component", "gateway"),
	}
}

// Resolver exposes the batched resolver.
func (g *Gateway) Resolver() *Resolver { return g.resolver }

func (g *Gateway) pageSize() int {
	if g.conf.PageSize <= 0 {
		return 30
	}
	return g.conf.PageSize
}

// Search returns one page of results for query.
//
// Kinds other than music and album yield an empty terminal page. Upstream failures
// are logged and also yield an empty terminal page. A page whose track details were
// only partly resolved is returned but not cached.
func (g *Gateway) Search(ctx context.Context, query string, page int, kind string) (*models.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: empty search query", shared.ErrInvalidInput)
	}
	page = max(page, 1)

	searchType, ok := searchTypes[kind]
	if !ok {
		return models.EmptySearch(), nil
	}

	key := cache.Key("search", map[string]string{"query": query, "page": strconv.Itoa(page), "type": kind})
	if res, ok := cache.GetJSON[models.SearchResult](ctx, g.cache, key); ok {
		return &res, nil
	}

	size := g.pageSize()
	env, err := weapi.EncryptJSON(map[string]any{
		"s":          query,
		"limit":      size,
		"type":       searchType,
		"offset":     (page - 1) * size,
		"csrf_token": "",
	})
	if err != nil {
		return nil, err
	}

	body, err := g.client.postEnvelope(ctx, g.conf.BaseURL+"/weapi/search/get", env, g.client.searchHeaders(), g.conf.Short())
	if err != nil {
		g.logger.Warn("search failed", "query", query, "kind", kind, "error", err)
		return models.EmptySearch(), nil
	}

	result := body.Get("result")
	if !result.Exists() {
		g.logger.Warn("search response has no result", "query", query, "code", body.Get("code").Int())
		return models.EmptySearch(), nil
	}

	var res *models.SearchResult
	complete := true
	switch kind {
	case KindMusic:
		res, complete = g.musicPage(ctx, result, page*size)
	case KindAlbum:
		res = albumPage(result, page*size)
	}

	if !complete {
		g.logger.Warn("search details partially resolved", "query", query, "page", page)
		return res, nil
	}

	if err := cache.SetJSON(ctx, g.cache, key, res); err != nil {
		g.logger.Error("failed to cache search", "error", err)
	}
	return res, nil
}

// musicPage resolves the detail records for a music search page and reports whether
// every detail lookup succeeded.
func (g *Gateway) musicPage(ctx context.Context, result gjson.Result, seen int) (*models.SearchResult, bool) {
	songs := result.Get("songs").Array()
	if len(songs) == 0 {
		return models.EmptySearch(), true
	}

	ids := make([]int64, 0, len(songs))
	for _, s := range songs {
		if id := s.Get("id").Int(); id != 0 {
			ids = append(ids, id)
		}
	}

	tracks, complete := g.resolver.ResolveBatch(ctx, ids)
	return &models.SearchResult{
		IsEnd: result.Get("songCount").Int() <= int64(seen),
		Data:  tracks,
	}, complete
}

func albumPage(result gjson.Result, seen int) *models.SearchResult {
	res := &models.SearchResult{
		IsEnd:  result.Get("albumCount").Int() <= int64(seen),
		Data:   []models.Track{},
		Albums: []models.Album{},
	}
	for _, a := range result.Get("albums").Array() {
		if album, ok := NormalizeAlbum(a); ok {
			res.Albums = append(res.Albums, album)
		}
	}
	return res
}

// ResolvePlaylist fetches playlist metadata and resolves every track.
//
// A failure fetching the metadata is returned; failures resolving tracks shorten the result.
// Only fully resolved playlists are cached.
func (g *Gateway) ResolvePlaylist(ctx context.Context, id string) (*models.PlaylistDetail, error) {
	if !isDigits(id) {
		return nil, fmt.Errorf("%w: playlist id %q is not numeric", shared.ErrInvalidInput, id)
	}

	key := cache.Key("playlist", map[string]string{"id": id})
	if detail, ok := cache.GetJSON[models.PlaylistDetail](ctx, g.cache, key); ok {
		return &detail, nil
	}

	q := url.Values{"id": {id}, "n": {strconv.Itoa(playlistTrackLimit)}}
	body, err := g.client.getJSON(ctx, g.conf.BaseURL+"/api/v3/playlist/detail?"+q.Encode(), g.client.apiHeaders(), g.conf.Long())
	if err != nil {
		g.logger.Error("playlist fetch failed", "id", id, "error", err)
		return nil, err
	}

	pl := body.Get("playlist")
	if !pl.IsObject() {
		if code := body.Get("code").Int(); code == http.StatusNotFound {
			return nil, fmt.Errorf("%w: playlist %s", shared.ErrNotFound, id)
		}
		return nil, fmt.Errorf("%w: playlist %s has no metadata", shared.ErrMalformedUpstream, id)
	}

	trackIDs := make([]int64, 0)
	for _, t := range pl.Get("trackIds").Array() {
		if tid := t.Get("id").Int(); tid != 0 {
			trackIDs = append(trackIDs, tid)
		}
	}

	tracks, complete := g.resolver.ResolveBatch(ctx, trackIDs)
	detail := &models.PlaylistDetail{
		Playlist: models.PlaylistInfo{
			ID:          pl.Get("id").Int(),
			Name:        pl.Get("name").String(),
			Description: pl.Get("description").String(),
			CoverImg:    secure(pl.Get("coverImgUrl").String()),
			Creator:     pl.Get("creator.nickname").String(),
			PlayCount:   pl.Get("playCount").Int(),
			TrackCount:  int(pl.Get("trackCount").Int()),
		},
		Tracks: tracks,
	}

	if !complete {
		g.logger.Warn("playlist partially resolved", "id", id, "resolved", len(tracks), "ids", len(trackIDs))
		return detail, nil
	}

	if err := cache.SetJSON(ctx, g.cache, key, detail); err != nil {
		g.logger.Error("failed to cache playlist", "error", err)
	}
	return detail, nil
}

// ImportFromReference resolves the playlist a link or bare id points at.
func (g *Gateway) ImportFromReference(ctx context.Context, text string) (*models.PlaylistDetail, error) {
	id, err := ParseReference(text)
	if err != nil {
		return nil, err
	}
	return g.ResolvePlaylist(ctx, id)
}

// Toplists returns the ranking groups from the catalog's rankings page.
//
// A failed fetch or a page with no groups yields [FallbackToplists]. Parse errors are returned.
func (g *Gateway) Toplists(ctx context.Context) ([]models.Group, error) {
	key := cache.Key("toplists", nil)
	if groups, ok := cache.GetJSON[[]models.Group](ctx, g.cache, key); ok {
		return groups, nil
	}

	page, err := g.client.do(ctx, call{
		method:  http.MethodGet,
		url:     g.conf.BaseURL + "/discover/toplist",
		headers: pageHeaders(),
		timeout: g.conf.Page(),
	})
	if err != nil {
		g.logger.Warn("toplist fetch failed, using fallback", "error", err)
		return FallbackToplists(), nil
	}

	groups, err := extract.Toplists(bytes.NewReader(page))
	if err != nil {
		return nil, err
	}
	if len(groups) == 0 {
		g.logger.Warn("toplist page had no groups, using fallback")
		return FallbackToplists(), nil
	}

	items := 0
	for _, grp := range groups {
		items += len(grp.Data)
	}
	g.logger.Info("fetched toplists", "groups", len(groups), "items", items)

	if err := cache.SetJSON(ctx, g.cache, key, groups); err != nil {
		g.logger.Error("failed to cache toplists", "error", err)
	}
	return groups, nil
}

// Lyric returns the lyric and its translation. Upstream failures yield an empty lyric.
func (g *Gateway) Lyric(ctx context.Context, id string) (*models.Lyric, error) {
	if !isDigits(id) {
		return nil, fmt.Errorf("%w: track id %q is not numeric", shared.ErrInvalidInput, id)
	}

	key := cache.Key("lyric", map[string]string{"id": id})
	if lyric, ok := cache.GetJSON[models.Lyric](ctx, g.cache, key); ok {
		return &lyric, nil
	}

	numeric, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}
	env, err := weapi.EncryptJSON(map[string]any{"id": numeric, "lv": -1, "tv": -1, "csrf_token": ""})
	if err != nil {
		return nil, err
	}

	body, err := g.client.postEnvelope(ctx, g.conf.InterfaceURL+"/weapi/song/lyric?csrf_token=", env, g.client.apiHeaders(), g.conf.Short())
	if err != nil {
		g.logger.Warn("lyric fetch failed", "id", id, "error", err)
		return &models.Lyric{}, nil
	}

	lyric := &models.Lyric{
		RawLrc:        body.Get("lrc.lyric").String(),
		TranslatedLrc: body.Get("tlyric.lyric").String(),
	}
	if err := cache.SetJSON(ctx, g.cache, key, lyric); err != nil {
		g.logger.Error("failed to cache lyric", "error", err)
	}
	return lyric, nil
}

// MediaURL returns a playable URL for the track at quality, or nil when the
// media service has none or answers with something other than an http(s) URL.
func (g *Gateway) MediaURL(ctx context.Context, id string, quality models.Quality) (*models.MediaSource, error) {
	if !isDigits(id) {
		return nil, fmt.Errorf("%w: track id %q is not numeric", shared.ErrInvalidInput, id)
	}
	if quality == "" {
		quality = models.QualityStandard
	}

	key := cache.Key("media", map[string]string{"id": id, "quality": string(quality)})
	if src, ok := cache.GetJSON[models.MediaSource](ctx, g.cache, key); ok {
		return &src, nil
	}

	q := url.Values{"id": {id}, "quality": {quality.Bitrate()}}
	body, err := g.client.getJSON(ctx, g.conf.MediaURL+"/song/url?"+q.Encode(), nil, g.conf.Short())
	if err != nil {
		g.logger.Warn("media lookup failed", "id", id, "quality", quality, "error", err)
		return nil, nil
	}

	u := body.Get("url").String()
	if !strings.HasPrefix(u, "http") {
		g.logger.Warn("media service returned no url", "id", id, "body", body.Raw)
		return nil, nil
	}

	src := &models.MediaSource{URL: u, Quality: quality}
	if err := cache.SetJSON(ctx, g.cache, key, src); err != nil {
		g.logger.Error("failed to cache media url", "error", err)
	}
	return src, nil
}

// Track resolves a single track, or nil when the catalog has no usable record for id.
func (g *Gateway) Track(ctx context.Context, id string) (*models.Track, error) {
	if !isDigits(id) {
		return nil, fmt.Errorf("%w: track id %q is not numeric", shared.ErrInvalidInput, id)
	}
	numeric, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	tracks := g.resolver.Resolve(ctx, []int64{numeric})
	for _, t := range tracks {
		if t.ID == numeric {
			return &t, nil
		}
	}
	return nil, nil
}

// IsClientError reports whether err was caused by caller input.
func IsClientError(err error) bool {
	return errors.Is(err, shared.ErrInvalidInput) ||
		errors.Is(err, shared.ErrInvalidReference) ||
		errors.Is(err, shared.ErrMissingArgument)
}
