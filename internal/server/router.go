package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/desertthunder/ncx/internal/cache"
	"github.com/desertthunder/ncx/internal/models"
	"github.com/desertthunder/ncx/internal/services"
	"github.com/desertthunder/ncx/internal/shared"
)

// NewRouter mounts the gateway routes.
func NewRouter(catalog services.Catalog, stats cache.Reporter, logger *log.Logger) chi.Router {
	h := &handlers{catalog: catalog, stats: stats, logger: logger}

	r := chi.NewRouter()
	for _, mw := range []Middleware{RequestID(), middleware.RealIP, AccessLog(logger), Recover(logger), CORS()} {
		r.Use(mw)
	}
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "not found"})
	})

	r.Get("/health", h.health)
	r.Route("/api", func(r chi.Router) {
		r.Method(http.MethodGet, "/search", apiHandler(h.search))
		r.Method(http.MethodGet, "/playlist", apiHandler(h.playlist))
		r.Method(http.MethodGet, "/import-playlist", apiHandler(h.importPlaylist))
		r.Method(http.MethodGet, "/toplists", apiHandler(h.toplists))
		r.Method(http.MethodGet, "/song", apiHandler(h.song))
		r.Method(http.MethodGet, "/song/url", apiHandler(h.songURL))
		r.Method(http.MethodGet, "/lyric", apiHandler(h.lyric))
	})
	return r
}

type errorBody struct {
	Error string `json:"error"`
}

// apiHandler adapts a handler that returns an error, mapping the error onto a status.
type apiHandler func(w http.ResponseWriter, r *http.Request) error

func (fn apiHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := fn(w, r); err != nil {
		writeJSON(w, statusFor(err), errorBody{Error: err.Error()})
	}
}

func statusFor(err error) int {
	switch {
	case services.IsClientError(err):
		return http.StatusBadRequest
	case errors.Is(err, shared.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, shared.ErrUpstreamUnavailable), errors.Is(err, shared.ErrMalformedUpstream):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type handlers struct {
	catalog services.Catalog
	stats   cache.Reporter
	logger  *log.Logger
}

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{"status": "ok"}
	if h.stats != nil {
		body["cache"] = h.stats.Stats()
	}
	writeJSON(w, http.StatusOK, body)
}

func (h *handlers) search(w http.ResponseWriter, r *http.Request) error {
	q := r.URL.Query()
	query, kind := q.Get("query"), q.Get("type")
	if query == "" || kind == "" {
		return missing("query and type are required")
	}

	page := 1
	if p := q.Get("page"); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil {
			return invalid("page must be a number")
		}
		page = n
	}

	res, err := h.catalog.Search(r.Context(), query, page, kind)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, res)
	return nil
}

func (h *handlers) playlist(w http.ResponseWriter, r *http.Request) error {
	id := r.URL.Query().Get("id")
	if id == "" {
		return missing("playlist id is required")
	}
	detail, err := h.catalog.ResolvePlaylist(r.Context(), id)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, detail)
	return nil
}

func (h *handlers) importPlaylist(w http.ResponseWriter, r *http.Request) error {
	ref := r.URL.Query().Get("url")
	if strings.TrimSpace(ref) == "" {
		return missing("url is required")
	}
	detail, err := h.catalog.ImportFromReference(r.Context(), ref)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, detail)
	return nil
}

func (h *handlers) toplists(w http.ResponseWriter, r *http.Request) error {
	groups, err := h.catalog.Toplists(r.Context())
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, groups)
	return nil
}

func (h *handlers) song(w http.ResponseWriter, r *http.Request) error {
	id := r.URL.Query().Get("id")
	if id == "" {
		return missing("song id is required")
	}
	track, err := h.catalog.Track(r.Context(), id)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, track)
	return nil
}

func (h *handlers) songURL(w http.ResponseWriter, r *http.Request) error {
	q := r.URL.Query()
	id := q.Get("id")
	if id == "" {
		return missing("song id is required")
	}
	quality := models.Quality(q.Get("quality"))
	if quality == "" {
		quality = models.QualityStandard
	}

	src, err := h.catalog.MediaURL(r.Context(), id, quality)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, src)
	return nil
}

func (h *handlers) lyric(w http.ResponseWriter, r *http.Request) error {
	id := r.URL.Query().Get("id")
	if id == "" {
		return missing("song id is required")
	}
	lyric, err := h.catalog.Lyric(r.Context(), id)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, lyric)
	return nil
}

func missing(msg string) error {
	return &clientError{err: shared.ErrMissingArgument, msg: msg}
}

func invalid(msg string) error {
	return &clientError{err: shared.ErrInvalidInput, msg: msg}
}

// clientError renders only msg while still matching its sentinel with errors.Is.
type clientError struct {
	err error
	msg string
}

func (e *clientError) Error() string { return e.msg }
func (e *clientError) Unwrap() error { return e.err }
