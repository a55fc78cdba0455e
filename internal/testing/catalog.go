package testing

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/ncx/internal/shared"
)

// FakeCatalog is an in-process stand-in for the catalog service and the media service.
//
// Song detail calls answer with the configured records in request order. A detail call
// naming any id in FailIDs answers 500. Unset bodies answer 500.
type FakeCatalog struct {
	mu sync.Mutex

	Songs       map[int64]string // raw detail record per id
	FailIDs     map[int64]bool
	Delays      map[int64]time.Duration // applied when the id leads a detail call
	Playlists   map[string]string       // raw playlist detail body per id
	SearchBody  string
	ToplistPage string
	LyricBody   string
	MediaBody   string

	calls    map[string]int
	inFlight int
	peak     int
}

// NewFakeCatalog returns an empty fake.
func NewFakeCatalog() *FakeCatalog {
	return &FakeCatalog{
		Songs:     make(map[int64]string),
		FailIDs:   make(map[int64]bool),
		Delays:    make(map[int64]time.Duration),
		Playlists: make(map[string]string),
		calls:     make(map[string]int),
	}
}

// Start serves the fake until the test ends.
func (f *FakeCatalog) Start(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return srv
}

// Config returns a catalog config pointing every upstream at srv.
func (f *FakeCatalog) Config(srv *httptest.Server) shared.CatalogConfig {
	conf := shared.DefaultConfig().Catalog
	conf.BaseURL = srv.URL
	conf.InterfaceURL = srv.URL
	conf.MediaURL = srv.URL
	conf.RequestsPerSecond = 0
	return conf
}

// Calls returns how many requests hit path.
func (f *FakeCatalog) Calls(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[path]
}

// PeakDetailCalls returns the most detail calls that were in flight at once.
func (f *FakeCatalog) PeakDetailCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.peak
}

// SetFail toggles the failure of detail calls naming id.
func (f *FakeCatalog) SetFail(id int64, fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if fail {
		f.FailIDs[id] = true
	} else {
		delete(f.FailIDs, id)
	}
}

// AddSong registers a minimal well-formed record.
func (f *FakeCatalog) AddSong(id int64, name, artist string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Songs[id] = SongJSON(id, name, artist)
}

func (f *FakeCatalog) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.calls[r.URL.Path]++
	f.mu.Unlock()

	switch r.URL.Path {
	case "/api/song/detail/":
		f.serveDetail(w, r)
	case "/api/v3/playlist/detail":
		f.mu.Lock()
		body, ok := f.Playlists[r.URL.Query().Get("id")]
		f.mu.Unlock()
		if !ok {
			writeRaw(w, `{"code":404,"message":"not found"}`)
			return
		}
		writeRaw(w, body)
	case "/weapi/search/get", "/weapi/song/lyric":
		if r.Method != http.MethodPost || r.FormValue("params") == "" || len(r.FormValue("encSecKey")) != 256 {
			http.Error(w, "unsigned request", http.StatusBadRequest)
			return
		}
		if r.URL.Path == "/weapi/search/get" {
			writeOrFail(w, f.SearchBody)
		} else {
			writeOrFail(w, f.LyricBody)
		}
	case "/discover/toplist":
		writeOrFail(w, f.ToplistPage)
	case "/song/url":
		writeOrFail(w, f.MediaBody)
	default:
		http.NotFound(w, r)
	}
}

func (f *FakeCatalog) serveDetail(w http.ResponseWriter, r *http.Request) {
	ids, err := ParseIDList(r.URL.Query().Get("ids"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	f.inFlight++
	f.peak = max(f.peak, f.inFlight)
	var delay time.Duration
	if len(ids) > 0 {
		delay = f.Delays[ids[0]]
	}
	var records []string
	fail := false
	for _, id := range ids {
		if f.FailIDs[id] {
			fail = true
		}
		if rec, ok := f.Songs[id]; ok {
			records = append(records, rec)
		}
	}
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.inFlight--
		f.mu.Unlock()
	}()

	if delay > 0 {
		time.Sleep(delay)
	}
	if fail {
		http.Error(w, "upstream exploded", http.StatusInternalServerError)
		return
	}
	writeRaw(w, `{"code":200,"songs":[`+strings.Join(records, ",")+`]}`)
}

// ParseIDList reads the bracketed id list the detail endpoint takes.
func ParseIDList(s string) ([]int64, error) {
	s = strings.TrimSuffix(strings.TrimPrefix(s, "["), "]")
	if s == "" {
		return nil, nil
	}
	var ids []int64
	for part := range strings.SplitSeq(s, ",") {
		id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad id %q", part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// SongJSON renders a detail record in the catalog's current shape.
func SongJSON(id int64, name, artist string) string {
	return fmt.Sprintf(`{"id":%d,"name":%q,"ar":[{"id":1,"name":%q}],"al":{"id":%d,"name":"Album %d","picUrl":"http://p1.music.126.net/x%d.jpg?param=130y130"},"dt":200000,"l":{"size":1000},"m":{"size":2000},"h":{"size":3000},"copyrightId":7}`,
		id, name, artist, id*10, id, id)
}

// PlaylistJSON renders a playlist detail body naming trackIDs.
func PlaylistJSON(id int64, name string, trackIDs ...int64) string {
	refs := make([]string, len(trackIDs))
	for i, tid := range trackIDs {
		refs[i] = fmt.Sprintf(`{"id":%d}`, tid)
	}
	return fmt.Sprintf(`{"code":200,"playlist":{"id":%d,"name":%q,"description":"desc","coverImgUrl":"http://p1.music.126.net/cover.jpg","creator":{"nickname":"owner"},"playCount":12,"trackCount":%d,"trackIds":[%s]}}`,
		id, name, len(trackIDs), strings.Join(refs, ","))
}

func writeOrFail(w http.ResponseWriter, body string) {
	if body == "" {
		http.Error(w, "unavailable", http.StatusInternalServerError)
		return
	}
	writeRaw(w, body)
}

func writeRaw(w http.ResponseWriter, body string) {
	if strings.HasPrefix(body, "<") {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
	} else {
		w.Header().Set("Content-Type", "application/json")
	}
	_, _ = w.Write([]byte(body))
}
