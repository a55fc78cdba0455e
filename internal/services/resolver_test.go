package services

import (
	"bytes"
	"context"
	"net/http"
	"slices"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/ncx/internal/cache"
	"github.com/desertthunder/ncx/internal/models"
	tu "github.com/desertthunder/ncx/internal/testing"
)

func newTestResolver(t *testing.T, fake *tu.FakeCatalog, chunkSize int) (*Resolver, *cache.Memory) {
	t.Helper()
	srv := fake.Start(t)
	logger := log.New(&bytes.Buffer{})
	store := cache.NewMemory(time.Minute)
	client := NewClient(fake.Config(srv), srv.Client(), logger)
	return NewResolver(client, store, chunkSize, 4, logger), store
}

func ids(tracks []models.Track) []int64 {
	out := make([]int64, len(tracks))
	for i, tr := range tracks {
		out[i] = tr.ID
	}
	return out
}

func seq(from, to int64) []int64 {
	var out []int64
	for i := from; i <= to; i++ {
		out = append(out, i)
	}
	return out
}

func TestChunk(t *testing.T) {
	tc := []struct {
		name string
		n    int64
		size int
		want []int
	}{
		{"exact multiple", 10, 5, []int{5, 5}},
		{"remainder", 11, 5, []int{5, 5, 1}},
		{"smaller than size", 3, 5, []int{3}},
		{"empty", 0, 5, []int{}},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			chunks := Chunk(seq(1, tt.n), tt.size)
			got := make([]int, len(chunks))
			for i, c := range chunks {
				got[i] = len(c)
			}
			if !slices.Equal(got, tt.want) {
				t.Errorf("chunk sizes = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestResolver(t *testing.T) {
	ctx := context.Background()

	t.Run("resolves every chunk in submission order", func(t *testing.T) {
		fake := tu.NewFakeCatalog()
		for _, id := range seq(1, 10) {
			fake.AddSong(id, "song", "artist")
		}
		fake.Delays[1] = 50 * time.Millisecond
		r, _ := newTestResolver(t, fake, 3)

		tracks, complete := r.ResolveBatch(ctx, seq(1, 10))
		if !complete {
			t.Error("expected complete batch")
		}
		if !slices.Equal(ids(tracks), seq(1, 10)) {
			t.Errorf("unexpected order %v", ids(tracks))
		}
		if got := fake.Calls("/api/song/detail/"); got != 4 {
			t.Errorf("expected 4 detail calls, got %d", got)
		}
	})

	t.Run("chunks are fetched concurrently", func(t *testing.T) {
		fake := tu.NewFakeCatalog()
		for _, id := range seq(1, 8) {
			fake.AddSong(id, "song", "artist")
		}
		for _, lead := range []int64{1, 3, 5, 7} {
			fake.Delays[lead] = 100 * time.Millisecond
		}
		r, _ := newTestResolver(t, fake, 2)

		start := time.Now()
		tracks, complete := r.ResolveBatch(ctx, seq(1, 8))
		elapsed := time.Since(start)

		if !complete || !slices.Equal(ids(tracks), seq(1, 8)) {
			t.Fatalf("unexpected batch %v (complete=%v)", ids(tracks), complete)
		}
		if peak := fake.PeakDetailCalls(); peak < 2 {
			t.Errorf("expected overlapping detail calls, peak was %d", peak)
		}
		if elapsed >= 400*time.Millisecond {
			t.Errorf("four 100ms chunks took %v, expected them to overlap", elapsed)
		}
	})

	t.Run("in-flight chunks never exceed the concurrency limit", func(t *testing.T) {
		fake := tu.NewFakeCatalog()
		for _, id := range seq(1, 12) {
			fake.AddSong(id, "song", "artist")
			fake.Delays[id] = 30 * time.Millisecond
		}
		r, _ := newTestResolver(t, fake, 1)

		if _, complete := r.ResolveBatch(ctx, seq(1, 12)); !complete {
			t.Fatal("expected complete batch")
		}
		if peak := fake.PeakDetailCalls(); peak > 4 {
			t.Errorf("peak in-flight calls %d exceeds limit 4", peak)
		}
	})

	t.Run("failed chunk is dropped without failing siblings", func(t *testing.T) {
		fake := tu.NewFakeCatalog()
		for _, id := range seq(1, 9) {
			fake.AddSong(id, "song", "artist")
		}
		fake.FailIDs[5] = true
		r, store := newTestResolver(t, fake, 3)

		tracks, complete := r.ResolveBatch(ctx, seq(1, 9))
		if complete {
			t.Error("expected incomplete batch")
		}
		if want := []int64{1, 2, 3, 7, 8, 9}; !slices.Equal(ids(tracks), want) {
			t.Errorf("got %v, want %v", ids(tracks), want)
		}
		if _, ok := store.Get(ctx, songsKey(seq(1, 9))); ok {
			t.Error("partial batch must not be cached as a whole")
		}
		if _, ok := store.Get(ctx, songsKey(seq(1, 3))); !ok {
			t.Error("successful chunk should be cached")
		}
	})

	t.Run("single chunk keeps catalog order", func(t *testing.T) {
		fake := tu.NewFakeCatalog()
		for _, id := range []int64{5, 1, 9} {
			fake.AddSong(id, "song", "artist")
		}
		r, _ := newTestResolver(t, fake, 100)

		tracks := r.Resolve(ctx, []int64{5, 1, 9})
		if !slices.Equal(ids(tracks), []int64{5, 1, 9}) {
			t.Errorf("unexpected order %v", ids(tracks))
		}
	})

	t.Run("malformed records are skipped", func(t *testing.T) {
		fake := tu.NewFakeCatalog()
		fake.AddSong(1, "ok", "artist")
		fake.Songs[2] = `{"id":2,"name":"no artist"}`
		fake.AddSong(3, "ok", "artist")
		r, _ := newTestResolver(t, fake, 100)

		if got := ids(r.Resolve(ctx, []int64{1, 2, 3})); !slices.Equal(got, []int64{1, 3}) {
			t.Errorf("unexpected ids %v", got)
		}
	})

	t.Run("complete batch is served from cache", func(t *testing.T) {
		fake := tu.NewFakeCatalog()
		for _, id := range seq(1, 6) {
			fake.AddSong(id, "song", "artist")
		}
		r, _ := newTestResolver(t, fake, 2)

		input := []int64{6, 5, 4, 3, 2, 1}
		first := r.Resolve(ctx, input)
		calls := fake.Calls("/api/song/detail/")

		second := r.Resolve(ctx, seq(1, 6))
		if fake.Calls("/api/song/detail/") != calls {
			t.Error("expected permutation to hit the batch cache")
		}
		if !slices.Equal(ids(first), ids(second)) {
			t.Errorf("cached batch should keep first order, got %v", ids(second))
		}
		if !slices.Equal(input, []int64{6, 5, 4, 3, 2, 1}) {
			t.Errorf("input slice mutated: %v", input)
		}
	})

	t.Run("empty input", func(t *testing.T) {
		r, _ := newTestResolver(t, tu.NewFakeCatalog(), 100)
		tracks, complete := r.ResolveBatch(ctx, nil)
		if len(tracks) != 0 || !complete {
			t.Errorf("expected empty complete result, got %v %v", tracks, complete)
		}
	})

	t.Run("timeout degrades the chunk", func(t *testing.T) {
		fake := tu.NewFakeCatalog()
		fake.AddSong(1, "slow", "artist")
		fake.AddSong(2, "fast", "artist")
		fake.Delays[1] = 300 * time.Millisecond
		srv := fake.Start(t)

		conf := fake.Config(srv)
		conf.ShortTimeout = 0
		client := NewClient(conf, &http.Client{Timeout: 100 * time.Millisecond}, log.New(&bytes.Buffer{}))
		r := NewResolver(client, cache.NewMemory(time.Minute), 1, 2, log.New(&bytes.Buffer{}))

		if got := ids(r.Resolve(ctx, []int64{1, 2})); !slices.Equal(got, []int64{2}) {
			t.Errorf("expected only the fast chunk, got %v", got)
		}
	})
}

func TestIDList(t *testing.T) {
	if got := idList([]int64{1, 22, 333}); got != "[1,22,333]" {
		t.Errorf("unexpected list %s", got)
	}
}
