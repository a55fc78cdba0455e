package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/ncx/internal/cache"
	"github.com/desertthunder/ncx/internal/models"
	"github.com/desertthunder/ncx/internal/services"
	"github.com/desertthunder/ncx/internal/shared"
	tu "github.com/desertthunder/ncx/internal/testing"
)

// newFakeRunner returns a runner whose gateway talks to an in-process catalog
// and whose archive lives in memory.
func newFakeRunner(t *testing.T) (*Runner, *tu.FakeCatalog, *bytes.Buffer) {
	t.Helper()
	fake := tu.NewFakeCatalog()
	srv := fake.Start(t)

	config := shared.DefaultConfig()
	config.Catalog = fake.Config(srv)
	config.Database.Path = ":memory:"

	output := &bytes.Buffer{}
	runner := NewRunner(RunnerOpts{
		Config:     config,
		Output:     output,
		HTTPClient: srv.Client(),
		Logger:     shared.NewLogger(&bytes.Buffer{}),
	})
	t.Cleanup(func() { runner.Close() })
	return runner, fake, output
}

// closingStore is a memory store that records Close.
type closingStore struct {
	*cache.Memory
	closed int
}

func (s *closingStore) Close() error {
	s.closed++
	return nil
}

func withPlaylist(fake *tu.FakeCatalog) {
	fake.AddSong(1, "One", "Alpha")
	fake.AddSong(2, "Two", "Beta")
	fake.Playlists["5"] = tu.PlaylistJSON(5, "Mix", 1, 2)
}

func runApp(t *testing.T, r *Runner, args ...string) error {
	t.Helper()
	app := &cli.Command{Name: "ncx", Commands: r.register()}
	return app.Run(context.Background(), append([]string{"ncx"}, args...))
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			httpClient := &http.Client{}
			store := cache.NewMemory(cache.DefaultTTL)
			catalog := services.NewGateway(config.Catalog, store, httpClient, logger)

			runner := NewRunner(RunnerOpts{
				Config:     config,
				Logger:     logger,
				Output:     output,
				HTTPClient: httpClient,
				Store:      store,
				Catalog:    catalog,
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.httpClient != httpClient {
				t.Error("expected httpClient to be set")
			}
			if runner.store != store {
				t.Error("expected store to be set")
			}
			if runner.catalog != catalog {
				t.Error("expected catalog to be set")
			}
		})

		t.Run("with nil config uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Config: nil})
			if runner.config == nil {
				t.Error("expected default config to be set")
			}
		})

		t.Run("with nil logger uses default", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Logger: nil})
			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
		})

		t.Run("with nil output uses stdout", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: nil})
			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
		})

		t.Run("with nil httpClient uses default", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{HTTPClient: nil})
			if runner.httpClient != http.DefaultClient {
				t.Error("expected httpClient to default to http.DefaultClient")
			}
		})

		t.Run("with nil catalog builds a gateway", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})
			if _, ok := runner.catalog.(*services.Gateway); !ok {
				t.Errorf("expected a gateway, got %T", runner.catalog)
			}
			if _, ok := runner.store.(*cache.Memory); !ok {
				t.Errorf("expected an in-memory store, got %T", runner.store)
			}
		})

		t.Run("Close releases the cache and archive", func(t *testing.T) {
			store := &closingStore{Memory: cache.NewMemory(time.Minute)}
			config := shared.DefaultConfig()
			config.Database.Path = ":memory:"
			runner := NewRunner(RunnerOpts{Config: config, Store: store, Output: &bytes.Buffer{}})

			if _, err := runner.Archive(); err != nil {
				t.Fatalf("failed to open archive: %v", err)
			}
			if err := runner.Close(); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if store.closed != 1 {
				t.Errorf("expected store to be closed once, got %d", store.closed)
			}
			if runner.db != nil || runner.archive != nil {
				t.Error("expected archive handles to be released")
			}

			if err := runner.Close(); err != nil {
				t.Fatalf("second Close: %v", err)
			}
			if store.closed != 1 {
				t.Errorf("second Close reached the store again (%d)", store.closed)
			}
		})

		t.Run("with configPath sets field", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{ConfigPath: "/test/path/config.toml"})
			if runner.configPath != "/test/path/config.toml" {
				t.Errorf("expected configPath to be set, got %s", runner.configPath)
			}
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, true); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if !strings.Contains(result, `"key": "value"`) {
				t.Errorf("expected formatted JSON, got %s", result)
			}
			if !strings.HasSuffix(result, "\n") {
				t.Error("expected output to end with newline")
			}
		})

		t.Run("writes compact JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, false); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			expected := `{"key":"value"}` + "\n"
			if output.String() != expected {
				t.Errorf("expected %q, got %q", expected, output.String())
			}
		})

		t.Run("handles marshal error with non-serializable data", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})

			// channels cannot be marshaled to JSON
			err := runner.writeJSON(make(chan int), false)
			if err == nil {
				t.Fatal("expected error for non-serializable data")
			}
			if !strings.Contains(err.Error(), "failed to marshal JSON") {
				t.Errorf("expected marshal error, got %v", err)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil {
				t.Fatal("expected error from failing writer")
			}
			if !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})

		t.Run("handles newline write failure", func(t *testing.T) {
			limitedWriter := tu.NewLimitedWriter(1, 0, &bytes.Buffer{})
			runner := NewRunner(RunnerOpts{Output: &limitedWriter})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil {
				t.Fatal("expected error writing newline")
			}
			if !strings.Contains(err.Error(), "failed to write newline") {
				t.Errorf("expected newline write error, got %v", err)
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		t.Run("writes plain text successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writePlain("hello %s", "world"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if output.String() != "hello world" {
				t.Errorf("expected 'hello world', got %q", output.String())
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writePlain("test")
			if err == nil {
				t.Fatal("expected error from failing writer")
			}
			if !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})
	})

	t.Run("register", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		commands := runner.register()

		if len(commands) == 0 {
			t.Error("expected at least one command to be registered")
		}

		names := map[string]bool{}
		for i, cmd := range commands {
			if cmd == nil {
				t.Errorf("command at index %d is nil", i)
				continue
			}
			names[cmd.Name] = true
		}
		for _, want := range []string{"serve", "search", "playlist", "toplists", "archive", "export", "tui"} {
			if !names[want] {
				t.Errorf("expected %s command to be registered", want)
			}
		}
	})

	t.Run("Configure", func(t *testing.T) {
		configure := func(runner *Runner, args ...string) error {
			app := &cli.Command{
				Name: "ncx",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "config", Value: "config.toml"},
					&cli.BoolFlag{Name: "verbose"},
				},
				Before: runner.Configure,
				Action: func(context.Context, *cli.Command) error { return nil },
			}
			return app.Run(context.Background(), append([]string{"ncx"}, args...))
		}

		t.Run("loads the config file", func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte("[cache]\nttl_minutes = 5\n[log]\nlevel = \"warn\"\n"), 0644); err != nil {
				t.Fatal(err)
			}

			runner := NewRunner(RunnerOpts{Logger: shared.NewLogger(&bytes.Buffer{})})
			if err := configure(runner, "--config", path); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			if runner.config.Cache.TTLMinutes != 5 {
				t.Errorf("expected ttl 5, got %d", runner.config.Cache.TTLMinutes)
			}
			if runner.configPath != path {
				t.Errorf("expected configPath %s, got %s", path, runner.configPath)
			}
			if runner.logger.GetLevel().String() != "warn" {
				t.Errorf("expected warn level, got %s", runner.logger.GetLevel())
			}
		})

		t.Run("missing file keeps defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Logger: shared.NewLogger(&bytes.Buffer{})})
			err := configure(runner, "--config", filepath.Join(t.TempDir(), "absent.toml"), "--verbose")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if runner.config.Cache.TTLMinutes != shared.DefaultConfig().Cache.TTLMinutes {
				t.Error("expected default cache settings")
			}
			if runner.logger.GetLevel().String() != "debug" {
				t.Errorf("--verbose should enable debug logging, got %s", runner.logger.GetLevel())
			}
		})

		t.Run("invalid config fails", func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte("[catalog]\npage_size = 0\n"), 0644); err != nil {
				t.Fatal(err)
			}

			runner := NewRunner(RunnerOpts{Logger: shared.NewLogger(&bytes.Buffer{})})
			if err := configure(runner, "--config", path); !errors.Is(err, shared.ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	})
}

func TestCatalogCommands(t *testing.T) {
	t.Run("playlist prints tracks", func(t *testing.T) {
		runner, fake, output := newFakeRunner(t)
		withPlaylist(fake)

		if err := runApp(t, runner, "playlist", "--id", "5"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		out := output.String()
		for _, want := range []string{"Playlist: Mix", "Creator: owner", "Tracks: 2 of 2", "1. Alpha - One", "2. Beta - Two"} {
			if !strings.Contains(out, want) {
				t.Errorf("output missing %q:\n%s", want, out)
			}
		}
	})

	t.Run("playlist from reference as JSON", func(t *testing.T) {
		runner, fake, output := newFakeRunner(t)
		withPlaylist(fake)

		if err := runApp(t, runner, "playlist", "--ref", "https://music.163.com/#/playlist?id=5", "--json"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		var detail models.PlaylistDetail
		if err := json.Unmarshal(output.Bytes(), &detail); err != nil {
			t.Fatalf("expected JSON output, got %v: %s", err, output.String())
		}
		if detail.Playlist.ID != 5 || len(detail.Tracks) != 2 {
			t.Errorf("unexpected detail: %+v", detail)
		}
	})

	t.Run("playlist export", func(t *testing.T) {
		runner, fake, output := newFakeRunner(t)
		withPlaylist(fake)
		dir := t.TempDir()

		if err := runApp(t, runner, "playlist", "--id", "5", "--format", "csv", "--output", dir); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		tu.AssertFileExists(t, filepath.Join(dir, "5_metadata.json"))
		csv := tu.MustReadFile(t, filepath.Join(dir, "5_tracks.csv"))
		if !strings.Contains(csv, "One,Alpha") {
			t.Errorf("CSV missing track row:\n%s", csv)
		}
		if !strings.Contains(output.String(), "Tracks: 2 of 2") {
			t.Errorf("expected export summary, got %s", output.String())
		}
	})

	t.Run("playlist argument errors", func(t *testing.T) {
		runner, _, _ := newFakeRunner(t)

		if err := runApp(t, runner, "playlist"); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
		if err := runApp(t, runner, "playlist", "--id", "5", "--ref", "5"); !errors.Is(err, shared.ErrInvalidFlag) {
			t.Errorf("expected ErrInvalidFlag, got %v", err)
		}
		if err := runApp(t, runner, "playlist", "--id", "5", "--format", "xml"); !errors.Is(err, shared.ErrInvalidFlag) {
			t.Errorf("expected ErrInvalidFlag for format, got %v", err)
		}
		if err := runApp(t, runner, "playlist", "--ref", "not a link"); !errors.Is(err, shared.ErrInvalidReference) {
			t.Errorf("expected ErrInvalidReference, got %v", err)
		}
	})

	t.Run("search argument errors", func(t *testing.T) {
		runner, _, _ := newFakeRunner(t)

		if err := runApp(t, runner, "search"); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
		if err := runApp(t, runner, "search", "--type", "video", "hello"); !errors.Is(err, shared.ErrInvalidFlag) {
			t.Errorf("expected ErrInvalidFlag, got %v", err)
		}
	})

	t.Run("toplists fall back when the page is unavailable", func(t *testing.T) {
		runner, _, output := newFakeRunner(t)

		if err := runApp(t, runner, "toplists"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(output.String(), "飙升榜") {
			t.Errorf("expected fallback rankings, got %s", output.String())
		}
	})

	t.Run("track", func(t *testing.T) {
		runner, fake, output := newFakeRunner(t)
		fake.AddSong(1, "One", "Alpha")

		if err := runApp(t, runner, "track", "--id", "1"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(output.String(), "Alpha - One") {
			t.Errorf("expected track line, got %s", output.String())
		}

		if err := runApp(t, runner, "track", "--id", "404"); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("lyric", func(t *testing.T) {
		runner, fake, output := newFakeRunner(t)
		fake.LyricBody = `{"code":200,"lrc":{"lyric":"[00:01.00]hi"},"tlyric":{"lyric":"[00:01.00]你好"}}`

		if err := runApp(t, runner, "lyric", "--id", "1"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		out := output.String()
		if !strings.Contains(out, "[0:01] hi") || !strings.Contains(out, "你好") {
			t.Errorf("expected parsed lyric with translation, got %s", out)
		}
	})

	t.Run("url", func(t *testing.T) {
		runner, fake, output := newFakeRunner(t)
		fake.MediaBody = `{"url":"https://cdn.example.com/1.mp3"}`

		if err := runApp(t, runner, "url", "--id", "1", "--quality", "high"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if strings.TrimSpace(output.String()) != "https://cdn.example.com/1.mp3" {
			t.Errorf("unexpected output %q", output.String())
		}

		if err := runApp(t, runner, "url", "--id", "1", "--quality", "lossless"); !errors.Is(err, shared.ErrInvalidFlag) {
			t.Errorf("expected ErrInvalidFlag, got %v", err)
		}
	})
}

func TestArchiveCommands(t *testing.T) {
	runner, fake, output := newFakeRunner(t)
	withPlaylist(fake)

	t.Run("save", func(t *testing.T) {
		if err := runApp(t, runner, "archive", "save", "--id", "5"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(output.String(), "Archived Mix (2 of 2 tracks)") {
			t.Errorf("unexpected output %s", output.String())
		}
	})

	t.Run("list", func(t *testing.T) {
		output.Reset()
		if err := runApp(t, runner, "archive", "list", "--json"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		var playlists []models.ArchivedPlaylist
		if err := json.Unmarshal(output.Bytes(), &playlists); err != nil {
			t.Fatalf("expected JSON output, got %v", err)
		}
		if len(playlists) != 1 || playlists[0].Playlist.Name != "Mix" {
			t.Errorf("unexpected archive listing: %+v", playlists)
		}
	})

	t.Run("show", func(t *testing.T) {
		output.Reset()
		if err := runApp(t, runner, "archive", "show", "--id", "5"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(output.String(), "2. Beta - Two") {
			t.Errorf("expected archived tracks, got %s", output.String())
		}
	})

	t.Run("delete", func(t *testing.T) {
		if err := runApp(t, runner, "archive", "delete", "--id", "5"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if err := runApp(t, runner, "archive", "delete", "--id", "5"); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound on second delete, got %v", err)
		}
		if err := runApp(t, runner, "archive", "show", "--id", "5"); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound after delete, got %v", err)
		}
	})

	t.Run("playlist --save", func(t *testing.T) {
		if err := runApp(t, runner, "playlist", "--id", "5", "--save"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		archive, err := runner.Archive()
		if err != nil {
			t.Fatal(err)
		}
		if _, err := archive.Get(5); err != nil {
			t.Errorf("expected playlist to be archived, got %v", err)
		}
	})
}

func TestExportCommand(t *testing.T) {
	t.Run("exports named playlists", func(t *testing.T) {
		runner, fake, output := newFakeRunner(t)
		withPlaylist(fake)
		dir := t.TempDir()

		err := runApp(t, runner, "export", "--id", "5", "--id", "6", "--output", dir, "--format", "text", "--rate", "100")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		tu.AssertFileExists(t, filepath.Join(dir, "5_tracks.txt"))
		tu.AssertFileExists(t, filepath.Join(dir, "export_manifest.json"))
		if !strings.Contains(output.String(), "Exported: 1/2") {
			t.Errorf("expected one of two exported, got %s", output.String())
		}
	})

	t.Run("requires playlists", func(t *testing.T) {
		runner, _, _ := newFakeRunner(t)
		if err := runApp(t, runner, "export", "--output", t.TempDir()); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})
}

func TestSetupCommands(t *testing.T) {
	t.Run("config", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.toml")
		runner := NewRunner(RunnerOpts{ConfigPath: path, Output: &bytes.Buffer{}})

		if err := runApp(t, runner, "setup", "config"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if _, err := shared.LoadConfig(path); err != nil {
			t.Errorf("written config should load, got %v", err)
		}
		if err := runApp(t, runner, "setup", "config"); err == nil {
			t.Error("expected error when the config already exists")
		}
	})

	t.Run("database", func(t *testing.T) {
		config := shared.DefaultConfig()
		config.Database.Path = filepath.Join(t.TempDir(), "archive.db")
		runner := NewRunner(RunnerOpts{Config: config, Output: &bytes.Buffer{}})
		defer runner.Close()

		if err := runApp(t, runner, "setup", "database"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		tu.AssertFileExists(t, config.Database.Path)
	})
}
