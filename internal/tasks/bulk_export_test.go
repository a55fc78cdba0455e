package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/desertthunder/ncx/internal/formatter"
	"github.com/desertthunder/ncx/internal/shared"
)

func TestBulkExport_SuccessfulExport(t *testing.T) {
	tests := []struct {
		name           string
		format         formatter.Format
		playlistCount  int
		validateResult func(t *testing.T, result *BulkExportResult, tempDir string)
	}{
		{
			name:          "single playlist json export",
			format:        formatter.FormatJSON,
			playlistCount: 1,
			validateResult: func(t *testing.T, result *BulkExportResult, tempDir string) {
				if len(result.Results[0].Files) != 1 {
					t.Errorf("expected 1 file, got %d", len(result.Results[0].Files))
				}
				jsonPath := filepath.Join(tempDir, "1.json")
				if _, err := os.Stat(jsonPath); os.IsNotExist(err) {
					t.Errorf("JSON file not created at %s", jsonPath)
				}
			},
		},
		{
			name:          "multiple playlists csv export",
			format:        formatter.FormatCSV,
			playlistCount: 3,
			validateResult: func(t *testing.T, result *BulkExportResult, tempDir string) {
				for _, res := range result.Results {
					if len(res.Files) != 2 {
						t.Errorf("CSV export should create 2 files, got %d", len(res.Files))
					}
				}
			},
		},
		{
			name:          "text export",
			format:        formatter.FormatText,
			playlistCount: 2,
			validateResult: func(t *testing.T, result *BulkExportResult, tempDir string) {
				for _, res := range result.Results {
					if len(res.Files) != 1 {
						t.Errorf("text export should create 1 file, got %d", len(res.Files))
					}
				}
			},
		},
		{
			name:          "markdown export",
			format:        formatter.FormatMarkdown,
			playlistCount: 1,
			validateResult: func(t *testing.T, result *BulkExportResult, tempDir string) {
				readme := filepath.Join(tempDir, "1", "README.md")
				if _, err := os.Stat(readme); os.IsNotExist(err) {
					t.Errorf("README not created at %s", readme)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tempDir := t.TempDir()

			catalog := newMockCatalog()
			ids := make([]string, 0, tt.playlistCount)
			for i := 1; i <= tt.playlistCount; i++ {
				d := playlistDetail(int64(i), "Playlist", 2, 2)
				catalog.playlists[strconv.FormatInt(d.Playlist.ID, 10)] = d
				ids = append(ids, strconv.FormatInt(d.Playlist.ID, 10))
			}

			engine := NewEngine(catalog, nil, nil)
			progressCh := make(chan ProgressUpdate, 100)
			drain(progressCh)

			opts := BulkExportOpts{
				Format:     tt.format,
				OutputDir:  tempDir,
				NumWorkers: 2,
				RateLimit:  100,
			}

			result, err := engine.BulkExport(context.Background(), progressCh, ids, opts)
			close(progressCh)

			if err != nil {
				t.Fatalf("BulkExport() error = %v", err)
			}
			if result.TotalPlaylists != tt.playlistCount {
				t.Errorf("TotalPlaylists = %d, want %d", result.TotalPlaylists, tt.playlistCount)
			}
			if result.SuccessfulExports != tt.playlistCount {
				t.Errorf("SuccessfulExports = %d, want %d", result.SuccessfulExports, tt.playlistCount)
			}
			if result.FailedExports != 0 {
				t.Errorf("FailedExports = %d, want 0", result.FailedExports)
			}
			if len(result.Results) != tt.playlistCount {
				t.Errorf("expected %d results, got %d", tt.playlistCount, len(result.Results))
			}

			manifestData, err := os.ReadFile(filepath.Join(tempDir, "export_manifest.json"))
			if err != nil {
				t.Fatalf("failed to read manifest: %v", err)
			}

			var manifest formatter.ExportManifest
			if err := json.Unmarshal(manifestData, &manifest); err != nil {
				t.Fatalf("failed to parse manifest: %v", err)
			}
			if manifest.Format != string(tt.format) {
				t.Errorf("manifest format = %s, want %s", manifest.Format, tt.format)
			}
			if manifest.TotalPlaylists != tt.playlistCount {
				t.Errorf("manifest total = %d, want %d", manifest.TotalPlaylists, tt.playlistCount)
			}

			if tt.validateResult != nil {
				tt.validateResult(t, result, tempDir)
			}
		})
	}
}

func TestBulkExport_PartialFailures(t *testing.T) {
	tempDir := t.TempDir()

	catalog := newMockCatalog(playlistDetail(1, "Playlist 1", 1, 1), playlistDetail(3, "Playlist 3", 1, 4))
	catalog.resolveErrs["2"] = shared.ErrUpstreamUnavailable

	engine := NewEngine(catalog, nil, nil)
	opts := BulkExportOpts{Format: formatter.FormatJSON, OutputDir: tempDir, NumWorkers: 2, RateLimit: 100}

	result, err := engine.BulkExport(context.Background(), nil, []string{"1", "2", "3"}, opts)
	if err != nil {
		t.Fatalf("BulkExport() error = %v", err)
	}

	if result.SuccessfulExports != 2 {
		t.Errorf("SuccessfulExports = %d, want 2", result.SuccessfulExports)
	}
	if result.FailedExports != 1 {
		t.Errorf("FailedExports = %d, want 1", result.FailedExports)
	}

	// results are sorted by id
	failed := result.Results[1]
	if failed.PlaylistID != "2" || failed.Success {
		t.Fatalf("expected playlist 2 to fail, got %+v", failed)
	}
	if !errors.Is(failed.Error, shared.ErrUpstreamUnavailable) {
		t.Errorf("expected ErrUpstreamUnavailable, got %v", failed.Error)
	}

	partial := result.Results[2]
	if partial.Tracks != 1 || partial.Expected != 4 {
		t.Errorf("expected 1 of 4 tracks recorded, got %d of %d", partial.Tracks, partial.Expected)
	}

	manifestData, err := os.ReadFile(result.ManifestPath)
	if err != nil {
		t.Fatalf("failed to read manifest: %v", err)
	}
	var manifest formatter.ExportManifest
	if err := json.Unmarshal(manifestData, &manifest); err != nil {
		t.Fatalf("failed to parse manifest: %v", err)
	}
	if manifest.Playlists[1].Error == "" {
		t.Error("manifest should record the failure message")
	}
}

func TestBulkExport_ContextCancellation(t *testing.T) {
	catalog := newMockCatalog(playlistDetail(1, "Playlist 1", 1, 1), playlistDetail(2, "Playlist 2", 1, 1))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	engine := NewEngine(catalog, nil, nil)
	opts := BulkExportOpts{OutputDir: t.TempDir(), NumWorkers: 1, RateLimit: 100}

	result, err := engine.BulkExport(ctx, nil, []string{"1", "2"}, opts)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if result == nil {
		t.Fatal("expected a partial result")
	}
	if result.SuccessfulExports != 0 {
		t.Errorf("no playlist should be exported, got %d", result.SuccessfulExports)
	}
}

func TestBulkExport_Defaults(t *testing.T) {
	tempDir := t.TempDir()
	catalog := newMockCatalog(playlistDetail(1, "Playlist 1", 1, 1))

	engine := NewEngine(catalog, nil, nil)
	result, err := engine.BulkExport(context.Background(), nil, []string{"1"}, BulkExportOpts{OutputDir: tempDir, NumWorkers: 50})
	if err != nil {
		t.Fatalf("BulkExport() error = %v", err)
	}
	if result.Results[0].Files[0] != filepath.Join(tempDir, "1.json") {
		t.Errorf("default format should be json, got %v", result.Results[0].Files)
	}
}

func TestExportPlaylist(t *testing.T) {
	t.Run("WritesRequestedFormat", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "nested")
		res := ExportPlaylist(playlistDetail(7, "Seven", 2, 2), BulkExportOpts{Format: formatter.FormatText, OutputDir: dir})
		if !res.Success {
			t.Fatalf("expected success, got %v", res.Error)
		}
		if res.PlaylistID != "7" {
			t.Errorf("PlaylistID = %q, want 7", res.PlaylistID)
		}
		if _, err := os.Stat(filepath.Join(dir, "7_tracks.txt")); err != nil {
			t.Errorf("text file not written: %v", err)
		}
	})

	t.Run("UnwritableDirectory", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "file")
		if err := os.WriteFile(file, []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
		res := ExportPlaylist(playlistDetail(7, "Seven", 1, 1), BulkExportOpts{OutputDir: filepath.Join(file, "sub")})
		if res.Success || res.Error == nil {
			t.Error("expected failure when the output directory cannot be created")
		}
	})
}
