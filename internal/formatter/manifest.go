package formatter

import (
	"fmt"
	"os"
	"time"

	"github.com/desertthunder/ncx/internal/shared"
)

// ExportManifest summarizes a bulk export run.
type ExportManifest struct {
	ExportedAt        time.Time       `json:"exported_at"`
	Format            string          `json:"format"`
	TotalPlaylists    int             `json:"total_playlists"`
	SuccessfulExports int             `json:"successful_exports"`
	FailedExports     int             `json:"failed_exports"`
	Playlists         []ManifestEntry `json:"playlists"`
}

// ManifestEntry records the outcome for one playlist.
type ManifestEntry struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Success  bool     `json:"success"`
	Tracks   int      `json:"tracks"`
	Expected int      `json:"expected"`
	Files    []string `json:"files,omitempty"`
	Error    string   `json:"error,omitempty"`
}

// WriteBulkExportManifest writes the manifest as indented JSON to path.
func WriteBulkExportManifest(m *ExportManifest, path string) error {
	data, err := shared.MarshalJSON(m, true)
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}
