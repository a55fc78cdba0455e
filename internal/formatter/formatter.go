// package formatter exports resolved playlists to files (CSV, Markdown, plain text, JSON) and parses LRC lyrics
package formatter

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/desertthunder/ncx/internal/models"
	"github.com/desertthunder/ncx/internal/shared"
)

// Format names an export format accepted by [Write].
type Format string

const (
	FormatJSON     Format = "json"
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
	FormatText     Format = "text"
)

// ParseFormat validates a format name, accepting "md" and "txt" as aliases.
func ParseFormat(s string) (Format, error) {
	switch s {
	case "", "json":
		return FormatJSON, nil
	case "csv":
		return FormatCSV, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "text", "txt":
		return FormatText, nil
	}
	return "", fmt.Errorf("%w: unknown format %q", shared.ErrInvalidFlag, s)
}

// ExportToCSV converts a playlist to CSV format with columns: ID, Title, Artist, Album, Duration, URL
func ExportToCSV(detail *models.PlaylistDetail) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Title", "Artist", "Album", "Duration", "URL"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, track := range detail.Tracks {
		record := []string{
			track.Key(),
			track.Title,
			track.Artist,
			track.Album,
			track.DurationString(),
			track.URL,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts a playlist to Markdown format with optional cover image
func ExportToMarkdown(detail *models.PlaylistDetail, imageFilename string) ([]byte, error) {
	var buf bytes.Buffer
	info := detail.Playlist

	fmt.Fprintf(&buf, "# %s\n\n", info.Name)

	if imageFilename != "" {
		fmt.Fprintf(&buf, "![Cover](%s)\n\n", imageFilename)
	}

	if info.Description != "" {
		fmt.Fprintf(&buf, "**Description**: %s\n\n", info.Description)
	}
	if info.Creator != "" {
		fmt.Fprintf(&buf, "**Creator**: %s\n", info.Creator)
	}

	fmt.Fprintf(&buf, "**Tracks**: %d", len(detail.Tracks))
	if info.TrackCount > len(detail.Tracks) {
		fmt.Fprintf(&buf, " of %d", info.TrackCount)
	}
	buf.WriteString("\n\n")

	buf.WriteString("## Tracks\n\n")
	for i, track := range detail.Tracks {
		albumPart := ""
		if track.Album != "" {
			albumPart = fmt.Sprintf(" (%s)", track.Album)
		}
		durationPart := ""
		if d := track.DurationString(); d != "" {
			durationPart = fmt.Sprintf(" [%s]", d)
		}
		fmt.Fprintf(&buf, "%d. %s - %s%s%s\n", i+1, track.Artist, track.Title, albumPart, durationPart)
	}

	return buf.Bytes(), nil
}

// ExportToText converts a playlist to plain text format
func ExportToText(detail *models.PlaylistDetail) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Playlist: %s\n", detail.Playlist.Name)
	if detail.Playlist.Description != "" {
		fmt.Fprintf(&buf, "Description: %s\n", detail.Playlist.Description)
	}
	fmt.Fprintf(&buf, "Tracks: %d\n\n", len(detail.Tracks))

	for i, track := range detail.Tracks {
		fmt.Fprintf(&buf, "%d. %s - %s\n", i+1, track.Artist, track.Title)
	}

	return buf.Bytes(), nil
}

// ExportToJSON renders the playlist the same way the HTTP API does.
func ExportToJSON(detail *models.PlaylistDetail) ([]byte, error) {
	return shared.MarshalJSON(detail, true)
}

// ToMetadataJSON generates a JSON representation of playlist metadata (without tracks)
func ToMetadataJSON(info models.PlaylistInfo) ([]byte, error) {
	return shared.MarshalJSON(info, true)
}

// DownloadImage downloads an image from the given URL and returns the raw bytes
func DownloadImage(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	if url == "" {
		return nil, fmt.Errorf("%w: empty URL provided", shared.ErrInvalidInput)
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build image request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: status %d", resp.StatusCode)
	}

	imageData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}

	return imageData, nil
}

// CSVExportResult contains the paths of files created by WriteCSVExport
type CSVExportResult struct {
	TracksFile   string
	MetadataFile string
}

// WriteCSVExport exports a playlist to CSV format with accompanying metadata JSON file.
//
// Defaults to playlist ID as the base filename & creates {base}_tracks.csv and {base}_metadata.json
func WriteCSVExport(detail *models.PlaylistDetail, baseFilepath string) (*CSVExportResult, error) {
	if baseFilepath == "" {
		baseFilepath = strconv.FormatInt(detail.Playlist.ID, 10)
	}

	csvData, err := ExportToCSV(detail)
	if err != nil {
		return nil, fmt.Errorf("failed to generate CSV: %w", err)
	}

	tracksFile := baseFilepath + "_tracks.csv"
	if err := os.WriteFile(tracksFile, csvData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write CSV file: %w", err)
	}

	metadataJSON, err := ToMetadataJSON(detail.Playlist)
	if err != nil {
		return nil, fmt.Errorf("failed to generate metadata JSON: %w", err)
	}

	metadataFile := baseFilepath + "_metadata.json"
	if err := os.WriteFile(metadataFile, metadataJSON, 0644); err != nil {
		return nil, fmt.Errorf("failed to write metadata file: %w", err)
	}

	return &CSVExportResult{
		TracksFile:   tracksFile,
		MetadataFile: metadataFile,
	}, nil
}

// MarkdownExportResult contains information about files created by WriteMarkdownExport
type MarkdownExportResult struct {
	Directory  string
	Files      []string
	CoverImage string
	// CoverError is set when the cover could not be fetched; the export itself still succeeds.
	CoverError error
}

// WriteMarkdownExport exports a playlist to Markdown format in a dedicated directory.
//
// Directory name defaults to the playlist ID. When fetch is non-nil the playlist cover is
// downloaded with it into {dir}/cover.jpg. Creates {dir}/README.md.
func WriteMarkdownExport(detail *models.PlaylistDetail, outputDir string, fetch func(url string) ([]byte, error)) (*MarkdownExportResult, error) {
	if outputDir == "" {
		outputDir = strconv.FormatInt(detail.Playlist.ID, 10)
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	result := &MarkdownExportResult{
		Directory: outputDir,
		Files:     []string{},
	}

	var coverImageFilename string
	if fetch != nil && detail.Playlist.CoverImg != "" {
		imageData, err := fetch(detail.Playlist.CoverImg)
		if err != nil {
			result.CoverError = err
		} else {
			coverImageFilename = "cover.jpg"
			coverImagePath := filepath.Join(outputDir, coverImageFilename)
			if err := os.WriteFile(coverImagePath, imageData, 0644); err != nil {
				result.CoverError = fmt.Errorf("failed to save cover image: %w", err)
				coverImageFilename = ""
			} else {
				result.CoverImage = coverImagePath
				result.Files = append(result.Files, coverImagePath)
			}
		}
	}

	mdData, err := ExportToMarkdown(detail, coverImageFilename)
	if err != nil {
		return nil, fmt.Errorf("failed to generate Markdown: %w", err)
	}

	mdFile := filepath.Join(outputDir, "README.md")
	if err := os.WriteFile(mdFile, mdData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write Markdown file: %w", err)
	}

	result.Files = append(result.Files, mdFile)

	return result, nil
}

// WriteTextExport exports a playlist to plain text format.
//
// Defaults to {playlist.ID}_tracks.txt as the filename.
func WriteTextExport(detail *models.PlaylistDetail, path string) (string, error) {
	if path == "" {
		path = fmt.Sprintf("%d_tracks.txt", detail.Playlist.ID)
	}

	textData, err := ExportToText(detail)
	if err != nil {
		return "", fmt.Errorf("failed to generate text: %w", err)
	}

	if err := os.WriteFile(path, textData, 0644); err != nil {
		return "", fmt.Errorf("failed to write text file: %w", err)
	}

	return path, nil
}

// WriteJSONExport writes the playlist as JSON, defaulting to {playlist.ID}.json.
func WriteJSONExport(detail *models.PlaylistDetail, path string) (string, error) {
	if path == "" {
		path = fmt.Sprintf("%d.json", detail.Playlist.ID)
	}

	data, err := ExportToJSON(detail)
	if err != nil {
		return "", fmt.Errorf("failed to generate JSON: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write JSON file: %w", err)
	}

	return path, nil
}
