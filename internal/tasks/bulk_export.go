package tasks

import (
	"cmp"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/desertthunder/ncx/internal/formatter"
	"github.com/desertthunder/ncx/internal/models"
)

// BulkExportOpts contains configuration for bulk playlist exports.
type BulkExportOpts struct {
	Format     formatter.Format                // Export format: json, csv, markdown, text
	OutputDir  string                          // Base output directory (default: ncx_export_{epoch})
	NumWorkers int                             // Concurrent file writers (default: 5, max 10)
	RateLimit  float64                         // Playlist fetches per second (default: 5)
	FetchCover func(url string) ([]byte, error) // Optional cover downloader for markdown exports
}

// PlaylistExportJob is a resolved playlist waiting to be written.
type PlaylistExportJob struct {
	PlaylistID string
	Detail     *models.PlaylistDetail
}

// PlaylistExportResult is the outcome of exporting one playlist.
type PlaylistExportResult struct {
	PlaylistID   string
	PlaylistName string
	Tracks       int
	Expected     int
	Success      bool
	Files        []string
	Error        error
}

// BulkExportResult summarizes a bulk export.
type BulkExportResult struct {
	TotalPlaylists    int
	SuccessfulExports int
	FailedExports     int
	OutputDirectory   string
	ManifestPath      string
	Results           []PlaylistExportResult
}

// BulkExport exports multiple playlists concurrently with rate limiting and progress tracking.
//
// Playlists are resolved one at a time under the rate limit and handed to a pool of writers.
// Failed playlists are recorded in the result and the manifest; they do not fail the run.
func (e *Engine) BulkExport(ctx context.Context, prog chan<- ProgressUpdate, ids []string, opts BulkExportOpts) (*BulkExportResult, error) {
	if opts.Format == "" {
		opts.Format = formatter.FormatJSON
	}
	if opts.OutputDir == "" {
		opts.OutputDir = fmt.Sprintf("ncx_export_%d", time.Now().Unix())
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 5
	}
	if opts.NumWorkers > 10 {
		opts.NumWorkers = 10
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 5.0
	}

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	result := &BulkExportResult{
		TotalPlaylists:  len(ids),
		OutputDirectory: opts.OutputDir,
		Results:         make([]PlaylistExportResult, 0, len(ids)),
	}

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)

	jobs := make(chan PlaylistExportJob, len(ids))
	results := make(chan PlaylistExportResult, len(ids))

	var wg sync.WaitGroup
	for range opts.NumWorkers {
		wg.Add(1)
		go e.exportWorker(ctx, &wg, jobs, results, opts)
	}

	go func() {
		defer close(jobs)
		for i, id := range ids {
			if err := limiter.Wait(ctx); err != nil {
				return
			}

			e.sendProgress(prog, resolvingUpdate(i+1, len(ids), id))
			detail, err := e.catalog.ResolvePlaylist(ctx, id)
			if err != nil {
				results <- PlaylistExportResult{
					PlaylistID:   id,
					PlaylistName: fmt.Sprintf("Unknown (%s)", id),
					Error:        fmt.Errorf("failed to fetch playlist: %w", err),
				}
				continue
			}

			jobs <- PlaylistExportJob{PlaylistID: id, Detail: detail}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	completed := 0
	for res := range results {
		completed++
		result.Results = append(result.Results, res)

		if res.Success {
			result.SuccessfulExports++
			e.sendProgress(prog, exportCompletedUpdate(completed, len(ids), res.PlaylistName, len(res.Files)))
		} else {
			result.FailedExports++
			e.sendProgress(prog, exportFailedUpdate(completed, len(ids), res.PlaylistName, res.Error))
		}
	}

	slices.SortFunc(result.Results, func(a, b PlaylistExportResult) int {
		return cmp.Compare(a.PlaylistID, b.PlaylistID)
	})

	manifestPath := filepath.Join(opts.OutputDir, "export_manifest.json")
	if err := formatter.WriteBulkExportManifest(result.manifest(opts.Format), manifestPath); err != nil {
		return result, fmt.Errorf("export completed but failed to write manifest: %w", err)
	}
	result.ManifestPath = manifestPath

	if err := ctx.Err(); err != nil {
		return result, err
	}
	return result, nil
}

func (r *BulkExportResult) manifest(format formatter.Format) *formatter.ExportManifest {
	m := &formatter.ExportManifest{
		ExportedAt:        time.Now().UTC(),
		Format:            string(format),
		TotalPlaylists:    r.TotalPlaylists,
		SuccessfulExports: r.SuccessfulExports,
		FailedExports:     r.FailedExports,
		Playlists:         make([]formatter.ManifestEntry, 0, len(r.Results)),
	}
	for _, res := range r.Results {
		entry := formatter.ManifestEntry{
			ID:       res.PlaylistID,
			Name:     res.PlaylistName,
			Success:  res.Success,
			Tracks:   res.Tracks,
			Expected: res.Expected,
			Files:    res.Files,
		}
		if res.Error != nil {
			entry.Error = res.Error.Error()
		}
		m.Playlists = append(m.Playlists, entry)
	}
	return m
}

// exportWorker is a worker goroutine that writes playlists from the jobs channel.
func (e *Engine) exportWorker(
	ctx context.Context,
	wg *sync.WaitGroup,
	jobs <-chan PlaylistExportJob,
	results chan<- PlaylistExportResult,
	opts BulkExportOpts,
) {
	defer wg.Done()

	for job := range jobs {
		if ctx.Err() != nil {
			results <- PlaylistExportResult{
				PlaylistID:   job.PlaylistID,
				PlaylistName: job.Detail.Playlist.Name,
				Error:        ctx.Err(),
			}
			continue
		}
		results <- exportSinglePlaylist(job, opts)
	}
}

// ExportPlaylist writes one resolved playlist to opts.OutputDir in opts.Format.
func ExportPlaylist(detail *models.PlaylistDetail, opts BulkExportOpts) PlaylistExportResult {
	id := strconv.FormatInt(detail.Playlist.ID, 10)
	if opts.OutputDir == "" {
		opts.OutputDir = "."
	}
	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return PlaylistExportResult{
			PlaylistID:   id,
			PlaylistName: detail.Playlist.Name,
			Error:        fmt.Errorf("failed to create output directory: %w", err),
		}
	}
	return exportSinglePlaylist(PlaylistExportJob{PlaylistID: id, Detail: detail}, opts)
}

// exportSinglePlaylist writes a single playlist in the requested format.
func exportSinglePlaylist(j PlaylistExportJob, opts BulkExportOpts) PlaylistExportResult {
	result := PlaylistExportResult{
		PlaylistID:   j.PlaylistID,
		PlaylistName: j.Detail.Playlist.Name,
		Tracks:       len(j.Detail.Tracks),
		Expected:     j.Detail.Playlist.TrackCount,
		Files:        []string{},
	}

	base := strconv.FormatInt(j.Detail.Playlist.ID, 10)

	switch opts.Format {
	case formatter.FormatCSV:
		csvRes, err := formatter.WriteCSVExport(j.Detail, filepath.Join(opts.OutputDir, base))
		if err != nil {
			result.Error = fmt.Errorf("CSV export failed: %w", err)
			return result
		}
		result.Files = []string{csvRes.TracksFile, csvRes.MetadataFile}

	case formatter.FormatMarkdown:
		mdRes, err := formatter.WriteMarkdownExport(j.Detail, filepath.Join(opts.OutputDir, base), opts.FetchCover)
		if err != nil {
			result.Error = fmt.Errorf("markdown export failed: %w", err)
			return result
		}
		result.Files = mdRes.Files

	case formatter.FormatText:
		path, err := formatter.WriteTextExport(j.Detail, filepath.Join(opts.OutputDir, base+"_tracks.txt"))
		if err != nil {
			result.Error = fmt.Errorf("text export failed: %w", err)
			return result
		}
		result.Files = []string{path}

	default:
		path, err := formatter.WriteJSONExport(j.Detail, filepath.Join(opts.OutputDir, base+".json"))
		if err != nil {
			result.Error = fmt.Errorf("JSON export failed: %w", err)
			return result
		}
		result.Files = []string{path}
	}

	result.Success = true
	return result
}
