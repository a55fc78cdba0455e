package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/ncx/internal/models"
	"github.com/desertthunder/ncx/internal/shared"
)

const trackColumns = `t.id, t.title, t.artist, t.album, t.album_id, t.artwork, t.duration_ms, t.copyright_id, t.stream_url`

// TrackRepository persists normalized tracks.
//
// Tracks are keyed by catalog id so a track shared by several archived playlists is stored once.
type TrackRepository struct {
	db *sql.DB
}

// NewTrackRepository creates a new TrackRepository with the given database connection
func NewTrackRepository(db *sql.DB) *TrackRepository {
	return &TrackRepository{db: db}
}

// Upsert inserts a track or refreshes the stored copy with the given values.
func (r *TrackRepository) Upsert(track models.Track) error {
	return r.upsert(r.db, track)
}

func (r *TrackRepository) upsert(q querier, track models.Track) error {
	if track.ID <= 0 {
		return fmt.Errorf("%w: track id must be positive", shared.ErrInvalidInput)
	}

	query := `
		INSERT INTO tracks (id, title, artist, album, album_id, artwork, duration_ms, copyright_id, stream_url, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			artist = excluded.artist,
			album = excluded.album,
			album_id = excluded.album_id,
			artwork = excluded.artwork,
			duration_ms = excluded.duration_ms,
			copyright_id = excluded.copyright_id,
			stream_url = excluded.stream_url,
			updated_at = excluded.updated_at
	`

	_, err := q.Exec(query,
		track.ID,
		track.Title,
		track.Artist,
		track.Album,
		track.AlbumID,
		track.Artwork,
		track.Duration,
		track.CopyrightID,
		track.URL,
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert track %d: %w", track.ID, err)
	}
	return nil
}

// Get retrieves a track by catalog id
func (r *TrackRepository) Get(id int64) (*models.Track, error) {
	query := `SELECT ` + trackColumns + ` FROM tracks t WHERE t.id = ?`

	track, err := scanTrack(r.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: track %d", shared.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &track, nil
}

// ListByPlaylist returns the tracks of an archived playlist in position order.
func (r *TrackRepository) ListByPlaylist(playlistID int64) ([]models.Track, error) {
	return r.listByPlaylist(r.db, playlistID)
}

func (r *TrackRepository) listByPlaylist(q querier, playlistID int64) ([]models.Track, error) {
	query := `
		SELECT ` + trackColumns + `
		FROM playlist_tracks pt
		JOIN tracks t ON t.id = pt.track_id
		WHERE pt.playlist_id = ?
		ORDER BY pt.position ASC
	`

	rows, err := q.Query(query, playlistID)
	if err != nil {
		return nil, fmt.Errorf("failed to query playlist tracks: %w", err)
	}
	defer rows.Close()

	tracks := []models.Track{}
	for rows.Next() {
		track, err := scanTrack(rows)
		if err != nil {
			return nil, err
		}
		tracks = append(tracks, track)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return tracks, nil
}

// Count reports how many tracks are stored.
func (r *TrackRepository) Count() (int, error) {
	var n int
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM tracks`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count tracks: %w", err)
	}
	return n, nil
}

// pruneOrphans removes tracks no playlist references anymore.
func (r *TrackRepository) pruneOrphans(q querier) error {
	query := `DELETE FROM tracks WHERE id NOT IN (SELECT DISTINCT track_id FROM playlist_tracks)`
	if _, err := q.Exec(query); err != nil {
		return fmt.Errorf("failed to prune tracks: %w", err)
	}
	return nil
}

// scanTrack scans a row selected with trackColumns into a [models.Track]
func scanTrack(row scanner) (models.Track, error) {
	var t models.Track
	err := row.Scan(&t.ID, &t.Title, &t.Artist, &t.Album, &t.AlbumID, &t.Artwork, &t.Duration, &t.CopyrightID, &t.URL)
	if errors.Is(err, sql.ErrNoRows) {
		return t, err
	}
	if err != nil {
		return t, fmt.Errorf("failed to scan track: %w", err)
	}
	return t, nil
}
