package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/ncx/internal/models"
	"github.com/desertthunder/ncx/internal/shared"
)

const playlistColumns = `id, name, artwork, description, creator, play_count, track_count, created_at, updated_at`

// PlaylistRepository stores playlist snapshots and their ordered tracks.
type PlaylistRepository struct {
	db     *sql.DB
	tracks *TrackRepository
}

// NewPlaylistRepository creates a new PlaylistRepository with the given database connection
func NewPlaylistRepository(db *sql.DB) *PlaylistRepository {
	return &PlaylistRepository{db: db, tracks: NewTrackRepository(db)}
}

// Tracks returns the track repository sharing this repository's connection.
func (r *PlaylistRepository) Tracks() *TrackRepository {
	return r.tracks
}

// Save archives a resolved playlist.
//
// Saving an already archived playlist replaces its membership and keeps the original created_at.
func (r *PlaylistRepository) Save(detail *models.PlaylistDetail) error {
	if detail == nil || detail.Playlist.ID <= 0 {
		return fmt.Errorf("%w: playlist id must be positive", shared.ErrInvalidInput)
	}

	now := time.Now().UTC()
	info := detail.Playlist

	return withTx(r.db, func(tx *sql.Tx) error {
		query := `
			INSERT INTO playlists (id, name, artwork, description, creator, play_count, track_count, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				name = excluded.name,
				artwork = excluded.artwork,
				description = excluded.description,
				creator = excluded.creator,
				play_count = excluded.play_count,
				track_count = excluded.track_count,
				updated_at = excluded.updated_at
		`

		_, err := tx.Exec(query,
			info.ID,
			info.Name,
			info.CoverImg,
			info.Description,
			info.Creator,
			info.PlayCount,
			info.TrackCount,
			now,
			now,
		)
		if err != nil {
			return fmt.Errorf("failed to upsert playlist: %w", err)
		}

		if _, err := tx.Exec(`DELETE FROM playlist_tracks WHERE playlist_id = ?`, info.ID); err != nil {
			return fmt.Errorf("failed to clear playlist tracks: %w", err)
		}

		stmt, err := tx.Prepare(`INSERT INTO playlist_tracks (playlist_id, track_id, position) VALUES (?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("failed to prepare playlist track insert: %w", err)
		}
		defer stmt.Close()

		for i, track := range detail.Tracks {
			if err := r.tracks.upsert(tx, track); err != nil {
				return err
			}
			if _, err := stmt.Exec(info.ID, track.ID, i); err != nil {
				return fmt.Errorf("failed to insert playlist track %d: %w", track.ID, err)
			}
		}

		return r.tracks.pruneOrphans(tx)
	})
}

// Get retrieves an archived playlist with its tracks in saved order.
func (r *PlaylistRepository) Get(id int64) (*models.ArchivedPlaylist, error) {
	query := `SELECT ` + playlistColumns + ` FROM playlists WHERE id = ?`

	archived, err := scanPlaylist(r.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: playlist %d", shared.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	tracks, err := r.tracks.ListByPlaylist(id)
	if err != nil {
		return nil, err
	}
	archived.Tracks = tracks

	return archived, nil
}

// List returns archived playlist metadata, most recently saved first.
//
// Tracks are not loaded; use [PlaylistRepository.Get] for a full snapshot.
func (r *PlaylistRepository) List() ([]*models.ArchivedPlaylist, error) {
	query := `SELECT ` + playlistColumns + ` FROM playlists ORDER BY updated_at DESC, id ASC`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query playlists: %w", err)
	}
	defer rows.Close()

	var playlists []*models.ArchivedPlaylist
	for rows.Next() {
		archived, err := scanPlaylist(rows)
		if err != nil {
			return nil, err
		}
		playlists = append(playlists, archived)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return playlists, nil
}

// Delete removes an archived playlist and any tracks only it referenced.
func (r *PlaylistRepository) Delete(id int64) error {
	return withTx(r.db, func(tx *sql.Tx) error {
		result, err := tx.Exec(`DELETE FROM playlists WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("failed to delete playlist: %w", err)
		}

		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get affected rows: %w", err)
		}
		if rows == 0 {
			return fmt.Errorf("%w: playlist %d", shared.ErrNotFound, id)
		}

		// playlist_tracks rows go with the playlist via ON DELETE CASCADE.
		return r.tracks.pruneOrphans(tx)
	})
}

// scanPlaylist scans a row selected with playlistColumns into a [models.ArchivedPlaylist]
func scanPlaylist(row scanner) (*models.ArchivedPlaylist, error) {
	var (
		info      models.PlaylistInfo
		createdAt time.Time
		updatedAt time.Time
	)

	err := row.Scan(
		&info.ID,
		&info.Name,
		&info.CoverImg,
		&info.Description,
		&info.Creator,
		&info.PlayCount,
		&info.TrackCount,
		&createdAt,
		&updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan playlist: %w", err)
	}

	return &models.ArchivedPlaylist{
		PlaylistDetail: models.PlaylistDetail{Playlist: info, Tracks: []models.Track{}},
		CreatedAt:      createdAt,
		UpdatedAt:      updatedAt,
	}, nil
}
