// Package repositories implements the SQLite playlist archive.
//
// An archived playlist is a snapshot of [models.PlaylistDetail] taken at save time:
// metadata lives in playlists, normalized tracks in tracks, and the ordered
// membership in playlist_tracks keyed by (playlist_id, position).
//
// Key Implementations:
//   - [PlaylistRepository] : Save/Get/List/Delete of archived playlists
//   - [TrackRepository] : Track upserts shared between playlists and ordered lookups
//
// Saving the same playlist again replaces its membership and refreshes updated_at while
// keeping created_at. Deleting a playlist removes tracks no other playlist references.
package repositories
