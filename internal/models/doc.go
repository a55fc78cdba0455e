// Package models defines the catalog entities the ncx gateway hands to its callers.
//
// The types fall into three groups:
//
// 1. Catalog records normalized from upstream JSON
//   - [Track] : Song record with artwork, stream URL and per-quality sizes
//   - [Album] : Album search result
//   - [PlaylistInfo] / [PlaylistDetail] : Playlist metadata and its resolved tracks
//
// 2. Page model extracted from the rankings HTML
//   - [Group] : Titled group of rankings
//   - [ListItem] : One ranking entry
//
// 3. Operation results
//   - [SearchResult], [Lyric], [MediaSource]
//
// Archive rows (see the repositories package) reuse [PlaylistDetail] and carry
// their own timestamps through [ArchivedPlaylist].
package models
