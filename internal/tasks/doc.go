// Package tasks runs bulk playlist operations over a [services.Catalog] with progress reporting.
//
// # Operations
//
//  1. [Engine.BulkExport] : Resolve many playlists and write them to disk
//     - Playlists are resolved sequentially under a rate limit
//     - A pool of writers renders each playlist with the formatter package
//     - An export_manifest.json records successes, failures and partial resolutions
//     - [ExportPlaylist] writes a single already resolved playlist the same way
//
//  2. [Engine.SnapshotToplists] : Archive every ranking playlist
//     - Fetches the toplist groups and resolves each distinct ranking playlist
//     - Saves each one through an [Archiver] (repositories.PlaylistRepository)
//
// # Progress Reporting
//
// All operations use non-blocking channels for progress updates.
// The [ProgressUpdate] struct contains phase, step counters and a message.
// Updates use select with default so a slow reader never stalls a run.
package tasks
