// Package server exposes the catalog gateway as a small JSON API.
//
// # Routes
//
//   - GET /health : status and cache counters
//   - GET /api/search?query=&type=&page= : one page of search results
//   - GET /api/playlist?id= : playlist metadata and resolved tracks
//   - GET /api/import-playlist?url= : same as /api/playlist for a link or bare id
//   - GET /api/toplists : ranking groups
//   - GET /api/song?id= : one track, or null
//   - GET /api/song/url?id=&quality= : playable URL, or null
//   - GET /api/lyric?id= : raw and translated lyric
//
// # Middleware
//
// Every route runs behind [RequestID], chi's RealIP, [AccessLog], [Recover] and [CORS].
//
// # Errors
//
// Failures render as {"error": "..."}. Caller input errors map to 400, [shared.ErrNotFound]
// to 404, and upstream failures the gateway could not degrade to 502.
package server
