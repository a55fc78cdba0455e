// Package services defines the [Catalog] interface and implements it against the music catalog service.
//
// # Gateway
//
// [Gateway] is the single implementation. Each operation builds a cache key, checks the
// [cache.Store], calls upstream through [Client] and normalizes the response into the models
// package. Only complete results are cached: empty searches, fallback toplists, empty lyrics
// and partially resolved playlists are served but not stored.
//
// # Client
//
// [Client] owns transport concerns. Every call waits on a shared [rate.Limiter] and runs under
// a per-call timeout. Search and lyric calls are sent as weapi envelopes built by the weapi
// package; playlist and detail calls use the plain JSON API; the toplist page is fetched as
// HTML and handed to the extract package.
//
// # Resolver
//
// [Resolver] turns a playlist's id list into tracks. Ids are split into chunks of
// [DefaultChunkSize] and fetched with at most [DefaultConcurrency] calls in flight using an
// [errgroup.Group]. Output order follows input order. A failed chunk is logged and dropped.
//
// # References
//
// [ParseReference] accepts a bare id or a shared playlist link, including hash-routed links.
// Anything else is [shared.ErrInvalidReference].
//
// # Errors
//
// Caller input problems wrap [shared.ErrInvalidInput] or [shared.ErrInvalidReference] and are
// reported by [IsClientError]. Upstream failures the gateway cannot degrade wrap
// [shared.ErrUpstreamUnavailable] or [shared.ErrMalformedUpstream].
package services
