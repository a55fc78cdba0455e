// Package ui implements an interactive catalog browser using bubbletea's Elm architecture.
//
// The TUI walks the rankings the same way the HTTP API exposes them:
//  1. [ToplistView] : Browse every ranking from the toplist page
//  2. [TrackListView] : Resolved tracks of the selected ranking playlist
//  3. [LyricView] : Scrollable lyric of the selected track
//  4. [ConfirmView] : Confirm archiving the playlist locally
//  5. [ResultView] : Outcome of the archive save
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the [Msg] union type.
// Catalog calls run as [tea.Cmd] functions so the event loop never blocks on the network.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, s, y/n, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
