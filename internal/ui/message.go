package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/ncx/internal/models"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgToplistsFetched MsgKind = iota
	MsgPlaylistResolved
	MsgLyricFetched
	MsgArchiveSaved
)

type toplistsPayload struct {
	groups []models.Group
	err    error
}

type playlistPayload struct {
	detail *models.PlaylistDetail
	err    error
}

type lyricPayload struct {
	track models.Track
	lyric *models.Lyric
	err   error
}

// toplistsFetchedMsg is the constructor for [MsgToplistsFetched]
func toplistsFetchedMsg(groups []models.Group, err error) Msg {
	return Msg{kind: MsgToplistsFetched, data: toplistsPayload{groups, err}}
}

// playlistResolvedMsg is the constructor for [MsgPlaylistResolved]
func playlistResolvedMsg(detail *models.PlaylistDetail, err error) Msg {
	return Msg{kind: MsgPlaylistResolved, data: playlistPayload{detail, err}}
}

// lyricFetchedMsg is the constructor for [MsgLyricFetched]
func lyricFetchedMsg(track models.Track, lyric *models.Lyric, err error) Msg {
	return Msg{kind: MsgLyricFetched, data: lyricPayload{track, lyric, err}}
}

// archiveSavedMsg is the constructor for [MsgArchiveSaved]; a nil error means success.
func archiveSavedMsg(err error) Msg {
	return Msg{kind: MsgArchiveSaved, data: err}
}
