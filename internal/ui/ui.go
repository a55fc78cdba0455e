package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/desertthunder/ncx/internal/formatter"
	"github.com/desertthunder/ncx/internal/models"
	"github.com/desertthunder/ncx/internal/services"
	"github.com/desertthunder/ncx/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	ToplistView ViewState = iota
	TrackListView
	LyricView
	ConfirmView
	ResultView
)

// Model represents the TUI application state.
type Model struct {
	ctx         context.Context
	view        ViewState
	catalog     services.Catalog
	archive     tasks.Archiver
	width       int
	height      int
	loading     string
	toplistList list.Model
	trackList   list.Model
	lyric       viewport.Model
	lyricTrack  models.Track
	selected    *models.PlaylistDetail
	saveErr     error
	err         error
	help        help.Model
	keys        keyMap
}

// NewModel creates a new TUI model. archive may be nil, which disables saving.
func NewModel(ctx context.Context, catalog services.Catalog, archive tasks.Archiver) *Model {
	return &Model{
		ctx:         ctx,
		view:        ToplistView,
		catalog:     catalog,
		archive:     archive,
		loading:     "Loading toplists...",
		toplistList: list.New(nil, list.NewDefaultDelegate(), 0, 0),
		trackList:   list.New(nil, list.NewDefaultDelegate(), 0, 0),
		lyric:       viewport.New(0, 0),
		help:        help.New(),
		keys:        newKeyMap(),
	}
}

// State reports the current view.
func (m *Model) State() ViewState { return m.view }

// Init fetches the toplists.
func (m *Model) Init() tea.Cmd {
	return m.fetchToplists()
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.toplistList.SetSize(msg.Width-4, msg.Height-8)
		m.trackList.SetSize(msg.Width-4, msg.Height-8)
		m.lyric.Width = msg.Width - 4
		m.lyric.Height = msg.Height - 8
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case ToplistView:
			return m.handleToplistKeys(msg)
		case TrackListView:
			return m.handleTrackListKeys(msg)
		case LyricView:
			return m.handleLyricKeys(msg)
		case ConfirmView:
			return m.handleConfirmKeys(msg)
		case ResultView:
			return m.handleResultKeys(msg)
		}

	case Msg:
		return m.handleMsg(msg)
	}

	return m.updateLists(msg)
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	m.loading = ""

	switch msg.kind {
	case MsgToplistsFetched:
		p := msg.data.(toplistsPayload)
		if p.err != nil {
			m.err = p.err
			return m, nil
		}
		m.toplistList.SetItems(rankingItems(p.groups))
		m.toplistList.Title = "Toplists"
		m.view = ToplistView

	case MsgPlaylistResolved:
		p := msg.data.(playlistPayload)
		if p.err != nil {
			m.err = p.err
			m.view = ToplistView
			return m, nil
		}
		m.err = nil
		m.selected = p.detail
		m.trackList.SetItems(trackItems(p.detail.Tracks))
		m.trackList.Title = trackListTitle(p.detail)
		m.trackList.ResetSelected()
		m.view = TrackListView

	case MsgLyricFetched:
		p := msg.data.(lyricPayload)
		m.lyricTrack = p.track
		if p.err != nil {
			m.lyric.SetContent(styles.err.Render(fmt.Sprintf("Lyric unavailable: %v", p.err)))
		} else {
			m.lyric.SetContent(renderLyric(p.lyric))
		}
		m.lyric.GotoTop()
		m.view = LyricView

	case MsgArchiveSaved:
		m.saveErr, _ = msg.data.(error)
		m.view = ResultView
	}

	return m, nil
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	if m.err != nil {
		return styles.err.Render(fmt.Sprintf("Error: %v", m.err)) + "\n\n" + m.toplistView()
	}
	if m.loading != "" {
		return styles.help.Render(m.loading)
	}

	switch m.view {
	case ToplistView:
		return m.toplistView()
	case TrackListView:
		return m.renderTrackList()
	case LyricView:
		return m.renderLyric()
	case ConfirmView:
		return m.renderConfirm()
	case ResultView:
		return m.renderResult()
	default:
		return ""
	}
}

func (m *Model) handleToplistKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.enter):
		if item, ok := m.toplistList.SelectedItem().(rankingItem); ok {
			m.err = nil
			m.loading = fmt.Sprintf("Resolving %s...", item.item.Title)
			return m, m.resolvePlaylist(item.item.ID)
		}
	}

	var cmd tea.Cmd
	m.toplistList, cmd = m.toplistList.Update(msg)
	return m, cmd
}

func (m *Model) handleTrackListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back):
		m.view = ToplistView
		return m, nil
	case key.Matches(msg, m.keys.save):
		if m.archive != nil && m.selected != nil {
			m.view = ConfirmView
		}
		return m, nil
	case key.Matches(msg, m.keys.enter):
		if item, ok := m.trackList.SelectedItem().(trackItem); ok {
			m.loading = fmt.Sprintf("Loading lyric for %s...", item.track.Title)
			return m, m.fetchLyric(item.track)
		}
	}

	var cmd tea.Cmd
	m.trackList, cmd = m.trackList.Update(msg)
	return m, cmd
}

func (m *Model) handleLyricKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back):
		m.view = TrackListView
		return m, nil
	}

	var cmd tea.Cmd
	m.lyric, cmd = m.lyric.Update(msg)
	return m, cmd
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.yes):
		m.loading = "Archiving..."
		return m, m.savePlaylist()
	case key.Matches(msg, m.keys.no), key.Matches(msg, m.keys.back), key.Matches(msg, m.keys.quit):
		m.view = TrackListView
	}
	return m, nil
}

func (m *Model) handleResultKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back), key.Matches(msg, m.keys.enter):
		m.saveErr = nil
		m.view = TrackListView
	}
	return m, nil
}

func (m *Model) updateLists(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case ToplistView:
		m.toplistList, cmd = m.toplistList.Update(msg)
	case TrackListView:
		m.trackList, cmd = m.trackList.Update(msg)
	case LyricView:
		m.lyric, cmd = m.lyric.Update(msg)
	}
	return m, cmd
}

func (m *Model) fetchToplists() tea.Cmd {
	return func() tea.Msg {
		groups, err := m.catalog.Toplists(m.ctx)
		return toplistsFetchedMsg(groups, err)
	}
}

func (m *Model) resolvePlaylist(id string) tea.Cmd {
	return func() tea.Msg {
		detail, err := m.catalog.ResolvePlaylist(m.ctx, id)
		return playlistResolvedMsg(detail, err)
	}
}

func (m *Model) fetchLyric(track models.Track) tea.Cmd {
	return func() tea.Msg {
		lyric, err := m.catalog.Lyric(m.ctx, track.Key())
		return lyricFetchedMsg(track, lyric, err)
	}
}

func (m *Model) savePlaylist() tea.Cmd {
	detail := m.selected
	return func() tea.Msg {
		return archiveSavedMsg(m.archive.Save(detail))
	}
}

func trackListTitle(detail *models.PlaylistDetail) string {
	title := fmt.Sprintf("%s (%d tracks)", detail.Playlist.Name, len(detail.Tracks))
	if missing := detail.Playlist.TrackCount - len(detail.Tracks); missing > 0 {
		title = fmt.Sprintf("%s, %d unresolved", title, missing)
	}
	return title
}

// renderLyric formats timed lines, followed by the translation when there is one.
func renderLyric(lyric *models.Lyric) string {
	if lyric == nil || lyric.RawLrc == "" {
		return styles.help.Render("No lyric available")
	}

	var b strings.Builder
	lines := formatter.ParseLRC(lyric.RawLrc)
	if len(lines) == 0 {
		b.WriteString(lyric.RawLrc)
	} else {
		writeLyricLines(&b, lines, styles.lyricLine)
	}

	if translated := formatter.ParseLRC(lyric.TranslatedLrc); len(translated) > 0 {
		b.WriteString("\n")
		b.WriteString(styles.warn.Render("Translation"))
		b.WriteString("\n")
		writeLyricLines(&b, translated, styles.translation)
	}
	return b.String()
}

func writeLyricLines(b *strings.Builder, lines []formatter.LyricLine, text lipgloss.Style) {
	for _, l := range lines {
		b.WriteString(styles.stamp.Render(formatter.Timestamp(l.At)))
		b.WriteString(" ")
		b.WriteString(text.Render(l.Text))
		b.WriteString("\n")
	}
}

func (m *Model) toplistView() string {
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.enter, m.keys.quit})
	return fmt.Sprintf("%s\n\n%s", m.toplistList.View(), helpView)
}

func (m *Model) renderTrackList() string {
	lyricKey := key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "lyric"))
	helpKeys := []key.Binding{lyricKey, m.keys.back, m.keys.quit}
	if m.archive != nil {
		helpKeys = append(helpKeys, m.keys.save)
	}
	return fmt.Sprintf("%s\n\n%s", m.trackList.View(), m.help.ShortHelpView(helpKeys))
}

func (m *Model) renderLyric() string {
	title := styles.title.Render(fmt.Sprintf("%s - %s", m.lyricTrack.Artist, m.lyricTrack.Title))
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.up, m.keys.down, m.keys.back, m.keys.quit})
	return fmt.Sprintf("%s\n%s\n\n%s", title, m.lyric.View(), helpView)
}

func (m *Model) renderConfirm() string {
	title := styles.title.Render(fmt.Sprintf("Archive '%s'?", m.selected.Playlist.Name))
	info := fmt.Sprintf("\nPlaylist: %s\nTracks: %d of %d\n", m.selected.Playlist.Name, len(m.selected.Tracks), m.selected.Playlist.TrackCount)
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.yes, m.keys.no})
	return fmt.Sprintf("%s\n%s\n%s", title, info, helpView)
}

func (m *Model) renderResult() string {
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.back, m.keys.quit})
	if m.saveErr != nil {
		return fmt.Sprintf("%s\n\n%s", styles.err.Render(fmt.Sprintf("Archive failed: %v", m.saveErr)), helpView)
	}

	status := styles.ok.Render(fmt.Sprintf("✓ Archived %s", m.selected.Playlist.Name))
	if missing := m.selected.Playlist.TrackCount - len(m.selected.Tracks); missing > 0 {
		status += "\n" + styles.warn.Render(fmt.Sprintf("%d tracks could not be resolved", missing))
	}
	return fmt.Sprintf("%s\n\n%s", status, helpView)
}
