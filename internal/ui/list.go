package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"

	"github.com/desertthunder/ncx/internal/models"
)

var (
	_ list.Item = rankingItem{}
	_ list.Item = trackItem{}
)

// rankingItem wraps a [models.ListItem] and its group title to implement [list.Item].
type rankingItem struct {
	group string
	item  models.ListItem
}

func (i rankingItem) FilterValue() string { return i.item.Title }
func (i rankingItem) Title() string       { return i.item.Title }
func (i rankingItem) Description() string {
	if i.item.Description != "" {
		return fmt.Sprintf("%s • %s", i.group, i.item.Description)
	}
	return i.group
}

// trackItem wraps [models.Track] to implement [list.Item].
type trackItem struct {
	track models.Track
}

func (i trackItem) FilterValue() string { return i.track.Title }
func (i trackItem) Title() string       { return i.track.Title }
func (i trackItem) Description() string {
	desc := i.track.Artist
	if i.track.Album != "" {
		desc = fmt.Sprintf("%s • %s", desc, i.track.Album)
	}
	if d := i.track.DurationString(); d != "" {
		desc = fmt.Sprintf("%s • %s", desc, d)
	}
	return desc
}

func rankingItems(groups []models.Group) []list.Item {
	var items []list.Item
	for _, g := range groups {
		for _, it := range g.Data {
			items = append(items, rankingItem{group: g.Title, item: it})
		}
	}
	return items
}

func trackItems(tracks []models.Track) []list.Item {
	items := make([]list.Item, len(tracks))
	for i, t := range tracks {
		items[i] = trackItem{track: t}
	}
	return items
}
