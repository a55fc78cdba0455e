// package models defines the data model for the catalog gateway
package models

import (
	"fmt"
	"strconv"
	"time"
)

// Quality names a stream bitrate tier.
type Quality string

const (
	QualityLow      Quality = "low"
	QualityStandard Quality = "standard"
	QualityHigh     Quality = "high"
	QualitySuper    Quality = "super"
)

// Bitrate maps a quality onto the media service's bitrate label. Unknown qualities get 320k.
func (q Quality) Bitrate() string {
	if q == QualityLow {
		return "128k"
	}
	return "320k"
}

// Size is the byte size of one quality variant. Zero means the catalog did not report it.
type Size struct {
	Size int64 `json:"size,omitempty"`
}

// Qualities holds the size of each quality variant of a track.
type Qualities struct {
	Low      Size `json:"low"`
	Standard Size `json:"standard"`
	High     Size `json:"high"`
	Super    Size `json:"super"`
}

// Track is a normalized song record.
type Track struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Artist      string    `json:"artist"`
	Album       string    `json:"album,omitempty"`
	AlbumID     int64     `json:"albumId,omitempty"`
	Artwork     string    `json:"artwork"`
	URL         string    `json:"url"`
	Duration    int64     `json:"duration,omitempty"` // milliseconds
	Qualities   Qualities `json:"qualities"`
	CopyrightID int64     `json:"copyrightId,omitempty"`
}

// Key returns the track id as a string.
func (t Track) Key() string { return strconv.FormatInt(t.ID, 10) }

// DurationString formats the duration as m:ss.
func (t Track) DurationString() string {
	if t.Duration <= 0 {
		return ""
	}
	d := time.Duration(t.Duration) * time.Millisecond
	return fmt.Sprintf("%d:%02d", int(d.Minutes()), int(d.Seconds())%60)
}

// Album is an album search result.
type Album struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Artist      string `json:"artist"`
	Artwork     string `json:"artwork"`
	Description string `json:"description"`
	Date        string `json:"date"` // YYYY-MM-DD
}

// PlaylistInfo is playlist metadata as reported by the catalog.
type PlaylistInfo struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	CoverImg    string `json:"coverImg,omitempty"`
	Creator     string `json:"creator,omitempty"`
	PlayCount   int64  `json:"playCount,omitempty"`
	TrackCount  int    `json:"trackCount"`
}

// PlaylistDetail pairs playlist metadata with its resolved tracks.
//
// Tracks may be shorter than TrackCount when some detail chunks failed or
// some records were malformed.
type PlaylistDetail struct {
	Playlist PlaylistInfo `json:"playlist"`
	Tracks   []Track      `json:"data"`
}

// ArchivedPlaylist is a playlist snapshot stored locally.
type ArchivedPlaylist struct {
	PlaylistDetail
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Group is a titled group of rankings from the toplist page.
type Group struct {
	Title string     `json:"title"`
	Data  []ListItem `json:"data"`
}

// ListItem is one ranking entry. ID is the playlist id backing the ranking.
type ListItem struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	CoverImg    string `json:"coverImg"`
}

// SearchResult is one page of search results.
type SearchResult struct {
	IsEnd  bool    `json:"isEnd"`
	Data   []Track `json:"data"`
	Albums []Album `json:"albums,omitempty"`
}

// EmptySearch is the terminal result for unsupported kinds and degraded upstream calls.
func EmptySearch() *SearchResult {
	return &SearchResult{IsEnd: true, Data: []Track{}}
}

// Lyric holds the raw LRC text and its translation.
type Lyric struct {
	RawLrc        string `json:"rawLrc"`
	TranslatedLrc string `json:"translatedLrc"`
}

// MediaSource is a playable URL for a track.
type MediaSource struct {
	URL     string  `json:"url"`
	Quality Quality `json:"quality,omitempty"`
}
