package services

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/desertthunder/ncx/internal/models"
)

// PlaceholderArtwork is shown for tracks the catalog has no cover for.
const PlaceholderArtwork = `data:image/svg+xml,%3Csvg xmlns="http://www.w3.org/2000/svg" width="200" height="200"%3E%3Crect width="200" height="200" fill="%23333"/%3E%3Ctext x="50%25" y="50%25" text-anchor="middle" fill="white" font-size="20"%3E封面%3C/text%3E%3C/svg%3E`

var sizeParam = regexp.MustCompile(`\?param=\d+y\d+`)

// NormalizeTrack converts a raw song detail record.
//
// Records without an id or without an artist array are malformed and reported with ok false.
func NormalizeTrack(r gjson.Result, streamTemplate string) (models.Track, bool) {
	id := r.Get("id").Int()
	if id == 0 {
		return models.Track{}, false
	}

	artists := firstOf(r, "ar", "artists")
	if !artists.IsArray() || len(artists.Array()) == 0 {
		return models.Track{}, false
	}

	album := firstOf(r, "al", "album")
	t := models.Track{
		ID:          id,
		Title:       r.Get("name").String(),
		Artist:      artists.Array()[0].Get("name").String(),
		Album:       album.Get("name").String(),
		AlbumID:     album.Get("id").Int(),
		Artwork:     artworkURL(album, r),
		URL:         StreamURL(streamTemplate, id),
		Duration:    firstOf(r, "dt", "duration").Int(),
		CopyrightID: r.Get("copyrightId").Int(),
		Qualities: models.Qualities{
			Low:      models.Size{Size: r.Get("l.size").Int()},
			Standard: models.Size{Size: r.Get("m.size").Int()},
			High:     models.Size{Size: r.Get("h.size").Int()},
			Super:    models.Size{Size: r.Get("sq.size").Int()},
		},
	}
	return t, true
}

// NormalizeTracks converts every well-formed record in arr and reports how many were skipped.
func NormalizeTracks(arr gjson.Result, streamTemplate string) ([]models.Track, int) {
	records := arr.Array()
	tracks := make([]models.Track, 0, len(records))
	skipped := 0
	for _, rec := range records {
		t, ok := NormalizeTrack(rec, streamTemplate)
		if !ok {
			skipped++
			continue
		}
		tracks = append(tracks, t)
	}
	return tracks, skipped
}

// NormalizeAlbum converts a raw album search record.
func NormalizeAlbum(r gjson.Result) (models.Album, bool) {
	id := r.Get("id").Int()
	if id == 0 {
		return models.Album{}, false
	}

	a := models.Album{
		ID:      id,
		Title:   r.Get("name").String(),
		Artist:  r.Get("artist.name").String(),
		Artwork: secure(r.Get("picUrl").String()),
	}
	if ms := r.Get("publishTime").Int(); ms > 0 {
		a.Date = time.UnixMilli(ms).UTC().Format(time.DateOnly)
	}
	return a, true
}

// StreamURL substitutes id into the stream URL template.
func StreamURL(template string, id int64) string {
	return strings.ReplaceAll(template, "{id}", strconv.FormatInt(id, 10))
}

// artworkURL picks the album cover, then a cover on the record itself.
func artworkURL(album, root gjson.Result) string {
	src := firstString(album, "picUrl", "pic_str", "pic")
	if src == "" {
		src = firstString(root, "picUrl", "pic_str", "pic")
	}
	if src == "" {
		return PlaceholderArtwork
	}

	src = secure(src)
	if strings.Contains(src, "music.126.net") {
		if loc := sizeParam.FindStringIndex(src); loc != nil {
			src = src[:loc[0]] + "?param=300y300" + src[loc[1]:]
		}
	}
	return src
}

// firstOf returns the value at the first of paths that is set, non-zero and non-empty.
func firstOf(r gjson.Result, paths ...string) gjson.Result {
	for _, p := range paths {
		v := r.Get(p)
		switch v.Type {
		case gjson.Null, gjson.False:
			continue
		case gjson.String:
			if v.Str == "" {
				continue
			}
		case gjson.Number:
			if v.Num == 0 {
				continue
			}
		}
		return v
	}
	return gjson.Result{}
}

// firstString is firstOf restricted to string values.
func firstString(r gjson.Result, paths ...string) string {
	for _, p := range paths {
		if v := r.Get(p); v.Type == gjson.String && v.Str != "" {
			return v.Str
		}
	}
	return ""
}

func secure(u string) string {
	if rest, ok := strings.CutPrefix(u, "http:"); ok {
		return "https:" + rest
	}
	return u
}
