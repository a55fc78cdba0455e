package services

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/desertthunder/ncx/internal/shared"
)

// ParseReference extracts a playlist id from user input.
//
// Accepted shapes:
//   - a bare number: "1234567"
//   - a link whose path (or "#/" fragment route) ends in /playlist with a numeric id query:
//     "https://y.music.163.com/m/playlist?id=42", "https://music.163.com/#/playlist?id=42"
//   - a link with a /playlist/<id> path segment: "https://music.163.com/playlist/42/1001/"
//
// Anything else is [shared.ErrInvalidReference].
func ParseReference(text string) (string, error) {
	text = strings.TrimSpace(text)
	if isDigits(text) {
		return text, nil
	}

	u, err := url.Parse(text)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("%w: %q", shared.ErrInvalidReference, text)
	}

	if id, ok := playlistID(u.Path, u.Query()); ok {
		return id, nil
	}

	// Hash routes carry the real path and query in the fragment: "#/playlist?id=42".
	if u.Fragment != "" {
		if fu, err := url.Parse(u.Fragment); err == nil {
			if id, ok := playlistID(fu.Path, fu.Query()); ok {
				return id, nil
			}
		}
	}

	return "", fmt.Errorf("%w: %q", shared.ErrInvalidReference, text)
}

func playlistID(path string, query url.Values) (string, bool) {
	path = strings.TrimSuffix(path, "/")
	if strings.HasSuffix(path, "/playlist") {
		if id := query.Get("id"); isDigits(id) {
			return id, true
		}
	}

	segments := strings.Split(path, "/")
	for i, seg := range segments[:max(0, len(segments)-1)] {
		if seg == "playlist" && isDigits(segments[i+1]) {
			return segments[i+1], true
		}
	}
	return "", false
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
