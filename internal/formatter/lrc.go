package formatter

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var lrcLine = regexp.MustCompile(`\[(\d{2}):(\d{2})\.(\d{2,3})\](.*)`)

// LyricLine is one timed line of an LRC document.
type LyricLine struct {
	At   time.Duration
	Text string
}

// ParseLRC extracts timed lines from LRC text in document order.
//
// Only the first timestamp of a line is read. Metadata tags, untimed lines and
// lines with no text after trimming are skipped. Two-digit fractions are hundredths.
func ParseLRC(lrc string) []LyricLine {
	var lines []LyricLine
	for raw := range strings.SplitSeq(lrc, "\n") {
		m := lrcLine.FindStringSubmatch(raw)
		if m == nil {
			continue
		}

		text := strings.TrimSpace(m[4])
		if text == "" {
			continue
		}

		minutes, _ := strconv.Atoi(m[1])
		seconds, _ := strconv.Atoi(m[2])
		millis, _ := strconv.Atoi(m[3] + strings.Repeat("0", 3-len(m[3])))

		at := time.Duration(minutes)*time.Minute +
			time.Duration(seconds)*time.Second +
			time.Duration(millis)*time.Millisecond
		lines = append(lines, LyricLine{At: at, Text: text})
	}
	return lines
}

// LineAt returns the index of the line active at position, or -1 before the first line.
func LineAt(lines []LyricLine, position time.Duration) int {
	active := -1
	for i, l := range lines {
		if l.At > position {
			break
		}
		active = i
	}
	return active
}

// Timestamp renders a line position as "[m:ss]".
func Timestamp(at time.Duration) string {
	total := int(at / time.Second)
	return fmt.Sprintf("[%d:%02d]", total/60, total%60)
}

// FormatLyrics renders parsed lines as "[m:ss] text", one per line.
func FormatLyrics(lines []LyricLine) string {
	var b strings.Builder
	for _, l := range lines {
		fmt.Fprintf(&b, "%s %s\n", Timestamp(l.At), l.Text)
	}
	return b.String()
}

