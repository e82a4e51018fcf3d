// Package lyrics parses LRC lyric documents and resolves the active line
// for a playback position.
//
// An LRC document is plain text with CRLF or LF separated lines. Metadata
// lines like "[ti:Title]" carry no lyric content and are discarded. Timed
// lines carry one or more "[mm:ss]", "[mm:ss.xx]" or "[mm:ss:xx]" tags
// followed by the lyric text; a line with several tags repeats its text at
// each timestamp (karaoke sources emit these).
package lyrics

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"linmusic/internal/models"
)

var (
	timeTagRe  = regexp.MustCompile(`\[(\d{2}):(\d{2})([.:]\d{2,3})?\]`)
	metaLineRe = regexp.MustCompile(`^\[[a-zA-Z]+:`)
)

// Parse converts LRC text into lyric lines sorted ascending by time.
// Lines with no timestamp or no text after tag stripping are dropped.
// The sort is stable: lines sharing a timestamp keep their source order.
func Parse(text string) []models.LyricLine {
	if text == "" {
		return nil
	}

	var lines []models.LyricLine

	for _, raw := range strings.Split(text, "\n") {
		raw = strings.TrimSuffix(raw, "\r")

		if metaLineRe.MatchString(raw) {
			continue
		}

		matches := timeTagRe.FindAllStringSubmatch(raw, -1)
		if len(matches) == 0 {
			continue
		}

		content := strings.TrimSpace(timeTagRe.ReplaceAllString(raw, ""))
		if content == "" {
			continue
		}

		for _, m := range matches {
			minutes, _ := strconv.Atoi(m[1])
			seconds, _ := strconv.Atoi(m[2])

			millis := 0
			if m[3] != "" {
				frac := m[3][1:] // drop the '.' or ':' separator
				if len(frac) < 3 {
					frac += strings.Repeat("0", 3-len(frac))
				}
				millis, _ = strconv.Atoi(frac[:3])
			}

			lines = append(lines, models.LyricLine{
				Time: float64(minutes)*60 + float64(seconds) + float64(millis)/1000,
				Text: content,
			})
		}
	}

	sort.SliceStable(lines, func(i, j int) bool {
		return lines[i].Time < lines[j].Time
	})

	return lines
}

// ResolveIndex returns the index of the last line whose time is <= current,
// or -1 when no line qualifies. Lines must be sorted ascending by time, which
// [Parse] guarantees, so a binary search can stand in for the reverse scan:
// it locates the first line past current and steps back one.
func ResolveIndex(lines []models.LyricLine, current float64) int {
	if len(lines) == 0 {
		return -1
	}

	idx := sort.Search(len(lines), func(i int) bool {
		return lines[i].Time > current
	})

	return idx - 1
}
