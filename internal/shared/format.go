package shared

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
)

// NormalizeDuration converts an upstream duration value to whole seconds.
// Values over 1000 are assumed to be milliseconds, which is how several
// platforms report track length.
func NormalizeDuration(value float64) int {
	if value <= 0 || math.IsNaN(value) {
		return 0
	}
	if value > 1000 {
		return int(math.Round(value / 1000))
	}
	return int(math.Round(value))
}

// ParseDurationString parses durations in "m:ss" / "h:mm:ss" colon notation
// or as a bare number (with the millisecond heuristic applied).
func ParseDurationString(value string) (int, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}

	if strings.Contains(value, ":") {
		total := 0
		for _, part := range strings.Split(value, ":") {
			n, err := strconv.Atoi(strings.TrimSpace(part))
			if err != nil {
				return 0, false
			}
			total = total*60 + n
		}
		return total, true
	}

	n, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, false
	}
	return NormalizeDuration(n), true
}

// FormatDuration renders whole seconds as "m:ss".
func FormatDuration(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}

// FormatLyricTime renders seconds as an LRC "mm:ss.xx" timestamp.
func FormatLyricTime(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) {
		return "00:00.00"
	}
	mins := int(seconds) / 60
	secs := int(seconds) % 60
	hundredths := int(math.Floor((seconds - math.Floor(seconds)) * 100))
	return fmt.Sprintf("%02d:%02d.%02d", mins, secs, hundredths)
}

// kuwo image hosts serve invalid SSL certificates, so their covers are routed
// through the image proxy instead of being fetched directly.
func needsImageProxy(u string) bool {
	if strings.Contains(u, "kwcdn.kuwo.cn") || strings.Contains(u, "star.kuwo.cn") {
		return true
	}
	return strings.Contains(u, "kwimg") && strings.Contains(u, "kuwo.cn")
}

// NormalizeCoverURL upgrades protocol-relative and plain-http cover URLs to
// https and rewrites known-bad image hosts through the image proxy.
// Returns "" for empty or blank input.
func NormalizeCoverURL(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}

	normalized := trimmed
	if strings.HasPrefix(normalized, "//") {
		normalized = "https:" + normalized
	}
	if strings.HasPrefix(normalized, "http://") {
		normalized = "https://" + normalized[len("http://"):]
	}

	if needsImageProxy(normalized) {
		return "/api/image-proxy?url=" + url.QueryEscape(normalized)
	}

	return normalized
}

// platformNames maps platform identifiers to display names.
var platformNames = map[string]string{
	"netease": "网易云",
	"kuwo":    "酷我",
	"qq":      "QQ音乐",
}

// PlatformName returns the display name for a platform identifier, falling
// back to the identifier itself.
func PlatformName(platform string) string {
	if name, ok := platformNames[platform]; ok {
		return name
	}
	return platform
}

// SplitLikedKey splits a "<platform>-<songId>" key into its parts. Song IDs
// may themselves contain '-', so only the first dash separates the platform.
func SplitLikedKey(key string) (platform, songID string, err error) {
	platform, songID, found := strings.Cut(key, "-")
	if !found || platform == "" || songID == "" {
		return "", "", fmt.Errorf("invalid liked key %q", key)
	}
	return platform, songID, nil
}

// ExpandHome replaces a leading "~" with the user's home directory.
func ExpandHome(path, home string) string {
	if path == "~" {
		return home
	}
	if strings.HasPrefix(path, "~/") {
		return home + path[1:]
	}
	return path
}
