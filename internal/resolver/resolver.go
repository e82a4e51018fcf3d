// Package resolver is the client for the upstream music proxy: song search,
// stream/cover/lyric URL construction and lyric retrieval across the
// supported platforms.
package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"linmusic/internal/models"
	"linmusic/internal/shared"
)

const (
	defaultTimeout     = 12 * time.Second
	defaultSearchLimit = 20
)

// fallbackPlatforms is the source-switch priority when a song is
// unavailable on its home platform.
var fallbackPlatforms = []models.Platform{
	models.PlatformKuwo,
	models.PlatformNetease,
	models.PlatformQQ,
}

// Client talks to the music proxy. Search-style reads degrade to empty
// results on transport faults so browsing keeps working while the network
// is flaky; the failure is logged instead of surfaced.
type Client struct {
	baseURL string
	client  *http.Client
	timeout time.Duration
	limiter *rate.Limiter
	logger  *log.Logger
}

// NewClient builds a proxy client from configuration. A zero rate limit
// disables client-side throttling.
func NewClient(cfg shared.ResolverConfig, logger *log.Logger) *Client {
	timeout := defaultTimeout
	if cfg.TimeoutMS > 0 {
		timeout = time.Duration(cfg.TimeoutMS) * time.Millisecond
	}

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}

	return &Client{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		client:  &http.Client{},
		timeout: timeout,
		limiter: limiter,
		logger:  shared.WithLogger(logger, "component", "resolver"),
	}
}

// SongInfo is the full playback record for one song: resolved stream URL,
// cover and raw LRC text.
type SongInfo struct {
	Name   string `json:"name"`
	Artist string `json:"artist"`
	Album  string `json:"album"`
	URL    string `json:"url"`
	Pic    string `json:"pic"`
	Lyric  string `json:"lrc"`
}

// TopList is a platform chart reference.
type TopList struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	UpdateFrequency string `json:"updateFrequency,omitempty"`
}

// ExternalPlaylist is a platform-hosted playlist fetched by id.
type ExternalPlaylist struct {
	Name   string
	Author string
	Songs  []models.Song
}

// apiResponse is the proxy's uniform JSON shape.
type apiResponse struct {
	Code int             `json:"code"`
	Data json.RawMessage `json:"data"`
}

// get performs one rate-limited, timeout-bounded GET and decodes the data
// payload when the proxy reports code 200.
func (c *Client) get(ctx context.Context, query url.Values, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limit wait: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/?"+query.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIUnavailable, err)
	}
	defer resp.Body.Close()

	var body apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("%w: non-JSON response from proxy", shared.ErrAPIUnavailable)
	}
	if body.Code != http.StatusOK {
		return fmt.Errorf("%w: proxy returned code %d", shared.ErrUpstream, body.Code)
	}

	if out != nil && len(body.Data) > 0 {
		if err := json.Unmarshal(body.Data, out); err != nil {
			return fmt.Errorf("%w: decode proxy data: %v", shared.ErrUpstream, err)
		}
	}
	return nil
}

// searchRow is one proxy search hit. The platform field is absent on
// single-platform searches.
type searchRow struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Artist   string `json:"artist"`
	Album    string `json:"album"`
	Platform string `json:"platform"`
	Pic      string `json:"pic"`
}

func (r searchRow) normalize(fallback models.Platform) models.Song {
	platform := models.Platform(r.Platform)
	if !platform.Valid() {
		platform = fallback
	}
	return models.Song{
		ID:       r.ID,
		Platform: platform,
		Name:     r.Name,
		Artist:   r.Artist,
		Album:    r.Album,
		CoverURL: shared.NormalizeCoverURL(r.Pic),
	}
}

// Search queries one platform. Transport faults and upstream errors come
// back as an empty result set.
func (c *Client) Search(ctx context.Context, keyword string, platform models.Platform, limit int) []models.Song {
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	query := url.Values{}
	query.Set("source", string(platform))
	query.Set("type", "search")
	query.Set("keyword", keyword)
	query.Set("limit", fmt.Sprintf("%d", limit))

	var data struct {
		Results []searchRow `json:"results"`
	}
	if err := c.get(ctx, query, &data); err != nil {
		c.logger.Error("search failed", "platform", platform, "keyword", keyword, "err", err)
		return []models.Song{}
	}

	songs := make([]models.Song, 0, len(data.Results))
	for _, row := range data.Results {
		songs = append(songs, row.normalize(platform))
	}
	return songs
}

// AggregateSearch queries all platforms in one proxy call; results carry
// their own platform field.
func (c *Client) AggregateSearch(ctx context.Context, keyword string) []models.Song {
	query := url.Values{}
	query.Set("type", "aggregateSearch")
	query.Set("keyword", keyword)

	var data struct {
		Results []searchRow `json:"results"`
	}
	if err := c.get(ctx, query, &data); err != nil {
		c.logger.Error("aggregate search failed", "keyword", keyword, "err", err)
		return []models.Song{}
	}

	songs := make([]models.Song, 0, len(data.Results))
	for _, row := range data.Results {
		songs = append(songs, row.normalize(""))
	}
	return songs
}

// GetSongInfo fetches the playback record for a song. Unlike the search
// paths this surfaces the error: the player must distinguish "unavailable"
// from "empty".
func (c *Client) GetSongInfo(ctx context.Context, platform models.Platform, id string) (*SongInfo, error) {
	query := url.Values{}
	query.Set("source", string(platform))
	query.Set("id", id)
	query.Set("type", "info")

	var info SongInfo
	if err := c.get(ctx, query, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// PlayURL builds the stream URL for (platform, id) at the given quality.
// The proxy resolves it to the actual media URL at request time.
func (c *Client) PlayURL(platform models.Platform, id string, quality models.AudioQuality) string {
	if quality == "" {
		quality = models.Quality320k
	}
	query := url.Values{}
	query.Set("source", string(platform))
	query.Set("id", id)
	query.Set("type", "url")
	query.Set("br", string(quality))
	return c.baseURL + "/?" + query.Encode()
}

// CoverURL builds the cover art URL for (platform, id).
func (c *Client) CoverURL(platform models.Platform, id string) string {
	query := url.Values{}
	query.Set("source", string(platform))
	query.Set("id", id)
	query.Set("type", "pic")
	return c.baseURL + "/?" + query.Encode()
}

// LyricsURL builds the raw LRC document URL for (platform, id).
func (c *Client) LyricsURL(platform models.Platform, id string) string {
	query := url.Values{}
	query.Set("source", string(platform))
	query.Set("id", id)
	query.Set("type", "lrc")
	return c.baseURL + "/?" + query.Encode()
}

// GetLyrics fetches the raw LRC text for a song. Faults degrade to an
// empty document; the player shows "no lyrics" rather than an error.
func (c *Client) GetLyrics(ctx context.Context, platform models.Platform, id string) string {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return ""
		}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.LyricsURL(platform, id), nil)
	if err != nil {
		return ""
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Error("lyrics fetch failed", "platform", platform, "id", id, "err", err)
		return ""
	}
	defer resp.Body.Close()

	text, err := io.ReadAll(resp.Body)
	if err != nil {
		c.logger.Error("lyrics read failed", "platform", platform, "id", id, "err", err)
		return ""
	}
	return string(text)
}

// GetTopLists fetches the chart index for a platform.
func (c *Client) GetTopLists(ctx context.Context, platform models.Platform) []TopList {
	query := url.Values{}
	query.Set("source", string(platform))
	query.Set("type", "toplists")

	var data struct {
		List []TopList `json:"list"`
	}
	if err := c.get(ctx, query, &data); err != nil {
		c.logger.Error("toplists fetch failed", "platform", platform, "err", err)
		return []TopList{}
	}
	return data.List
}

// GetTopListSongs fetches the songs of one chart.
func (c *Client) GetTopListSongs(ctx context.Context, platform models.Platform, id string) []models.Song {
	query := url.Values{}
	query.Set("source", string(platform))
	query.Set("id", id)
	query.Set("type", "toplist")

	var data struct {
		List []searchRow `json:"list"`
	}
	if err := c.get(ctx, query, &data); err != nil {
		c.logger.Error("toplist fetch failed", "platform", platform, "id", id, "err", err)
		return []models.Song{}
	}

	songs := make([]models.Song, 0, len(data.List))
	for _, row := range data.List {
		songs = append(songs, row.normalize(platform))
	}
	return songs
}

// GetExternalPlaylist fetches a platform-hosted playlist by id.
func (c *Client) GetExternalPlaylist(ctx context.Context, platform models.Platform, id string) (*ExternalPlaylist, error) {
	query := url.Values{}
	query.Set("source", string(platform))
	query.Set("id", id)
	query.Set("type", "playlist")

	var data struct {
		Info struct {
			Name   string `json:"name"`
			Author string `json:"author"`
		} `json:"info"`
		List []searchRow `json:"list"`
	}
	if err := c.get(ctx, query, &data); err != nil {
		return nil, err
	}

	playlist := &ExternalPlaylist{Name: data.Info.Name, Author: data.Info.Author}
	for _, row := range data.List {
		playlist.Songs = append(playlist.Songs, row.normalize(platform))
	}
	return playlist, nil
}

// FindAlternative searches the other platforms for the same song when its
// home platform cannot serve it. A hit requires both the name and the
// artist to match as case-insensitive substrings in either direction.
func (c *Client) FindAlternative(ctx context.Context, name, artist string, exclude models.Platform) *models.Song {
	keyword := strings.TrimSpace(name + " " + artist)

	for _, platform := range fallbackPlatforms {
		if platform == exclude {
			continue
		}
		for _, candidate := range c.Search(ctx, keyword, platform, 5) {
			if looseMatch(candidate.Name, name) && looseMatch(candidate.Artist, artist) {
				c.logger.Info("found alternative source", "platform", platform, "name", candidate.Name, "artist", candidate.Artist)
				song := candidate
				return &song
			}
		}
	}
	return nil
}

func looseMatch(a, b string) bool {
	a, b = strings.ToLower(a), strings.ToLower(b)
	return strings.Contains(a, b) || strings.Contains(b, a)
}
