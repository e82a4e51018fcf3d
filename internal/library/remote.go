package library

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"linmusic/internal/models"
	"linmusic/internal/shared"
)

const defaultTimeout = 12 * time.Second

// RemoteStore implements [Store] against the catalog server's JSON/HTTP API.
// Every call is bounded by a timeout; read operations absorb transport
// faults into safe defaults plus a diagnostic log, while mutations surface a
// single normalized error for the UI to display once.
type RemoteStore struct {
	baseURL string
	client  *http.Client
	timeout time.Duration
	logger  *log.Logger
}

// NewRemoteStore creates a catalog client for the configured base URL
// (e.g. "http://localhost:8788/api").
func NewRemoteStore(cfg shared.LibraryConfig, logger *log.Logger) *RemoteStore {
	timeout := defaultTimeout
	if cfg.TimeoutMS > 0 {
		timeout = time.Duration(cfg.TimeoutMS) * time.Millisecond
	}
	return &RemoteStore{
		baseURL: cfg.BaseURL,
		client:  &http.Client{},
		timeout: timeout,
		logger:  shared.WithLogger(logger, "backend", "remote"),
	}
}

// envelope is the catalog's uniform response shape.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

// request performs one bounded HTTP call and decodes the envelope payload
// into out (which may be nil). Transport faults come back as
// [shared.ErrAPIUnavailable] or [shared.ErrTimeout]; application failures
// map onto the domain sentinels by status code.
func (r *RemoteStore) request(ctx context.Context, method, path string, body, out any) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, r.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := r.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w: %s %s", shared.ErrTimeout, method, path)
		}
		return fmt.Errorf("%w: start the catalog server or switch the library backend to local", shared.ErrAPIUnavailable)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read response: %v", shared.ErrAPIRequest, err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("%w: non-JSON response from catalog", shared.ErrAPIUnavailable)
	}

	if !env.Success {
		msg := stripSentinelPrefix(env.Error)
		if msg == "" {
			msg = resp.Status
		}
		switch resp.StatusCode {
		case http.StatusNotFound:
			return shared.NotFoundf("%s", msg)
		case http.StatusBadRequest:
			return shared.Validationf("%s", msg)
		case http.StatusMethodNotAllowed:
			return fmt.Errorf("%w: %s", shared.ErrMethodNotAllowed, msg)
		default:
			return fmt.Errorf("%w: %s", shared.ErrAPIRequest, msg)
		}
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("%w: decode response data: %v", shared.ErrAPIRequest, err)
		}
	}
	return nil
}

// stripSentinelPrefix drops the catalog's own sentinel prefix from an
// envelope error message so re-wrapping by status code does not repeat it.
func stripSentinelPrefix(msg string) string {
	for _, s := range []string{shared.ErrNotFound.Error(), shared.ErrValidation.Error(), shared.ErrMethodNotAllowed.Error()} {
		if msg == s {
			return ""
		}
		if rest, ok := strings.CutPrefix(msg, s+": "); ok {
			return rest
		}
	}
	return msg
}

// transportFault reports whether err is a fault to absorb on read paths.
func transportFault(err error) bool {
	return errors.Is(err, shared.ErrAPIUnavailable) || errors.Is(err, shared.ErrTimeout)
}

// wirePlaylist tolerates both storage (snake_case) and wire (camelCase)
// field names; the catalog historically emitted a mix depending on the
// endpoint. Normalization into [models.Playlist] happens exactly once, here.
type wirePlaylist struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`

	CoverURL      string `json:"coverUrl"`
	CoverURLSnake string `json:"cover_url"`

	SongCount      *int `json:"songCount"`
	SongCountSnake *int `json:"song_count"`

	CreatedAt      string `json:"createdAt"`
	CreatedAtSnake string `json:"created_at"`
	UpdatedAt      string `json:"updatedAt"`
	UpdatedAtSnake string `json:"updated_at"`
}

func (w wirePlaylist) normalize() models.Playlist {
	cover := w.CoverURL
	if cover == "" {
		cover = w.CoverURLSnake
	}

	count := 0
	if w.SongCount != nil {
		count = *w.SongCount
	} else if w.SongCountSnake != nil {
		count = *w.SongCountSnake
	}

	return models.Playlist{
		ID:          w.ID,
		Name:        w.Name,
		Description: w.Description,
		CoverURL:    shared.NormalizeCoverURL(cover),
		SongCount:   count,
		CreatedAt:   parseWireTime(w.CreatedAt, w.CreatedAtSnake),
		UpdatedAt:   parseWireTime(w.UpdatedAt, w.UpdatedAtSnake),
	}
}

// wireEntry is a playlist entry row as returned by GET /playlists/:id.
type wireEntry struct {
	EntryID   int64   `json:"playlistSongId"`
	SongID    string  `json:"id"`
	Platform  string  `json:"platform"`
	Name      string  `json:"name"`
	Artist    string  `json:"artist"`
	Album     string  `json:"album"`
	Duration  float64 `json:"duration"`
	CoverURL  string  `json:"coverUrl"`
	SortOrder int     `json:"sortOrder"`
	AddedAt   string  `json:"addedAt"`
}

func (w wireEntry) normalize(playlistID int64) models.PlaylistEntry {
	return models.PlaylistEntry{
		EntryID:    w.EntryID,
		PlaylistID: playlistID,
		Song: models.Song{
			ID:       w.SongID,
			Platform: models.Platform(w.Platform),
			Name:     w.Name,
			Artist:   w.Artist,
			Album:    w.Album,
			Duration: shared.NormalizeDuration(w.Duration),
			CoverURL: shared.NormalizeCoverURL(w.CoverURL),
		},
		SortOrder: w.SortOrder,
		AddedAt:   parseWireTime(w.AddedAt, ""),
	}
}

// wireLiked is a liked-song row as returned by GET /liked.
type wireLiked struct {
	SongID   string  `json:"id"`
	Platform string  `json:"platform"`
	Name     string  `json:"name"`
	Artist   string  `json:"artist"`
	Album    string  `json:"album"`
	Duration float64 `json:"duration"`
	CoverURL string  `json:"coverUrl"`
	LikedAt  string  `json:"likedAt"`
}

// parseWireTime accepts RFC 3339 and the SQL "YYYY-MM-DD HH:MM:SS" shape the
// catalog's CURRENT_TIMESTAMP produces.
func parseWireTime(values ...string) time.Time {
	for _, v := range values {
		if v == "" {
			continue
		}
		for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05"} {
			if t, err := time.Parse(layout, v); err == nil {
				return t
			}
		}
	}
	return time.Time{}
}

func (r *RemoteStore) ListPlaylists(ctx context.Context) ([]models.Playlist, error) {
	var rows []wirePlaylist
	if err := r.request(ctx, http.MethodGet, "/playlists", nil, &rows); err != nil {
		if transportFault(err) {
			r.logger.Error("failed to list playlists", "err", err)
			return []models.Playlist{}, nil
		}
		return nil, err
	}

	playlists := make([]models.Playlist, 0, len(rows))
	for _, row := range rows {
		playlists = append(playlists, row.normalize())
	}
	return playlists, nil
}

func (r *RemoteStore) GetPlaylist(ctx context.Context, id int64) (*PlaylistDetail, error) {
	var data struct {
		Playlist wirePlaylist `json:"playlist"`
		Songs    []wireEntry  `json:"songs"`
	}
	if err := r.request(ctx, http.MethodGet, fmt.Sprintf("/playlists/%d", id), nil, &data); err != nil {
		return nil, err
	}

	detail := &PlaylistDetail{Playlist: data.Playlist.normalize()}
	detail.Playlist.SongCount = len(data.Songs)
	for _, row := range data.Songs {
		detail.Entries = append(detail.Entries, row.normalize(id))
	}
	return detail, nil
}

func (r *RemoteStore) CreatePlaylist(ctx context.Context, name, description string) (*models.Playlist, error) {
	if name == "" {
		return nil, shared.Validationf("playlist name is required")
	}

	body := map[string]any{"name": name}
	if description != "" {
		body["description"] = description
	}

	var row wirePlaylist
	if err := r.request(ctx, http.MethodPost, "/playlists", body, &row); err != nil {
		return nil, err
	}

	playlist := row.normalize()
	return &playlist, nil
}

func (r *RemoteStore) UpdatePlaylist(ctx context.Context, id int64, update models.PlaylistUpdate) error {
	if update.Empty() {
		return shared.Validationf("no fields to update")
	}
	return r.request(ctx, http.MethodPut, fmt.Sprintf("/playlists/%d", id), update, nil)
}

func (r *RemoteStore) DeletePlaylist(ctx context.Context, id int64) error {
	return r.request(ctx, http.MethodDelete, fmt.Sprintf("/playlists/%d", id), nil, nil)
}

// addSongRequest is the POST /playlist-songs body: the song fields flattened
// alongside the playlist id.
type addSongRequest struct {
	PlaylistID int64  `json:"playlistId"`
	ID         string `json:"id"`
	Platform   string `json:"platform"`
	Name       string `json:"name"`
	Artist     string `json:"artist"`
	Album      string `json:"album,omitempty"`
	Duration   int    `json:"duration,omitempty"`
	CoverURL   string `json:"coverUrl,omitempty"`
}

func (r *RemoteStore) AddSongToPlaylist(ctx context.Context, playlistID int64, song models.Song) (*AddResult, error) {
	if err := song.Validate(); err != nil {
		return nil, shared.Validationf("%v", err)
	}

	body := addSongRequest{
		PlaylistID: playlistID,
		ID:         song.ID,
		Platform:   string(song.Platform),
		Name:       song.Name,
		Artist:     song.Artist,
		Album:      song.Album,
		Duration:   song.Duration,
		CoverURL:   shared.NormalizeCoverURL(song.CoverURL),
	}

	var result AddResult
	if err := r.request(ctx, http.MethodPost, "/playlist-songs", body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *RemoteStore) RemoveEntry(ctx context.Context, entryID int64) error {
	return r.request(ctx, http.MethodDelete, fmt.Sprintf("/playlist-songs/%d", entryID), nil, nil)
}

// RemoveSong resolves the entry id via the playlist detail, then deletes it.
// The catalog only exposes removal by entry id.
func (r *RemoteStore) RemoveSong(ctx context.Context, playlistID int64, platform models.Platform, songID string) error {
	detail, err := r.GetPlaylist(ctx, playlistID)
	if err != nil {
		return err
	}

	for _, entry := range detail.Entries {
		if entry.Song.ID == songID && entry.Song.Platform == platform {
			return r.RemoveEntry(ctx, entry.EntryID)
		}
	}
	return shared.NotFoundf("song %s-%s in playlist %d", platform, songID, playlistID)
}

func (r *RemoteStore) ListLiked(ctx context.Context) ([]models.LikedSong, error) {
	var rows []wireLiked
	if err := r.request(ctx, http.MethodGet, "/liked", nil, &rows); err != nil {
		if transportFault(err) {
			r.logger.Error("failed to list liked songs", "err", err)
			return []models.LikedSong{}, nil
		}
		return nil, err
	}

	liked := make([]models.LikedSong, 0, len(rows))
	for _, row := range rows {
		liked = append(liked, models.LikedSong{
			Song: models.Song{
				ID:       row.SongID,
				Platform: models.Platform(row.Platform),
				Name:     row.Name,
				Artist:   row.Artist,
				Album:    row.Album,
				Duration: shared.NormalizeDuration(row.Duration),
				CoverURL: shared.NormalizeCoverURL(row.CoverURL),
			},
			LikedAt: parseWireTime(row.LikedAt),
		})
	}
	return liked, nil
}

func (r *RemoteStore) LikeSong(ctx context.Context, song models.Song) error {
	if err := song.Validate(); err != nil {
		return shared.Validationf("%v", err)
	}

	body := map[string]any{
		"id":       song.ID,
		"platform": song.Platform,
		"name":     song.Name,
		"artist":   song.Artist,
	}
	if song.Album != "" {
		body["album"] = song.Album
	}
	if song.Duration > 0 {
		body["duration"] = song.Duration
	}
	if cover := shared.NormalizeCoverURL(song.CoverURL); cover != "" {
		body["coverUrl"] = cover
	}

	return r.request(ctx, http.MethodPost, "/liked", body, nil)
}

func (r *RemoteStore) UnlikeSong(ctx context.Context, platform models.Platform, songID string) error {
	return r.request(ctx, http.MethodDelete, fmt.Sprintf("/liked/%s-%s", platform, songID), nil, nil)
}

func (r *RemoteStore) CheckLiked(ctx context.Context, refs []models.SongRef) (map[string]bool, error) {
	if len(refs) == 0 {
		return map[string]bool{}, nil
	}

	body := map[string]any{"songs": refs}
	result := map[string]bool{}
	if err := r.request(ctx, http.MethodPost, "/check-liked", body, &result); err != nil {
		if transportFault(err) {
			r.logger.Error("failed to check liked songs", "err", err)
			return map[string]bool{}, nil
		}
		return nil, err
	}
	return result, nil
}
