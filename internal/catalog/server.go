package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"linmusic/internal/models"
	"linmusic/internal/shared"
)

// envelope is the uniform response shape: success with data, or failure
// with a message.
type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// entryRow is a playlist entry flattened for the wire: song fields at the
// top level alongside the entry id.
type entryRow struct {
	EntryID   int64     `json:"playlistSongId"`
	SongID    string    `json:"id"`
	Platform  string    `json:"platform"`
	Name      string    `json:"name"`
	Artist    string    `json:"artist"`
	Album     string    `json:"album,omitempty"`
	Duration  int       `json:"duration,omitempty"`
	CoverURL  string    `json:"coverUrl,omitempty"`
	SortOrder int       `json:"sortOrder"`
	AddedAt   time.Time `json:"addedAt"`
}

func toEntryRow(e models.PlaylistEntry) entryRow {
	return entryRow{
		EntryID:   e.EntryID,
		SongID:    e.Song.ID,
		Platform:  string(e.Song.Platform),
		Name:      e.Song.Name,
		Artist:    e.Song.Artist,
		Album:     e.Song.Album,
		Duration:  e.Song.Duration,
		CoverURL:  e.Song.CoverURL,
		SortOrder: e.SortOrder,
		AddedAt:   e.AddedAt,
	}
}

// likedRow is a liked song flattened for the wire.
type likedRow struct {
	SongID   string    `json:"id"`
	Platform string    `json:"platform"`
	Name     string    `json:"name"`
	Artist   string    `json:"artist"`
	Album    string    `json:"album,omitempty"`
	Duration int       `json:"duration,omitempty"`
	CoverURL string    `json:"coverUrl,omitempty"`
	LikedAt  time.Time `json:"likedAt"`
}

// songBody is the song payload accepted by POST /playlist-songs and
// POST /liked. Older clients sent "songId" where newer ones send "id";
// both are accepted.
type songBody struct {
	SongID   string          `json:"songId"`
	AltID    string          `json:"id"`
	Platform models.Platform `json:"platform"`
	Name     string          `json:"name"`
	Artist   string          `json:"artist"`
	Album    string          `json:"album"`
	Duration int             `json:"duration"`
	CoverURL string          `json:"coverUrl"`
}

func (b songBody) song() models.Song {
	id := b.SongID
	if id == "" {
		id = b.AltID
	}
	return models.Song{
		ID:       id,
		Platform: b.Platform,
		Name:     b.Name,
		Artist:   b.Artist,
		Album:    b.Album,
		Duration: b.Duration,
		CoverURL: b.CoverURL,
	}
}

// Server serves the catalog over HTTP under /api.
type Server struct {
	store  *Store
	logger *log.Logger
	mux    *http.ServeMux
}

// NewServer wires the catalog routes onto a fresh mux.
func NewServer(store *Store, logger *log.Logger) *Server {
	s := &Server{store: store, logger: shared.WithLogger(logger, "component", "catalog"), mux: http.NewServeMux()}
	s.mux.HandleFunc("/api/playlists", s.handlePlaylists)
	s.mux.HandleFunc("/api/playlists/", s.handlePlaylist)
	s.mux.HandleFunc("/api/playlist-songs", s.handleAddSong)
	s.mux.HandleFunc("/api/playlist-songs/", s.handleRemoveSong)
	s.mux.HandleFunc("/api/liked", s.handleLiked)
	s.mux.HandleFunc("/api/liked/", s.handleUnlike)
	s.mux.HandleFunc("/api/check-liked", s.handleCheckLiked)
	return s
}

// ServeHTTP applies CORS headers, answers preflight requests, logs the
// request with a generated id and dispatches to the mux.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	requestID := shared.GenerateID()
	s.logger.Info("request", "id", requestID, "method", r.Method, "path", r.URL.Path)

	start := time.Now()
	s.mux.ServeHTTP(w, r)
	s.logger.Debug("request complete", "id", requestID, "duration", time.Since(start))
}

// Run starts the server on the configured address and shuts it down when
// the context is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("catalog server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) handlePlaylists(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		playlists, err := s.store.ListPlaylists(r.Context())
		if err != nil {
			s.writeError(w, err)
			return
		}
		if playlists == nil {
			playlists = []models.Playlist{}
		}
		s.writeData(w, http.StatusOK, playlists)
	case http.MethodPost:
		var body struct {
			Name        string `json:"name"`
			Description string `json:"description"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			s.writeError(w, shared.Validationf("invalid request body"))
			return
		}
		playlist, err := s.store.CreatePlaylist(r.Context(), strings.TrimSpace(body.Name), body.Description)
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeData(w, http.StatusCreated, playlist)
	default:
		s.writeError(w, shared.ErrMethodNotAllowed)
	}
}

func (s *Server) handlePlaylist(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r.URL.Path, "/api/playlists/")
	if err != nil {
		s.writeError(w, err)
		return
	}

	switch r.Method {
	case http.MethodGet:
		playlist, entries, err := s.store.GetPlaylist(r.Context(), id)
		if err != nil {
			s.writeError(w, err)
			return
		}
		songs := make([]entryRow, 0, len(entries))
		for _, e := range entries {
			songs = append(songs, toEntryRow(e))
		}
		s.writeData(w, http.StatusOK, map[string]any{"playlist": playlist, "songs": songs})
	case http.MethodPut, http.MethodPatch:
		var update models.PlaylistUpdate
		if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
			s.writeError(w, shared.Validationf("invalid request body"))
			return
		}
		if err := s.store.UpdatePlaylist(r.Context(), id, update); err != nil {
			s.writeError(w, err)
			return
		}
		s.writeData(w, http.StatusOK, map[string]bool{"updated": true})
	case http.MethodDelete:
		if err := s.store.DeletePlaylist(r.Context(), id); err != nil {
			s.writeError(w, err)
			return
		}
		s.writeData(w, http.StatusOK, map[string]bool{"deleted": true})
	default:
		s.writeError(w, shared.ErrMethodNotAllowed)
	}
}

func (s *Server) handleAddSong(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, shared.ErrMethodNotAllowed)
		return
	}

	var body struct {
		PlaylistID int64 `json:"playlistId"`
		songBody
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, shared.Validationf("invalid request body"))
		return
	}

	entryID, duplicated, err := s.store.AddSong(r.Context(), body.PlaylistID, body.song())
	if err != nil {
		s.writeError(w, err)
		return
	}

	status := http.StatusCreated
	if duplicated {
		status = http.StatusOK
	}
	s.writeData(w, status, map[string]any{"id": entryID, "duplicated": duplicated})
}

func (s *Server) handleRemoveSong(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		s.writeError(w, shared.ErrMethodNotAllowed)
		return
	}

	id, err := pathID(r.URL.Path, "/api/playlist-songs/")
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.store.RemoveEntry(r.Context(), id); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeData(w, http.StatusOK, map[string]bool{"deleted": true})
}

func (s *Server) handleLiked(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		liked, err := s.store.ListLiked(r.Context())
		if err != nil {
			s.writeError(w, err)
			return
		}
		rows := make([]likedRow, 0, len(liked))
		for _, l := range liked {
			rows = append(rows, likedRow{
				SongID:   l.Song.ID,
				Platform: string(l.Song.Platform),
				Name:     l.Song.Name,
				Artist:   l.Song.Artist,
				Album:    l.Song.Album,
				Duration: l.Song.Duration,
				CoverURL: l.Song.CoverURL,
				LikedAt:  l.LikedAt,
			})
		}
		s.writeData(w, http.StatusOK, rows)
	case http.MethodPost:
		var body songBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			s.writeError(w, shared.Validationf("invalid request body"))
			return
		}
		if err := s.store.Like(r.Context(), body.song()); err != nil {
			s.writeError(w, err)
			return
		}
		s.writeData(w, http.StatusCreated, map[string]bool{"liked": true})
	default:
		s.writeError(w, shared.ErrMethodNotAllowed)
	}
}

func (s *Server) handleUnlike(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		s.writeError(w, shared.ErrMethodNotAllowed)
		return
	}

	key := strings.TrimPrefix(r.URL.Path, "/api/liked/")
	platform, songID, err := shared.SplitLikedKey(key)
	if err != nil {
		s.writeError(w, shared.Validationf("invalid liked song id %q", key))
		return
	}
	if err := s.store.Unlike(r.Context(), models.Platform(platform), songID); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeData(w, http.StatusOK, map[string]bool{"deleted": true})
}

func (s *Server) handleCheckLiked(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, shared.ErrMethodNotAllowed)
		return
	}

	var body struct {
		Songs []models.SongRef `json:"songs"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, shared.Validationf("invalid request body"))
		return
	}

	result, err := s.store.CheckLiked(r.Context(), body.Songs)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeData(w, http.StatusOK, result)
}

func pathID(path, prefix string) (int64, error) {
	raw := strings.TrimPrefix(path, prefix)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, shared.Validationf("invalid playlist id %q", raw)
	}
	return id, nil
}

func (s *Server) writeData(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(envelope{Success: true, Data: data}); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

// writeError maps sentinel errors onto HTTP statuses and emits a failure
// envelope. Unclassified errors become 500s with the detail logged rather
// than leaked.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	message := "internal error"

	switch {
	case errors.Is(err, shared.ErrNotFound):
		status = http.StatusNotFound
		message = err.Error()
	case errors.Is(err, shared.ErrValidation):
		status = http.StatusBadRequest
		message = err.Error()
	case errors.Is(err, shared.ErrMethodNotAllowed):
		status = http.StatusMethodNotAllowed
		message = err.Error()
	default:
		s.logger.Error("request failed", "error", err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if encErr := json.NewEncoder(w).Encode(envelope{Success: false, Error: message}); encErr != nil {
		s.logger.Error("failed to encode error response", "error", encErr)
	}
}
