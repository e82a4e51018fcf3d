package library

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"linmusic/internal/models"
	"linmusic/internal/shared"
)

// record file names inside the data directory
const (
	playlistsFile = "playlists.json"
	likedFile     = "liked.json"
	settingsFile  = "settings.json"
)

func entriesFile(playlistID int64) string {
	return fmt.Sprintf("playlist.%d.songs.json", playlistID)
}

// playlistRecord is the on-device shape of a playlist. The explicit cover and
// the derived cover are kept apart so clearing the explicit one falls back to
// the derived value; the derived cover is recomputed on every entry mutation
// since there is no query-time aggregation over JSON records.
type playlistRecord struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description,omitempty"`
	CoverURL      string    `json:"coverUrl,omitempty"`
	DerivedCover  string    `json:"derivedCover,omitempty"`
	SongCount     int       `json:"songCount"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
	NextSortOrder int       `json:"nextSortOrder"`
}

// playlistsRecord is the single record holding the playlist list plus the
// store-wide entry id counter. Entry ids never repeat, even across playlists,
// so removal by entry id alone is unambiguous.
type playlistsRecord struct {
	NextEntryID int64            `json:"nextEntryId"`
	Playlists   []playlistRecord `json:"playlists"`
}

// LocalStore implements [Store] over a small set of namespaced JSON records:
// one for the playlist list, one per playlist for its entries, one for liked
// songs and one for user settings. Every mutation is a read-modify-write of
// the whole record.
type LocalStore struct {
	mu     sync.Mutex
	dir    string
	logger *log.Logger
}

// NewLocalStore creates the data directory if needed and returns a store
// rooted there.
func NewLocalStore(dir string, logger *log.Logger) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create data dir: %v", shared.ErrPersistence, err)
	}
	return &LocalStore{dir: dir, logger: shared.WithLogger(logger, "backend", "local")}, nil
}

// readRecord loads a JSON record into v. A missing file leaves v at its
// default; a corrupt file is logged and treated the same so a bad record
// never crashes the player.
func (s *LocalStore) readRecord(name string, v any) {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Error("failed to read record", "record", name, "err", err)
		}
		return
	}
	if err := json.Unmarshal(data, v); err != nil {
		s.logger.Error("failed to parse record, using defaults", "record", name, "err", err)
	}
}

// writeRecord persists a JSON record atomically via a temp file rename.
func (s *LocalStore) writeRecord(name string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%w: marshal %s: %v", shared.ErrPersistence, name, err)
	}

	path := filepath.Join(s.dir, name)
	tmp, err := os.CreateTemp(s.dir, name+".tmp.*")
	if err != nil {
		return fmt.Errorf("%w: create temp for %s: %v", shared.ErrPersistence, name, err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("%w: write %s: %v", shared.ErrPersistence, name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%w: close %s: %v", shared.ErrPersistence, name, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%w: replace %s: %v", shared.ErrPersistence, name, err)
	}
	return nil
}

func (s *LocalStore) loadPlaylists() playlistsRecord {
	var rec playlistsRecord
	s.readRecord(playlistsFile, &rec)
	if rec.NextEntryID < 1 {
		rec.NextEntryID = 1
	}
	return rec
}

func (s *LocalStore) loadEntries(playlistID int64) []models.PlaylistEntry {
	var entries []models.PlaylistEntry
	s.readRecord(entriesFile(playlistID), &entries)
	return entries
}

// effectiveCover prefers the explicit cover over the derived one.
func (p playlistRecord) effectiveCover() string {
	if p.CoverURL != "" {
		return p.CoverURL
	}
	return p.DerivedCover
}

func (p playlistRecord) toPlaylist() models.Playlist {
	return models.Playlist{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		CoverURL:    p.effectiveCover(),
		SongCount:   p.SongCount,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

// deriveCover picks the cover of the most recently added entry, breaking
// added-at ties by highest sort order.
func deriveCover(entries []models.PlaylistEntry) string {
	best := -1
	for i, e := range entries {
		if e.Song.CoverURL == "" {
			continue
		}
		if best < 0 {
			best = i
			continue
		}
		b := entries[best]
		if e.AddedAt.After(b.AddedAt) || (e.AddedAt.Equal(b.AddedAt) && e.SortOrder > b.SortOrder) {
			best = i
		}
	}
	if best < 0 {
		return ""
	}
	return entries[best].Song.CoverURL
}

// sortEntries orders by sortOrder ascending with addedAt descending as the
// secondary key, matching the catalog's query ordering.
func sortEntries(entries []models.PlaylistEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].SortOrder != entries[j].SortOrder {
			return entries[i].SortOrder < entries[j].SortOrder
		}
		return entries[i].AddedAt.After(entries[j].AddedAt)
	})
}

func (s *LocalStore) ListPlaylists(ctx context.Context) ([]models.Playlist, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.loadPlaylists()
	playlists := make([]models.Playlist, 0, len(rec.Playlists))
	for _, p := range rec.Playlists {
		playlists = append(playlists, p.toPlaylist())
	}
	sort.SliceStable(playlists, func(i, j int) bool {
		return playlists[i].UpdatedAt.After(playlists[j].UpdatedAt)
	})
	return playlists, nil
}

func (s *LocalStore) GetPlaylist(ctx context.Context, id int64) (*PlaylistDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.loadPlaylists()
	idx := findPlaylist(rec.Playlists, id)
	if idx < 0 {
		return nil, shared.NotFoundf("playlist %d", id)
	}

	entries := s.loadEntries(id)
	sortEntries(entries)

	return &PlaylistDetail{
		Playlist: rec.Playlists[idx].toPlaylist(),
		Entries:  entries,
	}, nil
}

func (s *LocalStore) CreatePlaylist(ctx context.Context, name, description string) (*models.Playlist, error) {
	if name == "" {
		return nil, shared.Validationf("playlist name is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.loadPlaylists()

	var nextID int64 = 1
	for _, p := range rec.Playlists {
		if p.ID >= nextID {
			nextID = p.ID + 1
		}
	}

	now := time.Now().UTC()
	playlist := playlistRecord{
		ID:            nextID,
		Name:          name,
		Description:   description,
		CreatedAt:     now,
		UpdatedAt:     now,
		NextSortOrder: 1,
	}
	rec.Playlists = append(rec.Playlists, playlist)

	if err := s.writeRecord(playlistsFile, rec); err != nil {
		return nil, err
	}

	result := playlist.toPlaylist()
	return &result, nil
}

func (s *LocalStore) UpdatePlaylist(ctx context.Context, id int64, update models.PlaylistUpdate) error {
	if update.Empty() {
		return shared.Validationf("no fields to update")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.loadPlaylists()
	idx := findPlaylist(rec.Playlists, id)
	if idx < 0 {
		return shared.NotFoundf("playlist %d", id)
	}

	p := &rec.Playlists[idx]
	if update.Name != nil {
		p.Name = *update.Name
	}
	if update.Description != nil {
		p.Description = *update.Description
	}
	if update.CoverURL != nil {
		p.CoverURL = shared.NormalizeCoverURL(*update.CoverURL)
	}
	p.UpdatedAt = time.Now().UTC()

	return s.writeRecord(playlistsFile, rec)
}

func (s *LocalStore) DeletePlaylist(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.loadPlaylists()
	idx := findPlaylist(rec.Playlists, id)
	if idx < 0 {
		// deleting an unknown playlist is a no-op success
		return nil
	}

	rec.Playlists = append(rec.Playlists[:idx], rec.Playlists[idx+1:]...)
	if err := s.writeRecord(playlistsFile, rec); err != nil {
		return err
	}

	// cascade: drop the entries record with the playlist
	if err := os.Remove(filepath.Join(s.dir, entriesFile(id))); err != nil && !os.IsNotExist(err) {
		s.logger.Error("failed to remove entries record", "playlist", id, "err", err)
	}
	return nil
}

func (s *LocalStore) AddSongToPlaylist(ctx context.Context, playlistID int64, song models.Song) (*AddResult, error) {
	if err := song.Validate(); err != nil {
		return nil, shared.Validationf("%v", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.loadPlaylists()
	idx := findPlaylist(rec.Playlists, playlistID)
	if idx < 0 {
		return nil, shared.NotFoundf("playlist %d", playlistID)
	}

	entries := s.loadEntries(playlistID)
	for _, e := range entries {
		if e.Song.ID == song.ID && e.Song.Platform == song.Platform {
			return &AddResult{EntryID: e.EntryID, Duplicated: true}, nil
		}
	}

	p := &rec.Playlists[idx]

	sortOrder := p.NextSortOrder
	if sortOrder < 1 {
		sortOrder = 1
	}
	for _, e := range entries {
		if e.SortOrder >= sortOrder {
			sortOrder = e.SortOrder + 1
		}
	}

	song.CoverURL = shared.NormalizeCoverURL(song.CoverURL)
	entry := models.PlaylistEntry{
		EntryID:    rec.NextEntryID,
		PlaylistID: playlistID,
		Song:       song,
		SortOrder:  sortOrder,
		AddedAt:    time.Now().UTC(),
	}
	entries = append(entries, entry)

	rec.NextEntryID++
	p.NextSortOrder = sortOrder + 1
	p.SongCount = len(entries)
	p.UpdatedAt = entry.AddedAt
	p.DerivedCover = deriveCover(entries)

	if err := s.writeRecord(entriesFile(playlistID), entries); err != nil {
		return nil, err
	}
	if err := s.writeRecord(playlistsFile, rec); err != nil {
		return nil, err
	}

	return &AddResult{EntryID: entry.EntryID}, nil
}

func (s *LocalStore) RemoveEntry(ctx context.Context, entryID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.loadPlaylists()
	for idx := range rec.Playlists {
		playlistID := rec.Playlists[idx].ID
		entries := s.loadEntries(playlistID)
		for i, e := range entries {
			if e.EntryID != entryID {
				continue
			}
			return s.removeEntryLocked(rec, idx, entries, i)
		}
	}
	return shared.NotFoundf("playlist entry %d", entryID)
}

func (s *LocalStore) RemoveSong(ctx context.Context, playlistID int64, platform models.Platform, songID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.loadPlaylists()
	idx := findPlaylist(rec.Playlists, playlistID)
	if idx < 0 {
		return shared.NotFoundf("playlist %d", playlistID)
	}

	entries := s.loadEntries(playlistID)
	for i, e := range entries {
		if e.Song.ID == songID && e.Song.Platform == platform {
			return s.removeEntryLocked(rec, idx, entries, i)
		}
	}
	return shared.NotFoundf("song %s-%s in playlist %d", platform, songID, playlistID)
}

// removeEntryLocked deletes entries[i], refreshes the playlist's count,
// derived cover and updatedAt, and persists both records.
func (s *LocalStore) removeEntryLocked(rec playlistsRecord, playlistIdx int, entries []models.PlaylistEntry, i int) error {
	p := &rec.Playlists[playlistIdx]

	entries = append(entries[:i], entries[i+1:]...)
	p.SongCount = len(entries)
	p.UpdatedAt = time.Now().UTC()
	p.DerivedCover = deriveCover(entries)

	if err := s.writeRecord(entriesFile(p.ID), entries); err != nil {
		return err
	}
	return s.writeRecord(playlistsFile, rec)
}

func (s *LocalStore) ListLiked(ctx context.Context) ([]models.LikedSong, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var liked []models.LikedSong
	s.readRecord(likedFile, &liked)
	return liked, nil
}

func (s *LocalStore) LikeSong(ctx context.Context, song models.Song) error {
	if err := song.Validate(); err != nil {
		return shared.Validationf("%v", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var liked []models.LikedSong
	s.readRecord(likedFile, &liked)

	// insert-or-replace: drop any prior copy, newest metadata wins
	filtered := liked[:0]
	for _, l := range liked {
		if l.Song.ID == song.ID && l.Song.Platform == song.Platform {
			continue
		}
		filtered = append(filtered, l)
	}

	song.CoverURL = shared.NormalizeCoverURL(song.CoverURL)
	entry := models.LikedSong{Song: song, LikedAt: time.Now().UTC()}
	liked = append([]models.LikedSong{entry}, filtered...)

	return s.writeRecord(likedFile, liked)
}

func (s *LocalStore) UnlikeSong(ctx context.Context, platform models.Platform, songID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var liked []models.LikedSong
	s.readRecord(likedFile, &liked)

	filtered := liked[:0]
	for _, l := range liked {
		if l.Song.ID == songID && l.Song.Platform == platform {
			continue
		}
		filtered = append(filtered, l)
	}

	return s.writeRecord(likedFile, filtered)
}

func (s *LocalStore) CheckLiked(ctx context.Context, refs []models.SongRef) (map[string]bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var liked []models.LikedSong
	s.readRecord(likedFile, &liked)

	byKey := make(map[string]bool, len(liked))
	for _, l := range liked {
		byKey[l.Song.Key()] = true
	}

	result := make(map[string]bool, len(refs))
	for _, ref := range refs {
		if byKey[ref.Key()] {
			result[ref.Key()] = true
		}
	}
	return result, nil
}

// Settings loads user settings, falling back to defaults when the record is
// missing or unreadable.
func (s *LocalStore) Settings() models.UserSettings {
	s.mu.Lock()
	defer s.mu.Unlock()

	settings := models.DefaultSettings()
	s.readRecord(settingsFile, &settings)
	return settings
}

// SaveSettings persists user settings.
func (s *LocalStore) SaveSettings(settings models.UserSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.writeRecord(settingsFile, settings)
}

func findPlaylist(playlists []playlistRecord, id int64) int {
	for i, p := range playlists {
		if p.ID == id {
			return i
		}
	}
	return -1
}
