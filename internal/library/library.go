// Package library manages playlists, playlist entries and liked songs.
//
// One [Store] contract is implemented by two interchangeable backends: an
// on-device store persisting namespaced JSON records ([LocalStore]) and a
// client for the remote catalog server ([RemoteStore]). Exactly one backend
// is active per running instance, selected at construction from
// configuration; call sites never branch on the backend.
package library

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/log"

	"linmusic/internal/models"
	"linmusic/internal/shared"
)

// AddResult reports the outcome of adding a song to a playlist. When the
// (platform, songId) pair already exists in the playlist, Duplicated is true,
// EntryID references the existing entry, and nothing was mutated.
type AddResult struct {
	EntryID    int64 `json:"id"`
	Duplicated bool  `json:"duplicated"`
}

// PlaylistDetail pairs playlist metadata with its ordered entries
// (sortOrder ascending, addedAt descending as secondary key).
type PlaylistDetail struct {
	Playlist models.Playlist        `json:"playlist"`
	Entries  []models.PlaylistEntry `json:"songs"`
}

// Store is the library persistence contract shared by both backends.
//
// Faults are normalized per backend: domain failures surface as
// [shared.ErrNotFound] / [shared.ErrValidation]; an unreachable remote
// catalog surfaces as [shared.ErrAPIUnavailable] on mutations, while read
// operations absorb transport faults into safe defaults (empty sequences,
// empty maps) plus a diagnostic log so playback and UI state never fault.
type Store interface {
	// ListPlaylists returns all playlists ordered by updatedAt descending.
	ListPlaylists(ctx context.Context) ([]models.Playlist, error)

	// GetPlaylist returns a playlist along with its ordered entries.
	GetPlaylist(ctx context.Context, id int64) (*PlaylistDetail, error)

	// CreatePlaylist creates an empty playlist. The name is required.
	CreatePlaylist(ctx context.Context, name, description string) (*models.Playlist, error)

	// UpdatePlaylist applies a partial metadata update and refreshes
	// updatedAt. At least one field must be supplied.
	UpdatePlaylist(ctx context.Context, id int64, update models.PlaylistUpdate) error

	// DeletePlaylist removes a playlist and cascades deletion of all its
	// entries. Deleting an unknown id is a no-op success.
	DeletePlaylist(ctx context.Context, id int64) error

	// AddSongToPlaylist inserts a denormalized song copy. Duplicates within
	// the playlist are detected by (platform, songId) and reported without
	// mutating anything.
	AddSongToPlaylist(ctx context.Context, playlistID int64, song models.Song) (*AddResult, error)

	// RemoveEntry deletes a playlist entry by its entry id.
	RemoveEntry(ctx context.Context, entryID int64) error

	// RemoveSong deletes the entry matching (platform, songId) within the
	// given playlist.
	RemoveSong(ctx context.Context, playlistID int64, platform models.Platform, songID string) error

	// ListLiked returns liked songs ordered by like-time descending.
	ListLiked(ctx context.Context) ([]models.LikedSong, error)

	// LikeSong is an idempotent insert-or-replace keyed by
	// (platform, songId); the most recent metadata copy wins.
	LikeSong(ctx context.Context, song models.Song) error

	// UnlikeSong is an idempotent delete; absence is not an error.
	UnlikeSong(ctx context.Context, platform models.Platform, songID string) error

	// CheckLiked reports, for each reference, whether the song is liked.
	// Result keys use the "<platform>-<songId>" format.
	CheckLiked(ctx context.Context, refs []models.SongRef) (map[string]bool, error)
}

// New selects and constructs the backend named by cfg.Backend.
func New(cfg shared.LibraryConfig, logger *log.Logger) (Store, error) {
	switch cfg.Backend {
	case "", "local":
		home, _ := os.UserHomeDir()
		return NewLocalStore(shared.ExpandHome(cfg.DataDir, home), logger)
	case "remote":
		return NewRemoteStore(cfg, logger), nil
	default:
		return nil, fmt.Errorf("%w: unknown library backend %q", shared.ErrInvalidConfig, cfg.Backend)
	}
}
