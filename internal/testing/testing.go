// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"net/http"

	"linmusic/internal/library"
	"linmusic/internal/models"
)

// MockStore is a configurable test double for [library.Store]. Zero-value
// methods return empty results; set the function fields to override.
type MockStore struct {
	ListPlaylistsFunc func(ctx context.Context) ([]models.Playlist, error)
	GetPlaylistFunc   func(ctx context.Context, id int64) (*library.PlaylistDetail, error)
	CreateFunc        func(ctx context.Context, name, description string) (*models.Playlist, error)
	AddSongFunc       func(ctx context.Context, playlistID int64, song models.Song) (*library.AddResult, error)
	Err               error
}

func (m *MockStore) ListPlaylists(ctx context.Context) ([]models.Playlist, error) {
	if m.ListPlaylistsFunc != nil {
		return m.ListPlaylistsFunc(ctx)
	}
	return []models.Playlist{}, m.Err
}

func (m *MockStore) GetPlaylist(ctx context.Context, id int64) (*library.PlaylistDetail, error) {
	if m.GetPlaylistFunc != nil {
		return m.GetPlaylistFunc(ctx, id)
	}
	if m.Err != nil {
		return nil, m.Err
	}
	return &library.PlaylistDetail{Playlist: models.Playlist{ID: id, Name: "mock"}}, nil
}

func (m *MockStore) CreatePlaylist(ctx context.Context, name, description string) (*models.Playlist, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, name, description)
	}
	if m.Err != nil {
		return nil, m.Err
	}
	return &models.Playlist{ID: 1, Name: name, Description: description}, nil
}

func (m *MockStore) UpdatePlaylist(ctx context.Context, id int64, update models.PlaylistUpdate) error {
	return m.Err
}

func (m *MockStore) DeletePlaylist(ctx context.Context, id int64) error {
	return m.Err
}

func (m *MockStore) AddSongToPlaylist(ctx context.Context, playlistID int64, song models.Song) (*library.AddResult, error) {
	if m.AddSongFunc != nil {
		return m.AddSongFunc(ctx, playlistID, song)
	}
	if m.Err != nil {
		return nil, m.Err
	}
	return &library.AddResult{EntryID: 1}, nil
}

func (m *MockStore) RemoveEntry(ctx context.Context, entryID int64) error {
	return m.Err
}

func (m *MockStore) RemoveSong(ctx context.Context, playlistID int64, platform models.Platform, songID string) error {
	return m.Err
}

func (m *MockStore) ListLiked(ctx context.Context) ([]models.LikedSong, error) {
	return []models.LikedSong{}, m.Err
}

func (m *MockStore) LikeSong(ctx context.Context, song models.Song) error {
	return m.Err
}

func (m *MockStore) UnlikeSong(ctx context.Context, platform models.Platform, songID string) error {
	return m.Err
}

func (m *MockStore) CheckLiked(ctx context.Context, refs []models.SongRef) (map[string]bool, error) {
	return map[string]bool{}, m.Err
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}
