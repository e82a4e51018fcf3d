package library

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"linmusic/internal/catalog"
	"linmusic/internal/models"
	"linmusic/internal/shared"
)

// testRemoteStore runs the client against a real catalog server so the wire
// contract is exercised end to end.
func testRemoteStore(t *testing.T) *RemoteStore {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	// a second pool connection to :memory: would see a separate database
	shared.ConfigureDatabase(db, 1, 1)
	t.Cleanup(func() { db.Close() })

	store, err := catalog.NewStore(db)
	if err != nil {
		t.Fatalf("failed to create catalog store: %v", err)
	}

	logger := shared.NewLogger(io.Discard)
	server := httptest.NewServer(catalog.NewServer(store, logger))
	t.Cleanup(server.Close)

	cfg := shared.LibraryConfig{Backend: "remote", BaseURL: server.URL + "/api", TimeoutMS: 2000}
	return NewRemoteStore(cfg, logger)
}

// unreachableRemoteStore points at a port nothing listens on.
func unreachableRemoteStore(t *testing.T) *RemoteStore {
	t.Helper()
	cfg := shared.LibraryConfig{Backend: "remote", BaseURL: "http://127.0.0.1:1/api", TimeoutMS: 500}
	return NewRemoteStore(cfg, shared.NewLogger(io.Discard))
}

func TestRemoteRoundTrip(t *testing.T) {
	store := testRemoteStore(t)
	ctx := context.Background()

	created, err := store.CreatePlaylist(ctx, "Synced", "lives on the catalog")
	if err != nil {
		t.Fatalf("CreatePlaylist failed: %v", err)
	}
	if created.ID == 0 {
		t.Fatal("expected a playlist id")
	}

	t.Run("list", func(t *testing.T) {
		playlists, err := store.ListPlaylists(ctx)
		if err != nil {
			t.Fatalf("ListPlaylists failed: %v", err)
		}
		if len(playlists) != 1 || playlists[0].Name != "Synced" {
			t.Errorf("unexpected playlists: %+v", playlists)
		}
		if playlists[0].CreatedAt.IsZero() {
			t.Error("expected createdAt to survive the wire")
		}
	})

	t.Run("add and fetch detail", func(t *testing.T) {
		song := models.Song{
			ID:       "1",
			Platform: models.PlatformNetease,
			Name:     "Tune",
			Artist:   "Someone",
			Duration: 180,
			CoverURL: "//p1.music.126.net/x.jpg",
		}
		result, err := store.AddSongToPlaylist(ctx, created.ID, song)
		if err != nil {
			t.Fatalf("AddSongToPlaylist failed: %v", err)
		}
		if result.Duplicated {
			t.Error("first add reported duplicated")
		}

		detail, err := store.GetPlaylist(ctx, created.ID)
		if err != nil {
			t.Fatalf("GetPlaylist failed: %v", err)
		}
		if detail.Playlist.SongCount != 1 || len(detail.Entries) != 1 {
			t.Fatalf("unexpected detail: %+v", detail)
		}

		entry := detail.Entries[0]
		if entry.EntryID != result.EntryID {
			t.Errorf("entry id mismatch: %d vs %d", entry.EntryID, result.EntryID)
		}
		if entry.Song.CoverURL != "https://p1.music.126.net/x.jpg" {
			t.Errorf("expected normalized cover, got %q", entry.Song.CoverURL)
		}
		if entry.AddedAt.IsZero() {
			t.Error("expected addedAt to survive the wire")
		}
	})

	t.Run("duplicate add", func(t *testing.T) {
		song := models.Song{ID: "1", Platform: models.PlatformNetease, Name: "Tune", Artist: "Someone"}
		result, err := store.AddSongToPlaylist(ctx, created.ID, song)
		if err != nil {
			t.Fatalf("AddSongToPlaylist failed: %v", err)
		}
		if !result.Duplicated {
			t.Error("expected duplicated flag")
		}
	})

	t.Run("remove song by identity", func(t *testing.T) {
		if err := store.RemoveSong(ctx, created.ID, models.PlatformNetease, "1"); err != nil {
			t.Fatalf("RemoveSong failed: %v", err)
		}
		err := store.RemoveSong(ctx, created.ID, models.PlatformNetease, "1")
		if !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected not found removing twice, got %v", err)
		}
	})

	t.Run("update", func(t *testing.T) {
		name := "Renamed"
		if err := store.UpdatePlaylist(ctx, created.ID, models.PlaylistUpdate{Name: &name}); err != nil {
			t.Fatalf("UpdatePlaylist failed: %v", err)
		}
		detail, err := store.GetPlaylist(ctx, created.ID)
		if err != nil {
			t.Fatalf("GetPlaylist failed: %v", err)
		}
		if detail.Playlist.Name != "Renamed" {
			t.Errorf("expected renamed playlist, got %q", detail.Playlist.Name)
		}

		// an explicit empty name is applied, matching the local backend
		empty := ""
		if err := store.UpdatePlaylist(ctx, created.ID, models.PlaylistUpdate{Name: &empty}); err != nil {
			t.Fatalf("UpdatePlaylist with empty name failed: %v", err)
		}
		detail, err = store.GetPlaylist(ctx, created.ID)
		if err != nil {
			t.Fatalf("GetPlaylist failed: %v", err)
		}
		if detail.Playlist.Name != "" {
			t.Errorf("expected empty name applied, got %q", detail.Playlist.Name)
		}
	})

	t.Run("delete", func(t *testing.T) {
		if err := store.DeletePlaylist(ctx, created.ID); err != nil {
			t.Fatalf("DeletePlaylist failed: %v", err)
		}
		_, err := store.GetPlaylist(ctx, created.ID)
		if !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected not found after delete, got %v", err)
		}
	})
}

func TestRemoteLikedSongs(t *testing.T) {
	store := testRemoteStore(t)
	ctx := context.Background()

	song := models.Song{ID: "7", Platform: models.PlatformKuwo, Name: "Tune", Artist: "Someone"}
	if err := store.LikeSong(ctx, song); err != nil {
		t.Fatalf("LikeSong failed: %v", err)
	}

	liked, err := store.ListLiked(ctx)
	if err != nil {
		t.Fatalf("ListLiked failed: %v", err)
	}
	if len(liked) != 1 || liked[0].Song.Key() != "kuwo-7" {
		t.Errorf("unexpected liked songs: %+v", liked)
	}

	result, err := store.CheckLiked(ctx, []models.SongRef{
		{ID: "7", Platform: models.PlatformKuwo},
		{ID: "8", Platform: models.PlatformKuwo},
	})
	if err != nil {
		t.Fatalf("CheckLiked failed: %v", err)
	}
	if !result["kuwo-7"] {
		t.Error("expected kuwo-7 liked")
	}

	if err := store.UnlikeSong(ctx, models.PlatformKuwo, "7"); err != nil {
		t.Fatalf("UnlikeSong failed: %v", err)
	}
	liked, err = store.ListLiked(ctx)
	if err != nil {
		t.Fatalf("ListLiked failed: %v", err)
	}
	if len(liked) != 0 {
		t.Errorf("expected no liked songs, got %d", len(liked))
	}
}

func TestRemoteValidation(t *testing.T) {
	store := testRemoteStore(t)
	ctx := context.Background()

	t.Run("empty playlist name", func(t *testing.T) {
		if _, err := store.CreatePlaylist(ctx, "", ""); !errors.Is(err, shared.ErrValidation) {
			t.Errorf("expected validation error, got %v", err)
		}
	})

	t.Run("add to unknown playlist is surfaced", func(t *testing.T) {
		song := models.Song{ID: "1", Platform: models.PlatformQQ, Name: "x", Artist: "y"}
		_, err := store.AddSongToPlaylist(ctx, 999, song)
		if !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected not found, got %v", err)
		}
		// the envelope message already carries the sentinel prefix; it must
		// not be repeated when the client re-wraps by status code
		if strings.Count(err.Error(), shared.ErrNotFound.Error()) != 1 {
			t.Errorf("expected one sentinel prefix in %q", err.Error())
		}
	})

	t.Run("invalid song rejected before the wire", func(t *testing.T) {
		if _, err := store.AddSongToPlaylist(ctx, 1, models.Song{ID: "1"}); !errors.Is(err, shared.ErrValidation) {
			t.Errorf("expected validation error, got %v", err)
		}
	})
}

func TestRemoteReadsDegradeWhenUnreachable(t *testing.T) {
	store := unreachableRemoteStore(t)
	ctx := context.Background()

	playlists, err := store.ListPlaylists(ctx)
	if err != nil {
		t.Fatalf("expected absorbed fault, got %v", err)
	}
	if len(playlists) != 0 {
		t.Errorf("expected empty playlists, got %d", len(playlists))
	}

	liked, err := store.ListLiked(ctx)
	if err != nil {
		t.Fatalf("expected absorbed fault, got %v", err)
	}
	if len(liked) != 0 {
		t.Errorf("expected empty liked, got %d", len(liked))
	}

	result, err := store.CheckLiked(ctx, []models.SongRef{{ID: "1", Platform: models.PlatformQQ}})
	if err != nil {
		t.Fatalf("expected absorbed fault, got %v", err)
	}
	if len(result) != 0 {
		t.Errorf("expected empty check result, got %v", result)
	}
}

func TestRemoteMutationsSurfaceTransportFaults(t *testing.T) {
	store := unreachableRemoteStore(t)
	ctx := context.Background()

	if _, err := store.CreatePlaylist(ctx, "x", ""); !errors.Is(err, shared.ErrAPIUnavailable) {
		t.Errorf("expected unavailable error, got %v", err)
	}
	if err := store.DeletePlaylist(ctx, 1); !errors.Is(err, shared.ErrAPIUnavailable) {
		t.Errorf("expected unavailable error, got %v", err)
	}

	song := models.Song{ID: "1", Platform: models.PlatformQQ, Name: "x", Artist: "y"}
	if err := store.LikeSong(ctx, song); !errors.Is(err, shared.ErrAPIUnavailable) {
		t.Errorf("expected unavailable error, got %v", err)
	}
}

func TestRemoteTimeoutMapsToTimeout(t *testing.T) {
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}))
	t.Cleanup(slow.Close)

	cfg := shared.LibraryConfig{Backend: "remote", BaseURL: slow.URL + "/api", TimeoutMS: 50}
	store := NewRemoteStore(cfg, shared.NewLogger(io.Discard))

	err := store.DeletePlaylist(context.Background(), 1)
	if !errors.Is(err, shared.ErrTimeout) {
		t.Errorf("expected timeout error, got %v", err)
	}
}

func TestNewSelectsBackend(t *testing.T) {
	logger := shared.NewLogger(io.Discard)

	t.Run("local", func(t *testing.T) {
		cfg := shared.LibraryConfig{Backend: "local", DataDir: t.TempDir()}
		store, err := New(cfg, logger)
		if err != nil {
			t.Fatalf("New failed: %v", err)
		}
		if _, ok := store.(*LocalStore); !ok {
			t.Errorf("expected local store, got %T", store)
		}
	})

	t.Run("remote", func(t *testing.T) {
		cfg := shared.LibraryConfig{Backend: "remote", BaseURL: "http://localhost:8788/api"}
		store, err := New(cfg, logger)
		if err != nil {
			t.Fatalf("New failed: %v", err)
		}
		if _, ok := store.(*RemoteStore); !ok {
			t.Errorf("expected remote store, got %T", store)
		}
	})

	t.Run("unknown backend", func(t *testing.T) {
		if _, err := New(shared.LibraryConfig{Backend: "cloud"}, logger); err == nil {
			t.Error("expected an error for unknown backend")
		}
	})
}
