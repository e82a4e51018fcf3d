package catalog

import (
	"context"
	"errors"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"linmusic/internal/models"
	"linmusic/internal/shared"
)

func testStore(t *testing.T) *Store {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	// a second pool connection to :memory: would see a separate database
	shared.ConfigureDatabase(db, 1, 1)
	t.Cleanup(func() { db.Close() })

	store, err := NewStore(db)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	return store
}

func testSong(id string) models.Song {
	return models.Song{
		ID:       id,
		Platform: models.PlatformNetease,
		Name:     "Song " + id,
		Artist:   "Artist",
		Album:    "Album",
		Duration: 240,
		CoverURL: "https://example.com/cover-" + id + ".jpg",
	}
}

func TestCreateTablesIdempotent(t *testing.T) {
	store := testStore(t)
	if err := store.createTables(); err != nil {
		t.Fatalf("second createTables failed: %v", err)
	}
}

func TestCreateAndGetPlaylist(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	created, err := store.CreatePlaylist(ctx, "Driving", "late night mix")
	if err != nil {
		t.Fatalf("CreatePlaylist failed: %v", err)
	}
	if created.ID == 0 {
		t.Error("expected a non-zero playlist id")
	}

	playlist, entries, err := store.GetPlaylist(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetPlaylist failed: %v", err)
	}
	if playlist.Name != "Driving" || playlist.Description != "late night mix" {
		t.Errorf("unexpected playlist metadata: %+v", playlist)
	}
	if len(entries) != 0 {
		t.Errorf("expected no entries, got %d", len(entries))
	}
}

func TestCreatePlaylistRequiresName(t *testing.T) {
	store := testStore(t)

	_, err := store.CreatePlaylist(context.Background(), "", "")
	if !errors.Is(err, shared.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestGetPlaylistNotFound(t *testing.T) {
	store := testStore(t)

	_, _, err := store.GetPlaylist(context.Background(), 999)
	if !errors.Is(err, shared.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestUpdatePlaylist(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	created, err := store.CreatePlaylist(ctx, "Old Name", "desc")
	if err != nil {
		t.Fatalf("CreatePlaylist failed: %v", err)
	}

	t.Run("partial update keeps other fields", func(t *testing.T) {
		name := "New Name"
		if err := store.UpdatePlaylist(ctx, created.ID, models.PlaylistUpdate{Name: &name}); err != nil {
			t.Fatalf("UpdatePlaylist failed: %v", err)
		}

		playlist, _, err := store.GetPlaylist(ctx, created.ID)
		if err != nil {
			t.Fatalf("GetPlaylist failed: %v", err)
		}
		if playlist.Name != "New Name" {
			t.Errorf("expected name to change, got %q", playlist.Name)
		}
		if playlist.Description != "desc" {
			t.Errorf("expected description untouched, got %q", playlist.Description)
		}
		if !playlist.UpdatedAt.After(created.UpdatedAt) {
			t.Error("expected updated_at to advance")
		}
	})

	t.Run("empty update rejected", func(t *testing.T) {
		err := store.UpdatePlaylist(ctx, created.ID, models.PlaylistUpdate{})
		if !errors.Is(err, shared.ErrValidation) {
			t.Errorf("expected validation error, got %v", err)
		}
	})

	// both backends apply an explicit empty name rather than rejecting it
	t.Run("empty name applied", func(t *testing.T) {
		name := ""
		if err := store.UpdatePlaylist(ctx, created.ID, models.PlaylistUpdate{Name: &name}); err != nil {
			t.Fatalf("UpdatePlaylist failed: %v", err)
		}

		playlist, _, err := store.GetPlaylist(ctx, created.ID)
		if err != nil {
			t.Fatalf("GetPlaylist failed: %v", err)
		}
		if playlist.Name != "" {
			t.Errorf("expected empty name applied, got %q", playlist.Name)
		}
	})

	t.Run("unknown id", func(t *testing.T) {
		name := "x"
		err := store.UpdatePlaylist(ctx, 999, models.PlaylistUpdate{Name: &name})
		if !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected not found, got %v", err)
		}
	})
}

func TestAddSong(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	created, err := store.CreatePlaylist(ctx, "Mix", "")
	if err != nil {
		t.Fatalf("CreatePlaylist failed: %v", err)
	}

	firstID, duplicated, err := store.AddSong(ctx, created.ID, testSong("100"))
	if err != nil {
		t.Fatalf("AddSong failed: %v", err)
	}
	if duplicated {
		t.Error("first add reported duplicated")
	}

	t.Run("duplicate reports existing entry", func(t *testing.T) {
		id, duplicated, err := store.AddSong(ctx, created.ID, testSong("100"))
		if err != nil {
			t.Fatalf("AddSong failed: %v", err)
		}
		if !duplicated {
			t.Error("expected duplicated")
		}
		if id != firstID {
			t.Errorf("expected existing entry id %d, got %d", firstID, id)
		}

		_, entries, err := store.GetPlaylist(ctx, created.ID)
		if err != nil {
			t.Fatalf("GetPlaylist failed: %v", err)
		}
		if len(entries) != 1 {
			t.Errorf("duplicate add mutated the playlist: %d entries", len(entries))
		}
	})

	t.Run("same song on another platform is distinct", func(t *testing.T) {
		song := testSong("100")
		song.Platform = models.PlatformQQ
		_, duplicated, err := store.AddSong(ctx, created.ID, song)
		if err != nil {
			t.Fatalf("AddSong failed: %v", err)
		}
		if duplicated {
			t.Error("cross-platform add reported duplicated")
		}
	})

	t.Run("unknown playlist", func(t *testing.T) {
		_, _, err := store.AddSong(ctx, 999, testSong("200"))
		if !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected not found, got %v", err)
		}
	})

	t.Run("invalid song", func(t *testing.T) {
		_, _, err := store.AddSong(ctx, created.ID, models.Song{ID: "1"})
		if !errors.Is(err, shared.ErrValidation) {
			t.Errorf("expected validation error, got %v", err)
		}
	})
}

func TestSortOrderNeverReused(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	created, err := store.CreatePlaylist(ctx, "Mix", "")
	if err != nil {
		t.Fatalf("CreatePlaylist failed: %v", err)
	}

	entryA, _, err := store.AddSong(ctx, created.ID, testSong("a"))
	if err != nil {
		t.Fatalf("AddSong failed: %v", err)
	}
	entryB, _, err := store.AddSong(ctx, created.ID, testSong("b"))
	if err != nil {
		t.Fatalf("AddSong failed: %v", err)
	}

	if err := store.RemoveEntry(ctx, entryA); err != nil {
		t.Fatalf("RemoveEntry failed: %v", err)
	}
	if err := store.RemoveEntry(ctx, entryB); err != nil {
		t.Fatalf("RemoveEntry failed: %v", err)
	}

	if _, _, err := store.AddSong(ctx, created.ID, testSong("c")); err != nil {
		t.Fatalf("AddSong failed: %v", err)
	}

	_, entries, err := store.GetPlaylist(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetPlaylist failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected one entry, got %d", len(entries))
	}
	if entries[0].SortOrder != 3 {
		t.Errorf("expected sort order 3 after emptying, got %d", entries[0].SortOrder)
	}
}

func TestEntryOrdering(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	created, err := store.CreatePlaylist(ctx, "Mix", "")
	if err != nil {
		t.Fatalf("CreatePlaylist failed: %v", err)
	}

	for _, id := range []string{"1", "2", "3"} {
		if _, _, err := store.AddSong(ctx, created.ID, testSong(id)); err != nil {
			t.Fatalf("AddSong failed: %v", err)
		}
	}

	_, entries, err := store.GetPlaylist(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetPlaylist failed: %v", err)
	}
	for i := 1; i < len(entries); i++ {
		if entries[i].SortOrder < entries[i-1].SortOrder {
			t.Errorf("entries out of order at %d: %d < %d", i, entries[i].SortOrder, entries[i-1].SortOrder)
		}
	}
}

func TestRemoveEntry(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	created, err := store.CreatePlaylist(ctx, "Mix", "")
	if err != nil {
		t.Fatalf("CreatePlaylist failed: %v", err)
	}
	entryID, _, err := store.AddSong(ctx, created.ID, testSong("1"))
	if err != nil {
		t.Fatalf("AddSong failed: %v", err)
	}

	if err := store.RemoveEntry(ctx, entryID); err != nil {
		t.Fatalf("RemoveEntry failed: %v", err)
	}

	_, entries, err := store.GetPlaylist(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetPlaylist failed: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected no entries, got %d", len(entries))
	}

	if err := store.RemoveEntry(ctx, entryID); !errors.Is(err, shared.ErrNotFound) {
		t.Errorf("expected not found removing twice, got %v", err)
	}
}

func TestDeletePlaylistCascades(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	created, err := store.CreatePlaylist(ctx, "Mix", "")
	if err != nil {
		t.Fatalf("CreatePlaylist failed: %v", err)
	}
	entryID, _, err := store.AddSong(ctx, created.ID, testSong("1"))
	if err != nil {
		t.Fatalf("AddSong failed: %v", err)
	}

	if err := store.DeletePlaylist(ctx, created.ID); err != nil {
		t.Fatalf("DeletePlaylist failed: %v", err)
	}

	if _, _, err := store.GetPlaylist(ctx, created.ID); !errors.Is(err, shared.ErrNotFound) {
		t.Errorf("expected not found after delete, got %v", err)
	}
	if err := store.RemoveEntry(ctx, entryID); !errors.Is(err, shared.ErrNotFound) {
		t.Errorf("expected entries to cascade, got %v", err)
	}

	// deleting again is a no-op
	if err := store.DeletePlaylist(ctx, created.ID); err != nil {
		t.Errorf("repeat delete failed: %v", err)
	}
}

func TestDerivedCover(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	created, err := store.CreatePlaylist(ctx, "Mix", "")
	if err != nil {
		t.Fatalf("CreatePlaylist failed: %v", err)
	}

	noCover := testSong("1")
	noCover.CoverURL = ""
	if _, _, err := store.AddSong(ctx, created.ID, noCover); err != nil {
		t.Fatalf("AddSong failed: %v", err)
	}
	if _, _, err := store.AddSong(ctx, created.ID, testSong("2")); err != nil {
		t.Fatalf("AddSong failed: %v", err)
	}

	t.Run("falls back to newest entry with a cover", func(t *testing.T) {
		playlist, _, err := store.GetPlaylist(ctx, created.ID)
		if err != nil {
			t.Fatalf("GetPlaylist failed: %v", err)
		}
		if playlist.CoverURL != "https://example.com/cover-2.jpg" {
			t.Errorf("unexpected derived cover %q", playlist.CoverURL)
		}
	})

	t.Run("explicit cover wins", func(t *testing.T) {
		cover := "https://example.com/explicit.jpg"
		if err := store.UpdatePlaylist(ctx, created.ID, models.PlaylistUpdate{CoverURL: &cover}); err != nil {
			t.Fatalf("UpdatePlaylist failed: %v", err)
		}

		playlist, _, err := store.GetPlaylist(ctx, created.ID)
		if err != nil {
			t.Fatalf("GetPlaylist failed: %v", err)
		}
		if playlist.CoverURL != cover {
			t.Errorf("expected explicit cover, got %q", playlist.CoverURL)
		}
	})
}

func TestListPlaylists(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	first, err := store.CreatePlaylist(ctx, "First", "")
	if err != nil {
		t.Fatalf("CreatePlaylist failed: %v", err)
	}
	if _, err := store.CreatePlaylist(ctx, "Second", ""); err != nil {
		t.Fatalf("CreatePlaylist failed: %v", err)
	}

	// touching First moves it to the front
	if _, _, err := store.AddSong(ctx, first.ID, testSong("1")); err != nil {
		t.Fatalf("AddSong failed: %v", err)
	}

	playlists, err := store.ListPlaylists(ctx)
	if err != nil {
		t.Fatalf("ListPlaylists failed: %v", err)
	}
	if len(playlists) != 2 {
		t.Fatalf("expected 2 playlists, got %d", len(playlists))
	}
	if playlists[0].Name != "First" {
		t.Errorf("expected most recently updated first, got %q", playlists[0].Name)
	}
	if playlists[0].SongCount != 1 {
		t.Errorf("expected live song count 1, got %d", playlists[0].SongCount)
	}
}

func TestLikedSongs(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	if err := store.Like(ctx, testSong("1")); err != nil {
		t.Fatalf("Like failed: %v", err)
	}

	t.Run("re-like replaces metadata", func(t *testing.T) {
		song := testSong("1")
		song.Name = "Renamed"
		if err := store.Like(ctx, song); err != nil {
			t.Fatalf("Like failed: %v", err)
		}

		liked, err := store.ListLiked(ctx)
		if err != nil {
			t.Fatalf("ListLiked failed: %v", err)
		}
		if len(liked) != 1 {
			t.Fatalf("expected 1 liked song, got %d", len(liked))
		}
		if liked[0].Song.Name != "Renamed" {
			t.Errorf("expected metadata replaced, got %q", liked[0].Song.Name)
		}
	})

	t.Run("check liked", func(t *testing.T) {
		result, err := store.CheckLiked(ctx, []models.SongRef{
			{ID: "1", Platform: models.PlatformNetease},
			{ID: "2", Platform: models.PlatformNetease},
		})
		if err != nil {
			t.Fatalf("CheckLiked failed: %v", err)
		}
		if !result["netease-1"] {
			t.Error("expected netease-1 to be liked")
		}
		if _, ok := result["netease-2"]; ok {
			t.Error("expected netease-2 to be absent")
		}
	})

	t.Run("unlike", func(t *testing.T) {
		if err := store.Unlike(ctx, models.PlatformNetease, "1"); err != nil {
			t.Fatalf("Unlike failed: %v", err)
		}
		liked, err := store.ListLiked(ctx)
		if err != nil {
			t.Fatalf("ListLiked failed: %v", err)
		}
		if len(liked) != 0 {
			t.Errorf("expected no liked songs, got %d", len(liked))
		}

		// absent unlike is a no-op
		if err := store.Unlike(ctx, models.PlatformNetease, "1"); err != nil {
			t.Errorf("repeat unlike failed: %v", err)
		}
	})
}
