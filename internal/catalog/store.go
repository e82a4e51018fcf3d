// Package catalog implements the server side of the library: a SQLite-backed
// store for playlists, playlist entries and liked songs, plus the JSON/HTTP
// handlers the remote library backend talks to.
package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"linmusic/internal/models"
	"linmusic/internal/shared"
)

// Store persists the catalog in SQLite. It is safe for concurrent use
// because the underlying *sql.DB is concurrency-safe.
type Store struct {
	db *sql.DB
}

// NewStore ensures the schema exists on the given database and returns a
// store over it.
func NewStore(db *sql.DB) (*Store, error) {
	s := &Store{db: db}
	if err := s.createTables(); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return s, nil
}

// createTables creates tables and indices if they do not already exist.
// Idempotent and safe to call multiple times.
func (s *Store) createTables() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS playlists (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			description TEXT,
			cover_url TEXT,
			last_sort_order INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS playlist_songs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			playlist_id INTEGER NOT NULL REFERENCES playlists(id) ON DELETE CASCADE,
			song_id TEXT NOT NULL,
			platform TEXT NOT NULL,
			name TEXT NOT NULL,
			artist TEXT NOT NULL,
			album TEXT,
			duration INTEGER,
			cover_url TEXT,
			sort_order INTEGER NOT NULL,
			added_at DATETIME NOT NULL,
			UNIQUE (playlist_id, song_id, platform)
		)`,
		`CREATE TABLE IF NOT EXISTS liked_songs (
			song_id TEXT NOT NULL,
			platform TEXT NOT NULL,
			name TEXT NOT NULL,
			artist TEXT NOT NULL,
			album TEXT,
			duration INTEGER,
			cover_url TEXT,
			liked_at DATETIME NOT NULL,
			PRIMARY KEY (platform, song_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_playlist_songs_playlist ON playlist_songs(playlist_id, sort_order)`,
		`CREATE INDEX IF NOT EXISTS idx_liked_songs_liked_at ON liked_songs(liked_at)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// derivedCoverExpr yields the effective cover for playlist alias p: the
// explicit cover when set, otherwise the cover of the most recently added
// entry (added_at DESC, sort_order DESC tie-break). Derivation happens at
// read time so entries added out of band are still reflected.
const derivedCoverExpr = `COALESCE(NULLIF(p.cover_url, ''), (
		SELECT cover_url FROM playlist_songs
		WHERE playlist_id = p.id AND cover_url IS NOT NULL AND cover_url != ''
		ORDER BY added_at DESC, sort_order DESC
		LIMIT 1
	), '')`

// ListPlaylists returns all playlists with derived covers and live entry
// counts, ordered by updated_at descending.
func (s *Store) ListPlaylists(ctx context.Context) ([]models.Playlist, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.id, p.name, COALESCE(p.description, ''), `+derivedCoverExpr+`,
		       p.created_at, p.updated_at, COUNT(ps.id)
		FROM playlists p
		LEFT JOIN playlist_songs ps ON p.id = ps.playlist_id
		GROUP BY p.id
		ORDER BY p.updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query playlists: %w", err)
	}
	defer rows.Close()

	var playlists []models.Playlist
	for rows.Next() {
		var p models.Playlist
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.CoverURL, &p.CreatedAt, &p.UpdatedAt, &p.SongCount); err != nil {
			return nil, fmt.Errorf("failed to scan playlist: %w", err)
		}
		playlists = append(playlists, p)
	}
	return playlists, rows.Err()
}

// GetPlaylist returns one playlist with its entries ordered by sort_order
// ascending, added_at descending.
func (s *Store) GetPlaylist(ctx context.Context, id int64) (*models.Playlist, []models.PlaylistEntry, error) {
	var p models.Playlist
	err := s.db.QueryRowContext(ctx, `
		SELECT p.id, p.name, COALESCE(p.description, ''), `+derivedCoverExpr+`,
		       p.created_at, p.updated_at,
		       (SELECT COUNT(*) FROM playlist_songs WHERE playlist_id = p.id)
		FROM playlists p WHERE p.id = ?`, id).
		Scan(&p.ID, &p.Name, &p.Description, &p.CoverURL, &p.CreatedAt, &p.UpdatedAt, &p.SongCount)
	if err == sql.ErrNoRows {
		return nil, nil, shared.NotFoundf("playlist %d", id)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get playlist: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, song_id, platform, name, artist, COALESCE(album, ''),
		       COALESCE(duration, 0), COALESCE(cover_url, ''), sort_order, added_at
		FROM playlist_songs
		WHERE playlist_id = ?
		ORDER BY sort_order ASC, added_at DESC`, id)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query playlist entries: %w", err)
	}
	defer rows.Close()

	var entries []models.PlaylistEntry
	for rows.Next() {
		e := models.PlaylistEntry{PlaylistID: id}
		if err := rows.Scan(&e.EntryID, &e.Song.ID, &e.Song.Platform, &e.Song.Name, &e.Song.Artist,
			&e.Song.Album, &e.Song.Duration, &e.Song.CoverURL, &e.SortOrder, &e.AddedAt); err != nil {
			return nil, nil, fmt.Errorf("failed to scan playlist entry: %w", err)
		}
		entries = append(entries, e)
	}
	return &p, entries, rows.Err()
}

// CreatePlaylist inserts an empty playlist.
func (s *Store) CreatePlaylist(ctx context.Context, name, description string) (*models.Playlist, error) {
	if name == "" {
		return nil, shared.Validationf("playlist name is required")
	}

	now := time.Now().UTC()
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO playlists (name, description, created_at, updated_at)
		VALUES (?, ?, ?, ?)`, name, description, now, now)
	if err != nil {
		return nil, fmt.Errorf("failed to insert playlist: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get playlist id: %w", err)
	}

	return &models.Playlist{
		ID:          id,
		Name:        name,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// UpdatePlaylist applies a partial metadata update and refreshes updated_at.
func (s *Store) UpdatePlaylist(ctx context.Context, id int64, update models.PlaylistUpdate) error {
	if update.Empty() {
		return shared.Validationf("no fields to update")
	}

	query := "UPDATE playlists SET updated_at = ?"
	args := []any{time.Now().UTC()}

	if update.Name != nil {
		query += ", name = ?"
		args = append(args, *update.Name)
	}
	if update.Description != nil {
		query += ", description = ?"
		args = append(args, *update.Description)
	}
	if update.CoverURL != nil {
		query += ", cover_url = ?"
		args = append(args, *update.CoverURL)
	}

	query += " WHERE id = ?"
	args = append(args, id)

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update playlist: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return shared.NotFoundf("playlist %d", id)
	}
	return nil
}

// DeletePlaylist removes a playlist; entries cascade via the foreign key.
// Deleting an unknown id is a no-op success.
func (s *Store) DeletePlaylist(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM playlists WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete playlist: %w", err)
	}
	return nil
}

// AddSong inserts a song copy into a playlist. A (platform, songId) pair
// already present reports duplicated without mutating anything; otherwise
// sort_order comes from the playlist's monotonic counter, which is never
// rewound on deletion.
func (s *Store) AddSong(ctx context.Context, playlistID int64, song models.Song) (entryID int64, duplicated bool, err error) {
	if err := song.Validate(); err != nil {
		return 0, false, shared.Validationf("%v", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var lastSort int
	err = tx.QueryRowContext(ctx, "SELECT last_sort_order FROM playlists WHERE id = ?", playlistID).Scan(&lastSort)
	if err == sql.ErrNoRows {
		return 0, false, shared.NotFoundf("playlist %d", playlistID)
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to check playlist: %w", err)
	}

	var existing int64
	err = tx.QueryRowContext(ctx, `
		SELECT id FROM playlist_songs
		WHERE playlist_id = ? AND song_id = ? AND platform = ?
		LIMIT 1`, playlistID, song.ID, song.Platform).Scan(&existing)
	if err == nil {
		return existing, true, nil
	}
	if err != sql.ErrNoRows {
		return 0, false, fmt.Errorf("failed to check for duplicate: %w", err)
	}

	sortOrder := lastSort + 1
	now := time.Now().UTC()

	result, err := tx.ExecContext(ctx, `
		INSERT INTO playlist_songs (playlist_id, song_id, platform, name, artist, album, duration, cover_url, sort_order, added_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		playlistID, song.ID, song.Platform, song.Name, song.Artist,
		nullString(song.Album), nullInt(song.Duration), nullString(song.CoverURL), sortOrder, now)
	if err != nil {
		return 0, false, fmt.Errorf("failed to insert entry: %w", err)
	}

	entryID, err = result.LastInsertId()
	if err != nil {
		return 0, false, fmt.Errorf("failed to get entry id: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE playlists SET updated_at = ?, last_sort_order = ? WHERE id = ?`,
		now, sortOrder, playlistID); err != nil {
		return 0, false, fmt.Errorf("failed to refresh playlist: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, false, fmt.Errorf("failed to commit: %w", err)
	}
	return entryID, false, nil
}

// RemoveEntry deletes a playlist entry by id and refreshes the owning
// playlist's updated_at.
func (s *Store) RemoveEntry(ctx context.Context, entryID int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var playlistID int64
	err = tx.QueryRowContext(ctx, "SELECT playlist_id FROM playlist_songs WHERE id = ?", entryID).Scan(&playlistID)
	if err == sql.ErrNoRows {
		return shared.NotFoundf("playlist entry %d", entryID)
	}
	if err != nil {
		return fmt.Errorf("failed to resolve entry: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM playlist_songs WHERE id = ?", entryID); err != nil {
		return fmt.Errorf("failed to delete entry: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "UPDATE playlists SET updated_at = ? WHERE id = ?",
		time.Now().UTC(), playlistID); err != nil {
		return fmt.Errorf("failed to refresh playlist: %w", err)
	}

	return tx.Commit()
}

// ListLiked returns liked songs ordered by like-time descending.
func (s *Store) ListLiked(ctx context.Context) ([]models.LikedSong, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT song_id, platform, name, artist, COALESCE(album, ''),
		       COALESCE(duration, 0), COALESCE(cover_url, ''), liked_at
		FROM liked_songs
		ORDER BY liked_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query liked songs: %w", err)
	}
	defer rows.Close()

	var liked []models.LikedSong
	for rows.Next() {
		var l models.LikedSong
		if err := rows.Scan(&l.Song.ID, &l.Song.Platform, &l.Song.Name, &l.Song.Artist,
			&l.Song.Album, &l.Song.Duration, &l.Song.CoverURL, &l.LikedAt); err != nil {
			return nil, fmt.Errorf("failed to scan liked song: %w", err)
		}
		liked = append(liked, l)
	}
	return liked, rows.Err()
}

// Like is an insert-or-replace keyed by (platform, song_id); the newest
// metadata copy wins and liking an already-liked song succeeds.
func (s *Store) Like(ctx context.Context, song models.Song) error {
	if err := song.Validate(); err != nil {
		return shared.Validationf("%v", err)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO liked_songs (song_id, platform, name, artist, album, duration, cover_url, liked_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		song.ID, song.Platform, song.Name, song.Artist,
		nullString(song.Album), nullInt(song.Duration), nullString(song.CoverURL), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to like song: %w", err)
	}
	return nil
}

// Unlike removes a liked song; absence is not an error.
func (s *Store) Unlike(ctx context.Context, platform models.Platform, songID string) error {
	if _, err := s.db.ExecContext(ctx,
		"DELETE FROM liked_songs WHERE platform = ? AND song_id = ?", platform, songID); err != nil {
		return fmt.Errorf("failed to unlike song: %w", err)
	}
	return nil
}

// CheckLiked reports which of the referenced songs are liked, keyed by
// "<platform>-<songId>". Only liked songs appear in the map.
func (s *Store) CheckLiked(ctx context.Context, refs []models.SongRef) (map[string]bool, error) {
	result := make(map[string]bool, len(refs))
	for _, ref := range refs {
		var one int
		err := s.db.QueryRowContext(ctx,
			"SELECT 1 FROM liked_songs WHERE platform = ? AND song_id = ?", ref.Platform, ref.ID).Scan(&one)
		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to check liked song: %w", err)
		}
		result[ref.Key()] = true
	}
	return result, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullInt(n int) any {
	if n == 0 {
		return nil
	}
	return n
}
