package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/urfave/cli/v3"

	"linmusic/internal/models"
	"linmusic/internal/shared"
)

func parsePlaylistID(cmd *cli.Command) (int64, error) {
	raw := cmd.StringArg("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid playlist id %q", shared.ErrValidation, raw)
	}
	return id, nil
}

func songFromFlags(cmd *cli.Command) models.Song {
	song := models.Song{
		ID:       cmd.String("song"),
		Platform: models.Platform(cmd.String("platform")),
		Name:     cmd.String("name"),
		Artist:   cmd.String("artist"),
		Album:    cmd.String("album"),
		CoverURL: cmd.String("cover"),
	}
	if raw := cmd.String("duration"); raw != "" {
		if seconds, ok := shared.ParseDurationString(raw); ok {
			song.Duration = seconds
		}
	}
	return song
}

// PlaylistList prints all playlists in the library.
func (r *Runner) PlaylistList(ctx context.Context, cmd *cli.Command) error {
	playlists, err := r.store.ListPlaylists(ctx)
	if err != nil {
		return fmt.Errorf("failed to list playlists: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(playlists, true)
	}

	if len(playlists) == 0 {
		return r.writePlain("no playlists\n")
	}
	for _, p := range playlists {
		r.writePlain("%4d  %s (%d songs)\n", p.ID, p.Name, p.SongCount)
	}
	return nil
}

// PlaylistCreate creates an empty playlist.
func (r *Runner) PlaylistCreate(ctx context.Context, cmd *cli.Command) error {
	name := cmd.StringArg("name")
	playlist, err := r.store.CreatePlaylist(ctx, name, cmd.String("description"))
	if err != nil {
		return fmt.Errorf("failed to create playlist: %w", err)
	}

	r.logger.Info("playlist created", "id", playlist.ID, "name", playlist.Name)
	return r.writePlain("created playlist %d: %s\n", playlist.ID, playlist.Name)
}

// PlaylistShow prints one playlist with its entries in play order.
func (r *Runner) PlaylistShow(ctx context.Context, cmd *cli.Command) error {
	id, err := parsePlaylistID(cmd)
	if err != nil {
		return err
	}

	detail, err := r.store.GetPlaylist(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get playlist: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(detail, true)
	}

	r.writePlain("%s (%d songs)\n", detail.Playlist.Name, detail.Playlist.SongCount)
	if detail.Playlist.Description != "" {
		r.writePlain("%s\n", detail.Playlist.Description)
	}
	for i, entry := range detail.Entries {
		r.writePlain("%3d. %s - %s [%s] %s\n",
			i+1, entry.Song.Name, entry.Song.Artist,
			shared.PlatformName(string(entry.Song.Platform)),
			shared.FormatDuration(entry.Song.Duration))
	}
	return nil
}

// PlaylistRename updates a playlist's name.
func (r *Runner) PlaylistRename(ctx context.Context, cmd *cli.Command) error {
	id, err := parsePlaylistID(cmd)
	if err != nil {
		return err
	}

	name := cmd.StringArg("name")
	if err := r.store.UpdatePlaylist(ctx, id, models.PlaylistUpdate{Name: &name}); err != nil {
		return fmt.Errorf("failed to rename playlist: %w", err)
	}
	return r.writePlain("renamed playlist %d to %s\n", id, name)
}

// PlaylistAdd adds a song copy to a playlist.
func (r *Runner) PlaylistAdd(ctx context.Context, cmd *cli.Command) error {
	id, err := parsePlaylistID(cmd)
	if err != nil {
		return err
	}

	result, err := r.store.AddSongToPlaylist(ctx, id, songFromFlags(cmd))
	if err != nil {
		return fmt.Errorf("failed to add song: %w", err)
	}

	if result.Duplicated {
		return r.writePlain("song already in playlist (entry %d)\n", result.EntryID)
	}
	return r.writePlain("added entry %d\n", result.EntryID)
}

// PlaylistRemove removes a song from a playlist by its platform identity.
func (r *Runner) PlaylistRemove(ctx context.Context, cmd *cli.Command) error {
	id, err := parsePlaylistID(cmd)
	if err != nil {
		return err
	}

	platform := models.Platform(cmd.String("platform"))
	songID := cmd.String("song")
	if err := r.store.RemoveSong(ctx, id, platform, songID); err != nil {
		return fmt.Errorf("failed to remove song: %w", err)
	}
	return r.writePlain("removed %s-%s from playlist %d\n", platform, songID, id)
}

// PlaylistDelete deletes a playlist and all of its entries.
func (r *Runner) PlaylistDelete(ctx context.Context, cmd *cli.Command) error {
	id, err := parsePlaylistID(cmd)
	if err != nil {
		return err
	}

	if err := r.store.DeletePlaylist(ctx, id); err != nil {
		return fmt.Errorf("failed to delete playlist: %w", err)
	}
	return r.writePlain("deleted playlist %d\n", id)
}
