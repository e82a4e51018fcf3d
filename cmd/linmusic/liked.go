package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"linmusic/internal/models"
	"linmusic/internal/shared"
)

// LikedList prints the liked songs, newest first.
func (r *Runner) LikedList(ctx context.Context, cmd *cli.Command) error {
	liked, err := r.store.ListLiked(ctx)
	if err != nil {
		return fmt.Errorf("failed to list liked songs: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(liked, true)
	}

	if len(liked) == 0 {
		return r.writePlain("no liked songs\n")
	}
	for _, l := range liked {
		r.writePlain("%s  %s - %s [%s]\n",
			l.Song.Key(), l.Song.Name, l.Song.Artist,
			shared.PlatformName(string(l.Song.Platform)))
	}
	return nil
}

// LikedAdd likes a song; re-liking refreshes its stored metadata.
func (r *Runner) LikedAdd(ctx context.Context, cmd *cli.Command) error {
	song := songFromFlags(cmd)
	if err := r.store.LikeSong(ctx, song); err != nil {
		return fmt.Errorf("failed to like song: %w", err)
	}
	return r.writePlain("liked %s\n", song.Key())
}

// LikedRemove unlikes a song by its combined key.
func (r *Runner) LikedRemove(ctx context.Context, cmd *cli.Command) error {
	key := cmd.StringArg("key")
	platform, songID, err := shared.SplitLikedKey(key)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrValidation, err)
	}

	if err := r.store.UnlikeSong(ctx, models.Platform(platform), songID); err != nil {
		return fmt.Errorf("failed to unlike song: %w", err)
	}
	return r.writePlain("unliked %s\n", key)
}

// LikedCheck reports which of the given keys are liked.
func (r *Runner) LikedCheck(ctx context.Context, cmd *cli.Command) error {
	keys := cmd.StringArgs("keys")

	refs := make([]models.SongRef, 0, len(keys))
	for _, key := range keys {
		platform, songID, err := shared.SplitLikedKey(key)
		if err != nil {
			return fmt.Errorf("%w: %v", shared.ErrValidation, err)
		}
		refs = append(refs, models.SongRef{ID: songID, Platform: models.Platform(platform)})
	}

	result, err := r.store.CheckLiked(ctx, refs)
	if err != nil {
		return fmt.Errorf("failed to check liked songs: %w", err)
	}

	for _, ref := range refs {
		state := "not liked"
		if result[ref.Key()] {
			state = "liked"
		}
		r.writePlain("%s  %s\n", ref.Key(), state)
	}
	return nil
}
