package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"linmusic/internal/lyrics"
	"linmusic/internal/models"
	"linmusic/internal/shared"
)

// SongSearch searches one platform, or all of them when none is given.
func (r *Runner) SongSearch(ctx context.Context, cmd *cli.Command) error {
	keyword := cmd.StringArg("keyword")
	if keyword == "" {
		return fmt.Errorf("%w: a search keyword is required", shared.ErrValidation)
	}

	var songs []models.Song
	if platform := cmd.String("platform"); platform != "" {
		songs = r.resolver.Search(ctx, keyword, models.Platform(platform), cmd.Int("limit"))
	} else {
		songs = r.resolver.AggregateSearch(ctx, keyword)
	}

	if cmd.Bool("json") {
		return r.writeJSON(songs, true)
	}

	if len(songs) == 0 {
		return r.writePlain("no results\n")
	}
	for _, song := range songs {
		r.writePlain("%s  %s - %s [%s]\n",
			song.Key(), song.Name, song.Artist,
			shared.PlatformName(string(song.Platform)))
	}
	return nil
}

// SongURL prints the stream URL for a song at the requested quality.
func (r *Runner) SongURL(ctx context.Context, cmd *cli.Command) error {
	quality := models.AudioQuality(cmd.String("quality"))
	if quality == "" {
		quality = models.AudioQuality(r.config.Player.Quality)
	}

	platform := models.Platform(cmd.String("platform"))
	url := r.resolver.PlayURL(platform, cmd.String("song"), quality)
	return r.writePlain("%s\n", url)
}

// SongTopList lists a platform's charts, or the songs of one chart when
// --id is given.
func (r *Runner) SongTopList(ctx context.Context, cmd *cli.Command) error {
	platform := models.Platform(cmd.String("platform"))

	if id := cmd.String("id"); id != "" {
		songs := r.resolver.GetTopListSongs(ctx, platform, id)
		if cmd.Bool("json") {
			return r.writeJSON(songs, true)
		}
		if len(songs) == 0 {
			return r.writePlain("no songs\n")
		}
		for _, song := range songs {
			r.writePlain("%s  %s - %s\n", song.Key(), song.Name, song.Artist)
		}
		return nil
	}

	lists := r.resolver.GetTopLists(ctx, platform)
	if cmd.Bool("json") {
		return r.writeJSON(lists, true)
	}
	if len(lists) == 0 {
		return r.writePlain("no charts\n")
	}
	for _, list := range lists {
		if list.UpdateFrequency != "" {
			r.writePlain("%s  %s (%s)\n", list.ID, list.Name, list.UpdateFrequency)
			continue
		}
		r.writePlain("%s  %s\n", list.ID, list.Name)
	}
	return nil
}

// SongLyrics fetches the LRC document for a song and prints it, parsed into
// timestamped lines unless --raw is set.
func (r *Runner) SongLyrics(ctx context.Context, cmd *cli.Command) error {
	platform := models.Platform(cmd.String("platform"))
	text := r.resolver.GetLyrics(ctx, platform, cmd.String("song"))
	if text == "" {
		return r.writePlain("no lyrics\n")
	}

	if cmd.Bool("raw") {
		return r.writePlain("%s\n", text)
	}

	lines := lyrics.Parse(text)
	if len(lines) == 0 {
		return r.writePlain("no synchronized lyrics\n")
	}

	if at := cmd.String("at"); at != "" {
		seconds, ok := shared.ParseDurationString(at)
		if !ok {
			return fmt.Errorf("%w: invalid --at time %q", shared.ErrValidation, at)
		}
		idx := lyrics.ResolveIndex(lines, float64(seconds))
		if idx < 0 {
			return r.writePlain("no line at %s\n", at)
		}
		return r.writePlain("[%s] %s\n", shared.FormatLyricTime(lines[idx].Time), lines[idx].Text)
	}

	for _, line := range lines {
		r.writePlain("[%s] %s\n", shared.FormatLyricTime(line.Time), line.Text)
	}
	return nil
}
