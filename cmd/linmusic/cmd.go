// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// setupCommand handles configuration bootstrap.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:  "config",
				Usage: "Write a starter config.toml",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Path for the generated config file",
						Value:   "config.toml",
					},
				},
				Action: r.SetupConfig,
			},
		},
	}
}

// playlistCommand handles playlist operations against the active library backend.
func playlistCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "playlist",
		Aliases: []string{"pl"},
		Usage:   "Manage playlists",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List playlists",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.PlaylistList,
			},
			{
				Name:  "create",
				Usage: "Create a playlist",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "name"},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "description",
						Usage: "Playlist description",
					},
				},
				Action: r.PlaylistCreate,
			},
			{
				Name:  "show",
				Usage: "Show a playlist and its songs",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.PlaylistShow,
			},
			{
				Name:  "rename",
				Usage: "Rename a playlist",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
					&cli.StringArg{Name: "name"},
				},
				Action: r.PlaylistRename,
			},
			{
				Name:  "add",
				Usage: "Add a song to a playlist",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "song",
						Usage:    "Song ID on the platform",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "platform",
						Usage: "Source platform (netease, kuwo, qq)",
						Value: "netease",
					},
					&cli.StringFlag{
						Name:     "name",
						Usage:    "Song name",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "artist",
						Usage:    "Song artist",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "album",
						Usage: "Song album",
					},
					&cli.StringFlag{
						Name:  "duration",
						Usage: "Track length (m:ss or seconds)",
					},
					&cli.StringFlag{
						Name:  "cover",
						Usage: "Cover image URL",
					},
				},
				Action: r.PlaylistAdd,
			},
			{
				Name:  "remove",
				Usage: "Remove a song from a playlist",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "song",
						Usage:    "Song ID on the platform",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "platform",
						Usage: "Source platform (netease, kuwo, qq)",
						Value: "netease",
					},
				},
				Action: r.PlaylistRemove,
			},
			{
				Name:  "delete",
				Usage: "Delete a playlist and its songs",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Action: r.PlaylistDelete,
			},
		},
	}
}

// likedCommand handles the liked-songs collection.
func likedCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "liked",
		Usage: "Manage liked songs",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List liked songs, newest first",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.LikedList,
			},
			{
				Name:  "add",
				Usage: "Like a song",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "song",
						Usage:    "Song ID on the platform",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "platform",
						Usage: "Source platform (netease, kuwo, qq)",
						Value: "netease",
					},
					&cli.StringFlag{
						Name:     "name",
						Usage:    "Song name",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "artist",
						Usage:    "Song artist",
						Required: true,
					},
				},
				Action: r.LikedAdd,
			},
			{
				Name:  "remove",
				Usage: "Unlike a song by <platform>-<songId> key",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "key"},
				},
				Action: r.LikedRemove,
			},
			{
				Name:  "check",
				Usage: "Check whether songs are liked by <platform>-<songId> keys",
				Arguments: []cli.Argument{
					&cli.StringArgs{Name: "keys", Min: 1, Max: -1},
				},
				Action: r.LikedCheck,
			},
		},
	}
}

// songCommand handles upstream song lookup through the resolver.
func songCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "song",
		Usage: "Search and resolve songs from the upstream platforms",
		Commands: []*cli.Command{
			{
				Name:  "search",
				Usage: "Search for songs",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "keyword"},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "platform",
						Usage: "Single platform to search; all platforms when omitted",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum results for a single-platform search",
						Value: 20,
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.SongSearch,
			},
			{
				Name:  "url",
				Usage: "Print the stream URL for a song",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "song",
						Usage:    "Song ID on the platform",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "platform",
						Usage: "Source platform (netease, kuwo, qq)",
						Value: "netease",
					},
					&cli.StringFlag{
						Name:  "quality",
						Usage: "Stream quality (128k, 320k, flac, flac24bit)",
					},
				},
				Action: r.SongURL,
			},
			{
				Name:  "toplist",
				Usage: "List a platform's charts, or the songs of one chart",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "platform",
						Usage: "Source platform (netease, kuwo, qq)",
						Value: "netease",
					},
					&cli.StringFlag{
						Name:  "id",
						Usage: "Chart ID; lists the chart index when omitted",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.SongTopList,
			},
			{
				Name:  "lyrics",
				Usage: "Fetch and print synchronized lyrics",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "song",
						Usage:    "Song ID on the platform",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "platform",
						Usage: "Source platform (netease, kuwo, qq)",
						Value: "netease",
					},
					&cli.BoolFlag{
						Name:  "raw",
						Usage: "Print the raw LRC text instead of parsed lines",
					},
					&cli.StringFlag{
						Name:  "at",
						Usage: "Print only the line active at this playback time (m:ss)",
					},
				},
				Action: r.SongLyrics,
			},
		},
	}
}

// serveCommand runs the embeddable catalog server.
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the catalog server for remote library backends",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Usage: "Listen host",
			},
			&cli.IntFlag{
				Name:  "port",
				Usage: "Listen port",
			},
			&cli.StringFlag{
				Name:  "db",
				Usage: "SQLite database path",
			},
		},
		Action: r.Serve,
	}
}
