// Package models defines the domain entities shared by the playback engine,
// the lyric synchronizer and the library persistence layer.
//
// The package contains two categories of types:
//
// 1. Song-level records exchanged with upstream platforms:
//   - [Song] : immutable song metadata keyed by (Platform, ID)
//   - [LyricLine] : a single timestamped lyric line
//
// 2. Library entities persisted by the library backends:
//   - [Playlist] : user-curated playlist metadata with derived cover and count
//   - [PlaylistEntry] : a Song copy bound to one Playlist with its own entry
//     identity, sort order and added-at timestamp
//   - [LikedSong] : a Song copy in the order-by-recency liked set
//   - [UserSettings] : on-device player preferences
//
// Library entities store denormalized Song copies taken at add time; later
// upstream metadata changes never mutate stored entries.
package models
