package models

import (
	"fmt"
	"time"
)

// Platform identifies an upstream music source. It forms part of a song's
// identity together with the song ID.
type Platform string

const (
	PlatformNetease Platform = "netease"
	PlatformKuwo    Platform = "kuwo"
	PlatformQQ      Platform = "qq"
)

// Valid reports whether p is one of the supported upstream platforms.
func (p Platform) Valid() bool {
	switch p {
	case PlatformNetease, PlatformKuwo, PlatformQQ:
		return true
	}
	return false
}

// PlayMode controls how the sequencer picks the next and previous index.
type PlayMode string

const (
	ModeSequence PlayMode = "sequence"
	ModeLoop     PlayMode = "loop"
	ModeShuffle  PlayMode = "shuffle"
	ModeSingle   PlayMode = "single"
)

// Next cycles sequence -> loop -> shuffle -> single -> sequence.
func (m PlayMode) Next() PlayMode {
	switch m {
	case ModeSequence:
		return ModeLoop
	case ModeLoop:
		return ModeShuffle
	case ModeShuffle:
		return ModeSingle
	default:
		return ModeSequence
	}
}

// AudioQuality selects the upstream stream variant requested from the
// media resolver.
type AudioQuality string

const (
	Quality128k   AudioQuality = "128k"
	Quality320k   AudioQuality = "320k"
	QualityFlac   AudioQuality = "flac"
	QualityFlac24 AudioQuality = "flac24bit"
)

// Song is an immutable song record fetched from an upstream platform.
// Identity is (Platform, ID); everything else is display metadata.
type Song struct {
	ID       string   `json:"id"`
	Platform Platform `json:"platform"`
	Name     string   `json:"name"`
	Artist   string   `json:"artist"`
	Album    string   `json:"album,omitempty"`
	Duration int      `json:"duration,omitempty"` // seconds
	CoverURL string   `json:"coverUrl,omitempty"`
}

// Key returns the "<platform>-<songId>" identity key used by the liked-songs
// wire contract. Song IDs may themselves contain '-', so the platform is
// always the segment before the first dash.
func (s Song) Key() string {
	return fmt.Sprintf("%s-%s", s.Platform, s.ID)
}

// Validate checks the fields the backends require before persisting a copy.
func (s Song) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("song id is required")
	}
	if !s.Platform.Valid() {
		return fmt.Errorf("unknown platform %q", s.Platform)
	}
	if s.Name == "" {
		return fmt.Errorf("song name is required")
	}
	if s.Artist == "" {
		return fmt.Errorf("song artist is required")
	}
	return nil
}

// Playlist is user-curated playlist metadata. SongCount is the live count of
// entries and CoverURL falls back to the cover of the most recently added
// entry when no explicit cover has been set.
type Playlist struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CoverURL    string    `json:"coverUrl,omitempty"`
	SongCount   int       `json:"songCount"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// PlaylistEntry associates a Song copy with a specific Playlist. EntryID is
// distinct from the Song identity; SortOrder is allocated max+1 per playlist
// and never reused after deletion.
type PlaylistEntry struct {
	EntryID    int64     `json:"playlistSongId"`
	PlaylistID int64     `json:"playlistId"`
	Song       Song      `json:"song"`
	SortOrder  int       `json:"sortOrder"`
	AddedAt    time.Time `json:"addedAt"`
}

// LikedSong is a Song copy in the liked set, ordered by LikedAt descending.
type LikedSong struct {
	Song    Song      `json:"song"`
	LikedAt time.Time `json:"likedAt"`
}

// LyricLine is a single parsed lyric line. A lyric document is a sequence of
// lines sorted ascending by Time; multiple lines may share the same Time.
type LyricLine struct {
	Time float64 `json:"time"` // seconds
	Text string  `json:"text"`
}

// UserSettings are the on-device player preferences persisted by the local
// library backend.
type UserSettings struct {
	AudioQuality    AudioQuality `json:"audioQuality"`
	Crossfade       int          `json:"crossfade"`
	GaplessPlayback bool         `json:"gaplessPlayback"`
	AutoPlay        bool         `json:"autoPlay"`
	Theme           string       `json:"theme"`
	Language        string       `json:"language"`
}

// DefaultSettings returns the settings a fresh install starts with.
func DefaultSettings() UserSettings {
	return UserSettings{
		AudioQuality:    Quality320k,
		GaplessPlayback: true,
		Theme:           "dark",
		Language:        "zh-CN",
	}
}

// PlaylistUpdate is a partial update for playlist metadata. Nil fields are
// left untouched; at least one field must be set.
type PlaylistUpdate struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	CoverURL    *string `json:"coverUrl,omitempty"`
}

// Empty reports whether no field is supplied.
func (u PlaylistUpdate) Empty() bool {
	return u.Name == nil && u.Description == nil && u.CoverURL == nil
}

// SongRef identifies a song without metadata, used for batch liked checks.
type SongRef struct {
	ID       string   `json:"id"`
	Platform Platform `json:"platform"`
}

// Key returns the "<platform>-<songId>" identity key for the reference.
func (r SongRef) Key() string {
	return fmt.Sprintf("%s-%s", r.Platform, r.ID)
}
