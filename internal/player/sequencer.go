// Package player implements the playback sequencing engine: it owns the
// current song, playlist order, play mode, volume and position, and decides
// which index plays next. Audio output itself lives elsewhere; the sequencer
// only notifies a single registered seek handler.
package player

import (
	"math/rand"
	"sync"
	"time"

	"linmusic/internal/models"
)

// SeekFunc receives the clamped seek position in seconds. The audio layer
// registers one via [Sequencer.SetSeekHandler].
type SeekFunc func(seconds float64)

// State is a copyable snapshot of the sequencer for rendering.
type State struct {
	Song        *models.Song
	Index       int
	Mode        models.PlayMode
	CurrentTime float64
	Duration    float64
	Volume      float64
	IsPlaying   bool
	QueueLen    int
}

// Sequencer tracks the playback queue and navigation state. Navigation is
// pure index arithmetic over the in-memory list so it needs no I/O; the only
// randomness (shuffle) comes from an injected source so tests stay
// deterministic.
type Sequencer struct {
	mu sync.Mutex

	playlist    []models.Song
	index       int
	mode        models.PlayMode
	currentTime float64
	duration    float64
	volume      float64
	playing     bool

	// single-slot handler, last registration wins
	seek SeekFunc

	rng *rand.Rand
}

// NewSequencer creates a sequencer with an empty queue, sequence mode and the
// given initial volume (clamped to [0,1]).
func NewSequencer(volume float64) *Sequencer {
	return NewSequencerWithSource(volume, rand.NewSource(time.Now().UnixNano()))
}

// NewSequencerWithSource creates a sequencer using the provided random source
// for shuffle draws.
func NewSequencerWithSource(volume float64, src rand.Source) *Sequencer {
	return &Sequencer{
		index:  -1,
		mode:   models.ModeSequence,
		volume: clamp01(volume),
		rng:    rand.New(src),
	}
}

// SetPlaylist replaces the queue and resets navigation.
func (s *Sequencer) SetPlaylist(songs []models.Song) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.playlist = append([]models.Song(nil), songs...)
	s.index = -1
	s.playing = false
	s.currentTime = 0
	s.duration = 0
}

// Enqueue appends songs to the queue without touching the current position.
func (s *Sequencer) Enqueue(songs ...models.Song) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.playlist = append(s.playlist, songs...)
}

// PlayAt starts playback at the given index. Out-of-range indices are
// ignored.
func (s *Sequencer) PlayAt(index int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.playAtLocked(index)
}

func (s *Sequencer) playAtLocked(index int) {
	if index < 0 || index >= len(s.playlist) {
		return
	}
	s.index = index
	s.currentTime = 0
	s.duration = float64(s.playlist[index].Duration)
	s.playing = true
}

// PlayNext advances according to the play mode. No-op on an empty queue.
func (s *Sequencer) PlayNext() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.playlist) == 0 {
		return
	}

	var next int
	switch s.mode {
	case models.ModeShuffle:
		next = s.randomIndexLocked(s.index)
	case models.ModeSingle:
		next = s.index
	default:
		// loop behaves like sequence here; the audio layer restarts the
		// track on end-of-stream in loop mode
		next = (s.index + 1) % len(s.playlist)
	}

	s.playAtLocked(next)
}

// PlayPrev steps back according to the play mode, wrapping to the last index
// from the front. No-op on an empty queue.
func (s *Sequencer) PlayPrev() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.playlist) == 0 {
		return
	}

	var prev int
	switch s.mode {
	case models.ModeShuffle:
		prev = s.randomIndexLocked(s.index)
	case models.ModeSingle:
		prev = s.index
	default:
		prev = s.index - 1
		if prev < 0 {
			prev = len(s.playlist) - 1
		}
	}

	s.playAtLocked(prev)
}

// randomIndexLocked draws a uniform index avoiding exclude. Draws repeating
// the excluded index are retried up to 8 times, then the draw falls back to
// the deterministic (exclude+1) mod n so degenerate queues cannot spin.
func (s *Sequencer) randomIndexLocked(exclude int) int {
	count := len(s.playlist)
	if count <= 1 {
		return 0
	}

	index := s.rng.Intn(count)
	if exclude < 0 {
		return index
	}

	for guard := 0; index == exclude && guard < 8; guard++ {
		index = s.rng.Intn(count)
	}
	if index == exclude {
		index = (exclude + 1) % count
	}
	return index
}

// TogglePlayMode cycles sequence -> loop -> shuffle -> single -> sequence and
// returns the new mode.
func (s *Sequencer) TogglePlayMode() models.PlayMode {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.mode = s.mode.Next()
	return s.mode
}

// SetMode sets the play mode directly.
func (s *Sequencer) SetMode(mode models.PlayMode) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.mode = mode
}

// TogglePlay flips the playing flag. No-op when nothing is loaded.
func (s *Sequencer) TogglePlay() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.index < 0 || s.index >= len(s.playlist) {
		return
	}
	s.playing = !s.playing
}

// SetVolume clamps v to [0,1] and applies it.
func (s *Sequencer) SetVolume(v float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.volume = clamp01(v)
}

// SetSeekHandler registers the seek callback. There is exactly one live
// handler per session: re-registration silently replaces the prior one.
// A nil handler clears the slot.
func (s *Sequencer) SetSeekHandler(fn SeekFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seek = fn
}

// SeekTo clamps t to [0, duration], records it as the current position and
// invokes the registered seek handler with the clamped value.
func (s *Sequencer) SeekTo(t float64) {
	s.mu.Lock()

	if t < 0 {
		t = 0
	}
	if t > s.duration {
		t = s.duration
	}
	s.currentTime = t
	fn := s.seek

	s.mu.Unlock()

	if fn != nil {
		fn(t)
	}
}

// UpdateTime records the position reported by the audio source's time-update
// signal. Duration is refreshed too since streams may only report it after
// metadata loads.
func (s *Sequencer) UpdateTime(current, duration float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.currentTime = current
	if duration > 0 {
		s.duration = duration
	}
}

// Current returns the loaded song, or false when nothing is loaded.
func (s *Sequencer) Current() (models.Song, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.index < 0 || s.index >= len(s.playlist) {
		return models.Song{}, false
	}
	return s.playlist[s.index], true
}

// State returns a snapshot safe to hand to rendering code.
func (s *Sequencer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := State{
		Index:       s.index,
		Mode:        s.mode,
		CurrentTime: s.currentTime,
		Duration:    s.duration,
		Volume:      s.volume,
		IsPlaying:   s.playing,
		QueueLen:    len(s.playlist),
	}
	if s.index >= 0 && s.index < len(s.playlist) {
		song := s.playlist[s.index]
		st.Song = &song
	}
	return st
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
