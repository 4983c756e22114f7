// SPDX-License-Identifier: EPL-2.0

package sample

// Option tweaks a sample before it is opened.
type Option func(*settings)

type settings struct {
	persistent bool
	looping    bool
	paused     bool
	gain       float32
	positional bool
	position   [3]float32
}

func defaultSettings() settings {
	return settings{gain: 1}
}

// WithPersistent keeps the sample in the engine after it finishes so it can
// be played again.
func WithPersistent() Option {
	return func(s *settings) { s.persistent = true }
}

// WithLooping restarts playback from the beginning whenever the sound ends.
func WithLooping() Option {
	return func(s *settings) { s.looping = true }
}

// WithPaused opens the sample without starting playback.
func WithPaused() Option {
	return func(s *settings) { s.paused = true }
}

func WithGain(gain float32) Option {
	return func(s *settings) { s.gain = gain }
}

// WithPosition places the sample in the world. Positional samples are mixed
// down to mono.
func WithPosition(pos [3]float32) Option {
	return func(s *settings) {
		s.positional = true
		s.position = pos
	}
}
