// SPDX-License-Identifier: EPL-2.0

package sample

import (
	"errors"
	"fmt"
	"io"
	"io/fs"

	"github.com/ik5/gamesnd/audio"
	"github.com/ik5/gamesnd/backend"
)

// Stream decodes its sound incrementally. It keeps the file open for as long
// as it plays and refills the voice one buffer at a time.
type Stream struct {
	base

	src     audio.Source
	file    fs.File
	scratch []float32
	slots   [][]int16
	next    int
	eof     bool
}

func newStream(l *Loader, s settings) *Stream {
	st := &Stream{
		base:  newBase(KindStream, l, s),
		slots: make([][]int16, l.cfg.StreamBuffers),
	}
	st.sub = st.SubUpdate
	st.persistent.Store(s.persistent)

	return st
}

func (s *Stream) Open(path string) error {
	if err := s.beginOpen(path); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.open(path); err != nil {
		s.setState(Finished)
		return err
	}

	return nil
}

func (s *Stream) open(path string) error {
	var err error

	s.src, s.file, err = s.loader.decode(path, s.cfg.positional)
	if err != nil {
		return err
	}

	s.voice, err = s.loader.newVoice(s.cfg)
	if err != nil {
		return err
	}

	if err := s.prime(); err != nil {
		return err
	}
	if s.voice.Queued() == 0 {
		return fmt.Errorf("%w: %s", ErrEmptySound, path)
	}

	s.setState(Ready)
	if s.cfg.paused {
		return nil
	}

	return s.start()
}

// prime fills every buffer slot. s.mu must be held.
func (s *Stream) prime() error {
	for range s.slots {
		ok, err := s.fill()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
	}

	return nil
}

// rewind reopens the sound from its beginning. s.mu must be held.
func (s *Stream) rewind() error {
	if err := s.closeSource(); err != nil {
		s.logger.Debug("closing stream before rewind", "error", err)
	}

	var err error
	s.src, s.file, err = s.loader.decode(s.path, s.cfg.positional)
	if err != nil {
		return fmt.Errorf("rewinding: %w", err)
	}
	s.eof = false

	return nil
}

// fill decodes the next chunk and queues it. It reports false when the sound
// is exhausted. s.mu must be held.
func (s *Stream) fill() (bool, error) {
	if s.eof || s.src == nil {
		return false, nil
	}

	channels := s.src.Channels()
	want := s.loader.cfg.StreamFrames * channels
	if cap(s.scratch) < want {
		s.scratch = make([]float32, want)
	}
	s.scratch = s.scratch[:want]

	total := 0
	rewound := false

	for total < want {
		n, err := s.src.ReadSamples(s.scratch[total:])
		total += n

		if errors.Is(err, io.EOF) {
			// a loop over a sound that yields nothing must not spin
			if !s.cfg.looping || (rewound && n == 0) {
				s.eof = true
				break
			}
			if err := s.rewind(); err != nil {
				return false, err
			}
			rewound = true
			continue
		}
		if err != nil {
			return false, fmt.Errorf("decoding %s: %w", s.path, err)
		}
		if n == 0 {
			break
		}
		rewound = false
	}

	total -= total % channels
	if total == 0 {
		return false, nil
	}

	slot := audio.ToPCM16(s.slots[s.next], s.scratch[:total])
	s.slots[s.next] = slot
	s.next = (s.next + 1) % len(s.slots)

	buf := backend.Buffer{Data: slot, Channels: channels, Rate: s.src.SampleRate()}
	if err := s.voice.Queue(buf); err != nil {
		return false, fmt.Errorf("queueing stream buffer: %w", err)
	}

	return true, nil
}

// SubUpdate recycles processed buffers, restarts the voice after an underrun
// and finishes the stream once the sound is exhausted and fully played.
func (s *Stream) SubUpdate() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.State() != Playing || s.voice == nil {
		return nil
	}

	if n := s.voice.Processed(); n > 0 {
		if err := s.voice.Unqueue(n); err != nil {
			return fmt.Errorf("unqueueing stream buffers: %w", err)
		}

		for range n {
			ok, err := s.fill()
			if err != nil {
				return err
			}
			if !ok {
				break
			}
		}
	}

	if s.voice.Playing() {
		return nil
	}

	if s.voice.Queued() > 0 {
		if f := s.loader.cfg.OnUnderrun; f != nil {
			f()
		}
		return s.start()
	}

	if s.eof {
		s.setState(Finished)
	}

	return nil
}

// Play starts an opened stream, or replays a finished one from the start.
func (s *Stream) Play() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.voice == nil {
		return ErrNotOpen
	}

	switch s.State() {
	case Ready:
		return s.start()
	case Finished:
		if err := s.voice.Stop(); err != nil {
			return fmt.Errorf("stopping voice: %w", err)
		}
		if err := s.voice.Unqueue(s.voice.Processed()); err != nil {
			return fmt.Errorf("unqueueing: %w", err)
		}
		if err := s.rewind(); err != nil {
			return err
		}
		if err := s.prime(); err != nil {
			return err
		}
		return s.start()
	default:
		return nil
	}
}

func (s *Stream) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.stop()
}

// closeSource releases the decoder and the file handle. s.mu must be held.
func (s *Stream) closeSource() error {
	var errs []error

	if s.src != nil {
		errs = append(errs, s.src.Close())
		s.src = nil
	}
	if s.file != nil {
		errs = append(errs, s.file.Close())
		s.file = nil
	}

	return errors.Join(errs...)
}

// Close stops the voice before the file handle goes away.
func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := errors.Join(s.releaseVoice(), s.closeSource())
	s.setState(Finished)

	return err
}
