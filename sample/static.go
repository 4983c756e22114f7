// SPDX-License-Identifier: EPL-2.0

package sample

import (
	"fmt"

	"github.com/ik5/gamesnd/audio"
	"github.com/ik5/gamesnd/backend"
)

// Static is a short sound decoded completely into memory when opened and
// played from a single buffer.
type Static struct {
	base

	buffer backend.Buffer
}

func newStatic(l *Loader, s settings) *Static {
	st := &Static{base: newBase(KindStatic, l, s)}
	st.sub = st.SubUpdate
	st.persistent.Store(s.persistent)

	return st
}

func (s *Static) Open(path string) error {
	if err := s.beginOpen(path); err != nil {
		return err
	}

	if err := s.open(path); err != nil {
		s.setState(Finished)
		return err
	}

	return nil
}

func (s *Static) open(path string) error {
	src, f, err := s.loader.decode(path, s.cfg.positional)
	if err != nil {
		return err
	}
	defer f.Close()
	defer src.Close()

	pcm, err := audio.ReadAllPCM16(src, s.loader.cfg.StreamFrames*src.Channels())
	if err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}
	if len(pcm) == 0 {
		return fmt.Errorf("%w: %s", ErrEmptySound, path)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.buffer = backend.Buffer{Data: pcm, Channels: src.Channels(), Rate: src.SampleRate()}

	s.voice, err = s.loader.newVoice(s.cfg)
	if err != nil {
		return err
	}
	if err := s.voice.Queue(s.buffer); err != nil {
		return fmt.Errorf("queueing %s: %w", path, err)
	}

	s.setState(Ready)
	if s.cfg.paused {
		return nil
	}

	return s.start()
}

// requeue puts the whole sound back on the voice and plays it. s.mu must be
// held.
func (s *Static) requeue() error {
	if err := s.voice.Unqueue(s.voice.Processed()); err != nil {
		return fmt.Errorf("unqueueing: %w", err)
	}
	if err := s.voice.Queue(s.buffer); err != nil {
		return fmt.Errorf("requeueing: %w", err)
	}

	return s.start()
}

// SubUpdate finishes the sample once its voice stopped, or restarts it when
// looping.
func (s *Static) SubUpdate() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.State() != Playing || s.voice == nil || s.voice.Playing() {
		return nil
	}

	if s.cfg.looping {
		return s.requeue()
	}

	s.setState(Finished)

	return nil
}

// Play starts an opened sample, or restarts a finished one that is still
// open.
func (s *Static) Play() error {
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
		return s.requeue()
	default:
		return nil
	}
}

func (s *Static) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.stop()
}

func (s *Static) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.releaseVoice()
	s.buffer = backend.Buffer{}
	s.setState(Finished)

	return err
}
