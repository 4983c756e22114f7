// SPDX-License-Identifier: EPL-2.0

package sample

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ik5/gamesnd/backend"
)

// base carries what every variant shares. sub is the variant's SubUpdate,
// set at construction so Update can dispatch to it.
type base struct {
	kind   Kind
	loader *Loader
	logger *slog.Logger
	sub    func() error

	state      atomic.Int32
	persistent atomic.Bool

	mu      sync.Mutex
	path    string
	cfg     settings
	voice   backend.Voice
	elapsed time.Duration
}

func newBase(kind Kind, l *Loader, s settings) base {
	return base{
		kind:   kind,
		loader: l,
		logger: l.logger.With("kind", kind.String()),
		cfg:    s,
	}
}

func (b *base) State() State       { return State(b.state.Load()) }
func (b *base) setState(s State)   { b.state.Store(int32(s)) }
func (b *base) Kind() Kind         { return b.kind }
func (b *base) IsFinished() bool   { return b.State() == Finished }
func (b *base) IsPersistent() bool { return b.persistent.Load() }

func (b *base) SetPersistent(persistent bool) { b.persistent.Store(persistent) }

// IsReady reports whether the sample is opened and may be updated.
func (b *base) IsReady() bool {
	s := b.State()
	return s == Ready || s == Playing
}

func (b *base) FileName() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.path
}

// FileNameEquals compares path, with backslashes normalised, against the
// path the sample was opened with.
func (b *base) FileNameEquals(path string) bool {
	return b.FileName() == strings.ReplaceAll(path, `\`, "/")
}

// Elapsed is the total time the sample has been updated for.
func (b *base) Elapsed() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.elapsed
}

func (b *base) beginOpen(path string) error {
	if !b.state.CompareAndSwap(int32(Unopened), int32(Opening)) {
		return ErrAlreadyOpen
	}

	b.mu.Lock()
	b.path = path
	b.mu.Unlock()

	b.logger = b.logger.With("path", path)

	return nil
}

func (b *base) Update(dt time.Duration) {
	b.mu.Lock()
	b.elapsed += dt
	b.mu.Unlock()

	if err := b.sub(); err != nil {
		b.logger.Warn("sample update failed, finishing it", "error", err)
		b.setState(Finished)
	}
}

func (b *base) SetGain(gain float32) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.cfg.gain = gain
	if b.voice == nil {
		return nil
	}

	return b.voice.SetGain(gain)
}

func (b *base) SetPosition(pos [3]float32) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.cfg.position = pos
	if b.voice == nil {
		return nil
	}

	return b.voice.SetPosition(pos)
}

func (b *base) SetLooping(looping bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.cfg.looping = looping
}

// start begins playback of an opened sample. b.mu must be held.
func (b *base) start() error {
	if err := b.voice.Play(); err != nil {
		return fmt.Errorf("starting voice: %w", err)
	}
	b.setState(Playing)

	return nil
}

// stop halts the voice and finishes the sample. b.mu must be held.
func (b *base) stop() error {
	var err error
	if b.voice != nil {
		err = b.voice.Stop()
	}
	if b.IsReady() {
		b.setState(Finished)
	}

	return err
}

// releaseVoice stops and deletes the voice. b.mu must be held.
func (b *base) releaseVoice() error {
	if b.voice == nil {
		return nil
	}

	v := b.voice
	b.voice = nil

	return errors.Join(v.Stop(), v.Delete())
}
