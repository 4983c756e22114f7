// SPDX-License-Identifier: EPL-2.0

package otobackend

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/ik5/gamesnd/backend"
)

const (
	outputChannels = 2
	bytesPerFrame  = outputChannels * 2
)

// Options configure the shared oto context. Only the options of the first
// OpenDevice call in a process take effect, oto allows a single context.
type Options struct {
	SampleRate int
	BufferSize time.Duration
	Logger     *slog.Logger
}

// Backend renders voices through github.com/ebitengine/oto/v3.
type Backend struct {
	opts   Options
	logger *slog.Logger
}

var (
	sharedOnce sync.Once
	sharedCtx  *oto.Context
	sharedRate int
	sharedErr  error
)

func New(opts Options) *Backend {
	if opts.SampleRate <= 0 {
		opts.SampleRate = 44100
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Backend{
		opts:   opts,
		logger: logger.With("component", "otobackend"),
	}
}

func (b *Backend) sharedContext() (*oto.Context, int, error) {
	sharedOnce.Do(func() {
		var ready chan struct{}
		sharedCtx, ready, sharedErr = oto.NewContext(&oto.NewContextOptions{
			SampleRate:   b.opts.SampleRate,
			ChannelCount: outputChannels,
			Format:       oto.FormatSignedInt16LE,
			BufferSize:   b.opts.BufferSize,
		})
		if sharedErr == nil {
			<-ready
			sharedRate = b.opts.SampleRate
		}
	})

	return sharedCtx, sharedRate, sharedErr
}

// OpenDevice opens the default output. oto exposes no device selection, so a
// non-empty name fails.
func (b *Backend) OpenDevice(name string) (backend.Device, error) {
	if name != "" {
		return nil, fmt.Errorf("%w: %q", backend.ErrNoDevice, name)
	}

	ctx, rate, err := b.sharedContext()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", backend.ErrNoDevice, err)
	}

	if rate != b.opts.SampleRate {
		b.logger.Warn("oto context already running at another rate",
			"requested", b.opts.SampleRate,
			"rate", rate)
	}

	if err := ctx.Resume(); err != nil {
		return nil, fmt.Errorf("%w: resuming output: %w", backend.ErrNoDevice, err)
	}

	return &device{
		oto:    ctx,
		rate:   rate,
		logger: b.logger,
	}, nil
}

type device struct {
	oto    *oto.Context
	rate   int
	logger *slog.Logger

	mu      sync.Mutex
	current *renderContext
	closed  bool
}

func (d *device) HasExtension(string) bool { return false }
func (d *device) MaxAuxiliarySends() int   { return 0 }

func (d *device) CreateContext() (backend.Context, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil, backend.InvalidOperation
	}

	c := &renderContext{
		dev:           d,
		voices:        make(map[*voice]struct{}),
		speedOfSound:  343.3,
		metersPerUnit: 1,
	}
	c.listenerGain.Store(1)

	return c, nil
}

func (d *device) makeCurrent(c *renderContext) {
	d.mu.Lock()
	d.current = c
	d.mu.Unlock()
}

func (d *device) isCurrent(c *renderContext) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.current == c
}

// Close suspends the shared oto context; the next OpenDevice resumes it.
func (d *device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return backend.InvalidOperation
	}
	d.closed = true
	d.current = nil

	if err := d.oto.Suspend(); err != nil {
		return fmt.Errorf("suspending output: %w", err)
	}

	return nil
}
