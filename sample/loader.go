// SPDX-License-Identifier: EPL-2.0

package sample

import (
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/ik5/gamesnd/audio"
	"github.com/ik5/gamesnd/backend"
)

// LoaderConfig controls how samples are resolved and buffered.
type LoaderConfig struct {
	// Root is the sound directory inside the file system.
	Root string
	// StreamBuffers is the number of buffers a stream keeps queued.
	StreamBuffers int
	// StreamFrames is the size of one stream buffer in frames.
	StreamFrames int
	Logger       *slog.Logger
	// OnUnderrun is called whenever a stream voice ran dry and had to be
	// restarted.
	OnUnderrun func()
}

// Loader turns relative sound paths into opened samples.
type Loader struct {
	fsys     fs.FS
	registry *audio.Registry
	ctx      backend.Context
	cfg      LoaderConfig
	logger   *slog.Logger
}

func NewLoader(fsys fs.FS, registry *audio.Registry, ctx backend.Context, cfg LoaderConfig) *Loader {
	if cfg.Root == "" {
		cfg.Root = DefaultRoot
	}
	if cfg.StreamBuffers <= 0 {
		cfg.StreamBuffers = 4
	}
	if cfg.StreamFrames <= 0 {
		cfg.StreamFrames = 4096
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Loader{
		fsys:     fsys,
		registry: registry,
		ctx:      ctx,
		cfg:      cfg,
		logger:   logger.With("component", "sample"),
	}
}

// New creates an unopened sample of the given kind.
func (l *Loader) New(kind Kind, opts ...Option) (Sample, error) {
	s := defaultSettings()
	for _, opt := range opts {
		opt(&s)
	}

	switch kind {
	case KindStatic:
		return newStatic(l, s), nil
	case KindStream:
		return newStream(l, s), nil
	default:
		return nil, fmt.Errorf("unknown sample kind %s", kind)
	}
}

// Load resolves relativePath under the sound directory, creates a sample
// of the given kind and opens it.
func (l *Loader) Load(relativePath string, kind Kind, opts ...Option) (Sample, error) {
	smp, err := l.New(kind, opts...)
	if err != nil {
		return nil, err
	}

	if err := smp.Open(JoinSoundPath(l.cfg.Root, relativePath)); err != nil {
		_ = smp.Close()
		return nil, err
	}

	return smp, nil
}

// decode opens path and wraps the decoded stream so that it matches the
// context rate, mixed to mono for positional playback.
func (l *Loader) decode(path string, mono bool) (audio.Source, fs.File, error) {
	dec, format, ok := l.registry.ForPath(path)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}

	f, err := l.fsys.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening %s: %w", path, err)
	}

	src, err := dec.Decode(f)
	if err != nil {
		_ = f.Close()
		return nil, nil, fmt.Errorf("decoding %s as %s: %w", path, format, err)
	}

	if mono && src.Channels() > 1 {
		src = audio.NewMonoMixer(src)
	}
	if rate := l.ctx.SampleRate(); src.SampleRate() != rate {
		src = audio.NewResampler(src, rate)
	}

	return src, f, nil
}

func (l *Loader) newVoice(s settings) (backend.Voice, error) {
	if l.ctx == nil {
		return nil, ErrNoContext
	}

	v, err := l.ctx.NewVoice()
	if err != nil {
		return nil, fmt.Errorf("creating voice: %w", err)
	}

	backend.LogError(l.logger, "voice gain", v.SetGain(s.gain))
	if s.positional {
		backend.LogError(l.logger, "voice position", v.SetPosition(s.position))
	} else {
		backend.LogError(l.logger, "voice relative", v.SetRelative(true))
	}

	return v, nil
}
