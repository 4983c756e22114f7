// SPDX-License-Identifier: EPL-2.0

package gamesnd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ik5/gamesnd/audio"
	"github.com/ik5/gamesnd/backend/otobackend"
	"github.com/ik5/gamesnd/config"
	"github.com/ik5/gamesnd/engine"
	"github.com/ik5/gamesnd/formats/aiff"
	"github.com/ik5/gamesnd/formats/mp3"
	"github.com/ik5/gamesnd/formats/vorbis"
	"github.com/ik5/gamesnd/formats/wav"
	"github.com/ik5/gamesnd/metrics"
)

// NewRegistry returns a registry holding every decoder shipped with the
// module.
func NewRegistry() *audio.Registry {
	r := audio.NewRegistry()
	r.Register("wav", wav.Decoder{})
	r.Register("ogg", vorbis.Decoder{})
	r.Register("mp3", mp3.Decoder{})
	r.Register("aiff", aiff.Decoder{})
	r.Register("aif", aiff.Decoder{})

	return r
}

// NewLogger returns a text logger writing to w at the configured level.
func NewLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	level, err := cfg.LogLevel()
	if err != nil {
		level = slog.LevelInfo
	}

	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

type Options struct {
	Logger *slog.Logger
	// Registerer receives the engine metrics; nil disables them.
	Registerer prometheus.Registerer
	Listener   engine.ListenerProvider
}

// New builds an uninitialized engine that plays through oto and loads sounds
// from the configured game directory.
func New(cfg *config.Config, opts Options) (*engine.Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var m *metrics.Metrics
	if opts.Registerer != nil {
		var err error
		if m, err = metrics.New(opts.Registerer); err != nil {
			return nil, fmt.Errorf("registering metrics: %w", err)
		}
	}

	b := otobackend.New(otobackend.Options{
		SampleRate: cfg.Device.SampleRate,
		BufferSize: cfg.Device.BufferSize,
		Logger:     logger,
	})

	return engine.New(b, engine.Options{
		Logger:        logger,
		Metrics:       m,
		Listener:      opts.Listener,
		DeviceName:    cfg.Device.Name,
		FS:            os.DirFS(cfg.Sound.GameDir),
		Registry:      NewRegistry(),
		SoundRoot:     cfg.Sound.Root,
		SpeedOfSound:  cfg.Listener.SpeedOfSound,
		MetersPerUnit: cfg.Listener.MetersPerUnit,
		IdleSleep:     cfg.Worker.IdleSleep,
		StreamBuffers: cfg.Stream.Buffers,
		StreamFrames:  cfg.Stream.BufferFrames,
	}), nil
}
