// SPDX-License-Identifier: EPL-2.0

// Command sndplay plays sound files through the game sound engine, driving
// it with a fixed rate frame loop the way a game client does.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/profile"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/ik5/gamesnd"
	"github.com/ik5/gamesnd/config"
	"github.com/ik5/gamesnd/engine"
	"github.com/ik5/gamesnd/sample"
)

type flags struct {
	config      string
	gameDir     string
	stream      bool
	loop        bool
	fps         int
	volume      float32
	profile     string
	metricsAddr string
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var f flags

	cmd := &cobra.Command{
		Use:          "sndplay [flags] file...",
		Short:        "Play sounds through the game sound engine",
		Long:         "Play sounds through the game sound engine. Files are relative to the sound directory of the game directory.",
		Args:         cobra.MinimumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), f, args)
		},
	}

	fl := cmd.Flags()
	fl.StringVarP(&f.config, "config", "c", "", "config file (default: ./gamesnd.yaml when present)")
	fl.StringVar(&f.gameDir, "game-dir", "", "game directory holding the sound directory")
	fl.BoolVar(&f.stream, "stream", false, "stream the files instead of loading them whole")
	fl.BoolVar(&f.loop, "loop", false, "loop until interrupted")
	fl.IntVar(&f.fps, "fps", 60, "frame rate of the update loop")
	fl.Float32Var(&f.volume, "volume", 1, "master volume")
	fl.StringVar(&f.profile, "profile", "", "write a cpu or mem profile to the working directory")
	fl.StringVar(&f.metricsAddr, "metrics-addr", "", "serve prometheus metrics on this address")

	return cmd
}

// masterVolume is a listener provider without a local player.
type masterVolume float32

func (masterVolume) Listener() (engine.Listener, bool) { return engine.Listener{}, false }
func (v masterVolume) Volume() float32                 { return float32(v) }

func startProfile(mode string) (interface{ Stop() }, error) {
	switch mode {
	case "":
		return nil, nil
	case "cpu":
		return profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.NoShutdownHook), nil
	case "mem":
		return profile.Start(profile.MemProfile, profile.ProfilePath("."), profile.NoShutdownHook), nil
	default:
		return nil, fmt.Errorf("unknown profile mode %q, want cpu or mem", mode)
	}
}

func run(ctx context.Context, f flags, files []string) error {
	if f.fps <= 0 {
		return fmt.Errorf("fps must be positive, got %d", f.fps)
	}

	prof, err := startProfile(f.profile)
	if err != nil {
		return err
	}
	if prof != nil {
		defer prof.Stop()
	}

	cfg, err := config.Load(f.config)
	if err != nil {
		return err
	}
	if f.gameDir != "" {
		cfg.Sound.GameDir = f.gameDir
	}
	if f.metricsAddr != "" {
		cfg.Metrics.Addr = f.metricsAddr
	}

	logger := gamesnd.NewLogger(cfg, os.Stderr)
	registry := prometheus.NewRegistry()

	if cfg.Metrics.Addr != "" {
		srv := serveMetrics(cfg.Metrics.Addr, registry, logger)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	snd, err := gamesnd.New(cfg, gamesnd.Options{
		Logger:     logger,
		Registerer: registry,
		Listener:   masterVolume(f.volume),
	})
	if err != nil {
		return err
	}

	if err := snd.Init(); err != nil {
		return err
	}
	defer snd.Shutdown()

	kind := sample.KindStatic
	if f.stream {
		kind = sample.KindStream
	}

	var opts []sample.Option
	if f.loop {
		opts = append(opts, sample.WithLooping())
	}

	played := 0
	for _, file := range files {
		if _, err := snd.Play(file, kind, opts...); err != nil {
			logger.Error("sound couldn't be played", "file", file, "error", err)
			continue
		}
		played++
	}
	if played == 0 {
		return errors.New("no sound could be played")
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return frameLoop(ctx, snd, time.Second/time.Duration(f.fps), logger)
}

// frameLoop drives the engine until every sample retired or ctx is done.
func frameLoop(ctx context.Context, snd *engine.Engine, frame time.Duration, logger *slog.Logger) error {
	ticker := time.NewTicker(frame)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			logger.Info("interrupted")
			return nil
		case now := <-ticker.C:
			snd.Update(now.Sub(last))
			last = now

			if len(snd.Samples()) == 0 {
				logger.Info("all sounds finished")
				return nil
			}
		}
	}
}

func serveMetrics(addr string, registry *prometheus.Registry, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "addr", addr, "error", err)
		}
	}()

	logger.Info("serving metrics", "addr", addr)

	return srv
}
