// SPDX-License-Identifier: EPL-2.0

package engine

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ik5/gamesnd/audio"
	"github.com/ik5/gamesnd/backend"
	"github.com/ik5/gamesnd/metrics"
	"github.com/ik5/gamesnd/sample"
)

const (
	DefaultSpeedOfSound  float32 = 343.3
	DefaultMetersPerUnit float32 = 0.0254
)

// Options configures an Engine. Zero values select the defaults.
type Options struct {
	Logger   *slog.Logger
	Metrics  *metrics.Metrics
	Listener ListenerProvider

	// DeviceName selects the output device; empty means the default one.
	DeviceName string

	// FS and Registry are used by Play to load sounds. SoundRoot is the
	// sound directory inside FS.
	FS        fs.FS
	Registry  *audio.Registry
	SoundRoot string

	SpeedOfSound  float32
	MetersPerUnit float32

	// IdleSleep is how long the worker sleeps after a pass that found no
	// ready sample. Zero keeps the worker spinning.
	IdleSleep time.Duration

	StreamBuffers int
	StreamFrames  int
}

// Engine is the process wide audio engine.
type Engine struct {
	backend backend.Backend
	opts    Options
	logger  *slog.Logger
	metrics *metrics.Metrics

	// stateMu guards the device, context and loader. Update and Play hold
	// it for reading; Init and Shutdown for writing. It is taken before
	// samplesMu, never after.
	stateMu     sync.RWMutex
	device      backend.Device
	ctx         backend.Context
	loader      *sample.Loader
	initialized atomic.Bool
	effects     bool
	auxSends    int

	samplesMu sync.Mutex
	samples   []sample.Sample

	groupsMu sync.Mutex
	groups   []*Group
	global   *Group

	frameTime atomic.Int64
	worker    *Worker
}

// New returns an uninitialized engine that plays through b.
func New(b backend.Backend, opts Options) *Engine {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.SpeedOfSound == 0 {
		opts.SpeedOfSound = DefaultSpeedOfSound
	}
	if opts.MetersPerUnit == 0 {
		opts.MetersPerUnit = DefaultMetersPerUnit
	}
	if opts.SoundRoot == "" {
		opts.SoundRoot = sample.DefaultRoot
	}
	if opts.FS == nil {
		opts.FS = os.DirFS(".")
	}
	if opts.Registry == nil {
		opts.Registry = audio.NewRegistry()
	}

	e := &Engine{
		backend: b,
		opts:    opts,
		logger:  opts.Logger.With("component", "engine"),
		metrics: opts.Metrics,
	}
	e.resetGroups()
	e.worker = NewWorker("sound update", func() int {
		return e.UpdateSamples(e.FrameTime())
	}, opts.IdleSleep, e.logger)

	return e
}

func (e *Engine) resetGroups() {
	e.groupsMu.Lock()
	defer e.groupsMu.Unlock()

	e.global = newGroup(GlobalGroupName)
	e.groups = []*Group{e.global}
	e.metrics.SetGroups(len(e.groups))
}

// Init opens the default device, creates and activates a context, starts
// the update worker and pushes the listener once. The listener gain is
// zeroed before anything else so initialization never produces a pop.
func (e *Engine) Init() error {
	e.stateMu.Lock()
	defer e.stateMu.Unlock()

	if e.initialized.Load() {
		return ErrAlreadyInitialized
	}

	device, err := e.backend.OpenDevice(e.opts.DeviceName)
	if err != nil {
		e.logger.Warn("audio device couldn't be opened, initialization failed", "error", err)
		return fmt.Errorf("%w: %w", ErrDeviceOpen, err)
	}

	effects := device.HasExtension(backend.ExtensionEFX)

	ctx, err := device.CreateContext()
	if err != nil {
		e.logger.Warn("audio context couldn't be created, initialization failed", "error", err)
		closeDevice(e.logger, device)
		return fmt.Errorf("%w: %w", ErrContextCreate, err)
	}

	if err := ctx.MakeCurrent(); err != nil {
		e.logger.Warn("audio context couldn't be made current, initialization failed", "error", err)
		destroyContext(e.logger, ctx)
		closeDevice(e.logger, device)
		return fmt.Errorf("%w: %w", ErrContextCurrent, err)
	}

	auxSends := 0
	if effects {
		auxSends = device.MaxAuxiliarySends()
	}

	if backend.LogError(e.logger, "listener gain", ctx.SetListenerGain(0)) {
		e.logger.Warn("listener gain couldn't be cleared, initialization may be audible")
		e.metrics.BackendError("listener gain")
	}

	if err := ctx.SetSpeedOfSound(e.opts.SpeedOfSound); err != nil {
		backend.LogError(e.logger, "speed of sound", err)
		e.logger.Warn("speed of sound couldn't be set, try updating the audio drivers")
		e.metrics.BackendError("speed of sound")
		releaseContext(e.logger, ctx)
		destroyContext(e.logger, ctx)
		closeDevice(e.logger, device)
		return fmt.Errorf("%w: %w", ErrSpeedOfSound, err)
	}

	if effects {
		if backend.LogError(e.logger, "meters per unit", ctx.SetMetersPerUnit(e.opts.MetersPerUnit)) {
			e.metrics.BackendError("meters per unit")
		}
	}

	e.device, e.ctx = device, ctx
	e.effects, e.auxSends = effects, auxSends
	e.loader = sample.NewLoader(e.opts.FS, e.opts.Registry, ctx, sample.LoaderConfig{
		Root:          e.opts.SoundRoot,
		StreamBuffers: e.opts.StreamBuffers,
		StreamFrames:  e.opts.StreamFrames,
		Logger:        e.opts.Logger,
		OnUnderrun:    e.metrics.StreamUnderrun,
	})
	e.initialized.Store(true)

	e.pushListener(ctx)

	if !e.worker.Alive() {
		e.worker.Start()
	}

	info := ctx.Info()
	e.logger.Info("audio initialized",
		"effects", effects,
		"aux_sends", auxSends,
		"renderer", info.Renderer,
		"vendor", info.Vendor,
		"version", info.Version,
	)

	return nil
}

// Shutdown stops the worker, deletes every sample and group and releases
// the context and device. The engine can be initialized again afterwards.
// It waits for any Play in progress, so no sample outlives it.
func (e *Engine) Shutdown() {
	if e.worker.Alive() {
		e.worker.Stop()
	}

	e.stateMu.Lock()
	defer e.stateMu.Unlock()

	e.loader = nil
	wasInitialized := e.initialized.Swap(false)

	e.samplesMu.Lock()
	for _, s := range e.samples {
		if s != nil {
			e.closeSample(s, metrics.ReasonShutdown)
		}
	}
	e.samples = nil
	e.metrics.SetSamplesActive(0)
	e.samplesMu.Unlock()

	e.resetGroups()

	if e.ctx != nil {
		releaseContext(e.logger, e.ctx)
		destroyContext(e.logger, e.ctx)
		e.ctx = nil
	}
	if e.device != nil {
		closeDevice(e.logger, e.device)
		e.device = nil
	}
	e.effects, e.auxSends = false, 0

	if wasInitialized {
		e.logger.Info("audio shut down")
	}
}

// Initialized reports whether Init succeeded and Shutdown has not run since.
func (e *Engine) Initialized() bool { return e.initialized.Load() }

// EffectsAvailable reports whether the device exposes the effects
// extension.
func (e *Engine) EffectsAvailable() bool {
	e.stateMu.RLock()
	defer e.stateMu.RUnlock()

	return e.effects
}

// AuxiliarySends is the number of auxiliary effect sends per voice, zero
// without effects.
func (e *Engine) AuxiliarySends() int {
	e.stateMu.RLock()
	defer e.stateMu.RUnlock()

	return e.auxSends
}

// Add hands s over to the engine and puts it in the global group. It
// returns false for nil and for samples the engine already owns.
func (e *Engine) Add(s sample.Sample) bool {
	if s == nil {
		return false
	}

	e.samplesMu.Lock()
	defer e.samplesMu.Unlock()

	if slices.Contains(e.samples, s) {
		return false
	}

	e.samples = append(e.samples, s)
	e.global.add(s)

	e.metrics.SampleAdded()
	e.metrics.SetSamplesActive(len(e.samples))

	return true
}

// Remove deletes s from the engine and from every group, then closes it.
// It returns false when the engine does not own s.
func (e *Engine) Remove(s sample.Sample) bool {
	if s == nil {
		return false
	}

	e.samplesMu.Lock()
	defer e.samplesMu.Unlock()

	i := slices.Index(e.samples, s)
	if i < 0 {
		return false
	}

	e.samples = slices.Delete(e.samples, i, i+1)
	e.detachFromGroups(s)
	e.closeSample(s, metrics.ReasonRemoved)
	e.metrics.SetSamplesActive(len(e.samples))

	return true
}

// GetSample returns the first owned sample playing filename, or nil.
func (e *Engine) GetSample(filename string) sample.Sample {
	e.samplesMu.Lock()
	defer e.samplesMu.Unlock()

	for _, s := range e.samples {
		if s != nil && s.FileNameEquals(filename) {
			return s
		}
	}

	return nil
}

// Samples returns a snapshot of the owned samples.
func (e *Engine) Samples() []sample.Sample {
	e.samplesMu.Lock()
	defer e.samplesMu.Unlock()

	return slices.Clone(e.samples)
}

// GetSoundPath maps a game relative sound path into the sound directory
// using forward slashes.
func (e *Engine) GetSoundPath(relativePath string) string {
	return sample.JoinSoundPath(e.opts.SoundRoot, relativePath)
}

// Play loads relativePath as a sample of the given kind and adds it to the
// engine.
func (e *Engine) Play(relativePath string, kind sample.Kind, opts ...sample.Option) (sample.Sample, error) {
	// Held until the sample is added so Shutdown cannot run in between.
	e.stateMu.RLock()
	defer e.stateMu.RUnlock()

	if e.loader == nil {
		return nil, ErrNotInitialized
	}

	s, err := e.loader.Load(relativePath, kind, opts...)
	if err != nil {
		return nil, fmt.Errorf("play %q: %w", relativePath, err)
	}

	e.Add(s)

	return s, nil
}

// UpdateSamples runs one worker pass: it prunes empty groups, advances every
// ready sample by dt and deletes the finished ones that are not persistent.
// It returns how many samples were advanced.
func (e *Engine) UpdateSamples(dt time.Duration) int {
	e.samplesMu.Lock()
	defer e.samplesMu.Unlock()

	e.removeEmptyGroupsLocked()

	active := 0
	kept := e.samples[:0]
	for _, s := range e.samples {
		if s == nil {
			e.metrics.SampleRetired(metrics.ReasonEmptySlot)
			continue
		}

		if s.IsReady() {
			s.Update(dt)
			active++
		}

		if s.IsFinished() && !s.IsPersistent() {
			e.detachFromGroups(s)
			e.closeSample(s, metrics.ReasonFinished)
			continue
		}

		kept = append(kept, s)
	}

	clear(e.samples[len(kept):])
	e.samples = kept

	e.metrics.WorkerPass()
	e.metrics.SetSamplesActive(len(e.samples))

	return active
}

// FrameTime is the last frame duration published by Update.
func (e *Engine) FrameTime() time.Duration {
	return time.Duration(e.frameTime.Load())
}

// Update is the per frame hook. It publishes dt for the worker and pushes
// the listener state.
func (e *Engine) Update(dt time.Duration) {
	e.frameTime.Store(int64(dt))
	e.UpdateListener()
}

// UpdateListener pushes the listener position, orientation and gain. It
// does nothing before Init.
func (e *Engine) UpdateListener() {
	e.stateMu.RLock()
	defer e.stateMu.RUnlock()

	if e.ctx == nil {
		return
	}

	e.pushListener(e.ctx)
}

func (e *Engine) closeSample(s sample.Sample, reason string) {
	if err := s.Close(); err != nil {
		e.logger.Warn("sample close failed", "file", s.FileName(), "error", err)
	}
	e.metrics.SampleRetired(reason)
}

func releaseContext(logger *slog.Logger, ctx backend.Context) {
	backend.LogError(logger, "context release", ctx.Release())
}

func destroyContext(logger *slog.Logger, ctx backend.Context) {
	backend.LogError(logger, "context destroy", ctx.Destroy())
}

func closeDevice(logger *slog.Logger, device backend.Device) {
	backend.LogError(logger, "device close", device.Close())
}
