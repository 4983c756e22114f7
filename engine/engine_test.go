// SPDX-License-Identifier: EPL-2.0

package engine

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"sync"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ik5/gamesnd/audio"
	"github.com/ik5/gamesnd/backend"
	"github.com/ik5/gamesnd/formats/wav"
	"github.com/ik5/gamesnd/internal/audiotest"
	"github.com/ik5/gamesnd/sample"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEngine(t *testing.T, opts Options) (*Engine, *audiotest.FakeBackend) {
	t.Helper()

	fb := audiotest.NewFakeBackend()
	if opts.Logger == nil {
		opts.Logger = discardLogger()
	}
	if opts.IdleSleep == 0 {
		opts.IdleSleep = time.Millisecond
	}

	e := New(fb, opts)
	t.Cleanup(e.Shutdown)

	return e, fb
}

type fakeListener struct {
	listener Listener
	present  bool
	volume   float32
}

func (f fakeListener) Listener() (Listener, bool) { return f.listener, f.present }
func (f fakeListener) Volume() float32            { return f.volume }

func TestInit_Success(t *testing.T) {
	e, fb := newTestEngine(t, Options{})

	require.NoError(t, e.Init())

	ctx := fb.Device.Context
	assert.True(t, e.Initialized())
	assert.True(t, ctx.Current)
	assert.Equal(t, DefaultSpeedOfSound, ctx.SpeedOfSound)
	require.NotEmpty(t, ctx.GainHistory)
	assert.Equal(t, float32(0), ctx.GainHistory[0], "gain must be cleared first")
	assert.True(t, e.worker.Alive())
	assert.False(t, e.EffectsAvailable())
	assert.Equal(t, 0, e.AuxiliarySends())
	assert.Equal(t, float32(0), ctx.MetersPerUnit)

	assert.Equal(t,
		[]string{"device.open", "context.create", "context.current"},
		fb.Recorder.Events())
}

func TestInit_Twice(t *testing.T) {
	e, _ := newTestEngine(t, Options{})

	require.NoError(t, e.Init())
	assert.ErrorIs(t, e.Init(), ErrAlreadyInitialized)
}

func TestInit_WithEffects(t *testing.T) {
	e, fb := newTestEngine(t, Options{MetersPerUnit: 0.5})
	fb.Device.Extensions[backend.ExtensionEFX] = true
	fb.Device.AuxSends = 4

	require.NoError(t, e.Init())

	assert.True(t, e.EffectsAvailable())
	assert.Equal(t, 4, e.AuxiliarySends())
	assert.Equal(t, float32(0.5), fb.Device.Context.MetersPerUnit)
}

func TestInit_Failures(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name        string
		setup       func(fb *audiotest.FakeBackend)
		wantErr     error
		deviceClose bool
	}{
		{
			name:    "device open",
			setup:   func(fb *audiotest.FakeBackend) { fb.OpenErr = backend.ErrNoDevice },
			wantErr: ErrDeviceOpen,
		},
		{
			name:        "context create",
			setup:       func(fb *audiotest.FakeBackend) { fb.Device.CreateErr = boom },
			wantErr:     ErrContextCreate,
			deviceClose: true,
		},
		{
			name:        "make current",
			setup:       func(fb *audiotest.FakeBackend) { fb.Device.Context.MakeCurrentErr = backend.InvalidValue },
			wantErr:     ErrContextCurrent,
			deviceClose: true,
		},
		{
			name:        "speed of sound",
			setup:       func(fb *audiotest.FakeBackend) { fb.Device.Context.SpeedErr = backend.InvalidValue },
			wantErr:     ErrSpeedOfSound,
			deviceClose: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, fb := newTestEngine(t, Options{})
			tt.setup(fb)

			err := e.Init()

			require.ErrorIs(t, err, tt.wantErr)
			assert.False(t, e.Initialized())
			assert.False(t, e.worker.Alive())
			assert.Equal(t, tt.deviceClose, fb.Device.Closed())
		})
	}
}

func TestInit_DeviceErrorIsWrapped(t *testing.T) {
	e, fb := newTestEngine(t, Options{})
	fb.OpenErr = backend.ErrNoDevice

	err := e.Init()

	assert.ErrorIs(t, err, ErrDeviceOpen)
	assert.ErrorIs(t, err, backend.ErrNoDevice)
}

func TestAdd(t *testing.T) {
	e, _ := newTestEngine(t, Options{})
	s := audiotest.NewFakeSample("a.wav", nil)

	assert.False(t, e.Add(nil))
	assert.True(t, e.Add(s))
	assert.False(t, e.Add(s), "a sample is owned once")

	assert.Len(t, e.Samples(), 1)
	global, ok := e.LookupGroup(GlobalGroupName)
	require.True(t, ok)
	assert.True(t, global.Contains(s))
	assert.Equal(t, 1, global.Len())
}

func TestRemove(t *testing.T) {
	e, _ := newTestEngine(t, Options{})

	assert.False(t, e.Remove(audiotest.NewFakeSample("none", nil)), "empty collection")
	assert.False(t, e.Remove(nil))

	s := audiotest.NewFakeSample("a.wav", nil)
	require.True(t, e.Add(s))
	require.True(t, e.AddSampleToGroup("weapons", s))

	assert.True(t, e.Remove(s))
	assert.Empty(t, e.Samples())
	assert.Equal(t, 1, s.Closes())

	for _, g := range e.Groups() {
		assert.False(t, g.Contains(s), "group %s still holds a removed sample", g.Name())
	}

	assert.False(t, e.Remove(s))
	assert.Equal(t, 1, s.Closes())
}

func TestConcurrentAddRemove(t *testing.T) {
	e, _ := newTestEngine(t, Options{})

	const workers = 16
	const perWorker = 50

	var wg sync.WaitGroup
	for w := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range perWorker {
				s := audiotest.NewFakeSample(fmt.Sprintf("%d-%d.wav", w, i), nil)
				assert.True(t, e.Add(s))
				if i%2 == 0 {
					assert.True(t, e.Remove(s))
				}
			}
		}()
	}
	wg.Wait()

	samples := e.Samples()
	assert.Len(t, samples, workers*perWorker/2)

	seen := make(map[sample.Sample]bool, len(samples))
	for _, s := range samples {
		assert.False(t, seen[s], "duplicate sample %s", s.FileName())
		seen[s] = true
	}

	global, _ := e.LookupGroup(GlobalGroupName)
	assert.Equal(t, len(samples), global.Len())
}

func TestUpdateSamples_RetiresFinished(t *testing.T) {
	e, _ := newTestEngine(t, Options{})

	playing := audiotest.NewFakeSample("playing.wav", nil)
	finished := audiotest.NewFakeSample("finished.wav", nil)
	persistent := audiotest.NewFakeSample("persistent.wav", nil)
	loading := audiotest.NewFakeSample("loading.wav", nil)

	finished.SetFinished(true)
	persistent.SetFinished(true)
	persistent.SetPersistent(true)
	loading.SetReady(false)

	for _, s := range []*audiotest.FakeSample{playing, finished, persistent, loading} {
		require.True(t, e.Add(s))
	}
	require.True(t, e.AddSampleToGroup("music", finished))
	require.True(t, e.AddSampleToGroup("music", playing))

	active := e.UpdateSamples(10 * time.Millisecond)

	assert.Equal(t, 3, active)
	assert.Equal(t, 1, playing.Updates())
	assert.Equal(t, 0, loading.Updates())

	samples := e.Samples()
	assert.Len(t, samples, 3)
	assert.NotContains(t, samples, sample.Sample(finished))
	assert.Contains(t, samples, sample.Sample(persistent))
	assert.Equal(t, 1, finished.Closes())
	assert.Equal(t, 0, persistent.Closes())

	music, ok := e.LookupGroup("music")
	require.True(t, ok)
	assert.False(t, music.Contains(finished))
	assert.True(t, music.Contains(playing))
}

func TestUpdateSamples_PrunesEmptyGroups(t *testing.T) {
	e, _ := newTestEngine(t, Options{})

	e.FindGroup("empty")
	s := audiotest.NewFakeSample("a.wav", nil)
	require.True(t, e.Add(s))
	require.True(t, e.AddSampleToGroup("busy", s))

	e.UpdateSamples(0)

	_, ok := e.LookupGroup("empty")
	assert.False(t, ok)
	_, ok = e.LookupGroup("busy")
	assert.True(t, ok)

	require.True(t, e.Remove(s))
	assert.Equal(t, 1, e.RemoveEmptyGroups())

	groups := e.Groups()
	require.Len(t, groups, 1, "only the global group survives")
	assert.True(t, groups[0].IsGlobal())
	assert.Equal(t, 0, e.RemoveEmptyGroups())
}

func TestFindGroup(t *testing.T) {
	e, _ := newTestEngine(t, Options{})

	_, ok := e.LookupGroup("ambient")
	assert.False(t, ok, "lookup must not create")

	g := e.FindGroup("ambient")
	assert.Same(t, g, e.FindGroup("ambient"))
	assert.Len(t, e.Groups(), 2, "one group per name")

	found, ok := e.LookupGroup("ambient")
	require.True(t, ok)
	assert.Same(t, g, found)

	other := e.FindGroup("Ambient")
	assert.NotSame(t, g, other, "names are case sensitive")
	assert.Len(t, e.Groups(), 3)
}

func TestRemoveSampleGroup(t *testing.T) {
	e, _ := newTestEngine(t, Options{})

	assert.False(t, e.RemoveSampleGroup(GlobalGroupName))
	assert.ErrorIs(t, e.removeGroup(GlobalGroupName), ErrGlobalGroup)

	assert.False(t, e.RemoveSampleGroup("missing"))
	_, ok := e.LookupGroup("missing")
	assert.False(t, ok, "removing an unknown group must not create it")

	s := audiotest.NewFakeSample("a.wav", nil)
	require.True(t, e.Add(s))
	require.True(t, e.AddSampleToGroup("voices", s))

	assert.True(t, e.RemoveSampleGroup("voices"))
	_, ok = e.LookupGroup("voices")
	assert.False(t, ok)
	assert.Len(t, e.Samples(), 1, "samples outlive their group")
	assert.Equal(t, 0, s.Closes())
}

func TestAddSampleToGroup(t *testing.T) {
	e, _ := newTestEngine(t, Options{})

	stranger := audiotest.NewFakeSample("stranger.wav", nil)
	assert.False(t, e.AddSampleToGroup("weapons", stranger), "only owned samples join groups")
	assert.False(t, e.AddSampleToGroup("weapons", nil))

	s := audiotest.NewFakeSample("shot.wav", nil)
	require.True(t, e.Add(s))

	assert.True(t, e.AddSampleToGroup("weapons", s))
	assert.False(t, e.AddSampleToGroup("weapons", s))

	g, ok := e.LookupGroup("weapons")
	require.True(t, ok)
	assert.Equal(t, 1, g.Len())

	assert.False(t, e.RemoveSampleFromGroup("missing", s))
	assert.True(t, e.RemoveSampleFromGroup("weapons", s))
	assert.False(t, e.RemoveSampleFromGroup("weapons", s))
	assert.Len(t, e.Samples(), 1)
}

func TestAddSampleToGroup_ConcurrentWithUpdate(t *testing.T) {
	e, _ := newTestEngine(t, Options{})

	const n = 50
	samples := make([]*audiotest.FakeSample, n)
	for i := range samples {
		samples[i] = audiotest.NewFakeSample(fmt.Sprintf("s%d.wav", i), nil)
		require.True(t, e.Add(samples[i]))
	}

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
				e.UpdateSamples(0)
			}
		}
	}()

	for i, s := range samples {
		assert.True(t, e.AddSampleToGroup(fmt.Sprintf("g%d", i), s))
	}
	close(stop)
	wg.Wait()

	for i, s := range samples {
		g, ok := e.LookupGroup(fmt.Sprintf("g%d", i))
		if assert.True(t, ok, "group g%d pruned while joining", i) {
			assert.True(t, g.Contains(s))
		}
	}
	assert.Len(t, e.Groups(), n+1)
}

func TestGroupStop(t *testing.T) {
	e, _ := newTestEngine(t, Options{})

	a := audiotest.NewFakeSample("a.wav", nil)
	b := audiotest.NewFakeSample("b.wav", nil)
	require.True(t, e.Add(a))
	require.True(t, e.Add(b))
	require.True(t, e.AddSampleToGroup("music", a))

	require.NoError(t, e.FindGroup("music").Stop())

	assert.True(t, a.IsFinished())
	assert.False(t, b.IsFinished())
}

func TestGetSample(t *testing.T) {
	e, _ := newTestEngine(t, Options{})

	a := audiotest.NewFakeSample("sound/a.wav", nil)
	require.True(t, e.Add(a))

	assert.Equal(t, sample.Sample(a), e.GetSample("sound/a.wav"))
	assert.Nil(t, e.GetSample("sound/b.wav"))
}

func TestGetSoundPath(t *testing.T) {
	e, _ := newTestEngine(t, Options{})

	assert.Equal(t, "sound/foo/bar.wav", e.GetSoundPath(`foo\bar.wav`))
	assert.Equal(t, "sound/ambient/wind.ogg", e.GetSoundPath("ambient/wind.ogg"))

	custom := New(audiotest.NewFakeBackend(), Options{SoundRoot: "sfx", Logger: discardLogger()})
	assert.Equal(t, "sfx/x.wav", custom.GetSoundPath("x.wav"))
}

func TestUpdateListener_Defaults(t *testing.T) {
	e, fb := newTestEngine(t, Options{})
	require.NoError(t, e.Init())

	e.Update(16 * time.Millisecond)

	pos, orientation, gain := fb.Device.Context.Snapshot()
	assert.Equal(t, [3]float32{0, 0, 0}, pos)
	assert.Equal(t, [6]float32{0, 0, -1, 0, 0, 0}, orientation)
	assert.Equal(t, float32(1), gain)
	assert.Equal(t, 16*time.Millisecond, e.FrameTime())
}

func TestUpdateListener_NoLocalPlayer(t *testing.T) {
	e, fb := newTestEngine(t, Options{Listener: fakeListener{volume: 0.25}})
	require.NoError(t, e.Init())

	e.Update(time.Millisecond)

	pos, orientation, gain := fb.Device.Context.Snapshot()
	assert.Equal(t, [3]float32{0, 0, 0}, pos)
	assert.Equal(t, [6]float32{0, 0, -1, 0, 0, 0}, orientation)
	assert.Equal(t, float32(0.25), gain)
}

func TestUpdateListener_LocalPlayer(t *testing.T) {
	l := Listener{
		Position: [3]float32{10, 20, 30},
		Forward:  [3]float32{1, 0, 0},
		Up:       [3]float32{0, 0, 1},
	}
	e, fb := newTestEngine(t, Options{Listener: fakeListener{listener: l, present: true, volume: 0.8}})
	require.NoError(t, e.Init())

	e.Update(time.Millisecond)

	pos, orientation, gain := fb.Device.Context.Snapshot()
	assert.Equal(t, [3]float32{10, 20, 30}, pos)
	assert.Equal(t, [6]float32{1, 0, 0, 0, 0, 1}, orientation)
	assert.Equal(t, float32(0.8), gain)
}

func TestUpdateListener_BackendErrorsAreNotFatal(t *testing.T) {
	e, fb := newTestEngine(t, Options{})
	require.NoError(t, e.Init())

	fb.Device.Context.PositionErr = backend.InvalidValue

	assert.NotPanics(t, func() { e.Update(time.Millisecond) })
	_, _, gain := fb.Device.Context.Snapshot()
	assert.Equal(t, float32(1), gain)
}

func TestUpdate_BeforeInit(t *testing.T) {
	e, fb := newTestEngine(t, Options{})

	assert.NotPanics(t, func() { e.Update(time.Millisecond) })
	assert.Empty(t, fb.Device.Context.GainHistory)
}

func TestAngleVectors(t *testing.T) {
	const delta = 1e-6

	forward, right, up := AngleVectors(0, 0, 0)
	assert.InDeltaSlice(t, []float32{1, 0, 0}, forward[:], delta)
	assert.InDeltaSlice(t, []float32{0, -1, 0}, right[:], delta)
	assert.InDeltaSlice(t, []float32{0, 0, 1}, up[:], delta)

	forward, _, _ = AngleVectors(0, 90, 0)
	assert.InDeltaSlice(t, []float32{0, 1, 0}, forward[:], delta)

	forward, _, up = AngleVectors(90, 0, 0)
	assert.InDeltaSlice(t, []float32{0, 0, -1}, forward[:], delta)
	assert.InDeltaSlice(t, []float32{1, 0, 0}, up[:], delta)
}

func TestWorker_AdvancesAndRetiresSamples(t *testing.T) {
	e, _ := newTestEngine(t, Options{})
	require.NoError(t, e.Init())

	s := audiotest.NewFakeSample("a.wav", nil)
	require.True(t, e.Add(s))

	assert.Eventually(t, func() bool { return s.Updates() > 0 }, time.Second, time.Millisecond)

	s.SetFinished(true)

	assert.Eventually(t, func() bool { return len(e.Samples()) == 0 }, time.Second, time.Millisecond)
	assert.Equal(t, 1, s.Closes())
}

func TestShutdown_WorkerExitsBeforeSamplesAreDeleted(t *testing.T) {
	e, fb := newTestEngine(t, Options{})
	rec := fb.Recorder
	e.worker.onExit = func() { rec.Record("worker.exit") }

	require.NoError(t, e.Init())
	a := audiotest.NewFakeSample("a", rec)
	b := audiotest.NewFakeSample("b", rec)
	b.SetReady(false)
	require.True(t, e.Add(a))
	require.True(t, e.Add(b))
	require.True(t, e.AddSampleToGroup("music", a))

	e.Shutdown()

	exit := rec.Index("worker.exit")
	require.GreaterOrEqual(t, exit, 0)
	assert.Less(t, exit, rec.Index("sample.close:a"))
	assert.Less(t, exit, rec.Index("sample.close:b"))
	assert.Less(t, rec.Index("sample.close:a"), rec.Index("context.destroy"))
	assert.Less(t, rec.Index("context.destroy"), rec.Index("device.close"))

	assert.False(t, e.Initialized())
	assert.False(t, e.worker.Alive())
	assert.Empty(t, e.Samples())
	require.Len(t, e.Groups(), 1)
	assert.True(t, e.Groups()[0].IsGlobal())
	assert.True(t, fb.Device.Context.Destroyed)
	assert.True(t, fb.Device.Closed())
}

func TestShutdown_WithoutInit(t *testing.T) {
	e, fb := newTestEngine(t, Options{})

	assert.NotPanics(t, e.Shutdown)
	assert.Empty(t, fb.Recorder.Events())
}

func TestShutdown_ThenInitAgain(t *testing.T) {
	e, fb := newTestEngine(t, Options{})

	require.NoError(t, e.Init())
	e.Shutdown()

	fb.Device.Context.Destroyed = false
	require.NoError(t, e.Init())
	assert.True(t, e.worker.Alive())
}

// A sample whose update never returns keeps Shutdown waiting for the
// worker's acknowledgement.
func TestShutdown_WaitsForBlockedSample(t *testing.T) {
	e, _ := newTestEngine(t, Options{})
	require.NoError(t, e.Init())

	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once

	s := audiotest.NewFakeSample("stuck.wav", nil)
	s.OnUpdate = func() {
		once.Do(func() {
			close(entered)
			<-release
		})
	}
	require.True(t, e.Add(s))
	<-entered

	done := make(chan struct{})
	go func() {
		e.Shutdown()
		close(done)
	}()

	assert.Never(t, func() bool {
		select {
		case <-done:
			return true
		default:
			return false
		}
	}, 50*time.Millisecond, 5*time.Millisecond)

	close(release)

	assert.Eventually(t, func() bool {
		select {
		case <-done:
			return true
		default:
			return false
		}
	}, time.Second, time.Millisecond)
	assert.Equal(t, 1, s.Closes())
}

// gatedFS holds Open of every file until release is closed.
type gatedFS struct {
	fs.FS
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (g *gatedFS) Open(name string) (fs.File, error) {
	g.once.Do(func() { close(g.entered) })
	<-g.release

	return g.FS.Open(name)
}

func TestShutdown_WaitsForPendingPlay(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, wav.WritePCM16(&buf, 8000, 1, make([]int16, 800)))

	registry := audio.NewRegistry()
	registry.Register("wav", wav.Decoder{})

	gate := &gatedFS{
		FS:      fstest.MapFS{"sound/music/theme.wav": {Data: buf.Bytes()}},
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	e, _ := newTestEngine(t, Options{FS: gate, Registry: registry})
	require.NoError(t, e.Init())

	type result struct {
		s   sample.Sample
		err error
	}
	played := make(chan result, 1)
	go func() {
		s, err := e.Play("music/theme.wav", sample.KindStream)
		played <- result{s, err}
	}()
	<-gate.entered

	done := make(chan struct{})
	go func() {
		e.Shutdown()
		close(done)
	}()

	assert.Never(t, func() bool {
		select {
		case <-done:
			return true
		default:
			return false
		}
	}, 50*time.Millisecond, 5*time.Millisecond, "shutdown must wait for the load")

	close(gate.release)

	r := <-played
	<-done

	require.NoError(t, r.err)
	assert.True(t, r.s.IsFinished(), "sample closed by shutdown")
	assert.Empty(t, e.Samples())
	assert.False(t, e.Initialized())

	_, err := e.Play("music/theme.wav", sample.KindStream)
	assert.ErrorIs(t, err, ErrNotInitialized)
	assert.Empty(t, e.Samples())
}

func TestPlay(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, wav.WritePCM16(&buf, 8000, 1, make([]int16, 800)))

	registry := audio.NewRegistry()
	registry.Register("wav", wav.Decoder{})

	e, _ := newTestEngine(t, Options{
		FS:       fstest.MapFS{"sound/ui/click.wav": {Data: buf.Bytes()}},
		Registry: registry,
	})

	_, err := e.Play("ui/click.wav", sample.KindStatic)
	require.ErrorIs(t, err, ErrNotInitialized)

	require.NoError(t, e.Init())

	s, err := e.Play(`ui\click.wav`, sample.KindStatic)
	require.NoError(t, err)
	assert.Equal(t, "sound/ui/click.wav", s.FileName())
	assert.Same(t, s, e.GetSample("sound/ui/click.wav"))

	_, err = e.Play("ui/missing.wav", sample.KindStatic)
	assert.Error(t, err)

	_, err = e.Play("ui/click.xyz", sample.KindStatic)
	assert.ErrorIs(t, err, sample.ErrUnsupportedFormat)
}

func TestWorker_CallAndStop(t *testing.T) {
	var passes sync.WaitGroup
	passes.Add(1)
	var once sync.Once

	w := NewWorker("test", func() int {
		once.Do(passes.Done)
		return 0
	}, 0, discardLogger())

	assert.Equal(t, replyUnknown, w.Call(MsgExit), "stopped worker")

	w.Start()
	w.Start()
	passes.Wait()

	assert.True(t, w.Alive())
	assert.Equal(t, replyUnknown, w.Call(Message(99)))
	assert.True(t, w.Stop())
	assert.False(t, w.Alive())
	assert.False(t, w.Stop())
}
