// SPDX-License-Identifier: EPL-2.0

package audiotest

import (
	"slices"
	"sync"

	"github.com/ik5/gamesnd/backend"
)

// Recorder keeps the order in which instrumented collaborators were called.
type Recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *Recorder) Record(event string) {
	if r == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = append(r.events, event)
}

func (r *Recorder) Events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return slices.Clone(r.events)
}

// Index returns the position of the first occurrence of event, or -1.
func (r *Recorder) Index(event string) int {
	return slices.Index(r.Events(), event)
}

// FakeBackend is an in-memory backend with injectable failures.
type FakeBackend struct {
	Recorder *Recorder
	Device   *FakeDevice
	OpenErr  error
}

// NewFakeBackend returns a backend whose device and context succeed at
// everything.
func NewFakeBackend() *FakeBackend {
	rec := &Recorder{}
	ctx := &FakeContext{rec: rec, Rate: 8000, Gain: -1}

	return &FakeBackend{
		Recorder: rec,
		Device:   &FakeDevice{rec: rec, Context: ctx, Extensions: map[string]bool{}},
	}
}

func (b *FakeBackend) OpenDevice(name string) (backend.Device, error) {
	b.Recorder.Record("device.open")
	if b.OpenErr != nil {
		return nil, b.OpenErr
	}

	b.Device.closed = false

	return b.Device, nil
}

type FakeDevice struct {
	rec        *Recorder
	Context    *FakeContext
	Extensions map[string]bool
	AuxSends   int
	CreateErr  error
	closed     bool
}

func (d *FakeDevice) HasExtension(name string) bool { return d.Extensions[name] }
func (d *FakeDevice) MaxAuxiliarySends() int        { return d.AuxSends }

func (d *FakeDevice) CreateContext() (backend.Context, error) {
	d.rec.Record("context.create")
	if d.CreateErr != nil {
		return nil, d.CreateErr
	}

	d.Context.mu.Lock()
	d.Context.Destroyed = false
	d.Context.mu.Unlock()

	return d.Context, nil
}

func (d *FakeDevice) Close() error {
	d.rec.Record("device.close")
	d.closed = true

	return nil
}

func (d *FakeDevice) Closed() bool { return d.closed }

// FakeContext stores whatever the engine pushes to it.
type FakeContext struct {
	rec  *Recorder
	Rate int

	MakeCurrentErr error
	SpeedErr       error
	GainErr        error
	PositionErr    error
	OrientationErr error

	mu            sync.Mutex
	Current       bool
	Destroyed     bool
	Position      [3]float32
	Orientation   [6]float32
	Gain          float32
	GainHistory   []float32
	SpeedOfSound  float32
	MetersPerUnit float32
	Voices        []*FakeVoice
}

func (c *FakeContext) MakeCurrent() error {
	c.rec.Record("context.current")
	if c.MakeCurrentErr != nil {
		return c.MakeCurrentErr
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.Current = true

	return nil
}

func (c *FakeContext) Release() error {
	c.rec.Record("context.release")

	c.mu.Lock()
	defer c.mu.Unlock()
	c.Current = false

	return nil
}

func (c *FakeContext) Destroy() error {
	c.rec.Record("context.destroy")

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.Current {
		return backend.InvalidOperation
	}
	c.Destroyed = true

	return nil
}

func (c *FakeContext) SetListenerPosition(pos [3]float32) error {
	if c.PositionErr != nil {
		return c.PositionErr
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.Position = pos

	return nil
}

func (c *FakeContext) SetListenerOrientation(o [6]float32) error {
	if c.OrientationErr != nil {
		return c.OrientationErr
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.Orientation = o

	return nil
}

func (c *FakeContext) SetListenerGain(gain float32) error {
	if c.GainErr != nil {
		return c.GainErr
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.Gain = gain
	c.GainHistory = append(c.GainHistory, gain)

	return nil
}

func (c *FakeContext) SetSpeedOfSound(speed float32) error {
	if c.SpeedErr != nil {
		return c.SpeedErr
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.SpeedOfSound = speed

	return nil
}

func (c *FakeContext) SetMetersPerUnit(m float32) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.MetersPerUnit = m

	return nil
}

func (c *FakeContext) SampleRate() int { return c.Rate }

func (c *FakeContext) Info() backend.Info {
	return backend.Info{Renderer: "fake", Vendor: "audiotest", Version: "1"}
}

func (c *FakeContext) NewVoice() (backend.Voice, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.Destroyed {
		return nil, backend.ErrContextLost
	}

	v := &FakeVoice{gain: 1}
	c.Voices = append(c.Voices, v)

	return v, nil
}

// Snapshot returns the listener values under the lock.
func (c *FakeContext) Snapshot() (pos [3]float32, orientation [6]float32, gain float32) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.Position, c.Orientation, c.Gain
}

// FakeVoice follows the queue semantics of backend.Voice. Nothing plays by
// itself: tests call Consume to simulate the mixer.
type FakeVoice struct {
	mu        sync.Mutex
	queue     []backend.Buffer
	processed int
	playing   bool
	deleted   bool
	gain      float32
	position  [3]float32
	relative  bool
	plays     int
}

func (v *FakeVoice) Queue(b backend.Buffer) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.deleted {
		return backend.InvalidName
	}
	if b.Frames() == 0 {
		return backend.InvalidValue
	}
	v.queue = append(v.queue, b)

	return nil
}

func (v *FakeVoice) Unqueue(n int) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if n < 0 || n > v.processed {
		return backend.InvalidValue
	}
	v.queue = v.queue[n:]
	v.processed -= n

	return nil
}

func (v *FakeVoice) Queued() int {
	v.mu.Lock()
	defer v.mu.Unlock()

	return len(v.queue)
}

func (v *FakeVoice) Processed() int {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.processed
}

func (v *FakeVoice) Play() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.deleted {
		return backend.InvalidName
	}
	v.plays++
	v.playing = v.processed < len(v.queue)

	return nil
}

func (v *FakeVoice) Stop() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.playing = false
	v.processed = len(v.queue)

	return nil
}

func (v *FakeVoice) Playing() bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.playing
}

func (v *FakeVoice) SetGain(gain float32) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.gain = gain

	return nil
}

func (v *FakeVoice) SetPosition(pos [3]float32) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.position = pos

	return nil
}

func (v *FakeVoice) SetRelative(relative bool) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.relative = relative

	return nil
}

func (v *FakeVoice) Delete() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.deleted {
		return backend.InvalidName
	}
	v.deleted = true
	v.playing = false

	return nil
}

// Consume marks n pending buffers as played. The voice stops when its queue
// drains.
func (v *FakeVoice) Consume(n int) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.processed = min(v.processed+n, len(v.queue))
	if v.processed == len(v.queue) {
		v.playing = false
	}
}

// Starve stops the voice as an underrun would, leaving queued buffers
// unprocessed.
func (v *FakeVoice) Starve() {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.playing = false
}

// Pending returns the queued buffers that have not been played yet.
func (v *FakeVoice) Pending() []backend.Buffer {
	v.mu.Lock()
	defer v.mu.Unlock()

	return slices.Clone(v.queue[v.processed:])
}

func (v *FakeVoice) Deleted() bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.deleted
}

func (v *FakeVoice) Plays() int {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.plays
}

func (v *FakeVoice) Gain() float32 {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.gain
}

func (v *FakeVoice) Relative() bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.relative
}
