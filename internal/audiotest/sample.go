// SPDX-License-Identifier: EPL-2.0

package audiotest

import (
	"sync"
	"time"

	"github.com/ik5/gamesnd/sample"
)

// FakeSample is a sample.Sample whose state is driven by the test.
type FakeSample struct {
	name string
	rec  *Recorder

	// OnUpdate runs inside Update, on the engine's worker.
	OnUpdate func()

	mu         sync.Mutex
	ready      bool
	finished   bool
	persistent bool
	updates    int
	closes     int
	elapsed    time.Duration
}

// NewFakeSample returns a ready, unfinished sample identified by name. A
// nil recorder is allowed.
func NewFakeSample(name string, rec *Recorder) *FakeSample {
	return &FakeSample{name: name, rec: rec, ready: true}
}

func (f *FakeSample) Open(path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.name = path
	f.ready = true

	return nil
}

func (f *FakeSample) Close() error {
	f.rec.Record("sample.close:" + f.name)

	f.mu.Lock()
	defer f.mu.Unlock()

	f.closes++
	f.ready = false

	return nil
}

func (f *FakeSample) Update(dt time.Duration) {
	f.mu.Lock()
	f.updates++
	f.elapsed += dt
	hook := f.OnUpdate
	f.mu.Unlock()

	if hook != nil {
		hook()
	}
}

func (f *FakeSample) SubUpdate() error { return nil }

func (f *FakeSample) Play() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.finished = false

	return nil
}

func (f *FakeSample) Stop() error {
	f.SetFinished(true)
	return nil
}

func (f *FakeSample) IsReady() bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.ready
}

func (f *FakeSample) IsFinished() bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.finished
}

func (f *FakeSample) IsPersistent() bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.persistent
}

func (f *FakeSample) SetPersistent(persistent bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.persistent = persistent
}

func (f *FakeSample) SetReady(ready bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.ready = ready
}

func (f *FakeSample) SetFinished(finished bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.finished = finished
}

func (f *FakeSample) FileNameEquals(path string) bool { return f.FileName() == path }

func (f *FakeSample) FileName() string {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.name
}

func (f *FakeSample) Kind() sample.Kind { return sample.KindStatic }

func (f *FakeSample) State() sample.State {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch {
	case f.finished:
		return sample.Finished
	case f.ready:
		return sample.Playing
	default:
		return sample.Unopened
	}
}

func (f *FakeSample) Updates() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.updates
}

func (f *FakeSample) Closes() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.closes
}
