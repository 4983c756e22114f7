// SPDX-License-Identifier: EPL-2.0

package otobackend

import (
	"errors"
	"math"
	"sync"
	"sync/atomic"

	"github.com/ik5/gamesnd/backend"
)

type atomicFloat32 struct{ bits atomic.Uint32 }

func (f *atomicFloat32) Load() float32   { return math.Float32frombits(f.bits.Load()) }
func (f *atomicFloat32) Store(v float32) { f.bits.Store(math.Float32bits(v)) }

// renderContext keeps the listener state. The oto output is a stereo mix
// without spatialisation, so position and orientation are stored for
// inspection only while gain is applied to every voice.
type renderContext struct {
	dev *device

	listenerGain atomicFloat32

	mu            sync.Mutex
	destroyed     bool
	position      [3]float32
	orientation   [6]float32
	speedOfSound  float32
	metersPerUnit float32
	voices        map[*voice]struct{}
}

func (c *renderContext) alive() error {
	if c.destroyed {
		return backend.ErrContextLost
	}

	return nil
}

func (c *renderContext) MakeCurrent() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.alive(); err != nil {
		return err
	}
	c.dev.makeCurrent(c)

	return nil
}

func (c *renderContext) Release() error {
	c.dev.makeCurrent(nil)
	return nil
}

// Destroy fails while the context is current, matching the requirement to
// release it first.
func (c *renderContext) Destroy() error {
	if c.dev.isCurrent(c) {
		return backend.InvalidOperation
	}

	c.mu.Lock()
	if c.destroyed {
		c.mu.Unlock()
		return backend.ErrContextLost
	}
	c.destroyed = true
	voices := c.voices
	c.voices = nil
	c.mu.Unlock()

	var errs []error
	for v := range voices {
		errs = append(errs, v.close())
	}

	return errors.Join(errs...)
}

func (c *renderContext) SetListenerPosition(pos [3]float32) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.alive(); err != nil {
		return err
	}
	c.position = pos

	return nil
}

func (c *renderContext) SetListenerOrientation(orientation [6]float32) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.alive(); err != nil {
		return err
	}
	c.orientation = orientation

	return nil
}

func (c *renderContext) SetListenerGain(gain float32) error {
	if gain < 0 || math.IsNaN(float64(gain)) {
		return backend.InvalidValue
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.alive(); err != nil {
		return err
	}
	c.listenerGain.Store(gain)

	return nil
}

func (c *renderContext) SetSpeedOfSound(speed float32) error {
	if speed <= 0 {
		return backend.InvalidValue
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.alive(); err != nil {
		return err
	}
	c.speedOfSound = speed

	return nil
}

func (c *renderContext) SetMetersPerUnit(meters float32) error {
	if meters <= 0 {
		return backend.InvalidValue
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.alive(); err != nil {
		return err
	}
	c.metersPerUnit = meters

	return nil
}

func (c *renderContext) SampleRate() int { return c.dev.rate }

func (c *renderContext) Info() backend.Info {
	return backend.Info{
		Renderer: "oto software mixer",
		Vendor:   "ebitengine",
		Version:  "oto/v3",
	}
}

func (c *renderContext) NewVoice() (backend.Voice, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.alive(); err != nil {
		return nil, err
	}

	v := &voice{ctx: c, gain: 1}
	v.player = c.dev.oto.NewPlayer(v)
	v.player.Play()
	c.voices[v] = struct{}{}

	return v, nil
}

func (c *renderContext) forget(v *voice) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.voices, v)
}
