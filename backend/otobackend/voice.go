// SPDX-License-Identifier: EPL-2.0

package otobackend

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/ebitengine/oto/v3"
	"github.com/ik5/gamesnd/backend"
	"github.com/ik5/gamesnd/utils"
)

// voice is read by its oto player from the player's own goroutine. While not
// playing it renders silence so the player never hits EOF.
type voice struct {
	ctx    *renderContext
	player *oto.Player

	mu        sync.Mutex
	queue     []backend.Buffer
	processed int
	offset    int // frame offset into queue[processed]
	playing   bool
	deleted   bool
	gain      float32
	position  [3]float32
	relative  bool
}

func (v *voice) Queue(b backend.Buffer) error {
	if b.Channels < 1 || b.Channels > outputChannels || b.Rate != v.ctx.dev.rate || b.Frames() == 0 {
		return backend.InvalidValue
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if v.deleted {
		return backend.InvalidName
	}
	v.queue = append(v.queue, b)

	return nil
}

func (v *voice) Unqueue(n int) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.deleted {
		return backend.InvalidName
	}
	if n < 0 || n > v.processed {
		return backend.InvalidValue
	}

	v.queue = v.queue[n:]
	v.processed -= n

	return nil
}

func (v *voice) Queued() int {
	v.mu.Lock()
	defer v.mu.Unlock()

	return len(v.queue)
}

func (v *voice) Processed() int {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.processed
}

func (v *voice) Play() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.deleted {
		return backend.InvalidName
	}
	v.playing = v.processed < len(v.queue)

	return nil
}

// Stop halts playback and marks every queued buffer processed.
func (v *voice) Stop() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.deleted {
		return backend.InvalidName
	}
	v.playing = false
	v.processed = len(v.queue)
	v.offset = 0

	return nil
}

func (v *voice) Playing() bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.playing
}

func (v *voice) SetGain(gain float32) error {
	if gain < 0 {
		return backend.InvalidValue
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	v.gain = gain

	return nil
}

func (v *voice) SetPosition(pos [3]float32) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.position = pos

	return nil
}

func (v *voice) SetRelative(relative bool) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.relative = relative

	return nil
}

func (v *voice) Delete() error {
	if err := v.close(); err != nil {
		return err
	}
	v.ctx.forget(v)

	return nil
}

func (v *voice) close() error {
	v.mu.Lock()
	if v.deleted {
		v.mu.Unlock()
		return backend.InvalidName
	}
	v.deleted = true
	v.playing = false
	v.queue = nil
	v.mu.Unlock()

	if err := v.player.Close(); err != nil {
		return fmt.Errorf("closing oto player: %w", err)
	}

	return nil
}

// Read implements io.Reader for the oto player.
func (v *voice) Read(p []byte) (int, error) {
	frames := len(p) / bytesPerFrame
	gain := v.ctx.listenerGain.Load()

	v.mu.Lock()
	defer v.mu.Unlock()

	gain *= v.gain

	for f := range frames {
		var l, r int16

		if v.playing {
			buf := v.queue[v.processed]
			i := v.offset * buf.Channels
			l = buf.Data[i]
			r = l
			if buf.Channels > 1 {
				r = buf.Data[i+1]
			}

			v.offset++
			if v.offset >= buf.Frames() {
				v.offset = 0
				v.processed++
				if v.processed >= len(v.queue) {
					v.playing = false
				}
			}
		}

		out := p[f*bytesPerFrame:]
		binary.LittleEndian.PutUint16(out[0:2], uint16(scale(l, gain)))
		binary.LittleEndian.PutUint16(out[2:4], uint16(scale(r, gain)))
	}

	return frames * bytesPerFrame, nil
}

func scale(s int16, gain float32) int16 {
	if gain == 1 {
		return s
	}

	return utils.Float32ToInt16(utils.Int16ToFloat32(s) * gain)
}
