// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"errors"
	"fmt"
	"io"

	"github.com/ik5/gamesnd/utils"
)

// Resampler converts a Source to another sample rate using cubic
// interpolation over a four frame window. When downsampling, a one pole low
// pass filter is applied to the input to reduce aliasing.
type Resampler struct {
	src      Source
	dstRate  int
	ratio    float64 // source frames per output frame
	channels int

	// window holds frames n-1, n, n+1, n+2 around the read position.
	window [4][]float32
	valid  [4]bool
	primed bool
	seeded bool
	eof    bool

	pos    float64
	in     []float32
	smooth []float32
	alpha  float32
}

// NewResampler wraps src so that it produces PCM at dstRate.
func NewResampler(src Source, dstRate int) *Resampler {
	channels := src.Channels()
	ratio := float64(src.SampleRate()) / float64(dstRate)

	r := &Resampler{
		src:      src,
		dstRate:  dstRate,
		ratio:    ratio,
		channels: channels,
		in:       make([]float32, channels),
		smooth:   make([]float32, channels),
		alpha:    1,
	}
	if ratio > 1 {
		r.alpha = 0.5
	}

	for i := range r.window {
		r.window[i] = make([]float32, channels)
	}

	return r
}

func (r *Resampler) SampleRate() int { return r.dstRate }
func (r *Resampler) Channels() int   { return r.channels }

func (r *Resampler) Close() error {
	if err := r.src.Close(); err != nil {
		return fmt.Errorf("closing resampler source: %w", err)
	}

	return nil
}

// pull reads one frame from the source into the last window slot.
func (r *Resampler) pull() error {
	if r.eof {
		r.valid[3] = false
		return nil
	}

	n, err := r.src.ReadSamples(r.in)
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("reading resampler source: %w", err)
	}
	if errors.Is(err, io.EOF) {
		r.eof = true
	}

	if n < r.channels {
		r.valid[3] = false
		return nil
	}

	if !r.seeded {
		copy(r.smooth, r.in)
		r.seeded = true
	}

	for c := range r.channels {
		v := r.alpha*r.in[c] + (1-r.alpha)*r.smooth[c]
		r.smooth[c] = v
		r.window[3][c] = v
	}
	r.valid[3] = true

	return nil
}

func (r *Resampler) shift() error {
	first := r.window[0]
	copy(r.window[:], r.window[1:])
	r.window[3] = first
	copy(r.valid[:], r.valid[1:])

	return r.pull()
}

func (r *Resampler) prime() error {
	r.primed = true

	// slot 0 is a copy of the first frame so that the curve starts flat
	for i := 1; i < 4; i++ {
		if err := r.shift(); err != nil {
			return err
		}
	}
	if r.valid[1] {
		copy(r.window[0], r.window[1])
		r.valid[0] = true
	}

	return nil
}

func (r *Resampler) ReadSamples(dst []float32) (int, error) {
	if len(dst)%r.channels != 0 {
		return 0, ErrInvalidDstSize
	}

	if !r.primed {
		if err := r.prime(); err != nil {
			return 0, err
		}
	}

	frames := len(dst) / r.channels
	written := 0

	for written < frames {
		for r.pos >= 1 {
			r.pos--
			if err := r.shift(); err != nil {
				return written * r.channels, err
			}
		}

		if !r.valid[1] {
			return written * r.channels, io.EOF
		}

		y0, y2, y3 := r.window[0], r.window[2], r.window[3]
		if !r.valid[0] {
			y0 = r.window[1]
		}
		if !r.valid[2] {
			y2 = r.window[1]
		}
		if !r.valid[3] {
			y3 = y2
		}

		x := float32(r.pos)
		for c := range r.channels {
			dst[written*r.channels+c] = utils.CubicInterpolate(y0[c], r.window[1][c], y2[c], y3[c], x)
		}

		written++
		r.pos += r.ratio
	}

	return written * r.channels, nil
}
