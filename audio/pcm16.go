// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"errors"
	"fmt"
	"io"

	"github.com/ik5/gamesnd/utils"
)

// ToPCM16 converts float samples into dst and returns the int16 slice that
// was written. dst is grown when it is too small.
func ToPCM16(dst []int16, src []float32) []int16 {
	if cap(dst) < len(src) {
		dst = make([]int16, len(src))
	}
	dst = dst[:len(src)]

	for i, v := range src {
		dst[i] = utils.Float32ToInt16(v)
	}

	return dst
}

// ReadAllPCM16 drains src and returns its content as interleaved 16-bit PCM.
func ReadAllPCM16(src Source, bufferSize int) ([]int16, error) {
	channels := src.Channels()
	if channels <= 0 {
		return nil, ErrInvalidChannels
	}

	bufferSize -= bufferSize % channels
	if bufferSize <= 0 {
		bufferSize = 4096 * channels
	}

	buf := make([]float32, bufferSize)
	pcm := make([]int16, 0, bufferSize)

	for {
		n, err := src.ReadSamples(buf)
		for _, v := range buf[:n] {
			pcm = append(pcm, utils.Float32ToInt16(v))
		}

		if errors.Is(err, io.EOF) {
			return pcm, nil
		}
		if err != nil {
			return nil, fmt.Errorf("reading pcm: %w", err)
		}
		if n == 0 {
			// a source that returns nothing without EOF would spin forever
			return pcm, nil
		}
	}
}
