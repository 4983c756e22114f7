// SPDX-License-Identifier: EPL-2.0

package mp3

import (
	"encoding/binary"
	"fmt"
	"io"

	gomp3 "github.com/hajimehoshi/go-mp3"
	"github.com/ik5/gamesnd/audio"
	"github.com/ik5/gamesnd/utils"
)

// go-mp3 always produces stereo 16-bit little endian PCM.
const channels = 2

// mp3Reader is the part of gomp3.Decoder the source needs.
type mp3Reader interface {
	Read([]byte) (int, error)
	SampleRate() int
}

type source struct {
	dec        mp3Reader
	sampleRate int
	buf        []byte
	pending    []byte // trailing odd byte of the previous read
}

func (s *source) SampleRate() int { return s.sampleRate }
func (s *source) Channels() int   { return channels }
func (s *source) Close() error    { return nil }

func (s *source) ReadSamples(dst []float32) (int, error) {
	want := (len(dst) - len(dst)%channels) * 2
	if want == 0 {
		return 0, nil
	}

	if cap(s.buf) < want {
		s.buf = make([]byte, want)
	}
	buf := s.buf[:want]

	have := copy(buf, s.pending)
	s.pending = s.pending[:0]

	n, err := s.dec.Read(buf[have:])
	have += n
	if err != nil && err != io.EOF {
		return 0, fmt.Errorf("decoding mp3: %w", err)
	}

	usable := have - have%4
	s.pending = append(s.pending, buf[usable:have]...)

	for i := range usable / 2 {
		dst[i] = utils.Int16ToFloat32(int16(binary.LittleEndian.Uint16(buf[2*i:])))
	}

	if usable == 0 && err == io.EOF {
		return 0, io.EOF
	}

	return usable / 2, nil
}

// Decoder reads MPEG-1/2 Layer III streams.
type Decoder struct{}

func (Decoder) Decode(r io.Reader) (audio.Source, error) {
	dec, err := gomp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotMP3, err)
	}

	return &source{
		dec:        dec,
		sampleRate: dec.SampleRate(),
		buf:        make([]byte, 8192),
	}, nil
}
