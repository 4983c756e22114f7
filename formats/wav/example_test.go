// SPDX-License-Identifier: EPL-2.0

package wav_test

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/ik5/gamesnd/formats/wav"
)

// Example_roundTrip writes a short PCM16 clip and decodes it back.
func Example_roundTrip() {
	original := []int16{-16384, 0, 16384}

	data := new(bytes.Buffer)
	if err := wav.WritePCM16(data, 22050, 1, original); err != nil {
		fmt.Printf("Write error: %v\n", err)
		return
	}

	source, err := wav.Decoder{}.Decode(data)
	if err != nil {
		fmt.Printf("Decode error: %v\n", err)
		return
	}

	buf := make([]float32, len(original))
	n, err := source.ReadSamples(buf)
	if err != nil && err != io.EOF {
		fmt.Printf("Read error: %v\n", err)
		return
	}

	fmt.Printf("Sample rate: %d Hz\n", source.SampleRate())
	fmt.Printf("Channels: %d\n", source.Channels())
	fmt.Printf("Samples: %+.2f\n", buf[:n])
	// Output:
	// Sample rate: 22050 Hz
	// Channels: 1
	// Samples: [-0.50 +0.00 +0.50]
}

// Example_errorNotWAV shows how invalid input is reported.
func Example_errorNotWAV() {
	_, err := wav.Decoder{}.Decode(bytes.NewReader([]byte("This is not a WAV file")))

	if errors.Is(err, wav.ErrNotWavFile) {
		fmt.Println("Detected: Not a valid WAV file")
	}
	// Output: Detected: Not a valid WAV file
}
