// SPDX-License-Identifier: EPL-2.0

// Package wav decodes RIFF/WAVE sounds through github.com/go-audio/wav.
//
// The decoder accepts integer PCM at 16, 24 or 32 bits, any channel count
// and any sample rate. Extra chunks (LIST, fact, cue) between the format and
// data chunks are skipped by the go-audio parser.
//
//	src, err := wav.Decoder{}.Decode(file)
//	if errors.Is(err, wav.ErrNotWavFile) {
//	    // not a wave file
//	}
//
// Readers that cannot seek are buffered in memory first.
//
// WritePCM16 writes canonical 44 byte header WAV files and is mostly useful
// for generating fixtures.
package wav
