// SPDX-License-Identifier: EPL-2.0

// Package audio is the decoded PCM pipeline every sample reads from.
//
// # Sources
//
// A Source yields interleaved float32 samples in [-1, 1]:
//
//	type Source interface {
//	    SampleRate() int
//	    Channels() int
//	    ReadSamples(dst []float32) (int, error)
//	    Close() error
//	}
//
// ReadSamples returns io.EOF once the stream is exhausted.
//
// # Registry
//
// A Registry maps file extensions to decoders. It is how the sample loader
// decides which format package reads a given sound path:
//
//	reg := audio.NewRegistry()
//	reg.Register("wav", wav.Decoder{})
//	reg.Register("ogg", vorbis.Decoder{})
//	dec, format, ok := reg.ForPath("sound/ambient/wind.ogg")
//
// # Adapting sources to the output
//
// Backends render at one fixed rate and spatialise mono input only. The
// Resampler converts rates with cubic interpolation and the MonoMixer
// averages channels:
//
//	src = audio.NewMonoMixer(src)
//	src = audio.NewResampler(src, ctx.SampleRate())
//
// ToPCM16 and ReadAllPCM16 turn float samples into the 16-bit buffers the
// backend queues.
package audio
