// SPDX-License-Identifier: EPL-2.0

// Package gamesnd wires the sound engine of a game client together: an audio
// backend, the decoders for the supported formats, metrics and the engine
// itself.
//
// # Supported Formats
//
// Sounds are decoded by extension:
//   - WAV (PCM 16, 24 and 32 bit) via formats/wav
//   - MP3 via formats/mp3
//   - Ogg Vorbis via formats/vorbis
//   - AIFF (PCM 16 and 24 bit) via formats/aiff
//
// # Quick Start
//
//	cfg, err := config.Load("")
//	if err != nil {
//		return err
//	}
//
//	snd, err := gamesnd.New(cfg, gamesnd.Options{Logger: gamesnd.NewLogger(cfg, os.Stderr)})
//	if err != nil {
//		return err
//	}
//	if err := snd.Init(); err != nil {
//		return err
//	}
//	defer snd.Shutdown()
//
//	snd.Play("ambient/wind.ogg", sample.KindStream, sample.WithLooping())
//
//	for running {
//		snd.Update(frameTime)
//	}
//
// Update must be called once per frame from the game loop. Everything else
// may be called from any goroutine.
package gamesnd
