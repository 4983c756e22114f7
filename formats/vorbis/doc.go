// SPDX-License-Identifier: EPL-2.0

// Package vorbis decodes Ogg Vorbis sounds with github.com/jfreymuth/oggvorbis.
//
// Vorbis is the usual format for music and ambient loops, which the engine
// plays as streaming samples: the decoder is pulled one buffer at a time
// and never holds the whole sound in memory.
package vorbis
