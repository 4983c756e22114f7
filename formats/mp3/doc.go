// SPDX-License-Identifier: EPL-2.0

// Package mp3 decodes MP3 sounds with github.com/hajimehoshi/go-mp3.
//
// go-mp3 always yields stereo 16-bit PCM, so every source from this package
// reports two channels regardless of the file's channel mode.
package mp3
