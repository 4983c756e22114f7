// SPDX-License-Identifier: EPL-2.0

// Package engine owns the audio device, the collection of live samples and
// the named groups they are organized in.
//
// An Engine is initialized once at startup, updated every frame from the
// game loop and shut down at exit. In between, a background worker keeps
// advancing every ready sample and retires the ones that finished playing.
//
// # Lock ordering
//
// Three kinds of locks protect the engine state: the sample collection lock,
// the group collection lock and one lock per group. They are always taken in
// that order. Code holding a group lock never reaches for the sample
// collection lock.
//
// # Shutdown
//
// Shutdown asks the worker to exit and waits for its acknowledgement before
// deleting any sample. The wait has no timeout: a sample whose Update never
// returns keeps Shutdown blocked forever.
package engine
