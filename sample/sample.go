// SPDX-License-Identifier: EPL-2.0

package sample

import (
	"fmt"
	"time"
)

// Kind tags the concrete variant behind a Sample.
type Kind uint8

const (
	KindStatic Kind = iota
	KindStream
)

func (k Kind) String() string {
	switch k {
	case KindStatic:
		return "static"
	case KindStream:
		return "stream"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// State is the lifecycle position of a sample.
type State int32

const (
	Unopened State = iota
	Opening
	Ready
	Playing
	Finished
)

func (s State) String() string {
	switch s {
	case Unopened:
		return "unopened"
	case Opening:
		return "opening"
	case Ready:
		return "ready"
	case Playing:
		return "playing"
	case Finished:
		return "finished"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Sample is one playable unit managed by the engine.
//
// Update and SubUpdate run on the engine's update worker; the remaining
// methods may be called from any goroutine.
type Sample interface {
	Open(path string) error
	Close() error

	// Update advances the sample by dt. The engine only calls it while
	// IsReady reports true.
	Update(dt time.Duration)
	// SubUpdate performs the variant specific per tick work, such as
	// refilling stream buffers.
	SubUpdate() error

	Play() error
	Stop() error

	IsReady() bool
	IsFinished() bool
	IsPersistent() bool
	SetPersistent(persistent bool)

	FileNameEquals(path string) bool
	FileName() string
	Kind() Kind
	State() State
}
