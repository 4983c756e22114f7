// SPDX-License-Identifier: EPL-2.0

package backend

// ExtensionEFX names the effects extension whose presence enables auxiliary
// effect sends.
const ExtensionEFX = "ALC_EXT_EFX"

// Backend opens output devices.
type Backend interface {
	// OpenDevice opens the named device, or the default one when name is
	// empty.
	OpenDevice(name string) (Device, error)
}

// Device is an opened output device.
type Device interface {
	HasExtension(name string) bool
	// MaxAuxiliarySends is only meaningful when the EFX extension is present.
	MaxAuxiliarySends() int
	CreateContext() (Context, error)
	Close() error
}

// Info describes the renderer behind a context.
type Info struct {
	Renderer string
	Vendor   string
	Version  string
}

// Context is a rendering context on a device. It owns the listener and every
// voice created from it.
type Context interface {
	MakeCurrent() error
	// Release detaches the context from the calling process, the equivalent
	// of making no context current.
	Release() error
	Destroy() error

	SetListenerPosition(pos [3]float32) error
	// SetListenerOrientation takes the forward vector followed by the up
	// vector.
	SetListenerOrientation(orientation [6]float32) error
	SetListenerGain(gain float32) error
	SetSpeedOfSound(speed float32) error
	SetMetersPerUnit(meters float32) error

	// SampleRate is the rate every queued buffer must be rendered at.
	SampleRate() int
	Info() Info

	NewVoice() (Voice, error)
}

// Buffer is a block of interleaved 16-bit PCM.
type Buffer struct {
	Data     []int16
	Channels int
	Rate     int
}

// Frames returns the number of frames in b.
func (b Buffer) Frames() int {
	if b.Channels <= 0 {
		return 0
	}

	return len(b.Data) / b.Channels
}

// Voice is a playback source fed by a queue of buffers. Buffers are played in
// queue order; a buffer that has been played completely counts as processed
// until it is unqueued. A voice whose queue runs dry stops by itself.
type Voice interface {
	Queue(b Buffer) error
	// Unqueue removes n processed buffers from the head of the queue.
	Unqueue(n int) error
	Queued() int
	Processed() int

	Play() error
	Stop() error
	Playing() bool

	SetGain(gain float32) error
	SetPosition(pos [3]float32) error
	// SetRelative makes the position relative to the listener.
	SetRelative(relative bool) error

	Delete() error
}
