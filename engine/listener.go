// SPDX-License-Identifier: EPL-2.0

package engine

import (
	"math"

	"github.com/ik5/gamesnd/backend"
)

// Listener is the local player's view used for spatialization, expressed in
// game units.
type Listener struct {
	Position [3]float32
	Forward  [3]float32
	Up       [3]float32
}

// ListenerProvider reports where the local player is and how loud the game
// should be. It is queried once per frame from Engine.Update.
type ListenerProvider interface {
	// Listener returns the local player's view, or false when there is no
	// local player.
	Listener() (Listener, bool)
	// Volume is the master volume pushed as listener gain.
	Volume() float32
}

var (
	defaultPosition    = [3]float32{0, 0, 0}
	defaultOrientation = [6]float32{0, 0, -1, 0, 0, 0}
)

// listenerValues resolves what the engine pushes to the backend for the
// current frame. Without a provider, or without a local player, the listener
// sits at the origin looking down -Z and the gain is 1.
func listenerValues(p ListenerProvider) (pos [3]float32, orientation [6]float32, gain float32) {
	pos, orientation, gain = defaultPosition, defaultOrientation, 1
	if p == nil {
		return pos, orientation, gain
	}

	gain = p.Volume()

	l, ok := p.Listener()
	if !ok {
		return pos, orientation, gain
	}

	pos = l.Position
	orientation = [6]float32{
		l.Forward[0], l.Forward[1], l.Forward[2],
		l.Up[0], l.Up[1], l.Up[2],
	}

	return pos, orientation, gain
}

// pushListener sends the listener state of this frame to ctx. Failures are
// logged and counted, never fatal.
func (e *Engine) pushListener(ctx backend.Context) {
	pos, orientation, gain := listenerValues(e.opts.Listener)

	if backend.LogError(e.logger, "listener position", ctx.SetListenerPosition(pos)) {
		e.metrics.BackendError("listener position")
	}
	if backend.LogError(e.logger, "listener orientation", ctx.SetListenerOrientation(orientation)) {
		e.metrics.BackendError("listener orientation")
	}
	if backend.LogError(e.logger, "listener gain", ctx.SetListenerGain(gain)) {
		e.metrics.BackendError("listener gain")
	}
}

// AngleVectors converts view angles in degrees to forward, right and up unit
// vectors using the game's convention: X forward, Y left, Z up.
func AngleVectors(pitch, yaw, roll float32) (forward, right, up [3]float32) {
	sp, cp := sincos(pitch)
	sy, cy := sincos(yaw)
	sr, cr := sincos(roll)

	forward = [3]float32{cp * cy, cp * sy, -sp}
	right = [3]float32{
		-sr*sp*cy + cr*sy,
		-sr*sp*sy - cr*cy,
		-sr * cp,
	}
	up = [3]float32{
		cr*sp*cy + sr*sy,
		cr*sp*sy - sr*cy,
		cr * cp,
	}

	return forward, right, up
}

func sincos(deg float32) (float32, float32) {
	s, c := math.Sincos(float64(deg) * math.Pi / 180)
	return float32(s), float32(c)
}
