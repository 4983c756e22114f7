// SPDX-License-Identifier: EPL-2.0

package engine

import "errors"

var (
	ErrDeviceOpen         = errors.New("engine: audio device could not be opened")
	ErrContextCreate      = errors.New("engine: audio context could not be created")
	ErrContextCurrent     = errors.New("engine: audio context could not be made current")
	ErrSpeedOfSound       = errors.New("engine: speed of sound could not be set")
	ErrNotInitialized     = errors.New("engine: not initialized")
	ErrAlreadyInitialized = errors.New("engine: already initialized")
	ErrGlobalGroup        = errors.New("engine: the global group cannot be removed")
)
