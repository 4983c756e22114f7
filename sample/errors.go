// SPDX-License-Identifier: EPL-2.0

package sample

import "errors"

var (
	ErrUnsupportedFormat = errors.New("no decoder registered for sound format")
	ErrAlreadyOpen       = errors.New("sample already opened")
	ErrNotOpen           = errors.New("sample is not open")
	ErrNoContext         = errors.New("no audio context to create voices on")
	ErrEmptySound        = errors.New("sound contains no audio")
)
