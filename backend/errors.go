// SPDX-License-Identifier: EPL-2.0

package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// ErrorCode is the error state a backend reports after a failed call.
type ErrorCode int

const (
	NoError ErrorCode = iota
	InvalidName
	InvalidEnum
	InvalidValue
	InvalidOperation
	OutOfMemory
)

var codeNames = map[ErrorCode]string{
	NoError:          "no error",
	InvalidName:      "invalid name",
	InvalidEnum:      "invalid enum",
	InvalidValue:     "invalid value",
	InvalidOperation: "invalid operation",
	OutOfMemory:      "out of memory",
}

func (c ErrorCode) String() string {
	if s, ok := codeNames[c]; ok {
		return s
	}

	return fmt.Sprintf("unknown error code %d", int(c))
}

func (c ErrorCode) Error() string { return "audio backend: " + c.String() }

var (
	ErrNoDevice    = errors.New("no audio device available")
	ErrContextLost = errors.New("audio context destroyed")
)

// Code extracts the ErrorCode carried by err. Errors that are not backend
// codes report InvalidOperation, nil reports NoError.
func Code(err error) ErrorCode {
	if err == nil {
		return NoError
	}

	var c ErrorCode
	if errors.As(err, &c) {
		return c
	}

	return InvalidOperation
}

// LogError records a failed backend call. It returns true when err was not
// nil, so callers can chain it after a call.
func LogError(logger *slog.Logger, op string, err error) bool {
	if err == nil {
		return false
	}

	level := slog.LevelWarn
	if Code(err) == OutOfMemory {
		level = slog.LevelError
	}

	logger.Log(context.Background(), level, "audio backend call failed",
		"op", op,
		"code", Code(err).String(),
		"error", err)

	return true
}
