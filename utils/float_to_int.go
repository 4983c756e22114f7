// SPDX-License-Identifier: EPL-2.0

package utils

const (
	int16Scale   = 32767.0
	int16Divisor = 32768.0
)

// Float32ToInt16 converts a normalised sample to 16-bit PCM, clamping values
// outside [-1, 1].
func Float32ToInt16(x float32) int16 {
	return int16(Clamp32(x, -1, 1) * int16Scale)
}

// Int16ToFloat32 converts 16-bit PCM to a normalised sample.
func Int16ToFloat32(v int16) float32 {
	return float32(v) / int16Divisor
}

// IntToFloat32 normalises a signed PCM value of the given bit depth.
// Unknown depths are treated as 16-bit.
func IntToFloat32(v int, bitDepth int) float32 {
	var full float32
	switch bitDepth {
	case 8:
		full = 128
	case 24:
		full = 8388608
	case 32:
		full = 2147483648
	default:
		full = int16Divisor
	}

	return float32(v) / full
}

// Clamp32 limits x to [lo, hi].
func Clamp32(x, lo, hi float32) float32 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}

	return x
}
