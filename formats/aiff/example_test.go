// SPDX-License-Identifier: EPL-2.0

package aiff_test

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/ik5/gamesnd/formats/aiff"
)

// Example_errorNotAIFF shows that a RIFF file is rejected.
func Example_errorNotAIFF() {
	_, err := aiff.Decoder{}.Decode(bytes.NewReader([]byte("RIFF\x00\x00\x00\x00WAVE")))

	if errors.Is(err, aiff.ErrNotAiffFile) {
		fmt.Println("Detected: Not a valid AIFF file")
	}
	// Output: Detected: Not a valid AIFF file
}
