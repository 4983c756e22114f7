// SPDX-License-Identifier: EPL-2.0

package sample

import "strings"

// DefaultRoot is the asset directory every sound path lives under.
const DefaultRoot = "sound"

// SoundPath returns the canonical path of a sound given relative to the
// sound directory, with either slash style.
func SoundPath(relativePath string) string {
	return JoinSoundPath(DefaultRoot, relativePath)
}

// JoinSoundPath is SoundPath with a custom asset directory.
func JoinSoundPath(root, relativePath string) string {
	return strings.ReplaceAll(root+"/"+relativePath, `\`, "/")
}
