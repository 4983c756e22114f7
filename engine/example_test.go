// SPDX-License-Identifier: EPL-2.0

package engine_test

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"testing/fstest"

	"github.com/ik5/gamesnd/audio"
	"github.com/ik5/gamesnd/engine"
	"github.com/ik5/gamesnd/formats/wav"
	"github.com/ik5/gamesnd/internal/audiotest"
	"github.com/ik5/gamesnd/sample"
)

// Example plays a sound through an in-memory backend, groups it and shuts
// the engine down.
func Example() {
	clip := new(bytes.Buffer)
	if err := wav.WritePCM16(clip, 8000, 1, make([]int16, 800)); err != nil {
		fmt.Printf("Write error: %v\n", err)
		return
	}

	registry := audio.NewRegistry()
	registry.Register("wav", wav.Decoder{})

	e := engine.New(audiotest.NewFakeBackend(), engine.Options{
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		FS:       fstest.MapFS{"sound/weapons/shot.wav": {Data: clip.Bytes()}},
		Registry: registry,
	})

	if err := e.Init(); err != nil {
		fmt.Printf("Init error: %v\n", err)
		return
	}

	s, err := e.Play(`weapons\shot.wav`, sample.KindStatic)
	if err != nil {
		fmt.Printf("Play error: %v\n", err)
		e.Shutdown()
		return
	}
	e.AddSampleToGroup("weapons", s)

	g, _ := e.LookupGroup("weapons")
	fmt.Println("File:", s.FileName())
	fmt.Println("Group size:", g.Len())
	fmt.Println("Groups:", len(e.Groups()))

	e.Shutdown()
	fmt.Println("Samples after shutdown:", len(e.Samples()))
	fmt.Println("Initialized:", e.Initialized())
	// Output:
	// File: sound/weapons/shot.wav
	// Group size: 1
	// Groups: 2
	// Samples after shutdown: 0
	// Initialized: false
}

// ExampleEngine_GetSoundPath maps game paths into the sound directory.
func ExampleEngine_GetSoundPath() {
	e := engine.New(audiotest.NewFakeBackend(), engine.Options{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	fmt.Println(e.GetSoundPath(`player\jump.wav`))
	fmt.Println(e.GetSoundPath("ambience/wind.ogg"))
	// Output:
	// sound/player/jump.wav
	// sound/ambience/wind.ogg
}
