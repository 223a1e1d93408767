package main

import "time"

// Overlay, audio and profiling constants.
const (
	windowTitle          = "gokirun"
	defaultTPS           = 60
	fallbackScreenWidth  = 1920
	fallbackScreenHeight = 1080
	spriteSize           = 60
	spriteScale          = 1.0
	pgoRecordDuration    = 15 * time.Second
	statsLogInterval     = 10 * time.Second
	audioSampleRate      = 48000
	squashSoundDuration  = 120 * time.Millisecond
	squashSoundDecay     = 0.9993
)
