package main

import (
	"math/rand"
	"sync"
)

// squashAudioStream is an endless 16-bit stereo stream that is silent until
// Trigger starts a decaying noise burst.
type squashAudioStream struct {
	mu        sync.Mutex
	rnd       *rand.Rand
	remaining int
	amp       float32
	lowpass   float32
}

func newSquashAudioStream(seed int64) *squashAudioStream {
	return &squashAudioStream{rnd: rand.New(rand.NewSource(seed))}
}

// Trigger restarts the burst; squashes in quick succession just rearm it.
func (s *squashAudioStream) Trigger() {
	s.mu.Lock()
	s.remaining = int(squashSoundDuration.Seconds() * audioSampleRate)
	s.amp = 1
	s.mu.Unlock()
}

func (s *squashAudioStream) Read(p []byte) (int, error) {
	// Ensure we generate whole stereo frames (4 bytes per frame).
	frameBytes := len(p) - len(p)%4
	if frameBytes == 0 {
		return 0, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := 0; i < frameBytes; i += 4 {
		var v int16
		if s.remaining > 0 {
			white := s.rnd.Float32()*2 - 1
			s.lowpass += (white - s.lowpass) * 0.35
			v = int16(s.lowpass * s.amp * 24000)
			s.amp *= squashSoundDecay
			s.remaining--
		}
		p[i] = byte(v)
		p[i+1] = byte(v >> 8)
		p[i+2] = p[i]
		p[i+3] = p[i+1]
	}
	return frameBytes, nil
}

func (s *squashAudioStream) Close() error {
	return nil
}
