package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSquashAudioStreamSilentUntilTriggered(t *testing.T) {
	s := newSquashAudioStream(1)
	buf := make([]byte, 1027)
	n, err := s.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 1024, n)
	for _, b := range buf[:n] {
		require.Zero(t, b)
	}

	s.Trigger()
	n, err = s.Read(buf)
	require.NoError(t, err)
	nonZero := 0
	for i := 0; i < n; i += 4 {
		assert.Equal(t, buf[i:i+2], buf[i+2:i+4], "channels carry the same sample")
		if buf[i] != 0 || buf[i+1] != 0 {
			nonZero++
		}
	}
	assert.Positive(t, nonZero)
}

func TestSquashAudioStreamBurstEnds(t *testing.T) {
	s := newSquashAudioStream(2)
	s.Trigger()
	frames := int(squashSoundDuration.Seconds() * audioSampleRate)
	_, err := s.Read(make([]byte, frames*4))
	require.NoError(t, err)

	tail := make([]byte, 64)
	_, err = s.Read(tail)
	require.NoError(t, err)
	assert.Equal(t, make([]byte, 64), tail)
}
