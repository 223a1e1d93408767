package swarm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNextFloatRange(t *testing.T) {
	seed := uint32(1)
	for i := 0; i < 100000; i++ {
		var v float32
		seed, v = nextFloat(seed)
		if v < 0 || v >= 1 {
			t.Fatalf("draw %d out of range: %v", i, v)
		}
	}
}

func TestLargestHashMapsBelowOne(t *testing.T) {
	v := float32(uint32(0xFFFFFFFF)>>8) * (1.0 / 16777216.0)
	assert.Less(t, v, float32(1))
}

func TestStreamIsDeterministic(t *testing.T) {
	draw := func(agentSeed, frame, id uint32) []float32 {
		r := rng{seed: tickSeed(agentSeed, frame, id)}
		out := make([]float32, 16)
		for i := range out {
			out[i] = r.float()
		}
		return out
	}

	assert.Equal(t, draw(67890, 42, 3), draw(67890, 42, 3))
	assert.NotEqual(t, draw(67890, 42, 3), draw(67890, 43, 3))
	assert.NotEqual(t, draw(67890, 42, 3), draw(67890, 42, 4))
}

func TestTickSeed(t *testing.T) {
	assert.Equal(t, uint32(67890)^uint32(5*1000+7), tickSeed(67890, 5, 7))
	assert.Equal(t, uint32(0), tickSeed(0, 0, 0))
}

func TestPCGHashKnownValues(t *testing.T) {
	assert.Equal(t, uint32(129708002), pcgHash(0))
	assert.Equal(t, uint32(2831084092), pcgHash(1))
	assert.Equal(t, uint32(3541032616), pcgHash(67890))
}
