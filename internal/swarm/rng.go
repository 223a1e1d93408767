package swarm

// pcgHash is the PCG output permutation used as a stateless hash. Each call
// advances the stream by feeding the previous output back in.
func pcgHash(input uint32) uint32 {
	state := input*747796405 + 2891336453
	word := ((state >> ((state >> 28) + 4)) ^ state) * 277803737
	return (word >> 22) ^ word
}

// nextFloat advances seed and returns a value in [0, 1). Only the top 24 bits
// are used so the result is exact in float32 and never rounds up to 1.
func nextFloat(seed uint32) (uint32, float32) {
	seed = pcgHash(seed)
	return seed, float32(seed>>8) * (1.0 / 16777216.0)
}

// tickSeed mixes the persistent agent seed with the frame counter and agent id.
func tickSeed(agentSeed, frame, id uint32) uint32 {
	return agentSeed ^ (frame*1000 + id)
}

// rng is the per-tick random stream of a single agent.
type rng struct {
	seed uint32
}

func (r *rng) float() float32 {
	var v float32
	r.seed, v = nextFloat(r.seed)
	return v
}

// chance draws once and reports whether the draw fell below p.
func (r *rng) chance(p float32) bool {
	return r.float() < p
}
