package swarm

// MinSquashScale is the flattest a squashed sprite gets.
const MinSquashScale = float32(0.1)

// Squash derives the sprite scale and revive glow intensity from an agent's
// state. A dead bug flattens as its death timer runs out; a reviving one
// inflates back to full size while the glow fades with the revive timer.
func Squash(state State, deathTimer float32) (scale, glow float32) {
	switch state {
	case StateDead:
		return max(MinSquashScale, deathTimer/DeathDuration), 0
	case StateReviving:
		return max(MinSquashScale, 1-deathTimer/ReviveDuration), clamp01(deathTimer / ReviveDuration)
	}
	return 1, 0
}

func clamp01(v float32) float32 {
	return min(max(v, 0), 1)
}
