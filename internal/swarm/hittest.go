package swarm

// SquashNearest kills the live agent closest to point, provided it lies
// strictly within HitRadius. It returns the index of the squashed agent.
// The caller must not run it concurrently with a dispatch over agents.
func SquashNearest(point Vec2, agents []Agent) (int, bool) {
	nearest := -1
	best := HitRadius
	for i := range agents {
		a := &agents[i]
		if a.State.Down() {
			continue
		}
		if d := a.Position.Dist(point); d < best {
			best = d
			nearest = i
		}
	}
	if nearest < 0 {
		return -1, false
	}
	return nearest, SquashAt(agents, nearest)
}

// SquashAt forces agents[i] into DEAD. It is a no-op for out-of-range indices
// and for agents that are already down.
func SquashAt(agents []Agent, i int) bool {
	if i < 0 || i >= len(agents) {
		return false
	}
	a := &agents[i]
	if a.State.Down() {
		return false
	}
	a.State = StateDead
	a.DeathTimer = DeathDuration
	a.Velocity = Vec2{}
	return true
}
