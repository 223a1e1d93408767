package swarm

// Preferred escape trajectories relative to the threat axis: 90, 120, 150
// and 180 degrees.
var escapeAngles = [4]float32{1.5708, 2.0944, 2.618, 3.1416}

const (
	walkPush      = float32(0.5)
	wallPush      = float32(2.0)
	tangentPush   = float32(0.3)
	stopDecay     = float32(0.8)
	occludedDecay = float32(0.85)
)

func expired(timer float32) bool {
	return timer <= timerEpsilon
}

// UpdateAgent advances agents[id] by one tick. It touches no other agent, so
// any number of calls for distinct ids may run concurrently. Ids outside the
// configured agent count are ignored.
func UpdateAgent(agents []Agent, id int, p *Params, occluders []Rect) {
	if id < 0 || id >= p.AgentCount || id >= len(agents) {
		return
	}
	step(&agents[id], uint32(id), p, activeOccluders(p, occluders))
}

// activeOccluders returns the prefix of list announced by p, never more than
// MaxOccluders entries.
func activeOccluders(p *Params, list []Rect) []Rect {
	n := p.OccluderCount
	if n > len(list) {
		n = len(list)
	}
	if n < 0 {
		n = 0
	}
	return truncateOccluders(list[:n])
}

func step(a *Agent, id uint32, p *Params, occluders []Rect) {
	r := rng{seed: tickSeed(a.RandomSeed, p.Frame, id)}

	under := IsUnderOccluder(a.Position, occluders)
	reactive := a.State != StateEscape && !a.State.Down()
	if reactive && a.WasUnderOccluder && !under {
		// Exposed: freeze before deciding where to run.
		a.enter(StateStop, exposureFreeze)
		a.WasUnderOccluder = false
	} else {
		a.WasUnderOccluder = under
	}

	toThreat := p.Threat.Sub(a.Position)
	dist := toThreat.Len()
	if reactive {
		switch {
		case dist < p.ThreatRadius*0.5:
			a.startle(&r, toThreat.Angle())
		case dist < p.ThreatRadius && a.State != StateStop:
			a.enter(StateStop, 0.3+r.float()*0.5)
		}
	}

	switch a.State {
	case StateEscape:
		a.escape(p, dist)
	case StateStop:
		a.stop(&r, p, under)
	case StateRandomWalk:
		a.randomWalk(&r, p, under)
	case StateWallFollow:
		a.wallFollow(&r, p)
	case StateDead:
		a.Velocity = Vec2{}
		a.DeathTimer -= p.DeltaTime
		if expired(a.DeathTimer) {
			a.State = StateReviving
			a.DeathTimer = ReviveDuration
		}
	case StateReviving:
		a.Velocity = Vec2{}
		a.DeathTimer -= p.DeltaTime
		if expired(a.DeathTimer) {
			a.State = StateRandomWalk
			a.DeathTimer = 0
		}
	default:
		// IDLE, or a corrupted value: start walking.
		a.State = StateRandomWalk
	}

	if !a.State.Down() {
		a.integrate(p)
	}
	a.RandomSeed = r.seed
}

// enter switches to a timed state and resets its dwell timer.
func (a *Agent) enter(s State, timer float32) {
	a.State = s
	a.StateTimer = timer
}

// startle reacts to a strong stimulus by picking an escape heading. Most of
// the time the bug runs off at one of the preferred angles; otherwise it
// turns slightly toward the threat.
func (a *Agent) startle(r *rng, threatAngle float32) {
	a.enter(StateEscape, 0.5+r.float()*0.5)
	base := escapeAngles[int(r.float()*4)%4]
	noise := (r.float() - 0.5) * 0.5
	if r.chance(0.9) {
		a.TargetAngle = threatAngle + pi + base - halfPi + noise
	} else {
		a.TargetAngle = threatAngle + (r.float()-0.5)*0.5
	}
}

func (a *Agent) escape(p *Params, distToThreat float32) {
	diff := NormalizeAngle(a.TargetAngle - a.CurrentAngle)
	if abs32(diff) > 0.1 {
		a.CurrentAngle += sign(diff) * p.RotationSpeed * p.DeltaTime
	}
	a.Velocity = a.Velocity.Add(dir(a.CurrentAngle).Scale(p.EscapeAcceleration))

	a.StateTimer -= p.DeltaTime
	if expired(a.StateTimer) || distToThreat > p.ThreatRadius*2 {
		a.State = StateRandomWalk
	}
}

func (a *Agent) stop(r *rng, p *Params, under bool) {
	a.Velocity = a.Velocity.Scale(stopDecay)
	if r.chance(0.01) {
		a.CurrentAngle += (r.float() - 0.5) * 0.2
	}

	a.StateTimer -= p.DeltaTime
	if !expired(a.StateTimer) {
		return
	}
	if !under && !nearWall(a.Position, p) {
		// Caught in the open: dash for the closest edge.
		a.enter(StateEscape, 0.3+r.float()*0.3)
		a.TargetAngle = a.Position.Sub(p.Bounds.Center()).Angle()
		return
	}
	a.State = StateRandomWalk
}

func (a *Agent) randomWalk(r *rng, p *Params, under bool) {
	if r.chance(0.03) {
		a.TargetAngle = r.float() * twoPi
	}
	if r.chance(0.002) {
		a.enter(StateStop, 0.5+r.float()*1.5)
	}

	if r.chance(0.01) {
		if a.Position.Dist(p.Bounds.Center()) < p.Bounds.HalfDiagonal()*0.3 {
			if r.chance(0.7) {
				a.TargetAngle = float32(int(r.float()*4)) * halfPi
			}
		}
	}

	diff := NormalizeAngle(a.TargetAngle - a.CurrentAngle)
	a.CurrentAngle += sign(diff) * min(abs32(diff), p.RotationSpeed*p.DeltaTime*0.3)
	a.Velocity = a.Velocity.Add(dir(a.CurrentAngle).Scale(walkPush))

	if nearWall(a.Position, p) {
		a.enter(StateWallFollow, 3+r.float()*7)
	}
	if under {
		a.Velocity = a.Velocity.Scale(occludedDecay)
		if r.chance(0.03) {
			a.enter(StateStop, 2+r.float()*5)
		}
	}
}

func (a *Agent) wallFollow(r *rng, p *Params) {
	n := wallNormal(a.Position, p)
	corner := n.X != 0 && n.Y != 0
	a.StateTimer -= p.DeltaTime

	if n == (Vec2{}) {
		a.State = StateRandomWalk
		return
	}

	stopChance := float32(0.003)
	if corner {
		stopChance = 0.01
	}
	switch {
	case r.chance(stopChance):
		if corner {
			a.enter(StateStop, 3+r.float()*5)
		} else {
			a.enter(StateStop, 1+r.float()*2)
		}
	case expired(a.StateTimer) && r.chance(0.02):
		a.State = StateRandomWalk
		a.TargetAngle = n.Angle() + (r.float()-0.5)*1.0
		a.Velocity = a.Velocity.Add(n.Scale(wallPush))
	default:
		tangent := Vec2{-n.Y, n.X}
		if a.Velocity.Dot(tangent) < 0 {
			tangent = tangent.Scale(-1)
		}
		if r.chance(0.005) {
			tangent = tangent.Scale(-1)
		}
		a.TargetAngle = tangent.Angle()
		a.Velocity = a.Velocity.Add(tangent.Scale(tangentPush))
	}
}

// integrate clamps speed, moves the agent, applies friction and bounces it
// off the screen edges.
func (a *Agent) integrate(p *Params) {
	if speed := a.Velocity.Len(); speed > p.MaxSpeed {
		a.Velocity = a.Velocity.Scale(p.MaxSpeed / speed)
	}
	a.Position = a.Position.Add(a.Velocity.Scale(p.DeltaTime * frameRateScale))
	a.Velocity = a.Velocity.Scale(p.Friction)

	lo, hi := p.Bounds.Min, p.Bounds.Max
	if a.Position.X < lo.X {
		a.Position.X = lo.X
		a.Velocity.X *= wallRestitution
	}
	if a.Position.X > hi.X {
		a.Position.X = hi.X
		a.Velocity.X *= wallRestitution
	}
	if a.Position.Y < lo.Y {
		a.Position.Y = lo.Y
		a.Velocity.Y *= wallRestitution
	}
	if a.Position.Y > hi.Y {
		a.Position.Y = hi.Y
		a.Velocity.Y *= wallRestitution
	}
}

func nearWall(pos Vec2, p *Params) bool {
	b := p.Bounds
	return pos.X < b.Min.X+p.WallRadius || pos.X > b.Max.X-p.WallRadius ||
		pos.Y < b.Min.Y+p.WallRadius || pos.Y > b.Max.Y-p.WallRadius
}

// wallNormal returns the inward normal of the edges within WallRadius of pos,
// or the zero vector away from all edges. Both components are set in corners.
func wallNormal(pos Vec2, p *Params) Vec2 {
	var n Vec2
	b := p.Bounds
	if pos.X < b.Min.X+p.WallRadius {
		n.X = 1
	}
	if pos.X > b.Max.X-p.WallRadius {
		n.X = -1
	}
	if pos.Y < b.Min.Y+p.WallRadius {
		n.Y = 1
	}
	if pos.Y > b.Max.Y-p.WallRadius {
		n.Y = -1
	}
	return n
}
