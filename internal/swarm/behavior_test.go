package swarm

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testBounds = Bounds{Min: Vec2{0, 25}, Max: Vec2{1000, 800}}

// farAway keeps the threat out of range of every agent inside testBounds.
var farAway = Vec2{-5000, -5000}

func testParams(threat Vec2, agents int) Params {
	return DefaultConfig().NewParams(threat, testBounds, TickDuration, agents, 7, 0)
}

func tickOne(a *Agent, p Params, occluders []Rect) {
	agents := []Agent{*a}
	p.AgentCount = 1
	p.OccluderCount = len(occluders)
	UpdateAgent(agents, 0, &p, occluders)
	*a = agents[0]
}

func walker(pos Vec2, seed uint32) Agent {
	return Agent{Position: pos, State: StateRandomWalk, RandomSeed: seed}
}

func TestStrongStimulusAlwaysEscapes(t *testing.T) {
	center := testBounds.Center()
	threat := center.Add(Vec2{50, 0})
	for _, s := range []State{StateIdle, StateRandomWalk, StateWallFollow, StateStop} {
		for seed := uint32(0); seed < 200; seed++ {
			a := Agent{Position: center, State: s, StateTimer: 5, RandomSeed: seed}
			tickOne(&a, testParams(threat, 1), nil)
			require.Equalf(t, StateEscape, a.State, "from %v with seed %d", s, seed)
			assert.Greater(t, a.StateTimer, float32(0))
		}
	}
}

func TestWeakStimulusStops(t *testing.T) {
	center := testBounds.Center()
	threat := center.Add(Vec2{150, 0})
	for _, s := range []State{StateIdle, StateRandomWalk, StateWallFollow} {
		for seed := uint32(0); seed < 200; seed++ {
			a := Agent{Position: center, State: s, StateTimer: 5, RandomSeed: seed}
			tickOne(&a, testParams(threat, 1), nil)
			require.Equalf(t, StateStop, a.State, "from %v with seed %d", s, seed)
			assert.GreaterOrEqual(t, a.StateTimer, float32(0.28))
			assert.LessOrEqual(t, a.StateTimer, float32(0.8))
		}
	}
}

func TestWeakStimulusKeepsRunningStop(t *testing.T) {
	center := testBounds.Center()
	a := Agent{Position: center, State: StateStop, StateTimer: 3, RandomSeed: 9}
	tickOne(&a, testParams(center.Add(Vec2{150, 0}), 1), nil)
	assert.Equal(t, StateStop, a.State)
	assert.Equal(t, 3-TickDuration, a.StateTimer)
}

func TestEscapingIgnoresNewStimulus(t *testing.T) {
	center := testBounds.Center()
	a := Agent{Position: center, State: StateEscape, StateTimer: 0.7, TargetAngle: 1, CurrentAngle: 1}
	tickOne(&a, testParams(center.Add(Vec2{50, 0}), 1), nil)
	assert.Equal(t, StateEscape, a.State)
	assert.Equal(t, float32(1), a.TargetAngle)
	assert.Equal(t, 0.7-TickDuration, a.StateTimer)
}

func TestEscapeHeadings(t *testing.T) {
	center := testBounds.Center()
	threat := center.Add(Vec2{0, 50})
	threatAngle := threat.Sub(center).Angle()
	towards := 0
	const runs = 2000
	for seed := uint32(0); seed < runs; seed++ {
		a := walker(center, seed)
		tickOne(&a, testParams(threat, 1), nil)
		require.Equal(t, StateEscape, a.State)

		if off := NormalizeAngle(a.TargetAngle - threatAngle); off >= -0.25 && off <= 0.25 {
			towards++
			continue
		}
		// Away responses land between 0 and 90 degrees off the direct flight
		// line, plus noise.
		off := NormalizeAngle(a.TargetAngle - (threatAngle + pi))
		assert.GreaterOrEqualf(t, off, float32(-0.26), "seed %d", seed)
		assert.LessOrEqualf(t, off, halfPi+0.26, "seed %d", seed)
	}
	assert.InDelta(t, 0.1, float64(towards)/runs, 0.04)
}

func TestEscapeRotatesAccelerates(t *testing.T) {
	center := testBounds.Center()
	p := testParams(farAway, 1)
	p.ThreatRadius = 1e6 // keep the flight going
	a := Agent{Position: center, State: StateEscape, StateTimer: 1, TargetAngle: 1, CurrentAngle: 0}
	tickOne(&a, p, nil)
	assert.Equal(t, StateEscape, a.State)
	assert.InDelta(t, float64(p.RotationSpeed*p.DeltaTime), float64(a.CurrentAngle), 1e-6)
	assert.Greater(t, a.Position.X, center.X)

	// Aligned within 0.1 rad: no more turning.
	a = Agent{Position: center, State: StateEscape, StateTimer: 1, TargetAngle: 0.05, CurrentAngle: 0}
	tickOne(&a, p, nil)
	assert.Equal(t, float32(0), a.CurrentAngle)
}

func TestEscapeEnds(t *testing.T) {
	center := testBounds.Center()

	a := Agent{Position: center, State: StateEscape, StateTimer: 0.01}
	tickOne(&a, testParams(farAway, 1), nil)
	assert.Equal(t, StateRandomWalk, a.State, "timer ran out")

	a = Agent{Position: center, State: StateEscape, StateTimer: 5}
	tickOne(&a, testParams(center.Add(Vec2{0, 361}), 1), nil)
	assert.Equal(t, StateRandomWalk, a.State, "fled beyond twice the threat radius")
}

func TestExposureFreezes(t *testing.T) {
	center := testBounds.Center()
	a := walker(center, 3)
	a.WasUnderOccluder = true
	tickOne(&a, testParams(farAway, 1), nil)
	assert.Equal(t, StateStop, a.State)
	assert.Equal(t, exposureFreeze-TickDuration, a.StateTimer)
	assert.False(t, a.WasUnderOccluder)
}

func TestOcclusionIsRemembered(t *testing.T) {
	center := testBounds.Center()
	cover := []Rect{{MinX: center.X - 10, MinY: center.Y - 10, MaxX: center.X + 10, MaxY: center.Y + 10}}
	a := Agent{Position: center, State: StateEscape, StateTimer: 1}
	tickOne(&a, testParams(farAway, 1), cover)
	assert.True(t, a.WasUnderOccluder)
}

func TestStopExpiryInOpenDashesToEdge(t *testing.T) {
	center := testBounds.Center()
	pos := center.Add(Vec2{200, 0})
	a := Agent{Position: pos, State: StateStop, StateTimer: TickDuration / 2, RandomSeed: 11}
	tickOne(&a, testParams(farAway, 1), nil)
	assert.Equal(t, StateEscape, a.State)
	assert.Equal(t, float32(0), a.TargetAngle)
	assert.GreaterOrEqual(t, a.StateTimer, float32(0.3))
	assert.Less(t, a.StateTimer, float32(0.6))
}

func TestStopExpiryInShelterResumesWalking(t *testing.T) {
	nearEdge := Vec2{10, testBounds.Center().Y}
	a := Agent{Position: nearEdge, State: StateStop, StateTimer: TickDuration / 2}
	tickOne(&a, testParams(farAway, 1), nil)
	assert.Equal(t, StateRandomWalk, a.State)

	center := testBounds.Center()
	cover := []Rect{{MinX: 0, MinY: 0, MaxX: 1000, MaxY: 1000}}
	a = Agent{Position: center, State: StateStop, StateTimer: TickDuration / 2, WasUnderOccluder: true}
	tickOne(&a, testParams(farAway, 1), cover)
	assert.Equal(t, StateRandomWalk, a.State)
}

func TestStopSlowsDown(t *testing.T) {
	center := testBounds.Center()
	p := testParams(farAway, 1)
	a := Agent{Position: center, State: StateStop, StateTimer: 2, Velocity: Vec2{10, 0}}
	tickOne(&a, p, nil)
	assert.Equal(t, float32(10)*stopDecay*p.Friction, a.Velocity.X)
}

func TestRandomWalkFindsWall(t *testing.T) {
	for seed := uint32(0); seed < 100; seed++ {
		a := walker(Vec2{10, testBounds.Center().Y}, seed)
		tickOne(&a, testParams(farAway, 1), nil)
		require.Equal(t, StateWallFollow, a.State)
		assert.GreaterOrEqual(t, a.StateTimer, float32(3))
		assert.Less(t, a.StateTimer, float32(10))
	}
}

func TestRandomWalkRestsUnderCover(t *testing.T) {
	center := testBounds.Center()
	cover := []Rect{{MinX: center.X - 50, MinY: center.Y - 50, MaxX: center.X + 50, MaxY: center.Y + 50}}
	rests := 0
	for seed := uint32(0); seed < 1000; seed++ {
		a := walker(center, seed)
		a.WasUnderOccluder = true
		tickOne(&a, testParams(farAway, 1), cover)
		if a.State == StateStop {
			rests++
			assert.GreaterOrEqual(t, a.StateTimer, float32(0.4))
			assert.Less(t, a.StateTimer, float32(7))
		} else {
			assert.Equal(t, StateRandomWalk, a.State)
		}
	}
	assert.Greater(t, rests, 0)
	assert.Less(t, rests, 100)
}

// axisQuadrant returns k when angle is exactly k·π/2 for k in 0..3.
func axisQuadrant(angle float32) (int, bool) {
	for k := 0; k < 4; k++ {
		if angle == float32(k)*halfPi {
			return k, true
		}
	}
	return 0, false
}

func TestRandomWalkSnapsToAxisNearCenter(t *testing.T) {
	const n = 100000
	center := testBounds.Center()
	var quadrants [4]int
	snapped := 0
	for seed := uint32(0); seed < n; seed++ {
		a := walker(center, seed)
		a.TargetAngle, a.CurrentAngle = 0.3, 0.3
		tickOne(&a, testParams(farAway, 1), nil)
		if k, ok := axisQuadrant(a.TargetAngle); ok {
			snapped++
			quadrants[k]++
		}
	}
	// A 1% gate followed by a 70% snap: about 0.7% of walkers per tick.
	assert.Greater(t, snapped, 550)
	assert.Less(t, snapped, 850)
	for k, c := range quadrants {
		assert.Positivef(t, c, "no walker snapped to %d·π/2", k)
	}
}

func TestRandomWalkAwayFromCenterNeverSnaps(t *testing.T) {
	// 300px from the centre is outside 30% of the half-diagonal and clear
	// of every wall.
	pos := testBounds.Center().Add(Vec2{300, 0})
	require.Greater(t, pos.Dist(testBounds.Center()), testBounds.HalfDiagonal()*0.3)
	for seed := uint32(0); seed < 50000; seed++ {
		a := walker(pos, seed)
		a.TargetAngle, a.CurrentAngle = 0.3, 0.3
		tickOne(&a, testParams(farAway, 1), nil)
		_, ok := axisQuadrant(a.TargetAngle)
		require.Falsef(t, ok, "seed %d snapped to %v", seed, a.TargetAngle)
	}
}

func TestWallFollowRests(t *testing.T) {
	tests := []struct {
		name             string
		pos              Vec2
		minRest, maxRest float32
		minHits, maxHits int
	}{
		// 1% per tick, resting 3-8 s.
		{"corner", Vec2{10, testBounds.Min.Y + 10}, 3, 8, 140, 260},
		// 0.3% per tick, resting 1-3 s.
		{"wall", Vec2{10, testBounds.Center().Y}, 1, 3, 30, 95},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stops := 0
			for seed := uint32(0); seed < 20000; seed++ {
				a := Agent{Position: tt.pos, State: StateWallFollow, StateTimer: 5, Velocity: Vec2{0, 1}, RandomSeed: seed}
				tickOne(&a, testParams(farAway, 1), nil)
				if a.State != StateStop {
					require.Equal(t, StateWallFollow, a.State)
					continue
				}
				stops++
				assert.GreaterOrEqual(t, a.StateTimer, tt.minRest)
				assert.Less(t, a.StateTimer, tt.maxRest)
			}
			assert.GreaterOrEqual(t, stops, tt.minHits)
			assert.LessOrEqual(t, stops, tt.maxHits)
		})
	}
}

func TestWallFollowWithoutWallWalks(t *testing.T) {
	a := Agent{Position: testBounds.Center(), State: StateWallFollow, StateTimer: 5}
	tickOne(&a, testParams(farAway, 1), nil)
	assert.Equal(t, StateRandomWalk, a.State)
}

func TestWallFollowSlidesAlongWall(t *testing.T) {
	moved := 0
	for seed := uint32(0); seed < 200; seed++ {
		start := Vec2{10, testBounds.Center().Y}
		a := Agent{Position: start, State: StateWallFollow, StateTimer: 5, Velocity: Vec2{0, 1}, RandomSeed: seed}
		tickOne(&a, testParams(farAway, 1), nil)
		if a.State != StateWallFollow {
			assert.Equal(t, StateStop, a.State)
			continue
		}
		moved++
		assert.Equal(t, start.X, a.Position.X, "no motion across the wall")
		assert.NotEqual(t, start.Y, a.Position.Y)
		assert.InDelta(t, float64(halfPi), float64(abs32(a.TargetAngle)), 1e-6)
	}
	assert.Greater(t, moved, 150)
}

func TestWallFollowLeavesAfterTimer(t *testing.T) {
	left := 0
	for seed := uint32(0); seed < 2000; seed++ {
		a := Agent{Position: Vec2{10, testBounds.Center().Y}, State: StateWallFollow, StateTimer: 0, RandomSeed: seed}
		tickOne(&a, testParams(farAway, 1), nil)
		if a.State == StateRandomWalk {
			left++
			off := NormalizeAngle(a.TargetAngle)
			assert.LessOrEqual(t, abs32(off), float32(0.5))
			assert.Greater(t, a.Velocity.X, float32(0), "pushed away from the left wall")
		}
	}
	assert.Greater(t, left, 0)
}

func TestDeadAndRevivingDoNotMove(t *testing.T) {
	center := testBounds.Center()
	for _, s := range []State{StateDead, StateReviving} {
		a := Agent{Position: center, State: s, DeathTimer: 0.5, Velocity: Vec2{5, 5}, CurrentAngle: 1}
		tickOne(&a, testParams(center.Add(Vec2{10, 0}), 1), nil)
		assert.Equal(t, s, a.State)
		assert.Equal(t, center, a.Position)
		assert.Equal(t, Vec2{}, a.Velocity)
		assert.Equal(t, float32(1), a.CurrentAngle)
	}
}

func TestSquashRoundTripTakesThreeSeconds(t *testing.T) {
	agents := []Agent{walker(testBounds.Center(), 5)}
	require.True(t, SquashAt(agents, 0))
	p := testParams(testBounds.Center(), 1)

	ticks := 0
	for agents[0].State != StateRandomWalk {
		require.Less(t, ticks, 1000)
		UpdateAgent(agents, 0, &p, nil)
		ticks++
		if ticks == 120 {
			assert.Equal(t, StateReviving, agents[0].State)
			assert.Equal(t, ReviveDuration, agents[0].DeathTimer)
		}
	}
	assert.Equal(t, 180, ticks)
	assert.Equal(t, float32(0), agents[0].DeathTimer)
}

func TestIdleBootstrapsToWalk(t *testing.T) {
	a := Agent{Position: testBounds.Center(), State: StateIdle}
	tickOne(&a, testParams(farAway, 1), nil)
	assert.Equal(t, StateRandomWalk, a.State)

	a = Agent{Position: testBounds.Center(), State: State(42)}
	tickOne(&a, testParams(farAway, 1), nil)
	assert.Equal(t, StateRandomWalk, a.State)
}

func TestBounceOffMinEdge(t *testing.T) {
	p := testParams(farAway, 1)
	p.DeltaTime = 1.0 / 60
	a := Agent{Position: Vec2{testBounds.Min.X + 5, 400}, Velocity: Vec2{-6, 0}}
	a.integrate(&p)
	require.Equal(t, float32(1), p.DeltaTime*frameRateScale)
	assert.Equal(t, testBounds.Min.X, a.Position.X)
	assert.Equal(t, float32(-6)*p.Friction*wallRestitution, a.Velocity.X)
	assert.Greater(t, a.Velocity.X, float32(0))
}

func TestIntegrateClampsSpeed(t *testing.T) {
	p := testParams(farAway, 1)
	a := Agent{Position: testBounds.Center(), Velocity: Vec2{300, 400}}
	a.integrate(&p)
	assert.InDelta(t, float64(p.MaxSpeed*p.Friction), float64(a.Velocity.Len()), 1e-3)
}

func TestUpdateAgentIgnoresOutOfRange(t *testing.T) {
	agents := []Agent{walker(testBounds.Center(), 1), walker(testBounds.Center(), 2)}
	before := append([]Agent(nil), agents...)
	p := testParams(farAway, 1)
	UpdateAgent(agents, 1, &p, nil)
	UpdateAgent(agents, -1, &p, nil)
	UpdateAgent(agents, 5, &p, nil)
	assert.Equal(t, before, agents)
}

func TestOccluderCountIsHonored(t *testing.T) {
	center := testBounds.Center()
	cover := []Rect{{MinX: 0, MinY: 0, MaxX: 1000, MaxY: 1000}}
	agents := []Agent{walker(center, 1)}
	p := testParams(farAway, 1)
	p.OccluderCount = 0
	UpdateAgent(agents, 0, &p, cover)
	assert.False(t, agents[0].WasUnderOccluder)

	p.OccluderCount = 99
	UpdateAgent(agents, 0, &p, cover)
	assert.True(t, agents[0].WasUnderOccluder)
}

func TestLongRunKeepsAgentsValid(t *testing.T) {
	rnd := rand.New(rand.NewSource(1))
	agents := Spawn(300, testBounds, rnd)
	cover := []Rect{
		{MinX: 100, MinY: 100, MaxX: 400, MaxY: 300},
		{MinX: 600, MinY: 500, MaxX: 950, MaxY: 790},
	}
	cfg := DefaultConfig()
	for frame := uint32(0); frame < 900; frame++ {
		// Sweep the threat around the screen so every branch gets exercised.
		threat := Vec2{500 + 450*float32(rnd.Float64()*2-1), 400 + 350*float32(rnd.Float64()*2-1)}
		if frame%97 == 0 {
			SquashNearest(threat, agents)
		}
		occ := cover
		if frame%120 >= 60 {
			occ = nil
		}
		p := cfg.NewParams(threat, testBounds, TickDuration, len(agents), frame, len(occ))
		require.NoError(t, Sequential{}.Dispatch(agents, &p, occ))

		for i := range agents {
			a := &agents[i]
			require.Truef(t, a.State.Valid(), "agent %d state %v", i, a.State)
			if a.State.Down() {
				continue
			}
			require.LessOrEqualf(t, a.Velocity.Len(), cfg.MaxSpeed, "agent %d speed", i)
			require.GreaterOrEqual(t, a.Position.X, testBounds.Min.X)
			require.LessOrEqual(t, a.Position.X, testBounds.Max.X)
			require.GreaterOrEqual(t, a.Position.Y, testBounds.Min.Y)
			require.LessOrEqual(t, a.Position.Y, testBounds.Max.Y)
		}
	}
}

func TestUpdateOrderDoesNotMatter(t *testing.T) {
	rnd := rand.New(rand.NewSource(2))
	forward := Spawn(64, testBounds, rnd)
	backward := append([]Agent(nil), forward...)
	for frame := uint32(0); frame < 200; frame++ {
		p := DefaultConfig().NewParams(Vec2{500, 400}, testBounds, TickDuration, len(forward), frame, 0)
		for i := range forward {
			UpdateAgent(forward, i, &p, nil)
		}
		for i := len(backward) - 1; i >= 0; i-- {
			UpdateAgent(backward, i, &p, nil)
		}
	}
	assert.Equal(t, forward, backward)
}

func TestTickIsReproducible(t *testing.T) {
	run := func() []Agent {
		agents := Spawn(32, testBounds, rand.New(rand.NewSource(3)))
		for frame := uint32(0); frame < 300; frame++ {
			p := DefaultConfig().NewParams(Vec2{float32(frame), 400}, testBounds, TickDuration, len(agents), frame, 0)
			_ = Sequential{}.Dispatch(agents, &p, nil)
		}
		return agents
	}
	assert.Equal(t, run(), run())
}
