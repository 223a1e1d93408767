package swarm

import "fmt"

// State is the behavior state of a single agent.
type State int32

const (
	StateIdle State = iota
	StateRandomWalk
	StateWallFollow
	StateEscape
	StateStop
	StateDead
	StateReviving
	stateCount
)

var stateNames = [...]string{
	StateIdle:       "idle",
	StateRandomWalk: "random-walk",
	StateWallFollow: "wall-follow",
	StateEscape:     "escape",
	StateStop:       "stop",
	StateDead:       "dead",
	StateReviving:   "reviving",
}

func (s State) String() string {
	if s.Valid() {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

// Valid reports whether s is one of the seven known states.
func (s State) Valid() bool {
	return s >= StateIdle && s < stateCount
}

// Down reports whether the agent is squashed or still reviving. Down agents
// ignore threats and occluders and never move.
func (s State) Down() bool {
	return s == StateDead || s == StateReviving
}

// Agent is the per-bug record mutated in place by every tick.
type Agent struct {
	Position     Vec2
	Velocity     Vec2
	TargetAngle  float32
	CurrentAngle float32
	State        State
	// StateTimer bounds the dwell time of ESCAPE, STOP and WALL_FOLLOW.
	StateTimer float32
	// DeathTimer counts down while DEAD or REVIVING.
	DeathTimer       float32
	WasUnderOccluder bool
	RandomSeed       uint32
}

// AgentView is the per-agent data handed to the renderer after a tick.
type AgentView struct {
	Position   Vec2
	Angle      float32
	State      State
	DeathTimer float32
}

// View returns the render-facing subset of a.
func (a *Agent) View() AgentView {
	return AgentView{
		Position:   a.Position,
		Angle:      a.CurrentAngle,
		State:      a.State,
		DeathTimer: a.DeathTimer,
	}
}

// Bounds is the visible screen area the agents are confined to.
type Bounds struct {
	Min, Max Vec2
}

// Center returns the midpoint of b.
func (b Bounds) Center() Vec2 {
	return b.Min.Add(b.Max).Scale(0.5)
}

// HalfDiagonal returns half the length of the diagonal of b.
func (b Bounds) HalfDiagonal() float32 {
	return b.Max.Sub(b.Min).Len() * 0.5
}
