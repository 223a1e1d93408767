package swarm

import (
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"
)

const spawnInset = 50

// FrameInput carries the external inputs of one tick.
type FrameInput struct {
	Threat Vec2
	Bounds Bounds
	// DeltaTime defaults to TickDuration when zero.
	DeltaTime float32
}

// StateCounts tallies agents per state.
type StateCounts [stateCount]int

func (c StateCounts) String() string {
	parts := make([]string, len(c))
	for s, n := range c {
		parts[s] = fmt.Sprintf("%s=%d", State(s), n)
	}
	return strings.Join(parts, " ")
}

// World is the simulation context: the agent buffer, the frame counter, the
// current occluder list and the backend that runs the per-agent update.
// Tick, Squash and Views are serialized by the world lock.
type World struct {
	mu         sync.Mutex
	cfg        Config
	agents     []Agent
	frame      uint32
	occluders  OccluderStore
	dispatcher Dispatcher
	lastTick   time.Duration
}

// NewWorld spawns cfg.Count agents inside bounds.
func NewWorld(cfg Config, bounds Bounds, dispatcher Dispatcher, rnd *rand.Rand) *World {
	cfg.Count = ClampCount(cfg.Count)
	return &World{
		cfg:        cfg,
		agents:     Spawn(cfg.Count, bounds, rnd),
		dispatcher: dispatcher,
	}
}

// Spawn places n idle agents uniformly inside bounds, kept away from the
// edges when there is room for it.
func Spawn(n int, bounds Bounds, rnd *rand.Rand) []Agent {
	agents := make([]Agent, n)
	for i := range agents {
		agents[i] = Agent{
			Position: Vec2{
				spawnCoord(rnd, bounds.Min.X, bounds.Max.X),
				spawnCoord(rnd, bounds.Min.Y, bounds.Max.Y),
			},
			TargetAngle:  rnd.Float32() * twoPi,
			CurrentAngle: rnd.Float32() * twoPi,
			State:        StateIdle,
			RandomSeed:   uint32(i*12345 + 67890),
		}
	}
	return agents
}

func spawnCoord(rnd *rand.Rand, lo, hi float32) float32 {
	if hi-lo <= 2*spawnInset {
		return (lo + hi) / 2
	}
	lo, hi = lo+spawnInset, hi-spawnInset
	return lo + rnd.Float32()*(hi-lo)
}

// Occluders returns the store the occluder feed publishes into.
func (w *World) Occluders() *OccluderStore {
	return &w.occluders
}

// Dispatcher returns the backend running the agent update.
func (w *World) Dispatcher() Dispatcher {
	return w.dispatcher
}

// Tick builds the frame parameters, runs the update over every agent and
// advances the frame counter. It returns once the whole pass is done.
func (w *World) Tick(in FrameInput) error {
	dt := in.DeltaTime
	if dt <= 0 {
		dt = TickDuration
	}
	occluders := w.occluders.Load()

	w.mu.Lock()
	defer w.mu.Unlock()
	start := time.Now()
	params := w.cfg.NewParams(in.Threat, in.Bounds, dt, len(w.agents), w.frame, len(occluders))
	if err := w.dispatcher.Dispatch(w.agents, &params, occluders); err != nil {
		return fmt.Errorf("frame %d: %w", w.frame, err)
	}
	w.frame++
	w.lastTick = time.Since(start)
	return nil
}

// Squash kills the live agent nearest to point, if one is within HitRadius.
func (w *World) Squash(point Vec2) (int, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return SquashNearest(point, w.agents)
}

// Views appends the render-facing state of every agent to dst[:0].
func (w *World) Views(dst []AgentView) []AgentView {
	w.mu.Lock()
	defer w.mu.Unlock()
	dst = dst[:0]
	for i := range w.agents {
		dst = append(dst, w.agents[i].View())
	}
	return dst
}

// Counts tallies the agents per state.
func (w *World) Counts() StateCounts {
	w.mu.Lock()
	defer w.mu.Unlock()
	var c StateCounts
	for i := range w.agents {
		if s := w.agents[i].State; s.Valid() {
			c[s]++
		}
	}
	return c
}

// Frame returns the number of completed ticks.
func (w *World) Frame() uint32 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.frame
}

// LastTickDuration reports how long the previous dispatch took.
func (w *World) LastTickDuration() time.Duration {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastTick
}

// Len returns the fixed number of agents.
func (w *World) Len() int {
	return len(w.agents)
}

// Close releases the dispatcher.
func (w *World) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.dispatcher.Close()
}
