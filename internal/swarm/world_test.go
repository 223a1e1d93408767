package swarm

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWorld(t *testing.T, count int) *World {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Count = count
	w := NewWorld(cfg, testBounds, Sequential{}, rand.New(rand.NewSource(6)))
	t.Cleanup(w.Close)
	return w
}

func TestSpawn(t *testing.T) {
	agents := Spawn(50, testBounds, rand.New(rand.NewSource(7)))
	require.Len(t, agents, 50)
	for i, a := range agents {
		assert.Equal(t, StateIdle, a.State)
		assert.Equal(t, uint32(i*12345+67890), a.RandomSeed)
		assert.GreaterOrEqual(t, a.Position.X, testBounds.Min.X+spawnInset)
		assert.LessOrEqual(t, a.Position.X, testBounds.Max.X-spawnInset)
		assert.GreaterOrEqual(t, a.Position.Y, testBounds.Min.Y+spawnInset)
		assert.LessOrEqual(t, a.Position.Y, testBounds.Max.Y-spawnInset)
	}

	tiny := Bounds{Min: Vec2{10, 10}, Max: Vec2{60, 60}}
	agents = Spawn(3, tiny, rand.New(rand.NewSource(8)))
	for _, a := range agents {
		assert.Equal(t, Vec2{35, 35}, a.Position)
	}
}

func TestNewWorldClampsCount(t *testing.T) {
	assert.Equal(t, MinAgents, newTestWorld(t, 0).Len())
	assert.Equal(t, MaxAgents, newTestWorld(t, 5000).Len())
}

func TestWorldTick(t *testing.T) {
	w := newTestWorld(t, 20)
	require.NoError(t, w.Tick(FrameInput{Threat: farAway, Bounds: testBounds}))
	require.NoError(t, w.Tick(FrameInput{Threat: farAway, Bounds: testBounds}))
	assert.Equal(t, uint32(2), w.Frame())

	views := w.Views(nil)
	require.Len(t, views, 20)
	counts := w.Counts()
	total := 0
	for _, n := range counts {
		total += n
	}
	assert.Equal(t, 20, total)
	assert.Zero(t, counts[StateIdle], "idle agents start walking on their first tick")
}

func TestWorldSquashAndRevive(t *testing.T) {
	w := newTestWorld(t, 5)
	views := w.Views(nil)
	target := views[2].Position

	i, ok := w.Squash(target)
	require.True(t, ok)
	views = w.Views(views)
	assert.Equal(t, StateDead, views[i].State)
	assert.Equal(t, DeathDuration, views[i].DeathTimer)

	for n := 0; n < 180; n++ {
		require.NoError(t, w.Tick(FrameInput{Threat: farAway, Bounds: testBounds}))
	}
	assert.NotEqual(t, StateDead, w.Views(nil)[i].State)
	assert.NotEqual(t, StateReviving, w.Views(nil)[i].State)
}

func TestWorldUsesPublishedOccluders(t *testing.T) {
	w := newTestWorld(t, 10)
	w.Occluders().Store([]Rect{{MinX: -1e6, MinY: -1e6, MaxX: 1e6, MaxY: 1e6}})
	require.NoError(t, w.Tick(FrameInput{Threat: farAway, Bounds: testBounds}))
	for i := range w.agents {
		assert.True(t, w.agents[i].WasUnderOccluder)
	}

	// Lifting the cover exposes every agent at once.
	w.Occluders().Store(nil)
	require.NoError(t, w.Tick(FrameInput{Threat: farAway, Bounds: testBounds}))
	for i := range w.agents {
		assert.Equal(t, StateStop, w.agents[i].State)
		assert.False(t, w.agents[i].WasUnderOccluder)
	}
}

type failingDispatcher struct{ Sequential }

func (failingDispatcher) Dispatch([]Agent, *Params, []Rect) error { return errPoolClosed }

func TestWorldTickReportsDispatchError(t *testing.T) {
	cfg := DefaultConfig()
	w := NewWorld(cfg, testBounds, failingDispatcher{}, rand.New(rand.NewSource(9)))
	err := w.Tick(FrameInput{Threat: farAway, Bounds: testBounds})
	assert.ErrorIs(t, err, errPoolClosed)
	assert.Equal(t, uint32(0), w.Frame())
}

func TestStateCountsString(t *testing.T) {
	var c StateCounts
	c[StateEscape] = 3
	assert.Equal(t, "idle=0 random-walk=0 wall-follow=0 escape=3 stop=0 dead=0 reviving=0", c.String())
}
