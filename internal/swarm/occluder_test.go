package swarm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRectContainsEdges(t *testing.T) {
	r := Rect{MinX: 10, MinY: 20, MaxX: 30, MaxY: 40}
	tests := []struct {
		p    Vec2
		want bool
	}{
		{Vec2{10, 20}, true},
		{Vec2{30, 40}, true},
		{Vec2{20, 30}, true},
		{Vec2{9.99, 30}, false},
		{Vec2{20, 40.01}, false},
	}
	for _, tt := range tests {
		assert.Equalf(t, tt.want, r.Contains(tt.p), "%v", tt.p)
	}
	assert.False(t, IsUnderOccluder(Vec2{20, 30}, nil))
	assert.True(t, IsUnderOccluder(Vec2{20, 30}, []Rect{{}, r}))
}

func TestOccluderStore(t *testing.T) {
	var s OccluderStore
	assert.Nil(t, s.Load())

	list := []Rect{{MaxX: 1, MaxY: 1}}
	s.Store(list)
	list[0].MaxX = 99
	assert.Equal(t, float32(1), s.Load()[0].MaxX, "store keeps its own copy")

	s.Store(make([]Rect, 50))
	assert.Len(t, s.Load(), MaxOccluders)

	s.Store(nil)
	assert.Empty(t, s.Load())
}
