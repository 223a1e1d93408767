package swarm

import "sync/atomic"

// Rect is an axis-aligned occluder rectangle. Edges are inclusive.
type Rect struct {
	MinX float32 `yaml:"min_x"`
	MinY float32 `yaml:"min_y"`
	MaxX float32 `yaml:"max_x"`
	MaxY float32 `yaml:"max_y"`
}

// Contains reports whether p lies within the closed bounds of r.
func (r Rect) Contains(p Vec2) bool {
	return p.X >= r.MinX && p.X <= r.MaxX && p.Y >= r.MinY && p.Y <= r.MaxY
}

// IsUnderOccluder reports whether p lies inside any rectangle of list.
func IsUnderOccluder(p Vec2, list []Rect) bool {
	for _, r := range list {
		if r.Contains(p) {
			return true
		}
	}
	return false
}

// truncateOccluders caps list at MaxOccluders.
func truncateOccluders(list []Rect) []Rect {
	if len(list) > MaxOccluders {
		return list[:MaxOccluders]
	}
	return list
}

// OccluderStore holds the current occluder list. Readers always observe a
// complete list; Store replaces it as a whole.
type OccluderStore struct {
	list atomic.Pointer[[]Rect]
}

// Store copies list, truncating it to MaxOccluders, and publishes the copy.
func (s *OccluderStore) Store(list []Rect) {
	list = truncateOccluders(list)
	cp := make([]Rect, len(list))
	copy(cp, list)
	s.list.Store(&cp)
}

// Load returns the most recently stored list. The result must not be modified.
func (s *OccluderStore) Load() []Rect {
	if p := s.list.Load(); p != nil {
		return *p
	}
	return nil
}
