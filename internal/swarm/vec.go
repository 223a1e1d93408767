package swarm

import "math"

// Vec2 is a 2D vector in screen coordinates.
type Vec2 struct {
	X, Y float32
}

func (v Vec2) Add(o Vec2) Vec2      { return Vec2{v.X + o.X, v.Y + o.Y} }
func (v Vec2) Sub(o Vec2) Vec2      { return Vec2{v.X - o.X, v.Y - o.Y} }
func (v Vec2) Scale(s float32) Vec2 { return Vec2{v.X * s, v.Y * s} }
func (v Vec2) Dot(o Vec2) float32   { return v.X*o.X + v.Y*o.Y }

// Len returns the Euclidean length of v.
func (v Vec2) Len() float32 {
	return float32(math.Sqrt(float64(v.X*v.X + v.Y*v.Y)))
}

// Dist returns the Euclidean distance between v and o.
func (v Vec2) Dist(o Vec2) float32 {
	return v.Sub(o).Len()
}

// Angle returns the heading of v in radians.
func (v Vec2) Angle() float32 {
	return atan2(v.Y, v.X)
}

// dir returns the unit vector pointing along angle.
func dir(angle float32) Vec2 {
	s, c := math.Sincos(float64(angle))
	return Vec2{float32(c), float32(s)}
}

func atan2(y, x float32) float32 {
	return float32(math.Atan2(float64(y), float64(x)))
}

const (
	pi     = float32(math.Pi)
	twoPi  = float32(2 * math.Pi)
	halfPi = float32(math.Pi / 2)
)

// NormalizeAngle maps a into (-pi, pi]. Values far outside the range are
// reduced modulo 2*pi first so the adjustment loops always terminate.
func NormalizeAngle(a float32) float32 {
	if a > 4*pi || a < -4*pi {
		a = float32(math.Mod(float64(a), 2*math.Pi))
	}
	for a > pi {
		a -= twoPi
	}
	for a <= -pi {
		a += twoPi
	}
	return a
}

func sign(v float32) float32 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
