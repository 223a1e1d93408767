package main

import (
	"fmt"
	"image/color"
	"math"
	"strings"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/vector"

	"gokirun/internal/swarm"
)

// Draw renders every bug, the revive glow of reviving ones and the optional
// debug overlay. The screen is cleared to transparent by ebiten.
func (g *Game) Draw(screen *ebiten.Image) {
	for _, v := range g.views {
		scale, glow := swarm.Squash(v.State, v.DeathTimer)
		if glow > 0 {
			drawReviveGlow(screen, v.Position, glow)
		}
		g.drawBug(screen, v, scale)
	}

	if *debugFlag {
		ebitenutil.DebugPrint(screen, g.debugText())
	}
}

// Layout reports the logical screen size used by Ebiten.
func (g *Game) Layout(_, _ int) (int, int) { return g.width, g.height }

func (g *Game) drawBug(screen *ebiten.Image, v swarm.AgentView, scale float32) {
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Translate(-spriteSize/2, -spriteSize/2)
	op.GeoM.Scale(spriteScale*float64(squashWidth(scale)), spriteScale*float64(scale))
	op.GeoM.Rotate(float64(v.Angle))
	op.GeoM.Translate(float64(v.Position.X), float64(v.Position.Y))
	switch v.State {
	case swarm.StateDead:
		op.ColorScale.Scale(0.7, 0.25, 0.2, 1)
	case swarm.StateReviving:
		op.ColorScale.ScaleAlpha(0.6 + 0.4*(1-v.DeathTimer/swarm.ReviveDuration))
	}
	op.Filter = ebiten.FilterLinear
	screen.DrawImage(g.sprite, op)
}

// squashWidth widens a flattened sprite sideways.
func squashWidth(scale float32) float32 {
	return 1 + (1-scale)*0.3
}

// reviveGlowShape is the geometry of the revive effect at one glow level.
type reviveGlowShape struct {
	Outer, Middle float32
	RayLength     float32
	RayTurn       float32
}

// reviveGlowGeometry grows the outer ring and the rays as the glow fades,
// shrinks the middle ring and turns the rays by up to a quarter of π.
func reviveGlowGeometry(glow float32) reviveGlowShape {
	return reviveGlowShape{
		Outer:     25 + (1-glow)*30,
		Middle:    18 + glow*12,
		RayLength: 20 + (1-glow)*10,
		RayTurn:   glow * math.Pi / 4,
	}
}

// drawReviveGlow draws the rings, glow, core and rays around a reviving bug.
func drawReviveGlow(screen *ebiten.Image, at swarm.Vec2, glow float32) {
	x, y := at.X, at.Y
	shape := reviveGlowGeometry(glow)
	vector.StrokeCircle(screen, x, y, shape.Outer, 3, glowColor(102, 255, 77, 0.9*glow), true)
	vector.StrokeCircle(screen, x, y, shape.Middle, 2, glowColor(153, 255, 128, 0.7*glow), true)
	vector.DrawFilledCircle(screen, x, y, 20, glowColor(204, 255, 153, 0.4*glow), true)
	vector.DrawFilledCircle(screen, x, y, 8, glowColor(255, 255, 230, 0.8*glow), true)

	rayColor := glowColor(179, 255, 128, 0.6*glow)
	for k := 0; k < 4; k++ {
		a := float64(k)*math.Pi/2 + float64(shape.RayTurn)
		dx, dy := float32(math.Cos(a)), float32(math.Sin(a))
		vector.StrokeLine(screen, x+dx*10, y+dy*10, x+dx*shape.RayLength, y+dy*shape.RayLength, 1.5, rayColor, true)
	}
}

func glowColor(r, g, b uint8, alpha float32) color.NRGBA {
	alpha = min(max(alpha, 0), 1)
	return color.NRGBA{R: r, G: g, B: b, A: uint8(alpha * 255)}
}

func (g *Game) debugText() string {
	var sb strings.Builder
	tickMS := g.world.LastTickDuration().Seconds() * 1000
	fmt.Fprintf(&sb, "FPS: %.1f  TPS: %.1f\n", ebiten.ActualFPS(), ebiten.ActualTPS())
	fmt.Fprintf(&sb, "Tick: %.3f ms (%s)\n", tickMS, g.world.Dispatcher().Name())
	fmt.Fprintf(&sb, "Bugs: %d  occluders: %d\n", len(g.views), len(g.world.Occluders().Load()))
	for s, n := range g.world.Counts() {
		fmt.Fprintf(&sb, "%s: %d\n", swarm.State(s), n)
	}
	return sb.String()
}
