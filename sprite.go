package main

import (
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"
)

var (
	bugBodyColor = color.RGBA{60, 36, 20, 255}
	bugHeadColor = color.RGBA{35, 22, 12, 255}
	bugLegColor  = color.RGBA{25, 16, 10, 230}
)

// newBugSprite draws a bug facing +x, centred in a spriteSize square.
func newBugSprite() *ebiten.Image {
	const c = spriteSize / 2
	img := ebiten.NewImage(spriteSize, spriteSize)

	for _, side := range []float32{-1, 1} {
		for _, dx := range []float32{-8, 0, 8} {
			vector.StrokeLine(img, c+dx, c, c+dx*1.4+side*2, c+side*15, 1.5, bugLegColor, true)
		}
		// Antennae.
		vector.StrokeLine(img, c+12, c+side*3, c+22, c+side*10, 1, bugLegColor, true)
	}

	// The body is a circle stretched into an ellipse along the heading.
	body := ebiten.NewImage(20, 20)
	vector.DrawFilledCircle(body, 10, 10, 10, bugBodyColor, true)
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Translate(-10, -10)
	op.GeoM.Scale(1.3, 0.8)
	op.GeoM.Translate(c-2, c)
	img.DrawImage(body, op)
	body.Deallocate()

	vector.DrawFilledCircle(img, c+12, c, 5, bugHeadColor, true)
	return img
}
