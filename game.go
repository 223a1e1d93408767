package main

import (
	"log"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/audio"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"gokirun/internal/swarm"
)

// Game is the transparent overlay: it feeds the pointer and clicks into the
// world every tick and draws the resulting agent views.
type Game struct {
	world   *swarm.World
	desktop *x11Desktop
	bounds  swarm.Bounds
	width   int
	height  int

	sprite *ebiten.Image
	views  []swarm.AgentView
	frame  uint32

	leftButton       buttonEdge
	pointerErrLogged bool
	lastStatsLog     time.Time

	audioCtx    *audio.Context
	audioStream *squashAudioStream
	audioPlayer *audio.Player
}

// newGame wires the overlay to world. desktop may be nil.
func newGame(world *swarm.World, desktop *x11Desktop, bounds swarm.Bounds, width, height int) *Game {
	g := &Game{
		world:   world,
		desktop: desktop,
		bounds:  bounds,
		width:   width,
		height:  height,
		sprite:  newBugSprite(),
	}
	if *enableAudioFlag {
		g.audioCtx = audio.NewContext(audioSampleRate)
		g.audioStream = newSquashAudioStream(time.Now().UnixNano())
		if player, err := g.audioCtx.NewPlayer(g.audioStream); err != nil {
			log.Printf("Audio player creation failed: %v", err)
			g.audioStream = nil
		} else {
			g.audioPlayer = player
			g.audioPlayer.SetBufferSize(50 * time.Millisecond)
			g.audioPlayer.Play()
		}
	}
	g.views = world.Views(nil)
	return g
}

// Update squashes the bug under a fresh click, then advances the swarm by
// one tick with the pointer as the threat.
func (g *Game) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}

	ptr := g.pointer()
	if g.desktop != nil {
		// Clicks land on other windows; the X server still reports the button.
		if g.leftButton.press(ptr.Pressed) {
			g.squash(ptr.Pos)
		}
	} else if !*passthroughFlag && inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft) {
		x, y := ebiten.CursorPosition()
		g.squash(swarm.Vec2{X: float32(x), Y: float32(y)})
	}

	in := swarm.FrameInput{Threat: ptr.Pos, Bounds: g.bounds}
	if err := g.world.Tick(in); err != nil {
		return err
	}
	g.views = g.world.Views(g.views)
	g.frame = g.world.Frame()
	g.logStats()
	return nil
}

func (g *Game) squash(at swarm.Vec2) {
	i, ok := g.world.Squash(at)
	if !ok {
		return
	}
	if g.audioStream != nil {
		g.audioStream.Trigger()
	}
	if *debugFlag {
		log.Printf("Squashed bug %d at (%.0f, %.0f)", i, at.X, at.Y)
	}
}

// pointer prefers the global X11 pointer, which keeps moving while the
// cursor is over other windows, and falls back to ebiten's cursor.
func (g *Game) pointer() pointerState {
	if g.desktop != nil {
		ptr, err := g.desktop.Pointer()
		if err == nil {
			return ptr
		}
		if !g.pointerErrLogged {
			log.Printf("X11 pointer unavailable, using window cursor: %v", err)
			g.pointerErrLogged = true
		}
	}
	x, y := ebiten.CursorPosition()
	return pointerState{Pos: swarm.Vec2{X: float32(x), Y: float32(y)}}
}

// buttonEdge turns a polled button level into press events.
type buttonEdge struct {
	down bool
}

// press reports whether the button went down since the previous sample.
func (b *buttonEdge) press(down bool) bool {
	pressed := down && !b.down
	b.down = down
	return pressed
}

func (g *Game) logStats() {
	if !*debugFlag {
		return
	}
	now := time.Now()
	if now.Sub(g.lastStatsLog) < statsLogInterval {
		return
	}
	counts := g.world.Counts()
	log.Printf("Frame %d: tick %v on %s, %v", g.frame, g.world.LastTickDuration(), g.world.Dispatcher().Name(), counts)
	g.lastStatsLog = now
}

func (g *Game) Close() {
	if g.audioPlayer != nil {
		_ = g.audioPlayer.Close()
	}
	g.sprite.Deallocate()
}
