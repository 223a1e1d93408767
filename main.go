package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand"
	"os"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"golang.org/x/sync/errgroup"

	"gokirun/internal/swarm"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags]\n\nBugs scatter away from the pointer and hide under windows.\n\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if err := run(); err != nil {
		log.Fatalf("%v", err)
	}
}

func run() error {
	if *recordDefaultPGO {
		stop, err := startDefaultPGORecording("default.pgo", pgoRecordDuration)
		if err != nil {
			return fmt.Errorf("PGO recording: %w", err)
		}
		defer stop()
		log.Printf("Recording default.pgo for %v", pgoRecordDuration)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	var desktop *x11Desktop
	if *x11Flag {
		if desktop, err = openX11Desktop(); err != nil {
			log.Printf("X11 desktop unavailable, occluders and global pointer disabled: %v", err)
		} else {
			defer desktop.Close()
		}
	}

	width, height := screenSize(desktop)
	bounds := visibleBounds(desktop, width, height)
	winWidth, winHeight := width, height
	if desktop != nil {
		// X11 reports physical pixels; window sizes are device-independent.
		winWidth, winHeight = windowSize(width, height, deviceScaleFactor())
	} else if *passthroughFlag {
		log.Printf("Without X11 clicks pass through the overlay; run with -passthrough=false to squash bugs")
	}

	dispatcher, err := newDispatcher(*dispatchFlag, cfg.Count)
	if err != nil {
		return err
	}
	log.Printf("Spawning %d bugs, update backend: %s", cfg.Count, dispatcher.Name())

	seed := *seedFlag
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	world := swarm.NewWorld(cfg, bounds, dispatcher, rand.New(rand.NewSource(seed)))
	defer world.Close()

	ctx, cancel := context.WithCancel(context.Background())
	group, gctx := errgroup.WithContext(ctx)
	if src := occluderSource(cfg, desktop); src != nil {
		group.Go(func() error {
			return swarm.RunOccluderFeed(gctx, src, world.Occluders(), swarm.MinOccluderInterval)
		})
	}
	if desktop != nil {
		group.Go(func() error {
			return desktop.KeepBelow(gctx, os.Getpid())
		})
	}

	game := newGame(world, desktop, bounds, width, height)
	defer game.Close()

	ebiten.SetWindowTitle(windowTitle)
	ebiten.SetWindowDecorated(false)
	ebiten.SetWindowSize(winWidth, winHeight)
	ebiten.SetWindowPosition(0, 0)
	ebiten.SetWindowMousePassthrough(*passthroughFlag)
	ebiten.SetTPS(defaultTPS)
	runErr := ebiten.RunGameWithOptions(game, &ebiten.RunGameOptions{
		ScreenTransparent: true,
		SkipTaskbar:       true,
	})

	cancel()
	if err := group.Wait(); err != nil {
		log.Printf("Desktop tracking stopped: %v", err)
	}
	if runErr != nil {
		return fmt.Errorf("overlay stopped: %w", runErr)
	}
	return nil
}

// loadConfig merges the YAML file, if any, with an explicit -count.
func loadConfig() (swarm.Config, error) {
	cfg := swarm.DefaultConfig()
	if *configFlag != "" {
		var err error
		if cfg, err = swarm.LoadConfig(*configFlag); err != nil {
			return cfg, err
		}
	}
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "count" || f.Name == "c" {
			cfg.Count = countFlag
		}
	})
	if n := swarm.ClampCount(cfg.Count); n != cfg.Count {
		log.Printf("Bug count %d out of range, using %d", cfg.Count, n)
		cfg.Count = n
	}
	return cfg, nil
}

// newDispatcher builds the requested backend. A missing OpenCL device falls
// back to the CPU pool.
func newDispatcher(kind string, count int) (swarm.Dispatcher, error) {
	d, err := swarm.NewDispatcher(kind, count, *workersFlag)
	if err != nil && kind == swarm.DispatchOpenCL {
		log.Printf("OpenCL dispatch unavailable, falling back to CPU workers: %v", err)
		d, err = swarm.NewDispatcher(swarm.DispatchCPU, count, *workersFlag)
	}
	if err != nil {
		return nil, fmt.Errorf("dispatcher setup: %w", err)
	}
	if v, ok := d.(interface{ SetVerify(bool) }); ok && *verifyOpenCLFlag {
		v.SetVerify(true)
		log.Printf("Verifying every OpenCL tick against the CPU update")
	}
	return d, nil
}

func screenSize(desktop *x11Desktop) (int, int) {
	if desktop != nil {
		return desktop.ScreenSize()
	}
	if m := ebiten.Monitor(); m != nil {
		if w, h := m.Size(); w > 0 && h > 0 {
			return w, h
		}
	}
	return fallbackScreenWidth, fallbackScreenHeight
}

// deviceScaleFactor reports the monitor scale, or 1 before ebiten knows it.
func deviceScaleFactor() float64 {
	if m := ebiten.Monitor(); m != nil {
		if s := m.DeviceScaleFactor(); s > 0 {
			return s
		}
	}
	return 1
}

// windowSize converts a physical pixel size to device-independent units.
// Layout keeps the physical size, so cursor and X11 coordinates agree.
func windowSize(width, height int, scale float64) (int, int) {
	if scale <= 0 {
		scale = 1
	}
	return int(math.Round(float64(width) / scale)), int(math.Round(float64(height) / scale))
}

// visibleBounds is the desktop work area when the window manager publishes
// one, otherwise the whole screen.
func visibleBounds(desktop *x11Desktop, width, height int) swarm.Bounds {
	full := swarm.Bounds{Max: swarm.Vec2{X: float32(width), Y: float32(height)}}
	if desktop == nil {
		return full
	}
	area, err := desktop.WorkArea()
	if err != nil {
		log.Printf("Using the full screen as bounds: %v", err)
		return full
	}
	return area
}

// occluderSource prefers occluders from the config file over live windows.
func occluderSource(cfg swarm.Config, desktop *x11Desktop) swarm.OccluderSource {
	switch {
	case len(cfg.Occluders) > 0:
		return swarm.StaticOccluders(cfg.Occluders)
	case desktop != nil:
		return desktop
	}
	return nil
}
