package main

import "flag"

// Command-line flags that control the swarm, the dispatch backend and the
// optional runtime behavior of the overlay.
var (
	// countFlag sets the number of bugs; clamped to [1, 1000].
	countFlag int

	// configFlag names a YAML file overriding the tuning constants.
	configFlag = flag.String("config", "", "YAML file overriding the swarm tuning (see swarm.yaml)")

	// dispatchFlag picks the backend running the per-agent update.
	dispatchFlag = flag.String("dispatch", "cpu", "update backend: seq, cpu or opencl")

	workersFlag = flag.Int("workers", 0, "CPU worker goroutines (0 uses every core)")

	// seedFlag seeds spawn placement; zero picks one from the clock.
	seedFlag = flag.Int64("seed", 0, "spawn seed (0 picks one from the clock)")

	// debugFlag enables the FPS and per-state overlay.
	debugFlag = flag.Bool("debug", false, "show FPS, tick time and per-state counts")

	// enableAudioFlag plays a short crunch on every squash.
	enableAudioFlag = flag.Bool("enable-audio", false, "play a sound when a bug is squashed")

	// x11Flag reads occluders, the pointer and the work area from the X server.
	x11Flag = flag.Bool("x11", true, "track desktop windows and the global pointer through X11")

	// passthroughFlag lets clicks reach the windows under the overlay. With X11
	// bugs are squashed from the global button state either way.
	passthroughFlag = flag.Bool("passthrough", true, "let clicks fall through the overlay to the desktop")

	verifyOpenCLFlag = flag.Bool("verify-opencl", false, "compare every OpenCL tick against the CPU update")

	// recordDefaultPGO captures default.pgo while the swarm runs.
	recordDefaultPGO = flag.Bool("record-default-pgo", false, "capture default.pgo for the first 15s")
)

func init() {
	flag.IntVar(&countFlag, "count", 0, "number of bugs (1-1000, default 10)")
	flag.IntVar(&countFlag, "c", 0, "shorthand for -count")
}
