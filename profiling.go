package main

import (
	"fmt"
	"os"
	"runtime/pprof"
	"sync"
	"time"
)

// startDefaultPGORecording writes a CPU profile to path until the returned
// stop func runs or d elapses, whichever comes first.
func startDefaultPGORecording(path string, d time.Duration) (func(), error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating profile: %w", err)
	}
	if err := pprof.StartCPUProfile(f); err != nil {
		f.Close()
		return nil, fmt.Errorf("starting CPU profile: %w", err)
	}
	var once sync.Once
	stop := func() {
		once.Do(func() {
			pprof.StopCPUProfile()
			_ = f.Close()
		})
	}
	time.AfterFunc(d, stop)
	return stop, nil
}
