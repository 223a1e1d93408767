package swarm

import (
	"context"
	"log"
	"time"
)

// MinOccluderInterval is the fastest the occluder list may be refreshed.
const MinOccluderInterval = 500 * time.Millisecond

// OccluderSource enumerates the rectangles currently covering the desktop.
type OccluderSource interface {
	Occluders() ([]Rect, error)
}

// StaticOccluders is a fixed occluder list.
type StaticOccluders []Rect

func (s StaticOccluders) Occluders() ([]Rect, error) {
	return s, nil
}

// RunOccluderFeed refreshes store from src until ctx is done. Each refresh
// replaces the whole list; a failed refresh keeps the previous one.
func RunOccluderFeed(ctx context.Context, src OccluderSource, store *OccluderStore, interval time.Duration) error {
	if interval < MinOccluderInterval {
		interval = MinOccluderInterval
	}
	var lastErr string
	refresh := func() {
		rects, err := src.Occluders()
		if err != nil {
			if msg := err.Error(); msg != lastErr {
				log.Printf("Occluder refresh failed: %v", err)
				lastErr = msg
			}
			return
		}
		lastErr = ""
		store.Store(rects)
	}

	refresh()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			refresh()
		}
	}
}
