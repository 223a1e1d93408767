package swarm

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedSource struct {
	mu    sync.Mutex
	calls int
	lists [][]Rect
}

// Occluders returns the scripted lists in order and fails once they run out.
func (s *scriptedSource) Occluders() ([]Rect, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.calls > len(s.lists) {
		return nil, errors.New("display gone")
	}
	return s.lists[s.calls-1], nil
}

func (s *scriptedSource) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func runFeed(t *testing.T, src OccluderSource, store *OccluderStore) (cancel func()) {
	t.Helper()
	ctx, cancelCtx := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- RunOccluderFeed(ctx, src, store, 0) }()
	return func() {
		cancelCtx()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Fatal("occluder feed did not stop")
		}
	}
}

func TestOccluderFeedPublishesImmediately(t *testing.T) {
	var store OccluderStore
	want := StaticOccluders{{MinX: 1, MinY: 2, MaxX: 3, MaxY: 4}}
	stop := runFeed(t, want, &store)
	defer stop()

	require.Eventually(t, func() bool { return len(store.Load()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []Rect(want), store.Load())
}

func TestOccluderFeedKeepsListOnFailure(t *testing.T) {
	var store OccluderStore
	src := &scriptedSource{lists: [][]Rect{{{MaxX: 5, MaxY: 5}}}}
	stop := runFeed(t, src, &store)
	defer stop()

	require.Eventually(t, func() bool { return src.Calls() >= 3 }, 3*time.Second, 10*time.Millisecond)
	assert.Equal(t, []Rect{{MaxX: 5, MaxY: 5}}, store.Load())
}
