package swarm

import (
	"errors"
	"fmt"
	"sync"
)

// span is a half-open range of agent indices owned by one worker.
type span struct{ start, end int }

var errPoolClosed = errors.New("worker pool closed")

// WorkerPool spreads a dispatch over long-lived goroutines. Each worker owns a
// contiguous span of the agent buffer, so no two goroutines ever write the
// same agent.
type WorkerPool struct {
	mu      sync.Mutex
	cond    *sync.Cond
	workers int
	spans   []span
	spanLen int
	step    int
	pending int
	closed  bool

	agents    []Agent
	params    *Params
	occluders []Rect
}

// NewWorkerPool starts workers goroutines that stay parked until Dispatch.
func NewWorkerPool(workers int) *WorkerPool {
	if workers < 1 {
		workers = 1
	}
	wp := &WorkerPool{workers: workers}
	wp.cond = sync.NewCond(&wp.mu)
	for i := 0; i < workers; i++ {
		go wp.workerLoop(i)
	}
	return wp
}

func (wp *WorkerPool) Name() string {
	return fmt.Sprintf("cpu x%d", wp.workers)
}

// Dispatch hands the buffer to every worker and blocks until all spans are
// updated.
func (wp *WorkerPool) Dispatch(agents []Agent, p *Params, occluders []Rect) error {
	wp.mu.Lock()
	defer wp.mu.Unlock()
	if wp.closed {
		return errPoolClosed
	}
	if wp.spanLen != len(agents) {
		wp.spans = assignSpans(wp.workers, len(agents))
		wp.spanLen = len(agents)
	}
	wp.agents = agents
	wp.params = p
	wp.occluders = activeOccluders(p, occluders)
	wp.pending = wp.workers
	wp.step++
	wp.cond.Broadcast()
	for wp.pending > 0 {
		wp.cond.Wait()
	}
	wp.agents, wp.params, wp.occluders = nil, nil, nil
	return nil
}

// Close stops the workers. A dispatch already handed out still completes.
func (wp *WorkerPool) Close() {
	wp.mu.Lock()
	wp.closed = true
	wp.cond.Broadcast()
	wp.mu.Unlock()
}

func (wp *WorkerPool) workerLoop(index int) {
	lastStep := 0
	wp.mu.Lock()
	for {
		for wp.step == lastStep && !wp.closed {
			wp.cond.Wait()
		}
		if wp.step == lastStep {
			wp.mu.Unlock()
			return
		}
		lastStep = wp.step
		var sp span
		if index < len(wp.spans) {
			sp = wp.spans[index]
		}
		agents, p, occluders := wp.agents, wp.params, wp.occluders
		wp.mu.Unlock()

		if sp.end > sp.start {
			updateSpan(agents, sp, p, occluders)
		}

		wp.mu.Lock()
		wp.pending--
		if wp.pending == 0 {
			wp.cond.Broadcast()
		}
	}
}

// assignSpans splits n agents into at most workers contiguous spans of
// near-equal size. Workers past the last span receive none.
func assignSpans(workers, n int) []span {
	if workers < 1 {
		workers = 1
	}
	if n <= 0 {
		return nil
	}
	per := (n + workers - 1) / workers
	spans := make([]span, 0, workers)
	for start := 0; start < n; start += per {
		spans = append(spans, span{start: start, end: min(start+per, n)})
	}
	return spans
}
