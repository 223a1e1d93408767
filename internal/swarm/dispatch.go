package swarm

import (
	"errors"
	"fmt"
	"runtime"
)

// Dispatcher runs the behavior update over every agent of a buffer and
// returns once all of them are done.
type Dispatcher interface {
	Name() string
	Dispatch(agents []Agent, p *Params, occluders []Rect) error
	Close()
}

// Dispatcher kinds accepted by NewDispatcher.
const (
	DispatchSequential = "seq"
	DispatchCPU        = "cpu"
	DispatchOpenCL     = "opencl"
)

var errUnknownDispatcher = errors.New("unknown dispatcher")

// NewDispatcher builds the named backend. workers only matters for the CPU
// pool; values below one select runtime.NumCPU().
func NewDispatcher(kind string, agentCount, workers int) (Dispatcher, error) {
	switch kind {
	case DispatchSequential:
		return Sequential{}, nil
	case DispatchCPU:
		if workers < 1 {
			workers = runtime.NumCPU()
		}
		return NewWorkerPool(workers), nil
	case DispatchOpenCL:
		d, err := NewOpenCLDispatcher(agentCount)
		if err != nil {
			return nil, err
		}
		return d, nil
	}
	return nil, fmt.Errorf("%w: %q", errUnknownDispatcher, kind)
}

// Sequential updates agents one after another on the calling goroutine.
type Sequential struct{}

func (Sequential) Name() string { return "sequential" }

func (Sequential) Dispatch(agents []Agent, p *Params, occluders []Rect) error {
	updateSpan(agents, span{0, len(agents)}, p, activeOccluders(p, occluders))
	return nil
}

func (Sequential) Close() {}

// updateSpan steps every agent in sp that lies below the configured count.
func updateSpan(agents []Agent, sp span, p *Params, occluders []Rect) {
	end := min(sp.end, len(agents), p.AgentCount)
	for i := sp.start; i < end; i++ {
		step(&agents[i], uint32(i), p, occluders)
	}
}
