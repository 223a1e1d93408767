//go:build !opencl

package swarm

import "errors"

// OpenCLDispatcher is unavailable without the opencl build tag.
type OpenCLDispatcher struct{}

func NewOpenCLDispatcher(_ int) (*OpenCLDispatcher, error) {
	return nil, errors.New("OpenCL support is not enabled; rebuild with -tags opencl")
}

func (d *OpenCLDispatcher) Name() string { return "opencl (unavailable)" }

func (d *OpenCLDispatcher) SetVerify(bool) {}

func (d *OpenCLDispatcher) Dispatch([]Agent, *Params, []Rect) error {
	return errors.New("OpenCL dispatcher unavailable")
}

func (d *OpenCLDispatcher) Close() {}
