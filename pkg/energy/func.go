package energy

import (
	"context"
	"sync/atomic"
)

// ReadFunc returns cumulative Joules for the interval ending at currNs.
type ReadFunc func(lastNs, currNs int64) (float64, error)

// Func adapts a function into a Backend. It is meant for synthetic sources,
// replaying recorded traces and tests.
type Func struct {
	name    string
	read    ReadFunc
	started atomic.Bool
}

var _ Backend = (*Func)(nil)

// NewFunc returns a Backend named name that delegates reads to fn.
func NewFunc(name string, fn ReadFunc) *Func {
	return &Func{name: name, read: fn}
}

func (f *Func) Init(context.Context) error {
	f.started.Store(true)
	return nil
}

func (f *Func) Read(lastNs, currNs int64) (float64, error) {
	if !f.started.Load() {
		return 0, ErrNotInitialized
	}
	return f.read(lastNs, currNs)
}

func (f *Func) Finish() error {
	f.started.Store(false)
	return nil
}

func (f *Func) Source() string { return f.name }
