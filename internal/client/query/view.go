package query

import (
	"context"
	"sync"
	"sync/atomic"
)

// View is the liveness flag of one page. Results of loads that settle after
// Unmount are dropped instead of applied.
type View struct {
	alive atomic.Bool
	// applyMu orders Unmount against a running apply: once Unmount returns,
	// no apply is in progress and none will start.
	applyMu sync.Mutex
}

// NewView returns a mounted view.
func NewView() *View {
	v := &View{}
	v.alive.Store(true)
	return v
}

func (v *View) Mount() { v.alive.Store(true) }

// Unmount marks the view gone. It waits for an apply already running.
func (v *View) Unmount() {
	v.applyMu.Lock()
	v.alive.Store(false)
	v.applyMu.Unlock()
}

func (v *View) Alive() bool { return v.alive.Load() }

// Load runs fetch in its own goroutine and hands the outcome to apply if v
// is still alive when it arrives. The returned channel yields whether apply
// ran and is then closed. apply must not call Unmount.
func Load[T any](ctx context.Context, v *View, fetch func(context.Context) (T, error), apply func(T, error)) <-chan bool {
	done := make(chan bool, 1)
	go func() {
		defer close(done)
		val, err := fetch(ctx)

		v.applyMu.Lock()
		defer v.applyMu.Unlock()
		if !v.Alive() {
			done <- false
			return
		}
		apply(val, err)
		done <- true
	}()
	return done
}
