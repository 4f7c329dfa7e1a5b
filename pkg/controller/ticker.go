package controller

import (
	"sync"
	"time"
)

// ticker mirrors pkg/session's and pkg/civ's: fn is only ever invoked
// through enqueue, so Controller state stays serialized on run()'s single
// goroutine despite firing from its own timer goroutine.
type ticker struct {
	stop     chan struct{}
	stopOnce sync.Once
}

func startTicker(interval time.Duration, enqueue func(func()), fn func()) *ticker {
	t := &ticker{stop: make(chan struct{})}
	go func() {
		tk := time.NewTicker(interval)
		defer tk.Stop()
		for {
			select {
			case <-tk.C:
				enqueue(fn)
			case <-t.stop:
				return
			}
		}
	}()
	return t
}

func (t *ticker) Stop() {
	t.stopOnce.Do(func() { close(t.stop) })
}

// afterFunc is time.AfterFunc generalized to run fn through enqueue rather
// than directly on Go's timer goroutine.
func afterFunc(d time.Duration, enqueue func(func()), fn func()) *time.Timer {
	return time.AfterFunc(d, func() { enqueue(fn) })
}
