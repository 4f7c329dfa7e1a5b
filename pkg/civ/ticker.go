package civ

import (
	"sync"
	"time"
)

// ticker mirrors pkg/session's: fn runs through enqueue, never directly
// from the ticker goroutine, so CivSubsession state stays serialized on the
// owning Controller's command channel.
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
