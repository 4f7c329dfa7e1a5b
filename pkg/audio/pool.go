package audio

import (
	"sync"
	"sync/atomic"
)

// FramePool recycles the fixed-size 480-byte PCM buffers the scheduler
// fills one per 20ms tick, so that buffer is not reallocated at 50Hz (the
// audio packet wrapping it is still built fresh by codec.BuildAudio). Unlike the hardware buffer pool this is adapted from — which
// tiers by size because its callers request arbitrary sample counts —
// every frame here is exactly FrameBytes, so one sync.Pool tier suffices.
type FramePool struct {
	pool *sync.Pool
	hits int64
	miss int64
}

// NewFramePool creates an empty pool of FrameBytes-capacity buffers.
func NewFramePool() *FramePool {
	return &FramePool{pool: &sync.Pool{}}
}

// Get returns a zeroed FrameBytes-length buffer, reusing a pooled one (a
// hit) when available and allocating a new one (a miss) otherwise.
func (p *FramePool) Get() []byte {
	var b []byte
	if v := p.pool.Get(); v != nil {
		b = *v.(*[]byte)
		atomic.AddInt64(&p.hits, 1)
	} else {
		b = make([]byte, FrameBytes)
		atomic.AddInt64(&p.miss, 1)
	}
	for i := range b {
		b[i] = 0
	}
	return b[:FrameBytes]
}

// Put returns b to the pool. Buffers of the wrong capacity are dropped
// rather than pooled.
func (p *FramePool) Put(b []byte) {
	if cap(b) != FrameBytes {
		return
	}
	p.pool.Put(&b)
}

// Stats reports pool hit/miss counters.
func (p *FramePool) Stats() (hits, misses int64) {
	return atomic.LoadInt64(&p.hits), atomic.LoadInt64(&p.miss)
}

var (
	globalPool     *FramePool
	globalPoolOnce sync.Once
)

// GlobalFramePool returns the process-wide singleton frame pool.
func GlobalFramePool() *FramePool {
	globalPoolOnce.Do(func() {
		globalPool = NewFramePool()
	})
	return globalPool
}
