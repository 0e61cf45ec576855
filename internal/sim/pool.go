package sim

import (
	"sync"

	"github.com/san-kum/ionmd/internal/trajectory"
)

// FramePool recycles frame slices between buffer flushes.
type FramePool struct {
	pool sync.Pool
	size int
}

func NewFramePool(numIons int) *FramePool {
	return &FramePool{
		size: numIons,
		pool: sync.Pool{
			New: func() interface{} {
				return make(trajectory.Frame, numIons)
			},
		},
	}
}

func (p *FramePool) Get() trajectory.Frame {
	return p.pool.Get().(trajectory.Frame)
}

func (p *FramePool) Put(f trajectory.Frame) {
	if len(f) == p.size {
		clear(f)
		p.pool.Put(f)
	}
}
