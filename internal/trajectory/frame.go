package trajectory

import "gonum.org/v1/gonum/spatial/r3"

// Frame is the position of every ion at one instant, in ensemble order.
type Frame []r3.Vec

// Clone returns a copy that does not alias f.
func (f Frame) Clone() Frame {
	return append(Frame(nil), f...)
}

// Sink persists batches of frames. Frames passed to WriteFrames may be
// reused by the caller once it returns.
type Sink interface {
	WriteFrames(frames []Frame) error
	Close() error
}

// Buffer collects frames until it reaches capacity.
type Buffer struct {
	frames []Frame
	size   int
}

func NewBuffer(size int) *Buffer {
	if size < 1 {
		size = 1
	}
	return &Buffer{frames: make([]Frame, 0, size), size: size}
}

// Append adds a frame and reports whether the buffer is now full.
func (b *Buffer) Append(f Frame) bool {
	b.frames = append(b.frames, f)
	return len(b.frames) >= b.size
}

// Frames returns the buffered frames without clearing them.
func (b *Buffer) Frames() []Frame { return b.frames }

// Reset empties the buffer, keeping its backing array.
func (b *Buffer) Reset() {
	clear(b.frames)
	b.frames = b.frames[:0]
}

func (b *Buffer) Len() int { return len(b.frames) }
func (b *Buffer) Cap() int { return b.size }

// MemorySink keeps copies of everything written to it.
type MemorySink struct {
	Frames  []Frame
	Batches []int
	Closed  int
	// Err, when set, is returned by WriteFrames instead of storing.
	Err error
}

func (m *MemorySink) WriteFrames(frames []Frame) error {
	if m.Err != nil {
		return m.Err
	}
	for _, f := range frames {
		m.Frames = append(m.Frames, f.Clone())
	}
	m.Batches = append(m.Batches, len(frames))
	return nil
}

func (m *MemorySink) Close() error {
	m.Closed++
	return nil
}
