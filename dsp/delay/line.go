// Package delay provides the circular sample buffer used by the delay effects.
package delay

import (
	"fmt"

	"github.com/cwbudde/algo-stereodelay/dsp/core"
)

// Line is a fixed-capacity circular delay line.
//
// Write stores one sample and advances the write head. Read(offset) returns
// the sample written offset samples ago, so Read(Len()) yields the oldest
// sample still held. Line is not safe for concurrent use.
type Line struct {
	buffer   []float64
	writePos int
}

// New returns a zero-filled delay line holding capacity samples.
func New(capacity int) (*Line, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("delay capacity must be > 0: %d", capacity)
	}
	return &Line{buffer: make([]float64, capacity)}, nil
}

// Capacity returns the line length needed to delay by seconds at sampleRate.
// The result is round(seconds*sampleRate) and never less than one sample.
func Capacity(seconds, sampleRate float64) int {
	n := core.SecondsToSamples(seconds, sampleRate)
	if n < 1 {
		return 1
	}
	return n
}

// Len returns internal buffer size.
func (d *Line) Len() int {
	return len(d.buffer)
}

// WriteIndex returns the position the next Write will store to.
func (d *Line) WriteIndex() int {
	return d.writePos
}

// Write writes one sample.
func (d *Line) Write(sample float64) {
	d.buffer[d.writePos] = sample
	d.writePos++
	if d.writePos >= len(d.buffer) {
		d.writePos = 0
	}
}

// Read returns the sample written offset samples ago. Offsets are clamped
// into [1, Len()].
func (d *Line) Read(offset int) float64 {
	size := len(d.buffer)
	if size == 0 {
		return 0
	}
	if offset < 1 {
		offset = 1
	} else if offset > size {
		offset = size
	}
	return d.buffer[(d.writePos+size-offset)%size]
}

// Resize reallocates the line to capacity samples. Previous contents are
// discarded and the write head returns to zero. Resize allocates and must not
// be called from a render callback.
func (d *Line) Resize(capacity int) error {
	if capacity <= 0 {
		return fmt.Errorf("delay capacity must be > 0: %d", capacity)
	}
	d.buffer = make([]float64, capacity)
	d.writePos = 0
	return nil
}

// ResizeWith adopts buf as the new storage, zeroing it first. It has the
// same effect as Resize(len(buf)) but lets the caller allocate ahead of time.
func (d *Line) ResizeWith(buf []float64) error {
	if len(buf) == 0 {
		return fmt.Errorf("delay capacity must be > 0: %d", len(buf))
	}
	core.Zero(buf)
	d.buffer = buf
	d.writePos = 0
	return nil
}

// Reset clears line state without reallocating.
func (d *Line) Reset() {
	core.Zero(d.buffer)
	d.writePos = 0
}
