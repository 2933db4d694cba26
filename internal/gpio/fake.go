package gpio

import (
	"errors"
	"sync"
	"time"
)

// FakeLine is a test double with a scripted level and injectable edges.
type FakeLine struct {
	mu sync.Mutex

	// Levels contains scripted values returned by Level.
	// Each call consumes the next value; the last one repeats.
	Levels []bool

	// LevelFunc, if set, overrides Levels.
	LevelFunc func() bool

	// ReadError, if set, will be returned by Level().
	ReadError error

	// Closed tracks if Close was called.
	Closed bool

	index int
	edges chan Edge
}

// NewFakeLine creates a FakeLine with the given level script.
func NewFakeLine(levels []bool) *FakeLine {
	return &FakeLine{Levels: levels, edges: make(chan Edge, 64)}
}

// Level returns the next scripted level.
func (f *FakeLine) Level() (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.ReadError != nil {
		return false, f.ReadError
	}
	if f.LevelFunc != nil {
		return f.LevelFunc(), nil
	}
	if len(f.Levels) == 0 {
		return false, errors.New("no levels configured")
	}

	v := f.Levels[f.index]
	if f.index < len(f.Levels)-1 {
		f.index++
	}
	return v, nil
}

// Emit injects an edge with the given timestamp.
func (f *FakeLine) Emit(ts time.Duration) {
	f.edges <- Edge{Timestamp: ts}
}

// Edges returns the edge channel.
func (f *FakeLine) Edges() <-chan Edge {
	return f.edges
}

// Close marks the line as closed and closes the edge channel.
func (f *FakeLine) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.Closed {
		f.Closed = true
		close(f.edges)
	}
	return nil
}

// Reset rewinds the level script.
func (f *FakeLine) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.index = 0
}
