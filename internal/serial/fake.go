package serial

import (
	"bytes"
	"sync"
)

// FakePort is an in-memory Port for tests.
type FakePort struct {
	mu sync.Mutex

	// Writes records every successful write.
	Writes [][]byte

	// WriteError, if set, is returned by Write.
	WriteError error

	// ShortWrite makes Write report one byte less than requested.
	ShortWrite bool

	Flushes int
	Closed  bool
}

// NewFakePort creates a FakePort.
func NewFakePort() *FakePort {
	return &FakePort{}
}

// Write implements Port.
func (p *FakePort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.WriteError != nil {
		return 0, p.WriteError
	}
	n := len(b)
	if p.ShortWrite && n > 0 {
		n--
	}
	p.Writes = append(p.Writes, bytes.Clone(b[:n]))
	return n, nil
}

// Flush implements Port.
func (p *FakePort) Flush() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Flushes++
	return nil
}

// Close implements Port.
func (p *FakePort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Closed = true
	return nil
}

// Written returns a copy of all writes.
func (p *FakePort) Written() [][]byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([][]byte, len(p.Writes))
	copy(out, p.Writes)
	return out
}
