//go:build !linux

package gpio

import "errors"

// RealLine is not available on non-Linux platforms.
type RealLine struct{}

// NewRealLine returns an error on non-Linux platforms.
func NewRealLine(cfg LineConfig) (*RealLine, error) {
	return nil, errors.New("gpio: not supported on this platform (requires Linux)")
}

// Level is not implemented on non-Linux platforms.
func (l *RealLine) Level() (bool, error) {
	return false, errors.New("gpio: not supported")
}

// Edges returns nil on non-Linux platforms.
func (l *RealLine) Edges() <-chan Edge {
	return nil
}

// Dropped always returns zero on non-Linux platforms.
func (l *RealLine) Dropped() uint64 {
	return 0
}

// Close is not implemented on non-Linux platforms.
func (l *RealLine) Close() error {
	return nil
}
