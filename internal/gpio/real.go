//go:build linux

package gpio

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/warthog618/go-gpiocdev"
)

// RealLine reads the receiver from actual hardware using the Linux GPIO
// character device. Edge events are delivered by the gpiocdev watcher
// goroutine and forwarded without blocking.
type RealLine struct {
	chip  *gpiocdev.Chip
	line  *gpiocdev.Line
	edges chan Edge

	closeOnce sync.Once
	mu        sync.RWMutex // guards closed against the event handler
	closed    bool
	dropped   atomic.Uint64
}

// NewRealLine requests the receiver line described by cfg.
func NewRealLine(cfg LineConfig) (*RealLine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	chip, err := gpiocdev.NewChip(cfg.Chip)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	l := &RealLine{chip: chip, edges: make(chan Edge, edgeBuffer)}

	opts := []gpiocdev.LineReqOption{
		gpiocdev.AsInput,
		gpiocdev.WithEventHandler(l.handle),
	}
	if cfg.Edge == EdgeRising {
		opts = append(opts, gpiocdev.WithRisingEdge)
	} else {
		opts = append(opts, gpiocdev.WithFallingEdge)
	}
	switch cfg.Bias {
	case BiasPullUp:
		opts = append(opts, gpiocdev.WithPullUp)
	case BiasPullDown:
		opts = append(opts, gpiocdev.WithPullDown)
	case BiasDisabled:
		opts = append(opts, gpiocdev.WithBiasDisabled)
	}
	if cfg.ActiveLow {
		opts = append(opts, gpiocdev.AsActiveLow)
	}

	line, err := chip.RequestLine(cfg.Offset, opts...)
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request line %d: %w", cfg.Offset, err)
	}
	l.line = line
	return l, nil
}

func (l *RealLine) handle(evt gpiocdev.LineEvent) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		return
	}
	e := Edge{
		Timestamp: evt.Timestamp,
		Rising:    evt.Type == gpiocdev.LineEventRisingEdge,
		Seqno:     evt.Seqno,
	}
	select {
	case l.edges <- e:
	default:
		l.dropped.Add(1)
	}
}

// Level returns the logical line level.
func (l *RealLine) Level() (bool, error) {
	v, err := l.line.Value()
	if err != nil {
		return false, fmt.Errorf("read line: %w", err)
	}
	return v != 0, nil
}

// Edges returns the edge channel.
func (l *RealLine) Edges() <-chan Edge {
	return l.edges
}

// Dropped returns the number of edges lost because the channel was full.
func (l *RealLine) Dropped() uint64 {
	return l.dropped.Load()
}

// Close releases GPIO resources.
// The line is reconfigured to a plain input before closing, leaving the
// pin in its boot default state.
func (l *RealLine) Close() error {
	var errs []error
	l.closeOnce.Do(func() {
		if l.line != nil {
			if err := l.line.Reconfigure(gpiocdev.AsInput); err != nil {
				errs = append(errs, fmt.Errorf("reconfigure line: %w", err))
			}
			if err := l.line.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close line: %w", err))
			}
		}
		if l.chip != nil {
			if err := l.chip.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close chip: %w", err))
			}
		}

		l.mu.Lock()
		l.closed = true
		close(l.edges)
		l.mu.Unlock()
	})

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
