// Package gpio provides the DCF77 receiver input with hardware abstraction.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

import (
	"fmt"
	"strings"
	"time"
)

// Edge is one signal transition reported by the kernel.
type Edge struct {
	// Timestamp is the kernel event time on the monotonic clock. Only
	// differences between timestamps are meaningful.
	Timestamp time.Duration
	Rising    bool
	Seqno     uint32
}

// Line is the receiver output: edge events plus the current level.
type Line interface {
	// Level returns the current logical level of the line.
	Level() (bool, error)

	// Edges delivers the configured edge kind. The channel is closed by Close.
	Edges() <-chan Edge

	// Close releases GPIO resources.
	Close() error
}

// EdgeKind selects which transition marks the start of a second.
type EdgeKind string

const (
	EdgeFalling EdgeKind = "falling"
	EdgeRising  EdgeKind = "rising"
)

// Bias selects the line bias.
type Bias string

const (
	BiasAsIs     Bias = "as-is"
	BiasDisabled Bias = "disabled"
	BiasPullUp   Bias = "pull-up"
	BiasPullDown Bias = "pull-down"
)

// Defaults for a receiver module wired to a Raspberry Pi.
const (
	DefaultChip   = "gpiochip0"
	DefaultOffset = 17 // BCM numbering
)

// edgeBuffer is the capacity of the edge channel. Edges arrive at most a
// few times per second, so a full buffer means the consumer is stuck.
const edgeBuffer = 16

// LineConfig describes how to request the receiver line.
type LineConfig struct {
	Chip      string
	Offset    int
	Edge      EdgeKind
	Bias      Bias
	ActiveLow bool // invert the line so a high receiver output reads low
}

// Validate checks the configuration.
func (c LineConfig) Validate() error {
	if c.Chip == "" {
		return fmt.Errorf("gpio chip is empty")
	}
	if c.Offset < 0 {
		return fmt.Errorf("invalid gpio line offset %d", c.Offset)
	}
	if _, err := ParseEdgeKind(string(c.Edge)); err != nil {
		return err
	}
	if _, err := ParseBias(string(c.Bias)); err != nil {
		return err
	}
	return nil
}

// ParseEdgeKind parses "falling" or "rising".
func ParseEdgeKind(s string) (EdgeKind, error) {
	switch k := EdgeKind(strings.ToLower(s)); k {
	case EdgeFalling, EdgeRising:
		return k, nil
	}
	return "", fmt.Errorf("unknown edge kind %q", s)
}

// ParseBias parses a bias name. An empty string means BiasAsIs.
func ParseBias(s string) (Bias, error) {
	if s == "" {
		return BiasAsIs, nil
	}
	switch b := Bias(strings.ToLower(s)); b {
	case BiasAsIs, BiasDisabled, BiasPullUp, BiasPullDown:
		return b, nil
	}
	return "", fmt.Errorf("unknown bias %q", s)
}
