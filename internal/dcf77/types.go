// Package dcf77 contains the DCF77 time-signal decoding pipeline.
// This package has NO external dependencies (no GPIO, MQTT, OS, or time.Sleep).
// Edge timestamps and pin levels are always passed in by the caller.
package dcf77

import "time"

// TicksPerSecond is the number of sampler ticks in one telegram second.
const TicksPerSecond = 20

// TickInterval is the period of the sampler tick source.
const TickInterval = time.Second / TicksPerSecond

// Digits holds a decimal field as ASCII characters: [0] tens, [1] ones.
type Digits [2]byte

// String returns the two digit characters.
func (d Digits) String() string {
	return string(d[:])
}

// TimeRecord is one decoded calendar/time telegram.
// Calendar fields are kept as digit characters so they can be embedded
// verbatim into text telegrams.
type TimeRecord struct {
	Minute  Digits
	Hour    Digits
	Day     Digits
	Month   Digits
	Year    Digits
	Weekday byte // '1' (Monday) .. '7' (Sunday)

	TZChange bool // timezone change announced for the end of this hour
	CEST     bool
	CET      bool
	Leap     bool // leap second announced for the end of this hour
}

// Classification is the 2-bit result of the two sampling windows of a
// second: high bit = window A, low bit = window B.
type Classification uint8

const (
	ClassOne     Classification = 0b00 // logical 1
	ClassZero    Classification = 0b01 // logical 0, or leap second in END_OF_MINUTE
	ClassInvalid Classification = 0b10
	ClassMarker  Classification = 0b11 // absent pulse, minute mark
)

// String returns the two-character bit pattern.
func (c Classification) String() string {
	switch c & 0b11 {
	case ClassOne:
		return "00"
	case ClassZero:
		return "01"
	case ClassInvalid:
		return "10"
	default:
		return "11"
	}
}

// EventType identifies what happened during one handler invocation.
type EventType string

const (
	EventAccepted  EventType = "EDGE_ACCEPTED"
	EventLocked    EventType = "LOCKED"
	EventRejected  EventType = "EDGE_REJECTED"
	EventBit       EventType = "BIT"
	EventFault     EventType = "FAULT"
	EventPublished EventType = "PUBLISHED"
	EventFallback  EventType = "FALLBACK"
)

// Event reports a state change of the decoding pipeline.
// Handlers return events to the caller, which logs them and updates
// metrics outside of the decoding path.
type Event struct {
	Type     EventType
	Second   int
	State    State
	Class    Classification
	Fault    Fault
	Interval time.Duration
	TickPos  int // sampler position the lock re-anchored from
	Record   TimeRecord
}
