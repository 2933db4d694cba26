package dcf77

import (
	"fmt"
	"math"
)

// FaultKind classifies a decoding fault.
type FaultKind uint8

const (
	NoFault FaultKind = iota
	FaultState
	FaultStartOfMinute
	FaultEndOfMinute
	FaultNotEndOfMinute
	FaultCETCEST
	FaultStartTime
	FaultParityMin
	FaultParityHr
	FaultParityDate
	FaultBitState

	numFaultKinds
)

var faultNames = [numFaultKinds]string{
	NoFault:             "NO ERROR",
	FaultState:          "UNDEFINED STATE",
	FaultStartOfMinute:  "START OF MINUTE",
	FaultEndOfMinute:    "END OF MINUTE",
	FaultNotEndOfMinute: "NOT END OF MINUTE",
	FaultCETCEST:        "CET/CEST",
	FaultStartTime:      "START OF TIME",
	FaultParityMin:      "PARITY MINUTE",
	FaultParityHr:       "PARITY HOUR",
	FaultParityDate:     "PARITY DATE",
	FaultBitState:       "BIT STATE",
}

// String returns the operator-facing fault name.
func (k FaultKind) String() string {
	if k >= numFaultKinds {
		return fmt.Sprintf("FAULT(%d)", uint8(k))
	}
	return faultNames[k]
}

// FaultKinds returns every fault kind except NoFault.
func FaultKinds() []FaultKind {
	kinds := make([]FaultKind, 0, numFaultKinds-1)
	for k := FaultState; k < numFaultKinds; k++ {
		kinds = append(kinds, k)
	}
	return kinds
}

// resyncs reports whether the fault forces the decoder back to NotSynced.
func (k FaultKind) resyncs() bool {
	return k == FaultState || k == FaultEndOfMinute || k == FaultBitState
}

// Fault is a latched decoding fault.
type Fault struct {
	Kind   FaultKind
	State  State // decoder state when the fault was raised
	Second int   // second within the minute when the fault was raised
}

// Error implements error.
func (f Fault) Error() string {
	return fmt.Sprintf("%s state=%s sec=%d", f.Kind, f.State, f.Second)
}

// Diagnostics latches the first fault since the last read and counts all
// faults. The counter saturates instead of wrapping.
type Diagnostics struct {
	last  Fault
	count uint16
}

// Raise records a fault. Only the first fault since the last
// TakeLastFault is latched; every fault is counted.
func (d *Diagnostics) Raise(f Fault) {
	if f.Kind == NoFault {
		return
	}
	if d.last.Kind == NoFault {
		d.last = f
	}
	if d.count < math.MaxUint16 {
		d.count++
	}
}

// TakeLastFault returns and clears the latched fault.
func (d *Diagnostics) TakeLastFault() (Fault, bool) {
	f := d.last
	d.last = Fault{}
	return f, f.Kind != NoFault
}

// TakeCount returns and clears the fault counter.
func (d *Diagnostics) TakeCount() uint16 {
	n := d.count
	d.count = 0
	return n
}

// Peek returns the latched fault and counter without clearing them.
func (d *Diagnostics) Peek() (Fault, uint16) {
	return d.last, d.count
}
