package dcf77

import "time"

// lockRun is the number of consecutive accepted intervals needed to lock.
const lockRun = 3

// EdgeSync locks the tick phase onto the second marks of the signal.
// Intervals between consecutive edges must be 1s or 2s (the missing
// pulse of second 59) within 1/16 tolerance.
type EdgeSync struct {
	armed    bool          // a reference edge has been seen
	run      int           // consecutive accepted intervals, 0..lockRun
	synced   bool          // locked at least once; never cleared
	last     time.Duration // timestamp of the previous edge
	interval time.Duration // last measured interval
}

// Edge processes one signal transition at timestamp ts. It returns the
// measured interval, whether the interval was accepted and whether the
// tick phase must be re-anchored to this edge.
func (e *EdgeSync) Edge(ts time.Duration) (interval time.Duration, accepted, anchor bool) {
	if !e.armed {
		// First edge after start or rejection only starts the measurement.
		e.armed = true
		e.last = ts
		return 0, false, false
	}

	interval = ts - e.last
	e.last = ts
	e.interval = interval

	if !ValidInterval(interval) {
		e.armed = false
		e.run = 0
		return interval, false, false
	}

	if e.run < lockRun {
		e.run++
	}
	if e.run < lockRun {
		return interval, true, false
	}

	e.synced = true
	return interval, true, true
}

// ValidInterval reports whether d is within 1/16 of one or two seconds.
func ValidInterval(d time.Duration) bool {
	const slot = time.Second / 16
	ok1s := 15*slot <= d && d <= 17*slot
	ok2s := 2*15*slot <= d && d <= 2*17*slot
	return ok1s || ok2s
}

// Run returns the number of consecutive accepted intervals.
func (e *EdgeSync) Run() int {
	return e.run
}

// Locked reports whether the run length currently holds the lock.
func (e *EdgeSync) Locked() bool {
	return e.run == lockRun
}

// Synced reports whether the synchronizer has locked at least once.
func (e *EdgeSync) Synced() bool {
	return e.synced
}

// LastInterval returns the most recently measured edge interval.
func (e *EdgeSync) LastInterval() time.Duration {
	return e.interval
}
