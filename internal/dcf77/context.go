package dcf77

import (
	"sync"
	"time"
)

// Context owns the whole decoding state: edge synchronizer, bit sampler,
// protocol decoder, time record double buffer and diagnostics. Edge and
// Tick are the two handlers driven by the signal and tick sources; both
// run to completion under the context lock, so a consumer snapshot never
// observes a half-updated record.
type Context struct {
	mu sync.Mutex

	edge    EdgeSync
	sampler Sampler
	decoder Decoder
	buf     DoubleBuffer
	diag    Diagnostics

	sec    int
	secMax int

	lastTickPos   int  // sampler position at the most recent re-anchor
	fresh         bool // a record was published and not yet consumed
	needsFallback bool // the last minute ended without a valid record
}

// NewContext returns a Context in the power-on state.
func NewContext() *Context {
	return &Context{secMax: 59}
}

// Edge handles one signal transition timestamped ts, measured on a
// monotonic clock. A true return from anchor means the caller must
// re-phase its tick source: the next tick is due half a tick period
// after this edge.
func (c *Context) Edge(ts time.Duration) (events []Event, anchor bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	wasArmed := c.edge.armed
	interval, accepted, anchor := c.edge.Edge(ts)
	switch {
	case accepted:
		events = append(events, Event{Type: EventAccepted, Second: c.sec, State: c.decoder.State(), Interval: interval})
	case wasArmed:
		events = append(events, Event{Type: EventRejected, Second: c.sec, State: c.decoder.State(), Interval: interval})
	}
	if anchor {
		c.lastTickPos = c.sampler.Anchor()
		events = append(events, Event{Type: EventLocked, Second: c.sec, State: c.decoder.State(), Interval: interval, TickPos: c.lastTickPos})
	}
	return events, anchor
}

// Tick handles one tick of the sampler time base. level is the current
// signal level; it is only used inside the sampling windows.
func (c *Context) Tick(level bool) []Event {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.sampler.Tick(c.edge.Synced(), level) {
	case SampleSecond:
		c.sec++
		if c.sec > c.secMax {
			c.sec = 0
			c.secMax = 59
		}
	case SampleBit:
		return c.decode()
	}
	return nil
}

func (c *Context) decode() []Event {
	class := c.sampler.Class()
	before := c.decoder.State()
	out := c.decoder.Step(class, c.buf.Write())

	events := []Event{{Type: EventBit, Second: c.sec, State: before, Class: class}}

	if out.Fault != NoFault {
		f := Fault{Kind: out.Fault, State: out.FaultState, Second: c.sec}
		c.diag.Raise(f)
		events = append(events, Event{Type: EventFault, Second: c.sec, State: out.FaultState, Class: class, Fault: f})
	}
	if out.StartOfMinute {
		c.sec = 0
	}
	if out.LeapSecond {
		c.secMax = 60
	}

	if c.sec == 0 {
		if c.decoder.Valid() {
			c.buf.Publish()
			c.fresh = true
			c.needsFallback = false
			events = append(events, Event{Type: EventPublished, State: c.decoder.State(), Record: c.buf.Read()})
		} else {
			c.needsFallback = true
			events = append(events, Event{Type: EventFallback, State: c.decoder.State()})
		}
		c.decoder.ClearValid()
	}
	return events
}

// Handoff is what the consumer takes from the decoder in one poll.
type Handoff struct {
	Record        TimeRecord // valid only when Fresh
	Second        int
	Fresh         bool
	NeedsFallback bool
}

// Consume takes the pending handoff: a freshly published record or a
// fallback request, plus the current second. Both flags are cleared.
func (c *Context) Consume() Handoff {
	c.mu.Lock()
	defer c.mu.Unlock()

	h := Handoff{Second: c.sec, Fresh: c.fresh, NeedsFallback: c.needsFallback}
	if c.fresh {
		h.Record = c.buf.Read()
		h.NeedsFallback = false
	}
	c.fresh = false
	c.needsFallback = false
	return h
}

// TakeLastFault returns and clears the latched fault.
func (c *Context) TakeLastFault() (Fault, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.diag.TakeLastFault()
}

// TakeFaultCount returns and clears the fault counter.
func (c *Context) TakeFaultCount() uint16 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.diag.TakeCount()
}

// Snapshot is a read-only copy of the decoder internals.
type Snapshot struct {
	EdgeRun      int
	Locked       bool
	Synced       bool
	LastInterval time.Duration
	TickPos      int
	LastTickPos  int
	State        State
	Class        Classification
	VotesA       uint8
	VotesB       uint8
	Second       int
	SecMax       int
	LastFault    Fault
	FaultCount   uint16
}

// Snapshot returns the current decoder internals without clearing
// diagnostics.
func (c *Context) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	a, b := c.sampler.Votes()
	f, n := c.diag.Peek()
	return Snapshot{
		EdgeRun:      c.edge.Run(),
		Locked:       c.edge.Locked(),
		Synced:       c.edge.Synced(),
		LastInterval: c.edge.LastInterval(),
		TickPos:      c.sampler.Position(),
		LastTickPos:  c.lastTickPos,
		State:        c.decoder.State(),
		Class:        c.sampler.Class(),
		VotesA:       a,
		VotesB:       b,
		Second:       c.sec,
		SecMax:       c.secMax,
		LastFault:    f,
		FaultCount:   n,
	}
}
