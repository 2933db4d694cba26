package dcf77

import (
	"testing"
	"time"
)

var friday = telegram{minute: 47, hour: 13, day: 15, weekday: 5, month: 3, year: 24}

// syncToMinute locks the edge synchronizer and feeds one minute marker so
// the decoder sits at START_OF_MINUTE.
func syncToMinute(t *testing.T) *driver {
	t.Helper()
	d := newDriver()
	if !d.lock() {
		t.Fatal("expected the fourth edge to anchor the tick phase")
	}
	d.second(ClassMarker)
	if got := d.ctx.Snapshot().State; got != StartOfMinute {
		t.Fatalf("state after marker = %s, want START_OF_MINUTE", got)
	}
	// entering from NOT_SYNCED latches NOT END OF MINUTE; start clean
	d.ctx.TakeLastFault()
	d.ctx.TakeFaultCount()
	d.take()
	return d
}

func TestContextNotSyncedIgnoresTicks(t *testing.T) {
	ctx := NewContext()
	for i := 0; i < 5*TicksPerSecond; i++ {
		if ev := ctx.Tick(true); ev != nil {
			t.Fatalf("tick %d produced events %v before lock", i, ev)
		}
	}
	snap := ctx.Snapshot()
	if snap.Second != 0 || snap.TickPos != 0 || snap.Synced {
		t.Errorf("snapshot = %+v, want idle sampler", snap)
	}
}

func TestContextDecodesAndPublishesMinute(t *testing.T) {
	d := syncToMinute(t)

	d.seconds(friday.classes()...)
	if pub := eventsOf(d.take(), EventPublished); len(pub) != 0 {
		t.Fatalf("published before the next minute started: %+v", pub)
	}

	d.second(ClassZero) // second 0 of the following minute
	events := d.take()
	pub := eventsOf(events, EventPublished)
	if len(pub) != 1 {
		t.Fatalf("expected 1 publish, got %d (%+v)", len(pub), events)
	}

	rec := pub[0].Record
	checks := []struct {
		name string
		got  Digits
		want string
	}{
		{"minute", rec.Minute, "47"},
		{"hour", rec.Hour, "13"},
		{"day", rec.Day, "15"},
		{"month", rec.Month, "03"},
		{"year", rec.Year, "24"},
	}
	for _, c := range checks {
		if c.got.String() != c.want {
			t.Errorf("%s = %q, want %q", c.name, c.got.String(), c.want)
		}
	}
	if rec.Weekday != '5' {
		t.Errorf("weekday = %q, want '5'", rec.Weekday)
	}
	if !rec.CET || rec.CEST || rec.TZChange || rec.Leap {
		t.Errorf("flags = %+v, want CET only", rec)
	}

	if n := d.ctx.TakeFaultCount(); n != 0 {
		t.Errorf("fault count = %d, want 0", n)
	}

	h := d.ctx.Consume()
	if !h.Fresh || h.NeedsFallback || h.Record != rec || h.Second != 0 {
		t.Errorf("handoff = %+v", h)
	}
	if h := d.ctx.Consume(); h.Fresh || h.NeedsFallback {
		t.Errorf("second consume = %+v, want flags cleared", h)
	}
}

func TestContextParityErrorRequestsFallback(t *testing.T) {
	d := syncToMinute(t)

	cs := friday.classes()
	// flip a minute bit so the minute parity fails
	if cs[23] == ClassOne {
		cs[23] = ClassZero
	} else {
		cs[23] = ClassOne
	}
	d.seconds(cs...)
	faults := eventsOf(d.take(), EventFault)
	if len(faults) != 1 || faults[0].Fault.Kind != FaultParityMin {
		t.Fatalf("faults = %+v, want one PARITY MINUTE", faults)
	}

	d.second(ClassZero)
	events := d.take()
	if pub := eventsOf(events, EventPublished); len(pub) != 0 {
		t.Fatalf("invalid minute was published: %+v", pub)
	}
	if fb := eventsOf(events, EventFallback); len(fb) != 1 {
		t.Fatalf("expected 1 fallback request, got %d", len(fb))
	}

	f, ok := d.ctx.TakeLastFault()
	if !ok || f.Kind != FaultParityMin || f.State != ParityMin || f.Second != 28 {
		t.Errorf("latched fault = %+v, want PARITY MINUTE at second 28", f)
	}
	if h := d.ctx.Consume(); h.Fresh || !h.NeedsFallback {
		t.Errorf("handoff = %+v, want fallback request", h)
	}
}

func TestContextLeapSecondExtendsMinute(t *testing.T) {
	d := syncToMinute(t)

	leap := friday
	leap.leap = true
	cs := leap.classes()
	cs[59] = ClassZero // leap second in place of the marker
	d.seconds(cs...)
	if snap := d.ctx.Snapshot(); snap.SecMax != 60 || snap.State != EndOfMinute {
		t.Fatalf("snapshot = %+v, want END_OF_MINUTE with secMax 60", snap)
	}

	d.second(ClassMarker)
	if snap := d.ctx.Snapshot(); snap.Second != 60 {
		t.Fatalf("second = %d, want 60", snap.Second)
	}
	d.second(ClassZero)

	events := d.take()
	pub := eventsOf(events, EventPublished)
	if len(pub) != 1 || !pub[0].Record.Leap {
		t.Fatalf("published = %+v, want one record with leap flag", pub)
	}
	if f := eventsOf(events, EventFault); len(f) != 0 {
		t.Errorf("unexpected faults %+v", f)
	}
	if snap := d.ctx.Snapshot(); snap.SecMax != 59 || snap.Second != 0 {
		t.Errorf("snapshot = %+v, want secMax reset", snap)
	}
}

func TestContextInvalidClassificationResyncs(t *testing.T) {
	d := syncToMinute(t)

	d.seconds(ClassZero, ClassZero, ClassInvalid)
	events := d.take()
	faults := eventsOf(events, EventFault)
	if len(faults) != 1 || faults[0].Fault.Kind != FaultBitState {
		t.Fatalf("faults = %+v, want BIT STATE", faults)
	}
	if got := d.ctx.Snapshot().State; got != NotSynced {
		t.Fatalf("state = %s, want NOT_SYNCED", got)
	}

	// The next marker re-enters the minute.
	d.second(ClassMarker)
	if got := d.ctx.Snapshot().State; got != StartOfMinute {
		t.Errorf("state = %s, want START_OF_MINUTE", got)
	}
	if n := d.ctx.TakeFaultCount(); n != 2 {
		t.Errorf("fault count = %d, want 2 (bit state + early marker)", n)
	}
	f, _ := d.ctx.TakeLastFault()
	if f.Kind != FaultBitState {
		t.Errorf("latched = %s, want the first fault BIT STATE", f.Kind)
	}
}

func TestContextEarlyMarkerLatchesFault(t *testing.T) {
	d := newDriver()
	d.lock()
	d.seconds(ClassZero, ClassMarker)

	f, ok := d.ctx.TakeLastFault()
	if !ok || f.Kind != FaultNotEndOfMinute || f.State != EndOfMinute {
		t.Fatalf("latched = %+v, want NOT END OF MINUTE", f)
	}
	if _, ok := d.ctx.TakeLastFault(); ok {
		t.Error("fault latch not cleared by read")
	}
}

func TestContextEdgeEvents(t *testing.T) {
	d := newDriver()
	d.lock()
	events := d.take()

	if n := len(eventsOf(events, EventAccepted)); n != 3 {
		t.Errorf("accepted = %d, want 3", n)
	}
	locked := eventsOf(events, EventLocked)
	if len(locked) != 1 {
		t.Fatalf("locked = %d, want 1", len(locked))
	}

	// Advance the sampler, then re-anchor on the next accepted edge.
	for i := 0; i < 7; i++ {
		d.ctx.Tick(false)
	}
	ev, anchor := d.ctx.Edge(4 * time.Second)
	if !anchor {
		t.Fatal("accepted edge while locked did not re-anchor")
	}
	locked = eventsOf(ev, EventLocked)
	if len(locked) != 1 || locked[0].TickPos != 7 {
		t.Errorf("locked = %+v, want re-anchor from tick position 7", locked)
	}
	if got := d.ctx.Snapshot().TickPos; got != 0 {
		t.Errorf("tick position = %d, want 0", got)
	}

	ev, anchor = d.ctx.Edge(4500 * time.Millisecond)
	if anchor || len(eventsOf(ev, EventRejected)) != 1 {
		t.Errorf("half-second edge: anchor=%v events=%+v, want rejection", anchor, ev)
	}
	if snap := d.ctx.Snapshot(); !snap.Synced || snap.EdgeRun != 0 {
		t.Errorf("snapshot = %+v, want synced with run reset", snap)
	}
}
