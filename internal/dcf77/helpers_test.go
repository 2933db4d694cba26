package dcf77

import "time"

// telegram describes the calendar content of one minute.
type telegram struct {
	minute, hour, day, weekday, month, year int
	cest, tzChange, leap                    bool
}

// bits encodes t as the 59 transmitted bits of a minute (second 0..58).
func (t telegram) bits() [59]uint8 {
	var b [59]uint8
	put := func(first, n, v int) {
		for i := 0; i < n; i++ {
			b[first+i] = uint8(v>>i) & 1
		}
	}
	bcd := func(v int) int { return (v/10)<<4 | v%10 }
	parity := func(first, last int) uint8 {
		var p uint8
		for i := first; i <= last; i++ {
			p ^= b[i]
		}
		return p
	}

	if t.tzChange {
		b[16] = 1
	}
	if t.cest {
		b[17] = 1
	} else {
		b[18] = 1
	}
	if t.leap {
		b[19] = 1
	}
	b[20] = 1
	put(21, 7, bcd(t.minute))
	b[28] = parity(21, 27)
	put(29, 6, bcd(t.hour))
	b[35] = parity(29, 34)
	put(36, 6, bcd(t.day))
	put(42, 3, t.weekday)
	put(45, 5, bcd(t.month))
	put(50, 8, bcd(t.year))
	b[58] = parity(36, 57)
	return b
}

// classes returns the classification sequence of the minute: 59 data
// bits followed by the minute marker.
func (t telegram) classes() []Classification {
	bits := t.bits()
	out := make([]Classification, 0, 60)
	for _, bit := range bits {
		out = append(out, bitClass(bit))
	}
	return append(out, ClassMarker)
}

func bitClass(bit uint8) Classification {
	if bit == 1 {
		return ClassOne
	}
	return ClassZero
}

// windowLevels returns the signal levels window A and window B must see
// to produce c.
func windowLevels(c Classification) (a, b bool) {
	return c&0b10 != 0, c&0b01 != 0
}

// driver feeds a Context with edges and ticks.
type driver struct {
	ctx    *Context
	events []Event
}

func newDriver() *driver {
	return &driver{ctx: NewContext()}
}

// lock sends four edges one second apart, which arms the synchronizer
// and then accepts three intervals.
func (d *driver) lock() bool {
	var anchored bool
	for i := 0; i < 4; i++ {
		ev, anchor := d.ctx.Edge(time.Duration(i) * time.Second)
		d.events = append(d.events, ev...)
		anchored = anchor
	}
	return anchored
}

// second runs one full second of ticks whose sampling windows produce c.
func (d *driver) second(c Classification) {
	a, b := windowLevels(c)
	for i := 0; i < TicksPerSecond; i++ {
		level := false
		switch {
		case i >= tickA0 && i < tickA0+windowLen:
			level = a
		case i >= tickB0 && i < tickB0+windowLen:
			level = b
		}
		d.events = append(d.events, d.ctx.Tick(level)...)
	}
}

func (d *driver) seconds(cs ...Classification) {
	for _, c := range cs {
		d.second(c)
	}
}

func (d *driver) take() []Event {
	ev := d.events
	d.events = nil
	return ev
}

func eventsOf(events []Event, typ EventType) []Event {
	var out []Event
	for _, e := range events {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}
