package dcf77

// Decoder is the telegram protocol state machine. It consumes one
// classification per second and assembles the calendar fields of the
// current minute into a TimeRecord owned by the caller.
type Decoder struct {
	state   State
	parity  uint8
	invalid bool // a fault was raised during this minute
	valid   bool // terminal verdict set at PARITY_DATE
}

// Outcome is the result of one decoder step.
type Outcome struct {
	Fault      FaultKind
	FaultState State // state at the moment the fault was raised
	// StartOfMinute is set when a correct minute start re-aligned the minute.
	StartOfMinute bool
	// LeapSecond is set when END_OF_MINUTE saw a leap second; the minute
	// is extended by one second.
	LeapSecond bool
}

func (o *Outcome) raise(k FaultKind, s State) {
	o.Fault = k
	o.FaultState = s
}

// State returns the current decoder position.
func (d *Decoder) State() State {
	return d.state
}

// Valid reports the terminal validity verdict of the last telegram.
func (d *Decoder) Valid() bool {
	return d.valid
}

// ClearValid drops the validity verdict once it has been acted on.
func (d *Decoder) ClearValid() {
	d.valid = false
}

// Step consumes one classification and mutates rec, the record in
// progress.
func (d *Decoder) Step(c Classification, rec *TimeRecord) Outcome {
	var out Outcome
	var bit uint8

	switch c {
	case ClassOne:
		bit = 1
	case ClassZero:
	case ClassMarker:
		if d.state != EndOfMinute {
			d.state = EndOfMinute
			out.raise(FaultNotEndOfMinute, d.state)
		}
	default:
		out.raise(FaultBitState, d.state)
		d.state = NotSynced
	}

	switch s := d.state; {
	case s == NotSynced:
		d.valid = false
		return out

	case s == StartOfMinute:
		if bit != 0 {
			out.raise(FaultStartOfMinute, s)
			d.invalid = true
		} else {
			out.StartOfMinute = true
			d.invalid = false
		}

	case s >= Ignore1 && s <= Ignore15:

	case s == NewTZ:
		rec.TZChange = bit == 1

	case s == StateCEST:
		rec.CEST = bit == 1

	case s == StateCET:
		rec.CET = bit == 1
		if rec.CET == rec.CEST {
			d.invalid = true
			out.raise(FaultCETCEST, s)
		}

	case s == StateLeap:
		rec.Leap = bit == 1

	case s == StartTime:
		d.parity = 0
		rec.Minute = Digits{'0', '0'}
		if bit != 1 {
			d.invalid = true
			out.raise(FaultStartTime, s)
		}

	case s >= Min0 && s <= Min6:
		d.parity ^= bit
		n := s - Min0
		if n < 4 {
			rec.Minute[1] |= bit << n
		} else {
			rec.Minute[0] |= bit << (n - 4)
		}

	case s == ParityMin:
		rec.Hour = Digits{'0', '0'}
		d.checkParity(bit, FaultParityMin, s, &out)

	case s >= Hr0 && s <= Hr5:
		d.parity ^= bit
		n := s - Hr0
		if n < 4 {
			rec.Hour[1] |= bit << n
		} else {
			rec.Hour[0] |= bit << (n - 4)
		}

	case s == ParityHr:
		rec.Day = Digits{'0', '0'}
		d.checkParity(bit, FaultParityHr, s, &out)

	case s >= Day0 && s <= Day5:
		d.parity ^= bit
		n := s - Day0
		if n < 4 {
			rec.Day[1] |= bit << n
		} else {
			rec.Day[0] |= bit << (n - 4)
		}
		if s == Day5 {
			rec.Weekday = '0'
		}

	case s >= Wday0 && s <= Wday2:
		d.parity ^= bit
		rec.Weekday |= bit << (s - Wday0)
		if s == Wday2 {
			rec.Month = Digits{'0', '0'}
		}

	case s >= Mon0 && s <= Mon4:
		d.parity ^= bit
		n := s - Mon0
		if n < 4 {
			rec.Month[1] |= bit << n
		} else {
			rec.Month[0] |= bit
			rec.Year = Digits{'0', '0'}
		}

	case s >= Yr0 && s <= Yr7:
		d.parity ^= bit
		n := s - Yr0
		if n < 4 {
			rec.Year[1] |= bit << n
		} else {
			rec.Year[0] |= bit << (n - 4)
		}

	case s == ParityDate:
		if bit != d.parity {
			d.invalid = true
			out.raise(FaultParityDate, s)
		}
		d.valid = !d.invalid

	case s == EndOfMinute:
		switch c {
		case ClassZero:
			out.LeapSecond = true
		case ClassMarker:
			d.state = StartOfMinute
		default:
			if out.Fault == NoFault {
				out.raise(FaultEndOfMinute, s)
			}
			d.state = NotSynced
		}
		return out

	default:
		out.raise(FaultState, s)
		d.state = NotSynced
		return out
	}

	d.state++
	return out
}

func (d *Decoder) checkParity(bit uint8, k FaultKind, s State, out *Outcome) {
	if bit != d.parity {
		d.invalid = true
		out.raise(k, s)
	}
	d.parity = 0
}
