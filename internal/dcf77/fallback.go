package dcf77

// AdvanceMinute increments the minute of rec by one, carrying into the
// hour and wrapping 23:59 to 00:00. Date fields are left alone; the
// fallback only keeps a plausible time between two decoded telegrams.
func AdvanceMinute(rec *TimeRecord) {
	m := &rec.Minute
	if m[1] < '9' {
		m[1]++
		return
	}
	m[1] = '0'
	if m[0] < '5' {
		m[0]++
		return
	}
	m[0] = '0'

	h := &rec.Hour
	if (h[0] < '2' && h[1] < '9') || h[1] < '3' {
		h[1]++
		return
	}
	h[1] = '0'
	if h[0] < '2' {
		h[0]++
	} else {
		h[0] = '0'
	}
}
