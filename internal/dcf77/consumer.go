package dcf77

// View is the consumer's current idea of the time.
type View struct {
	Record    TimeRecord
	Second    int
	Quartz    bool // minute advanced locally, not decoded from the signal
	ValidOnce bool // at least one record was ever decoded
}

// Consumer turns handoffs into a per-second view. It caches the last
// published record and advances it by one minute when a minute ends
// without a valid telegram.
type Consumer struct {
	cached    TimeRecord
	validOnce bool
	quartz    bool
	prevSec   int
}

// NewConsumer returns a Consumer that has not seen any time yet.
func NewConsumer() *Consumer {
	return &Consumer{prevSec: -1}
}

// Update applies one handoff. It reports true when a new second is to be
// emitted, which never happens before the first valid record.
func (c *Consumer) Update(h Handoff) (View, bool) {
	switch {
	case h.Fresh:
		c.cached = h.Record
		c.validOnce = true
		c.quartz = false
	case h.NeedsFallback && c.validOnce:
		AdvanceMinute(&c.cached)
		c.quartz = true
	}

	if !c.validOnce || c.prevSec == h.Second {
		return c.View(), false
	}
	c.prevSec = h.Second
	return c.View(), true
}

// View returns the current view.
func (c *Consumer) View() View {
	return View{
		Record:    c.cached,
		Second:    c.prevSec,
		Quartz:    c.quartz,
		ValidOnce: c.validOnce,
	}
}
