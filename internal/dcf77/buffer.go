package dcf77

// DoubleBuffer holds two TimeRecords. The decoder fills the write slot
// while the consumer copies the read slot; Publish swaps them.
type DoubleBuffer struct {
	slots [2]TimeRecord
	w     int
}

// Write returns the record under construction.
func (b *DoubleBuffer) Write() *TimeRecord {
	return &b.slots[b.w]
}

// Read returns a copy of the last published record.
func (b *DoubleBuffer) Read() TimeRecord {
	return b.slots[1-b.w]
}

// Publish makes the write slot readable and starts writing into the
// other one.
func (b *DoubleBuffer) Publish() {
	b.w = 1 - b.w
}
