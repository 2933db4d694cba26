package dcf77

// Tick positions within one second.
const (
	tickSecond  = 0  // advance the second counter
	tickA0      = 1  // window A samples at 1..3
	tickAReduce = 4  // window A majority
	tickB0      = 8  // window B samples at 8..10
	tickBReduce = 11 // window B majority, classify, decode
	windowLen   = 3
)

// Classify combines the two window votes into a classification.
func Classify(a, b bool) Classification {
	var c Classification
	if a {
		c |= 0b10
	}
	if b {
		c |= 0b01
	}
	return c
}

// SampleResult tells the caller what a sampler tick produced.
type SampleResult uint8

const (
	SampleIdle   SampleResult = iota
	SampleSecond              // second boundary: advance the second counter
	SampleBit                 // both windows reduced: a classification is ready
)

// Sampler samples the signal pin twice per second in two windows of three
// ticks and majority-votes each window.
type Sampler struct {
	pos   int
	count [2]uint8
	class Classification
}

// Tick advances the sampler by one tick. level is the current pin level;
// it is only looked at inside the sampling windows. While the edge
// synchronizer has never locked, the sampler parks at position 0.
func (s *Sampler) Tick(synced, level bool) SampleResult {
	pos := s.pos
	switch {
	case pos == tickSecond:
		if !synced {
			return SampleIdle
		}
		s.pos = 1
		return SampleSecond
	case pos >= tickA0 && pos < tickA0+windowLen:
		s.sample(0, pos == tickA0, level)
	case pos == tickAReduce:
		s.class = 0
		if s.count[0] >= 2 {
			s.class |= 0b10
		}
	case pos >= tickB0 && pos < tickB0+windowLen:
		s.sample(1, pos == tickB0, level)
	case pos == tickBReduce:
		if s.count[1] >= 2 {
			s.class |= 0b01
		}
		s.advance()
		return SampleBit
	}
	s.advance()
	return SampleIdle
}

func (s *Sampler) sample(w int, first, level bool) {
	if first {
		s.count[w] = 0
	}
	if level {
		s.count[w]++
	}
}

func (s *Sampler) advance() {
	if s.pos >= TicksPerSecond-1 {
		s.pos = tickSecond
		return
	}
	s.pos++
}

// Anchor re-phases the sampler so the next tick starts a new second.
// It returns the position the sampler was at.
func (s *Sampler) Anchor() int {
	prev := s.pos
	s.pos = tickSecond
	return prev
}

// Class returns the last classification.
func (s *Sampler) Class() Classification {
	return s.class
}

// Position returns the current tick position.
func (s *Sampler) Position() int {
	return s.pos
}

// Votes returns the high-sample counts of window A and window B.
func (s *Sampler) Votes() (a, b uint8) {
	return s.count[0], s.count[1]
}
