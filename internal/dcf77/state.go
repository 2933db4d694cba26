package dcf77

import "fmt"

// State is the protocol decoder position. Apart from NotSynced, each
// value corresponds to one telegram second: StartOfMinute is bit 0 and
// EndOfMinute is bit 59.
type State uint8

const (
	NotSynced State = iota
	StartOfMinute
	Ignore1
	Ignore2
	Ignore3
	Ignore4
	Ignore5
	Ignore6
	Ignore7
	Ignore8
	Ignore9
	Ignore10
	Ignore11
	Ignore12
	Ignore13
	Ignore14
	Ignore15
	NewTZ
	StateCEST
	StateCET
	StateLeap
	StartTime
	Min0
	Min1
	Min2
	Min3
	Min4
	Min5
	Min6
	ParityMin
	Hr0
	Hr1
	Hr2
	Hr3
	Hr4
	Hr5
	ParityHr
	Day0
	Day1
	Day2
	Day3
	Day4
	Day5
	Wday0
	Wday1
	Wday2
	Mon0
	Mon1
	Mon2
	Mon3
	Mon4
	Yr0
	Yr1
	Yr2
	Yr3
	Yr4
	Yr5
	Yr6
	Yr7
	ParityDate
	EndOfMinute

	numStates
)

var stateNames = [numStates]string{
	NotSynced:     "NOT_SYNCED",
	StartOfMinute: "START_OF_MINUTE",
	NewTZ:         "NEW_TZ",
	StateCEST:     "CEST",
	StateCET:      "CET",
	StateLeap:     "LEAP",
	StartTime:     "START_TIME",
	ParityMin:     "PARITY_MIN",
	ParityHr:      "PARITY_HR",
	ParityDate:    "PARITY_DATE",
	EndOfMinute:   "END_OF_MINUTE",
}

// String returns the symbolic name of the state.
func (s State) String() string {
	switch {
	case s >= numStates:
		return fmt.Sprintf("STATE(%d)", uint8(s))
	case s >= Ignore1 && s <= Ignore15:
		return fmt.Sprintf("IGNORE_%d", s-Ignore1+1)
	case s >= Min0 && s <= Min6:
		return fmt.Sprintf("MIN_%d", s-Min0)
	case s >= Hr0 && s <= Hr5:
		return fmt.Sprintf("HR_%d", s-Hr0)
	case s >= Day0 && s <= Day5:
		return fmt.Sprintf("DAY_%d", s-Day0)
	case s >= Wday0 && s <= Wday2:
		return fmt.Sprintf("WDAY_%d", s-Wday0)
	case s >= Mon0 && s <= Mon4:
		return fmt.Sprintf("MON_%d", s-Mon0)
	case s >= Yr0 && s <= Yr7:
		return fmt.Sprintf("YR_%d", s-Yr0)
	}
	return stateNames[s]
}

// TelegramBit returns the telegram second handled in this state, or -1
// for NotSynced.
func (s State) TelegramBit() int {
	if s == NotSynced || s >= numStates {
		return -1
	}
	return int(s) - int(StartOfMinute)
}
