// Package telegram renders the decoded time as the serial time strings
// understood by NTP reference clock drivers.
package telegram

import (
	"fmt"
	"strings"
	"time"

	"github.com/sweeney/dcf77-receiver/internal/dcf77"
)

// Control characters framing a telegram.
const (
	STX = "\x02"
	ETX = "\x03"
	CR  = "\r"
	LF  = "\n"
)

// Format selects the telegram layout.
type Format string

const (
	// PZF5xx is the Meinberg PZF5xx / Uni Erlangen string (NTP refclock
	// "parse" mode 2, 9600 7E2).
	PZF5xx Format = "pzf5xx"
	// Hopf6021 is the Hopf 6021 string (NTP refclock "parse" mode 12,
	// 9600 8N1).
	Hopf6021 Format = "hopf6021"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case PZF5xx, Hopf6021:
		return f, nil
	}
	return "", fmt.Errorf("unknown telegram format %q (want %s or %s)", s, PZF5xx, Hopf6021)
}

// Render formats v in the given layout. The seconds field is the second
// counter of the decoder, so it always fits two digits.
func Render(f Format, v dcf77.View) []byte {
	r := v.Record
	switch f {
	case Hopf6021:
		return []byte(fmt.Sprintf(STX+"%02X%s%s%02d%s%s%s"+LF+CR+ETX,
			hopfStatus(v), r.Hour, r.Minute, v.Second, r.Day, r.Month, r.Year))
	default:
		// status field "tuvxyza": local time, synchronized once, quartz,
		// DST, DST change announced, leap second announced, unused
		status := []byte{' ', ' ',
			flag(v.Quartz, '*'),
			flag(r.CEST, 'S'),
			flag(r.TZChange, '!'),
			flag(r.Leap, 'A'),
			' '}
		return []byte(fmt.Sprintf(STX+"%s.%s.%s; %c; %s:%s:%02d; %s"+ETX,
			r.Day, r.Month, r.Year, weekday(r), r.Hour, r.Minute, v.Second, status))
	}
}

func hopfStatus(v dcf77.View) byte {
	status := byte(0b11000000)
	if v.Quartz {
		status = 0b01000000
	}
	if v.Record.CEST {
		status |= 0b00100000
	}
	if v.Record.TZChange {
		status |= 0b00010000
	}
	return status | v.Record.Weekday&0b00000111
}

func weekday(r dcf77.TimeRecord) byte {
	if r.Weekday == 0 {
		return '0'
	}
	return r.Weekday
}

func flag(set bool, c byte) byte {
	if set {
		return c
	}
	return ' '
}

// Printable replaces framing control characters with '~' so the
// telegram can be shown on a status page or log line.
func Printable(b []byte) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '\x02', '\x03', '\r', '\n':
			return '~'
		}
		return r
	}, string(b))
}

// Calendar renders v as "20yy-mm-dd [w=W, d=D] hh:mm:ss" where W is the
// weekday digit and D is 1 during daylight saving time.
func Calendar(v dcf77.View) string {
	r := v.Record
	d := 0
	if r.CEST {
		d = 1
	}
	return fmt.Sprintf("20%s-%s-%s [w=%c, d=%d] %s:%s:%02d",
		r.Year, r.Month, r.Day, weekday(r), d, r.Hour, r.Minute, v.Second)
}

// Time converts v to a time.Time in the zone announced by the telegram.
// It fails when the digit fields do not form a real date.
func Time(v dcf77.View) (time.Time, error) {
	r := v.Record
	var year, month, day, hour, minute int
	fields := []struct {
		d   dcf77.Digits
		dst *int
	}{
		{r.Year, &year}, {r.Month, &month}, {r.Day, &day}, {r.Hour, &hour}, {r.Minute, &minute},
	}
	for _, f := range fields {
		n, err := digits(f.d)
		if err != nil {
			return time.Time{}, err
		}
		*f.dst = n
	}

	zone := time.FixedZone("CET", 3600)
	if r.CEST {
		zone = time.FixedZone("CEST", 7200)
	}
	t := time.Date(2000+year, time.Month(month), day, hour, minute, 0, 0, zone)
	if int(t.Month()) != month || t.Day() != day || t.Hour() != hour || t.Minute() != minute {
		return time.Time{}, fmt.Errorf("invalid time 20%s-%s-%s %s:%s", r.Year, r.Month, r.Day, r.Hour, r.Minute)
	}
	if v.Second > 0 {
		t = t.Add(time.Duration(v.Second) * time.Second)
	}
	return t, nil
}

func digits(d dcf77.Digits) (int, error) {
	n := 0
	for _, c := range d {
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("non-decimal digits %q", d.String())
		}
		n = n*10 + int(c-'0')
	}
	return n, nil
}
