// Package mqtt publishes decoded DCF77 minutes and daemon lifecycle events
// to an MQTT broker, with an abstraction for testing.
package mqtt

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/sweeney/dcf77-receiver/internal/dcf77"
	"github.com/sweeney/dcf77-receiver/internal/telegram"
)

// Topic is the MQTT topic for decoded minutes.
const Topic = "time/dcf77/receiver/minute"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "time/dcf77/receiver/system"

// Publisher publishes events to MQTT.
type Publisher interface {
	// PublishTime sends one decoded (or locally advanced) minute.
	// Returns error if publishing fails (should not crash the process).
	PublishTime(event TimeEvent) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// TimeEvent is one minute of the consumer view.
type TimeEvent struct {
	Timestamp time.Time // host clock when the minute was taken over
	View      dcf77.View
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload for a decoded minute.
type Payload struct {
	DCF77 TimePayload `json:"dcf77"`
}

// TimePayload carries the digit fields verbatim plus a parsed rendering.
type TimePayload struct {
	Timestamp string `json:"timestamp"`
	Time      string `json:"time,omitempty"` // RFC3339 in the broadcast zone; empty if the digits are not a real date
	Date      string `json:"date"`
	Clock     string `json:"clock"`
	Weekday   string `json:"weekday"`
	Zone      string `json:"zone"`
	TZChange  bool   `json:"tz_change"`
	Leap      bool   `json:"leap"`
	Source    string `json:"source"` // "radio" or "quartz"
}

// FormatPayload creates the JSON payload for a decoded minute.
func FormatPayload(event TimeEvent) ([]byte, error) {
	r := event.View.Record
	p := TimePayload{
		Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
		Date:      fmt.Sprintf("20%s-%s-%s", r.Year, r.Month, r.Day),
		Clock:     fmt.Sprintf("%s:%s", r.Hour, r.Minute),
		Weekday:   string([]byte{r.Weekday}),
		Zone:      "CET",
		TZChange:  r.TZChange,
		Leap:      r.Leap,
		Source:    "radio",
	}
	if r.CEST {
		p.Zone = "CEST"
	}
	if event.View.Quartz {
		p.Source = "quartz"
	}
	// minute payloads describe the start of the minute
	v := event.View
	v.Second = 0
	if t, err := telegram.Time(v); err == nil {
		p.Time = t.Format(time.RFC3339)
	}
	return json.Marshal(Payload{DCF77: p})
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, RECONNECTED) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	return json.Marshal(SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	})
}
