// Package status provides a thread-safe status tracker for the receiver daemon.
// It is read by the HTTP handlers and the MQTT heartbeat.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/dcf77-receiver/internal/dcf77"
)

// NetworkInfo contains network state. This is a local copy to avoid
// importing internal/mqtt from status.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	GPIOChip     string
	GPIOLine     int
	Edge         string
	SerialDevice string // empty = serial output disabled
	Format       string
	HeartbeatMs  int64
	Broker       string // empty = MQTT disabled
	HTTPAddr     string
	WSBroker     string // Websocket broker URL for browser MQTT (empty = disabled)
}

// TimeInfo is the consumer side of the receiver.
type TimeInfo struct {
	ValidOnce     bool
	Quartz        bool
	Telegram      string // last rendered telegram, control characters replaced
	Calendar      string
	LastPublished time.Time // host time of the last valid record
	Published     int
	Fallbacks     int
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	Decoder       dcf77.Snapshot
	Time          TimeInfo
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Network       *NetworkInfo
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
	now  func() time.Time
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{StartTime: startTime, Config: cfg},
		now:  time.Now,
	}
}

// SetClock replaces the clock used to stamp snapshots.
func (t *Tracker) SetClock(now func() time.Time) {
	t.mu.Lock()
	t.now = now
	t.mu.Unlock()
}

// UpdateDecoder stores a copy of the decoder internals.
func (t *Tracker) UpdateDecoder(d dcf77.Snapshot) {
	t.mu.Lock()
	t.snap.Decoder = d
	t.mu.Unlock()
}

// UpdateTime stores the consumer view with its renderings.
func (t *Tracker) UpdateTime(v dcf77.View, telegram, calendar string) {
	t.mu.Lock()
	t.snap.Time.ValidOnce = v.ValidOnce
	t.snap.Time.Quartz = v.Quartz
	t.snap.Time.Telegram = telegram
	t.snap.Time.Calendar = calendar
	t.mu.Unlock()
}

// RecordMinute counts a minute start: published when a valid record was
// taken over, otherwise a fallback.
func (t *Tracker) RecordMinute(published bool, at time.Time) {
	t.mu.Lock()
	if published {
		t.snap.Time.Published++
		t.snap.Time.LastPublished = at
	} else {
		t.snap.Time.Fallbacks++
	}
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set from the tracker clock at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	now := t.now
	t.mu.RUnlock()
	s.Now = now()
	return s
}
