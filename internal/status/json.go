package status

import (
	"encoding/json"
	"time"

	"github.com/sweeney/dcf77-receiver/internal/dcf77"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string       `json:"event,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	Decoder       DecoderJSON  `json:"decoder"`
	Time          TimeJSON     `json:"time"`
	MQTT          MQTTStatus   `json:"mqtt"`
	Network       *NetworkJSON `json:"network,omitempty"`
	Config        ConfigJSON   `json:"config"`
}

// DecoderJSON mirrors the read-only diagnostics of the decoder.
type DecoderJSON struct {
	Synced         bool    `json:"synced"`
	Locked         bool    `json:"locked"`
	EdgeRun        int     `json:"edge_run"`
	LastIntervalMs float64 `json:"last_interval_ms"`
	TickPos        int     `json:"tick_pos"`
	LastTickPos    int     `json:"last_tick_pos"`
	State          string  `json:"state"`
	StateNum       int     `json:"state_num"`
	Second         int     `json:"second"`
	Bit            string  `json:"bit"`
	VotesA         uint8   `json:"votes_a"`
	VotesB         uint8   `json:"votes_b"`
	LastFault      string  `json:"last_fault"`
	FaultCount     uint16  `json:"fault_count"`
}

// TimeJSON is the consumer view.
type TimeJSON struct {
	ValidOnce     bool   `json:"valid_once"`
	Source        string `json:"source"`
	Telegram      string `json:"telegram,omitempty"`
	Calendar      string `json:"calendar,omitempty"`
	LastPublished string `json:"last_published,omitempty"`
	Published     int    `json:"published"`
	Fallbacks     int    `json:"fallbacks"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	GPIOChip     string `json:"gpio_chip"`
	GPIOLine     int    `json:"gpio_line"`
	Edge         string `json:"edge"`
	SerialDevice string `json:"serial_device,omitempty"`
	Format       string `json:"format"`
	HeartbeatMs  int64  `json:"heartbeat_ms"`
	Broker       string `json:"broker"`
	HTTPAddr     string `json:"http_addr"`
	WSBroker     string `json:"ws_broker,omitempty"`
}

func buildInner(snap Snapshot) StatusInner {
	d := snap.Decoder
	lastFault := dcf77.NoFault.String()
	if d.LastFault.Kind != dcf77.NoFault {
		lastFault = d.LastFault.Error()
	}

	inner := StatusInner{
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		Decoder: DecoderJSON{
			Synced:         d.Synced,
			Locked:         d.Locked,
			EdgeRun:        d.EdgeRun,
			LastIntervalMs: float64(d.LastInterval.Microseconds()) / 1000,
			TickPos:        d.TickPos,
			LastTickPos:    d.LastTickPos,
			State:          d.State.String(),
			StateNum:       int(d.State),
			Second:         d.Second,
			Bit:            d.Class.String(),
			VotesA:         d.VotesA,
			VotesB:         d.VotesB,
			LastFault:      lastFault,
			FaultCount:     d.FaultCount,
		},
		Time: TimeJSON{
			ValidOnce: snap.Time.ValidOnce,
			Source:    "none",
			Telegram:  snap.Time.Telegram,
			Calendar:  snap.Time.Calendar,
			Published: snap.Time.Published,
			Fallbacks: snap.Time.Fallbacks,
		},
		MQTT: MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Config: ConfigJSON{
			GPIOChip:     snap.Config.GPIOChip,
			GPIOLine:     snap.Config.GPIOLine,
			Edge:         snap.Config.Edge,
			SerialDevice: snap.Config.SerialDevice,
			Format:       snap.Config.Format,
			HeartbeatMs:  snap.Config.HeartbeatMs,
			Broker:       snap.Config.Broker,
			HTTPAddr:     snap.Config.HTTPAddr,
			WSBroker:     snap.Config.WSBroker,
		},
	}
	switch {
	case !snap.Time.ValidOnce:
	case snap.Time.Quartz:
		inner.Time.Source = "quartz"
	default:
		inner.Time.Source = "radio"
	}
	if !snap.Time.LastPublished.IsZero() {
		inner.Time.LastPublished = snap.Time.LastPublished.UTC().Format(time.RFC3339)
	}
	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
	return inner
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
