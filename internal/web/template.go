package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/dcf77-receiver/internal/dcf77"
	"github.com/sweeney/dcf77-receiver/internal/status"
)

var pageTmpl = template.Must(template.New("page").Parse(pageHTML))

// pageData is the view model of the status page.
type pageData struct {
	status.Snapshot
	Source    string // none|radio|quartz
	Uptime    string
	LastFault string
}

func newPageData(snap status.Snapshot) pageData {
	p := pageData{
		Snapshot:  snap,
		Source:    "none",
		Uptime:    formatUptime(snap.Uptime()),
		LastFault: "none",
	}
	switch {
	case !snap.Time.ValidOnce:
	case snap.Time.Quartz:
		p.Source = "quartz"
	default:
		p.Source = "radio"
	}
	if snap.Decoder.LastFault.Kind != dcf77.NoFault {
		p.LastFault = snap.Decoder.LastFault.Error()
	}
	return p
}

// formatUptime renders d as "[Nd ]hh:mm:ss".
func formatUptime(d time.Duration) string {
	secs := int64(d / time.Second)
	days := secs / 86400
	secs %= 86400
	hms := fmt.Sprintf("%02d:%02d:%02d", secs/3600, secs/60%60, secs%60)
	if days > 0 {
		return fmt.Sprintf("%dd %s", days, hms)
	}
	return hms
}

func renderHTML(w io.Writer, snap status.Snapshot) error {
	return pageTmpl.Execute(w, newPageData(snap))
}

const pageHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>DCF77 Receiver</title>
<style>
body { font-family: sans-serif; max-width: 640px; margin: 1.5em auto; padding: 0 1em; color: #222; }
#clock { font-family: monospace; font-size: 2.2em; text-align: center; margin: 0.4em 0; }
#source { text-align: center; text-transform: uppercase; letter-spacing: 0.1em; }
.radio { color: #1a7f37; }
.quartz { color: #b35900; }
.none { color: #777; }
dl { display: grid; grid-template-columns: 14em 1fr; gap: 2px 1em; font-size: 0.95em; }
dt { color: #555; }
dd { margin: 0; font-family: monospace; }
h2 { font-size: 1.05em; border-bottom: 1px solid #ccc; padding-bottom: 2px; margin-top: 1.5em; }
.up { color: #1a7f37; }
.down { color: #c62828; }
#live { font-size: 0.8em; color: #777; float: right; }
</style>
</head>
<body>
{{if .Config.WSBroker}}<span id="live">live: connecting</span>{{end}}
<div id="clock">{{if .Time.Calendar}}{{.Time.Calendar}}{{else}}waiting for the first telegram{{end}}</div>
<div id="source" class="{{.Source}}">{{.Source}}</div>

<h2>Output</h2>
<dl>
<dt>Telegram</dt><dd>{{if .Time.Telegram}}{{.Time.Telegram}}{{else}}-{{end}}</dd>
<dt>Serial</dt><dd>{{if .Config.SerialDevice}}{{.Config.SerialDevice}} ({{.Config.Format}}){{else}}off{{end}}</dd>
<dt>Decoded minutes</dt><dd>{{.Time.Published}}</dd>
<dt>Quartz minutes</dt><dd>{{.Time.Fallbacks}}</dd>
</dl>

<h2>Decoder</h2>
<dl>
<dt>Edge lock</dt><dd>{{if .Decoder.Locked}}locked{{else if .Decoder.Synced}}re-locking{{else}}searching{{end}} (run {{.Decoder.EdgeRun}}, last interval {{.Decoder.LastInterval}})</dd>
<dt>Tick position</dt><dd>{{.Decoder.TickPos}} (was {{.Decoder.LastTickPos}} at last anchor)</dd>
<dt>Second</dt><dd>{{printf "%02d" .Decoder.Second}} of {{.Decoder.SecMax}}</dd>
<dt>State</dt><dd>{{.Decoder.State}}</dd>
<dt>Last bit</dt><dd>{{.Decoder.Class}} (votes {{.Decoder.VotesA}}/{{.Decoder.VotesB}})</dd>
<dt>Last fault</dt><dd>{{.LastFault}}</dd>
<dt>Faults since read</dt><dd>{{.Decoder.FaultCount}}</dd>
</dl>

<h2>Host</h2>
<dl>
<dt>Input</dt><dd>{{.Config.GPIOChip}}:{{.Config.GPIOLine}} {{.Config.Edge}}</dd>
<dt>MQTT</dt><dd>{{if .Config.Broker}}<span class="{{if .MQTTConnected}}up{{else}}down{{end}}">{{.Config.Broker}}</span>{{else}}off{{end}}</dd>
{{with .Network}}<dt>Network</dt><dd>{{.Status}} {{.Type}}{{if .SSID}} "{{.SSID}}"{{end}} {{.IP}}</dd>{{end}}
<dt>Uptime</dt><dd>{{.Uptime}} (since {{.StartTime.UTC.Format "2006-01-02 15:04:05"}} UTC)</dd>
</dl>

<p><a href="/index.json">index.json</a> &middot; <a href="/metrics">metrics</a></p>
{{if .Config.WSBroker}}
<script src="/mqtt.min.js"></script>
<script>
(function() {
  var live = document.getElementById("live");
  var clock = document.getElementById("clock");
  var source = document.getElementById("source");

  var client = mqtt.connect("{{.Config.WSBroker}}", { reconnectPeriod: 5000 });
  client.on("connect", function() {
    live.textContent = "live";
    client.subscribe("time/dcf77/receiver/minute");
  });
  client.on("close", function() {
    live.textContent = "live: disconnected";
  });
  client.on("message", function(topic, message) {
    var m;
    try {
      m = JSON.parse(message.toString()).dcf77;
    } catch (e) {
      return;
    }
    if (!m) {
      return;
    }
    clock.textContent = m.date + " " + m.clock + " " + m.zone;
    source.textContent = m.source;
    source.className = m.source;
  });
})();
</script>
{{end}}
</body>
</html>
`
