package main

import (
	"errors"
	"os"
	"syscall"
	"time"

	"github.com/womat/debug"

	"github.com/sweeney/dcf77-receiver/internal/dcf77"
	"github.com/sweeney/dcf77-receiver/internal/gpio"
	"github.com/sweeney/dcf77-receiver/internal/metrics"
	"github.com/sweeney/dcf77-receiver/internal/mqtt"
	"github.com/sweeney/dcf77-receiver/internal/serial"
	"github.com/sweeney/dcf77-receiver/internal/status"
	"github.com/sweeney/dcf77-receiver/internal/telegram"
)

// decoder is the part of dcf77.Context the loops drive.
type decoder interface {
	Edge(ts time.Duration) ([]dcf77.Event, bool)
	Tick(level bool) []dcf77.Event
	Consume() dcf77.Handoff
	Snapshot() dcf77.Snapshot
}

// tickSource is the sampler time base. Rephase moves the next tick to
// half a period after at.
type tickSource interface {
	C() <-chan time.Time
	Rephase(at time.Time)
}

// daemon wires the decoder to its input line and output sinks.
// serial and publisher are nil when the sink is disabled.
type daemon struct {
	dec      decoder
	consumer *dcf77.Consumer
	line     gpio.Line
	format   telegram.Format

	serial     *serial.Writer
	publisher  mqtt.Publisher
	mqttStatus mqtt.ConnectionStatus

	tracker *status.Tracker
	metrics *metrics.Metrics
	now     func() time.Time
	network func() *status.NetworkInfo
}

// runLoop is the decode goroutine: edge events, sampler ticks, heartbeats
// and signals are handled one at a time. It returns on SIGINT/SIGTERM or
// when the edge channel is closed.
func (d *daemon) runLoop(ticks tickSource, sig <-chan os.Signal, heartbeat <-chan time.Time) error {
	edges := d.line.Edges()

	for {
		select {
		case s := <-sig:
			debug.InfoLog.Printf("received %v, shutting down", s)
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}
			d.publishSystem("SHUTDOWN", signalName)
			return nil

		case e, ok := <-edges:
			if !ok {
				return errors.New("gpio edge channel closed")
			}
			events, anchor := d.dec.Edge(e.Timestamp)
			if anchor {
				ticks.Rephase(d.now())
			}
			d.observe(events)

		case <-ticks.C():
			level, err := d.line.Level()
			if err != nil {
				debug.ErrorLog.Printf("gpio read error: %v", err)
			}
			d.observe(d.dec.Tick(level))

		case <-heartbeat:
			if d.network != nil {
				if net := d.network(); net != nil {
					d.tracker.SetNetwork(net)
				}
			}
			snap := d.dec.Snapshot()
			debug.InfoLog.Printf("heartbeat: state=%s sec=%d synced=%v faults=%d", snap.State, snap.Second, snap.Synced, snap.FaultCount)
			d.publishSystem("HEARTBEAT", "")
		}
	}
}

// observe logs, counts and records the events of one handler invocation.
func (d *daemon) observe(events []dcf77.Event) {
	for _, e := range events {
		switch e.Type {
		case dcf77.EventLocked:
			debug.DebugLog.Printf("edge lock: interval=%v tick phase was %d", e.Interval, e.TickPos)
		case dcf77.EventRejected:
			debug.DebugLog.Printf("edge rejected: interval=%v", e.Interval)
		case dcf77.EventBit:
			debug.TraceLog.Printf("sec=%02d state=%s bit=%s", e.Second, e.State, e.Class)
		case dcf77.EventFault:
			debug.DebugLog.Printf("fault: %v", e.Fault)
		case dcf77.EventPublished:
			debug.InfoLog.Printf("decoded 20%s-%s-%s %s:%s", e.Record.Year, e.Record.Month, e.Record.Day, e.Record.Hour, e.Record.Minute)
		case dcf77.EventFallback:
			debug.DebugLog.Printf("minute ended without a valid telegram (state=%s)", e.State)
		}
	}
	if d.metrics != nil {
		d.metrics.Observe(events)
	}
	if len(events) > 0 {
		d.tracker.UpdateDecoder(d.dec.Snapshot())
	}
}

// runConsumer polls the decoder handoff until done is closed.
func (d *daemon) runConsumer(poll <-chan time.Time, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case <-poll:
			d.consume()
		}
	}
}

// consume takes one handoff. A new minute is published to MQTT; every new
// second is rendered as a telegram and written to the serial port.
func (d *daemon) consume() {
	h := d.dec.Consume()
	v, emit := d.consumer.Update(h)

	if h.Fresh || (h.NeedsFallback && v.ValidOnce) {
		at := d.now()
		d.tracker.RecordMinute(h.Fresh, at)
		if d.metrics != nil {
			d.metrics.SetQuartz(v.Quartz)
		}
		if d.publisher != nil {
			if err := d.publisher.PublishTime(mqtt.TimeEvent{Timestamp: at, View: v}); err != nil {
				debug.ErrorLog.Printf("publish error: %v", err)
				d.sinkError("mqtt")
			}
		}
	}

	if !emit {
		return
	}

	tg := telegram.Render(d.format, v)
	if d.serial != nil {
		if err := d.serial.Write(tg); err != nil {
			debug.ErrorLog.Printf("serial: %v", err)
			d.sinkError("serial")
		} else if d.metrics != nil {
			d.metrics.TelegramWritten()
		}
	}
	d.tracker.UpdateTime(v, telegram.Printable(tg), telegram.Calendar(v))
}

func (d *daemon) sinkError(sink string) {
	if d.metrics != nil {
		d.metrics.SinkError(sink)
	}
}

// publishSystem sends a lifecycle event carrying the full status snapshot.
func (d *daemon) publishSystem(event, reason string) {
	if d.publisher == nil {
		return
	}
	if d.mqttStatus != nil {
		d.tracker.SetMQTTConnected(d.mqttStatus.IsConnected())
	}
	d.tracker.UpdateDecoder(d.dec.Snapshot())
	snap := d.tracker.Snapshot()
	e := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      event,
		Reason:     reason,
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, event, reason),
	}
	if err := d.publisher.PublishSystem(e); err != nil {
		debug.ErrorLog.Printf("failed to publish %s event: %v", event, err)
		d.sinkError("mqtt")
		return
	}
	debug.InfoLog.Printf("published %s event", event)
}

// phasedTicker fires every period and can be re-phased to an edge.
// Ticks are dropped rather than queued when the reader falls behind.
type phasedTicker struct {
	period  time.Duration
	c       chan time.Time
	rephase chan time.Time
	stop    chan struct{}
	done    chan struct{}
}

func newPhasedTicker(period time.Duration) *phasedTicker {
	t := &phasedTicker{
		period:  period,
		c:       make(chan time.Time, 1),
		rephase: make(chan time.Time),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go t.run()
	return t
}

func (t *phasedTicker) run() {
	defer close(t.done)

	next := time.Now().Add(t.period)
	timer := time.NewTimer(t.period)
	defer timer.Stop()

	for {
		select {
		case <-t.stop:
			return

		case at := <-t.rephase:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			next = at.Add(t.period / 2)
			timer.Reset(time.Until(next))

		case now := <-timer.C:
			select {
			case t.c <- now:
			default:
			}
			// keep the grid anchored to the deadlines, not to handler latency
			next = next.Add(t.period)
			d := time.Until(next)
			if d <= 0 {
				next = now.Add(t.period)
				d = t.period
			}
			timer.Reset(d)
		}
	}
}

// C returns the tick channel.
func (t *phasedTicker) C() <-chan time.Time {
	return t.c
}

// Rephase schedules the next tick half a period after at and discards a
// tick that is still pending from the old phase.
func (t *phasedTicker) Rephase(at time.Time) {
	select {
	case t.rephase <- at:
	case <-t.done:
		return
	}
	select {
	case <-t.c:
	default:
	}
}

// Stop terminates the ticker.
func (t *phasedTicker) Stop() {
	select {
	case <-t.done:
	default:
		close(t.stop)
		<-t.done
	}
}
