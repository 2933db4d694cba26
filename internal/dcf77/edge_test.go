package dcf77

import (
	"testing"
	"time"
)

func TestValidInterval(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want bool
	}{
		{time.Second, true},
		{937500 * time.Microsecond, true},
		{930 * time.Millisecond, false},
		{1062500 * time.Microsecond, true},
		{1070 * time.Millisecond, false},
		{1500 * time.Millisecond, false},
		{2 * time.Second, true},
		{1875 * time.Millisecond, true},
		{1870 * time.Millisecond, false},
		{2125 * time.Millisecond, true},
		{2130 * time.Millisecond, false},
		{0, false},
		{100 * time.Millisecond, false},
	}
	for _, tt := range tests {
		if got := ValidInterval(tt.d); got != tt.want {
			t.Errorf("ValidInterval(%v) = %v, want %v", tt.d, got, tt.want)
		}
	}
}

func TestEdgeSyncLocksAfterThreeIntervals(t *testing.T) {
	var e EdgeSync

	if _, accepted, anchor := e.Edge(0); accepted || anchor {
		t.Fatal("first edge must only arm the synchronizer")
	}
	for i := 1; i <= 2; i++ {
		_, accepted, anchor := e.Edge(time.Duration(i) * time.Second)
		if !accepted || anchor {
			t.Fatalf("edge %d: accepted=%v anchor=%v, want accepted without anchor", i, accepted, anchor)
		}
		if e.Synced() {
			t.Fatalf("edge %d: synced too early", i)
		}
	}
	// The minute gap counts as a valid interval.
	interval, accepted, anchor := e.Edge(4 * time.Second)
	if !accepted || !anchor || interval != 2*time.Second {
		t.Fatalf("third interval: %v accepted=%v anchor=%v", interval, accepted, anchor)
	}
	if !e.Synced() || !e.Locked() || e.Run() != 3 {
		t.Errorf("run=%d synced=%v locked=%v after lock", e.Run(), e.Synced(), e.Locked())
	}

	// Every further accepted edge re-anchors.
	if _, _, anchor := e.Edge(5 * time.Second); !anchor {
		t.Error("accepted edge while locked did not anchor")
	}
}

func TestEdgeSyncRejectionDisarms(t *testing.T) {
	var e EdgeSync
	for i := 0; i < 4; i++ {
		e.Edge(time.Duration(i) * time.Second)
	}

	if _, accepted, _ := e.Edge(3300 * time.Millisecond); accepted {
		t.Fatal("300ms interval accepted")
	}
	if e.Run() != 0 || e.Locked() {
		t.Errorf("run = %d after rejection, want 0", e.Run())
	}
	if !e.Synced() {
		t.Error("synced flag must survive a rejection")
	}

	// The next edge only re-arms, however well it is timed.
	if _, accepted, _ := e.Edge(4300 * time.Millisecond); accepted {
		t.Error("edge after rejection was judged instead of arming")
	}
	for i, ts := range []time.Duration{5300, 6300, 7300} {
		_, accepted, anchor := e.Edge(ts * time.Millisecond)
		if !accepted {
			t.Fatalf("edge %d not accepted", i)
		}
		if wantAnchor := i == 2; anchor != wantAnchor {
			t.Errorf("edge %d: anchor=%v, want %v", i, anchor, wantAnchor)
		}
	}
}

func TestEdgeSyncToleratesJitter(t *testing.T) {
	var e EdgeSync
	ts := []time.Duration{0, 960 * time.Millisecond, 2010 * time.Millisecond, 3000 * time.Millisecond}
	var anchor bool
	for _, v := range ts {
		_, _, anchor = e.Edge(v)
	}
	if !anchor {
		t.Errorf("jittered edges did not lock, last interval %v", e.LastInterval())
	}
}
