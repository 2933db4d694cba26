package dcf77

import "testing"

func TestConsumerSilentUntilFirstRecord(t *testing.T) {
	c := NewConsumer()
	for sec := 0; sec < 3; sec++ {
		if _, emit := c.Update(Handoff{Second: sec, NeedsFallback: true}); emit {
			t.Fatalf("emitted at second %d without any record", sec)
		}
	}
	if v := c.View(); v.ValidOnce || v.Quartz {
		t.Errorf("view = %+v", v)
	}
}

func TestConsumerFreshThenFallback(t *testing.T) {
	c := NewConsumer()
	rec := TimeRecord{Minute: Digits{'5', '9'}, Hour: Digits{'2', '3'}}

	v, emit := c.Update(Handoff{Record: rec, Fresh: true, Second: 0})
	if !emit || v.Quartz || !v.ValidOnce || v.Record != rec || v.Second != 0 {
		t.Fatalf("fresh update: emit=%v view=%+v", emit, v)
	}

	if _, emit := c.Update(Handoff{Second: 0}); emit {
		t.Error("emitted twice for the same second")
	}
	if _, emit := c.Update(Handoff{Second: 1}); !emit {
		t.Error("no emit on new second")
	}

	v, emit = c.Update(Handoff{Second: 0, NeedsFallback: true})
	if !emit || !v.Quartz {
		t.Fatalf("fallback update: emit=%v view=%+v", emit, v)
	}
	if v.Record.Hour.String() != "00" || v.Record.Minute.String() != "00" {
		t.Errorf("fallback time = %s:%s, want 00:00", v.Record.Hour, v.Record.Minute)
	}

	v, _ = c.Update(Handoff{Record: rec, Fresh: true, Second: 0})
	if v.Quartz {
		t.Error("fresh record did not clear quartz flag")
	}
}
