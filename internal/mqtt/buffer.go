package mqtt

import "github.com/womat/debug"

// pendingMsg is a serialized message waiting for the broker to come back.
type pendingMsg struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// outbox is a fixed-capacity FIFO of messages published while the
// connection was down. When full, the oldest message is dropped.
// Not safe for concurrent use; caller must synchronize.
type outbox struct {
	msgs    []pendingMsg
	next    int // slot for the next message
	n       int
	dropped int // messages lost since the last drain
}

func newOutbox(capacity int) *outbox {
	if capacity < 1 {
		capacity = 1
	}
	return &outbox{msgs: make([]pendingMsg, capacity)}
}

func (o *outbox) add(m pendingMsg) {
	size := len(o.msgs)
	if o.n == size {
		if o.dropped == 0 {
			debug.ErrorLog.Printf("mqtt: outbox full (%d messages), dropping oldest", size)
		}
		o.dropped++
	} else {
		o.n++
	}
	o.msgs[o.next] = m
	o.next = (o.next + 1) % size
}

// drain returns the queued messages oldest first and empties the outbox.
func (o *outbox) drain() []pendingMsg {
	if o.n == 0 {
		return nil
	}
	size := len(o.msgs)
	out := make([]pendingMsg, 0, o.n)
	for i := o.next - o.n; i < o.next; i++ {
		out = append(out, o.msgs[(i+size)%size])
	}
	if o.dropped > 0 {
		debug.InfoLog.Printf("mqtt: replaying %d messages, %d dropped while offline", len(out), o.dropped)
	}
	o.next, o.n, o.dropped = 0, 0, 0
	return out
}

func (o *outbox) len() int {
	return o.n
}
