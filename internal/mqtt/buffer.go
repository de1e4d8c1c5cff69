package mqtt

import "log"

// bufferedMsg stores a serialized MQTT message for replay after reconnection.
type bufferedMsg struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// outbox holds telemetry until the sender hands it to the broker, oldest
// first.
//
// A retained message supersedes an earlier retained message on the same
// topic, since the broker would only keep the last one. When full, the oldest
// mission event is evicted before any retained lifecycle message.
// Not safe for concurrent use; RealPublisher holds its mutex around it.
type outbox struct {
	msgs     []bufferedMsg
	capacity int
	dropped  int // messages evicted since the last drain
}

func newOutbox(capacity int) *outbox {
	return &outbox{
		msgs:     make([]bufferedMsg, 0, capacity),
		capacity: capacity,
	}
}

func (o *outbox) push(msg bufferedMsg) {
	if msg.retained {
		for i, m := range o.msgs {
			if m.retained && m.topic == msg.topic {
				o.remove(i)
				break
			}
		}
	}

	if len(o.msgs) == o.capacity {
		if o.dropped == 0 {
			log.Printf("mqtt: offline buffer full (%d messages), dropping oldest", o.capacity)
		}
		o.dropped++
		o.remove(o.victim())
	}
	o.msgs = append(o.msgs, msg)
}

// victim is the index of the oldest non-retained message, or 0 when every
// buffered message is retained.
func (o *outbox) victim() int {
	for i, m := range o.msgs {
		if !m.retained {
			return i
		}
	}
	return 0
}

func (o *outbox) remove(i int) {
	copy(o.msgs[i:], o.msgs[i+1:])
	o.msgs = o.msgs[:len(o.msgs)-1]
}

// pop removes and returns the oldest message.
func (o *outbox) pop() (bufferedMsg, bool) {
	if len(o.msgs) == 0 {
		return bufferedMsg{}, false
	}
	msg := o.msgs[0]
	o.remove(0)

	if len(o.msgs) == 0 && o.dropped > 0 {
		log.Printf("mqtt: %d buffered messages were dropped while the broker was unavailable", o.dropped)
		o.dropped = 0
	}
	return msg, true
}

func (o *outbox) len() int {
	return len(o.msgs)
}
