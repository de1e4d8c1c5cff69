package mqtt

import (
	"fmt"
	"log"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/sweeney/linebot/internal/logic"
)

// bufferCapacity is how many messages are held while the broker is away or
// slow to acknowledge.
const bufferCapacity = 256

// publishTimeout bounds the wait for one broker acknowledgement.
const publishTimeout = 5 * time.Second

// closeFlushTimeout bounds the final flush on Close.
const closeFlushTimeout = 2 * time.Second

// client is the part of paho.Client the publisher uses.
type client interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Disconnect(quiesce uint)
}

// RealPublisher publishes to an actual MQTT broker. Publish never waits on
// the network: every message goes through the outbox and a single sender
// goroutine hands them to the broker oldest first, holding them while the
// connection is down.
type RealPublisher struct {
	client  client
	id      Identity
	timeout time.Duration

	mu        sync.Mutex
	buffer    *outbox
	connected bool
	everUp    bool

	wake      chan struct{}
	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

func newRealPublisher(id Identity) *RealPublisher {
	return &RealPublisher{
		id:      id,
		timeout: publishTimeout,
		buffer:  newOutbox(bufferCapacity),
		wake:    make(chan struct{}, 1),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// NewRealPublisher creates a publisher for the given broker. The broker is
// given a retained OFFLINE will on the system topic.
func NewRealPublisher(broker string, id Identity) (*RealPublisher, error) {
	p := newRealPublisher(id)

	will, err := FormatSystemPayload(id, SystemEvent{
		Timestamp: time.Now(),
		Event:     SystemOffline,
		Reason:    "MQTT_DISCONNECT",
	})
	if err != nil {
		return nil, fmt.Errorf("format will: %w", err)
	}

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID("linebot-" + id.Robot).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetBinaryWill(TopicSystem(id.Robot), will, 1, true).
		SetOnConnectHandler(func(paho.Client) { p.onConnect() }).
		SetConnectionLostHandler(func(_ paho.Client, err error) { p.onConnectionLost(err) })

	c := paho.NewClient(opts)
	p.client = c
	go p.run()

	token := c.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		// Connect keeps retrying in the background; publish buffers meanwhile.
		log.Printf("mqtt: broker %s not reachable yet, buffering", broker)
		return p, nil
	}
	if err := token.Error(); err != nil {
		p.Close()
		return nil, fmt.Errorf("connect to broker: %w", err)
	}
	return p, nil
}

func (p *RealPublisher) onConnect() {
	p.mu.Lock()
	p.connected = true
	reconnect := p.everUp
	p.everUp = true
	pending := p.buffer.len()
	p.mu.Unlock()

	if reconnect {
		log.Printf("mqtt: reconnected, replaying %d buffered messages", pending)
		payload, err := FormatSystemPayload(p.id, SystemEvent{Timestamp: time.Now(), Event: SystemReconnected})
		if err == nil {
			p.enqueue(bufferedMsg{topic: TopicSystem(p.id.Robot), payload: payload, qos: 1})
		}
	}
	p.signal()
}

func (p *RealPublisher) onConnectionLost(err error) {
	p.mu.Lock()
	p.connected = false
	p.mu.Unlock()
	log.Printf("mqtt: connection lost: %v", err)
}

// IsConnected reports whether the broker connection is up.
func (p *RealPublisher) IsConnected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.connected
}

func (p *RealPublisher) enqueue(msg bufferedMsg) {
	p.mu.Lock()
	p.buffer.push(msg)
	p.mu.Unlock()
}

func (p *RealPublisher) signal() {
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// run is the only goroutine that talks to the broker.
func (p *RealPublisher) run() {
	defer close(p.done)
	for {
		select {
		case <-p.wake:
			p.flush(time.Time{})
		case <-p.stop:
			p.flush(time.Now().Add(closeFlushTimeout))
			return
		}
	}
}

// flush sends buffered messages while connected, oldest first. A non-zero
// deadline stops it early.
func (p *RealPublisher) flush(deadline time.Time) {
	for deadline.IsZero() || time.Now().Before(deadline) {
		p.mu.Lock()
		if !p.connected {
			p.mu.Unlock()
			return
		}
		msg, ok := p.buffer.pop()
		p.mu.Unlock()
		if !ok {
			return
		}

		wait := p.timeout
		if !deadline.IsZero() {
			if left := time.Until(deadline); left < wait {
				wait = left
			}
		}
		token := p.client.Publish(msg.topic, msg.qos, msg.retained, msg.payload)
		if !token.WaitTimeout(wait) {
			log.Printf("mqtt: publish to %s timed out", msg.topic)
			continue
		}
		if err := token.Error(); err != nil {
			log.Printf("mqtt: publish to %s: %v", msg.topic, err)
		}
	}
}

// send queues the message for the sender goroutine. It never blocks on the
// broker.
func (p *RealPublisher) send(topic string, qos byte, retained bool, payload []byte) error {
	p.enqueue(bufferedMsg{topic: topic, payload: payload, qos: qos, retained: retained})
	p.signal()
	return nil
}

// Publish sends a mission event to the MQTT broker.
func (p *RealPublisher) Publish(event logic.Event) error {
	payload, err := FormatPayload(p.id, event)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}
	// QoS 0 (at-most-once), not retained
	return p.send(TopicEvents(p.id.Robot), 0, false, payload)
}

// PublishSystem sends a system lifecycle event to the MQTT broker.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(p.id, event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	// QoS 1 (at-least-once) for lifecycle events
	return p.send(TopicSystem(p.id.Robot), 1, event.Retained, payload)
}

// Close sends what it can of the backlog, then disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.closeOnce.Do(func() {
		close(p.stop)
		<-p.done
		p.client.Disconnect(1000) // 1 second timeout
	})
	return nil
}
