package mqtt

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/sweeney/linebot/internal/logic"
)

// fakeToken acknowledges at once, or when release is closed.
type fakeToken struct {
	release chan struct{}
}

func (t fakeToken) Wait() bool { return t.WaitTimeout(time.Hour) }

func (t fakeToken) WaitTimeout(d time.Duration) bool {
	if t.release == nil {
		return true
	}
	select {
	case <-t.release:
		return true
	case <-time.After(d):
		return false
	}
}

func (t fakeToken) Done() <-chan struct{} {
	if t.release == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return t.release
}

func (t fakeToken) Error() error { return nil }

// fakeClient records what the sender hands to the broker.
type fakeClient struct {
	mu           sync.Mutex
	published    []bufferedMsg
	release      chan struct{} // nil acknowledges every publish at once
	disconnected bool
}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.published = append(c.published, bufferedMsg{topic: topic, payload: payload.([]byte), qos: qos, retained: retained})
	return fakeToken{release: c.release}
}

func (c *fakeClient) Disconnect(uint) {
	c.mu.Lock()
	c.disconnected = true
	c.mu.Unlock()
}

// labels names each published message: "CROSSING/n" for mission events with
// n crossings, the system event name otherwise.
func (c *fakeClient) labels(t *testing.T) []string {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []string
	for _, m := range c.published {
		if m.topic == TopicEvents(testID.Robot) {
			var p Payload
			if err := json.Unmarshal(m.payload, &p); err != nil {
				t.Fatalf("invalid event payload: %v", err)
			}
			out = append(out, fmt.Sprintf("%s/%d", p.Robot.Event, p.Robot.Crossings))
			continue
		}
		var p SystemPayload
		if err := json.Unmarshal(m.payload, &p); err != nil {
			t.Fatalf("invalid system payload: %v", err)
		}
		out = append(out, p.System.Event)
	}
	return out
}

func (c *fakeClient) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.published)
}

func startPublisher(t *testing.T, c *fakeClient, connected bool) *RealPublisher {
	t.Helper()
	p := newRealPublisher(testID)
	p.client = c
	p.timeout = time.Minute
	p.connected = connected
	p.everUp = true
	go p.run()
	return p
}

func crossingEvent(n int) logic.Event {
	return logic.Event{
		Timestamp: time.Date(2026, 1, 1, 0, 0, n, 0, time.UTC),
		Type:      logic.EventCrossing,
		To:        logic.StateFollowLine,
		Crossings: n,
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestPublishDoesNotWaitForBroker(t *testing.T) {
	c := &fakeClient{release: make(chan struct{})}
	p := startPublisher(t, c, true)

	start := time.Now()
	for i := 1; i <= 3; i++ {
		if err := p.Publish(crossingEvent(i)); err != nil {
			t.Fatalf("Publish: %v", err)
		}
	}
	if err := p.PublishSystem(SystemEvent{Timestamp: start, Event: SystemHeartbeat}); err != nil {
		t.Fatalf("PublishSystem: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("publishing took %v while the broker was stalled", elapsed)
	}

	// The sender is stuck on the first acknowledgement.
	waitFor(t, "first publish", func() bool { return c.count() == 1 })

	close(c.release)
	waitFor(t, "backlog", func() bool { return c.count() == 4 })

	want := []string{"CROSSING/1", "CROSSING/2", "CROSSING/3", "HEARTBEAT"}
	got := c.labels(t)
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("message %d: got %s, want %s", i, got[i], want[i])
		}
	}
	p.Close()
}

func TestReconnectReplaysOldestFirst(t *testing.T) {
	c := &fakeClient{}
	p := startPublisher(t, c, false)

	p.Publish(crossingEvent(1))
	p.Publish(crossingEvent(2))
	if p.IsConnected() {
		t.Fatal("expected disconnected")
	}

	p.onConnect()
	p.Publish(crossingEvent(3))

	waitFor(t, "replay", func() bool { return c.count() == 4 })

	want := []string{"CROSSING/1", "CROSSING/2", "RECONNECTED", "CROSSING/3"}
	got := c.labels(t)
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("message %d: got %s, want %s", i, got[i], want[i])
		}
	}
	p.Close()
}

func TestNothingSentWhileDisconnected(t *testing.T) {
	c := &fakeClient{}
	p := startPublisher(t, c, false)

	p.Publish(crossingEvent(1))
	p.onConnectionLost(fmt.Errorf("broker gone"))
	p.Close()

	if c.count() != 0 {
		t.Errorf("expected nothing published, got %d", c.count())
	}
	if !c.disconnected {
		t.Error("expected Disconnect on Close")
	}
}

func TestCloseFlushesShutdown(t *testing.T) {
	c := &fakeClient{}
	p := startPublisher(t, c, true)

	p.PublishSystem(SystemEvent{
		Timestamp:  time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Event:      SystemShutdown,
		Reason:     "SIGTERM",
		Retained:   true,
		RawPayload: []byte(`{"system":{"event":"SHUTDOWN"}}`),
	})
	p.Close()
	p.Close()

	got := c.labels(t)
	if len(got) != 1 || got[0] != "SHUTDOWN" {
		t.Fatalf("expected the shutdown event, got %v", got)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.published[0].retained || c.published[0].qos != 1 {
		t.Errorf("shutdown should be retained QoS 1, got %+v", c.published[0])
	}
	if !c.disconnected {
		t.Error("expected Disconnect on Close")
	}
}
