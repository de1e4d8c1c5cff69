package debuglink

import (
	"bytes"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"testing"
)

// fakePort records writes.
type fakePort struct {
	mu     sync.Mutex
	buf    bytes.Buffer
	closed bool
	err    error
}

func (p *fakePort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return 0, p.err
	}
	return p.buf.Write(b)
}

func (p *fakePort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (p *fakePort) String() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.buf.String()
}

func TestLinkFlushesOnClose(t *testing.T) {
	port := &fakePort{}
	l := New(port)

	for i := 0; i < 10; i++ {
		fmt.Fprintf(l, "line %d\n", i)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := port.String()
	if strings.Count(out, "\n") != 10 {
		t.Errorf("expected 10 lines, got %q", out)
	}
	if !strings.HasPrefix(out, "line 0\n") {
		t.Errorf("expected lines in order, got %q", out)
	}
	if !port.closed {
		t.Error("expected port closed")
	}
}

func TestLinkDropsWhenFull(t *testing.T) {
	port := &fakePort{}
	l := newLink(port, 1)

	l.Write([]byte("a"))
	l.Write([]byte("b"))
	n, err := l.Write([]byte("cc"))
	if n != 2 || err != nil {
		t.Errorf("a dropped write still reports success, got %d, %v", n, err)
	}
	if l.Dropped() != 2 {
		t.Errorf("expected 2 dropped, got %d", l.Dropped())
	}

	go l.run()
	l.Close()
	if got := port.String(); got != "a" {
		t.Errorf("expected only the queued line, got %q", got)
	}
}

func TestLinkCopiesInput(t *testing.T) {
	port := &fakePort{}
	l := newLink(port, 4)

	buf := []byte("first")
	l.Write(buf)
	copy(buf, "XXXXX")

	go l.run()
	l.Close()
	if got := port.String(); got != "first" {
		t.Errorf("expected queued copy, got %q", got)
	}
}

func TestLinkWriteAfterClose(t *testing.T) {
	l := New(&fakePort{})
	l.Close()

	if _, err := l.Write([]byte("late")); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if l.Dropped() != 1 {
		t.Errorf("expected late write counted as dropped, got %d", l.Dropped())
	}
	if err := l.Close(); err != nil {
		t.Errorf("second close: %v", err)
	}
}

func TestLinkCountsPortErrors(t *testing.T) {
	port := &fakePort{err: errors.New("bt disconnected")}
	l := New(port)
	l.Write([]byte("x"))
	l.Close()

	if l.WriteErrors() != 1 {
		t.Errorf("expected 1 write error, got %d", l.WriteErrors())
	}
}

func TestLinkAsLogOutput(t *testing.T) {
	port := &fakePort{}
	l := New(port)
	logger := log.New(l, "", 0)

	logger.Printf("state: %s -> %s", "WAIT", "FOLLOW_LINE")
	l.Close()

	if got := port.String(); got != "state: WAIT -> FOLLOW_LINE\n" {
		t.Errorf("unexpected output %q", got)
	}
}
