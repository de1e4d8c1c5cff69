// Package debuglink mirrors log output to a serial port, typically an HC-05
// Bluetooth module. Writes never block the caller: when the port falls behind,
// lines are dropped and counted.
package debuglink

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"go.bug.st/serial"
)

// DefaultBaud is the HC-05 factory baud rate.
const DefaultBaud = 9600

const queueDepth = 64

// Link is a fire-and-forget serial sink. It implements io.Writer so it can be
// handed to log.SetOutput via io.MultiWriter.
type Link struct {
	port  io.WriteCloser
	lines chan []byte
	done  chan struct{}

	mu     sync.Mutex
	closed bool

	dropped   atomic.Int64
	writeErrs atomic.Int64
}

// Open opens the serial device at the given baud rate.
func Open(device string, baud int) (*Link, error) {
	port, err := serial.Open(device, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, fmt.Errorf("open debug serial %s: %w", device, err)
	}
	return New(port), nil
}

// New starts a link writing to port.
func New(port io.WriteCloser) *Link {
	l := newLink(port, queueDepth)
	go l.run()
	return l
}

func newLink(port io.WriteCloser, depth int) *Link {
	return &Link{
		port:  port,
		lines: make(chan []byte, depth),
		done:  make(chan struct{}),
	}
}

func (l *Link) run() {
	defer close(l.done)
	for b := range l.lines {
		// Errors cannot be logged here: the log may be writing to us.
		if _, err := l.port.Write(b); err != nil {
			l.writeErrs.Add(1)
		}
	}
}

// Write queues a copy of p. It always reports success.
func (l *Link) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		l.dropped.Add(1)
		return len(p), nil
	}

	b := make([]byte, len(p))
	copy(b, p)
	select {
	case l.lines <- b:
	default:
		l.dropped.Add(1)
	}
	return len(p), nil
}

// Dropped returns how many writes were discarded.
func (l *Link) Dropped() int64 {
	return l.dropped.Load()
}

// WriteErrors returns how many port writes failed.
func (l *Link) WriteErrors() int64 {
	return l.writeErrs.Load()
}

// Close flushes queued lines and closes the port.
func (l *Link) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	close(l.lines)
	l.mu.Unlock()

	<-l.done
	return l.port.Close()
}
