// Package uart delivers serial bytes to components on the scheduler
// goroutine.
//
// A Pump owns the blocking reader and fills a bounded buffer from its own
// goroutine, the way a receive interrupt fills a FIFO. Components drain it
// from Loop without ever blocking.
package uart

import (
	"errors"
	"io"
	"sync"
)

// DefaultBufferSize is the receive buffer size used when none is given.
const DefaultBufferSize = 256

// ErrUnsupported is returned by OpenDevice where termios is unavailable.
var ErrUnsupported = errors.New("uart: not supported on this platform")

// Port is the receive side of a serial line.
type Port interface {
	// Available returns the number of buffered bytes.
	Available() int
	// Read copies buffered bytes into p without blocking. It returns the
	// reader's terminal error once the buffer is drained.
	Read(p []byte) (int, error)
}

// Pump reads from an io.Reader on its own goroutine.
type Pump struct {
	mu      sync.Mutex
	buf     []byte
	size    int
	err     error
	dropped uint64

	r    io.Reader
	done chan struct{}
}

// NewPump starts reading r. size bounds the buffer; when it is full the
// oldest bytes are dropped.
func NewPump(r io.Reader, size int) *Pump {
	if size <= 0 {
		size = DefaultBufferSize
	}
	p := &Pump{size: size, r: r, done: make(chan struct{})}
	go p.run()
	return p
}

func (p *Pump) run() {
	defer close(p.done)
	chunk := make([]byte, 64)
	for {
		n, err := p.r.Read(chunk)

		p.mu.Lock()
		if n > 0 {
			p.buf = append(p.buf, chunk[:n]...)
			if over := len(p.buf) - p.size; over > 0 {
				p.buf = p.buf[over:]
				p.dropped += uint64(over)
			}
		}
		if err != nil {
			p.err = err
		}
		p.mu.Unlock()

		if err != nil {
			return
		}
	}
}

// Available returns the number of buffered bytes.
func (p *Pump) Available() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.buf)
}

// Read copies buffered bytes into b.
func (p *Pump) Read(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.buf) == 0 {
		return 0, p.err
	}
	n := copy(b, p.buf)
	p.buf = p.buf[n:]
	return n, nil
}

// Dropped returns how many bytes were lost to overflow.
func (p *Pump) Dropped() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dropped
}

// Close closes the reader if it is an io.Closer and waits for the reading
// goroutine to stop.
func (p *Pump) Close() error {
	var err error
	if c, ok := p.r.(io.Closer); ok {
		err = c.Close()
	}
	<-p.done
	return err
}
