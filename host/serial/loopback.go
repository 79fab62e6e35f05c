package serial

import (
	"io"
	"sync"
)

// loopbackPort is one end of an in-memory duplex pair.
type loopbackPort struct {
	in  chan []byte
	out chan []byte

	mu  sync.Mutex
	rem []byte // unread tail of the last chunk

	closed    chan struct{}
	closeOnce *sync.Once // shared, both ends close the same channel
}

// Pipe returns two connected in-memory ports. Bytes written to one end are
// read from the other. Used to run a simulated controller behind the host
// client in tests.
func Pipe() (Port, Port) {
	a := make(chan []byte, 64)
	b := make(chan []byte, 64)
	closed := make(chan struct{})
	once := &sync.Once{}
	left := &loopbackPort{in: a, out: b, closed: closed, closeOnce: once}
	right := &loopbackPort{in: b, out: a, closed: closed, closeOnce: once}
	return left, right
}

func (p *loopbackPort) Read(buf []byte) (int, error) {
	p.mu.Lock()
	if len(p.rem) > 0 {
		n := copy(buf, p.rem)
		p.rem = p.rem[n:]
		p.mu.Unlock()
		return n, nil
	}
	p.mu.Unlock()

	select {
	case chunk := <-p.in:
		n := copy(buf, chunk)
		if n < len(chunk) {
			p.mu.Lock()
			p.rem = chunk[n:]
			p.mu.Unlock()
		}
		return n, nil
	case <-p.closed:
		// Drain what arrived before the close.
		select {
		case chunk := <-p.in:
			n := copy(buf, chunk)
			if n < len(chunk) {
				p.mu.Lock()
				p.rem = chunk[n:]
				p.mu.Unlock()
			}
			return n, nil
		default:
			return 0, io.EOF
		}
	}
}

func (p *loopbackPort) Write(buf []byte) (int, error) {
	chunk := make([]byte, len(buf))
	copy(chunk, buf)

	select {
	case p.out <- chunk:
		return len(buf), nil
	case <-p.closed:
		return 0, io.ErrClosedPipe
	}
}

func (p *loopbackPort) Close() error {
	p.closeOnce.Do(func() { close(p.closed) })
	return nil
}

func (p *loopbackPort) Flush() error { return nil }
