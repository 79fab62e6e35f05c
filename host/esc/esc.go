// Package esc is the host-side client for the controller debug link. It
// frames commands onto a serial port, parses the response stream on a
// background reader, and exposes typed request helpers to the console and
// telemetry layers.
package esc

import (
	"errors"
	"sync"
	"time"

	"github.com/golang/glog"

	"goesc/host/serial"
	"goesc/protocol"
)

// ErrTimeout is returned when the controller does not answer in time.
var ErrTimeout = errors.New("esc: timeout waiting for response")

// ErrClosed is returned from requests after Close.
var ErrClosed = errors.New("esc: client closed")

// Client talks to one controller. Request helpers are safe for concurrent
// use; responses are matched by message ID, so keep one request of a given
// kind in flight at a time.
type Client struct {
	port serial.Port

	txMu  sync.Mutex
	tx    *protocol.Framer
	txOut *protocol.ScratchOutput

	pongCh    chan struct{}
	versionCh chan string
	statusCh  chan protocol.Status
	statsCh   chan protocol.Stats
	powerCh   chan protocol.Power

	eventMu sync.Mutex
	events  []protocol.Event

	listenerMu sync.Mutex
	onStatus   func(protocol.Status)

	done       chan struct{}
	closeOnce  sync.Once
	readerDone chan struct{}
	pollers    sync.WaitGroup
}

// Connect opens the device and starts the response reader.
func Connect(device string) (*Client, error) {
	port, err := serial.Open(serial.DefaultConfig(device))
	if err != nil {
		return nil, err
	}
	return ConnectPort(port), nil
}

// ConnectPort wraps an already-open port. The client takes ownership and
// closes it on Close.
func ConnectPort(port serial.Port) *Client {
	c := &Client{
		port:       port,
		txOut:      protocol.NewScratchOutput(),
		pongCh:     make(chan struct{}, 1),
		versionCh:  make(chan string, 1),
		statusCh:   make(chan protocol.Status, 1),
		statsCh:    make(chan protocol.Stats, 1),
		powerCh:    make(chan protocol.Power, 1),
		done:       make(chan struct{}),
		readerDone: make(chan struct{}),
	}
	c.tx = protocol.NewFramer(c.txOut, nil)

	go c.readLoop()
	return c
}

// SetStatusListener registers a callback invoked on every status response,
// including ones produced by the telemetry poller.
func (c *Client) SetStatusListener(fn func(protocol.Status)) {
	c.listenerMu.Lock()
	c.onStatus = fn
	c.listenerMu.Unlock()
}

// Close stops the reader and poller and closes the port.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		err = c.port.Close()
		<-c.readerDone
		c.pollers.Wait()
	})
	return err
}

func (c *Client) readLoop() {
	defer close(c.readerDone)

	// rx is promiscuous: it consumes responses and acks regardless of the
	// command sequence the tx framer is tracking.
	rx := protocol.NewFramer(protocol.NewScratchOutput(), c.handleResponse)
	rx.Promiscuous = true

	fifo := protocol.NewFifo(1024)
	buf := make([]byte, 256)

	for {
		n, err := c.port.Read(buf)
		if n > 0 {
			fifo.Write(buf[:n])
			rx.Receive(fifo)
		}
		if err != nil {
			select {
			case <-c.done:
			default:
				glog.Warningf("esc: read loop stopped: %v", err)
			}
			return
		}
		select {
		case <-c.done:
			return
		default:
		}
	}
}

func (c *Client) handleResponse(msgID uint8, args *[]byte) error {
	switch msgID {
	case protocol.RspPong:
		deliver(c.pongCh, struct{}{})

	case protocol.RspVersion:
		v, err := protocol.DecodeVLQString(args)
		if err != nil {
			return err
		}
		deliver(c.versionCh, v)

	case protocol.RspStatus:
		st, err := protocol.DecodeStatus(args)
		if err != nil {
			return err
		}
		deliver(c.statusCh, st)
		c.listenerMu.Lock()
		fn := c.onStatus
		c.listenerMu.Unlock()
		if fn != nil {
			fn(st)
		}

	case protocol.RspStats:
		st, err := protocol.DecodeStats(args)
		if err != nil {
			return err
		}
		deliver(c.statsCh, st)

	case protocol.RspPower:
		p, err := protocol.DecodePower(args)
		if err != nil {
			return err
		}
		deliver(c.powerCh, p)

	case protocol.RspEvent:
		evt, err := protocol.DecodeEvent(args)
		if err != nil {
			return err
		}
		c.eventMu.Lock()
		c.events = append(c.events, evt)
		c.eventMu.Unlock()

	case protocol.RspLog:
		msg, err := protocol.DecodeVLQString(args)
		if err != nil {
			return err
		}
		glog.Infof("controller: %s", msg)

	default:
		glog.V(1).Infof("esc: unhandled response id %d", msgID)
		// Skip the rest of the frame; a later firmware may append messages
		// this client does not know.
		*args = (*args)[len(*args):]
	}
	return nil
}

// send frames one command and pushes it out the port.
func (c *Client) send(msgID uint8, args func(protocol.OutputBuffer)) error {
	select {
	case <-c.done:
		return ErrClosed
	default:
	}

	c.txMu.Lock()
	defer c.txMu.Unlock()

	c.txOut.Reset()
	c.tx.Send(msgID, args)
	c.tx.AdvanceSeq()
	_, err := c.port.Write(c.txOut.Result())
	return err
}

// Ping checks link liveness.
func (c *Client) Ping(timeout time.Duration) error {
	drain(c.pongCh)
	if err := c.send(protocol.CmdPing, nil); err != nil {
		return err
	}
	select {
	case <-c.pongCh:
		return nil
	case <-time.After(timeout):
		return ErrTimeout
	}
}

// Version fetches the firmware version string.
func (c *Client) Version(timeout time.Duration) (string, error) {
	drain(c.versionCh)
	if err := c.send(protocol.CmdVersion, nil); err != nil {
		return "", err
	}
	select {
	case v := <-c.versionCh:
		return v, nil
	case <-time.After(timeout):
		return "", ErrTimeout
	}
}

// SetSpeed commands a signed speed in RPM. Fire and forget; the firmware
// acks at the framing layer.
func (c *Client) SetSpeed(rpm int32) error {
	return c.send(protocol.CmdSetSpeed, func(out protocol.OutputBuffer) {
		protocol.EncodeVLQInt(out, rpm)
	})
}

// Stop cuts power and floats the motor.
func (c *Client) Stop() error {
	return c.send(protocol.CmdStop, nil)
}

// SetSlope sets the regulator slew rate in RPM per control tick.
func (c *Client) SetSlope(rpmPerTick uint32) error {
	return c.send(protocol.CmdSetSlope, func(out protocol.OutputBuffer) {
		protocol.EncodeVLQUint(out, rpmPerTick)
	})
}

// Status fetches a controller snapshot.
func (c *Client) Status(timeout time.Duration) (protocol.Status, error) {
	drain(c.statusCh)
	if err := c.send(protocol.CmdStatus, nil); err != nil {
		return protocol.Status{}, err
	}
	select {
	case st := <-c.statusCh:
		return st, nil
	case <-time.After(timeout):
		return protocol.Status{}, ErrTimeout
	}
}

// Stats fetches loop runtime metrics.
func (c *Client) Stats(timeout time.Duration) (protocol.Stats, error) {
	drain(c.statsCh)
	if err := c.send(protocol.CmdStats, nil); err != nil {
		return protocol.Stats{}, err
	}
	select {
	case st := <-c.statsCh:
		return st, nil
	case <-time.After(timeout):
		return protocol.Stats{}, ErrTimeout
	}
}

// Power fetches the supervision readings. An all-zero response means the
// board has no power monitor.
func (c *Client) Power(timeout time.Duration) (protocol.Power, error) {
	drain(c.powerCh)
	if err := c.send(protocol.CmdPower, nil); err != nil {
		return protocol.Power{}, err
	}
	select {
	case p := <-c.powerCh:
		return p, nil
	case <-time.After(timeout):
		return protocol.Power{}, ErrTimeout
	}
}

// Events requests the controller's event ring and returns whatever arrived
// within the settle window. The firmware streams one response per event with
// no terminator, so the window bounds the wait.
func (c *Client) Events(settle time.Duration) ([]protocol.Event, error) {
	c.eventMu.Lock()
	c.events = nil
	c.eventMu.Unlock()

	if err := c.send(protocol.CmdEvents, nil); err != nil {
		return nil, err
	}
	time.Sleep(settle)

	c.eventMu.Lock()
	events := c.events
	c.events = nil
	c.eventMu.Unlock()
	return events, nil
}

// DebugEnable toggles firmware debug prints.
func (c *Client) DebugEnable(enabled bool) error {
	return c.send(protocol.CmdDebugEnable, func(out protocol.OutputBuffer) {
		v := uint32(0)
		if enabled {
			v = 1
		}
		protocol.EncodeVLQUint(out, v)
	})
}

// ClearFault clears a latched fault and returns the controller to STOPPED.
func (c *Client) ClearFault() error {
	return c.send(protocol.CmdClearFault, nil)
}

// StartPolling requests a status snapshot every interval until Close. Each
// response reaches the status listener.
func (c *Client) StartPolling(interval time.Duration) {
	c.pollers.Add(1)
	go func() {
		defer c.pollers.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := c.send(protocol.CmdStatus, nil); err != nil {
					return
				}
			case <-c.done:
				return
			}
		}
	}()
}

func deliver[T any](ch chan T, v T) {
	select {
	case ch <- v:
	default:
	}
}

func drain[T any](ch chan T) {
	select {
	case <-ch:
	default:
	}
}
