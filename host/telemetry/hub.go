// Package telemetry fans controller status samples out to live consumers:
// websocket clients and an optional MQTT broker.
package telemetry

import (
	"sync"
	"time"

	"goesc/core"
	"goesc/protocol"
)

// Sample is one controller snapshot stamped with host time. The JSON shape
// is the wire format for both websocket and MQTT consumers.
type Sample struct {
	Time        time.Time `json:"time"`
	Mode        string    `json:"mode"`
	Step        uint8     `json:"step"`
	Clockwise   bool      `json:"clockwise"`
	FaultCode   uint32    `json:"fault_code,omitempty"`
	Duty        float64   `json:"duty"`
	CommandRPM  int32     `json:"command_rpm"`
	TargetRPM   int32     `json:"target_rpm"`
	MeasuredRPM int32     `json:"measured_rpm"`
	PeriodUS    uint32    `json:"period_us"`
	BEMFValid   bool      `json:"bemf_valid"`

	ZeroCrossings uint32 `json:"zero_crossings"`
	Commutations  uint32 `json:"commutations"`
}

// FromStatus converts a link status response into a sample.
func FromStatus(st protocol.Status) Sample {
	return Sample{
		Time:        time.Now(),
		Mode:        core.MotorMode(st.Mode).String(),
		Step:        st.Step,
		Clockwise:   st.Clockwise,
		FaultCode:   st.FaultCode,
		Duty:        float64(st.DutyMilli) / 1000,
		CommandRPM:  st.CommandRPM,
		TargetRPM:   st.TargetRPM,
		MeasuredRPM: st.MeasuredRPM,
		PeriodUS:    st.PeriodUS,
		BEMFValid:   st.BEMFValid,

		ZeroCrossings: st.ZeroCrossings,
		Commutations:  st.Commutations,
	}
}

// Hub distributes samples to subscribers. Publishing never blocks; a
// subscriber that falls behind loses samples, not the publisher.
type Hub struct {
	mu     sync.Mutex
	subs   map[chan Sample]struct{}
	closed bool
}

func NewHub() *Hub {
	return &Hub{subs: make(map[chan Sample]struct{})}
}

// Publish delivers a sample to every subscriber with room in its buffer.
func (h *Hub) Publish(s Sample) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	for ch := range h.subs {
		select {
		case ch <- s:
		default:
		}
	}
}

// Subscribe registers a consumer. The cancel function removes the
// subscription and closes the channel; it is safe to call more than once.
func (h *Hub) Subscribe(buffer int) (<-chan Sample, func()) {
	ch := make(chan Sample, buffer)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			if _, ok := h.subs[ch]; ok {
				delete(h.subs, ch)
				close(ch)
			}
			h.mu.Unlock()
		})
	}
	return ch, cancel
}

// SubscriberCount returns the number of active subscriptions.
func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close terminates all subscriptions. Subsequent publishes are dropped.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for ch := range h.subs {
		close(ch)
		delete(h.subs, ch)
	}
}
