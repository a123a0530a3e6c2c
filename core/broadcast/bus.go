// Package broadcast fans session events out to overlay clients.
//
// Events travel as versioned envelopes so overlay consumers can evolve
// independently of the producer. Delivery is best effort: a subscriber that
// stops draining its channel loses events rather than stalling the rest.
package broadcast

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kingbootoshi/Stream-Buddy/core/session"
)

// Overlay event types emitted by the state binding.
const (
	TypeHello        = "hello"
	TypeListenOn     = "listen_on"
	TypeListenOff    = "listen_off"
	TypeStartTalking = "start_talking"
	TypeStopTalking  = "stop_talking"
	TypeSetHat       = "set_hat"
	TypeForceState   = "force_state"
)

const defaultSubscriberBuffer = 32

// Envelope is the wire format for overlay events.
type Envelope struct {
	V    int    `json:"v"`
	Type string `json:"type"`
	Data any    `json:"data"`
	TS   int64  `json:"ts"`
	ID   string `json:"id"`
}

func NewEnvelope(eventType string, data any) Envelope {
	return Envelope{
		V:    1,
		Type: eventType,
		Data: data,
		TS:   time.Now().UnixMilli(),
		ID:   uuid.NewString(),
	}
}

// Bus is a fan-out publisher of overlay envelopes.
type Bus struct {
	mu          sync.Mutex
	subscribers map[uint64]chan Envelope
	nextID      uint64
	closed      bool
}

func NewBus() *Bus {
	return &Bus{subscribers: map[uint64]chan Envelope{}}
}

// Subscribe registers a new consumer. The returned cancel function must be
// called when the consumer goes away; it closes the channel.
func (b *Bus) Subscribe() (<-chan Envelope, func()) {
	channel := make(chan Envelope, defaultSubscriberBuffer)

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		close(channel)
		return channel, func() {}
	}

	id := b.nextID
	b.nextID++
	b.subscribers[id] = channel

	return channel, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if subscriber, ok := b.subscribers[id]; ok {
			delete(b.subscribers, id)
			close(subscriber)
		}
	}
}

// Publish wraps the payload in an envelope and delivers it to every
// subscriber. A subscriber with a full buffer is skipped and the drop
// logged.
func (b *Bus) Publish(eventType string, data any) {
	envelope := NewEnvelope(eventType, data)

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	for id, subscriber := range b.subscribers {
		select {
		case subscriber <- envelope:
		default:
			logger.Warn("dropping overlay event for slow subscriber",
				"subscriber", id,
				"type", eventType,
			)
		}
	}
}

// SubscriberCount reports the number of live subscribers.
func (b *Bus) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subscribers)
}

// Close shuts the bus down and closes every subscriber channel.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for id, subscriber := range b.subscribers {
		delete(b.subscribers, id)
		close(subscriber)
	}
}

// BindState registers a session listener that translates state transitions
// into the overlay event vocabulary. Mood changes are not broadcast on
// their own; the current mood rides along on the next start_talking.
func (b *Bus) BindState(state *session.State) {
	state.AddListener(func(event string, value any) {
		switch event {
		case session.EventListeningChanged:
			if listening, ok := value.(bool); ok {
				if listening {
					b.Publish(TypeListenOn, nil)
				} else {
					b.Publish(TypeListenOff, nil)
				}
			}
		case session.EventSpeakingChanged:
			if speaking, ok := value.(bool); ok {
				if speaking {
					b.Publish(TypeStartTalking, map[string]any{"mood": state.Mood()})
				} else {
					b.Publish(TypeStopTalking, nil)
				}
			}
		case session.EventHatChanged:
			b.Publish(TypeSetHat, map[string]any{"hat": value})
		case session.EventForcedStateChanged:
			b.Publish(TypeForceState, map[string]any{"state": value})
		}
	})
}
