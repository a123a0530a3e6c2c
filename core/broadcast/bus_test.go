package broadcast

import (
	"testing"
	"time"

	"github.com/kingbootoshi/Stream-Buddy/core/session"
)

func nextEnvelope(t *testing.T, channel <-chan Envelope) Envelope {
	t.Helper()
	select {
	case envelope := <-channel:
		return envelope
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for envelope")
		return Envelope{}
	}
}

func TestEnvelopeShape(t *testing.T) {
	envelope := NewEnvelope(TypeSetHat, map[string]any{"hat": "hat1"})

	if envelope.V != 1 {
		t.Fatalf("expected envelope version 1, got %d", envelope.V)
	}
	if envelope.Type != TypeSetHat {
		t.Fatalf("unexpected type %q", envelope.Type)
	}
	if envelope.ID == "" {
		t.Fatalf("expected a generated envelope id")
	}
	if envelope.TS == 0 {
		t.Fatalf("expected a timestamp")
	}
}

func TestBusFansOutToAllSubscribers(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	first, cancelFirst := bus.Subscribe()
	defer cancelFirst()
	second, cancelSecond := bus.Subscribe()
	defer cancelSecond()

	bus.Publish(TypeListenOn, nil)

	for _, channel := range []<-chan Envelope{first, second} {
		if envelope := nextEnvelope(t, channel); envelope.Type != TypeListenOn {
			t.Fatalf("unexpected type %q", envelope.Type)
		}
	}
}

func TestBusDropsForSlowSubscriberWithoutBlocking(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	slow, cancelSlow := bus.Subscribe()
	defer cancelSlow()
	healthy, cancelHealthy := bus.Subscribe()
	defer cancelHealthy()

	for i := 0; i < defaultSubscriberBuffer+10; i++ {
		bus.Publish(TypeStopTalking, nil)
	}

	if len(slow) != defaultSubscriberBuffer {
		t.Fatalf("expected slow subscriber capped at %d buffered events, got %d",
			defaultSubscriberBuffer, len(slow))
	}
	// The healthy subscriber is equally full, but publishing never blocked.
	if envelope := nextEnvelope(t, healthy); envelope.Type != TypeStopTalking {
		t.Fatalf("unexpected type %q", envelope.Type)
	}
}

func TestBusCancelClosesChannel(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	channel, cancel := bus.Subscribe()
	cancel()

	if _, open := <-channel; open {
		t.Fatalf("expected channel closed after cancel")
	}
	if count := bus.SubscriberCount(); count != 0 {
		t.Fatalf("expected no subscribers after cancel, got %d", count)
	}
}

func TestBindStateTranslatesSessionEvents(t *testing.T) {
	bus := NewBus()
	defer bus.Close()
	state := session.NewState()
	bus.BindState(state)

	channel, cancel := bus.Subscribe()
	defer cancel()

	state.SetListening(true)
	if envelope := nextEnvelope(t, channel); envelope.Type != TypeListenOn {
		t.Fatalf("got %q, want %q", envelope.Type, TypeListenOn)
	}

	state.SetMood("happy")
	state.SetSpeaking(true)
	envelope := nextEnvelope(t, channel)
	if envelope.Type != TypeStartTalking {
		t.Fatalf("got %q, want %q", envelope.Type, TypeStartTalking)
	}
	data, ok := envelope.Data.(map[string]any)
	if !ok || data["mood"] != "happy" {
		t.Fatalf("expected start_talking to carry the current mood, got %#v", envelope.Data)
	}

	state.SetSpeaking(false)
	if envelope := nextEnvelope(t, channel); envelope.Type != TypeStopTalking {
		t.Fatalf("got %q, want %q", envelope.Type, TypeStopTalking)
	}

	state.SetHat("hat2")
	envelope = nextEnvelope(t, channel)
	if envelope.Type != TypeSetHat {
		t.Fatalf("got %q, want %q", envelope.Type, TypeSetHat)
	}

	state.SetForcedState("walk")
	if envelope := nextEnvelope(t, channel); envelope.Type != TypeForceState {
		t.Fatalf("got %q, want %q", envelope.Type, TypeForceState)
	}
}
