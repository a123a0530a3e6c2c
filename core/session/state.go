// Package session holds the process-wide mutable session state and its
// change-notification mechanism.
//
// All mutation goes through the setters so the notification invariant holds:
// a setter mutates only on an actual value change and, on change,
// synchronously invokes every registered listener. A listener panicking is
// logged and does not prevent the remaining listeners from running.
package session

import (
	"sync"

	"github.com/kingbootoshi/Stream-Buddy/core/turns"
)

// Event names passed to listeners on each field transition.
const (
	EventListeningChanged   = "listening_changed"
	EventSpeakingChanged    = "speaking_changed"
	EventMoodChanged        = "mood_changed"
	EventHatChanged         = "hat_changed"
	EventForcedStateChanged = "forced_state_changed"
	EventCurrentTurnChanged = "current_turn_changed"
)

// Listener receives state change notifications as (event, newValue) pairs.
type Listener func(event string, value any)

// TurnInfo is the released-turn metadata published for downstream
// attribution, e.g. routing a reply back to the right chat user.
type TurnInfo struct {
	Origin    turns.Origin
	SpeakerID string
}

// State is the container for mutable shared session state.
//
// Create one per session with NewState and share the pointer; never mutate
// fields directly.
type State struct {
	mu sync.Mutex

	listening   bool
	speaking    bool
	mood        string
	hat         string
	forcedState string
	currentTurn *TurnInfo

	listeners []Listener
}

func NewState() *State {
	return &State{mood: "neutral"}
}

// AddListener registers a listener for state change notifications.
// Listeners are invoked in registration order.
func (s *State) AddListener(listener Listener) {
	if listener == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, listener)
}

func (s *State) Listening() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listening
}

func (s *State) Speaking() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.speaking
}

func (s *State) Mood() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mood
}

func (s *State) Hat() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hat
}

func (s *State) ForcedState() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.forcedState
}

// CurrentTurn returns a copy of the released-turn metadata, or nil when no
// turn is in flight.
func (s *State) CurrentTurn() *TurnInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.currentTurn == nil {
		return nil
	}
	turn := *s.currentTurn
	return &turn
}

func (s *State) SetListening(value bool) {
	s.mu.Lock()
	if s.listening == value {
		s.mu.Unlock()
		return
	}
	s.listening = value
	listeners := s.listenersSnapshot()
	s.mu.Unlock()

	logger.Info("listening changed", "listening", value)
	notify(listeners, EventListeningChanged, value)
}

// SetSpeaking flips the consumer-busy flag. The false transition is the sole
// signal the turn arbiter uses to release the next turn.
func (s *State) SetSpeaking(value bool) {
	s.mu.Lock()
	if s.speaking == value {
		s.mu.Unlock()
		return
	}
	s.speaking = value
	listeners := s.listenersSnapshot()
	s.mu.Unlock()

	logger.Info("speaking changed", "speaking", value)
	notify(listeners, EventSpeakingChanged, value)
}

func (s *State) SetMood(mood string) {
	s.mu.Lock()
	if s.mood == mood {
		s.mu.Unlock()
		return
	}
	s.mood = mood
	listeners := s.listenersSnapshot()
	s.mu.Unlock()

	logger.Debug("mood changed", "mood", mood)
	notify(listeners, EventMoodChanged, mood)
}

func (s *State) SetHat(hat string) {
	s.mu.Lock()
	if s.hat == hat {
		s.mu.Unlock()
		return
	}
	s.hat = hat
	listeners := s.listenersSnapshot()
	s.mu.Unlock()

	logger.Debug("hat changed", "hat", hat)
	notify(listeners, EventHatChanged, hat)
}

func (s *State) SetForcedState(state string) {
	s.mu.Lock()
	if s.forcedState == state {
		s.mu.Unlock()
		return
	}
	s.forcedState = state
	listeners := s.listenersSnapshot()
	s.mu.Unlock()

	logger.Debug("forced state changed", "state", state)
	notify(listeners, EventForcedStateChanged, state)
}

// SetCurrentTurn publishes the metadata of the turn being released.
func (s *State) SetCurrentTurn(origin turns.Origin, speakerID string) {
	turn := TurnInfo{Origin: origin, SpeakerID: speakerID}

	s.mu.Lock()
	if s.currentTurn != nil && *s.currentTurn == turn {
		s.mu.Unlock()
		return
	}
	s.currentTurn = &turn
	listeners := s.listenersSnapshot()
	s.mu.Unlock()

	notify(listeners, EventCurrentTurnChanged, &turn)
}

// ClearCurrentTurn removes the released-turn metadata once the turn is over.
func (s *State) ClearCurrentTurn() {
	s.mu.Lock()
	if s.currentTurn == nil {
		s.mu.Unlock()
		return
	}
	s.currentTurn = nil
	listeners := s.listenersSnapshot()
	s.mu.Unlock()

	notify(listeners, EventCurrentTurnChanged, (*TurnInfo)(nil))
}

// Snapshot returns a point-in-time view of the overlay-relevant fields, keyed
// the way the overlay protocol expects them.
func (s *State) Snapshot() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return map[string]any{
		"listening":   s.listening,
		"talking":     s.speaking,
		"mood":        s.mood,
		"hat":         s.hat,
		"forcedState": s.forcedState,
	}
}

func (s *State) listenersSnapshot() []Listener {
	listeners := make([]Listener, len(s.listeners))
	copy(listeners, s.listeners)
	return listeners
}

func notify(listeners []Listener, event string, value any) {
	for _, listener := range listeners {
		invoke(listener, event, value)
	}
}

// invoke isolates a single listener call so one failing listener cannot
// corrupt state or starve the rest.
func invoke(listener Listener, event string, value any) {
	defer func() {
		if recovered := recover(); recovered != nil {
			logger.Warn("state listener panicked", "event", event, "panic", recovered)
		}
	}()
	listener(event, value)
}
