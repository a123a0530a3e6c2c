package orchestration

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/kingbootoshi/Stream-Buddy/core/signals"
	"github.com/kingbootoshi/Stream-Buddy/core/speechtotext"
	"github.com/kingbootoshi/Stream-Buddy/core/turns"
)

type recordingResponder struct {
	received chan turns.PendingTurn
}

func (r *recordingResponder) Respond(_ context.Context, turn turns.PendingTurn) error {
	r.received <- turn
	return nil
}

type stubSpeechToText struct {
	mu     sync.Mutex
	audio  [][]byte
	closed bool
}

func (s *stubSpeechToText) Transcribe(_ context.Context, _ ...speechtotext.TranscriptionOption) error {
	return nil
}

func (s *stubSpeechToText) SendAudio(audio []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audio = append(s.audio, audio)
	return nil
}

func (s *stubSpeechToText) StopStream() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *stubSpeechToText) frames() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.audio)
}

func TestOrchestratorDeliversTurnsToResponder(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	responder := &recordingResponder{received: make(chan turns.PendingTurn, 8)}
	orchestrator := NewOrchestrator(
		WithResponder(responder),
		WithStreamerName("Bootoshi"),
	)
	if err := orchestrator.Orchestrate(ctx); err != nil {
		t.Fatalf("failed to orchestrate: %v", err)
	}
	defer orchestrator.Close()

	orchestrator.IngestVoice("hello stream")
	turn := collectTurn(t, responder.received)
	if turn.Display != "[Bootoshi] says hello stream" {
		t.Fatalf("unexpected voice display: %q", turn.Display)
	}

	orchestrator.IngestChat("questboo_fan", "hi buddy")
	turn = collectTurn(t, responder.received)
	if turn.Display != "Twitch Chat User [questboo_fan] says [hi buddy]" {
		t.Fatalf("unexpected chat display: %q", turn.Display)
	}
}

func TestOrchestratorSerializesMixedSources(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	responder := &recordingResponder{received: make(chan turns.PendingTurn, 8)}
	orchestrator := NewOrchestrator(WithResponder(responder))
	if err := orchestrator.Orchestrate(ctx); err != nil {
		t.Fatalf("failed to orchestrate: %v", err)
	}
	defer orchestrator.Close()

	for i := 0; i < 3; i++ {
		orchestrator.IngestChat("viewer", "message")
		orchestrator.IngestVoice("utterance")
	}

	for i := 0; i < 6; i++ {
		collectTurn(t, responder.received)
	}
	if orchestrator.arbiter.Busy() {
		deadline := time.Now().Add(time.Second)
		for orchestrator.arbiter.Busy() {
			if time.Now().After(deadline) {
				t.Fatalf("arbiter still busy after all turns were consumed")
			}
			time.Sleep(5 * time.Millisecond)
		}
	}
}

func TestOrchestratorGatesAudioBeforeTranscription(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stt := &stubSpeechToText{}
	orchestrator := NewOrchestrator(WithSpeechToTextClient(stt))
	if err := orchestrator.Orchestrate(ctx); err != nil {
		t.Fatalf("failed to orchestrate: %v", err)
	}
	defer orchestrator.Close()

	orchestrator.HandleSignal(signals.NewAudioFrame([]byte{1, 2}))
	if stt.frames() != 0 {
		t.Fatalf("expected no frames forwarded while not listening")
	}

	orchestrator.State().SetListening(true)
	orchestrator.HandleSignal(signals.NewAudioFrame([]byte{3, 4}))
	if stt.frames() != 1 {
		t.Fatalf("expected one frame forwarded while listening, got %d", stt.frames())
	}

	orchestrator.State().SetSpeaking(true)
	orchestrator.HandleSignal(signals.NewAudioFrame([]byte{5, 6}))
	if stt.frames() != 1 {
		t.Fatalf("expected frame dropped while speaking, got %d", stt.frames())
	}
}

func TestOrchestratorStopsTranscriptionOnLifecycleSignal(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stt := &stubSpeechToText{}
	orchestrator := NewOrchestrator(WithSpeechToTextClient(stt))
	if err := orchestrator.Orchestrate(ctx); err != nil {
		t.Fatalf("failed to orchestrate: %v", err)
	}
	defer orchestrator.Close()

	// Lifecycle signals pass even though the session is fully muted.
	orchestrator.HandleSignal(signals.NewStreamStopped())

	stt.mu.Lock()
	closed := stt.closed
	stt.mu.Unlock()
	if !closed {
		t.Fatalf("expected stream-stopped signal to stop the transcription stream")
	}
}
