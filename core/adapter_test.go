package orchestration

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kingbootoshi/Stream-Buddy/core/turns"
)

func collectTurn(t *testing.T, received chan turns.PendingTurn) turns.PendingTurn {
	t.Helper()
	select {
	case turn := <-received:
		return turn
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for adapter to emit a turn")
		return turns.PendingTurn{}
	}
}

func TestAdapterShapesVoiceAndChatTurns(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan turns.PendingTurn, 4)
	submit := func(turn turns.PendingTurn) { received <- turn }

	voice := NewSourceAdapter(turns.OriginVoice, submit, WithSpeakerName("Bootoshi"))
	voice.Start(ctx)
	defer voice.Stop()

	chat := NewSourceAdapter(turns.OriginChat, submit)
	chat.Start(ctx)
	defer chat.Stop()

	voice.Ingest("", "hello everyone")
	turn := collectTurn(t, received)
	if turn.Origin != turns.OriginVoice {
		t.Fatalf("expected voice origin, got %q", turn.Origin)
	}
	if turn.Display != "[Bootoshi] says hello everyone" {
		t.Fatalf("unexpected voice display: %q", turn.Display)
	}

	chat.Ingest("questboo_fan", "what game is this")
	turn = collectTurn(t, received)
	if turn.Origin != turns.OriginChat {
		t.Fatalf("expected chat origin, got %q", turn.Origin)
	}
	if turn.SpeakerID != "questboo_fan" {
		t.Fatalf("unexpected speaker id: %q", turn.SpeakerID)
	}
	if turn.Display != "Twitch Chat User [questboo_fan] says [what game is this]" {
		t.Fatalf("unexpected chat display: %q", turn.Display)
	}
}

func TestAdapterPreservesOrderUnderBackpressure(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var ready atomic.Bool
	received := make(chan turns.PendingTurn, 8)

	adapter := NewSourceAdapter(turns.OriginChat,
		func(turn turns.PendingTurn) { received <- turn },
		WithBackpressure(ready.Load),
	)
	adapter.backpressureDelay = 5 * time.Millisecond
	adapter.Start(ctx)
	defer adapter.Stop()

	adapter.Ingest("a", "first")
	adapter.Ingest("b", "second")
	adapter.Ingest("c", "third")

	select {
	case turn := <-received:
		t.Fatalf("expected no emission while downstream not ready, got %q", turn.Display)
	case <-time.After(50 * time.Millisecond):
	}

	ready.Store(true)

	for i, want := range []string{"first", "second", "third"} {
		turn := collectTurn(t, received)
		if turn.Content != want {
			t.Fatalf("emission %d out of order: got %q, want %q", i, turn.Content, want)
		}
	}
}

func TestAdapterCooldownDelaysWithoutDropping(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cooldown := 40 * time.Millisecond
	received := make(chan turns.PendingTurn, 8)

	adapter := NewSourceAdapter(turns.OriginChat,
		func(turn turns.PendingTurn) { received <- turn },
		WithCooldown(cooldown),
	)
	adapter.Start(ctx)
	defer adapter.Stop()

	start := time.Now()
	adapter.Ingest("a", "one")
	adapter.Ingest("a", "two")
	adapter.Ingest("a", "three")

	for _, want := range []string{"one", "two", "three"} {
		turn := collectTurn(t, received)
		if turn.Content != want {
			t.Fatalf("got %q, want %q", turn.Content, want)
		}
	}

	if elapsed := time.Since(start); elapsed < 2*cooldown {
		t.Fatalf("three emissions finished in %v, cooldown %v was not applied", elapsed, cooldown)
	}
}

func TestAdapterRejectsBlankPayloads(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan turns.PendingTurn, 4)
	adapter := NewSourceAdapter(turns.OriginChat, func(turn turns.PendingTurn) { received <- turn })
	adapter.Start(ctx)
	defer adapter.Stop()

	adapter.Ingest("viewer", "")
	adapter.Ingest("viewer", "   ")
	adapter.Ingest("", "no speaker attached")
	adapter.Ingest("viewer", "kept")

	turn := collectTurn(t, received)
	if turn.Content != "kept" {
		t.Fatalf("expected only the valid payload to survive, got %q", turn.Content)
	}
	select {
	case turn := <-received:
		t.Fatalf("unexpected extra emission %q", turn.Display)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestAdapterDiscardsBufferedItemsOnStop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan turns.PendingTurn, 8)
	adapter := NewSourceAdapter(turns.OriginChat,
		func(turn turns.PendingTurn) { received <- turn },
		WithBackpressure(func() bool { return false }),
	)
	adapter.backpressureDelay = 5 * time.Millisecond
	adapter.Start(ctx)

	adapter.Ingest("a", "held forever")
	adapter.Ingest("b", "still queued")
	time.Sleep(20 * time.Millisecond)

	adapter.Stop()
	adapter.AwaitCompletion()

	select {
	case turn := <-received:
		t.Fatalf("expected no emission after stop, got %q", turn.Display)
	default:
	}
}
