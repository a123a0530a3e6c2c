// Package orchestration merges concurrent input sources, voice and chat,
// into a single strictly serialized stream of turns for one response
// pipeline.
//
// Raw signals pass the input gate, source adapters shape them into
// canonical turns, and the turn arbiter decides which turn the responder
// handles next. Session state ties the pieces together: the gate reads it,
// the arbiter publishes to it, and the overlay broadcast mirrors it.
package orchestration

import (
	"context"
	"sync"

	"github.com/kingbootoshi/Stream-Buddy/core/audio"
	"github.com/kingbootoshi/Stream-Buddy/core/broadcast"
	"github.com/kingbootoshi/Stream-Buddy/core/session"
	"github.com/kingbootoshi/Stream-Buddy/core/signals"
	"github.com/kingbootoshi/Stream-Buddy/core/turns"
	"github.com/kingbootoshi/Stream-Buddy/internal/metrics"
)

const defaultStreamerName = "Bootoshi"

// maxPendingChat is the chat queue depth above which the chat adapter
// holds further messages back.
const maxPendingChat = 8

type Orchestrator struct {
	state   *session.State
	gate    *InputGate
	arbiter *TurnArbiter

	voiceAdapter *SourceAdapter
	chatAdapter  *SourceAdapter

	responder    Responder
	speechToText speechToText
	audioInput   AudioInput
	bus          *broadcast.Bus
	metrics      *metrics.Metrics

	streamerName        string
	arbiterOptions      []ArbiterOption
	voiceAdapterOptions []SourceAdapterOption
	chatAdapterOptions  []SourceAdapterOption
	enableSessionTools  bool

	baseContext context.Context
	closeOnce   sync.Once
}

func NewOrchestrator(opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		state:        session.NewState(),
		streamerName: defaultStreamerName,
		baseContext:  context.Background(),
	}
	o.gate = NewInputGate(o.state)

	for _, opt := range opts {
		opt(o)
	}

	o.arbiter = NewTurnArbiter(o.state, o.consumeTurn, o.arbiterOptions...)

	voiceOptions := append([]SourceAdapterOption{
		WithSpeakerName(o.streamerName),
	}, o.voiceAdapterOptions...)
	o.voiceAdapter = NewSourceAdapter(turns.OriginVoice, o.arbiter.Admit, voiceOptions...)

	chatOptions := append([]SourceAdapterOption{
		WithBackpressure(func() bool {
			_, chat := o.arbiter.QueueDepths()
			return chat < maxPendingChat
		}),
	}, o.chatAdapterOptions...)
	o.chatAdapter = NewSourceAdapter(turns.OriginChat, o.arbiter.Admit, chatOptions...)

	if o.enableSessionTools {
		if responder, ok := o.responder.(*PipelineResponder); ok {
			responder.tools = append(responder.tools, sessionTools(o.state)...)
		}
	}

	if o.metrics != nil {
		o.gate.setMetrics(o.metrics)
		o.arbiter.setMetrics(o.metrics)
		o.voiceAdapter.setMetrics(o.metrics)
		o.chatAdapter.setMetrics(o.metrics)
	}

	return o
}

// State exposes the shared session state for control surfaces.
func (o *Orchestrator) State() *session.State {
	return o.state
}

// QueueDepths reports the number of pending voice and chat turns.
func (o *Orchestrator) QueueDepths() (voice, chat int) {
	return o.arbiter.QueueDepths()
}

// Orchestrate starts the adapters, the transcription stream and audio
// capture. ctx cancellation shuts the orchestrator down.
//
// Call Orchestrate at most once per orchestrator instance.
func (o *Orchestrator) Orchestrate(ctx context.Context) error {
	o.baseContext = ctx

	o.voiceAdapter.Start(ctx)
	o.chatAdapter.Start(ctx)

	var encodingInfo *audio.EncodingInfo
	if o.audioInput != nil {
		info := o.audioInput.EncodingInfo()
		encodingInfo = &info
	}
	if err := o.speechToText.start(ctx, speechToTextCallbacks{
		onSpeechStarted: func() { o.HandleSignal(signals.NewSpeechStarted()) },
		onSpeechEnded:   func() { o.HandleSignal(signals.NewSpeechEnded()) },
		onTranscription: func(transcript string) { o.voiceAdapter.Ingest("", transcript) },
	}, encodingInfo); err != nil {
		return err
	}

	if o.audioInput != nil {
		go func() {
			if err := o.audioInput.StartCapture(ctx, func(frame []byte) {
				o.HandleSignal(signals.NewAudioFrame(frame))
			}); err != nil {
				logger.Warn("audio capture failed", "error", err)
			}
		}()
	}

	go func() {
		<-ctx.Done()
		o.Close()
	}()

	return nil
}

// HandleSignal routes a raw signal through the input gate. Content signals
// that pass feed the transcription stream; lifecycle signals control it.
func (o *Orchestrator) HandleSignal(signal signals.Signal) {
	if !o.gate.Allow(signal) {
		return
	}

	switch sig := signal.(type) {
	case signals.AudioFrame:
		if err := o.speechToText.SendAudio(sig.Audio); err != nil {
			logger.Warn("failed to forward audio frame", "error", err)
		}
	case signals.StreamStopped, signals.StreamCancelled:
		if err := o.speechToText.StopStream(); err != nil {
			logger.Warn("failed to stop transcription stream", "error", err)
		}
	}
}

// IngestChat feeds a chat message into the chat lane.
func (o *Orchestrator) IngestChat(user, text string) {
	o.chatAdapter.Ingest(user, text)
}

// IngestVoice feeds an already-transcribed utterance into the voice lane,
// bypassing capture and STT. Used by tests and text-input frontends.
func (o *Orchestrator) IngestVoice(transcript string) {
	o.voiceAdapter.Ingest("", transcript)
}

// consumeTurn runs the responder for a released turn. The speaking flag
// frames the response so the gate mutes capture and, on the falling edge,
// the arbiter moves on.
func (o *Orchestrator) consumeTurn(turn turns.PendingTurn) {
	ctx, span := tracer.Start(o.baseContext, "consume turn")
	defer span.End()

	o.state.SetSpeaking(true)
	defer o.state.SetSpeaking(false)

	if o.responder == nil {
		return
	}
	if err := o.responder.Respond(ctx, turn); err != nil {
		logger.Warn("responder failed",
			"origin", string(turn.Origin),
			"error", err,
		)
		span.RecordError(err)
	}
}

func (o *Orchestrator) Close() {
	o.closeOnce.Do(func() {
		o.voiceAdapter.Stop()
		o.chatAdapter.Stop()
		o.arbiter.Close()

		if o.audioInput != nil {
			if err := o.audioInput.StopCapture(); err != nil {
				logger.Warn("failed to stop audio capture", "error", err)
			}
			o.audioInput.Close()
		}
		if err := o.speechToText.Close(o.baseContext); err != nil {
			logger.Warn("failed to close speech-to-text client", "error", err)
		}
	})
}
