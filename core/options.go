package orchestration

import (
	"context"

	"github.com/kingbootoshi/Stream-Buddy/core/audio"
	"github.com/kingbootoshi/Stream-Buddy/core/broadcast"
	"github.com/kingbootoshi/Stream-Buddy/core/speechtotext"
	"github.com/kingbootoshi/Stream-Buddy/internal/metrics"
)

type OrchestratorOption func(*Orchestrator)

type SpeechToText interface {
	Transcribe(ctx context.Context, opts ...speechtotext.TranscriptionOption) error
	SendAudio(audio []byte) error
	StopStream() error
}

func WithSpeechToTextClient(client SpeechToText) OrchestratorOption {
	return func(o *Orchestrator) {
		o.speechToText.set(client)
	}
}

type AudioInput interface {
	StartCapture(ctx context.Context, onAudio func(audio []byte)) error
	StopCapture() error
	Close()
	EncodingInfo() audio.EncodingInfo
}

func WithAudioInput(client AudioInput) OrchestratorOption {
	return func(o *Orchestrator) { o.audioInput = client }
}

func WithResponder(responder Responder) OrchestratorOption {
	return func(o *Orchestrator) { o.responder = responder }
}

// WithBroadcastBus binds the session state to an overlay event bus.
func WithBroadcastBus(bus *broadcast.Bus) OrchestratorOption {
	return func(o *Orchestrator) {
		o.bus = bus
		bus.BindState(o.state)
	}
}

// WithStreamerName sets the attribution name used for transcribed voice
// turns.
func WithStreamerName(name string) OrchestratorOption {
	return func(o *Orchestrator) {
		if name != "" {
			o.streamerName = name
		}
	}
}

func WithMetrics(m *metrics.Metrics) OrchestratorOption {
	return func(o *Orchestrator) { o.metrics = m }
}

func WithArbiterOptions(opts ...ArbiterOption) OrchestratorOption {
	return func(o *Orchestrator) { o.arbiterOptions = append(o.arbiterOptions, opts...) }
}

func WithVoiceAdapterOptions(opts ...SourceAdapterOption) OrchestratorOption {
	return func(o *Orchestrator) { o.voiceAdapterOptions = append(o.voiceAdapterOptions, opts...) }
}

func WithChatAdapterOptions(opts ...SourceAdapterOption) OrchestratorOption {
	return func(o *Orchestrator) { o.chatAdapterOptions = append(o.chatAdapterOptions, opts...) }
}

// WithSessionTools gives the responder's model control over the avatar
// state. Only effective with a PipelineResponder.
func WithSessionTools() OrchestratorOption {
	return func(o *Orchestrator) { o.enableSessionTools = true }
}
