package signals

import "time"

// Kind identifies the closed set of raw signal variants that can enter the
// input pipeline.
type Kind string

const (
	KindAudioFrame      Kind = "audio_frame"
	KindSpeechStarted   Kind = "speech_started"
	KindSpeechEnded     Kind = "speech_ended"
	KindStreamStarted   Kind = "stream_started"
	KindStreamStopped   Kind = "stream_stopped"
	KindStreamCancelled Kind = "stream_cancelled"
)

// Signal is a raw, source-specific signal before it is shaped into a turn.
type Signal interface {
	Kind() Kind
	Timestamp() time.Time
	// Lifecycle reports whether the signal controls the stream itself rather
	// than carrying content. Lifecycle signals must never be gated or the
	// pipeline cannot shut down cleanly.
	Lifecycle() bool
}

type Base struct {
	kind      Kind
	timestamp time.Time
}

func NewBase(kind Kind) Base {
	return Base{kind: kind, timestamp: time.Now()}
}

func (b Base) Kind() Kind {
	return b.kind
}

func (b Base) Timestamp() time.Time {
	return b.timestamp
}

func (b Base) Lifecycle() bool {
	switch b.kind {
	case KindStreamStarted, KindStreamStopped, KindStreamCancelled:
		return true
	}
	return false
}

// AudioFrame is a content-bearing raw audio frame from the capture device.
type AudioFrame struct {
	Base
	Audio []byte
}

func NewAudioFrame(audio []byte) AudioFrame {
	return AudioFrame{Base: NewBase(KindAudioFrame), Audio: audio}
}

// SpeechStarted is a voice-activity marker; gated like content.
type SpeechStarted struct {
	Base
}

func NewSpeechStarted() SpeechStarted {
	return SpeechStarted{Base: NewBase(KindSpeechStarted)}
}

// SpeechEnded is a voice-activity marker; gated like content.
type SpeechEnded struct {
	Base
}

func NewSpeechEnded() SpeechEnded {
	return SpeechEnded{Base: NewBase(KindSpeechEnded)}
}

// StreamStarted marks the beginning of the signal stream.
type StreamStarted struct {
	Base
}

func NewStreamStarted() StreamStarted {
	return StreamStarted{Base: NewBase(KindStreamStarted)}
}

// StreamStopped marks orderly termination of the signal stream.
type StreamStopped struct {
	Base
}

func NewStreamStopped() StreamStopped {
	return StreamStopped{Base: NewBase(KindStreamStopped)}
}

// StreamCancelled marks abrupt termination of the signal stream.
type StreamCancelled struct {
	Base
}

func NewStreamCancelled() StreamCancelled {
	return StreamCancelled{Base: NewBase(KindStreamCancelled)}
}
