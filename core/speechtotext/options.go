package speechtotext

import "github.com/kingbootoshi/Stream-Buddy/core/audio"

type TranscriptionOptions struct {
	// InterimTranscriptionCallback receives low-latency, possibly revised
	// transcripts while the speaker is still talking.
	InterimTranscriptionCallback func(transcript string)
	// TranscriptionCallback receives the full transcript of an utterance once
	// the speaker has finished.
	TranscriptionCallback func(transcript string)

	SpeechStartedCallback func()
	SpeechEndedCallback   func()

	EncodingInfo audio.EncodingInfo
}

type TranscriptionOption func(*TranscriptionOptions)

func WithTranscriptionCallback(callback func(transcript string)) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		o.TranscriptionCallback = callback
	}
}

func WithInterimTranscriptionCallback(callback func(transcript string)) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		o.InterimTranscriptionCallback = callback
	}
}

func WithSpeechStartedCallback(callback func()) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		o.SpeechStartedCallback = callback
	}
}

func WithSpeechEndedCallback(callback func()) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		o.SpeechEndedCallback = callback
	}
}

func WithEncodingInfo(encodingInfo audio.EncodingInfo) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		o.EncodingInfo = encodingInfo
	}
}
