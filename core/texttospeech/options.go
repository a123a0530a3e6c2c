package texttospeech

import "github.com/kingbootoshi/Stream-Buddy/core/audio"

type TextToSpeechOptions struct {
	// SpeechAudioCallback is called when the TTS client produces audio
	SpeechAudioCallback func(audio []byte)
	// SpeechMarkCallback is called when the TTS client has produced speech up
	// to a marked point in the text. Each mark is reported once.
	SpeechMarkCallback func(string)
	// SpeechEndedCallback is called when the TTS client has finished
	// producing all required speech
	SpeechEndedCallback func(SpeechEndedReport)
	// ErrorCallback is called when the TTS client encounters an error, this
	// usually means the TTS client has been cancelled
	ErrorCallback func(error)

	EncodingInfo audio.EncodingInfo
}

type TextToSpeechOption func(*TextToSpeechOptions)

func WithSpeechAudioCallback(callback func([]byte)) TextToSpeechOption {
	return func(o *TextToSpeechOptions) { o.SpeechAudioCallback = callback }
}

func WithSpeechMarkCallback(callback func(string)) TextToSpeechOption {
	return func(o *TextToSpeechOptions) { o.SpeechMarkCallback = callback }
}

func WithSpeechEndedCallback(callback func(SpeechEndedReport)) TextToSpeechOption {
	return func(o *TextToSpeechOptions) { o.SpeechEndedCallback = callback }
}

func WithErrorCallback(callback func(error)) TextToSpeechOption {
	return func(o *TextToSpeechOptions) { o.ErrorCallback = callback }
}

func WithEncodingInfo(encodingInfo audio.EncodingInfo) TextToSpeechOption {
	return func(o *TextToSpeechOptions) {
		if encodingInfo.IsZero() {
			return
		}
		o.EncodingInfo = encodingInfo
	}
}

type SpeechGenerator interface {
	// SendText sends text to the generator. Speech is guaranteed to be
	// generated in the order text is sent.
	//
	// SendText will error if EndOfText, Cancel or Close has been called.
	SendText(string) error
	// Mark marks the current point in the text. The mark is reported after
	// the text sent up to it has been generated, though not necessarily at
	// the exact point it was placed.
	//
	// Mark will error if EndOfText, Cancel or Close has been called.
	Mark() error
	// EndOfText signals that no more text will be sent. The generator closes
	// itself once all remaining speech has been generated.
	//
	// EndOfText will error if Cancel or Close has been called.
	// Repeated calls are ignored.
	EndOfText() error
	// Cancel immediately stops further speech generation and closes the
	// generator.
	//
	// Cancel will error if Close has been called. Repeated calls are ignored.
	Cancel() error
	// Close immediately closes the generator. No more speech is produced
	// after this call. Repeated calls are ignored.
	Close() error
}

type SpeechEndedReport struct{}
