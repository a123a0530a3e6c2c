package elevenlabs

import (
	"context"
	"fmt"
)

const (
	// Rachel, one of the stock ElevenLabs voices.
	DefaultVoiceID = "21m00Tcm4TlvDq8ikWAM"

	defaultModelID = "eleven_turbo_v2_5"
)

type TextToSpeechClient struct {
	voiceID string
	modelID string
}

func NewTextToSpeechClient(_ context.Context, voiceID string) (*TextToSpeechClient, error) {
	if voiceID == "" {
		return nil, fmt.Errorf("invalid voice")
	}

	return &TextToSpeechClient{voiceID: voiceID, modelID: defaultModelID}, nil
}

func (c *TextToSpeechClient) SetVoice(voiceID string) {
	if voiceID != "" {
		c.voiceID = voiceID
	}
}

func (c *TextToSpeechClient) Close(ctx context.Context) {}
