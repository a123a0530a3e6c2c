package miniaudio

import (
	"context"
	"fmt"

	"github.com/gen2brain/malgo"

	"github.com/kingbootoshi/Stream-Buddy/core/audio"
)

// Client owns the miniaudio context plus one capture and one playback
// device. Capture feeds the transcription pipeline, playback voices the
// synthesized replies.
type Client struct {
	audioContext *malgo.AllocatedContext
	playbackClient
	captureClient
}

func NewClient() (*Client, error) {
	audioCtx, err := malgo.InitContext(
		nil,
		malgo.ContextConfig{},
		func(message string) {},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize audio context: %w", err)
	}

	client := Client{audioContext: audioCtx}

	if err := client.playbackClient.Init(audioCtx); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to initialize playback client: %w", err)
	}

	if err := client.playbackClient.Start(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to start playback device: %w", err)
	}

	if err := client.captureClient.Init(audioCtx); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to initialize capture client: %w", err)
	}

	return &client, nil
}

func (c *Client) StartCapture(_ context.Context, onAudio func(audio []byte)) error {
	return c.captureClient.Start(onAudio)
}

func (c *Client) StopCapture() error {
	return c.captureClient.Stop()
}

func (c *Client) Close() {
	_ = c.captureClient.Uninit()
	_ = c.playbackClient.Uninit()
	_ = c.audioContext.Uninit()
	c.audioContext.Free()
}

func (c *Client) SendAudio(audio []byte) error {
	return c.playbackClient.SendAudio(audio)
}

func (c *Client) ClearBuffer() {
	c.playbackClient.ClearBuffer()
}

func (c *Client) AwaitMark() error {
	return c.playbackClient.AwaitMark()
}

func (c *Client) EncodingInfo() audio.EncodingInfo {
	return audio.GetDefaultEncodingInfo()
}
