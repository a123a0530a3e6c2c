// Package portaudio is a fallback audio backend for platforms where the
// miniaudio backend misbehaves.
package portaudio

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"log"

	"github.com/gordonklaus/portaudio"

	"github.com/kingbootoshi/Stream-Buddy/core/audio"
)

type Client struct {
	bufferSize    int
	stream        *portaudio.Stream
	leftoverAudio []byte

	in  []int16
	out []int16
}

func NewClient(bufferSize int) (*Client, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize portaudio: %w", err)
	}

	in := make([]int16, bufferSize)
	out := make([]int16, bufferSize)
	stream, err := portaudio.OpenDefaultStream(1, 1, audio.DefaultSampleRate, bufferSize, in, out)
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("failed to open portaudio stream: %w", err)
	}

	return &Client{
		bufferSize: bufferSize,
		stream:     stream,
		in:         in,
		out:        out,
	}, nil
}

// StartCapture reads microphone frames until the context is cancelled. It
// blocks, so run it on its own goroutine.
func (c *Client) StartCapture(ctx context.Context, onAudio func(audio []byte)) error {
	if err := c.stream.Start(); err != nil {
		return fmt.Errorf("failed to start portaudio stream: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
			if err := c.stream.Read(); err != nil {
				log.Printf("Failed to read from portaudio stream: %v", err)
			}

			audioBuffer := bytes.Buffer{}
			binary.Write(&audioBuffer, binary.LittleEndian, c.in)
			onAudio(audioBuffer.Bytes())
		}
	}
}

// StopCapture stops the stream; a blocked StartCapture loop exits on its
// context instead.
func (c *Client) StopCapture() error {
	if err := c.stream.Stop(); err != nil {
		return fmt.Errorf("failed to stop portaudio stream: %w", err)
	}
	return nil
}

func (c *Client) Close() {
	c.stream.Close()
	portaudio.Terminate()
}

func (c *Client) SendAudio(audio []byte) error {
	bufferSize := c.bufferSize * 2

	audio = append(c.leftoverAudio, audio...)
	for i := range len(audio)/bufferSize + 1 {
		if (i+1)*bufferSize > len(audio) {
			c.leftoverAudio = make([]byte, len(audio)-i*bufferSize)
			copy(c.leftoverAudio, audio[i*bufferSize:])
			break
		}

		binary.Read(bytes.NewBuffer(audio[i*bufferSize:(i+1)*bufferSize]), binary.LittleEndian, c.out)
		c.stream.Write()
	}

	return nil
}

func (c *Client) ClearBuffer() {
	c.leftoverAudio = make([]byte, 0)
}

// AwaitMark drains any leftover audio through the output stream.
func (c *Client) AwaitMark() error {
	bufferSize := c.bufferSize * 2

	audio := c.leftoverAudio
	for i := range len(audio)/bufferSize + 1 {
		if (i+1)*bufferSize > len(audio) {
			c.leftoverAudio = make([]byte, 0)
			break
		}

		binary.Read(bytes.NewBuffer(audio[i*bufferSize:(i+1)*bufferSize]), binary.LittleEndian, c.out)
		c.stream.Write()
	}
	return nil
}

func (c *Client) EncodingInfo() audio.EncodingInfo {
	return audio.GetDefaultEncodingInfo()
}
