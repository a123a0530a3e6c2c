package elevenlabs

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/kingbootoshi/Stream-Buddy/core/audio"
	"github.com/kingbootoshi/Stream-Buddy/core/texttospeech"
)

type streamingRequest struct {
	ws *websocket.Conn
	mu sync.Mutex

	segment      string
	pendingMarks []string
	marksMu      sync.Mutex

	options texttospeech.TextToSpeechOptions

	textComplete bool
	cancelled    bool
	closed       bool

	report texttospeech.SpeechEndedReport
}

func (c *TextToSpeechClient) NewSpeechGenerator(ctx context.Context, opts ...texttospeech.TextToSpeechOption) (texttospeech.SpeechGenerator, error) {
	req := &streamingRequest{
		options: texttospeech.TextToSpeechOptions{
			SpeechAudioCallback: func([]byte) {},
			SpeechMarkCallback:  func(string) {},
			SpeechEndedCallback: func(texttospeech.SpeechEndedReport) {},
			ErrorCallback:       func(error) {},
		},
	}

	for _, opt := range opts {
		opt(&req.options)
	}

	var err error
	if req.ws, err = connectWebsocket(c.voiceID, c.modelID, req.options.EncodingInfo); err != nil {
		return nil, fmt.Errorf("failed to open websocket: %w", err)
	}

	// Priming message so the server starts its generation context.
	if err := req.sendWebsocketMessage(textMessage{Text: " "}); err != nil {
		_ = req.ws.Close()
		return nil, fmt.Errorf("failed to prime speech stream: %w", err)
	}

	go req.processIncomingMessages(ctx)

	return req, nil
}

func connectWebsocket(voiceID, modelID string, encodingInfo audio.EncodingInfo) (*websocket.Conn, error) {
	apiKey, ok := os.LookupEnv("ELEVENLABS_API_KEY")
	if !ok {
		return nil, fmt.Errorf("elevenlabs api key not found")
	}

	urlValues := url.Values{}
	urlValues.Set("model_id", modelID)
	urlValues.Set("output_format", outputFormat(encodingInfo))

	conn, _, err := websocket.DefaultDialer.Dial(
		(&url.URL{
			Scheme: "wss",
			Host:   "api.elevenlabs.io",
			Path:   "/v1/text-to-speech/" + voiceID + "/stream-input",
			RawQuery: urlValues.Encode(),
		}).String(),
		http.Header{"xi-api-key": {apiKey}})
	if err != nil {
		return nil, fmt.Errorf("failed to open socket connection to elevenlabs: %w", err)
	}

	return conn, nil
}

func outputFormat(encodingInfo audio.EncodingInfo) string {
	if encodingInfo.IsZero() {
		encodingInfo = audio.GetDefaultEncodingInfo()
	}
	switch encodingInfo.Format {
	case audio.EncodingMulaw:
		return fmt.Sprintf("ulaw_%d", encodingInfo.SampleRate)
	default:
		return fmt.Sprintf("pcm_%d", encodingInfo.SampleRate)
	}
}

func (r *streamingRequest) processIncomingMessages(ctx context.Context) {
	for {
		_, msg, err := r.ws.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure) && !r.closed {
				log.Printf("Websocket read error: %v", err)
				r.options.ErrorCallback(err)
			}
			_ = r.Close()
			return
		}

		var parsedMsg struct {
			Audio   string `json:"audio"`
			IsFinal *bool  `json:"isFinal"`
		}
		if err := json.Unmarshal(msg, &parsedMsg); err != nil {
			continue
		}

		if parsedMsg.Audio != "" {
			chunk, err := base64.StdEncoding.DecodeString(parsedMsg.Audio)
			if err == nil && len(chunk) > 0 {
				r.options.SpeechAudioCallback(chunk)
			}
		}

		if parsedMsg.IsFinal != nil && *parsedMsg.IsFinal {
			// ElevenLabs does not acknowledge flushes individually, so marks
			// are reported once the whole stream has been generated.
			r.marksMu.Lock()
			marks := r.pendingMarks
			r.pendingMarks = nil
			r.marksMu.Unlock()
			for _, mark := range marks {
				r.options.SpeechMarkCallback(mark)
			}

			r.options.SpeechEndedCallback(r.report)
			_ = r.Close()
			return
		}
	}
}

func (r *streamingRequest) SendText(text string) error {
	if r.closed {
		return fmt.Errorf("streaming request closed")
	} else if r.cancelled {
		return fmt.Errorf("streaming request cancelled")
	} else if r.textComplete {
		return fmt.Errorf("streaming request text already completed")
	}

	r.marksMu.Lock()
	r.segment += text
	r.marksMu.Unlock()

	if err := r.sendWebsocketMessage(textMessage{Text: text}); err != nil {
		return fmt.Errorf("failed to send websocket send text message: %w", err)
	}
	return nil
}

func (r *streamingRequest) Mark() error {
	if r.closed {
		return fmt.Errorf("streaming request closed")
	} else if r.cancelled {
		return fmt.Errorf("streaming request cancelled")
	} else if r.textComplete {
		return fmt.Errorf("streaming request text already completed")
	}

	r.marksMu.Lock()
	r.pendingMarks = append(r.pendingMarks, r.segment)
	r.segment = ""
	r.marksMu.Unlock()

	if err := r.sendWebsocketMessage(flushMessage{Text: " ", Flush: true}); err != nil {
		return fmt.Errorf("failed to send websocket flush message: %w", err)
	}
	return nil
}

func (r *streamingRequest) EndOfText() error {
	if r.closed {
		return fmt.Errorf("streaming request closed")
	} else if r.cancelled {
		return fmt.Errorf("streaming request cancelled")
	} else if r.textComplete {
		return nil
	}

	r.marksMu.Lock()
	if r.segment != "" {
		r.pendingMarks = append(r.pendingMarks, r.segment)
		r.segment = ""
	}
	r.marksMu.Unlock()

	r.textComplete = true
	// An empty text message is the end-of-stream signal; the reader finishes
	// once the final audio arrives.
	if err := r.sendWebsocketMessage(textMessage{Text: ""}); err != nil {
		return fmt.Errorf("failed to send websocket end of text message: %w", err)
	}
	return nil
}

func (r *streamingRequest) Cancel() error {
	if r.closed {
		return fmt.Errorf("streaming request closed")
	} else if r.cancelled {
		return nil
	}

	r.cancelled = true
	return r.Close()
}

func (r *streamingRequest) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	if err := r.ws.Close(); err != nil {
		return fmt.Errorf("failed to close websocket: %w", err)
	}
	return nil
}

type textMessage struct {
	Text string `json:"text"`
}

type flushMessage struct {
	Text  string `json:"text"`
	Flush bool   `json:"flush"`
}

func (r *streamingRequest) sendWebsocketMessage(msg any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || r.ws == nil {
		return fmt.Errorf("websocket connection closed")
	}

	if err := r.ws.WriteJSON(msg); err != nil {
		return fmt.Errorf("failed to write to websocket: %w", err)
	}
	return nil
}
