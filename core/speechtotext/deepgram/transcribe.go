package deepgram

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	api "github.com/deepgram/deepgram-go-sdk/pkg/api/listen/v1/websocket/interfaces"
	"github.com/gorilla/websocket"

	"github.com/kingbootoshi/Stream-Buddy/core/audio"
	"github.com/kingbootoshi/Stream-Buddy/core/speechtotext"
)

func (s *TranscriptionClient) Transcribe(ctx context.Context, opts ...speechtotext.TranscriptionOption) error {
	options := &speechtotext.TranscriptionOptions{EncodingInfo: audio.GetDefaultEncodingInfo()}
	for _, opt := range opts {
		opt(options)
	}

	encoding, err := convertEncoding(options.EncodingInfo)
	if err != nil {
		return fmt.Errorf("invalid encoding: %w", err)
	}

	conn, err := connectWebsocket(connectionOptions{
		sampleRate: encoding.SampleRate,
		encoding:   encoding.Format.Name(),

		detectSpeechStart: options.SpeechStartedCallback != nil,
		enhanceSpeechEndingDetection: options.TranscriptionCallback != nil ||
			options.SpeechEndedCallback != nil,
		interimResults: options.InterimTranscriptionCallback != nil,
	})
	if err != nil {
		return fmt.Errorf("failed to open websocket: %w", err)
	}

	s.conn = conn
	go s.readAndProcessMessages(ctx, conn, *options)

	return nil
}

type connectionOptions struct {
	sampleRate int
	encoding   string

	detectSpeechStart            bool
	enhanceSpeechEndingDetection bool
	interimResults               bool
}

func connectWebsocket(options connectionOptions) (*websocket.Conn, error) {
	apiKey, ok := os.LookupEnv("DEEPGRAM_API_KEY")
	if !ok {
		return nil, fmt.Errorf("deepgram api key not found")
	}

	listenUrl, _ := url.Parse("wss://api.deepgram.com/v1/listen")
	queryParams := listenUrl.Query()
	queryParams.Set("encoding", options.encoding)
	queryParams.Set("sample_rate", strconv.Itoa(options.sampleRate))
	queryParams.Set("channels", "1")
	queryParams.Set("model", "nova-3")
	queryParams.Set("language", "en-US")
	queryParams.Set("smart_format", "true")
	if options.enhanceSpeechEndingDetection {
		queryParams.Set("utterance_end_ms", "1000")
		queryParams.Set("interim_results", "true")
	} else if options.interimResults {
		queryParams.Set("interim_results", "true")
	}
	queryParams.Set("endpointing", "300")
	if options.detectSpeechStart || options.enhanceSpeechEndingDetection {
		queryParams.Set("vad_events", "true")
	}

	listenUrl.RawQuery = queryParams.Encode()
	conn, _, err := websocket.DefaultDialer.Dial(listenUrl.String(),
		http.Header{"Authorization": {"Token " + apiKey}})
	if err != nil {
		return nil, fmt.Errorf("failed to open socket connection to deepgram: %w", err)
	}

	return conn, err
}

func (s *TranscriptionClient) SendAudio(audio []byte) error {
	s.connMu.Lock()
	defer s.connMu.Unlock()

	if s.conn == nil {
		return fmt.Errorf("connection closed")
	}

	s.lastMsgTs = time.Now()
	if err := s.conn.WriteMessage(websocket.BinaryMessage, audio); err != nil {
		return fmt.Errorf("failed to write to deepgram client: %w", err)
	}
	return nil
}

func (s *TranscriptionClient) sendKeepAlive() {
	s.connMu.Lock()
	defer s.connMu.Unlock()

	if s.conn == nil {
		return
	}
	if err := s.conn.WriteJSON(
		struct {
			Type string `json:"type"`
		}{
			Type: "KeepAlive",
		}); err != nil {
		log.Println("Failed to write to deepgram client", "error", err)
	}
}

func (s *TranscriptionClient) StopStream() error {
	s.connMu.Lock()
	defer s.connMu.Unlock()

	if s.conn != nil {
		if err := s.conn.WriteJSON(struct {
			Type string `json:"type"`
		}{Type: string(api.TypeCloseStreamResponse)}); err != nil {
			return fmt.Errorf("failed to close deepgram stream through websocket: %w", err)
		}
	}
	return nil
}

func (s *TranscriptionClient) readAndProcessMessages(ctx context.Context, conn *websocket.Conn, options speechtotext.TranscriptionOptions) {
	keepAliveCtx, keepAliveCancel := context.WithCancel(ctx)
	defer keepAliveCancel()

	go s.keepConnectionAlive(keepAliveCtx)

	for {
		msgType, msg, err := conn.ReadMessage()
		if err != nil {
			if err.Error() != "websocket: close 1000 (normal)" {
				log.Println("Failed to read deepgram websocket message", "error", err)
			}

			s.connMu.Lock()
			s.conn = nil
			s.connMu.Unlock()
			conn.Close()
			return
		}
		if msgType != websocket.BinaryMessage {
			go s.processMessage(ctx, msg, options)
		}
	}
}

// keepConnectionAlive sends KeepAlive messages while the input gate is
// holding audio back, so deepgram does not drop the idle connection.
func (s *TranscriptionClient) keepConnectionAlive(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if time.Since(s.lastMsgTs).Seconds() >= 5 {
				s.lastMsgTs = time.Now()
				s.sendKeepAlive()
			}
		}
	}
}

func (s *TranscriptionClient) processMessage(_ context.Context, msg []byte, options speechtotext.TranscriptionOptions) {
	var parsedMsg struct {
		Type string `json:"type"`
	}
	err := json.Unmarshal(msg, &parsedMsg)
	if err != nil {
		log.Println("Failed to unmarshal deepgram message", "error", err)
		return
	}

	switch api.TypeResponse(parsedMsg.Type) {
	case api.TypeMessageResponse:
		var msgResp api.MessageResponse
		if err := json.Unmarshal(msg, &msgResp); err != nil {
			log.Println("Failed to unmarshal deepgram message", err)
			return
		}
		if msgResp.IsFinal {
			if len(msgResp.Channel.Alternatives) > 0 {
				transcript := strings.TrimSpace(msgResp.Channel.Alternatives[0].Transcript)
				if len(transcript) > 0 && options.TranscriptionCallback != nil {
					s.accumulatedTranscript += " " + transcript
				}
			}
			if msgResp.SpeechFinal {
				s.onSpeechEnded(options)
			}
		}
		if !msgResp.IsFinal && options.InterimTranscriptionCallback != nil {
			if len(msgResp.Channel.Alternatives) > 0 {
				transcript := strings.TrimSpace(msgResp.Channel.Alternatives[0].Transcript)
				if len(transcript) > 0 {
					options.InterimTranscriptionCallback(strings.TrimSpace(s.accumulatedTranscript + " " + transcript))
				}
			}
		}

	case api.TypeUtteranceEndResponse:
		var msgResp api.UtteranceEndResponse
		if err := json.Unmarshal(msg, &msgResp); err != nil {
			log.Println("Failed to unmarshal deepgram message", err)
			return
		}

		if s.unendedSegment {
			s.onSpeechEnded(options)
		}
	case api.TypeSpeechStartedResponse:
		var msgResp api.SpeechStartedResponse
		if err := json.Unmarshal(msg, &msgResp); err != nil {
			log.Println("Failed to unmarshal deepgram message", err)
			return
		}

		s.unendedSegment = true
		if options.SpeechStartedCallback != nil {
			options.SpeechStartedCallback()
		}
	}
}

func (s *TranscriptionClient) onSpeechEnded(options speechtotext.TranscriptionOptions) {
	s.unendedSegment = false
	if options.TranscriptionCallback != nil {
		fullTranscript := strings.TrimSpace(s.accumulatedTranscript)
		s.accumulatedTranscript = ""
		if len(fullTranscript) > 0 {
			options.TranscriptionCallback(fullTranscript)
		}
	}
	if options.SpeechEndedCallback != nil {
		options.SpeechEndedCallback()
	}
}
