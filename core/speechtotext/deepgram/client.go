package deepgram

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

type TranscriptionClient struct {
	conn   *websocket.Conn
	connMu sync.Mutex

	lastMsgTs time.Time

	accumulatedTranscript string
	unendedSegment        bool
}

func NewTranscriptionClient() *TranscriptionClient {
	return &TranscriptionClient{lastMsgTs: time.Now()}
}
