package orchestration

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/kingbootoshi/Stream-Buddy/core/turns"
	"github.com/kingbootoshi/Stream-Buddy/internal/metrics"
)

const (
	defaultAdapterBufferCapacity = 64
	defaultBackpressureDelay     = 100 * time.Millisecond
)

// SourceAdapter converts raw source payloads into canonical pending turns
// and hands them to the turn arbiter.
//
// Ingest is non-blocking; a background drain loop shapes the buffered items:
// it holds an item back while the shouldEmit predicate says the downstream
// is not ready (soft backpressure, order preserving), applies a
// minimum-interval cooldown between emissions, then submits the canonical
// turn. On shutdown, buffered-but-undrained items are discarded and logged
// with their count.
type SourceAdapter struct {
	origin      turns.Origin
	speakerName string

	buffer     chan adapterItem
	submit     func(turns.PendingTurn)
	shouldEmit func() bool

	cooldown          time.Duration
	backpressureDelay time.Duration
	lastEmit          time.Time

	metrics *metrics.Metrics

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

type adapterItem struct {
	speakerID string
	text      string
}

type SourceAdapterOption func(*SourceAdapter)

// WithCooldown sets the minimum interval between successive emissions from
// this adapter. Items are delayed, never dropped, to honor it.
func WithCooldown(cooldown time.Duration) SourceAdapterOption {
	return func(a *SourceAdapter) { a.cooldown = cooldown }
}

// WithBackpressure installs the soft-backpressure predicate; while it
// returns false the drain loop holds the current item and retries after a
// short fixed delay.
func WithBackpressure(shouldEmit func() bool) SourceAdapterOption {
	return func(a *SourceAdapter) { a.shouldEmit = shouldEmit }
}

// WithSpeakerName sets the attribution name used for non-attributed (voice)
// turns.
func WithSpeakerName(name string) SourceAdapterOption {
	return func(a *SourceAdapter) { a.speakerName = name }
}

func WithBufferCapacity(capacity int) SourceAdapterOption {
	return func(a *SourceAdapter) {
		if capacity > 0 {
			a.buffer = make(chan adapterItem, capacity)
		}
	}
}

func NewSourceAdapter(origin turns.Origin, submit func(turns.PendingTurn), opts ...SourceAdapterOption) *SourceAdapter {
	adapter := &SourceAdapter{
		origin:            origin,
		speakerName:       "Streamer",
		buffer:            make(chan adapterItem, defaultAdapterBufferCapacity),
		submit:            submit,
		backpressureDelay: defaultBackpressureDelay,
		stop:              make(chan struct{}),
		done:              make(chan struct{}),
	}
	for _, opt := range opts {
		opt(adapter)
	}
	return adapter
}

func (a *SourceAdapter) setMetrics(m *metrics.Metrics) {
	if a != nil {
		a.metrics = m
	}
}

// Ingest buffers a raw payload and returns immediately. Empty payloads are
// rejected at the boundary as a best-effort no-op; a full buffer discards
// the payload with an explicit log line.
func (a *SourceAdapter) Ingest(speakerID, text string) {
	speakerID = strings.TrimSpace(speakerID)
	text = strings.TrimSpace(text)
	if text == "" {
		logger.Debug("adapter rejected empty payload", "origin", string(a.origin))
		return
	}
	if a.origin == turns.OriginChat && speakerID == "" {
		logger.Debug("adapter rejected chat payload without speaker", "origin", string(a.origin))
		return
	}

	select {
	case a.buffer <- adapterItem{speakerID: speakerID, text: text}:
		if a.metrics != nil {
			a.metrics.ItemsIngested.WithLabelValues(string(a.origin)).Inc()
		}
	default:
		logger.Warn("adapter buffer full, discarding payload",
			"origin", string(a.origin),
			"speaker", speakerID,
		)
		if a.metrics != nil {
			a.metrics.ItemsDiscarded.WithLabelValues(string(a.origin)).Inc()
		}
	}
}

// Start launches the background drain loop. It terminates when ctx is
// cancelled or Stop is called.
func (a *SourceAdapter) Start(ctx context.Context) {
	go func() {
		defer close(a.done)
		if err := panicSafeNamedWorker(string(a.origin)+" adapter drain", a.drainLoop)(ctx); err != nil {
			logger.Warn("adapter drain loop failed", "origin", string(a.origin), "error", err)
		}
	}()
}

// Stop terminates the drain loop. Remaining buffered items are discarded
// and logged, not flushed; the stream that fed them is already gone.
func (a *SourceAdapter) Stop() {
	a.stopOnce.Do(func() { close(a.stop) })
}

// AwaitCompletion blocks until the drain loop has terminated.
func (a *SourceAdapter) AwaitCompletion() {
	<-a.done
}

func (a *SourceAdapter) drainLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			a.discardRemaining(0)
			return nil
		case <-a.stop:
			a.discardRemaining(0)
			return nil
		case item := <-a.buffer:
			if !a.emit(ctx, item) {
				a.discardRemaining(1)
				return nil
			}
		}
	}
}

// emit applies backpressure and cooldown, then submits the canonical turn.
// It returns false when the adapter stopped while the item was still held;
// the item then counts as discarded.
func (a *SourceAdapter) emit(ctx context.Context, item adapterItem) bool {
	for a.shouldEmit != nil && !a.shouldEmit() {
		if !a.sleep(ctx, a.backpressureDelay) {
			return false
		}
	}

	if a.cooldown > 0 {
		if wait := a.cooldown - time.Since(a.lastEmit); wait > 0 {
			if !a.sleep(ctx, wait) {
				return false
			}
		}
	}

	turn := a.shape(item)
	logger.Info("adapter emitting turn",
		"origin", string(a.origin),
		"display", turn.Display,
	)
	a.submit(turn)
	a.lastEmit = time.Now()
	return true
}

func (a *SourceAdapter) shape(item adapterItem) turns.PendingTurn {
	switch a.origin {
	case turns.OriginVoice:
		return turns.NewVoiceTurn(a.speakerName, item.text)
	case turns.OriginChat:
		return turns.NewChatTurn(item.speakerID, item.text)
	}

	turn := turns.NewChatTurn(item.speakerID, item.text)
	turn.Origin = turns.OriginUnknown
	return turn
}

// sleep waits for the duration unless the adapter is stopped first.
func (a *SourceAdapter) sleep(ctx context.Context, duration time.Duration) bool {
	timer := time.NewTimer(duration)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-a.stop:
		return false
	case <-timer.C:
		return true
	}
}

func (a *SourceAdapter) discardRemaining(held int) {
	discarded := held + len(a.buffer)
	for len(a.buffer) > 0 {
		<-a.buffer
	}

	if discarded == 0 {
		return
	}

	logger.Warn("adapter stopped with undrained items, discarding",
		"origin", string(a.origin),
		"count", discarded,
	)
	if a.metrics != nil {
		a.metrics.ItemsDiscarded.WithLabelValues(string(a.origin)).Add(float64(discarded))
	}
}
