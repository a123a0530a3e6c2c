package orchestration

import (
	"sync"
	"time"

	"github.com/kingbootoshi/Stream-Buddy/core/session"
	"github.com/kingbootoshi/Stream-Buddy/core/turns"
	"github.com/kingbootoshi/Stream-Buddy/internal/metrics"
)

const (
	defaultFairnessThreshold = 1
	defaultTurnTimeout       = 60 * time.Second
)

// TurnArbiter serializes admitted turns into a single consumer stream.
//
// At most one turn is active at a time. Voice turns outrank chat turns,
// except that once fairnessThreshold voice turns have been released in a
// row a waiting chat turn goes first. The active turn finishes when the
// consumer stops speaking, or when the watchdog expires because no finish
// ever arrived.
type TurnArbiter struct {
	mu sync.Mutex

	voiceQueue []turns.PendingTurn
	chatQueue  []turns.PendingTurn

	active      *turns.PendingTurn
	activeEpoch uint64
	activeSince time.Time
	sawSpeech   bool
	watchdog    *time.Timer

	voicesSinceChat   int
	fairnessThreshold int
	timeout           time.Duration

	state   *session.State
	consume func(turns.PendingTurn)
	metrics *metrics.Metrics

	closed bool
}

type ArbiterOption func(*TurnArbiter)

// WithFairnessThreshold sets how many consecutive voice turns may be
// released before a waiting chat turn takes priority.
func WithFairnessThreshold(threshold int) ArbiterOption {
	return func(a *TurnArbiter) {
		if threshold > 0 {
			a.fairnessThreshold = threshold
		}
	}
}

// WithTurnTimeout sets the watchdog interval after which an active turn
// that never finished is force-completed.
func WithTurnTimeout(timeout time.Duration) ArbiterOption {
	return func(a *TurnArbiter) {
		if timeout > 0 {
			a.timeout = timeout
		}
	}
}

// NewTurnArbiter wires the arbiter to the session state and the consumer
// callback. The consumer is invoked on a fresh goroutine, never under the
// arbiter lock, once per released turn.
func NewTurnArbiter(state *session.State, consume func(turns.PendingTurn), opts ...ArbiterOption) *TurnArbiter {
	arbiter := &TurnArbiter{
		fairnessThreshold: defaultFairnessThreshold,
		timeout:           defaultTurnTimeout,
		state:             state,
		consume:           consume,
	}
	for _, opt := range opts {
		opt(arbiter)
	}
	state.AddListener(arbiter.onSessionEvent)
	return arbiter
}

func (a *TurnArbiter) setMetrics(m *metrics.Metrics) {
	if a != nil {
		a.metrics = m
	}
}

// Admit queues a turn and releases it immediately if the consumer is idle.
// Turns with empty content are rejected as a logged no-op.
func (a *TurnArbiter) Admit(turn turns.PendingTurn) {
	if turn.Content == "" {
		logger.Warn("arbiter rejected turn with empty content", "origin", string(turn.Origin))
		if a.metrics != nil {
			a.metrics.TurnsRejected.Inc()
		}
		return
	}

	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	switch turn.Origin {
	case turns.OriginVoice:
		a.voiceQueue = append(a.voiceQueue, turn)
	default:
		// Unattributed turns compete as chat so they can never starve it.
		a.chatQueue = append(a.chatQueue, turn)
	}
	a.recordDepthsLocked()
	a.mu.Unlock()

	if a.metrics != nil {
		a.metrics.TurnsAdmitted.WithLabelValues(string(turn.Origin)).Inc()
	}
	logger.Debug("arbiter admitted turn", "origin", string(turn.Origin), "display", turn.Display)

	a.maybeRelease()
}

// Busy reports whether a turn is currently being consumed.
func (a *TurnArbiter) Busy() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.active != nil
}

// QueueDepths returns the number of turns waiting in each queue.
func (a *TurnArbiter) QueueDepths() (voice, chat int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.voiceQueue), len(a.chatQueue)
}

// Close stops the watchdog and refuses further admissions. Queued turns
// stay queued; they are simply never released.
func (a *TurnArbiter) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true
	if a.watchdog != nil {
		a.watchdog.Stop()
		a.watchdog = nil
	}
}

func (a *TurnArbiter) onSessionEvent(event string, value any) {
	if event != session.EventSpeakingChanged {
		return
	}
	speaking, ok := value.(bool)
	if !ok {
		return
	}
	if speaking {
		a.mu.Lock()
		if a.active != nil {
			a.sawSpeech = true
		}
		a.mu.Unlock()
		return
	}
	a.completeActive()
}

// maybeRelease picks the next turn while the consumer is idle and hands it
// off. Selection happens under the lock; the current-turn publication and
// the consumer call happen outside it so listeners can re-enter the
// arbiter without deadlocking.
func (a *TurnArbiter) maybeRelease() {
	a.mu.Lock()
	if a.closed || a.active != nil {
		a.mu.Unlock()
		return
	}

	turn, ok := a.selectNextLocked()
	if !ok {
		a.mu.Unlock()
		return
	}

	a.active = &turn
	a.activeEpoch++
	a.activeSince = time.Now()
	a.sawSpeech = false
	if turn.Origin == turns.OriginVoice {
		a.voicesSinceChat++
	} else {
		a.voicesSinceChat = 0
	}

	epoch := a.activeEpoch
	a.watchdog = time.AfterFunc(a.timeout, func() { a.expire(epoch) })
	a.recordDepthsLocked()
	a.mu.Unlock()

	if a.metrics != nil {
		a.metrics.TurnsReleased.WithLabelValues(string(turn.Origin)).Inc()
	}
	logger.Info("arbiter released turn",
		"origin", string(turn.Origin),
		"display", turn.Display,
		"queued_for", time.Since(turn.QueuedAt).String(),
	)

	a.state.SetCurrentTurn(turn.Origin, turn.SpeakerID)

	go a.consume(turn)
}

func (a *TurnArbiter) selectNextLocked() (turns.PendingTurn, bool) {
	var queue *[]turns.PendingTurn
	switch {
	case len(a.chatQueue) > 0 && a.voicesSinceChat >= a.fairnessThreshold:
		queue = &a.chatQueue
	case len(a.voiceQueue) > 0:
		queue = &a.voiceQueue
	case len(a.chatQueue) > 0:
		queue = &a.chatQueue
	default:
		return turns.PendingTurn{}, false
	}

	turn := (*queue)[0]
	*queue = (*queue)[1:]
	return turn, true
}

// completeActive finishes the active turn on a speaking-ended notification.
// A notification that arrives before the active turn ever started speaking
// belongs to a previous, watchdog-expired turn and is ignored.
func (a *TurnArbiter) completeActive() {
	a.mu.Lock()
	if a.active == nil || !a.sawSpeech {
		a.mu.Unlock()
		return
	}
	origin, elapsed := a.finishLocked()
	a.mu.Unlock()

	logger.Info("arbiter finished turn", "origin", origin, "elapsed", elapsed.String())
	a.state.ClearCurrentTurn()
	a.maybeRelease()
}

// expire is the watchdog path. The epoch guard makes a stale timer from an
// already-finished turn a no-op.
func (a *TurnArbiter) expire(epoch uint64) {
	a.mu.Lock()
	if a.active == nil || a.activeEpoch != epoch {
		a.mu.Unlock()
		return
	}
	origin, elapsed := a.finishLocked()
	a.mu.Unlock()

	logger.Warn("arbiter watchdog expired, force-finishing turn",
		"origin", origin,
		"elapsed", elapsed.String(),
	)
	if a.metrics != nil {
		a.metrics.WatchdogExpirations.Inc()
	}
	a.state.ClearCurrentTurn()
	a.maybeRelease()
}

func (a *TurnArbiter) finishLocked() (origin string, elapsed time.Duration) {
	origin = string(a.active.Origin)
	elapsed = time.Since(a.activeSince)
	if a.watchdog != nil {
		a.watchdog.Stop()
		a.watchdog = nil
	}
	a.active = nil
	a.sawSpeech = false

	if a.metrics != nil {
		a.metrics.TurnDuration.Observe(elapsed.Seconds())
	}
	return origin, elapsed
}

func (a *TurnArbiter) recordDepthsLocked() {
	if a.metrics == nil {
		return
	}
	a.metrics.QueueDepth.WithLabelValues(string(turns.OriginVoice)).Set(float64(len(a.voiceQueue)))
	a.metrics.QueueDepth.WithLabelValues(string(turns.OriginChat)).Set(float64(len(a.chatQueue)))
}
