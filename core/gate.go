package orchestration

import (
	"github.com/kingbootoshi/Stream-Buddy/core/session"
	"github.com/kingbootoshi/Stream-Buddy/core/signals"
	"github.com/kingbootoshi/Stream-Buddy/internal/metrics"
)

// InputGate is the per-source admission filter for raw signals.
//
// Content-bearing signals (audio frames, voice-activity markers) pass only
// while the session is listening and the downstream consumer is not
// speaking; this is what prevents the assistant from transcribing its own
// voice. Lifecycle signals always pass so the stream can shut down cleanly.
type InputGate struct {
	state   *session.State
	metrics *metrics.Metrics
}

func NewInputGate(state *session.State) *InputGate {
	return &InputGate{state: state}
}

func (g *InputGate) setMetrics(m *metrics.Metrics) {
	if g != nil {
		g.metrics = m
	}
}

// Allow reports whether the signal may enter the pipeline. Every decision on
// a content signal is traced with the two contributing flags so muting bugs
// stay diagnosable.
func (g *InputGate) Allow(signal signals.Signal) bool {
	if signal.Lifecycle() {
		return true
	}

	listening := g.state.Listening()
	speaking := g.state.Speaking()
	allowed := listening && !speaking

	logger.Debug("gate decision",
		"signal", string(signal.Kind()),
		"allowed", allowed,
		"listening", listening,
		"speaking", speaking,
	)

	if g.metrics != nil {
		if allowed {
			g.metrics.SignalsAllowed.Inc()
		} else {
			g.metrics.SignalsDropped.Inc()
		}
	}

	return allowed
}
