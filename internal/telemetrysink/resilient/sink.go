// Package resilient wraps a telemetry.Sink with a circuit breaker so a
// failing sink can never abort a simulation run.
package resilient

import (
	"errors"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"

	"github.com/talgya/mini-world/internal/econ"
	"github.com/talgya/mini-world/internal/telemetry"
)

// MaxSinkFailures is the number of consecutive sink errors that trip the
// breaker open.
const MaxSinkFailures = 5

var errPanicked = errors.New("telemetry sink panicked")

// Sink decorates an underlying telemetry.Sink, recovering from panics and
// counting failures through a gobreaker.CircuitBreaker. Once the breaker
// opens, calls become no-ops (besides the single slog.Error logged at the
// moment it trips) until its timeout lets it half-open again.
type Sink struct {
	inner  telemetry.Sink
	cb     *gobreaker.CircuitBreaker
	logger *slog.Logger
}

var _ telemetry.Sink = (*Sink)(nil)

// Wrap constructs a resilient sink around inner, logging breaker trips to
// logger (or slog.Default() if nil).
func Wrap(inner telemetry.Sink, logger *slog.Logger) *Sink {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Sink{inner: inner, logger: logger}
	s.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "telemetry-sink",
		MaxRequests: 1,
		Interval:    0,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= MaxSinkFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if to == gobreaker.StateOpen {
				s.logger.Error("telemetry sink circuit breaker opened; dropping further events", "sink", name)
			}
		},
	})
	return s
}

// call runs fn through the breaker, converting any panic from the
// underlying sink into an ordinary error so a broken sink implementation
// can never unwind into the simulation driver.
func (s *Sink) call(fn func() error) {
	_, _ = s.cb.Execute(func() (result any, err error) {
		defer func() {
			if r := recover(); r != nil {
				err = errPanicked
			}
		}()
		return nil, fn()
	})
}

func (s *Sink) OnRunStart(scenarioFingerprint string, seed int64, startTime time.Time) {
	s.call(func() error {
		s.inner.OnRunStart(scenarioFingerprint, seed, startTime)
		return nil
	})
}

func (s *Sink) OnTickState(tick uint64, mode string, regime econ.Regime) {
	s.call(func() error {
		s.inner.OnTickState(tick, mode, regime)
		return nil
	})
}

func (s *Sink) OnModeChange(tick uint64, oldMode, newMode string) {
	s.call(func() error {
		s.inner.OnModeChange(tick, oldMode, newMode)
		return nil
	})
}

func (s *Sink) OnAgentSnapshot(snap telemetry.AgentSnapshot) {
	s.call(func() error {
		s.inner.OnAgentSnapshot(snap)
		return nil
	})
}

func (s *Sink) OnResourceSnapshot(snap telemetry.ResourceSnapshot) {
	s.call(func() error {
		s.inner.OnResourceSnapshot(snap)
		return nil
	})
}

func (s *Sink) OnDecision(d telemetry.Decision) {
	s.call(func() error {
		s.inner.OnDecision(d)
		return nil
	})
}

func (s *Sink) OnTradeAttempt(a telemetry.TradeAttempt) {
	s.call(func() error {
		s.inner.OnTradeAttempt(a)
		return nil
	})
}

func (s *Sink) OnTradeExecuted(t telemetry.TradeExecuted) {
	s.call(func() error {
		s.inner.OnTradeExecuted(t)
		return nil
	})
}

func (s *Sink) OnRunEnd(tick uint64, endTime time.Time) {
	s.call(func() error {
		s.inner.OnRunEnd(tick, endTime)
		return nil
	})
}

func (s *Sink) Close() error {
	return s.inner.Close()
}
