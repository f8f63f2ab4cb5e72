// Package telemetry defines the write-only sink interface the simulation
// core reports through, and the event/level types every sink implementation
// shares.
package telemetry

import (
	"time"

	"github.com/talgya/mini-world/internal/agents"
	"github.com/talgya/mini-world/internal/econ"
	"github.com/talgya/mini-world/internal/grid"
)

// Level controls which streams a sink receives. STANDARD carries trades,
// decisions, and snapshots; DEBUG adds per-attempt bargaining diagnostics.
// A legacy SUMMARY level maps to STANDARD.
type Level uint8

const (
	LevelStandard Level = iota
	LevelDebug
)

// ParseLevel maps a configured level name to Level, folding the legacy
// "summary" name into LevelStandard.
func ParseLevel(name string) Level {
	switch name {
	case "debug":
		return LevelDebug
	default:
		return LevelStandard
	}
}

// TargetType tags what a Decision event's chosen target was.
type TargetType string

const (
	TargetTypeNone  TargetType = "none"
	TargetTypeAgent TargetType = "agent"
	TargetTypeCell  TargetType = "cell"
)

// Decision is one agent's search-phase outcome for one tick.
type Decision struct {
	Tick             uint64
	AgentID          agents.ID
	ChosenPartnerID  *agents.ID
	Surplus          float64
	TargetType       TargetType
	TargetPos        grid.Pos
	NumNeighbors     int
	Alternatives     int
}

// TradeAttempt is one (pair, instrument, dA) candidate considered during
// bargaining, emitted only at DEBUG level.
type TradeAttempt struct {
	Tick        uint64
	BuyerID     agents.ID
	SellerID    agents.ID
	Pair        econ.Pair
	DA          int64
	Paid        int64
	Feasible    bool
	Improving   bool
	BuyerGain   float64
	SellerGain  float64
}

// TradeExecuted is one committed trade.
type TradeExecuted struct {
	Tick             uint64
	BuyerID          agents.ID
	SellerID         agents.ID
	Pos              grid.Pos
	DA, DB, DM       int64
	Price            float64
	Pair             econ.Pair
	BuyerLambda      float64
	SellerLambda     float64
}

// AgentSnapshot is one agent's reported state at a snapshot cadence tick.
type AgentSnapshot struct {
	Tick       uint64
	AgentID    agents.ID
	Pos        grid.Pos
	Inventory  agents.Inventory
	UtilityTag string
	Quotes     econ.QuoteSet
	Target     TargetType
}

// ResourceSnapshot is one cell's reported state at a snapshot cadence tick.
type ResourceSnapshot struct {
	Tick   uint64
	Pos    grid.Pos
	Type   grid.ResourceType
	Amount uint32
}

// Sink is the only boundary the simulation core writes through. The core
// never reads from a sink and treats every method as fire-and-forget;
// resilience against a failing sink is the caller's responsibility (see
// internal/telemetrysink/resilient).
type Sink interface {
	OnRunStart(scenarioFingerprint string, seed int64, startTime time.Time)
	OnTickState(tick uint64, mode string, regime econ.Regime)
	OnModeChange(tick uint64, oldMode, newMode string)
	OnAgentSnapshot(s AgentSnapshot)
	OnResourceSnapshot(s ResourceSnapshot)
	OnDecision(d Decision)
	OnTradeAttempt(a TradeAttempt)
	OnTradeExecuted(t TradeExecuted)
	OnRunEnd(tick uint64, endTime time.Time)
	Close() error
}

// NoopSink discards every event; it is the default for runs that don't
// configure a sink, and a convenient embed for sinks that only care about a
// handful of the interface's methods.
type NoopSink struct{}

func (NoopSink) OnRunStart(string, int64, time.Time)          {}
func (NoopSink) OnTickState(uint64, string, econ.Regime)      {}
func (NoopSink) OnModeChange(uint64, string, string)          {}
func (NoopSink) OnAgentSnapshot(AgentSnapshot)                {}
func (NoopSink) OnResourceSnapshot(ResourceSnapshot)          {}
func (NoopSink) OnDecision(Decision)                          {}
func (NoopSink) OnTradeAttempt(TradeAttempt)                  {}
func (NoopSink) OnTradeExecuted(TradeExecuted)                {}
func (NoopSink) OnRunEnd(uint64, time.Time)                   {}
func (NoopSink) Close() error                                 { return nil }
