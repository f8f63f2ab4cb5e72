// Package agents provides the Agent data model: inventory, utility,
// quotes, movement intent, pairing state, and the per-tick perception
// cache populated by the perception phase.
package agents

import (
	"github.com/talgya/mini-world/internal/econ"
	"github.com/talgya/mini-world/internal/grid"
)

// ID is a dense, non-negative agent identifier.
type ID uint64

// Inventory holds quantities of goods A, B, and money M. M is unused (held
// at zero) when the scenario's exchange regime excludes money.
type Inventory struct {
	A, B, M uint32
}

// Add returns inv with delta applied; callers are responsible for checking
// the result stays non-negative before committing it (Bargaining asserts
// this per §4.9's execution invariants).
func (inv Inventory) Add(delta Delta) Inventory {
	return Inventory{
		A: uint32(int64(inv.A) + delta.A),
		B: uint32(int64(inv.B) + delta.B),
		M: uint32(int64(inv.M) + delta.M),
	}
}

// Delta is a signed per-good change, used for trade execution and its
// conservation check (ΔA_i + ΔA_j = 0, etc).
type Delta struct {
	A, B, M int64
}

// Negate returns the opposite delta — the counterparty's side of a trade.
func (d Delta) Negate() Delta {
	return Delta{A: -d.A, B: -d.B, M: -d.M}
}

// Agent is one participant in the simulation.
type Agent struct {
	ID        ID
	Pos       grid.Pos
	Inventory Inventory

	Utility     econ.Utility
	MoneyParams econ.MoneyParams

	Quotes econ.QuoteSet

	TargetPos     *grid.Pos
	TargetAgentID *ID

	PairedWithID *ID

	// TradeCooldowns maps a partner id to the tick at which the cooldown
	// against re-attempting bargaining with them expires.
	TradeCooldowns map[ID]uint64

	// InventoryChanged is set on any inventory mutation (trade execution,
	// foraging) and cleared by Housekeeping once quotes have been
	// recomputed from the new inventory; Housekeeping is the only phase
	// that reads or clears it.
	InventoryChanged bool

	VisionRadius      int
	MoveBudgetPerTick int

	Perception Perception
}

// PerceivedAgent is one entry in an agent's visible-agents cache: a
// read-only snapshot of a neighbor's position and post-Housekeeping quotes
// for this tick.
type PerceivedAgent struct {
	ID     ID
	Pos    grid.Pos
	Quotes econ.QuoteSet
}

// PerceivedCell is one entry in an agent's visible-resources cache.
type PerceivedCell struct {
	Pos    grid.Pos
	Type   grid.ResourceType
	Amount uint32
}

// Perception is the per-tick cache populated by the perception phase: a
// sorted list of visible agents and a sorted list of visible resource
// cells, both read-only snapshots for the remainder of the tick.
type Perception struct {
	VisibleAgents    []PerceivedAgent
	VisibleResources []PerceivedCell
}

// New constructs an agent with default runtime state. Quotes start empty —
// Housekeeping computes them on tick 0 because InventoryChanged starts
// true, matching the reference implementation's agent initialization.
func New(id ID, pos grid.Pos, inv Inventory, u econ.Utility, money econ.MoneyParams, visionRadius, moveBudget int) *Agent {
	return &Agent{
		ID:                id,
		Pos:               pos,
		Inventory:         inv,
		Utility:           u,
		MoneyParams:       money,
		Quotes:            econ.QuoteSet{},
		TradeCooldowns:    make(map[ID]uint64),
		InventoryChanged:  true,
		VisionRadius:      visionRadius,
		MoveBudgetPerTick: moveBudget,
	}
}

// IsPaired reports whether the agent currently has a confirmed partner.
func (a *Agent) IsPaired() bool { return a.PairedWithID != nil }

// IsOnCooldownWith reports whether a trade attempt with other is currently
// suppressed because it failed within the last trade_cooldown_ticks.
func (a *Agent) IsOnCooldownWith(other ID, tick uint64) bool {
	expiry, ok := a.TradeCooldowns[other]
	return ok && tick < expiry
}

// SetCooldown records a failed-bargain cooldown against other, expiring at
// tick+cooldownTicks.
func (a *Agent) SetCooldown(other ID, tick, cooldownTicks uint64) {
	a.TradeCooldowns[other] = tick + cooldownTicks
}
