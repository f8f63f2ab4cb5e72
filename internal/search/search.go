// Package search implements the Decision phase: given an agent's
// perception cache, produce a target (another agent to trade with, or a
// resource cell to forage) the movement phase will steer toward.
package search

import (
	"math"

	"github.com/talgya/mini-world/internal/agents"
	"github.com/talgya/mini-world/internal/econ"
	"github.com/talgya/mini-world/internal/grid"
	"github.com/talgya/mini-world/internal/rng"
)

// TargetKind tags what an Effect points at.
type TargetKind uint8

const (
	TargetNone TargetKind = iota
	TargetAgent
	TargetCell
)

// Effect is the SetTarget intent a protocol emits for one agent.
type Effect struct {
	AgentID agents.ID
	Kind    TargetKind

	AgentTarget agents.ID
	CellTarget  grid.Pos

	// Score is the discounted surplus/utility-gain the protocol used to
	// choose this target, reported to telemetry as the decision's surplus.
	Score float64
}

// Params are the scenario parameters a search protocol needs.
type Params struct {
	Beta    float64
	Epsilon float64
	Regime  econ.Regime
	Tick    uint64
}

// Protocol decides one agent's target for the current tick.
type Protocol interface {
	Name() string
	Decide(a *agents.Agent, p Params, rng *rng.Stream) Effect
}

// LegacyDistanceDiscountedSearch is the default protocol: scores every
// visible trade candidate and forage cell by β^distance-discounted
// surplus/utility-gain, and targets the argmax.
type LegacyDistanceDiscountedSearch struct{}

func (LegacyDistanceDiscountedSearch) Name() string { return "legacy_distance_discounted_search" }

func (LegacyDistanceDiscountedSearch) Decide(a *agents.Agent, p Params, _ *rng.Stream) Effect {
	none := Effect{AgentID: a.ID, Kind: TargetNone}
	if a.IsPaired() {
		return none
	}

	pairs := econ.AllowedPairs(p.Regime)

	bestTradeScore, haveTrade := 0.0, false
	var bestTradeEffect Effect
	for _, cand := range a.Perception.VisibleAgents {
		if a.IsOnCooldownWith(cand.ID, p.Tick) {
			continue
		}
		dist := grid.ChebyshevDistance(a.Pos, cand.Pos)
		discount := math.Pow(p.Beta, float64(dist))

		var bestPairScore float64
		for _, pair := range pairs {
			iQuote, iok := a.Quotes[pair]
			jQuote, jok := cand.Quotes[pair]
			if !iok || !jok {
				continue
			}
			score := math.Max(0, iQuote.Bid-jQuote.Ask) + math.Max(0, jQuote.Bid-iQuote.Ask)
			if score > bestPairScore {
				bestPairScore = score
			}
		}

		score := bestPairScore * discount
		if score > 0 && (!haveTrade || score > bestTradeScore) {
			haveTrade = true
			bestTradeScore = score
			bestTradeEffect = Effect{AgentID: a.ID, Kind: TargetAgent, AgentTarget: cand.ID, Score: score}
		}
	}

	bestForageScore, haveForage := 0.0, false
	var bestForageEffect Effect
	for _, cell := range a.Perception.VisibleResources {
		if cell.Amount == 0 || cell.Type == grid.ResourceNone {
			continue
		}
		dist := grid.ChebyshevDistance(a.Pos, cell.Pos)
		discount := math.Pow(p.Beta, float64(dist))

		score := forageMU(a, cell.Type) * discount
		if score > 0 && (!haveForage || score > bestForageScore) {
			haveForage = true
			bestForageScore = score
			bestForageEffect = Effect{AgentID: a.ID, Kind: TargetCell, CellTarget: cell.Pos, Score: score}
		}
	}

	// Trade candidates are scanned first; the stable left-to-right argmax
	// keeps a trade target over an equal-scoring forage target without
	// asserting an explicit trade-over-forage priority.
	switch {
	case haveTrade && (!haveForage || bestTradeScore >= bestForageScore):
		return bestTradeEffect
	case haveForage:
		return bestForageEffect
	default:
		return none
	}
}

func forageMU(a *agents.Agent, t grid.ResourceType) float64 {
	switch t {
	case grid.ResourceA:
		return a.Utility.MUA(a.Inventory.A, a.Inventory.B)
	case grid.ResourceB:
		return a.Utility.MUB(a.Inventory.A, a.Inventory.B)
	default:
		return 0
	}
}

// RandomWalkSearch ignores quotes and utility entirely, choosing uniformly
// among currently-visible positions via the agent's RNG substream — a
// zero-information baseline protocol for comparison runs.
type RandomWalkSearch struct{}

func (RandomWalkSearch) Name() string { return "random_walk_search" }

func (RandomWalkSearch) Decide(a *agents.Agent, _ Params, r *rng.Stream) Effect {
	none := Effect{AgentID: a.ID, Kind: TargetNone}
	if a.IsPaired() {
		return none
	}

	type candidate struct {
		kind   TargetKind
		agent  agents.ID
		pos    grid.Pos
	}

	var candidates []candidate
	for _, cand := range a.Perception.VisibleAgents {
		if cand.Pos == a.Pos {
			continue
		}
		candidates = append(candidates, candidate{kind: TargetAgent, agent: cand.ID, pos: cand.Pos})
	}
	for _, cell := range a.Perception.VisibleResources {
		if cell.Pos == a.Pos {
			continue
		}
		candidates = append(candidates, candidate{kind: TargetCell, pos: cell.Pos})
	}

	if len(candidates) == 0 {
		return none
	}

	idx := r.Intn(len(candidates))
	chosen := candidates[idx]
	if chosen.kind == TargetAgent {
		return Effect{AgentID: a.ID, Kind: TargetAgent, AgentTarget: chosen.agent}
	}
	return Effect{AgentID: a.ID, Kind: TargetCell, CellTarget: chosen.pos}
}
