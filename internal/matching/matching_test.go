package matching

import (
	"testing"

	"github.com/talgya/mini-world/internal/agents"
	"github.com/talgya/mini-world/internal/econ"
	"github.com/talgya/mini-world/internal/grid"
	"github.com/talgya/mini-world/internal/search"
)

func newAgent(id agents.ID, pos grid.Pos) *agents.Agent {
	return agents.New(id, pos, agents.Inventory{A: 5, B: 5}, econ.Linear{VA: 1, VB: 1}, econ.MoneyParams{}, 5, 1)
}

func TestMutualMatchPairsReciprocalTargets(t *testing.T) {
	a := newAgent(0, grid.Pos{X: 0, Y: 0})
	b := newAgent(1, grid.Pos{X: 1, Y: 0})
	targets := map[agents.ID]search.Effect{
		0: {AgentID: 0, Kind: search.TargetAgent, AgentTarget: 1},
		1: {AgentID: 1, Kind: search.TargetAgent, AgentTarget: 0},
	}

	pairs := LegacyThreePassMatching{}.Match([]*agents.Agent{a, b}, targets, Params{InteractionRadius: 1, Regime: econ.RegimeBarterOnly})
	if len(pairs) != 1 || pairs[0] != (Pair{Lo: 0, Hi: 1}) {
		t.Fatalf("expected mutual pair (0,1), got %+v", pairs)
	}
}

func TestMatchRespectsInteractionRadius(t *testing.T) {
	a := newAgent(0, grid.Pos{X: 0, Y: 0})
	b := newAgent(1, grid.Pos{X: 5, Y: 5})
	targets := map[agents.ID]search.Effect{
		0: {AgentID: 0, Kind: search.TargetAgent, AgentTarget: 1},
		1: {AgentID: 1, Kind: search.TargetAgent, AgentTarget: 0},
	}

	pairs := LegacyThreePassMatching{}.Match([]*agents.Agent{a, b}, targets, Params{InteractionRadius: 1, Regime: econ.RegimeBarterOnly})
	if len(pairs) != 0 {
		t.Fatalf("expected no pairs out of range, got %+v", pairs)
	}
}

func TestMatchRespectsCooldown(t *testing.T) {
	a := newAgent(0, grid.Pos{X: 0, Y: 0})
	b := newAgent(1, grid.Pos{X: 1, Y: 0})
	a.SetCooldown(1, 0, 5)
	targets := map[agents.ID]search.Effect{
		0: {AgentID: 0, Kind: search.TargetAgent, AgentTarget: 1},
		1: {AgentID: 1, Kind: search.TargetAgent, AgentTarget: 0},
	}

	pairs := LegacyThreePassMatching{}.Match([]*agents.Agent{a, b}, targets, Params{InteractionRadius: 1, Regime: econ.RegimeBarterOnly, Tick: 0})
	if len(pairs) != 0 {
		t.Fatalf("expected cooldown to suppress pairing, got %+v", pairs)
	}
}

func TestGreedyPassPairsOneSidedTarget(t *testing.T) {
	a := newAgent(0, grid.Pos{X: 0, Y: 0})
	b := newAgent(1, grid.Pos{X: 1, Y: 0})
	targets := map[agents.ID]search.Effect{
		0: {AgentID: 0, Kind: search.TargetAgent, AgentTarget: 1},
	}

	pairs := LegacyThreePassMatching{}.Match([]*agents.Agent{a, b}, targets, Params{InteractionRadius: 1, Regime: econ.RegimeBarterOnly})
	if len(pairs) != 1 || pairs[0] != (Pair{Lo: 0, Hi: 1}) {
		t.Fatalf("expected greedy pair (0,1), got %+v", pairs)
	}
}

func TestOpportunisticPassUsesOverlappingQuotes(t *testing.T) {
	a := newAgent(0, grid.Pos{X: 0, Y: 0})
	b := newAgent(1, grid.Pos{X: 1, Y: 0})
	a.Quotes = econ.QuoteSet{econ.PairAinB: {Ask: 0.5, Bid: 1.5}}
	a.Perception.VisibleAgents = []agents.PerceivedAgent{
		{ID: 1, Pos: b.Pos, Quotes: econ.QuoteSet{econ.PairAinB: {Ask: 0.2, Bid: 2.0}}},
	}

	pairs := LegacyThreePassMatching{}.Match([]*agents.Agent{a, b}, map[agents.ID]search.Effect{}, Params{InteractionRadius: 1, Regime: econ.RegimeBarterOnly})
	if len(pairs) != 1 || pairs[0] != (Pair{Lo: 0, Hi: 1}) {
		t.Fatalf("expected opportunistic pair (0,1), got %+v", pairs)
	}
}
