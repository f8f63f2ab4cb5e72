// Package matching converts per-agent SetTarget intents (from the search
// phase) into symmetric trading pairs.
package matching

import (
	"sort"

	"github.com/talgya/mini-world/internal/agents"
	"github.com/talgya/mini-world/internal/econ"
	"github.com/talgya/mini-world/internal/grid"
	"github.com/talgya/mini-world/internal/search"
)

// Pair is an unordered, canonically-ordered (lower id first) trading pair.
type Pair struct {
	Lo, Hi agents.ID
}

// Params are the scenario parameters the matching protocol needs.
type Params struct {
	InteractionRadius int
	Regime            econ.Regime
	Tick              uint64
}

// Protocol converts targets into pairings.
type Protocol interface {
	Name() string
	Match(roster []*agents.Agent, targets map[agents.ID]search.Effect, p Params) []Pair
}

// LegacyThreePassMatching runs the mutual / greedy / opportunistic passes
// described in the bargaining design, always breaking ties by lower id.
type LegacyThreePassMatching struct{}

func (LegacyThreePassMatching) Name() string { return "legacy_three_pass_matching" }

func (LegacyThreePassMatching) Match(roster []*agents.Agent, targets map[agents.ID]search.Effect, p Params) []Pair {
	byID := make(map[agents.ID]*agents.Agent, len(roster))
	for _, a := range roster {
		byID[a.ID] = a
	}

	paired := make(map[agents.ID]bool, len(roster))
	var pairs []Pair

	withinRange := func(i, j *agents.Agent) bool {
		return grid.ChebyshevDistance(i.Pos, j.Pos) <= p.InteractionRadius
	}
	onCooldown := func(i, j *agents.Agent) bool {
		return i.IsOnCooldownWith(j.ID, p.Tick) || j.IsOnCooldownWith(i.ID, p.Tick)
	}
	makePair := func(i, j agents.ID) Pair {
		if i < j {
			return Pair{Lo: i, Hi: j}
		}
		return Pair{Lo: j, Hi: i}
	}

	ordered := sortedIDs(roster)

	// Pass 1: mutual targeting.
	for _, id := range ordered {
		if paired[id] {
			continue
		}
		a := byID[id]
		t, ok := targets[id]
		if !ok || t.Kind != search.TargetAgent {
			continue
		}
		j := t.AgentTarget
		if paired[j] {
			continue
		}
		b, ok := byID[j]
		if !ok {
			continue
		}
		bt, ok := targets[j]
		if !ok || bt.Kind != search.TargetAgent || bt.AgentTarget != id {
			continue
		}
		if !withinRange(a, b) || onCooldown(a, b) {
			continue
		}
		pairs = append(pairs, makePair(id, j))
		paired[id] = true
		paired[j] = true
	}

	// Pass 2: greedy — unpaired agent grabs its unpaired, in-range,
	// not-on-cooldown target even without reciprocity.
	for _, id := range ordered {
		if paired[id] {
			continue
		}
		a := byID[id]
		t, ok := targets[id]
		if !ok || t.Kind != search.TargetAgent {
			continue
		}
		j := t.AgentTarget
		if paired[j] || j == id {
			continue
		}
		b, ok := byID[j]
		if !ok {
			continue
		}
		if !withinRange(a, b) || onCooldown(a, b) {
			continue
		}
		pairs = append(pairs, makePair(id, j))
		paired[id] = true
		paired[j] = true
	}

	// Pass 3: opportunistic — scan visible unpaired agents in id order,
	// pair with the first whose reservation bands overlap on any
	// regime-permitted pair.
	pairKinds := econ.AllowedPairs(p.Regime)
	for _, id := range ordered {
		if paired[id] {
			continue
		}
		a := byID[id]
		for _, cand := range a.Perception.VisibleAgents {
			if paired[cand.ID] || cand.ID == id {
				continue
			}
			b, ok := byID[cand.ID]
			if !ok || paired[b.ID] {
				continue
			}
			if !withinRange(a, b) || onCooldown(a, b) {
				continue
			}
			if !bandsOverlap(a.Quotes, cand.Quotes, pairKinds) {
				continue
			}
			pairs = append(pairs, makePair(id, cand.ID))
			paired[id] = true
			paired[cand.ID] = true
			break
		}
	}

	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].Lo != pairs[j].Lo {
			return pairs[i].Lo < pairs[j].Lo
		}
		return pairs[i].Hi < pairs[j].Hi
	})
	return pairs
}

func bandsOverlap(a, b econ.QuoteSet, pairs []econ.Pair) bool {
	for _, p := range pairs {
		aq, aok := a[p]
		bq, bok := b[p]
		if !aok || !bok {
			continue
		}
		if aq.Bid-bq.Ask > 0 || bq.Bid-aq.Ask > 0 {
			return true
		}
	}
	return false
}

func sortedIDs(roster []*agents.Agent) []agents.ID {
	ids := make([]agents.ID, 0, len(roster))
	for _, a := range roster {
		ids = append(ids, a.ID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
