package sim

import (
	"context"
	"testing"

	"github.com/talgya/mini-world/internal/agents"
	"github.com/talgya/mini-world/internal/scenario"
	"github.com/talgya/mini-world/internal/telemetry"
)

// recordingSink is a telemetry.Sink test double that appends every event it
// receives so tests can assert on the exact sequence a run produced.
type recordingSink struct {
	telemetry.NoopSink
	trades    []telemetry.TradeExecuted
	decisions []telemetry.Decision
}

func (r *recordingSink) OnTradeExecuted(t telemetry.TradeExecuted) {
	r.trades = append(r.trades, t)
}

func (r *recordingSink) OnDecision(d telemetry.Decision) {
	r.decisions = append(r.decisions, d)
}

// barterScenario builds a three-agent barter-only scenario where agent 0
// holds mostly A, agent 1 holds mostly B, and agent 2 is endowed evenly —
// asymmetric enough under a single CES utility (ρ=0.5, equal weights, so
// each agent values the good it lacks more) to guarantee gains from trade
// without depending on any utility-mix RNG draw.
func barterScenario(t *testing.T) *scenario.Scenario {
	t.Helper()
	sc, err := scenario.New(scenario.Scenario{
		GridSize:   4,
		AgentCount: 3,
		InitialA: scenario.InitialInventorySpec{
			Kind:     scenario.InventoryPerAgent,
			PerAgent: []uint32{20, 1, 10},
		},
		InitialB: scenario.InitialInventorySpec{
			Kind:     scenario.InventoryPerAgent,
			PerAgent: []uint32{1, 20, 10},
		},
		UtilityMix: []scenario.UtilitySpec{
			{Kind: scenario.UtilityCES, Weight: 1.0, CES: scenario.CESParams{Rho: 0.5, WA: 1, WB: 1}},
		},
		ResourceSeed:   scenario.ResourceSeedConfig{Density: 0, Amount: 0},
		ExchangeRegime: scenario.RegimeBarterOnly,
		Params: scenario.Params{
			Spread:            0.1,
			VisionRadius:      4,
			InteractionRadius: 4,
			MoveBudgetPerTick: 2,
			DAMax:             5,
			ForageRate:        1,
			Epsilon:           1e-9,
			Beta:              0.9,
			ResourceMaxAmount: 10,
		},
	})
	if err != nil {
		t.Fatalf("scenario.New: %v", err)
	}
	return sc
}

// forageOnlyScenario builds a scenario whose mode schedule is pinned to
// forage-only for its whole run, with resources dense enough that every
// agent can find something to harvest.
func forageOnlyScenario(t *testing.T) *scenario.Scenario {
	t.Helper()
	sc, err := scenario.New(scenario.Scenario{
		GridSize:   6,
		AgentCount: 4,
		InitialA:   scenario.InitialInventorySpec{Kind: scenario.InventoryScalar, Scalar: 0},
		InitialB:   scenario.InitialInventorySpec{Kind: scenario.InventoryScalar, Scalar: 0},
		UtilityMix: []scenario.UtilitySpec{
			{Kind: scenario.UtilityLinear, Weight: 1.0, Linear: scenario.LinearParams{VA: 1, VB: 1}},
		},
		ResourceSeed:   scenario.ResourceSeedConfig{Density: 0.6, Amount: 50},
		ExchangeRegime: scenario.RegimeBarterOnly,
		ModeSchedule: &scenario.ModeScheduleSpec{
			ForageTicks: 1, TradeTicks: 0, StartMode: scenario.ModeForage,
		},
		Params: scenario.Params{
			Spread:            0.1,
			VisionRadius:      3,
			InteractionRadius: 3,
			MoveBudgetPerTick: 2,
			DAMax:             5,
			ForageRate:        3,
			Epsilon:           1e-9,
			Beta:              0.9,
			ResourceMaxAmount: 50,
		},
	})
	if err != nil {
		t.Fatalf("scenario.New: %v", err)
	}
	return sc
}

// decisionsEqual compares two Decision values by the partner id's pointee
// rather than the ChosenPartnerID pointer itself, since two independent runs
// never share pointer identity even when they chose the same partner.
func decisionsEqual(a, b telemetry.Decision) bool {
	if (a.ChosenPartnerID == nil) != (b.ChosenPartnerID == nil) {
		return false
	}
	if a.ChosenPartnerID != nil && *a.ChosenPartnerID != *b.ChosenPartnerID {
		return false
	}
	a.ChosenPartnerID, b.ChosenPartnerID = nil, nil
	return a == b
}

func totalInventory(roster []*agents.Agent) (a, b, m uint64) {
	for _, ag := range roster {
		a += uint64(ag.Inventory.A)
		b += uint64(ag.Inventory.B)
		m += uint64(ag.Inventory.M)
	}
	return
}

func TestBarterConservesGoodsAndProducesAtLeastOneTrade(t *testing.T) {
	sc := barterScenario(t)
	sink := &recordingSink{}

	s, err := New(sc, 42, Options{Sink: sink})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	beforeA, beforeB, beforeM := totalInventory(s.Roster)

	if err := s.Run(context.Background(), 50); err != nil {
		t.Fatalf("Run: %v", err)
	}
	afterA, afterB, afterM := totalInventory(s.Roster)

	if beforeA != afterA || beforeB != afterB || beforeM != afterM {
		t.Fatalf("total inventory not conserved: before=(%d,%d,%d) after=(%d,%d,%d)",
			beforeA, beforeB, beforeM, afterA, afterB, afterM)
	}
	if len(sink.trades) == 0 {
		t.Fatal("expected at least one trade between agents with gains from trade")
	}
	for _, tr := range sink.trades {
		if tr.DA == 0 && tr.DB == 0 {
			t.Fatalf("trade with no quantity change recorded: %+v", tr)
		}
	}
}

func TestForageOnlyScheduleNeverTradesAndInventoryIsMonotonic(t *testing.T) {
	sc := forageOnlyScenario(t)
	sink := &recordingSink{}

	s, err := New(sc, 7, Options{Sink: sink})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	prevA, prevB, _ := totalInventory(s.Roster)
	for tick := 0; tick < 20; tick++ {
		if err := s.Step(context.Background()); err != nil {
			t.Fatalf("Step: %v", err)
		}
		a, b, _ := totalInventory(s.Roster)
		if a < prevA || b < prevB {
			t.Fatalf("tick %d: total inventory decreased under forage-only mode: (%d,%d) -> (%d,%d)",
				tick, prevA, prevB, a, b)
		}
		prevA, prevB = a, b
	}

	if len(sink.trades) != 0 {
		t.Fatalf("expected no trades under a forage-only mode schedule, got %d", len(sink.trades))
	}
}

func TestRunIsDeterministicForTheSameSeed(t *testing.T) {
	sc := barterScenario(t)

	sinkA := &recordingSink{}
	sA, err := New(sc, 123, Options{Sink: sinkA})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := sA.Run(context.Background(), 30); err != nil {
		t.Fatalf("Run: %v", err)
	}

	sinkB := &recordingSink{}
	sB, err := New(sc, 123, Options{Sink: sinkB})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := sB.Run(context.Background(), 30); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(sinkA.trades) != len(sinkB.trades) {
		t.Fatalf("trade count diverged between identical runs: %d vs %d", len(sinkA.trades), len(sinkB.trades))
	}
	for i := range sinkA.trades {
		if sinkA.trades[i] != sinkB.trades[i] {
			t.Fatalf("trade %d diverged: %+v vs %+v", i, sinkA.trades[i], sinkB.trades[i])
		}
	}
	if len(sinkA.decisions) != len(sinkB.decisions) {
		t.Fatalf("decision count diverged between identical runs: %d vs %d", len(sinkA.decisions), len(sinkB.decisions))
	}
	for i := range sinkA.decisions {
		if !decisionsEqual(sinkA.decisions[i], sinkB.decisions[i]) {
			t.Fatalf("decision %d diverged: %+v vs %+v", i, sinkA.decisions[i], sinkB.decisions[i])
		}
	}
}

func TestParallelPhasesProduceIdenticalTelemetryToSerial(t *testing.T) {
	serialScenario := barterScenario(t)

	parallelSc := barterScenario(t)
	parallelSc.Params.ParallelPerception = true
	parallelSc.Params.ParallelSearch = true

	serialSink := &recordingSink{}
	sSerial, err := New(serialScenario, 9, Options{Sink: serialSink})
	if err != nil {
		t.Fatalf("New (serial): %v", err)
	}
	if err := sSerial.Run(context.Background(), 30); err != nil {
		t.Fatalf("Run (serial): %v", err)
	}

	parallelSink := &recordingSink{}
	sParallel, err := New(parallelSc, 9, Options{Sink: parallelSink})
	if err != nil {
		t.Fatalf("New (parallel): %v", err)
	}
	if err := sParallel.Run(context.Background(), 30); err != nil {
		t.Fatalf("Run (parallel): %v", err)
	}

	if len(serialSink.decisions) != len(parallelSink.decisions) {
		t.Fatalf("decision count diverged: serial=%d parallel=%d", len(serialSink.decisions), len(parallelSink.decisions))
	}
	for i := range serialSink.decisions {
		if !decisionsEqual(serialSink.decisions[i], parallelSink.decisions[i]) {
			t.Fatalf("decision %d diverged between serial and parallel execution: %+v vs %+v",
				i, serialSink.decisions[i], parallelSink.decisions[i])
		}
	}
	if len(serialSink.trades) != len(parallelSink.trades) {
		t.Fatalf("trade count diverged: serial=%d parallel=%d", len(serialSink.trades), len(parallelSink.trades))
	}
}

func TestRunStopsAtContextCancellation(t *testing.T) {
	sc := barterScenario(t)
	s, err := New(sc, 1, Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := s.Run(ctx, 1000); err == nil {
		t.Fatal("expected Run to return an error once ctx is already cancelled")
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	sc := barterScenario(t)
	s, err := New(sc, 1, Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second Close (idempotent) returned error: %v", err)
	}
}

func TestNewSpawnsExactlyAgentCountAgents(t *testing.T) {
	sc := barterScenario(t)
	s, err := New(sc, 1, Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if len(s.Roster) != sc.AgentCount {
		t.Fatalf("got %d agents, want %d", len(s.Roster), sc.AgentCount)
	}
	if _, ok := s.AgentIndex[agents.ID(sc.AgentCount)]; ok {
		t.Fatal("AgentIndex contains an id beyond the configured agent count")
	}
}
