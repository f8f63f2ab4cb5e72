// Package sim implements the deterministic tick driver: the ten-phase loop
// described by the simulation's component design, wiring together
// perception, search, matching, bargaining, movement, foraging, and
// resource regeneration over a shared agent roster and grid.
package sim

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/talgya/mini-world/internal/agents"
	"github.com/talgya/mini-world/internal/bargaining"
	"github.com/talgya/mini-world/internal/econ"
	"github.com/talgya/mini-world/internal/grid"
	"github.com/talgya/mini-world/internal/matching"
	"github.com/talgya/mini-world/internal/rng"
	"github.com/talgya/mini-world/internal/scenario"
	"github.com/talgya/mini-world/internal/search"
	"github.com/talgya/mini-world/internal/telemetry"
)

// Simulation holds the complete world state for one run and drives it
// forward one tick at a time.
type Simulation struct {
	Scenario *scenario.Scenario
	Seed     int64

	Grid    *grid.Grid
	Spatial *grid.SpatialIndex

	Roster     []*agents.Agent
	AgentIndex map[agents.ID]*agents.Agent

	rngRoot *rng.Root
	sink    telemetry.Sink
	log     *slog.Logger
	level   telemetry.Level

	SearchProtocol   search.Protocol
	MatchingProtocol matching.Protocol

	Tick        uint64
	CurrentMode scenario.Mode

	closed bool
}

// Options configures optional collaborators when constructing a Simulation.
// Nil fields fall back to fixed defaults: telemetry.NoopSink,
// LegacyDistanceDiscountedSearch, LegacyThreePassMatching and slog.Default().
type Options struct {
	Sink             telemetry.Sink
	SearchProtocol   search.Protocol
	MatchingProtocol matching.Protocol
	Logger           *slog.Logger

	// Level gates the DEBUG-only telemetry stream (per-candidate trade
	// attempts). Defaults to LevelStandard, which skips that work entirely.
	Level telemetry.Level
}

// New builds a Simulation from a validated scenario and seed: constructs
// the grid, seeds resources, spawns the agent roster with initial
// inventories and utilities resolved from the scenario's "init" RNG
// sub-stream, and places every agent at a uniformly-random position drawn
// from the "placement" sub-stream.
func New(sc *scenario.Scenario, seed int64, opts Options) (*Simulation, error) {
	if opts.Sink == nil {
		opts.Sink = telemetry.NoopSink{}
	}
	if opts.SearchProtocol == nil {
		opts.SearchProtocol = search.LegacyDistanceDiscountedSearch{}
	}
	if opts.MatchingProtocol == nil {
		opts.MatchingProtocol = matching.LegacyThreePassMatching{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	root := rng.NewRoot(seed)
	g := grid.New(sc.GridSize)
	grid.Seed(g, grid.ResourceSeedConfig{Density: sc.ResourceSeed.Density, Amount: sc.ResourceSeed.Amount}, seed)

	spatial := grid.NewSpatialIndex(grid.MetricChebyshev)

	s := &Simulation{
		Scenario:         sc,
		Seed:             seed,
		Grid:             g,
		Spatial:          spatial,
		AgentIndex:       make(map[agents.ID]*agents.Agent, sc.AgentCount),
		rngRoot:          root,
		sink:             opts.Sink,
		log:              opts.Logger,
		level:            opts.Level,
		SearchProtocol:   opts.SearchProtocol,
		MatchingProtocol: opts.MatchingProtocol,
		CurrentMode:      scenario.ModeBoth,
	}

	initStream := root.Sub("init")
	placementStream := root.Sub("placement")

	for i := 0; i < sc.AgentCount; i++ {
		id := agents.ID(i)
		u, err := pickUtility(sc.UtilityMix, initStream)
		if err != nil {
			return nil, err
		}
		inv := agents.Inventory{
			A: resolveInventory(sc.InitialA, i, initStream),
			B: resolveInventory(sc.InitialB, i, initStream),
			M: resolveInventory(sc.InitialM, i, initStream),
		}
		pos := grid.Pos{
			X: placementStream.Intn(sc.GridSize),
			Y: placementStream.Intn(sc.GridSize),
		}
		money := econ.MoneyParams{Form: sc.Money.Form, Lambda: sc.Money.LambdaMoney, M0: sc.Money.M0}
		a := agents.New(id, pos, inv, u, money, sc.Params.VisionRadius, sc.Params.MoveBudgetPerTick)
		s.Roster = append(s.Roster, a)
		s.AgentIndex[id] = a
		spatial.Insert(grid.AgentID(id), pos)
	}

	if sc.ModeSchedule != nil {
		s.CurrentMode = sc.ModeSchedule.StartMode
	}

	return s, nil
}

func pickUtility(mix []scenario.UtilitySpec, r *rng.Stream) (econ.Utility, error) {
	draw := r.Float64()
	var cum float64
	for _, spec := range mix {
		cum += spec.Weight
		if draw < cum {
			return spec.Build()
		}
	}
	return mix[len(mix)-1].Build()
}

func resolveInventory(spec scenario.InitialInventorySpec, agentIdx int, r *rng.Stream) uint32 {
	switch spec.Kind {
	case scenario.InventoryPerAgent:
		if agentIdx < len(spec.PerAgent) {
			return spec.PerAgent[agentIdx]
		}
		return 0
	case scenario.InventoryUniformInt:
		return r.Uint32Range(spec.Lo, spec.Hi)
	default:
		return spec.Scalar
	}
}

// Run advances the simulation until maxTicks have elapsed or ctx is
// cancelled at a tick boundary, whichever comes first.
func (s *Simulation) Run(ctx context.Context, maxTicks uint64) error {
	s.sink.OnRunStart(s.Scenario.Fingerprint(), s.Seed, time.Now())
	for s.Tick < maxTicks {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.Step(ctx); err != nil {
			// Step fails only with an InvariantViolation; flush telemetry
			// before returning it.
			_ = s.Close()
			return err
		}
	}
	s.sink.OnRunEnd(s.Tick, time.Now())
	return nil
}

// Step advances the simulation by exactly one tick, running every phase in
// the fixed order: mode select, housekeeping, perception, decision,
// movement, matching, bargaining, forage, regeneration, telemetry.
func (s *Simulation) Step(ctx context.Context) error {
	tick := s.Tick

	newMode := s.modeForTick(tick)
	if newMode != s.CurrentMode {
		s.sink.OnModeChange(tick, string(s.CurrentMode), string(newMode))
		s.CurrentMode = newMode
	}
	s.sink.OnTickState(tick, string(s.CurrentMode), s.Scenario.ExchangeRegime)

	if err := s.housekeeping(); err != nil {
		return err
	}
	s.perception()

	targets := s.decide(tick)
	s.applyTargets(targets)

	s.movement()

	if s.CurrentMode != scenario.ModeForage {
		pairs := s.match(tick)
		if err := s.bargainAndExecute(tick, pairs); err != nil {
			return err
		}
	}

	if s.CurrentMode != scenario.ModeTrade {
		s.forage(tick)
	}

	s.Grid.Regenerate(tick, s.Scenario.Params.ResourceRegenCooldown, s.Scenario.Params.ResourceGrowthRate, s.Scenario.Params.ResourceMaxAmount)

	s.emitSnapshots(tick)

	s.Tick++
	return nil
}

func (s *Simulation) modeForTick(tick uint64) scenario.Mode {
	sch := s.Scenario.ModeSchedule
	if sch == nil {
		return scenario.ModeBoth
	}
	period := sch.ForageTicks + sch.TradeTicks
	if period == 0 {
		return scenario.ModeBoth
	}
	tickMod := tick % period
	first, second := scenario.ModeForage, scenario.ModeTrade
	firstLen := sch.ForageTicks
	if sch.StartMode == scenario.ModeTrade {
		first, second = scenario.ModeTrade, scenario.ModeForage
		firstLen = sch.TradeTicks
	}
	if tickMod < firstLen {
		return first
	}
	return second
}

// housekeeping recomputes quotes for every agent whose inventory changed
// since it was last computed, then clears the flag.
func (s *Simulation) housekeeping() error {
	for _, a := range sortedRoster(s.Roster) {
		if !a.InventoryChanged {
			continue
		}
		quotes := econ.Compute(
			a.Utility, a.Inventory.A, a.Inventory.B, a.Inventory.M,
			a.MoneyParams, s.Scenario.Params.Spread, s.Scenario.Params.Epsilon,
			s.Scenario.Money.MoneyScale, s.Scenario.Money.Enabled,
		)
		filtered, unknown := econ.FilterByRegime(quotes, s.Scenario.ExchangeRegime)
		if unknown {
			s.log.Warn("unknown exchange regime, falling back to barter_only", "regime", s.Scenario.ExchangeRegime)
		}
		a.Quotes = filtered
		a.InventoryChanged = false
	}
	return nil
}

// perception rebuilds each agent's visible-agent and visible-resource caches.
// Each agent only ever writes its own Perception field, so fanning this out
// across a bounded worker pool changes nothing about the resulting state
// (§5's parallel-perception discipline).
func (s *Simulation) perception() {
	roster := sortedRoster(s.Roster)
	if !s.Scenario.Params.ParallelPerception {
		for _, a := range roster {
			s.perceiveOne(a)
		}
		return
	}

	g := new(errgroup.Group)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for _, a := range roster {
		a := a
		g.Go(func() error {
			s.perceiveOne(a)
			return nil
		})
	}
	_ = g.Wait()
}

func (s *Simulation) perceiveOne(a *agents.Agent) {
	a.Perception = agents.Perception{}

	neighborIDs := s.Spatial.NeighborsWithin(a.Pos, a.VisionRadius, grid.AgentID(a.ID))
	visibleAgents := make([]agents.PerceivedAgent, 0, len(neighborIDs))
	for _, nid := range neighborIDs {
		other := s.AgentIndex[agents.ID(nid)]
		if other == nil {
			continue
		}
		visibleAgents = append(visibleAgents, agents.PerceivedAgent{
			ID: other.ID, Pos: other.Pos, Quotes: other.Quotes,
		})
	}
	a.Perception.VisibleAgents = visibleAgents

	var visibleCells []agents.PerceivedCell
	for dy := -a.VisionRadius; dy <= a.VisionRadius; dy++ {
		for dx := -a.VisionRadius; dx <= a.VisionRadius; dx++ {
			pos := grid.Pos{X: a.Pos.X + dx, Y: a.Pos.Y + dy}
			if !s.Grid.InBounds(pos) {
				continue
			}
			cell := s.Grid.Cell(pos)
			if cell.Type == grid.ResourceNone || cell.Amount == 0 {
				continue
			}
			visibleCells = append(visibleCells, agents.PerceivedCell{Pos: pos, Type: cell.Type, Amount: cell.Amount})
		}
	}
	sort.Slice(visibleCells, func(i, j int) bool {
		if visibleCells[i].Pos.Y != visibleCells[j].Pos.Y {
			return visibleCells[i].Pos.Y < visibleCells[j].Pos.Y
		}
		return visibleCells[i].Pos.X < visibleCells[j].Pos.X
	})
	a.Perception.VisibleResources = visibleCells
}

// decide computes each agent's SetTarget effect. Scoring is pure given the
// agent's own perception cache and an independent RNG sub-stream, so the
// scoring pass may run concurrently (§5); effects are always buffered and
// then applied — written into out, emitted to telemetry — in ascending id
// order, so the parallel and serial forms produce identical telemetry.
func (s *Simulation) decide(tick uint64) map[agents.ID]search.Effect {
	params := search.Params{
		Beta:    s.Scenario.Params.Beta,
		Epsilon: s.Scenario.Params.Epsilon,
		Regime:  s.Scenario.ExchangeRegime,
		Tick:    tick,
	}
	roster := sortedRoster(s.Roster)
	effects := make([]search.Effect, len(roster))

	compute := func(i int) {
		a := roster[i]
		rStream := s.rngRoot.Sub(fmt.Sprintf("search.%d", a.ID))
		effects[i] = s.SearchProtocol.Decide(a, params, rStream)
	}

	if !s.Scenario.Params.ParallelSearch {
		for i := range roster {
			compute(i)
		}
	} else {
		g := new(errgroup.Group)
		g.SetLimit(runtime.GOMAXPROCS(0))
		for i := range roster {
			i := i
			g.Go(func() error {
				compute(i)
				return nil
			})
		}
		_ = g.Wait()
	}

	out := make(map[agents.ID]search.Effect, len(roster))
	for i, a := range roster {
		eff := effects[i]
		out[a.ID] = eff

		var partner *agents.ID
		var targetPos grid.Pos
		switch eff.Kind {
		case search.TargetAgent:
			id := eff.AgentTarget
			partner = &id
			if target, ok := s.AgentIndex[eff.AgentTarget]; ok {
				targetPos = target.Pos
			}
		case search.TargetCell:
			targetPos = eff.CellTarget
		}
		s.sink.OnDecision(telemetry.Decision{
			Tick: tick, AgentID: a.ID, ChosenPartnerID: partner, Surplus: eff.Score,
			TargetType:   targetTypeOf(eff.Kind),
			TargetPos:    targetPos,
			NumNeighbors: len(a.Perception.VisibleAgents),
			Alternatives: len(a.Perception.VisibleAgents) + len(a.Perception.VisibleResources),
		})
	}
	return out
}

func targetTypeOf(k search.TargetKind) telemetry.TargetType {
	switch k {
	case search.TargetAgent:
		return telemetry.TargetTypeAgent
	case search.TargetCell:
		return telemetry.TargetTypeCell
	default:
		return telemetry.TargetTypeNone
	}
}

func (s *Simulation) applyTargets(targets map[agents.ID]search.Effect) {
	for _, a := range sortedRoster(s.Roster) {
		eff := targets[a.ID]
		switch eff.Kind {
		case search.TargetAgent:
			id := eff.AgentTarget
			a.TargetAgentID = &id
			a.TargetPos = nil
		case search.TargetCell:
			pos := eff.CellTarget
			a.TargetPos = &pos
			a.TargetAgentID = nil
		default:
			a.TargetAgentID = nil
			a.TargetPos = nil
		}
	}
}

// movement steps each agent up to MoveBudgetPerTick cells toward its
// target, preferring the step that most reduces Chebyshev distance and
// breaking ties by lower Δy then lower Δx.
func (s *Simulation) movement() {
	for _, a := range sortedRoster(s.Roster) {
		target := a.TargetPos
		if target == nil && a.TargetAgentID != nil {
			if other := s.AgentIndex[*a.TargetAgentID]; other != nil {
				pos := other.Pos
				target = &pos
			}
		}
		if target == nil || *target == a.Pos {
			continue
		}
		for step := 0; step < a.MoveBudgetPerTick; step++ {
			if a.Pos == *target {
				break
			}
			next := bestStep(a.Pos, *target, s.Grid)
			a.Pos = next
			s.Spatial.UpdatePosition(grid.AgentID(a.ID), next)
		}
	}
}

func bestStep(from, to grid.Pos, g *grid.Grid) grid.Pos {
	type candidate struct {
		pos  grid.Pos
		dist int
		dy   int
		dx   int
	}
	var best *candidate
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}
			cand := grid.Pos{X: from.X + dx, Y: from.Y + dy}
			if !g.InBounds(cand) {
				continue
			}
			d := grid.ChebyshevDistance(cand, to)
			c := candidate{pos: cand, dist: d, dy: dy, dx: dx}
			if best == nil || c.dist < best.dist ||
				(c.dist == best.dist && (c.dy < best.dy || (c.dy == best.dy && c.dx < best.dx))) {
				best = &c
			}
		}
	}
	if best == nil {
		return from
	}
	return best.pos
}

func (s *Simulation) match(tick uint64) []matching.Pair {
	targets := make(map[agents.ID]search.Effect, len(s.Roster))
	for _, a := range s.Roster {
		if a.TargetAgentID != nil {
			targets[a.ID] = search.Effect{AgentID: a.ID, Kind: search.TargetAgent, AgentTarget: *a.TargetAgentID}
		}
	}
	pairs := s.MatchingProtocol.Match(sortedRoster(s.Roster), targets, matching.Params{
		InteractionRadius: s.Scenario.Params.InteractionRadius,
		Regime:            s.Scenario.ExchangeRegime,
		Tick:              tick,
	})
	for _, pr := range pairs {
		lo, hi := pr.Lo, pr.Hi
		s.AgentIndex[lo].PairedWithID = &hi
		s.AgentIndex[hi].PairedWithID = &lo
	}
	return pairs
}

func (s *Simulation) bargainAndExecute(tick uint64, pairs []matching.Pair) error {
	params := bargaining.Params{
		DAMax:      s.Scenario.Params.DAMax,
		Epsilon:    s.Scenario.Params.Epsilon,
		MoneyScale: s.Scenario.Money.MoneyScale,
		Regime:     s.Scenario.ExchangeRegime,
		Tick:       tick,
	}
	if s.level == telemetry.LevelDebug {
		params.OnAttempt = func(a telemetry.TradeAttempt) { s.sink.OnTradeAttempt(a) }
	}
	for _, pr := range pairs {
		i, j := s.AgentIndex[pr.Lo], s.AgentIndex[pr.Hi]
		out := bargaining.Negotiate(i, j, params)
		if !out.Traded {
			i.SetCooldown(j.ID, tick, s.Scenario.Params.TradeCooldownTicks)
			j.SetCooldown(i.ID, tick, s.Scenario.Params.TradeCooldownTicks)
			i.PairedWithID, j.PairedWithID = nil, nil
			continue
		}

		if out.DeltaI.A+out.DeltaJ.A != 0 || out.DeltaI.B+out.DeltaJ.B != 0 || out.DeltaI.M+out.DeltaJ.M != 0 {
			return &InvariantViolation{Tick: tick, Invariant: "conservation", Detail: "trade deltas did not sum to zero"}
		}

		if int64(i.Inventory.A)+out.DeltaI.A < 0 || int64(i.Inventory.B)+out.DeltaI.B < 0 || int64(i.Inventory.M)+out.DeltaI.M < 0 ||
			int64(j.Inventory.A)+out.DeltaJ.A < 0 || int64(j.Inventory.B)+out.DeltaJ.B < 0 || int64(j.Inventory.M)+out.DeltaJ.M < 0 {
			return &InvariantViolation{Tick: tick, Invariant: "non_negativity", Detail: "trade produced a negative inventory"}
		}
		newI := i.Inventory.Add(out.DeltaI)
		newJ := j.Inventory.Add(out.DeltaJ)

		i.Inventory, j.Inventory = newI, newJ
		i.InventoryChanged, j.InventoryChanged = true, true
		i.PairedWithID, j.PairedWithID = nil, nil

		buyer, seller := i, j
		if !iIsBuyer(out) {
			buyer, seller = j, i
		}
		s.sink.OnTradeExecuted(telemetry.TradeExecuted{
			Tick: tick, BuyerID: buyer.ID, SellerID: seller.ID, Pos: buyer.Pos,
			DA: out.DA, DB: out.DB, DM: out.DM, Price: out.Price, Pair: out.Pair,
			BuyerLambda: buyer.MoneyParams.Lambda, SellerLambda: seller.MoneyParams.Lambda,
		})
	}
	return nil
}

// iIsBuyer reports whether the first agent passed to Negotiate received the
// sold good (rather than paid it away) in this outcome.
func iIsBuyer(out bargaining.Outcome) bool {
	switch out.Pair {
	case econ.PairBinM:
		return out.DeltaI.B > 0
	default:
		return out.DeltaI.A > 0
	}
}

// forage lets each agent standing on a harvestable cell whose resource
// matches a demanded good harvest min(forage_rate, cell.amount) units.
// Co-located agents harvest in id order, sharing the cell's remaining
// amount.
func (s *Simulation) forage(tick uint64) {
	for _, a := range sortedRoster(s.Roster) {
		cell := s.Grid.Cell(a.Pos)
		if cell.Type == grid.ResourceNone || cell.Amount == 0 {
			continue
		}
		if !demandsGood(a, cell.Type) {
			continue
		}
		taken := s.Grid.Harvest(a.Pos, s.Scenario.Params.ForageRate, tick)
		if taken == 0 {
			continue
		}
		switch cell.Type {
		case grid.ResourceA:
			a.Inventory.A += taken
		case grid.ResourceB:
			a.Inventory.B += taken
		}
		a.InventoryChanged = true
	}
}

// demandsGood reports whether a's marginal utility for the good held by a
// resource cell of this type is positive — the same reservation signal
// search's forage-scoring uses to decide a cell is worth walking to. A zero
// or negative marginal utility means the agent is satiated in that good, so
// it leaves the cell for someone who still wants it.
func demandsGood(a *agents.Agent, t grid.ResourceType) bool {
	switch t {
	case grid.ResourceA:
		return a.Utility.MUA(a.Inventory.A, a.Inventory.B) > 0
	case grid.ResourceB:
		return a.Utility.MUB(a.Inventory.A, a.Inventory.B) > 0
	default:
		return false
	}
}

func (s *Simulation) emitSnapshots(tick uint64) {
	agentFreq := s.Scenario.Params.AgentSnapshotFrequency
	if agentFreq != 0 && tick%agentFreq == 0 {
		for _, a := range sortedRoster(s.Roster) {
			s.sink.OnAgentSnapshot(telemetry.AgentSnapshot{
				Tick: tick, AgentID: a.ID, Pos: a.Pos, Inventory: a.Inventory,
				UtilityTag: a.Utility.Tag(), Quotes: a.Quotes,
			})
		}
	}

	resourceFreq := s.Scenario.Params.ResourceSnapshotFrequency
	if resourceFreq != 0 && tick%resourceFreq == 0 {
		s.Grid.ForEachResourceCell(func(pos grid.Pos, cell grid.Cell) {
			s.sink.OnResourceSnapshot(telemetry.ResourceSnapshot{
				Tick: tick, Pos: pos, Type: cell.Type, Amount: cell.Amount,
			})
		})
	}
}

func sortedRoster(roster []*agents.Agent) []*agents.Agent {
	out := make([]*agents.Agent, len(roster))
	copy(out, roster)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Close flushes the telemetry sink. Idempotent.
func (s *Simulation) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.sink.Close()
}
