// Package bargaining implements the compensating-block trade search: given
// a matched pair of agents, find the best feasible, mutually-improving
// integer trade across every regime-permitted exchange pair.
package bargaining

import (
	"math"

	"github.com/talgya/mini-world/internal/agents"
	"github.com/talgya/mini-world/internal/econ"
	"github.com/talgya/mini-world/internal/telemetry"
)

// Params are the scenario parameters the bargaining search needs.
type Params struct {
	DAMax      int
	Epsilon    float64
	MoneyScale float64
	Regime     econ.Regime

	// Tick labels the TradeAttempt records this call may emit.
	Tick uint64

	// OnAttempt, when non-nil, receives one TradeAttempt per (pair, dA)
	// candidate evaluated during the search — the DEBUG-level diagnostics
	// stream. Callers leave it nil outside DEBUG level to skip the work.
	OnAttempt func(telemetry.TradeAttempt)
}

// Outcome is the result of one bargaining attempt between a matched pair.
type Outcome struct {
	Traded bool

	Pair  econ.Pair
	DA    int64
	DB    int64 // non-zero only for the A<->B instrument
	DM    int64 // non-zero only for the A<->M / B<->M instruments
	Price float64

	// DeltaI/DeltaJ are the signed inventory deltas applied to each side.
	// DeltaJ is always DeltaI.Negate().
	DeltaI agents.Delta
	DeltaJ agents.Delta

	SurplusI, SurplusJ float64
}

// attemptInfo carries the diagnostics evaluateTrade computed for one
// candidate, whether or not that candidate became a trade.
type attemptInfo struct {
	Feasible  bool
	Improving bool
	BuyerGain float64
	SellerGain float64
}

// pairOrder fixes the tie-break order required by the spec: A↔B < A↔M < B↔M.
var pairOrder = map[econ.Pair]int{
	econ.PairAinB: 0,
	econ.PairBinA: 0, // same instrument, opposite direction; never both tried
	econ.PairAinM: 1,
	econ.PairBinM: 2,
}

// Negotiate searches every regime-allowed exchange pair for the best
// feasible, strictly-mutually-improving integer trade between i and j. It
// does not mutate either agent; callers apply Outcome.DeltaI/DeltaJ and set
// inventory_changed themselves.
func Negotiate(i, j *agents.Agent, p Params) Outcome {
	var best Outcome
	haveBest := false

	for _, instrument := range []econ.Pair{econ.PairAinB, econ.PairAinM, econ.PairBinM} {
		if !regimeAllows(p.Regime, instrument) {
			continue
		}
		cand, ok := searchInstrument(i, j, instrument, p)
		if !ok {
			continue
		}
		if !haveBest || better(cand, best) {
			best = cand
			haveBest = true
		}
	}

	if !haveBest {
		return Outcome{Traded: false}
	}
	return best
}

func regimeAllows(regime econ.Regime, instrument econ.Pair) bool {
	for _, p := range econ.AllowedPairs(regime) {
		if p == instrument {
			return true
		}
	}
	return false
}

// better reports whether a beats b: the higher total surplus
// (SurplusI+SurplusJ) wins; on equal surplus the lower pair order wins, then
// the smaller dA, matching "A↔B < A↔M < B↔M, then smaller dA".
func better(a, b Outcome) bool {
	sa, sb := a.SurplusI+a.SurplusJ, b.SurplusI+b.SurplusJ
	if sa != sb {
		return sa > sb
	}
	if pairOrder[a.Pair] != pairOrder[b.Pair] {
		return pairOrder[a.Pair] < pairOrder[b.Pair]
	}
	return a.DA < b.DA
}

// searchInstrument scans dA = 1..DAMax for the best feasible, strictly
// mutually-improving trade on one instrument, returning the highest-surplus
// trade found (or ok=false if none is feasible/improving).
func searchInstrument(i, j *agents.Agent, instrument econ.Pair, p Params) (Outcome, bool) {
	iq, iok := i.Quotes[instrument]
	jq, jok := j.Quotes[instrument]
	if !iok || !jok {
		return Outcome{}, false
	}

	// Determine buyer/seller by which side of the overlap is positive.
	// Buyer is whoever's bid exceeds the other's ask; that buyer pays the
	// "price" good/money and receives the sold good.
	var buyer, seller *agents.Agent
	var buyerBid, sellerAsk float64
	switch {
	case iq.Bid-jq.Ask > 0:
		buyer, seller = i, j
		buyerBid, sellerAsk = iq.Bid, jq.Ask
	case jq.Bid-iq.Ask > 0:
		buyer, seller = j, i
		buyerBid, sellerAsk = jq.Bid, iq.Ask
	default:
		return Outcome{}, false
	}

	mid := (sellerAsk + buyerBid) / 2

	var best Outcome
	haveBest := false

	for da := int64(1); da <= int64(p.DAMax); da++ {
		price := mid
		if instrument == econ.PairAinM || instrument == econ.PairBinM {
			price *= p.MoneyScale
		}
		paid := roundHalfToEven(price * float64(da))
		if paid < 0 {
			continue
		}

		cand, info, ok := evaluateTrade(buyer, seller, instrument, da, paid, price, p.Epsilon)
		if p.OnAttempt != nil {
			p.OnAttempt(telemetry.TradeAttempt{
				Tick:       p.Tick,
				BuyerID:    buyer.ID,
				SellerID:   seller.ID,
				Pair:       instrument,
				DA:         da,
				Paid:       paid,
				Feasible:   info.Feasible,
				Improving:  info.Improving,
				BuyerGain:  info.BuyerGain,
				SellerGain: info.SellerGain,
			})
		}
		if !ok {
			continue
		}
		if !haveBest || cand.SurplusI+cand.SurplusJ > best.SurplusI+best.SurplusJ {
			// Re-map surplus/deltas back onto (i, j) order for the caller.
			if buyer == i {
				best = cand
			} else {
				best = Outcome{
					Traded:   cand.Traded,
					Pair:     cand.Pair,
					DA:       cand.DA,
					DB:       cand.DB,
					DM:       cand.DM,
					Price:    cand.Price,
					DeltaI:   cand.DeltaJ,
					DeltaJ:   cand.DeltaI,
					SurplusI: cand.SurplusJ,
					SurplusJ: cand.SurplusI,
				}
			}
			haveBest = true
		}
	}

	return best, haveBest
}

// evaluateTrade checks feasibility and strict mutual improvement for one
// candidate (buyer, seller, dA, paid) combination, returning the outcome
// expressed in (buyer, seller) order — i.e. DeltaI is the buyer's delta —
// plus the diagnostics the DEBUG telemetry stream reports regardless of
// whether the candidate became a trade.
func evaluateTrade(buyer, seller *agents.Agent, instrument econ.Pair, da, paid int64, price float64, eps float64) (Outcome, attemptInfo, bool) {
	var buyerDelta agents.Delta
	switch instrument {
	case econ.PairAinB:
		buyerDelta = agents.Delta{A: da, B: -paid}
	case econ.PairAinM:
		buyerDelta = agents.Delta{A: da, M: -paid}
	case econ.PairBinM:
		buyerDelta = agents.Delta{B: da, M: -paid}
	default:
		return Outcome{}, attemptInfo{}, false
	}
	sellerDelta := buyerDelta.Negate()

	if !feasible(buyer, buyerDelta) || !feasible(seller, sellerDelta) {
		return Outcome{}, attemptInfo{Feasible: false}, false
	}

	buyerInvPost := buyer.Inventory.Add(buyerDelta)
	sellerInvPost := seller.Inventory.Add(sellerDelta)

	buyerUPre := econ.UTotal(buyer.Utility, buyer.Inventory.A, buyer.Inventory.B, buyer.Inventory.M, buyer.MoneyParams, eps)
	buyerUPost := econ.UTotal(buyer.Utility, buyerInvPost.A, buyerInvPost.B, buyerInvPost.M, buyer.MoneyParams, eps)
	sellerUPre := econ.UTotal(seller.Utility, seller.Inventory.A, seller.Inventory.B, seller.Inventory.M, seller.MoneyParams, eps)
	sellerUPost := econ.UTotal(seller.Utility, sellerInvPost.A, sellerInvPost.B, sellerInvPost.M, seller.MoneyParams, eps)

	buyerGain := buyerUPost - buyerUPre
	sellerGain := sellerUPost - sellerUPre
	improving := buyerGain > 0 && sellerGain > 0

	info := attemptInfo{Feasible: true, Improving: improving, BuyerGain: buyerGain, SellerGain: sellerGain}
	if !improving {
		return Outcome{}, info, false
	}

	var db, dm int64
	switch instrument {
	case econ.PairAinB:
		db = paid
	case econ.PairAinM, econ.PairBinM:
		dm = paid
	}

	return Outcome{
		Traded:   true,
		Pair:     instrument,
		DA:       da,
		DB:       db,
		DM:       dm,
		Price:    price,
		DeltaI:   buyerDelta,
		DeltaJ:   sellerDelta,
		SurplusI: buyerGain,
		SurplusJ: sellerGain,
	}, info, true
}

func feasible(a *agents.Agent, delta agents.Delta) bool {
	if int64(a.Inventory.A)+delta.A < 0 {
		return false
	}
	if int64(a.Inventory.B)+delta.B < 0 {
		return false
	}
	if int64(a.Inventory.M)+delta.M < 0 {
		return false
	}
	return true
}

// roundHalfToEven implements banker's rounding for the compensating-block
// price computation, matching the reference implementation's use of
// round-half-to-even for integer quantity derivation.
func roundHalfToEven(v float64) int64 {
	return int64(math.RoundToEven(v))
}
