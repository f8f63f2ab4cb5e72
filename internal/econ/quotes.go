package econ

import (
	"math"

	"github.com/talgya/mini-world/internal/numeric"
)

// Pair names one of the three tradeable exchange pairs.
type Pair string

const (
	PairAinB Pair = "A_in_B"
	PairBinA Pair = "B_in_A"
	PairAinM Pair = "A_in_M"
	PairBinM Pair = "B_in_M"
)

// Quote holds the ask/bid and underlying reservation bounds for one pair.
// PMin/PMax are left at zero for the monetary pairs, which the spec defines
// only in terms of ask/bid.
type Quote struct {
	Ask, Bid, PMin, PMax float64
}

// QuoteSet is the full per-agent quote dictionary keyed by pair.
type QuoteSet map[Pair]Quote

// Regime is the scenario-wide exchange-pair visibility filter.
type Regime string

const (
	RegimeBarterOnly Regime = "barter_only"
	RegimeMoneyOnly  Regime = "money_only"
	RegimeMixed      Regime = "mixed"
)

// Compute derives the full quote set for an agent's current inventory,
// before regime filtering. moneyScale and money are ignored when
// hasMoney is false, matching an M=0 / money-less scenario.
func Compute(u Utility, a, b, m uint32, money MoneyParams, spread, eps, moneyScale float64, hasMoney bool) QuoteSet {
	qs := make(QuoteSet, 4)

	pMinAB, pMaxAB := u.ReservationBounds(a, b, eps)
	askAB := clampNonNeg(pMinAB * (1 + spread))
	bidAB := clampNonNeg(pMaxAB * (1 - spread))
	qs[PairAinB] = Quote{
		Ask:  askAB,
		Bid:  bidAB,
		PMin: clampNonNeg(pMinAB),
		PMax: clampNonNeg(pMaxAB),
	}

	// Reciprocal pair B<->A: invert the A-in-B bounds, guarding near-zero
	// denominators the same way the reference implementation does.
	var pMinBA, pMaxBA float64
	if pMaxAB > eps {
		pMinBA = 1.0 / pMaxAB
	} else {
		pMinBA = 1e6
	}
	if pMinAB > eps {
		pMaxBA = 1.0 / pMinAB
	} else {
		pMaxBA = 1e6
	}
	askBA := clampNonNeg(pMinBA * (1 + spread))
	bidBA := clampNonNeg(pMaxBA * (1 - spread))
	qs[PairBinA] = Quote{
		Ask:  askBA,
		Bid:  bidBA,
		PMin: clampNonNeg(pMinBA),
		PMax: clampNonNeg(pMaxBA),
	}

	if !hasMoney {
		return qs
	}

	muA, muB := u.MUA(a, b), u.MUB(a, b)
	lambda := money.Lambda
	if lambda == 0 {
		lambda = eps
	}

	priceAM := (muA / lambda) * moneyScale
	qs[PairAinM] = Quote{
		Ask: clampNonNeg(priceAM * (1 + spread)),
		Bid: clampNonNeg(priceAM * (1 - spread)),
	}

	priceBM := (muB / lambda) * moneyScale
	qs[PairBinM] = Quote{
		Ask: clampNonNeg(priceBM * (1 + spread)),
		Bid: clampNonNeg(priceBM * (1 - spread)),
	}

	return qs
}

func clampNonNeg(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return numeric.ClampMin(v, 0)
}

// FilterByRegime returns the subset of qs visible under regime. An unknown
// regime value warns (via the returned bool) and behaves as barter_only.
func FilterByRegime(qs QuoteSet, regime Regime) (filtered QuoteSet, unknownRegime bool) {
	switch regime {
	case RegimeBarterOnly:
		return barterOnly(qs), false
	case RegimeMoneyOnly:
		return moneyOnly(qs), false
	case RegimeMixed:
		out := make(QuoteSet, len(qs))
		for k, v := range qs {
			out[k] = v
		}
		return out, false
	default:
		return barterOnly(qs), true
	}
}

func barterOnly(qs QuoteSet) QuoteSet {
	out := make(QuoteSet, 2)
	if q, ok := qs[PairAinB]; ok {
		out[PairAinB] = q
	}
	if q, ok := qs[PairBinA]; ok {
		out[PairBinA] = q
	}
	return out
}

func moneyOnly(qs QuoteSet) QuoteSet {
	out := make(QuoteSet, 2)
	if q, ok := qs[PairAinM]; ok {
		out[PairAinM] = q
	}
	if q, ok := qs[PairBinM]; ok {
		out[PairBinM] = q
	}
	return out
}

// AllowedPairs returns the exchange pairs the bargaining search should try,
// in the tie-break order A<->B < A<->M < B<->M the spec requires.
func AllowedPairs(regime Regime) []Pair {
	switch regime {
	case RegimeMoneyOnly:
		return []Pair{PairAinM, PairBinM}
	case RegimeMixed:
		return []Pair{PairAinB, PairAinM, PairBinM}
	default: // barter_only and unknown regimes
		return []Pair{PairAinB}
	}
}
