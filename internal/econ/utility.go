// Package econ implements the five utility functional forms, their marginal
// utilities and reservation-price bounds, the money utility term, and the
// quote engine built on top of them.
package econ

import (
	"math"

	"github.com/talgya/mini-world/internal/numeric"
)

// Utility is the per-agent preference function over goods A and B. It is
// immutable after construction — the tagged-variant dispatch the design
// calls for, implemented as five small structs rather than a virtual table,
// since each variant's math is a handful of float operations.
type Utility interface {
	// UGoods returns u_goods(A, B).
	UGoods(a, b uint32) float64
	// MUA returns the marginal utility of good A at (a, b).
	MUA(a, b uint32) float64
	// MUB returns the marginal utility of good B at (a, b).
	MUB(a, b uint32) float64
	// MRS returns the marginal rate of substitution of A in terms of B.
	MRS(a, b uint32, eps float64) float64
	// ReservationBounds returns (p_min, p_max) for trading A priced in B.
	ReservationBounds(a, b uint32, eps float64) (pMin, pMax float64)
	// Tag names the variant for telemetry (utility_tag).
	Tag() string
}

// CES implements U = [wA*A^ρ + wB*B^ρ]^(1/ρ), ρ≠1, wA,wB>0.
type CES struct {
	Rho, WA, WB float64
}

func (u CES) Tag() string { return "ces" }

func (u CES) UGoods(a, b uint32) float64 {
	if a == 0 && b == 0 {
		return 0
	}
	if u.Rho < 0 && (a == 0 || b == 0) {
		return 0
	}
	var termA, termB float64
	if a > 0 {
		termA = u.WA * math.Pow(float64(a), u.Rho)
	}
	if b > 0 {
		termB = u.WB * math.Pow(float64(b), u.Rho)
	}
	total := termA + termB
	if total <= 0 {
		return 0
	}
	return math.Pow(total, 1.0/u.Rho)
}

func (u CES) MRS(a, b uint32, eps float64) float64 {
	aSafe, bSafe := float64(a), float64(b)
	if a == 0 || b == 0 {
		aSafe, bSafe = aSafe+eps, bSafe+eps
	}
	ratio := aSafe / bSafe
	return (u.WA / u.WB) * math.Pow(ratio, u.Rho-1)
}

// MUA and MUB are derived analytically for the quote engine's money pairs;
// ∂U/∂A = wA·A^(ρ-1)·U^(1-ρ) when U>0, matching the CES identity U^ρ =
// wA·A^ρ + wB·B^ρ.
func (u CES) MUA(a, b uint32) float64 {
	total := u.UGoods(a, b)
	if total <= 0 || a == 0 {
		return 0
	}
	return u.WA * math.Pow(float64(a), u.Rho-1) * math.Pow(total, 1-u.Rho)
}

func (u CES) MUB(a, b uint32) float64 {
	total := u.UGoods(a, b)
	if total <= 0 || b == 0 {
		return 0
	}
	return u.WB * math.Pow(float64(b), u.Rho-1) * math.Pow(total, 1-u.Rho)
}

func (u CES) ReservationBounds(a, b uint32, eps float64) (float64, float64) {
	mrs := u.MRS(a, b, eps)
	return mrs, mrs
}

// Linear implements U = vA*A + vB*B, vA,vB>0.
type Linear struct {
	VA, VB float64
}

func (u Linear) Tag() string                       { return "linear" }
func (u Linear) UGoods(a, b uint32) float64         { return u.VA*float64(a) + u.VB*float64(b) }
func (u Linear) MUA(a, b uint32) float64            { return u.VA }
func (u Linear) MUB(a, b uint32) float64            { return u.VB }
func (u Linear) MRS(a, b uint32, eps float64) float64 { return u.VA / u.VB }
func (u Linear) ReservationBounds(a, b uint32, eps float64) (float64, float64) {
	mrs := u.MRS(a, b, eps)
	return mrs, mrs
}

// Quadratic implements U = -σA(A-A*)² - σB(B-B*)² - γ(A-A*)(B-B*).
// MU can be negative past the bliss point; MRS is undefined there.
type Quadratic struct {
	AStar, BStar   float64
	SigmaA, SigmaB float64
	Gamma          float64
}

func (u Quadratic) Tag() string { return "quadratic" }

func (u Quadratic) UGoods(a, b uint32) float64 {
	da := float64(a) - u.AStar
	db := float64(b) - u.BStar
	return -u.SigmaA*da*da - u.SigmaB*db*db - u.Gamma*da*db
}

func (u Quadratic) MUA(a, b uint32) float64 {
	da := float64(a) - u.AStar
	db := float64(b) - u.BStar
	return -2*u.SigmaA*da - u.Gamma*db
}

func (u Quadratic) MUB(a, b uint32) float64 {
	da := float64(a) - u.AStar
	db := float64(b) - u.BStar
	return -2*u.SigmaB*db - u.Gamma*da
}

// MRS is undefined at the bliss point; callers needing that distinction
// should consult ReservationBounds, which encodes the sentinel directly.
// Away from it, MRS = MU_A / MU_B.
func (u Quadratic) MRS(a, b uint32, eps float64) float64 {
	muB := u.MUB(a, b)
	if muB == 0 {
		muB = eps
	}
	return u.MUA(a, b) / muB
}

// ReservationBounds implements the four-way sentinel table from the spec:
// both MU>0 → (mrs, mrs); MU_A<=0<MU_B → give A away at epsilon; MU_B<=0<MU_A
// → demand an effectively infinite price; both <=0 → no-trade sentinel with
// p_min > p_max.
func (u Quadratic) ReservationBounds(a, b uint32, eps float64) (float64, float64) {
	const demandInfinity = 1e6
	muA := u.MUA(a, b)
	muB := u.MUB(a, b)
	switch {
	case muA > 0 && muB > 0:
		mrs := muA / muB
		return mrs, mrs
	case muA <= 0 && muB > 0:
		return eps, eps
	case muB <= 0 && muA > 0:
		return demandInfinity, demandInfinity
	default:
		// Both non-positive: no trade. Sentinel is any pMin > pMax.
		return 1, 0
	}
}

// Translog implements ln U = α0 + αA·lnA + αB·lnB + ½βAA(lnA)² + ½βBB(lnB)² +
// βAB·lnA·lnB, αA,αB>0, with epsilon-shifted zeros and an overflow clamp.
type Translog struct {
	Alpha0, AlphaA, AlphaB    float64
	BetaAA, BetaBB, BetaAB    float64
}

const translogLnUMax = 700

func (u Translog) Tag() string { return "translog" }

func (u Translog) lnU(a, b float64) float64 {
	lnA, lnB := math.Log(a), math.Log(b)
	return u.Alpha0 + u.AlphaA*lnA + u.AlphaB*lnB +
		0.5*u.BetaAA*lnA*lnA + 0.5*u.BetaBB*lnB*lnB + u.BetaAB*lnA*lnB
}

func (u Translog) safeGoods(a, b uint32, eps float64) (float64, float64) {
	aa, bb := float64(a), float64(b)
	if a == 0 {
		aa = eps
	}
	if b == 0 {
		bb = eps
	}
	return aa, bb
}

func (u Translog) UGoods(a, b uint32) float64 {
	aa, bb := u.safeGoods(a, b, 1e-12)
	ln := numeric.Clamp(u.lnU(aa, bb), -translogLnUMax, translogLnUMax)
	return math.Exp(ln)
}

// dLnU_dA and dLnU_dB are the log-space partials used for MRS and, via the
// chain rule dU/dA = U * dLnU/dA, for the marginal utilities.
func (u Translog) dLnUdA(a, b float64) float64 {
	lnA, lnB := math.Log(a), math.Log(b)
	return (u.AlphaA + u.BetaAA*lnA + u.BetaAB*lnB) / a
}

func (u Translog) dLnUdB(a, b float64) float64 {
	lnA, lnB := math.Log(a), math.Log(b)
	return (u.AlphaB + u.BetaBB*lnB + u.BetaAB*lnA) / b
}

func (u Translog) MUA(a, b uint32) float64 {
	aa, bb := u.safeGoods(a, b, 1e-12)
	return u.UGoods(a, b) * u.dLnUdA(aa, bb)
}

func (u Translog) MUB(a, b uint32) float64 {
	aa, bb := u.safeGoods(a, b, 1e-12)
	return u.UGoods(a, b) * u.dLnUdB(aa, bb)
}

func (u Translog) MRS(a, b uint32, eps float64) float64 {
	aa, bb := u.safeGoods(a, b, eps)
	return u.dLnUdA(aa, bb) / u.dLnUdB(aa, bb)
}

func (u Translog) ReservationBounds(a, b uint32, eps float64) (float64, float64) {
	mrs := u.MRS(a, b, eps)
	return mrs, mrs
}

// StoneGeary implements U = αA·ln(A-γA) + αB·ln(B-γB), αA,αB>0, γA,γB≥0.
type StoneGeary struct {
	AlphaA, AlphaB float64
	GammaA, GammaB float64
}

func (u StoneGeary) Tag() string { return "stone_geary" }

func (u StoneGeary) aboveA(a uint32) bool { return float64(a) > u.GammaA }
func (u StoneGeary) aboveB(b uint32) bool { return float64(b) > u.GammaB }

func (u StoneGeary) surplusA(a uint32, eps float64) float64 {
	s := float64(a) - u.GammaA
	if s <= 0 {
		return eps
	}
	return s
}

func (u StoneGeary) surplusB(b uint32, eps float64) float64 {
	s := float64(b) - u.GammaB
	if s <= 0 {
		return eps
	}
	return s
}

func (u StoneGeary) UGoods(a, b uint32) float64 {
	const eps = 1e-12
	return u.AlphaA*math.Log(u.surplusA(a, eps)) + u.AlphaB*math.Log(u.surplusB(b, eps))
}

func (u StoneGeary) MUA(a, b uint32) float64 {
	return u.AlphaA / u.surplusA(a, 1e-12)
}

func (u StoneGeary) MUB(a, b uint32) float64 {
	return u.AlphaB / u.surplusB(b, 1e-12)
}

func (u StoneGeary) MRS(a, b uint32, eps float64) float64 {
	return u.MUA(a, b) / u.MUB(a, b)
}

// ReservationBounds implements the three subsistence sentinels from the
// spec: below subsistence in A alone, or in B alone, both return the
// "demand infinity" sentinel (a desperate agent cannot spare its scarce
// good cheaply in either direction); below subsistence in both returns a
// neutral (1.0, 1.0) since neither MU is informative.
func (u StoneGeary) ReservationBounds(a, b uint32, eps float64) (float64, float64) {
	const demandInfinity = 1e6
	aboveA, aboveB := u.aboveA(a), u.aboveB(b)
	switch {
	case aboveA && aboveB:
		mrs := u.MRS(a, b, eps)
		return mrs, mrs
	case !aboveA && !aboveB:
		return 1.0, 1.0
	default:
		return demandInfinity, demandInfinity
	}
}
