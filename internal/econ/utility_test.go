package econ

import (
	"math"
	"testing"
)

const testEps = 1e-12

func TestCESReservationBoundsEqualMRS(t *testing.T) {
	u := CES{Rho: -0.5, WA: 1, WB: 1}
	pMin, pMax := u.ReservationBounds(10, 10, testEps)
	if pMin != pMax {
		t.Fatalf("CES bounds should collapse to MRS, got (%v, %v)", pMin, pMax)
	}
	if pMin != u.MRS(10, 10, testEps) {
		t.Fatalf("expected bounds to equal MRS")
	}
}

func TestLinearMRSConstant(t *testing.T) {
	u := Linear{VA: 2, VB: 4}
	for _, inv := range [][2]uint32{{1, 1}, {5, 50}, {100, 1}} {
		if got := u.MRS(inv[0], inv[1], testEps); got != 0.5 {
			t.Errorf("Linear MRS should be constant vA/vB=0.5, got %v at %v", got, inv)
		}
	}
}

func TestQuadraticAtBliss(t *testing.T) {
	u := Quadratic{AStar: 10, BStar: 10, SigmaA: 5, SigmaB: 5}
	if got := u.UGoods(10, 10); got != 0 {
		t.Errorf("utility at bliss point should be 0, got %v", got)
	}
	if muA, muB := u.MUA(10, 10), u.MUB(10, 10); muA != 0 || muB != 0 {
		t.Errorf("marginal utilities at bliss should be 0, got (%v, %v)", muA, muB)
	}
}

func TestQuadraticReservationBoundsSentinels(t *testing.T) {
	u := Quadratic{AStar: 10, BStar: 10, SigmaA: 5, SigmaB: 5}

	// Below bliss in both: standard case, both MU positive.
	pMin, pMax := u.ReservationBounds(5, 5, testEps)
	if pMin != pMax || pMin <= 0 {
		t.Errorf("expected positive equal bounds below bliss, got (%v, %v)", pMin, pMax)
	}

	// Above bliss in both: both MU <= 0, no-trade sentinel pMin > pMax.
	pMin, pMax = u.ReservationBounds(15, 15, testEps)
	if !(pMin > pMax) {
		t.Errorf("expected no-trade sentinel (pMin>pMax) above bliss, got (%v, %v)", pMin, pMax)
	}

	// A above bliss, B below: MU_A<=0<MU_B -> give A away at epsilon.
	pMin, pMax = u.ReservationBounds(15, 5, testEps)
	if pMin != testEps || pMax != testEps {
		t.Errorf("expected epsilon sentinel, got (%v, %v)", pMin, pMax)
	}

	// A below bliss, B above: MU_B<=0<MU_A -> demand infinity.
	pMin, pMax = u.ReservationBounds(5, 15, testEps)
	if pMin != 1e6 || pMax != 1e6 {
		t.Errorf("expected demand-infinity sentinel, got (%v, %v)", pMin, pMax)
	}
}

func TestTranslogCobbDouglasNesting(t *testing.T) {
	u := Translog{Alpha0: 0, AlphaA: 0.6, AlphaB: 0.4}
	a, b := uint32(10), uint32(20)
	wantLnU := 0.6*math.Log(10) + 0.4*math.Log(20)
	want := math.Exp(wantLnU)
	if got := u.UGoods(a, b); math.Abs(got-want) > 1e-9 {
		t.Errorf("translog with zero betas should match Cobb-Douglas, got %v want %v", got, want)
	}
}

func TestTranslogOverflowClamp(t *testing.T) {
	u := Translog{Alpha0: 100, AlphaA: 50, AlphaB: 50}
	got := u.UGoods(1000, 1000)
	if got != math.Exp(translogLnUMax) {
		t.Errorf("expected clamp at exp(700), got %v", got)
	}
}

func TestStoneGearyCobbDouglasNesting(t *testing.T) {
	u := StoneGeary{AlphaA: 0.6, AlphaB: 0.4}
	a, b := uint32(10), uint32(20)
	want := 0.6*math.Log(10) + 0.4*math.Log(20)
	if got := u.UGoods(a, b); math.Abs(got-want) > 1e-9 {
		t.Errorf("stone-geary with zero gammas should match Cobb-Douglas, got %v want %v", got, want)
	}
}

func TestStoneGearyReservationBoundsSentinels(t *testing.T) {
	u := StoneGeary{AlphaA: 0.6, AlphaB: 0.4, GammaA: 5, GammaB: 3}

	pMin, pMax := u.ReservationBounds(10, 10, testEps)
	if pMin != pMax {
		t.Errorf("above subsistence should collapse to MRS, got (%v, %v)", pMin, pMax)
	}

	pMin, pMax = u.ReservationBounds(5, 10, testEps)
	if pMin != 1e6 || pMax != 1e6 {
		t.Errorf("below subsistence in A should demand infinity, got (%v, %v)", pMin, pMax)
	}

	pMin, pMax = u.ReservationBounds(10, 3, testEps)
	if pMin != 1e6 || pMax != 1e6 {
		t.Errorf("below subsistence in B should demand infinity, got (%v, %v)", pMin, pMax)
	}

	pMin, pMax = u.ReservationBounds(4, 2, testEps)
	if pMin != 1.0 || pMax != 1.0 {
		t.Errorf("below subsistence in both should be neutral (1,1), got (%v, %v)", pMin, pMax)
	}
}

func TestStoneGearyDesperateTrading(t *testing.T) {
	u := StoneGeary{AlphaA: 0.6, AlphaB: 0.4, GammaA: 5, GammaB: 3}
	desperate := u.MRS(6, 50, testEps)
	normal := u.MRS(50, 50, testEps)
	if desperate <= normal*10 {
		t.Errorf("MRS near subsistence should be far larger than far from it: %v vs %v", desperate, normal)
	}
}
