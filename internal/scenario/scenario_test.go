package scenario

import "testing"

func baseScenario() Scenario {
	return Scenario{
		SchemaVersion: "1",
		Name:          "test",
		GridSize:      10,
		AgentCount:    4,
		InitialA:      InitialInventorySpec{Kind: InventoryScalar, Scalar: 5},
		InitialB:      InitialInventorySpec{Kind: InventoryScalar, Scalar: 5},
		InitialM:      InitialInventorySpec{Kind: InventoryScalar, Scalar: 0},
		UtilityMix: []UtilitySpec{
			{Kind: UtilityCES, Weight: 1.0, CES: CESParams{Rho: 0.5, WA: 0.5, WB: 0.5}},
		},
		ResourceSeed: ResourceSeedConfig{Density: 0.2, Amount: 5},
		Params: Params{
			Spread: 0.1, VisionRadius: 5, InteractionRadius: 1,
			MoveBudgetPerTick: 1, DAMax: 5, ForageRate: 1, Epsilon: 1e-9,
			Beta: 0.95, ResourceMaxAmount: 5,
		},
		ExchangeRegime: RegimeBarterOnly,
	}
}

func TestNewValidScenario(t *testing.T) {
	s, err := New(baseScenario())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Fingerprint() == "" {
		t.Fatal("expected non-empty fingerprint")
	}
}

func TestNewDeterministicFingerprint(t *testing.T) {
	a, err := New(baseScenario())
	if err != nil {
		t.Fatal(err)
	}
	b, err := New(baseScenario())
	if err != nil {
		t.Fatal(err)
	}
	if a.Fingerprint() != b.Fingerprint() {
		t.Fatalf("fingerprints differ for identical scenarios: %s vs %s", a.Fingerprint(), b.Fingerprint())
	}
}

func TestValidateRejectsBadSchemaVersion(t *testing.T) {
	s := baseScenario()
	s.SchemaVersion = "99"
	_, err := New(s)
	assertConfigErrorKind(t, err, KindSchemaVersionUnsupported)
}

func TestValidateRejectsWeightSum(t *testing.T) {
	s := baseScenario()
	s.UtilityMix = []UtilitySpec{
		{Kind: UtilityCES, Weight: 0.3, CES: CESParams{Rho: 0.5, WA: 0.5, WB: 0.5}},
	}
	_, err := New(s)
	assertConfigErrorKind(t, err, KindInvalidWeightSum)
}

func TestValidateRejectsCESRhoOne(t *testing.T) {
	s := baseScenario()
	s.UtilityMix = []UtilitySpec{
		{Kind: UtilityCES, Weight: 1.0, CES: CESParams{Rho: 1.0, WA: 0.5, WB: 0.5}},
	}
	_, err := New(s)
	assertConfigErrorKind(t, err, KindInvalidUtilityParams)
}

func TestValidateRejectsDensityOutOfRange(t *testing.T) {
	s := baseScenario()
	s.ResourceSeed.Density = 1.5
	_, err := New(s)
	assertConfigErrorKind(t, err, KindDensityOutOfRange)
}

func TestValidateRejectsUnknownRegime(t *testing.T) {
	s := baseScenario()
	s.ExchangeRegime = "bogus"
	_, err := New(s)
	assertConfigErrorKind(t, err, KindRegimeUnknown)
}

func TestValidateMoneyOnlyRequiresMoneyBlock(t *testing.T) {
	s := baseScenario()
	s.ExchangeRegime = RegimeMoneyOnly
	_, err := New(s)
	assertConfigErrorKind(t, err, KindInvalidParam)
}

func TestValidateTableOfParamBounds(t *testing.T) {
	cases := []struct {
		name  string
		break_ func(*Scenario)
	}{
		{"negative spread", func(s *Scenario) { s.Params.Spread = -1 }},
		{"zero move budget", func(s *Scenario) { s.Params.MoveBudgetPerTick = 0 }},
		{"zero dA_max", func(s *Scenario) { s.Params.DAMax = 0 }},
		{"zero forage rate", func(s *Scenario) { s.Params.ForageRate = 0 }},
		{"zero epsilon", func(s *Scenario) { s.Params.Epsilon = 0 }},
		{"beta out of range", func(s *Scenario) { s.Params.Beta = 1.5 }},
		{"zero resource max", func(s *Scenario) { s.Params.ResourceMaxAmount = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := baseScenario()
			tc.break_(&s)
			_, err := New(s)
			assertConfigErrorKind(t, err, KindInvalidParam)
		})
	}
}

func assertConfigErrorKind(t *testing.T, err error, want ConfigErrorKind) {
	t.Helper()
	if err == nil {
		t.Fatal("expected an error, got nil")
	}
	ce, ok := err.(*ConfigError)
	if !ok {
		t.Fatalf("expected *ConfigError, got %T (%v)", err, err)
	}
	if ce.Kind != want {
		t.Fatalf("expected kind %s, got %s (%v)", want, ce.Kind, err)
	}
}
