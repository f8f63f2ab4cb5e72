package scenario

import "math"

const supportedSchemaVersion = "1"

const weightSumTolerance = 1e-6

func validate(s *Scenario) error {
	if s.SchemaVersion == "" {
		s.SchemaVersion = supportedSchemaVersion
	}
	if s.SchemaVersion != supportedSchemaVersion {
		return newConfigError(KindSchemaVersionUnsupported,
			"schema_version "+s.SchemaVersion+" is not supported")
	}

	if s.GridSize <= 0 {
		return newConfigError(KindInvalidParam, "grid size N must be positive")
	}
	if s.AgentCount <= 0 {
		return newConfigError(KindInvalidParam, "agent count must be positive")
	}

	if err := validateParams(s.Params); err != nil {
		return err
	}

	if s.ResourceSeed.Density < 0 || s.ResourceSeed.Density > 1 {
		return newConfigError(KindDensityOutOfRange, "resource_seed.density must be in [0, 1]")
	}

	if err := validateInitialInventory(s.InitialA, "A"); err != nil {
		return err
	}
	if err := validateInitialInventory(s.InitialB, "B"); err != nil {
		return err
	}
	if err := validateInitialInventory(s.InitialM, "M"); err != nil {
		return err
	}

	if err := validateUtilityMix(s.UtilityMix); err != nil {
		return err
	}

	switch s.ExchangeRegime {
	case RegimeBarterOnly, RegimeMoneyOnly, RegimeMixed, "":
	default:
		return newConfigError(KindRegimeUnknown, "unknown exchange_regime, falling back to barter_only is the loader's job, not validation's")
	}

	if s.ExchangeRegime == RegimeMoneyOnly || s.ExchangeRegime == RegimeMixed {
		if !s.Money.Enabled {
			return newConfigError(KindInvalidParam, "exchange_regime requires money but money block is disabled")
		}
		if s.Money.MoneyScale <= 0 {
			return newConfigError(KindInvalidParam, "money.money_scale must be positive")
		}
	}

	return nil
}

func validateParams(p Params) error {
	switch {
	case p.Spread < 0:
		return newConfigError(KindInvalidParam, "spread must be non-negative")
	case p.VisionRadius < 0:
		return newConfigError(KindInvalidParam, "vision_radius must be non-negative")
	case p.InteractionRadius < 0:
		return newConfigError(KindInvalidParam, "interaction_radius must be non-negative")
	case p.MoveBudgetPerTick <= 0:
		return newConfigError(KindInvalidParam, "move_budget_per_tick must be positive")
	case p.DAMax <= 0:
		return newConfigError(KindInvalidParam, "dA_max must be positive")
	case p.ForageRate == 0:
		return newConfigError(KindInvalidParam, "forage_rate must be positive")
	case p.Epsilon <= 0:
		return newConfigError(KindInvalidParam, "epsilon must be positive")
	case p.Beta <= 0 || p.Beta > 1:
		return newConfigError(KindInvalidParam, "beta must be in (0, 1]")
	case p.ResourceMaxAmount == 0:
		return newConfigError(KindInvalidParam, "resource_max_amount must be positive")
	}
	return nil
}

func validateInitialInventory(spec InitialInventorySpec, label string) error {
	switch spec.Kind {
	case InventoryScalar:
		// uint32 already excludes negative values.
	case InventoryPerAgent:
		// slice elements are uint32; nothing further to check here. The
		// list length is not checked against agent_count: sim.New gives
		// agents beyond the end of the list zero of that good.
	case InventoryUniformInt:
		if spec.Lo > spec.Hi {
			return newConfigError(KindInventoryNegative, "initial_"+label+" uniform range has lo > hi")
		}
	}
	return nil
}

func validateUtilityMix(mix []UtilitySpec) error {
	if len(mix) == 0 {
		return newConfigError(KindInvalidUtilityParams, "utility mix must contain at least one entry")
	}
	var total float64
	for _, u := range mix {
		if u.Weight < 0 {
			return newConfigError(KindInvalidWeightSum, "utility weight must be non-negative")
		}
		total += u.Weight
		if _, err := u.Build(); err != nil {
			return err
		}
	}
	if math.Abs(total-1.0) >= weightSumTolerance {
		return newConfigError(KindInvalidWeightSum, "utility weights must sum to 1.0")
	}
	return nil
}
