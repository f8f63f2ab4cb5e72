// Package scenarioloader parses scenario YAML files into validated
// scenario.Scenario values. It is the only package in the module that knows
// about YAML — the core (internal/scenario and below) never touches a file
// format, matching the teacher's config/core split.
package scenarioloader

import (
	"bytes"
	"fmt"
	"os"

	yaml "gopkg.in/yaml.v3"

	"github.com/talgya/mini-world/internal/econ"
	"github.com/talgya/mini-world/internal/scenario"
)

// wireScenario is the on-disk shape. Field names track the original
// scenario schema's snake_case keys.
type wireScenario struct {
	SchemaVersion string                 `yaml:"schema_version"`
	Name          string                 `yaml:"name"`
	N             int                    `yaml:"n"`
	Agents        int                    `yaml:"agents"`

	InitialInventories wireInitialInventories `yaml:"initial_inventories"`

	Utilities wireUtilitiesMix `yaml:"utilities"`

	ResourceSeed wireResourceSeed `yaml:"resource_seed"`

	Params wireParams `yaml:"params"`

	ModeSchedule *wireModeSchedule `yaml:"mode_schedule"`

	ExchangeRegime string      `yaml:"exchange_regime"`
	Money          *wireMoney `yaml:"money"`
}

type wireInitialInventories struct {
	A wireInventorySpec `yaml:"A"`
	B wireInventorySpec `yaml:"B"`
	M wireInventorySpec `yaml:"M"`
}

// wireInventorySpec accepts a bare scalar, an explicit per-agent list, or a
// {lo, hi} uniform-int range, matching the tagged union of §3.
type wireInventorySpec struct {
	Scalar   *uint32
	PerAgent []uint32
	Uniform  *struct {
		Lo uint32 `yaml:"lo"`
		Hi uint32 `yaml:"hi"`
	} `yaml:"uniform_int"`
}

func (w *wireInventorySpec) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		var v uint32
		if err := value.Decode(&v); err != nil {
			return err
		}
		w.Scalar = &v
		return nil
	case yaml.SequenceNode:
		var v []uint32
		if err := value.Decode(&v); err != nil {
			return err
		}
		w.PerAgent = v
		return nil
	case yaml.MappingNode:
		var m struct {
			UniformInt struct {
				Lo uint32 `yaml:"lo"`
				Hi uint32 `yaml:"hi"`
			} `yaml:"uniform_int"`
		}
		if err := value.Decode(&m); err != nil {
			return err
		}
		w.Uniform = &struct {
			Lo uint32 `yaml:"lo"`
			Hi uint32 `yaml:"hi"`
		}{Lo: m.UniformInt.Lo, Hi: m.UniformInt.Hi}
		return nil
	}
	return fmt.Errorf("initial inventory spec: unsupported YAML node kind %v", value.Kind)
}

func (w wireInventorySpec) toSpec() scenario.InitialInventorySpec {
	switch {
	case w.Uniform != nil:
		return scenario.InitialInventorySpec{Kind: scenario.InventoryUniformInt, Lo: w.Uniform.Lo, Hi: w.Uniform.Hi}
	case w.PerAgent != nil:
		return scenario.InitialInventorySpec{Kind: scenario.InventoryPerAgent, PerAgent: w.PerAgent}
	case w.Scalar != nil:
		return scenario.InitialInventorySpec{Kind: scenario.InventoryScalar, Scalar: *w.Scalar}
	default:
		return scenario.InitialInventorySpec{Kind: scenario.InventoryScalar, Scalar: 0}
	}
}

type wireUtilitiesMix struct {
	Mix []wireUtilityConfig `yaml:"mix"`
}

type wireUtilityConfig struct {
	Type   string             `yaml:"type"`
	Weight float64            `yaml:"weight"`
	Params map[string]float64 `yaml:"params"`
}

func (w wireUtilityConfig) toSpec() (scenario.UtilitySpec, error) {
	spec := scenario.UtilitySpec{Weight: w.Weight}
	switch w.Type {
	case "ces":
		spec.Kind = scenario.UtilityCES
		spec.CES = scenario.CESParams{Rho: w.Params["rho"], WA: w.Params["wA"], WB: w.Params["wB"]}
	case "linear":
		spec.Kind = scenario.UtilityLinear
		spec.Linear = scenario.LinearParams{VA: w.Params["vA"], VB: w.Params["vB"]}
	case "quadratic":
		spec.Kind = scenario.UtilityQuadratic
		spec.Quadratic = scenario.QuadraticParams{
			AStar: w.Params["a_star"], BStar: w.Params["b_star"],
			SigmaA: w.Params["sigma_a"], SigmaB: w.Params["sigma_b"],
			Gamma: w.Params["gamma"],
		}
	case "translog":
		spec.Kind = scenario.UtilityTranslog
		spec.Translog = scenario.TranslogParams{
			Alpha0: w.Params["alpha0"], AlphaA: w.Params["alpha_a"], AlphaB: w.Params["alpha_b"],
			BetaAA: w.Params["beta_aa"], BetaBB: w.Params["beta_bb"], BetaAB: w.Params["beta_ab"],
		}
	case "stone_geary":
		spec.Kind = scenario.UtilityStoneGeary
		spec.StoneGeary = scenario.StoneGearyParams{
			AlphaA: w.Params["alpha_a"], AlphaB: w.Params["alpha_b"],
			GammaA: w.Params["gamma_a"], GammaB: w.Params["gamma_b"],
		}
	default:
		return scenario.UtilitySpec{}, fmt.Errorf("unknown utility type %q", w.Type)
	}
	return spec, nil
}

type wireResourceSeed struct {
	Density float64 `yaml:"density"`
	Amount  uint32  `yaml:"amount"`
}

type wireParams struct {
	Spread                float64 `yaml:"spread"`
	VisionRadius          int     `yaml:"vision_radius"`
	InteractionRadius     int     `yaml:"interaction_radius"`
	MoveBudgetPerTick     int     `yaml:"move_budget_per_tick"`
	DAMax                 int     `yaml:"dA_max"`
	ForageRate            uint32  `yaml:"forage_rate"`
	Epsilon               float64 `yaml:"epsilon"`
	Beta                  float64 `yaml:"beta"`
	ResourceGrowthRate    uint32  `yaml:"resource_growth_rate"`
	ResourceMaxAmount     uint32  `yaml:"resource_max_amount"`
	ResourceRegenCooldown uint64  `yaml:"resource_regen_cooldown"`
	TradeCooldownTicks    uint64  `yaml:"trade_cooldown_ticks"`
	ParallelPerception    bool    `yaml:"parallel_perception"`
	ParallelSearch        bool    `yaml:"parallel_search"`

	AgentSnapshotFrequency    uint64 `yaml:"agent_snapshot_frequency"`
	ResourceSnapshotFrequency uint64 `yaml:"resource_snapshot_frequency"`
}

type wireModeSchedule struct {
	ForageTicks uint64 `yaml:"forage_ticks"`
	TradeTicks  uint64 `yaml:"trade_ticks"`
	StartMode   string `yaml:"start_mode"`
}

type wireMoney struct {
	MoneyScale  float64 `yaml:"money_scale"`
	Form        string  `yaml:"form"`
	M0          float64 `yaml:"m0"`
	LambdaMoney float64 `yaml:"lambda_money"`
}

// defaults mirror the original schema's dataclass field defaults, applied
// before decoding so an omitted YAML key behaves the same as in the
// reference implementation.
func defaultWireParams() wireParams {
	return wireParams{
		VisionRadius:          5,
		InteractionRadius:     1,
		MoveBudgetPerTick:     1,
		DAMax:                 5,
		ForageRate:            1,
		Epsilon:               1e-12,
		Beta:                  0.95,
		ResourceMaxAmount:     5,
		ResourceRegenCooldown: 5,
		TradeCooldownTicks:    5,
	}
}

// Load reads, parses, and validates the scenario YAML file at path.
func Load(path string) (*scenario.Scenario, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path is an operator-supplied scenario file
	if err != nil {
		return nil, fmt.Errorf("reading scenario file %q: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes raw scenario YAML bytes into a validated scenario.Scenario.
func Parse(data []byte) (*scenario.Scenario, error) {
	w := wireScenario{Params: defaultWireParams()}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&w); err != nil {
		return nil, fmt.Errorf("parsing scenario yaml: %w", err)
	}

	mix := make([]scenario.UtilitySpec, 0, len(w.Utilities.Mix))
	for _, u := range w.Utilities.Mix {
		spec, err := u.toSpec()
		if err != nil {
			return nil, fmt.Errorf("utilities.mix: %w", err)
		}
		mix = append(mix, spec)
	}

	s := scenario.Scenario{
		SchemaVersion: w.SchemaVersion,
		Name:          w.Name,
		GridSize:      w.N,
		AgentCount:    w.Agents,
		InitialA:      w.InitialInventories.A.toSpec(),
		InitialB:      w.InitialInventories.B.toSpec(),
		InitialM:      w.InitialInventories.M.toSpec(),
		UtilityMix:    mix,
		ResourceSeed: scenario.ResourceSeedConfig{
			Density: w.ResourceSeed.Density,
			Amount:  w.ResourceSeed.Amount,
		},
		Params: scenario.Params{
			Spread:                w.Params.Spread,
			VisionRadius:          w.Params.VisionRadius,
			InteractionRadius:     w.Params.InteractionRadius,
			MoveBudgetPerTick:     w.Params.MoveBudgetPerTick,
			DAMax:                 w.Params.DAMax,
			ForageRate:            w.Params.ForageRate,
			Epsilon:               w.Params.Epsilon,
			Beta:                  w.Params.Beta,
			ResourceGrowthRate:    w.Params.ResourceGrowthRate,
			ResourceMaxAmount:     w.Params.ResourceMaxAmount,
			ResourceRegenCooldown: w.Params.ResourceRegenCooldown,
			TradeCooldownTicks:    w.Params.TradeCooldownTicks,
			ParallelPerception:    w.Params.ParallelPerception,
			ParallelSearch:        w.Params.ParallelSearch,

			AgentSnapshotFrequency:    w.Params.AgentSnapshotFrequency,
			ResourceSnapshotFrequency: w.Params.ResourceSnapshotFrequency,
		},
		ExchangeRegime: regimeOrFallback(w.ExchangeRegime),
	}

	if w.ModeSchedule != nil {
		s.ModeSchedule = &scenario.ModeScheduleSpec{
			ForageTicks: w.ModeSchedule.ForageTicks,
			TradeTicks:  w.ModeSchedule.TradeTicks,
			StartMode:   scenario.Mode(w.ModeSchedule.StartMode),
		}
	}

	if w.Money != nil {
		form := econ.MoneyLinear
		if w.Money.Form == "log" {
			form = econ.MoneyLog
		}
		s.Money = scenario.MoneyConfig{
			Enabled:     true,
			MoneyScale:  w.Money.MoneyScale,
			Form:        form,
			M0:          w.Money.M0,
			LambdaMoney: w.Money.LambdaMoney,
		}
	}

	return scenario.New(s)
}

// regimeOrFallback maps an empty or unrecognized regime string to
// barter_only, per §3's "unknown regime falls back to barter_only" rule —
// applied here rather than as a hard validation failure so a typo in a
// scenario file degrades gracefully instead of refusing to run.
func regimeOrFallback(raw string) scenario.ExchangeRegime {
	switch scenario.ExchangeRegime(raw) {
	case scenario.RegimeBarterOnly, scenario.RegimeMoneyOnly, scenario.RegimeMixed:
		return scenario.ExchangeRegime(raw)
	default:
		return scenario.RegimeBarterOnly
	}
}
