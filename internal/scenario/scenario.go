// Package scenario defines the immutable, validated input to a run: grid
// size, agent population, utility mix, resource seed, and the parameter
// block every subsystem reads. The core never parses configuration files —
// it only accepts a *Scenario built by scenario.New (or, outside this
// package, by scenarioloader.Load), matching §6's "the loader — not the
// core — parses YAML" boundary.
package scenario

import (
	"crypto/sha256"
	"fmt"

	"github.com/talgya/mini-world/internal/econ"
)

// ExchangeRegime is re-exported so scenario consumers don't need to import
// econ directly just to read the scenario's regime.
type ExchangeRegime = econ.Regime

const (
	RegimeBarterOnly = econ.RegimeBarterOnly
	RegimeMoneyOnly  = econ.RegimeMoneyOnly
	RegimeMixed      = econ.RegimeMixed
)

// UtilityKind tags which of the five forms a UtilitySpec describes.
type UtilityKind string

const (
	UtilityCES        UtilityKind = "ces"
	UtilityLinear     UtilityKind = "linear"
	UtilityQuadratic  UtilityKind = "quadratic"
	UtilityTranslog   UtilityKind = "translog"
	UtilityStoneGeary UtilityKind = "stone_geary"
)

// UtilitySpec is one entry of the scenario's utility mix: a kind, its
// weight in the mix (weights across the mix must sum to 1.0), and the
// kind-specific parameters.
type UtilitySpec struct {
	Kind   UtilityKind
	Weight float64

	CES        CESParams
	Linear     LinearParams
	Quadratic  QuadraticParams
	Translog   TranslogParams
	StoneGeary StoneGearyParams
}

type CESParams struct{ Rho, WA, WB float64 }
type LinearParams struct{ VA, VB float64 }
type QuadraticParams struct {
	AStar, BStar   float64
	SigmaA, SigmaB float64
	Gamma          float64
}
type TranslogParams struct {
	Alpha0, AlphaA, AlphaB float64
	BetaAA, BetaBB, BetaAB float64
}
type StoneGearyParams struct {
	AlphaA, AlphaB float64
	GammaA, GammaB float64
}

// Build constructs the econ.Utility this spec describes.
func (s UtilitySpec) Build() (econ.Utility, error) {
	switch s.Kind {
	case UtilityCES:
		if s.CES.Rho == 1 {
			return nil, newConfigError(KindInvalidUtilityParams, "ces rho must not equal 1")
		}
		if s.CES.WA <= 0 || s.CES.WB <= 0 {
			return nil, newConfigError(KindInvalidUtilityParams, "ces weights must be positive")
		}
		return econ.CES{Rho: s.CES.Rho, WA: s.CES.WA, WB: s.CES.WB}, nil
	case UtilityLinear:
		if s.Linear.VA <= 0 || s.Linear.VB <= 0 {
			return nil, newConfigError(KindInvalidUtilityParams, "linear values must be positive")
		}
		return econ.Linear{VA: s.Linear.VA, VB: s.Linear.VB}, nil
	case UtilityQuadratic:
		if s.Quadratic.AStar <= 0 || s.Quadratic.BStar <= 0 {
			return nil, newConfigError(KindInvalidUtilityParams, "quadratic bliss points must be positive")
		}
		if s.Quadratic.SigmaA <= 0 || s.Quadratic.SigmaB <= 0 {
			return nil, newConfigError(KindInvalidUtilityParams, "quadratic curvature parameters must be positive")
		}
		if s.Quadratic.Gamma < 0 {
			return nil, newConfigError(KindInvalidUtilityParams, "quadratic gamma must be non-negative")
		}
		return econ.Quadratic{
			AStar: s.Quadratic.AStar, BStar: s.Quadratic.BStar,
			SigmaA: s.Quadratic.SigmaA, SigmaB: s.Quadratic.SigmaB,
			Gamma: s.Quadratic.Gamma,
		}, nil
	case UtilityTranslog:
		if s.Translog.AlphaA <= 0 || s.Translog.AlphaB <= 0 {
			return nil, newConfigError(KindInvalidUtilityParams, "translog first-order coefficients must be positive")
		}
		return econ.Translog{
			Alpha0: s.Translog.Alpha0, AlphaA: s.Translog.AlphaA, AlphaB: s.Translog.AlphaB,
			BetaAA: s.Translog.BetaAA, BetaBB: s.Translog.BetaBB, BetaAB: s.Translog.BetaAB,
		}, nil
	case UtilityStoneGeary:
		if s.StoneGeary.AlphaA <= 0 || s.StoneGeary.AlphaB <= 0 {
			return nil, newConfigError(KindInvalidUtilityParams, "stone-geary preference weights must be positive")
		}
		if s.StoneGeary.GammaA < 0 || s.StoneGeary.GammaB < 0 {
			return nil, newConfigError(KindInvalidUtilityParams, "stone-geary subsistence levels must be non-negative")
		}
		return econ.StoneGeary{
			AlphaA: s.StoneGeary.AlphaA, AlphaB: s.StoneGeary.AlphaB,
			GammaA: s.StoneGeary.GammaA, GammaB: s.StoneGeary.GammaB,
		}, nil
	default:
		return nil, newConfigError(KindInvalidUtilityParams, fmt.Sprintf("unknown utility kind %q", s.Kind))
	}
}

// InitialInventoryKind tags the shape of an initial-inventory spec.
type InitialInventoryKind uint8

const (
	InventoryScalar InitialInventoryKind = iota
	InventoryPerAgent
	InventoryUniformInt
)

// InitialInventorySpec is the tagged union from §3: a single scalar applied
// to every agent, an explicit per-agent list, or a uniform-int range
// resolved once per agent using the scenario's "init" RNG sub-stream.
type InitialInventorySpec struct {
	Kind     InitialInventoryKind
	Scalar   uint32
	PerAgent []uint32
	Lo, Hi   uint32
}

// ModeScheduleSpec configures the mode scheduler (§4.11). A nil schedule
// means "both" every tick.
type ModeScheduleSpec struct {
	ForageTicks, TradeTicks uint64
	StartMode               Mode
}

// Mode is the per-tick global phase flag.
type Mode string

const (
	ModeForage Mode = "forage"
	ModeTrade  Mode = "trade"
	ModeBoth   Mode = "both"
)

// MoneyConfig holds the optional monetary parameters.
type MoneyConfig struct {
	Enabled     bool
	MoneyScale  float64
	Form        econ.MoneyUtilityForm
	M0          float64
	LambdaMoney float64
}

// Params are the scenario-wide scalar parameters of §3.
type Params struct {
	Spread                float64
	VisionRadius          int
	InteractionRadius     int
	MoveBudgetPerTick     int
	DAMax                 int
	ForageRate            uint32
	Epsilon               float64
	Beta                  float64
	ResourceGrowthRate    uint32
	ResourceMaxAmount     uint32
	ResourceRegenCooldown uint64
	TradeCooldownTicks    uint64

	// ParallelPerception/ParallelSearch opt into the bounded-parallel
	// phase execution permitted by §5; the driver still applies all
	// effects in ascending agent-id order regardless.
	ParallelPerception bool
	ParallelSearch     bool

	// AgentSnapshotFrequency/ResourceSnapshotFrequency gate the two
	// telemetry snapshot streams: a snapshot of that kind is emitted only
	// on ticks where tick % frequency == 0. Zero disables the stream
	// entirely.
	AgentSnapshotFrequency    uint64
	ResourceSnapshotFrequency uint64
}

// ResourceSeedConfig is the resource seed block: density in [0,1] and the
// amount each seeded cell starts (and regenerates toward) full.
type ResourceSeedConfig struct {
	Density float64
	Amount  uint32
}

// Scenario is the complete, validated, immutable run input.
type Scenario struct {
	SchemaVersion string
	Name          string

	GridSize  int
	AgentCount int

	InitialA, InitialB, InitialM InitialInventorySpec

	UtilityMix []UtilitySpec

	ResourceSeed ResourceSeedConfig

	Params Params

	ModeSchedule *ModeScheduleSpec

	ExchangeRegime ExchangeRegime
	Money          MoneyConfig

	// rawHash is sha256 of the canonical scenario encoding, used to build
	// scenario_fingerprint deterministically without depending on map
	// iteration order (§3.1).
	rawHash [32]byte
}

// Fingerprint returns a stable hex fingerprint for on_run_start telemetry.
func (s *Scenario) Fingerprint() string {
	return fmt.Sprintf("%x", s.rawHash[:8])
}

// New validates a fully-populated Scenario and freezes its fingerprint. It
// is the sole construction path both the loader and tests should use.
func New(s Scenario) (*Scenario, error) {
	if err := validate(&s); err != nil {
		return nil, err
	}
	s.rawHash = sha256.Sum256([]byte(canonicalize(&s)))
	return &s, nil
}

// canonicalize produces a deterministic byte representation of the fields
// that define a run, for fingerprinting. It intentionally does not need to
// be a full serialization — only stable and sensitive to the inputs that
// change simulation behavior.
func canonicalize(s *Scenario) string {
	return fmt.Sprintf("%s|%d|%d|%+v|%+v|%+v|%v|%v|%+v|%+v|%s|%+v",
		s.SchemaVersion, s.GridSize, s.AgentCount,
		s.InitialA, s.InitialB, s.InitialM, s.UtilityMix,
		s.ResourceSeed, s.Params, s.ModeSchedule, s.ExchangeRegime, s.Money)
}
