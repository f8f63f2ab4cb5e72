// Resource seeding via layered simplex noise, adapted from the teacher's
// terrain-from-noise-thresholds approach (internal/world/generation.go) to
// a square grid and a binary resource/no-resource decision.
package grid

import opensimplex "github.com/ojrac/opensimplex-go"

// ResourceSeedConfig mirrors the scenario's resource-seed block: a density
// in [0,1] controlling what fraction of cells carry a resource, and the
// amount each seeded cell starts (and regenerates toward) full.
type ResourceSeedConfig struct {
	Density float64
	Amount  uint32
}

// subsystemSalt derives a per-subsystem seed offset from an FNV-1a-style
// hash of the tag, like internal/rng (but with its own offset basis and sign
// folding, so the values differ from rng's), so resource placement draws from a stream the spec's
// RNG-split guarantee covers even though it is driven by noise rather than
// math/rand.
func subsystemSalt(tag string) int64 {
	var h int64 = 1469598103934665603 // FNV offset basis, trimmed to fit int64 arithmetic below
	for i := 0; i < len(tag); i++ {
		h ^= int64(tag[i])
		h *= 1099511628211
	}
	if h < 0 {
		h = -h
	}
	return h
}

// Seed populates every cell deterministically from (seed, cfg): a cell at
// (x, y) becomes a resource cell iff a normalized simplex sample at that
// coordinate falls below cfg.Density, and its good type alternates between
// A and B based on a second, independently-salted noise channel compared
// against 0.5. This keeps world construction reproducible from the scenario
// and seed alone, with no RNG draw consumed per cell.
func Seed(g *Grid, cfg ResourceSeedConfig, seed int64) {
	if cfg.Density <= 0 || cfg.Amount == 0 {
		return
	}
	placementNoise := opensimplex.NewNormalized(seed + subsystemSalt("resources.placement"))
	typeNoise := opensimplex.NewNormalized(seed + subsystemSalt("resources.type"))

	for y := 0; y < g.N; y++ {
		for x := 0; x < g.N; x++ {
			pos := Pos{X: x, Y: y}
			v := placementNoise.Eval2(float64(x), float64(y))
			if v >= cfg.Density {
				continue
			}
			t := ResourceA
			if typeNoise.Eval2(float64(x), float64(y)) >= 0.5 {
				t = ResourceB
			}
			g.SetCell(pos, Cell{
				Type:           t,
				Amount:         cfg.Amount,
				OriginalAmount: cfg.Amount,
			})
		}
	}
}
