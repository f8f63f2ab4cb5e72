// Package grid provides the square toroidal-free world grid, per-cell
// resource state with incremental regeneration, and the position-indexed
// spatial lookup used by perception and matching.
package grid

import (
	"fmt"

	"github.com/talgya/mini-world/internal/numeric"
)

// Pos is an integer grid coordinate.
type Pos struct {
	X, Y int
}

// ChebyshevDistance returns max(|dx|, |dy|) — "square vision" distance.
func ChebyshevDistance(a, b Pos) int {
	dx, dy := absInt(a.X-b.X), absInt(a.Y-b.Y)
	if dx > dy {
		return dx
	}
	return dy
}

// ManhattanDistance returns |dx| + |dy|.
func ManhattanDistance(a, b Pos) int {
	return absInt(a.X-b.X) + absInt(a.Y-b.Y)
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// ResourceType enumerates what a cell can hold.
type ResourceType uint8

const (
	ResourceNone ResourceType = iota
	ResourceA
	ResourceB
)

// Cell is a single grid cell's resource state.
type Cell struct {
	Type               ResourceType
	Amount             uint32
	OriginalAmount     uint32
	LastHarvestedTick  uint64
	HasLastHarvested   bool
}

// Grid holds the NxN cell array and the harvested active set.
type Grid struct {
	N     int
	cells []Cell // row-major, len N*N

	// active holds positions with Amount < OriginalAmount, so regeneration
	// scans only cells that are actually depleted.
	active map[Pos]struct{}
}

// New creates an empty NxN grid with no resources seeded.
func New(n int) *Grid {
	return &Grid{
		N:      n,
		cells:  make([]Cell, n*n),
		active: make(map[Pos]struct{}),
	}
}

// InBounds reports whether pos lies within the grid.
func (g *Grid) InBounds(pos Pos) bool {
	return pos.X >= 0 && pos.X < g.N && pos.Y >= 0 && pos.Y < g.N
}

func (g *Grid) index(pos Pos) int {
	return pos.Y*g.N + pos.X
}

// Cell returns the cell at pos. Callers must check InBounds first.
func (g *Grid) Cell(pos Pos) *Cell {
	return &g.cells[g.index(pos)]
}

// SetCell installs a fully-specified cell, used during resource seeding.
// It registers the position in the active set if already depleted.
func (g *Grid) SetCell(pos Pos, c Cell) {
	g.cells[g.index(pos)] = c
	if c.Amount < c.OriginalAmount {
		g.active[pos] = struct{}{}
	}
}

// ActiveCount returns the number of cells currently below their original
// resource amount (the harvested active set size).
func (g *Grid) ActiveCount() int {
	return len(g.active)
}

// Harvest removes amount from the cell at pos, stamping last-harvested-tick
// and (re)inserting it into the active set. Returns the amount actually
// removed (may be less than requested if the cell holds less).
func (g *Grid) Harvest(pos Pos, amount uint32, tick uint64) uint32 {
	c := g.Cell(pos)
	taken := numeric.Clamp(amount, 0, c.Amount)
	c.Amount -= taken
	c.LastHarvestedTick = tick
	c.HasLastHarvested = true
	if c.Amount < c.OriginalAmount {
		g.active[pos] = struct{}{}
	}
	return taken
}

// Regenerate advances every cell in the harvested active set by one tick,
// per §4.5: cells eligible for regen (cooldown elapsed) grow by
// growthRate, capped at min(maxAmount, originalAmount); fully-restored
// cells leave the active set. The active set is a map, so cells are visited
// in no fixed order; the outcome does not depend on that order since each
// cell's update reads only its own state.
func (g *Grid) Regenerate(tick uint64, cooldown uint64, growthRate, maxAmount uint32) {
	if len(g.active) == 0 {
		return
	}
	done := make([]Pos, 0, len(g.active))
	for pos := range g.active {
		c := g.Cell(pos)
		if !c.HasLastHarvested || tick-c.LastHarvestedTick >= cooldown {
			cap := c.OriginalAmount
			if maxAmount < cap {
				cap = maxAmount
			}
			c.Amount = numeric.Clamp(c.Amount+growthRate, 0, cap)
		}
		if c.Amount >= c.OriginalAmount {
			done = append(done, pos)
		}
	}
	for _, pos := range done {
		delete(g.active, pos)
	}
}

// ForEachResourceCell calls fn once per cell that currently holds a
// resource (Type != ResourceNone), in ascending (y, x) order, matching the
// row-major scan Seed uses so telemetry ordering stays deterministic.
func (g *Grid) ForEachResourceCell(fn func(Pos, Cell)) {
	for y := 0; y < g.N; y++ {
		for x := 0; x < g.N; x++ {
			pos := Pos{X: x, Y: y}
			c := g.cells[g.index(pos)]
			if c.Type == ResourceNone {
				continue
			}
			fn(pos, c)
		}
	}
}

// String returns a short summary, matching the teacher's Map.String shape.
func (g *Grid) String() string {
	return fmt.Sprintf("Grid(n=%d, active=%d)", g.N, len(g.active))
}
