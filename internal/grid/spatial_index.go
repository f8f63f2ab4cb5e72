package grid

import "sort"

// AgentID identifies an agent for spatial-index purposes. Defined here
// rather than imported from internal/agents to keep grid free of a
// dependency on the agent package (agents depends on grid, not vice versa).
type AgentID uint64

// DistanceMetric selects how neighbors_within measures radius.
type DistanceMetric uint8

const (
	MetricChebyshev DistanceMetric = iota
	MetricManhattan
)

// SpatialIndex maps positions to the agents occupying them and back. The
// distance metric is fixed at construction — perception uses Chebyshev
// ("square vision"); other consumers may construct a Manhattan index.
type SpatialIndex struct {
	metric    DistanceMetric
	byPos     map[Pos]map[AgentID]struct{}
	byAgent   map[AgentID]Pos
}

// NewSpatialIndex creates an empty index using the given distance metric.
func NewSpatialIndex(metric DistanceMetric) *SpatialIndex {
	return &SpatialIndex{
		metric:  metric,
		byPos:   make(map[Pos]map[AgentID]struct{}),
		byAgent: make(map[AgentID]Pos),
	}
}

// Insert places an agent at pos.
func (si *SpatialIndex) Insert(id AgentID, pos Pos) {
	if set, ok := si.byPos[pos]; ok {
		set[id] = struct{}{}
	} else {
		si.byPos[pos] = map[AgentID]struct{}{id: {}}
	}
	si.byAgent[id] = pos
}

// Remove deletes an agent from the index.
func (si *SpatialIndex) Remove(id AgentID) {
	pos, ok := si.byAgent[id]
	if !ok {
		return
	}
	delete(si.byAgent, id)
	if set, ok := si.byPos[pos]; ok {
		delete(set, id)
		if len(set) == 0 {
			delete(si.byPos, pos)
		}
	}
}

// UpdatePosition moves an agent to a new position (remove+insert).
func (si *SpatialIndex) UpdatePosition(id AgentID, newPos Pos) {
	si.Remove(id)
	si.Insert(id, newPos)
}

// PositionOf returns the agent's current position.
func (si *SpatialIndex) PositionOf(id AgentID) (Pos, bool) {
	p, ok := si.byAgent[id]
	return p, ok
}

// AgentsAt returns the agent ids occupying pos, sorted ascending.
func (si *SpatialIndex) AgentsAt(pos Pos) []AgentID {
	set, ok := si.byPos[pos]
	if !ok {
		return nil
	}
	out := make([]AgentID, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// NeighborsWithin returns every agent id (excluding self) within radius r of
// pos under the index's fixed distance metric, sorted ascending by id for
// determinism.
func (si *SpatialIndex) NeighborsWithin(pos Pos, r int, self AgentID) []AgentID {
	var out []AgentID
	for p, set := range si.byPos {
		var d int
		switch si.metric {
		case MetricManhattan:
			d = ManhattanDistance(pos, p)
		default:
			d = ChebyshevDistance(pos, p)
		}
		if d > r {
			continue
		}
		for id := range set {
			if id == self {
				continue
			}
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
