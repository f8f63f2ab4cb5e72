package grid

import "testing"

func TestInsertAndPositionOf(t *testing.T) {
	si := NewSpatialIndex(MetricChebyshev)
	si.Insert(1, Pos{2, 2})

	pos, ok := si.PositionOf(1)
	if !ok || pos != (Pos{2, 2}) {
		t.Fatalf("got (%v, %v), want ({2 2}, true)", pos, ok)
	}
}

func TestUpdatePositionMovesAgent(t *testing.T) {
	si := NewSpatialIndex(MetricChebyshev)
	si.Insert(1, Pos{0, 0})
	si.UpdatePosition(1, Pos{5, 5})

	if pos, _ := si.PositionOf(1); pos != (Pos{5, 5}) {
		t.Fatalf("got %v, want {5 5}", pos)
	}
	if len(si.AgentsAt(Pos{0, 0})) != 0 {
		t.Fatal("expected old position vacated")
	}
	if got := si.AgentsAt(Pos{5, 5}); len(got) != 1 || got[0] != 1 {
		t.Fatalf("got %v, want [1]", got)
	}
}

func TestRemoveClearsBothIndexes(t *testing.T) {
	si := NewSpatialIndex(MetricChebyshev)
	si.Insert(1, Pos{0, 0})
	si.Remove(1)

	if _, ok := si.PositionOf(1); ok {
		t.Fatal("expected agent removed")
	}
	if len(si.AgentsAt(Pos{0, 0})) != 0 {
		t.Fatal("expected position vacated after remove")
	}
}

func TestNeighborsWithinExcludesSelfAndRespectsRadius(t *testing.T) {
	si := NewSpatialIndex(MetricChebyshev)
	si.Insert(1, Pos{0, 0})
	si.Insert(2, Pos{1, 1})
	si.Insert(3, Pos{5, 5})

	got := si.NeighborsWithin(Pos{0, 0}, 1, 1)
	if len(got) != 1 || got[0] != 2 {
		t.Fatalf("got %v, want [2]", got)
	}
}

func TestNeighborsWithinManhattanMetric(t *testing.T) {
	si := NewSpatialIndex(MetricManhattan)
	si.Insert(1, Pos{0, 0})
	si.Insert(2, Pos{1, 1})

	// Manhattan distance from origin to (1,1) is 2, outside radius 1.
	got := si.NeighborsWithin(Pos{0, 0}, 1, 1)
	if len(got) != 0 {
		t.Fatalf("got %v, want none under manhattan metric at radius 1", got)
	}

	got = si.NeighborsWithin(Pos{0, 0}, 2, 1)
	if len(got) != 1 || got[0] != 2 {
		t.Fatalf("got %v, want [2] at radius 2", got)
	}
}

func TestAgentsAtSortedAscending(t *testing.T) {
	si := NewSpatialIndex(MetricChebyshev)
	si.Insert(3, Pos{0, 0})
	si.Insert(1, Pos{0, 0})
	si.Insert(2, Pos{0, 0})

	got := si.AgentsAt(Pos{0, 0})
	want := []AgentID{1, 2, 3}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}
