package dynmeans

import (
	"math/rand"
	"testing"
)

func TestBuildHierarchyStopsAtCoarsestSize(t *testing.T) {
	model := NewRBFModel(2.0, 4, 1e-6)
	obsIDs := []uint64{0, 1, 2, 3, 4, 5, 6, 7}
	obs := make(map[uint64]Data, len(obsIDs))
	for i, id := range obsIDs {
		obs[id] = NewRBFDatum([]float64{float64(i), float64(i)}, 2.0)
	}
	rng := rand.New(rand.NewSource(1))

	levels := buildHierarchy(obsIDs, obs, model, 3, rng)
	top := levels[len(levels)-1]
	if len(top.nodes) > 3 {
		t.Fatalf("coarsest level has %d nodes, want <= 3", len(top.nodes))
	}
	if len(levels[0].nodes) != len(obsIDs) {
		t.Fatalf("level 0 has %d nodes, want %d (one per observation)", len(levels[0].nodes), len(obsIDs))
	}
}

func TestExpandLabelsBroadcastsParentToChildren(t *testing.T) {
	level := coarseLevel{children: [][]int{{0, 1}, {2}}}
	fine := expandLabels(level, []int64{10, 20})
	want := []int64{10, 10, 20}
	if len(fine) != len(want) {
		t.Fatalf("expandLabels returned %d entries, want %d", len(fine), len(want))
	}
	for i := range want {
		if fine[i] != want[i] {
			t.Fatalf("fine[%d] = %d, want %d", i, fine[i], want[i])
		}
	}
}
