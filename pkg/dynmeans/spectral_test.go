package dynmeans

import (
	"math/rand"
	"testing"
)

func TestSpectralClusterSeparatesTwoObviousBlocks(t *testing.T) {
	// Two tight, mutually near-disjoint similarity blocks.
	sim := [][]float64{
		{1, 0.95, 0.9, 0.01, 0.02},
		{0.95, 1, 0.92, 0.02, 0.01},
		{0.9, 0.92, 1, 0.01, 0.01},
		{0.01, 0.02, 0.01, 1, 0.95},
		{0.02, 0.01, 0.01, 0.95, 1},
	}
	res, err := spectralCluster(toSym(sim), EigenSelfAdjoint, 0.3, rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatalf("spectralCluster: %v", err)
	}
	if len(res.labels) != 5 {
		t.Fatalf("got %d labels, want 5", len(res.labels))
	}
	if res.labels[0] != res.labels[1] || res.labels[1] != res.labels[2] {
		t.Fatalf("first block not co-labeled: %v", res.labels)
	}
	if res.labels[3] != res.labels[4] {
		t.Fatalf("second block not co-labeled: %v", res.labels)
	}
	if res.labels[0] == res.labels[3] {
		t.Fatalf("the two separate blocks got the same label: %v", res.labels)
	}
}

func TestSpectralClusterSingleNode(t *testing.T) {
	res, err := spectralCluster(toSym([][]float64{{1}}), EigenSelfAdjoint, 0.1, rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatalf("spectralCluster: %v", err)
	}
	if len(res.labels) != 1 || res.k != 1 {
		t.Fatalf("res = %+v, want a single label", res)
	}
}
