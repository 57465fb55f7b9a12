package dynmeans

import (
	"math"
	"testing"
)

func TestHungarianMatcherPicksCheapestAssignment(t *testing.T) {
	m := newDefaultMatcher()
	// 2 new clusters, 2 old clusters. New cluster 0 is cheap against old
	// cluster 1 and expensive against old cluster 0, and vice versa for
	// new cluster 1: the optimal assignment is the cross pairing.
	weights := [][]float64{
		{100, 1},
		{1, 100},
	}
	assignment, err := m.Match(weights, 1000)
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if assignment[0] != 1 || assignment[1] != 0 {
		t.Fatalf("assignment = %v, want [1 0]", assignment)
	}
}

func TestHungarianMatcherPrefersStayingNewWhenCheaper(t *testing.T) {
	m := newDefaultMatcher()
	lambda := 1.0
	// Every old-cluster option costs far more than just staying new.
	weights := [][]float64{
		{500, 500},
	}
	assignment, err := m.Match(weights, lambda)
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if assignment[0] != -1 {
		t.Fatalf("assignment = %v, want [-1] (stay new, lambda=%v is cheapest)", assignment, lambda)
	}
}

func TestHungarianMatcherNoOldClustersAlwaysStaysNew(t *testing.T) {
	m := newDefaultMatcher()
	weights := [][]float64{{}, {}}
	assignment, err := m.Match(weights, 5.0)
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	for i, a := range assignment {
		if a != -1 {
			t.Fatalf("assignment[%d] = %d, want -1 (no old clusters to match)", i, a)
		}
	}
}

func TestHungarianSolveSquareIdentityIsOptimal(t *testing.T) {
	cost := [][]float64{
		{1, math.Inf(1) / 4},
		{math.Inf(1) / 4, 1},
	}
	// Use a large finite number instead of Inf to keep arithmetic finite.
	cost[0][1], cost[1][0] = 1e9, 1e9
	rowToCol, err := hungarianSolve(cost)
	if err != nil {
		t.Fatalf("hungarianSolve: %v", err)
	}
	if rowToCol[0] != 0 || rowToCol[1] != 1 {
		t.Fatalf("rowToCol = %v, want [0 1]", rowToCol)
	}
}
