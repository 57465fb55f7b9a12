package dynmeans

import (
	"context"
	"math/rand"
	"testing"
)

func twoWellSeparatedBlobs() map[uint64]Data {
	return map[uint64]Data{
		0: NewEuclideanVector([]float64{0, 0}),
		1: NewEuclideanVector([]float64{0.1, -0.1}),
		2: NewEuclideanVector([]float64{-0.1, 0.1}),
		3: NewEuclideanVector([]float64{100, 100}),
		4: NewEuclideanVector([]float64{100.1, 99.9}),
		5: NewEuclideanVector([]float64{99.9, 100.1}),
	}
}

func TestSolvePointSeparatesWellSeparatedBlobsWithModerateLambda(t *testing.T) {
	obs := twoWellSeparatedBlobs()
	rng := rand.New(rand.NewSource(1))
	res, err := solvePoint(context.Background(), obs, nil, EuclideanModel{}, 50.0, 100, 5, rng)
	if err != nil {
		t.Fatalf("solvePoint: %v", err)
	}

	byLabel := make(map[int64][]uint64)
	for id, lbl := range res.labels {
		byLabel[lbl] = append(byLabel[lbl], id)
	}
	if len(byLabel) != 2 {
		t.Fatalf("got %d clusters, want 2 (lambda=50 should separate but not shatter)", len(byLabel))
	}
	for _, members := range byLabel {
		if len(members) != 3 {
			t.Fatalf("cluster has %d members, want 3", len(members))
		}
	}
}

func TestSolvePointRestartDominance(t *testing.T) {
	obs := twoWellSeparatedBlobs()
	rng := rand.New(rand.NewSource(7))

	single, err := solvePoint(context.Background(), obs, nil, EuclideanModel{}, 50.0, 100, 1, rng)
	if err != nil {
		t.Fatalf("solvePoint(1 restart): %v", err)
	}
	// A fresh rng with the same seed makes the first of the 8 restarts
	// replay the single-restart run.
	many, err := solvePoint(context.Background(), obs, nil, EuclideanModel{}, 50.0, 100, 8, rand.New(rand.NewSource(7)))
	if err != nil {
		t.Fatalf("solvePoint(8 restarts): %v", err)
	}
	if many.objective > single.objective+1e-9 {
		t.Fatalf("8-restart objective %v worse than 1-restart objective %v", many.objective, single.objective)
	}
}

func TestSolvePointWithProhibitiveLambdaNeverFabricatesExtraClusters(t *testing.T) {
	obs := twoWellSeparatedBlobs()
	rng := rand.New(rand.NewSource(3))
	res, err := solvePoint(context.Background(), obs, nil, EuclideanModel{}, 1e9, 100, 3, rng)
	if err != nil {
		t.Fatalf("solvePoint: %v", err)
	}
	byLabel := make(map[int64]bool)
	for _, lbl := range res.labels {
		byLabel[lbl] = true
	}
	// n=6 seeds at most floor(n/2)=3 initial clusters; with lambda this
	// high the new-cluster option should never win, so the result can
	// only be some subset of those initial seeds, never more.
	if len(byLabel) > 3 {
		t.Fatalf("got %d clusters with prohibitive lambda, want <= 3 (no fabricated new clusters)", len(byLabel))
	}
}

func TestSolvePointRejectsNonPositiveRestartsUpstream(t *testing.T) {
	obs := map[uint64]Data{0: NewEuclideanVector([]float64{0})}
	rng := rand.New(rand.NewSource(1))
	if _, err := solvePoint(context.Background(), obs, nil, EuclideanModel{}, 1.0, 10, 0, rng); err != ErrAllRestartsFailed {
		t.Fatalf("solvePoint with 0 restarts: got %v, want ErrAllRestartsFailed", err)
	}
}
