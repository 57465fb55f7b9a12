package dynmeans

import (
	"context"
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/google/go-cmp/cmp"
)

func sampleBatch() map[uint64]Data {
	return map[uint64]Data{
		1: NewEuclideanVector([]float64{0, 0}),
		2: NewEuclideanVector([]float64{0.2, -0.2}),
		3: NewEuclideanVector([]float64{50, 50}),
		4: NewEuclideanVector([]float64{50.2, 49.8}),
	}
}

func TestClusterOnEmptyBatchAgesClustersWithoutRunningASolver(t *testing.T) {
	dm, err := New(10, 0.1, 0.1, WithSeed(1))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	first, err := dm.Cluster(context.Background(), sampleBatch(), AlgorithmPoint, 3)
	if err != nil {
		t.Fatalf("Cluster 1: %v", err)
	}
	before := dm.state.Snapshot()
	if len(before) == 0 {
		t.Fatalf("no clusters committed after batch 1")
	}

	res, err := dm.Cluster(context.Background(), map[uint64]Data{}, AlgorithmPoint, 3)
	if err != nil {
		t.Fatalf("Cluster(empty): %v", err)
	}
	if len(res.Labels) != 0 {
		t.Fatalf("Cluster(empty) labels = %v, want empty", res.Labels)
	}
	if res.Objective != 0 {
		t.Fatalf("Cluster(empty) objective = %v, want 0", res.Objective)
	}

	after := dm.state.Snapshot()
	ageByID := make(map[uint64]int, len(before))
	for _, c := range before {
		ageByID[c.ID] = c.Age
	}
	if len(after) != len(before) {
		t.Fatalf("got %d clusters after empty batch, want %d unchanged", len(after), len(before))
	}
	for _, c := range after {
		if c.Age != ageByID[c.ID]+1 {
			t.Fatalf("cluster %d age = %d, want %d (aged by exactly 1)", c.ID, c.Age, ageByID[c.ID]+1)
		}
	}

	for id := range first.Labels {
		if _, ok := res.Labels[id]; ok {
			t.Fatalf("empty-batch result unexpectedly labeled observation %d", id)
		}
	}
}

func TestClusterIsDeterministicWithFixedSeed(t *testing.T) {
	run := func() map[uint64]uint64 {
		dm, err := New(20, 0.1, 0.1, WithSeed(42))
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		res, err := dm.Cluster(context.Background(), sampleBatch(), AlgorithmPoint, 4)
		if err != nil {
			t.Fatalf("Cluster: %v", err)
		}
		return res.Labels
	}
	a, b := run(), run()
	if diff := cmp.Diff(a, b); diff != "" {
		t.Fatalf("labels differ across identically-seeded runs (-first +second):\n%s\nfirst=%s", diff, spew.Sdump(a))
	}
}

func TestClusterCommitsAndSecondBatchCanReuseClusters(t *testing.T) {
	dm, err := New(1e6, 0.1, 0.1, WithSeed(5)) // prohibitive lambda: never spawn extra clusters
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	first, err := dm.Cluster(context.Background(), sampleBatch(), AlgorithmPoint, 2)
	if err != nil {
		t.Fatalf("Cluster 1: %v", err)
	}
	if len(dm.state.Snapshot()) == 0 {
		t.Fatalf("no clusters committed after batch 1")
	}

	second, err := dm.Cluster(context.Background(), map[uint64]Data{
		5: NewEuclideanVector([]float64{0.1, 0.1}),
	}, AlgorithmPoint, 2)
	if err != nil {
		t.Fatalf("Cluster 2: %v", err)
	}
	// With a prohibitive lambda the lone new observation must join an
	// existing (reused) cluster ID from batch 1, not mint a fresh one.
	reused := false
	for _, id := range first.Labels {
		if second.Labels[5] == id {
			reused = true
			break
		}
	}
	if !reused {
		t.Fatalf("batch 2 observation got label %d, not one of batch 1's cluster IDs %v", second.Labels[5], first.Labels)
	}
}

func TestNewRejectsInvalidLambda(t *testing.T) {
	if _, err := New(-1, 0.1, 0.1); err != ErrInvalidLambda {
		t.Fatalf("New(lambda=-1): got %v, want ErrInvalidLambda", err)
	}
}

func TestClusterKernelVariantCommits(t *testing.T) {
	dm, err := New(50, 0.1, 0.1, WithModel(NewRBFModel(2.0, 4, 1e-6)), WithSeed(9), WithCoarsestSize(2))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	obs := map[uint64]Data{
		1: NewRBFDatum([]float64{0, 0}, 2.0),
		2: NewRBFDatum([]float64{0.1, -0.1}, 2.0),
		3: NewRBFDatum([]float64{50, 50}, 2.0),
		4: NewRBFDatum([]float64{50.1, 49.9}, 2.0),
	}
	res, err := dm.Cluster(context.Background(), obs, AlgorithmKernel, 2)
	if err != nil {
		t.Fatalf("Cluster (kernel): %v", err)
	}
	if len(res.Labels) != len(obs) {
		t.Fatalf("got %d labels, want %d", len(res.Labels), len(obs))
	}
}
