package dynmeans

import "testing"

func TestStateCommitRejectsStaleOrRepeatedToken(t *testing.T) {
	s := newState(1.0, 0.1, 0.1, EuclideanModel{})
	_, token := s.PrepareForBatch()

	members := map[uint64]map[uint64]Data{
		0: {0: NewEuclideanVector([]float64{1, 1})},
	}
	if err := s.Commit(token, members); err != nil {
		t.Fatalf("first commit: %v", err)
	}
	if err := s.Commit(token, members); err != ErrAlreadyCommitted {
		t.Fatalf("second commit with same token: got %v, want ErrAlreadyCommitted", err)
	}

	if err := s.Commit(token+1, members); err != ErrAlreadyCommitted {
		t.Fatalf("commit with unissued token: got %v, want ErrAlreadyCommitted", err)
	}
}

func TestStateAllocateIDNeverRepeats(t *testing.T) {
	s := newState(1.0, 0.1, 0.1, EuclideanModel{})
	seen := make(map[uint64]bool)
	for i := 0; i < 100; i++ {
		id := s.AllocateID()
		if seen[id] {
			t.Fatalf("AllocateID returned duplicate id %d", id)
		}
		seen[id] = true
	}
}

func TestStateCommitAgesUntouchedClustersAndRetires(t *testing.T) {
	lambda, q := 1.0, 0.4
	s := newState(lambda, q, 0.1, EuclideanModel{})

	_, tok1 := s.PrepareForBatch()
	id := s.AllocateID()
	if err := s.Commit(tok1, map[uint64]map[uint64]Data{
		id: {0: NewEuclideanVector([]float64{0, 0})},
	}); err != nil {
		t.Fatalf("commit 1: %v", err)
	}
	if got := len(s.Snapshot()); got != 1 {
		t.Fatalf("after commit 1: %d clusters, want 1", got)
	}

	// Batch 2 touches nothing; the cluster should age by one and, since
	// Q*age (0.8) <= lambda (1.0), survive.
	_, tok2 := s.PrepareForBatch()
	if err := s.Commit(tok2, map[uint64]map[uint64]Data{}); err != nil {
		t.Fatalf("commit 2: %v", err)
	}
	snap := s.Snapshot()
	if len(snap) != 1 {
		t.Fatalf("after commit 2: %d clusters, want 1 (not yet retired)", len(snap))
	}
	if snap[0].Age != 2 {
		t.Fatalf("age after commit 2 = %d, want 2", snap[0].Age)
	}

	// Batch 3: age becomes 3, Q*age = 1.2 > lambda = 1.0, must retire.
	_, tok3 := s.PrepareForBatch()
	if err := s.Commit(tok3, map[uint64]map[uint64]Data{}); err != nil {
		t.Fatalf("commit 3: %v", err)
	}
	if got := len(s.Snapshot()); got != 0 {
		t.Fatalf("after commit 3: %d clusters, want 0 (retired)", got)
	}
}

func TestStateResetClearsClustersAndIDCounter(t *testing.T) {
	s := newState(1.0, 0.1, 0.1, EuclideanModel{})
	_, tok := s.PrepareForBatch()
	id := s.AllocateID()
	_ = s.Commit(tok, map[uint64]map[uint64]Data{id: {0: NewEuclideanVector([]float64{1})}})

	s.Reset()
	if got := len(s.Snapshot()); got != 0 {
		t.Fatalf("after Reset: %d clusters, want 0", got)
	}
	if got := s.AllocateID(); got != 0 {
		t.Fatalf("first AllocateID after Reset = %d, want 0", got)
	}
}
