package dynmeans

import "sort"

// state is the DDP state manager. It is the sole owner of
// every Cluster record; solvers only ever see the read-only ClusterView
// snapshot produced by PrepareForBatch.
type state struct {
	lambda, q, tau float64
	model          Model

	clusters map[uint64]*Cluster
	nextID   uint64

	batchSeq  uint64
	committed bool
}

func newState(lambda, q, tau float64, model Model) *state {
	s := &state{lambda: lambda, q: q, tau: tau, model: model}
	s.Reset()
	return s
}

// Reset discards all clusters and resets the ID counter to 0 contract).
func (s *state) Reset() {
	s.clusters = make(map[uint64]*Cluster)
	s.nextID = 0
	s.batchSeq = 0
	s.committed = true // nothing to commit until the next PrepareForBatch
}

// AllocateID mints a fresh, process-wide-unique cluster ID. The caller
// (the finalize step in client.go) is responsible for only minting IDs
// for the winning restart, so failed restarts never burn IDs.
func (s *state) AllocateID() uint64 {
	id := s.nextID
	s.nextID++
	return id
}

// PrepareForBatch exposes a read-only snapshot of every live cluster and
// returns a batch token that must be passed to the matching Commit call.
// Calling PrepareForBatch again before Commit silently starts a new batch
// (the previous token becomes permanently unusable). A batch is atomic:
// if it never commits, DDP state remains exactly as it was before.
func (s *state) PrepareForBatch() ([]ClusterView, uint64) {
	s.batchSeq++
	s.committed = false

	views := make([]ClusterView, 0, len(s.clusters))
	for _, c := range s.clusters {
		views = append(views, ClusterView{
			ID:      c.ID,
			Gamma:   c.Gamma,
			AgeCost: c.AgeCost,
			PrmOld:  c.PrmOld,
			WOld:    c.W,
		})
	}
	sort.Slice(views, func(i, j int) bool { return views[i].ID < views[j].ID })
	return views, s.batchSeq
}

// Commit applies the solver's winning labeling to DDP state. membersByID maps a final cluster ID (an existing live cluster's
// ID, or a brand new ID minted via AllocateID) to the observations
// assigned to it this batch. Clusters absent from membersByID age by one.
// After updating every cluster's age/gamma/age_cost, clusters whose
// age_cost exceeds lambda are deleted. Committing twice against the same
// token is rejected.
func (s *state) Commit(token uint64, membersByID map[uint64]map[uint64]Data) error {
	if token != s.batchSeq || s.committed {
		return ErrAlreadyCommitted
	}

	touched := make(map[uint64]bool, len(membersByID))
	for id, members := range membersByID {
		touched[id] = true
		if c, ok := s.clusters[id]; ok {
			gammaPrev := c.Gamma
			prm := c.PrmOld
			if prm == nil {
				prm = s.model.NewParameter()
			}
			prm.UpdateOld(members, gammaPrev)
			c.Prm = prm
			c.PrmOld = prm
			c.W = gammaPrev + float64(len(members))
			c.Age = 1
		} else {
			prm := s.model.NewParameter()
			prm.UpdateOld(members, 0)
			s.clusters[id] = &Cluster{
				ID:     id,
				Age:    1,
				W:      float64(len(members)),
				Prm:    prm,
				PrmOld: prm,
			}
		}
	}

	for id, c := range s.clusters {
		if !touched[id] {
			c.Age++
		}
		c.Members = nil
	}

	for id, c := range s.clusters {
		c.Gamma = 1.0 / (1.0/c.W + s.tau*float64(c.Age))
		c.AgeCost = s.q * float64(c.Age)
		if c.AgeCost > s.lambda {
			delete(s.clusters, id)
		}
	}

	s.committed = true
	return nil
}

// Snapshot returns a stable, ID-sorted copy of every live cluster for
// diagnostics and tests.
func (s *state) Snapshot() []Cluster {
	out := make([]Cluster, 0, len(s.clusters))
	for _, c := range s.clusters {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
