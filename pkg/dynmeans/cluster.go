package dynmeans

// Cluster is the DDP state manager's record for one cluster.
// The DDP state owns the only copy; the batch solver only ever sees a
// read-only ClusterView snapshot taken at the start of a batch.
type Cluster struct {
	ID uint64

	Age     int
	W       float64
	Gamma   float64
	AgeCost float64

	Prm    Parameter
	PrmOld Parameter

	// Members is populated only during an in-progress batch and cleared
	// at commit.
	Members map[uint64]Data
}

// IsNew reports whether this cluster was freshly born this batch.
func (c *Cluster) IsNew() bool { return c.Age == 0 }

// instantiated reports whether the cluster received >=1 member this
// batch; used to pick prm vs prm_old in distance computations.
func (c *Cluster) instantiated() bool { return len(c.Members) > 0 }

// assign attaches an observation to the cluster, rejecting a duplicate ID
// the way original_source's Cluster::assignData throws
// DataAlreadyInClusterException.
func (c *Cluster) assign(id uint64, d Data) error {
	if c.Members == nil {
		c.Members = make(map[uint64]Data)
	}
	if _, ok := c.Members[id]; ok {
		return &DuplicateObservationError{ClusterID: c.ID, ObsID: id}
	}
	c.Members[id] = d
	return nil
}

// ClusterView is the read-only snapshot of a live cluster exposed to a
// batch solver via PrepareForBatch.
type ClusterView struct {
	ID      uint64
	Gamma   float64
	AgeCost float64
	PrmOld  Parameter
	WOld    float64
}
