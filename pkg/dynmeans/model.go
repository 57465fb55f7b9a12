package dynmeans

// Data is the model-specific view of a single observation.
// The core never looks inside a Data value; it only calls these methods,
// and only the ones its chosen solver actually needs (the point solver
// never calls Sim/SimSelf, the kernel solver never calls DistTo).
type Data interface {
	// Sim returns the kernel similarity sim(self, other) >= 0.
	Sim(other Data) float64
	// SimSelf returns sim(self, self), i.e. k(x,x).
	SimSelf() float64
	// Mass returns the observation's contribution to a coarse node's N,
	// 1.0 for a leaf observation.
	Mass() float64
	// DistTo returns the point-variant squared distance to a parameter.
	DistTo(p Parameter) float64
}

// Parameter is a cluster's model-specific parameter.
type Parameter interface {
	// Update sets the parameter from its current members and prior
	// strength gamma, blending against the frozen prior when gamma > 0.
	Update(members map[uint64]Data, gamma float64)
	// UpdateOld freezes the posterior blend into prm_old, used at the end
	// of an instantiating batch.
	UpdateOld(members map[uint64]Data, gamma float64)
	// DistTo returns the model cost of assigning d to this parameter.
	// active is true iff the cluster has already received >=1 member
	// this batch (selects prm vs prm_old in the original's distTo).
	DistTo(d Data, active bool) float64
	// Cost returns the reassociation cost of the given members against
	// this parameter at prior strength gamma.
	Cost(members map[uint64]Data, gamma float64) float64
}

// Model constructs fresh Parameter values. A point-variant parameter is
// typically seeded directly from the first member assigned to a newly
// created cluster; a kernel-variant parameter is
// typically seeded empty and filled in by Update.
type Model interface {
	NewParameter() Parameter
}

// KernelModel additionally supplies the Coarse constructor the multilevel
// kernel solver needs to build coarser graph levels.
type KernelModel interface {
	Model
	// Coarsen builds a coarse node aggregating a and b's sim and Mass.
	// b may be nil when a is left as a singleton at this coarsening pass.
	Coarsen(a, b Data) Data
}
