package dynmeans

import "math"

// RBFModel is the default kernel-variant model: observations live only
// through a Gaussian similarity, cluster parameters are sparse convex
// combinations of support vectors, grounded on
// original_source/src/kerndynmeans_impl.hpp's ratio-association objective
// and coarsify routine.
type RBFModel struct {
	Omega     float64
	SparseK   int
	SparseEps float64
}

// NewRBFModel constructs the default kernel model. omega is the RBF
// bandwidth, spK bounds the support size kept per cluster parameter, spEps
// is the greedy sparse-approximation residual tolerance.
func NewRBFModel(omega float64, spK int, spEps float64) *RBFModel {
	return &RBFModel{Omega: omega, SparseK: spK, SparseEps: spEps}
}

func (m *RBFModel) NewParameter() Parameter {
	return &RBFParameter{model: m}
}

func (m *RBFModel) Coarsen(a, b Data) Data {
	da := a.(*RBFData)
	if b == nil {
		cp := *da
		cp.Members = append([]rbfLeaf(nil), da.Members...)
		return &cp
	}
	db := b.(*RBFData)
	out := &RBFData{
		Omega:   da.Omega,
		Members: make([]rbfLeaf, 0, len(da.Members)+len(db.Members)),
	}
	out.Members = append(out.Members, da.Members...)
	out.Members = append(out.Members, db.Members...)
	return out
}

func rbfKernel(a, b []float64, omega float64) float64 {
	return math.Exp(-sqDist(a, b) / omega)
}

// rbfLeaf is one weighted raw point in a (possibly coarsened or
// sparse-approximated) kernel-feature-space combination.
type rbfLeaf struct {
	Vec []float64
	W   float64
}

// RBFData is the default kernel-variant Data implementation. A freshly
// ingested observation has a single unit-weight member; coarsening and
// sparse approximation both work by rewriting Members.
type RBFData struct {
	Omega   float64
	Members []rbfLeaf
}

// NewRBFDatum wraps a raw vector as a leaf-level kernel observation.
func NewRBFDatum(v []float64, omega float64) *RBFData {
	return &RBFData{Omega: omega, Members: []rbfLeaf{{Vec: v, W: 1.0}}}
}

func (d *RBFData) totalWeight() float64 {
	var w float64
	for _, m := range d.Members {
		w += m.W
	}
	return w
}

func (d *RBFData) Sim(other Data) float64 {
	o := other.(*RBFData)
	var s float64
	for _, m := range d.Members {
		for _, n := range o.Members {
			s += m.W * n.W * rbfKernel(m.Vec, n.Vec, d.Omega)
		}
	}
	return s
}

func (d *RBFData) SimSelf() float64 { return d.Sim(d) }

func (d *RBFData) Mass() float64 { return d.totalWeight() }

// DistTo returns the squared kernel-feature-space distance to a
// parameter's active (or frozen) combination; unused by the kernel
// solver's own cost terms (which go through KernelParameter directly) but
// kept functionally correct rather than stubbed, since Data.DistTo is a
// core-facing contract method.
func (d *RBFData) DistTo(p Parameter) float64 {
	pp := p.(*RBFParameter)
	combo := pp.cur
	if combo == nil {
		return d.SimSelf()
	}
	return d.SimSelf() - 2*combo.Sim(d) + combo.SimSelf()
}

// RBFParameter implements KernelParameter. cur is the in-batch posterior
// (prm), old is the frozen posterior from the previous instantiating
// batch (prm_old); both are represented as sparse RBFData combinations so
// Sim/SimSelf can be reused directly.
type RBFParameter struct {
	model *RBFModel
	cur   *RBFData
	old   *RBFData
}

func (p *RBFParameter) blend(members map[uint64]Data, gamma float64) *RBFData {
	n := float64(len(members))
	denom := gamma + n
	raw := make([]rbfLeaf, 0)
	if p.old != nil && gamma > 0 {
		tw := p.old.totalWeight()
		if tw > 0 {
			scale := gamma / denom
			for _, m := range p.old.Members {
				raw = append(raw, rbfLeaf{Vec: m.Vec, W: m.W / tw * scale})
			}
		}
	}
	if n > 0 {
		share := 1.0 / denom
		for _, d := range members {
			dd := d.(*RBFData)
			tw := dd.totalWeight()
			if tw == 0 {
				continue
			}
			for _, m := range dd.Members {
				raw = append(raw, rbfLeaf{Vec: m.Vec, W: m.W / tw * share})
			}
		}
	}
	combo := &RBFData{Omega: p.omega(), Members: raw}
	spK, spEps := p.model.SparseK, p.model.SparseEps
	if spK <= 0 {
		spK = len(raw)
	}
	sparse := approximateSparse(combo, spK, spEps)
	return sparse
}

func (p *RBFParameter) omega() float64 {
	if p.model != nil {
		return p.model.Omega
	}
	if p.old != nil {
		return p.old.Omega
	}
	return 1.0
}

func (p *RBFParameter) Update(members map[uint64]Data, gamma float64) {
	p.cur = p.blend(members, gamma)
}

func (p *RBFParameter) UpdateOld(members map[uint64]Data, gamma float64) {
	p.old = p.blend(members, gamma)
}

func (p *RBFParameter) DistTo(d Data, active bool) float64 {
	combo := p.cur
	if !active {
		combo = p.old
	}
	if combo == nil {
		return d.SimSelf()
	}
	return d.SimSelf() - 2*combo.Sim(d) + combo.SimSelf()
}

// Cost returns the ratio-association reassociation cost,
// adding the prior cross terms only when gamma > 0 (an old cluster reused
// this batch); new clusters (gamma == 0) get the plain ratio-association
// term.
func (p *RBFParameter) Cost(members map[uint64]Data, gamma float64) float64 {
	n := float64(len(members))
	if n == 0 {
		return 0
	}
	xs := make([]Data, 0, len(members))
	for _, d := range members {
		xs = append(xs, d)
	}
	var diag, pairSum float64
	for i, xi := range xs {
		diag += xi.SimSelf()
		for j := i + 1; j < len(xs); j++ {
			pairSum += 2 * xi.Sim(xs[j])
		}
	}
	c := diag - (diag+pairSum)/n
	if gamma > 0 && p.old != nil {
		c += gamma * n / (gamma + n) * p.old.SimSelf()
		var cross float64
		for _, xi := range xs {
			cross += p.old.Sim(xi)
		}
		c += -2 * gamma / (gamma + n) * cross
	}
	return c
}

// SimToData and SimSelf implement KernelParameter, both evaluated
// against the prior snapshot (prm_old) taken at the start of the batch.
func (p *RBFParameter) SimToData(d Data) float64 {
	if p.old == nil {
		return 0
	}
	return p.old.Sim(d)
}

func (p *RBFParameter) SimSelf() float64 {
	if p.old == nil {
		return 0
	}
	return p.old.SimSelf()
}

// KernelParameter is the narrower contract the kernel batch solver and
// the bipartite matcher need beyond Parameter: access to prm_old's
// similarity, which the point variant never exposes.
type KernelParameter interface {
	Parameter
	SimToData(d Data) float64
	SimSelf() float64
}

var _ KernelParameter = (*RBFParameter)(nil)
