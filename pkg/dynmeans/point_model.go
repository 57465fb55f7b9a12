package dynmeans

// EuclideanModel is the default point-variant model: observations are
// plain real vectors, cluster parameters are weighted means, grounded on
// original_source/dmeans/model/expkernel_model.hpp's ExpKernelParameter.
type EuclideanModel struct{}

func (EuclideanModel) NewParameter() Parameter {
	return &EuclideanParameter{}
}

// EuclideanVector is the default point-variant Data implementation.
type EuclideanVector struct {
	V []float64
}

func NewEuclideanVector(v []float64) *EuclideanVector { return &EuclideanVector{V: v} }

func (d *EuclideanVector) Sim(other Data) float64 {
	o := other.(*EuclideanVector)
	var dot float64
	for i := range d.V {
		dot += d.V[i] * o.V[i]
	}
	return dot
}

func (d *EuclideanVector) SimSelf() float64 { return d.Sim(d) }

func (d *EuclideanVector) Mass() float64 { return 1.0 }

func (d *EuclideanVector) DistTo(p Parameter) float64 {
	pp := p.(*EuclideanParameter)
	return sqDist(d.V, pp.V)
}

func sqDist(a, b []float64) float64 {
	var s float64
	if useWideAccumulate() {
		var s0, s1 float64
		n := len(a)
		i := 0
		for ; i+1 < n; i += 2 {
			d0 := a[i] - b[i]
			d1 := a[i+1] - b[i+1]
			s0 += d0 * d0
			s1 += d1 * d1
		}
		s = s0 + s1
		for ; i < n; i++ {
			d := a[i] - b[i]
			s += d * d
		}
		return s
	}
	for i := range a {
		d := a[i] - b[i]
		s += d * d
	}
	return s
}

// EuclideanParameter implements Parameter for EuclideanModel. V is the
// current (in-batch) weighted mean, VOld the frozen posterior mean from
// the previous instantiating batch.
type EuclideanParameter struct {
	V, VOld []float64
}

func blendMean(members map[uint64]Data, prior []float64, gamma float64) []float64 {
	var dim int
	for _, d := range members {
		dim = len(d.(*EuclideanVector).V)
		break
	}
	if dim == 0 && prior != nil {
		dim = len(prior)
	}
	out := make([]float64, dim)
	wt := gamma
	if prior != nil {
		for i := range out {
			out[i] = gamma * prior[i]
		}
	}
	for _, d := range members {
		v := d.(*EuclideanVector).V
		for i := range out {
			out[i] += v[i]
		}
		wt++
	}
	if wt == 0 {
		return out
	}
	for i := range out {
		out[i] /= wt
	}
	return out
}

func (p *EuclideanParameter) Update(members map[uint64]Data, gamma float64) {
	p.V = blendMean(members, p.VOld, gamma)
}

func (p *EuclideanParameter) UpdateOld(members map[uint64]Data, gamma float64) {
	p.VOld = blendMean(members, p.VOld, gamma)
}

func (p *EuclideanParameter) DistTo(d Data, active bool) float64 {
	dv := d.(*EuclideanVector)
	if active {
		return sqDist(dv.V, p.V)
	}
	return sqDist(dv.V, p.VOld)
}

func (p *EuclideanParameter) Cost(members map[uint64]Data, gamma float64) float64 {
	var c float64
	for _, d := range members {
		c += sqDist(d.(*EuclideanVector).V, p.V)
	}
	if p.VOld != nil {
		c += gamma * sqDist(p.V, p.VOld)
	}
	return c
}
