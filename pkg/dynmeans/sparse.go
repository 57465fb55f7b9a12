package dynmeans

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// approximateSparse collapses combo (a, possibly large, convex
// combination in kernel-feature space) down to at most spK support
// vectors via greedy matching pursuit, stopping early once
// the residual kernel norm drops to spEps or below.
func approximateSparse(combo *RBFData, spK int, spEps float64) *RBFData {
	m := len(combo.Members)
	if m == 0 {
		return combo
	}
	if spK <= 0 || m <= spK {
		return combo
	}

	omega := combo.Omega
	k := make([][]float64, m)
	for i := range k {
		k[i] = make([]float64, m)
	}
	if useWideAccumulate() {
		for i := 0; i < m; i++ {
			for j := i; j < m; j++ {
				v := rbfKernel(combo.Members[i].Vec, combo.Members[j].Vec, omega)
				k[i][j] = v
				k[j][i] = v
			}
		}
	} else {
		for i := 0; i < m; i++ {
			for j := 0; j < m; j++ {
				k[i][j] = rbfKernel(combo.Members[i].Vec, combo.Members[j].Vec, omega)
			}
		}
	}

	c := make([]float64, m)
	for i, mem := range combo.Members {
		c[i] = mem.W
	}
	r := append([]float64(nil), c...)

	scores := newScoreIndex()
	scoreOf := func(j int) float64 {
		var dot float64
		for i := 0; i < m; i++ {
			dot += r[i] * k[i][j]
		}
		denom := math.Sqrt(k[j][j])
		if denom == 0 {
			return 0
		}
		return math.Abs(dot) / denom
	}
	for j := 0; j < m; j++ {
		scores.set(j, scoreOf(j))
	}

	var selected []int
	var alpha []float64

	residualKNorm := func() float64 {
		var v float64
		for i := 0; i < m; i++ {
			var ki float64
			for j := 0; j < m; j++ {
				ki += k[i][j] * r[j]
			}
			v += r[i] * ki
		}
		if v < 0 {
			v = 0
		}
		return math.Sqrt(v)
	}

	for len(selected) < spK && scores.len() > 0 {
		j, _, ok := scores.max()
		if !ok {
			break
		}
		scores.remove(j)
		selected = append(selected, j)

		s := len(selected)
		kss := mat.NewDense(s, s, nil)
		b := mat.NewVecDense(s, nil)
		for a := 0; a < s; a++ {
			for bIdx := 0; bIdx < s; bIdx++ {
				kss.Set(a, bIdx, k[selected[a]][selected[bIdx]])
			}
			var bv float64
			for i := 0; i < m; i++ {
				bv += c[i] * k[selected[a]][i]
			}
			b.SetVec(a, bv)
		}
		var av mat.VecDense
		if err := av.SolveVec(kss, b); err != nil {
			// Singular Gram sub-system (near-duplicate support vectors);
			// fall back to the least-squares solution rather than abort.
			var qr mat.QR
			qr.Factorize(kss)
			_ = qr.SolveVecTo(&av, false, b)
		}
		alpha = make([]float64, s)
		for i := 0; i < s; i++ {
			alpha[i] = av.AtVec(i)
		}

		for i := 0; i < m; i++ {
			var contrib float64
			for idx, sv := range selected {
				contrib += k[i][sv] * alpha[idx]
			}
			r[i] = c[i] - contrib
		}
		for j := range combo.Members {
			if scores.nodes[j] == nil {
				continue
			}
			scores.set(j, scoreOf(j))
		}

		if residualKNorm() <= spEps {
			break
		}
	}

	out := &RBFData{Omega: omega, Members: make([]rbfLeaf, len(selected))}
	for i, sv := range selected {
		out.Members[i] = rbfLeaf{Vec: combo.Members[sv].Vec, W: alpha[i]}
	}
	return out
}
