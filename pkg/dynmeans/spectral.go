package dynmeans

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// spectralResult is the base (coarsest-level) clustering produced by
// normalized-cut spectral clustering.
type spectralResult struct {
	labels []int
	k      int
}

// spectralCluster eigendecomposes the (possibly old-cluster-augmented)
// kernel matrix, row-normalizes the retained eigenvectors, and hardens
// them into cluster labels via Yu-Shi discretization. The number of
// retained eigenpairs - and hence the number of base clusters - is
// governed by cfg's eigenvalue threshold.
func spectralCluster(a *mat.SymDense, solver EigenSolverType, threshold float64, rng *rand.Rand) (*spectralResult, error) {
	n, _ := a.Dims()
	if n == 0 {
		return &spectralResult{}, nil
	}
	if n == 1 {
		return &spectralResult{labels: []int{0}, k: 1}, nil
	}

	eig, err := solveEigen(a, solver, 0, threshold, rng)
	if err != nil {
		return nil, err
	}
	r := len(eig.values)
	if r == 0 {
		r = 1
	}
	if r > n {
		r = n
	}

	x := mat.NewDense(n, r, nil)
	for i := 0; i < n; i++ {
		var norm float64
		for j := 0; j < r; j++ {
			if j < eig.vectors.RawMatrix().Cols {
				norm += eig.vectors.At(i, j) * eig.vectors.At(i, j)
			}
		}
		norm = math.Sqrt(norm)
		if norm == 0 {
			norm = 1
		}
		for j := 0; j < r; j++ {
			v := 0.0
			if j < eig.vectors.RawMatrix().Cols {
				v = eig.vectors.At(i, j)
			}
			x.Set(i, j, v/norm)
		}
	}

	labels := discretizeYuShi(x, rng)
	return &spectralResult{labels: labels, k: r}, nil
}

// discretizeYuShi implements the Yu & Shi multiclass-spectral-clustering
// discretization: alternate hardening the rotated eigenvector matrix into
// a one-hot indicator and re-solving for the closest orthonormal rotation
// via SVD, until the rotation objective stops improving.
func discretizeYuShi(x *mat.Dense, rng *rand.Rand) []int {
	n, r := x.Dims()
	rot := initOrthogonalRotation(x, rng)

	var prevObj float64
	const maxRounds = 100
	labels := make([]int, n)

	for round := 0; round < maxRounds; round++ {
		var m mat.Dense
		m.Mul(x, rot)

		indicator := mat.NewDense(n, r, nil)
		for i := 0; i < n; i++ {
			best, bestVal := 0, math.Inf(-1)
			for j := 0; j < r; j++ {
				v := m.At(i, j)
				if v > bestVal {
					bestVal = v
					best = j
				}
			}
			indicator.Set(i, best, 1)
			labels[i] = best
		}

		var cross mat.Dense
		cross.Mul(indicator.T(), x)

		var svd mat.SVD
		ok := svd.Factorize(&cross, mat.SVDThin)
		if !ok {
			break
		}
		var u, v mat.Dense
		svd.UTo(&u)
		svd.VTo(&v)
		var newRot mat.Dense
		newRot.Mul(&v, u.T())

		sv := svd.Values(nil)
		obj := 0.0
		for _, s := range sv {
			obj += s
		}
		rot = &newRot
		if round > 0 && math.Abs(obj-prevObj) < 1e-8 {
			break
		}
		prevObj = obj
	}
	return labels
}

// initOrthogonalRotation seeds the Yu-Shi rotation with r rows of X
// chosen to be as mutually orthogonal as possible, following Yu & Shi's
// initialization: the first row is drawn from rng, each later row is the
// one with the smallest accumulated |X·column| over the rows already
// chosen.
func initOrthogonalRotation(x *mat.Dense, rng *rand.Rand) *mat.Dense {
	n, r := x.Dims()
	rot := mat.NewDense(r, r, nil)

	firstRow := rng.Intn(n)
	for j := 0; j < r; j++ {
		rot.Set(j, 0, x.At(firstRow, j))
	}

	c := make([]float64, n)
	for k := 1; k < r; k++ {
		prevCol := make([]float64, r)
		for j := 0; j < r; j++ {
			prevCol[j] = rot.At(j, k-1)
		}
		for i := 0; i < n; i++ {
			var dot float64
			for j := 0; j < r; j++ {
				dot += x.At(i, j) * prevCol[j]
			}
			c[i] += math.Abs(dot)
		}
		bestI, bestC := -1, math.Inf(1)
		for i := 0; i < n; i++ {
			if c[i] < bestC {
				bestC = c[i]
				bestI = i
			}
		}
		for j := 0; j < r; j++ {
			rot.Set(j, k, x.At(bestI, j))
		}
	}
	return rot
}
