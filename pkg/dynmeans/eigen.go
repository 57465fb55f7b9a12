package dynmeans

import (
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// eigenResult is a descending-by-eigenvalue, threshold-pruned eigensystem
// of a real symmetric matrix.
type eigenResult struct {
	values  []float64
	vectors *mat.Dense // n x len(values), column i is the eigenvector for values[i]
}

// solveEigen dispatches to the self-adjoint or randomized-sketch solver
// per cfg.eigenSolver, keeping only eigenvalues >= threshold (ties
// resolved toward keeping them), grounded on original_source's
// EigenSolver::Type {EIGEN_SELF_ADJOINT, REDSVD}.
func solveEigen(a *mat.SymDense, solver EigenSolverType, nEigs int, threshold float64, rng *rand.Rand) (*eigenResult, error) {
	switch solver {
	case EigenSelfAdjoint:
		return solveEigenSelfAdjoint(a, nEigs, threshold)
	case EigenRandomized:
		return solveEigenRandomized(a, nEigs, threshold, rng)
	default:
		return nil, ErrUnknownEigenSolver
	}
}

func solveEigenSelfAdjoint(a *mat.SymDense, nEigs int, threshold float64) (*eigenResult, error) {
	var es mat.EigenSym
	ok := es.Factorize(a, true)
	if !ok {
		return nil, ErrEigenNonConvergent
	}
	values := es.Values(nil)
	var vectors mat.Dense
	es.VectorsTo(&vectors)
	return pruneEigen(values, &vectors, nEigs, threshold), nil
}

// solveEigenRandomized approximates the top eigenpairs via a Gaussian
// random sketch followed by a thin QR and a small dense eigendecomposition
// of the projected system (the REDSVD path of original_source's
// EigenSolver).
func solveEigenRandomized(a *mat.SymDense, nEigs int, threshold float64, rng *rand.Rand) (*eigenResult, error) {
	n, _ := a.Dims()
	rank := nEigs
	if rank <= 0 {
		rank = n
	}
	oversampled := rank + defaultOversample
	if oversampled > n {
		oversampled = n
	}

	normal := distuv.Normal{Mu: 0, Sigma: 1, Src: rng}
	omega := mat.NewDense(n, oversampled, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < oversampled; j++ {
			omega.Set(i, j, normal.Rand())
		}
	}

	var y mat.Dense
	y.Mul(a, omega)

	var qr mat.QR
	qr.Factorize(&y)
	var q mat.Dense
	qr.QTo(&q)
	if cols := q.RawMatrix().Cols; cols > oversampled {
		q = *mat.DenseCopyOf(q.Slice(0, n, 0, oversampled))
	}

	var aq mat.Dense
	aq.Mul(a, &q)
	var proj mat.Dense
	proj.Mul(q.T(), &aq)

	sym := symmetrize(&proj)
	var es mat.EigenSym
	if !es.Factorize(sym, true) {
		return nil, ErrEigenNonConvergent
	}
	values := es.Values(nil)
	var smallVecs mat.Dense
	es.VectorsTo(&smallVecs)

	var lifted mat.Dense
	lifted.Mul(&q, &smallVecs)

	return pruneEigen(values, &lifted, nEigs, threshold), nil
}

func symmetrize(m *mat.Dense) *mat.SymDense {
	r, _ := m.Dims()
	sym := mat.NewSymDense(r, nil)
	for i := 0; i < r; i++ {
		for j := i; j < r; j++ {
			v := (m.At(i, j) + m.At(j, i)) / 2
			sym.SetSym(i, j, v)
		}
	}
	return sym
}

// pruneEigen sorts eigenpairs descending by eigenvalue, keeps at most
// nEigs (0 means unbounded) of them, and drops any with eigenvalue below
// threshold.
func pruneEigen(values []float64, vectors *mat.Dense, nEigs int, threshold float64) *eigenResult {
	n, total := vectors.Dims()
	order := make([]int, total)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(i, j int) bool { return values[order[i]] > values[order[j]] })

	kept := make([]int, 0, total)
	for _, idx := range order {
		if values[idx] < threshold {
			continue
		}
		kept = append(kept, idx)
		if nEigs > 0 && len(kept) == nEigs {
			break
		}
	}

	outVals := make([]float64, len(kept))
	outVecs := mat.NewDense(n, len(kept), nil)
	for col, idx := range kept {
		outVals[col] = values[idx]
		for row := 0; row < n; row++ {
			outVecs.Set(row, col, vectors.At(row, idx))
		}
	}
	return &eigenResult{values: outVals, vectors: outVecs}
}
