package dynmeans

// Algorithm selects which batch solver Cluster runs.
type Algorithm uint8

const (
	// AlgorithmPoint runs the Lloyd-like point batch solver.
	AlgorithmPoint Algorithm = iota
	// AlgorithmKernel runs the multilevel kernel batch solver.
	AlgorithmKernel
)

// EigenSolverType selects the eigendecomposition path used by the spectral
// base clusterer.
type EigenSolverType uint8

const (
	// EigenSelfAdjoint runs a full symmetric eigendecomposition.
	EigenSelfAdjoint EigenSolverType = iota
	// EigenRandomized runs the randomized sketch-QR path.
	EigenRandomized
)

const (
	defaultMaxIterations              = 500
	defaultCoarsestSize                = 4
	defaultSparseApproxErrThreshold    = 1e-4
	defaultOversample                  = 8
)

// cfg holds every tunable knob exposed via the Opt functional options,
// plus the handful of resource limits the batch solvers respect.
type cfg struct {
	lambda float64
	q      float64
	tau    float64

	kernelWidth                       float64
	sparseApproximationSize           int
	sparseApproximationErrorThreshold float64

	verbose bool
	logger  Logger

	seed int64

	maxIterations int
	coarsestSize  int
	eigenSolver   EigenSolverType

	model   Model
	matcher Matcher

	// eigenLowerThreshold overrides the spectral clusterer's eigenvalue
	// retention threshold. Reusing lambda as the default threshold is a
	// cost-model coincidence rather than a principled choice, so it's
	// exposed here as an independently configurable knob.
	eigenLowerThreshold float64
	eigenThresholdSet   bool
}

func defaultCfg(lambda, q, tau float64) cfg {
	return cfg{
		lambda: lambda,
		q:      q,
		tau:    tau,

		kernelWidth:                       1.0,
		sparseApproximationSize:           8,
		sparseApproximationErrorThreshold: defaultSparseApproxErrThreshold,

		verbose: false,
		logger:  nopLogger{},

		seed: -1,

		maxIterations: defaultMaxIterations,
		coarsestSize:  defaultCoarsestSize,
		eigenSolver:   EigenSelfAdjoint,

		model:   EuclideanModel{},
		matcher: newDefaultMatcher(),
	}
}

func (c *cfg) validate() error {
	if c.lambda < 0 {
		return ErrInvalidLambda
	}
	if c.q < 0 {
		return ErrInvalidQ
	}
	if c.tau < 0 {
		return ErrInvalidTau
	}
	if c.sparseApproximationSize <= 0 {
		return ErrInvalidSparseSize
	}
	if c.model == nil {
		return ErrNilModel
	}
	return nil
}

func (c *cfg) eigenThreshold() float64 {
	if c.eigenThresholdSet {
		return c.eigenLowerThreshold
	}
	return c.lambda
}

// Opt configures a DynMeans instance at construction time via the
// functional-options pattern.
type Opt interface {
	apply(*cfg)
}

type optFunc func(*cfg)

func (f optFunc) apply(c *cfg) { f(c) }

// WithKernelWidth records omega, the RBF kernel bandwidth, in the
// configuration. The value is not passed to the installed model: an
// RBFModel and each RBFData carry their own omega.
func WithKernelWidth(omega float64) Opt {
	return optFunc(func(c *cfg) { c.kernelWidth = omega })
}

// WithSparseApproximationSize records spK, the support-vector budget per
// kernel cluster parameter, and New rejects a value <= 0. The value is
// not passed to the installed model: an RBFModel uses its own SparseK.
func WithSparseApproximationSize(spK int) Opt {
	return optFunc(func(c *cfg) { c.sparseApproximationSize = spK })
}

// WithSparseApproximationErrorThreshold records spEps, the
// greedy-approximation residual tolerance. Default 1e-4. The value is not
// passed to the installed model: an RBFModel uses its own SparseEps.
func WithSparseApproximationErrorThreshold(spEps float64) Opt {
	return optFunc(func(c *cfg) { c.sparseApproximationErrorThreshold = spEps })
}

// WithVerbose turns on progress logging via the configured Logger (or a
// default BasicLogger if none was set) and enables Results.Diagnostics.
func WithVerbose(v bool) Opt {
	return optFunc(func(c *cfg) {
		c.verbose = v
		if v {
			if _, ok := c.logger.(nopLogger); ok {
				c.logger = NewBasicLogger()
			}
		}
	})
}

// WithLogger installs a custom Logger sink.
func WithLogger(l Logger) Opt {
	return optFunc(func(c *cfg) { c.logger = l })
}

// WithSeed fixes the RNG seed threaded through restarts, coarsening, and
// spectral discretization. A negative seed (the default) means
// nondeterministic (seeded from the runtime clock).
func WithSeed(seed int64) Opt {
	return optFunc(func(c *cfg) { c.seed = seed })
}

// WithMaxIterations bounds the inner-iteration cap for the point solver
// and the kernel refinement descent. Default 500.
func WithMaxIterations(n int) Opt {
	return optFunc(func(c *cfg) { c.maxIterations = n })
}

// WithCoarsestSize sets nCoarsest, the node-count floor at which the
// kernel solver's coarsening stack stops and hands off to the spectral
// base clusterer. Default 4.
func WithCoarsestSize(n int) Opt {
	return optFunc(func(c *cfg) { c.coarsestSize = n })
}

// WithEigenSolver selects the eigendecomposition path. Default
// EigenSelfAdjoint.
func WithEigenSolver(t EigenSolverType) Opt {
	return optFunc(func(c *cfg) { c.eigenSolver = t })
}

// WithEigenLowerThreshold overrides the spectral clusterer's eigenvalue
// retention threshold, decoupling it from lambda.
func WithEigenLowerThreshold(t float64) Opt {
	return optFunc(func(c *cfg) {
		c.eigenLowerThreshold = t
		c.eigenThresholdSet = true
	})
}

// WithModel installs the model plug-in used to construct Data/Parameter
// values. Default EuclideanModel{}. AlgorithmKernel requires
// a KernelModel; Cluster returns ErrNilCoarsener if one isn't installed.
func WithModel(m Model) Opt {
	return optFunc(func(c *cfg) { c.model = m })
}

// WithMatcher overrides the bipartite old/new correspondence solver used
// by the kernel variant. Default is a built-in Hungarian
// algorithm; most callers never need this.
func WithMatcher(m Matcher) Opt {
	return optFunc(func(c *cfg) { c.matcher = m })
}
