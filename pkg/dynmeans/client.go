// Package dynmeans implements the Dynamic Means streaming clustering
// engine: a Dirichlet-Dependent-Process cluster lifecycle manager coupled
// to batch cost-minimization solvers for both Euclidean (point-variant)
// and kernel (RBF, kernel-variant) observations.
package dynmeans

import (
	"context"
	"math/rand"
	"time"
)

// Results is what Cluster returns for one batch.
type Results struct {
	// Labels maps every observation ID in the batch to its final cluster
	// ID. New clusters are assigned freshly minted IDs; reused old
	// clusters keep their existing ID.
	Labels map[uint64]uint64
	// Objective is the winning restart's batch cost.
	Objective float64
	// ElapsedSeconds is wall-clock time spent inside Cluster.
	ElapsedSeconds float64
	// IterationCount is the winning restart's iteration count (point
	// variant) or level count (kernel variant).
	IterationCount int
	// Diagnostics is a zstd-compressed JSON snapshot of the winning
	// restart's objective, iteration count and cluster count, populated
	// only when WithVerbose(true) is set.
	Diagnostics []byte
}

// DynMeans is a long-lived streaming clusterer: construct once with New,
// then call Cluster once per arriving batch of observations.
type DynMeans struct {
	cfg   cfg
	state *state
	rng   *rand.Rand
}

// New constructs a DynMeans instance. lambda is the cluster birth
// penalty, Q the per-step age penalty, tau the prior-decay rate. Opts configure the model plug-in, solver limits, and logging;
// see config.go.
func New(lambda, q, tau float64, opts ...Opt) (*DynMeans, error) {
	c := defaultCfg(lambda, q, tau)
	for _, o := range opts {
		o.apply(&c)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}

	seed := c.seed
	if seed < 0 {
		seed = time.Now().UnixNano()
	}

	cpuBanner(c.logger)
	return &DynMeans{
		cfg:   c,
		state: newState(c.lambda, c.q, c.tau, c.model),
		rng:   rand.New(rand.NewSource(seed)),
	}, nil
}

// Reset discards all cluster state and restarts the cluster-ID counter
// from zero.
func (d *DynMeans) Reset() {
	d.state.Reset()
}

// Cluster runs one batch through the configured solver and, on success,
// commits the winning labeling to DDP state. An empty obs still ages
// every live cluster by one (no solver runs) and returns empty labels
// with objective 0. If ctx is canceled mid-solve, or every restart
// fails, DDP state is left exactly as it was before the call and the
// error is returned.
func (d *DynMeans) Cluster(ctx context.Context, obs map[uint64]Data, algorithm Algorithm, nRestarts int) (*Results, error) {
	if nRestarts <= 0 {
		return nil, ErrInvalidRestarts
	}

	start := time.Now()
	views, token := d.state.PrepareForBatch()

	if len(obs) == 0 {
		if err := d.state.Commit(token, map[uint64]map[uint64]Data{}); err != nil {
			return nil, err
		}
		d.cfg.logger.Log(LogLevelInfo, "batch committed", "n_obs", 0, "n_clusters", len(views), "objective", 0.0)
		return &Results{
			Labels:         map[uint64]uint64{},
			ElapsedSeconds: time.Since(start).Seconds(),
		}, nil
	}

	var (
		res *pointRestartResult
		err error
	)
	switch algorithm {
	case AlgorithmPoint:
		res, err = solvePoint(ctx, obs, views, d.cfg.model, d.cfg.lambda, d.cfg.maxIterations, nRestarts, d.rng)
	case AlgorithmKernel:
		km, ok := d.cfg.model.(KernelModel)
		if !ok {
			return nil, ErrNilCoarsener
		}
		res, err = solveKernel(ctx, obs, views, km, d.cfg.lambda, d.cfg.coarsestSize, d.cfg.eigenSolver, d.cfg.eigenThreshold(), d.cfg.maxIterations, d.cfg.matcher, nRestarts, d.rng)
	default:
		return nil, ErrUnknownAlgorithm
	}
	if err != nil {
		return nil, err
	}

	finalLabels, membersByID := d.finalizeLabels(res.labels, obs)

	if err := d.state.Commit(token, membersByID); err != nil {
		return nil, err
	}

	d.cfg.logger.Log(LogLevelInfo, "batch committed",
		"n_obs", len(obs), "n_clusters", len(membersByID), "objective", res.objective)

	var diag []byte
	if d.cfg.verbose {
		diag = buildDiagnostics(res)
	}

	return &Results{
		Labels:         finalLabels,
		Objective:      res.objective,
		ElapsedSeconds: time.Since(start).Seconds(),
		IterationCount: res.iterations,
		Diagnostics:    diag,
	}, nil
}

// finalizeLabels maps a winning restart's int64 labels (non-negative =
// an existing cluster's real ID, negative = a per-restart new-cluster
// placeholder) to final uint64 cluster IDs, minting a fresh ID per
// distinct placeholder only now that this restart has actually won
//.
func (d *DynMeans) finalizeLabels(labels map[uint64]int64, obs map[uint64]Data) (map[uint64]uint64, map[uint64]map[uint64]Data) {
	minted := make(map[int64]uint64)
	final := make(map[uint64]uint64, len(labels))
	membersByID := make(map[uint64]map[uint64]Data)

	for obsID, lbl := range labels {
		var id uint64
		if lbl >= 0 {
			id = uint64(lbl)
		} else {
			mapped, ok := minted[lbl]
			if !ok {
				mapped = d.state.AllocateID()
				minted[lbl] = mapped
			}
			id = mapped
		}
		final[obsID] = id
		g, ok := membersByID[id]
		if !ok {
			g = make(map[uint64]Data)
			membersByID[id] = g
		}
		g[obsID] = obs[obsID]
	}
	return final, membersByID
}
