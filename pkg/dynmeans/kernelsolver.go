package dynmeans

import (
	"context"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// solveKernelRestart runs one restart of the multilevel kernel batch
// solver: coarsen to a base level, spectrally cluster the
// base level, then descend the hierarchy refining labels and
// re-resolving old/new correspondence at every level.
func solveKernelRestart(
	ctx context.Context,
	obsIDs []uint64,
	obs map[uint64]Data,
	views []ClusterView,
	model KernelModel,
	lambda float64,
	coarsestSize int,
	eigenSolver EigenSolverType,
	eigenThreshold float64,
	maxIter int,
	matcher Matcher,
	rng *rand.Rand,
) (*pointRestartResult, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	hierarchy := buildHierarchy(obsIDs, obs, model, coarsestSize, rng)
	top := len(hierarchy) - 1

	nextNewIdx := 0
	newLabel := func() int64 {
		l := int64(-(nextNewIdx + 1))
		nextNewIdx++
		return l
	}

	coarse := hierarchy[top].nodes
	items := extractData(coarse)
	sim := buildAugmentedSimMatrix(items, views)
	spec, err := spectralCluster(toSym(sim), eigenSolver, eigenThreshold, rng)
	if err != nil {
		return nil, err
	}

	labels := make([]int64, len(items))
	groupLabel := make(map[int]int64)
	for i := 0; i < len(items); i++ {
		c := spec.labels[i]
		lbl, ok := groupLabel[c]
		if !ok {
			lbl = newLabel()
			groupLabel[c] = lbl
		}
		labels[i] = lbl
	}

	labels, err = updateOldNewCorrespondence(items, labels, views, model, lambda, matcher, newLabel)
	if err != nil {
		return nil, err
	}

	for lvl := top; lvl > 0; lvl-- {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		fine := hierarchy[lvl-1].nodes
		labels = expandLabels(hierarchy[lvl], labels)
		fineItems := extractData(fine)

		labels, err = refineLevel(ctx, fineItems, labels, views, model, lambda, maxIter, rng)
		if err != nil {
			return nil, err
		}
		// refineLevel mints its own new-cluster placeholders internally;
		// fast-forward the outer counter past them so updateOldNewCorrespondence
		// never mints a colliding placeholder ID below.
		for _, lbl := range labels {
			if lbl < 0 && int(-lbl) > nextNewIdx {
				nextNewIdx = int(-lbl)
			}
		}
		labels, err = updateOldNewCorrespondence(fineItems, labels, views, model, lambda, matcher, newLabel)
		if err != nil {
			return nil, err
		}
	}

	finalLabels := make(map[uint64]int64, len(obsIDs))
	for i, id := range obsIDs {
		finalLabels[id] = labels[i]
	}
	objective := computeKernelObjective(obs, finalLabels, views, model, lambda)

	return &pointRestartResult{labels: finalLabels, objective: objective, iterations: top + 1}, nil
}

// solveKernel runs nRestarts independent multilevel attempts and keeps the
// lowest-objective labeling.
func solveKernel(
	ctx context.Context,
	obs map[uint64]Data,
	views []ClusterView,
	model KernelModel,
	lambda float64,
	coarsestSize int,
	eigenSolver EigenSolverType,
	eigenThreshold float64,
	maxIter int,
	matcher Matcher,
	nRestarts int,
	rng *rand.Rand,
) (*pointRestartResult, error) {
	obsIDs := make([]uint64, 0, len(obs))
	for id := range obs {
		obsIDs = append(obsIDs, id)
	}
	sort.Slice(obsIDs, func(i, j int) bool { return obsIDs[i] < obsIDs[j] })

	var best *pointRestartResult
	for r := 0; r < nRestarts; r++ {
		res, err := solveKernelRestart(ctx, obsIDs, obs, views, model, lambda, coarsestSize, eigenSolver, eigenThreshold, maxIter, matcher, rng)
		if err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			continue
		}
		if best == nil || res.objective < best.objective {
			best = res
		}
	}
	if best == nil {
		return nil, ErrAllRestartsFailed
	}
	return best, nil
}

// refineLevel runs one level's local-search relabeling pass to
// convergence, given an initial labeling broadcast down from the coarser
// level. Structurally this is the
// same fixed-parameters-per-pass local search as the point solver
// (pointsolver.go), generalized over items indexed by position rather
// than observation ID, and seeded from a provided labeling instead of a
// fresh random one.
func refineLevel(ctx context.Context, items []Data, initLabels []int64, views []ClusterView, model Model, lambda float64, maxIter int, rng *rand.Rand) ([]int64, error) {
	n := len(items)
	type active struct {
		isNew   bool
		id      uint64
		ageCost float64
		gamma   float64
		prm     Parameter
	}
	clusters := make(map[int64]*active)
	viewByID := make(map[uint64]*ClusterView, len(views))
	for i := range views {
		viewByID[views[i].ID] = &views[i]
	}

	seed := func(lbl int64, members map[int]Data) {
		ac := &active{}
		if lbl >= 0 {
			if v, ok := viewByID[uint64(lbl)]; ok {
				ac.id, ac.ageCost, ac.gamma = v.ID, v.AgeCost, v.Gamma
			} else {
				ac.isNew = true
			}
		} else {
			ac.isNew = true
		}
		data := make(map[uint64]Data, len(members))
		for idx, d := range members {
			data[uint64(idx)] = d
		}
		ac.prm = model.NewParameter()
		ac.prm.Update(data, ac.gamma)
		clusters[lbl] = ac
	}

	grouped := make(map[int64]map[int]Data)
	for i, lbl := range initLabels {
		g, ok := grouped[lbl]
		if !ok {
			g = make(map[int]Data)
			grouped[lbl] = g
		}
		g[i] = items[i]
	}
	for lbl, g := range grouped {
		seed(lbl, g)
	}

	labels := append([]int64(nil), initLabels...)

	for iter := 0; iter < maxIter; iter++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		newLabels := make([]int64, n)
		changed := false
		nextNewIdx := 0
		for lbl := range clusters {
			if lbl <= int64(-(nextNewIdx + 1)) {
				nextNewIdx = int(-lbl)
			}
		}

		for i := 0; i < n; i++ {
			d := items[i]
			bestCost := lambda
			bestLabel := int64(0)
			isNewBest := true

			for lbl, ac := range clusters {
				cost := ac.prm.DistTo(d, true)
				if cost < bestCost {
					bestCost, bestLabel, isNewBest = cost, lbl, false
				}
			}

			var chosen int64
			if isNewBest {
				chosen = int64(-(nextNewIdx + 1))
				nextNewIdx++
				ac := &active{isNew: true}
				ac.prm = model.NewParameter()
				ac.prm.Update(map[uint64]Data{0: d}, 0)
				clusters[chosen] = ac
			} else {
				chosen = bestLabel
			}
			newLabels[i] = chosen
			if labels[i] != chosen {
				changed = true
			}
		}

		labels = newLabels
		grouped = make(map[int64]map[int]Data)
		for i, lbl := range labels {
			g, ok := grouped[lbl]
			if !ok {
				g = make(map[int]Data)
				grouped[lbl] = g
			}
			g[i] = items[i]
		}
		for lbl, ac := range clusters {
			g := grouped[lbl]
			if len(g) == 0 {
				continue
			}
			data := make(map[uint64]Data, len(g))
			for idx, d := range g {
				data[uint64(idx)] = d
			}
			ac.prm.Update(data, ac.gamma)
		}
		if !changed {
			break
		}
	}
	return labels, nil
}

// updateOldNewCorrespondence resolves, for every current label-group,
// whether it should adopt a not-yet-reused old cluster's identity, via
// the bipartite matcher. Unmatched groups are always
// reminted as a fresh new-cluster label so a group cannot keep
// masquerading as an old identity once the matcher prefers otherwise.
func updateOldNewCorrespondence(items []Data, labels []int64, views []ClusterView, model Model, lambda float64, matcher Matcher, newLabel func() int64) ([]int64, error) {
	groups := make(map[int64][]int)
	for i, lbl := range labels {
		groups[lbl] = append(groups[lbl], i)
	}
	groupOrder := make([]int64, 0, len(groups))
	for lbl := range groups {
		groupOrder = append(groupOrder, lbl)
	}
	sort.Slice(groupOrder, func(i, j int) bool { return groupOrder[i] < groupOrder[j] })

	if len(views) == 0 || len(groupOrder) == 0 {
		return labels, nil
	}

	weights := make([][]float64, len(groupOrder))
	for a, lbl := range groupOrder {
		members := groups[lbl]
		na := float64(len(members))
		row := make([]float64, len(views))
		for j, v := range views {
			kp, ok := v.PrmOld.(KernelParameter)
			if !ok {
				row[j] = lambda
				continue
			}
			var sumSim float64
			for _, idx := range members {
				sumSim += kp.SimToData(items[idx])
			}
			g := v.Gamma
			selfSim := kp.SimSelf()
			row[j] = v.AgeCost + (g*na/(g+na))*selfSim - (2*g/(g+na))*sumSim
		}
		weights[a] = row
	}

	assignment, err := matcher.Match(weights, lambda)
	if err != nil {
		return nil, err
	}

	out := append([]int64(nil), labels...)
	for a, lbl := range groupOrder {
		members := groups[lbl]
		j := assignment[a]
		var target int64
		if j >= 0 {
			target = int64(views[j].ID)
		} else {
			target = newLabel()
		}
		for _, idx := range members {
			out[idx] = target
		}
	}
	return out, nil
}

// computeKernelObjective evaluates the full batch cost for
// a finished kernel-variant labeling.
func computeKernelObjective(obs map[uint64]Data, labels map[uint64]int64, views []ClusterView, model Model, lambda float64) float64 {
	viewByID := make(map[uint64]*ClusterView, len(views))
	for i := range views {
		viewByID[views[i].ID] = &views[i]
	}
	groups := make(map[int64]map[uint64]Data)
	for id, lbl := range labels {
		g, ok := groups[lbl]
		if !ok {
			g = make(map[uint64]Data)
			groups[lbl] = g
		}
		g[id] = obs[id]
	}

	obj := 0.0
	for lbl, members := range groups {
		isNew := lbl < 0
		var ageCost, gamma float64
		if !isNew {
			if v, ok := viewByID[uint64(lbl)]; ok {
				ageCost, gamma = v.AgeCost, v.Gamma
			}
		}
		prm := model.NewParameter()
		prm.Update(members, gamma)
		obj += birthCost(isNew, false, lambda, ageCost)
		obj += clusterReassocCost(prm, members, gamma)
	}
	return obj
}

func extractData(nodes []coarseNode) []Data {
	out := make([]Data, len(nodes))
	for i, n := range nodes {
		out[i] = n.Data
	}
	return out
}

// buildAugmentedSimMatrix builds the base-level clustering's kernel
// matrix over the n coarsest nodes plus one extra "slot" row/column per
// live old cluster, so the eigendecomposition itself is pulled toward
// existing identities rather than leaving all old/new correspondence to
// the later bipartite match. A real node i and an old slot j are linked
// by gammaⱼ/(gammaⱼ+1) · k(xᵢ, p_oldⱼ); slot j's own diagonal entry is
// its prior self-similarity net of its age cost. Two distinct old slots
// are never directly linked (there is no data-level similarity between
// two old cluster identities), so off-diagonal entries between them
// are left at 0.
func buildAugmentedSimMatrix(items []Data, views []ClusterView) [][]float64 {
	n, m := len(items), len(views)
	size := n + m
	sim := make([][]float64, size)
	for i := range sim {
		sim[i] = make([]float64, size)
	}
	for i := 0; i < n; i++ {
		sim[i][i] = items[i].SimSelf()
		for j := i + 1; j < n; j++ {
			s := items[i].Sim(items[j])
			sim[i][j], sim[j][i] = s, s
		}
	}
	for j, v := range views {
		row := n + j
		kp, ok := v.PrmOld.(KernelParameter)
		if !ok {
			continue
		}
		sim[row][row] = kp.SimSelf() - v.AgeCost
		weight := v.Gamma / (v.Gamma + 1)
		for i := 0; i < n; i++ {
			s := weight * kp.SimToData(items[i])
			sim[i][row], sim[row][i] = s, s
		}
	}
	return sim
}

func toSym(m [][]float64) *mat.SymDense {
	n := len(m)
	sym := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			sym.SetSym(i, j, m[i][j])
		}
	}
	return sym
}
