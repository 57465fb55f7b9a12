package dynmeans

import (
	"context"
	"math/rand"
	"sort"
)

// pointActive is one cluster that has received >=1 member so far during
// the current point-solver restart attempt.
type pointActive struct {
	label   int64
	isNew   bool
	id      uint64 // real ID, valid when !isNew
	ageCost float64
	gamma   float64
	prm     Parameter
	members map[uint64]Data
}

type pointRestartResult struct {
	labels     map[uint64]int64
	objective  float64
	iterations int
}

type candKind int

const (
	candOldView candKind = iota
	candActive
	candNewOption
)

// solvePointRestart runs one restart of the Lloyd-like point batch solver
//.
func solvePointRestart(
	ctx context.Context,
	obsIDs []uint64,
	obs map[uint64]Data,
	views []ClusterView,
	model Model,
	lambda float64,
	maxIter int,
	rng *rand.Rand,
) (*pointRestartResult, error) {
	n := len(obsIDs)
	clusters := make(map[int64]*pointActive)
	nextNewIdx := 0
	newLabel := func() int64 {
		l := int64(-(nextNewIdx + 1))
		nextNewIdx++
		return l
	}

	// Uniform random initial assignment into at most max(1, floor(N/2))
	// fresh clusters, seeded at their first member.
	k := n / 2
	if k < 1 {
		k = 1
	}
	initLabels := make([]int64, k)
	for i := range initLabels {
		initLabels[i] = newLabel()
	}
	prevLabels := make(map[uint64]int64, n)
	for _, id := range obsIDs {
		lbl := initLabels[rng.Intn(k)]
		prevLabels[id] = lbl
		ac, ok := clusters[lbl]
		if !ok {
			ac = &pointActive{label: lbl, isNew: true, members: make(map[uint64]Data)}
			ac.prm = model.NewParameter()
			ac.prm.Update(map[uint64]Data{id: obs[id]}, 0)
			clusters[lbl] = ac
		}
		ac.members[id] = obs[id]
	}

	viewByID := make(map[uint64]*ClusterView, len(views))
	touched := make(map[uint64]bool, len(views))
	for i := range views {
		viewByID[views[i].ID] = &views[i]
	}

	iterations := 0
	for iterations = 0; iterations < maxIter; iterations++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		newLabels := make(map[uint64]int64, n)
		changed := false

		for _, id := range obsIDs {
			d := obs[id]

			var (
				found       bool
				bestCost    float64
				bestAgeCost float64
				bestKind    candKind
				bestID      uint64 // valid for candOldView/candActive-reused
				bestLabel   int64  // valid for candActive
			)
			consider := func(cost, ageCost float64, kind candKind, id64 uint64, label int64) {
				if !found {
					found = true
					bestCost, bestAgeCost, bestKind, bestID, bestLabel = cost, ageCost, kind, id64, label
					return
				}
				better := cost < bestCost
				tie := cost == bestCost
				if !better && tie {
					if ageCost < bestAgeCost {
						better = true
					} else if ageCost == bestAgeCost {
						rank := func(k candKind) int {
							if k == candNewOption {
								return 1
							}
							return 0
						}
						if rank(kind) < rank(bestKind) {
							better = true
						} else if rank(kind) == rank(bestKind) && id64 < bestID {
							better = true
						}
					}
				}
				if better {
					bestCost, bestAgeCost, bestKind, bestID, bestLabel = cost, ageCost, kind, id64, label
				}
			}

			for _, v := range views {
				if touched[v.ID] {
					continue
				}
				consider(v.PrmOld.DistTo(d, false), v.AgeCost, candOldView, v.ID, 0)
			}
			for lbl, ac := range clusters {
				id64 := ac.id
				cost := ac.prm.DistTo(d, true)
				if _, self := ac.members[id]; self && ac.isNew && len(ac.members) == 1 {
					// id is this new cluster's only member: keeping it there
					// costs the same as opening a new cluster.
					cost = lambda
				}
				consider(cost, ac.ageCost, candActive, id64, lbl)
			}
			consider(lambda, 0, candNewOption, 0, 0)

			var chosenLabel int64
			switch bestKind {
			case candNewOption:
				lbl := newLabel()
				ac := &pointActive{label: lbl, isNew: true, members: make(map[uint64]Data)}
				ac.prm = model.NewParameter()
				ac.prm.Update(map[uint64]Data{id: d}, 0)
				ac.members[id] = d
				clusters[lbl] = ac
				chosenLabel = lbl
			case candOldView:
				v := viewByID[bestID]
				lbl := int64(v.ID)
				ac, exists := clusters[lbl]
				if !exists {
					ac = &pointActive{label: lbl, isNew: false, id: v.ID, ageCost: v.AgeCost, gamma: v.Gamma, members: make(map[uint64]Data)}
					ac.prm = model.NewParameter()
					ac.prm.Update(map[uint64]Data{id: d}, v.Gamma)
					clusters[lbl] = ac
					touched[v.ID] = true
				}
				ac.members[id] = d
				chosenLabel = lbl
			case candActive:
				ac := clusters[bestLabel]
				ac.members[id] = d
				chosenLabel = bestLabel
			}
			newLabels[id] = chosenLabel
			if prevLabels[id] != chosenLabel {
				changed = true
			}
		}

		prevLabels = newLabels
		// Recompute every cluster's parameter from its accumulated members
		// for the next pass's distance evaluations.
		grouped := make(map[int64]map[uint64]Data, len(clusters))
		for id, lbl := range newLabels {
			g, ok := grouped[lbl]
			if !ok {
				g = make(map[uint64]Data)
				grouped[lbl] = g
			}
			g[id] = obs[id]
		}
		for lbl, ac := range clusters {
			members := grouped[lbl]
			ac.members = members
			if len(members) == 0 {
				if ac.isNew {
					delete(clusters, lbl)
				}
				continue
			}
			ac.prm.Update(members, ac.gamma)
		}
		if !changed {
			break
		}
	}

	obj := 0.0
	for _, ac := range clusters {
		if len(ac.members) == 0 {
			continue
		}
		obj += birthCost(ac.isNew, false, lambda, ac.ageCost)
		obj += clusterReassocCost(ac.prm, ac.members, ac.gamma)
	}

	return &pointRestartResult{labels: prevLabels, objective: obj, iterations: iterations + 1}, nil
}

// solvePoint runs nRestarts independent attempts of the point batch
// solver and keeps the lowest-objective labeling.
func solvePoint(
	ctx context.Context,
	obs map[uint64]Data,
	views []ClusterView,
	model Model,
	lambda float64,
	maxIter int,
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
		res, err := solvePointRestart(ctx, obsIDs, obs, views, model, lambda, maxIter, rng)
		if err != nil {
			return nil, err
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
