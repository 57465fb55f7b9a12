package dynmeans

import "math/rand"

// coarsenEpsilon is the minimum pairwise similarity required to merge two
// nodes during coarsening; below it a node is carried up
// unmerged rather than paired with a poor match.
const coarsenEpsilon = 1e-16

// coarseNode is one node at some level of the coarsening hierarchy. Leaf
// nodes (level 0) carry the original observation ID; internal nodes do
// not.
type coarseNode struct {
	Data  Data
	ObsID uint64
	Leaf  bool
}

// coarseLevel is one level of the hierarchy. Levels are stored
// finest-first: levels[0] is the original observations, and
// levels[len-1] is the coarsest (base) level.
type coarseLevel struct {
	nodes []coarseNode
	// children[i] holds the indices, into the previous (finer) level's
	// nodes slice, that were merged to produce nodes[i]. Empty for level 0.
	children [][]int
}

// buildHierarchy repeatedly coarsens observations via greedy
// maximum-similarity pairing until at most coarsestSize nodes remain,
// grounded on original_source's kerndynmeans_impl.hpp coarsify/cluster
// loop.
func buildHierarchy(obsIDs []uint64, obs map[uint64]Data, model KernelModel, coarsestSize int, rng *rand.Rand) []coarseLevel {
	leaf := make([]coarseNode, len(obsIDs))
	for i, id := range obsIDs {
		leaf[i] = coarseNode{Data: obs[id], ObsID: id, Leaf: true}
	}
	levels := []coarseLevel{{nodes: leaf}}

	for len(levels[len(levels)-1].nodes) > coarsestSize {
		cur := levels[len(levels)-1].nodes
		parents, children := coarsenLevel(cur, model, rng)
		if len(parents) == len(cur) {
			// No pair cleared the similarity threshold; further
			// coarsening would not make progress.
			break
		}
		levels = append(levels, coarseLevel{nodes: parents, children: children})
	}
	return levels
}

// coarsenLevel performs one greedy max-similarity pairing pass over nodes
// in a fixed random permutation order.
func coarsenLevel(nodes []coarseNode, model KernelModel, rng *rand.Rand) ([]coarseNode, [][]int) {
	n := len(nodes)
	perm := rng.Perm(n)
	matched := make([]bool, n)

	var parents []coarseNode
	var children [][]int

	for _, i := range perm {
		if matched[i] {
			continue
		}
		bestJ := -1
		bestSim := coarsenEpsilon
		for j := 0; j < n; j++ {
			if j == i || matched[j] {
				continue
			}
			s := nodes[i].Data.Sim(nodes[j].Data)
			if s > bestSim {
				bestSim = s
				bestJ = j
			}
		}
		matched[i] = true
		if bestJ == -1 {
			parents = append(parents, coarseNode{Data: model.Coarsen(nodes[i].Data, nil)})
			children = append(children, []int{i})
			continue
		}
		matched[bestJ] = true
		merged := model.Coarsen(nodes[i].Data, nodes[bestJ].Data)
		parents = append(parents, coarseNode{Data: merged})
		children = append(children, []int{i, bestJ})
	}
	return parents, children
}

// expandLabels broadcasts a coarse level's per-node labels down one level,
// assigning every child the same label as its parent.
func expandLabels(level coarseLevel, coarseLabels []int64) []int64 {
	finerSize := 0
	for _, children := range level.children {
		for _, c := range children {
			if c+1 > finerSize {
				finerSize = c + 1
			}
		}
	}
	fine := make([]int64, finerSize)
	for parentIdx, children := range level.children {
		for _, c := range children {
			fine[c] = coarseLabels[parentIdx]
		}
	}
	return fine
}
