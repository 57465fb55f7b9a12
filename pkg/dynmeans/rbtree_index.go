package dynmeans

import rbtree "github.com/twmb/go-rbtree"

// scoreItem orders candidates by score and, on equal scores, ranks the
// lower index higher, so max() breaks ties on the lower index, matching
// the deterministic tie-breaking the rest of the core relies on.
type scoreItem struct {
	score float64
	idx   int
}

func (s scoreItem) Less(than rbtree.Item) bool {
	o := than.(scoreItem)
	if s.score != o.score {
		return s.score < o.score
	}
	return s.idx > o.idx
}

// scoreIndex is an ordered-by-score index backed by a red-black tree,
// supporting repeated max-extraction with score updates. Used by the
// greedy matching-pursuit step of the sparse kernel approximator, whose
// residual-driven candidate scores change after every pick and need an
// efficient "highest-scoring candidate not yet taken" query as the
// candidate set shrinks.
type scoreIndex struct {
	t     rbtree.Tree
	nodes map[int]*rbtree.Node
}

func newScoreIndex() *scoreIndex {
	return &scoreIndex{nodes: make(map[int]*rbtree.Node)}
}

// set inserts or updates idx's score.
func (s *scoreIndex) set(idx int, score float64) {
	if n, ok := s.nodes[idx]; ok {
		s.t.Delete(n)
	}
	s.nodes[idx] = s.t.Insert(scoreItem{score: score, idx: idx})
}

// remove drops idx from the index entirely.
func (s *scoreIndex) remove(idx int) {
	if n, ok := s.nodes[idx]; ok {
		s.t.Delete(n)
		delete(s.nodes, idx)
	}
}

// max returns the highest-scoring remaining candidate.
func (s *scoreIndex) max() (idx int, score float64, ok bool) {
	n := s.t.Max()
	if n == nil {
		return 0, 0, false
	}
	it := n.Item.(scoreItem)
	return it.idx, it.score, true
}

func (s *scoreIndex) len() int { return len(s.nodes) }
