// Package pattern converts arbitrary situation attributes into numeric
// vectors and answers nearest-neighbor queries over previously stored
// patterns via a binary spatial partition index.
package pattern

import (
	"sort"

	"gonum.org/v1/gonum/floats"
)

// kdNode is one node of the spatial partition: a representative point, the
// split axis for its depth, and children built from the median split.
type kdNode struct {
	index int // Index into the tree's point set
	axis  int
	left  *kdNode
	right *kdNode
}

// KDTree indexes a fixed set of equal-length vectors for nearest-neighbor
// queries. The tree is immutable; inserting means rebuilding (acceptable at
// per-entity pattern counts, a hazard beyond that).
type KDTree struct {
	points [][]float64
	dims   int
	root   *kdNode
}

// NewKDTree builds a tree over points. All points must share one length.
func NewKDTree(points [][]float64) *KDTree {
	t := &KDTree{points: points}
	if len(points) == 0 {
		return t
	}
	t.dims = len(points[0])
	indices := make([]int, len(points))
	for i := range indices {
		indices[i] = i
	}
	t.root = t.build(indices, 0)
	return t
}

func (t *KDTree) build(indices []int, depth int) *kdNode {
	if len(indices) == 0 {
		return nil
	}
	axis := depth % t.dims
	sort.Slice(indices, func(a, b int) bool {
		return t.points[indices[a]][axis] < t.points[indices[b]][axis]
	})
	median := len(indices) / 2
	return &kdNode{
		index: indices[median],
		axis:  axis,
		left:  t.build(indices[:median], depth+1),
		right: t.build(indices[median+1:], depth+1),
	}
}

// Len returns the number of indexed points.
func (t *KDTree) Len() int { return len(t.points) }

// Dims returns the vector dimensionality, 0 for an empty tree.
func (t *KDTree) Dims() int { return t.dims }

// neighbor is one candidate result during a query.
type neighbor struct {
	index    int
	distance float64
}

// Query returns the k nearest stored points to target, closest first.
// A branch is pruned only when its split plane cannot contain a closer
// point than the current worst kept distance.
func (t *KDTree) Query(target []float64, k int) (distances []float64, indices []int) {
	if t.root == nil || k <= 0 || len(target) != t.dims {
		return nil, nil
	}

	best := make([]neighbor, 0, k)
	t.search(t.root, target, k, &best)

	distances = make([]float64, len(best))
	indices = make([]int, len(best))
	for i, n := range best {
		distances[i] = n.distance
		indices[i] = n.index
	}
	return distances, indices
}

func (t *KDTree) search(node *kdNode, target []float64, k int, best *[]neighbor) {
	if node == nil {
		return
	}

	d := floats.Distance(target, t.points[node.index], 2)
	insertNeighbor(best, neighbor{index: node.index, distance: d}, k)

	near, far := node.left, node.right
	if target[node.axis] >= t.points[node.index][node.axis] {
		near, far = far, near
	}

	t.search(near, target, k, best)

	// The far branch can only help if the split plane is closer than the
	// worst kept distance (or we still need more neighbors).
	planeDist := target[node.axis] - t.points[node.index][node.axis]
	if planeDist < 0 {
		planeDist = -planeDist
	}
	if len(*best) < k || planeDist < (*best)[len(*best)-1].distance {
		t.search(far, target, k, best)
	}
}

// insertNeighbor keeps best sorted ascending by distance, capped at k.
func insertNeighbor(best *[]neighbor, n neighbor, k int) {
	pos := sort.Search(len(*best), func(i int) bool {
		return (*best)[i].distance > n.distance
	})
	*best = append(*best, neighbor{})
	copy((*best)[pos+1:], (*best)[pos:])
	(*best)[pos] = n
	if len(*best) > k {
		*best = (*best)[:k]
	}
}
