// Package spatial provides an R-tree over bounding boxes and a record index
// built on it for intersection, radius, nearest-neighbour and
// point-in-polygon queries.
//
// The tree stores only boxes and caller-supplied integer data indices; it
// never holds record data. Nodes live in a flat arena and refer to each
// other by position, so splits are index manipulation rather than pointer
// surgery.
package spatial

import (
	"container/heap"
	"fmt"
	"sort"

	"github.com/beetlebugorg/shapefile/pkg/geom"
)

// DefaultMaxEntries is the node capacity used when none is given.
const DefaultMaxEntries = 16

// noParent marks the root.
const noParent = -1

type entry struct {
	bounds geom.BoundingBox
	data   int
}

type node struct {
	bounds   geom.BoundingBox
	leaf     bool
	parent   int
	children []int   // internal nodes: arena positions
	entries  []entry // leaves
}

func (n *node) count() int {
	if n.leaf {
		return len(n.entries)
	}
	return len(n.children)
}

// RTree is a bounding-box tree keyed by external data indices.
//
// A built tree is safe for concurrent queries. Insert and Clear must not
// run concurrently with anything else.
type RTree struct {
	nodes      []node
	root       int
	maxEntries int
	minEntries int
	size       int
}

// NewRTree returns an empty tree whose nodes hold up to maxEntries children.
// Values below 2 select DefaultMaxEntries.
func NewRTree(maxEntries int) *RTree {
	if maxEntries < 2 {
		maxEntries = DefaultMaxEntries
	}
	t := &RTree{maxEntries: maxEntries, minEntries: maxEntries / 2}
	t.Clear()
	return t
}

// Clear drops every entry, leaving a single empty leaf as root.
func (t *RTree) Clear() {
	t.nodes = t.nodes[:0]
	t.root = t.newNode(true, noParent)
	t.size = 0
}

func (t *RTree) newNode(leaf bool, parent int) int {
	t.nodes = append(t.nodes, node{bounds: geom.EmptyBox(), leaf: leaf, parent: parent})
	return len(t.nodes) - 1
}

// Size returns the number of inserted entries.
func (t *RTree) Size() int { return t.size }

// Height returns the number of levels; a tree whose root is a leaf has
// height 1.
func (t *RTree) Height() int {
	h := 1
	for n := t.root; !t.nodes[n].leaf; n = t.nodes[n].children[0] {
		h++
	}
	return h
}

// Bounds returns the box covering every entry, or the zero box when the
// tree is empty.
func (t *RTree) Bounds() geom.BoundingBox {
	if t.size == 0 {
		return geom.BoundingBox{}
	}
	return t.nodes[t.root].bounds
}

// Insert adds an entry. The chosen leaf and every ancestor are re-bounded,
// and overflowing nodes are split on the way up; a root split grows the
// tree by one level.
func (t *RTree) Insert(bounds geom.BoundingBox, data int) {
	n := t.chooseLeaf(bounds)
	t.nodes[n].entries = append(t.nodes[n].entries, entry{bounds: bounds, data: data})
	t.size++

	for n != noParent {
		t.recompute(n)
		if t.nodes[n].count() > t.maxEntries {
			t.split(n)
		}
		n = t.nodes[n].parent
	}
}

// chooseLeaf descends from the root picking the child needing the least
// enlargement, ties going to the smaller resulting area.
func (t *RTree) chooseLeaf(b geom.BoundingBox) int {
	n := t.root
	for !t.nodes[n].leaf {
		best := -1
		var bestEnlarge, bestArea float64
		for _, c := range t.nodes[n].children {
			cb := t.nodes[c].bounds
			enlarge := cb.Enlargement(b)
			area := cb.Union(b).Area()
			if best == -1 || enlarge < bestEnlarge || (enlarge == bestEnlarge && area < bestArea) {
				best, bestEnlarge, bestArea = c, enlarge, area
			}
		}
		n = best
	}
	return n
}

// recompute sets a node's box to the union of its children or entries.
func (t *RTree) recompute(n int) {
	b := geom.EmptyBox()
	if t.nodes[n].leaf {
		for _, e := range t.nodes[n].entries {
			b = b.Union(e.bounds)
		}
	} else {
		for _, c := range t.nodes[n].children {
			b = b.Union(t.nodes[c].bounds)
		}
	}
	t.nodes[n].bounds = b
}

// split moves the second half of n's children or entries to a new sibling
// attached to n's parent, creating a new root when n was the root.
func (t *RTree) split(n int) {
	sib := t.newNode(t.nodes[n].leaf, t.nodes[n].parent)
	half := t.nodes[n].count() / 2

	if t.nodes[n].leaf {
		moved := append([]entry(nil), t.nodes[n].entries[half:]...)
		t.nodes[n].entries = t.nodes[n].entries[:half:half]
		t.nodes[sib].entries = moved
	} else {
		moved := append([]int(nil), t.nodes[n].children[half:]...)
		t.nodes[n].children = t.nodes[n].children[:half:half]
		t.nodes[sib].children = moved
		for _, c := range moved {
			t.nodes[c].parent = sib
		}
	}
	t.recompute(n)
	t.recompute(sib)

	parent := t.nodes[n].parent
	if parent == noParent {
		root := t.newNode(false, noParent)
		t.nodes[root].children = []int{n, sib}
		t.nodes[n].parent = root
		t.nodes[sib].parent = root
		t.recompute(root)
		t.root = root
		return
	}
	t.nodes[parent].children = append(t.nodes[parent].children, sib)
}

// Query returns the data index of every entry whose box intersects b, in
// no particular order.
func (t *RTree) Query(b geom.BoundingBox) []int {
	var out []int
	t.search(t.root, b, &out)
	return out
}

func (t *RTree) search(n int, b geom.BoundingBox, out *[]int) {
	nd := &t.nodes[n]
	if !nd.bounds.Intersects(b) {
		return
	}
	if nd.leaf {
		for _, e := range nd.entries {
			if e.bounds.Intersects(b) {
				*out = append(*out, e.data)
			}
		}
		return
	}
	for _, c := range nd.children {
		t.search(c, b, out)
	}
}

// WithinDistance returns the entries whose box centre lies within radius of
// p, in no particular order.
func (t *RTree) WithinDistance(p geom.Point, radius float64) []int {
	if radius < 0 {
		return nil
	}
	var out []int
	t.collect(t.root, geom.BoxAround(p, radius), func(e entry) {
		if geom.Distance(p, e.bounds.Center()) <= radius {
			out = append(out, e.data)
		}
	})
	return out
}

func (t *RTree) collect(n int, b geom.BoundingBox, fn func(entry)) {
	nd := &t.nodes[n]
	if !nd.bounds.Intersects(b) {
		return
	}
	if nd.leaf {
		for _, e := range nd.entries {
			if e.bounds.Intersects(b) {
				fn(e)
			}
		}
		return
	}
	for _, c := range nd.children {
		t.collect(c, b, fn)
	}
}

// NearestNeighbors returns up to k data indices ordered by distance from p
// to each entry's box centre, ties by data index.
//
// The search is best-first: subtrees wait in a queue keyed by the distance
// from p to their box, which no centre inside them can beat.
func (t *RTree) NearestNeighbors(p geom.Point, k int) []int {
	if k <= 0 || t.size == 0 {
		return nil
	}
	q := &nnQueue{}
	heap.Push(q, nnItem{dist: t.nodes[t.root].bounds.DistanceToPoint(p), node: t.root})

	out := make([]int, 0, min(k, t.size))
	for q.Len() > 0 && len(out) < k {
		it := heap.Pop(q).(nnItem)
		if !it.isNode() {
			out = append(out, it.data)
			continue
		}
		nd := &t.nodes[it.node]
		if nd.leaf {
			for _, e := range nd.entries {
				heap.Push(q, nnItem{dist: geom.Distance(p, e.bounds.Center()), node: -1, data: e.data})
			}
			continue
		}
		for _, c := range nd.children {
			heap.Push(q, nnItem{dist: t.nodes[c].bounds.DistanceToPoint(p), node: c})
		}
	}
	return out
}

type nnItem struct {
	dist float64
	node int // arena position, -1 for an entry
	data int
}

func (it nnItem) isNode() bool { return it.node >= 0 }

type nnQueue []nnItem

func (q nnQueue) Len() int { return len(q) }

// Less orders by distance, expanding nodes before emitting entries at the
// same distance so equal-distance entries can be ordered by data index.
func (q nnQueue) Less(i, j int) bool {
	a, b := q[i], q[j]
	if a.dist != b.dist {
		return a.dist < b.dist
	}
	if a.isNode() != b.isNode() {
		return a.isNode()
	}
	return a.data < b.data
}

func (q nnQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *nnQueue) Push(x any) { *q = append(*q, x.(nnItem)) }

func (q *nnQueue) Pop() any {
	old := *q
	it := old[len(old)-1]
	*q = old[:len(old)-1]
	return it
}

// Stats describes the shape of a tree.
type Stats struct {
	Objects    int `json:"objects"`
	Nodes      int `json:"nodes"`
	Leaves     int `json:"leaves"`
	Height     int `json:"height"`
	MaxEntries int `json:"max_entries"`
	MinEntries int `json:"min_entries"`
}

// Stats walks the tree and reports its shape.
func (t *RTree) Stats() Stats {
	s := Stats{
		Objects:    t.size,
		Height:     t.Height(),
		MaxEntries: t.maxEntries,
		MinEntries: t.minEntries,
	}
	t.walk(t.root, func(n *node) {
		s.Nodes++
		if n.leaf {
			s.Leaves++
		}
	})
	return s
}

func (t *RTree) walk(n int, fn func(*node)) {
	fn(&t.nodes[n])
	for _, c := range t.nodes[n].children {
		t.walk(c, fn)
	}
}

func (t *RTree) String() string {
	s := t.Stats()
	return fmt.Sprintf("RTree{objects=%d nodes=%d leaves=%d height=%d max=%d}",
		s.Objects, s.Nodes, s.Leaves, s.Height, s.MaxEntries)
}

// sortedInts sorts in place and returns its argument.
func sortedInts(v []int) []int {
	sort.Ints(v)
	return v
}
