/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package spatial provides a static R-tree over element bounding boxes.
//
// The tree is rebuilt wholesale whenever the element set changes, so it is
// packed bottom-up with Sort-Tile-Recursive (STR) instead of supporting
// incremental inserts. Boxes live in an arena slice and are referred to by
// their integer index; nodes are stored the same way.
package spatial

import (
	"math"
	"slices"
	"sort"

	"snapguides/internal/geometry"
)

// DefaultNodeCapacity is the fan-out used when New is given a value < 2.
const DefaultNodeCapacity = 16

type box struct{ minX, minY, maxX, maxY float64 }

func (b box) intersects(o box) bool {
	return b.minX <= o.maxX && o.minX <= b.maxX && b.minY <= o.maxY && o.minY <= b.maxY
}

func (b box) extend(o box) box {
	return box{
		minX: math.Min(b.minX, o.minX),
		minY: math.Min(b.minY, o.minY),
		maxX: math.Max(b.maxX, o.maxX),
		maxY: math.Max(b.maxY, o.maxY),
	}
}

func (b box) cx() float64 { return (b.minX + b.maxX) / 2 }
func (b box) cy() float64 { return (b.minY + b.maxY) / 2 }

type node struct {
	bbox box
	leaf bool
	// children index items when leaf, nodes otherwise.
	children []int
}

// Index is a read-mostly spatial index. Build replaces its content; Query may
// be called any number of times in between. It has no internal locking: one
// writer, many readers, never interleaved.
type Index struct {
	capacity int
	items    []geometry.ElementBounds
	boxes    []box
	nodes    []node
	root     int
}

// New returns an empty index with the given node fan-out.
func New(capacity int) *Index {
	if capacity < 2 {
		capacity = DefaultNodeCapacity
	}
	return &Index{capacity: capacity, root: -1}
}

// Len returns the number of indexed boxes.
func (ix *Index) Len() int { return len(ix.items) }

// All returns a copy of every indexed box in build order.
func (ix *Index) All() []geometry.ElementBounds {
	return slices.Clone(ix.items)
}

// Clear empties the index.
func (ix *Index) Clear() {
	ix.items = nil
	ix.boxes = nil
	ix.nodes = nil
	ix.root = -1
}

// Build atomically replaces the index content with bs. Boxes with non-finite
// coordinates are skipped since no query can ever match them.
func (ix *Index) Build(bs []geometry.ElementBounds) {
	items := make([]geometry.ElementBounds, 0, len(bs))
	for _, b := range bs {
		if b.Finite() {
			items = append(items, b)
		}
	}
	boxes := make([]box, len(items))
	for i, b := range items {
		boxes[i] = box{minX: b.Left, minY: b.Top, maxX: b.Right, maxY: b.Bottom}
	}

	ix.items = items
	ix.boxes = boxes
	ix.nodes = nil
	ix.root = -1
	if len(items) == 0 {
		return
	}

	level := make([]int, len(items))
	for i := range level {
		level[i] = i
	}
	leaf := true
	for {
		level = ix.pack(level, leaf)
		leaf = false
		if len(level) == 1 {
			ix.root = level[0]
			return
		}
	}
}

// pack groups entries (item indices when leaf, node indices otherwise) into
// parent nodes using STR tiling and returns the new node indices.
func (ix *Index) pack(entries []int, leaf bool) []int {
	bboxOf := func(i int) box {
		if leaf {
			return ix.boxes[i]
		}
		return ix.nodes[i].bbox
	}
	m := ix.capacity
	parents := int(math.Ceil(float64(len(entries)) / float64(m)))
	strips := int(math.Ceil(math.Sqrt(float64(parents))))
	perStrip := strips * m

	sort.SliceStable(entries, func(a, b int) bool { return bboxOf(entries[a]).cx() < bboxOf(entries[b]).cx() })

	out := make([]int, 0, parents)
	for s := 0; s < len(entries); s += perStrip {
		end := min(s+perStrip, len(entries))
		slab := entries[s:end]
		sort.SliceStable(slab, func(a, b int) bool { return bboxOf(slab[a]).cy() < bboxOf(slab[b]).cy() })
		for c := 0; c < len(slab); c += m {
			group := slab[c:min(c+m, len(slab))]
			n := node{leaf: leaf, children: append([]int(nil), group...), bbox: bboxOf(group[0])}
			for _, g := range group[1:] {
				n.bbox = n.bbox.extend(bboxOf(g))
			}
			ix.nodes = append(ix.nodes, n)
			out = append(out, len(ix.nodes)-1)
		}
	}
	return out
}

// Query returns every box intersecting r, boundaries inclusive, in build
// order. An empty index, a NaN/infinite rect or an inverted rect yields nil.
func (ix *Index) Query(r geometry.Rect) []geometry.ElementBounds {
	return ix.QueryExcluding(r, "")
}

// QueryExcluding is Query without the box whose ID equals exclude. An empty
// exclude matches nothing.
func (ix *Index) QueryExcluding(r geometry.Rect, exclude string) []geometry.ElementBounds {
	hits := ix.search(r)
	if len(hits) == 0 {
		return nil
	}
	out := make([]geometry.ElementBounds, 0, len(hits))
	for _, i := range hits {
		if exclude != "" && ix.items[i].ID == exclude {
			continue
		}
		out = append(out, ix.items[i])
	}
	return out
}

func (ix *Index) search(r geometry.Rect) []int {
	if ix.root < 0 || !r.Valid() {
		return nil
	}
	q := box{minX: r.X, minY: r.Y, maxX: r.Right(), maxY: r.Bottom()}
	var hits []int
	stack := []int{ix.root}
	for len(stack) > 0 {
		n := &ix.nodes[stack[len(stack)-1]]
		stack = stack[:len(stack)-1]
		if !n.bbox.intersects(q) {
			continue
		}
		for _, c := range n.children {
			if n.leaf {
				if ix.boxes[c].intersects(q) {
					hits = append(hits, c)
				}
				continue
			}
			stack = append(stack, c)
		}
	}
	slices.Sort(hits)
	return hits
}
