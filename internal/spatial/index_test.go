/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package spatial

import (
	"fmt"
	"math"
	"math/rand"
	"testing"

	"snapguides/internal/geometry"
)

func grid(n int, step, size float64) []geometry.ElementBounds {
	var out []geometry.ElementBounds
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			id := fmt.Sprintf("e%d_%d", i, j)
			out = append(out, geometry.BoundsFromRect(id, geometry.R(float64(i)*step, float64(j)*step, size, size)))
		}
	}
	return out
}

func ids(bs []geometry.ElementBounds) map[string]bool {
	m := make(map[string]bool, len(bs))
	for _, b := range bs {
		m[b.ID] = true
	}
	return m
}

func TestQuery_EmptyIndex(t *testing.T) {
	ix := New(0)
	if got := ix.Query(geometry.R(0, 0, 100, 100)); len(got) != 0 {
		t.Fatalf("expected empty result, got %d", len(got))
	}
}

func TestQuery_BadRectsReturnEmpty(t *testing.T) {
	ix := New(4)
	ix.Build(grid(5, 20, 10))
	bad := []geometry.Rect{
		geometry.R(math.NaN(), 0, 10, 10),
		geometry.R(0, 0, math.Inf(1), 10),
		geometry.R(50, 50, -10, 10),
		geometry.R(50, 50, 10, -1),
	}
	for _, r := range bad {
		if got := ix.Query(r); len(got) != 0 {
			t.Fatalf("query %+v: expected empty, got %d", r, len(got))
		}
	}
}

func TestQuery_InclusiveBoundaries(t *testing.T) {
	ix := New(4)
	ix.Build([]geometry.ElementBounds{geometry.BoundsFromRect("a", geometry.R(0, 0, 10, 10))})
	if got := ix.Query(geometry.R(10, 10, 0, 0)); len(got) != 1 {
		t.Fatalf("corner-touching point query should hit, got %d", len(got))
	}
	if got := ix.Query(geometry.R(10.001, 0, 5, 5)); len(got) != 0 {
		t.Fatalf("query just past the edge should miss")
	}
}

func TestQuery_MatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	var boxes []geometry.ElementBounds
	for i := 0; i < 700; i++ {
		r := geometry.R(rng.Float64()*2000, rng.Float64()*2000, 5+rng.Float64()*80, 5+rng.Float64()*80)
		boxes = append(boxes, geometry.BoundsFromRect(fmt.Sprintf("b%d", i), r))
	}
	ix := New(8)
	ix.Build(boxes)
	if ix.Len() != len(boxes) {
		t.Fatalf("Len = %d, want %d", ix.Len(), len(boxes))
	}
	for q := 0; q < 200; q++ {
		qr := geometry.R(rng.Float64()*2000, rng.Float64()*2000, rng.Float64()*300, rng.Float64()*300)
		got := ix.Query(qr)
		want := 0
		for _, b := range boxes {
			if b.Rect().Intersects(qr) {
				want++
			}
		}
		if len(got) != want {
			t.Fatalf("query %d: got %d hits, brute force %d", q, len(got), want)
		}
		for _, b := range got {
			if !b.Rect().Intersects(qr) {
				t.Fatalf("false positive %s for %+v", b.ID, qr)
			}
		}
	}
}

func TestQuery_ResultsInBuildOrder(t *testing.T) {
	boxes := grid(6, 15, 10)
	ix := New(3)
	ix.Build(boxes)
	got := ix.Query(geometry.R(-1, -1, 1000, 1000))
	if len(got) != len(boxes) {
		t.Fatalf("expected all %d boxes, got %d", len(boxes), len(got))
	}
	for i := range got {
		if got[i].ID != boxes[i].ID {
			t.Fatalf("result %d = %s, want %s", i, got[i].ID, boxes[i].ID)
		}
	}
}

func TestQueryExcluding(t *testing.T) {
	ix := New(4)
	ix.Build(grid(3, 20, 10))
	got := ids(ix.QueryExcluding(geometry.R(0, 0, 100, 100), "e1_1"))
	if got["e1_1"] || len(got) != 8 {
		t.Fatalf("excluded id leaked or wrong count: %v", got)
	}
}

func TestBuild_ReplacesAndSkipsNonFinite(t *testing.T) {
	ix := New(4)
	ix.Build(grid(4, 20, 10))
	ix.Build([]geometry.ElementBounds{
		geometry.BoundsFromRect("only", geometry.R(500, 500, 10, 10)),
		geometry.BoundsFromRect("nan", geometry.R(math.NaN(), 0, 10, 10)),
	})
	if ix.Len() != 1 {
		t.Fatalf("expected 1 box after rebuild, got %d", ix.Len())
	}
	if got := ix.Query(geometry.R(0, 0, 100, 100)); len(got) != 0 {
		t.Fatalf("stale boxes returned after rebuild: %d", len(got))
	}
	ix.Clear()
	if ix.Len() != 0 || len(ix.Query(geometry.R(0, 0, 1000, 1000))) != 0 {
		t.Fatalf("Clear should empty the index")
	}
}

func BenchmarkBuild1000(b *testing.B) {
	boxes := grid(32, 40, 30)
	ix := New(0)
	for i := 0; i < b.N; i++ {
		ix.Build(boxes)
	}
}

func BenchmarkQuery1000(b *testing.B) {
	ix := New(0)
	ix.Build(grid(32, 40, 30))
	r := geometry.R(300, 300, 400, 300)
	for i := 0; i < b.N; i++ {
		_ = ix.Query(r)
	}
}
