/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package geometry

import (
	"math"
	"testing"
)

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestRectContainsIntersectsAndInset(t *testing.T) {
	r := R(10, 20, 100, 50)
	if !r.Contains(Point{10, 20}) || !r.Contains(Point{110, 70}) {
		t.Fatalf("expected edge points to be contained")
	}
	if !r.Intersects(R(110, 70, 5, 5)) {
		t.Fatalf("touching rects should intersect")
	}
	if r.Intersects(R(111, 70, 5, 5)) {
		t.Fatalf("disjoint rects should not intersect")
	}
	grown := r.Inset(-5, -5)
	if grown.X != 5 || grown.Y != 15 || grown.W != 110 || grown.H != 60 {
		t.Fatalf("unexpected inset: %+v", grown)
	}
	if R(0, 0, -1, 5).Valid() || R(math.NaN(), 0, 1, 1).Valid() {
		t.Fatalf("inverted or NaN rects must be invalid")
	}
	if !R(3, 3, 0, 0).Valid() {
		t.Fatalf("zero-size rect is a valid point query")
	}
}

func TestComputeBounds_Unrotated(t *testing.T) {
	b := ComputeBounds("a", Pose{X: 10, Y: 20, Width: 80, Height: 40})
	if b.Right-b.Left != b.Width || b.Bottom-b.Top != b.Height {
		t.Fatalf("size invariants broken: %+v", b)
	}
	if b.CenterX != (b.Left+b.Right)/2 || b.CenterY != (b.Top+b.Bottom)/2 {
		t.Fatalf("centre invariants broken: %+v", b)
	}
	if b.Left != 10 || b.Top != 20 || b.Width != 80 || b.Height != 40 || b.ID != "a" {
		t.Fatalf("unexpected bounds: %+v", b)
	}
}

func TestComputeBounds_NegativeSizeIsNormalised(t *testing.T) {
	flat := ComputeBounds("n", Pose{X: 10, Y: 20, Width: -5, Height: -8})
	full := ComputeBounds("n", Pose{X: 10, Y: 20, Width: -5, Height: -8, Rotation: 360})
	if flat.Left != 5 || flat.Right != 10 || flat.Top != 12 || flat.Bottom != 20 {
		t.Fatalf("unexpected bounds: %+v", flat)
	}
	if flat.Width != 5 || flat.Height != 8 || flat.CenterX != 7.5 || flat.CenterY != 16 {
		t.Fatalf("derived fields wrong: %+v", flat)
	}
	if !approx(flat.Left, full.Left) || !approx(flat.Right, full.Right) ||
		!approx(flat.Top, full.Top) || !approx(flat.Bottom, full.Bottom) {
		t.Fatalf("0 and 360 degrees disagree: %+v vs %+v", flat, full)
	}
	moved := flat.MoveTo(Point{X: 0, Y: 0})
	if moved.Right != 5 || moved.Bottom != 8 {
		t.Fatalf("moved bounds: %+v", moved)
	}
}

func TestComputeBounds_Rotated90SwapsSize(t *testing.T) {
	for _, deg := range []float64{90, 270, -90} {
		b := ComputeBounds("r", Pose{X: 0, Y: 0, Width: 100, Height: 40, Rotation: deg})
		if !approx(b.Width, 40) || !approx(b.Height, 100) {
			t.Fatalf("rotation %v: expected ~40x100, got %vx%v", deg, b.Width, b.Height)
		}
		if !approx(b.CenterX, 50) || !approx(b.CenterY, 20) {
			t.Fatalf("rotation %v: centre moved: (%v,%v)", deg, b.CenterX, b.CenterY)
		}
	}
}

func TestComputeBounds_Rotated45Grows(t *testing.T) {
	b := ComputeBounds("r", Pose{X: 0, Y: 0, Width: 100, Height: 100, Rotation: 45})
	want := 100 * math.Sqrt2
	if !approx(b.Width, want) || !approx(b.Height, want) {
		t.Fatalf("expected diagonal %v, got %vx%v", want, b.Width, b.Height)
	}
}

func TestComputeBounds_NaNDoesNotPanic(t *testing.T) {
	b := ComputeBounds("n", Pose{X: math.NaN(), Y: 0, Width: 10, Height: 10, Rotation: 30})
	if b.Finite() {
		t.Fatalf("NaN pose should produce non-finite bounds")
	}
}

func TestExtractAlignmentPoints_Order(t *testing.T) {
	b := BoundsFromRect("e", R(0, 0, 100, 50))
	pts := ExtractAlignmentPoints(b)
	want := []struct {
		x, y float64
		typ  PointType
	}{
		{50, 25, PointCenter},
		{0, 0, PointCorner}, {100, 0, PointCorner}, {100, 50, PointCorner}, {0, 50, PointCorner},
		{50, 0, PointTop}, {100, 25, PointRight}, {50, 50, PointBottom}, {0, 25, PointLeft},
	}
	for i, w := range want {
		p := pts[i]
		if p.X != w.x || p.Y != w.y || p.Type != w.typ || p.ElementID != "e" {
			t.Fatalf("point %d: got %+v, want %+v", i, p, w)
		}
	}
	if !pts[5].IsCenterX() || pts[5].IsCenterY() || !pts[6].IsCenterY() {
		t.Fatalf("axis roles wrong for edge midpoints")
	}
}

func TestMoveToKeepsSize(t *testing.T) {
	b := BoundsFromRect("m", R(0, 0, 30, 20)).MoveTo(Point{X: 5, Y: 7})
	if b.Left != 5 || b.Top != 7 || b.Right != 35 || b.Bottom != 27 || b.ID != "m" {
		t.Fatalf("unexpected moved bounds: %+v", b)
	}
}

func TestFloatRound(t *testing.T) {
	if got := FloatRound(1.23456, 3); got != 1.235 {
		t.Fatalf("FloatRound = %v", got)
	}
}
