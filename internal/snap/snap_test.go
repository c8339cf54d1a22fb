/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package snap

import (
	"math"
	"testing"

	"snapguides/internal/domain"
	"snapguides/internal/geometry"
)

func vguide(id string, pos float64) domain.GuideLine {
	return domain.GuideLine{ID: id, Orientation: domain.Vertical, Position: pos, Type: domain.GuideManual}
}

func hguide(id string, pos float64) domain.GuideLine {
	return domain.GuideLine{ID: id, Orientation: domain.Horizontal, Position: pos, Type: domain.GuideManual}
}

func cfg(threshold float64) domain.AlignmentConfig {
	c := domain.DefaultAlignmentConfig()
	c.Threshold = threshold
	return c
}

func TestCheckAlignment_SnapsToVerticalGuide(t *testing.T) {
	res := CheckAlignment(geometry.Point{X: 102, Y: 150}, []domain.GuideLine{vguide("v", 100)}, cfg(5))
	if !res.Aligned || res.X != 100 || res.DeltaX != -2 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.Y != 150 || res.DeltaY != 0 || res.HorizontalGuide != nil {
		t.Fatalf("unmatched axis must keep its coordinate: %+v", res)
	}
	if res.VerticalGuide == nil || res.VerticalGuide.ID != "v" {
		t.Fatalf("expected vertical guide ref")
	}
}

func TestCheckAlignment_DisabledIsIdentity(t *testing.T) {
	c := cfg(50)
	c.Enabled = false
	p := geometry.Point{X: 101, Y: 99}
	res := CheckAlignment(p, []domain.GuideLine{vguide("v", 100), hguide("h", 100)}, c)
	if res.Aligned || res.X != p.X || res.Y != p.Y || res.DeltaX != 0 || res.DeltaY != 0 {
		t.Fatalf("disabled check must be identity: %+v", res)
	}
	if res.VerticalGuide != nil || res.HorizontalGuide != nil {
		t.Fatalf("disabled check must not reference guides")
	}
}

func TestCheckAlignment_FirstMatchWins(t *testing.T) {
	guides := []domain.GuideLine{vguide("far", 104), vguide("near", 101)}
	res := CheckAlignment(geometry.Point{X: 100.5, Y: 0}, guides, cfg(5))
	if res.VerticalGuide == nil || res.VerticalGuide.ID != "far" || res.X != 104 {
		t.Fatalf("first guide in list order should win: %+v", res)
	}
}

func TestCheckAlignment_SkipsHiddenAndOtherOrientation(t *testing.T) {
	hidden := vguide("hidden", 100)
	hidden.Visible = domain.Bool(false)
	guides := []domain.GuideLine{hidden, hguide("h", 102), vguide("shown", 103)}
	res := CheckAlignment(geometry.Point{X: 101, Y: 500}, guides, cfg(5))
	if res.VerticalGuide == nil || res.VerticalGuide.ID != "shown" || res.X != 103 {
		t.Fatalf("hidden/horizontal guides must be ignored on x: %+v", res)
	}
	if res.HorizontalGuide != nil {
		t.Fatalf("y=500 is nowhere near the horizontal guide")
	}
}

func TestCheckAlignment_NaNNeverAligns(t *testing.T) {
	res := CheckAlignment(geometry.Point{X: math.NaN(), Y: math.NaN()}, []domain.GuideLine{vguide("v", 0), hguide("h", 0)}, cfg(5))
	if res.Aligned {
		t.Fatalf("NaN point must not align: %+v", res)
	}
}

func TestSnapToGrid(t *testing.T) {
	c := cfg(3)
	c.SnapToGrid = true
	c.GridSize = 20
	p, ok := SnapToGrid(geometry.Point{X: 41, Y: 50}, c)
	if !ok || p.X != 40 || p.Y != 50 {
		t.Fatalf("expected x snapped to 40 and y untouched, got %+v ok=%v", p, ok)
	}
	c.SnapToGrid = false
	if _, ok := SnapToGrid(geometry.Point{X: 41, Y: 41}, c); ok {
		t.Fatalf("grid snapping must be off when SnapToGrid is false")
	}
}

func TestCalculateMagneticStrength_Linear(t *testing.T) {
	if s := CalculateMagneticStrength(0, 10, Linear); s != 1 {
		t.Fatalf("strength at 0 = %v, want 1", s)
	}
	for _, d := range []float64{10, 11, 1000} {
		if s := CalculateMagneticStrength(d, 10, Linear); s != 0 {
			t.Fatalf("strength at %v = %v, want 0", d, s)
		}
	}
	prev := 1.0
	for d := 0.0; d <= 10; d += 0.25 {
		s := CalculateMagneticStrength(d, 10, Linear)
		if s > prev {
			t.Fatalf("linear strength increased at d=%v: %v > %v", d, s, prev)
		}
		prev = s
	}
	if s := CalculateMagneticStrength(5, 10, Linear); s != 0.5 {
		t.Fatalf("linear midpoint = %v", s)
	}
}

func TestCalculateMagneticStrength_Curves(t *testing.T) {
	if s := CalculateMagneticStrength(5, 10, Quadratic); s != 0.25 {
		t.Fatalf("quadratic = %v", s)
	}
	if s := CalculateMagneticStrength(5, 10, Cubic); s != 0.125 {
		t.Fatalf("cubic = %v", s)
	}
	want := math.Exp(-1.5) - math.Exp(-3)
	if s := CalculateMagneticStrength(5, 10, Exponential); math.Abs(s-want) > 1e-12 {
		t.Fatalf("exponential = %v, want %v", s, want)
	}
	if s := CalculateMagneticStrength(5, 10, Curve("wobbly")); s != 0.5 {
		t.Fatalf("unknown curve should behave like linear, got %v", s)
	}
	if s := CalculateMagneticStrength(math.NaN(), 10, Linear); s != 0 {
		t.Fatalf("NaN distance should yield 0, got %v", s)
	}
}

func TestParseCurve(t *testing.T) {
	if ParseCurve(" Cubic ") != Cubic || ParseCurve("") != Linear || ParseCurve("spring") != Linear {
		t.Fatalf("ParseCurve mapping wrong")
	}
}

func TestApplyMagneticSnap(t *testing.T) {
	p := geometry.Point{X: 0.1, Y: 7}
	s := geometry.Point{X: 0.3, Y: -2}
	if got := ApplyMagneticSnap(p, s, 0); got != p {
		t.Fatalf("strength 0 must return position, got %+v", got)
	}
	if got := ApplyMagneticSnap(p, s, 1); got != s {
		t.Fatalf("strength 1 must return snap point, got %+v", got)
	}
	a := ApplyMagneticSnap(geometry.Point{}, geometry.Point{X: 10, Y: 20}, 0.25)
	b := ApplyMagneticSnap(geometry.Point{}, geometry.Point{X: 10, Y: 20}, 0.5)
	if a.X != 2.5 || a.Y != 5 || b.X != 5 || b.Y != 10 {
		t.Fatalf("interpolation not affine: %+v %+v", a, b)
	}
}

func TestCheckMagneticAlignment_RightEdgeOffsetCorrected(t *testing.T) {
	el := geometry.BoundsFromRect("box", geometry.R(0, 0, 40, 20))
	// right edge lands at 198, guide at 200
	res := CheckMagneticAlignment(el, geometry.Point{X: 158, Y: 300}, []domain.GuideLine{vguide("v", 200)}, cfg(5), MagneticOptions{Enabled: true, Curve: Linear})
	if !res.Aligned || res.X != 160 || res.DeltaX != 2 {
		t.Fatalf("expected origin corrected to 160, got %+v", res)
	}
	if res.Y != 300 {
		t.Fatalf("y should be untouched: %+v", res)
	}
	if res.SmoothPosition == nil {
		t.Fatalf("expected smooth position")
	}
	// distance 2 of 5 -> strength 0.6 -> 158 + 2*0.6
	if math.Abs(res.MagneticStrength-0.6) > 1e-12 || math.Abs(res.SmoothPosition.X-159.2) > 1e-9 {
		t.Fatalf("unexpected magnetic output: strength=%v smooth=%+v", res.MagneticStrength, res.SmoothPosition)
	}
}

func TestCheckMagneticAlignment_NearestPairWins(t *testing.T) {
	el := geometry.BoundsFromRect("box", geometry.R(0, 0, 100, 50))
	guides := []domain.GuideLine{hguide("top", 103), hguide("center", 126)}
	// top at 100 (distance 3), centre at 125 (distance 1)
	res := CheckMagneticAlignment(el, geometry.Point{X: 0, Y: 100}, guides, cfg(5), MagneticOptions{})
	if res.HorizontalGuide == nil || res.HorizontalGuide.ID != "center" || res.Y != 101 {
		t.Fatalf("nearest guide should win: %+v", res)
	}
	if res.SmoothPosition != nil || res.MagneticStrength != 0 {
		t.Fatalf("magnetic output must be absent when magnetic snapping is off")
	}
}

func TestCheckMagneticAlignment_NoMatch(t *testing.T) {
	el := geometry.BoundsFromRect("box", geometry.R(0, 0, 10, 10))
	res := CheckMagneticAlignment(el, geometry.Point{X: 50, Y: 50}, []domain.GuideLine{vguide("v", 500)}, cfg(5), MagneticOptions{Enabled: true})
	if res.Aligned || res.X != 50 || res.Y != 50 || res.SmoothPosition != nil {
		t.Fatalf("expected neutral result: %+v", res)
	}
}
