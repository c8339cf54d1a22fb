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
	"strings"

	"snapguides/internal/domain"
	"snapguides/internal/geometry"
)

// Curve shapes how snap strength falls off with distance.
type Curve string

const (
	Linear      Curve = "linear"
	Quadratic   Curve = "quadratic"
	Cubic       Curve = "cubic"
	Exponential Curve = "exponential"
)

// ParseCurve maps a curve name to a Curve. Unknown names fall back to Linear.
func ParseCurve(name string) Curve {
	switch c := Curve(strings.ToLower(strings.TrimSpace(name))); c {
	case Linear, Quadratic, Cubic, Exponential:
		return c
	default:
		return Linear
	}
}

var expFloor = math.Exp(-3)

// CalculateMagneticStrength maps a distance to a pull strength in [0,1]:
// 1 at distance 0, 0 at or beyond threshold.
func CalculateMagneticStrength(distance, threshold float64, curve Curve) float64 {
	distance = math.Abs(distance)
	if !(distance < threshold) {
		return 0
	}
	if distance == 0 {
		return 1
	}
	t := 1 - distance/threshold
	var s float64
	switch ParseCurve(string(curve)) {
	case Quadratic:
		s = t * t
	case Cubic:
		s = t * t * t
	case Exponential:
		s = math.Exp(-3*distance/threshold) - expFloor
	default:
		s = t
	}
	return clamp01(s)
}

// ApplyMagneticSnap moves position toward snapPoint by strength on each axis.
// Strength 0 returns position, strength 1 returns snapPoint exactly.
func ApplyMagneticSnap(position, snapPoint geometry.Point, strength float64) geometry.Point {
	switch {
	case !(strength > 0):
		return position
	case strength >= 1:
		return snapPoint
	}
	return geometry.Point{
		X: lerp(position.X, snapPoint.X, strength),
		Y: lerp(position.Y, snapPoint.Y, strength),
	}
}

func lerp(a, b, t float64) float64 { return a + (b-a)*t }

func clamp01(v float64) float64 {
	switch {
	case !(v > 0):
		return 0
	case v > 1:
		return 1
	}
	return v
}

// MagneticOptions is the magnetic part of the policy. Threshold defaults to
// the alignment threshold when zero.
type MagneticOptions struct {
	Enabled   bool
	Threshold float64
	Curve     Curve
}

// axisMatch is the best alignment-point/guide pairing found for one axis.
type axisMatch struct {
	guide    *domain.GuideLine
	distance float64
	// snapped is the corrected origin coordinate on this axis.
	snapped float64
}

// CheckMagneticAlignment tests all nine alignment points of element, moved to
// proposed, against the guides. The nearest point/guide pair per axis within
// threshold decides the snap. X/Y are the element origin after a hard snap,
// so a right-edge match yields x = guide - width. SmoothPosition is the origin
// pulled toward that snap by the magnetic strength of each axis.
func CheckMagneticAlignment(element geometry.ElementBounds, proposed geometry.Point, guides []domain.GuideLine, cfg domain.AlignmentConfig, opts MagneticOptions) domain.AlignmentResult {
	res := domain.Unaligned(proposed)
	if !cfg.Enabled {
		return res
	}
	threshold := opts.Threshold
	if threshold == 0 {
		threshold = cfg.Threshold
	}

	moved := element.MoveTo(proposed)
	pts := geometry.ExtractAlignmentPoints(moved)
	var vx, hy axisMatch
	vx.distance, hy.distance = math.Inf(1), math.Inf(1)

	for i := range guides {
		g := guides[i]
		if !g.IsVisible() {
			continue
		}
		for _, ap := range pts {
			switch g.Orientation {
			case domain.Vertical:
				d := math.Abs(ap.X - g.Position)
				if d <= threshold && d < vx.distance {
					gc := g
					vx = axisMatch{guide: &gc, distance: d, snapped: g.Position - (ap.X - moved.Left)}
				}
			case domain.Horizontal:
				d := math.Abs(ap.Y - g.Position)
				if d <= threshold && d < hy.distance {
					gc := g
					hy = axisMatch{guide: &gc, distance: d, snapped: g.Position - (ap.Y - moved.Top)}
				}
			}
		}
	}

	smooth := proposed
	if vx.guide != nil {
		res.X = vx.snapped
		res.DeltaX = vx.snapped - proposed.X
		res.VerticalGuide = vx.guide
		if opts.Enabled {
			s := CalculateMagneticStrength(vx.distance, threshold, opts.Curve)
			smooth.X = ApplyMagneticSnap(proposed, geometry.Point{X: vx.snapped, Y: proposed.Y}, s).X
			res.MagneticStrength = math.Max(res.MagneticStrength, s)
		}
	}
	if hy.guide != nil {
		res.Y = hy.snapped
		res.DeltaY = hy.snapped - proposed.Y
		res.HorizontalGuide = hy.guide
		if opts.Enabled {
			s := CalculateMagneticStrength(hy.distance, threshold, opts.Curve)
			smooth.Y = ApplyMagneticSnap(proposed, geometry.Point{X: proposed.X, Y: hy.snapped}, s).Y
			res.MagneticStrength = math.Max(res.MagneticStrength, s)
		}
	}
	res.Aligned = res.VerticalGuide != nil || res.HorizontalGuide != nil
	if res.Aligned && opts.Enabled {
		res.SmoothPosition = &smooth
	}
	return res
}
