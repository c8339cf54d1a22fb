/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package geometry

import "math"

// Pose is an element's placement on the design surface. X/Y is the top-left of
// the unrotated box; Rotation is in degrees, clockwise in screen space, about
// the box centre.
type Pose struct {
	X, Y          float64
	Width, Height float64
	Rotation      float64
}

// ElementBounds is the axis-aligned box of an element in its current pose.
// It is recomputed every frame and never persisted.
type ElementBounds struct {
	ID      string
	Left    float64
	Top     float64
	Right   float64
	Bottom  float64
	CenterX float64
	CenterY float64
	Width   float64
	Height  float64
}

// Rect converts b to an origin/size rectangle.
func (b ElementBounds) Rect() Rect { return Rect{X: b.Left, Y: b.Top, W: b.Width, H: b.Height} }

// Finite reports whether every coordinate of b is a real number.
func (b ElementBounds) Finite() bool {
	return isFinite(b.Left) && isFinite(b.Top) && isFinite(b.Right) && isFinite(b.Bottom)
}

// MoveTo returns b translated so that its top-left sits at p.
func (b ElementBounds) MoveTo(p Point) ElementBounds {
	return BoundsFromRect(b.ID, Rect{X: p.X, Y: p.Y, W: b.Width, H: b.Height})
}

// BoundsFromRect builds ElementBounds with all derived fields filled in. A
// negative width or height is flipped so that Right >= Left and Bottom >= Top.
func BoundsFromRect(id string, r Rect) ElementBounds {
	if r.W < 0 {
		r.X, r.W = r.X+r.W, -r.W
	}
	if r.H < 0 {
		r.Y, r.H = r.Y+r.H, -r.H
	}
	return ElementBounds{
		ID:      id,
		Left:    r.X,
		Top:     r.Y,
		Right:   r.X + r.W,
		Bottom:  r.Y + r.H,
		CenterX: r.X + r.W/2,
		CenterY: r.Y + r.H/2,
		Width:   r.W,
		Height:  r.H,
	}
}

// ComputeBounds returns the axis-aligned bounding box of an element. A rotated
// element is boxed by rotating its four corners about the centre and taking the
// min/max of the result.
func ComputeBounds(id string, pose Pose) ElementBounds {
	r := Rect{X: pose.X, Y: pose.Y, W: pose.Width, H: pose.Height}
	if pose.Rotation == 0 {
		return BoundsFromRect(id, r)
	}
	xf := RotateAbout(Point{X: r.X + r.W/2, Y: r.Y + r.H/2}, pose.Rotation)
	corners := [4]Point{{r.X, r.Y}, {r.Right(), r.Y}, {r.Right(), r.Bottom()}, {r.X, r.Bottom()}}
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, c := range corners {
		p := xf.Apply(c)
		minX = math.Min(minX, p.X)
		minY = math.Min(minY, p.Y)
		maxX = math.Max(maxX, p.X)
		maxY = math.Max(maxY, p.Y)
	}
	return ElementBounds{
		ID:      id,
		Left:    minX,
		Top:     minY,
		Right:   maxX,
		Bottom:  maxY,
		CenterX: (minX + maxX) / 2,
		CenterY: (minY + maxY) / 2,
		Width:   maxX - minX,
		Height:  maxY - minY,
	}
}

// PointType names which feature of the box an AlignmentPoint sits on.
type PointType string

const (
	PointCenter PointType = "center"
	PointCorner PointType = "corner"
	PointTop    PointType = "top"
	PointRight  PointType = "right"
	PointBottom PointType = "bottom"
	PointLeft   PointType = "left"
)

// AlignmentPoint is one of the nine reference points of an element.
type AlignmentPoint struct {
	X, Y      float64
	ElementID string
	Type      PointType
}

// ExtractAlignmentPoints returns the centre, the four corners (clockwise from
// top-left) and the four edge midpoints (top, right, bottom, left).
func ExtractAlignmentPoints(b ElementBounds) [9]AlignmentPoint {
	id := b.ID
	return [9]AlignmentPoint{
		{X: b.CenterX, Y: b.CenterY, ElementID: id, Type: PointCenter},
		{X: b.Left, Y: b.Top, ElementID: id, Type: PointCorner},
		{X: b.Right, Y: b.Top, ElementID: id, Type: PointCorner},
		{X: b.Right, Y: b.Bottom, ElementID: id, Type: PointCorner},
		{X: b.Left, Y: b.Bottom, ElementID: id, Type: PointCorner},
		{X: b.CenterX, Y: b.Top, ElementID: id, Type: PointTop},
		{X: b.Right, Y: b.CenterY, ElementID: id, Type: PointRight},
		{X: b.CenterX, Y: b.Bottom, ElementID: id, Type: PointBottom},
		{X: b.Left, Y: b.CenterY, ElementID: id, Type: PointLeft},
	}
}

// IsCenterX reports whether the point's x coordinate is the element's centre
// line rather than one of its vertical edges.
func (p AlignmentPoint) IsCenterX() bool {
	return p.Type == PointCenter || p.Type == PointTop || p.Type == PointBottom
}

// IsCenterY is the horizontal counterpart of IsCenterX.
func (p AlignmentPoint) IsCenterY() bool {
	return p.Type == PointCenter || p.Type == PointLeft || p.Type == PointRight
}
