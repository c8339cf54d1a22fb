/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package snap matches points and elements against guide lines.
//
// Everything here is a pure function over its arguments: no caches, no
// shared scratch space. NaN coordinates never panic; a comparison against NaN
// is false, so the affected axis simply does not align.
package snap

import (
	"math"

	"snapguides/internal/domain"
	"snapguides/internal/geometry"
)

// CheckAlignment aligns p against explicit guide lines. Each axis is scanned
// in list order and the first visible guide within cfg.Threshold wins, even if
// a later guide is closer.
func CheckAlignment(p geometry.Point, guides []domain.GuideLine, cfg domain.AlignmentConfig) domain.AlignmentResult {
	res := domain.Unaligned(p)
	if !cfg.Enabled {
		return res
	}
	if g := firstMatch(p.X, guides, domain.Vertical, cfg.Threshold); g != nil {
		res.X = g.Position
		res.DeltaX = g.Position - p.X
		res.VerticalGuide = g
	}
	if g := firstMatch(p.Y, guides, domain.Horizontal, cfg.Threshold); g != nil {
		res.Y = g.Position
		res.DeltaY = g.Position - p.Y
		res.HorizontalGuide = g
	}
	res.Aligned = res.VerticalGuide != nil || res.HorizontalGuide != nil
	return res
}

// firstMatch returns a copy of the first guide of orientation o within
// threshold of v.
func firstMatch(v float64, guides []domain.GuideLine, o domain.Orientation, threshold float64) *domain.GuideLine {
	for i := range guides {
		g := guides[i]
		if g.Orientation != o || !g.IsVisible() {
			continue
		}
		if math.Abs(v-g.Position) <= threshold {
			return &g
		}
	}
	return nil
}

// SnapToGrid pulls each axis of p onto the nearest grid line when it is within
// cfg.Threshold of it. It reports whether any axis moved. Grid snapping is off
// unless cfg.Enabled, cfg.SnapToGrid and a positive GridSize are all set.
func SnapToGrid(p geometry.Point, cfg domain.AlignmentConfig) (geometry.Point, bool) {
	if !cfg.Enabled || !cfg.SnapToGrid || !(cfg.GridSize > 0) {
		return p, false
	}
	out := p
	x, okX := nearestGridLine(p.X, cfg.GridSize, cfg.Threshold)
	if okX {
		out.X = x
	}
	y, okY := nearestGridLine(p.Y, cfg.GridSize, cfg.Threshold)
	if okY {
		out.Y = y
	}
	return out, okX || okY
}

func nearestGridLine(v, size, threshold float64) (float64, bool) {
	line := math.Round(v/size) * size
	if math.Abs(v-line) <= threshold {
		return line, true
	}
	return v, false
}
