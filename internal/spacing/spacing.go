/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package spacing finds runs of elements separated by equal gaps and tells a
// drag whether it would extend such a run.
package spacing

import (
	"math"
	"sort"

	"snapguides/internal/domain"
	"snapguides/internal/geometry"
)

// DefaultTolerance is the gap difference, in surface units, that still counts
// as equal.
const DefaultTolerance = 1.0

// span is an element projected onto one axis, plus its cross-axis extent.
type span struct {
	id         string
	lead, tail float64
	crossMin   float64
	crossMax   float64
}

func project(b geometry.ElementBounds, axis domain.Axis) span {
	if axis == domain.AxisVertical {
		return span{id: b.ID, lead: b.Top, tail: b.Bottom, crossMin: b.Left, crossMax: b.Right}
	}
	return span{id: b.ID, lead: b.Left, tail: b.Right, crossMin: b.Top, crossMax: b.Bottom}
}

func normTolerance(tol float64) float64 {
	if !(tol > 0) {
		return DefaultTolerance
	}
	return tol
}

// group is a detected run kept in sorted order so its ends can be tested.
type group struct {
	domain.SpacingGroup
	first, last span
}

// DetectEqualSpacing sorts elements by their leading edge on axis, measures
// the gap between each consecutive pair and clusters adjacent gaps that differ
// by at most tolerance. Only clusters of two or more gaps are reported. A
// negative gap (overlap) never joins a cluster. tolerance <= 0 means
// DefaultTolerance.
func DetectEqualSpacing(elements []geometry.ElementBounds, axis domain.Axis, tolerance float64) []domain.SpacingGroup {
	gs := detect(elements, axis, normTolerance(tolerance))
	if len(gs) == 0 {
		return nil
	}
	out := make([]domain.SpacingGroup, len(gs))
	for i, g := range gs {
		out[i] = g.SpacingGroup
	}
	return out
}

func detect(elements []geometry.ElementBounds, axis domain.Axis, tol float64) []group {
	spans := make([]span, 0, len(elements))
	for _, e := range elements {
		if e.Finite() {
			spans = append(spans, project(e, axis))
		}
	}
	if len(spans) < 3 {
		return nil
	}
	sort.SliceStable(spans, func(i, j int) bool {
		if spans[i].lead != spans[j].lead {
			return spans[i].lead < spans[j].lead
		}
		return spans[i].id < spans[j].id
	})

	gaps := make([]float64, len(spans)-1)
	for i := range gaps {
		gaps[i] = spans[i+1].lead - spans[i].tail
	}

	var out []group
	start := 0
	flush := func(end int) {
		// gaps[start:end] form a cluster covering spans[start:end+1]
		n := end - start
		if n < 2 {
			return
		}
		sum := 0.0
		for _, g := range gaps[start:end] {
			sum += g
		}
		g := group{first: spans[start], last: spans[end]}
		g.Spacing = math.Round(sum / float64(n))
		g.Count = n
		seen := make(map[string]bool, n+1)
		for _, s := range spans[start : end+1] {
			if !seen[s.id] {
				seen[s.id] = true
				g.Elements = append(g.Elements, s.id)
			}
		}
		out = append(out, g)
	}
	for i := 1; i <= len(gaps); i++ {
		if i < len(gaps) && gaps[i] >= 0 && gaps[i-1] >= 0 && math.Abs(gaps[i]-gaps[i-1]) <= tol {
			continue
		}
		flush(i)
		start = i
	}
	return out
}

// GenerateDistributionGuides reports whether dragged, at its tentative
// position, continues an equal-spacing run among targets. The gap between
// dragged and the run's end neighbour must match the run's spacing within
// tolerance, and dragged must overlap that neighbour on the cross axis. At
// most one guide is returned: the closest match over both axes.
func GenerateDistributionGuides(dragged geometry.ElementBounds, targets []geometry.ElementBounds, tolerance float64) []domain.DynamicGuide {
	if !dragged.Finite() {
		return nil
	}
	tol := normTolerance(tolerance)
	others := make([]geometry.ElementBounds, 0, len(targets))
	for _, t := range targets {
		if t.ID != dragged.ID {
			others = append(others, t)
		}
	}

	var best *domain.DynamicGuide
	bestDev := math.Inf(1)
	for _, axis := range []domain.Axis{domain.AxisHorizontal, domain.AxisVertical} {
		d := project(dragged, axis)
		for _, g := range detect(others, axis, tol) {
			// after the run
			if overlaps(d, g.last) {
				gap := d.lead - g.last.tail
				if dev := math.Abs(gap - g.Spacing); dev <= tol && dev < bestDev {
					bestDev = dev
					best = spacingGuide(axis, g, g.last, d, g.last.tail, d.lead)
				}
			}
			// before the run
			if overlaps(d, g.first) {
				gap := g.first.lead - d.tail
				if dev := math.Abs(gap - g.Spacing); dev <= tol && dev < bestDev {
					bestDev = dev
					best = spacingGuide(axis, g, g.first, d, d.tail, g.first.lead)
				}
			}
		}
	}
	if best == nil {
		return nil
	}
	return []domain.DynamicGuide{*best}
}

func overlaps(a, b span) bool { return a.crossMin <= b.crossMax && b.crossMin <= a.crossMax }

// spacingGuide draws the new gap between neighbour and dragged. A run along
// the horizontal axis produces a horizontal guide centred on the shared band.
func spacingGuide(axis domain.Axis, g group, neighbour, dragged span, from, to float64) *domain.DynamicGuide {
	band := (math.Max(neighbour.crossMin, dragged.crossMin) + math.Min(neighbour.crossMax, dragged.crossMax)) / 2
	orient := domain.Horizontal
	if axis == domain.AxisVertical {
		orient = domain.Vertical
	}
	related := append(append([]string(nil), g.Elements...), dragged.id)
	return &domain.DynamicGuide{
		Orientation:     orient,
		Position:        geometry.FloatRound(band, 3),
		Start:           math.Min(from, to),
		End:             math.Max(from, to),
		Type:            domain.DynamicSpacing,
		RelatedElements: related,
		Metadata:        &domain.GuideMetadata{Spacing: g.Spacing, Axis: axis},
	}
}
