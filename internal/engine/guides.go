/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package engine

import (
	"fmt"
	"math"
	"sort"

	"snapguides/internal/domain"
	"snapguides/internal/geometry"
)

type guideKey struct {
	orient domain.Orientation
	pos    float64
}

// guideAcc accumulates matches at one orientation+position.
type guideAcc struct {
	guide domain.DynamicGuide
	seen  map[string]bool
}

func (a *guideAcc) add(start, end float64, ids ...string) {
	a.guide.Start = math.Min(a.guide.Start, start)
	a.guide.End = math.Max(a.guide.End, end)
	for _, id := range ids {
		if !a.seen[id] {
			a.seen[id] = true
			a.guide.RelatedElements = append(a.guide.RelatedElements, id)
		}
	}
}

// GenerateDynamicGuides compares every alignment point of dragged with every
// alignment point of each target. Each pair within cfg.Threshold on x adds to
// a vertical guide at the target's x; within threshold on y, to a horizontal
// guide at the target's y. Matches at the same orientation and position merge
// into one guide spanning both elements on the other axis.
func GenerateDynamicGuides(dragged geometry.ElementBounds, targets []geometry.ElementBounds, cfg domain.AlignmentConfig) []domain.DynamicGuide {
	if !cfg.Enabled || !cfg.SnapToElements {
		return nil
	}
	acc := make(map[guideKey]*guideAcc)
	var order []guideKey
	get := func(k guideKey) *guideAcc {
		a, ok := acc[k]
		if !ok {
			a = &guideAcc{
				guide: domain.DynamicGuide{Orientation: k.orient, Position: k.pos, Start: math.Inf(1), End: math.Inf(-1), Type: domain.DynamicElement},
				seen:  make(map[string]bool, 2),
			}
			acc[k] = a
			order = append(order, k)
		}
		return a
	}

	dps := geometry.ExtractAlignmentPoints(dragged)
	for _, t := range targets {
		if t.ID == dragged.ID {
			continue
		}
		tps := geometry.ExtractAlignmentPoints(t)
		top, bottom := math.Min(dragged.Top, t.Top), math.Max(dragged.Bottom, t.Bottom)
		left, right := math.Min(dragged.Left, t.Left), math.Max(dragged.Right, t.Right)
		for _, dp := range dps {
			for _, tp := range tps {
				if math.Abs(dp.X-tp.X) <= cfg.Threshold && roleAllowed(dp.IsCenterX(), tp.IsCenterX(), cfg) {
					k := guideKey{domain.Vertical, geometry.FloatRound(tp.X, 3)}
					get(k).add(top, bottom, dragged.ID, t.ID)
				}
				if math.Abs(dp.Y-tp.Y) <= cfg.Threshold && roleAllowed(dp.IsCenterY(), tp.IsCenterY(), cfg) {
					k := guideKey{domain.Horizontal, geometry.FloatRound(tp.Y, 3)}
					get(k).add(left, right, dragged.ID, t.ID)
				}
			}
		}
	}
	if len(order) == 0 {
		return nil
	}
	out := make([]domain.DynamicGuide, 0, len(order))
	for _, k := range order {
		out = append(out, acc[k].guide)
	}
	sortGuides(out)
	return out
}

// roleAllowed applies ShowCenterGuides/ShowEdgeGuides: a pair involving a
// centre line is a centre guide, a pair of edges is an edge guide.
func roleAllowed(dragCenter, targetCenter bool, cfg domain.AlignmentConfig) bool {
	if dragCenter || targetCenter {
		return cfg.ShowCenterGuides
	}
	return cfg.ShowEdgeGuides
}

func sortGuides(gs []domain.DynamicGuide) {
	sort.SliceStable(gs, func(i, j int) bool {
		if gs[i].Orientation != gs[j].Orientation {
			return gs[i].Orientation == domain.Vertical
		}
		return gs[i].Position < gs[j].Position
	})
}

// GetElementsAlignmentGuides derives static centre and edge guides from the
// given elements. Rotated elements are skipped: their bounding box moves as
// they turn and is not a stable reference. Guides of the same type at the same
// position are merged.
func GetElementsAlignmentGuides(elements []domain.Element, cfg domain.AlignmentConfig) []domain.GuideLine {
	if !cfg.Enabled {
		return nil
	}
	type key struct {
		orient domain.Orientation
		typ    domain.GuideType
		pos    float64
	}
	idx := make(map[key]int)
	var out []domain.GuideLine
	add := func(o domain.Orientation, typ domain.GuideType, pos float64, id string) {
		pos = geometry.FloatRound(pos, 3)
		k := key{o, typ, pos}
		if i, ok := idx[k]; ok {
			g := &out[i]
			for _, r := range g.RelatedElements {
				if r == id {
					return
				}
			}
			g.RelatedElements = append(g.RelatedElements, id)
			return
		}
		idx[k] = len(out)
		out = append(out, domain.GuideLine{
			ID:              fmt.Sprintf("%s-%s-%g", typ, o, pos),
			Orientation:     o,
			Position:        pos,
			Type:            typ,
			Visible:         domain.Bool(true),
			RelatedElements: []string{id},
		})
	}
	for _, e := range elements {
		if e.Pose.Rotation != 0 {
			continue
		}
		b := e.Bounds()
		if !b.Finite() {
			continue
		}
		if cfg.ShowCenterGuides {
			add(domain.Vertical, domain.GuideCenter, b.CenterX, e.ID)
			add(domain.Horizontal, domain.GuideCenter, b.CenterY, e.ID)
		}
		if cfg.ShowEdgeGuides {
			add(domain.Vertical, domain.GuideEdge, b.Left, e.ID)
			add(domain.Vertical, domain.GuideEdge, b.Right, e.ID)
			add(domain.Horizontal, domain.GuideEdge, b.Top, e.ID)
			add(domain.Horizontal, domain.GuideEdge, b.Bottom, e.ID)
		}
	}
	return out
}
