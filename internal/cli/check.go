/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package cli

import (
	"github.com/spf13/cobra"

	"snapguides/internal/domain"
	"snapguides/internal/engine"
	"snapguides/internal/geometry"
	"snapguides/internal/scene"
)

// defaultViewport is used when a scene does not name one.
var defaultViewport = geometry.R(0, 0, 1920, 1080)

type checkReport struct {
	Point    *domain.AlignmentResult `json:"point,omitempty"`
	Drag     *dragReport             `json:"drag,omitempty"`
	Elements int                     `json:"elements"`
}

type dragReport struct {
	Element  string                 `json:"element"`
	Proposed geometry.Point         `json:"proposed"`
	Magnetic domain.AlignmentResult `json:"magnetic"`
	Guides   []domain.DynamicGuide  `json:"guides"`
}

func (c *CLI) checkCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check <scene>",
		Short: "Run the scene's point check and drag frame through the engine",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, eng, err := c.loadScene(args[0])
			if err != nil {
				return err
			}
			defer eng.Dispose()
			eng.SetElements(doc.Elements)
			rep := runCheck(doc, eng)
			if c.asJSON {
				return c.writeJSON(cmd.OutOrStdout(), rep)
			}
			printCheck(printer{cmd.OutOrStdout()}, rep)
			return nil
		},
	}
}

func runCheck(doc *scene.Document, eng *engine.Engine) checkReport {
	rep := checkReport{Elements: len(doc.Elements)}
	if doc.Point != nil {
		res := eng.SnapPosition(*doc.Point, doc.Guides)
		rep.Point = &res
	}
	if doc.Drag != nil {
		b, ok := eng.Bounds(doc.Drag.ElementID)
		if !ok {
			// unknown ids are rejected by the loader; a non-finite pose is not indexed
			return rep
		}
		guides := append(append([]domain.GuideLine(nil), doc.Guides...), staticGuidesExcept(doc, doc.Drag.ElementID, eng.Config())...)
		moved := b.MoveTo(doc.Drag.To)
		rep.Drag = &dragReport{
			Element:  doc.Drag.ElementID,
			Proposed: doc.Drag.To,
			Magnetic: eng.CheckMagneticAlignment(b, doc.Drag.To, guides),
			Guides:   eng.FrameGuides(moved, doc.ViewportOr(defaultViewport)),
		}
	}
	return rep
}

// staticGuidesExcept derives element guides from every element but the
// dragged one, so it cannot snap to itself.
func staticGuidesExcept(doc *scene.Document, id string, cfg domain.AlignmentConfig) []domain.GuideLine {
	others := make([]domain.Element, 0, len(doc.Elements))
	for _, e := range doc.Elements {
		if e.ID != id {
			others = append(others, e)
		}
	}
	return engine.GetElementsAlignmentGuides(others, cfg)
}

func printCheck(p printer, rep checkReport) {
	p.title("Scene: %d elements", rep.Elements)
	if r := rep.Point; r != nil {
		if r.Aligned {
			p.success("point snaps to (%s, %s), delta (%s, %s)", num(r.X), num(r.Y), num(r.DeltaX), num(r.DeltaY))
		} else {
			p.miss("point (%s, %s) does not align", num(r.X), num(r.Y))
		}
		printGuideLine(p, "vertical", r.VerticalGuide)
		printGuideLine(p, "horizontal", r.HorizontalGuide)
	}
	if d := rep.Drag; d != nil {
		m := d.Magnetic
		if m.Aligned {
			p.success("%s at (%s, %s) %s snaps to (%s, %s), strength %s", d.Element,
				num(d.Proposed.X), num(d.Proposed.Y), iconArrow, num(m.X), num(m.Y), num(geometry.FloatRound(m.MagneticStrength, 3)))
			if sp := m.SmoothPosition; sp != nil {
				p.detail("smooth position (%g, %g)", geometry.FloatRound(sp.X, 3), geometry.FloatRound(sp.Y, 3))
			}
		} else {
			p.miss("%s at (%s, %s) does not align", d.Element, num(d.Proposed.X), num(d.Proposed.Y))
		}
		printGuideLine(p, "vertical", m.VerticalGuide)
		printGuideLine(p, "horizontal", m.HorizontalGuide)
		if len(d.Guides) == 0 {
			p.info("no dynamic guides")
		}
		for _, g := range d.Guides {
			printDynamic(p, g)
		}
	}
	if rep.Point == nil && rep.Drag == nil {
		p.warn("scene has neither a point nor a drag to check")
	}
}

func printGuideLine(p printer, label string, g *domain.GuideLine) {
	if g == nil {
		return
	}
	p.detail("%s guide %s at %g (%s)", label, g.ID, g.Position, g.Type)
}

func printDynamic(p printer, g domain.DynamicGuide) {
	switch g.Type {
	case domain.DynamicSpacing:
		spacing := 0.0
		if g.Metadata != nil {
			spacing = g.Metadata.Spacing
		}
		p.info("spacing %s guide at %s from %g to %g, gap %s, elements %v",
			g.Orientation, num(g.Position), g.Start, g.End, num(spacing), g.RelatedElements)
	default:
		p.info("%s guide at %s from %g to %g, elements %v", g.Orientation, num(g.Position), g.Start, g.End, g.RelatedElements)
	}
}
