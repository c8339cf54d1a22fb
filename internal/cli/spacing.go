/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"snapguides/internal/domain"
	"snapguides/internal/spacing"
)

type spacingReport struct {
	Axis   domain.Axis           `json:"axis"`
	Groups []domain.SpacingGroup `json:"groups"`
}

func (c *CLI) spacingCommand() *cobra.Command {
	var axis string
	var tolerance float64
	cmd := &cobra.Command{
		Use:   "spacing <scene>",
		Short: "Find runs of equally spaced elements",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			axes, err := parseAxes(axis)
			if err != nil {
				return err
			}
			doc, eng, err := c.loadScene(args[0])
			if err != nil {
				return err
			}
			defer eng.Dispose()
			if tolerance == 0 {
				tolerance = c.cfg.Engine.SpacingTolerance
			}
			var reps []spacingReport
			for _, a := range axes {
				groups := spacing.DetectEqualSpacing(doc.Bounds(), a, tolerance)
				if groups == nil {
					groups = []domain.SpacingGroup{}
				}
				reps = append(reps, spacingReport{Axis: a, Groups: groups})
			}
			if c.asJSON {
				return c.writeJSON(cmd.OutOrStdout(), reps)
			}
			p := printer{cmd.OutOrStdout()}
			for _, r := range reps {
				p.title("%s axis", r.Axis)
				if len(r.Groups) == 0 {
					p.info("no equal spacing")
				}
				for _, g := range r.Groups {
					p.success("gap %s repeated %d times: %s", num(g.Spacing), g.Count, strings.Join(g.Elements, ", "))
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&axis, "axis", "both", "horizontal, vertical or both")
	cmd.Flags().Float64Var(&tolerance, "tolerance", 0, "max gap difference (default from config, then 1)")
	return cmd
}

func parseAxes(s string) ([]domain.Axis, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "both":
		return []domain.Axis{domain.AxisHorizontal, domain.AxisVertical}, nil
	case "horizontal", "x":
		return []domain.Axis{domain.AxisHorizontal}, nil
	case "vertical", "y":
		return []domain.Axis{domain.AxisVertical}, nil
	default:
		return nil, fmt.Errorf("unknown axis %q", s)
	}
}

func (c *CLI) guidesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "guides <scene>",
		Short: "List the centre and edge guides derived from the scene's elements",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, eng, err := c.loadScene(args[0])
			if err != nil {
				return err
			}
			defer eng.Dispose()
			eng.SetElements(doc.Elements)
			gs := eng.ElementsAlignmentGuides()
			if gs == nil {
				gs = []domain.GuideLine{}
			}
			if c.asJSON {
				return c.writeJSON(cmd.OutOrStdout(), gs)
			}
			rows := make([][]string, 0, len(gs))
			for _, g := range gs {
				rows = append(rows, []string{g.ID, string(g.Orientation), fmt.Sprintf("%g", g.Position), string(g.Type), strings.Join(g.RelatedElements, ",")})
			}
			p := printer{cmd.OutOrStdout()}
			p.title("%d guides", len(gs))
			p.table([]string{"ID", "ORIENTATION", "POSITION", "TYPE", "ELEMENTS"}, rows)
			return nil
		},
	}
}
