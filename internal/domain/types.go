/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

// This file defines the plain data exchanged with the host editor: persisted
// guide lines, the alignment policy, per-call results and the ephemeral guides
// generated during a drag. None of these types hold references back into the
// engine; hosts pass snapshots in and get fresh values out.

import "snapguides/internal/geometry"

// Orientation of a guide line.
type Orientation string

const (
	Vertical   Orientation = "vertical"
	Horizontal Orientation = "horizontal"
)

// GuideType classifies persisted or derived guide lines.
type GuideType string

const (
	GuideManual GuideType = "manual"
	GuideAuto   GuideType = "auto"
	GuideCenter GuideType = "center"
	GuideEdge   GuideType = "edge"
)

// GuideLine is a straight reference line elements may snap to. It is owned by
// the host editor; the engine only reads it or derives new candidates.
type GuideLine struct {
	ID          string      `json:"id"`
	Orientation Orientation `json:"orientation"`
	Position    float64     `json:"position"`
	Type        GuideType   `json:"type"`
	// Visible is nil when the host never set it; only an explicit false hides
	// the guide.
	Visible         *bool    `json:"visible,omitempty"`
	RelatedElements []string `json:"relatedElements,omitempty"`
}

// IsVisible reports whether the guide takes part in alignment.
func (g GuideLine) IsVisible() bool { return g.Visible == nil || *g.Visible }

// Bool returns a pointer to v, for GuideLine.Visible literals.
func Bool(v bool) *bool { return &v }

// DynamicType says what produced a DynamicGuide.
type DynamicType string

const (
	DynamicElement DynamicType = "element"
	DynamicSpacing DynamicType = "spacing"
)

// GuideMetadata carries extra data for spacing guides.
type GuideMetadata struct {
	Spacing float64 `json:"spacing"`
	Axis    Axis    `json:"axis"`
}

// DynamicGuide is an ephemeral guide regenerated on every drag frame.
// Start and End are the extent along the guide's own direction: y-range for a
// vertical guide, x-range for a horizontal one.
type DynamicGuide struct {
	Orientation     Orientation    `json:"orientation"`
	Position        float64        `json:"position"`
	Start           float64        `json:"start"`
	End             float64        `json:"end"`
	Type            DynamicType    `json:"type"`
	RelatedElements []string       `json:"relatedElements"`
	Metadata        *GuideMetadata `json:"metadata,omitempty"`
}

// Axis selects the direction spacing is measured along.
type Axis string

const (
	AxisHorizontal Axis = "horizontal"
	AxisVertical   Axis = "vertical"
)

// AlignmentConfig is the alignment policy supplied by the host. The engine
// never mutates it.
type AlignmentConfig struct {
	Enabled          bool    `json:"enabled" yaml:"enabled"`
	Threshold        float64 `json:"threshold" yaml:"threshold"`
	SnapToGrid       bool    `json:"snapToGrid" yaml:"snap_to_grid"`
	GridSize         float64 `json:"gridSize" yaml:"grid_size"`
	SnapToElements   bool    `json:"snapToElements" yaml:"snap_to_elements"`
	ShowCenterGuides bool    `json:"showCenterGuides" yaml:"show_center_guides"`
	ShowEdgeGuides   bool    `json:"showEdgeGuides" yaml:"show_edge_guides"`
}

// DefaultAlignmentConfig returns the policy used when the host supplies none.
func DefaultAlignmentConfig() AlignmentConfig {
	return AlignmentConfig{
		Enabled:          true,
		Threshold:        5,
		SnapToGrid:       false,
		GridSize:         10,
		SnapToElements:   true,
		ShowCenterGuides: true,
		ShowEdgeGuides:   true,
	}
}

// AlignmentResult is the stateless outcome of a single alignment check.
type AlignmentResult struct {
	Aligned         bool       `json:"aligned"`
	X               float64    `json:"x"`
	Y               float64    `json:"y"`
	DeltaX          float64    `json:"deltaX"`
	DeltaY          float64    `json:"deltaY"`
	VerticalGuide   *GuideLine `json:"verticalGuide,omitempty"`
	HorizontalGuide *GuideLine `json:"horizontalGuide,omitempty"`
	// MagneticStrength and SmoothPosition are only filled by magnetic checks.
	MagneticStrength float64         `json:"magneticStrength,omitempty"`
	SmoothPosition   *geometry.Point `json:"smoothPosition,omitempty"`
}

// Unaligned is the neutral result for p.
func Unaligned(p geometry.Point) AlignmentResult {
	return AlignmentResult{X: p.X, Y: p.Y}
}

// SpacingGroup is a run of elements separated by approximately equal gaps.
type SpacingGroup struct {
	Spacing  float64  `json:"spacing"`
	Elements []string `json:"elements"`
	Count    int      `json:"count"`
}
