/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

import "snapguides/internal/geometry"

// Element is a host element snapshot: identity, pose and what kind of thing it
// is. Kind is a closed set; see ElementKind.
type Element struct {
	ID   string
	Pose geometry.Pose
	Kind ElementKind
}

// Bounds returns the element's axis-aligned box in its current pose.
func (e Element) Bounds() geometry.ElementBounds { return geometry.ComputeBounds(e.ID, e.Pose) }

// ElementKind is implemented only by the kinds in this package.
type ElementKind interface{ elementKind() }

type Text struct {
	Content  string
	FontSize float64
}

type Shape struct {
	// Shape is "rect", "ellipse" or "rounded"; non-rectangular shapes still
	// align by their bounding box.
	Shape string
}

type Image struct{ Source string }

type Barcode struct {
	Format string
	Value  string
}

type QRCode struct{ Value string }

type Line struct{ StrokeWidth float64 }

func (Text) elementKind()    {}
func (Shape) elementKind()   {}
func (Image) elementKind()   {}
func (Barcode) elementKind() {}
func (QRCode) elementKind()  {}
func (Line) elementKind()    {}

// KindName returns the wire name of k. A nil or unrecognised kind is reported
// as "shape", which is how hosts that do not tag elements are treated.
func KindName(k ElementKind) string {
	switch k.(type) {
	case Text:
		return "text"
	case Image:
		return "image"
	case Barcode:
		return "barcode"
	case QRCode:
		return "qrcode"
	case Line:
		return "line"
	}
	return "shape"
}

// KindNames lists every kind name KindName can return.
var KindNames = []string{"text", "shape", "image", "barcode", "qrcode", "line"}
