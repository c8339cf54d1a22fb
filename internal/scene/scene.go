/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package scene reads canvas snapshots used by the command line tools and
// tests. A scene lists elements, guides, an optional alignment policy and an
// optional drag, in JSON, YAML or TOML. Every file is checked against an
// embedded JSON schema before it is decoded.
package scene

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	"snapguides/internal/domain"
	"snapguides/internal/geometry"
	"snapguides/internal/snap"
)

//go:embed schema.json
var schemaJSON []byte

// ErrInvalidScene wraps every schema or consistency failure.
var ErrInvalidScene = errors.New("invalid scene")

// Format is the serialization of a scene file.
type Format string

const (
	JSON Format = "json"
	YAML Format = "yaml"
	TOML Format = "toml"
)

// FormatFromPath picks the format by file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return JSON, nil
	case ".yaml", ".yml":
		return YAML, nil
	case ".toml":
		return TOML, nil
	default:
		return "", fmt.Errorf("unsupported scene extension %q", filepath.Ext(path))
	}
}

// Drag is the element being moved and where the pointer wants to put its
// top-left corner.
type Drag struct {
	ElementID string
	To        geometry.Point
}

// Document is a decoded scene.
type Document struct {
	// Config is nil when the scene leaves the policy to the caller.
	Config   *domain.AlignmentConfig
	Magnetic *snap.MagneticOptions
	Viewport *geometry.Rect
	Elements []domain.Element
	Guides   []domain.GuideLine
	Drag     *Drag
	Point    *geometry.Point
}

// Element returns the element with id.
func (d *Document) Element(id string) (domain.Element, bool) {
	for _, e := range d.Elements {
		if e.ID == id {
			return e, true
		}
	}
	return domain.Element{}, false
}

// Bounds returns the bounds of every element, in order.
func (d *Document) Bounds() []geometry.ElementBounds {
	out := make([]geometry.ElementBounds, len(d.Elements))
	for i, e := range d.Elements {
		out[i] = e.Bounds()
	}
	return out
}

// ViewportOr returns the scene viewport, or def when none is set.
func (d *Document) ViewportOr(def geometry.Rect) geometry.Rect {
	if d.Viewport != nil {
		return *d.Viewport
	}
	return def
}

// LoadFile reads and decodes a scene, choosing the format by extension.
func LoadFile(path string) (*Document, error) {
	f, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scene: %w", err)
	}
	doc, err := Parse(data, f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// Parse decodes data in format f.
func Parse(data []byte, f Format) (*Document, error) {
	raw, err := toJSON(data, f)
	if err != nil {
		return nil, err
	}
	if err := Validate(raw); err != nil {
		return nil, err
	}
	var w wireScene
	dec := json.NewDecoder(bytes.NewReader(raw))
	if err := dec.Decode(&w); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidScene, err)
	}
	return w.document()
}

// toJSON normalizes any supported format into JSON so one schema covers all.
func toJSON(data []byte, f Format) ([]byte, error) {
	var v any
	switch f {
	case JSON:
		if !json.Valid(data) {
			return nil, fmt.Errorf("%w: malformed json", ErrInvalidScene)
		}
		return data, nil
	case YAML:
		if err := yaml.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("%w: yaml: %v", ErrInvalidScene, err)
		}
	case TOML:
		var m map[string]any
		if _, err := toml.Decode(string(data), &m); err != nil {
			return nil, fmt.Errorf("%w: toml: %v", ErrInvalidScene, err)
		}
		v = m
	default:
		return nil, fmt.Errorf("unknown scene format %q", f)
	}
	out, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidScene, err)
	}
	return out, nil
}

// Validate checks a JSON scene against the embedded schema. All violations
// are joined into one error.
func Validate(raw []byte) error {
	res, err := gojsonschema.Validate(gojsonschema.NewBytesLoader(schemaJSON), gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidScene, err)
	}
	if res.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(res.Errors()))
	for _, e := range res.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("%w: %s", ErrInvalidScene, strings.Join(msgs, "; "))
}

type wireElement struct {
	ID          string  `json:"id"`
	Type        string  `json:"type"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Width       float64 `json:"width"`
	Height      float64 `json:"height"`
	Rotation    float64 `json:"rotation"`
	Content     string  `json:"content"`
	FontSize    float64 `json:"fontSize"`
	Shape       string  `json:"shape"`
	Source      string  `json:"source"`
	Format      string  `json:"format"`
	Value       string  `json:"value"`
	StrokeWidth float64 `json:"strokeWidth"`
}

type wirePoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type wireRect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type wireMagnetic struct {
	Enabled   *bool   `json:"enabled"`
	Threshold float64 `json:"threshold"`
	Curve     string  `json:"curve"`
}

type wireDrag struct {
	ID string  `json:"id"`
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
}

type wireScene struct {
	Version  int                `json:"version"`
	Viewport *wireRect          `json:"viewport"`
	Config   json.RawMessage    `json:"config"`
	Magnetic *wireMagnetic      `json:"magnetic"`
	Elements []wireElement      `json:"elements"`
	Guides   []domain.GuideLine `json:"guides"`
	Drag     *wireDrag          `json:"drag"`
	Point    *wirePoint         `json:"point"`
}

func (w wireScene) document() (*Document, error) {
	d := &Document{Guides: w.Guides}
	if len(w.Config) > 0 {
		// Keys the scene omits keep their default.
		cfg := domain.DefaultAlignmentConfig()
		if err := json.Unmarshal(w.Config, &cfg); err != nil {
			return nil, fmt.Errorf("%w: config: %v", ErrInvalidScene, err)
		}
		d.Config = &cfg
	}
	if m := w.Magnetic; m != nil {
		opts := snap.MagneticOptions{Enabled: m.Enabled == nil || *m.Enabled, Threshold: m.Threshold, Curve: snap.ParseCurve(m.Curve)}
		d.Magnetic = &opts
	}
	if v := w.Viewport; v != nil {
		r := geometry.R(v.X, v.Y, v.Width, v.Height)
		d.Viewport = &r
	}
	if p := w.Point; p != nil {
		d.Point = &geometry.Point{X: p.X, Y: p.Y}
	}

	seen := make(map[string]bool, len(w.Elements))
	for _, we := range w.Elements {
		if seen[we.ID] {
			return nil, fmt.Errorf("%w: duplicate element id %q", ErrInvalidScene, we.ID)
		}
		seen[we.ID] = true
		d.Elements = append(d.Elements, domain.Element{
			ID:   we.ID,
			Pose: geometry.Pose{X: we.X, Y: we.Y, Width: we.Width, Height: we.Height, Rotation: we.Rotation},
			Kind: we.kind(),
		})
	}
	for i := range d.Guides {
		g := &d.Guides[i]
		if g.ID == "" {
			g.ID = fmt.Sprintf("guide-%d", i+1)
		}
		if g.Type == "" {
			g.Type = domain.GuideManual
		}
	}
	if dr := w.Drag; dr != nil {
		if !seen[dr.ID] {
			return nil, fmt.Errorf("%w: drag refers to unknown element %q", ErrInvalidScene, dr.ID)
		}
		d.Drag = &Drag{ElementID: dr.ID, To: geometry.Point{X: dr.X, Y: dr.Y}}
	}
	return d, nil
}

func (we wireElement) kind() domain.ElementKind {
	switch we.Type {
	case "text":
		return domain.Text{Content: we.Content, FontSize: we.FontSize}
	case "image":
		return domain.Image{Source: we.Source}
	case "barcode":
		return domain.Barcode{Format: we.Format, Value: we.Value}
	case "qrcode":
		return domain.QRCode{Value: we.Value}
	case "line":
		return domain.Line{StrokeWidth: we.StrokeWidth}
	default:
		shape := we.Shape
		if shape == "" {
			shape = "rect"
		}
		return domain.Shape{Shape: shape}
	}
}
