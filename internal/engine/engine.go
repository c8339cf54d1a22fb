/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package engine is the per-document alignment session. It owns the spatial
// index over the current element set, answers alignment checks (with a small
// recent-result cache), and composes element, spacing and static guides for
// every drag frame.
//
// An Engine is driven synchronously from the host's pointer-move callback and
// is not safe for concurrent use. Construct one per editor session and pass it
// to whoever needs it.
package engine

import (
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"snapguides/internal/domain"
	"snapguides/internal/geometry"
	applog "snapguides/internal/log"
	"snapguides/internal/snap"
	"snapguides/internal/spacing"
	"snapguides/internal/spatial"
)

// DefaultViewportPadding widens the viewport before candidate lookup so that
// guides to elements just off-screen still appear.
const DefaultViewportPadding = 200.0

// Event types reported to the Monitor.
const (
	EventAlignmentCheck     = "alignment_check"
	EventMagneticCheck      = "magnetic_check"
	EventDynamicGuides      = "dynamic_guides"
	EventDistributionGuides = "distribution_guides"
	EventIndexRebuild       = "index_rebuild"
)

// Monitor receives timing events. The engine knows nothing else about it.
type Monitor interface {
	RecordEvent(eventType string, durationMs float64)
}

type nopMonitor struct{}

func (nopMonitor) RecordEvent(string, float64) {}

// Options configures a new Engine.
type Options struct {
	Config   domain.AlignmentConfig
	Magnetic snap.MagneticOptions
	// ViewportPadding is added on every side of the viewport for optimized
	// lookups. Zero means DefaultViewportPadding; negative means none.
	ViewportPadding float64
	// SpacingTolerance is passed to spacing detection; zero means the
	// package default.
	SpacingTolerance float64
	// CacheSize bounds the recent-result cache. Zero means DefaultCacheSize,
	// negative disables caching.
	CacheSize int
	// NodeCapacity is the spatial index fan-out; zero means its default.
	NodeCapacity int
	Monitor      Monitor
	Logger       *slog.Logger
}

// DefaultOptions returns options with the default alignment policy and linear
// magnetic snapping.
func DefaultOptions() Options {
	return Options{
		Config:   domain.DefaultAlignmentConfig(),
		Magnetic: snap.MagneticOptions{Enabled: true, Curve: snap.Linear},
	}
}

// Stats are the engine's counters.
type Stats struct {
	TotalChecks int
	CacheHits   int
	// AverageCheckTime is in milliseconds.
	AverageCheckTime float64
	CacheHitRate     float64
	Elements         int
	CachedResults    int
}

// Engine is one alignment session.
type Engine struct {
	id       string
	cfg      domain.AlignmentConfig
	magnetic snap.MagneticOptions
	padding  float64
	tol      float64

	index    *spatial.Index
	elements []domain.Element
	byID     map[string]geometry.ElementBounds
	order    map[string]int
	cache    *resultCache

	totalChecks int
	cacheHits   int
	checkTime   time.Duration

	monitor  Monitor
	log      *slog.Logger
	disposed bool
}

// New creates an Engine with an empty element set.
func New(opts Options) *Engine {
	id := uuid.NewString()
	pad := opts.ViewportPadding
	switch {
	case pad == 0:
		pad = DefaultViewportPadding
	case pad < 0:
		pad = 0
	}
	mon := opts.Monitor
	if mon == nil {
		mon = nopMonitor{}
	}
	l := opts.Logger
	if l == nil {
		l = applog.WithComponent("engine")
	}
	e := &Engine{
		id:       id,
		cfg:      opts.Config,
		magnetic: opts.Magnetic,
		padding:  pad,
		tol:      opts.SpacingTolerance,
		index:    spatial.New(opts.NodeCapacity),
		byID:     make(map[string]geometry.ElementBounds),
		order:    make(map[string]int),
		cache:    newResultCache(opts.CacheSize),
		monitor:  mon,
		log:      l.With(slog.String("session", id)),
	}
	e.log.Debug("engine created", slog.Float64("threshold", e.cfg.Threshold), slog.Float64("padding", pad))
	return e
}

// ID returns the session id used in log records.
func (e *Engine) ID() string { return e.id }

// Config returns the current alignment policy.
func (e *Engine) Config() domain.AlignmentConfig { return e.cfg }

// SetConfig replaces the alignment policy and drops cached results.
func (e *Engine) SetConfig(cfg domain.AlignmentConfig) {
	e.cfg = cfg
	e.cache.purge()
	applog.WithOperation(e.log, "set_config").Debug("config replaced",
		slog.Bool("enabled", cfg.Enabled), slog.Float64("threshold", cfg.Threshold))
}

// SetMagnetic replaces the magnetic options and drops cached results.
func (e *Engine) SetMagnetic(opts snap.MagneticOptions) {
	e.magnetic = opts
	e.cache.purge()
}

// SetElements is the "element set changed" notification. Bounds are computed
// from each pose and the spatial index is rebuilt in one pass.
func (e *Engine) SetElements(elements []domain.Element) {
	if e.disposed {
		return
	}
	bs := make([]geometry.ElementBounds, len(elements))
	for i, el := range elements {
		bs[i] = el.Bounds()
	}
	e.rebuild(bs)
	e.elements = append([]domain.Element(nil), elements...)
}

// SetBounds rebuilds the index from precomputed boxes. Static guide
// derivation has no poses to work from afterwards.
func (e *Engine) SetBounds(bs []geometry.ElementBounds) {
	if e.disposed {
		return
	}
	e.rebuild(bs)
	e.elements = nil
}

func (e *Engine) rebuild(bs []geometry.ElementBounds) {
	start := time.Now()
	e.index.Build(bs)
	all := e.index.All()
	e.byID = make(map[string]geometry.ElementBounds, len(all))
	e.order = make(map[string]int, len(all))
	for i, b := range all {
		e.byID[b.ID] = b
		e.order[b.ID] = i
	}
	e.cache.purge()
	e.record(EventIndexRebuild, start)
	applog.WithOperation(e.log, "rebuild").Debug("index rebuilt",
		slog.Int("elements", e.index.Len()), slog.Duration("took", time.Since(start)))
}

// Bounds returns the indexed box for id.
func (e *Engine) Bounds(id string) (geometry.ElementBounds, bool) {
	b, ok := e.byID[id]
	return b, ok
}

// AllBounds returns every indexed box in element order.
func (e *Engine) AllBounds() []geometry.ElementBounds { return e.index.All() }

// CheckAlignment aligns a point against guides. Identical queries are served
// from the recent-result cache.
func (e *Engine) CheckAlignment(p geometry.Point, guides []domain.GuideLine) domain.AlignmentResult {
	if e.disposed {
		return domain.Unaligned(p)
	}
	start := time.Now()
	key := newKey(kindStatic).point(p).guides(guides).sum()
	res, hit := e.cache.get(key)
	if !hit {
		res = snap.CheckAlignment(p, guides, e.cfg)
		e.cache.add(key, res)
	}
	e.countCheck(EventAlignmentCheck, start, hit)
	return res
}

// CheckMagneticAlignment tests the element's nine alignment points at the
// proposed origin against guides and returns hard and smooth snap positions.
func (e *Engine) CheckMagneticAlignment(element geometry.ElementBounds, proposed geometry.Point, guides []domain.GuideLine) domain.AlignmentResult {
	if e.disposed {
		return domain.Unaligned(proposed)
	}
	start := time.Now()
	key := newKey(kindMagnetic).bounds(element).point(proposed).guides(guides).sum()
	res, hit := e.cache.get(key)
	if !hit {
		res = snap.CheckMagneticAlignment(element, proposed, guides, e.cfg, e.magnetic)
		e.cache.add(key, res)
	}
	e.countCheck(EventMagneticCheck, start, hit)
	return res
}

// SnapPosition aligns p to guides first; axes no guide claimed are then
// offered to the grid.
func (e *Engine) SnapPosition(p geometry.Point, guides []domain.GuideLine) domain.AlignmentResult {
	res := e.CheckAlignment(p, guides)
	if e.disposed {
		return res
	}
	g, ok := snap.SnapToGrid(p, e.cfg)
	if !ok {
		return res
	}
	if res.VerticalGuide == nil && g.X != p.X {
		res.X, res.DeltaX = g.X, g.X-p.X
		res.Aligned = true
	}
	if res.HorizontalGuide == nil && g.Y != p.Y {
		res.Y, res.DeltaY = g.Y, g.Y-p.Y
		res.Aligned = true
	}
	return res
}

// GenerateDynamicGuides builds element guides between dragged and an explicit
// target list, without consulting the index.
func (e *Engine) GenerateDynamicGuides(dragged geometry.ElementBounds, targets []geometry.ElementBounds) []domain.DynamicGuide {
	if e.disposed {
		return nil
	}
	start := time.Now()
	defer e.record(EventDynamicGuides, start)
	return GenerateDynamicGuides(dragged, targets, e.cfg)
}

// GenerateDynamicGuidesOptimized is GenerateDynamicGuides over the indexed
// elements that intersect the viewport grown by the padding. Elements fully
// outside that area never contribute, and nothing is returned when dragged
// itself lies outside it.
func (e *Engine) GenerateDynamicGuidesOptimized(dragged geometry.ElementBounds, viewport geometry.Rect) []domain.DynamicGuide {
	if e.disposed || !e.cfg.Enabled || !e.cfg.SnapToElements {
		return nil
	}
	start := time.Now()
	defer e.record(EventDynamicGuides, start)

	area, ok := e.searchArea(dragged, viewport)
	th := e.cfg.Threshold
	if !ok || !(th >= 0) {
		return nil
	}
	// Only targets overlapping these bands can be within threshold on the
	// respective axis.
	xBand := geometry.Rect{X: dragged.Left - th, Y: area.Y, W: dragged.Width + 2*th, H: area.H}
	yBand := geometry.Rect{X: area.X, Y: dragged.Top - th, W: area.W, H: dragged.Height + 2*th}

	seen := make(map[string]bool)
	var candidates []geometry.ElementBounds
	for _, band := range []geometry.Rect{xBand, yBand} {
		for _, b := range e.index.QueryExcluding(band, dragged.ID) {
			if seen[b.ID] || !b.Rect().Intersects(area) {
				continue
			}
			seen[b.ID] = true
			candidates = append(candidates, b)
		}
	}
	// Keep element order so related ids come out as in the unindexed path.
	sort.SliceStable(candidates, func(i, j int) bool {
		return e.order[candidates[i].ID] < e.order[candidates[j].ID]
	})
	return GenerateDynamicGuides(dragged, candidates, e.cfg)
}

// DistributionGuides looks for an equal-spacing run among the indexed
// elements in the padded viewport that dragged would extend.
func (e *Engine) DistributionGuides(dragged geometry.ElementBounds, viewport geometry.Rect) []domain.DynamicGuide {
	if e.disposed || !e.cfg.Enabled || !e.cfg.SnapToElements {
		return nil
	}
	start := time.Now()
	defer e.record(EventDistributionGuides, start)
	area, ok := e.searchArea(dragged, viewport)
	if !ok {
		return nil
	}
	return spacing.GenerateDistributionGuides(dragged, e.index.QueryExcluding(area, dragged.ID), e.tol)
}

// FrameGuides is everything a renderer needs for one drag frame: element
// guides followed by at most one spacing guide.
func (e *Engine) FrameGuides(dragged geometry.ElementBounds, viewport geometry.Rect) []domain.DynamicGuide {
	gs := e.GenerateDynamicGuidesOptimized(dragged, viewport)
	return append(gs, e.DistributionGuides(dragged, viewport)...)
}

// ElementsAlignmentGuides derives static centre/edge guides from the element
// set given to SetElements.
func (e *Engine) ElementsAlignmentGuides() []domain.GuideLine {
	if e.disposed {
		return nil
	}
	return GetElementsAlignmentGuides(e.elements, e.cfg)
}

func (e *Engine) searchArea(dragged geometry.ElementBounds, viewport geometry.Rect) (geometry.Rect, bool) {
	area := viewport.Inset(-e.padding, -e.padding)
	if !area.Valid() || !dragged.Finite() || !dragged.Rect().Intersects(area) {
		return area, false
	}
	return area, true
}

// Stats returns a copy of the counters.
func (e *Engine) Stats() Stats {
	s := Stats{TotalChecks: e.totalChecks, CacheHits: e.cacheHits, Elements: e.index.Len(), CachedResults: e.cache.len()}
	if e.totalChecks > 0 {
		s.AverageCheckTime = float64(e.checkTime.Microseconds()) / 1000 / float64(e.totalChecks)
		s.CacheHitRate = float64(e.cacheHits) / float64(e.totalChecks)
	}
	return s
}

// ResetStats zeroes the counters; cached results are kept.
func (e *Engine) ResetStats() {
	e.totalChecks, e.cacheHits, e.checkTime = 0, 0, 0
}

// Dispose releases the index and caches. The engine stays usable as a value
// but every later query returns an empty or neutral result.
func (e *Engine) Dispose() {
	if e.disposed {
		return
	}
	e.disposed = true
	e.index.Clear()
	e.elements = nil
	e.byID = map[string]geometry.ElementBounds{}
	e.order = nil
	e.cache.purge()
	e.log.Debug("engine disposed", slog.Int("checks", e.totalChecks), slog.Int("cache_hits", e.cacheHits))
}

func (e *Engine) countCheck(event string, start time.Time, hit bool) {
	d := time.Since(start)
	e.totalChecks++
	if hit {
		e.cacheHits++
	}
	e.checkTime += d
	e.monitor.RecordEvent(event, durationMs(d))
}

func (e *Engine) record(event string, start time.Time) {
	e.monitor.RecordEvent(event, durationMs(time.Since(start)))
}

func durationMs(d time.Duration) float64 { return float64(d.Nanoseconds()) / 1e6 }
