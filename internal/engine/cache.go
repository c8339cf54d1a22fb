/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package engine

import (
	"encoding/binary"
	"math"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"

	"snapguides/internal/domain"
	"snapguides/internal/geometry"
)

// DefaultCacheSize bounds the recent-result cache when Options.CacheSize is 0.
const DefaultCacheSize = 256

const (
	kindStatic   byte = 1
	kindMagnetic byte = 2
)

// resultCache remembers recent check results keyed by a hash of their inputs.
// Eviction is purely LRU by entry count; there are no timers.
type resultCache struct {
	c *lru.Cache[uint64, domain.AlignmentResult]
}

// newResultCache returns nil when size is negative, which disables caching.
func newResultCache(size int) *resultCache {
	if size < 0 {
		return nil
	}
	if size == 0 {
		size = DefaultCacheSize
	}
	c, err := lru.New[uint64, domain.AlignmentResult](size)
	if err != nil {
		return nil
	}
	return &resultCache{c: c}
}

func (rc *resultCache) get(k uint64) (domain.AlignmentResult, bool) {
	if rc == nil {
		return domain.AlignmentResult{}, false
	}
	r, ok := rc.c.Get(k)
	if !ok {
		return r, false
	}
	return cloneResult(r), true
}

func (rc *resultCache) add(k uint64, r domain.AlignmentResult) {
	if rc == nil {
		return
	}
	rc.c.Add(k, cloneResult(r))
}

func (rc *resultCache) purge() {
	if rc != nil {
		rc.c.Purge()
	}
}

func (rc *resultCache) len() int {
	if rc == nil {
		return 0
	}
	return rc.c.Len()
}

// cloneResult copies the pointer fields so cached values cannot be mutated
// through a returned result.
func cloneResult(r domain.AlignmentResult) domain.AlignmentResult {
	if r.VerticalGuide != nil {
		g := cloneGuide(*r.VerticalGuide)
		r.VerticalGuide = &g
	}
	if r.HorizontalGuide != nil {
		g := cloneGuide(*r.HorizontalGuide)
		r.HorizontalGuide = &g
	}
	if r.SmoothPosition != nil {
		p := *r.SmoothPosition
		r.SmoothPosition = &p
	}
	return r
}

func cloneGuide(g domain.GuideLine) domain.GuideLine {
	if g.Visible != nil {
		g.Visible = domain.Bool(*g.Visible)
	}
	g.RelatedElements = append([]string(nil), g.RelatedElements...)
	return g
}

// keyBuilder hashes check inputs. A fresh one is used per call.
type keyBuilder struct {
	d   *xxhash.Digest
	buf []byte
}

func newKey(kind byte) *keyBuilder {
	k := &keyBuilder{d: xxhash.New(), buf: make([]byte, 0, 64)}
	k.buf = append(k.buf, kind)
	return k
}

func (k *keyBuilder) float(v float64) *keyBuilder {
	k.buf = binary.LittleEndian.AppendUint64(k.buf, math.Float64bits(v))
	return k.flush()
}

func (k *keyBuilder) str(s string) *keyBuilder {
	k.buf = binary.LittleEndian.AppendUint32(k.buf, uint32(len(s)))
	k.buf = append(k.buf, s...)
	return k.flush()
}

func (k *keyBuilder) point(p geometry.Point) *keyBuilder { return k.float(p.X).float(p.Y) }

func (k *keyBuilder) bounds(b geometry.ElementBounds) *keyBuilder {
	return k.str(b.ID).float(b.Left).float(b.Top).float(b.Right).float(b.Bottom)
}

func (k *keyBuilder) guides(gs []domain.GuideLine) *keyBuilder {
	k.buf = binary.LittleEndian.AppendUint32(k.buf, uint32(len(gs)))
	for _, g := range gs {
		k.str(g.ID).str(string(g.Orientation)).str(string(g.Type)).float(g.Position)
		vis := byte(1)
		if !g.IsVisible() {
			vis = 0
		}
		k.buf = append(k.buf, vis)
		k.buf = binary.LittleEndian.AppendUint32(k.buf, uint32(len(g.RelatedElements)))
		for _, id := range g.RelatedElements {
			k.str(id)
		}
	}
	return k.flush()
}

func (k *keyBuilder) flush() *keyBuilder {
	if len(k.buf) >= 48 {
		_, _ = k.d.Write(k.buf)
		k.buf = k.buf[:0]
	}
	return k
}

func (k *keyBuilder) sum() uint64 {
	_, _ = k.d.Write(k.buf)
	k.buf = k.buf[:0]
	return k.d.Sum64()
}
