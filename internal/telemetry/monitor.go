/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package telemetry aggregates engine timing events and, when the user opts
// in, ships anonymous summaries and crash reports over HTTP.
package telemetry

import (
	"sort"
	"sync"
)

// EventStats summarizes all events of one type.
type EventStats struct {
	Type    string  `json:"type"`
	Count   int     `json:"count"`
	TotalMs float64 `json:"total_ms"`
	MaxMs   float64 `json:"max_ms"`
	AvgMs   float64 `json:"avg_ms"`
}

// Monitor collects RecordEvent calls. It is safe for concurrent use so a host
// can read snapshots from another goroutine while the engine records.
type Monitor struct {
	mu    sync.Mutex
	stats map[string]*EventStats
}

func NewMonitor() *Monitor { return &Monitor{stats: make(map[string]*EventStats)} }

// RecordEvent adds one sample. Negative or NaN durations count as zero.
func (m *Monitor) RecordEvent(eventType string, durationMs float64) {
	if !(durationMs > 0) {
		durationMs = 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stats == nil {
		m.stats = make(map[string]*EventStats)
	}
	s, ok := m.stats[eventType]
	if !ok {
		s = &EventStats{Type: eventType}
		m.stats[eventType] = s
	}
	s.Count++
	s.TotalMs += durationMs
	if durationMs > s.MaxMs {
		s.MaxMs = durationMs
	}
}

// Snapshot returns the per-type stats sorted by type.
func (m *Monitor) Snapshot() []EventStats {
	m.mu.Lock()
	out := make([]EventStats, 0, len(m.stats))
	for _, s := range m.stats {
		c := *s
		if c.Count > 0 {
			c.AvgMs = c.TotalMs / float64(c.Count)
		}
		out = append(out, c)
	}
	m.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out
}

// Reset discards everything recorded so far.
func (m *Monitor) Reset() {
	m.mu.Lock()
	m.stats = make(map[string]*EventStats)
	m.mu.Unlock()
}

// Publish sends the current snapshot as one "perf_summary" event. It is a
// no-op when the client is disabled or nothing was recorded.
func (m *Monitor) Publish(c *Client, session string) {
	snap := m.Snapshot()
	if len(snap) == 0 || !c.Enabled() {
		return
	}
	c.Event("perf_summary", map[string]any{"session": session, "events": snap})
}
