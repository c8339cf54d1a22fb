/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package telemetry

import (
	"encoding/json"
	"math"
	"sync"
	"testing"
	"time"
)

func TestMonitor_Aggregates(t *testing.T) {
	m := NewMonitor()
	m.RecordEvent("b", 2)
	m.RecordEvent("a", 1)
	m.RecordEvent("b", 4)
	m.RecordEvent("b", math.NaN())
	m.RecordEvent("a", -3)

	got := m.Snapshot()
	if len(got) != 2 || got[0].Type != "a" || got[1].Type != "b" {
		t.Fatalf("snapshot not sorted by type: %+v", got)
	}
	b := got[1]
	if b.Count != 3 || b.TotalMs != 6 || b.MaxMs != 4 || b.AvgMs != 2 {
		t.Fatalf("b stats = %+v", b)
	}
	if a := got[0]; a.Count != 2 || a.TotalMs != 1 {
		t.Fatalf("a stats = %+v", a)
	}

	m.Reset()
	if s := m.Snapshot(); len(s) != 0 {
		t.Fatalf("reset left %+v", s)
	}
}

func TestMonitor_ZeroValueAndConcurrent(t *testing.T) {
	var m Monitor
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				m.RecordEvent("frame", 0.5)
				_ = m.Snapshot()
			}
		}()
	}
	wg.Wait()
	if s := m.Snapshot(); len(s) != 1 || s[0].Count != 800 {
		t.Fatalf("snapshot = %+v", s)
	}
}

func TestMonitor_Publish(t *testing.T) {
	s := &sink{}
	srv := s.server(t)
	c := New(Config{OptIn: true, EventsURL: srv.URL + "/events", Timeout: time.Second})
	defer c.Close()

	m := NewMonitor()
	m.Publish(c, "sess")
	time.Sleep(30 * time.Millisecond)
	if n, _ := s.counts(); n != 0 {
		t.Fatal("empty monitor must not publish")
	}

	m.RecordEvent("alignment_check", 0.25)
	m.Publish(c, "sess")
	waitFor(t, func() bool { n, _ := s.counts(); return n == 1 })

	s.mu.Lock()
	body := s.events[0]
	s.mu.Unlock()
	var payload struct {
		Name    string       `json:"name"`
		Session string       `json:"session"`
		Events  []EventStats `json:"events"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatal(err)
	}
	if payload.Name != "perf_summary" || payload.Session != "sess" || len(payload.Events) != 1 || payload.Events[0].Count != 1 {
		t.Fatalf("payload = %+v", payload)
	}
}
