/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package telemetry

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

type sink struct {
	mu      sync.Mutex
	events  [][]byte
	crashes [][]byte
}

func (s *sink) server(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/events", func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		s.mu.Lock()
		s.events = append(s.events, b)
		s.mu.Unlock()
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/crash", func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		s.mu.Lock()
		s.crashes = append(s.crashes, b)
		s.mu.Unlock()
		w.WriteHeader(http.StatusAccepted)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func (s *sink) counts() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events), len(s.crashes)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for condition")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestClient_EventAndUploadCrash(t *testing.T) {
	s := &sink{}
	srv := s.server(t)
	c := New(Config{OptIn: true, EventsURL: srv.URL + "/events", CrashURL: srv.URL + "/crash", Timeout: 2 * time.Second})
	defer c.Close()
	if !c.Enabled() {
		t.Fatalf("expected client to be enabled")
	}

	c.Event("started", map[string]any{"k": "v"})
	c.Flush(context.Background())
	waitFor(t, func() bool { n, _ := s.counts(); return n > 0 })

	s.mu.Lock()
	first := s.events[0]
	s.mu.Unlock()
	var m map[string]any
	if err := json.Unmarshal(first, &m); err != nil {
		t.Fatalf("bad event json: %v", err)
	}
	if m["name"] != "started" || m["k"] != "v" {
		t.Fatalf("unexpected payload: %v", m)
	}
	if _, ok := m["ts"].(string); !ok {
		t.Fatalf("missing ts field")
	}

	c.UploadCrash([]byte("STACKTRACE"))
	waitFor(t, func() bool { _, n := s.counts(); return n > 0 })
}

func TestClient_DisabledSendsNothing(t *testing.T) {
	s := &sink{}
	srv := s.server(t)
	c := New(Config{OptIn: false, EventsURL: srv.URL + "/events", CrashURL: srv.URL + "/crash"})
	defer c.Close()
	c.Event("x", nil)
	c.UploadCrash([]byte("boom"))
	time.Sleep(50 * time.Millisecond)
	if e, cr := s.counts(); e != 0 || cr != 0 {
		t.Fatalf("opt-out client sent %d events, %d crashes", e, cr)
	}

	var nilClient *Client
	if nilClient.Enabled() || nilClient.Dropped() != 0 {
		t.Fatal("nil client must be inert")
	}
	nilClient.UploadCrash([]byte("x"))
}

func TestClient_BadURLDoesNotPanic(t *testing.T) {
	c := New(Config{OptIn: true, EventsURL: "http://[::1", CrashURL: "://bad", Timeout: 50 * time.Millisecond})
	defer c.Close()
	c.Event("e", nil)
	c.UploadCrash([]byte("r"))
	c.Flush(context.Background())
}

func TestClient_QueueFullDrops(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer srv.Close()
	defer close(block)

	c := New(Config{OptIn: true, EventsURL: srv.URL, Timeout: 5 * time.Second, QueueSize: 1})
	defer c.Close()
	for i := 0; i < 10; i++ {
		c.Event("e", nil)
	}
	if c.Dropped() == 0 {
		t.Fatal("expected drops once the queue is full")
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv("SNAP_TELEMETRY_OPT_IN", "yes")
	t.Setenv("SNAP_TELEMETRY_URL", " http://127.0.0.1:0 ")
	t.Setenv("SNAP_CRASH_UPLOAD_URL", "")
	t.Setenv("SNAP_TELEMETRY_TIMEOUT_MS", "100")

	cfg := FromEnv()
	if !cfg.OptIn || cfg.EventsURL != "http://127.0.0.1:0" || cfg.Timeout != 100*time.Millisecond {
		t.Fatalf("FromEnv did not parse correctly: %+v", cfg)
	}
	NewDefault(cfg)
	if !Enabled() {
		t.Fatalf("default Enabled should be true with env config")
	}
}

func TestParseBool(t *testing.T) {
	for in, want := range map[string]bool{"1": true, "TRUE": true, " on ": true, "yes": true, "0": false, "": false, "nope": false} {
		if got := ParseBool(in); got != want {
			t.Errorf("ParseBool(%q) = %v", in, got)
		}
	}
}
