/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package perfstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "runs", "perf.sqlite"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpen_FreshSchema(t *testing.T) {
	s := openTemp(t)
	v, err := s.SchemaVersion(context.Background())
	if err != nil || v != schemaVersion {
		t.Fatalf("SchemaVersion = %d, %v", v, err)
	}
	var mode string
	if err := s.db.QueryRow(`PRAGMA journal_mode;`).Scan(&mode); err != nil || mode != "wal" {
		t.Fatalf("journal_mode = %q, %v", mode, err)
	}
}

func TestOpen_RequiresPath(t *testing.T) {
	if _, err := Open("  "); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestRecordGetListDelete(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	id1, err := s.RecordRun(ctx, Run{Scene: "a.json", CreatedAt: base, Frames: 100, Elements: 40,
		Samples: []Sample{{Event: "dynamic_guides", Count: 100, TotalMs: 12.5, MaxMs: 0.9}, {Event: "alignment_check", Count: 100, TotalMs: 1, MaxMs: 0.1}}})
	if err != nil {
		t.Fatalf("RecordRun: %v", err)
	}
	if id1 == "" {
		t.Fatal("expected generated id")
	}
	id2, err := s.RecordRun(ctx, Run{ID: "fixed", Scene: "b.json", CreatedAt: base.Add(500 * time.Millisecond), Frames: 1})
	if err != nil || id2 != "fixed" {
		t.Fatalf("RecordRun: %q, %v", id2, err)
	}

	got, err := s.GetRun(ctx, id1)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if !got.CreatedAt.Equal(base) || got.Frames != 100 || got.Elements != 40 || got.Version == "" {
		t.Fatalf("run = %+v", got)
	}
	if len(got.Samples) != 2 || got.Samples[0].Event != "alignment_check" || got.Samples[1].TotalMs != 12.5 {
		t.Fatalf("samples not sorted or wrong: %+v", got.Samples)
	}

	runs, err := s.ListRuns(ctx, 0)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "fixed" || runs[1].ID != id1 || len(runs[1].Samples) != 2 {
		t.Fatalf("ListRuns order = %+v", runs)
	}
	if runs, _ := s.ListRuns(ctx, 1); len(runs) != 1 {
		t.Fatalf("limit ignored: %d", len(runs))
	}

	if _, err := s.RecordRun(ctx, Run{ID: "fixed", Scene: "dup"}); err == nil {
		t.Fatal("duplicate id must fail")
	}

	if err := s.DeleteRun(ctx, id1); err != nil {
		t.Fatalf("DeleteRun: %v", err)
	}
	if _, err := s.GetRun(ctx, id1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := s.DeleteRun(ctx, id1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM samples WHERE run_id=?`, id1).Scan(&n); err != nil || n != 0 {
		t.Fatalf("samples not cascaded: %d, %v", n, err)
	}
}

func TestSubSecondOrdering(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 5, 0, time.UTC)
	for i, off := range []time.Duration{100 * time.Millisecond, 120 * time.Millisecond, 0} {
		if _, err := s.RecordRun(ctx, Run{ID: fmt.Sprint(i), Scene: "s", CreatedAt: base.Add(off)}); err != nil {
			t.Fatal(err)
		}
	}
	runs, err := s.ListRuns(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if runs[0].ID != "1" || runs[1].ID != "0" || runs[2].ID != "2" {
		t.Fatalf("order = %s %s %s", runs[0].ID, runs[1].ID, runs[2].ID)
	}
}

// TestMigrations_UpgradeV1 opens a schema-1 file and expects the v2 column
// and index to be added without losing rows.
func TestMigrations_UpgradeV1(t *testing.T) {
	path := filepath.Join(t.TempDir(), "old.sqlite")
	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?_pragma=busy_timeout(2000)", filepath.ToSlash(path)))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	ctx := context.Background()
	stmts := []string{
		`CREATE TABLE version (id INTEGER PRIMARY KEY CHECK(id=1), schema INTEGER NOT NULL, app TEXT, created_at TEXT NOT NULL, updated_at TEXT NOT NULL);`,
		`INSERT INTO version VALUES(1, 1, 'test', '2020-01-01T00:00:00Z', '2020-01-01T00:00:00Z');`,
	}
	stmts = append(stmts, migrations[1]...)
	stmts = append(stmts, `INSERT INTO runs (id, scene, created_at, frames, elements) VALUES ('old', 's', '2020-01-01T00:00:00.000000000Z', 5, 2);`)
	for _, q := range stmts {
		if _, err := db.ExecContext(ctx, q); err != nil {
			t.Fatalf("seed v1 schema: %v (q=%s)", err, q)
		}
	}
	_ = db.Close()

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()
	if v, _ := s.SchemaVersion(ctx); v != schemaVersion {
		t.Fatalf("schema = %d after migration", v)
	}
	r, err := s.GetRun(ctx, "old")
	if err != nil || r.Frames != 5 || r.Version != "" {
		t.Fatalf("old run = %+v, %v", r, err)
	}
	var cnt int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sqlite_master WHERE type='index' AND name='idx_runs_created'`).Scan(&cnt); err != nil || cnt != 1 {
		t.Fatalf("index missing: %d, %v", cnt, err)
	}
}
