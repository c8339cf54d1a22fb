/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"snapguides/internal/domain"
	"snapguides/internal/engine"
	"snapguides/internal/geometry"
	applog "snapguides/internal/log"
	"snapguides/internal/perfstore"
	"snapguides/internal/scene"
	"snapguides/internal/telemetry"
)

type benchOptions struct {
	frames    int
	synthetic int
	record    string
}

type benchResult struct {
	RunID    string                 `json:"run_id,omitempty"`
	Scene    string                 `json:"scene"`
	Frames   int                    `json:"frames"`
	Elements int                    `json:"elements"`
	Elapsed  time.Duration          `json:"elapsed_ns"`
	Aligned  int                    `json:"aligned_frames"`
	Events   []telemetry.EventStats `json:"events"`
	Engine   engine.Stats           `json:"engine"`
}

func (c *CLI) benchCommand() *cobra.Command {
	var o benchOptions
	cmd := &cobra.Command{
		Use:   "bench [scene]",
		Short: "Replay a drag across the scene and report per-event timings",
		Long: `Replays a drag of the scene's dragged element (or its first element) over
--frames pointer moves, running a magnetic check and a full guide pass per
frame. Without a scene, --synthetic N builds a grid of N elements.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var path string
			if len(args) == 1 {
				path = args[0]
			}
			res, err := c.runBench(cmd.Context(), path, o)
			if err != nil {
				return err
			}
			if c.asJSON {
				return c.writeJSON(cmd.OutOrStdout(), res)
			}
			printBench(printer{cmd.OutOrStdout()}, res)
			return nil
		},
	}
	cmd.Flags().IntVar(&o.frames, "frames", 120, "number of drag frames")
	cmd.Flags().IntVar(&o.synthetic, "synthetic", 0, "benchmark a generated grid of N elements instead of a scene")
	cmd.Flags().StringVar(&o.record, "record", "", "store the run in this SQLite file")
	return cmd
}

func (c *CLI) runBench(ctx context.Context, path string, o benchOptions) (benchResult, error) {
	if o.frames <= 0 {
		return benchResult{}, errors.New("--frames must be positive")
	}
	var doc *scene.Document
	switch {
	case path != "":
		d, err := scene.LoadFile(path)
		if err != nil {
			return benchResult{}, err
		}
		doc = d
	case o.synthetic > 0:
		doc = syntheticScene(o.synthetic)
		path = fmt.Sprintf("synthetic:%d", o.synthetic)
	default:
		return benchResult{}, errors.New("need a scene file or --synthetic N")
	}
	if len(doc.Elements) == 0 {
		return benchResult{}, errors.New("scene has no elements")
	}

	mon := telemetry.NewMonitor()
	eng := c.newEngine(doc, mon)
	defer eng.Dispose()
	eng.SetElements(doc.Elements)

	runID := ""
	if o.record != "" {
		runID = uuid.NewString()
		ctx = applog.ContextWithRun(ctx, runID)
	}
	c.log.InfoContext(ctx, "bench started", slog.String("scene", path), slog.Int("frames", o.frames), slog.Int("elements", len(doc.Elements)))

	dragID := doc.Elements[0].ID
	if doc.Drag != nil {
		dragID = doc.Drag.ElementID
	}
	start, _ := eng.Bounds(dragID)
	from := geometry.Point{X: start.Left, Y: start.Top}
	to := geometry.Point{X: from.X + 240, Y: from.Y + 120}
	if doc.Drag != nil {
		to = doc.Drag.To
	}
	guides := append(append([]domain.GuideLine(nil), doc.Guides...), staticGuidesExcept(doc, dragID, eng.Config())...)
	viewport := doc.ViewportOr(defaultViewport)

	aligned := 0
	began := time.Now()
	for i := 0; i < o.frames; i++ {
		t := 1.0
		if o.frames > 1 {
			t = float64(i) / float64(o.frames-1)
		}
		p := geometry.Point{X: from.X + (to.X-from.X)*t, Y: from.Y + (to.Y-from.Y)*t}
		if eng.CheckMagneticAlignment(start, p, guides).Aligned {
			aligned++
		}
		eng.FrameGuides(start.MoveTo(p), viewport)
	}
	res := benchResult{
		Scene:    path,
		Frames:   o.frames,
		Elements: len(doc.Elements),
		Elapsed:  time.Since(began),
		Aligned:  aligned,
		Events:   mon.Snapshot(),
		Engine:   eng.Stats(),
	}

	mon.Publish(telemetry.Default(), eng.ID())
	if o.record != "" {
		id, err := recordRun(ctx, o.record, runID, res)
		if err != nil {
			return res, err
		}
		res.RunID = id
	}
	c.log.InfoContext(ctx, "bench finished", slog.Duration("elapsed", res.Elapsed), slog.Int("aligned", aligned))
	return res, nil
}

func recordRun(ctx context.Context, dbPath, id string, res benchResult) (string, error) {
	st, err := perfstore.Open(dbPath)
	if err != nil {
		return "", err
	}
	defer st.Close()
	samples := make([]perfstore.Sample, len(res.Events))
	for i, e := range res.Events {
		samples[i] = perfstore.Sample{Event: e.Type, Count: e.Count, TotalMs: e.TotalMs, MaxMs: e.MaxMs}
	}
	return st.RecordRun(ctx, perfstore.Run{ID: id, Scene: res.Scene, Frames: res.Frames, Elements: res.Elements, Samples: samples})
}

// syntheticScene lays n 40x40 elements on a 60px grid with a drag path that
// crosses it diagonally.
func syntheticScene(n int) *scene.Document {
	cols := 1
	for cols*cols < n {
		cols++
	}
	els := make([]domain.Element, n)
	for i := range els {
		x, y := float64(i%cols)*60, float64(i/cols)*60
		els[i] = domain.Element{ID: fmt.Sprintf("e%d", i), Pose: geometry.Pose{X: x, Y: y, Width: 40, Height: 40}}
	}
	span := float64(cols) * 60
	vp := geometry.R(0, 0, span, span)
	return &scene.Document{
		Elements: els,
		Viewport: &vp,
		Drag:     &scene.Drag{ElementID: "e0", To: geometry.Point{X: span - 40, Y: span - 40}},
	}
}

func printBench(p printer, r benchResult) {
	p.title("%s: %d frames over %d elements", r.Scene, r.Frames, r.Elements)
	perFrame := float64(r.Elapsed.Microseconds()) / 1000 / float64(r.Frames)
	p.success("%s total, %s ms/frame, %d aligned frames", r.Elapsed.Round(time.Microsecond), num(geometry.FloatRound(perFrame, 4)), r.Aligned)
	rows := make([][]string, 0, len(r.Events))
	for _, e := range r.Events {
		rows = append(rows, []string{e.Type, fmt.Sprint(e.Count), fmt.Sprintf("%.4f", e.AvgMs), fmt.Sprintf("%.4f", e.MaxMs), fmt.Sprintf("%.3f", e.TotalMs)})
	}
	p.table([]string{"EVENT", "COUNT", "AVG MS", "MAX MS", "TOTAL MS"}, rows)
	p.detail("checks %d, cache hits %d (%.0f%%)", r.Engine.TotalChecks, r.Engine.CacheHits, r.Engine.CacheHitRate*100)
	if r.RunID != "" {
		p.info("recorded run %s", r.RunID)
	}
}

func (c *CLI) runsCommand() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "runs <db>",
		Short: "List benchmark runs stored with bench --record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := perfstore.Open(args[0])
			if err != nil {
				return err
			}
			defer st.Close()
			runs, err := st.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if c.asJSON {
				if runs == nil {
					runs = []perfstore.Run{}
				}
				return c.writeJSON(cmd.OutOrStdout(), runs)
			}
			p := printer{cmd.OutOrStdout()}
			if len(runs) == 0 {
				p.info("no runs recorded in %s", args[0])
				return nil
			}
			rows := make([][]string, 0, len(runs))
			for _, r := range runs {
				rows = append(rows, []string{r.ID, r.CreatedAt.Local().Format(time.DateTime), r.Scene, fmt.Sprint(r.Frames), fmt.Sprint(r.Elements), frameCost(r), r.Version})
			}
			p.table([]string{"ID", "CREATED", "SCENE", "FRAMES", "ELEMENTS", "GUIDES MS/FRAME", "VERSION"}, rows)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "show at most N runs (0 for all)")
	return cmd
}

// frameCost is the average dynamic guide time per frame of a run.
func frameCost(r perfstore.Run) string {
	for _, s := range r.Samples {
		if s.Event == engine.EventDynamicGuides && s.Count > 0 {
			return fmt.Sprintf("%.4f", s.TotalMs/float64(s.Count))
		}
	}
	return "-"
}
