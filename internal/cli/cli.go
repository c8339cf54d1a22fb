/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package cli implements the snapguides command line: inspecting scenes,
// benchmarking the engine and listing recorded runs.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"snapguides/internal/config"
	"snapguides/internal/engine"
	applog "snapguides/internal/log"
	"snapguides/internal/scene"
	"snapguides/internal/telemetry"
	"snapguides/internal/version"
)

const appName = "snapguides"

// CLI holds state shared by all commands.
type CLI struct {
	out        io.Writer
	configPath string
	verbose    bool
	asJSON     bool

	cfg config.AppConfig
	log *slog.Logger
}

// New returns a CLI writing command output to out.
func New(out io.Writer) *CLI {
	return &CLI{out: out, cfg: config.Defaults(), log: applog.WithComponent("cli")}
}

// Execute runs the command tree with os.Args.
func Execute(ctx context.Context) error {
	return New(os.Stdout).RootCommand().ExecuteContext(ctx)
}

// RootCommand builds the root cobra command with every subcommand attached.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "Alignment guides and snapping for 2D canvas editors",
		Version:      version.String(),
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup()
		},
	}
	root.SetOut(c.out)
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default: user config dir)")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "enable debug logging")
	root.PersistentFlags().BoolVar(&c.asJSON, "json", false, "print machine-readable JSON")

	root.AddCommand(c.checkCommand())
	root.AddCommand(c.spacingCommand())
	root.AddCommand(c.guidesCommand())
	root.AddCommand(c.benchCommand())
	root.AddCommand(c.runsCommand())
	root.AddCommand(c.versionCommand())
	return root
}

// setup loads configuration and installs the logger and telemetry client.
func (c *CLI) setup() error {
	path := c.configPath
	if path == "" {
		p, err := config.ConfigPath()
		if err != nil {
			c.log.Debug("no user config dir", slog.Any("err", err))
		}
		path = p
	}
	if path != "" {
		cfg, err := config.LoadFile(path)
		if err != nil {
			return err
		}
		c.cfg = cfg
	}
	if c.verbose {
		c.cfg.Logging.Level = "debug"
	}
	applog.Init(c.cfg.LogOptions())
	telemetry.NewDefault(c.cfg.TelemetryOptions())
	c.log = applog.WithComponent("cli")
	c.log.Debug("config loaded", slog.String("path", path))
	return nil
}

func (c *CLI) versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the build version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", appName, version.String())
			return nil
		},
	}
}

// loadScene reads a scene and builds an engine for it. The scene policy, when
// present, replaces the configured one.
func (c *CLI) loadScene(path string) (*scene.Document, *engine.Engine, error) {
	doc, err := scene.LoadFile(path)
	if err != nil {
		return nil, nil, err
	}
	return doc, c.newEngine(doc, nil), nil
}

func (c *CLI) newEngine(doc *scene.Document, mon engine.Monitor) *engine.Engine {
	opts := c.cfg.EngineOptions()
	if doc.Config != nil {
		opts.Config = *doc.Config
	}
	if doc.Magnetic != nil {
		opts.Magnetic = *doc.Magnetic
	}
	opts.Monitor = mon
	return engine.New(opts)
}

func (c *CLI) writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
