// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/AleutianSuperopt/pkg/logging"
	"github.com/AleutianAI/AleutianSuperopt/services/superopt/mcts"
)

// globalOptions are the persistent flags shared by every subcommand.
type globalOptions struct {
	configPath string
	logLevel   string
	logJSON    bool
	logDir     string
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:   "superopt",
		Short: "A Monte Carlo tree search superoptimizer for a small register VM",
		Long: `superopt executes a seed program to obtain its reference output and cost,
then searches the space of edited programs for one that prints the same
output at a strictly lower dynamic cost.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "", "config file (.yaml, .json or .toml)")
	pf.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn or error (overrides config)")
	pf.BoolVar(&opts.logJSON, "log-json", false, "write log records as JSON")
	pf.StringVar(&opts.logDir, "log-dir", "", "also write JSON logs to this directory")

	root.AddCommand(
		newRunCmd(opts),
		newExecCmd(opts),
		newFixturesCmd(),
	)
	return root
}

// loadConfig loads the config file and environment, then applies the
// persistent flag overrides.
func (o *globalOptions) loadConfig() (mcts.Config, error) {
	cfg, err := mcts.LoadConfig(o.configPath)
	if err != nil {
		return cfg, err
	}
	if o.logLevel != "" {
		cfg.Observability.LogLevel = o.logLevel
	}
	return cfg, nil
}

// newLogger builds the command logger. Records go to the command's stderr.
func (o *globalOptions) newLogger(cmd *cobra.Command, cfg mcts.Config) (*logging.Logger, error) {
	level, err := logging.ParseLevel(cfg.Observability.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	return logging.New(logging.Config{
		Level:   level,
		Service: cfg.Observability.ServiceName,
		JSON:    o.logJSON,
		LogDir:  o.logDir,
		Writer:  cmd.ErrOrStderr(),
	}), nil
}
