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

	"github.com/AleutianAI/AleutianSuperopt/pkg/ux"
	"github.com/AleutianAI/AleutianSuperopt/services/superopt/fixtures"
	"github.com/AleutianAI/AleutianSuperopt/services/superopt/mcts"
	"github.com/AleutianAI/AleutianSuperopt/services/superopt/program"
)

// fixtureFlags selects and parameterises a seed program.
type fixtureFlags struct {
	name  string
	count int
}

func (f *fixtureFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.name, "fixture", "", "seed program: add-two, count or vecadd")
	cmd.Flags().IntVar(&f.count, "count", 5, "loop bound for the count fixture")
	_ = cmd.MarkFlagRequired("fixture")
}

func (f *fixtureFlags) build(alloc *program.IDAllocator) (fixtures.Fixture, *program.Program, error) {
	fx, err := fixtures.Lookup(f.name)
	if err != nil {
		return fixtures.Fixture{}, nil, err
	}
	return fx, fx.Build(alloc, f.count), nil
}

// wantJSON reports whether output should be JSON: when asked for, or when
// stdout is not a terminal.
func wantJSON(cmd *cobra.Command, flag bool) bool {
	return flag || !ux.IsTerminal(cmd.OutOrStdout())
}

func newExecCmd(opts *globalOptions) *cobra.Command {
	var (
		fx      fixtureFlags
		asJSON  bool
		profile bool
	)

	cmd := &cobra.Command{
		Use:   "exec",
		Short: "Execute a fixture once and print its cost and output",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}

			alloc := program.NewIDAllocator()
			f, seed, err := fx.build(alloc)
			if err != nil {
				return err
			}

			res, err := mcts.NewMachine(cfg, f.Registers).Exe(seed)
			if err != nil {
				return fmt.Errorf("execute %s: %w", f.Name, err)
			}

			v := execView{
				Fixture:       f.Name,
				Program:       programLines(seed),
				executionView: newExecutionView(res),
			}
			if profile {
				v.Profile = hottest(seed, res.Profile, profileTop)
			}

			if wantJSON(cmd, asJSON) {
				return writeJSON(cmd.OutOrStdout(), v)
			}
			renderExec(ux.NewPrinter(cmd.OutOrStdout()), v)
			return nil
		},
	}

	fx.register(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	cmd.Flags().BoolVar(&profile, "profile", false, "print the most executed instructions")
	return cmd
}
