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
	"github.com/spf13/cobra"

	"github.com/AleutianAI/AleutianSuperopt/pkg/ux"
	"github.com/AleutianAI/AleutianSuperopt/services/superopt/fixtures"
)

func newFixturesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fixtures",
		Short: "List the built-in seed programs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p := ux.NewPrinter(cmd.OutOrStdout())
			for _, name := range fixtures.Names() {
				f, err := fixtures.Lookup(name)
				if err != nil {
					return err
				}
				p.Field(f.Name, f.Description)
			}
			return nil
		},
	}
}
