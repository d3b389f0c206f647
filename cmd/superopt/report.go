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
	"cmp"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/AleutianAI/AleutianSuperopt/pkg/ux"
	"github.com/AleutianAI/AleutianSuperopt/services/superopt/mcts"
	"github.com/AleutianAI/AleutianSuperopt/services/superopt/program"
	"github.com/AleutianAI/AleutianSuperopt/services/superopt/vm"
)

// profileTop is the number of instructions shown per profile.
const profileTop = 5

type executionView struct {
	Cost   int      `json:"cost"`
	Steps  int      `json:"steps"`
	Output []string `json:"output"`
}

type profileEntry struct {
	Index       int    `json:"index"`
	Instruction string `json:"instruction"`
	Count       int    `json:"count"`
}

type bestView struct {
	executionView
	Program     []string       `json:"program"`
	Fingerprint string         `json:"fingerprint"`
	Epoch       int            `json:"epoch"`
	Worker      int            `json:"worker"`
	Profile     []profileEntry `json:"profile,omitempty"`
}

type runView struct {
	RunID       string         `json:"run_id"`
	Fixture     string         `json:"fixture"`
	Reference   executionView  `json:"reference"`
	Found       bool           `json:"found"`
	Improvement int            `json:"improvement"`
	Best        *bestView      `json:"best,omitempty"`
	Epochs      int            `json:"epochs"`
	Workers     int            `json:"workers"`
	Cancelled   bool           `json:"cancelled"`
	Tree        mcts.TreeStats `json:"tree"`
	TreeDrawing string         `json:"tree_drawing,omitempty"`
	SeedProfile []profileEntry `json:"seed_profile,omitempty"`
}

type execView struct {
	Fixture string   `json:"fixture"`
	Program []string `json:"program"`
	executionView
	Profile []profileEntry `json:"profile,omitempty"`
}

func newExecutionView(res vm.Result) executionView {
	out := res.Output
	if out == nil {
		out = []string{}
	}
	return executionView{Cost: res.Cost, Steps: res.Steps, Output: out}
}

// programLines returns one formatted instruction per element.
func programLines(p *program.Program) []string {
	if p.Len() == 0 {
		return []string{}
	}
	return strings.Split(p.String(), "\n")
}

// hottest returns the n most executed instructions of p, by count and then
// position.
func hottest(p *program.Program, profile map[program.ID]int, n int) []profileEntry {
	var entries []profileEntry
	for i, c := range p.Containers() {
		if count := profile[c.ID()]; count > 0 {
			entries = append(entries, profileEntry{Index: i, Instruction: c.Code().String(), Count: count})
		}
	}
	slices.SortStableFunc(entries, func(a, b profileEntry) int {
		return cmp.Compare(b.Count, a.Count)
	})
	if len(entries) > n {
		entries = entries[:n]
	}
	return entries
}

func newRunView(fixture string, report *mcts.Report, seed *program.Program, treeDepth int, profile bool) runView {
	seedRes := report.SeedResult
	v := runView{
		RunID:     report.RunID,
		Fixture:   fixture,
		Reference: newExecutionView(seedRes),
		Epochs:    report.Epochs(),
		Workers:   len(report.Workers),
	}
	for _, o := range report.Workers {
		if o != nil && o.Cancelled {
			v.Cancelled = true
		}
	}

	if w := report.Winner; w != nil {
		v.Tree = w.Stats
		if treeDepth > 0 && w.Tree != nil {
			v.TreeDrawing = w.Tree.Render(treeDepth)
		}
	}
	if profile {
		v.SeedProfile = hottest(seed, seedRes.Profile, profileTop)
	}

	if b := report.Best(); b != nil {
		v.Found = true
		v.Improvement = b.Improvement
		v.Best = &bestView{
			executionView: newExecutionView(b.Result),
			Program:       programLines(b.Program),
			Fingerprint:   b.Program.Fingerprint(),
			Epoch:         b.Epoch,
			Worker:        b.Worker,
		}
		if profile {
			v.Best.Profile = hottest(b.Program, b.Result.Profile, profileTop)
		}
	}
	return v
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func renderRun(p *ux.Printer, v runView) {
	p.Title("superopt run " + v.Fixture)
	p.Field("run id", v.RunID)
	p.Field("reference cost", v.Reference.Cost)
	p.Field("reference output", strings.Join(v.Reference.Output, ", "))
	p.Field("epochs", v.Epochs)
	p.Field("workers", v.Workers)
	p.Field("tree", fmt.Sprintf("%d nodes, %d expanded, %d dead ends, depth %d",
		v.Tree.Nodes, v.Tree.Expanded, v.Tree.DeadEnds, v.Tree.MaxDepth))
	if v.Cancelled {
		p.Warning("search interrupted, showing the best program so far")
	}

	if v.SeedProfile != nil {
		p.Block("seed profile", profileLines(v.SeedProfile))
	}

	if !v.Found {
		p.Warning("no improvement found")
	} else {
		p.Success(fmt.Sprintf("improved by %d: cost %d %s %d (epoch %d, worker %d)",
			v.Improvement, v.Reference.Cost, ux.IconArrow, v.Best.Cost, v.Best.Epoch, v.Best.Worker))
		p.Block("optimised program", strings.Join(v.Best.Program, "\n"))
		if v.Best.Profile != nil {
			p.Block("optimised profile", profileLines(v.Best.Profile))
		}
	}

	if v.TreeDrawing != "" {
		p.Block("search tree", v.TreeDrawing)
	}
}

func renderExec(p *ux.Printer, v execView) {
	p.Title("superopt exec " + v.Fixture)
	p.Block("program", strings.Join(v.Program, "\n"))
	p.Field("cost", v.Cost)
	p.Field("steps", v.Steps)
	p.Block("output", strings.Join(v.Output, "\n"))
	if v.Profile != nil {
		p.Block("profile", profileLines(v.Profile))
	}
}

func profileLines(entries []profileEntry) string {
	var b strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&b, "%6dx  [%d] %s\n", e.Count, e.Index, e.Instruction)
	}
	return b.String()
}
