// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package mcts

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/AleutianSuperopt/services/superopt/edit"
	"github.com/AleutianAI/AleutianSuperopt/services/superopt/program"
	"github.com/AleutianAI/AleutianSuperopt/services/superopt/reward"
	"github.com/AleutianAI/AleutianSuperopt/services/superopt/vm"
)

// Report is the result of Optimize.
type Report struct {
	RunID     string
	Reference reward.Reference
	// SeedResult is the full reference execution, including its profile.
	SeedResult vm.Result
	// Winner is the worker outcome holding the best program. When no worker
	// found one it is worker 0's outcome.
	Winner *Outcome
	// Workers holds every worker outcome, indexed by worker.
	Workers []*Outcome
}

// Best returns the winning program, or nil.
func (r *Report) Best() *Best {
	if r == nil || r.Winner == nil {
		return nil
	}
	return r.Winner.Best
}

// Epochs is the total number of epochs run across workers.
func (r *Report) Epochs() int {
	n := 0
	for _, o := range r.Workers {
		if o != nil {
			n += o.Epochs
		}
	}
	return n
}

// BuildEngine creates the engine for one worker from config.
//
// Inputs:
//   - config: Validated configuration.
//   - registers: Register count of the program; config.VM.Registers overrides it when non-zero.
//   - alloc: Identity allocator shared by every worker of a run.
//   - worker: Worker index; the generator is seeded config.Search.Seed+worker.
//   - opts: Extra engine options, applied last.
func BuildEngine(config Config, registers int, alloc *program.IDAllocator, worker int, opts ...EngineOption) (*Engine, error) {
	gens, err := config.Generators()
	if err != nil {
		return nil, fmt.Errorf("edit config: %w", err)
	}
	scorer, err := config.Scorer()
	if err != nil {
		return nil, fmt.Errorf("reward config: %w", err)
	}

	machine := NewMachine(config, registers)
	editor := edit.NewEditor(alloc, edit.WithStrictReplace(config.Edit.StrictReplace))
	moves := edit.NewMoveSet(gens, machine.Registers(), machine.VecAdd())

	search := config.Search
	search.Seed += uint64(worker)

	base := []EngineOption{
		WithScorer(scorer),
		WithWorker(worker),
		WithObservability(config.Observability),
	}
	return NewEngine(machine, editor, moves, search, append(base, opts...)...), nil
}

// NewMachine creates the interpreter described by config.VM.
func NewMachine(config Config, registers int) *vm.Machine {
	if config.VM.Registers > 0 {
		registers = config.VM.Registers
	}
	return vm.New(registers,
		vm.WithStepLimit(config.VM.StepLimit),
		vm.WithVecAddSemantics(vm.VecAddSemantics(config.VM.VecAdd)),
	)
}

// Optimize executes seed to obtain the reference and searches for a
// cheaper equivalent program.
//
// Description:
//
//	With config.Search.Workers > 1 the workers run independent trees
//	concurrently, each with its own interpreter and generator, sharing
//	only alloc. The best improvement across workers wins; ties go to the
//	lowest worker index. A failing reference execution aborts the run.
//
// Inputs:
//   - ctx: Context for cancellation.
//   - config: Validated configuration.
//   - registers: Register count of seed.
//   - alloc: The allocator seed's identities came from.
//   - seed: The program to optimise.
//   - opts: Extra engine options applied to every worker.
//
// Outputs:
//   - *Report: Per-worker outcomes and the winner.
//   - error: Non-nil if seed uses registers the machine lacks, or if the
//     reference execution or a worker fails.
func Optimize(
	ctx context.Context,
	config Config,
	registers int,
	alloc *program.IDAllocator,
	seed *program.Program,
	opts ...EngineOption,
) (*Report, error) {
	if seed == nil {
		return nil, ErrNilSeed
	}

	machine := NewMachine(config, registers)
	if err := machine.Check(seed); err != nil {
		return nil, fmt.Errorf("seed program: %w", err)
	}
	res, err := machine.Exe(seed)
	if err != nil {
		return nil, fmt.Errorf("reference execution: %w", err)
	}
	ref := reward.NewReference(res)

	workers := max(config.Search.Workers, 1)
	report := &Report{
		RunID:      uuid.NewString(),
		Reference:  ref,
		SeedResult: res,
		Workers:    make([]*Outcome, workers),
	}

	engines := make([]*Engine, workers)
	for i := range engines {
		engineOpts := append([]EngineOption{WithRunID(report.RunID)}, opts...)
		e, err := BuildEngine(config, registers, alloc, i, engineOpts...)
		if err != nil {
			return nil, err
		}
		engines[i] = e
	}

	g, gCtx := errgroup.WithContext(ctx)
	for i, e := range engines {
		g.Go(func() error {
			out, err := e.Run(gCtx, seed, ref)
			if err != nil {
				return fmt.Errorf("worker %d: %w", i, err)
			}
			report.Workers[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report.Winner = pickWinner(report.Workers)
	if workers > 1 {
		attrs := []any{slog.String("run_id", report.RunID), slog.Int("workers", workers)}
		if b := report.Best(); b != nil {
			attrs = append(attrs, slog.Int("winner", b.Worker), slog.Int("improvement", b.Improvement))
		}
		engines[0].logger.InfoContext(ctx, "parallel search complete", attrs...)
	}
	return report, nil
}

// pickWinner returns the outcome with the highest improvement, preferring
// the lowest index on ties and outs[0] when none found anything.
func pickWinner(outs []*Outcome) *Outcome {
	var winner *Outcome
	for _, o := range outs {
		if o == nil || o.Best == nil {
			continue
		}
		if winner == nil || o.Best.Improvement > winner.Best.Improvement {
			winner = o
		}
	}
	if winner == nil && len(outs) > 0 {
		return outs[0]
	}
	return winner
}
