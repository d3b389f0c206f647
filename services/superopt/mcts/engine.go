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
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/AleutianAI/AleutianSuperopt/services/superopt/edit"
	"github.com/AleutianAI/AleutianSuperopt/services/superopt/program"
	"github.com/AleutianAI/AleutianSuperopt/services/superopt/reward"
	"github.com/AleutianAI/AleutianSuperopt/services/superopt/vm"
)

// progressInterval is the minimum time between progress log records.
const progressInterval = 2 * time.Second

// ErrNilSeed is returned when a search is started without a seed program.
var ErrNilSeed = errors.New("mcts: nil seed program")

// Best is the best program a search observed.
type Best struct {
	// Improvement is the reference cost minus the program's cost. Always > 0.
	Improvement int
	Program     *program.Program
	Result      vm.Result
	// Epoch is the epoch in which the program was first observed.
	Epoch  int
	Worker int
}

// Outcome describes one finished search.
type Outcome struct {
	RunID     string
	Worker    int
	Reference reward.Reference
	// Best is nil when no correct, strictly cheaper program was observed.
	Best      *Best
	Epochs    int
	Cancelled bool
	Stats     TreeStats
	Tree      *Tree
}

// Engine runs Monte Carlo tree search over program edits.
//
// The engine performs the classic loop once per epoch:
//  1. SELECT: descend through expanded nodes by UCT
//  2. EXPAND: create one child per distinct candidate edit of the leaf
//  3. SIMULATE: random rollout from one new child
//  4. BACKPROPAGATE: visits+1 and wins overwritten on the selection path
//
// Thread Safety: Not safe for concurrent use; the engine owns its random
// generator. Use one engine per goroutine.
type Engine struct {
	machine *vm.Machine
	editor  *edit.Editor
	moves   *edit.MoveSet
	config  SearchConfig
	scorer  reward.Scorer

	rng     *rand.Rand
	tracer  *Tracer
	obs     ObservabilityConfig
	metrics metrics
	logger  *slog.Logger

	runID  string
	worker int
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithTracer sets the tracer for observability.
func WithTracer(tracer *Tracer) EngineOption {
	return func(e *Engine) {
		e.tracer = tracer
	}
}

// WithObservability sets the observability configuration used for the
// default tracer and for metrics.
func WithObservability(config ObservabilityConfig) EngineOption {
	return func(e *Engine) {
		e.obs = config
		e.metrics.enabled = config.MetricsEnabled
	}
}

// WithRand replaces the generator seeded from SearchConfig.Seed.
func WithRand(rng *rand.Rand) EngineOption {
	return func(e *Engine) {
		e.rng = rng
	}
}

// WithScorer selects the simulation reward. The default is reward.ScorerGated.
func WithScorer(s reward.Scorer) EngineOption {
	return func(e *Engine) {
		e.scorer = s
	}
}

// WithRunID sets the run identifier. By default every Run gets a new UUID.
func WithRunID(id string) EngineOption {
	return func(e *Engine) {
		e.runID = id
	}
}

// WithWorker tags the engine's results with a worker index.
func WithWorker(i int) EngineOption {
	return func(e *Engine) {
		e.worker = i
	}
}

// NewEngine creates a search engine.
//
// Inputs:
//   - machine: Interpreter used to execute candidates.
//   - editor: Applies edits; its allocator issues identities for new code.
//   - moves: Candidate edit generator.
//   - config: Epoch and rollout budgets, exploration constant and seed.
//   - opts: Optional configuration functions.
//
// Outputs:
//   - *Engine: Ready to use engine.
func NewEngine(
	machine *vm.Machine,
	editor *edit.Editor,
	moves *edit.MoveSet,
	config SearchConfig,
	opts ...EngineOption,
) *Engine {
	e := &Engine{
		machine: machine,
		editor:  editor,
		moves:   moves,
		config:  config,
		scorer:  reward.ScorerGated,
		logger:  slog.Default(),
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.logger == nil {
		e.logger = slog.Default()
	}
	if e.rng == nil {
		e.rng = rand.New(rand.NewPCG(config.Seed, config.Seed))
	}
	if e.tracer == nil {
		e.tracer = NewTracer(e.logger, e.obs)
	}
	return e
}

// Search runs the search and returns the best program found, or nil if no
// candidate was both correct and strictly cheaper than ref.
func (e *Engine) Search(ctx context.Context, seed *program.Program, ref reward.Reference) (*Best, error) {
	out, err := e.Run(ctx, seed, ref)
	if err != nil {
		return nil, err
	}
	return out.Best, nil
}

// searchRun is the mutable state of one Run.
type searchRun struct {
	ref  reward.Reference
	tree *Tree
	best *Best
}

// Run executes the search.
//
// Description:
//
//	Runs config.Epochs epochs from seed, judging candidates against ref.
//	Cancellation of ctx is checked between epochs; a cancelled run returns
//	the best program found so far with Outcome.Cancelled set.
//
// Inputs:
//   - ctx: Context for cancellation and tracing.
//   - seed: The program to optimise. It is never modified.
//   - ref: Cost and output of the seed.
//
// Outputs:
//   - *Outcome: The explored tree and the best program, if any.
//   - error: Non-nil if seed is nil or uses registers the machine lacks.
func (e *Engine) Run(ctx context.Context, seed *program.Program, ref reward.Reference) (*Outcome, error) {
	if seed == nil {
		return nil, ErrNilSeed
	}
	if err := e.machine.Check(seed); err != nil {
		return nil, fmt.Errorf("seed program: %w", err)
	}

	runID := e.runID
	if runID == "" {
		runID = uuid.NewString()
	}
	logger := e.logger.With(slog.String("run_id", runID), slog.Int("worker", e.worker))

	start := time.Now()
	ctx, span := e.tracer.StartSearch(ctx, runID, e.worker, e.config, ref)
	e.metrics.runStarted()

	logger.InfoContext(ctx, "search started",
		slog.Int("epochs", e.config.Epochs),
		slog.Int("rollout_steps", e.config.RolloutSteps),
		slog.Int("reference_cost", ref.Cost),
		slog.Int("seed_length", seed.Len()),
	)

	r := &searchRun{
		ref:  ref,
		tree: NewTree(edit.NewState(seed)),
	}
	out := &Outcome{
		RunID:     runID,
		Worker:    e.worker,
		Reference: ref,
	}

	progress := rate.Sometimes{Interval: progressInterval}
	for epoch := 0; epoch < e.config.Epochs; epoch++ {
		if ctx.Err() != nil {
			out.Cancelled = true
			break
		}
		e.runEpoch(ctx, logger, r, epoch)
		out.Epochs++

		progress.Do(func() {
			attrs := []any{slog.Int("epoch", epoch), slog.Int("nodes", r.tree.Len())}
			if r.best != nil {
				attrs = append(attrs, slog.Int("improvement", r.best.Improvement))
			}
			logger.InfoContext(ctx, "search progress", attrs...)
		})
	}

	out.Best = r.best
	out.Tree = r.tree
	out.Stats = r.tree.Stats()

	e.metrics.finished(out)
	e.tracer.EndSearch(ctx, span, out, time.Since(start), nil)

	attrs := []any{
		slog.Int("epochs", out.Epochs),
		slog.Int("nodes", out.Stats.Nodes),
		slog.Int("max_depth", out.Stats.MaxDepth),
		slog.Bool("cancelled", out.Cancelled),
	}
	if out.Best != nil {
		attrs = append(attrs, slog.Int("improvement", out.Best.Improvement), slog.Int("cost", out.Best.Result.Cost))
	}
	logger.InfoContext(ctx, "search complete", attrs...)

	return out, nil
}

// runEpoch performs one iteration: Select → Expand → Simulate → Backpropagate.
func (e *Engine) runEpoch(ctx context.Context, logger *slog.Logger, r *searchRun, epoch int) {
	ctx, span := e.tracer.TraceEpoch(ctx, epoch)

	path := r.tree.Select(e.config.ExplorationConstant)
	leaf := path[len(path)-1]

	outcome := 0
	created := 0
	if r.tree.State(leaf) == NodeLeaf {
		p := r.tree.Edits(leaf).Materialize(e.editor)
		children := r.tree.Expand(leaf, e.moves.Next(p))
		created = len(children)
		if created > 0 {
			child := children[e.rng.IntN(created)]
			start := e.editor.Apply(p, r.tree.Action(child))
			outcome = max(e.rollout(ctx, logger, r, start, epoch), 0)
		}
	}

	r.tree.Backpropagate(path, outcome)
	e.metrics.epochDone()
	e.tracer.EndEpoch(span, len(path)-1, created, outcome)

	logger.DebugContext(ctx, "epoch done",
		slog.Int("epoch", epoch),
		slog.Int("depth", len(path)-1),
		slog.Int("children", created),
		slog.Int("outcome", outcome),
	)
}
