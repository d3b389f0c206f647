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
	"log/slog"
	"math"

	"github.com/AleutianAI/AleutianSuperopt/services/superopt/edit"
	"github.com/AleutianAI/AleutianSuperopt/services/superopt/program"
)

// rollout applies up to RolloutSteps uniformly random edits starting at
// start and returns the highest reward observed, or math.MinInt when no
// step was scored. Only states reached by a step are scored. Candidates
// that fail to execute are not scored but the walk continues from them.
// The walk stops early once no edit applies.
func (e *Engine) rollout(ctx context.Context, logger *slog.Logger, r *searchRun, start *program.Program, epoch int) int {
	maxReward := math.MinInt

	score := func(p *program.Program) {
		x, err := edit.Run(p, e.machine)
		e.metrics.execution(err)
		if err != nil {
			return
		}
		if v := r.ref.Score(e.scorer, x.Result()); v > maxReward {
			maxReward = v
		}
		e.consider(ctx, logger, r, x, epoch)
	}

	current := start
	steps := 0
	for steps < e.config.RolloutSteps {
		moves := e.moves.Next(current)
		if len(moves) == 0 {
			break
		}
		current = e.editor.Apply(current, moves[e.rng.IntN(len(moves))])
		steps++
		score(current)
	}

	e.metrics.rollout(steps)
	return maxReward
}

// consider records x as the new best if it is correct and saves strictly
// more than the current best. The first program reaching a given saving
// is kept.
func (e *Engine) consider(ctx context.Context, logger *slog.Logger, r *searchRun, x edit.Executed, epoch int) {
	res := x.Result()
	if !r.ref.Improves(res) {
		return
	}
	improvement := r.ref.Cost - res.Cost
	if r.best != nil && improvement <= r.best.Improvement {
		return
	}

	r.best = &Best{
		Improvement: improvement,
		Program:     x.Program(),
		Result:      res,
		Epoch:       epoch,
		Worker:      e.worker,
	}
	e.metrics.improvement()
	e.tracer.RecordImprovement(ctx, logger, r.best)
}
