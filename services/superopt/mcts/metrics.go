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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/AleutianAI/AleutianSuperopt/services/superopt/vm"
)

// Execution outcome labels. Anything else is recorded as "unknown".
const (
	outcomeOK      = "ok"
	outcomeUnknown = "unknown"
)

var knownOutcomes = map[string]bool{
	outcomeOK:                         true,
	string(vm.KindVariableNotFound):   true,
	string(vm.KindTimeout):            true,
	string(vm.KindOverflowArithmetic): true,
}

// executionOutcome returns the metric label for an execution error.
func executionOutcome(err error) string {
	if err == nil {
		return outcomeOK
	}
	kind := string(vm.KindOf(err))
	if knownOutcomes[kind] {
		return kind
	}
	return outcomeUnknown
}

var (
	searchRunsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "superopt",
		Subsystem: "search",
		Name:      "runs_total",
		Help:      "Total search runs started",
	})

	searchEpochsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "superopt",
		Subsystem: "search",
		Name:      "epochs_total",
		Help:      "Total search epochs completed",
	})

	rolloutStepsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "superopt",
		Subsystem: "rollout",
		Name:      "steps_total",
		Help:      "Total random edits applied during rollouts",
	})

	// vmExecutionsTotal counts candidate executions.
	//
	// Labels:
	//   - outcome: "ok", "variable_not_found", "timeout",
	//     "overflow_arithmetic" or "unknown"
	vmExecutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "superopt",
			Subsystem: "vm",
			Name:      "executions_total",
			Help:      "Total candidate program executions by outcome",
		},
		[]string{"outcome"},
	)

	improvementsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "superopt",
		Subsystem: "search",
		Name:      "improvements_total",
		Help:      "Total times a strictly better program was found",
	})

	bestImprovement = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "superopt",
		Subsystem: "search",
		Name:      "best_improvement",
		Help:      "Cost saved by the best program of the most recent run",
	})

	treeNodes = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "superopt",
		Subsystem: "tree",
		Name:      "nodes",
		Help:      "Node count of the most recently finished search tree",
	})

	rolloutLength = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "superopt",
		Subsystem: "rollout",
		Name:      "length",
		Help:      "Edits applied per rollout",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
	})
)

// metrics records engine activity. With enabled false every method is a
// no-op.
type metrics struct {
	enabled bool
}

func (m metrics) runStarted() {
	if m.enabled {
		searchRunsTotal.Inc()
	}
}

func (m metrics) epochDone() {
	if m.enabled {
		searchEpochsTotal.Inc()
	}
}

func (m metrics) execution(err error) {
	if m.enabled {
		vmExecutionsTotal.WithLabelValues(executionOutcome(err)).Inc()
	}
}

func (m metrics) rollout(steps int) {
	if !m.enabled {
		return
	}
	rolloutStepsTotal.Add(float64(steps))
	rolloutLength.Observe(float64(steps))
}

func (m metrics) improvement() {
	if m.enabled {
		improvementsTotal.Inc()
	}
}

func (m metrics) finished(out *Outcome) {
	if !m.enabled {
		return
	}
	treeNodes.Set(float64(out.Stats.Nodes))
	if out.Best != nil {
		bestImprovement.Set(float64(out.Best.Improvement))
	} else {
		bestImprovement.Set(0)
	}
}
