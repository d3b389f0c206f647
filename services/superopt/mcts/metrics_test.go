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
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianSuperopt/services/superopt/fixtures"
	"github.com/AleutianAI/AleutianSuperopt/services/superopt/vm"
)

func TestExecutionOutcome(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{"success", nil, "ok"},
		{"timeout", &vm.ExecutionError{Kind: vm.KindTimeout}, "timeout"},
		{"missing variable", &vm.ExecutionError{Kind: vm.KindVariableNotFound}, "variable_not_found"},
		{"overflow", &vm.ExecutionError{Kind: vm.KindOverflowArithmetic}, "overflow_arithmetic"},
		{"foreign error", errors.New("boom"), "unknown"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, executionOutcome(tc.err))
		})
	}
}

func TestEngine_RecordsMetrics(t *testing.T) {
	f := newEngineFixture(t, fixtures.AddTwo, searchConfig(25, 10, 2),
		WithObservability(ObservabilityConfig{MetricsEnabled: true}))

	runs := testutil.ToFloat64(searchRunsTotal)
	epochs := testutil.ToFloat64(searchEpochsTotal)
	ok := testutil.ToFloat64(vmExecutionsTotal.WithLabelValues("ok"))

	out, err := f.engine.Run(context.Background(), f.seed, f.ref)
	require.NoError(t, err)

	assert.Equal(t, runs+1, testutil.ToFloat64(searchRunsTotal))
	assert.Equal(t, epochs+25, testutil.ToFloat64(searchEpochsTotal))
	assert.Greater(t, testutil.ToFloat64(vmExecutionsTotal.WithLabelValues("ok")), ok)
	assert.Equal(t, float64(out.Stats.Nodes), testutil.ToFloat64(treeNodes))

	want := 0.0
	if out.Best != nil {
		want = float64(out.Best.Improvement)
	}
	assert.Equal(t, want, testutil.ToFloat64(bestImprovement))
}

func TestEngine_MetricsDisabled(t *testing.T) {
	f := newEngineFixture(t, fixtures.AddTwo, searchConfig(10, 5, 2))

	epochs := testutil.ToFloat64(searchEpochsTotal)
	_, err := f.engine.Run(context.Background(), f.seed, f.ref)
	require.NoError(t, err)

	assert.Equal(t, epochs, testutil.ToFloat64(searchEpochsTotal))
}
