// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package reward

import (
	"testing"

	"github.com/AleutianAI/AleutianSuperopt/services/superopt/vm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ref() Reference {
	return NewReference(vm.Result{Cost: 20, Output: []string{"Register: 0 = 2"}})
}

func TestReference_Gated(t *testing.T) {
	tests := []struct {
		name string
		res  vm.Result
		want int
	}{
		{"correct and cheaper", vm.Result{Cost: 14, Output: []string{"Register: 0 = 2"}}, 6},
		{"correct same cost", vm.Result{Cost: 20, Output: []string{"Register: 0 = 2"}}, Penalty},
		{"correct more expensive", vm.Result{Cost: 25, Output: []string{"Register: 0 = 2"}}, Penalty},
		{"wrong value", vm.Result{Cost: 1, Output: []string{"Register: 0 = 3"}}, Penalty},
		{"extra output", vm.Result{Cost: 1, Output: []string{"Register: 0 = 2", "Register: 0 = 2"}}, Penalty},
		{"no output", vm.Result{Cost: 0}, Penalty},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ref().Gated(tt.res))
			assert.Equal(t, tt.want, ref().Score(ScorerGated, tt.res))
		})
	}
}

func TestReference_CorrectImprovementAlwaysOutranksPenalty(t *testing.T) {
	r := ref()
	smallest := r.Gated(vm.Result{Cost: 19, Output: []string{"Register: 0 = 2"}})
	assert.Equal(t, 1, smallest)
	assert.Greater(t, smallest, Penalty)
}

func TestReference_Predicates(t *testing.T) {
	r := ref()
	assert.True(t, r.IsCorrect(vm.Result{Output: []string{"Register: 0 = 2"}}))
	assert.False(t, r.IsCorrect(vm.Result{Output: nil}))
	assert.True(t, r.IsMoreOptimal(vm.Result{Cost: 19}))
	assert.False(t, r.IsMoreOptimal(vm.Result{Cost: 20}))
}

func TestNewReference_CopiesOutput(t *testing.T) {
	res := vm.Result{Cost: 3, Output: []string{"a"}}
	r := NewReference(res)
	res.Output[0] = "b"
	assert.Equal(t, []string{"a"}, r.Output)
}

func TestDistance(t *testing.T) {
	assert.Equal(t, 0, Distance([]string{"a", "b"}, []string{"a", "b"}))
	assert.Equal(t, 1, Distance([]string{"a", "b"}, []string{"a", "c"}))
	assert.Equal(t, 2, Distance([]string{"a", "b", "c"}, []string{"a"}))
	assert.Equal(t, 3, Distance(nil, []string{"x", "y", "z"}))
}

func TestGraduated(t *testing.T) {
	required := []string{"a", "b"}
	assert.Equal(t, -100*10+1, Graduated(required, vm.Result{Cost: 10, Output: []string{"a", "b"}}))
	assert.Equal(t, -200*10+1, Graduated(required, vm.Result{Cost: 10, Output: []string{"a"}}))
	assert.Greater(t,
		Graduated(required, vm.Result{Cost: 5, Output: required}),
		Graduated(required, vm.Result{Cost: 10, Output: required}))
	assert.Equal(t, ref().Score(ScorerGraduated, vm.Result{Cost: 7, Output: []string{"Register: 0 = 2"}}), -699)
}

func TestParseScorer(t *testing.T) {
	s, err := ParseScorer("")
	require.NoError(t, err)
	assert.Equal(t, ScorerGated, s)

	s, err = ParseScorer("graduated")
	require.NoError(t, err)
	assert.Equal(t, ScorerGraduated, s)

	_, err = ParseScorer("linear")
	assert.Error(t, err)
}
