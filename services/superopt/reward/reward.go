// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package reward scores executed candidates against a reference result.
package reward

import (
	"slices"

	"github.com/AleutianAI/AleutianSuperopt/services/superopt/vm"
)

// Penalty is the reward of any candidate that is incorrect or not cheaper.
// It is below every achievable improvement, so a correct improvement
// always outranks an incorrect candidate.
const Penalty = -100

// Reference is the seed program's execution result that every candidate is
// judged against.
type Reference struct {
	Cost   int
	Output []string
}

// NewReference captures res as the reference.
func NewReference(res vm.Result) Reference {
	return Reference{Cost: res.Cost, Output: slices.Clone(res.Output)}
}

// IsCorrect reports whether the candidate output equals the reference
// output element-wise, with equal length.
func (r Reference) IsCorrect(res vm.Result) bool {
	return slices.Equal(r.Output, res.Output)
}

// IsMoreOptimal reports whether the candidate is strictly cheaper.
func (r Reference) IsMoreOptimal(res vm.Result) bool {
	return res.Cost < r.Cost
}

// Improves reports whether the candidate is both correct and cheaper.
func (r Reference) Improves(res vm.Result) bool {
	return r.IsCorrect(res) && r.IsMoreOptimal(res)
}

// Gated returns the cost saving of a correct, cheaper candidate, or
// Penalty otherwise.
func (r Reference) Gated(res vm.Result) int {
	if r.Improves(res) {
		return r.Cost - res.Cost
	}
	return Penalty
}
