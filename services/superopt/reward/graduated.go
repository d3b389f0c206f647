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
	"fmt"

	"github.com/AleutianAI/AleutianSuperopt/services/superopt/vm"
)

// Scorer names a reward formulation.
type Scorer string

const (
	// ScorerGated is the correctness-gated flat-penalty reward.
	ScorerGated Scorer = "gated"

	// ScorerGraduated is the earlier edit-distance reward. It is kept for
	// comparison runs; the search still only reports candidates that pass
	// the gated check.
	ScorerGraduated Scorer = "graduated"
)

// ParseScorer validates a scorer name. The empty string selects ScorerGated.
func ParseScorer(name string) (Scorer, error) {
	switch Scorer(name) {
	case "", ScorerGated:
		return ScorerGated, nil
	case ScorerGraduated:
		return ScorerGraduated, nil
	default:
		return "", fmt.Errorf("unknown reward scorer %q", name)
	}
}

// Score evaluates res under scorer s.
func (r Reference) Score(s Scorer, res vm.Result) int {
	switch s {
	case ScorerGated, "":
		return r.Gated(res)
	case ScorerGraduated:
		return Graduated(r.Output, res)
	default:
		panic(fmt.Sprintf("reward: unknown scorer %q", s))
	}
}

// Graduated is 100·(−d−1)·cost + 1, where d is the number of mismatched
// output positions plus the length difference. Identical output yields
// −100·cost + 1, so among correct programs cheaper scores higher.
func Graduated(required []string, res vm.Result) int {
	d := Distance(required, res.Output)
	return 100*(-d-1)*res.Cost + 1
}

// Distance counts positions where a and b differ, plus the difference in
// length.
func Distance(a, b []string) int {
	n := min(len(a), len(b))
	count := 0
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			count++
		}
	}
	return count + (len(a) - n) + (len(b) - n)
}
