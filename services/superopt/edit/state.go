// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package edit

import (
	"github.com/AleutianAI/AleutianSuperopt/services/superopt/program"
	"github.com/AleutianAI/AleutianSuperopt/services/superopt/vm"
)

// State is a base program plus a chain of pending edits. The edited
// program is only built by Materialize, so search nodes can hold a State
// without paying for a full program copy.
//
// A State has no execution result; Execute turns it into an Executed.
type State struct {
	base  *program.Program
	chain []Action
}

// NewState returns the state of base with no pending edits.
func NewState(base *program.Program) State {
	return State{base: base}
}

// Then returns the state reached by applying a after the current chain.
// The receiver is not modified.
func (s State) Then(a Action) State {
	chain := make([]Action, len(s.chain), len(s.chain)+1)
	copy(chain, s.chain)
	return State{base: s.base, chain: append(chain, a)}
}

// Base returns the base program.
func (s State) Base() *program.Program {
	return s.base
}

// Chain returns a copy of the pending edits.
func (s State) Chain() []Action {
	out := make([]Action, len(s.chain))
	copy(out, s.chain)
	return out
}

// Depth returns the number of pending edits.
func (s State) Depth() int {
	return len(s.chain)
}

// Materialize builds the edited program.
func (s State) Materialize(e *Editor) *program.Program {
	return e.ApplyChain(s.base, s.chain)
}

// Execute materializes the state and runs it.
func (s State) Execute(e *Editor, m *vm.Machine) (Executed, error) {
	return Run(s.Materialize(e), m)
}

// Executed is a concrete program together with its execution result.
// Only executed programs can be scored.
type Executed struct {
	program *program.Program
	result  vm.Result
}

// Run executes p on m.
func Run(p *program.Program, m *vm.Machine) (Executed, error) {
	res, err := m.Exe(p)
	if err != nil {
		return Executed{}, err
	}
	return Executed{program: p, result: res}, nil
}

// Program returns the executed program.
func (x Executed) Program() *program.Program {
	return x.program
}

// Result returns the execution result.
func (x Executed) Result() vm.Result {
	return x.result
}

// Cost returns the dynamic cost.
func (x Executed) Cost() int {
	return x.result.Cost
}

// Output returns the output records.
func (x Executed) Output() []string {
	return x.result.Output
}
