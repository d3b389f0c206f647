// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package vm implements the register machine the superoptimizer scores
// candidate programs on.
//
// A Machine carries only immutable configuration. Every Exe call allocates
// fresh registers and a fresh variable store, so one Machine can be reused
// for any number of executions and shared read-only between goroutines.
package vm

import (
	"fmt"
	"maps"

	"github.com/AleutianAI/AleutianSuperopt/services/superopt/isa"
	"github.com/AleutianAI/AleutianSuperopt/services/superopt/program"
)

// DefaultStepLimit is the dynamic instruction budget per execution.
const DefaultStepLimit = 10000

// VecAddSemantics selects how the two VecAdd lanes combine their operands.
type VecAddSemantics string

const (
	// VecAddSubtract computes a-b in both lanes. This is the behaviour
	// existing programs and reference outputs were produced with.
	VecAddSubtract VecAddSemantics = "subtract"

	// VecAddAdd computes a+b in both lanes.
	VecAddAdd VecAddSemantics = "add"
)

// Result is the observable outcome of a successful execution.
type Result struct {
	// Cost is the dynamic cost: the sum of static weights over every
	// executed instruction.
	Cost int
	// Output holds one "Register: {r} = {v}" record per executed Output.
	Output []string
	// Steps is the number of instructions executed.
	Steps int
	// Profile counts executions per instruction identity.
	Profile map[program.ID]int
}

// Machine executes programs.
//
// Thread Safety: Safe for concurrent use; Exe does not mutate the Machine.
type Machine struct {
	registers  int
	baseMemory map[int]int32
	stepLimit  int
	vecAdd     VecAddSemantics
}

// Option configures a Machine.
type Option func(*Machine)

// WithBaseMemory pre-seeds the variable store of every execution.
func WithBaseMemory(memory map[int]int32) Option {
	return func(m *Machine) {
		m.baseMemory = maps.Clone(memory)
	}
}

// WithStepLimit overrides the dynamic instruction budget.
func WithStepLimit(limit int) Option {
	return func(m *Machine) {
		m.stepLimit = limit
	}
}

// WithVecAddSemantics selects the VecAdd lane operation.
func WithVecAddSemantics(s VecAddSemantics) Option {
	return func(m *Machine) {
		m.vecAdd = s
	}
}

// New creates a Machine with the given register count.
func New(registers int, opts ...Option) *Machine {
	m := &Machine{
		registers: registers,
		stepLimit: DefaultStepLimit,
		vecAdd:    VecAddSubtract,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.baseMemory == nil {
		m.baseMemory = map[int]int32{}
	}
	return m
}

// Registers returns the configured register count.
func (m *Machine) Registers() int {
	return m.registers
}

// StepLimit returns the dynamic instruction budget.
func (m *Machine) StepLimit() int {
	return m.stepLimit
}

// VecAdd returns the configured VecAdd semantics.
func (m *Machine) VecAdd() VecAddSemantics {
	return m.vecAdd
}

// Check reports the first instruction of p whose register operands fall
// outside [0, Registers()).
func (m *Machine) Check(p *program.Program) error {
	for i, in := range p.Instructions() {
		for _, r := range append(in.Reads(), in.Writes()...) {
			if r < 0 || r >= m.registers {
				return fmt.Errorf("%w: instruction %d (%s) uses register %d of %d",
					ErrRegisterOutOfRange, i, in, r, m.registers)
			}
		}
	}
	return nil
}

// Exe runs p to completion.
//
// Execution ends normally when the pc moves past the last instruction. At
// most StepLimit instructions execute; trying to execute one more returns
// ErrTimeout. Failures carry no partial result.
//
// Register operands outside [0, Registers()) are a malformed program and
// panic; use Check first on programs from outside the search.
func (m *Machine) Exe(p *program.Program) (Result, error) {
	var (
		pc      int
		cost    int
		steps   int
		output  []string
		regs    = make([]int32, m.registers)
		memory  = maps.Clone(m.baseMemory)
		profile = make(map[program.ID]int)
	)

	for {
		c, ok := p.Get(pc)
		if !ok {
			break
		}
		if steps >= m.stepLimit {
			return Result{}, &ExecutionError{Kind: KindTimeout, PC: pc, Step: steps}
		}

		at := pc
		pc++
		steps++
		cost += c.Cost()
		profile[c.ID()]++

		in := c.Code()
		switch in.Op {
		case isa.OpAdd:
			v, ok := addInt32(regs[in.RegA], regs[in.RegB])
			if !ok {
				return Result{}, &ExecutionError{Kind: KindOverflowArithmetic, PC: at, Step: steps}
			}
			regs[in.Out] = v

		case isa.OpSub:
			v, ok := subInt32(regs[in.RegA], regs[in.RegB])
			if !ok {
				return Result{}, &ExecutionError{Kind: KindOverflowArithmetic, PC: at, Step: steps}
			}
			regs[in.Out] = v

		case isa.OpVar:
			memory[in.Var] = 0

		case isa.OpLoad:
			v, ok := memory[in.Var]
			if !ok {
				return Result{}, &ExecutionError{Kind: KindVariableNotFound, PC: at, Step: steps}
			}
			regs[in.Reg] = v

		case isa.OpStore:
			if _, ok := memory[in.Var]; !ok {
				return Result{}, &ExecutionError{Kind: KindVariableNotFound, PC: at, Step: steps}
			}
			memory[in.Var] = regs[in.Reg]

		case isa.OpSetReg:
			regs[in.Reg] = in.Const

		case isa.OpPCSetIfNotZero:
			if regs[in.Reg] != 0 {
				pc = in.Target
			}

		case isa.OpOutput:
			output = append(output, fmt.Sprintf("Register: %d = %d", in.Reg, regs[in.Reg]))

		case isa.OpVecAdd:
			lane := subInt32
			if m.vecAdd == VecAddAdd {
				lane = addInt32
			}
			r1, ok1 := lane(regs[in.RegA], regs[in.RegB])
			r2, ok2 := lane(regs[in.RegA2], regs[in.RegB2])
			if !ok1 || !ok2 {
				return Result{}, &ExecutionError{Kind: KindOverflowArithmetic, PC: at, Step: steps}
			}
			regs[in.Out] = r1
			regs[in.Out2] = r2

		default:
			panic(fmt.Sprintf("vm: unknown opcode %d at pc %d", in.Op, at))
		}
	}

	return Result{Cost: cost, Output: output, Steps: steps, Profile: profile}, nil
}

func addInt32(a, b int32) (int32, bool) {
	s := a + b
	// Overflow iff both operands share a sign the sum does not.
	if (a >= 0) == (b >= 0) && (s >= 0) != (a >= 0) {
		return 0, false
	}
	return s, true
}

func subInt32(a, b int32) (int32, bool) {
	d := a - b
	if (a >= 0) != (b >= 0) && (d >= 0) != (a >= 0) {
		return 0, false
	}
	return d, true
}
