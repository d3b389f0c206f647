// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package fixtures builds the seed programs used by the CLI and tests.
package fixtures

import (
	"fmt"
	"sort"

	"github.com/AleutianAI/AleutianSuperopt/services/superopt/isa"
	"github.com/AleutianAI/AleutianSuperopt/services/superopt/program"
)

// DefaultRegisters is the register count every fixture runs with.
const DefaultRegisters = 4

// Fixture describes a named seed program.
type Fixture struct {
	Name        string
	Description string
	Registers   int
	// Build returns the seed program. param is only used by parameterised
	// fixtures (count) and ignored otherwise.
	Build func(alloc *program.IDAllocator, param int) *program.Program
}

var registry = map[string]Fixture{
	"add-two": {
		Name:        "add-two",
		Description: "declare a variable, add 1 to it twice through memory, output it",
		Registers:   DefaultRegisters,
		Build: func(alloc *program.IDAllocator, _ int) *program.Program {
			return AddTwo(alloc)
		},
	},
	"count": {
		Name:        "count",
		Description: "count register 0 up to N with a PCSetIfNotZero loop, output it",
		Registers:   DefaultRegisters,
		Build: func(alloc *program.IDAllocator, n int) *program.Program {
			return CountTo(alloc, int32(n))
		},
	},
	"vecadd": {
		Name:        "vecadd",
		Description: "element-wise add of two 5-element vectors held in variables",
		Registers:   DefaultRegisters,
		Build: func(alloc *program.IDAllocator, _ int) *program.Program {
			return VecAdd(alloc)
		},
	},
}

// Lookup returns the fixture registered under name.
func Lookup(name string) (Fixture, error) {
	f, ok := registry[name]
	if !ok {
		return Fixture{}, fmt.Errorf("unknown fixture %q (available: %v)", name, Names())
	}
	return f, nil
}

// Names returns the registered fixture names in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AddTwo accumulates 1 into variable 0 twice and outputs the result.
func AddTwo(alloc *program.IDAllocator) *program.Program {
	return program.New(alloc, []isa.Instruction{
		isa.Var(0),
		isa.SetReg(0, 0),
		isa.SetReg(1, 1),
		// first add
		isa.Add(0, 1, 0),
		isa.Store(0, 0),
		// second add
		isa.Load(0, 0),
		isa.Add(0, 1, 0),
		isa.Store(0, 0),
		isa.Load(0, 0),
		isa.Output(0),
	})
}

// CountTo increments register 0 until it equals counter, then outputs it.
// The loop body starts at index 2.
func CountTo(alloc *program.IDAllocator, counter int32) *program.Program {
	return program.New(alloc, []isa.Instruction{
		isa.Var(0),
		isa.SetReg(0, 0),
		isa.SetReg(1, 1),
		isa.Add(0, 1, 0),
		isa.SetReg(1, counter),
		isa.Sub(0, 1, 1),
		isa.PCSetIfNotZero(1, 2),
		isa.Output(0),
	})
}

// Variable offsets of the vecadd fixture.
const (
	vecAOffset = 0
	vecBOffset = 10
	vecCOffset = 20
)

// VecAdd stores [1..5] at variables 0..4 and 10..14, then for every lane
// loads both elements, adds them, stores the sum at 20+i and outputs it.
func VecAdd(alloc *program.IDAllocator) *program.Program {
	elems := []int32{1, 2, 3, 4, 5}

	var code []isa.Instruction
	code = append(code, vectorInit(vecAOffset, elems)...)
	code = append(code, vectorInit(vecBOffset, elems)...)
	for i := range elems {
		code = append(code, addAndStore(i+vecAOffset, i+vecBOffset, i+vecCOffset)...)
	}
	return program.New(alloc, code)
}

func vectorInit(offset int, elems []int32) []isa.Instruction {
	out := make([]isa.Instruction, 0, 3*len(elems))
	for i, e := range elems {
		out = append(out,
			isa.Var(i+offset),
			isa.SetReg(0, e),
			isa.Store(0, i+offset),
		)
	}
	return out
}

func addAndStore(varA, varB, outVar int) []isa.Instruction {
	return []isa.Instruction{
		isa.Var(outVar),
		isa.Load(0, varA),
		isa.Load(1, varB),
		isa.Add(0, 1, 0),
		isa.Store(0, outVar),
		isa.Output(0),
	}
}
