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
	"fmt"
	"slices"

	"github.com/AleutianAI/AleutianSuperopt/services/superopt/isa"
	"github.com/AleutianAI/AleutianSuperopt/services/superopt/program"
	"github.com/AleutianAI/AleutianSuperopt/services/superopt/vm"
)

// Generator names a family of candidate edits.
type Generator string

const (
	// GenRemove proposes removing each instruction.
	GenRemove Generator = "remove"
	// GenLoadStoreRegisters proposes every other register for each Load and Store.
	GenLoadStoreRegisters Generator = "load_store_registers"
	// GenAddCommute proposes the swapped operand order for each Add.
	GenAddCommute Generator = "add_commute"
	// GenVecAddFuse proposes a VecAdd for two adjacent independent scalar ops.
	GenVecAddFuse Generator = "vecadd_fuse"
	// GenAdjacentMove proposes moving each instruction one slot down.
	GenAdjacentMove Generator = "adjacent_move"
)

// AllGenerators lists every generator in proposal order.
var AllGenerators = []Generator{
	GenRemove, GenLoadStoreRegisters, GenAddCommute, GenVecAddFuse, GenAdjacentMove,
}

// ParseGenerators converts names to generators, rejecting unknown names.
func ParseGenerators(names []string) ([]Generator, error) {
	out := make([]Generator, 0, len(names))
	for _, n := range names {
		g := Generator(n)
		if !slices.Contains(AllGenerators, g) {
			return nil, fmt.Errorf("unknown move generator %q", n)
		}
		out = append(out, g)
	}
	return out, nil
}

// MoveSet enumerates the candidate edits of a program.
//
// Thread Safety: Safe for concurrent use (immutable after creation).
type MoveSet struct {
	generators []Generator
	registers  int
	fuseOp     isa.Opcode
}

// NewMoveSet builds a move set. registers bounds the register operands the
// generators propose; vecAdd selects which scalar opcode VecAdd fusion
// replaces.
func NewMoveSet(generators []Generator, registers int, vecAdd vm.VecAddSemantics) *MoveSet {
	fuseOp := isa.OpSub
	if vecAdd == vm.VecAddAdd {
		fuseOp = isa.OpAdd
	}
	return &MoveSet{
		generators: slices.Clone(generators),
		registers:  registers,
		fuseOp:     fuseOp,
	}
}

// RemoveOnly is the minimal move set: remove at each index.
func RemoveOnly() *MoveSet {
	return NewMoveSet([]Generator{GenRemove}, 0, vm.VecAddSubtract)
}

// Generators returns the enabled generators.
func (m *MoveSet) Generators() []Generator {
	return slices.Clone(m.generators)
}

// Next returns the distinct candidate edits of p in generator order. The
// first proposal of a duplicate action wins.
func (m *MoveSet) Next(p *program.Program) []Action {
	code := p.Instructions()
	seen := make(map[Action]struct{})
	var out []Action
	add := func(a Action) {
		if _, dup := seen[a]; dup {
			return
		}
		seen[a] = struct{}{}
		out = append(out, a)
	}

	for _, g := range m.generators {
		switch g {
		case GenRemove:
			for i := range code {
				add(Remove(i))
			}
		case GenLoadStoreRegisters:
			for i, in := range code {
				if in.Op != isa.OpLoad && in.Op != isa.OpStore {
					continue
				}
				for r := 0; r < m.registers; r++ {
					if r == in.Reg {
						continue
					}
					alt := in
					alt.Reg = r
					add(Replace(i, alt))
				}
			}
		case GenAddCommute:
			for i, in := range code {
				if in.Op == isa.OpAdd && in.RegA != in.RegB {
					add(Replace(i, isa.Add(in.RegB, in.RegA, in.Out)))
				}
			}
		case GenVecAddFuse:
			for i := 0; i+1 < len(code); i++ {
				a, b := code[i], code[i+1]
				if a.Op != m.fuseOp || b.Op != m.fuseOp || !independent(a, b) {
					continue
				}
				add(Replace(i, isa.VecAdd(a.RegA, a.RegB, a.Out, b.RegA, b.RegB, b.Out)))
			}
		case GenAdjacentMove:
			for i := 0; i+1 < len(code); i++ {
				add(Move(i, i+1))
			}
		default:
			panic(fmt.Sprintf("edit: unknown generator %q", g))
		}
	}
	return out
}

// NextMoves materializes s and returns its candidate edits.
func (m *MoveSet) NextMoves(s State, e *Editor) []Action {
	return m.Next(s.Materialize(e))
}

// independent reports whether b can run in the same step as a: b must not
// read a's result and the two must write different registers.
func independent(a, b isa.Instruction) bool {
	if a.Out == b.Out {
		return false
	}
	return !slices.Contains(b.Reads(), a.Out)
}
