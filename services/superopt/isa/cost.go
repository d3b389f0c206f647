// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package isa

import "fmt"

// Static per-opcode weights. Cost is charged once per executed instruction,
// so loop iterations pay again on every pass.
const (
	CostArith  = 1
	CostMemory = 2
	CostBranch = 10
)

// Cost returns the static weight of the opcode.
func (o Opcode) Cost() int {
	switch o {
	case OpAdd, OpSub, OpVar, OpSetReg, OpOutput, OpVecAdd:
		return CostArith
	case OpLoad, OpStore:
		return CostMemory
	case OpPCSetIfNotZero:
		return CostBranch
	default:
		panic(fmt.Sprintf("isa: no cost for opcode %d", uint8(o)))
	}
}

// Cost returns the static weight of the instruction.
func (i Instruction) Cost() int {
	return i.Op.Cost()
}

// StaticCost sums the weights of a straight-line instruction sequence.
func StaticCost(instructions []Instruction) int {
	total := 0
	for _, in := range instructions {
		total += in.Cost()
	}
	return total
}
