// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package isa defines the instruction set of the superoptimizer VM.
//
// An Instruction is a closed tagged value: the Op field selects the opcode
// and only the operand fields belonging to that opcode are meaningful. The
// struct is comparable, so instructions (and the edit actions embedding
// them) can be used directly as map keys.
package isa

import "fmt"

// Opcode identifies the operation an Instruction performs.
type Opcode uint8

const (
	OpAdd Opcode = iota + 1
	OpSub
	OpVar
	OpLoad
	OpStore
	OpSetReg
	OpPCSetIfNotZero
	OpOutput
	OpVecAdd
)

// Opcodes lists every opcode in declaration order.
var Opcodes = []Opcode{
	OpAdd, OpSub, OpVar, OpLoad, OpStore, OpSetReg, OpPCSetIfNotZero, OpOutput, OpVecAdd,
}

// String returns the opcode mnemonic.
func (o Opcode) String() string {
	switch o {
	case OpAdd:
		return "Add"
	case OpSub:
		return "Sub"
	case OpVar:
		return "Var"
	case OpLoad:
		return "Load"
	case OpStore:
		return "Store"
	case OpSetReg:
		return "SetReg"
	case OpPCSetIfNotZero:
		return "PCSetIfNotZero"
	case OpOutput:
		return "Output"
	case OpVecAdd:
		return "VecAdd"
	default:
		return fmt.Sprintf("Opcode(%d)", uint8(o))
	}
}

// Instruction is a single VM instruction.
//
// Operand usage per opcode:
//
//	Add, Sub        RegA, RegB -> Out
//	Var             Var
//	Load, Store     Reg <-> Var
//	SetReg          Reg = Const
//	PCSetIfNotZero  if Reg != 0 { pc = Target }
//	Output          Reg
//	VecAdd          (RegA, RegB -> Out), (RegA2, RegB2 -> Out2)
//
// Use the constructor functions rather than struct literals so unused
// operands stay zero and equality stays meaningful.
type Instruction struct {
	Op     Opcode
	RegA   int
	RegB   int
	Out    int
	RegA2  int
	RegB2  int
	Out2   int
	Reg    int
	Var    int
	Target int
	Const  int32
}

// Add returns Add{rega, regb, outreg}.
func Add(rega, regb, outreg int) Instruction {
	return Instruction{Op: OpAdd, RegA: rega, RegB: regb, Out: outreg}
}

// Sub returns Sub{rega, regb, outreg}.
func Sub(rega, regb, outreg int) Instruction {
	return Instruction{Op: OpSub, RegA: rega, RegB: regb, Out: outreg}
}

// Var returns Var(id).
func Var(id int) Instruction {
	return Instruction{Op: OpVar, Var: id}
}

// Load returns Load{register, variable}.
func Load(register, variable int) Instruction {
	return Instruction{Op: OpLoad, Reg: register, Var: variable}
}

// Store returns Store{register, variable}.
func Store(register, variable int) Instruction {
	return Instruction{Op: OpStore, Reg: register, Var: variable}
}

// SetReg returns SetReg{register, constant}.
func SetReg(register int, constant int32) Instruction {
	return Instruction{Op: OpSetReg, Reg: register, Const: constant}
}

// PCSetIfNotZero returns PCSetIfNotZero{register, jump_point}.
func PCSetIfNotZero(register, jumpPoint int) Instruction {
	return Instruction{Op: OpPCSetIfNotZero, Reg: register, Target: jumpPoint}
}

// Output returns Output(register).
func Output(register int) Instruction {
	return Instruction{Op: OpOutput, Reg: register}
}

// VecAdd returns the fused two-lane instruction
// VecAdd{a1r, b1r, r1, a2r, b2r, r2}.
func VecAdd(a1r, b1r, r1, a2r, b2r, r2 int) Instruction {
	return Instruction{
		Op:   OpVecAdd,
		RegA: a1r, RegB: b1r, Out: r1,
		RegA2: a2r, RegB2: b2r, Out2: r2,
	}
}

// Reads returns the registers the instruction reads.
func (i Instruction) Reads() []int {
	switch i.Op {
	case OpAdd, OpSub:
		return []int{i.RegA, i.RegB}
	case OpVecAdd:
		return []int{i.RegA, i.RegB, i.RegA2, i.RegB2}
	case OpStore, OpPCSetIfNotZero, OpOutput:
		return []int{i.Reg}
	case OpVar, OpLoad, OpSetReg:
		return nil
	default:
		panic(fmt.Sprintf("isa: unknown opcode %d", i.Op))
	}
}

// Writes returns the registers the instruction writes.
func (i Instruction) Writes() []int {
	switch i.Op {
	case OpAdd, OpSub:
		return []int{i.Out}
	case OpVecAdd:
		return []int{i.Out, i.Out2}
	case OpLoad, OpSetReg:
		return []int{i.Reg}
	case OpVar, OpStore, OpPCSetIfNotZero, OpOutput:
		return nil
	default:
		panic(fmt.Sprintf("isa: unknown opcode %d", i.Op))
	}
}

// String renders the instruction with its operand names.
func (i Instruction) String() string {
	switch i.Op {
	case OpAdd, OpSub:
		return fmt.Sprintf("%s{rega: %d, regb: %d, outreg: %d}", i.Op, i.RegA, i.RegB, i.Out)
	case OpVar:
		return fmt.Sprintf("Var(%d)", i.Var)
	case OpLoad, OpStore:
		return fmt.Sprintf("%s{register: %d, variable: %d}", i.Op, i.Reg, i.Var)
	case OpSetReg:
		return fmt.Sprintf("SetReg{register: %d, constant: %d}", i.Reg, i.Const)
	case OpPCSetIfNotZero:
		return fmt.Sprintf("PCSetIfNotZero{register: %d, jump_point: %d}", i.Reg, i.Target)
	case OpOutput:
		return fmt.Sprintf("Output(%d)", i.Reg)
	case OpVecAdd:
		return fmt.Sprintf("VecAdd{a1r: %d, b1r: %d, r1: %d, a2r: %d, b2r: %d, r2: %d}",
			i.RegA, i.RegB, i.Out, i.RegA2, i.RegB2, i.Out2)
	default:
		return fmt.Sprintf("Invalid(%d)", uint8(i.Op))
	}
}
