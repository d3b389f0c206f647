// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package program

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/AleutianAI/AleutianSuperopt/services/superopt/isa"
)

// Program is an ordered, positionally addressed sequence of containers.
//
// Positions are not stable identifiers: Insert and Remove shift every
// following index, and PCSetIfNotZero targets are absolute, so structural
// edits can retarget jumps. Program does not validate jump targets.
//
// The zero value is an empty program.
type Program struct {
	items []Container
}

// New builds a program, allocating a fresh identity per instruction.
func New(alloc *IDAllocator, instructions []isa.Instruction) *Program {
	items := make([]Container, len(instructions))
	for i, in := range instructions {
		items[i] = alloc.NewContainer(in)
	}
	return &Program{items: items}
}

// FromContainers builds a program from existing containers, keeping their
// identities.
func FromContainers(containers []Container) *Program {
	items := make([]Container, len(containers))
	copy(items, containers)
	return &Program{items: items}
}

// Get returns the container at index, or false if index is out of range.
func (p *Program) Get(index int) (Container, bool) {
	if index < 0 || index >= len(p.items) {
		return Container{}, false
	}
	return p.items[index], true
}

// Len returns the number of instructions.
func (p *Program) Len() int {
	return len(p.items)
}

// Insert places c at index, shifting later instructions right.
// Index must be in [0, Len()]; anything else panics.
func (p *Program) Insert(index int, c Container) {
	if index < 0 || index > len(p.items) {
		panic(fmt.Sprintf("program: insert index %d out of range [0, %d]", index, len(p.items)))
	}
	p.items = append(p.items, Container{})
	copy(p.items[index+1:], p.items[index:])
	p.items[index] = c
}

// Remove deletes the container at index and returns its instruction.
// Index must be in [0, Len()); anything else panics.
func (p *Program) Remove(index int) isa.Instruction {
	if index < 0 || index >= len(p.items) {
		panic(fmt.Sprintf("program: remove index %d out of range [0, %d)", index, len(p.items)))
	}
	code := p.items[index].code
	p.items = append(p.items[:index], p.items[index+1:]...)
	return code
}

// Clone returns an independent copy that keeps every identity.
func (p *Program) Clone() *Program {
	return FromContainers(p.items)
}

// Containers returns a copy of the container sequence.
func (p *Program) Containers() []Container {
	out := make([]Container, len(p.items))
	copy(out, p.items)
	return out
}

// Instructions returns the instruction sequence without identities.
func (p *Program) Instructions() []isa.Instruction {
	out := make([]isa.Instruction, len(p.items))
	for i, c := range p.items {
		out[i] = c.code
	}
	return out
}

// Equal reports whether both programs hold the same (identity, instruction)
// sequence. Programs with identical instructions but different identities
// are not equal.
func (p *Program) Equal(other *Program) bool {
	if len(p.items) != len(other.items) {
		return false
	}
	for i := range p.items {
		if p.items[i] != other.items[i] {
			return false
		}
	}
	return true
}

// Fingerprint returns a SHA-256 over the (identity, instruction) sequence.
func (p *Program) Fingerprint() string {
	h := sha256.New()
	var buf [8]byte
	for _, c := range p.items {
		binary.LittleEndian.PutUint64(buf[:], uint64(c.id))
		h.Write(buf[:])
		h.Write([]byte(c.code.String()))
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// String prints one instruction per line.
func (p *Program) String() string {
	lines := make([]string, len(p.items))
	for i, c := range p.items {
		lines[i] = c.code.String()
	}
	return strings.Join(lines, "\n")
}
