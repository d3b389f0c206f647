// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package program holds the instruction container and the editable
// program representation the VM executes.
package program

import (
	"sync/atomic"

	"github.com/AleutianAI/AleutianSuperopt/services/superopt/isa"
)

// ID is the identity of one instruction instance. It is assigned once when
// the container is built and survives copies, so the VM can attribute
// execution counts to an instruction regardless of its current position.
type ID uint64

// IDAllocator hands out instruction identities. Identities are never
// reused for the lifetime of an allocator.
//
// Thread Safety: Safe for concurrent use.
type IDAllocator struct {
	next atomic.Uint64
}

// NewIDAllocator creates an allocator starting at identity 0.
func NewIDAllocator() *IDAllocator {
	return &IDAllocator{}
}

// Next returns a fresh identity.
func (a *IDAllocator) Next() ID {
	return ID(a.next.Add(1) - 1)
}

// Allocated returns how many identities have been handed out.
func (a *IDAllocator) Allocated() uint64 {
	return a.next.Load()
}

// NewContainer wraps code with a fresh identity.
func (a *IDAllocator) NewContainer(code isa.Instruction) Container {
	return Container{id: a.Next(), code: code}
}

// Container is an instruction together with its identity. Two containers
// are equal only if both identity and instruction match.
type Container struct {
	id   ID
	code isa.Instruction
}

// ID returns the container identity.
func (c Container) ID() ID {
	return c.id
}

// Code returns the wrapped instruction.
func (c Container) Code() isa.Instruction {
	return c.code
}

// Cost returns the static weight of the wrapped instruction.
func (c Container) Cost() int {
	return c.code.Cost()
}
