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
	"sync"
	"testing"

	"github.com/AleutianAI/AleutianSuperopt/services/superopt/isa"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIDAllocator_Monotonic(t *testing.T) {
	alloc := NewIDAllocator()
	assert.Equal(t, ID(0), alloc.Next())
	assert.Equal(t, ID(1), alloc.Next())
	assert.Equal(t, ID(2), alloc.Next())
	assert.Equal(t, uint64(3), alloc.Allocated())
}

func TestIDAllocator_ConcurrentUnique(t *testing.T) {
	alloc := NewIDAllocator()

	const workers = 16
	const perWorker = 500

	var mu sync.Mutex
	seen := make(map[ID]bool, workers*perWorker)

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			local := make([]ID, 0, perWorker)
			for i := 0; i < perWorker; i++ {
				local = append(local, alloc.Next())
			}
			mu.Lock()
			defer mu.Unlock()
			for _, id := range local {
				seen[id] = true
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, workers*perWorker)
}

func TestNew_AssignsDistinctIdentities(t *testing.T) {
	alloc := NewIDAllocator()
	p := New(alloc, []isa.Instruction{isa.Var(0), isa.Var(0), isa.Output(0)})

	require.Equal(t, 3, p.Len())
	ids := map[ID]bool{}
	for i := 0; i < p.Len(); i++ {
		c, ok := p.Get(i)
		require.True(t, ok)
		ids[c.ID()] = true
	}
	assert.Len(t, ids, 3)
}

func TestProgram_Get_OutOfRange(t *testing.T) {
	p := New(NewIDAllocator(), []isa.Instruction{isa.Output(0)})

	_, ok := p.Get(1)
	assert.False(t, ok)
	_, ok = p.Get(-1)
	assert.False(t, ok)
}

func TestProgram_InsertShiftsIndices(t *testing.T) {
	alloc := NewIDAllocator()
	p := New(alloc, []isa.Instruction{isa.SetReg(0, 1), isa.Output(0)})

	p.Insert(1, alloc.NewContainer(isa.Add(0, 0, 0)))
	assert.Equal(t, []isa.Instruction{isa.SetReg(0, 1), isa.Add(0, 0, 0), isa.Output(0)}, p.Instructions())

	p.Insert(p.Len(), alloc.NewContainer(isa.Output(1)))
	assert.Equal(t, isa.Output(1), p.Instructions()[3])

	p.Insert(0, alloc.NewContainer(isa.Var(9)))
	assert.Equal(t, isa.Var(9), p.Instructions()[0])
	assert.Equal(t, 5, p.Len())
}

func TestProgram_Insert_PastEndPanics(t *testing.T) {
	alloc := NewIDAllocator()
	p := New(alloc, []isa.Instruction{isa.Output(0)})
	assert.Panics(t, func() { p.Insert(2, alloc.NewContainer(isa.Output(0))) })
}

func TestProgram_Remove(t *testing.T) {
	p := New(NewIDAllocator(), []isa.Instruction{isa.Var(0), isa.SetReg(0, 2), isa.Output(0)})

	got := p.Remove(1)
	assert.Equal(t, isa.SetReg(0, 2), got)
	assert.Equal(t, []isa.Instruction{isa.Var(0), isa.Output(0)}, p.Instructions())
	assert.Panics(t, func() { p.Remove(2) })
}

func TestProgram_CloneKeepsIdentities(t *testing.T) {
	p := New(NewIDAllocator(), []isa.Instruction{isa.Var(0), isa.Output(0)})
	c := p.Clone()

	assert.True(t, p.Equal(c))
	assert.Equal(t, p.Fingerprint(), c.Fingerprint())

	c.Remove(0)
	assert.Equal(t, 2, p.Len(), "clone edits must not leak into the original")
	assert.False(t, p.Equal(c))
}

func TestProgram_EqualityIsByIdentity(t *testing.T) {
	alloc := NewIDAllocator()
	code := []isa.Instruction{isa.Var(0), isa.Output(0)}
	a := New(alloc, code)
	b := New(alloc, code)

	assert.Equal(t, a.Instructions(), b.Instructions())
	assert.False(t, a.Equal(b), "same instructions, different identities")
	assert.NotEqual(t, a.Fingerprint(), b.Fingerprint())
}

func TestProgram_String(t *testing.T) {
	p := New(NewIDAllocator(), []isa.Instruction{isa.Var(0), isa.Output(0)})
	assert.Equal(t, "Var(0)\nOutput(0)", p.String())
	assert.Equal(t, "", (&Program{}).String())
}
