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
	"testing"

	"github.com/AleutianAI/AleutianSuperopt/services/superopt/isa"
	"github.com/AleutianAI/AleutianSuperopt/services/superopt/program"
	"github.com/AleutianAI/AleutianSuperopt/services/superopt/vm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seed(alloc *program.IDAllocator) *program.Program {
	return program.New(alloc, []isa.Instruction{
		isa.SetReg(0, 1),
		isa.SetReg(1, 2),
		isa.Add(0, 1, 2),
		isa.Output(2),
	})
}

func TestAction_Equality(t *testing.T) {
	assert.Equal(t, Remove(1), Remove(1))
	assert.NotEqual(t, Remove(1), Remove(2))
	assert.NotEqual(t, Add(0, isa.Output(0)), Replace(0, isa.Output(0)))
	assert.NotEqual(t, Add(0, isa.Output(0)), Add(0, isa.Output(1)))

	set := map[Action]int{Move(0, 1): 1}
	_, ok := set[Move(0, 1)]
	assert.True(t, ok)
	_, ok = set[Move(1, 0)]
	assert.False(t, ok)
}

func TestAction_String(t *testing.T) {
	assert.Equal(t, "Nothing", Nothing().String())
	assert.Equal(t, "Remove(3)", Remove(3).String())
	assert.Equal(t, "Replace(1, Output(0))", Replace(1, isa.Output(0)).String())
	assert.Equal(t, "Add(0, Var(2))", Add(0, isa.Var(2)).String())
	assert.Equal(t, "Move(0, 2)", Move(0, 2).String())
}

func TestEditor_ApplyDoesNotMutateInput(t *testing.T) {
	alloc := program.NewIDAllocator()
	p := seed(alloc)
	before := p.Clone()

	e := NewEditor(alloc)
	out := e.Apply(p, Remove(0))

	assert.True(t, p.Equal(before))
	assert.Equal(t, 3, out.Len())
}

func TestEditor_Apply(t *testing.T) {
	tests := []struct {
		name   string
		action Action
		strict bool
		want   []isa.Instruction
	}{
		{
			name:   "nothing",
			action: Nothing(),
			want:   []isa.Instruction{isa.SetReg(0, 1), isa.SetReg(1, 2), isa.Add(0, 1, 2), isa.Output(2)},
		},
		{
			name:   "remove",
			action: Remove(1),
			want:   []isa.Instruction{isa.SetReg(0, 1), isa.Add(0, 1, 2), isa.Output(2)},
		},
		{
			name:   "add",
			action: Add(4, isa.Output(0)),
			want:   []isa.Instruction{isa.SetReg(0, 1), isa.SetReg(1, 2), isa.Add(0, 1, 2), isa.Output(2), isa.Output(0)},
		},
		{
			name:   "replace keeps original",
			action: Replace(2, isa.Sub(0, 1, 2)),
			want:   []isa.Instruction{isa.SetReg(0, 1), isa.SetReg(1, 2), isa.Sub(0, 1, 2), isa.Add(0, 1, 2), isa.Output(2)},
		},
		{
			name:   "strict replace overwrites",
			action: Replace(2, isa.Sub(0, 1, 2)),
			strict: true,
			want:   []isa.Instruction{isa.SetReg(0, 1), isa.SetReg(1, 2), isa.Sub(0, 1, 2), isa.Output(2)},
		},
		{
			name:   "move swaps neighbours",
			action: Move(0, 1),
			want:   []isa.Instruction{isa.SetReg(1, 2), isa.SetReg(0, 1), isa.Add(0, 1, 2), isa.Output(2)},
		},
		{
			name:   "move to end",
			action: Move(0, 3),
			want:   []isa.Instruction{isa.SetReg(1, 2), isa.Add(0, 1, 2), isa.Output(2), isa.SetReg(0, 1)},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			alloc := program.NewIDAllocator()
			e := NewEditor(alloc, WithStrictReplace(tt.strict))
			out := e.Apply(seed(alloc), tt.action)
			assert.Equal(t, tt.want, out.Instructions())
		})
	}
}

func TestEditor_IdentityHandling(t *testing.T) {
	alloc := program.NewIDAllocator()
	p := seed(alloc)
	e := NewEditor(alloc)

	moved := e.Apply(p, Move(0, 1))
	orig, _ := p.Get(0)
	got, _ := moved.Get(1)
	assert.Equal(t, orig.Code(), got.Code())
	assert.NotEqual(t, orig.ID(), got.ID(), "moved instruction gets a new identity")

	removed := e.Apply(p, Remove(0))
	kept, _ := removed.Get(0)
	second, _ := p.Get(1)
	assert.Equal(t, second.ID(), kept.ID(), "untouched instructions keep their identity")
}

func TestEditor_OutOfRangePanics(t *testing.T) {
	alloc := program.NewIDAllocator()
	e := NewEditor(alloc)
	assert.Panics(t, func() { e.Apply(seed(alloc), Remove(4)) })
	assert.Panics(t, func() { e.Apply(seed(alloc), Add(5, isa.Output(0))) })
}

func TestState_LazyChain(t *testing.T) {
	alloc := program.NewIDAllocator()
	base := seed(alloc)
	e := NewEditor(alloc)

	root := NewState(base)
	child := root.Then(Remove(3))
	grandchild := child.Then(Add(0, isa.Var(0)))

	assert.Equal(t, 0, root.Depth())
	assert.Equal(t, 1, child.Depth())
	assert.Equal(t, []Action{Remove(3), Add(0, isa.Var(0))}, grandchild.Chain())

	before := alloc.Allocated()
	_ = grandchild.Chain()
	assert.Equal(t, before, alloc.Allocated(), "building states must not materialize")

	got := grandchild.Materialize(e)
	assert.Equal(t, []isa.Instruction{isa.Var(0), isa.SetReg(0, 1), isa.SetReg(1, 2), isa.Add(0, 1, 2)}, got.Instructions())
	assert.Equal(t, 4, base.Len(), "base program is never edited")
}

func TestState_ThenDoesNotAlias(t *testing.T) {
	s := NewState(seed(program.NewIDAllocator())).Then(Remove(0))
	a := s.Then(Remove(1))
	b := s.Then(Remove(2))

	assert.Equal(t, []Action{Remove(0), Remove(1)}, a.Chain())
	assert.Equal(t, []Action{Remove(0), Remove(2)}, b.Chain())
}

func TestState_Execute(t *testing.T) {
	alloc := program.NewIDAllocator()
	e := NewEditor(alloc)
	m := vm.New(3)

	x, err := NewState(seed(alloc)).Execute(e, m)
	require.NoError(t, err)
	assert.Equal(t, []string{"Register: 2 = 3"}, x.Output())
	assert.Equal(t, 4, x.Cost())
	assert.Equal(t, 4, x.Program().Len())

	_, err = NewState(seed(alloc)).Then(Add(0, isa.Load(0, 9))).Execute(e, m)
	assert.ErrorIs(t, err, vm.ErrVariableNotFound)
}
