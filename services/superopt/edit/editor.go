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

	"github.com/AleutianAI/AleutianSuperopt/services/superopt/program"
)

// Editor applies actions to programs, allocating identities for every
// instruction it inserts.
//
// By default Replace inserts the new instruction at the index and leaves
// the original in place (shifted one slot right), so it behaves like Add.
// WithStrictReplace makes Replace also remove the original. See DESIGN.md
// for the open question on which behaviour is intended.
//
// Thread Safety: Safe for concurrent use if the allocator is.
type Editor struct {
	alloc         *program.IDAllocator
	strictReplace bool
}

// EditorOption configures an Editor.
type EditorOption func(*Editor)

// WithStrictReplace makes Replace overwrite the instruction at the index.
func WithStrictReplace(strict bool) EditorOption {
	return func(e *Editor) {
		e.strictReplace = strict
	}
}

// NewEditor creates an editor drawing identities from alloc.
func NewEditor(alloc *program.IDAllocator, opts ...EditorOption) *Editor {
	e := &Editor{alloc: alloc}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Allocator returns the identity allocator.
func (e *Editor) Allocator() *program.IDAllocator {
	return e.alloc
}

// StrictReplace reports whether Replace removes the original instruction.
func (e *Editor) StrictReplace() bool {
	return e.strictReplace
}

// Apply returns a new program with a applied to p. p is not modified.
// Out-of-range positions are a caller error and panic.
func (e *Editor) Apply(p *program.Program, a Action) *program.Program {
	out := p.Clone()
	e.applyInPlace(out, a)
	return out
}

// ApplyChain folds chain over p, returning the resulting program.
func (e *Editor) ApplyChain(p *program.Program, chain []Action) *program.Program {
	out := p.Clone()
	for _, a := range chain {
		e.applyInPlace(out, a)
	}
	return out
}

func (e *Editor) applyInPlace(p *program.Program, a Action) {
	switch a.Kind {
	case ActionNothing:
	case ActionRemove:
		p.Remove(a.Index)
	case ActionAdd:
		p.Insert(a.Index, e.alloc.NewContainer(a.Code))
	case ActionReplace:
		p.Insert(a.Index, e.alloc.NewContainer(a.Code))
		if e.strictReplace {
			p.Remove(a.Index + 1)
		}
	case ActionMove:
		code := p.Remove(a.Index)
		p.Insert(a.To, e.alloc.NewContainer(code))
	default:
		panic(fmt.Sprintf("edit: unknown action kind %d", a.Kind))
	}
}
