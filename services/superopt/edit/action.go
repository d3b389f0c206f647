// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package edit models program edits and the lazily materialised search
// states built from them.
package edit

import (
	"fmt"

	"github.com/AleutianAI/AleutianSuperopt/services/superopt/isa"
)

// ActionKind selects the edit an Action performs.
type ActionKind uint8

const (
	ActionNothing ActionKind = iota
	ActionRemove
	ActionReplace
	ActionAdd
	ActionMove
)

// String returns the kind name.
func (k ActionKind) String() string {
	switch k {
	case ActionNothing:
		return "Nothing"
	case ActionRemove:
		return "Remove"
	case ActionReplace:
		return "Replace"
	case ActionAdd:
		return "Add"
	case ActionMove:
		return "Move"
	default:
		return fmt.Sprintf("ActionKind(%d)", uint8(k))
	}
}

// Action is a single edit against a program. Actions are comparable; two
// actions are the same edit iff kind, positions and instruction match.
//
// Field usage per kind:
//
//	Remove   Index
//	Replace  Index, Code
//	Add      Index, Code
//	Move     Index (from), To
//	Nothing  -
type Action struct {
	Kind  ActionKind
	Index int
	To    int
	Code  isa.Instruction
}

// Nothing returns the identity edit.
func Nothing() Action {
	return Action{Kind: ActionNothing}
}

// Remove deletes the instruction at index.
func Remove(index int) Action {
	return Action{Kind: ActionRemove, Index: index}
}

// Replace puts code at index. See Editor for how the original instruction
// is treated.
func Replace(index int, code isa.Instruction) Action {
	return Action{Kind: ActionReplace, Index: index, Code: code}
}

// Add inserts code at index.
func Add(index int, code isa.Instruction) Action {
	return Action{Kind: ActionAdd, Index: index, Code: code}
}

// Move removes the instruction at from and reinserts it at to. The
// reinserted instruction gets a new identity.
func Move(from, to int) Action {
	return Action{Kind: ActionMove, Index: from, To: to}
}

// String renders the action.
func (a Action) String() string {
	switch a.Kind {
	case ActionNothing:
		return "Nothing"
	case ActionRemove:
		return fmt.Sprintf("Remove(%d)", a.Index)
	case ActionReplace, ActionAdd:
		return fmt.Sprintf("%s(%d, %s)", a.Kind, a.Index, a.Code)
	case ActionMove:
		return fmt.Sprintf("Move(%d, %d)", a.Index, a.To)
	default:
		return a.Kind.String()
	}
}
