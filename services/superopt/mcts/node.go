// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package mcts

import (
	"math"

	"github.com/AleutianAI/AleutianSuperopt/services/superopt/edit"
)

// NodeID indexes a node in the tree arena.
type NodeID int32

// NoNode is the parent of the root.
const NoNode NodeID = -1

// NodeState is the lifecycle state of a search node.
type NodeState uint8

const (
	// NodeLeaf nodes have not been expanded yet.
	NodeLeaf NodeState = iota
	// NodeExpanded nodes have had their children created. An expanded node
	// with no children is a dead end: its program has no candidate edits.
	NodeExpanded
)

// String returns the state name.
func (s NodeState) String() string {
	switch s {
	case NodeLeaf:
		return "leaf"
	case NodeExpanded:
		return "expanded"
	default:
		return "unknown"
	}
}

// node is one arena entry. The edit state holds the base program and the
// action chain from the root; the program itself is only built on demand.
type node struct {
	action   edit.Action
	parent   NodeID
	depth    int
	visits   int
	wins     int
	state    NodeState
	edits    edit.State
	children []NodeID
}

// uct is the selection value of a child with the given statistics.
// Unvisited children score +Inf.
func uct(wins, visits, parentVisits int, c float64) float64 {
	if visits == 0 {
		return math.Inf(1)
	}
	exploitation := float64(wins) / float64(visits)
	exploration := c * math.Sqrt(math.Log(float64(parentVisits))/float64(visits))
	return exploitation + exploration
}
