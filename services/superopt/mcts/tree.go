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
	"fmt"

	"github.com/AleutianAI/AleutianSuperopt/services/superopt/edit"
)

// Tree is the search tree, stored as a flat arena. Children are referenced
// by index and kept in insertion order, which is also the UCT tie-break
// order.
//
// Thread Safety: Not safe for concurrent use. Parallel search gives every
// worker its own tree.
type Tree struct {
	nodes []node
}

// TreeStats summarises a tree.
type TreeStats struct {
	Nodes    int `json:"nodes"`
	Expanded int `json:"expanded"`
	DeadEnds int `json:"dead_ends"`
	MaxDepth int `json:"max_depth"`
}

// NewTree creates a tree whose root holds root.
func NewTree(root edit.State) *Tree {
	return &Tree{nodes: []node{{
		action: edit.Nothing(),
		parent: NoNode,
		edits:  root,
	}}}
}

// Root returns the root id.
func (t *Tree) Root() NodeID {
	return 0
}

// Len returns the number of nodes.
func (t *Tree) Len() int {
	return len(t.nodes)
}

func (t *Tree) at(id NodeID) *node {
	if id < 0 || int(id) >= len(t.nodes) {
		panic(fmt.Sprintf("mcts: node %d out of range [0, %d)", id, len(t.nodes)))
	}
	return &t.nodes[id]
}

// Visits returns the visit count of id.
func (t *Tree) Visits(id NodeID) int { return t.at(id).visits }

// Wins returns the win value of id.
func (t *Tree) Wins(id NodeID) int { return t.at(id).wins }

// State returns the lifecycle state of id.
func (t *Tree) State(id NodeID) NodeState { return t.at(id).state }

// Action returns the edit that reached id. The root carries Nothing.
func (t *Tree) Action(id NodeID) edit.Action { return t.at(id).action }

// Parent returns the parent of id, or NoNode for the root.
func (t *Tree) Parent(id NodeID) NodeID { return t.at(id).parent }

// Depth returns the distance of id from the root.
func (t *Tree) Depth(id NodeID) int { return t.at(id).depth }

// Edits returns the lazy edit state of id.
func (t *Tree) Edits(id NodeID) edit.State { return t.at(id).edits }

// Children returns a copy of the children of id in insertion order.
func (t *Tree) Children(id NodeID) []NodeID {
	c := t.at(id).children
	out := make([]NodeID, len(c))
	copy(out, c)
	return out
}

// Expand creates one child per distinct action and moves id from leaf to
// expanded. It returns the new children. Expanding a node twice panics.
func (t *Tree) Expand(id NodeID, actions []edit.Action) []NodeID {
	if t.at(id).state != NodeLeaf {
		panic(fmt.Sprintf("mcts: node %d expanded twice", id))
	}

	seen := make(map[edit.Action]struct{}, len(actions))
	created := make([]NodeID, 0, len(actions))
	for _, a := range actions {
		if _, dup := seen[a]; dup {
			continue
		}
		seen[a] = struct{}{}

		parent := t.at(id)
		child := node{
			action: a,
			parent: id,
			depth:  parent.depth + 1,
			edits:  parent.edits.Then(a),
		}
		cid := NodeID(len(t.nodes))
		t.nodes = append(t.nodes, child)
		// append may have moved the arena; re-resolve the parent.
		t.at(id).children = append(t.at(id).children, cid)
		created = append(created, cid)
	}
	t.at(id).state = NodeExpanded
	return created
}

// SelectChild returns the child of id with the highest UCT value. The
// first child in insertion order wins ties, so among unvisited children
// the earliest is chosen. It returns NoNode if id has no children.
func (t *Tree) SelectChild(id NodeID, c float64) NodeID {
	n := t.at(id)
	best := NoNode
	bestValue := 0.0
	for _, cid := range n.children {
		child := t.at(cid)
		v := uct(child.wins, child.visits, n.visits, c)
		if best == NoNode || v > bestValue {
			best, bestValue = cid, v
		}
	}
	return best
}

// Select descends from the root through expanded nodes, choosing children
// by UCT, and returns the path from the root to the node where it stopped:
// a leaf, or an expanded dead end.
func (t *Tree) Select(c float64) []NodeID {
	path := []NodeID{t.Root()}
	cur := t.Root()
	for t.at(cur).state == NodeExpanded {
		next := t.SelectChild(cur, c)
		if next == NoNode {
			break
		}
		path = append(path, next)
		cur = next
	}
	return path
}

// Backpropagate increments the visit count of every node on path and
// overwrites its win value with outcome.
func (t *Tree) Backpropagate(path []NodeID, outcome int) {
	for _, id := range path {
		n := t.at(id)
		n.visits++
		n.wins = outcome
	}
}

// Stats computes summary statistics.
func (t *Tree) Stats() TreeStats {
	s := TreeStats{Nodes: len(t.nodes)}
	for i := range t.nodes {
		n := &t.nodes[i]
		if n.state == NodeExpanded {
			s.Expanded++
			if len(n.children) == 0 {
				s.DeadEnds++
			}
		}
		if n.depth > s.MaxDepth {
			s.MaxDepth = n.depth
		}
	}
	return s
}
