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

	"github.com/m1gwings/treedrawer/tree"
)

// Render draws the top depth levels of the tree below the root. Each node
// shows its edit and wins/visits. Only visited children are drawn; the
// unvisited ones of a node are folded into a single "+N unvisited" entry.
func (t *Tree) Render(depth int) string {
	root := tree.NewTree(tree.NodeString(t.label(t.Root())))
	t.draw(root, t.Root(), depth)
	return root.String()
}

func (t *Tree) draw(dst *tree.Tree, id NodeID, depth int) {
	if depth <= 0 {
		return
	}
	unvisited := 0
	for _, cid := range t.at(id).children {
		if t.at(cid).visits == 0 {
			unvisited++
			continue
		}
		child := dst.AddChild(tree.NodeString(t.label(cid)))
		t.draw(child, cid, depth-1)
	}
	if unvisited > 0 {
		dst.AddChild(tree.NodeString(fmt.Sprintf("+%d unvisited", unvisited)))
	}
}

func (t *Tree) label(id NodeID) string {
	n := t.at(id)
	name := n.action.String()
	if id == t.Root() {
		name = "root"
	}
	if n.state == NodeExpanded && len(n.children) == 0 {
		name += " (dead end)"
	}
	return fmt.Sprintf("%s %d/%d", name, n.wins, n.visits)
}
