// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package graph walks the link relation between memories. The links table
// is the adjacency list; nothing is materialized beyond the visit set.
package graph

import (
	"github.com/smysle/agent-memory/internal/memory"
)

// maxHopsLimit is the traversal safety cap.
const maxHopsLimit = 5

// DefaultMaxHops bounds traversal when the caller doesn't say.
const DefaultMaxHops = 2

// Node is one reachable memory: its id, the hop distance from the start,
// and the relation of the first edge followed to reach it.
type Node struct {
	ID       string `json:"id"`
	Hop      int    `json:"hop"`
	Relation string `json:"relation"`
}

// Traverse breadth-first walks both outgoing and incoming edges from start,
// bounded to one agent and maxHops levels. The start node itself is not
// included in the result, and no node is visited twice.
func Traverse(store *memory.Store, agentID, startID string, maxHops int) ([]Node, error) {
	if maxHops <= 0 {
		maxHops = DefaultMaxHops
	}
	if maxHops > maxHopsLimit {
		maxHops = maxHopsLimit
	}

	if _, err := store.GetMemory(agentID, startID); err != nil {
		return nil, err
	}

	type queueItem struct {
		id  string
		hop int
	}

	visited := map[string]bool{startID: true}
	queue := []queueItem{{startID, 0}}
	var nodes []Node

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		if current.hop >= maxHops {
			continue
		}

		links, err := store.ListLinks(agentID, current.id)
		if err != nil {
			return nil, err
		}

		for _, link := range links {
			neighbor := link.TargetID
			if neighbor == current.id {
				neighbor = link.SourceID
			}
			if visited[neighbor] {
				continue
			}
			visited[neighbor] = true

			nodes = append(nodes, Node{
				ID:       neighbor,
				Hop:      current.hop + 1,
				Relation: link.Relation,
			})
			queue = append(queue, queueItem{neighbor, current.hop + 1})
		}
	}

	return nodes, nil
}
