// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/smysle/agent-memory/internal/database"
	"github.com/smysle/agent-memory/internal/graph"
)

// PathHit pairs a URI with the memory behind it.
type PathHit struct {
	URI    string           `json:"uri"`
	Memory *database.Memory `json:"memory"`
}

// NeighborHit is a traversal result hydrated to its memory.
type NeighborHit struct {
	Memory   *database.Memory `json:"memory"`
	Hop      int              `json:"hop"`
	Relation string           `json:"relation"`
}

// RecallPathResponse is the recall_path tool payload.
type RecallPathResponse struct {
	Exact     *PathHit      `json:"exact,omitempty"`
	Neighbors []NeighborHit `json:"neighbors,omitempty"`
	Matches   []PathHit     `json:"matches,omitempty"`
}

// NewRecallPathTool creates the recall_path tool definition
func NewRecallPathTool() mcp.Tool {
	return mcp.NewTool("recall_path",
		mcp.WithDescription("Retrieve a memory by its URI anchor. An exact match returns the memory (optionally with linked neighbors); otherwise the URI is treated as a prefix and all anchored memories under it are listed."),
		mcp.WithString("uri",
			mcp.Required(),
			mcp.Description("Exact URI or prefix. Example: 'core://agent/identity' or 'knowledge://project'"),
		),
		mcp.WithNumber("traverse_hops",
			mcp.Description("When set on an exact match, include memories reachable within this many link hops"),
		),
	)
}

// RecallPathHandler handles the recall_path tool
func RecallPathHandler(ctx *ToolContext) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(c context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		uri, err := request.RequireString("uri")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		hops := int(request.GetFloat("traverse_hops", 0))

		path, err := ctx.Store.GetPathByURI(ctx.AgentID, uri)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("path lookup failed: %v", err)), nil
		}

		if path != nil {
			mem, err := ctx.Store.GetMemory(ctx.AgentID, path.MemoryID)
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("memory behind %s not found", uri)), nil
			}

			response := RecallPathResponse{Exact: &PathHit{URI: uri, Memory: mem}}
			if hops > 0 {
				nodes, err := graph.Traverse(ctx.Store, ctx.AgentID, mem.ID, hops)
				if err != nil {
					return mcp.NewToolResultError(fmt.Sprintf("traversal failed: %v", err)), nil
				}
				for _, node := range nodes {
					neighbor, err := ctx.Store.GetMemory(ctx.AgentID, node.ID)
					if err != nil {
						continue
					}
					response.Neighbors = append(response.Neighbors, NeighborHit{
						Memory:   neighbor,
						Hop:      node.Hop,
						Relation: node.Relation,
					})
				}
			}
			return jsonResult(response), nil
		}

		// No exact anchor: fall back to prefix listing.
		paths, err := ctx.Store.ListPathsByPrefix(ctx.AgentID, uri, 50)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("path lookup failed: %v", err)), nil
		}
		if len(paths) == 0 {
			return mcp.NewToolResultError(fmt.Sprintf("no memory anchored at %s", uri)), nil
		}

		response := RecallPathResponse{}
		for _, p := range paths {
			mem, err := ctx.Store.GetMemory(ctx.AgentID, p.MemoryID)
			if err != nil {
				continue
			}
			response.Matches = append(response.Matches, PathHit{URI: p.URI, Memory: mem})
		}
		return jsonResult(response), nil
	}
}
