// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/smysle/agent-memory/internal/graph"
)

// NewLinkTool creates the link tool definition
func NewLinkTool() mcp.Tool {
	return mcp.NewTool("link",
		mcp.WithDescription("Work with the edges between memories: create a typed link, list a memory's links, or traverse the link graph breadth-first."),
		mcp.WithString("action",
			mcp.Required(),
			mcp.Description("One of: create, query, traverse"),
		),
		mcp.WithString("source_id",
			mcp.Description("Source memory id (create)"),
		),
		mcp.WithString("target_id",
			mcp.Description("Target memory id (create)"),
		),
		mcp.WithString("relation",
			mcp.Description("Edge type: related, caused, reminds, evolved, contradicts. Default related"),
		),
		mcp.WithNumber("weight",
			mcp.Description("Edge weight. Default 1.0"),
		),
		mcp.WithString("memory_id",
			mcp.Description("Memory id to list links for (query) or start from (traverse)"),
		),
		mcp.WithNumber("max_hops",
			mcp.Description("Traversal depth. Default 2"),
		),
	)
}

// LinkHandler handles the link tool
func LinkHandler(ctx *ToolContext) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(c context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		action, err := request.RequireString("action")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		switch action {
		case "create":
			sourceID := request.GetString("source_id", "")
			targetID := request.GetString("target_id", "")
			if sourceID == "" || targetID == "" {
				return mcp.NewToolResultError("create requires source_id and target_id"), nil
			}
			link, err := ctx.Store.CreateLink(ctx.AgentID, sourceID, targetID,
				request.GetString("relation", ""), request.GetFloat("weight", 0))
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("failed to create link: %v", err)), nil
			}
			return jsonResult(link), nil

		case "query":
			memoryID := request.GetString("memory_id", "")
			if memoryID == "" {
				return mcp.NewToolResultError("query requires memory_id"), nil
			}
			if _, err := ctx.Store.GetMemory(ctx.AgentID, memoryID); err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("memory %s not found", memoryID)), nil
			}
			links, err := ctx.Store.ListLinks(ctx.AgentID, memoryID)
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("failed to list links: %v", err)), nil
			}
			return jsonResult(links), nil

		case "traverse":
			memoryID := request.GetString("memory_id", "")
			if memoryID == "" {
				return mcp.NewToolResultError("traverse requires memory_id"), nil
			}
			nodes, err := graph.Traverse(ctx.Store, ctx.AgentID, memoryID,
				int(request.GetFloat("max_hops", 0)))
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("traversal failed: %v", err)), nil
			}
			return jsonResult(nodes), nil

		default:
			return mcp.NewToolResultError(fmt.Sprintf("unknown action %q: expected create, query, or traverse", action)), nil
		}
	}
}
