// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// NewSnapshotTool creates the snapshot tool definition
func NewSnapshotTool() mcp.Tool {
	return mcp.NewTool("snapshot",
		mcp.WithDescription("Inspect or restore a memory's history: list its snapshots, or roll the memory back to a prior snapshot (the current content is snapshotted first)."),
		mcp.WithString("action",
			mcp.Required(),
			mcp.Description("One of: list, rollback"),
		),
		mcp.WithString("memory_id",
			mcp.Description("Memory whose history to list (list)"),
		),
		mcp.WithString("snapshot_id",
			mcp.Description("Snapshot to restore (rollback)"),
		),
	)
}

// SnapshotHandler handles the snapshot tool
func SnapshotHandler(ctx *ToolContext) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(c context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		action, err := request.RequireString("action")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		switch action {
		case "list":
			memoryID := request.GetString("memory_id", "")
			if memoryID == "" {
				return mcp.NewToolResultError("list requires memory_id"), nil
			}
			snaps, err := ctx.Store.ListSnapshots(ctx.AgentID, memoryID, 0)
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("failed to list snapshots: %v", err)), nil
			}
			return jsonResult(snaps), nil

		case "rollback":
			snapshotID := request.GetString("snapshot_id", "")
			if snapshotID == "" {
				return mcp.NewToolResultError("rollback requires snapshot_id"), nil
			}
			if err := ctx.Engine.Store().RollbackSnapshot(ctx.AgentID, snapshotID); err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("rollback failed: %v", err)), nil
			}
			return mcp.NewToolResultText(fmt.Sprintf("Restored snapshot %s", snapshotID)), nil

		default:
			return mcp.NewToolResultError(fmt.Sprintf("unknown action %q: expected list or rollback", action)), nil
		}
	}
}
