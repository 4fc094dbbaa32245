// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package tools

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/smysle/agent-memory/internal/database"
	"github.com/smysle/agent-memory/internal/memory"
)

// softForgetFactor is the vitality multiplier for a soft forget.
const softForgetFactor = 0.1

// ForgetResponse is the forget tool payload.
type ForgetResponse struct {
	MemoryID string  `json:"memory_id"`
	Hard     bool    `json:"hard"`
	Vitality float64 `json:"vitality,omitempty"`
}

// NewForgetTool creates the forget tool definition
func NewForgetTool() mcp.Tool {
	return mcp.NewTool("forget",
		mcp.WithDescription("Forget a memory. A soft forget collapses its vitality so it fades from retrieval; a hard forget snapshots the content and deletes the memory outright."),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Memory id to forget"),
		),
		mcp.WithBoolean("hard",
			mcp.Description("Delete instead of fading. Default false"),
		),
	)
}

// ForgetHandler handles the forget tool
func ForgetHandler(ctx *ToolContext) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(c context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := request.RequireString("id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		hard := request.GetBool("hard", false)

		mem, err := ctx.Store.GetMemory(ctx.AgentID, id)
		if errors.Is(err, memory.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("memory %s not found", id)), nil
		}
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("lookup failed: %v", err)), nil
		}

		if hard {
			if _, err := ctx.Store.CreateSnapshot(mem.ID, mem.Content, "forget", database.ActionDelete); err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("failed to snapshot before delete: %v", err)), nil
			}
			if err := ctx.Store.DeleteMemory(ctx.AgentID, mem.ID); err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("failed to delete memory: %v", err)), nil
			}
			return jsonResult(ForgetResponse{MemoryID: mem.ID, Hard: true}), nil
		}

		// The vitality floor still holds: a soft forget cannot push a memory
		// below what its priority guarantees.
		vitality := math.Max(database.VitalityFloor(mem.Priority), mem.Vitality*softForgetFactor)
		if err := ctx.Store.UpdateMemory(ctx.AgentID, mem.ID, memory.MemoryUpdate{Vitality: &vitality}); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to fade memory: %v", err)), nil
		}
		return jsonResult(ForgetResponse{MemoryID: mem.ID, Hard: false, Vitality: vitality}), nil
	}
}
