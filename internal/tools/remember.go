// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/smysle/agent-memory/internal/guard"
	"github.com/smysle/agent-memory/internal/sleep"
)

// NewRememberTool creates the remember tool definition
func NewRememberTool() mcp.Tool {
	return mcp.NewTool("remember",
		mcp.WithDescription("Store information in memory. Duplicate content is skipped, a known URI updates the memory behind it, and highly similar content of the same type is merged. Returns the decision and the affected memory id."),
		mcp.WithString("content",
			mcp.Required(),
			mcp.Description("The information to remember"),
		),
		mcp.WithString("type",
			mcp.Required(),
			mcp.Description("Memory lifecycle type: identity, emotion, knowledge, or event"),
		),
		mcp.WithString("uri",
			mcp.Description("Optional stable anchor. Example: 'knowledge://project/deploy-steps'"),
		),
		mcp.WithNumber("emotion_val",
			mcp.Description("Emotional valence in [-1.0, 1.0]. Default 0"),
		),
		mcp.WithString("source",
			mcp.Description("Free-form origin tag"),
		),
	)
}

// RememberHandler handles the remember tool
func RememberHandler(ctx *ToolContext) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(c context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		content, err := request.RequireString("content")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		memType, err := request.RequireString("type")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		input := sleep.SyncInput{
			Content:    content,
			Type:       memType,
			URI:        request.GetString("uri", ""),
			EmotionVal: request.GetFloat("emotion_val", 0),
			Source:     request.GetString("source", ""),
		}

		result, err := ctx.Engine.Sync(ctx.AgentID, input)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to store memory: %v", err)), nil
		}

		// Embeddings ride behind the write; their absence never blocks it.
		if result.MemoryID != "" && result.Action != guard.ActionSkip {
			if mem, err := ctx.Store.GetMemory(ctx.AgentID, result.MemoryID); err == nil {
				ctx.EmbeddingService.EmbedMemoryBestEffort(c, ctx.AgentID, mem.ID, mem.Content)
			}
		}

		return jsonResult(result), nil
	}
}
