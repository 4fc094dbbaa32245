// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// NewBootTool creates the boot tool definition
func NewBootTool() mcp.Tool {
	return mcp.NewTool("boot",
		mcp.WithDescription("Load the identity working set for a new session: every identity memory plus the memories anchored at the core boot URIs and any extras listed at system://boot."),
	)
}

// BootHandler handles the boot tool
func BootHandler(ctx *ToolContext) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(c context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		result, err := ctx.Engine.Boot(ctx.AgentID)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("boot failed: %v", err)), nil
		}
		return jsonResult(result), nil
	}
}
