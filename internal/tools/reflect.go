// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/smysle/agent-memory/internal/sleep"
)

// ReflectResponse aggregates per-phase counters.
type ReflectResponse struct {
	Decay  *sleep.DecayReport  `json:"decay,omitempty"`
	Tidy   *sleep.TidyReport   `json:"tidy,omitempty"`
	Govern *sleep.GovernReport `json:"govern,omitempty"`
}

// NewReflectTool creates the reflect tool definition
func NewReflectTool() mcp.Tool {
	return mcp.NewTool("reflect",
		mcp.WithDescription("Run maintenance over the store: decay ages vitality along the forgetting curve, tidy archives spent transient memories and prunes history, govern sweeps integrity. 'all' chains the three in order."),
		mcp.WithString("phase",
			mcp.Required(),
			mcp.Description("One of: decay, tidy, govern, all"),
		),
	)
}

// ReflectHandler handles the reflect tool
func ReflectHandler(ctx *ToolContext) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(c context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		phase, err := request.RequireString("phase")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		response := ReflectResponse{}
		tidyOpts := sleep.TidyOptions{
			Threshold:             ctx.TidyThreshold,
			MaxSnapshotsPerMemory: ctx.MaxSnapshots,
		}

		switch phase {
		case "decay":
			response.Decay, err = ctx.Engine.Decay(ctx.AgentID)
		case "tidy":
			response.Tidy, err = ctx.Engine.Tidy(ctx.AgentID, tidyOpts)
		case "govern":
			response.Govern, err = ctx.Engine.Govern(ctx.AgentID)
		case "all":
			if response.Decay, err = ctx.Engine.Decay(ctx.AgentID); err != nil {
				break
			}
			if response.Tidy, err = ctx.Engine.Tidy(ctx.AgentID, tidyOpts); err != nil {
				break
			}
			response.Govern, err = ctx.Engine.Govern(ctx.AgentID)
		default:
			return mcp.NewToolResultError(fmt.Sprintf("unknown phase %q: expected decay, tidy, govern, or all", phase)), nil
		}

		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("%s phase failed: %v", phase, err)), nil
		}
		return jsonResult(response), nil
	}
}
