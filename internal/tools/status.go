// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// lowVitalityCutoff is where status starts counting memories as fading.
const lowVitalityCutoff = 0.1

// StatusResponse summarizes the store for one agent.
type StatusResponse struct {
	AgentID     string           `json:"agent_id"`
	Memories    int64            `json:"memories"`
	ByType      map[string]int64 `json:"by_type"`
	ByPriority  map[string]int64 `json:"by_priority"`
	Paths       int64            `json:"paths"`
	Links       int64            `json:"links"`
	Snapshots   int64            `json:"snapshots"`
	LowVitality int64            `json:"low_vitality"`
}

// NewStatusTool creates the status tool definition
func NewStatusTool() mcp.Tool {
	return mcp.NewTool("status",
		mcp.WithDescription("Summarize the memory store: counts by type and priority, path/link/snapshot totals, and how many memories are fading."),
	)
}

// StatusHandler handles the status tool
func StatusHandler(ctx *ToolContext) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(c context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		db := ctx.Store.DB()
		response := StatusResponse{
			AgentID:    ctx.AgentID,
			ByType:     map[string]int64{},
			ByPriority: map[string]int64{},
		}

		if err := db.Raw(`SELECT COUNT(*) FROM memories WHERE agent_id = ?`, ctx.AgentID).
			Scan(&response.Memories).Error; err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("status query failed: %v", err)), nil
		}

		var typeRows []struct {
			Type  string
			Count int64
		}
		if err := db.Raw(`SELECT type, COUNT(*) AS count FROM memories WHERE agent_id = ? GROUP BY type`,
			ctx.AgentID).Scan(&typeRows).Error; err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("status query failed: %v", err)), nil
		}
		for _, row := range typeRows {
			response.ByType[row.Type] = row.Count
		}

		var prioRows []struct {
			Priority int
			Count    int64
		}
		if err := db.Raw(`SELECT priority, COUNT(*) AS count FROM memories WHERE agent_id = ? GROUP BY priority`,
			ctx.AgentID).Scan(&prioRows).Error; err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("status query failed: %v", err)), nil
		}
		for _, row := range prioRows {
			response.ByPriority[fmt.Sprintf("%d", row.Priority)] = row.Count
		}

		counts := []struct {
			query string
			dest  *int64
		}{
			{`SELECT COUNT(*) FROM paths WHERE agent_id = ?`, &response.Paths},
			{`SELECT COUNT(*) FROM links WHERE agent_id = ?`, &response.Links},
			{`SELECT COUNT(*) FROM snapshots s JOIN memories m ON m.id = s.memory_id WHERE m.agent_id = ?`, &response.Snapshots},
		}
		for _, cq := range counts {
			if err := db.Raw(cq.query, ctx.AgentID).Scan(cq.dest).Error; err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("status query failed: %v", err)), nil
			}
		}

		if err := db.Raw(`SELECT COUNT(*) FROM memories WHERE agent_id = ? AND vitality < ?`,
			ctx.AgentID, lowVitalityCutoff).Scan(&response.LowVitality).Error; err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("status query failed: %v", err)), nil
		}

		return jsonResult(response), nil
	}
}
