// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package tools

import (
	"context"
	"fmt"
	"log"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/smysle/agent-memory/internal/search"
)

// RecallResponse is the recall tool payload.
type RecallResponse struct {
	Intent     search.Intent   `json:"intent"`
	Confidence float64         `json:"confidence"`
	Results    []search.Result `json:"results"`
}

// NewRecallTool creates the recall tool definition
func NewRecallTool() mcp.Tool {
	return mcp.NewTool("recall",
		mcp.WithDescription("Retrieve memories relevant to a query. Classifies the query intent, runs hybrid lexical/semantic retrieval, and strengthens every returned memory."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("What you want to know"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Max results. Defaults to the intent's limit"),
		),
	)
}

// RecallHandler handles the recall tool
func RecallHandler(ctx *ToolContext) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(c context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := request.RequireString("query")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		classification := search.Classify(query, ctx.Store.Tokenizer())
		strategy := search.StrategyFor(classification.Intent)
		if limit := int(request.GetFloat("limit", 0)); limit > 0 {
			strategy.Limit = limit
		}

		results, err := ctx.Searcher.Hybrid(c, ctx.AgentID, query, strategy.Limit*2,
			ctx.EmbeddingService.Provider())
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
		}

		results = search.FinalRank(c, query, results, strategy, ctx.Reranker)

		// Recall rewards memory: every hit decays slower from here on.
		for _, r := range results {
			if err := ctx.Store.RecordAccess(ctx.AgentID, r.Memory.ID, 0); err != nil {
				log.Printf("Warning: failed to strengthen memory %s: %v", r.Memory.ID, err)
			}
		}

		return jsonResult(RecallResponse{
			Intent:     classification.Intent,
			Confidence: classification.Confidence,
			Results:    results,
		}), nil
	}
}
