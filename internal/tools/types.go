// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package tools publishes the engine's verb catalogue to agent runtimes.
// Every tool is agent-scoped: the tenant is bound once at initialization
// and all lookups verify it, so cross-agent access reads as not-found.
package tools

import (
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/smysle/agent-memory/internal/embeddings"
	"github.com/smysle/agent-memory/internal/memory"
	"github.com/smysle/agent-memory/internal/search"
	"github.com/smysle/agent-memory/internal/sleep"
)

// ToolContext holds shared dependencies for all tools.
type ToolContext struct {
	Store    *memory.Store
	Engine   *sleep.Engine
	Searcher *search.Searcher

	// EmbeddingService may be nil; retrieval then stays lexical.
	EmbeddingService *embeddings.Service
	// Reranker may be nil; ranking then stays local.
	Reranker embeddings.Reranker

	// AgentID is the tenant bound to this process.
	AgentID string

	// TidyThreshold and MaxSnapshots tune the reflect tool's tidy phase.
	TidyThreshold float64
	MaxSnapshots  int
}

// NewToolContext creates a tool context over an entity-layer store.
func NewToolContext(store *memory.Store, agentID string) *ToolContext {
	return &ToolContext{
		Store:    store,
		Engine:   sleep.NewEngine(store),
		Searcher: search.NewSearcher(store),
		AgentID:  agentID,
	}
}

// jsonResult renders a payload as an indented JSON tool result.
func jsonResult(payload interface{}) *mcp.CallToolResult {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return mcp.NewToolResultError("failed to encode result: " + err.Error())
	}
	return mcp.NewToolResultText(string(data))
}
