// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package server

import (
	"github.com/mark3labs/mcp-go/server"
	"github.com/smysle/agent-memory/internal/tools"
)

// MCPServer wraps the mcp-go server with the bound tool context
type MCPServer struct {
	mcpServer *server.MCPServer
	toolCtx   *tools.ToolContext
}

// NewMCPServer creates a new MCP server instance over an initialized tool
// context. The tenant was bound when the context was built; every tool call
// runs inside that scope.
func NewMCPServer(version string, toolCtx *tools.ToolContext) *MCPServer {
	mcpServer := server.NewMCPServer(
		"agent-memory",
		version,
		server.WithToolCapabilities(true),
	)

	srv := &MCPServer{
		mcpServer: mcpServer,
		toolCtx:   toolCtx,
	}
	srv.registerTools()
	return srv
}

// registerTools publishes the nine-verb catalogue.
func (s *MCPServer) registerTools() {
	// remember: admission-guarded writes
	s.mcpServer.AddTool(tools.NewRememberTool(), tools.RememberHandler(s.toolCtx))

	// recall: intent-aware hybrid retrieval, strengthens every hit
	s.mcpServer.AddTool(tools.NewRecallTool(), tools.RecallHandler(s.toolCtx))

	// recall_path: stable addressing via URI anchors
	s.mcpServer.AddTool(tools.NewRecallPathTool(), tools.RecallPathHandler(s.toolCtx))

	// boot: session-start identity working set
	s.mcpServer.AddTool(tools.NewBootTool(), tools.BootHandler(s.toolCtx))

	// forget: fade or delete
	s.mcpServer.AddTool(tools.NewForgetTool(), tools.ForgetHandler(s.toolCtx))

	// link: edges between memories
	s.mcpServer.AddTool(tools.NewLinkTool(), tools.LinkHandler(s.toolCtx))

	// snapshot: history and rollback
	s.mcpServer.AddTool(tools.NewSnapshotTool(), tools.SnapshotHandler(s.toolCtx))

	// reflect: maintenance phases
	s.mcpServer.AddTool(tools.NewReflectTool(), tools.ReflectHandler(s.toolCtx))

	// status: store summary
	s.mcpServer.AddTool(tools.NewStatusTool(), tools.StatusHandler(s.toolCtx))
}

// GetMCPServer returns the underlying MCP server
func (s *MCPServer) GetMCPServer() *server.MCPServer {
	return s.mcpServer
}
