// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/smysle/agent-memory/internal/config"
	"github.com/smysle/agent-memory/internal/database"
	"github.com/smysle/agent-memory/internal/embeddings"
	"github.com/smysle/agent-memory/internal/memory"
	"github.com/smysle/agent-memory/internal/server"
	"github.com/smysle/agent-memory/internal/sleep"
	"github.com/smysle/agent-memory/internal/tokenizer"
	"github.com/smysle/agent-memory/internal/tools"
	"github.com/smysle/agent-memory/pkg/scheduler"
	"gorm.io/gorm/logger"
)

// Version is set at build time via ldflags (e.g. -X main.Version={{.Version}}).
var Version = "dev"

func main() {
	// CRITICAL: MCP servers must ONLY output JSON-RPC to stdout.
	// Redirect all logging to stderr.
	log.SetOutput(os.Stderr)

	dbPath := flag.String("db-path", "", "Path to the memory store file")
	agentID := flag.String("agent", "", "Agent (tenant) scope")
	configPath := flag.String("config", "", "Path to config file")
	reindex := flag.Bool("reindex", false, "Rebuild the full-text index from current memories and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "agent-memory MCP server\n\n")
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Server Mode:\n")
		fmt.Fprintf(os.Stderr, "  %s                 Start MCP server (stdio)\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nMaintenance:\n")
		fmt.Fprintf(os.Stderr, "  %s --reindex       Rebuild the full-text index and exit\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  AGENT_MEMORY_DB                       Path to the store file\n")
		fmt.Fprintf(os.Stderr, "  AGENT_MEMORY_AGENT_ID                 Tenant scope (default \"default\")\n")
		fmt.Fprintf(os.Stderr, "  AGENT_MEMORY_EMBEDDINGS_PROVIDER      none|openai|gemini|google|qwen|dashscope|tongyi\n")
		fmt.Fprintf(os.Stderr, "  AGENT_MEMORY_EMBEDDINGS_MODEL         Embedding model id\n")
		fmt.Fprintf(os.Stderr, "  AGENT_MEMORY_EMBEDDINGS_INSTRUCTION   Query instruction prefix override ('none' disables)\n")
		fmt.Fprintf(os.Stderr, "  AGENT_MEMORY_RERANK_PROVIDER          none|openai|jina|cohere\n")
		fmt.Fprintf(os.Stderr, "  AGENT_MEMORY_RERANK_MODEL             Rerank model id\n")
		fmt.Fprintf(os.Stderr, "  AGENT_MEMORY_RERANK_API_KEY           Rerank API key\n")
		fmt.Fprintf(os.Stderr, "  AGENT_MEMORY_RERANK_BASE_URL          Rerank endpoint base URL\n")
		fmt.Fprintf(os.Stderr, "  OPENAI_API_KEY, GEMINI_API_KEY, DASHSCOPE_API_KEY\n")
		fmt.Fprintf(os.Stderr, "                                        Provider credential fallbacks\n")
	}

	flag.Parse()

	log.Println("Starting agent-memory MCP server...")

	// Load configuration: file, then environment, then CLI flags.
	var cfg *config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.LoadFromPath(*configPath)
		if err != nil {
			log.Fatalf("Failed to load config from %s: %v", *configPath, err)
		}
		log.Printf("Loaded configuration from %s", *configPath)
	} else {
		cfg, err = config.Load()
		if err != nil {
			log.Printf("Warning: failed to load default config: %v", err)
			log.Println("Using built-in defaults")
			cfg = config.DefaultConfig()
		}
	}

	if *dbPath != "" {
		cfg.Database.Path = *dbPath
	}
	if *agentID != "" {
		cfg.Agent.ID = *agentID
	}

	log.Printf("Configuration: store=%s agent=%s", cfg.Database.Path, cfg.Agent.ID)

	// Open the store; migrations run on open.
	db, err := database.Open(&database.Config{
		Path:     cfg.Database.Path,
		LogLevel: logger.Silent, // CRITICAL: silence GORM stdout output for MCP
	})
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer database.Close(db)

	version, err := database.SchemaVersion(db)
	if err != nil {
		log.Fatalf("Failed to read schema version: %v", err)
	}
	log.Printf("Store open at schema version %d", version)

	tk := tokenizer.New()
	store := memory.NewStore(db, tk)

	if *reindex {
		if err := database.RebuildIndex(db, tk.IndexText); err != nil {
			log.Fatalf("Reindex failed: %v", err)
		}
		log.Println("Full-text index rebuilt")
		return
	}

	// Optional providers; their absence narrows retrieval, never blocks it.
	provider, err := embeddings.NewProvider(embeddings.ProviderConfig{
		Provider:    cfg.Embeddings.Provider,
		Model:       cfg.Embeddings.Model,
		Instruction: cfg.Embeddings.Instruction,
		APIKey:      cfg.Embeddings.APIKey,
		BaseURL:     cfg.Embeddings.BaseURL,
		Dimension:   cfg.Embeddings.Dimension,
	})
	if err != nil {
		log.Fatalf("Failed to configure embedding provider: %v", err)
	}
	if provider != nil {
		log.Printf("Embeddings enabled: provider=%s model=%s", provider.ID(), provider.Model())
	}

	reranker, err := embeddings.NewReranker(embeddings.RerankerConfig{
		Provider: cfg.Rerank.Provider,
		Model:    cfg.Rerank.Model,
		APIKey:   cfg.Rerank.APIKey,
		BaseURL:  cfg.Rerank.BaseURL,
	})
	if err != nil {
		log.Fatalf("Failed to configure reranker: %v", err)
	}
	if reranker != nil {
		log.Printf("External reranker enabled: provider=%s model=%s", reranker.ID(), reranker.Model())
	}

	embSvc := embeddings.NewService(store, provider)

	toolCtx := tools.NewToolContext(store, cfg.Agent.ID)
	toolCtx.EmbeddingService = embSvc
	toolCtx.Reranker = reranker
	toolCtx.TidyThreshold = cfg.Sleep.TidyThreshold
	toolCtx.MaxSnapshots = cfg.Sleep.MaxSnapshotsPerMemory

	if cfg.Sleep.MaintenanceIntervalMinutes > 0 {
		sched := scheduler.NewScheduler(sleep.NewEngine(store), embSvc, cfg.Agent.ID,
			cfg.Sleep.MaintenanceIntervalMinutes, cfg.Embeddings.SweepBatch)
		sched.Start()
		defer sched.Stop()
		log.Printf("Background maintenance every %d minutes", cfg.Sleep.MaintenanceIntervalMinutes)
	}

	srv := server.NewMCPServer(Version, toolCtx)

	log.Println("Running in stdio mode (MCP)")
	if err := mcpserver.ServeStdio(srv.GetMCPServer()); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
