// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package embeddings

import (
	"context"
	"fmt"
	"log"

	"github.com/smysle/agent-memory/internal/memory"
)

// Service produces and stores memory embeddings. Embeddings are never on
// the critical write path: the sweep and the opportunistic hook both
// tolerate provider failure, and their absence only narrows retrieval to
// the lexical signal.
type Service struct {
	store    *memory.Store
	provider Provider
}

// NewService creates an embedding service. Provider may be nil, in which
// case every method is a no-op.
func NewService(store *memory.Store, provider Provider) *Service {
	return &Service{store: store, provider: provider}
}

// Enabled reports whether a provider is configured.
func (s *Service) Enabled() bool {
	return s != nil && s.provider != nil
}

// Provider returns the configured provider, or nil.
func (s *Service) Provider() Provider {
	if s == nil {
		return nil
	}
	return s.provider
}

// EmbedMemory embeds one memory's content and upserts the vector row.
func (s *Service) EmbedMemory(ctx context.Context, agentID, memoryID, content string) error {
	if !s.Enabled() {
		return nil
	}
	vec, err := s.provider.Embed(ctx, content)
	if err != nil {
		return fmt.Errorf("failed to embed memory %s: %w", memoryID, err)
	}
	return s.store.UpsertEmbedding(agentID, memoryID, s.provider.Model(), vec)
}

// EmbedMemoryBestEffort embeds opportunistically after a successful write.
// Failures are logged and swallowed.
func (s *Service) EmbedMemoryBestEffort(ctx context.Context, agentID, memoryID, content string) {
	if !s.Enabled() {
		return
	}
	if err := s.EmbedMemory(ctx, agentID, memoryID, content); err != nil {
		log.Printf("Warning: opportunistic embedding failed: %v", err)
	}
}

// EmbedMissing sweeps the agent's memories that have no vector under the
// configured model yet and embeds them, returning how many were embedded.
// The sweep stops at the first provider error so a dead endpoint doesn't
// burn through the backlog.
func (s *Service) EmbedMissing(ctx context.Context, agentID string, limit int) (int, error) {
	if !s.Enabled() {
		return 0, nil
	}

	missing, err := s.store.MissingEmbeddings(agentID, s.provider.Model(), limit)
	if err != nil {
		return 0, err
	}

	embedded := 0
	for _, mem := range missing {
		if err := ctx.Err(); err != nil {
			return embedded, err
		}
		if err := s.EmbedMemory(ctx, mem.AgentID, mem.ID, mem.Content); err != nil {
			return embedded, err
		}
		embedded++
	}
	return embedded, nil
}
