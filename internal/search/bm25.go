// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package search implements the hybrid retrieval pipeline: BM25 over the
// full-text index, dense cosine search over stored embeddings, RRF fusion,
// and intent-aware final weighting.
package search

import (
	"log"
	"math"
	"strings"

	"github.com/smysle/agent-memory/internal/database"
	"github.com/smysle/agent-memory/internal/memory"
)

// Result is one retrieval hit.
type Result struct {
	Memory      database.Memory `json:"memory"`
	Score       float64         `json:"score"`
	MatchReason string          `json:"match_reason"`
}

// Searcher runs retrieval against the entity layer.
type Searcher struct {
	store *memory.Store
}

// NewSearcher creates a searcher.
func NewSearcher(store *memory.Store) *Searcher {
	return &Searcher{store: store}
}

// BM25 retrieves lexically, ranked by the full-text index's built-in bm25
// rank. A malformed full-text query falls back to a LIKE scan; no raw error
// ever surfaces.
func (s *Searcher) BM25(agentID, query string, minVitality float64, limit int) ([]Result, error) {
	if limit <= 0 {
		limit = 10
	}

	tokens := s.store.Tokenizer().Tokenize(query)
	if len(tokens) == 0 {
		return s.likeScan(agentID, query, minVitality, limit)
	}

	quoted := make([]string, len(tokens))
	for i, tok := range tokens {
		quoted[i] = `"` + tok + `"`
	}
	match := strings.Join(quoted, " OR ")

	var rows []struct {
		ID   string
		Rank float64
	}
	err := s.store.DB().Raw(`
		SELECT m.id, f.rank
		FROM memories_fts f
		JOIN memories m ON m.id = f.id
		WHERE f.memories_fts MATCH ? AND m.agent_id = ? AND m.vitality >= ?
		ORDER BY f.rank
		LIMIT ?`, match, agentID, minVitality, limit).Scan(&rows).Error
	if err != nil {
		log.Printf("Warning: full-text query failed, falling back to LIKE scan: %v", err)
		return s.likeScan(agentID, query, minVitality, limit)
	}

	results := make([]Result, 0, len(rows))
	for _, row := range rows {
		mem, err := s.store.GetMemory(agentID, row.ID)
		if err != nil {
			continue
		}
		results = append(results, Result{
			Memory:      *mem,
			Score:       math.Abs(row.Rank),
			MatchReason: "bm25",
		})
	}
	return results, nil
}

// likeScan is the degraded lexical path: substring match ordered by priority
// then recency, with synthetic 1/(i+1) scores.
func (s *Searcher) likeScan(agentID, query string, minVitality float64, limit int) ([]Result, error) {
	var memories []database.Memory
	err := s.store.DB().
		Where("agent_id = ? AND vitality >= ? AND content LIKE ?",
			agentID, minVitality, "%"+query+"%").
		Order("priority ASC, updated_at DESC").
		Limit(limit).
		Find(&memories).Error
	if err != nil {
		return nil, err
	}

	results := make([]Result, len(memories))
	for i, mem := range memories {
		results[i] = Result{
			Memory:      mem,
			Score:       1.0 / float64(i+1),
			MatchReason: "like",
		}
	}
	return results, nil
}
