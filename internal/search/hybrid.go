// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package search

import (
	"context"
	"log"
	"math"
	"sort"
	"strings"

	"github.com/smysle/agent-memory/internal/database"
	"github.com/smysle/agent-memory/internal/embeddings"
)

// rrfK is the Reciprocal Rank Fusion constant.
const rrfK = 60.0

// semanticTopK caps how many dense candidates enter fusion.
const semanticTopK = 50

// bm25Multiplier widens the lexical candidate pool before fusion.
const bm25Multiplier = 3

// Hybrid fuses BM25 and dense cosine retrieval with Reciprocal Rank Fusion.
// Without a provider, or when the provider fails, the result degrades to the
// lexical list truncated to limit.
func (s *Searcher) Hybrid(ctx context.Context, agentID, query string, limit int, provider embeddings.Provider) ([]Result, error) {
	if limit <= 0 {
		limit = 10
	}

	lexical, err := s.BM25(agentID, query, 0.0, limit*bm25Multiplier)
	if err != nil {
		return nil, err
	}

	if provider == nil {
		return truncate(lexical, limit), nil
	}

	queryVec, err := provider.EmbedQuery(ctx, query)
	if err != nil {
		log.Printf("Warning: query embedding failed, using lexical results only: %v", err)
		return truncate(lexical, limit), nil
	}

	semantic, err := s.semanticSearch(agentID, provider.Model(), queryVec)
	if err != nil {
		log.Printf("Warning: semantic search failed, using lexical results only: %v", err)
		return truncate(lexical, limit), nil
	}

	// RRF: rank-only fusion, indifferent to the two lists' score scales.
	type fused struct {
		score   float64
		sources []string
	}
	scores := make(map[string]*fused)
	accumulate := func(ids []string, source string) {
		for rank, id := range ids {
			f := scores[id]
			if f == nil {
				f = &fused{}
				scores[id] = f
			}
			f.score += 1.0 / (rrfK + float64(rank+1))
			f.sources = append(f.sources, source)
		}
	}

	lexIDs := make([]string, len(lexical))
	for i, r := range lexical {
		lexIDs[i] = r.Memory.ID
	}
	accumulate(lexIDs, "bm25")
	accumulate(semantic, "semantic")

	results := make([]Result, 0, len(scores))
	for id, f := range scores {
		mem, err := s.store.GetMemory(agentID, id)
		if err != nil {
			continue
		}
		results = append(results, Result{
			Memory:      *mem,
			Score:       f.score,
			MatchReason: strings.Join(f.sources, "+"),
		})
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	return truncate(results, limit), nil
}

// semanticSearch scores every stored vector for (agent, model) by cosine
// similarity in memory and returns the top candidates' memory ids, best
// first.
func (s *Searcher) semanticSearch(agentID, model string, queryVec []float32) ([]string, error) {
	embs, err := s.store.ListEmbeddings(agentID, model)
	if err != nil {
		return nil, err
	}

	type scored struct {
		id    string
		score float64
	}
	candidates := make([]scored, 0, len(embs))
	for _, emb := range embs {
		sim := cosine(queryVec, database.BlobToFloat32s(emb.Vector))
		candidates = append(candidates, scored{id: emb.MemoryID, score: sim})
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})
	if len(candidates) > semanticTopK {
		candidates = candidates[:semanticTopK]
	}

	ids := make([]string, len(candidates))
	for i, c := range candidates {
		ids[i] = c.id
	}
	return ids, nil
}

// cosine returns the cosine similarity of two vectors, 0 for mismatched or
// zero-norm inputs.
func cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func truncate(results []Result, limit int) []Result {
	if len(results) > limit {
		return results[:limit]
	}
	return results
}
