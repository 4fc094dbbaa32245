// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package search

import (
	"context"
	"log"
	"math"
	"sort"
	"time"

	"github.com/smysle/agent-memory/internal/embeddings"
)

// priorityWeight multiplies scores when the strategy boosts priority; more
// durable classes weigh more.
var priorityWeight = [4]float64{4, 3, 2, 1}

// FinalRank applies the intent strategy to fused candidates: an optional
// external cross-encoder pass replaces scores outright, then the local
// weighting folds in priority, recency and vitality. The external pass is
// best-effort; its failure only costs the rerank signal.
func FinalRank(ctx context.Context, query string, results []Result, strat Strategy, reranker embeddings.Reranker) []Result {
	if len(results) == 0 {
		return results
	}

	if reranker != nil {
		results = applyExternalRerank(ctx, query, results, reranker)
	}

	now := time.Now().UTC()
	for i := range results {
		score := results[i].Score
		mem := &results[i].Memory

		if strat.BoostPriority && mem.Priority >= 0 && mem.Priority < len(priorityWeight) {
			score *= priorityWeight[mem.Priority]
		}
		if strat.BoostRecent && !mem.UpdatedAt.IsZero() {
			days := now.Sub(mem.UpdatedAt).Hours() / 24
			score *= math.Max(0.1, 1/(1+0.1*days))
		}
		score *= math.Max(0.1, mem.Vitality)

		results[i].Score = score
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	limit := strat.Limit
	if limit <= 0 {
		limit = 10
	}
	return truncate(results, limit)
}

// applyExternalRerank hands (query, contents) to the provider and replaces
// each surviving candidate's score with the returned relevance score.
func applyExternalRerank(ctx context.Context, query string, results []Result, reranker embeddings.Reranker) []Result {
	docs := make([]string, len(results))
	for i, r := range results {
		docs[i] = r.Memory.Content
	}

	scored, err := reranker.Rerank(ctx, query, docs)
	if err != nil {
		log.Printf("Warning: external reranker failed, using local weighting only: %v", err)
		return results
	}

	for _, rr := range scored {
		if rr.Index < 0 || rr.Index >= len(results) {
			continue
		}
		results[rr.Index].Score = rr.RelevanceScore
		results[rr.Index].MatchReason += "+rerank"
	}
	return results
}
