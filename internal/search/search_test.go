// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package search

import (
	"context"
	"testing"

	"github.com/smysle/agent-memory/internal/database"
	"github.com/smysle/agent-memory/internal/memory"
	"github.com/smysle/agent-memory/internal/tokenizer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSearcher(t *testing.T) (*Searcher, *memory.Store) {
	t.Helper()
	db, err := database.OpenTest(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })
	store := memory.NewStore(db, tokenizer.New())
	return NewSearcher(store), store
}

func seed(t *testing.T, store *memory.Store, agentID, content string) *database.Memory {
	t.Helper()
	mem, err := store.CreateMemory(memory.CreateMemoryInput{
		AgentID: agentID,
		Content: content,
		Type:    database.TypeKnowledge,
	})
	require.NoError(t, err)
	require.NotNil(t, mem)
	return mem
}

func TestBM25_Basic(t *testing.T) {
	s, store := newTestSearcher(t)

	target := seed(t, store, "default", "kubernetes cluster upgrade checklist")
	seed(t, store, "default", "coffee machine descaling instructions")

	results, err := s.BM25("default", "kubernetes upgrade", 0, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, target.ID, results[0].Memory.ID)
	assert.Equal(t, "bm25", results[0].MatchReason)
	assert.Greater(t, results[0].Score, 0.0)
}

func TestBM25_AgentScoped(t *testing.T) {
	s, store := newTestSearcher(t)

	seed(t, store, "tenant-a", "kubernetes cluster upgrade checklist")

	results, err := s.BM25("tenant-b", "kubernetes", 0, 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestBM25_VitalityFilter(t *testing.T) {
	s, store := newTestSearcher(t)

	faded := seed(t, store, "default", "kubernetes cluster upgrade checklist")
	low := 0.02
	require.NoError(t, store.UpdateMemory("default", faded.ID, memory.MemoryUpdate{Vitality: &low}))

	results, err := s.BM25("default", "kubernetes", 0.5, 10)
	require.NoError(t, err)
	assert.Empty(t, results)

	results, err = s.BM25("default", "kubernetes", 0, 10)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestBM25_LikeFallback(t *testing.T) {
	s, store := newTestSearcher(t)

	seed(t, store, "default", "的了在 special glyph run ###")

	// Nothing tokenizable: the scan degrades to LIKE with synthetic scores.
	results, err := s.BM25("default", "的", 0, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "like", results[0].MatchReason)
	assert.Equal(t, 1.0, results[0].Score)
}

func TestBM25_CJKContent(t *testing.T) {
	s, store := newTestSearcher(t)

	target := seed(t, store, "default", "我今天很高兴因为项目上线了")
	seed(t, store, "default", "天气一般般没有什么特别")

	results, err := s.BM25("default", "高兴", 0, 10)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, target.ID, results[0].Memory.ID)
}

// mockProvider returns canned vectors so hybrid retrieval is deterministic.
type mockProvider struct {
	vectors map[string][]float32
	fallback []float32
}

func (m *mockProvider) ID() string                { return "mock" }
func (m *mockProvider) Model() string             { return "mock-model" }
func (m *mockProvider) Dimension() int            { return 3 }
func (m *mockProvider) InstructionPrefix() string { return "" }

func (m *mockProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	if vec, ok := m.vectors[text]; ok {
		return vec, nil
	}
	return m.fallback, nil
}

func (m *mockProvider) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	return m.Embed(ctx, query)
}

func TestHybrid_SemanticHit(t *testing.T) {
	s, store := newTestSearcher(t)

	happy := seed(t, store, "default", "我今天很高兴")
	weather := seed(t, store, "default", "天气一般般")

	provider := &mockProvider{
		vectors: map[string][]float32{
			"我今天很高兴": {1, 0, 0},
			"开心":         {1, 0, 0},
			"天气一般般":   {0, 1, 0},
		},
		fallback: []float32{0, 0, 1},
	}

	require.NoError(t, store.UpsertEmbedding("default", happy.ID, provider.Model(),
		provider.vectors["我今天很高兴"]))
	require.NoError(t, store.UpsertEmbedding("default", weather.ID, provider.Model(),
		provider.vectors["天气一般般"]))

	// "开心" shares no tokens with either memory; only the dense signal can
	// surface the happy one first.
	results, err := s.Hybrid(context.Background(), "default", "开心", 5, provider)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, happy.ID, results[0].Memory.ID)
	assert.Contains(t, results[0].MatchReason, "semantic")
}

func TestHybrid_FusesBothSignals(t *testing.T) {
	s, store := newTestSearcher(t)

	both := seed(t, store, "default", "deploy pipeline configuration")
	lexOnly := seed(t, store, "default", "deploy window calendar")

	provider := &mockProvider{
		vectors: map[string][]float32{
			"deploy pipeline configuration": {1, 0, 0},
			"deploy":                        {1, 0, 0},
			"deploy window calendar":        {0, 1, 0},
		},
		fallback: []float32{0, 0, 1},
	}
	// Only one memory carries a vector, so the dense list strictly favors it
	// no matter how bm25 breaks the lexical tie.
	require.NoError(t, store.UpsertEmbedding("default", both.ID, provider.Model(),
		provider.vectors["deploy pipeline configuration"]))

	results, err := s.Hybrid(context.Background(), "default", "deploy", 5, provider)
	require.NoError(t, err)
	require.Len(t, results, 2)
	// The memory ranked first by the dense list accumulates more RRF mass.
	assert.Equal(t, both.ID, results[0].Memory.ID)
	assert.Contains(t, results[0].MatchReason, "bm25")
	assert.Contains(t, results[0].MatchReason, "semantic")
}

func TestHybrid_NoProvider(t *testing.T) {
	s, store := newTestSearcher(t)

	seed(t, store, "default", "kubernetes cluster upgrade checklist")

	results, err := s.Hybrid(context.Background(), "default", "kubernetes", 5, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "bm25", results[0].MatchReason)
}

func TestCosine(t *testing.T) {
	assert.InDelta(t, 1.0, cosine([]float32{1, 0}, []float32{2, 0}), 1e-9)
	assert.InDelta(t, 0.0, cosine([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, cosine([]float32{1, 0}, []float32{-1, 0}), 1e-9)
	assert.Zero(t, cosine([]float32{1, 0}, []float32{1}))
	assert.Zero(t, cosine(nil, nil))
}
