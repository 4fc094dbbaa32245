// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package guard

import (
	"strings"
	"testing"

	"github.com/smysle/agent-memory/internal/database"
	"github.com/smysle/agent-memory/internal/memory"
	"github.com/smysle/agent-memory/internal/tokenizer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGuard(t *testing.T) (*Guard, *memory.Store) {
	t.Helper()
	db, err := database.OpenTest(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })
	store := memory.NewStore(db, tokenizer.New())
	return New(store), store
}

func TestCheck_ExactDuplicate(t *testing.T) {
	g, store := newTestGuard(t)

	existing, err := store.CreateMemory(memory.CreateMemoryInput{
		AgentID: "default",
		Content: "the staging cluster lives in us-east-1",
		Type:    database.TypeKnowledge,
	})
	require.NoError(t, err)

	decision, err := g.Check(Input{
		AgentID: "default",
		Content: "  the staging cluster lives in us-east-1  ",
		Type:    database.TypeKnowledge,
	})
	require.NoError(t, err)
	assert.Equal(t, ActionSkip, decision.Action)
	assert.Equal(t, existing.ID, decision.TargetID)

	// Retrying keeps returning the same classification.
	again, err := g.Check(Input{
		AgentID: "default",
		Content: "the staging cluster lives in us-east-1",
		Type:    database.TypeKnowledge,
	})
	require.NoError(t, err)
	assert.Equal(t, ActionSkip, again.Action)
	assert.Equal(t, existing.ID, again.TargetID)
}

func TestCheck_DuplicateScopedByAgent(t *testing.T) {
	g, store := newTestGuard(t)

	_, err := store.CreateMemory(memory.CreateMemoryInput{
		AgentID: "tenant-a",
		Content: "Shared wording, different tenants",
		Type:    database.TypeKnowledge,
	})
	require.NoError(t, err)

	decision, err := g.Check(Input{
		AgentID: "tenant-b",
		Content: "Shared wording, different tenants",
		Type:    database.TypeKnowledge,
	})
	require.NoError(t, err)
	assert.Equal(t, ActionAdd, decision.Action)
}

func TestCheck_URIConflict(t *testing.T) {
	g, store := newTestGuard(t)

	mem, err := store.CreateMemory(memory.CreateMemoryInput{
		AgentID: "default",
		Content: "Noah is a succubus",
		Type:    database.TypeIdentity,
	})
	require.NoError(t, err)
	_, err = store.CreatePath("default", mem.ID, "core://agent/identity", "", nil)
	require.NoError(t, err)

	decision, err := g.Check(Input{
		AgentID: "default",
		Content: "Noah is a demon",
		Type:    database.TypeIdentity,
		URI:     "core://agent/identity",
	})
	require.NoError(t, err)
	assert.Equal(t, ActionUpdate, decision.Action)
	assert.Equal(t, mem.ID, decision.TargetID)
}

func TestCheck_QualityGate(t *testing.T) {
	g, _ := newTestGuard(t)

	cases := []struct {
		name     string
		content  string
		memType  string
		failing  string
	}{
		{"too_short_for_low_priority", "redis x", database.TypeEvent, "specificity"},
		{"stopwords_only", "的 了 在 是", database.TypeKnowledge, "novelty"},
		{"no_anchor_signal", "vague note", database.TypeKnowledge, "relevance"},
		{"shouting_with_run", strings.Repeat("A", 12) + " BBBB CCCC", database.TypeKnowledge, "coherence"},
		{"unbroken_character_run", "Error" + strings.Repeat("x", 40), database.TypeKnowledge, "coherence"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			decision, err := g.Check(Input{AgentID: "default", Content: tc.content, Type: tc.memType})
			require.NoError(t, err)
			assert.Equal(t, ActionSkip, decision.Action)
			assert.Contains(t, decision.FailedCriteria, tc.failing)
		})
	}
}

func TestCheck_ShortIdentityPasses(t *testing.T) {
	g, _ := newTestGuard(t)

	// Priority <= 1 only needs four characters.
	decision, err := g.Check(Input{AgentID: "default", Content: "Noah", Type: database.TypeIdentity})
	require.NoError(t, err)
	assert.Equal(t, ActionAdd, decision.Action)
}

func TestCheck_GoodContentAdds(t *testing.T) {
	g, _ := newTestGuard(t)

	for _, content := range []string{
		"Deploy runs at 22:00 UTC every weekday",
		"用户喜欢简洁的回答",
		"See https://example.com/runbook for the rollback steps",
	} {
		decision, err := g.Check(Input{AgentID: "default", Content: content, Type: database.TypeKnowledge})
		require.NoError(t, err)
		assert.Equal(t, ActionAdd, decision.Action, "content %q", content)
		assert.Empty(t, decision.FailedCriteria)
	}
}

func TestCheck_GuardDoesNotMutate(t *testing.T) {
	g, store := newTestGuard(t)

	_, err := g.Check(Input{
		AgentID: "default",
		Content: "Observation that should not be stored by the guard",
		Type:    database.TypeKnowledge,
	})
	require.NoError(t, err)

	memories, err := store.ListMemories(memory.ListFilter{AgentID: "default"})
	require.NoError(t, err)
	assert.Empty(t, memories)
}
