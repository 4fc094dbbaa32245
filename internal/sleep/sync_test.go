// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package sleep

import (
	"testing"

	"github.com/smysle/agent-memory/internal/database"
	"github.com/smysle/agent-memory/internal/guard"
	"github.com/smysle/agent-memory/internal/memory"
	"github.com/smysle/agent-memory/internal/tokenizer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	db, err := database.OpenTest(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })
	return NewEngine(memory.NewStore(db, tokenizer.New()))
}

func countRows(t *testing.T, e *Engine, table string) int64 {
	t.Helper()
	var count int64
	require.NoError(t, e.Store().DB().Raw(`SELECT COUNT(*) FROM `+table).Scan(&count).Error)
	return count
}

func TestSync_Add(t *testing.T) {
	e := newTestEngine(t)

	result, err := e.Sync("default", SyncInput{
		Content: "The deploy window opens at 22:00 UTC",
		Type:    database.TypeKnowledge,
		URI:     "knowledge://ops/deploy-window",
	})
	require.NoError(t, err)
	assert.Equal(t, guard.ActionAdd, result.Action)
	require.NotEmpty(t, result.MemoryID)

	path, err := e.Store().GetPathByURI("default", "knowledge://ops/deploy-window")
	require.NoError(t, err)
	require.NotNil(t, path)
	assert.Equal(t, result.MemoryID, path.MemoryID)
}

func TestSync_SameInputTwiceConverges(t *testing.T) {
	e := newTestEngine(t)

	input := SyncInput{
		Content: "Release notes live in the wiki under /releases",
		Type:    database.TypeKnowledge,
		URI:     "knowledge://ops/release-notes",
	}

	first, err := e.Sync("default", input)
	require.NoError(t, err)
	assert.Equal(t, guard.ActionAdd, first.Action)

	second, err := e.Sync("default", input)
	require.NoError(t, err)
	assert.Equal(t, guard.ActionSkip, second.Action)
	assert.Equal(t, first.MemoryID, second.MemoryID)

	assert.EqualValues(t, 1, countRows(t, e, "memories"))
	assert.EqualValues(t, 1, countRows(t, e, "paths"))
}

func TestSync_URIConflictUpdates(t *testing.T) {
	e := newTestEngine(t)

	first, err := e.Sync("default", SyncInput{
		Content: "Noah is a succubus",
		Type:    database.TypeIdentity,
		URI:     "core://agent/identity",
	})
	require.NoError(t, err)
	require.Equal(t, guard.ActionAdd, first.Action)

	second, err := e.Sync("default", SyncInput{
		Content: "Noah is a demon",
		Type:    database.TypeIdentity,
		URI:     "core://agent/identity",
	})
	require.NoError(t, err)
	assert.Equal(t, guard.ActionUpdate, second.Action)
	assert.Equal(t, first.MemoryID, second.MemoryID)

	mem, err := e.Store().GetMemory("default", first.MemoryID)
	require.NoError(t, err)
	assert.Equal(t, "Noah is a demon", mem.Content)

	// The pre-update content is snapshotted; rolling back restores it.
	snaps, err := e.Store().ListSnapshots("default", first.MemoryID, 0)
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.Equal(t, "Noah is a succubus", snaps[0].Content)
	assert.Equal(t, "sync", snaps[0].ChangedBy)

	require.NoError(t, e.Store().RollbackSnapshot("default", snaps[0].ID))
	mem, err = e.Store().GetMemory("default", first.MemoryID)
	require.NoError(t, err)
	assert.Equal(t, "Noah is a succubus", mem.Content)
}

func TestSyncBatch_SingleTransaction(t *testing.T) {
	e := newTestEngine(t)

	results, err := e.SyncBatch("default", []SyncInput{
		{Content: "Batch item one about Redis", Type: database.TypeKnowledge},
		{Content: "Batch item two about Postgres", Type: database.TypeKnowledge},
		{Content: "Batch item one about Redis", Type: database.TypeKnowledge},
	})
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, guard.ActionAdd, results[0].Action)
	assert.Equal(t, guard.ActionAdd, results[1].Action)
	assert.Equal(t, guard.ActionSkip, results[2].Action, "intra-batch duplicate dedups")

	assert.EqualValues(t, 2, countRows(t, e, "memories"))
}

func TestSyncBatch_RollsBackAsOne(t *testing.T) {
	e := newTestEngine(t)

	// The second item's URI is malformed, so path creation fails and the
	// whole batch must roll back.
	_, err := e.SyncBatch("default", []SyncInput{
		{Content: "Batch survivor candidate entry", Type: database.TypeKnowledge},
		{Content: "Batch failing entry with bad anchor", Type: database.TypeKnowledge, URI: "not-a-uri"},
	})
	require.Error(t, err)

	assert.EqualValues(t, 0, countRows(t, e, "memories"))
	assert.EqualValues(t, 0, countRows(t, e, "paths"))
}

func TestSync_SkipOnQualityGate(t *testing.T) {
	e := newTestEngine(t)

	result, err := e.Sync("default", SyncInput{
		Content: "meh",
		Type:    database.TypeEvent,
	})
	require.NoError(t, err)
	assert.Equal(t, guard.ActionSkip, result.Action)
	assert.EqualValues(t, 0, countRows(t, e, "memories"))
}
