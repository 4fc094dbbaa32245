// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package sleep

import (
	"testing"

	"github.com/smysle/agent-memory/internal/database"
	"github.com/smysle/agent-memory/internal/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// orphanMemory removes a memory with raw SQL, bypassing the cascades, so
// integrity debris exists for govern to find.
func orphanMemory(t *testing.T, e *Engine, id string) {
	t.Helper()
	db := e.Store().DB()
	require.NoError(t, db.Exec(`PRAGMA foreign_keys = OFF`).Error)
	require.NoError(t, db.Exec(`DELETE FROM memories WHERE id = ?`, id).Error)
	require.NoError(t, db.Exec(`PRAGMA foreign_keys = ON`).Error)
}

func TestGovern_SweepsDebris(t *testing.T) {
	e := newTestEngine(t)

	anchored, err := e.Store().CreateMemory(memory.CreateMemoryInput{
		AgentID: "default", Content: "memory that will vanish rawly", Type: database.TypeKnowledge,
	})
	require.NoError(t, err)
	_, err = e.Store().CreatePath("default", anchored.ID, "knowledge://govern/orphan", "", nil)
	require.NoError(t, err)

	partner, err := e.Store().CreateMemory(memory.CreateMemoryInput{
		AgentID: "default", Content: "surviving link partner", Type: database.TypeKnowledge,
	})
	require.NoError(t, err)
	_, err = e.Store().CreateLink("default", anchored.ID, partner.ID, database.RelationRelated, 1.0)
	require.NoError(t, err)

	emptied, err := e.Store().CreateMemory(memory.CreateMemoryInput{
		AgentID: "default", Content: "about to be hollowed out", Type: database.TypeKnowledge,
	})
	require.NoError(t, err)
	require.NoError(t, e.Store().DB().Exec(
		`UPDATE memories SET content = '   ' WHERE id = ?`, emptied.ID).Error)

	orphanMemory(t, e, anchored.ID)

	report, err := e.Govern("default")
	require.NoError(t, err)
	assert.Equal(t, 1, report.OrphanPaths)
	assert.Equal(t, 1, report.OrphanLinks)
	assert.Equal(t, 1, report.EmptyMemories)

	// Running govern twice in a row leaves the second run a no-op.
	second, err := e.Govern("default")
	require.NoError(t, err)
	assert.Zero(t, second.OrphanPaths)
	assert.Zero(t, second.OrphanLinks)
	assert.Zero(t, second.EmptyMemories)

	_, err = e.Store().GetMemory("default", partner.ID)
	assert.NoError(t, err, "healthy memories are untouched")
}

func TestGovern_AllTenants(t *testing.T) {
	e := newTestEngine(t)

	memA, err := e.Store().CreateMemory(memory.CreateMemoryInput{
		AgentID: "tenant-a", Content: "tenant a orphan holder", Type: database.TypeKnowledge,
	})
	require.NoError(t, err)
	_, err = e.Store().CreatePath("tenant-a", memA.ID, "knowledge://multi/orphan", "", nil)
	require.NoError(t, err)

	orphanMemory(t, e, memA.ID)

	// Scoped to another tenant, nothing is touched.
	report, err := e.Govern("tenant-b")
	require.NoError(t, err)
	assert.Zero(t, report.OrphanPaths)

	// Unscoped, the debris goes.
	report, err = e.Govern("")
	require.NoError(t, err)
	assert.Equal(t, 1, report.OrphanPaths)
}
