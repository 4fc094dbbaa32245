// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package memory

import (
	"fmt"
	"testing"

	"github.com/smysle/agent-memory/internal/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshot_RollbackRoundTrip(t *testing.T) {
	s := newTestStore(t)

	mem := mustCreate(t, s, "default", "Noah is a succubus", database.TypeIdentity)

	// Snapshot, then overwrite, like the sync phase does.
	snap, err := s.CreateSnapshot(mem.ID, mem.Content, "sync", database.ActionUpdate)
	require.NoError(t, err)

	newContent := "Noah is a demon"
	require.NoError(t, s.UpdateMemory("default", mem.ID, MemoryUpdate{Content: &newContent}))

	require.NoError(t, s.RollbackSnapshot("default", snap.ID))

	restored, err := s.GetMemory("default", mem.ID)
	require.NoError(t, err)
	assert.Equal(t, "Noah is a succubus", restored.Content)

	// The modified state was itself snapshotted before the restore.
	snaps, err := s.ListSnapshots("default", mem.ID, 0)
	require.NoError(t, err)
	require.Len(t, snaps, 2)
	assert.Equal(t, "Noah is a demon", snaps[0].Content)
	assert.Equal(t, "rollback", snaps[0].ChangedBy)
}

func TestSnapshot_TenantScoped(t *testing.T) {
	s := newTestStore(t)

	mem := mustCreate(t, s, "tenant-a", "private history", database.TypeKnowledge)
	snap, err := s.CreateSnapshot(mem.ID, mem.Content, "sync", database.ActionUpdate)
	require.NoError(t, err)

	_, err = s.GetSnapshot("tenant-b", snap.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.ListSnapshots("tenant-b", mem.ID, 0)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, s.RollbackSnapshot("tenant-b", snap.ID), ErrNotFound)
}

func TestPruneSnapshots(t *testing.T) {
	s := newTestStore(t)

	mem := mustCreate(t, s, "default", "heavily edited memory", database.TypeKnowledge)
	for i := 0; i < 15; i++ {
		_, err := s.CreateSnapshot(mem.ID, fmt.Sprintf("revision %02d", i), "sync", database.ActionUpdate)
		require.NoError(t, err)
	}

	pruned, err := s.PruneSnapshots(mem.ID, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 5, pruned)

	snaps, err := s.ListSnapshots("default", mem.ID, 0)
	require.NoError(t, err)
	assert.Len(t, snaps, DefaultMaxSnapshotsPerMemory)
}
