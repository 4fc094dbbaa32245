// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package memory

import (
	"testing"

	"github.com/smysle/agent-memory/internal/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpsertEmbedding(t *testing.T) {
	s := newTestStore(t)

	mem := mustCreate(t, s, "default", "embedded memory", database.TypeKnowledge)

	require.NoError(t, s.UpsertEmbedding("default", mem.ID, "model-a", []float32{1, 2, 3}))
	require.NoError(t, s.UpsertEmbedding("default", mem.ID, "model-a", []float32{4, 5, 6, 7}))
	require.NoError(t, s.UpsertEmbedding("default", mem.ID, "model-b", []float32{9}))

	embs, err := s.ListEmbeddings("default", "model-a")
	require.NoError(t, err)
	require.Len(t, embs, 1, "one row per (agent, memory, model)")
	assert.Equal(t, 4, embs[0].Dim)
	assert.Equal(t, []float32{4, 5, 6, 7}, database.BlobToFloat32s(embs[0].Vector))
}

func TestMissingEmbeddings(t *testing.T) {
	s := newTestStore(t)

	covered := mustCreate(t, s, "default", "already embedded", database.TypeKnowledge)
	bare := mustCreate(t, s, "default", "still waiting for a vector", database.TypeKnowledge)
	mustCreate(t, s, "other", "foreign tenant memory", database.TypeKnowledge)

	require.NoError(t, s.UpsertEmbedding("default", covered.ID, "model-a", []float32{1}))

	missing, err := s.MissingEmbeddings("default", "model-a", 0)
	require.NoError(t, err)
	require.Len(t, missing, 1)
	assert.Equal(t, bare.ID, missing[0].ID)

	// Under another model everything is missing.
	missing, err = s.MissingEmbeddings("default", "model-b", 0)
	require.NoError(t, err)
	assert.Len(t, missing, 2)
}
