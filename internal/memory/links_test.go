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

func TestCreateLink(t *testing.T) {
	s := newTestStore(t)

	a := mustCreate(t, s, "default", "link endpoint a", database.TypeKnowledge)
	b := mustCreate(t, s, "default", "link endpoint b", database.TypeKnowledge)

	link, err := s.CreateLink("default", a.ID, b.ID, "", 0)
	require.NoError(t, err)
	assert.Equal(t, database.RelationRelated, link.Relation)
	assert.Equal(t, 1.0, link.Weight)

	// A second create over the same ordered pair refreshes in place.
	link, err = s.CreateLink("default", a.ID, b.ID, database.RelationCaused, 0.7)
	require.NoError(t, err)
	assert.Equal(t, database.RelationCaused, link.Relation)

	var count int64
	require.NoError(t, s.DB().Raw(`SELECT COUNT(*) FROM links`).Scan(&count).Error)
	assert.EqualValues(t, 1, count)

	// The reverse direction is a distinct edge.
	_, err = s.CreateLink("default", b.ID, a.ID, database.RelationReminds, 1.0)
	require.NoError(t, err)
	require.NoError(t, s.DB().Raw(`SELECT COUNT(*) FROM links`).Scan(&count).Error)
	assert.EqualValues(t, 2, count)
}

func TestCreateLink_Validation(t *testing.T) {
	s := newTestStore(t)

	a := mustCreate(t, s, "default", "validation endpoint a", database.TypeKnowledge)
	b := mustCreate(t, s, "tenant-b", "validation endpoint b", database.TypeKnowledge)

	// Cross-agent links are rejected: b is invisible from default's scope.
	_, err := s.CreateLink("default", a.ID, b.ID, database.RelationRelated, 1.0)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.CreateLink("default", a.ID, a.ID, database.RelationRelated, 1.0)
	assert.Error(t, err)

	_, err = s.CreateLink("default", a.ID, "no-such-id", database.RelationRelated, 1.0)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.CreateLink("default", a.ID, b.ID, "entangles", 1.0)
	assert.Error(t, err)
}

func TestListLinks_BothDirections(t *testing.T) {
	s := newTestStore(t)

	a := mustCreate(t, s, "default", "hub memory", database.TypeKnowledge)
	b := mustCreate(t, s, "default", "spoke one", database.TypeKnowledge)
	c := mustCreate(t, s, "default", "spoke two", database.TypeKnowledge)

	_, err := s.CreateLink("default", a.ID, b.ID, database.RelationRelated, 1.0)
	require.NoError(t, err)
	_, err = s.CreateLink("default", c.ID, a.ID, database.RelationCaused, 1.0)
	require.NoError(t, err)

	links, err := s.ListLinks("default", a.ID)
	require.NoError(t, err)
	assert.Len(t, links, 2)
}

func TestDeleteLink(t *testing.T) {
	s := newTestStore(t)

	a := mustCreate(t, s, "default", "delete link a", database.TypeKnowledge)
	b := mustCreate(t, s, "default", "delete link b", database.TypeKnowledge)

	_, err := s.CreateLink("default", a.ID, b.ID, database.RelationRelated, 1.0)
	require.NoError(t, err)

	require.NoError(t, s.DeleteLink("default", a.ID, b.ID))
	assert.ErrorIs(t, s.DeleteLink("default", a.ID, b.ID), ErrNotFound)
}
