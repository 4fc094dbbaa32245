// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package memory

import (
	"github.com/smysle/agent-memory/internal/database"
	"gorm.io/gorm/clause"
)

// UpsertEmbedding stores a memory's vector under one model, replacing any
// prior row for the same (agent_id, memory_id, model) key.
func (s *Store) UpsertEmbedding(agentID, memoryID, model string, vec []float32) error {
	now := nowUTC()
	emb := &database.Embedding{
		AgentID:   agentID,
		MemoryID:  memoryID,
		Model:     model,
		Dim:       len(vec),
		Vector:    database.Float32sToBlob(vec),
		CreatedAt: now,
		UpdatedAt: now,
	}
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "agent_id"}, {Name: "memory_id"}, {Name: "model"}},
		DoUpdates: clause.AssignmentColumns([]string{"dim", "vector", "updated_at"}),
	}).Create(emb).Error
}

// ListEmbeddings returns every stored vector for (agent_id, model).
func (s *Store) ListEmbeddings(agentID, model string) ([]database.Embedding, error) {
	var embs []database.Embedding
	err := s.db.Where("agent_id = ? AND model = ?", agentID, model).Find(&embs).Error
	return embs, err
}

// MissingEmbeddings returns memories in the agent's scope that have no
// vector under the given model yet.
func (s *Store) MissingEmbeddings(agentID, model string, limit int) ([]database.Memory, error) {
	if limit <= 0 {
		limit = 100
	}
	var memories []database.Memory
	err := s.db.Raw(`SELECT m.* FROM memories m
		LEFT JOIN embeddings e
			ON e.memory_id = m.id AND e.agent_id = m.agent_id AND e.model = ?
		WHERE m.agent_id = ? AND e.memory_id IS NULL
		ORDER BY m.priority ASC, m.updated_at DESC
		LIMIT ?`, model, agentID, limit).Scan(&memories).Error
	return memories, err
}
