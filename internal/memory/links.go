// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package memory

import (
	"fmt"

	"github.com/smysle/agent-memory/internal/database"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CreateLink creates (or refreshes) the directed edge source -> target. Both
// endpoints must exist in the agent's scope; a second create over the same
// ordered pair updates relation and weight in place.
func (s *Store) CreateLink(agentID, sourceID, targetID, relation string, weight float64) (*database.Link, error) {
	if relation == "" {
		relation = database.RelationRelated
	}
	if !database.ValidRelations[relation] {
		return nil, fmt.Errorf("unknown link relation %q", relation)
	}
	if sourceID == targetID {
		return nil, fmt.Errorf("link endpoints must differ")
	}
	if weight == 0 {
		weight = 1.0
	}

	var link *database.Link
	err := s.db.Transaction(func(tx *gorm.DB) error {
		txStore := s.WithTx(tx)
		if _, err := txStore.GetMemory(agentID, sourceID); err != nil {
			return fmt.Errorf("link source: %w", err)
		}
		if _, err := txStore.GetMemory(agentID, targetID); err != nil {
			return fmt.Errorf("link target: %w", err)
		}

		link = &database.Link{
			AgentID:   agentID,
			SourceID:  sourceID,
			TargetID:  targetID,
			Relation:  relation,
			Weight:    weight,
			CreatedAt: nowUTC(),
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "agent_id"}, {Name: "source_id"}, {Name: "target_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"relation", "weight"}),
		}).Create(link).Error
	})
	if err != nil {
		return nil, err
	}
	return link, nil
}

// ListLinks returns every edge touching a memory, outgoing and incoming.
func (s *Store) ListLinks(agentID, memoryID string) ([]database.Link, error) {
	var links []database.Link
	err := s.db.Where("agent_id = ? AND (source_id = ? OR target_id = ?)",
		agentID, memoryID, memoryID).
		Order("created_at ASC").Find(&links).Error
	return links, err
}

// DeleteLink removes the edge for the ordered pair.
func (s *Store) DeleteLink(agentID, sourceID, targetID string) error {
	res := s.db.Where("agent_id = ? AND source_id = ? AND target_id = ?",
		agentID, sourceID, targetID).Delete(&database.Link{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
