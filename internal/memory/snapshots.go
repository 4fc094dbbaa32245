// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package memory

import (
	"errors"

	"github.com/google/uuid"
	"github.com/smysle/agent-memory/internal/database"
	"gorm.io/gorm"
)

// DefaultMaxSnapshotsPerMemory is the per-memory history cap applied by the
// tidy phase.
const DefaultMaxSnapshotsPerMemory = 10

// CreateSnapshot records an immutable copy of a memory's content. Callers
// invoke this immediately before any content-mutating or destructive step.
func (s *Store) CreateSnapshot(memoryID, content, changedBy, action string) (*database.Snapshot, error) {
	if action == "" {
		action = database.ActionUpdate
	}
	snap := &database.Snapshot{
		ID:        uuid.NewString(),
		MemoryID:  memoryID,
		Content:   content,
		ChangedBy: changedBy,
		Action:    action,
		CreatedAt: nowUTC(),
	}
	if err := s.db.Create(snap).Error; err != nil {
		return nil, err
	}
	return snap, nil
}

// ListSnapshots returns a memory's history, newest first. The memory must
// belong to the agent's scope.
func (s *Store) ListSnapshots(agentID, memoryID string, limit int) ([]database.Snapshot, error) {
	if _, err := s.GetMemory(agentID, memoryID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 50
	}
	var snaps []database.Snapshot
	// rowid breaks ties between snapshots written in the same instant.
	err := s.db.Where("memory_id = ?", memoryID).
		Order("created_at DESC, rowid DESC").Limit(limit).Find(&snaps).Error
	return snaps, err
}

// GetSnapshot fetches one snapshot, verifying the owning memory belongs to
// the agent's scope.
func (s *Store) GetSnapshot(agentID, snapshotID string) (*database.Snapshot, error) {
	var snap database.Snapshot
	err := s.db.Where("id = ?", snapshotID).First(&snap).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if _, err := s.GetMemory(agentID, snap.MemoryID); err != nil {
		return nil, err
	}
	return &snap, nil
}

// RollbackSnapshot restores a memory to a snapshot's content. The modified
// state is snapshotted first, so a rollback is itself reversible.
func (s *Store) RollbackSnapshot(agentID, snapshotID string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		txStore := s.WithTx(tx)

		snap, err := txStore.GetSnapshot(agentID, snapshotID)
		if err != nil {
			return err
		}
		mem, err := txStore.GetMemory(agentID, snap.MemoryID)
		if err != nil {
			return err
		}

		if _, err := txStore.CreateSnapshot(mem.ID, mem.Content, "rollback", database.ActionUpdate); err != nil {
			return err
		}

		content := snap.Content
		return txStore.UpdateMemory(agentID, mem.ID, MemoryUpdate{Content: &content})
	})
}

// PruneSnapshots keeps the newest keep snapshots of a memory and deletes the
// rest, returning the number removed.
func (s *Store) PruneSnapshots(memoryID string, keep int) (int64, error) {
	if keep <= 0 {
		keep = DefaultMaxSnapshotsPerMemory
	}
	res := s.db.Exec(`DELETE FROM snapshots WHERE memory_id = ? AND id NOT IN (
		SELECT id FROM snapshots WHERE memory_id = ? ORDER BY created_at DESC, rowid DESC LIMIT ?
	)`, memoryID, memoryID, keep)
	return res.RowsAffected, res.Error
}
