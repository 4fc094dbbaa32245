// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package sleep

import (
	"log"

	"github.com/smysle/agent-memory/internal/database"
	"github.com/smysle/agent-memory/internal/memory"
	"gorm.io/gorm"
)

// TidyOptions tunes the archival pass.
type TidyOptions struct {
	// Threshold is the vitality below which transient memories are archived.
	Threshold float64
	// MaxSnapshotsPerMemory caps each memory's history.
	MaxSnapshotsPerMemory int
}

// TidyReport counts what one tidy pass did.
type TidyReport struct {
	Archived        int `json:"archived"`
	OrphansCleaned  int `json:"orphans_cleaned"`
	SnapshotsPruned int `json:"snapshots_pruned"`
}

// Tidy archives spent transient memories and prunes history, in one
// transaction. Only priority-3 memories are archival candidates; higher
// classes keep their floor and never reach the threshold. Each archived
// memory gets a best-effort delete snapshot before the row (and its
// dependents, via cascade) goes away.
func (e *Engine) Tidy(agentID string, opts TidyOptions) (*TidyReport, error) {
	if opts.Threshold <= 0 {
		opts.Threshold = LowVitalityThreshold
	}
	if opts.MaxSnapshotsPerMemory <= 0 {
		opts.MaxSnapshotsPerMemory = memory.DefaultMaxSnapshotsPerMemory
	}

	report := &TidyReport{}
	err := e.store.DB().Transaction(func(tx *gorm.DB) error {
		txStore := e.store.WithTx(tx)

		// 1. Archive transient memories that decayed past the threshold.
		q := tx.Model(&database.Memory{}).
			Where("vitality < ? AND priority >= 3", opts.Threshold)
		if agentID != "" {
			q = q.Where("agent_id = ?", agentID)
		}
		var candidates []database.Memory
		if err := q.Find(&candidates).Error; err != nil {
			return err
		}

		for _, mem := range candidates {
			if _, err := txStore.CreateSnapshot(mem.ID, mem.Content, "tidy", database.ActionDelete); err != nil {
				log.Printf("Warning: failed to snapshot memory %s before archival: %v", mem.ID, err)
			}
			if err := txStore.DeleteMemory(mem.AgentID, mem.ID); err != nil {
				return err
			}
			report.Archived++
		}

		// 2. Remove paths whose memory vanished outside normal cascading.
		orphans := tx.Exec(`DELETE FROM paths WHERE memory_id NOT IN (SELECT id FROM memories)`)
		if orphans.Error != nil {
			return orphans.Error
		}
		report.OrphansCleaned = int(orphans.RowsAffected)

		// 3. Cap per-memory history.
		var crowded []string
		if err := tx.Raw(`SELECT memory_id FROM snapshots GROUP BY memory_id HAVING COUNT(*) > ?`,
			opts.MaxSnapshotsPerMemory).Scan(&crowded).Error; err != nil {
			return err
		}
		for _, memoryID := range crowded {
			pruned, err := txStore.PruneSnapshots(memoryID, opts.MaxSnapshotsPerMemory)
			if err != nil {
				return err
			}
			report.SnapshotsPruned += int(pruned)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}
