// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package sleep

import (
	"math"
	"time"

	"github.com/smysle/agent-memory/internal/database"
	"gorm.io/gorm"
)

// decayEpsilon suppresses writes for sub-noise vitality changes.
const decayEpsilon = 0.001

// LowVitalityThreshold is the boundary the decay report counts crossings of
// and the tidy phase archives below.
const LowVitalityThreshold = 0.05

// DecayReport counts what one decay pass did.
type DecayReport struct {
	Updated        int `json:"updated"`
	Decayed        int `json:"decayed"`
	BelowThreshold int `json:"below_threshold"`
}

// Decay recomputes vitality for every memory with priority > 0 using the
// Ebbinghaus retention curve. Forgetting restarts from the most recent
// recall: the reference time is last_accessed when present, created_at
// otherwise, which is what makes oft-recalled memories decay slowly. An
// empty agentID decays every tenant. Runs as one transaction.
func (e *Engine) Decay(agentID string) (*DecayReport, error) {
	report := &DecayReport{}
	now := time.Now().UTC()

	err := e.store.DB().Transaction(func(tx *gorm.DB) error {
		q := tx.Model(&database.Memory{}).Where("priority > 0")
		if agentID != "" {
			q = q.Where("agent_id = ?", agentID)
		}

		var memories []database.Memory
		if err := q.Find(&memories).Error; err != nil {
			return err
		}

		for _, mem := range memories {
			reference := mem.CreatedAt
			if mem.LastAccessed != nil {
				reference = *mem.LastAccessed
			}

			days := now.Sub(reference).Hours() / 24
			retention := math.Exp(-days / math.Max(mem.Stability, 0.01))
			newVitality := math.Max(database.VitalityFloor(mem.Priority), retention)

			if math.Abs(newVitality-mem.Vitality) <= decayEpsilon {
				continue
			}

			// UpdateColumn so a maintenance pass never looks like an edit.
			if err := tx.Model(&database.Memory{}).
				Where("id = ?", mem.ID).
				UpdateColumn("vitality", newVitality).Error; err != nil {
				return err
			}

			report.Updated++
			if newVitality < mem.Vitality {
				report.Decayed++
			}
			if mem.Vitality >= LowVitalityThreshold && newVitality < LowVitalityThreshold {
				report.BelowThreshold++
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}
