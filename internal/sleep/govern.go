// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package sleep

import (
	"gorm.io/gorm"
)

// GovernReport counts what one integrity sweep removed.
type GovernReport struct {
	OrphanPaths   int `json:"orphan_paths"`
	OrphanLinks   int `json:"orphan_links"`
	EmptyMemories int `json:"empty_memories"`
}

// Govern sweeps referential debris in one transaction: paths and links
// whose memory vanished outside normal cascading, and memories whose
// trimmed content is empty. Running it twice in a row leaves the second
// pass a no-op.
func (e *Engine) Govern(agentID string) (*GovernReport, error) {
	report := &GovernReport{}
	err := e.store.DB().Transaction(func(tx *gorm.DB) error {
		pathsQ := `DELETE FROM paths WHERE memory_id NOT IN (SELECT id FROM memories)`
		linksQ := `DELETE FROM links WHERE source_id NOT IN (SELECT id FROM memories)
			OR target_id NOT IN (SELECT id FROM memories)`
		emptyQ := `DELETE FROM memories WHERE TRIM(content) = ''`

		var pathsRes, linksRes, emptyRes *gorm.DB
		if agentID != "" {
			pathsRes = tx.Exec(pathsQ+` AND agent_id = ?`, agentID)
			linksRes = tx.Exec(`DELETE FROM links WHERE agent_id = ? AND (source_id NOT IN (SELECT id FROM memories)
				OR target_id NOT IN (SELECT id FROM memories))`, agentID)
			emptyRes = tx.Exec(emptyQ+` AND agent_id = ?`, agentID)
		} else {
			pathsRes = tx.Exec(pathsQ)
			linksRes = tx.Exec(linksQ)
			emptyRes = tx.Exec(emptyQ)
		}

		for _, res := range []*gorm.DB{pathsRes, linksRes, emptyRes} {
			if res.Error != nil {
				return res.Error
			}
		}

		report.OrphanPaths = int(pathsRes.RowsAffected)
		report.OrphanLinks = int(linksRes.RowsAffected)
		report.EmptyMemories = int(emptyRes.RowsAffected)

		// An emptied memory's full-text row has no cascade of its own.
		return tx.Exec(`DELETE FROM memories_fts WHERE id NOT IN (SELECT id FROM memories)`).Error
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}
