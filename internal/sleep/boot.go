// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package sleep

import (
	"strings"

	"github.com/smysle/agent-memory/internal/database"
	"gorm.io/gorm"
)

// CoreBootURIs is the fixed list of anchors loaded at boot in addition to
// every identity memory.
var CoreBootURIs = []string{
	"core://agent/identity",
	"core://agent/principles",
	"core://user/profile",
}

// BootConfigURI points at a memory whose content lists extra boot URIs, one
// per line.
const BootConfigURI = "system://boot"

// bootAccessGrowth is the gentle strengthening applied to booted memories;
// boot happens every session and must not inflate stability the way an
// explicit recall does.
const bootAccessGrowth = 1.1

// BootResult carries the identity working set for a session start.
type BootResult struct {
	Memories []database.Memory `json:"memories"`
	URIs     []string          `json:"uris"`
}

// Boot returns every priority-0 memory for the scope plus the memories
// anchored at the core boot URIs and any extras listed at system://boot.
// Each returned memory is access-strengthened with the boot growth factor.
func (e *Engine) Boot(agentID string) (*BootResult, error) {
	if agentID == "" {
		agentID = database.DefaultAgentID
	}

	result := &BootResult{}
	err := e.store.DB().Transaction(func(tx *gorm.DB) error {
		txStore := e.store.WithTx(tx)

		seen := map[string]bool{}
		add := func(mem database.Memory) {
			if !seen[mem.ID] {
				seen[mem.ID] = true
				result.Memories = append(result.Memories, mem)
			}
		}

		var identity []database.Memory
		if err := tx.Where("agent_id = ? AND priority = 0", agentID).
			Order("updated_at DESC").Find(&identity).Error; err != nil {
			return err
		}
		for _, mem := range identity {
			add(mem)
		}

		uris := append([]string{}, CoreBootURIs...)
		if bootPath, err := txStore.GetPathByURI(agentID, BootConfigURI); err != nil {
			return err
		} else if bootPath != nil {
			if cfg, err := txStore.GetMemory(agentID, bootPath.MemoryID); err == nil {
				for _, line := range strings.Split(cfg.Content, "\n") {
					if line = strings.TrimSpace(line); line != "" {
						uris = append(uris, line)
					}
				}
			}
		}

		for _, uri := range uris {
			path, err := txStore.GetPathByURI(agentID, uri)
			if err != nil {
				return err
			}
			if path == nil {
				continue
			}
			mem, err := txStore.GetMemory(agentID, path.MemoryID)
			if err != nil {
				continue
			}
			add(*mem)
			result.URIs = append(result.URIs, uri)
		}

		for _, mem := range result.Memories {
			if err := txStore.RecordAccess(agentID, mem.ID, bootAccessGrowth); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
