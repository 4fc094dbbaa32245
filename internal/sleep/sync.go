// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package sleep

import (
	"errors"

	"github.com/smysle/agent-memory/internal/database"
	"github.com/smysle/agent-memory/internal/guard"
	"github.com/smysle/agent-memory/internal/memory"
	"gorm.io/gorm"
)

// SyncInput is one item to capture or merge into the store.
type SyncInput struct {
	Content    string  `json:"content"`
	Type       string  `json:"type"`
	URI        string  `json:"uri,omitempty"`
	Priority   *int    `json:"priority,omitempty"`
	EmotionVal float64 `json:"emotion_val,omitempty"`
	Source     string  `json:"source,omitempty"`
}

// SyncResult reports how one item was applied.
type SyncResult struct {
	Action   guard.Action `json:"action"`
	MemoryID string       `json:"memory_id,omitempty"`
	Reason   string       `json:"reason"`
}

// Sync applies one item: the write guard classifies it, then the decision
// executes inside a single transaction.
func (e *Engine) Sync(agentID string, input SyncInput) (*SyncResult, error) {
	results, err := e.SyncBatch(agentID, []SyncInput{input})
	if err != nil {
		return nil, err
	}
	return &results[0], nil
}

// SyncBatch applies every item inside one transaction: either the whole
// batch commits or none of it does.
func (e *Engine) SyncBatch(agentID string, inputs []SyncInput) ([]SyncResult, error) {
	if agentID == "" {
		agentID = database.DefaultAgentID
	}

	var results []SyncResult
	err := e.store.DB().Transaction(func(tx *gorm.DB) error {
		txStore := e.store.WithTx(tx)
		txGuard := guard.New(txStore)

		for _, input := range inputs {
			result, err := applyOne(txStore, txGuard, agentID, input)
			if err != nil {
				return err
			}
			results = append(results, *result)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// applyOne runs the guard and executes its decision against the (already
// transactional) store.
func applyOne(store *memory.Store, g *guard.Guard, agentID string, input SyncInput) (*SyncResult, error) {
	decision, err := g.Check(guard.Input{
		AgentID:  agentID,
		Content:  input.Content,
		Type:     input.Type,
		URI:      input.URI,
		Priority: input.Priority,
	})
	if err != nil {
		return nil, err
	}

	result := &SyncResult{
		Action:   decision.Action,
		MemoryID: decision.TargetID,
		Reason:   decision.Reason,
	}

	switch decision.Action {
	case guard.ActionAdd:
		mem, err := store.CreateMemory(memory.CreateMemoryInput{
			AgentID:    agentID,
			Content:    input.Content,
			Type:       input.Type,
			Priority:   input.Priority,
			EmotionVal: input.EmotionVal,
			Source:     input.Source,
		})
		if err != nil {
			return nil, err
		}
		if mem == nil {
			// Hash dedup fired between classification and create.
			result.Action = guard.ActionSkip
			result.Reason = "identical content already stored"
			return result, nil
		}
		result.MemoryID = mem.ID
		if input.URI != "" {
			if _, err := store.CreatePath(agentID, mem.ID, input.URI, "", nil); err != nil &&
				!errors.Is(err, memory.ErrDuplicateURI) {
				return nil, err
			}
		}

	case guard.ActionUpdate:
		if err := overwrite(store, agentID, decision.TargetID, input.Content, "sync", database.ActionUpdate); err != nil {
			return nil, err
		}

	case guard.ActionMerge:
		if err := overwrite(store, agentID, decision.TargetID, decision.MergedContent, "sync", database.ActionMerge); err != nil {
			return nil, err
		}
	}

	return result, nil
}

// overwrite snapshots the current content and then replaces it.
func overwrite(store *memory.Store, agentID, memoryID, content, changedBy, action string) error {
	mem, err := store.GetMemory(agentID, memoryID)
	if err != nil {
		return err
	}
	if _, err := store.CreateSnapshot(mem.ID, mem.Content, changedBy, action); err != nil {
		return err
	}
	return store.UpdateMemory(agentID, mem.ID, memory.MemoryUpdate{Content: &content})
}
