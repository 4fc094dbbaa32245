// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package memory

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
	"github.com/smysle/agent-memory/internal/database"
	"gorm.io/gorm"
)

// DefaultAccessGrowth is the stability multiplier applied on recall.
const DefaultAccessGrowth = 1.5

// ErrNotFound is returned when a memory does not exist in the caller's
// tenant scope.
var ErrNotFound = errors.New("memory not found")

// CreateMemoryInput holds the fields for a new memory. Priority, vitality
// and stability are derived when unset.
type CreateMemoryInput struct {
	AgentID    string
	Content    string
	Type       string
	Priority   *int
	EmotionVal float64
	Source     string
}

// CreateMemory inserts a new memory and mirrors its tokenized content into
// the full-text index in the same transaction. If a memory with the same
// (hash, agent_id) already exists the call is a no-op and returns (nil, nil).
func (s *Store) CreateMemory(input CreateMemoryInput) (*database.Memory, error) {
	content := strings.TrimSpace(input.Content)
	if content == "" {
		return nil, fmt.Errorf("memory content cannot be empty")
	}
	if _, ok := database.ValidTypes[input.Type]; !ok {
		return nil, fmt.Errorf("unknown memory type %q", input.Type)
	}

	agentID := input.AgentID
	if agentID == "" {
		agentID = database.DefaultAgentID
	}

	priority := database.DefaultPriority(input.Type)
	if input.Priority != nil {
		priority = *input.Priority
	}
	if priority < 0 || priority > 3 {
		return nil, fmt.Errorf("priority must be in 0..3, got %d", priority)
	}

	hash := ContentHash(content)

	var created *database.Memory
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&database.Memory{}).
			Where("hash = ? AND agent_id = ?", hash, agentID).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			// Duplicate content is a no-op, not an error.
			return nil
		}

		now := nowUTC()
		mem := &database.Memory{
			ID:         uuid.NewString(),
			AgentID:    agentID,
			Content:    input.Content,
			Type:       input.Type,
			Priority:   priority,
			EmotionVal: clamp(input.EmotionVal, -1.0, 1.0),
			Vitality:   1.0,
			Stability:  database.InitialStability(priority),
			Source:     input.Source,
			Hash:       hash,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := tx.Create(mem).Error; err != nil {
			return err
		}
		if err := s.WithTx(tx).indexMemory(mem.ID, mem.Content); err != nil {
			return err
		}
		created = mem
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// GetMemory fetches a memory within the agent's scope.
func (s *Store) GetMemory(agentID, id string) (*database.Memory, error) {
	var mem database.Memory
	err := s.db.Where("id = ? AND agent_id = ?", id, agentID).First(&mem).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &mem, nil
}

// MemoryUpdate describes a partial update. Nil fields are left untouched.
type MemoryUpdate struct {
	Content    *string
	Type       *string
	Priority   *int
	EmotionVal *float64
	Vitality   *float64
	Stability  *float64
	Source     *string
}

// UpdateMemory applies the non-nil fields of upd to a memory. A content
// change recomputes the hash and rewrites the full-text row inside the same
// transaction.
func (s *Store) UpdateMemory(agentID, id string, upd MemoryUpdate) error {
	sets := map[string]interface{}{}
	if upd.Content != nil {
		if strings.TrimSpace(*upd.Content) == "" {
			return fmt.Errorf("memory content cannot be empty")
		}
		sets["content"] = *upd.Content
		sets["hash"] = ContentHash(*upd.Content)
	}
	if upd.Type != nil {
		if _, ok := database.ValidTypes[*upd.Type]; !ok {
			return fmt.Errorf("unknown memory type %q", *upd.Type)
		}
		sets["type"] = *upd.Type
	}
	if upd.Priority != nil {
		if *upd.Priority < 0 || *upd.Priority > 3 {
			return fmt.Errorf("priority must be in 0..3, got %d", *upd.Priority)
		}
		sets["priority"] = *upd.Priority
	}
	if upd.EmotionVal != nil {
		sets["emotion_val"] = clamp(*upd.EmotionVal, -1.0, 1.0)
	}
	if upd.Vitality != nil {
		sets["vitality"] = clamp(*upd.Vitality, 0.0, 1.0)
	}
	if upd.Stability != nil {
		sets["stability"] = math.Min(*upd.Stability, database.StabilityInfinite)
	}
	if upd.Source != nil {
		sets["source"] = *upd.Source
	}
	if len(sets) == 0 {
		return nil
	}
	sets["updated_at"] = nowUTC()

	return s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&database.Memory{}).
			Where("id = ? AND agent_id = ?", id, agentID).
			UpdateColumns(sets)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		if upd.Content != nil {
			if err := s.WithTx(tx).indexMemory(id, *upd.Content); err != nil {
				return err
			}
		}
		return nil
	})
}

// DeleteMemory removes a memory. Paths, links and embeddings go with it via
// cascade; the full-text row is removed explicitly because the virtual table
// carries no foreign key. Snapshots stay behind as tombstone history.
func (s *Store) DeleteMemory(agentID, id string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND agent_id = ?", id, agentID).Delete(&database.Memory{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return tx.Exec(`DELETE FROM memories_fts WHERE id = ?`, id).Error
	})
}

// RecordAccess strengthens a memory on recall: stability grows by the given
// factor (capped at the infinite sentinel), vitality rises by 20% (capped at
// 1.0), the access counter increments and last_accessed moves to now.
func (s *Store) RecordAccess(agentID, id string, growth float64) error {
	if growth <= 0 {
		growth = DefaultAccessGrowth
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		var mem database.Memory
		err := tx.Where("id = ? AND agent_id = ?", id, agentID).First(&mem).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		// UpdateColumns keeps updated_at untouched: recall is not an edit,
		// and recency ranking must not drift from reads.
		return tx.Model(&database.Memory{}).Where("id = ?", id).UpdateColumns(map[string]interface{}{
			"stability":     math.Min(database.StabilityInfinite, mem.Stability*growth),
			"vitality":      math.Min(1.0, mem.Vitality*1.2),
			"access_count":  mem.AccessCount + 1,
			"last_accessed": nowUTC(),
		}).Error
	})
}

// ListFilter narrows ListMemories.
type ListFilter struct {
	AgentID     string
	Type        string
	Priority    *int
	MinVitality *float64
	Limit       int
	Offset      int
}

// ListMemories returns memories ordered by priority ascending then most
// recently updated.
func (s *Store) ListMemories(filter ListFilter) ([]database.Memory, error) {
	q := s.db.Model(&database.Memory{}).Where("agent_id = ?", filter.AgentID)
	if filter.Type != "" {
		q = q.Where("type = ?", filter.Type)
	}
	if filter.Priority != nil {
		q = q.Where("priority = ?", *filter.Priority)
	}
	if filter.MinVitality != nil {
		q = q.Where("vitality >= ?", *filter.MinVitality)
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	var memories []database.Memory
	err := q.Order("priority ASC, updated_at DESC").
		Limit(limit).Offset(filter.Offset).
		Find(&memories).Error
	return memories, err
}

// FindByHash returns the memory with the given content hash in the agent's
// scope, or nil.
func (s *Store) FindByHash(agentID, hash string) (*database.Memory, error) {
	var mem database.Memory
	err := s.db.Where("hash = ? AND agent_id = ?", hash, agentID).First(&mem).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &mem, nil
}

// indexMemory rewrites the full-text row for a memory.
func (s *Store) indexMemory(id, content string) error {
	if err := s.db.Exec(`DELETE FROM memories_fts WHERE id = ?`, id).Error; err != nil {
		return err
	}
	return s.db.Exec(`INSERT INTO memories_fts (id, content) VALUES (?, ?)`,
		id, s.tk.IndexText(content)).Error
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
