// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package memory

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/google/uuid"
	"github.com/smysle/agent-memory/internal/database"
	"gorm.io/gorm"
)

// uriPattern is the URI grammar: domain://free/form/path.
var uriPattern = regexp.MustCompile(`^([a-z]+)://(.+)$`)

// DefaultDomains is the allowed URI domain set unless the caller supplies a
// wider one.
var DefaultDomains = map[string]bool{
	"core":      true,
	"emotion":   true,
	"knowledge": true,
	"event":     true,
	"system":    true,
}

// ErrDuplicateURI is returned when a path's (agent_id, uri) already exists.
var ErrDuplicateURI = errors.New("uri already exists for this agent")

// ParseURI validates a URI against the grammar and the allowed domain set,
// returning the domain. Pass nil to use DefaultDomains.
func ParseURI(uri string, domains map[string]bool) (string, error) {
	m := uriPattern.FindStringSubmatch(uri)
	if m == nil {
		return "", fmt.Errorf("malformed uri %q: expected domain://path", uri)
	}
	domain := m[1]
	if domains == nil {
		domains = DefaultDomains
	}
	if !domains[domain] {
		return "", fmt.Errorf("unknown uri domain %q", domain)
	}
	return domain, nil
}

// CreatePath anchors a URI onto a memory. The path inherits the memory's
// tenant; anchoring across tenants is rejected.
func (s *Store) CreatePath(agentID, memoryID, uri, alias string, domains map[string]bool) (*database.Path, error) {
	domain, err := ParseURI(uri, domains)
	if err != nil {
		return nil, err
	}

	var path *database.Path
	err = s.db.Transaction(func(tx *gorm.DB) error {
		mem, err := s.WithTx(tx).GetMemory(agentID, memoryID)
		if err != nil {
			return err
		}

		var count int64
		if err := tx.Model(&database.Path{}).
			Where("agent_id = ? AND uri = ?", agentID, uri).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrDuplicateURI
		}

		path = &database.Path{
			ID:        uuid.NewString(),
			MemoryID:  mem.ID,
			AgentID:   mem.AgentID,
			URI:       uri,
			Alias:     alias,
			Domain:    domain,
			CreatedAt: nowUTC(),
		}
		return tx.Create(path).Error
	})
	if err != nil {
		return nil, err
	}
	return path, nil
}

// GetPathByURI returns the path with the exact URI in the agent's scope, or
// nil when absent.
func (s *Store) GetPathByURI(agentID, uri string) (*database.Path, error) {
	var path database.Path
	err := s.db.Where("agent_id = ? AND uri = ?", agentID, uri).First(&path).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &path, nil
}

// ListPathsByPrefix returns paths whose URI starts with prefix, ordered by URI.
func (s *Store) ListPathsByPrefix(agentID, prefix string, limit int) ([]database.Path, error) {
	if limit <= 0 {
		limit = 50
	}
	var paths []database.Path
	err := s.db.Where(`agent_id = ? AND uri LIKE ? ESCAPE '\'`, agentID, escapeLike(prefix)+"%").
		Order("uri ASC").Limit(limit).Find(&paths).Error
	return paths, err
}

// ListPathsForMemory returns all paths anchored on a memory.
func (s *Store) ListPathsForMemory(agentID, memoryID string) ([]database.Path, error) {
	var paths []database.Path
	err := s.db.Where("agent_id = ? AND memory_id = ?", agentID, memoryID).
		Order("uri ASC").Find(&paths).Error
	return paths, err
}

// DeletePath removes a path by URI.
func (s *Store) DeletePath(agentID, uri string) error {
	res := s.db.Where("agent_id = ? AND uri = ?", agentID, uri).Delete(&database.Path{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// escapeLike escapes LIKE metacharacters in a literal prefix.
func escapeLike(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '%', '_', '\\':
			out = append(out, '\\')
		}
		out = append(out, s[i])
	}
	return string(out)
}
