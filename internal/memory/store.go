// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package memory is the entity layer of the store: CRUD over memories,
// paths, links, snapshots and embeddings, with content-hash dedup, full-text
// index sync and access strengthening. Every mutating operation runs inside
// a single transaction.
package memory

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/smysle/agent-memory/internal/tokenizer"
	"gorm.io/gorm"
)

// Store wraps the durable store handle with the tokenizer used to keep the
// full-text index in sync with memory content.
type Store struct {
	db *gorm.DB
	tk *tokenizer.Tokenizer
}

// NewStore creates an entity-layer store.
func NewStore(db *gorm.DB, tk *tokenizer.Tokenizer) *Store {
	return &Store{db: db, tk: tk}
}

// DB returns the underlying store handle.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Tokenizer returns the tokenizer shared with search.
func (s *Store) Tokenizer() *tokenizer.Tokenizer {
	return s.tk
}

// WithTx returns a Store bound to tx so multi-entity operations can share
// one transaction.
func (s *Store) WithTx(tx *gorm.DB) *Store {
	return &Store{db: tx, tk: s.tk}
}

// ContentHash returns the 16-hex-character prefix of a SHA-256 over the
// trimmed content.
func ContentHash(content string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(content)))
	return hex.EncodeToString(sum[:])[:16]
}

// nowUTC returns the current time truncated for stable round-trips through
// the store's text columns.
func nowUTC() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}
