// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package database

import (
	"fmt"

	"gorm.io/gorm"
)

// CurrentSchemaVersion is the schema version this build writes and expects.
const CurrentSchemaVersion = 3

// schemaDDL creates the full current-version schema. Every statement is
// idempotent so re-running on an already-migrated store is a no-op.
var schemaDDL = []string{
	`CREATE TABLE IF NOT EXISTS memories (
		id            TEXT PRIMARY KEY,
		agent_id      TEXT NOT NULL DEFAULT 'default',
		content       TEXT NOT NULL,
		type          TEXT NOT NULL CHECK (type IN ('identity', 'emotion', 'knowledge', 'event')),
		priority      INTEGER NOT NULL DEFAULT 2,
		emotion_val   REAL NOT NULL DEFAULT 0,
		vitality      REAL NOT NULL DEFAULT 1.0,
		stability     REAL NOT NULL DEFAULT 90,
		access_count  INTEGER NOT NULL DEFAULT 0,
		last_accessed TEXT,
		source        TEXT,
		hash          TEXT NOT NULL,
		created_at    TEXT NOT NULL,
		updated_at    TEXT NOT NULL,
		UNIQUE (hash, agent_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_memories_agent ON memories(agent_id)`,
	`CREATE INDEX IF NOT EXISTS idx_memories_type ON memories(agent_id, type)`,
	`CREATE INDEX IF NOT EXISTS idx_memories_priority ON memories(agent_id, priority)`,
	`CREATE INDEX IF NOT EXISTS idx_memories_vitality ON memories(agent_id, vitality)`,

	`CREATE TABLE IF NOT EXISTS paths (
		id         TEXT PRIMARY KEY,
		memory_id  TEXT NOT NULL REFERENCES memories(id) ON DELETE CASCADE,
		agent_id   TEXT NOT NULL DEFAULT 'default',
		uri        TEXT NOT NULL,
		alias      TEXT,
		domain     TEXT,
		created_at TEXT NOT NULL,
		UNIQUE (agent_id, uri)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_paths_memory ON paths(memory_id)`,

	`CREATE TABLE IF NOT EXISTS links (
		agent_id   TEXT NOT NULL DEFAULT 'default',
		source_id  TEXT NOT NULL REFERENCES memories(id) ON DELETE CASCADE,
		target_id  TEXT NOT NULL REFERENCES memories(id) ON DELETE CASCADE,
		relation   TEXT NOT NULL DEFAULT 'related',
		weight     REAL NOT NULL DEFAULT 1.0,
		created_at TEXT NOT NULL,
		PRIMARY KEY (agent_id, source_id, target_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_links_target ON links(target_id)`,

	// Snapshots carry no foreign key on purpose: the delete snapshot written
	// by tidy and hard forget must survive its memory as a tombstone.
	`CREATE TABLE IF NOT EXISTS snapshots (
		id         TEXT PRIMARY KEY,
		memory_id  TEXT NOT NULL,
		content    TEXT NOT NULL,
		changed_by TEXT,
		action     TEXT NOT NULL DEFAULT 'update',
		created_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_snapshots_memory ON snapshots(memory_id, created_at DESC)`,

	`CREATE TABLE IF NOT EXISTS embeddings (
		agent_id   TEXT NOT NULL DEFAULT 'default',
		memory_id  TEXT NOT NULL REFERENCES memories(id) ON DELETE CASCADE,
		model      TEXT NOT NULL,
		dim        INTEGER NOT NULL,
		vector     BLOB NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (agent_id, memory_id, model)
	)`,

	`CREATE VIRTUAL TABLE IF NOT EXISTS memories_fts USING fts5(
		id UNINDEXED,
		content,
		tokenize = 'unicode61'
	)`,
}

// Migrate brings the store to CurrentSchemaVersion. A fresh store gets the
// full schema directly; older stores walk the ordered migrations v1->v2 and
// v2->v3, each inside its own transaction. Rerunning a completed migration
// is a no-op.
func Migrate(db *gorm.DB) error {
	if err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_meta (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`).Error; err != nil {
		return fmt.Errorf("failed to create schema_meta: %w", err)
	}

	version, err := resolveVersion(db)
	if err != nil {
		return err
	}

	if version == 0 {
		// Fresh store: create everything and stamp the current version.
		for _, stmt := range schemaDDL {
			if err := db.Exec(stmt).Error; err != nil {
				return fmt.Errorf("failed to create schema: %w", err)
			}
		}
		return setVersion(db, CurrentSchemaVersion)
	}

	if version < 2 {
		if err := migrateV1toV2(db); err != nil {
			return fmt.Errorf("migration v1->v2 failed: %w", err)
		}
	}
	if version < 3 {
		if err := migrateV2toV3(db); err != nil {
			return fmt.Errorf("migration v2->v3 failed: %w", err)
		}
	}

	// Idempotent sweep picks up indexes and the FTS table on stores created
	// before those statements existed.
	for _, stmt := range schemaDDL {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("failed to ensure schema: %w", err)
		}
	}
	return nil
}

// SchemaVersion returns the recorded schema version, or 0 if none.
func SchemaVersion(db *gorm.DB) (int, error) {
	var value string
	err := db.Raw(`SELECT value FROM schema_meta WHERE key = 'version'`).Scan(&value).Error
	if err != nil {
		return 0, err
	}
	if value == "" {
		return 0, nil
	}
	var v int
	if _, err := fmt.Sscanf(value, "%d", &v); err != nil {
		return 0, fmt.Errorf("malformed schema version %q: %w", value, err)
	}
	return v, nil
}

// resolveVersion returns the recorded version, inferring it structurally for
// stores written before schema_meta existed. 0 means a fresh store.
func resolveVersion(db *gorm.DB) (int, error) {
	if v, err := SchemaVersion(db); err == nil && v > 0 {
		return v, nil
	}

	if !tableExists(db, "memories") {
		return 0, nil
	}
	if !columnExists(db, "paths", "agent_id") {
		return 1, nil
	}
	if !tableExists(db, "embeddings") {
		return 2, nil
	}
	return CurrentSchemaVersion, nil
}

func setVersion(db *gorm.DB, version int) error {
	return db.Exec(`INSERT INTO schema_meta (key, value) VALUES ('version', ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, fmt.Sprintf("%d", version)).Error
}

func tableExists(db *gorm.DB, name string) bool {
	var count int64
	db.Raw(`SELECT COUNT(*) FROM sqlite_master WHERE type IN ('table', 'view') AND name = ?`, name).Scan(&count)
	return count > 0
}

func columnExists(db *gorm.DB, table, column string) bool {
	var count int64
	db.Raw(`SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?`, table, column).Scan(&count)
	return count > 0
}

// migrateV1toV2 rebuilds paths and links so each row carries agent_id. Path
// tenancy is derived from the owning memory; links whose endpoints disagree
// on tenant are dropped since cross-agent edges are no longer representable.
// Foreign keys are relaxed around the rebuild because sqlite cannot toggle
// them inside a transaction.
func migrateV1toV2(db *gorm.DB) error {
	if err := db.Exec(`PRAGMA foreign_keys = OFF`).Error; err != nil {
		return err
	}
	defer db.Exec(`PRAGMA foreign_keys = ON`)

	return db.Transaction(func(tx *gorm.DB) error {
		stmts := []string{
			`CREATE TABLE paths_v2 (
				id         TEXT PRIMARY KEY,
				memory_id  TEXT NOT NULL REFERENCES memories(id) ON DELETE CASCADE,
				agent_id   TEXT NOT NULL DEFAULT 'default',
				uri        TEXT NOT NULL,
				alias      TEXT,
				domain     TEXT,
				created_at TEXT NOT NULL,
				UNIQUE (agent_id, uri)
			)`,
			`INSERT INTO paths_v2 (id, memory_id, agent_id, uri, alias, domain, created_at)
				SELECT p.id, p.memory_id, COALESCE(m.agent_id, 'default'), p.uri, p.alias, p.domain, p.created_at
				FROM paths p
				LEFT JOIN memories m ON m.id = p.memory_id`,
			`DROP TABLE paths`,
			`ALTER TABLE paths_v2 RENAME TO paths`,
			`CREATE INDEX IF NOT EXISTS idx_paths_memory ON paths(memory_id)`,

			`CREATE TABLE links_v2 (
				agent_id   TEXT NOT NULL DEFAULT 'default',
				source_id  TEXT NOT NULL REFERENCES memories(id) ON DELETE CASCADE,
				target_id  TEXT NOT NULL REFERENCES memories(id) ON DELETE CASCADE,
				relation   TEXT NOT NULL DEFAULT 'related',
				weight     REAL NOT NULL DEFAULT 1.0,
				created_at TEXT NOT NULL,
				PRIMARY KEY (agent_id, source_id, target_id)
			)`,
			`INSERT INTO links_v2 (agent_id, source_id, target_id, relation, weight, created_at)
				SELECT ms.agent_id, l.source_id, l.target_id, l.relation, l.weight, l.created_at
				FROM links l
				JOIN memories ms ON ms.id = l.source_id
				JOIN memories mt ON mt.id = l.target_id
				WHERE ms.agent_id = mt.agent_id`,
			`DROP TABLE links`,
			`ALTER TABLE links_v2 RENAME TO links`,
			`CREATE INDEX IF NOT EXISTS idx_links_target ON links(target_id)`,
		}
		for _, stmt := range stmts {
			if err := tx.Exec(stmt).Error; err != nil {
				return err
			}
		}
		return setVersion(tx, 2)
	})
}

// migrateV2toV3 additively creates the embeddings table. No data rewrite.
func migrateV2toV3(db *gorm.DB) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(`CREATE TABLE IF NOT EXISTS embeddings (
			agent_id   TEXT NOT NULL DEFAULT 'default',
			memory_id  TEXT NOT NULL REFERENCES memories(id) ON DELETE CASCADE,
			model      TEXT NOT NULL,
			dim        INTEGER NOT NULL,
			vector     BLOB NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			PRIMARY KEY (agent_id, memory_id, model)
		)`).Error; err != nil {
			return err
		}
		return setVersion(tx, 3)
	})
}

// RebuildIndex drops every full-text row and re-inserts the indexing
// tokenization of all live memories. indexText is the indexing entry point
// of the tokenizer.
func RebuildIndex(db *gorm.DB, indexText func(string) string) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(`DELETE FROM memories_fts`).Error; err != nil {
			return err
		}

		var rows []struct {
			ID      string
			Content string
		}
		if err := tx.Raw(`SELECT id, content FROM memories`).Scan(&rows).Error; err != nil {
			return err
		}

		for _, row := range rows {
			if err := tx.Exec(`INSERT INTO memories_fts (id, content) VALUES (?, ?)`,
				row.ID, indexText(row.Content)).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
