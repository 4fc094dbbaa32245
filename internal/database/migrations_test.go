// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package database

import (
	"path/filepath"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// writeV1Store lays down a version-1 store by hand: paths and links carry no
// agent_id, paths are unique by uri alone, and there is no embeddings table.
func writeV1Store(t *testing.T, path string, recordVersion bool) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	stmts := []string{
		`CREATE TABLE memories (
			id TEXT PRIMARY KEY,
			agent_id TEXT NOT NULL DEFAULT 'default',
			content TEXT NOT NULL,
			type TEXT NOT NULL,
			priority INTEGER NOT NULL DEFAULT 2,
			emotion_val REAL NOT NULL DEFAULT 0,
			vitality REAL NOT NULL DEFAULT 1.0,
			stability REAL NOT NULL DEFAULT 90,
			access_count INTEGER NOT NULL DEFAULT 0,
			last_accessed TEXT,
			source TEXT,
			hash TEXT NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE TABLE paths (
			id TEXT PRIMARY KEY,
			memory_id TEXT NOT NULL,
			uri TEXT NOT NULL UNIQUE,
			alias TEXT,
			domain TEXT,
			created_at TEXT NOT NULL
		)`,
		`CREATE TABLE links (
			source_id TEXT NOT NULL,
			target_id TEXT NOT NULL,
			relation TEXT NOT NULL DEFAULT 'related',
			weight REAL NOT NULL DEFAULT 1.0,
			created_at TEXT NOT NULL,
			PRIMARY KEY (source_id, target_id)
		)`,

		`INSERT INTO memories (id, agent_id, content, type, hash, created_at, updated_at) VALUES
			('mem-a', 'tenant-a', 'alpha fact', 'knowledge', 'h1', '2024-01-01T00:00:00Z', '2024-01-01T00:00:00Z'),
			('mem-b', 'tenant-b', 'beta fact', 'knowledge', 'h2', '2024-01-01T00:00:00Z', '2024-01-01T00:00:00Z'),
			('mem-c', 'tenant-a', 'gamma fact', 'knowledge', 'h3', '2024-01-01T00:00:00Z', '2024-01-01T00:00:00Z')`,
		`INSERT INTO paths (id, memory_id, uri, created_at) VALUES
			('p1', 'mem-a', 'knowledge://facts/alpha', '2024-01-01T00:00:00Z'),
			('p2', 'orphan-mem', 'knowledge://facts/lost', '2024-01-01T00:00:00Z')`,
		`INSERT INTO links (source_id, target_id, relation, created_at) VALUES
			('mem-a', 'mem-b', 'related', '2024-01-01T00:00:00Z'),
			('mem-a', 'mem-c', 'caused', '2024-01-01T00:00:00Z')`,
	}
	if recordVersion {
		stmts = append(stmts,
			`CREATE TABLE schema_meta (key TEXT PRIMARY KEY, value TEXT NOT NULL)`,
			`INSERT INTO schema_meta (key, value) VALUES ('version', '1')`)
	}
	for _, stmt := range stmts {
		require.NoError(t, db.Exec(stmt).Error)
	}

	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())
}

func TestMigrate_V1ToV3(t *testing.T) {
	for _, recorded := range []bool{true, false} {
		name := "recorded_version"
		if !recorded {
			name = "inferred_version"
		}
		t.Run(name, func(t *testing.T) {
			dbPath := filepath.Join(t.TempDir(), "store.db")
			writeV1Store(t, dbPath, recorded)

			db, err := Open(&Config{Path: dbPath, LogLevel: gormlogger.Silent})
			require.NoError(t, err)
			defer func() { _ = Close(db) }()

			version, err := SchemaVersion(db)
			require.NoError(t, err)
			assert.Equal(t, CurrentSchemaVersion, version)

			// paths and links now carry agent_id, derived from the owning
			// memory (or the source endpoint).
			assert.True(t, columnExists(db, "paths", "agent_id"))
			assert.True(t, columnExists(db, "links", "agent_id"))
			assert.True(t, tableExists(db, "embeddings"))

			var pathAgent string
			require.NoError(t, db.Raw(`SELECT agent_id FROM paths WHERE id = 'p1'`).Scan(&pathAgent).Error)
			assert.Equal(t, "tenant-a", pathAgent)

			// The path whose memory vanished falls back to the default tenant.
			require.NoError(t, db.Raw(`SELECT agent_id FROM paths WHERE id = 'p2'`).Scan(&pathAgent).Error)
			assert.Equal(t, "default", pathAgent)

			// The cross-agent link is gone; the same-tenant link survives.
			var linkCount int64
			require.NoError(t, db.Raw(`SELECT COUNT(*) FROM links`).Scan(&linkCount).Error)
			assert.EqualValues(t, 1, linkCount)

			var relation string
			require.NoError(t, db.Raw(`SELECT relation FROM links WHERE source_id = 'mem-a'`).Scan(&relation).Error)
			assert.Equal(t, "caused", relation)

			// The same URI may now exist once per tenant.
			require.NoError(t, db.Exec(`INSERT INTO paths (id, memory_id, agent_id, uri, created_at)
				VALUES ('p3', 'mem-b', 'tenant-b', 'knowledge://facts/alpha', '2024-01-02T00:00:00Z')`).Error)
			err = db.Exec(`INSERT INTO paths (id, memory_id, agent_id, uri, created_at)
				VALUES ('p4', 'mem-c', 'tenant-a', 'knowledge://facts/alpha', '2024-01-02T00:00:00Z')`).Error
			assert.Error(t, err, "duplicate (agent_id, uri) must still be rejected")
		})
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "store.db")
	writeV1Store(t, dbPath, true)

	db, err := Open(&Config{Path: dbPath, LogLevel: gormlogger.Silent})
	require.NoError(t, err)

	// A second migration pass over a current-version store is a no-op.
	require.NoError(t, Migrate(db))
	require.NoError(t, Migrate(db))

	version, err := SchemaVersion(db)
	require.NoError(t, err)
	assert.Equal(t, CurrentSchemaVersion, version)

	var linkCount int64
	require.NoError(t, db.Raw(`SELECT COUNT(*) FROM links`).Scan(&linkCount).Error)
	assert.EqualValues(t, 1, linkCount)

	require.NoError(t, Close(db))
}

func TestRebuildIndex(t *testing.T) {
	db, err := OpenTest(t.TempDir())
	require.NoError(t, err)
	defer func() { _ = Close(db) }()

	require.NoError(t, db.Exec(`INSERT INTO memories
		(id, agent_id, content, type, priority, emotion_val, vitality, stability, access_count, hash, created_at, updated_at)
		VALUES ('m1', 'default', 'deploy cluster notes', 'knowledge', 2, 0, 1.0, 90, 0, 'h1', '2025-01-01T00:00:00Z', '2025-01-01T00:00:00Z')`).Error)

	// Stale row that no longer matches any memory.
	require.NoError(t, db.Exec(`INSERT INTO memories_fts (id, content) VALUES ('ghost', 'stale tokens')`).Error)

	require.NoError(t, RebuildIndex(db, func(s string) string { return s }))

	var ids []string
	require.NoError(t, db.Raw(`SELECT id FROM memories_fts`).Scan(&ids).Error)
	assert.Equal(t, []string{"m1"}, ids)
}
