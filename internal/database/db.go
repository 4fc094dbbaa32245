// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package database

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Config holds store configuration
type Config struct {
	Path     string // path to the sqlite file
	LogLevel logger.LogLevel
}

// Open opens (or creates) the durable store at cfg.Path, enables WAL
// journaling and foreign-key cascades, sets the 5-second lock wait, and runs
// schema migrations. The returned handle serializes writes through a single
// connection; sqlite's own lock arbitrates access from sibling processes.
func Open(cfg *Config) (*gorm.DB, error) {
	if err := ensureDir(cfg.Path); err != nil {
		return nil, fmt.Errorf("failed to ensure store directory: %w", err)
	}

	// Pragmas ride on the DSN so every pooled connection gets them.
	dsn := cfg.Path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(cfg.LogLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	// One writer connection keeps all store mutations serializable.
	sqlDB.SetMaxOpenConns(1)

	if err := Migrate(db); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to migrate store: %w", err)
	}

	return db, nil
}

// OpenTest opens a store in a temporary location for tests.
func OpenTest(dir string) (*gorm.DB, error) {
	return Open(&Config{
		Path:     filepath.Join(dir, "agent-memory.db"),
		LogLevel: logger.Silent,
	})
}

// ensureDir creates the directory for the store file if it doesn't exist
func ensureDir(dbPath string) error {
	dir := filepath.Dir(dbPath)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	return nil
}

// Close closes the store connection
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.Close()
}

// Ping checks if the store connection is alive
func Ping(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.Ping()
}
