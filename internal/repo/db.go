// Package repo implements the data persistence layer for the reply store,
// backed by GORM. This file contains database bootstrapping helpers for
// SQLite (pure Go driver), schema migration, and corruption recovery.
package repo

import (
	"os"

	sqlite "github.com/glebarez/sqlite"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	glogger "gorm.io/gorm/logger"

	"zbx-rc/internal/domain"
)

// Open opens (or creates) the reply store at path and applies PRAGMAs and
// migrations. If the file turns out corrupt or unreadable it is deleted and
// reinitialized with an empty schema; the caller proceeds as if no prior
// record existed. Runs once at the start of a send operation.
func Open(path string) (*gorm.DB, error) {
	db, err := open(path)
	if err == nil {
		return db, nil
	}

	log.Warn().Err(err).Str("path", path).Msg("reply store unusable, recreating")
	if db != nil {
		Close(db)
	}
	for _, p := range []string{path, path + "-wal", path + "-shm"} {
		if rmErr := os.Remove(p); rmErr != nil && !os.IsNotExist(rmErr) {
			return nil, rmErr
		}
	}
	return open(path)
}

// Close releases the underlying sql.DB. The dispatcher opens a fresh
// connection per send and closes it before returning.
func Close(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
}

func open(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: glogger.Default.LogMode(glogger.Silent),
	})
	if err != nil {
		return nil, err
	}

	// PRAGMAs
	db.Exec("PRAGMA journal_mode=WAL;")
	db.Exec("PRAGMA synchronous=NORMAL;")
	db.Exec("PRAGMA busy_timeout=5000;")

	// A truncated or overwritten file surfaces here rather than mid-send.
	var verdict string
	if err := db.Raw("PRAGMA integrity_check;").Scan(&verdict).Error; err != nil {
		return db, err
	}
	if verdict != "ok" {
		return db, gorm.ErrInvalidDB
	}

	if err := db.AutoMigrate(&domain.Reply{}); err != nil {
		return db, err
	}
	return db, nil
}
