// Package repo implements the data persistence layer for the floor entities,
// backed by GORM. This file contains database bootstrapping helpers for
// SQLite (pure Go driver), PostgreSQL and MySQL, plus schema migrations.
package repo

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/tbourn/hoststand/internal/config"
	"github.com/tbourn/hoststand/internal/domain"
)

// Open connects to the configured store and installs the tracing plugin so
// every query becomes a child span of the request that issued it.
func Open(cfg config.DBConfig) (*gorm.DB, error) {
	var (
		db  *gorm.DB
		err error
	)
	gcfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)}
	switch cfg.Driver {
	case "", "sqlite":
		db, err = OpenSQLite(cfg.DSN)
	case "postgres":
		db, err = gorm.Open(postgres.Open(cfg.DSN), gcfg)
	case "mysql":
		db, err = gorm.Open(mysql.Open(cfg.DSN), gcfg)
	default:
		return nil, fmt.Errorf("unsupported db driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
		return nil, err
	}
	if cfg.Driver == "postgres" || cfg.Driver == "mysql" {
		setPool(db)
	}
	return db, nil
}

// OpenSQLite opens (or creates) a SQLite database and applies PRAGMAs.
func OpenSQLite(path string) (*gorm.DB, error) {
	// Fail early if parent directory does not exist (instead of sqlite "out of memory (14)" on Windows).
	if dir := filepath.Dir(path); dir != "." {
		if _, err := os.Stat(dir); err != nil {
			return nil, err
		}
	}

	db, err := gorm.Open(sqlite.Open(path+sqliteConnParams(path)), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}

	// journal_mode is stored in the file; the rest are per connection and
	// ride on the DSN so every pooled connection gets them.
	db.Exec("PRAGMA journal_mode=WAL;")

	setPool(db)
	return db, nil
}

func sqliteConnParams(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	// Immediate transactions take the write lock at BEGIN, so a writer that
	// has to wait does so in busy_timeout instead of failing on a stale read
	// snapshot.
	return sep + "_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(1)&_txlock=immediate"
}

func setPool(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(10)
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetConnMaxIdleTime(5 * time.Minute)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}
}

// AutoMigrate creates or updates every floor table.
func AutoMigrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&domain.Table{},
		&domain.Reservation{},
		&domain.ServiceRecord{},
		&domain.WaitlistEntry{},
		&domain.Idempotency{},
		&domain.QueueLock{},
	)
	if err != nil {
		return err
	}
	return seedQueueLocks(db)
}
