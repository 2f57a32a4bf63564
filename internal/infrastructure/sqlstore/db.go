// Package sqlstore persists users and votes in SQLite through gorm.
package sqlstore

import (
	"fmt"

	"github.com/glebarez/sqlite"
	"github.com/nft-voting-api/internal/domain"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Open opens the database at dsn and migrates the schema. An empty dsn opens
// a private in-memory database.
func Open(dsn string) (*gorm.DB, error) {
	if dsn == "" {
		dsn = "file::memory:"
	}
	db, err := gorm.Open(
		sqlite.Open(dsn),
		&gorm.Config{
			Logger:                 gormlogger.Discard,
			SkipDefaultTransaction: true,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// SQLite allows one writer; a single connection serializes them and keeps
	// an in-memory database alive for the life of the pool.
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&domain.User{}, &domain.Vote{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// Close releases the underlying connection pool.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
