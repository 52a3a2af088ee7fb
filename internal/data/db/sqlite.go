package db

import (
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/yungbote/coursegen-backend/internal/platform/logger"
)

// NewSQLiteService opens path, which may be a file or a "file:name?mode=memory" DSN.
func NewSQLiteService(logg *logger.Logger, path string) (*Service, error) {
	if path == "" {
		path = "coursegen.db"
	}
	db, err := gorm.Open(sqlite.Open(path), gormConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite %q: %w", path, err)
	}
	// sqlite allows one writer; serialize through a single connection.
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(1)
	}
	serviceLog := logg.With("service", "SQLiteService")
	serviceLog.Info("opened sqlite", "path", path)
	return &Service{db: db, log: serviceLog}, nil
}

// OpenSQLiteMemory opens a private in-memory database with query logging silenced, for tests.
func OpenSQLiteMemory(name string) (*gorm.DB, error) {
	cfg := gormConfig()
	cfg.Logger = gormLogger.Default.LogMode(gormLogger.Silent)
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), cfg)
	if err != nil {
		return nil, err
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(1)
	}
	return db, nil
}
