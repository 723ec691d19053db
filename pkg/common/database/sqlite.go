package database

import (
	"fmt"

	"github.com/coachpo/swiperflix-gateway/pkg/common/logger"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// OpenSQLite opens (creating if needed) the SQLite file at path with foreign
// keys enforced and a busy timeout. SQLite allows a single writer, so the pool
// is capped at one connection and transactions serialize.
func OpenSQLite(path string) (*gorm.DB, error) {
	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000&_journal_mode=WAL", path)

	db, err := gorm.Open(sqlite.Open(dsn), gormConfig())
	if err != nil {
		logger.Log.WithError(err).Error("Failed to open SQLite database")
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	logger.Log.WithField("path", path).Info("Opened SQLite database")
	return db, nil
}
