package database

import (
	"fmt"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const sqliteScheme = "sqlite://"

// Connect opens the relational store. DSNs prefixed with sqlite:// use the
// embedded SQLite driver, anything else is handed to PostgreSQL.
func Connect(dsn string, debug bool) (*gorm.DB, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, fmt.Errorf("database dsn must not be empty")
	}

	gormCfg := &gorm.Config{TranslateError: true}
	if !debug {
		gormCfg.Logger = logger.Default.LogMode(logger.Warn)
	}

	if strings.HasPrefix(dsn, sqliteScheme) {
		db, err := gorm.Open(sqlite.Open(strings.TrimPrefix(dsn, sqliteScheme)), gormCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite: %w", err)
		}
		return db, nil
	}

	return ConnectPostgres(dsn, gormCfg)
}

// ConnectPostgres establishes a connection to the PostgreSQL database using the provided DSN.
func ConnectPostgres(dsn string, gormCfg *gorm.Config) (*gorm.DB, error) {
	if gormCfg == nil {
		gormCfg = &gorm.Config{}
	}

	db, err := gorm.Open(postgres.Open(dsn), gormCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	return db, nil
}
