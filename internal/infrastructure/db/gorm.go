package db

import (
	"log/slog"
	"strings"
	"time"

	"assetloan-backend/internal/domain/directory"
	"assetloan-backend/internal/domain/loan"
	"assetloan-backend/internal/domain/reminder"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ParseLogLevel maps GORM_LOG_LEVEL to a gorm log level; unknown values fall
// back to warn.
func ParseLogLevel(s string) logger.LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	}
	return logger.Warn
}

func OpenGorm(dsn string, level logger.LogLevel) (*gorm.DB, error) {
	return OpenGormWithDialector(mysql.Open(dsn), level)
}

// OpenGormWithDialector opens the pool and pings it once.
func OpenGormWithDialector(dial gorm.Dialector, level logger.LogLevel) (*gorm.DB, error) {
	cfg := &gorm.Config{
		Logger: logger.Default.LogMode(level),
	}
	db, err := gorm.Open(dial, cfg)
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(30)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	sqlDB.SetConnMaxIdleTime(10 * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return nil, err
	}
	slog.Info("gorm: connected", "dialect", dial.Name())
	return db, nil
}

// Migrate creates or updates the tables this service owns.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&loan.Loan{}, &directory.Entitas{}, &directory.Company{}, &reminder.Run{})
}
