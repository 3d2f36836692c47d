package storage

import (
	"errors"
	"fmt"
	"time"

	"github.com/samber/lo"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/gambcl/chartstudies/pkg/core"
)

// SQLStorage implements core.SignalStorage on a SQL database via GORM
type SQLStorage struct {
	db *gorm.DB
}

// FromSQLite opens (or creates) a SQLite database file
func FromSQLite(file string) (*SQLStorage, error) {
	return FromSQL(sqlite.Open(file), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
}

// FromSQL opens a database with the given dialect and migrates the signal table
func FromSQL(dialect gorm.Dialector, opts ...gorm.Option) (*SQLStorage, error) {
	db, err := gorm.Open(dialect, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&core.Signal{}); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SQLStorage{db: db}, nil
}

// CreateSignal inserts a signal; the database assigns its ID
func (s *SQLStorage) CreateSignal(signal *core.Signal) error {
	// SQLite compares times as text, keep a single zone
	signal.Time = signal.Time.UTC()
	if err := s.db.Create(signal).Error; err != nil {
		return fmt.Errorf("failed to create signal: %w", err)
	}
	return nil
}

// Signals retrieves the signals matching all filters, oldest first
func (s *SQLStorage) Signals(filters ...core.SignalFilter) ([]*core.Signal, error) {
	var signals []*core.Signal

	result := s.db.Order("time asc").Order("id asc").Find(&signals)
	if result.Error != nil && !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to fetch signals: %w", result.Error)
	}

	return lo.Filter(signals, func(signal *core.Signal, _ int) bool {
		for _, filter := range filters {
			if !filter(*signal) {
				return false
			}
		}
		return true
	}), nil
}

// Close closes the database connection
func (s *SQLStorage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	return sqlDB.Close()
}
