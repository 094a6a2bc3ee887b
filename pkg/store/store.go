// Package store persists users, login sessions, daily challenges and
// exercise logs in SQLite through gorm.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Sentinel errors.
var (
	ErrNotFound   = errors.New("store: not found")
	ErrEmailTaken = errors.New("store: user with this email already exists")
)

// DateLayout is how calendar days are stored.
const DateLayout = "2006-01-02"

// Store is the SQLite-backed repository.
type Store struct {
	db     *gorm.DB
	logger *slog.Logger
}

// Open opens (creating if needed) the database at path and migrates the
// schema. Use ":memory:" for a throwaway database.
func Open(path string, lg *slog.Logger) (*Store, error) {
	if lg == nil {
		lg = slog.Default()
	}

	dsn := path
	memory := path == ":memory:" || strings.Contains(path, "mode=memory")
	if !strings.Contains(dsn, "?") {
		dsn += "?_foreign_keys=on&_busy_timeout=5000"
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         gormLogger(lg),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if memory {
		// Each connection to :memory: is its own database.
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxIdleConns(4)
		sqlDB.SetMaxOpenConns(8)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	if err := db.AutoMigrate(&User{}, &UserSession{}, &DailyChallenge{}, &ExerciseLog{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	lg.Info("database ready", "component", "store", "path", path)
	return &Store{db: db, logger: lg.With("component", "store")}, nil
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func gormLogger(lg *slog.Logger) logger.Interface {
	return logger.New(
		slog.NewLogLogger(lg.Handler(), slog.LevelWarn),
		logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			ParameterizedQueries:      true,
			Colorful:                  false,
		},
	)
}

// Day formats t as a stored calendar day in UTC.
func Day(t time.Time) string {
	return t.UTC().Format(DateLayout)
}
