// Package store persists projects and encrypted API keys with GORM.
// Postgres is used when DATABASE_URL points at one; otherwise a pure Go
// SQLite file.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"ai-app-builder/internal/logging"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

// Database wraps the GORM database instance
type Database struct {
	DB     *gorm.DB
	driver string
	logger *zap.Logger
}

// Config holds database configuration
type Config struct {
	// DatabaseURL selects Postgres when it starts with postgres:// or
	// postgresql://.
	DatabaseURL string
	// SQLitePath is used otherwise. ":memory:" gives a private in-memory
	// database.
	SQLitePath string
	// LogLevel is the GORM log level: silent, error, warn or info.
	LogLevel string
}

// DefaultConfig returns default database configuration
func DefaultConfig() *Config {
	return &Config{SQLitePath: "app_builder.db", LogLevel: "warn"}
}

// Open connects and runs migrations.
func Open(cfg *Config, log *zap.Logger) (*Database, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	log = logging.OrDefault(log).Named("store")

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(gormLogLevel(cfg.LogLevel)),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}

	var (
		dialector gorm.Dialector
		driver    string
	)
	if IsPostgresURL(cfg.DatabaseURL) {
		dialector, driver = postgres.Open(cfg.DatabaseURL), "postgres"
	} else {
		path := cfg.SQLitePath
		if path == "" {
			path = DefaultConfig().SQLitePath
		}
		dialector, driver = sqlite.Open(sqliteDSN(path)), "sqlite"
	}

	db, err := gorm.Open(dialector, gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	if driver == "sqlite" {
		// SQLite allows a single writer.
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(50)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	database := &Database{DB: db, driver: driver, logger: log}
	if err := database.Migrate(); err != nil {
		_ = database.Close()
		return nil, err
	}

	log.Info("database connected", zap.String("driver", driver))
	return database, nil
}

// Migrate creates or updates the schema.
func (d *Database) Migrate() error {
	if err := d.DB.AutoMigrate(&ProjectRecord{}, &APIKeyRecord{}); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	return nil
}

// Driver returns "postgres" or "sqlite".
func (d *Database) Driver() string { return d.driver }

// Health checks database connectivity
func (d *Database) Health(ctx context.Context) error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	return nil
}

// Close closes the database connection
func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// GetStats returns database connection statistics
func (d *Database) GetStats() map[string]interface{} {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return map[string]interface{}{"error": err.Error()}
	}

	stats := sqlDB.Stats()
	return map[string]interface{}{
		"driver":               d.driver,
		"max_open_connections": stats.MaxOpenConnections,
		"open_connections":     stats.OpenConnections,
		"in_use":               stats.InUse,
		"idle":                 stats.Idle,
		"wait_count":           stats.WaitCount,
		"wait_duration_ms":     stats.WaitDuration.Milliseconds(),
	}
}

// IsPostgresURL reports whether raw names a Postgres database.
func IsPostgresURL(raw string) bool {
	raw = strings.ToLower(strings.TrimSpace(raw))
	return strings.HasPrefix(raw, "postgres://") || strings.HasPrefix(raw, "postgresql://")
}

func sqliteDSN(path string) string {
	if path == ":memory:" {
		return "file::memory:"
	}
	if strings.Contains(path, "?") {
		return path
	}
	return path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

func gormLogLevel(level string) logger.LogLevel {
	switch strings.ToLower(level) {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info", "debug":
		return logger.Info
	default:
		return logger.Warn
	}
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
