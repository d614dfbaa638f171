package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// schemaVersion is recorded in the database at migration time so future
// releases can detect schemas they must upgrade.
const schemaVersion = 1

// DatabaseType selects the database backend.
type DatabaseType string

const (
	// DatabaseTypeSQLite is the single-node default.
	DatabaseTypeSQLite DatabaseType = "sqlite"

	// DatabaseTypePostgres supports HA deployments.
	DatabaseTypePostgres DatabaseType = "postgres"
)

// SQLiteConfig locates the SQLite database.
type SQLiteConfig struct {
	// Path is the database file, or ":memory:".
	Path string
}

// PostgresConfig holds PostgreSQL connection settings.
type PostgresConfig struct {
	Host         string
	Port         int
	Database     string
	User         string
	Password     string
	SSLMode      string // disable, require, verify-ca, verify-full
	MaxOpenConns int
	MaxIdleConns int
}

// DSN renders the PostgreSQL connection string.
func (c *PostgresConfig) DSN() string {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s",
		c.Host, c.Port, c.User, c.Password, c.Database)
	if c.SSLMode != "" {
		dsn += " sslmode=" + c.SSLMode
	}
	return dsn
}

// Config selects and configures the database backend.
type Config struct {
	Type     DatabaseType
	SQLite   SQLiteConfig
	Postgres PostgresConfig
}

// ApplyDefaults fills in missing configuration.
func (c *Config) ApplyDefaults() {
	if c.Type == "" {
		c.Type = DatabaseTypeSQLite
	}

	switch c.Type {
	case DatabaseTypeSQLite:
		if c.SQLite.Path == "" {
			c.SQLite.Path = defaultSQLitePath()
		}
	case DatabaseTypePostgres:
		if c.Postgres.Port == 0 {
			c.Postgres.Port = 5432
		}
		if c.Postgres.SSLMode == "" {
			c.Postgres.SSLMode = "disable"
		}
		if c.Postgres.MaxOpenConns == 0 {
			c.Postgres.MaxOpenConns = 25
		}
		if c.Postgres.MaxIdleConns == 0 {
			c.Postgres.MaxIdleConns = 5
		}
	}
}

func defaultSQLitePath() string {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, _ := os.UserHomeDir()
		configDir = filepath.Join(homeDir, ".config")
	}
	return filepath.Join(configDir, "idmapping", "idmapping.db")
}

// Validate rejects incomplete configuration.
func (c *Config) Validate() error {
	switch c.Type {
	case DatabaseTypeSQLite:
		if c.SQLite.Path == "" {
			return errors.New("sqlite path is required")
		}
	case DatabaseTypePostgres:
		switch {
		case c.Postgres.Host == "":
			return errors.New("postgres host is required")
		case c.Postgres.Database == "":
			return errors.New("postgres database is required")
		case c.Postgres.User == "":
			return errors.New("postgres user is required")
		}
	default:
		return fmt.Errorf("unsupported database type: %s", c.Type)
	}
	return nil
}

// GORMStore implements Store over GORM, serving both the SQLite and
// PostgreSQL backends from the same code.
type GORMStore struct {
	db     *gorm.DB
	config *Config
}

// New opens the configured database and migrates the schema.
func New(config *Config) (*GORMStore, error) {
	if config == nil {
		config = &Config{}
	}
	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid database configuration: %w", err)
	}

	dialector, err := config.dialector()
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if config.Type == DatabaseTypePostgres {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get underlying database: %w", err)
		}
		sqlDB.SetMaxOpenConns(config.Postgres.MaxOpenConns)
		sqlDB.SetMaxIdleConns(config.Postgres.MaxIdleConns)
	}

	if err := db.AutoMigrate(allRows()...); err != nil {
		return nil, fmt.Errorf("failed to run database migration: %w", err)
	}

	store := &GORMStore{db: db, config: config}
	if err := store.ensureSchemaVersion(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to record schema version: %w", err)
	}
	return store, nil
}

func (c *Config) dialector() (gorm.Dialector, error) {
	switch c.Type {
	case DatabaseTypeSQLite:
		if c.SQLite.Path != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(c.SQLite.Path), 0755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
		// WAL for concurrent readers, busy_timeout to ride out writer locks
		return sqlite.Open(c.SQLite.Path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"), nil
	case DatabaseTypePostgres:
		return postgres.Open(c.Postgres.DSN()), nil
	default:
		return nil, fmt.Errorf("unsupported database type: %s", c.Type)
	}
}

// ensureSchemaVersion writes the schema version record if absent.
func (s *GORMStore) ensureSchemaVersion(ctx context.Context) error {
	row := schemaVersionRow{ID: 1, Version: schemaVersion}
	return s.db.WithContext(ctx).
		Where(schemaVersionRow{ID: 1}).
		FirstOrCreate(&row).Error
}

// Ping verifies the backing database is reachable.
func (s *GORMStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close releases the underlying database connection.
func (s *GORMStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// DB exposes the GORM handle for tests and advanced queries.
func (s *GORMStore) DB() *gorm.DB {
	return s.db
}

// isUniqueConstraintError matches a unique constraint violation from
// either backend.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value violates unique constraint")
}

// convertNotFoundError maps gorm.ErrRecordNotFound to the given domain
// error, passing every other error through.
func convertNotFoundError(err error, notFoundErr error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFoundErr
	}
	return err
}
