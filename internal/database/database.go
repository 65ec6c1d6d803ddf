// Package database opens the GORM connections used by the SQL storage
// backends and owns the schema.
package database

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/glebarez/sqlite"
	"github.com/roadsim/roadsim/internal/model"
	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SchemaVersion is written to roadsim_infos on first setup.
const SchemaVersion = 1

// memoryDSN is the shared in-memory SQLite database used when no path is given.
const memoryDSN = "file::memory:?cache=shared"

// Config is the db.* section.
type Config struct {
	Host         string
	Port         string
	Username     string
	Password     string
	Database     string
	MaxOpenConns int
}

// DSN is the libpq connection string for c.
func (c Config) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Host, c.Port, c.Username, c.Password, c.Database)
}

// Manager holds the connection of the Postgres backend, which may turn out
// to be an in-memory SQLite database when Postgres cannot be reached.
type Manager struct {
	DB       *gorm.DB
	SqlDB    *sql.DB
	Fallback bool
	Logger   zerolog.Logger
}

// NewManager creates a disconnected manager.
func NewManager(log zerolog.Logger) *Manager {
	return &Manager{Logger: log}
}

// Connect opens and pings Postgres. On failure it logs the error and
// switches to in-memory SQLite so runs are still recorded.
func (m *Manager) Connect(cfg Config) error {
	db, err := OpenPostgres(cfg)
	if err == nil {
		err = m.use(db)
	}
	if err == nil {
		if cfg.MaxOpenConns > 0 {
			m.SqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		}
		m.Logger.Info().Str("host", cfg.Host).Str("database", cfg.Database).Msg("Connected to Postgres")
		return nil
	}

	m.Logger.Error().Err(err).Msg("Failed to connect to Postgres, using in-memory SQLite")
	db, err = OpenSQLite("")
	if err != nil {
		return fmt.Errorf("failed to open fallback SQLite: %w", err)
	}
	if err := m.use(db); err != nil {
		return err
	}
	m.Fallback = true
	return nil
}

func (m *Manager) use(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to access sql interface: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return err
	}
	m.DB, m.SqlDB = db, sqlDB
	return nil
}

// Close releases the connection pool.
func (m *Manager) Close() error {
	if m.SqlDB == nil {
		return nil
	}
	err := m.SqlDB.Close()
	m.DB, m.SqlDB = nil, nil
	return err
}

// OpenPostgres opens (but does not ping) a Postgres connection.
func OpenPostgres(cfg Config) (*gorm.DB, error) {
	return gorm.Open(postgres.New(postgres.Config{
		DSN:                  cfg.DSN(),
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		SkipDefaultTransaction: true,
		CreateBatchSize:        10000,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
}

// OpenSQLite opens the SQLite database at path, or a shared in-memory
// database when path is empty.
func OpenSQLite(path string) (*gorm.DB, error) {
	dsn := path
	if dsn == "" {
		dsn = memoryDSN
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		PrepareStmt:            true,
		SkipDefaultTransaction: true,
		CreateBatchSize:        2000,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode = MEMORY;",
		"PRAGMA synchronous = OFF;",
		"PRAGMA cache_size = -32000;",
		"PRAGMA temp_store = MEMORY;",
		fmt.Sprintf("PRAGMA user_version = %d;", SchemaVersion),
	} {
		if err := db.Exec(pragma).Error; err != nil {
			return nil, fmt.Errorf("error setting %q: %w", pragma, err)
		}
	}
	return db, nil
}

// Migrate creates the roadsim_infos row on first use and migrates all models.
func Migrate(db *gorm.DB, log zerolog.Logger) error {
	if db == nil {
		return errors.New("database not connected")
	}
	if !db.Migrator().HasTable(&model.RoadsimInfo{}) {
		if err := db.AutoMigrate(&model.RoadsimInfo{}); err != nil {
			return fmt.Errorf("failed to create roadsim_infos table: %w", err)
		}
		if err := db.Create(&model.RoadsimInfo{
			SchemaVersion: SchemaVersion,
			Description:   "roadsim",
		}).Error; err != nil {
			return fmt.Errorf("failed to create roadsim_infos entry: %w", err)
		}
	}

	if err := db.AutoMigrate(model.DatabaseModels...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	log.Debug().Int("models", len(model.DatabaseModels)).Msg("Schema migrated")
	return nil
}

// DumpToDisk snapshots db into a SQLite file at path with VACUUM INTO,
// replacing any existing file.
func DumpToDisk(db *gorm.DB, path string) error {
	if path == "" {
		return errors.New("sqlite file path not set")
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("error removing existing DB file: %w", err)
	}
	escaped := strings.ReplaceAll(path, "'", "''")
	if err := db.Exec("VACUUM INTO 'file:" + escaped + "';").Error; err != nil {
		return fmt.Errorf("error dumping DB to disk: %w", err)
	}
	return nil
}
