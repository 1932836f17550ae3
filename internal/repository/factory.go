package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/pairwise-ratings/pkg/config"
	"github.com/pairwise-ratings/pkg/telemetry"
)

// DBType represents the database type.
type DBType string

const (
	DBTypeSQLite   DBType = "sqlite"
	DBTypePostgres DBType = "postgres"
	DBTypeMySQL    DBType = "mysql"
)

// Dialector returns the GORM dialector for the configured database.
func Dialector(cfg *config.DatabaseConfig) (gorm.Dialector, error) {
	switch DBType(cfg.Type) {
	case DBTypeSQLite:
		return sqlite.Open(cfg.Path), nil
	case DBTypePostgres, DBType("postgresql"):
		return postgres.Open(fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
			cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database,
		)), nil
	case DBTypeMySQL:
		return mysql.Open(fmt.Sprintf(
			"%s:%s@tcp(%s:%d)/%s?parseTime=true&loc=Local",
			cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database,
		)), nil
	default:
		return nil, dbError(fmt.Sprintf("unsupported database type: %s", cfg.Type), nil)
	}
}

// NewGormDB opens and pings the configured database.
func NewGormDB(ctx context.Context, cfg *config.DatabaseConfig) (*gorm.DB, error) {
	dialector, err := Dialector(cfg)
	if err != nil {
		return nil, err
	}
	return Open(ctx, dialector, cfg.MaxConns)
}

// Open opens a GORM connection over dialector, enabling query tracing when
// telemetry is on.
func Open(ctx context.Context, dialector gorm.Dialector, maxConns int) (*gorm.DB, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, dbError("failed to open database", err)
	}

	if telemetry.Enabled() {
		if err := db.Use(tracing.NewPlugin()); err != nil {
			return nil, dbError("failed to enable telemetry", err)
		}
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, dbError("failed to get underlying sql.DB", err)
	}
	if maxConns <= 0 {
		maxConns = 10
	}
	sqlDB.SetMaxOpenConns(maxConns)
	sqlDB.SetMaxIdleConns(max(1, maxConns/2))
	sqlDB.SetConnMaxLifetime(time.Hour)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		sqlDB.Close()
		return nil, dbError("failed to ping database", err)
	}

	return db, nil
}

// Store bundles the repositories over one connection.
type Store struct {
	Runs RunRepository
	db   *gorm.DB
}

// NewStore wraps db. Call Migrate before first use on an empty database.
func NewStore(db *gorm.DB) *Store {
	return &Store{Runs: NewGormRunRepository(db), db: db}
}

// Migrate creates or updates the tables.
func (s *Store) Migrate(ctx context.Context) error {
	return s.Runs.Migrate(ctx)
}

// HealthCheck verifies the connection is alive.
func (s *Store) HealthCheck(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
