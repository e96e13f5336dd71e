// internal/database/database.go

package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/wilheimcosta/adwrng2/internal/config"
	"github.com/wilheimcosta/adwrng2/internal/models"

	_ "github.com/lib/pq"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type Database struct {
	DB     *sql.DB
	Gorm   *gorm.DB
	Driver string
	cfg    *config.DatabaseConfig
}

// New opens the store selected by cfg.Driver.
func New(cfg *config.DatabaseConfig) (*Database, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		return openSQLite(cfg)
	default:
		return openPostgres(cfg)
	}
}

func openPostgres(cfg *config.DatabaseConfig) (*Database, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Database{
		DB:     db,
		Driver: config.DriverPostgres,
		cfg:    cfg,
	}, nil
}

func openSQLite(cfg *config.DatabaseConfig) (*Database, error) {
	if cfg.SQLitePath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	gdb, err := openGorm(cfg.SQLitePath)
	if err != nil {
		return nil, err
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying *sql.DB: %w", err)
	}
	// single writer; also keeps one shared :memory: database
	sqlDB.SetMaxOpenConns(1)

	return &Database{
		DB:     sqlDB,
		Gorm:   gdb,
		Driver: config.DriverSQLite,
		cfg:    cfg,
	}, nil
}

// OpenGorm opens a sqlite database at path and migrates the alert tables.
func OpenGorm(path string) (*gorm.DB, error) {
	gdb, err := openGorm(path)
	if err != nil {
		return nil, err
	}
	if err := migrateGorm(gdb); err != nil {
		return nil, err
	}
	return gdb, nil
}

func openGorm(path string) (*gorm.DB, error) {
	gdb, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger:  gormlogger.Default.LogMode(gormlogger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return gdb, nil
}

func migrateGorm(gdb *gorm.DB) error {
	if err := gdb.AutoMigrate(&models.AlertRecord{}, &models.FavoriteAerodrome{}); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	// sqlite has partial indexes too; keeps one active row per triple.
	if err := gdb.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS alerts_one_active
		ON alerts (icao, alert_type, content) WHERE status = 'active'`).Error; err != nil {
		return fmt.Errorf("failed to create active alert index: %w", err)
	}
	return nil
}

func (d *Database) Close() error {
	return d.DB.Close()
}

func (d *Database) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := d.DB.PingContext(ctx); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}

	var result int
	if err := d.DB.QueryRowContext(ctx, "SELECT 1").Scan(&result); err != nil {
		return fmt.Errorf("database query check failed: %w", err)
	}

	return nil
}
