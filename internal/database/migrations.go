package database

import (
	"context"
	"fmt"
)

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS alerts (
		id          UUID PRIMARY KEY,
		icao        CHAR(4) NOT NULL CHECK (icao ~ '^[A-Z]{4}$'),
		alert_type  TEXT NOT NULL,
		content     TEXT NOT NULL,
		status      TEXT NOT NULL CHECK (status IN ('active', 'expired', 'archived')),
		severity    TEXT NOT NULL CHECK (severity IN ('low', 'medium', 'high', 'critical')),
		valid_from  TIMESTAMPTZ NULL,
		valid_until TIMESTAMPTZ NULL,
		raw_data    JSONB,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	// md5 keeps the key short; warning bodies can exceed the btree row limit.
	`CREATE UNIQUE INDEX IF NOT EXISTS alerts_one_active
		ON alerts (icao, alert_type, md5(content)) WHERE status = 'active'`,
	`CREATE INDEX IF NOT EXISTS alerts_status_icao ON alerts (status, icao)`,
	`CREATE INDEX IF NOT EXISTS alerts_created_at ON alerts (created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS favorite_aerodromes (
		icao       CHAR(4) PRIMARY KEY CHECK (icao ~ '^[A-Z]{4}$'),
		label      TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}

// Migrate creates the schema of the open store: the Postgres DDL below, or
// gorm's AutoMigrate plus the active alert index on sqlite.
func (d *Database) Migrate(ctx context.Context) error {
	if d.Gorm != nil {
		return migrateGorm(d.Gorm.WithContext(ctx))
	}

	for i, stmt := range postgresSchema {
		if _, err := d.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration step %d failed: %w", i+1, err)
		}
	}
	return nil
}
