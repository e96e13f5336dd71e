package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/wilheimcosta/adwrng2/internal/models"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// ErrAlreadyActive is returned by Insert when an active record with the same
// (icao, alert_type, content) already exists.
var ErrAlreadyActive = errors.New("an active alert with the same content already exists")

const uniqueViolation = "23505"

// IAlertRepository is the persistent alert store consumed by the reconciler and the sweeper.
type IAlertRepository interface {
	FindActive(ctx context.Context, icao, alertType, content string) (*models.AlertRecord, error)
	Insert(ctx context.Context, alert *models.AlertRecord) error
	ExpireOutOfWindow(ctx context.Context, icaos []string, now time.Time) (int64, error)
	QueryRecent(ctx context.Context, limit int) ([]models.AlertRecord, error)
	ListActive(ctx context.Context, icaos []string) ([]models.AlertRecord, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.AlertRecord, error)
	ArchiveExpired(ctx context.Context, olderThan time.Duration) (int64, error)
	GetStatistics(ctx context.Context) (map[string]int, error)
}

type AlertRepository struct {
	db *sql.DB
}

func NewAlertRepository(db *sql.DB) *AlertRepository {
	return &AlertRepository{db: db}
}

const alertColumns = `id, icao, alert_type, content, status, severity,
		       valid_from, valid_until, raw_data, created_at, updated_at`

// FindActive returns the active record for the dedup triple, or nil when there is none.
func (r *AlertRepository) FindActive(ctx context.Context, icao, alertType, content string) (*models.AlertRecord, error) {
	query := `
		SELECT ` + alertColumns + `
		FROM alerts
		WHERE icao = $1 AND alert_type = $2 AND content = $3 AND status = $4
		LIMIT 1
	`

	alert, err := scanAlert(r.db.QueryRowContext(ctx, query, icao, alertType, content, models.StatusActive))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find active alert: %w", err)
	}
	return alert, nil
}

// Insert stores a new alert record and fills in ID and the store timestamps.
func (r *AlertRepository) Insert(ctx context.Context, alert *models.AlertRecord) error {
	query := `
		INSERT INTO alerts (
			id, icao, alert_type, content, status, severity,
			valid_from, valid_until, raw_data
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`

	if alert.ID == uuid.Nil {
		alert.ID = uuid.New()
	}
	if alert.Status == "" {
		alert.Status = models.StatusActive
	}

	var raw sql.NullString
	if len(alert.RawData) > 0 {
		raw = sql.NullString{String: string(alert.RawData), Valid: true}
	}

	err := r.db.QueryRowContext(
		ctx, query,
		alert.ID,
		alert.ICAO,
		alert.AlertType,
		alert.Content,
		alert.Status,
		alert.Severity,
		nullTime(alert.ValidFrom),
		nullTime(alert.ValidUntil),
		raw,
	).Scan(&alert.CreatedAt, &alert.UpdatedAt)

	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return ErrAlreadyActive
		}
		return fmt.Errorf("failed to create alert: %w", err)
	}

	return nil
}

// ExpireOutOfWindow flips active records whose window no longer contains now.
// An empty icaos slice sweeps every aerodrome.
func (r *AlertRepository) ExpireOutOfWindow(ctx context.Context, icaos []string, now time.Time) (int64, error) {
	query := `
		UPDATE alerts
		SET status = $1, updated_at = $2
		WHERE status = $3
		  AND ((valid_until IS NOT NULL AND valid_until < $2)
		    OR (valid_from IS NOT NULL AND valid_from > $2))
	`
	args := []interface{}{models.StatusExpired, now, models.StatusActive}

	if len(icaos) > 0 {
		query += ` AND icao = ANY($4)`
		args = append(args, pq.Array(icaos))
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to expire alerts: %w", err)
	}
	return result.RowsAffected()
}

// QueryRecent returns the newest alerts regardless of status.
func (r *AlertRepository) QueryRecent(ctx context.Context, limit int) ([]models.AlertRecord, error) {
	query := `
		SELECT ` + alertColumns + `
		FROM alerts
		ORDER BY created_at DESC
		LIMIT $1
	`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent alerts: %w", err)
	}
	defer rows.Close()

	return scanAlerts(rows)
}

// ListActive returns active alerts, optionally restricted to some aerodromes.
func (r *AlertRepository) ListActive(ctx context.Context, icaos []string) ([]models.AlertRecord, error) {
	query := `
		SELECT ` + alertColumns + `
		FROM alerts
		WHERE status = $1
	`
	args := []interface{}{models.StatusActive}

	if len(icaos) > 0 {
		query += ` AND icao = ANY($2)`
		args = append(args, pq.Array(icaos))
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query active alerts: %w", err)
	}
	defer rows.Close()

	return scanAlerts(rows)
}

func (r *AlertRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.AlertRecord, error) {
	query := `
		SELECT ` + alertColumns + `
		FROM alerts
		WHERE id = $1
	`

	alert, err := scanAlert(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get alert by id: %w", err)
	}
	return alert, nil
}

// ArchiveExpired moves expired alerts untouched for longer than olderThan to archived.
func (r *AlertRepository) ArchiveExpired(ctx context.Context, olderThan time.Duration) (int64, error) {
	query := `UPDATE alerts SET status = $1, updated_at = NOW() WHERE status = $2 AND updated_at < $3`
	cutoff := time.Now().Add(-olderThan)
	result, err := r.db.ExecContext(ctx, query, models.StatusArchived, models.StatusExpired, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to archive alerts: %w", err)
	}
	return result.RowsAffected()
}

// GetStatistics returns a count of active alerts grouped by severity.
func (r *AlertRepository) GetStatistics(ctx context.Context) (map[string]int, error) {
	query := `
		SELECT severity, COUNT(*)
		FROM alerts
		WHERE status = $1
		GROUP BY severity
	`
	rows, err := r.db.QueryContext(ctx, query, models.StatusActive)
	if err != nil {
		return nil, fmt.Errorf("failed to query alert statistics: %w", err)
	}
	defer rows.Close()

	stats := make(map[string]int)
	for rows.Next() {
		var sev string
		var count int
		if err := rows.Scan(&sev, &count); err != nil {
			return nil, err
		}
		stats[sev] = count
	}
	return stats, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAlert(row rowScanner) (*models.AlertRecord, error) {
	var (
		a          models.AlertRecord
		validFrom  sql.NullTime
		validUntil sql.NullTime
		raw        []byte
	)

	err := row.Scan(
		&a.ID, &a.ICAO, &a.AlertType, &a.Content, &a.Status, &a.Severity,
		&validFrom, &validUntil, &raw, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	a.ValidFrom = timePtr(validFrom)
	a.ValidUntil = timePtr(validUntil)
	if len(raw) > 0 {
		a.RawData = raw
	}
	return &a, nil
}

func scanAlerts(rows *sql.Rows) ([]models.AlertRecord, error) {
	alerts := []models.AlertRecord{}
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, *a)
	}
	return alerts, rows.Err()
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time.UTC()
	return &t
}
