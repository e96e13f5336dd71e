package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wilheimcosta/adwrng2/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormAlertRepository is the embedded (sqlite) alert store used when DB_DRIVER=sqlite.
type GormAlertRepository struct {
	db *gorm.DB
}

func NewGormAlertRepository(db *gorm.DB) *GormAlertRepository {
	return &GormAlertRepository{db: db}
}

func (r *GormAlertRepository) FindActive(ctx context.Context, icao, alertType, content string) (*models.AlertRecord, error) {
	var alert models.AlertRecord
	err := r.db.WithContext(ctx).
		Where("icao = ? AND alert_type = ? AND content = ? AND status = ?", icao, alertType, content, models.StatusActive).
		Take(&alert).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find active alert: %w", err)
	}
	return &alert, nil
}

func (r *GormAlertRepository) Insert(ctx context.Context, alert *models.AlertRecord) error {
	if alert.ID == uuid.Nil {
		alert.ID = uuid.New()
	}
	if alert.Status == "" {
		alert.Status = models.StatusActive
	}

	if err := r.db.WithContext(ctx).Create(alert).Error; err != nil {
		if isSQLiteUniqueViolation(err) {
			return ErrAlreadyActive
		}
		return fmt.Errorf("failed to create alert: %w", err)
	}
	return nil
}

func (r *GormAlertRepository) ExpireOutOfWindow(ctx context.Context, icaos []string, now time.Time) (int64, error) {
	// sqlite compares timestamps as text, so everything is kept in UTC.
	now = now.UTC()
	q := r.db.WithContext(ctx).Model(&models.AlertRecord{}).
		Where("status = ?", models.StatusActive).
		Where("((valid_until IS NOT NULL AND valid_until < ?) OR (valid_from IS NOT NULL AND valid_from > ?))", now, now)
	if len(icaos) > 0 {
		q = q.Where("icao IN ?", icaos)
	}

	result := q.Updates(map[string]interface{}{"status": models.StatusExpired, "updated_at": now})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to expire alerts: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func (r *GormAlertRepository) QueryRecent(ctx context.Context, limit int) ([]models.AlertRecord, error) {
	alerts := []models.AlertRecord{}
	if err := r.db.WithContext(ctx).Order("created_at DESC").Limit(limit).Find(&alerts).Error; err != nil {
		return nil, fmt.Errorf("failed to query recent alerts: %w", err)
	}
	return alerts, nil
}

func (r *GormAlertRepository) ListActive(ctx context.Context, icaos []string) ([]models.AlertRecord, error) {
	q := r.db.WithContext(ctx).Where("status = ?", models.StatusActive)
	if len(icaos) > 0 {
		q = q.Where("icao IN ?", icaos)
	}

	alerts := []models.AlertRecord{}
	if err := q.Order("created_at DESC").Find(&alerts).Error; err != nil {
		return nil, fmt.Errorf("failed to query active alerts: %w", err)
	}
	return alerts, nil
}

func (r *GormAlertRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.AlertRecord, error) {
	var alert models.AlertRecord
	err := r.db.WithContext(ctx).First(&alert, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get alert by id: %w", err)
	}
	return &alert, nil
}

func (r *GormAlertRepository) ArchiveExpired(ctx context.Context, olderThan time.Duration) (int64, error) {
	now := time.Now().UTC()
	result := r.db.WithContext(ctx).Model(&models.AlertRecord{}).
		Where("status = ? AND updated_at < ?", models.StatusExpired, now.Add(-olderThan)).
		Updates(map[string]interface{}{"status": models.StatusArchived, "updated_at": now})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to archive alerts: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func (r *GormAlertRepository) GetStatistics(ctx context.Context) (map[string]int, error) {
	var rows []struct {
		Severity string
		Count    int
	}
	err := r.db.WithContext(ctx).Model(&models.AlertRecord{}).
		Select("severity, COUNT(*) AS count").
		Where("status = ?", models.StatusActive).
		Group("severity").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query alert statistics: %w", err)
	}

	stats := make(map[string]int, len(rows))
	for _, row := range rows {
		stats[row.Severity] = row.Count
	}
	return stats, nil
}

func isSQLiteUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
