package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/wilheimcosta/adwrng2/internal/classifier"
	"github.com/wilheimcosta/adwrng2/internal/logger"
	"github.com/wilheimcosta/adwrng2/internal/models"
	"github.com/wilheimcosta/adwrng2/internal/repository"

	"github.com/google/uuid"
)

// StatusSource is the aerodrome status API the reconciler and the poller read from.
type StatusSource interface {
	FetchWarnings(ctx context.Context, icao string) ([]models.RawWarning, error)
	FetchStatus(ctx context.Context, icao string) (*models.AerodromeStatus, error)
}

// AlertNotifier receives every newly created alert record.
type AlertNotifier interface {
	Publish(ctx context.Context, event *models.AlertEvent)
}

// IAlertService defines the alert lifecycle operations exposed to handlers.
type IAlertService interface {
	RegisterWarnings(ctx context.Context, icao string) (*models.RegisterResult, error)
	GetRecentAlerts(ctx context.Context, limit int) ([]models.AlertRecord, error)
	GetActiveAlerts(ctx context.Context, icaos []string, inForceOnly bool) ([]models.AlertRecord, error)
	GetStatistics(ctx context.Context) (map[string]int, error)
	GetAlert(ctx context.Context, id uuid.UUID) (*models.AlertRecord, error)
}

type AlertService struct {
	source   StatusSource
	repo     repository.IAlertRepository
	notifier AlertNotifier
	log      *logger.Logger
	locks    *keyedMutex
	now      func() time.Time
}

// NewAlertService wires the reconciler. notifier may be nil.
func NewAlertService(source StatusSource, repo repository.IAlertRepository, notifier AlertNotifier, log *logger.Logger) *AlertService {
	return &AlertService{
		source:   source,
		repo:     repo,
		notifier: notifier,
		log:      log.With("alerts"),
		locks:    newKeyedMutex(),
		now:      time.Now,
	}
}

// RegisterWarnings fetches the current messages for icao, keeps the aerodrome
// warnings and stores the ones that are not already active.
//
// The returned result is always non-nil. On failure it carries OK=false and
// the error is a *SourceFetchError or a *StoreError. Records inserted before
// a store failure stay in place.
func (s *AlertService) RegisterWarnings(ctx context.Context, icao string) (*models.RegisterResult, error) {
	result := &models.RegisterResult{ICAO: icao}

	raws, err := s.source.FetchWarnings(ctx, icao)
	if err != nil {
		return s.fail(result, &SourceFetchError{ICAO: icao, Err: err})
	}

	warnings := make([]models.RawWarning, 0, len(raws))
	for _, raw := range raws {
		if classifier.IsAerodromeWarning(raw) {
			warnings = append(warnings, raw)
		}
	}

	if len(warnings) == 0 {
		result.OK = true
		return result, nil
	}

	result.SampleMessage = contentOf(warnings[0])

	created, err := s.reconcile(ctx, icao, warnings, result)
	s.publish(ctx, created)
	if err != nil {
		return s.fail(result, err)
	}

	result.OK = true
	if result.Inserted > 0 {
		s.log.Info("%s: %d new warning(s), %d already active", icao, result.Inserted, result.AlreadyActive)
	} else {
		s.log.Debug("%s: %d warning(s) already active", icao, result.AlreadyActive)
	}
	return result, nil
}

// reconcile runs the find-then-insert loop while holding the icao lock.
func (s *AlertService) reconcile(ctx context.Context, icao string, warnings []models.RawWarning, result *models.RegisterResult) ([]*models.AlertRecord, error) {
	unlock := s.locks.Lock(icao)
	defer unlock()

	var created []*models.AlertRecord
	for _, raw := range warnings {
		alertType := typeOf(raw)
		content := contentOf(raw)

		existing, err := s.repo.FindActive(ctx, icao, alertType, content)
		if err != nil {
			return created, &StoreError{Op: "find", Err: err}
		}
		if existing != nil {
			result.AlreadyActive++
			continue
		}

		record := &models.AlertRecord{
			ICAO:       icao,
			AlertType:  alertType,
			Content:    content,
			Status:     models.StatusActive,
			Severity:   classifier.DetermineAlertSeverity(raw),
			ValidFrom:  s.parseBound(icao, "valid_from", raw.ValidFrom),
			ValidUntil: s.parseBound(icao, "valid_until", raw.ValidUntil),
			RawData:    rawSnapshot(raw),
		}

		if err := s.repo.Insert(ctx, record); err != nil {
			if errors.Is(err, repository.ErrAlreadyActive) {
				result.AlreadyActive++
				continue
			}
			return created, &StoreError{Op: "insert", Err: err}
		}

		result.Inserted++
		created = append(created, record)
	}

	return created, nil
}

func (s *AlertService) fail(result *models.RegisterResult, err error) (*models.RegisterResult, error) {
	result.OK = false
	result.Error = err.Error()
	s.log.Error("Register %s failed: %v", result.ICAO, err)
	return result, err
}

func (s *AlertService) publish(ctx context.Context, created []*models.AlertRecord) {
	if s.notifier == nil {
		return
	}
	for _, record := range created {
		s.notifier.Publish(ctx, &models.AlertEvent{
			Alert:              record,
			AffectedAerodromes: classifier.ExtractICAOsFromWarningText(record.Content),
			DetectedAt:         s.now().UTC(),
		})
	}
}

// parseBound normalizes one validity bound. A value that cannot be parsed is
// stored as unbounded.
func (s *AlertService) parseBound(icao, field, value string) *time.Time {
	t, err := NormalizeTimestamp(value)
	if err != nil {
		s.log.Warn("%s: ignoring %s: %v", icao, field, err)
		return nil
	}
	return t
}

// GetRecentAlerts returns the newest records first.
func (s *AlertService) GetRecentAlerts(ctx context.Context, limit int) ([]models.AlertRecord, error) {
	alerts, err := s.repo.QueryRecent(ctx, limit)
	if err != nil {
		return nil, &StoreError{Op: "query recent", Err: err}
	}
	return alerts, nil
}

// GetActiveAlerts lists active records for icaos (all when empty). With
// inForceOnly set, records outside their validity window right now are left out.
func (s *AlertService) GetActiveAlerts(ctx context.Context, icaos []string, inForceOnly bool) ([]models.AlertRecord, error) {
	alerts, err := s.repo.ListActive(ctx, icaos)
	if err != nil {
		return nil, &StoreError{Op: "list active", Err: err}
	}
	if !inForceOnly {
		return alerts, nil
	}

	now := s.now()
	inForce := make([]models.AlertRecord, 0, len(alerts))
	for i := range alerts {
		if alerts[i].IsInForce(now) {
			inForce = append(inForce, alerts[i])
		}
	}
	return inForce, nil
}

// GetStatistics counts active records per severity.
func (s *AlertService) GetStatistics(ctx context.Context) (map[string]int, error) {
	stats, err := s.repo.GetStatistics(ctx)
	if err != nil {
		return nil, &StoreError{Op: "statistics", Err: err}
	}
	return stats, nil
}

// GetAlert returns one record in any status, or nil when the id is unknown.
func (s *AlertService) GetAlert(ctx context.Context, id uuid.UUID) (*models.AlertRecord, error) {
	alert, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, &StoreError{Op: "get alert", Err: err}
	}
	return alert, nil
}

func typeOf(raw models.RawWarning) string {
	if t := strings.TrimSpace(raw.Type); t != "" {
		return t
	}
	return models.DefaultAlertType
}

func contentOf(raw models.RawWarning) string {
	if strings.TrimSpace(raw.Message) == "" {
		return models.EmptyContent
	}
	return raw.Message
}

func rawSnapshot(raw models.RawWarning) json.RawMessage {
	if len(raw.Raw) > 0 {
		return raw.Raw
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil
	}
	return data
}
