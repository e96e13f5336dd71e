package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Alert Constants
const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"

	StatusActive   AlertStatus = "active"
	StatusExpired  AlertStatus = "expired"
	StatusArchived AlertStatus = "archived"

	DefaultAlertType = "AVISO"
	EmptyContent     = "(sem mensagem)"
)

type Severity string

// Rank orders severities from low (1) to critical (4); unknown values rank 0.
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	case SeverityCritical:
		return 4
	default:
		return 0
	}
}

type AlertStatus string

// AlertRecord is one discrete aerodrome warning occurrence in the alert history.
// Status only moves forward: active -> expired -> archived.
type AlertRecord struct {
	ID         uuid.UUID       `json:"id" db:"id" gorm:"type:uuid;primaryKey"`
	ICAO       string          `json:"icao" db:"icao" gorm:"size:4;not null;index"`
	AlertType  string          `json:"alert_type" db:"alert_type" gorm:"not null"`
	Content    string          `json:"content" db:"content" gorm:"type:text;not null"`
	Status     AlertStatus     `json:"status" db:"status" gorm:"not null;index"`
	Severity   Severity        `json:"severity" db:"severity" gorm:"not null"`
	ValidFrom  *time.Time      `json:"valid_from" db:"valid_from"`
	ValidUntil *time.Time      `json:"valid_until" db:"valid_until"`
	RawData    json.RawMessage `json:"raw_data,omitempty" db:"raw_data" gorm:"type:text"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at" db:"updated_at"`
}

func (AlertRecord) TableName() string {
	return "alerts"
}

// IsInForce reports whether now falls inside the validity window. Both bounds
// are inclusive and a nil bound is unbounded. It ignores Status on purpose:
// an active record may already be out of its window between sweeps.
func (a *AlertRecord) IsInForce(now time.Time) bool {
	if a.ValidFrom != nil && now.Before(*a.ValidFrom) {
		return false
	}
	if a.ValidUntil != nil && now.After(*a.ValidUntil) {
		return false
	}
	return true
}

// RegisterResult is the outcome of one reconcile call for a single ICAO.
type RegisterResult struct {
	OK            bool   `json:"ok"`
	ICAO          string `json:"icao"`
	Inserted      int    `json:"inserted"`
	AlreadyActive int    `json:"already_active"`
	SampleMessage string `json:"sample_message,omitempty"`
	Error         string `json:"error,omitempty"`
}

// AlertEvent is pushed to notifiers when a new alert record is created.
type AlertEvent struct {
	Alert              *AlertRecord `json:"alert"`
	AffectedAerodromes []string     `json:"affected_aerodromes,omitempty"`
	DetectedAt         time.Time    `json:"detected_at"`
}
