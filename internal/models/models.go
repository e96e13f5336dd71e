// internal/models/models.go

package models

import (
	"encoding/json"
	"time"
)

type FlightRule string

const (
	FlightRuleVFR     FlightRule = "VFR"
	FlightRuleIFR     FlightRule = "IFR"
	FlightRuleLIFR    FlightRule = "LIFR"
	FlightRuleUnknown FlightRule = "UNKNOWN"
)

// RawWarning is one message record returned by the status source for a single poll.
type RawWarning struct {
	Message    string          `json:"mensagem"`
	Type       string          `json:"tipo"`
	ValidFrom  string          `json:"data_validade_ini,omitempty"`
	ValidUntil string          `json:"data_validade_fim,omitempty"`
	Raw        json.RawMessage `json:"-"`
}

// AerodromeStatus is the latest flight-rule snapshot of one aerodrome.
type AerodromeStatus struct {
	ICAO       string     `json:"icao"`
	Name       string     `json:"name,omitempty"`
	FlightRule FlightRule `json:"flight_rule"`
	Flag       string     `json:"flag"`
	METAR      string     `json:"metar,omitempty"`
	TAF        string     `json:"taf,omitempty"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

type FavoriteAerodrome struct {
	ICAO      string    `json:"icao" db:"icao" gorm:"primaryKey;size:4"`
	Label     string    `json:"label" db:"label"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

func (FavoriteAerodrome) TableName() string {
	return "favorite_aerodromes"
}

type CreateFavoriteRequest struct {
	ICAO  string `json:"icao"`
	Label string `json:"label"`
}

type SweepResult struct {
	OK      bool     `json:"ok"`
	ICAOs   []string `json:"icaos,omitempty"`
	Expired int64    `json:"expired"`
	Error   string   `json:"error,omitempty"`
}

type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Services  struct {
		Database          bool   `json:"database"`
		MQTT              string `json:"mqtt"`
		MQTTSubscriptions int    `json:"mqtt_subscriptions"`
		WebSocketClients  int    `json:"websocket_clients"`
	} `json:"services"`
}

type WSMessage struct {
	Type      string      `json:"type"`
	ICAO      string      `json:"icao,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// AlertStats counts active alerts, in total and per severity.
type AlertStats struct {
	Active     int            `json:"active"`
	BySeverity map[string]int `json:"by_severity"`
}
