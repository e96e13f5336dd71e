package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/wilheimcosta/adwrng2/internal/logger"
	"github.com/wilheimcosta/adwrng2/internal/models"
	"github.com/wilheimcosta/adwrng2/internal/mqtt"

	"github.com/gorilla/mux"
)

// Pinger is implemented by the database.
type Pinger interface {
	Health(ctx context.Context) error
}

// BrokerStatus is implemented by the MQTT client.
type BrokerStatus interface {
	Health(ctx context.Context) (*mqtt.HealthStatus, error)
}

// ClientCounter is implemented by the websocket hub.
type ClientCounter interface {
	ClientCount() int
}

type HealthHandler struct {
	db     Pinger
	broker BrokerStatus
	hub    ClientCounter
	log    *logger.Logger
}

// NewHealthHandler builds the health endpoints. broker is nil when MQTT is
// disabled, which does not degrade health.
func NewHealthHandler(db Pinger, broker BrokerStatus, hub ClientCounter, log *logger.Logger) *HealthHandler {
	return &HealthHandler{
		db:     db,
		broker: broker,
		hub:    hub,
		log:    log,
	}
}

func (h *HealthHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/health", h.Health).Methods("GET")
	r.HandleFunc("/health/live", h.Liveness).Methods("GET")
	r.HandleFunc("/health/ready", h.Readiness).Methods("GET")
}

func (h *HealthHandler) mqttState(ctx context.Context) (string, int) {
	if h.broker == nil {
		return "disabled", 0
	}
	st, err := h.broker.Health(ctx)
	if err != nil || !st.Connected {
		return "disconnected", 0
	}
	return "connected", st.Subscriptions
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	response := models.HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
	}

	dbErr := h.db.Health(ctx)
	response.Services.Database = dbErr == nil
	response.Services.MQTT, response.Services.MQTTSubscriptions = h.mqttState(ctx)
	if h.hub != nil {
		response.Services.WebSocketClients = h.hub.ClientCount()
	}

	if !response.Services.Database || response.Services.MQTT == "disconnected" {
		response.Status = "degraded"
		h.log.Warn("Health check degraded - DB: %v, MQTT: %s", response.Services.Database, response.Services.MQTT)
	}

	statusCode := http.StatusOK
	if response.Status == "degraded" {
		statusCode = http.StatusServiceUnavailable
	}

	respondJSON(w, statusCode, response)
}

func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "alive",
	})
}

// Readiness only depends on the store; the broker is optional plumbing.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.Health(ctx); err != nil {
		h.log.Warn("Readiness check failed - DB error: %v", err)
		respondJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
		})
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ready",
	})
}
