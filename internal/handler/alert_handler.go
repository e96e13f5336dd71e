package handler

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/wilheimcosta/adwrng2/internal/logger"
	"github.com/wilheimcosta/adwrng2/internal/models"
	"github.com/wilheimcosta/adwrng2/internal/service"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

const (
	defaultRecentLimit = 50
	maxRecentLimit     = 500
)

type AlertHandler struct {
	alertService  service.IAlertService
	sweeper       service.ISweeper
	reportService service.IReportService
	log           *logger.Logger
}

func NewAlertHandler(alertService service.IAlertService, sweeper service.ISweeper, reportService service.IReportService, log *logger.Logger) *AlertHandler {
	return &AlertHandler{
		alertService:  alertService,
		sweeper:       sweeper,
		reportService: reportService,
		log:           log,
	}
}

func (h *AlertHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/aerodromes/{icao}/warnings/register", h.RegisterWarnings).Methods("POST")
	r.HandleFunc("/alerts/sweep", h.Sweep).Methods("POST")
	r.HandleFunc("/alerts/recent", h.GetRecentAlerts).Methods("GET")
	r.HandleFunc("/alerts/active", h.GetActiveAlerts).Methods("GET")
	r.HandleFunc("/alerts/stats", h.GetStatistics).Methods("GET")
	r.HandleFunc("/alerts/export", h.Export).Methods("GET")
	r.HandleFunc("/alerts/{id}", h.GetAlert).Methods("GET")
}

// RegisterWarnings always answers with the register result; the status code
// tells failures apart.
func (h *AlertHandler) RegisterWarnings(w http.ResponseWriter, r *http.Request) {
	icao, ok := parseICAO(mux.Vars(r)["icao"])
	if !ok {
		respondError(w, http.StatusBadRequest, "icao must be a 4-letter ICAO code")
		return
	}

	result, err := h.alertService.RegisterWarnings(r.Context(), icao)
	if err != nil {
		respondJSON(w, statusFor(err), result)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

func (h *AlertHandler) Sweep(w http.ResponseWriter, r *http.Request) {
	icaos, bad := parseICAOList(r)
	if bad != "" {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid icao %q", bad))
		return
	}

	result := models.SweepResult{ICAOs: icaos}
	n, err := h.sweeper.ExpireOutOfWindowActiveAlerts(r.Context(), icaos)
	if err != nil {
		result.Error = err.Error()
		respondJSON(w, statusFor(err), result)
		return
	}

	result.OK = true
	result.Expired = n
	respondJSON(w, http.StatusOK, result)
}

func (h *AlertHandler) GetRecentAlerts(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r, defaultRecentLimit, maxRecentLimit)

	alerts, err := h.alertService.GetRecentAlerts(r.Context(), limit)
	if err != nil {
		h.log.Error("Failed to get recent alerts: %v", err)
		respondError(w, statusFor(err), err.Error())
		return
	}

	respondJSON(w, http.StatusOK, alerts)
}

func (h *AlertHandler) GetActiveAlerts(w http.ResponseWriter, r *http.Request) {
	icaos, bad := parseICAOList(r)
	if bad != "" {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid icao %q", bad))
		return
	}

	alerts, err := h.alertService.GetActiveAlerts(r.Context(), icaos, parseBool(r, "in_force"))
	if err != nil {
		h.log.Error("Failed to get active alerts: %v", err)
		respondError(w, statusFor(err), err.Error())
		return
	}

	respondJSON(w, http.StatusOK, alerts)
}

func (h *AlertHandler) GetStatistics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.alertService.GetStatistics(r.Context())
	if err != nil {
		h.log.Error("Failed to get alert statistics: %v", err)
		respondError(w, statusFor(err), err.Error())
		return
	}

	resp := models.AlertStats{BySeverity: stats}
	for _, n := range stats {
		resp.Active += n
	}

	respondJSON(w, http.StatusOK, resp)
}

func (h *AlertHandler) GetAlert(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid alert ID")
		return
	}

	alert, err := h.alertService.GetAlert(r.Context(), id)
	if err != nil {
		h.log.Error("Failed to get alert %s: %v", id, err)
		respondError(w, statusFor(err), err.Error())
		return
	}
	if alert == nil {
		respondError(w, http.StatusNotFound, "Alert not found")
		return
	}

	respondJSON(w, http.StatusOK, alert)
}

// Export renders into memory first so a failure still gets a JSON error.
func (h *AlertHandler) Export(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "csv"
	}
	limit := parseLimit(r, service.DefaultExportLimit, service.MaxExportLimit)

	var (
		buf         bytes.Buffer
		n           int
		err         error
		contentType string
	)
	switch format {
	case "csv":
		n, err = h.reportService.ExportCSV(r.Context(), &buf, limit)
		contentType = "text/csv; charset=utf-8"
	case "pdf":
		n, err = h.reportService.ExportPDF(r.Context(), &buf, limit)
		contentType = "application/pdf"
	default:
		respondError(w, http.StatusBadRequest, "format must be csv or pdf")
		return
	}
	if err != nil {
		h.log.Error("Export (%s) failed: %v", format, err)
		respondError(w, statusFor(err), err.Error())
		return
	}

	filename := fmt.Sprintf("adwrng-alerts-%s.%s", time.Now().UTC().Format("20060102T150405Z"), format)
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("X-Record-Count", fmt.Sprint(n))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}
