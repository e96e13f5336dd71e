package handler

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/wilheimcosta/adwrng2/internal/logger"
	"github.com/wilheimcosta/adwrng2/internal/models"
	"github.com/wilheimcosta/adwrng2/internal/service"

	"github.com/gorilla/mux"
)

type AerodromeHandler struct {
	aerodromes service.IAerodromeService
	log        *logger.Logger
}

func NewAerodromeHandler(aerodromes service.IAerodromeService, log *logger.Logger) *AerodromeHandler {
	return &AerodromeHandler{
		aerodromes: aerodromes,
		log:        log,
	}
}

func (h *AerodromeHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/aerodromes/status", h.GetStatuses).Methods("GET")
	r.HandleFunc("/favorites", h.ListFavorites).Methods("GET")
	r.HandleFunc("/favorites", h.AddFavorite).Methods("POST")
	r.HandleFunc("/favorites/{icao}", h.RemoveFavorite).Methods("DELETE")
}

// GetStatuses returns the cached flight-rule statuses, optionally narrowed
// with ?icao=.
func (h *AerodromeHandler) GetStatuses(w http.ResponseWriter, r *http.Request) {
	icaos, bad := parseICAOList(r)
	if bad != "" {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid icao %q", bad))
		return
	}

	if len(icaos) == 0 {
		respondJSON(w, http.StatusOK, h.aerodromes.AllStatuses())
		return
	}

	statuses := []models.AerodromeStatus{}
	for _, icao := range icaos {
		if st := h.aerodromes.GetStatus(icao); st != nil {
			statuses = append(statuses, *st)
		}
	}
	respondJSON(w, http.StatusOK, statuses)
}

func (h *AerodromeHandler) ListFavorites(w http.ResponseWriter, r *http.Request) {
	favs, err := h.aerodromes.ListFavorites(r.Context())
	if err != nil {
		h.log.Error("Failed to list favorites: %v", err)
		respondError(w, statusFor(err), err.Error())
		return
	}
	respondJSON(w, http.StatusOK, favs)
}

func (h *AerodromeHandler) AddFavorite(w http.ResponseWriter, r *http.Request) {
	var req models.CreateFavoriteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	icao, ok := parseICAO(req.ICAO)
	if !ok {
		respondError(w, http.StatusBadRequest, "icao must be a 4-letter ICAO code")
		return
	}

	fav, err := h.aerodromes.AddFavorite(r.Context(), icao, req.Label)
	if err != nil {
		h.log.Error("Failed to save favorite %s: %v", icao, err)
		respondError(w, statusFor(err), err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, fav)
}

func (h *AerodromeHandler) RemoveFavorite(w http.ResponseWriter, r *http.Request) {
	icao, ok := parseICAO(mux.Vars(r)["icao"])
	if !ok {
		respondError(w, http.StatusBadRequest, "icao must be a 4-letter ICAO code")
		return
	}

	removed, err := h.aerodromes.RemoveFavorite(r.Context(), icao)
	if err != nil {
		h.log.Error("Failed to remove favorite %s: %v", icao, err)
		respondError(w, statusFor(err), err.Error())
		return
	}
	if !removed {
		respondError(w, http.StatusNotFound, fmt.Sprintf("%s is not a favorite", icao))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
