package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/wilheimcosta/adwrng2/internal/config"
	"github.com/wilheimcosta/adwrng2/internal/service"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

func respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	err := json.NewEncoder(w).Encode(data)
	if err != nil {
		return
	}
}

func respondError(w http.ResponseWriter, statusCode int, message string) {
	respondJSON(w, statusCode, ErrorResponse{Error: message})
}

// statusFor maps core errors to HTTP codes: an unreachable source is a bad
// gateway, everything else an internal error.
func statusFor(err error) int {
	var fetchErr *service.SourceFetchError
	if errors.As(err, &fetchErr) {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// parseICAO uppercases raw and checks it is a 4-letter ICAO code.
func parseICAO(raw string) (string, bool) {
	code := strings.ToUpper(strings.TrimSpace(raw))
	return code, config.ValidICAO(code)
}

// parseICAOList reads ?icao=A&icao=B and ?icao=A,B. It returns the first
// invalid entry when one is found.
func parseICAOList(r *http.Request) ([]string, string) {
	var codes []string
	seen := make(map[string]bool)

	for _, value := range r.URL.Query()["icao"] {
		for _, part := range strings.Split(value, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			code, ok := parseICAO(part)
			if !ok {
				return nil, part
			}
			if !seen[code] {
				seen[code] = true
				codes = append(codes, code)
			}
		}
	}
	return codes, ""
}

func parseLimit(r *http.Request, def, max int) int {
	limit := def
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if limit > max {
		limit = max
	}
	return limit
}

func parseBool(r *http.Request, key string) bool {
	v, err := strconv.ParseBool(r.URL.Query().Get(key))
	return err == nil && v
}
