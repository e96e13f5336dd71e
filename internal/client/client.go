// Package client talks to the AD WRNG HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/wilheimcosta/adwrng2/internal/models"
)

// APIError is returned for any non-2xx answer. Body holds the raw response
// so callers can still decode a result document sent alongside the error.
type APIError struct {
	StatusCode int
	Message    string
	Body       []byte
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (%d): %s", e.StatusCode, e.Message)
}

type APIClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewAPIClient(baseURL string, timeout time.Duration) *APIClient {
	return &APIClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *APIClient) doRequest(ctx context.Context, method, path string, body interface{}) ([]byte, error) {
	resp, err := c.send(ctx, method, path, body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 400 {
		return respBody, apiError(resp.StatusCode, respBody)
	}

	return respBody, nil
}

func (c *APIClient) send(ctx context.Context, method, path string, body interface{}) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.httpClient.Do(req)
}

func apiError(status int, body []byte) *APIError {
	var payload struct {
		Error string `json:"error"`
	}
	msg := strings.TrimSpace(string(body))
	if json.Unmarshal(body, &payload) == nil && payload.Error != "" {
		msg = payload.Error
	}
	if msg == "" {
		msg = http.StatusText(status)
	}
	return &APIError{StatusCode: status, Message: msg, Body: body}
}

// RegisterWarnings asks the server to reconcile the current warnings of one
// aerodrome. On failure the server's result is still returned when it sent one.
func (c *APIClient) RegisterWarnings(ctx context.Context, icao string) (*models.RegisterResult, error) {
	path := "/api/v1/aerodromes/" + url.PathEscape(strings.ToUpper(icao)) + "/warnings/register"
	resp, err := c.doRequest(ctx, http.MethodPost, path, nil)

	var result models.RegisterResult
	if jsonErr := json.Unmarshal(resp, &result); jsonErr != nil || result.ICAO == "" {
		if err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("decode register result: %w", jsonErr)
	}
	if err != nil {
		if apiErr, ok := err.(*APIError); ok && result.Error != "" {
			apiErr.Message = result.Error
		}
		return &result, err
	}
	return &result, nil
}

func (c *APIClient) Sweep(ctx context.Context, icaos []string) (*models.SweepResult, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/api/v1/alerts/sweep"+icaoQuery(icaos, nil), nil)
	if err != nil {
		return nil, err
	}

	var result models.SweepResult
	if err := json.Unmarshal(resp, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *APIClient) RecentAlerts(ctx context.Context, limit int) ([]models.AlertRecord, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	return c.alerts(ctx, "/api/v1/alerts/recent"+encode(q))
}

func (c *APIClient) ActiveAlerts(ctx context.Context, icaos []string, inForceOnly bool) ([]models.AlertRecord, error) {
	q := url.Values{}
	if inForceOnly {
		q.Set("in_force", "true")
	}
	return c.alerts(ctx, "/api/v1/alerts/active"+icaoQuery(icaos, q))
}

func (c *APIClient) GetAlert(ctx context.Context, id string) (*models.AlertRecord, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/api/v1/alerts/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}

	var alert models.AlertRecord
	if err := json.Unmarshal(resp, &alert); err != nil {
		return nil, err
	}
	return &alert, nil
}

func (c *APIClient) alerts(ctx context.Context, path string) ([]models.AlertRecord, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var alerts []models.AlertRecord
	if err := json.Unmarshal(resp, &alerts); err != nil {
		return nil, err
	}
	return alerts, nil
}

func (c *APIClient) Stats(ctx context.Context) (*models.AlertStats, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/api/v1/alerts/stats", nil)
	if err != nil {
		return nil, err
	}

	var stats models.AlertStats
	if err := json.Unmarshal(resp, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

func (c *APIClient) Statuses(ctx context.Context, icaos []string) ([]models.AerodromeStatus, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/api/v1/aerodromes/status"+icaoQuery(icaos, nil), nil)
	if err != nil {
		return nil, err
	}

	var statuses []models.AerodromeStatus
	if err := json.Unmarshal(resp, &statuses); err != nil {
		return nil, err
	}
	return statuses, nil
}

func (c *APIClient) ListFavorites(ctx context.Context) ([]models.FavoriteAerodrome, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/api/v1/favorites", nil)
	if err != nil {
		return nil, err
	}

	var favs []models.FavoriteAerodrome
	if err := json.Unmarshal(resp, &favs); err != nil {
		return nil, err
	}
	return favs, nil
}

func (c *APIClient) AddFavorite(ctx context.Context, icao, label string) (*models.FavoriteAerodrome, error) {
	body := models.CreateFavoriteRequest{ICAO: icao, Label: label}
	resp, err := c.doRequest(ctx, http.MethodPost, "/api/v1/favorites", body)
	if err != nil {
		return nil, err
	}

	var fav models.FavoriteAerodrome
	if err := json.Unmarshal(resp, &fav); err != nil {
		return nil, err
	}
	return &fav, nil
}

func (c *APIClient) RemoveFavorite(ctx context.Context, icao string) error {
	_, err := c.doRequest(ctx, http.MethodDelete, "/api/v1/favorites/"+url.PathEscape(strings.ToUpper(icao)), nil)
	return err
}

// Export streams a csv or pdf export into w and returns the record count
// reported by the server.
func (c *APIClient) Export(ctx context.Context, w io.Writer, format string, limit int) (int, error) {
	q := url.Values{}
	q.Set("format", format)
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}

	resp, err := c.send(ctx, http.MethodGet, "/api/v1/alerts/export"+encode(q), nil)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return 0, apiError(resp.StatusCode, body)
	}

	if _, err := io.Copy(w, resp.Body); err != nil {
		return 0, fmt.Errorf("write export: %w", err)
	}
	n, _ := strconv.Atoi(resp.Header.Get("X-Record-Count"))
	return n, nil
}

func icaoQuery(icaos []string, q url.Values) string {
	if q == nil {
		q = url.Values{}
	}
	for _, icao := range icaos {
		q.Add("icao", strings.ToUpper(icao))
	}
	return encode(q)
}

func encode(q url.Values) string {
	if len(q) == 0 {
		return ""
	}
	return "?" + q.Encode()
}
