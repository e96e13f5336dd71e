// Package redemet is the client for the REDEMET aviation-weather API, the
// status source the warning reconciler and the poller read from.
package redemet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/wilheimcosta/adwrng2/internal/config"
	"github.com/wilheimcosta/adwrng2/internal/logger"
	"github.com/wilheimcosta/adwrng2/internal/models"
)

var ErrMissingAPIKey = errors.New("REDEMET API key is not configured")

const maxBodyBytes = 4 << 20

type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	log        *logger.Logger
}

func NewClient(cfg *config.RedemetConfig, log *logger.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		log: log.With("redemet"),
	}
}

// envelope is the common REDEMET response wrapper.
type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type warningItem struct {
	Localidade     string `json:"id_localidade"`
	Mens           string `json:"mens"`
	Mensagem       string `json:"mensagem"`
	Tipo           string `json:"tipo"`
	ValidadeIni    string `json:"validade_inicial"`
	ValidadeFim    string `json:"validade_final"`
	DataValidadeIn string `json:"data_validade_ini"`
	DataValidadeFi string `json:"data_validade_fim"`
}

func (w warningItem) toRaw(raw json.RawMessage) models.RawWarning {
	return models.RawWarning{
		Message:    CleanText(firstNonEmpty(w.Mensagem, w.Mens)),
		Type:       strings.TrimSpace(w.Tipo),
		ValidFrom:  firstNonEmpty(w.DataValidadeIn, w.ValidadeIni),
		ValidUntil: firstNonEmpty(w.DataValidadeFi, w.ValidadeFim),
		Raw:        raw,
	}
}

// FetchWarnings returns the warning messages currently posted for icao, in source order.
func (c *Client) FetchWarnings(ctx context.Context, icao string) ([]models.RawWarning, error) {
	env, err := c.get(ctx, "/mensagens/aviso/"+url.PathEscape(icao))
	if err != nil {
		return nil, err
	}

	items, err := unwrapList(env.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode warnings for %s: %w", icao, err)
	}

	warnings := make([]models.RawWarning, 0, len(items))
	for _, item := range items {
		var w warningItem
		if err := json.Unmarshal(item, &w); err != nil {
			return nil, fmt.Errorf("failed to decode warning for %s: %w", icao, err)
		}
		warnings = append(warnings, w.toRaw(item))
	}

	c.log.Debug("Fetched %d messages for %s", len(warnings), icao)
	return warnings, nil
}

// FetchStatus returns the flight-rule snapshot for icao.
func (c *Client) FetchStatus(ctx context.Context, icao string) (*models.AerodromeStatus, error) {
	env, err := c.get(ctx, "/aerodromos/status/localidades/"+url.PathEscape(icao))
	if err != nil {
		return nil, err
	}

	var rows [][]interface{}
	if err := json.Unmarshal(env.Data, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode status for %s: %w", icao, err)
	}

	for _, row := range rows {
		status := parseStatusRow(row)
		if status != nil && strings.EqualFold(status.ICAO, icao) {
			status.UpdatedAt = time.Now().UTC()
			return status, nil
		}
	}

	return nil, fmt.Errorf("no status returned for %s", icao)
}

func (c *Client) get(ctx context.Context, path string) (*envelope, error) {
	if c.apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	endpoint := c.baseURL + path + "?api_key=" + url.QueryEscape(c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response from %s: %w", path, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("REDEMET %s returned HTTP %d: %s", path, resp.StatusCode, snippet(body))
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("invalid JSON from %s: %w", path, err)
	}
	if !env.Status {
		msg := env.Message
		if msg == "" {
			msg = "request rejected"
		}
		return nil, fmt.Errorf("REDEMET %s: %s", path, msg)
	}

	return &env, nil
}

// unwrapList accepts both a bare array and the paginated {"data": [...]} shape.
func unwrapList(data json.RawMessage) ([]json.RawMessage, error) {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" || trimmed == "null" {
		return nil, nil
	}

	if strings.HasPrefix(trimmed, "[") {
		var items []json.RawMessage
		err := json.Unmarshal(data, &items)
		return items, err
	}

	var page struct {
		Data []json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(data, &page); err != nil {
		return nil, err
	}
	return page.Data, nil
}

func parseStatusRow(row []interface{}) *models.AerodromeStatus {
	if len(row) == 0 {
		return nil
	}
	icao, ok := row[0].(string)
	if !ok {
		return nil
	}

	status := &models.AerodromeStatus{
		ICAO:       strings.ToUpper(icao),
		FlightRule: models.FlightRuleUnknown,
	}
	if len(row) > 1 {
		if name, ok := row[1].(string); ok {
			status.Name = name
		}
	}

	if len(row) < 3 {
		return status
	}

	for _, cell := range row[2:] {
		s, ok := cell.(string)
		if !ok {
			continue
		}
		s = strings.TrimSpace(s)
		upper := strings.ToUpper(s)
		switch {
		case status.Flag == "" && len(s) == 1:
			status.Flag = strings.ToLower(s)
			status.FlightRule = FlightRuleFromFlag(s)
		case strings.HasPrefix(upper, "METAR") || strings.HasPrefix(upper, "SPECI"):
			status.METAR = s
		case strings.HasPrefix(upper, "TAF"):
			status.TAF = s
		}
	}

	return status
}

// FlightRuleFromFlag maps the REDEMET color flag to a flight-rule category.
func FlightRuleFromFlag(flag string) models.FlightRule {
	switch strings.ToLower(strings.TrimSpace(flag)) {
	case "g":
		return models.FlightRuleVFR
	case "y":
		return models.FlightRuleIFR
	case "r":
		return models.FlightRuleLIFR
	default:
		return models.FlightRuleUnknown
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

const snippetRunes = 200

// snippet shortens an error body for logs, cutting on a rune boundary.
func snippet(body []byte) string {
	s := strings.TrimSpace(strings.ToValidUTF8(string(body), "?"))
	if utf8.RuneCountInString(s) <= snippetRunes {
		return s
	}
	return string([]rune(s)[:snippetRunes]) + "..."
}
