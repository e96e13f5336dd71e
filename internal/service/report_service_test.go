package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"testing"
	"time"

	"github.com/wilheimcosta/adwrng2/internal/logger"
	"github.com/wilheimcosta/adwrng2/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExportCSV(t *testing.T) {
	repo := &memRepo{}
	repo.seed(models.AlertRecord{ICAO: "SBMQ", AlertType: "AVISO", Content: sbmqWarning, Status: models.StatusActive,
		Severity: models.SeverityLow, ValidUntil: ptrTime(time.Date(2024, 1, 1, 6, 0, 0, 0, time.UTC))})
	repo.seed(models.AlertRecord{ICAO: "SBBE", AlertType: "AVISO", Content: "AD WRNG SBBE, trovoada", Status: models.StatusExpired,
		Severity: models.SeverityHigh})

	var buf bytes.Buffer
	n, err := NewReportService(repo, logger.Discard()).ExportCSV(context.Background(), &buf, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"id", "icao", "alert_type", "severity", "status", "valid_from", "valid_until", "created_at", "content"}, records[0])

	// newest first
	assert.Equal(t, "SBBE", records[1][1])
	assert.Equal(t, "AD WRNG SBBE, trovoada", records[1][8])
	assert.Equal(t, "-", records[2][5])
	assert.Equal(t, "2024-01-01 06:00Z", records[2][6])
}

func TestExportCSVEmptyHasHeader(t *testing.T) {
	var buf bytes.Buffer
	n, err := NewReportService(&memRepo{}, logger.Discard()).ExportCSV(context.Background(), &buf, 10)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, "id,icao,alert_type,severity,status,valid_from,valid_until,created_at,content\n", buf.String())
}

func TestExportPDF(t *testing.T) {
	repo := &memRepo{}
	repo.seed(models.AlertRecord{ICAO: "SBGL", AlertType: "Aviso de Aeródromo", Content: "VENTO FORTE", Status: models.StatusActive,
		Severity: models.SeverityMedium})

	var buf bytes.Buffer
	n, err := NewReportService(repo, logger.Discard()).ExportPDF(context.Background(), &buf, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}

func TestClampExportLimit(t *testing.T) {
	assert.Equal(t, DefaultExportLimit, ClampExportLimit(0))
	assert.Equal(t, DefaultExportLimit, ClampExportLimit(-3))
	assert.Equal(t, 25, ClampExportLimit(25))
	assert.Equal(t, MaxExportLimit, ClampExportLimit(MaxExportLimit+1))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab...", truncate("abcdefgh", 5))
}
