package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/wilheimcosta/adwrng2/internal/logger"
	"github.com/wilheimcosta/adwrng2/internal/models"
	"github.com/wilheimcosta/adwrng2/internal/repository"

	"github.com/jszwec/csvutil"
	"github.com/jung-kurt/gofpdf"
)

const (
	DefaultExportLimit = 500
	MaxExportLimit     = 5000

	exportTimeLayout = "2006-01-02 15:04Z"
)

// exportRow is the flat shape of one alert in CSV and PDF exports.
type exportRow struct {
	ID         string `csv:"id"`
	ICAO       string `csv:"icao"`
	AlertType  string `csv:"alert_type"`
	Severity   string `csv:"severity"`
	Status     string `csv:"status"`
	ValidFrom  string `csv:"valid_from"`
	ValidUntil string `csv:"valid_until"`
	CreatedAt  string `csv:"created_at"`
	Content    string `csv:"content"`
}

type IReportService interface {
	ExportCSV(ctx context.Context, w io.Writer, limit int) (int, error)
	ExportPDF(ctx context.Context, w io.Writer, limit int) (int, error)
}

type ReportService struct {
	repo repository.IAlertRepository
	log  *logger.Logger
	now  func() time.Time
}

func NewReportService(repo repository.IAlertRepository, log *logger.Logger) *ReportService {
	return &ReportService{
		repo: repo,
		log:  log.With("reports"),
		now:  time.Now,
	}
}

// ExportCSV writes the newest limit alerts as CSV with a header row.
func (s *ReportService) ExportCSV(ctx context.Context, w io.Writer, limit int) (int, error) {
	rows, err := s.rows(ctx, limit)
	if err != nil {
		return 0, err
	}

	cw := csv.NewWriter(w)
	enc := csvutil.NewEncoder(cw)
	if len(rows) == 0 {
		err = enc.EncodeHeader(exportRow{})
	} else {
		err = enc.Encode(rows)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to encode CSV: %w", err)
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return 0, fmt.Errorf("failed to write CSV: %w", err)
	}

	s.log.Debug("Exported %d alert(s) as CSV", len(rows))
	return len(rows), nil
}

// ExportPDF writes the newest limit alerts as a landscape A4 table.
func (s *ReportService) ExportPDF(ctx context.Context, w io.Writer, limit int) (int, error) {
	rows, err := s.rows(ctx, limit)
	if err != nil {
		return 0, err
	}

	pdf := gofpdf.New("L", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle("Aerodrome warnings", true)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 14)
	pdf.Cell(0, 10, "Aerodrome warnings")
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 9)
	pdf.Cell(0, 6, fmt.Sprintf("Generated %s, %d record(s)", s.now().UTC().Format(exportTimeLayout), len(rows)))
	pdf.Ln(10)

	headers := []string{"ICAO", "Type", "Severity", "Status", "Valid from", "Valid until", "Message"}
	widths := []float64{16, 20, 20, 18, 32, 32, 139}

	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(230, 230, 230)
	for i, h := range headers {
		pdf.CellFormat(widths[i], 7, h, "1", 0, "L", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 8)
	for _, r := range rows {
		cells := []string{r.ICAO, r.AlertType, r.Severity, r.Status, r.ValidFrom, r.ValidUntil}
		for i, c := range cells {
			pdf.CellFormat(widths[i], 6, tr(c), "1", 0, "L", false, 0, "")
		}
		pdf.CellFormat(widths[len(widths)-1], 6, tr(truncate(r.Content, 110)), "1", 1, "L", false, 0, "")
	}

	if err := pdf.Output(w); err != nil {
		return 0, fmt.Errorf("failed to render PDF: %w", err)
	}

	s.log.Debug("Exported %d alert(s) as PDF", len(rows))
	return len(rows), nil
}

func (s *ReportService) rows(ctx context.Context, limit int) ([]exportRow, error) {
	alerts, err := s.repo.QueryRecent(ctx, ClampExportLimit(limit))
	if err != nil {
		return nil, &StoreError{Op: "query recent", Err: err}
	}

	rows := make([]exportRow, 0, len(alerts))
	for _, a := range alerts {
		rows = append(rows, toExportRow(a))
	}
	return rows, nil
}

// ClampExportLimit applies the default for non-positive limits and caps the rest.
func ClampExportLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultExportLimit
	case limit > MaxExportLimit:
		return MaxExportLimit
	default:
		return limit
	}
}

func toExportRow(a models.AlertRecord) exportRow {
	return exportRow{
		ID:         a.ID.String(),
		ICAO:       a.ICAO,
		AlertType:  a.AlertType,
		Severity:   string(a.Severity),
		Status:     string(a.Status),
		ValidFrom:  formatBound(a.ValidFrom),
		ValidUntil: formatBound(a.ValidUntil),
		CreatedAt:  a.CreatedAt.UTC().Format(time.RFC3339),
		Content:    a.Content,
	}
}

func formatBound(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.UTC().Format(exportTimeLayout)
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
