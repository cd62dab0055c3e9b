package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/training-enrollment-api/internal/models"
	appErrors "github.com/noah-isme/training-enrollment-api/pkg/errors"
	"github.com/noah-isme/training-enrollment-api/pkg/export"
)

// ExportFormat selects the roster file type.
type ExportFormat string

// Supported export formats.
const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

const exportTimeLayout = "2006-01-02 15:04:05"

// EnrollmentExportHeaders are the roster columns, in order.
var EnrollmentExportHeaders = []string{
	"Student Name", "Email", "Phone", "WhatsApp", "Training", "Status", "Source",
	"Notes", "Admin Notes", "Enrolled By", "Created At", "Approved At", "Completed At",
}

type exportSource interface {
	ListForExport(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportFile is a rendered roster ready to stream.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ExportService renders the filtered enrollment set as CSV or PDF.
type ExportService struct {
	source exportSource
	csv    csvRenderer
	pdf    pdfRenderer
	logger *zap.Logger
	now    func() time.Time
}

// NewExportService constructs an ExportService.
func NewExportService(source exportSource, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{source: source, csv: csv, pdf: pdf, logger: logger, now: time.Now}
}

// Enrollments renders every enrollment matching filter.
func (s *ExportService) Enrollments(ctx context.Context, filter models.EnrollmentFilter, format ExportFormat) (*ExportFile, error) {
	if format == "" {
		format = ExportFormatCSV
	}
	if format != ExportFormatCSV && format != ExportFormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}

	details, err := s.source.ListForExport(ctx, filter)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load enrollments for export")
	}
	dataset := EnrollmentDataset(details)
	stamp := s.now().UTC().Format("20060102-150405")

	var file ExportFile
	switch format {
	case ExportFormatPDF:
		data, err := s.pdf.Render(dataset, fmt.Sprintf("Enrollments (%d)", len(details)))
		if err != nil {
			return nil, appErrors.Internal(err, "failed to render pdf")
		}
		file = ExportFile{Filename: "enrollments-" + stamp + ".pdf", ContentType: "application/pdf", Data: data}
	default:
		data, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Internal(err, "failed to render csv")
		}
		file = ExportFile{Filename: "enrollments-" + stamp + ".csv", ContentType: "text/csv; charset=utf-8", Data: data}
	}

	s.logger.Info("enrollments exported", zap.String("format", string(format)), zap.Int("rows", len(details)))
	return &file, nil
}

// EnrollmentDataset maps enrollments to roster rows.
func EnrollmentDataset(details []models.EnrollmentDetail) export.Dataset {
	rows := make([]map[string]string, 0, len(details))
	for _, d := range details {
		training := deletedTrainingLabel
		if ref := d.TrainingRef(); ref != nil {
			training = ref.Title
		}
		rows = append(rows, map[string]string{
			"Student Name": d.StudentName,
			"Email":        d.Email,
			"Phone":        d.Phone,
			"WhatsApp":     deref(d.WhatsAppNumber),
			"Training":     training,
			"Status":       string(d.Status),
			"Source":       string(d.Source),
			"Notes":        d.Notes,
			"Admin Notes":  d.AdminNotes,
			"Enrolled By":  deref(d.EnrolledByName),
			"Created At":   formatExportTime(&d.CreatedAt),
			"Approved At":  formatExportTime(d.ApprovedAt),
			"Completed At": formatExportTime(d.CompletedAt),
		})
	}
	return export.Dataset{Headers: EnrollmentExportHeaders, Rows: rows}
}

func deref(ptr *string) string {
	if ptr == nil {
		return ""
	}
	return *ptr
}

func formatExportTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.UTC().Format(exportTimeLayout)
}
