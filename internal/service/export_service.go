package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/language"

	"github.com/noah-isme/booking-calendar-api/internal/dto"
	"github.com/noah-isme/booking-calendar-api/internal/models"
	appErrors "github.com/noah-isme/booking-calendar-api/pkg/errors"
	"github.com/noah-isme/booking-calendar-api/pkg/export"
	"github.com/noah-isme/booking-calendar-api/pkg/formatter"
)

type eventLister interface {
	List(ctx context.Context, ownerID string) ([]models.Event, error)
}

type renderer interface {
	ContentType() string
	Render(data export.Dataset, title string) ([]byte, error)
}

var exportHeaders = []string{"Name", "Duration", "Minutes", "Active", "Description", "Updated At"}

// ExportService renders the caller's events as downloadable files.
type ExportService struct {
	events    eventLister
	csv       renderer
	pdf       renderer
	csvFormat *formatter.Formatter
	pdfFormat *formatter.Formatter
	logger    *zap.Logger
	now       func() time.Time
}

// NewExportService constructs an ExportService. CSV durations use locale; PDF
// durations are always English because the core PDF fonts lack Cyrillic glyphs.
func NewExportService(events eventLister, locale string, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		events:    events,
		csv:       export.NewCSVExporter(),
		pdf:       export.NewPDFExporter(),
		csvFormat: formatter.ForLocale(locale),
		pdfFormat: formatter.New(language.English),
		logger:    logger,
		now:       time.Now,
	}
}

// Events renders every event of caller in the requested format.
func (s *ExportService) Events(ctx context.Context, caller models.Caller, format dto.ExportFormat) (*dto.ExportFile, error) {
	if !caller.Authenticated() {
		return nil, errSignInRequired
	}

	var (
		out  renderer
		durf *formatter.Formatter
	)
	switch format {
	case dto.ExportFormatCSV, "":
		format, out, durf = dto.ExportFormatCSV, s.csv, s.csvFormat
	case dto.ExportFormatPDF:
		out, durf = s.pdf, s.pdfFormat
	default:
		return nil, appErrors.Validation("unsupported export format", []appErrors.FieldError{
			{Field: "format", Rule: "oneof", Message: "Format must be csv or pdf"},
		})
	}

	events, err := s.events.List(ctx, caller.UserID)
	if err != nil {
		return nil, err
	}

	rows := make([]map[string]string, 0, len(events))
	for _, event := range events {
		description := ""
		if event.Description != nil {
			description = *event.Description
		}
		rows = append(rows, map[string]string{
			"Name":        event.Name,
			"Duration":    durf.Format(event.DurationInMinutes),
			"Minutes":     strconv.Itoa(event.DurationInMinutes),
			"Active":      strconv.FormatBool(event.IsActive),
			"Description": description,
			"Updated At":  event.UpdatedAt.UTC().Format(time.RFC3339),
		})
	}

	body, err := out.Render(export.Dataset{Headers: exportHeaders, Rows: rows}, "Events")
	if err != nil {
		s.logger.Error("render events export", zap.String("format", string(format)), zap.Error(err))
		return nil, fmt.Errorf("render %s export: %w", format, err)
	}

	return &dto.ExportFile{
		Filename:    fmt.Sprintf("events_%s.%s", s.now().UTC().Format("20060102_150405"), format),
		ContentType: out.ContentType(),
		Body:        body,
	}, nil
}
