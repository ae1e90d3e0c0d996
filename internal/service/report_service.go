package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dafibh/fintrack/fintrack-backend/internal/domain"
	"github.com/dafibh/fintrack/fintrack-backend/internal/event"
	"github.com/dafibh/fintrack/fintrack-backend/internal/report"
	"github.com/dafibh/fintrack/fintrack-backend/internal/repository/storage"
	"github.com/google/uuid"
)

// ArchiveURLExpiry is how long the download URL of an archived report stays valid
const ArchiveURLExpiry = 24 * time.Hour

// ErrObjectStorageNotConfigured is returned by operations that need object storage
var ErrObjectStorageNotConfigured = errors.New("object storage not configured")

// ReportService produces per-category aggregates and their exports
type ReportService struct {
	reportRepo     domain.ReportRepository
	objectStore    storage.ObjectStore
	eventPublisher event.Publisher
	now            func() time.Time
}

// NewReportService creates a new ReportService. objectStore may be nil, in
// which case archiving is disabled.
func NewReportService(reportRepo domain.ReportRepository, objectStore storage.ObjectStore) *ReportService {
	return &ReportService{
		reportRepo:  reportRepo,
		objectStore: objectStore,
		now:         time.Now,
	}
}

// SetEventPublisher sets the event publisher for real-time updates
func (s *ReportService) SetEventPublisher(publisher event.Publisher) {
	s.eventPublisher = publisher
}

// ExportedReport is a rendered category report
type ExportedReport struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ArchivedReport locates a report uploaded to object storage
type ArchivedReport struct {
	Key       string    `json:"key"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// GetCategoryReport sums after-tax amounts per category name over [start, end]
func (s *ReportService) GetCategoryReport(ctx context.Context, start, end time.Time) (domain.CategoryReport, error) {
	period, err := domain.NewClosedPeriod(start, end)
	if err != nil {
		return nil, err
	}
	return s.reportRepo.SumAfterTaxByCategory(ctx, period)
}

// ExportCategoryReport renders the category report over [start, end]
func (s *ReportService) ExportCategoryReport(ctx context.Context, start, end time.Time, format report.Format) (*ExportedReport, error) {
	period, err := domain.NewClosedPeriod(start, end)
	if err != nil {
		return nil, err
	}
	if format != report.FormatCSV && format != report.FormatPDF {
		return nil, report.ErrUnsupportedFormat
	}

	totals, err := s.reportRepo.SumAfterTaxByCategory(ctx, period)
	if err != nil {
		return nil, err
	}

	doc := report.NewDocument(period, totals, s.now())
	data, err := report.RenderBytes(doc, format)
	if err != nil {
		return nil, fmt.Errorf("render %s report: %w", format, err)
	}

	return &ExportedReport{
		Filename:    doc.Filename(format),
		ContentType: format.ContentType(),
		Data:        data,
	}, nil
}

// ArchiveCategoryReport renders the report and uploads it under
// reports/<yyyy>/<uuid>/<filename>, returning a presigned download URL
func (s *ReportService) ArchiveCategoryReport(ctx context.Context, start, end time.Time, format report.Format) (*ArchivedReport, error) {
	if s.objectStore == nil {
		return nil, ErrObjectStorageNotConfigured
	}

	exported, err := s.ExportCategoryReport(ctx, start, end, format)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	key := fmt.Sprintf("reports/%d/%s/%s", now.Year(), uuid.New().String(), exported.Filename)
	key, err = s.objectStore.Upload(ctx, key, bytes.NewReader(exported.Data), exported.ContentType, int64(len(exported.Data)))
	if err != nil {
		return nil, fmt.Errorf("upload report: %w", err)
	}

	url, err := s.objectStore.PresignGet(ctx, key, ArchiveURLExpiry)
	if err != nil {
		return nil, err
	}

	archived := &ArchivedReport{Key: key, URL: url, ExpiresAt: now.Add(ArchiveURLExpiry)}
	if s.eventPublisher != nil {
		s.eventPublisher.Publish(event.ReportArchived(archived))
	}
	return archived, nil
}
