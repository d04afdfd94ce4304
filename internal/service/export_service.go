package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/timetable-api/internal/models"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
	"github.com/noah-isme/timetable-api/pkg/export"
	"github.com/noah-isme/timetable-api/pkg/storage"
)

// Supported export formats.
const (
	ExportFormatCSV = "csv"
	ExportFormatPDF = "pdf"
)

type timetableGetter interface {
	Get(ctx context.Context, id string) (*models.Timetable, error)
}

type exportStorage interface {
	Save(name string, data []byte) (string, error)
	Open(name string) (*os.File, error)
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type linkSigner interface {
	Sign(subject, path string) (string, storage.Grant, error)
	Verify(token string) (storage.Grant, error)
	TTL() time.Duration
}

type csvRenderer interface {
	Render(rows []export.TimetableRow) ([]byte, error)
}

type pdfRenderer interface {
	Render(title string, rows []export.TimetableRow) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
}

// ExportFile is a rendered timetable document.
type ExportFile struct {
	Filename    string
	ContentType string
	Body        []byte
}

// ExportLink points at a stored export behind a signed token.
type ExportLink struct {
	Token     string    `json:"token"`
	URL       string    `json:"url"`
	Format    string    `json:"format"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ExportService renders timetables to CSV/PDF and optionally stores them for download.
type ExportService struct {
	timetables timetableGetter
	catalog    catalogSnapshotter
	storage    exportStorage
	signer     linkSigner
	csv        csvRenderer
	pdf        pdfRenderer
	logger     *zap.Logger
	cfg        ExportConfig
}

// NewExportService constructs an ExportService. storage and signer may be nil, which
// disables download links.
func NewExportService(timetables timetableGetter, catalog catalogSnapshotter, storage exportStorage, signer linkSigner, cfg ExportConfig, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		timetables: timetables,
		catalog:    catalog,
		storage:    storage,
		signer:     signer,
		csv:        csv,
		pdf:        pdf,
		logger:     logger,
		cfg:        cfg,
	}
}

// Render builds the export document for a timetable.
func (s *ExportService) Render(ctx context.Context, id, format string) (*ExportFile, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = ExportFormatCSV
	}
	if format != ExportFormatCSV && format != ExportFormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}

	timetable, err := s.timetables.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	names := loadNames(ctx, s.catalog, timetable, s.logger)
	rows := make([]export.TimetableRow, 0, len(timetable.Schedule))
	for _, entry := range timetable.Schedule {
		rows = append(rows, names.row(entry))
	}

	file := &ExportFile{Filename: exportFilename(timetable, format)}
	switch format {
	case ExportFormatPDF:
		file.ContentType = "application/pdf"
		file.Body, err = s.pdf.Render(timetable.Name, rows)
	default:
		file.ContentType = "text/csv"
		file.Body, err = s.csv.Render(rows)
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	return file, nil
}

// Share renders the export, stores it, and returns a signed download link.
func (s *ExportService) Share(ctx context.Context, id, format string) (*ExportLink, error) {
	if s.storage == nil || s.signer == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "export links are not configured")
	}
	file, err := s.Render(ctx, id, format)
	if err != nil {
		return nil, err
	}
	stored, err := s.storage.Save(path.Join("timetables", id, file.Filename), file.Body)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store export")
	}
	token, grant, err := s.signer.Sign(id, stored)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign export link")
	}
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}
	return &ExportLink{
		Token:     token,
		URL:       fmt.Sprintf("%s/exports/%s", prefix, token),
		Format:    strings.TrimPrefix(path.Ext(file.Filename), "."),
		ExpiresAt: grant.ExpiresAt,
	}, nil
}

// Open resolves a download token to the stored file.
func (s *ExportService) Open(token string) (*os.File, string, error) {
	if s.storage == nil || s.signer == nil {
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, "export not found")
	}
	grant, err := s.signer.Verify(token)
	if err != nil {
		if errors.Is(err, storage.ErrTokenExpired) {
			return nil, "", appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "export link expired")
		}
		return nil, "", appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "export not found")
	}
	file, err := s.storage.Open(grant.Path)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "export not found")
	}
	return file, path.Base(grant.Path), nil
}

// Cleanup removes stored exports whose links have expired.
func (s *ExportService) Cleanup() ([]string, error) {
	if s.storage == nil || s.signer == nil {
		return nil, nil
	}
	return s.storage.CleanupOlderThan(s.signer.TTL())
}

func exportFilename(timetable *models.Timetable, format string) string {
	name := fmt.Sprintf("%s_s%d_%d", timetable.Department, timetable.Semester, timetable.Year)
	return sanitizeFilename(strings.ToLower(name)) + "." + format
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "timetable"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}
