package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/newdaybreak/careers/internal/store"
	"github.com/newdaybreak/careers/types"
	"github.com/sirupsen/logrus"
)

// Export formats.
const (
	FormatJSON = "json"
	FormatPDF  = "pdf"
)

// DocumentRenderer turns an application into a printable document.
type DocumentRenderer interface {
	Render(ctx context.Context, app types.Application) ([]byte, error)
}

// UnavailableRenderer is used when no PDF engine is configured.
type UnavailableRenderer struct{}

func (UnavailableRenderer) Render(context.Context, types.Application) ([]byte, error) {
	return nil, fmt.Errorf("%w: pdf export is not enabled on this server", ErrUnavailable)
}

// Archive stores copies of exported documents and returns where each was kept.
type Archive interface {
	ArchiveExport(ctx context.Context, applicationID int64, filename, contentType string, data []byte) (string, error)
}

// Document is an exported application ready for download.
type Document struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ExportService produces downloadable copies of single applications.
type ExportService struct {
	repo     ApplicationRepository
	renderer DocumentRenderer
	archive  Archive
	log      logrus.FieldLogger
}

// NewExportService constructs an ExportService. renderer may be nil, meaning
// PDF export is unavailable; archive may be nil, meaning exports are not kept.
func NewExportService(repo ApplicationRepository, renderer DocumentRenderer, archive Archive, log logrus.FieldLogger) *ExportService {
	if renderer == nil {
		renderer = UnavailableRenderer{}
	}
	return &ExportService{repo: repo, renderer: renderer, archive: archive, log: log}
}

// Export returns the application in the requested format ("json" when empty).
func (s *ExportService) Export(ctx context.Context, identity Identity, id int64, format string) (Document, error) {
	if err := RequireRole(identity, types.RoleAdmin); err != nil {
		return Document{}, err
	}

	app, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Document{}, err
		}
		return Document{}, fmt.Errorf("%w: load application: %w", ErrStorage, err)
	}

	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = FormatJSON
	}

	var doc Document
	switch format {
	case FormatJSON:
		data, err := json.MarshalIndent(app, "", "  ")
		if err != nil {
			return Document{}, err
		}
		doc = Document{Filename: app.ExportFilename("json"), ContentType: "application/json", Data: data}
	case FormatPDF:
		data, err := s.renderer.Render(ctx, app)
		if err != nil {
			return Document{}, err
		}
		doc = Document{Filename: app.ExportFilename("pdf"), ContentType: "application/pdf", Data: data}
	default:
		return Document{}, invalid("unsupported format")
	}

	s.store(ctx, app.ID, doc)
	return doc, nil
}

func (s *ExportService) store(ctx context.Context, applicationID int64, doc Document) {
	if s.archive == nil {
		return
	}
	entry := s.log.WithFields(logrus.Fields{
		"application_id": applicationID,
		"filename":       doc.Filename,
	})
	key, err := s.archive.ArchiveExport(ctx, applicationID, doc.Filename, doc.ContentType, doc.Data)
	if err != nil {
		entry.WithError(err).Warn("archive export")
		return
	}
	entry.WithField("key", key).Debug("export archived")
}
