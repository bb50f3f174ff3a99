// Package export renders documents to PDF and optionally archives the files.
package export

import (
	"context"

	"go.uber.org/zap"

	"github.com/Roquverse/flow-invoice-nexus/internal/models"
	"github.com/Roquverse/flow-invoice-nexus/internal/services"
)

// File is a rendered document.
type File struct {
	Name string
	Body []byte
	// ArchiveKey is set when the file was archived.
	ArchiveKey string
}

// Service loads owned documents, renders them and archives the result when an
// Archiver is configured. Archive failures are logged and do not fail the export.
type Service struct {
	svc      *services.Services
	archiver Archiver
	log      *zap.Logger
}

func NewService(svc *services.Services, archiver Archiver, log *zap.Logger) *Service {
	return &Service{svc: svc, archiver: archiver, log: log}
}

func clientName(c *models.Client) string {
	if c == nil {
		return ""
	}
	return c.BusinessName
}

func (s *Service) finish(ctx context.Context, ownerID uint, name string, body []byte) *File {
	f := &File{Name: name, Body: body}
	if s.archiver == nil {
		return f
	}
	key, err := s.archiver.Archive(ctx, ownerID, name, body)
	if err != nil {
		s.log.Warn("archive export failed", zap.String("file", name), zap.Error(err))
		return f
	}
	f.ArchiveKey = key
	return f
}

func (s *Service) Invoice(ctx context.Context, ownerID, id uint) (*File, error) {
	inv, err := s.svc.Invoices.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	body, err := InvoicePDF(inv)
	if err != nil {
		return nil, err
	}
	return s.finish(ctx, ownerID, Filename(clientName(inv.Client), models.DocumentInvoice, inv.InvoiceNumber), body), nil
}

func (s *Service) Quote(ctx context.Context, ownerID, id uint) (*File, error) {
	q, err := s.svc.Quotes.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	body, err := QuotePDF(q)
	if err != nil {
		return nil, err
	}
	return s.finish(ctx, ownerID, Filename(clientName(q.Client), models.DocumentQuote, q.QuoteNumber), body), nil
}

func (s *Service) Receipt(ctx context.Context, ownerID, id uint) (*File, error) {
	r, err := s.svc.Receipts.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	body, err := ReceiptPDF(r)
	if err != nil {
		return nil, err
	}
	return s.finish(ctx, ownerID, Filename(clientName(r.Client), models.DocumentReceipt, r.ReceiptNumber), body), nil
}
