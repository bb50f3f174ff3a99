// Package numbering assigns human-readable document numbers such as INV-0012.
//
// Each owner has one counter per document type, stored in document_sequences
// and incremented inside a transaction. The counter only proposes numbers:
// uniqueness is enforced by the (user_id, number) unique index of each document
// table, and creators retry with a fresh number when an insert conflicts.
package numbering

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Roquverse/flow-invoice-nexus/internal/apperr"
	"github.com/Roquverse/flow-invoice-nexus/internal/config"
	"github.com/Roquverse/flow-invoice-nexus/internal/models"
	"github.com/Roquverse/flow-invoice-nexus/internal/store"
)

const maxNumberLength = 50

type target struct {
	table  string
	column string
}

var targets = map[models.DocumentType]target{
	models.DocumentInvoice: {"invoices", "invoice_number"},
	models.DocumentQuote:   {"quotes", "quote_number"},
	models.DocumentReceipt: {"receipts", "receipt_number"},
}

type Service struct {
	db       *gorm.DB
	prefixes map[models.DocumentType]string
	padding  int
}

func New(db *gorm.DB, cfg config.NumberingConfig) *Service {
	return &Service{
		db: db,
		prefixes: map[models.DocumentType]string{
			models.DocumentInvoice: cfg.InvoicePrefix,
			models.DocumentQuote:   cfg.QuotePrefix,
			models.DocumentReceipt: cfg.ReceiptPrefix,
		},
		padding: cfg.Padding,
	}
}

// Format renders seq with the prefix of docType: Format(invoice, 12) = "INV-0012".
func (s *Service) Format(docType models.DocumentType, seq int64) string {
	return fmt.Sprintf("%s-%0*d", s.prefixes[docType], s.padding, seq)
}

// parse extracts the sequence of a number produced by Format.
func (s *Service) parse(docType models.DocumentType, number string) (int64, bool) {
	digits, ok := strings.CutPrefix(number, s.prefixes[docType]+"-")
	if !ok || digits == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// Next consumes and returns the next number of docType for the owner.
func (s *Service) Next(ctx context.Context, ownerID uint, docType models.DocumentType) (string, error) {
	if _, ok := targets[docType]; !ok {
		return "", apperr.Field("type", "unknown_value")
	}
	var seq int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.ensureSequence(tx, ownerID, docType); err != nil {
			return err
		}
		err := tx.Model(&models.DocumentSequence{}).
			Where("user_id = ? AND doc_type = ?", ownerID, docType).
			Updates(map[string]any{"last_value": gorm.Expr("last_value + 1"), "updated_at": time.Now().UTC()}).Error
		if err != nil {
			return err
		}
		var row models.DocumentSequence
		if err := tx.Where("user_id = ? AND doc_type = ?", ownerID, docType).First(&row).Error; err != nil {
			return err
		}
		seq = row.LastValue
		return nil
	})
	if err != nil {
		return "", store.Translate(err, "document_sequence")
	}
	return s.Format(docType, seq), nil
}

// Peek returns the number Next would produce now, without consuming it.
func (s *Service) Peek(ctx context.Context, ownerID uint, docType models.DocumentType) (string, error) {
	if _, ok := targets[docType]; !ok {
		return "", apperr.Field("type", "unknown_value")
	}
	tx := s.db.WithContext(ctx)
	var row models.DocumentSequence
	err := tx.Where("user_id = ? AND doc_type = ?", ownerID, docType).First(&row).Error
	switch {
	case err == nil:
		return s.Format(docType, row.LastValue+1), nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		last, err := s.highestExisting(tx, ownerID, docType)
		if err != nil {
			return "", store.Translate(err, "document_sequence")
		}
		return s.Format(docType, last+1), nil
	default:
		return "", store.Translate(err, "document_sequence")
	}
}

// ValidateExplicit checks a caller-supplied number: it must be non-empty and
// not already used by the owner for docType.
func (s *Service) ValidateExplicit(ctx context.Context, ownerID uint, docType models.DocumentType, number string) error {
	t, ok := targets[docType]
	if !ok {
		return apperr.Field("type", "unknown_value")
	}
	field := t.column
	if strings.TrimSpace(number) == "" {
		return apperr.Field(field, "required")
	}
	if len(number) > maxNumberLength {
		return apperr.Field(field, "too_long")
	}
	var n int64
	err := s.db.WithContext(ctx).Table(t.table).
		Where("user_id = ? AND "+t.column+" = ?", ownerID, number).
		Count(&n).Error
	if err != nil {
		return store.Translate(err, string(docType))
	}
	if n > 0 {
		return NumberTaken(docType, number)
	}
	return nil
}

// NumberTaken is the conflict reported for an already used document number.
func NumberTaken(docType models.DocumentType, number string) error {
	return apperr.Conflict("number_taken", fmt.Sprintf("%s number %s is already used", docType, number))
}

// ensureSequence creates the counter row on first use, starting after the
// highest number already present so imported documents are not reissued.
func (s *Service) ensureSequence(tx *gorm.DB, ownerID uint, docType models.DocumentType) error {
	var n int64
	if err := tx.Model(&models.DocumentSequence{}).
		Where("user_id = ? AND doc_type = ?", ownerID, docType).
		Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	last, err := s.highestExisting(tx, ownerID, docType)
	if err != nil {
		return err
	}
	row := models.DocumentSequence{UserID: ownerID, DocType: docType, LastValue: last}
	return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error
}

func (s *Service) highestExisting(tx *gorm.DB, ownerID uint, docType models.DocumentType) (int64, error) {
	t := targets[docType]
	var numbers []string
	err := tx.Table(t.table).
		Where("user_id = ? AND "+t.column+" LIKE ?", ownerID, s.prefixes[docType]+"-%").
		Pluck(t.column, &numbers).Error
	if err != nil {
		return 0, err
	}
	var last int64
	for _, num := range numbers {
		if n, ok := s.parse(docType, num); ok && n > last {
			last = n
		}
	}
	return last, nil
}
