// Package services implements the business operations behind the HTTP API.
// Every method takes the authenticated owner id and never touches another
// owner's rows.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Roquverse/flow-invoice-nexus/internal/apperr"
	"github.com/Roquverse/flow-invoice-nexus/internal/config"
	"github.com/Roquverse/flow-invoice-nexus/internal/models"
	"github.com/Roquverse/flow-invoice-nexus/internal/numbering"
	"github.com/Roquverse/flow-invoice-nexus/internal/store"
)

// Services bundles the domain services sharing one database.
type Services struct {
	Clients   *ClientService
	Projects  *ProjectService
	Invoices  *InvoiceService
	Quotes    *QuoteService
	Receipts  *ReceiptService
	Dashboard *DashboardService
	Numbers   *numbering.Service
}

// deps is what every service needs.
type deps struct {
	db       *gorm.DB
	log      *zap.Logger
	numbers  *numbering.Service
	currency string
	retries  int
	now      func() time.Time
}

func (d *deps) today() models.Date { return models.DateOf(d.now().UTC()) }

func New(db *gorm.DB, cfg *config.Config, log *zap.Logger) (*Services, error) {
	policy, err := store.ParseDeletePolicy(cfg.App.ClientDeletePolicy)
	if err != nil {
		return nil, err
	}
	d := &deps{
		db:       db,
		log:      log,
		numbers:  numbering.New(db, cfg.Numbering),
		currency: strings.ToUpper(cfg.App.DefaultCurrency),
		retries:  max(cfg.Numbering.MaxRetries, 1),
		now:      time.Now,
	}
	invoices := newInvoiceService(d)
	return &Services{
		Clients:   newClientService(d, policy),
		Projects:  newProjectService(d),
		Invoices:  invoices,
		Quotes:    newQuoteService(d, invoices),
		Receipts:  newReceiptService(d),
		Dashboard: newDashboardService(d),
		Numbers:   d.numbers,
	}, nil
}

// ownedRef checks that the row id of model belongs to owner. A foreign or
// missing row is a validation failure of field, not a NotFound.
func ownedRef(ctx context.Context, db *gorm.DB, model any, field string, ownerID, id uint) error {
	var n int64
	err := db.WithContext(ctx).Model(model).Where("id = ? AND user_id = ?", id, ownerID).Count(&n).Error
	if err != nil {
		return store.Translate(err, field)
	}
	if n == 0 {
		return apperr.Field(field, "not_found")
	}
	return nil
}

// withNumber runs create with the explicit number, or with fresh numbers
// until one does not collide.
func (d *deps) withNumber(ctx context.Context, ownerID uint, docType models.DocumentType, explicit string, create func(number string) error) error {
	if explicit = strings.TrimSpace(explicit); explicit != "" {
		if err := d.numbers.ValidateExplicit(ctx, ownerID, docType, explicit); err != nil {
			return err
		}
		err := create(explicit)
		if numberCollision(err, docType) {
			return numbering.NumberTaken(docType, explicit)
		}
		return err
	}
	var err error
	for attempt := 1; attempt <= d.retries; attempt++ {
		var number string
		number, err = d.numbers.Next(ctx, ownerID, docType)
		if err != nil {
			return err
		}
		err = create(number)
		if !numberCollision(err, docType) {
			return err
		}
		d.log.Warn("document number collision, retrying",
			zap.String("type", string(docType)), zap.String("number", number), zap.Int("attempt", attempt))
	}
	return apperr.Conflict("number_exhausted", fmt.Sprintf("could not allocate a free %s number", docType))
}

// numberCollision reports whether err is the unique violation raised when a
// document of docType is stored under a number that is already used.
func numberCollision(err error, docType models.DocumentType) bool {
	return errors.Is(err, &apperr.Error{Kind: apperr.KindConflict, Code: string(docType) + "_exists"})
}

// renumber returns the trimmed requested number when it differs from current.
func renumber(requested, current string) (string, bool) {
	requested = strings.TrimSpace(requested)
	return requested, requested != "" && requested != current
}

func currencyOr(in, fallback string) string {
	if in = strings.TrimSpace(in); in != "" {
		return strings.ToUpper(in)
	}
	return fallback
}

func translate(err error, entity string) error { return store.Translate(err, entity) }
