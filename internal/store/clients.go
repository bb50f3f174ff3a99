package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/Roquverse/flow-invoice-nexus/internal/apperr"
	"github.com/Roquverse/flow-invoice-nexus/internal/models"
)

// DeletePolicy decides what happens to documents referencing a deleted client.
type DeletePolicy string

const (
	// PolicyOrphan deletes the client and leaves references dangling.
	PolicyOrphan DeletePolicy = "orphan"
	// PolicyRestrict refuses to delete a client that is still referenced.
	PolicyRestrict DeletePolicy = "restrict"
	// PolicyCascade deletes the client together with its projects, documents and receipts.
	PolicyCascade DeletePolicy = "cascade"
)

func ParseDeletePolicy(s string) (DeletePolicy, error) {
	switch p := DeletePolicy(s); p {
	case PolicyOrphan, PolicyRestrict, PolicyCascade:
		return p, nil
	}
	return "", fmt.Errorf("unknown client delete policy %q", s)
}

// ClientReferences counts the rows of each table pointing at a client.
type ClientReferences struct {
	Projects int64 `json:"projects"`
	Invoices int64 `json:"invoices"`
	Quotes   int64 `json:"quotes"`
	Receipts int64 `json:"receipts"`
}

func (r ClientReferences) Total() int64 { return r.Projects + r.Invoices + r.Quotes + r.Receipts }

// CountClientReferences reports how many owned rows reference the client.
func CountClientReferences(ctx context.Context, db *gorm.DB, ownerID, clientID uint) (ClientReferences, error) {
	var refs ClientReferences
	counts := []struct {
		model any
		dst   *int64
	}{
		{&models.Project{}, &refs.Projects},
		{&models.Invoice{}, &refs.Invoices},
		{&models.Quote{}, &refs.Quotes},
		{&models.Receipt{}, &refs.Receipts},
	}
	for _, c := range counts {
		err := db.WithContext(ctx).Model(c.model).
			Where("user_id = ? AND client_id = ?", ownerID, clientID).
			Count(c.dst).Error
		if err != nil {
			return refs, Translate(err, "client")
		}
	}
	return refs, nil
}

// DeleteClient removes an owned client according to policy, in one transaction.
func DeleteClient(ctx context.Context, db *gorm.DB, ownerID, clientID uint, policy DeletePolicy) error {
	return Translate(db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		clients := New[models.Client](tx, "client")
		if ok, err := clients.Exists(ctx, ownerID, clientID); err != nil {
			return err
		} else if !ok {
			return apperr.NotFound("client")
		}

		switch policy {
		case PolicyRestrict:
			refs, err := CountClientReferences(ctx, tx, ownerID, clientID)
			if err != nil {
				return err
			}
			if refs.Total() > 0 {
				return apperr.Conflict("client_in_use",
					fmt.Sprintf("client is referenced by %d invoices, %d quotes, %d receipts and %d projects",
						refs.Invoices, refs.Quotes, refs.Receipts, refs.Projects))
			}
		case PolicyCascade:
			if err := deleteClientDependents(ctx, tx, ownerID, clientID); err != nil {
				return err
			}
		}
		return clients.Delete(ctx, ownerID, clientID)
	}), "client")
}

func deleteClientDependents(ctx context.Context, tx *gorm.DB, ownerID, clientID uint) error {
	owned := func(model any) *gorm.DB {
		return tx.WithContext(ctx).Model(model).Where("user_id = ? AND client_id = ?", ownerID, clientID)
	}
	steps := []func() error{
		func() error {
			return tx.WithContext(ctx).Where("invoice_id IN (?)", owned(&models.Invoice{}).Select("id")).
				Delete(&models.InvoiceItem{}).Error
		},
		func() error {
			return tx.WithContext(ctx).Where("quote_id IN (?)", owned(&models.Quote{}).Select("id")).
				Delete(&models.QuoteItem{}).Error
		},
		func() error {
			return tx.WithContext(ctx).Where("user_id = ? AND client_id = ?", ownerID, clientID).Delete(&models.Receipt{}).Error
		},
		func() error {
			return tx.WithContext(ctx).Where("user_id = ? AND client_id = ?", ownerID, clientID).Delete(&models.Invoice{}).Error
		},
		func() error {
			return tx.WithContext(ctx).Where("user_id = ? AND client_id = ?", ownerID, clientID).Delete(&models.Quote{}).Error
		},
		func() error {
			return tx.WithContext(ctx).Where("user_id = ? AND client_id = ?", ownerID, clientID).Delete(&models.Project{}).Error
		},
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}
