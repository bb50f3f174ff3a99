package models

import (
	"database/sql/driver"
	"fmt"

	"github.com/Roquverse/flow-invoice-nexus/internal/apperr"
)

// Enum columns are parsed on the way in and on the way out of the database.
// A row holding a value outside the declared set fails to scan instead of
// silently becoming an unknown status.

type ClientStatus string

const (
	ClientStatusActive   ClientStatus = "active"
	ClientStatusInactive ClientStatus = "inactive"
	ClientStatusArchived ClientStatus = "archived"
)

var clientStatuses = []ClientStatus{ClientStatusActive, ClientStatusInactive, ClientStatusArchived}

func ParseClientStatus(s string) (ClientStatus, error) { return parseEnum("status", s, clientStatuses) }

func (s *ClientStatus) Scan(src any) error { return scanEnum(s, src, ParseClientStatus) }

func (s ClientStatus) Value() (driver.Value, error) { return valueEnum(s, ParseClientStatus) }

type ProjectStatus string

const (
	ProjectStatusActive    ProjectStatus = "active"
	ProjectStatusCompleted ProjectStatus = "completed"
	ProjectStatusOnHold    ProjectStatus = "on-hold"
	ProjectStatusCancelled ProjectStatus = "cancelled"
)

var projectStatuses = []ProjectStatus{ProjectStatusActive, ProjectStatusCompleted, ProjectStatusOnHold, ProjectStatusCancelled}

func ParseProjectStatus(s string) (ProjectStatus, error) { return parseEnum("status", s, projectStatuses) }

func (s *ProjectStatus) Scan(src any) error { return scanEnum(s, src, ParseProjectStatus) }

func (s ProjectStatus) Value() (driver.Value, error) { return valueEnum(s, ParseProjectStatus) }

type InvoiceStatus string

const (
	InvoiceStatusDraft     InvoiceStatus = "draft"
	InvoiceStatusSent      InvoiceStatus = "sent"
	InvoiceStatusViewed    InvoiceStatus = "viewed"
	InvoiceStatusPaid      InvoiceStatus = "paid"
	InvoiceStatusOverdue   InvoiceStatus = "overdue"
	InvoiceStatusCancelled InvoiceStatus = "cancelled"
)

var invoiceStatuses = []InvoiceStatus{
	InvoiceStatusDraft, InvoiceStatusSent, InvoiceStatusViewed,
	InvoiceStatusPaid, InvoiceStatusOverdue, InvoiceStatusCancelled,
}

func ParseInvoiceStatus(s string) (InvoiceStatus, error) { return parseEnum("status", s, invoiceStatuses) }

func (s *InvoiceStatus) Scan(src any) error { return scanEnum(s, src, ParseInvoiceStatus) }

func (s InvoiceStatus) Value() (driver.Value, error) { return valueEnum(s, ParseInvoiceStatus) }

type QuoteStatus string

const (
	QuoteStatusDraft    QuoteStatus = "draft"
	QuoteStatusSent     QuoteStatus = "sent"
	QuoteStatusViewed   QuoteStatus = "viewed"
	QuoteStatusAccepted QuoteStatus = "accepted"
	QuoteStatusRejected QuoteStatus = "rejected"
	QuoteStatusExpired  QuoteStatus = "expired"
)

var quoteStatuses = []QuoteStatus{
	QuoteStatusDraft, QuoteStatusSent, QuoteStatusViewed,
	QuoteStatusAccepted, QuoteStatusRejected, QuoteStatusExpired,
}

func ParseQuoteStatus(s string) (QuoteStatus, error) { return parseEnum("status", s, quoteStatuses) }

func (s *QuoteStatus) Scan(src any) error { return scanEnum(s, src, ParseQuoteStatus) }

func (s QuoteStatus) Value() (driver.Value, error) { return valueEnum(s, ParseQuoteStatus) }

type PaymentMethod string

const (
	PaymentMethodCash         PaymentMethod = "cash"
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
	PaymentMethodCreditCard   PaymentMethod = "credit_card"
	PaymentMethodPaypal       PaymentMethod = "paypal"
	PaymentMethodOther        PaymentMethod = "other"
)

var paymentMethods = []PaymentMethod{
	PaymentMethodCash, PaymentMethodBankTransfer, PaymentMethodCreditCard,
	PaymentMethodPaypal, PaymentMethodOther,
}

func ParsePaymentMethod(s string) (PaymentMethod, error) {
	return parseEnum("payment_method", s, paymentMethods)
}

func (m *PaymentMethod) Scan(src any) error { return scanEnum(m, src, ParsePaymentMethod) }

func (m PaymentMethod) Value() (driver.Value, error) { return valueEnum(m, ParsePaymentMethod) }

// DocumentType names the numbered document families. Each has its own counter.
type DocumentType string

const (
	DocumentInvoice DocumentType = "invoice"
	DocumentQuote   DocumentType = "quote"
	DocumentReceipt DocumentType = "receipt"
)

var documentTypes = []DocumentType{DocumentInvoice, DocumentQuote, DocumentReceipt}

func ParseDocumentType(s string) (DocumentType, error) { return parseEnum("type", s, documentTypes) }

func (t *DocumentType) Scan(src any) error { return scanEnum(t, src, ParseDocumentType) }

func (t DocumentType) Value() (driver.Value, error) { return valueEnum(t, ParseDocumentType) }

type AdminRole string

const (
	AdminRoleSuperAdmin AdminRole = "superadmin"
	AdminRoleAdmin      AdminRole = "admin"
	AdminRoleSupport    AdminRole = "support"
)

var adminRoles = []AdminRole{AdminRoleSuperAdmin, AdminRoleAdmin, AdminRoleSupport}

func ParseAdminRole(s string) (AdminRole, error) { return parseEnum("role", s, adminRoles) }

func (r *AdminRole) Scan(src any) error { return scanEnum(r, src, ParseAdminRole) }

func (r AdminRole) Value() (driver.Value, error) { return valueEnum(r, ParseAdminRole) }

func parseEnum[T ~string](field, raw string, valid []T) (T, error) {
	for _, v := range valid {
		if string(v) == raw {
			return v, nil
		}
	}
	var zero T
	return zero, apperr.Validation(fmt.Sprintf("unknown %s %q", field, raw), map[string]string{field: "unknown_value"})
}

func scanEnum[T ~string](dst *T, src any, parse func(string) (T, error)) error {
	var raw string
	switch v := src.(type) {
	case string:
		raw = v
	case []byte:
		raw = string(v)
	case nil:
		return fmt.Errorf("models: cannot scan NULL into %T", dst)
	default:
		return fmt.Errorf("models: cannot scan %T into %T", src, dst)
	}
	parsed, err := parse(raw)
	if err != nil {
		return err
	}
	*dst = parsed
	return nil
}

func valueEnum[T ~string](v T, parse func(string) (T, error)) (driver.Value, error) {
	if _, err := parse(string(v)); err != nil {
		return nil, err
	}
	return string(v), nil
}
