// Package lifecycle holds the status machines of invoices and quotes.
package lifecycle

import (
	"github.com/Roquverse/flow-invoice-nexus/internal/apperr"
	"github.com/Roquverse/flow-invoice-nexus/internal/models"
)

// Machine is a transition table over a string status type.
type Machine[S ~string] struct {
	entity string
	next   map[S][]S
}

func NewMachine[S ~string](entity string, next map[S][]S) *Machine[S] {
	return &Machine[S]{entity: entity, next: next}
}

// CanTransition reports whether from -> to is an edge of the table.
func (m *Machine[S]) CanTransition(from, to S) bool {
	for _, s := range m.next[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Transition returns an InvalidTransition error when from -> to is not allowed.
func (m *Machine[S]) Transition(from, to S) error {
	if !m.CanTransition(from, to) {
		return apperr.InvalidTransition(m.entity, string(from), string(to))
	}
	return nil
}

// IsTerminal reports whether no transition leaves s.
func (m *Machine[S]) IsTerminal(s S) bool { return len(m.next[s]) == 0 }

// Sources lists every status that may move to target.
func (m *Machine[S]) Sources(target S) []S {
	var out []S
	for from, tos := range m.next {
		for _, to := range tos {
			if to == target {
				out = append(out, from)
			}
		}
	}
	return out
}

// Invoices: draft -> sent -> viewed -> {paid, overdue, cancelled}. Overdue may still be
// paid or cancelled. Paid and cancelled are terminal.
var Invoices = NewMachine("invoice", map[models.InvoiceStatus][]models.InvoiceStatus{
	models.InvoiceStatusDraft:   {models.InvoiceStatusSent, models.InvoiceStatusCancelled},
	models.InvoiceStatusSent:    {models.InvoiceStatusViewed, models.InvoiceStatusPaid, models.InvoiceStatusOverdue, models.InvoiceStatusCancelled},
	models.InvoiceStatusViewed:  {models.InvoiceStatusPaid, models.InvoiceStatusOverdue, models.InvoiceStatusCancelled},
	models.InvoiceStatusOverdue: {models.InvoiceStatusPaid, models.InvoiceStatusCancelled},
})

// Quotes: draft -> sent -> viewed -> {accepted, rejected, expired}. The three outcomes are terminal.
var Quotes = NewMachine("quote", map[models.QuoteStatus][]models.QuoteStatus{
	models.QuoteStatusDraft:  {models.QuoteStatusSent},
	models.QuoteStatusSent:   {models.QuoteStatusViewed, models.QuoteStatusAccepted, models.QuoteStatusRejected, models.QuoteStatusExpired},
	models.QuoteStatusViewed: {models.QuoteStatusAccepted, models.QuoteStatusRejected, models.QuoteStatusExpired},
})

// CheckOverdue validates the move to overdue. It is derived from the due date:
// only an invoice whose due date is strictly before today can become overdue.
func CheckOverdue(from models.InvoiceStatus, due, today models.Date) error {
	if err := Invoices.Transition(from, models.InvoiceStatusOverdue); err != nil {
		return err
	}
	if !due.Before(today) {
		return apperr.InvalidState("not_past_due", "invoice is not past its due date")
	}
	return nil
}

// CheckExpired validates the move to expired for a quote past its expiry date.
func CheckExpired(from models.QuoteStatus, expiry, today models.Date) error {
	if err := Quotes.Transition(from, models.QuoteStatusExpired); err != nil {
		return err
	}
	if !expiry.Before(today) {
		return apperr.InvalidState("not_expired", "quote has not reached its expiry date")
	}
	return nil
}
