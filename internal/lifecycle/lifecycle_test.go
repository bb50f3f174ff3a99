package lifecycle

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Roquverse/flow-invoice-nexus/internal/apperr"
	"github.com/Roquverse/flow-invoice-nexus/internal/models"
)

func TestInvoiceTransitions(t *testing.T) {
	tests := []struct {
		from, to models.InvoiceStatus
		ok       bool
	}{
		{models.InvoiceStatusDraft, models.InvoiceStatusSent, true},
		{models.InvoiceStatusDraft, models.InvoiceStatusPaid, false},
		{models.InvoiceStatusDraft, models.InvoiceStatusViewed, false},
		{models.InvoiceStatusSent, models.InvoiceStatusPaid, true},
		{models.InvoiceStatusSent, models.InvoiceStatusViewed, true},
		{models.InvoiceStatusViewed, models.InvoiceStatusOverdue, true},
		{models.InvoiceStatusOverdue, models.InvoiceStatusPaid, true},
		{models.InvoiceStatusOverdue, models.InvoiceStatusCancelled, true},
		{models.InvoiceStatusOverdue, models.InvoiceStatusSent, false},
		{models.InvoiceStatusPaid, models.InvoiceStatusSent, false},
		{models.InvoiceStatusCancelled, models.InvoiceStatusPaid, false},
		{models.InvoiceStatusCancelled, models.InvoiceStatusDraft, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			err := Invoices.Transition(tt.from, tt.to)
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, apperr.ErrInvalidTransition))
		})
	}
}

func TestTerminalStates(t *testing.T) {
	assert.True(t, Invoices.IsTerminal(models.InvoiceStatusPaid))
	assert.True(t, Invoices.IsTerminal(models.InvoiceStatusCancelled))
	assert.False(t, Invoices.IsTerminal(models.InvoiceStatusOverdue))

	for _, s := range []models.QuoteStatus{models.QuoteStatusAccepted, models.QuoteStatusRejected, models.QuoteStatusExpired} {
		assert.True(t, Quotes.IsTerminal(s), s)
	}
	assert.False(t, Quotes.IsTerminal(models.QuoteStatusViewed))
}

func TestQuoteTransitions(t *testing.T) {
	assert.NoError(t, Quotes.Transition(models.QuoteStatusDraft, models.QuoteStatusSent))
	assert.NoError(t, Quotes.Transition(models.QuoteStatusViewed, models.QuoteStatusAccepted))
	assert.NoError(t, Quotes.Transition(models.QuoteStatusSent, models.QuoteStatusExpired))
	assert.Error(t, Quotes.Transition(models.QuoteStatusDraft, models.QuoteStatusAccepted))
	assert.Error(t, Quotes.Transition(models.QuoteStatusAccepted, models.QuoteStatusRejected))
}

func TestSources(t *testing.T) {
	assert.ElementsMatch(t,
		[]models.InvoiceStatus{models.InvoiceStatusSent, models.InvoiceStatusViewed},
		Invoices.Sources(models.InvoiceStatusOverdue))
}

func TestCheckOverdue(t *testing.T) {
	today := models.NewDate(2026, 3, 10)

	assert.NoError(t, CheckOverdue(models.InvoiceStatusSent, today.AddDays(-1), today))

	err := CheckOverdue(models.InvoiceStatusSent, today, today)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrInvalidTransition))

	assert.Error(t, CheckOverdue(models.InvoiceStatusDraft, today.AddDays(-30), today))
}

func TestCheckExpired(t *testing.T) {
	today := models.NewDate(2026, 3, 10)
	assert.NoError(t, CheckExpired(models.QuoteStatusViewed, today.AddDays(-1), today))
	assert.Error(t, CheckExpired(models.QuoteStatusViewed, today.AddDays(1), today))
	assert.Error(t, CheckExpired(models.QuoteStatusDraft, today.AddDays(-1), today))
}
