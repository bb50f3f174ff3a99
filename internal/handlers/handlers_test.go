package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Roquverse/flow-invoice-nexus/auth"
	"github.com/Roquverse/flow-invoice-nexus/internal/apperr"
	"github.com/Roquverse/flow-invoice-nexus/internal/models"
)

func TestListOptions(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/invoices?limit=5&offset=10&client_id=3&status=paid", nil)
	opts, err := listOptions(r, stringStatus(models.ParseInvoiceStatus))
	require.NoError(t, err)
	assert.Equal(t, 5, opts.Limit)
	assert.Equal(t, 10, opts.Offset)
	assert.Equal(t, map[string]any{"client_id": uint(3), "status": "paid"}, opts.Filters)

	r = httptest.NewRequest(http.MethodGet, "/invoices?limit=20&page=3&offset=1", nil)
	opts, err = listOptions(r, nil)
	require.NoError(t, err)
	assert.Equal(t, 40, opts.Offset)

	r = httptest.NewRequest(http.MethodGet, "/receipts?status=paid", nil)
	opts, err = listOptions(r, nil)
	require.NoError(t, err)
	assert.Empty(t, opts.Filters)
}

func TestListOptions_Rejects(t *testing.T) {
	for _, q := range []string{"limit=x", "offset=-2", "client_id=0", "status=cooking"} {
		r := httptest.NewRequest(http.MethodGet, "/invoices?"+q, nil)
		_, err := listOptions(r, stringStatus(models.ParseInvoiceStatus))
		assert.ErrorIs(t, err, apperr.ErrValidation, q)
	}
}

func TestPathID(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/clients/7", nil)
	r.SetPathValue("id", "7")
	id, err := pathID(r)
	require.NoError(t, err)
	assert.Equal(t, uint(7), id)

	r.SetPathValue("id", "0")
	_, err = pathID(r)
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestOwner(t *testing.T) {
	w := httptest.NewRecorder()
	_, ok := owner(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.False(t, ok)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r = r.WithContext(auth.WithUserID(r.Context(), 9))
	uid, ok := owner(httptest.NewRecorder(), r)
	assert.True(t, ok)
	assert.Equal(t, uint(9), uid)
}
