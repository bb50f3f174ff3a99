package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Roquverse/flow-invoice-nexus/auth"
	"github.com/Roquverse/flow-invoice-nexus/internal/adminauth"
	"github.com/Roquverse/flow-invoice-nexus/internal/config"
	"github.com/Roquverse/flow-invoice-nexus/internal/credentials"
	"github.com/Roquverse/flow-invoice-nexus/internal/dbtest"
	"github.com/Roquverse/flow-invoice-nexus/internal/export"
	"github.com/Roquverse/flow-invoice-nexus/internal/models"
	"github.com/Roquverse/flow-invoice-nexus/internal/services"
)

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{DefaultCurrency: "EUR", ClientDeletePolicy: "orphan"},
		Auth: config.AuthConfig{
			SessionSecret:    "test-session-secret",
			SessionTTL:       time.Hour,
			AdminTokenSecret: "test-admin-secret",
			AdminTokenTTL:    time.Hour,
			AdminTokenIssuer: "test",
		},
		Numbering: config.NumberingConfig{
			InvoicePrefix: "INV", QuotePrefix: "QUO", ReceiptPrefix: "REC",
			Padding: 4, MaxRetries: 5,
		},
	}
}

func newTestServer(t *testing.T) (*httptest.Server, *gorm.DB) {
	t.Helper()
	db := dbtest.New(t)
	cfg := testConfig()
	log := zap.NewNop()
	svc, err := services.New(db, cfg, log)
	require.NoError(t, err)
	h := New(Deps{
		DB:       db,
		Services: svc,
		Exports:  export.NewService(svc, nil, log),
		Sessions: auth.NewSessions(cfg.Auth, UserExists(db)),
		Admin:    adminauth.NewService(credentials.NewVerifier(db, log), adminauth.NewTokenService(cfg.Auth), nil, log),
		Log:      log,
	})
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv, db
}

type client struct {
	t    *testing.T
	base string
	http *http.Client
}

func newClient(t *testing.T, srv *httptest.Server) *client {
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &client{t: t, base: srv.URL, http: &http.Client{Jar: jar}}
}

func (c *client) do(method, path string, body any, out any) *http.Response {
	c.t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(c.t, err)
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, c.base+path, r)
	require.NoError(c.t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(c.t, err)
	if out != nil && len(raw) > 0 {
		require.NoError(c.t, json.Unmarshal(raw, out), string(raw))
	}
	return resp
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)
	c := newClient(t, srv)

	resp := c.do(http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(RequestIDHeader))

	var body map[string]string
	resp = c.do(http.MethodGet, "/healthz", nil, &body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
}

func TestRequestIDIsEchoed(t *testing.T) {
	srv, _ := newTestServer(t)
	req, err := http.NewRequest(http.MethodGet, srv.URL+"/health", nil)
	require.NoError(t, err)
	req.Header.Set(RequestIDHeader, "req-42")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "req-42", resp.Header.Get(RequestIDHeader))
}

func TestAPIRequiresSession(t *testing.T) {
	srv, _ := newTestServer(t)
	c := newClient(t, srv)
	var body map[string]any
	resp := c.do(http.MethodGet, "/clients", nil, &body)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "unauthorized", body["error"])
}

func signup(t *testing.T, c *client, email string) models.User {
	t.Helper()
	var u models.User
	resp := c.do(http.MethodPost, "/signup", map[string]string{"email": email, "password": "s3cret-pass"}, &u)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return u
}

func TestSignupLoginLogout(t *testing.T) {
	srv, _ := newTestServer(t)
	c := newClient(t, srv)

	u := signup(t, c, " Alice@Example.com ")
	assert.Equal(t, "alice@example.com", u.Email)

	var me models.User
	resp := c.do(http.MethodGet, "/me", nil, &me)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, u.ID, me.ID)

	resp = c.do(http.MethodPost, "/signup", map[string]string{"email": "alice@example.com", "password": "another-pass"}, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = c.do(http.MethodPost, "/logout", nil, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = c.do(http.MethodGet, "/me", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = c.do(http.MethodPost, "/login", map[string]string{"email": "alice@example.com", "password": "wrong"}, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp = c.do(http.MethodPost, "/login", map[string]string{"email": "ALICE@example.com", "password": "s3cret-pass"}, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp = c.do(http.MethodGet, "/me", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestSignupValidation(t *testing.T) {
	srv, _ := newTestServer(t)
	c := newClient(t, srv)
	var body struct {
		Error   string            `json:"error"`
		Details map[string]string `json:"details"`
	}
	resp := c.do(http.MethodPost, "/signup", map[string]string{"email": "nope", "password": "short"}, &body)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid_email", body.Details["email"])
	assert.Equal(t, "too_short", body.Details["password"])

	resp = c.do(http.MethodPost, "/signup", map[string]string{"email": "a@b.co", "password": "long-enough", "admin": "yes"}, &body)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "malformed", body.Details["body"])
}

func TestInvoiceFlow(t *testing.T) {
	srv, _ := newTestServer(t)
	c := newClient(t, srv)
	signup(t, c, "alice@example.com")

	var cl models.Client
	resp := c.do(http.MethodPost, "/clients", map[string]any{"business_name": "Acme Inc"}, &cl)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var inv models.Invoice
	resp = c.do(http.MethodPost, "/invoices", map[string]any{
		"client_id": cl.ID,
		"tax_rate":  "0.1",
		"items":     []map[string]any{{"description": "Consulting", "quantity": "2", "unit_price": "100"}},
	}, &inv)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "INV-0001", inv.InvoiceNumber)
	assert.True(t, inv.TotalAmount.Equal(decimal.NewFromInt(220)), inv.TotalAmount.String())
	assert.Equal(t, models.InvoiceStatusDraft, inv.Status)

	var next map[string]string
	resp = c.do(http.MethodGet, "/numbers/next?type=invoice", nil, &next)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "INV-0002", next["number"])
	resp = c.do(http.MethodGet, "/numbers/next?type=memo", nil, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = c.do(http.MethodPost, "/invoices/"+itoa(inv.ID)+"/pay", nil, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode, "draft cannot be paid")

	resp = c.do(http.MethodPost, "/invoices/"+itoa(inv.ID)+"/send", nil, &inv)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, models.InvoiceStatusSent, inv.Status)

	resp = c.do(http.MethodPut, "/invoices/"+itoa(inv.ID), map[string]any{
		"client_id": cl.ID,
		"items":     []map[string]any{{"description": "More", "quantity": "1", "unit_price": "1"}},
	}, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode, "only drafts are editable")

	var page struct {
		Data  []models.Invoice `json:"data"`
		Total int64            `json:"total"`
		Limit int              `json:"limit"`
	}
	resp = c.do(http.MethodGet, "/invoices?status=sent&limit=10", nil, &page)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int64(1), page.Total)
	assert.Equal(t, 10, page.Limit)
	resp = c.do(http.MethodGet, "/invoices?status=bogus", nil, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp = c.do(http.MethodGet, "/invoices?limit=-1", nil, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/invoices/"+itoa(inv.ID)+"/pdf", nil)
	require.NoError(t, err)
	pdf, err := c.http.Do(req)
	require.NoError(t, err)
	body, err := io.ReadAll(pdf.Body)
	pdf.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, pdf.StatusCode)
	assert.Equal(t, "application/pdf", pdf.Header.Get("Content-Type"))
	assert.Contains(t, pdf.Header.Get("Content-Disposition"), "acme-inc-invoice-INV-0001.pdf")
	assert.True(t, bytes.HasPrefix(body, []byte("%PDF")))

	var receipt models.Receipt
	resp = c.do(http.MethodPost, "/receipts", map[string]any{
		"client_id":      cl.ID,
		"invoice_id":     inv.ID,
		"amount":         "220",
		"payment_method": "bank_transfer",
	}, &receipt)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "REC-0001", receipt.ReceiptNumber)

	resp = c.do(http.MethodGet, "/invoices/"+itoa(inv.ID), nil, &inv)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, models.InvoiceStatusPaid, inv.Status)

	var dash services.Dashboard
	resp = c.do(http.MethodGet, "/dashboard", nil, &dash)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, dash.PaidRevenue.Equal(decimal.NewFromInt(220)))
	assert.Equal(t, int64(1), dash.Receipts)
}

func TestOwnershipIsolation(t *testing.T) {
	srv, _ := newTestServer(t)
	alice := newClient(t, srv)
	bob := newClient(t, srv)
	signup(t, alice, "alice@example.com")
	signup(t, bob, "bob@example.com")

	var cl models.Client
	resp := alice.do(http.MethodPost, "/clients", map[string]any{"business_name": "Acme Inc"}, &cl)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = bob.do(http.MethodGet, "/clients/"+itoa(cl.ID), nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp = bob.do(http.MethodDelete, "/clients/"+itoa(cl.ID), nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp = bob.do(http.MethodGet, "/clients/abc", nil, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var refs map[string]any
	resp = alice.do(http.MethodGet, "/clients/"+itoa(cl.ID)+"/references", nil, &refs)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "orphan", refs["delete_policy"])

	resp = alice.do(http.MethodDelete, "/clients/"+itoa(cl.ID), nil, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestQuoteConvert(t *testing.T) {
	srv, _ := newTestServer(t)
	c := newClient(t, srv)
	signup(t, c, "alice@example.com")

	var cl models.Client
	c.do(http.MethodPost, "/clients", map[string]any{"business_name": "Acme Inc"}, &cl)

	var q models.Quote
	resp := c.do(http.MethodPost, "/quotes", map[string]any{
		"client_id": cl.ID,
		"items":     []map[string]any{{"description": "Audit", "quantity": "1", "unit_price": "500"}},
	}, &q)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "QUO-0001", q.QuoteNumber)

	resp = c.do(http.MethodPost, "/quotes/"+itoa(q.ID)+"/convert", nil, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	for _, step := range []string{"send", "accept"} {
		resp = c.do(http.MethodPost, "/quotes/"+itoa(q.ID)+"/"+step, nil, &q)
		require.Equal(t, http.StatusOK, resp.StatusCode, step)
	}

	var inv models.Invoice
	resp = c.do(http.MethodPost, "/quotes/"+itoa(q.ID)+"/convert", nil, &inv)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.True(t, inv.TotalAmount.Equal(decimal.NewFromInt(500)))

	var swept map[string]int
	resp = c.do(http.MethodPost, "/quotes/refresh-expired", nil, &swept)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 0, swept["expired"])
}

func TestAdminRoutes(t *testing.T) {
	srv, db := newTestServer(t)
	_, err := credentials.NewVerifier(db, zap.NewNop()).CreateAdmin(context.Background(), "ops", "ops-password", models.AdminRoleSupport)
	require.NoError(t, err)

	user := newClient(t, srv)
	signup(t, user, "alice@example.com")

	c := newClient(t, srv)
	resp := c.do(http.MethodGet, "/admin/stats", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = c.do(http.MethodPost, "/admin/login", map[string]string{"username": "ops", "password": "nope"}, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	var session struct {
		Token string           `json:"token"`
		Role  models.AdminRole `json:"role"`
	}
	resp = c.do(http.MethodPost, "/admin/login", map[string]string{"username": "ops", "password": "ops-password"}, &session)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, session.Token)
	assert.Equal(t, models.AdminRoleSupport, session.Role)

	var stats services.PlatformStats
	resp = c.do(http.MethodGet, "/admin/stats", nil, &stats)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int64(1), stats.Users)

	var me map[string]any
	resp = c.do(http.MethodGet, "/admin/me", nil, &me)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ops", me["username"])

	resp = c.do(http.MethodPost, "/admin/logout", nil, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	// The cookie is gone; replay the revoked token as a bearer.
	req, err := http.NewRequest(http.MethodGet, srv.URL+"/admin/stats", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+session.Token)
	replay, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	replay.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, replay.StatusCode)
}

func TestRecover(t *testing.T) {
	h := withRecover(zap.NewNop(), http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") }))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "internal"))
}

func itoa(id uint) string {
	b, _ := json.Marshal(id)
	return string(b)
}
