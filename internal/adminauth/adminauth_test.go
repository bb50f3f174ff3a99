package adminauth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Roquverse/flow-invoice-nexus/gate"
	"github.com/Roquverse/flow-invoice-nexus/internal/apperr"
	"github.com/Roquverse/flow-invoice-nexus/internal/config"
	"github.com/Roquverse/flow-invoice-nexus/internal/models"
)

func testTokens() *TokenService {
	return NewTokenService(config.AuthConfig{
		AdminTokenSecret: "admin-secret",
		AdminTokenTTL:    time.Hour,
		AdminTokenIssuer: "flow-invoice-nexus",
	})
}

var support = &models.AdminUser{ID: 3, Username: "helpdesk", Role: models.AdminRoleSupport}

func TestToken_IssueParse(t *testing.T) {
	s := testTokens()
	tok, claims, err := s.Issue(support)
	require.NoError(t, err)
	assert.NotEmpty(t, claims.ID)

	got, err := s.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, claims.ID, got.ID)
	assert.Equal(t, uint(3), got.AdminID())
	assert.Equal(t, "helpdesk", got.Username)
	assert.Equal(t, models.AdminRoleSupport, got.Role)
}

func TestToken_IssueUniqueIDs(t *testing.T) {
	s := testTokens()
	_, a, err := s.Issue(support)
	require.NoError(t, err)
	_, b, err := s.Issue(support)
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestToken_Rejections(t *testing.T) {
	s := testTokens()
	tok, _, err := s.Issue(support)
	require.NoError(t, err)

	other := testTokens()
	other.secret = []byte("different")
	_, err = other.Parse(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)

	other = testTokens()
	other.issuer = "someone-else"
	_, err = other.Parse(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = s.Parse(tok + "x")
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = s.Parse("")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestToken_Expired(t *testing.T) {
	s := testTokens()
	s.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	tok, _, err := s.Issue(support)
	require.NoError(t, err)

	s.now = time.Now
	_, err = s.Parse(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.Equal(t, apperr.KindAuthFailure, apperr.KindOf(err))
}

func TestToken_RejectsUnknownRole(t *testing.T) {
	s := testTokens()
	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID: "x", Subject: "1", Issuer: s.issuer,
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
		Role: "root",
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	require.NoError(t, err)
	_, err = s.Parse(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestMemoryRevoker(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryRevoker()
	require.NoError(t, m.Revoke(ctx, "a", time.Now().Add(time.Hour)))
	require.NoError(t, m.Revoke(ctx, "old", time.Now().Add(-time.Second)))

	ok, err := m.IsRevoked(ctx, "a")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, _ = m.IsRevoked(ctx, "old")
	assert.False(t, ok)
	ok, _ = m.IsRevoked(ctx, "b")
	assert.False(t, ok)

	m.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	ok, _ = m.IsRevoked(ctx, "a")
	assert.False(t, ok)
}

func TestRedisRevoker_UnreachableIsTransient(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 100 * time.Millisecond, MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	r := NewRedisRevoker(client, "")
	assert.Equal(t, DefaultKeyPrefix+"abc", r.key("abc"))

	_, err := r.IsRevoked(context.Background(), "abc")
	assert.True(t, apperr.IsRetryable(err))
	err = r.Revoke(context.Background(), "abc", time.Now().Add(time.Minute))
	assert.True(t, apperr.IsRetryable(err))
	assert.NoError(t, r.Revoke(context.Background(), "abc", time.Now().Add(-time.Minute)))
}

type fakeCreds struct{ admin *models.AdminUser }

func (f fakeCreds) Verify(_ context.Context, username, password string) (*models.AdminUser, error) {
	if f.admin != nil && username == f.admin.Username && password == "correct horse" {
		return f.admin, nil
	}
	return nil, apperr.ErrAuthFailure
}

func newService(admin *models.AdminUser) *Service {
	return NewService(fakeCreds{admin: admin}, testTokens(), nil, zap.NewNop())
}

func TestService_LoginLogout(t *testing.T) {
	ctx := context.Background()
	s := newService(support)

	_, _, err := s.Login(ctx, "helpdesk", "wrong")
	assert.ErrorIs(t, err, apperr.ErrAuthFailure)

	tok, claims, err := s.Login(ctx, "helpdesk", "correct horse")
	require.NoError(t, err)

	got, err := s.Authenticate(ctx, tok)
	require.NoError(t, err)
	assert.Equal(t, claims.ID, got.ID)

	require.NoError(t, s.Logout(ctx, got))
	_, err = s.Authenticate(ctx, tok)
	assert.ErrorIs(t, err, ErrRevoked)
}

func TestTokenFromRequest(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/admin/me", nil)
	_, err := TokenFromRequest(req)
	assert.Error(t, err)

	req.Header.Set("Authorization", "Bearer abc")
	tok, err := TokenFromRequest(req)
	require.NoError(t, err)
	assert.Equal(t, "abc", tok)

	req.Header.Set("Authorization", "Basic abc")
	_, err = TokenFromRequest(req)
	assert.Error(t, err)

	req = httptest.NewRequest(http.MethodGet, "/admin/me", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: "fromcookie"})
	tok, err = TokenFromRequest(req)
	require.NoError(t, err)
	assert.Equal(t, "fromcookie", tok)
}

func TestRequire(t *testing.T) {
	s := newService(support)
	tok, _, err := s.Login(context.Background(), "helpdesk", "correct horse")
	require.NoError(t, err)

	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, found := ClaimsFromContext(r.Context())
		require.True(t, found)
		assert.Equal(t, "helpdesk", c.Username)
		w.WriteHeader(http.StatusNoContent)
	})
	g := gate.ForRoles()

	do := func(h http.Handler, token string) int {
		req := httptest.NewRequest(http.MethodGet, "/admin/stats", nil)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusNoContent, do(s.Require(g, gate.ResourceStats, gate.ActionView)(ok), tok))
	assert.Equal(t, http.StatusForbidden, do(s.Require(g, gate.ResourceAdmin, gate.ActionCreate)(ok), tok))
	assert.Equal(t, http.StatusUnauthorized, do(s.Require(g, "", "")(ok), ""))
	assert.Equal(t, http.StatusUnauthorized, do(s.Require(g, "", "")(ok), "garbage"))
}
