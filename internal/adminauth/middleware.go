package adminauth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/Roquverse/flow-invoice-nexus/gate"
	"github.com/Roquverse/flow-invoice-nexus/httpx"
	"github.com/Roquverse/flow-invoice-nexus/internal/models"
)

const CookieName = "admin_token"

var errNoToken = errors.New("no admin token")

type ctxKey string

const claimsCtxKey = ctxKey("adminClaims")

func WithClaims(ctx context.Context, c *Claims) context.Context {
	return context.WithValue(ctx, claimsCtxKey, c)
}

// ClaimsFromContext returns the claims of the authenticated admin, if any.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(claimsCtxKey).(*Claims)
	return c, ok && c != nil
}

// TokenFromRequest reads the token from the admin cookie or a Bearer header.
func TokenFromRequest(r *http.Request) (string, error) {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, tok, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") && strings.TrimSpace(tok) != "" {
			return strings.TrimSpace(tok), nil
		}
		return "", errNoToken
	}
	if c, err := r.Cookie(CookieName); err == nil && c.Value != "" {
		return c.Value, nil
	}
	return "", errNoToken
}

// SetCookie stores token in an HttpOnly cookie that expires with it.
func SetCookie(w http.ResponseWriter, token string, expires time.Time, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/admin",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
		Expires:  expires,
	})
}

func ClearCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/admin",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// Require authenticates the admin token on every request and, when resource
// is not empty, checks the admin role against g.
func (s *Service) Require(g *gate.Gate[models.AdminRole], resource string, action gate.Action) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tok, err := TokenFromRequest(r)
			if err != nil {
				httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
				return
			}
			claims, err := s.Authenticate(r.Context(), tok)
			if err != nil {
				httpx.Error(w, r, s.log, err)
				return
			}
			if resource != "" && !g.Can(r.Context(), claims.Role, resource, action) {
				httpx.JSONError(w, http.StatusForbidden, "forbidden", nil)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}
