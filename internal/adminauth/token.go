// Package adminauth issues and checks the signed tokens that back-office accounts use.
package adminauth

import (
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/Roquverse/flow-invoice-nexus/internal/apperr"
	"github.com/Roquverse/flow-invoice-nexus/internal/config"
	"github.com/Roquverse/flow-invoice-nexus/internal/models"
)

var (
	ErrInvalidToken = &apperr.Error{Kind: apperr.KindAuthFailure, Code: "invalid_token", Message: "invalid or expired token"}
	ErrRevoked      = &apperr.Error{Kind: apperr.KindAuthFailure, Code: "token_revoked", Message: "token has been revoked"}
)

// Claims carried by an admin token. Subject is the admin id.
type Claims struct {
	jwt.RegisteredClaims
	Username string           `json:"username"`
	Role     models.AdminRole `json:"role"`
}

// AdminID returns the numeric admin id from the subject.
func (c *Claims) AdminID() uint {
	id, err := strconv.ParseUint(c.Subject, 10, 64)
	if err != nil {
		return 0
	}
	return uint(id)
}

// TokenService signs and validates HS256 admin tokens.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

func NewTokenService(cfg config.AuthConfig) *TokenService {
	return &TokenService{
		secret: []byte(cfg.AdminTokenSecret),
		ttl:    cfg.AdminTokenTTL,
		issuer: cfg.AdminTokenIssuer,
		now:    time.Now,
	}
}

// Issue returns a signed token for admin and the claims it carries.
func (s *TokenService) Issue(admin *models.AdminUser) (string, *Claims, error) {
	now := s.now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.issuer,
			Subject:   strconv.FormatUint(uint64(admin.ID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
		Username: admin.Username,
		Role:     admin.Role,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", nil, apperr.Internal(err)
	}
	return signed, claims, nil
}

// Parse validates signature, issuer and expiry. Any failure is ErrInvalidToken.
func (s *TokenService) Parse(token string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, ErrInvalidToken
	}
	if claims.ID == "" || claims.AdminID() == 0 {
		return nil, ErrInvalidToken
	}
	if _, err := models.ParseAdminRole(string(claims.Role)); err != nil {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// expiry returns when the token stops being valid.
func expiry(c *Claims) time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}
