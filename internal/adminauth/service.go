package adminauth

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/Roquverse/flow-invoice-nexus/internal/apperr"
	"github.com/Roquverse/flow-invoice-nexus/internal/models"
)

// CredentialChecker verifies an admin username and password.
type CredentialChecker interface {
	Verify(ctx context.Context, username, password string) (*models.AdminUser, error)
}

// Service ties credential checks, token issuance and revocation together.
type Service struct {
	creds   CredentialChecker
	tokens  *TokenService
	revoker Revoker
	log     *zap.Logger
}

func NewService(creds CredentialChecker, tokens *TokenService, revoker Revoker, log *zap.Logger) *Service {
	if revoker == nil {
		revoker = NewMemoryRevoker()
	}
	return &Service{creds: creds, tokens: tokens, revoker: revoker, log: log}
}

// Login verifies credentials and returns a fresh token.
func (s *Service) Login(ctx context.Context, username, password string) (string, *Claims, error) {
	admin, err := s.creds.Verify(ctx, username, password)
	if err != nil {
		return "", nil, err
	}
	token, claims, err := s.tokens.Issue(admin)
	if err != nil {
		return "", nil, err
	}
	s.log.Info("admin login", zap.Uint("admin_id", admin.ID), zap.String("role", string(admin.Role)), zap.String("jti", claims.ID))
	return token, claims, nil
}

// Authenticate parses token and rejects revoked ones.
func (s *Service) Authenticate(ctx context.Context, token string) (*Claims, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil, err
	}
	revoked, err := s.revoker.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, ErrRevoked
	}
	return claims, nil
}

// Logout revokes the token until its natural expiry.
func (s *Service) Logout(ctx context.Context, claims *Claims) error {
	if claims == nil {
		return apperr.Internal(errors.New("logout without claims"))
	}
	if err := s.revoker.Revoke(ctx, claims.ID, expiry(claims)); err != nil {
		return err
	}
	s.log.Info("admin logout", zap.Uint("admin_id", claims.AdminID()), zap.String("jti", claims.ID))
	return nil
}
