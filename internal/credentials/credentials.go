// Package credentials verifies administrator logins.
//
// Passwords are stored as hex(sha256(password || salt)). Every rejection,
// whether the username is unknown, the account inactive or the password wrong,
// returns apperr.ErrAuthFailure after the same amount of hashing work.
package credentials

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Roquverse/flow-invoice-nexus/internal/apperr"
	"github.com/Roquverse/flow-invoice-nexus/internal/models"
	"github.com/Roquverse/flow-invoice-nexus/internal/store"
)

const saltBytes = 16

// dummy credentials hashed when no usable account exists, so that unknown
// and known usernames cost the same.
var (
	dummySalt = strings.Repeat("0", saltBytes*2)
	dummyHash = HashPassword("not-a-password", dummySalt)
)

// HashPassword returns hex(sha256(password || salt)).
func HashPassword(password, salt string) string {
	sum := sha256.Sum256([]byte(password + salt))
	return hex.EncodeToString(sum[:])
}

// NewSalt returns a random hex-encoded salt.
func NewSalt() (string, error) {
	b := make([]byte, saltBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

type Verifier struct {
	db  *gorm.DB
	log *zap.Logger
	now func() time.Time
}

func NewVerifier(db *gorm.DB, log *zap.Logger) *Verifier {
	return &Verifier{db: db, log: log.Named("credentials"), now: time.Now}
}

// Verify checks username and password. On success it records the login time
// and returns the account; the hash and salt are never serialized.
func (v *Verifier) Verify(ctx context.Context, username, password string) (*models.AdminUser, error) {
	var admin models.AdminUser
	err := v.db.WithContext(ctx).Where("username = ?", strings.TrimSpace(username)).First(&admin).Error
	found := err == nil
	switch {
	case err == nil, errors.Is(err, gorm.ErrRecordNotFound):
	case errors.Is(err, apperr.ErrValidation):
		// the row holds a value the model no longer accepts, such as a retired role
		v.log.Warn("admin account unreadable", zap.String("username", username), zap.Error(err))
	default:
		return nil, store.Translate(err, "admin_user")
	}

	salt, want := dummySalt, dummyHash
	if found {
		salt, want = admin.Salt, admin.PasswordHash
	}
	match := subtle.ConstantTimeCompare([]byte(HashPassword(password, salt)), []byte(want)) == 1

	if !found || !admin.IsActive || !match {
		v.log.Info("admin login rejected", zap.String("username", username))
		return nil, apperr.ErrAuthFailure
	}

	now := v.now().UTC()
	if err := v.db.WithContext(ctx).Model(&models.AdminUser{}).
		Where("id = ?", admin.ID).
		Update("last_login", now).Error; err != nil {
		return nil, store.Translate(err, "admin_user")
	}
	admin.LastLogin = &now
	return &admin, nil
}

// CreateAdmin registers an administrator with a fresh salt.
func (v *Verifier) CreateAdmin(ctx context.Context, username, password string, role models.AdminRole) (*models.AdminUser, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, apperr.Field("username", "required")
	}
	if len(password) < 8 {
		return nil, apperr.Field("password", "too_short")
	}
	if _, err := models.ParseAdminRole(string(role)); err != nil {
		return nil, err
	}
	salt, err := NewSalt()
	if err != nil {
		return nil, err
	}
	admin := &models.AdminUser{
		Username:     username,
		PasswordHash: HashPassword(password, salt),
		Salt:         salt,
		Role:         role,
		IsActive:     true,
	}
	if err := v.db.WithContext(ctx).Create(admin).Error; err != nil {
		return nil, store.Translate(err, "admin_user")
	}
	return admin, nil
}
