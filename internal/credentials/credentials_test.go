package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Roquverse/flow-invoice-nexus/internal/apperr"
	"github.com/Roquverse/flow-invoice-nexus/internal/dbtest"
	"github.com/Roquverse/flow-invoice-nexus/internal/models"
)

func newVerifier(t *testing.T) *Verifier {
	v := NewVerifier(dbtest.New(t), zap.NewNop())
	v.now = func() time.Time { return time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC) }
	return v
}

func TestHashPassword(t *testing.T) {
	// password and salt are concatenated: sha256("abc")
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", HashPassword("ab", "c"))
	assert.NotEqual(t, HashPassword("secret", "a"), HashPassword("secret", "b"))
}

func TestNewSalt(t *testing.T) {
	a, err := NewSalt()
	require.NoError(t, err)
	b, err := NewSalt()
	require.NoError(t, err)
	assert.Len(t, a, 32)
	assert.NotEqual(t, a, b)
}

func TestVerifySuccess(t *testing.T) {
	ctx := context.Background()
	v := newVerifier(t)
	_, err := v.CreateAdmin(ctx, "root", "correct horse", models.AdminRoleSuperAdmin)
	require.NoError(t, err)

	admin, err := v.Verify(ctx, "root", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, "root", admin.Username)
	require.NotNil(t, admin.LastLogin)
	assert.True(t, admin.LastLogin.Equal(time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)))

	var stored models.AdminUser
	require.NoError(t, v.db.Where("username = ?", "root").First(&stored).Error)
	require.NotNil(t, stored.LastLogin)

	out, err := json.Marshal(admin)
	require.NoError(t, err)
	assert.NotContains(t, string(out), admin.Salt)
	assert.NotContains(t, string(out), admin.PasswordHash)
}

func TestVerifyFailuresAreIndistinguishable(t *testing.T) {
	ctx := context.Background()
	v := newVerifier(t)
	_, err := v.CreateAdmin(ctx, "root", "correct horse", models.AdminRoleAdmin)
	require.NoError(t, err)
	disabled, err := v.CreateAdmin(ctx, "gone", "correct horse", models.AdminRoleAdmin)
	require.NoError(t, err)
	require.NoError(t, v.db.Model(disabled).Update("is_active", false).Error)

	_, wrongPassword := v.Verify(ctx, "root", "battery staple")
	_, unknownUser := v.Verify(ctx, "nobody", "correct horse")
	_, inactiveUser := v.Verify(ctx, "gone", "correct horse")

	for _, err := range []error{wrongPassword, unknownUser, inactiveUser} {
		require.Error(t, err)
		assert.Same(t, apperr.ErrAuthFailure, err)
		assert.True(t, errors.Is(err, apperr.ErrAuthFailure))
	}
	assert.Equal(t, wrongPassword.Error(), unknownUser.Error())

	var stored models.AdminUser
	require.NoError(t, v.db.Where("username = ?", "root").First(&stored).Error)
	assert.Nil(t, stored.LastLogin, "failed logins must not touch last_login")
}

func TestVerifyUnreadableAccountIsRejected(t *testing.T) {
	ctx := context.Background()
	v := newVerifier(t)
	require.NoError(t, v.db.Exec(
		"INSERT INTO admin_users (username, password_hash, salt, role, is_active, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		"legacy", HashPassword("correct horse", dummySalt), dummySalt, "intern", true, time.Now(), time.Now(),
	).Error)

	_, err := v.Verify(ctx, "legacy", "correct horse")
	assert.Same(t, apperr.ErrAuthFailure, err)
	_, unknown := v.Verify(ctx, "nobody", "correct horse")
	assert.Equal(t, unknown.Error(), err.Error())
}

func TestCreateAdminValidation(t *testing.T) {
	ctx := context.Background()
	v := newVerifier(t)

	_, err := v.CreateAdmin(ctx, "", "long enough", models.AdminRoleAdmin)
	assert.True(t, errors.Is(err, apperr.ErrValidation))
	_, err = v.CreateAdmin(ctx, "root", "short", models.AdminRoleAdmin)
	assert.True(t, errors.Is(err, apperr.ErrValidation))
	_, err = v.CreateAdmin(ctx, "root", "long enough", models.AdminRole("owner"))
	assert.True(t, errors.Is(err, apperr.ErrValidation))

	_, err = v.CreateAdmin(ctx, "root", "long enough", models.AdminRoleAdmin)
	require.NoError(t, err)
	_, err = v.CreateAdmin(ctx, "root", "long enough", models.AdminRoleAdmin)
	assert.True(t, errors.Is(err, apperr.ErrConflict))
}
