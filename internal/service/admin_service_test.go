package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "vntrbirds-be/pkg/errors"
	"vntrbirds-be/pkg/logger"
	"vntrbirds-be/pkg/redis"
)

func setupAdmin(t *testing.T, passphrase string) (AdminService, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client, err := redis.NewClient("redis://"+mr.Addr(), "test", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	return NewAdminService(passphrase, "test-secret", 12*time.Hour, client, logger.NewNop()), mr
}

func TestAdminService_Login(t *testing.T) {
	svc, _ := setupAdmin(t, "birdsofafeather")
	ctx := context.Background()

	token, err := svc.Login(ctx, "birdsofafeather")
	require.NoError(t, err)
	assert.NotEmpty(t, token.Token)
	assert.WithinDuration(t, time.Now().Add(12*time.Hour), token.ExpiresAt, time.Minute)

	claims, err := svc.ValidateToken(ctx, token.Token)
	require.NoError(t, err)
	assert.True(t, claims.Admin)
	assert.NotEmpty(t, claims.ID)

	for _, wrong := range []string{"", "birdsofafeathe", "BIRDSOFAFEATHER", "birdsofafeather "} {
		_, err := svc.Login(ctx, wrong)
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeAuthentication), "passphrase %q", wrong)
	}
}

func TestAdminService_EmptyPassphraseNeverMatches(t *testing.T) {
	svc := NewAdminService("", "secret", time.Hour, nil, logger.NewNop())

	_, err := svc.Login(context.Background(), "")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeAuthentication))
}

func TestAdminService_RejectsForeignTokens(t *testing.T) {
	svc, _ := setupAdmin(t, "pass")
	ctx := context.Background()

	other := NewAdminService("pass", "another-secret", time.Hour, nil, logger.NewNop())
	foreign, err := other.Login(ctx, "pass")
	require.NoError(t, err)

	notAdmin, err := jwt.NewWithClaims(jwt.SigningMethodHS256, AdminClaims{
		Admin: false,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, AdminClaims{Admin: true}).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, AdminClaims{
		Admin: true,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	for name, token := range map[string]string{
		"empty":          "",
		"garbage":        "not.a.jwt",
		"other secret":   foreign.Token,
		"no admin claim": notAdmin,
		"no expiry":      noExpiry,
		"alg none":       unsigned,
	} {
		_, err := svc.ValidateToken(ctx, token)
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeAuthentication), name)
	}
}

func TestAdminService_Expiry(t *testing.T) {
	svc, _ := setupAdmin(t, "pass")
	ctx := context.Background()

	token, err := svc.Login(ctx, "pass")
	require.NoError(t, err)

	svc.(*adminService).now = func() time.Time { return time.Now().Add(13 * time.Hour) }
	_, err = svc.ValidateToken(ctx, token.Token)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeAuthentication))
}

func TestAdminService_Logout(t *testing.T) {
	svc, mr := setupAdmin(t, "pass")
	ctx := context.Background()

	token, err := svc.Login(ctx, "pass")
	require.NoError(t, err)

	claims, err := svc.ValidateToken(ctx, token.Token)
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, token.Token))

	_, err = svc.ValidateToken(ctx, token.Token)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeAuthentication))

	key := "prod:admin:revoked:" + claims.ID
	require.True(t, mr.Exists(key), "revocation key %s", key)
	assert.InDelta(t, (12 * time.Hour).Seconds(), mr.TTL(key).Seconds(), 60)

	assert.NoError(t, svc.Logout(ctx, "garbage"), "logout with an invalid token is a no-op")
}

func TestAdminService_RedisDownDoesNotLockOut(t *testing.T) {
	svc, mr := setupAdmin(t, "pass")
	ctx := context.Background()

	token, err := svc.Login(ctx, "pass")
	require.NoError(t, err)

	mr.SetError("LOADING")
	_, err = svc.ValidateToken(ctx, token.Token)
	assert.NoError(t, err)
}
