package session

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/clikanban/kanban/types"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var boss = types.Session{UserID: "u-1", Username: "oyakata", Role: types.RoleBoss}

func TestIssueVerifyRoundTrip(t *testing.T) {
	issuer, err := NewIssuer("secret", time.Hour, nil)
	require.NoError(t, err)

	token, err := issuer.Issue(boss)
	require.NoError(t, err)

	claims, err := issuer.Verify(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, boss, claims.Session())
	assert.NotEmpty(t, claims.ID)
}

func TestVerifyRejectsForeignAndExpiredTokens(t *testing.T) {
	issuer, err := NewIssuer("secret", time.Hour, nil)
	require.NoError(t, err)
	other, err := NewIssuer("other", time.Hour, nil)
	require.NoError(t, err)

	token, err := other.Issue(boss)
	require.NoError(t, err)
	_, err = issuer.Verify(context.Background(), token)
	assert.Error(t, err)

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        "x",
			Subject:   "u-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	})
	signed, err := expired.SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = issuer.Verify(context.Background(), signed)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestNewIssuerRequiresSecret(t *testing.T) {
	_, err := NewIssuer("  ", time.Hour, nil)
	assert.Error(t, err)
}

func TestRevokeWithMemory(t *testing.T) {
	testRevoke(t, NewMemoryRevoker())
}

func TestRevokeWithRedis(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	revoker := NewRedisRevoker(client)
	testRevoke(t, revoker)

	require.NoError(t, revoker.Revoke(context.Background(), "short", time.Second))
	mr.FastForward(2 * time.Second)
	revoked, err := revoker.IsRevoked(context.Background(), "short")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func testRevoke(t *testing.T, revoker Revoker) {
	t.Helper()
	ctx := context.Background()
	issuer, err := NewIssuer("secret", time.Hour, revoker)
	require.NoError(t, err)

	token, err := issuer.Issue(boss)
	require.NoError(t, err)
	claims, err := issuer.Verify(ctx, token)
	require.NoError(t, err)

	require.NoError(t, issuer.Revoke(ctx, claims))
	_, err = issuer.Verify(ctx, token)
	assert.ErrorIs(t, err, ErrRevoked)

	fresh, err := issuer.Issue(boss)
	require.NoError(t, err)
	_, err = issuer.Verify(ctx, fresh)
	assert.NoError(t, err)
}
