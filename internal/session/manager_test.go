package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/backoffice-service/internal/cache"
	"github.com/spec-kit/backoffice-service/internal/config"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := cache.NewRedisStore(client, 0)
	return NewManager(store, zap.NewNop(), config.AuthConfig{
		JWTSecret:             "test-secret",
		SessionTTLMinutes:     30,
		SessionRefreshDivisor: 3,
	})
}

func TestCreateThenResolve(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	identity := Identity{
		UserID:   42,
		Username: "operator",
		RoleIDs:  []int64{7},
		RoleKeys: []string{"editor"},
	}
	token, err := m.Create(ctx, identity, []string{"doc:read", "doc:write"}, "10.0.0.1")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	sess, err := m.Resolve(ctx, token)
	require.NoError(t, err)
	require.Equal(t, identity, sess.Identity)
	require.Equal(t, []string{"doc:read", "doc:write"}, sess.Permissions)
	require.Equal(t, "10.0.0.1", sess.IPAddress)
}

func TestResolveMalformedToken(t *testing.T) {
	m := newTestManager(t)

	_, err := m.Resolve(context.Background(), "not-a-token")
	require.ErrorIs(t, err, ErrInvalid)
}

func TestRevokeThenResolve(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	token, err := m.Create(ctx, Identity{UserID: 1, Username: "operator"}, nil, "")
	require.NoError(t, err)

	require.NoError(t, m.Revoke(ctx, token))

	_, err = m.Resolve(ctx, token)
	require.ErrorIs(t, err, ErrExpired)

	// Revoking again is not an error.
	require.NoError(t, m.Revoke(ctx, token))
}

func TestResolveAfterLogicalExpiry(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	base := time.Now()
	m.now = func() time.Time { return base }

	token, err := m.Create(ctx, Identity{UserID: 1, Username: "operator"}, nil, "")
	require.NoError(t, err)

	m.now = func() time.Time { return base.Add(m.idleTTL + time.Second) }
	_, err = m.Resolve(ctx, token)
	require.ErrorIs(t, err, ErrExpired)
}

func TestSlidingRefreshExtendsExpiry(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	base := time.Now()
	m.now = func() time.Time { return base }

	token, err := m.Create(ctx, Identity{UserID: 1, Username: "operator"}, nil, "")
	require.NoError(t, err)

	// Halfway through the idle window the elapsed time exceeds TTL/3, so the
	// resolve refreshes the record in place.
	half := base.Add(m.idleTTL / 2)
	m.now = func() time.Time { return half }
	sess, err := m.Resolve(ctx, token)
	require.NoError(t, err)
	require.Equal(t, half.Add(m.idleTTL), sess.ExpiresAt)

	// Without the refresh this resolve would be past the original expiry.
	later := base.Add(m.idleTTL + time.Minute)
	m.now = func() time.Time { return later }
	_, err = m.Resolve(ctx, token)
	require.NoError(t, err)
}

func TestRefreshPermissionsKeepsToken(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	token, err := m.Create(ctx, Identity{UserID: 1, Username: "operator"}, []string{"doc:read"}, "")
	require.NoError(t, err)

	sess, err := m.Resolve(ctx, token)
	require.NoError(t, err)

	require.NoError(t, m.RefreshPermissions(ctx, sess, []string{"doc:read", "doc:write"}))

	again, err := m.Resolve(ctx, token)
	require.NoError(t, err)
	require.Equal(t, []string{"doc:read", "doc:write"}, again.Permissions)
}

func TestListOnlineAndForceRevoke(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	_, err := m.Create(ctx, Identity{UserID: 1, Username: "alpha"}, nil, "")
	require.NoError(t, err)
	_, err = m.Create(ctx, Identity{UserID: 2, Username: "beta"}, nil, "")
	require.NoError(t, err)

	online, err := m.ListOnline(ctx)
	require.NoError(t, err)
	require.Len(t, online, 2)

	require.NoError(t, m.RevokeKey(ctx, online[0].Key))
	online, err = m.ListOnline(ctx)
	require.NoError(t, err)
	require.Len(t, online, 1)
}
