package session

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/backoffice-service/internal/cache"
	"github.com/spec-kit/backoffice-service/internal/config"
)

// ErrExpired covers absent, expired, and unreachable session state. A cache
// outage maps here: resolution fails closed, never "authenticated".
var ErrExpired = errors.New("session: expired")

// ErrInvalid covers malformed bearer credentials.
var ErrInvalid = errors.New("session: invalid token")

const keyPrefix = "login_tokens:"

// Identity is the account snapshot carried inside a session record.
type Identity struct {
	UserID   int64    `json:"user_id"`
	Username string   `json:"username"`
	Nickname string   `json:"nickname,omitempty"`
	Admin    bool     `json:"admin"`
	DeptID   *int64   `json:"dept_id,omitempty"`
	PostIDs  []int64  `json:"post_ids,omitempty"`
	RoleIDs  []int64  `json:"role_ids,omitempty"`
	RoleKeys []string `json:"role_keys,omitempty"`
}

// Session is the server-side record behind a bearer token. The permission
// snapshot is advisory; it goes stale relative to a live recomputation and is
// only updated by an explicit refresh, never silently on read.
type Session struct {
	Key         string    `json:"key"`
	Identity    Identity  `json:"identity"`
	Permissions []string  `json:"permissions"`
	IPAddress   string    `json:"ip_address,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	LastAccess  time.Time `json:"last_access"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Claims is the JWT envelope around the opaque session key. The bearer token
// carries nothing but the cache key; all state lives server-side.
type Claims struct {
	SessionKey string `json:"session_key"`
	jwt.RegisteredClaims
}

// Manager mints, resolves, refreshes, and revokes session tokens backed by
// the shared cache.
type Manager struct {
	store          cache.Store
	logger         *zap.Logger
	secret         []byte
	idleTTL        time.Duration
	refreshDivisor int
	now            func() time.Time
}

// NewManager builds a session manager from auth configuration.
func NewManager(store cache.Store, logger *zap.Logger, cfg config.AuthConfig) *Manager {
	ttlMinutes := cfg.SessionTTLMinutes
	if ttlMinutes <= 0 {
		ttlMinutes = 30
	}
	divisor := cfg.SessionRefreshDivisor
	if divisor <= 0 {
		divisor = 3
	}
	return &Manager{
		store:          store,
		logger:         logger,
		secret:         []byte(cfg.JWTSecret),
		idleTTL:        time.Duration(ttlMinutes) * time.Minute,
		refreshDivisor: divisor,
		now:            time.Now,
	}
}

// Create mints a new session for the identity and returns the signed bearer
// token. One cache write; TTL equals the idle window.
func (m *Manager) Create(ctx context.Context, identity Identity, permissions []string, ip string) (string, error) {
	now := m.now()
	sess := &Session{
		Key:         uuid.NewString(),
		Identity:    identity,
		Permissions: permissions,
		IPAddress:   ip,
		CreatedAt:   now,
		LastAccess:  now,
		ExpiresAt:   now.Add(m.idleTTL),
	}
	if err := m.write(ctx, sess); err != nil {
		return "", err
	}

	claims := &Claims{
		SessionKey: sess.Key,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  identity.Username,
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", err
	}
	return signed, nil
}

// Resolve maps a bearer token to its live session. When the elapsed time
// since last access exceeds idleTTL/refreshDivisor the record's expiry is
// extended as a best-effort side effect; a failed extension does not fail
// the read.
func (m *Manager) Resolve(ctx context.Context, bearer string) (*Session, error) {
	key, err := m.parseToken(bearer)
	if err != nil {
		return nil, ErrInvalid
	}

	data, err := m.store.Get(ctx, keyPrefix+key)
	if err != nil {
		if !errors.Is(err, cache.ErrMiss) {
			m.logger.Warn("session read failed, failing closed", zap.Error(err))
		}
		return nil, ErrExpired
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		m.logger.Warn("corrupt session record", zap.String("key", key), zap.Error(err))
		return nil, ErrExpired
	}

	now := m.now()
	if now.After(sess.ExpiresAt) {
		_ = m.store.Delete(ctx, keyPrefix+key)
		return nil, ErrExpired
	}

	if now.Sub(sess.LastAccess) > m.idleTTL/time.Duration(m.refreshDivisor) {
		sess.LastAccess = now
		sess.ExpiresAt = now.Add(m.idleTTL)
		if err := m.write(ctx, &sess); err != nil {
			m.logger.Warn("session refresh failed", zap.String("key", key), zap.Error(err))
		}
	}
	return &sess, nil
}

// RefreshPermissions overwrites the cached permission snapshot without
// rotating the token. Used when a live recomputation disagrees with the
// snapshot.
func (m *Manager) RefreshPermissions(ctx context.Context, sess *Session, permissions []string) error {
	now := m.now()
	sess.Permissions = permissions
	sess.LastAccess = now
	sess.ExpiresAt = now.Add(m.idleTTL)
	return m.write(ctx, sess)
}

// Revoke deletes the session behind the bearer token. Revoking a token with
// no live session is not an error.
func (m *Manager) Revoke(ctx context.Context, bearer string) error {
	key, err := m.parseToken(bearer)
	if err != nil {
		return ErrInvalid
	}
	return m.RevokeKey(ctx, key)
}

// RevokeKey deletes a session by its cache key. Idempotent.
func (m *Manager) RevokeKey(ctx context.Context, key string) error {
	return m.store.Delete(ctx, keyPrefix+key)
}

// ListOnline returns every live session. Records that fail to decode are
// skipped.
func (m *Manager) ListOnline(ctx context.Context) ([]*Session, error) {
	keys, err := m.store.Scan(ctx, keyPrefix+"*")
	if err != nil {
		return nil, err
	}
	sessions := make([]*Session, 0, len(keys))
	for _, key := range keys {
		data, err := m.store.Get(ctx, key)
		if err != nil {
			continue
		}
		var sess Session
		if err := json.Unmarshal(data, &sess); err != nil {
			continue
		}
		sessions = append(sessions, &sess)
	}
	return sessions, nil
}

// IdleTTL exposes the configured idle window.
func (m *Manager) IdleTTL() time.Duration {
	return m.idleTTL
}

func (m *Manager) write(ctx context.Context, sess *Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	return m.store.Set(ctx, keyPrefix+sess.Key, data, m.idleTTL)
}

func (m *Manager) parseToken(bearer string) (string, error) {
	parsed, err := jwt.ParseWithClaims(bearer, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return m.secret, nil
	})
	if err != nil {
		return "", err
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.SessionKey == "" {
		return "", errors.New("invalid token claims")
	}
	return claims.SessionKey, nil
}
