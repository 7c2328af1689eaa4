package service_test

import (
	"context"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/backoffice-service/internal/audit"
	"github.com/spec-kit/backoffice-service/internal/authz"
	"github.com/spec-kit/backoffice-service/internal/cache"
	"github.com/spec-kit/backoffice-service/internal/config"
	"github.com/spec-kit/backoffice-service/internal/domain"
	"github.com/spec-kit/backoffice-service/internal/menu"
	"github.com/spec-kit/backoffice-service/internal/ratelimit"
	"github.com/spec-kit/backoffice-service/internal/service"
	"github.com/spec-kit/backoffice-service/internal/session"
	apperrors "github.com/spec-kit/backoffice-service/pkg/util"
)

type stubUsers struct {
	mu     sync.Mutex
	nextID int64
	byName map[string]*domain.User
}

func (s *stubUsers) Create(_ context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	user.ID = s.nextID
	s.byName[user.Username] = user
	return nil
}

func (s *stubUsers) GetByID(_ context.Context, id int64) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.byName {
		if user.ID == id {
			return user, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (s *stubUsers) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if user, ok := s.byName[username]; ok {
		return user, nil
	}
	return nil, pgx.ErrNoRows
}

func (s *stubUsers) ExistsByUsername(_ context.Context, username string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.byName[username]
	return ok, nil
}

type stubRoles struct {
	byUser map[int64][]*domain.Role
}

func (s *stubRoles) FindByUserID(_ context.Context, userID int64) ([]*domain.Role, error) {
	return s.byUser[userID], nil
}

func (s *stubRoles) FindKeysByUserID(_ context.Context, userID int64) ([]string, error) {
	var keys []string
	for _, role := range s.byUser[userID] {
		keys = append(keys, role.Key)
	}
	return keys, nil
}

type stubMenus struct {
	mu     sync.Mutex
	byRole map[int64][]string
}

func (s *stubMenus) FindAll(context.Context) ([]*domain.MenuNode, error) { return nil, nil }
func (s *stubMenus) FindVisibleByUserID(context.Context, int64) ([]*domain.MenuNode, error) {
	return nil, nil
}
func (s *stubMenus) FindPermsByRoleID(_ context.Context, roleID int64) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string{}, s.byRole[roleID]...), nil
}
func (s *stubMenus) FindPermsByUserID(context.Context, int64) ([]string, error) { return nil, nil }
func (s *stubMenus) HasChild(context.Context, int64) (bool, error)             { return false, nil }
func (s *stubMenus) ExistsInRole(context.Context, int64) (bool, error)         { return false, nil }
func (s *stubMenus) Delete(context.Context, int64) error                       { return nil }

func (s *stubMenus) setRolePerms(roleID int64, perms []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byRole[roleID] = perms
}

type stubLogs struct {
	mu      sync.Mutex
	entries []domain.LoginLog
}

func (s *stubLogs) Insert(_ context.Context, entry *domain.LoginLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, *entry)
	return nil
}

func (s *stubLogs) recorded() []domain.LoginLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.LoginLog{}, s.entries...)
}

type fixture struct {
	svc        *service.AuthService
	sessions   *session.Manager
	dispatcher *audit.Dispatcher
	users      *stubUsers
	menus      *stubMenus
	logs       *stubLogs
}

func newFixture(t *testing.T, loginCapacity int) *fixture {
	t.Helper()

	cfg := config.Config{
		Auth: config.AuthConfig{
			JWTSecret:             "test-secret",
			SessionTTLMinutes:     30,
			SessionRefreshDivisor: 3,
			BcryptCost:            4,
		},
		RateLimit: config.RateLimitConfig{
			LoginWindow:   60,
			LoginCapacity: loginCapacity,
		},
	}

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := cache.NewRedisStore(client, 0)
	logger := zap.NewNop()

	users := &stubUsers{byName: map[string]*domain.User{}}
	roles := &stubRoles{byUser: map[int64][]*domain.Role{}}
	menus := &stubMenus{byRole: map[int64][]string{}}
	logs := &stubLogs{}

	hash, err := authz.HashPassword("secret", cfg.Auth.BcryptCost)
	require.NoError(t, err)
	operator := &domain.User{
		ID:           1,
		Username:     "operator",
		PasswordHash: hash,
		Status:       domain.UserStatusNormal,
	}
	users.byName[operator.Username] = operator
	users.nextID = 1
	roles.byUser[operator.ID] = []*domain.Role{
		{ID: 10, Key: "editor", Status: domain.RoleStatusNormal},
	}
	menus.byRole[10] = []string{"doc:read"}

	sessions := session.NewManager(store, logger, cfg.Auth)
	menuService := menu.NewService(menus, menu.NewBuilder(logger))
	dispatcher := audit.NewDispatcher(logs, logger, 64)

	svc := service.NewAuthService(cfg, service.AuthDependencies{
		UserRepo:   users,
		RoleRepo:   roles,
		Sessions:   sessions,
		Resolver:   authz.NewResolver(roles, menuService, logger),
		Limiter:    ratelimit.NewLimiter(store, logger, false),
		Dispatcher: dispatcher,
	})
	return &fixture{svc: svc, sessions: sessions, dispatcher: dispatcher, users: users, menus: menus, logs: logs}
}

func TestLoginIssuesResolvableToken(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()

	token, err := f.svc.Login(ctx, "operator", "secret", "10.0.0.1")
	require.NoError(t, err)

	sess, err := f.sessions.Resolve(ctx, token)
	require.NoError(t, err)
	require.Equal(t, "operator", sess.Identity.Username)
	require.Equal(t, []string{"doc:read"}, sess.Permissions)

	f.dispatcher.Close()
	entries := f.logs.recorded()
	require.Len(t, entries, 1)
	require.Equal(t, domain.AuditEventLogin, entries[0].Event)
	require.Equal(t, domain.AuditOutcomeSuccess, entries[0].Outcome)
}

func TestLoginWrongPassword(t *testing.T) {
	f := newFixture(t, 10)

	_, err := f.svc.Login(context.Background(), "operator", "wrong", "10.0.0.1")
	require.Error(t, err)
	require.Equal(t, "UNAUTHORIZED", apperrors.ToDomainError(err).Code)

	f.dispatcher.Close()
	entries := f.logs.recorded()
	require.Len(t, entries, 1)
	require.Equal(t, domain.AuditOutcomeFailure, entries[0].Outcome)
}

func TestLoginUnknownAccount(t *testing.T) {
	f := newFixture(t, 10)

	_, err := f.svc.Login(context.Background(), "nobody", "secret", "10.0.0.1")
	require.Equal(t, "UNAUTHORIZED", apperrors.ToDomainError(err).Code)
}

func TestLoginDisabledAccount(t *testing.T) {
	f := newFixture(t, 10)
	f.users.byName["operator"].Status = domain.UserStatusDisabled

	_, err := f.svc.Login(context.Background(), "operator", "secret", "10.0.0.1")
	require.Equal(t, "FORBIDDEN", apperrors.ToDomainError(err).Code)
}

func TestLoginRateLimited(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := f.svc.Login(ctx, "operator", "wrong", "10.0.0.1")
		require.Equal(t, "UNAUTHORIZED", apperrors.ToDomainError(err).Code)
	}

	_, err := f.svc.Login(ctx, "operator", "secret", "10.0.0.1")
	require.Equal(t, "RATE_LIMIT_EXCEEDED", apperrors.ToDomainError(err).Code)
}

func TestLogoutRevokesSession(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()

	token, err := f.svc.Login(ctx, "operator", "secret", "10.0.0.1")
	require.NoError(t, err)

	require.NoError(t, f.svc.Logout(ctx, token, "10.0.0.1"))

	_, err = f.sessions.Resolve(ctx, token)
	require.ErrorIs(t, err, session.ErrExpired)

	// Logging out a dead session is not an error.
	require.NoError(t, f.svc.Logout(ctx, token, "10.0.0.1"))
}

func TestRegisterValidation(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()

	_, err := f.svc.Register(ctx, "a", "password", "10.0.0.1")
	require.Equal(t, "VALIDATION_FAILED", apperrors.ToDomainError(err).Code)

	_, err = f.svc.Register(ctx, "newuser", "pw", "10.0.0.1")
	require.Equal(t, "VALIDATION_FAILED", apperrors.ToDomainError(err).Code)

	_, err = f.svc.Register(ctx, "operator", "password", "10.0.0.1")
	require.Equal(t, "CONFLICT", apperrors.ToDomainError(err).Code)

	user, err := f.svc.Register(ctx, "newuser", "password", "10.0.0.1")
	require.NoError(t, err)
	require.NotZero(t, user.ID)
	require.Equal(t, domain.UserStatusNormal, user.Status)
}

func TestAccountInfoRefreshesStaleSnapshot(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()

	token, err := f.svc.Login(ctx, "operator", "secret", "10.0.0.1")
	require.NoError(t, err)

	sess, err := f.sessions.Resolve(ctx, token)
	require.NoError(t, err)
	require.Equal(t, []string{"doc:read"}, sess.Permissions)

	// A permission granted after login shows up on the next info call and
	// is written back into the session snapshot.
	f.menus.setRolePerms(10, []string{"doc:read", "doc:write"})

	_, _, perms, err := f.svc.AccountInfo(ctx, sess)
	require.NoError(t, err)
	require.Equal(t, []string{"doc:read", "doc:write"}, perms)

	again, err := f.sessions.Resolve(ctx, token)
	require.NoError(t, err)
	require.Equal(t, []string{"doc:read", "doc:write"}, again.Permissions)
}
