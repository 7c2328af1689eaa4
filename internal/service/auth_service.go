package service

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/backoffice-service/internal/audit"
	"github.com/spec-kit/backoffice-service/internal/authz"
	"github.com/spec-kit/backoffice-service/internal/config"
	"github.com/spec-kit/backoffice-service/internal/domain"
	"github.com/spec-kit/backoffice-service/internal/ratelimit"
	"github.com/spec-kit/backoffice-service/internal/repository"
	"github.com/spec-kit/backoffice-service/internal/session"
	apperrors "github.com/spec-kit/backoffice-service/pkg/util"
)

const (
	usernameMinLength = 2
	usernameMaxLength = 20
	passwordMinLength = 5
	passwordMaxLength = 20

	loginOperation = "auth:login"
)

// AuthService coordinates login, logout, and registration flows.
type AuthService struct {
	users      repository.UserRepository
	roles      repository.RoleRepository
	sessions   *session.Manager
	resolver   *authz.Resolver
	limiter    *ratelimit.Limiter
	dispatcher *audit.Dispatcher
	bcryptCost int
	loginRule  ratelimit.Rule
}

// AuthDependencies encapsulates collaborator requirements for the service.
type AuthDependencies struct {
	UserRepo   repository.UserRepository
	RoleRepo   repository.RoleRepository
	Sessions   *session.Manager
	Resolver   *authz.Resolver
	Limiter    *ratelimit.Limiter
	Dispatcher *audit.Dispatcher
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	return &AuthService{
		users:      deps.UserRepo,
		roles:      deps.RoleRepo,
		sessions:   deps.Sessions,
		resolver:   deps.Resolver,
		limiter:    deps.Limiter,
		dispatcher: deps.Dispatcher,
		bcryptCost: cfg.Auth.BcryptCost,
		loginRule: ratelimit.Rule{
			Window:   time.Duration(cfg.RateLimit.LoginWindow) * time.Second,
			Capacity: int64(cfg.RateLimit.LoginCapacity),
			Type:     ratelimit.ByIP,
		},
	}
}

// Login authenticates an account and mints a session token. Login attempts
// are rate limited per caller IP before credentials are checked.
func (s *AuthService) Login(ctx context.Context, username, password, ip string) (string, error) {
	if err := s.limiter.Check(ctx, loginOperation, ip, s.loginRule); err != nil {
		var limited *ratelimit.Error
		if errors.As(err, &limited) {
			return "", apperrors.NewRateLimitExceeded(int64(limited.RetryAfter / time.Second))
		}
		return "", err
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			s.auditLogin(username, ip, domain.AuditOutcomeFailure, "unknown account")
			return "", apperrors.NewUnauthorized("invalid credentials")
		}
		return "", err
	}
	if user.Status == domain.UserStatusDisabled {
		s.auditLogin(username, ip, domain.AuditOutcomeFailure, "account disabled")
		return "", apperrors.NewForbidden("account disabled")
	}
	if err := authz.ComparePassword(user.PasswordHash, password); err != nil {
		s.auditLogin(username, ip, domain.AuditOutcomeFailure, "password mismatch")
		return "", apperrors.NewUnauthorized("invalid credentials")
	}

	user.Roles, err = s.roles.FindByUserID(ctx, user.ID)
	if err != nil {
		return "", err
	}
	perms, err := s.resolver.PermissionStrings(ctx, user, authz.LookupByRoles)
	if err != nil {
		return "", err
	}

	token, err := s.sessions.Create(ctx, identityOf(user), authz.SortedSet(perms), ip)
	if err != nil {
		return "", err
	}

	s.auditLogin(username, ip, domain.AuditOutcomeSuccess, "login succeeded")
	return token, nil
}

// Logout revokes the session behind the bearer token. Logging out an already
// dead session is not an error.
func (s *AuthService) Logout(ctx context.Context, bearer, ip string) error {
	sess, err := s.sessions.Resolve(ctx, bearer)
	if err != nil {
		return nil
	}
	if err := s.sessions.RevokeKey(ctx, sess.Key); err != nil {
		return err
	}
	s.dispatcher.Submit(audit.Task{
		Username:  sess.Identity.Username,
		Event:     domain.AuditEventLogout,
		Outcome:   domain.AuditOutcomeSuccess,
		Message:   "logout succeeded",
		IPAddress: ip,
	})
	return nil
}

// Register creates a new account.
func (s *AuthService) Register(ctx context.Context, username, password, ip string) (*domain.User, error) {
	if len(username) < usernameMinLength || len(username) > usernameMaxLength {
		return nil, apperrors.NewValidationError("username length must be between 2 and 20 characters", nil)
	}
	if len(password) < passwordMinLength || len(password) > passwordMaxLength {
		return nil, apperrors.NewValidationError("password length must be between 5 and 20 characters", nil)
	}
	exists, err := s.users.ExistsByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, apperrors.NewConflict("account already exists", map[string]any{"username": username})
	}

	hash, err := authz.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, err
	}
	user := &domain.User{
		Username:     username,
		Nickname:     username,
		PasswordHash: hash,
		Status:       domain.UserStatusNormal,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	s.dispatcher.Submit(audit.Task{
		Username:  username,
		Event:     domain.AuditEventRegister,
		Outcome:   domain.AuditOutcomeSuccess,
		Message:   "registration succeeded",
		IPAddress: ip,
	})
	return user, nil
}

// AccountInfo recomputes the authoritative role and permission sets for a
// resolved session. When the live permission set disagrees with the cached
// snapshot the snapshot is refreshed in place, keeping the token stable.
func (s *AuthService) AccountInfo(ctx context.Context, sess *session.Session) (*domain.User, []string, []string, error) {
	user, err := s.users.GetByID(ctx, sess.Identity.UserID)
	if err != nil {
		return nil, nil, nil, err
	}
	user.Roles, err = s.roles.FindByUserID(ctx, user.ID)
	if err != nil {
		return nil, nil, nil, err
	}

	labels, err := s.resolver.RoleLabels(ctx, user)
	if err != nil {
		return nil, nil, nil, err
	}
	perms, err := s.resolver.PermissionStrings(ctx, user, authz.LookupByRoles)
	if err != nil {
		return nil, nil, nil, err
	}

	sorted := authz.SortedSet(perms)
	if !equalStrings(sorted, sess.Permissions) {
		if err := s.sessions.RefreshPermissions(ctx, sess, sorted); err != nil {
			return nil, nil, nil, err
		}
	}
	return user, authz.SortedSet(labels), sorted, nil
}

func (s *AuthService) auditLogin(username, ip string, outcome domain.AuditOutcome, message string) {
	s.dispatcher.Submit(audit.Task{
		Username:  username,
		Event:     domain.AuditEventLogin,
		Outcome:   outcome,
		Message:   message,
		IPAddress: ip,
	})
}

func identityOf(user *domain.User) session.Identity {
	identity := session.Identity{
		UserID:   user.ID,
		Username: user.Username,
		Nickname: user.Nickname,
		Admin:    user.Admin,
		DeptID:   user.DeptID,
		PostIDs:  user.PostIDs,
	}
	for _, role := range user.Roles {
		identity.RoleIDs = append(identity.RoleIDs, role.ID)
		identity.RoleKeys = append(identity.RoleKeys, role.Key)
	}
	return identity
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
