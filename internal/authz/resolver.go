package authz

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/spec-kit/backoffice-service/internal/domain"
)

// AdminRoleLabel is granted unconditionally to administrator identities.
const AdminRoleLabel = "admin"

// AllPermission is the universal wildcard meaning "every permission".
const AllPermission = "*:*:*"

// Strategy selects how permissions are looked up for a non-admin identity.
// Callers state explicitly whether the identity was loaded with its roles
// attached instead of the resolver inferring it from collection emptiness.
type Strategy int

const (
	// LookupByRoles unions the permissions of the identity's preloaded
	// enabled roles.
	LookupByRoles Strategy = iota
	// LookupByUser queries permissions directly by user id, for identities
	// loaded without role records.
	LookupByUser
)

// MenuPermissionSource is the reachability computation over menu records.
type MenuPermissionSource interface {
	PermsByRoleID(ctx context.Context, roleID int64) (map[string]struct{}, error)
	PermsByUserID(ctx context.Context, userID int64) (map[string]struct{}, error)
}

// RoleSource provides role labels for an account.
type RoleSource interface {
	FindKeysByUserID(ctx context.Context, userID int64) ([]string, error)
}

// Resolver computes the effective role and permission sets for an identity,
// applying the administrator bypass.
type Resolver struct {
	roles  RoleSource
	menus  MenuPermissionSource
	logger *zap.Logger
}

// NewResolver constructs a resolver.
func NewResolver(roles RoleSource, menus MenuPermissionSource, logger *zap.Logger) *Resolver {
	return &Resolver{roles: roles, menus: menus, logger: logger}
}

// RoleLabels returns the role label set the identity holds. Administrators
// get exactly {"admin"} regardless of attached role records.
func (r *Resolver) RoleLabels(ctx context.Context, user *domain.User) (map[string]struct{}, error) {
	if user.IsAdmin() {
		return map[string]struct{}{AdminRoleLabel: {}}, nil
	}
	keys, err := r.roles.FindKeysByUserID(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	labels := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		labels[key] = struct{}{}
	}
	return labels, nil
}

// PermissionStrings returns the effective permission set. Administrators get
// exactly the universal wildcard. For LookupByRoles, each enabled role's
// reachable permissions are unioned and cached back onto the role record;
// disabled roles contribute nothing and are skipped silently.
func (r *Resolver) PermissionStrings(ctx context.Context, user *domain.User, strategy Strategy) (map[string]struct{}, error) {
	if user.IsAdmin() {
		return map[string]struct{}{AllPermission: {}}, nil
	}

	perms := make(map[string]struct{})
	switch strategy {
	case LookupByRoles:
		for _, role := range user.Roles {
			if !role.Enabled() {
				r.logger.Debug("skipping disabled role", zap.Int64("role_id", role.ID))
				continue
			}
			rolePerms, err := r.menus.PermsByRoleID(ctx, role.ID)
			if err != nil {
				return nil, err
			}
			role.Permissions = rolePerms
			for perm := range rolePerms {
				perms[perm] = struct{}{}
			}
		}
	case LookupByUser:
		userPerms, err := r.menus.PermsByUserID(ctx, user.ID)
		if err != nil {
			return nil, err
		}
		for perm := range userPerms {
			perms[perm] = struct{}{}
		}
	}
	return perms, nil
}

// HasPermission checks a required permission string against a granted set,
// honoring the universal wildcard.
func HasPermission(granted map[string]struct{}, required string) bool {
	if required == "" {
		return false
	}
	if _, ok := granted[AllPermission]; ok {
		return true
	}
	_, ok := granted[required]
	return ok
}

// SortedSet converts a permission set to a deterministic slice for
// serialization into session snapshots.
func SortedSet(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for value := range set {
		out = append(out, value)
	}
	sort.Strings(out)
	return out
}

// SetOf builds a set from a permission slice.
func SetOf(perms []string) map[string]struct{} {
	set := make(map[string]struct{}, len(perms))
	for _, perm := range perms {
		set[perm] = struct{}{}
	}
	return set
}
