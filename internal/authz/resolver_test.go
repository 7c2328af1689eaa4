package authz_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/backoffice-service/internal/authz"
	"github.com/spec-kit/backoffice-service/internal/domain"
)

type stubRoles struct {
	keys map[int64][]string
}

func (s *stubRoles) FindKeysByUserID(_ context.Context, userID int64) ([]string, error) {
	return s.keys[userID], nil
}

type stubMenus struct {
	byRole map[int64]map[string]struct{}
	byUser map[int64]map[string]struct{}
}

func (s *stubMenus) PermsByRoleID(_ context.Context, roleID int64) (map[string]struct{}, error) {
	return s.byRole[roleID], nil
}

func (s *stubMenus) PermsByUserID(_ context.Context, userID int64) (map[string]struct{}, error) {
	return s.byUser[userID], nil
}

func newResolver(roles *stubRoles, menus *stubMenus) *authz.Resolver {
	if roles == nil {
		roles = &stubRoles{}
	}
	if menus == nil {
		menus = &stubMenus{}
	}
	return authz.NewResolver(roles, menus, zap.NewNop())
}

func TestAdminBypass(t *testing.T) {
	r := newResolver(nil, nil)
	admin := &domain.User{
		ID:    1,
		Admin: true,
		Roles: []*domain.Role{{ID: 9, Key: "editor", Status: domain.RoleStatusNormal}},
	}

	labels, err := r.RoleLabels(context.Background(), admin)
	require.NoError(t, err)
	require.Equal(t, map[string]struct{}{"admin": {}}, labels)

	perms, err := r.PermissionStrings(context.Background(), admin, authz.LookupByRoles)
	require.NoError(t, err)
	require.Equal(t, map[string]struct{}{authz.AllPermission: {}}, perms)
}

func TestDisabledRoleContributesNothing(t *testing.T) {
	menus := &stubMenus{byRole: map[int64]map[string]struct{}{
		1: {"doc:read": {}, "doc:write": {}},
		2: {"doc:read": {}},
	}}
	r := newResolver(nil, menus)

	editor := &domain.Role{ID: 1, Key: "editor", Status: domain.RoleStatusNormal}
	viewer := &domain.Role{ID: 2, Key: "viewer", Status: domain.RoleStatusDisabled}
	user := &domain.User{ID: 5, Roles: []*domain.Role{editor, viewer}}

	perms, err := r.PermissionStrings(context.Background(), user, authz.LookupByRoles)
	require.NoError(t, err)
	require.Equal(t, map[string]struct{}{"doc:read": {}, "doc:write": {}}, perms)

	// The computed set is cached back onto the enabled role only.
	require.Equal(t, menus.byRole[1], editor.Permissions)
	require.Nil(t, viewer.Permissions)
}

func TestLookupByUserStrategy(t *testing.T) {
	menus := &stubMenus{byUser: map[int64]map[string]struct{}{
		5: {"system:menu:list": {}},
	}}
	r := newResolver(nil, menus)

	// Thin identity: no preloaded roles, explicit user-keyed lookup.
	user := &domain.User{ID: 5}
	perms, err := r.PermissionStrings(context.Background(), user, authz.LookupByUser)
	require.NoError(t, err)
	require.Equal(t, map[string]struct{}{"system:menu:list": {}}, perms)
}

func TestLookupByRolesWithNoRolesIsEmpty(t *testing.T) {
	r := newResolver(nil, nil)

	perms, err := r.PermissionStrings(context.Background(), &domain.User{ID: 5}, authz.LookupByRoles)
	require.NoError(t, err)
	require.Empty(t, perms)
}

func TestRoleLabelsForStandardIdentity(t *testing.T) {
	roles := &stubRoles{keys: map[int64][]string{5: {"editor", "auditor"}}}
	r := newResolver(roles, nil)

	labels, err := r.RoleLabels(context.Background(), &domain.User{ID: 5})
	require.NoError(t, err)
	require.Equal(t, map[string]struct{}{"editor": {}, "auditor": {}}, labels)
}

func TestHasPermission(t *testing.T) {
	granted := authz.SetOf([]string{"doc:read"})
	require.True(t, authz.HasPermission(granted, "doc:read"))
	require.False(t, authz.HasPermission(granted, "doc:write"))
	require.False(t, authz.HasPermission(granted, ""))

	wildcard := authz.SetOf([]string{authz.AllPermission})
	require.True(t, authz.HasPermission(wildcard, "doc:write"))
}
