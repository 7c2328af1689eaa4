package menu

import (
	"context"

	"github.com/spec-kit/backoffice-service/internal/domain"
	"github.com/spec-kit/backoffice-service/internal/repository"
	apperrors "github.com/spec-kit/backoffice-service/pkg/util"
)

// Service answers menu reachability and navigation queries over the
// persistence collaborator.
type Service struct {
	repo    repository.MenuRepository
	builder *Builder
}

// NewService constructs the menu service.
func NewService(repo repository.MenuRepository, builder *Builder) *Service {
	return &Service{repo: repo, builder: builder}
}

// PermsByRoleID returns the non-empty permission strings reachable from a
// role, independent of tree shape.
func (s *Service) PermsByRoleID(ctx context.Context, roleID int64) (map[string]struct{}, error) {
	perms, err := s.repo.FindPermsByRoleID(ctx, roleID)
	if err != nil {
		return nil, err
	}
	return permSet(perms), nil
}

// PermsByUserID returns the non-empty permission strings reachable from a
// user's enabled roles.
func (s *Service) PermsByUserID(ctx context.Context, userID int64) (map[string]struct{}, error) {
	perms, err := s.repo.FindPermsByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return permSet(perms), nil
}

// TreeForUser builds the administrative menu forest for a user.
// Administrators see every record.
func (s *Service) TreeForUser(ctx context.Context, user *domain.User) ([]*domain.MenuNode, error) {
	var (
		nodes []*domain.MenuNode
		err   error
	)
	if user.IsAdmin() {
		nodes, err = s.repo.FindAll(ctx)
	} else {
		nodes, err = s.repo.FindVisibleByUserID(ctx, user.ID)
	}
	if err != nil {
		return nil, err
	}
	return s.builder.BuildTree(nodes), nil
}

// RoutesForUser builds the front-end route descriptor tree for a user.
func (s *Service) RoutesForUser(ctx context.Context, user *domain.User) ([]*Route, error) {
	forest, err := s.TreeForUser(ctx, user)
	if err != nil {
		return nil, err
	}
	return s.builder.BuildRoutes(forest), nil
}

// HasDescendant reports whether any menu record references menuID as its
// parent. Used as a precondition before deleting a menu record.
func (s *Service) HasDescendant(ctx context.Context, menuID int64) (bool, error) {
	return s.repo.HasChild(ctx, menuID)
}

// AssignedToRole reports whether any role still references the menu record.
func (s *Service) AssignedToRole(ctx context.Context, menuID int64) (bool, error) {
	return s.repo.ExistsInRole(ctx, menuID)
}

// Delete removes a menu record after checking its preconditions: a record
// with children or one still assigned to a role cannot be deleted.
func (s *Service) Delete(ctx context.Context, menuID int64) error {
	hasChild, err := s.repo.HasChild(ctx, menuID)
	if err != nil {
		return err
	}
	if hasChild {
		return apperrors.NewConflict("menu has child records", map[string]any{"menu_id": menuID})
	}
	assigned, err := s.repo.ExistsInRole(ctx, menuID)
	if err != nil {
		return err
	}
	if assigned {
		return apperrors.NewConflict("menu is assigned to a role", map[string]any{"menu_id": menuID})
	}
	return s.repo.Delete(ctx, menuID)
}

func permSet(perms []string) map[string]struct{} {
	set := make(map[string]struct{}, len(perms))
	for _, perm := range perms {
		if perm == "" {
			continue
		}
		set[perm] = struct{}{}
	}
	return set
}
