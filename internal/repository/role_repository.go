package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/backoffice-service/internal/domain"
)

// RoleRepository defines persistence access for roles.
type RoleRepository interface {
	FindByUserID(ctx context.Context, userID int64) ([]*domain.Role, error)
	FindKeysByUserID(ctx context.Context, userID int64) ([]string, error)
}

type roleRepository struct {
	pool *pgxpool.Pool
}

// NewRoleRepository returns a Postgres-backed implementation.
func NewRoleRepository(pool *pgxpool.Pool) RoleRepository {
	return &roleRepository{pool: pool}
}

func (r *roleRepository) FindByUserID(ctx context.Context, userID int64) ([]*domain.Role, error) {
	const query = `
        SELECT ro.id, ro.role_key, ro.role_name, ro.status
        FROM sys_role ro
        JOIN sys_user_role ur ON ur.role_id = ro.id
        WHERE ur.user_id = $1
        ORDER BY ro.id`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []*domain.Role
	for rows.Next() {
		var role domain.Role
		if err := rows.Scan(&role.ID, &role.Key, &role.Name, &role.Status); err != nil {
			return nil, err
		}
		roles = append(roles, &role)
	}
	return roles, rows.Err()
}

func (r *roleRepository) FindKeysByUserID(ctx context.Context, userID int64) ([]string, error) {
	const query = `
        SELECT DISTINCT ro.role_key
        FROM sys_role ro
        JOIN sys_user_role ur ON ur.role_id = ro.id
        WHERE ur.user_id = $1 AND ro.role_key <> ''`

	return scanStrings(r.pool.Query(ctx, query, userID))
}
