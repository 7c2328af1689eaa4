package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/backoffice-service/internal/domain"
)

// MenuRepository defines persistence access for menu records.
type MenuRepository interface {
	FindAll(ctx context.Context) ([]*domain.MenuNode, error)
	FindVisibleByUserID(ctx context.Context, userID int64) ([]*domain.MenuNode, error)
	FindPermsByRoleID(ctx context.Context, roleID int64) ([]string, error)
	FindPermsByUserID(ctx context.Context, userID int64) ([]string, error)
	HasChild(ctx context.Context, menuID int64) (bool, error)
	ExistsInRole(ctx context.Context, menuID int64) (bool, error)
	Delete(ctx context.Context, menuID int64) error
}

type menuRepository struct {
	pool *pgxpool.Pool
}

// NewMenuRepository returns a Postgres-backed implementation.
func NewMenuRepository(pool *pgxpool.Pool) MenuRepository {
	return &menuRepository{pool: pool}
}

const menuColumns = `
        id, parent_id, menu_name, path, component, query, perms, icon,
        order_num, kind, visible, status, is_frame, is_cache`

func (r *menuRepository) FindAll(ctx context.Context) ([]*domain.MenuNode, error) {
	const query = `
        SELECT` + menuColumns + `
        FROM sys_menu
        ORDER BY parent_id, order_num, id`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMenus(rows)
}

func (r *menuRepository) FindVisibleByUserID(ctx context.Context, userID int64) ([]*domain.MenuNode, error) {
	const query = `
        SELECT DISTINCT` + menuColumns + `
        FROM sys_menu m
        JOIN sys_role_menu rm ON rm.menu_id = m.id
        JOIN sys_user_role ur ON ur.role_id = rm.role_id
        JOIN sys_role ro ON ro.id = ur.role_id AND ro.status = 'NORMAL'
        WHERE ur.user_id = $1 AND m.status = 'NORMAL'
        ORDER BY parent_id, order_num, id`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMenus(rows)
}

func (r *menuRepository) FindPermsByRoleID(ctx context.Context, roleID int64) ([]string, error) {
	const query = `
        SELECT DISTINCT m.perms
        FROM sys_menu m
        JOIN sys_role_menu rm ON rm.menu_id = m.id
        WHERE rm.role_id = $1 AND m.status = 'NORMAL' AND m.perms <> ''`

	return scanStrings(r.pool.Query(ctx, query, roleID))
}

func (r *menuRepository) FindPermsByUserID(ctx context.Context, userID int64) ([]string, error) {
	const query = `
        SELECT DISTINCT m.perms
        FROM sys_menu m
        JOIN sys_role_menu rm ON rm.menu_id = m.id
        JOIN sys_user_role ur ON ur.role_id = rm.role_id
        JOIN sys_role ro ON ro.id = ur.role_id AND ro.status = 'NORMAL'
        WHERE ur.user_id = $1 AND m.status = 'NORMAL' AND m.perms <> ''`

	return scanStrings(r.pool.Query(ctx, query, userID))
}

func (r *menuRepository) HasChild(ctx context.Context, menuID int64) (bool, error) {
	const query = `SELECT COUNT(1) FROM sys_menu WHERE parent_id = $1`

	var count int
	if err := r.pool.QueryRow(ctx, query, menuID).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *menuRepository) ExistsInRole(ctx context.Context, menuID int64) (bool, error) {
	const query = `SELECT COUNT(1) FROM sys_role_menu WHERE menu_id = $1`

	var count int
	if err := r.pool.QueryRow(ctx, query, menuID).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *menuRepository) Delete(ctx context.Context, menuID int64) error {
	const query = `DELETE FROM sys_menu WHERE id = $1`

	cmd, err := r.pool.Exec(ctx, query, menuID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func scanMenus(rows pgx.Rows) ([]*domain.MenuNode, error) {
	var nodes []*domain.MenuNode
	for rows.Next() {
		var node domain.MenuNode
		if err := rows.Scan(
			&node.ID,
			&node.ParentID,
			&node.Name,
			&node.Path,
			&node.Component,
			&node.Query,
			&node.Perms,
			&node.Icon,
			&node.OrderNum,
			&node.Kind,
			&node.Visible,
			&node.Status,
			&node.IsFrame,
			&node.IsCache,
		); err != nil {
			return nil, err
		}
		nodes = append(nodes, &node)
	}
	return nodes, rows.Err()
}

func scanStrings(rows pgx.Rows, err error) ([]string, error) {
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var value string
		if err := rows.Scan(&value); err != nil {
			return nil, err
		}
		values = append(values, value)
	}
	return values, rows.Err()
}
