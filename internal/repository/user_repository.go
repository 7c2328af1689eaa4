package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/backoffice-service/internal/domain"
)

// UserRepository defines persistence access for back-office accounts.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
}

type userRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a Postgres-backed implementation.
func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepository{pool: pool}
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	const query = `
        INSERT INTO sys_user (username, nickname, email, password_hash, status, is_admin, dept_id)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING id, created_at, updated_at`

	return r.pool.QueryRow(ctx, query,
		user.Username,
		user.Nickname,
		user.Email,
		user.PasswordHash,
		user.Status,
		user.Admin,
		user.DeptID,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
}

func (r *userRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	const query = `
        SELECT id, username, nickname, email, password_hash, status, is_admin, dept_id, created_at, updated_at
        FROM sys_user WHERE id = $1`

	return r.scanUser(r.pool.QueryRow(ctx, query, id))
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	const query = `
        SELECT id, username, nickname, email, password_hash, status, is_admin, dept_id, created_at, updated_at
        FROM sys_user WHERE username = $1`

	return r.scanUser(r.pool.QueryRow(ctx, query, username))
}

func (r *userRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	const query = `SELECT COUNT(1) FROM sys_user WHERE username = $1`

	var count int
	if err := r.pool.QueryRow(ctx, query, username).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *userRepository) scanUser(row pgx.Row) (*domain.User, error) {
	var user domain.User
	if err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Nickname,
		&user.Email,
		&user.PasswordHash,
		&user.Status,
		&user.Admin,
		&user.DeptID,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &user, nil
}
