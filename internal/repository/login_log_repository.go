package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/backoffice-service/internal/domain"
)

// LoginLogRepository persists account audit records.
type LoginLogRepository interface {
	Insert(ctx context.Context, entry *domain.LoginLog) error
}

type loginLogRepository struct {
	pool *pgxpool.Pool
}

// NewLoginLogRepository returns a Postgres-backed implementation.
func NewLoginLogRepository(pool *pgxpool.Pool) LoginLogRepository {
	return &loginLogRepository{pool: pool}
}

func (r *loginLogRepository) Insert(ctx context.Context, entry *domain.LoginLog) error {
	const query = `
        INSERT INTO sys_login_log (username, event, outcome, message, ip_address, occurred_at)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id`

	return r.pool.QueryRow(ctx, query,
		entry.Username,
		entry.Event,
		entry.Outcome,
		entry.Message,
		entry.IPAddress,
		entry.OccurredAt,
	).Scan(&entry.ID)
}
