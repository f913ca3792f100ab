package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/smartcheck/gatepass/internal/domain"
	"github.com/smartcheck/gatepass/internal/repository"
)

type guardRepository struct {
	pool *pgxpool.Pool
}

func NewGuardRepository(pool *pgxpool.Pool) repository.GuardRepository {
	return &guardRepository{pool: pool}
}

func (r *guardRepository) Create(ctx context.Context, email, passwordHash, name, role string) (*domain.Guard, error) {
	const q = `INSERT INTO guards (email, password_hash, name, role)
		VALUES (lower($1),$2,$3,$4)
		RETURNING id, email, name, role, password_hash, created_at`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var g domain.Guard
	err := r.pool.QueryRow(ctx, q, email, passwordHash, name, role).Scan(
		&g.ID, &g.Email, &g.Name, &g.Role, &g.PasswordHash, &g.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func (r *guardRepository) FindByEmail(ctx context.Context, email string) (*domain.Guard, error) {
	const q = `SELECT id, email, name, role, password_hash, created_at FROM guards WHERE email=lower($1)`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var g domain.Guard
	err := r.pool.QueryRow(ctx, q, email).Scan(&g.ID, &g.Email, &g.Name, &g.Role, &g.PasswordHash, &g.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &g, nil
}
