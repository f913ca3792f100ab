package postgres

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/smartcheck/gatepass/internal/domain"
	"github.com/smartcheck/gatepass/internal/repository"
)

type auditRepository struct {
	pool *pgxpool.Pool
}

func NewAuditRepository(pool *pgxpool.Pool) repository.AuditRepository {
	return &auditRepository{pool: pool}
}

// The audit table is insert-only; there are no update or delete paths.

func appendAudit(ctx context.Context, tx pgx.Tx, entry *domain.AuditEntry) error {
	deviceCtx, err := json.Marshal(entry.Context)
	if err != nil {
		return err
	}
	const q = `INSERT INTO pass_audit_log (id, pass_id, pass_code, action, actor, notes, context)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`
	_, err = tx.Exec(ctx, q, entry.ID, entry.PassID, entry.PassCode, entry.Action, entry.Actor, entry.Notes, deviceCtx)
	return err
}

func (r *auditRepository) Append(ctx context.Context, entry *domain.AuditEntry) error {
	deviceCtx, err := json.Marshal(entry.Context)
	if err != nil {
		return err
	}

	const q = `INSERT INTO pass_audit_log (id, pass_id, pass_code, action, actor, notes, context)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	_, err = r.pool.Exec(ctx, q, entry.ID, entry.PassID, entry.PassCode, entry.Action, entry.Actor, entry.Notes, deviceCtx)
	return err
}

func (r *auditRepository) ListByPass(ctx context.Context, passID uuid.UUID, limit, offset int) ([]domain.AuditEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	const q = `SELECT id, pass_id, pass_code, action, actor, notes, context, created_at
		FROM pass_audit_log WHERE pass_id=$1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, passID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.AuditEntry
	for rows.Next() {
		var e domain.AuditEntry
		var deviceCtx []byte
		if err := rows.Scan(&e.ID, &e.PassID, &e.PassCode, &e.Action, &e.Actor, &e.Notes, &deviceCtx, &e.CreatedAt); err != nil {
			return nil, err
		}
		if len(deviceCtx) > 0 {
			if err := json.Unmarshal(deviceCtx, &e.Context); err != nil {
				return nil, err
			}
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
