package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/smartcheck/gatepass/internal/domain"
)

// ErrCodeTaken signals a pass-code collision on insert; the lifecycle
// engine retries with a fresh code.
var ErrCodeTaken = errors.New("pass code already taken")

// MutateFunc validates and mutates a pass under the repository's
// per-pass lock. Returning a non-nil audit entry commits it atomically
// with the pass update. Returning an error aborts the whole mutation:
// the previously committed state stays intact.
type MutateFunc func(p *domain.Pass) (*domain.AuditEntry, error)

type PassRepository interface {
	Create(ctx context.Context, p *domain.Pass) (*domain.Pass, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Pass, error)
	// GetByCode resolves a pass by its code, case-insensitively.
	GetByCode(ctx context.Context, code string) (*domain.Pass, error)
	List(ctx context.Context, filter domain.PassFilter) ([]domain.Pass, error)
	// Mutate runs fn against the current row state inside one
	// serialized read-modify-write. Concurrent mutations of the same
	// pass never interleave. On fn failure the pre-mutation pass is
	// returned alongside the error.
	Mutate(ctx context.Context, id uuid.UUID, fn MutateFunc) (*domain.Pass, error)
	MutateByCode(ctx context.Context, code string, fn MutateFunc) (*domain.Pass, error)
	// SweepExpired transitions APPROVED passes whose valid_until has
	// elapsed to EXPIRED and reports how many rows moved.
	SweepExpired(ctx context.Context, now time.Time) (int64, error)
	Stats(ctx context.Context, dayStart, dayEnd time.Time) (domain.DashboardStats, error)
	Deactivate(ctx context.Context, id uuid.UUID) (bool, error)
}

type AuditRepository interface {
	Append(ctx context.Context, entry *domain.AuditEntry) error
	ListByPass(ctx context.Context, passID uuid.UUID, limit, offset int) ([]domain.AuditEntry, error)
}

type CategoryRepository interface {
	Create(ctx context.Context, name, description string) (*domain.Category, error)
	List(ctx context.Context) ([]domain.Category, error)
	Deactivate(ctx context.Context, id int64) (bool, error)
}

type GuardRepository interface {
	Create(ctx context.Context, email, passwordHash, name, role string) (*domain.Guard, error)
	FindByEmail(ctx context.Context, email string) (*domain.Guard, error)
}
