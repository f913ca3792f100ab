package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/smartcheck/gatepass/internal/domain"
	"github.com/smartcheck/gatepass/internal/repository"
)

// memAuditRepo collects entries in order.
type memAuditRepo struct {
	mu      sync.Mutex
	entries []domain.AuditEntry
}

func (r *memAuditRepo) Append(_ context.Context, entry *domain.AuditEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e := *entry
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	r.entries = append(r.entries, e)
	return nil
}

func (r *memAuditRepo) ListByPass(_ context.Context, passID uuid.UUID, limit, offset int) ([]domain.AuditEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.AuditEntry
	for i := len(r.entries) - 1; i >= 0; i-- {
		if r.entries[i].PassID == passID {
			out = append(out, r.entries[i])
		}
	}
	if offset < len(out) {
		out = out[offset:]
	} else {
		out = nil
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memAuditRepo) byAction(action domain.GateAction) []domain.AuditEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.AuditEntry
	for _, e := range r.entries {
		if e.Action == action {
			out = append(out, e)
		}
	}
	return out
}

// memPassRepo serializes mutations with a mutex, mirroring the
// row-lock semantics of the SQL implementation.
type memPassRepo struct {
	mu     sync.Mutex
	byID   map[uuid.UUID]*domain.Pass
	audits *memAuditRepo
}

func newMemPassRepo(audits *memAuditRepo) *memPassRepo {
	return &memPassRepo{byID: map[uuid.UUID]*domain.Pass{}, audits: audits}
}

func (r *memPassRepo) Create(_ context.Context, p *domain.Pass) (*domain.Pass, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.byID {
		if strings.EqualFold(existing.PassCode, p.PassCode) {
			return nil, repository.ErrCodeTaken
		}
	}
	cp := *p
	if cp.ID == uuid.Nil {
		cp.ID = uuid.New()
	}
	cp.CreatedAt = time.Now()
	cp.UpdatedAt = cp.CreatedAt
	r.byID[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (r *memPassRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Pass, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byID[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (r *memPassRepo) GetByCode(_ context.Context, code string) (*domain.Pass, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.findByCodeLocked(code), nil
}

func (r *memPassRepo) findByCodeLocked(code string) *domain.Pass {
	for _, p := range r.byID {
		if strings.EqualFold(p.PassCode, code) {
			cp := *p
			return &cp
		}
	}
	return nil
}

func (r *memPassRepo) List(_ context.Context, filter domain.PassFilter) ([]domain.Pass, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Pass
	for _, p := range r.byID {
		if !p.IsActive {
			continue
		}
		if filter.Status != nil && p.Status != *filter.Status {
			continue
		}
		if filter.PassType != nil && p.PassType != *filter.PassType {
			continue
		}
		if filter.Category != "" && p.Category != filter.Category {
			continue
		}
		out = append(out, *p)
	}
	return out, nil
}

func (r *memPassRepo) Mutate(_ context.Context, id uuid.UUID, fn repository.MutateFunc) (*domain.Pass, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byID[id]
	if !ok {
		return nil, nil
	}
	return r.mutateLocked(p, fn)
}

func (r *memPassRepo) MutateByCode(_ context.Context, code string, fn repository.MutateFunc) (*domain.Pass, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.byID {
		if strings.EqualFold(p.PassCode, code) {
			return r.mutateLocked(p, fn)
		}
	}
	return nil, nil
}

func (r *memPassRepo) mutateLocked(p *domain.Pass, fn repository.MutateFunc) (*domain.Pass, error) {
	before := *p
	work := *p
	entry, err := fn(&work)
	if err != nil {
		return &before, err
	}
	work.Version++
	work.UpdatedAt = time.Now()
	*p = work
	if entry != nil && r.audits != nil {
		_ = r.audits.Append(context.Background(), entry)
	}
	cp := work
	return &cp, nil
}

func (r *memPassRepo) SweepExpired(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var moved int64
	for _, p := range r.byID {
		if p.Status == domain.PassApproved && p.ValidUntil != nil && p.ValidUntil.Before(now) {
			p.Status = domain.PassExpired
			moved++
		}
	}
	return moved, nil
}

func (r *memPassRepo) Stats(_ context.Context, dayStart, dayEnd time.Time) (domain.DashboardStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var stats domain.DashboardStats
	for _, p := range r.byID {
		if !p.IsActive {
			continue
		}
		if !p.VisitingDate.Before(dayStart) && p.VisitingDate.Before(dayEnd) {
			stats.VisitorsToday++
		}
		if p.Status == domain.PassPending {
			stats.PendingApprovals++
		}
		if p.IsInside {
			stats.CheckedIn++
		}
		if p.ExitTime != nil && !p.IsInside {
			stats.CheckedOut++
		}
		if p.ApprovedAt != nil && !p.ApprovedAt.Before(dayStart) && p.ApprovedAt.Before(dayEnd) {
			stats.ApprovedToday++
		}
	}
	return stats, nil
}

func (r *memPassRepo) Deactivate(_ context.Context, id uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byID[id]
	if !ok || !p.IsActive {
		return false, nil
	}
	p.IsActive = false
	return true, nil
}

// collidingPassRepo fails the first create attempts with ErrCodeTaken.
type collidingPassRepo struct {
	*memPassRepo
	collisions int
}

func (r *collidingPassRepo) Create(ctx context.Context, p *domain.Pass) (*domain.Pass, error) {
	if r.collisions > 0 {
		r.collisions--
		return nil, repository.ErrCodeTaken
	}
	return r.memPassRepo.Create(ctx, p)
}

type busMsg struct {
	Subject string
	Payload interface{}
}

// memBus captures published events for assertions.
type memBus struct {
	mu        sync.Mutex
	published []busMsg
}

func (b *memBus) Publish(_ context.Context, subject string, data interface{}) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published = append(b.published, busMsg{Subject: subject, Payload: data})
	return nil
}

func (b *memBus) Close() error { return nil }

func (b *memBus) bySubject(subject string) []busMsg {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []busMsg
	for _, m := range b.published {
		if m.Subject == subject {
			out = append(out, m)
		}
	}
	return out
}

// memGuardRepo backs auth tests.
type memGuardRepo struct {
	mu      sync.Mutex
	nextID  int64
	byEmail map[string]*domain.Guard
}

func newMemGuardRepo() *memGuardRepo {
	return &memGuardRepo{byEmail: map[string]*domain.Guard{}}
}

func (r *memGuardRepo) Create(_ context.Context, email, passwordHash, name, role string) (*domain.Guard, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	g := &domain.Guard{
		ID:           r.nextID,
		Email:        strings.ToLower(email),
		Name:         name,
		Role:         role,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now(),
	}
	r.byEmail[g.Email] = g
	cp := *g
	return &cp, nil
}

func (r *memGuardRepo) FindByEmail(_ context.Context, email string) (*domain.Guard, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, nil
	}
	cp := *g
	return &cp, nil
}

// allowAll grants everything; used where authorization is not under test.
type allowAll struct{}

func (allowAll) IsPermitted(Principal, string) error { return nil }

// stubLimiter returns a fixed decision.
type stubLimiter struct {
	allow bool
	err   error
}

func (l *stubLimiter) Allow(context.Context, string) (bool, error) { return l.allow, l.err }
