package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/smartcheck/gatepass/internal/domain"
	"github.com/smartcheck/gatepass/internal/repository"
)

type passRepository struct {
	pool *pgxpool.Pool
}

func NewPassRepository(pool *pgxpool.Pool) repository.PassRepository {
	return &passRepository{pool: pool}
}

const passCols = `id, pass_code,
visitor_name, mobile_number, email, gender, category, coming_from, purpose, host_email,
vehicle_number, vehicle_type,
pass_type, visiting_date, visiting_time, allowed_hours, recurring_days, valid_until,
status, approved_by, approved_at, rejection_reason,
entry_otp_hash, entry_otp_consumed, exit_otp_hash, exit_otp_consumed,
is_inside, entry_time, exit_time,
created_by, is_active, version, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPass(row rowScanner) (*domain.Pass, error) {
	var p domain.Pass
	err := row.Scan(
		&p.ID, &p.PassCode,
		&p.VisitorName, &p.MobileNumber, &p.Email, &p.Gender, &p.Category, &p.ComingFrom, &p.Purpose, &p.HostEmail,
		&p.VehicleNumber, &p.VehicleType,
		&p.PassType, &p.VisitingDate, &p.VisitingTime, &p.AllowedHours, &p.RecurringDays, &p.ValidUntil,
		&p.Status, &p.ApprovedBy, &p.ApprovedAt, &p.RejectionReason,
		&p.EntryOTP.Hash, &p.EntryOTP.Consumed, &p.ExitOTP.Hash, &p.ExitOTP.Consumed,
		&p.IsInside, &p.EntryTime, &p.ExitTime,
		&p.CreatedBy, &p.IsActive, &p.Version, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *passRepository) Create(ctx context.Context, p *domain.Pass) (*domain.Pass, error) {
	const q = `INSERT INTO passes (
		id, pass_code,
		visitor_name, mobile_number, email, gender, category, coming_from, purpose, host_email,
		vehicle_number, vehicle_type,
		pass_type, visiting_date, visiting_time, allowed_hours, recurring_days, valid_until,
		status, approved_by, approved_at, rejection_reason,
		entry_otp_hash, entry_otp_consumed, exit_otp_hash, exit_otp_consumed,
		is_inside, created_by, is_active, version
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25,$26,$27,$28,$29,1)
	RETURNING ` + passCols

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	row := r.pool.QueryRow(ctx, q,
		p.ID, p.PassCode,
		p.VisitorName, p.MobileNumber, p.Email, p.Gender, p.Category, p.ComingFrom, p.Purpose, p.HostEmail,
		p.VehicleNumber, p.VehicleType,
		p.PassType, p.VisitingDate, p.VisitingTime, p.AllowedHours, p.RecurringDays, p.ValidUntil,
		p.Status, p.ApprovedBy, p.ApprovedAt, p.RejectionReason,
		p.EntryOTP.Hash, p.EntryOTP.Consumed, p.ExitOTP.Hash, p.ExitOTP.Consumed,
		p.IsInside, p.CreatedBy, p.IsActive,
	)
	created, err := scanPass(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, repository.ErrCodeTaken
		}
		return nil, err
	}
	return created, nil
}

func (r *passRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Pass, error) {
	const q = `SELECT ` + passCols + ` FROM passes WHERE id=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	p, err := scanPass(r.pool.QueryRow(ctx, q, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return p, err
}

func (r *passRepository) GetByCode(ctx context.Context, code string) (*domain.Pass, error) {
	const q = `SELECT ` + passCols + ` FROM passes WHERE lower(pass_code)=lower($1)`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	p, err := scanPass(r.pool.QueryRow(ctx, q, code))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return p, err
}

func (r *passRepository) List(ctx context.Context, filter domain.PassFilter) ([]domain.Pass, error) {
	filter.Normalize()

	q := `SELECT ` + passCols + ` FROM passes WHERE is_active=true`
	args := []any{}
	n := 0
	arg := func(v any) string {
		n++
		args = append(args, v)
		return fmt.Sprintf("$%d", n)
	}

	if filter.Category != "" {
		q += ` AND lower(category)=lower(` + arg(filter.Category) + `)`
	}
	if filter.PassType != nil {
		q += ` AND pass_type=` + arg(*filter.PassType)
	}
	if filter.Status != nil {
		q += ` AND status=` + arg(*filter.Status)
	}
	if filter.FromDate != nil {
		q += ` AND visiting_date>=` + arg(*filter.FromDate)
	}
	if filter.ToDate != nil {
		q += ` AND visiting_date<=` + arg(*filter.ToDate)
	}
	if filter.CreatedBy != "" {
		q += ` AND created_by=` + arg(filter.CreatedBy)
	}
	if filter.Inside != nil {
		q += ` AND is_inside=` + arg(*filter.Inside)
	}
	if filter.Search != "" {
		pat := "%" + filter.Search + "%"
		q += ` AND (visitor_name ILIKE ` + arg(pat) + ` OR mobile_number ILIKE ` + arg(pat) + ` OR pass_code ILIKE ` + arg(pat) + `)`
	}
	q += ` ORDER BY visiting_date DESC, visiting_time DESC LIMIT ` + arg(filter.Limit) + ` OFFSET ` + arg(filter.Offset)

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var passes []domain.Pass
	for rows.Next() {
		p, err := scanPass(rows)
		if err != nil {
			return nil, err
		}
		passes = append(passes, *p)
	}
	return passes, rows.Err()
}

func (r *passRepository) Mutate(ctx context.Context, id uuid.UUID, fn repository.MutateFunc) (*domain.Pass, error) {
	return r.mutate(ctx, `SELECT `+passCols+` FROM passes WHERE id=$1 FOR UPDATE`, id, fn)
}

func (r *passRepository) MutateByCode(ctx context.Context, code string, fn repository.MutateFunc) (*domain.Pass, error) {
	return r.mutate(ctx, `SELECT `+passCols+` FROM passes WHERE lower(pass_code)=lower($1) FOR UPDATE`, code, fn)
}

// mutate serializes the read-modify-write on one pass row. The audit
// entry returned by fn lands in the same transaction as the update, so
// a gate outcome and its log line commit or abort together.
func (r *passRepository) mutate(ctx context.Context, selectQ string, key any, fn repository.MutateFunc) (*domain.Pass, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	p, err := scanPass(tx.QueryRow(ctx, selectQ, key))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	before := *p
	entry, err := fn(p)
	if err != nil {
		return &before, err
	}

	const updateQ = `UPDATE passes SET
		visitor_name=$2, mobile_number=$3, email=$4, gender=$5, category=$6, coming_from=$7, purpose=$8, host_email=$9,
		vehicle_number=$10, vehicle_type=$11,
		visiting_date=$12, visiting_time=$13, allowed_hours=$14, recurring_days=$15, valid_until=$16,
		status=$17, approved_by=$18, approved_at=$19, rejection_reason=$20,
		entry_otp_hash=$21, entry_otp_consumed=$22, exit_otp_hash=$23, exit_otp_consumed=$24,
		is_inside=$25, entry_time=$26, exit_time=$27,
		is_active=$28, version=version+1, updated_at=now()
	WHERE id=$1`

	if _, err := tx.Exec(ctx, updateQ,
		p.ID,
		p.VisitorName, p.MobileNumber, p.Email, p.Gender, p.Category, p.ComingFrom, p.Purpose, p.HostEmail,
		p.VehicleNumber, p.VehicleType,
		p.VisitingDate, p.VisitingTime, p.AllowedHours, p.RecurringDays, p.ValidUntil,
		p.Status, p.ApprovedBy, p.ApprovedAt, p.RejectionReason,
		p.EntryOTP.Hash, p.EntryOTP.Consumed, p.ExitOTP.Hash, p.ExitOTP.Consumed,
		p.IsInside, p.EntryTime, p.ExitTime,
		p.IsActive,
	); err != nil {
		return nil, err
	}

	if entry != nil {
		if err := appendAudit(ctx, tx, entry); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	p.Version++
	return p, nil
}

func (r *passRepository) SweepExpired(ctx context.Context, now time.Time) (int64, error) {
	const q = `UPDATE passes SET status=$1, version=version+1, updated_at=now()
		WHERE status=$2 AND valid_until IS NOT NULL AND valid_until < $3`

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	tag, err := r.pool.Exec(ctx, q, domain.PassExpired, domain.PassApproved, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *passRepository) Stats(ctx context.Context, dayStart, dayEnd time.Time) (domain.DashboardStats, error) {
	const q = `SELECT
		count(*) FILTER (WHERE visiting_date >= $1 AND visiting_date < $2),
		count(*) FILTER (WHERE status = 'PENDING'),
		count(*) FILTER (WHERE is_inside),
		count(*) FILTER (WHERE NOT is_inside AND entry_time IS NOT NULL),
		count(*) FILTER (WHERE status = 'APPROVED' AND visiting_date >= $1 AND visiting_date < $2)
	FROM passes WHERE is_active=true`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var s domain.DashboardStats
	err := r.pool.QueryRow(ctx, q, dayStart, dayEnd).Scan(
		&s.VisitorsToday, &s.PendingApprovals, &s.CheckedIn, &s.CheckedOut, &s.ApprovedToday,
	)
	return s, err
}

func (r *passRepository) Deactivate(ctx context.Context, id uuid.UUID) (bool, error) {
	const q = `UPDATE passes SET is_active=false, version=version+1, updated_at=now() WHERE id=$1 AND is_active=true`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	tag, err := r.pool.Exec(ctx, q, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
