package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/smartcheck/gatepass/internal/credentials"
	"github.com/smartcheck/gatepass/internal/domain"
	"github.com/smartcheck/gatepass/internal/repository"
	"github.com/smartcheck/gatepass/pkg/config"
	"github.com/smartcheck/gatepass/pkg/events"
	"github.com/smartcheck/gatepass/pkg/logger"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04:05"

	// Attempts before giving up on a unique pass code. The random
	// suffix space makes more than one collision per day unlikely.
	codeRetries = 5
)

// PassService owns the pass lifecycle: creation, approval, rejection,
// rescheduling, cancellation and expiry. Gate crossings live in
// GateService.
type PassService struct {
	passes repository.PassRepository
	audits repository.AuditRepository
	bus    events.Publisher
	authz  Authorizer
	gate   config.GateConfig
	loc    *time.Location
	now    func() time.Time
}

func NewPassService(
	passes repository.PassRepository,
	audits repository.AuditRepository,
	bus events.Publisher,
	authz Authorizer,
	gate config.GateConfig,
	loc *time.Location,
) *PassService {
	return &PassService{
		passes: passes,
		audits: audits,
		bus:    bus,
		authz:  authz,
		gate:   gate,
		loc:    loc,
		now:    time.Now,
	}
}

// otpPair is freshly generated credential material. The plaintext
// leaves the service only through the notification event.
type otpPair struct {
	entry, exit string
}

func (s *PassService) generateOTPs() (otpPair, domain.Credential, domain.Credential, error) {
	var pair otpPair
	var err error
	if pair.entry, err = credentials.GenerateOTP(s.gate.OTPLength); err != nil {
		return pair, domain.Credential{}, domain.Credential{}, err
	}
	if pair.exit, err = credentials.GenerateOTP(s.gate.OTPLength); err != nil {
		return pair, domain.Credential{}, domain.Credential{}, err
	}
	entryHash, err := credentials.HashOTP(pair.entry)
	if err != nil {
		return pair, domain.Credential{}, domain.Credential{}, err
	}
	exitHash, err := credentials.HashOTP(pair.exit)
	if err != nil {
		return pair, domain.Credential{}, domain.Credential{}, err
	}
	return pair, domain.Credential{Hash: entryHash}, domain.Credential{Hash: exitHash}, nil
}

// Create registers a new pass. Future-dated visits are auto-approved
// when policy allows; same-day visits always wait for human review.
func (s *PassService) Create(ctx context.Context, actor Principal, req domain.CreatePassRequest) (*domain.Pass, error) {
	if err := s.authz.IsPermitted(actor, ActionCreatePass); err != nil {
		return nil, err
	}

	p, err := s.buildPass(actor, req)
	if err != nil {
		return nil, err
	}

	pair, entryCred, exitCred, err := s.generateOTPs()
	if err != nil {
		return nil, fmt.Errorf("generate credentials: %w", err)
	}
	p.EntryOTP = entryCred
	p.ExitOTP = exitCred

	if s.gate.AutoApproveFuture && p.VisitingDate.After(s.today()) {
		now := s.now()
		p.Status = domain.PassApproved
		p.ApprovedBy = "auto"
		p.ApprovedAt = &now
	}

	var created *domain.Pass
	for attempt := 0; attempt < codeRetries; attempt++ {
		p.PassCode, err = credentials.GeneratePassCode(s.gate.PassCodePrefix, p.VisitingDate)
		if err != nil {
			return nil, err
		}
		created, err = s.passes.Create(ctx, p)
		if err == nil {
			break
		}
		if err != repository.ErrCodeTaken {
			return nil, err
		}
	}
	if err != nil {
		return nil, fmt.Errorf("allocate pass code: %w", err)
	}

	if created.Status == domain.PassApproved {
		s.publishScheduled(ctx, created, pair)
	}
	logger.InfoContext(ctx, "Pass created",
		"pass_code", created.PassCode, "status", created.Status, "type", created.PassType)
	return created, nil
}

func (s *PassService) buildPass(actor Principal, req domain.CreatePassRequest) (*domain.Pass, error) {
	if strings.TrimSpace(req.VisitorName) == "" {
		return nil, domain.ConfigurationErr("visitor_name is required")
	}
	if strings.TrimSpace(req.MobileNumber) == "" {
		return nil, domain.ConfigurationErr("mobile_number is required")
	}

	passType := req.PassType
	if passType == "" {
		passType = domain.PassSingleUse
	} else if _, ok := domain.ParsePassType(string(passType)); !ok {
		return nil, domain.ConfigurationErr("unknown pass_type")
	}

	visitDate, err := time.ParseInLocation(dateLayout, req.VisitingDate, s.loc)
	if err != nil {
		return nil, domain.ConfigurationErr("visiting_date must be YYYY-MM-DD")
	}
	visitTime, err := time.Parse(timeLayout, req.VisitingTime)
	if err != nil {
		return nil, domain.ConfigurationErr("visiting_time must be HH:MM:SS")
	}
	if visitDate.Before(s.today()) {
		return nil, domain.ConfigurationErr("visiting_date is in the past")
	}

	allowed := req.AllowedHours
	if allowed <= 0 {
		allowed = s.gate.DefaultAllowedHours
	}

	p := &domain.Pass{
		ID:            uuid.New(),
		VisitorName:   strings.TrimSpace(req.VisitorName),
		MobileNumber:  strings.TrimSpace(req.MobileNumber),
		Email:         strings.TrimSpace(req.Email),
		Gender:        req.Gender,
		Category:      req.Category,
		ComingFrom:    req.ComingFrom,
		Purpose:       req.Purpose,
		HostEmail:     strings.TrimSpace(req.HostEmail),
		VehicleNumber: strings.ToUpper(strings.TrimSpace(req.VehicleNumber)),
		VehicleType:   req.VehicleType,
		PassType:      passType,
		VisitingDate:  visitDate,
		VisitingTime:  visitTime,
		AllowedHours:  allowed,
		RecurringDays: req.RecurringDays,
		Status:        domain.PassPending,
		CreatedBy:     actor.Email,
		IsActive:      true,
	}
	if err := ensureValidUntil(p, s.loc); err != nil {
		return nil, err
	}
	return p, nil
}

// Update rewrites the visitor identity fields. Identity is mutable only
// while the pass awaits review; once approved or rejected the recorded
// visitor is fixed.
func (s *PassService) Update(ctx context.Context, actor Principal, id uuid.UUID, req domain.UpdatePassRequest) (*domain.Pass, error) {
	if err := s.authz.IsPermitted(actor, ActionUpdatePass); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.VisitorName) == "" {
		return nil, domain.ConfigurationErr("visitor_name is required")
	}
	if strings.TrimSpace(req.MobileNumber) == "" {
		return nil, domain.ConfigurationErr("mobile_number is required")
	}

	p, err := s.passes.Mutate(ctx, id, func(p *domain.Pass) (*domain.AuditEntry, error) {
		if !p.IsActive {
			return nil, domain.NotFound("pass not found")
		}
		if p.Status != domain.PassPending {
			return nil, domain.InvalidState(fmt.Sprintf("cannot edit visitor details on a %s pass", p.Status))
		}
		p.VisitorName = strings.TrimSpace(req.VisitorName)
		p.MobileNumber = strings.TrimSpace(req.MobileNumber)
		p.Email = strings.TrimSpace(req.Email)
		p.Gender = req.Gender
		p.Category = req.Category
		p.ComingFrom = req.ComingFrom
		p.Purpose = req.Purpose
		p.HostEmail = strings.TrimSpace(req.HostEmail)
		p.VehicleNumber = strings.ToUpper(strings.TrimSpace(req.VehicleNumber))
		p.VehicleType = req.VehicleType
		return nil, nil
	})
	if err != nil {
		return p, err
	}
	if p == nil {
		return nil, domain.NotFound("pass not found")
	}
	logger.InfoContext(ctx, "Pass updated", "pass_code", p.PassCode, "by", actor.Email)
	return p, nil
}

// Approve moves a pending pass to approved and rotates both OTPs so
// codes issued before review can never be used.
func (s *PassService) Approve(ctx context.Context, actor Principal, id uuid.UUID) (*domain.Pass, error) {
	if err := s.authz.IsPermitted(actor, ActionApprovePass); err != nil {
		return nil, err
	}

	pair, entryCred, exitCred, err := s.generateOTPs()
	if err != nil {
		return nil, fmt.Errorf("generate credentials: %w", err)
	}

	p, err := s.passes.Mutate(ctx, id, func(p *domain.Pass) (*domain.AuditEntry, error) {
		if !p.IsActive {
			return nil, domain.NotFound("pass not found")
		}
		if p.Status != domain.PassPending {
			return nil, domain.InvalidState(fmt.Sprintf("cannot approve a %s pass", p.Status))
		}
		now := s.now()
		p.Status = domain.PassApproved
		p.ApprovedBy = actor.Email
		p.ApprovedAt = &now
		p.EntryOTP = entryCred
		p.ExitOTP = exitCred
		return nil, ensureValidUntil(p, s.loc)
	})
	if err != nil {
		return p, err
	}
	if p == nil {
		return nil, domain.NotFound("pass not found")
	}

	s.publishScheduled(ctx, p, pair)
	s.publish(ctx, events.PassApproved, events.PassApprovedEvent{
		PassID:       p.ID.String(),
		PassCode:     p.PassCode,
		VisitorName:  p.VisitorName,
		VisitorEmail: p.Email,
		VisitingDate: p.VisitingDate.Format(dateLayout),
		EntryOTP:     pair.entry,
		ExitOTP:      pair.exit,
		ApprovedBy:   actor.Email,
		ApprovedAt:   *p.ApprovedAt,
	})
	logger.InfoContext(ctx, "Pass approved", "pass_code", p.PassCode, "approved_by", actor.Email)
	return p, nil
}

// Reject declines a pending pass.
func (s *PassService) Reject(ctx context.Context, actor Principal, id uuid.UUID, reason string) (*domain.Pass, error) {
	if err := s.authz.IsPermitted(actor, ActionRejectPass); err != nil {
		return nil, err
	}
	if strings.TrimSpace(reason) == "" {
		reason = "Rejected by host"
	}

	p, err := s.passes.Mutate(ctx, id, func(p *domain.Pass) (*domain.AuditEntry, error) {
		if !p.IsActive {
			return nil, domain.NotFound("pass not found")
		}
		if p.Status != domain.PassPending {
			return nil, domain.InvalidState(fmt.Sprintf("cannot reject a %s pass", p.Status))
		}
		p.Status = domain.PassRejected
		p.RejectionReason = reason
		return nil, nil
	})
	if err != nil {
		return p, err
	}
	if p == nil {
		return nil, domain.NotFound("pass not found")
	}

	s.publish(ctx, events.PassRejected, events.PassRejectedEvent{
		PassID:       p.ID.String(),
		PassCode:     p.PassCode,
		VisitorName:  p.VisitorName,
		VisitorEmail: p.Email,
		Reason:       reason,
		RejectedBy:   actor.Email,
		RejectedAt:   s.now(),
	})
	logger.InfoContext(ctx, "Pass rejected", "pass_code", p.PassCode, "reason", reason)
	return p, nil
}

// RescheduleRequest moves a not-yet-used pass to a new visit slot.
type RescheduleRequest struct {
	VisitingDate  string `json:"visiting_date"`
	VisitingTime  string `json:"visiting_time"`
	AllowedHours  int    `json:"allowed_hours"`
	RecurringDays int    `json:"recurring_days"`
}

// Reschedule changes the visit slot. The expiry window is recomputed
// from the new slot and both OTPs are rotated. Once the visitor has
// entered, the slot is history and can no longer move.
func (s *PassService) Reschedule(ctx context.Context, actor Principal, id uuid.UUID, req RescheduleRequest) (*domain.Pass, error) {
	if err := s.authz.IsPermitted(actor, ActionReschedule); err != nil {
		return nil, err
	}

	visitDate, err := time.ParseInLocation(dateLayout, req.VisitingDate, s.loc)
	if err != nil {
		return nil, domain.ConfigurationErr("visiting_date must be YYYY-MM-DD")
	}
	visitTime, err := time.Parse(timeLayout, req.VisitingTime)
	if err != nil {
		return nil, domain.ConfigurationErr("visiting_time must be HH:MM:SS")
	}
	if visitDate.Before(s.today()) {
		return nil, domain.ConfigurationErr("visiting_date is in the past")
	}

	pair, entryCred, exitCred, err := s.generateOTPs()
	if err != nil {
		return nil, fmt.Errorf("generate credentials: %w", err)
	}

	p, err := s.passes.Mutate(ctx, id, func(p *domain.Pass) (*domain.AuditEntry, error) {
		if !p.IsActive {
			return nil, domain.NotFound("pass not found")
		}
		if p.Terminal() {
			return nil, domain.InvalidState(fmt.Sprintf("cannot reschedule a %s pass", p.Status))
		}
		if p.HasEntered() {
			return nil, domain.InvalidState("cannot reschedule after the visitor has entered")
		}
		p.VisitingDate = visitDate
		p.VisitingTime = visitTime
		if req.AllowedHours > 0 {
			p.AllowedHours = req.AllowedHours
		}
		if req.RecurringDays > 0 {
			p.RecurringDays = req.RecurringDays
		}
		p.ValidUntil = nil
		p.EntryOTP = entryCred
		p.ExitOTP = exitCred
		return nil, ensureValidUntil(p, s.loc)
	})
	if err != nil {
		return p, err
	}
	if p == nil {
		return nil, domain.NotFound("pass not found")
	}

	// A reschedule always hands the visitor their fresh credentials,
	// even while the pass is still pending review.
	s.publishScheduled(ctx, p, pair)
	logger.InfoContext(ctx, "Pass rescheduled",
		"pass_code", p.PassCode, "visiting_date", req.VisitingDate)
	return p, nil
}

// Cancel withdraws a pass that has not reached a terminal state. A
// visitor currently inside must exit through the gate first.
func (s *PassService) Cancel(ctx context.Context, actor Principal, id uuid.UUID) (*domain.Pass, error) {
	if err := s.authz.IsPermitted(actor, ActionCancelPass); err != nil {
		return nil, err
	}

	p, err := s.passes.Mutate(ctx, id, func(p *domain.Pass) (*domain.AuditEntry, error) {
		if !p.IsActive {
			return nil, domain.NotFound("pass not found")
		}
		if p.Terminal() {
			return nil, domain.InvalidState(fmt.Sprintf("cannot cancel a %s pass", p.Status))
		}
		if p.IsInside {
			return nil, domain.InvalidState("visitor is inside; record the exit first")
		}
		p.Status = domain.PassCancelled
		return nil, nil
	})
	if err != nil {
		return p, err
	}
	if p == nil {
		return nil, domain.NotFound("pass not found")
	}
	logger.InfoContext(ctx, "Pass cancelled", "pass_code", p.PassCode, "by", actor.Email)
	return p, nil
}

// Deactivate retires a pass from all lookups without erasing history.
func (s *PassService) Deactivate(ctx context.Context, actor Principal, id uuid.UUID) error {
	if err := s.authz.IsPermitted(actor, ActionDeactivate); err != nil {
		return err
	}
	ok, err := s.passes.Deactivate(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return domain.NotFound("pass not found")
	}
	return nil
}

// SweepExpired retires approved passes whose window has elapsed.
func (s *PassService) SweepExpired(ctx context.Context) (int64, error) {
	moved, err := s.passes.SweepExpired(ctx, s.now())
	if err != nil {
		return 0, err
	}
	if moved > 0 {
		logger.InfoContext(ctx, "Expired passes swept", "count", moved)
	}
	return moved, nil
}

func (s *PassService) Get(ctx context.Context, id uuid.UUID) (*domain.Pass, error) {
	p, err := s.passes.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil || !p.IsActive {
		return nil, domain.NotFound("pass not found")
	}
	return p, nil
}

func (s *PassService) GetByCode(ctx context.Context, code string) (*domain.Pass, error) {
	p, err := s.passes.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if p == nil || !p.IsActive {
		return nil, domain.NotFound("pass not found")
	}
	return p, nil
}

func (s *PassService) List(ctx context.Context, filter domain.PassFilter) ([]domain.PassSnapshot, error) {
	filter.Normalize()
	passes, err := s.passes.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	out := make([]domain.PassSnapshot, 0, len(passes))
	for i := range passes {
		out = append(out, passes[i].Snapshot())
	}
	return out, nil
}

// Progress is the visitor-facing tracking view: the pass snapshot, its
// display stage and the gate history.
type Progress struct {
	Pass  domain.PassSnapshot `json:"pass"`
	Stage string              `json:"stage"`
	Trail []domain.AuditEntry `json:"trail"`
}

func (s *PassService) Progress(ctx context.Context, code string) (*Progress, error) {
	p, err := s.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	trail, err := s.audits.ListByPass(ctx, p.ID, 50, 0)
	if err != nil {
		return nil, err
	}
	return &Progress{Pass: p.Snapshot(), Stage: p.Stage(), Trail: trail}, nil
}

// Dashboard summarizes today's traffic in the facility zone.
func (s *PassService) Dashboard(ctx context.Context, actor Principal) (domain.DashboardStats, error) {
	if err := s.authz.IsPermitted(actor, ActionViewDashboard); err != nil {
		return domain.DashboardStats{}, err
	}
	dayStart := s.today()
	return s.passes.Stats(ctx, dayStart, dayStart.AddDate(0, 0, 1))
}

// QRPayload exposes the contract consumed by external QR renderers.
func (s *PassService) QRPayload(ctx context.Context, code string) (domain.QRPayload, error) {
	p, err := s.GetByCode(ctx, code)
	if err != nil {
		return domain.QRPayload{}, err
	}
	return domain.NewQRPayload(p), nil
}

// today is midnight of the current day in the facility zone.
func (s *PassService) today() time.Time {
	now := s.now().In(s.loc)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)
}

func (s *PassService) publishScheduled(ctx context.Context, p *domain.Pass, pair otpPair) {
	var vu time.Time
	if p.ValidUntil != nil {
		vu = *p.ValidUntil
	}
	s.publish(ctx, events.PassScheduled, events.PassScheduledEvent{
		PassID:       p.ID.String(),
		PassCode:     p.PassCode,
		VisitorName:  p.VisitorName,
		VisitorEmail: p.Email,
		VisitingDate: p.VisitingDate.Format(dateLayout),
		VisitingTime: p.VisitingTime.Format(timeLayout),
		EntryOTP:     pair.entry,
		ExitOTP:      pair.exit,
		ValidUntil:   vu,
		CreatedAt:    p.CreatedAt,
	})
}

// publish is fire-and-forget: a broken broker never fails the request.
func (s *PassService) publish(ctx context.Context, subject string, payload interface{}) {
	if s.bus == nil {
		return
	}
	if err := s.bus.Publish(ctx, subject, payload); err != nil {
		logger.ErrorContext(ctx, "Failed to publish event", "subject", subject, "error", err)
	}
}
