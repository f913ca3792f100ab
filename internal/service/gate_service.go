package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/smartcheck/gatepass/internal/credentials"
	"github.com/smartcheck/gatepass/internal/domain"
	"github.com/smartcheck/gatepass/internal/repository"
	"github.com/smartcheck/gatepass/pkg/config"
	"github.com/smartcheck/gatepass/pkg/events"
	"github.com/smartcheck/gatepass/pkg/logger"
)

// ScanLimiter throttles scan attempts per device. A nil limiter means
// unlimited.
type ScanLimiter interface {
	Allow(ctx context.Context, deviceID string) (bool, error)
}

// ScanRequest is one presentation of a pass at the gate.
type ScanRequest struct {
	PassCode string `json:"pass_code"`
	OTP      string `json:"otp"`
	// Action is "entry", "exit" or empty to infer from the current
	// inside/outside state. An explicit action that disagrees with
	// the state is rejected rather than silently flipped.
	Action   string `json:"action"`
	DeviceID string `json:"device_id"`
	Gate     string `json:"gate"`
}

// GateResult reports a completed crossing.
type GateResult struct {
	Action domain.GateAction   `json:"action"`
	Pass   domain.PassSnapshot `json:"pass"`
	At     time.Time           `json:"at"`
}

// GateService validates crossings and records every outcome, accepted
// or rejected, in the audit trail.
type GateService struct {
	passes  repository.PassRepository
	audits  repository.AuditRepository
	bus     events.Publisher
	authz   Authorizer
	limiter ScanLimiter
	gate    config.GateConfig
	loc     *time.Location
	now     func() time.Time
}

func NewGateService(
	passes repository.PassRepository,
	audits repository.AuditRepository,
	bus events.Publisher,
	authz Authorizer,
	limiter ScanLimiter,
	gate config.GateConfig,
	loc *time.Location,
) *GateService {
	return &GateService{
		passes:  passes,
		audits:  audits,
		bus:     bus,
		authz:   authz,
		limiter: limiter,
		gate:    gate,
		loc:     loc,
		now:     time.Now,
	}
}

// ProcessScan runs the full gate check for one scan. The checks run in
// a fixed order against a locked row, so two simultaneous scans of the
// same pass resolve to exactly one winner.
func (s *GateService) ProcessScan(ctx context.Context, actor Principal, req ScanRequest) (*GateResult, error) {
	if err := s.authz.IsPermitted(actor, ActionGateScan); err != nil {
		return nil, err
	}
	if err := s.checkRate(ctx, req.DeviceID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.PassCode) == "" {
		return nil, domain.ConfigurationErr("pass_code is required")
	}

	var action domain.GateAction
	at := s.now()

	p, err := s.passes.MutateByCode(ctx, req.PassCode, func(p *domain.Pass) (*domain.AuditEntry, error) {
		var err error
		action, err = s.check(p, req, at)
		if err != nil {
			return nil, err
		}
		s.apply(p, action, at)
		return domain.NewAuditEntry(p, action, actor.Email, "", s.deviceContext(req)), nil
	})
	if err != nil {
		s.recordRejection(ctx, p, actor, req, err)
		return nil, err
	}
	if p == nil {
		return nil, domain.NotFound("pass not found")
	}

	if action == domain.ActionEntry && p.HostEmail != "" {
		s.publishHostArrival(ctx, p, at)
	}
	logger.InfoContext(ctx, "Gate crossing recorded",
		"pass_code", p.PassCode, "action", action, "gate", req.Gate)
	return &GateResult{Action: action, Pass: p.Snapshot(), At: at}, nil
}

// check validates a scan against the locked pass state. The OTP is
// verified before the time-of-day check so a too-early visitor with a
// wrong code learns about the code, not the clock.
func (s *GateService) check(p *domain.Pass, req ScanRequest, at time.Time) (domain.GateAction, error) {
	if !p.IsActive {
		return "", domain.NotFound("pass not found")
	}
	switch p.Status {
	case domain.PassApproved:
	case domain.PassPending:
		return "", domain.InvalidState("pass is awaiting approval")
	default:
		return "", domain.InvalidState(fmt.Sprintf("pass is %s", strings.ToLower(string(p.Status))))
	}

	action := domain.ActionEntry
	if p.IsInside {
		action = domain.ActionExit
	}
	switch strings.ToLower(req.Action) {
	case "", strings.ToLower(string(action)):
	case "entry":
		return "", domain.InvalidState("visitor is already inside")
	case "exit":
		return "", domain.InvalidState("visitor is not inside")
	default:
		return "", domain.ConfigurationErr("action must be entry or exit")
	}

	if action == domain.ActionEntry {
		if err := s.checkSchedule(p, at); err != nil {
			return "", err
		}
		if p.PassType == domain.PassSingleUse && p.ExitTime != nil {
			return "", domain.InvalidState("single-use pass already used")
		}
	}

	if s.gate.OTPRequired {
		cred := p.EntryOTP
		if action == domain.ActionExit {
			cred = p.ExitOTP
		}
		if !cred.Usable() {
			return "", domain.OTPConsumed("code already used, request a fresh pass")
		}
		if !credentials.CompareOTP(cred.Hash, req.OTP) {
			return "", domain.OTPMismatch("incorrect code")
		}
	}

	if action == domain.ActionEntry && at.In(s.loc).Before(p.ScheduledStart(s.loc)) {
		return "", domain.ScheduleErr(fmt.Sprintf(
			"entry opens at %s", p.ScheduledStart(s.loc).Format("15:04")))
	}
	return action, nil
}

// checkSchedule pins entries to the authorized days. Single-use passes
// admit only on the visit date; recurring passes admit from the visit
// date until the window closes.
func (s *GateService) checkSchedule(p *domain.Pass, at time.Time) error {
	local := at.In(s.loc)
	today := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.loc)
	visitDay := time.Date(
		p.VisitingDate.Year(), p.VisitingDate.Month(), p.VisitingDate.Day(), 0, 0, 0, 0, s.loc)

	if p.ValidUntil != nil && at.After(*p.ValidUntil) {
		return domain.ScheduleErr("pass validity window has elapsed")
	}
	switch p.PassType {
	case domain.PassRecurring:
		if today.Before(visitDay) {
			return domain.ScheduleErr("pass is not valid yet")
		}
	default:
		if !today.Equal(visitDay) {
			return domain.ScheduleErr("pass is valid only on " + visitDay.Format("2006-01-02"))
		}
	}
	return nil
}

// apply records the crossing. Single-use credentials burn on use;
// recurring passes keep theirs for the next day.
func (s *GateService) apply(p *domain.Pass, action domain.GateAction, at time.Time) {
	switch action {
	case domain.ActionEntry:
		t := at
		p.EntryTime = &t
		p.ExitTime = nil
		p.IsInside = true
		if p.PassType == domain.PassSingleUse {
			p.EntryOTP.Consume()
		}
	case domain.ActionExit, domain.ActionEmergencyExit:
		t := at
		p.ExitTime = &t
		p.IsInside = false
		if p.PassType == domain.PassSingleUse {
			p.ExitOTP.Consume()
		}
	}
}

// EmergencyExit releases a visitor without an OTP. It exists for
// evacuations and medical events; authorization is its only gate.
func (s *GateService) EmergencyExit(ctx context.Context, actor Principal, passCode, reason string) (*GateResult, error) {
	if err := s.authz.IsPermitted(actor, ActionEmergencyExit); err != nil {
		return nil, err
	}
	if strings.TrimSpace(reason) == "" {
		return nil, domain.ConfigurationErr("an emergency exit requires a reason")
	}

	at := s.now()
	p, err := s.passes.MutateByCode(ctx, passCode, func(p *domain.Pass) (*domain.AuditEntry, error) {
		if !p.IsActive {
			return nil, domain.NotFound("pass not found")
		}
		if !p.IsInside {
			return nil, domain.InvalidState("visitor is not inside")
		}
		s.apply(p, domain.ActionEmergencyExit, at)
		return domain.NewAuditEntry(p, domain.ActionEmergencyExit, actor.Email, reason, nil), nil
	})
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, domain.NotFound("pass not found")
	}

	logger.WarnContext(ctx, "Emergency exit recorded",
		"pass_code", p.PassCode, "by", actor.Email, "reason", reason)
	return &GateResult{Action: domain.ActionEmergencyExit, Pass: p.Snapshot(), At: at}, nil
}

// Trail returns the audit history for a pass code.
func (s *GateService) Trail(ctx context.Context, code string, limit, offset int) ([]domain.AuditEntry, error) {
	p, err := s.passes.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, domain.NotFound("pass not found")
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.audits.ListByPass(ctx, p.ID, limit, offset)
}

func (s *GateService) checkRate(ctx context.Context, deviceID string) error {
	if s.limiter == nil || deviceID == "" {
		return nil
	}
	ok, err := s.limiter.Allow(ctx, deviceID)
	if err != nil {
		// The limiter failing open keeps the gate usable.
		logger.ErrorContext(ctx, "Scan limiter unavailable", "error", err)
		return nil
	}
	if !ok {
		return &domain.Error{Kind: domain.KindPermission, Code: "RATE_LIMITED", Msg: "too many scan attempts, slow down"}
	}
	return nil
}

// recordRejection appends a REJECTED_ENTRY entry for denied scans.
// Only policy denials are recorded; infrastructure failures are not
// gate outcomes.
func (s *GateService) recordRejection(ctx context.Context, p *domain.Pass, actor Principal, req ScanRequest, cause error) {
	if p == nil || domain.KindOf(cause) == domain.KindUnknown {
		return
	}
	deviceCtx := s.deviceContext(req)
	entry := domain.NewAuditEntry(p, domain.ActionRejectedEntry, actor.Email, cause.Error(), deviceCtx)
	if err := s.audits.Append(ctx, entry); err != nil {
		logger.ErrorContext(ctx, "Failed to record rejected scan",
			"pass_code", p.PassCode, "error", err)
	}
}

func (s *GateService) deviceContext(req ScanRequest) map[string]string {
	ctx := map[string]string{}
	if req.DeviceID != "" {
		ctx["device_id"] = req.DeviceID
	}
	if req.Gate != "" {
		ctx["gate"] = req.Gate
	}
	if req.Action != "" {
		ctx["requested_action"] = strings.ToLower(req.Action)
	}
	if len(ctx) == 0 {
		return nil
	}
	return ctx
}

func (s *GateService) publishHostArrival(ctx context.Context, p *domain.Pass, at time.Time) {
	if s.bus == nil {
		return
	}
	err := s.bus.Publish(ctx, events.HostArrival, events.HostArrivalEvent{
		PassID:      p.ID.String(),
		PassCode:    p.PassCode,
		VisitorName: p.VisitorName,
		HostEmail:   p.HostEmail,
		EntryTime:   at,
	})
	if err != nil {
		logger.ErrorContext(ctx, "Failed to publish host arrival", "error", err)
	}
}
