package service

import (
	"context"
	"testing"
	"time"

	"github.com/smartcheck/gatepass/internal/credentials"
	"github.com/smartcheck/gatepass/internal/domain"
	"github.com/smartcheck/gatepass/pkg/config"
	"github.com/smartcheck/gatepass/pkg/events"
)

var testNow = time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)

func testGateConfig() config.GateConfig {
	return config.GateConfig{
		Timezone:            "UTC",
		OTPRequired:         true,
		AutoApproveFuture:   true,
		OTPLength:           6,
		PassCodePrefix:      "VP",
		DefaultAllowedHours: 8,
	}
}

func newPassFixture(t *testing.T) (*PassService, *memPassRepo, *memAuditRepo, *memBus) {
	t.Helper()
	audits := &memAuditRepo{}
	repo := newMemPassRepo(audits)
	bus := &memBus{}
	svc := NewPassService(repo, audits, bus, allowAll{}, testGateConfig(), time.UTC)
	svc.now = func() time.Time { return testNow }
	return svc, repo, audits, bus
}

func staff() Principal {
	return Principal{ID: "7", Email: "desk@example.com", Role: RoleReceptionist}
}

func createReq() domain.CreatePassRequest {
	return domain.CreatePassRequest{
		VisitorName:  "Asha Verma",
		MobileNumber: "9876543210",
		Email:        "asha@example.com",
		Gender:       domain.GenderFemale,
		Category:     "Vendor",
		ComingFrom:   "Pune",
		Purpose:      "Server maintenance",
		PassType:     domain.PassSingleUse,
		VisitingDate: "2025-03-15",
		VisitingTime: "09:00:00",
	}
}

func TestCreateFutureDatedAutoApproves(t *testing.T) {
	svc, _, _, bus := newPassFixture(t)

	p, err := svc.Create(context.Background(), staff(), createReq())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if p.Status != domain.PassApproved {
		t.Fatalf("status = %s, want APPROVED", p.Status)
	}
	if p.ApprovedBy != "auto" || p.ApprovedAt == nil {
		t.Errorf("approval stamp missing: by=%q at=%v", p.ApprovedBy, p.ApprovedAt)
	}
	if p.ValidUntil == nil {
		t.Fatal("valid until not computed")
	}
	want := time.Date(2025, 3, 15, 17, 0, 0, 0, time.UTC)
	if !p.ValidUntil.Equal(want) {
		t.Errorf("valid until = %v, want %v", p.ValidUntil, want)
	}

	msgs := bus.bySubject(events.PassScheduled)
	if len(msgs) != 1 {
		t.Fatalf("scheduled events = %d, want 1", len(msgs))
	}
	ev := msgs[0].Payload.(events.PassScheduledEvent)
	if !credentials.CompareOTP(p.EntryOTP.Hash, ev.EntryOTP) {
		t.Error("published entry code does not match stored hash")
	}
	if !credentials.CompareOTP(p.ExitOTP.Hash, ev.ExitOTP) {
		t.Error("published exit code does not match stored hash")
	}
}

func TestCreateSameDayStaysPending(t *testing.T) {
	svc, _, _, bus := newPassFixture(t)

	req := createReq()
	req.VisitingDate = "2025-03-14"
	p, err := svc.Create(context.Background(), staff(), req)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if p.Status != domain.PassPending {
		t.Fatalf("status = %s, want PENDING", p.Status)
	}
	if got := len(bus.bySubject(events.PassScheduled)); got != 0 {
		t.Errorf("pending pass published %d scheduled events", got)
	}
}

func TestCreateRejectsPastDate(t *testing.T) {
	svc, _, _, _ := newPassFixture(t)

	req := createReq()
	req.VisitingDate = "2025-03-13"
	_, err := svc.Create(context.Background(), staff(), req)
	if domain.KindOf(err) != domain.KindConfiguration {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestCreateValidatesInput(t *testing.T) {
	svc, _, _, _ := newPassFixture(t)

	cases := []struct {
		name   string
		mutate func(*domain.CreatePassRequest)
	}{
		{"missing name", func(r *domain.CreatePassRequest) { r.VisitorName = " " }},
		{"missing mobile", func(r *domain.CreatePassRequest) { r.MobileNumber = "" }},
		{"bad pass type", func(r *domain.CreatePassRequest) { r.PassType = "WEEKLY" }},
		{"bad date", func(r *domain.CreatePassRequest) { r.VisitingDate = "15/03/2025" }},
		{"bad time", func(r *domain.CreatePassRequest) { r.VisitingTime = "9am" }},
		{"recurring without days", func(r *domain.CreatePassRequest) { r.PassType = domain.PassRecurring }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := createReq()
			tc.mutate(&req)
			_, err := svc.Create(context.Background(), staff(), req)
			if domain.KindOf(err) != domain.KindConfiguration {
				t.Fatalf("expected configuration error, got %v", err)
			}
		})
	}
}

func TestCreateRetriesOnCodeCollision(t *testing.T) {
	audits := &memAuditRepo{}
	repo := &collidingPassRepo{memPassRepo: newMemPassRepo(audits), collisions: 2}
	svc := NewPassService(repo, audits, &memBus{}, allowAll{}, testGateConfig(), time.UTC)
	svc.now = func() time.Time { return testNow }

	p, err := svc.Create(context.Background(), staff(), createReq())
	if err != nil {
		t.Fatalf("Create after collisions: %v", err)
	}
	if p.PassCode == "" {
		t.Fatal("no pass code allocated")
	}
}

func TestCreateDeniedForGuards(t *testing.T) {
	audits := &memAuditRepo{}
	svc := NewPassService(newMemPassRepo(audits), audits, &memBus{}, NewRoleAuthorizer(), testGateConfig(), time.UTC)
	svc.now = func() time.Time { return testNow }

	_, err := svc.Create(context.Background(), Principal{Email: "g@example.com", Role: RoleGuard}, createReq())
	if domain.KindOf(err) != domain.KindPermission {
		t.Fatalf("expected permission error, got %v", err)
	}
}

func seedPending(t *testing.T, svc *PassService) *domain.Pass {
	t.Helper()
	req := createReq()
	req.VisitingDate = "2025-03-14"
	p, err := svc.Create(context.Background(), staff(), req)
	if err != nil {
		t.Fatalf("seed pass: %v", err)
	}
	return p
}

func TestUpdateRewritesVisitorDetails(t *testing.T) {
	svc, repo, _, _ := newPassFixture(t)
	pending := seedPending(t, svc)

	p, err := svc.Update(context.Background(), staff(), pending.ID, domain.UpdatePassRequest{
		VisitorName:   "Asha V. Kulkarni",
		MobileNumber:  "9876500000",
		Email:         "asha.k@example.com",
		Category:      "Contractor",
		Purpose:       "Rack audit",
		VehicleNumber: "mh12ab1234",
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if p.VisitorName != "Asha V. Kulkarni" || p.MobileNumber != "9876500000" {
		t.Errorf("identity not rewritten: %q %q", p.VisitorName, p.MobileNumber)
	}
	if p.VehicleNumber != "MH12AB1234" {
		t.Errorf("vehicle number = %q", p.VehicleNumber)
	}

	stored, _ := repo.GetByID(context.Background(), pending.ID)
	if stored.VisitorName != "Asha V. Kulkarni" {
		t.Errorf("stored name = %q", stored.VisitorName)
	}
	if stored.Status != domain.PassPending {
		t.Errorf("status changed by update: %s", stored.Status)
	}
}

func TestUpdateBlockedOnceApproved(t *testing.T) {
	svc, repo, _, _ := newPassFixture(t)
	p, err := svc.Create(context.Background(), staff(), createReq()) // auto-approved
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	_, err = svc.Update(context.Background(), staff(), p.ID, domain.UpdatePassRequest{
		VisitorName:  "Someone Else",
		MobileNumber: "9000000000",
	})
	if domain.KindOf(err) != domain.KindInvalidState {
		t.Fatalf("expected invalid state, got %v", err)
	}

	stored, _ := repo.GetByID(context.Background(), p.ID)
	if stored.VisitorName != "Asha Verma" {
		t.Errorf("identity changed on a %s pass: %q", stored.Status, stored.VisitorName)
	}
}

func TestApproveRotatesCredentials(t *testing.T) {
	svc, _, _, bus := newPassFixture(t)
	pending := seedPending(t, svc)
	oldEntryHash := pending.EntryOTP.Hash

	host := Principal{Email: "host@example.com", Role: RoleHost}
	p, err := svc.Approve(context.Background(), host, pending.ID)
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if p.Status != domain.PassApproved {
		t.Fatalf("status = %s, want APPROVED", p.Status)
	}
	if p.ApprovedBy != "host@example.com" {
		t.Errorf("approved by = %q", p.ApprovedBy)
	}
	if p.EntryOTP.Hash == oldEntryHash {
		t.Error("entry credential not rotated on approval")
	}

	approved := bus.bySubject(events.PassApproved)
	if len(approved) != 1 {
		t.Fatalf("approved events = %d, want 1", len(approved))
	}
	ev := approved[0].Payload.(events.PassApprovedEvent)
	if !credentials.CompareOTP(p.EntryOTP.Hash, ev.EntryOTP) {
		t.Error("published entry code does not match rotated hash")
	}
}

func TestApproveRequiresPending(t *testing.T) {
	svc, _, _, _ := newPassFixture(t)
	p, err := svc.Create(context.Background(), staff(), createReq()) // auto-approved
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	_, err = svc.Approve(context.Background(), Principal{Role: RoleAdmin}, p.ID)
	if domain.KindOf(err) != domain.KindInvalidState {
		t.Fatalf("expected invalid state, got %v", err)
	}
}

func TestRejectDefaultsReason(t *testing.T) {
	svc, repo, _, bus := newPassFixture(t)
	pending := seedPending(t, svc)

	p, err := svc.Reject(context.Background(), Principal{Email: "host@example.com", Role: RoleHost}, pending.ID, "  ")
	if err != nil {
		t.Fatalf("Reject: %v", err)
	}
	if p.Status != domain.PassRejected {
		t.Fatalf("status = %s, want REJECTED", p.Status)
	}
	if p.RejectionReason != "Rejected by host" {
		t.Errorf("reason = %q", p.RejectionReason)
	}

	stored, _ := repo.GetByID(context.Background(), pending.ID)
	if stored.Status != domain.PassRejected {
		t.Errorf("stored status = %s", stored.Status)
	}
	if len(bus.bySubject(events.PassRejected)) != 1 {
		t.Error("rejection event not published")
	}
}

func TestRescheduleRecomputesWindow(t *testing.T) {
	svc, _, _, _ := newPassFixture(t)
	p, err := svc.Create(context.Background(), staff(), createReq())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	oldHash := p.EntryOTP.Hash

	moved, err := svc.Reschedule(context.Background(), staff(), p.ID, RescheduleRequest{
		VisitingDate: "2025-03-20",
		VisitingTime: "14:00:00",
	})
	if err != nil {
		t.Fatalf("Reschedule: %v", err)
	}
	want := time.Date(2025, 3, 20, 22, 0, 0, 0, time.UTC)
	if moved.ValidUntil == nil || !moved.ValidUntil.Equal(want) {
		t.Errorf("valid until = %v, want %v", moved.ValidUntil, want)
	}
	if moved.EntryOTP.Hash == oldHash {
		t.Error("credentials not rotated on reschedule")
	}
}

func TestReschedulePendingStillNotifies(t *testing.T) {
	svc, _, _, bus := newPassFixture(t)
	pending := seedPending(t, svc)

	moved, err := svc.Reschedule(context.Background(), staff(), pending.ID, RescheduleRequest{
		VisitingDate: "2025-03-18",
		VisitingTime: "11:00:00",
	})
	if err != nil {
		t.Fatalf("Reschedule: %v", err)
	}
	if moved.Status != domain.PassPending {
		t.Fatalf("status = %s, want PENDING", moved.Status)
	}

	msgs := bus.bySubject(events.PassScheduled)
	if len(msgs) != 1 {
		t.Fatalf("scheduled events = %d, want 1", len(msgs))
	}
	ev := msgs[0].Payload.(events.PassScheduledEvent)
	if !credentials.CompareOTP(moved.EntryOTP.Hash, ev.EntryOTP) {
		t.Error("published entry code does not match rotated hash")
	}
}

func TestRescheduleBlockedAfterEntry(t *testing.T) {
	svc, repo, _, _ := newPassFixture(t)
	p, err := svc.Create(context.Background(), staff(), createReq())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	entered := testNow
	_, err = repo.Mutate(context.Background(), p.ID, func(p *domain.Pass) (*domain.AuditEntry, error) {
		p.EntryTime = &entered
		p.IsInside = true
		return nil, nil
	})
	if err != nil {
		t.Fatalf("seed entry: %v", err)
	}

	_, err = svc.Reschedule(context.Background(), staff(), p.ID, RescheduleRequest{
		VisitingDate: "2025-03-20",
		VisitingTime: "14:00:00",
	})
	if domain.KindOf(err) != domain.KindInvalidState {
		t.Fatalf("expected invalid state, got %v", err)
	}
}

func TestCancelWhileInsideBlocked(t *testing.T) {
	svc, repo, _, _ := newPassFixture(t)
	p, err := svc.Create(context.Background(), staff(), createReq())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	_, err = repo.Mutate(context.Background(), p.ID, func(p *domain.Pass) (*domain.AuditEntry, error) {
		p.IsInside = true
		return nil, nil
	})
	if err != nil {
		t.Fatalf("seed inside: %v", err)
	}

	_, err = svc.Cancel(context.Background(), staff(), p.ID)
	if domain.KindOf(err) != domain.KindInvalidState {
		t.Fatalf("expected invalid state, got %v", err)
	}

	stored, _ := repo.GetByID(context.Background(), p.ID)
	if stored.Status != domain.PassApproved {
		t.Errorf("status changed on failed cancel: %s", stored.Status)
	}
}

func TestSweepExpired(t *testing.T) {
	svc, repo, _, _ := newPassFixture(t)
	p, err := svc.Create(context.Background(), staff(), createReq())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	stale := testNow.Add(-time.Hour)
	_, err = repo.Mutate(context.Background(), p.ID, func(p *domain.Pass) (*domain.AuditEntry, error) {
		p.ValidUntil = &stale
		return nil, nil
	})
	if err != nil {
		t.Fatalf("seed stale window: %v", err)
	}

	moved, err := svc.SweepExpired(context.Background())
	if err != nil {
		t.Fatalf("SweepExpired: %v", err)
	}
	if moved != 1 {
		t.Fatalf("moved = %d, want 1", moved)
	}
	stored, _ := repo.GetByID(context.Background(), p.ID)
	if stored.Status != domain.PassExpired {
		t.Errorf("status = %s, want EXPIRED", stored.Status)
	}

	// A second sweep finds nothing left to retire.
	moved, err = svc.SweepExpired(context.Background())
	if err != nil {
		t.Fatalf("second SweepExpired: %v", err)
	}
	if moved != 0 {
		t.Errorf("second sweep moved = %d, want 0", moved)
	}
}

func TestGetHidesRetiredPasses(t *testing.T) {
	svc, _, _, _ := newPassFixture(t)
	p, err := svc.Create(context.Background(), staff(), createReq())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := svc.Deactivate(context.Background(), Principal{Role: RoleAdmin}, p.ID); err != nil {
		t.Fatalf("Deactivate: %v", err)
	}

	_, err = svc.Get(context.Background(), p.ID)
	if domain.KindOf(err) != domain.KindNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}
