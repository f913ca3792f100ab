package service

import (
	"testing"
	"time"

	"github.com/smartcheck/gatepass/internal/domain"
)

func TestValidUntilSingleUse(t *testing.T) {
	loc := time.UTC
	p := &domain.Pass{
		PassType:     domain.PassSingleUse,
		VisitingDate: time.Date(2025, 3, 14, 0, 0, 0, 0, loc),
		VisitingTime: time.Date(0, 1, 1, 9, 30, 0, 0, time.UTC),
		AllowedHours: 8,
	}

	got, err := validUntil(p, loc)
	if err != nil {
		t.Fatalf("validUntil: %v", err)
	}
	want := time.Date(2025, 3, 14, 17, 30, 0, 0, loc)
	if !got.Equal(want) {
		t.Errorf("valid until = %v, want %v", got, want)
	}
}

func TestValidUntilRecurring(t *testing.T) {
	loc := time.UTC
	p := &domain.Pass{
		PassType:      domain.PassRecurring,
		VisitingDate:  time.Date(2025, 3, 14, 0, 0, 0, 0, loc),
		VisitingTime:  time.Date(0, 1, 1, 9, 0, 0, 0, time.UTC),
		RecurringDays: 30,
	}

	got, err := validUntil(p, loc)
	if err != nil {
		t.Fatalf("validUntil: %v", err)
	}
	want := time.Date(2025, 4, 13, 9, 0, 0, 0, loc)
	if !got.Equal(want) {
		t.Errorf("valid until = %v, want %v", got, want)
	}
}

func TestValidUntilRecurringRequiresDays(t *testing.T) {
	p := &domain.Pass{
		PassType:     domain.PassRecurring,
		VisitingDate: time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC),
	}

	_, err := validUntil(p, time.UTC)
	if domain.KindOf(err) != domain.KindConfiguration {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestEnsureValidUntilKeepsExisting(t *testing.T) {
	granted := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	p := &domain.Pass{
		PassType:     domain.PassSingleUse,
		VisitingDate: time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC),
		AllowedHours: 8,
		ValidUntil:   &granted,
	}

	if err := ensureValidUntil(p, time.UTC); err != nil {
		t.Fatalf("ensureValidUntil: %v", err)
	}
	if !p.ValidUntil.Equal(granted) {
		t.Errorf("valid until overwritten: %v", p.ValidUntil)
	}
}
