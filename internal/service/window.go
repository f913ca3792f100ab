package service

import (
	"time"

	"github.com/smartcheck/gatepass/internal/domain"
)

// validUntil computes when a pass stops admitting entries, anchored on
// its scheduled start in the facility zone.
//
// Single-use passes live for the allowed number of hours. Recurring
// passes live for the configured number of days; a recurring pass
// without a day count is a data error, not a default.
func validUntil(p *domain.Pass, loc *time.Location) (time.Time, error) {
	start := p.ScheduledStart(loc)
	switch p.PassType {
	case domain.PassRecurring:
		if p.RecurringDays <= 0 {
			return time.Time{}, domain.ConfigurationErr("recurring pass requires recurring_days")
		}
		return start.AddDate(0, 0, p.RecurringDays), nil
	default:
		hours := p.AllowedHours
		if hours <= 0 {
			return time.Time{}, domain.ConfigurationErr("pass requires allowed_hours")
		}
		return start.Add(time.Duration(hours) * time.Hour), nil
	}
}

// ensureValidUntil fills in the expiry only when it is unset, so an
// explicitly granted window survives later transitions.
func ensureValidUntil(p *domain.Pass, loc *time.Location) error {
	if p.ValidUntil != nil {
		return nil
	}
	vu, err := validUntil(p, loc)
	if err != nil {
		return err
	}
	p.ValidUntil = &vu
	return nil
}
