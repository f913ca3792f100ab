package domain

import "time"

// PassFilter is the typed query surface for pass listings. Zero values
// mean "no constraint".
type PassFilter struct {
	Category  string
	PassType  *PassType
	Status    *PassStatus
	FromDate  *time.Time
	ToDate    *time.Time
	Search    string // matched against visitor name, mobile and pass code
	CreatedBy string
	Inside    *bool
	Limit     int
	Offset    int
}

// Normalize clamps pagination to sane bounds.
func (f *PassFilter) Normalize() {
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 20
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
}

// DashboardStats is the occupancy summary shown on the gate dashboard.
type DashboardStats struct {
	VisitorsToday    int64 `json:"visitors_today"`
	PendingApprovals int64 `json:"pending_approvals"`
	CheckedIn        int64 `json:"checked_in"`
	CheckedOut       int64 `json:"checked_out"`
	ApprovedToday    int64 `json:"approved_today"`
}
