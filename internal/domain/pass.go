package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type PassType string

const (
	PassSingleUse PassType = "SINGLE_USE"
	PassRecurring PassType = "RECURRING"
)

func ParsePassType(s string) (PassType, bool) {
	switch PassType(strings.ToUpper(s)) {
	case PassSingleUse, PassRecurring:
		return PassType(strings.ToUpper(s)), true
	default:
		return "", false
	}
}

type PassStatus string

const (
	PassPending   PassStatus = "PENDING"
	PassApproved  PassStatus = "APPROVED"
	PassRejected  PassStatus = "REJECTED"
	PassExpired   PassStatus = "EXPIRED"
	PassCancelled PassStatus = "CANCELLED"
)

func ParsePassStatus(s string) (PassStatus, bool) {
	switch PassStatus(strings.ToUpper(s)) {
	case PassPending, PassApproved, PassRejected, PassExpired, PassCancelled:
		return PassStatus(strings.ToUpper(s)), true
	default:
		return "", false
	}
}

type Gender string

const (
	GenderMale        Gender = "M"
	GenderFemale      Gender = "F"
	GenderOther       Gender = "O"
	GenderUndisclosed Gender = "P"
)

// Credential is one hashed OTP together with its consumption state.
// The hash and the used-flag are tracked separately so that "wrong code"
// and "code already consumed" stay distinguishable.
type Credential struct {
	Hash     string `json:"-"`
	Consumed bool   `json:"consumed"`
}

// Usable reports whether the credential can still gate an action.
func (c Credential) Usable() bool {
	return c.Hash != "" && !c.Consumed
}

// Consume marks the credential spent and drops the hash.
func (c *Credential) Consume() {
	c.Hash = ""
	c.Consumed = true
}

// Pass is the aggregate root for one visitor's authorized visit window.
type Pass struct {
	ID       uuid.UUID `json:"id"`
	PassCode string    `json:"pass_code"`

	VisitorName  string `json:"visitor_name"`
	MobileNumber string `json:"mobile_number"`
	Email        string `json:"email"`
	Gender       Gender `json:"gender"`
	Category     string `json:"category"`
	ComingFrom   string `json:"coming_from"`
	Purpose      string `json:"purpose"`
	HostEmail    string `json:"host_email,omitempty"`

	VehicleNumber string `json:"vehicle_number,omitempty"`
	VehicleType   string `json:"vehicle_type,omitempty"`

	PassType      PassType   `json:"pass_type"`
	VisitingDate  time.Time  `json:"visiting_date"` // date component only
	VisitingTime  time.Time  `json:"visiting_time"` // clock component only
	AllowedHours  int        `json:"allowed_hours"`
	RecurringDays int        `json:"recurring_days,omitempty"`
	ValidUntil    *time.Time `json:"valid_until,omitempty"`

	Status          PassStatus `json:"status"`
	ApprovedBy      string     `json:"approved_by,omitempty"`
	ApprovedAt      *time.Time `json:"approved_at,omitempty"`
	RejectionReason string     `json:"rejection_reason,omitempty"`

	EntryOTP Credential `json:"-"`
	ExitOTP  Credential `json:"-"`

	IsInside  bool       `json:"is_inside"`
	EntryTime *time.Time `json:"entry_time,omitempty"`
	ExitTime  *time.Time `json:"exit_time,omitempty"`

	CreatedBy string    `json:"created_by"`
	IsActive  bool      `json:"is_active"`
	Version   int64     `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ScheduledStart combines the visit date and time in the facility zone.
func (p *Pass) ScheduledStart(loc *time.Location) time.Time {
	d := p.VisitingDate
	t := p.VisitingTime
	return time.Date(d.Year(), d.Month(), d.Day(), t.Hour(), t.Minute(), t.Second(), 0, loc)
}

// Terminal reports whether the pass can no longer move forward.
func (p *Pass) Terminal() bool {
	switch p.Status {
	case PassRejected, PassExpired, PassCancelled:
		return true
	}
	return false
}

// HasEntered reports whether the visitor ever crossed the gate.
func (p *Pass) HasEntered() bool {
	return p.EntryTime != nil || p.IsInside
}

// Stage resolves the display stage for progress views.
func (p *Pass) Stage() string {
	switch {
	case p.IsInside:
		return "inside"
	case p.EntryTime != nil:
		return "visited"
	case p.Status == PassApproved:
		return "awaiting_arrival"
	default:
		return strings.ToLower(string(p.Status))
	}
}

// CreatePassRequest is the creation payload consumed by the lifecycle engine.
type CreatePassRequest struct {
	VisitorName   string   `json:"visitor_name"`
	MobileNumber  string   `json:"mobile_number"`
	Email         string   `json:"email"`
	Gender        Gender   `json:"gender"`
	Category      string   `json:"category"`
	ComingFrom    string   `json:"coming_from"`
	Purpose       string   `json:"purpose"`
	HostEmail     string   `json:"host_email"`
	VehicleNumber string   `json:"vehicle_number"`
	VehicleType   string   `json:"vehicle_type"`
	PassType      PassType `json:"pass_type"`
	VisitingDate  string   `json:"visiting_date"` // YYYY-MM-DD
	VisitingTime  string   `json:"visiting_time"` // HH:MM:SS
	AllowedHours  int      `json:"allowed_hours"`
	RecurringDays int      `json:"recurring_days"`
}

// UpdatePassRequest carries the visitor identity fields that may change
// while a pass is still awaiting review. Scheduling moves through
// reschedule, never through here.
type UpdatePassRequest struct {
	VisitorName   string `json:"visitor_name"`
	MobileNumber  string `json:"mobile_number"`
	Email         string `json:"email"`
	Gender        Gender `json:"gender"`
	Category      string `json:"category"`
	ComingFrom    string `json:"coming_from"`
	Purpose       string `json:"purpose"`
	HostEmail     string `json:"host_email"`
	VehicleNumber string `json:"vehicle_number"`
	VehicleType   string `json:"vehicle_type"`
}

// PassSnapshot is the public view returned to gate kiosks and list
// endpoints. It never includes credential material.
type PassSnapshot struct {
	ID           uuid.UUID  `json:"id"`
	PassCode     string     `json:"pass_code"`
	VisitorName  string     `json:"visitor_name"`
	MobileNumber string     `json:"mobile_number"`
	Email        string     `json:"email"`
	Category     string     `json:"category"`
	Purpose      string     `json:"purpose"`
	PassType     PassType   `json:"pass_type"`
	Status       PassStatus `json:"status"`
	VisitingDate string     `json:"visiting_date"`
	VisitingTime string     `json:"visiting_time"`
	ValidUntil   *time.Time `json:"valid_until,omitempty"`
	IsInside     bool       `json:"is_inside"`
	EntryTime    *time.Time `json:"entry_time,omitempty"`
	ExitTime     *time.Time `json:"exit_time,omitempty"`
	CreatedBy    string     `json:"created_by"`
}

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04:05"
)

// Snapshot builds the public view of a pass.
func (p *Pass) Snapshot() PassSnapshot {
	return PassSnapshot{
		ID:           p.ID,
		PassCode:     p.PassCode,
		VisitorName:  p.VisitorName,
		MobileNumber: p.MobileNumber,
		Email:        p.Email,
		Category:     p.Category,
		Purpose:      p.Purpose,
		PassType:     p.PassType,
		Status:       p.Status,
		VisitingDate: p.VisitingDate.Format(dateLayout),
		VisitingTime: p.VisitingTime.Format(timeLayout),
		ValidUntil:   p.ValidUntil,
		IsInside:     p.IsInside,
		EntryTime:    p.EntryTime,
		ExitTime:     p.ExitTime,
		CreatedBy:    p.CreatedBy,
	}
}
