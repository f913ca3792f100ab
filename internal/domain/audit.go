package domain

import (
	"time"

	"github.com/google/uuid"
)

type GateAction string

const (
	ActionEntry         GateAction = "ENTRY"
	ActionExit          GateAction = "EXIT"
	ActionRejectedEntry GateAction = "REJECTED_ENTRY"
	ActionEmergencyExit GateAction = "EMERGENCY_EXIT"
)

// AuditEntry is one immutable record of a gate outcome. Entries are
// append-only: nothing in the system updates or deletes them.
type AuditEntry struct {
	ID        uuid.UUID         `json:"id"`
	PassID    uuid.UUID         `json:"pass_id"`
	PassCode  string            `json:"pass_code"`
	Action    GateAction        `json:"action"`
	Actor     string            `json:"actor,omitempty"`
	Notes     string            `json:"notes,omitempty"`
	Context   map[string]string `json:"context,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// NewAuditEntry stamps a fresh entry for a pass.
func NewAuditEntry(p *Pass, action GateAction, actor, notes string, deviceCtx map[string]string) *AuditEntry {
	return &AuditEntry{
		ID:       uuid.New(),
		PassID:   p.ID,
		PassCode: p.PassCode,
		Action:   action,
		Actor:    actor,
		Notes:    notes,
		Context:  deviceCtx,
	}
}
