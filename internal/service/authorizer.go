package service

import (
	"fmt"

	"github.com/smartcheck/gatepass/internal/domain"
)

// Principal identifies who is asking for an operation. It comes from
// the authenticated session; the service never trusts request bodies
// for actor identity.
type Principal struct {
	ID    string
	Email string
	Role  string
}

// Actions subject to authorization.
const (
	ActionCreatePass    = "create_pass"
	ActionUpdatePass    = "update_pass"
	ActionApprovePass   = "approve_pass"
	ActionRejectPass    = "reject_pass"
	ActionCancelPass    = "cancel_pass"
	ActionReschedule    = "reschedule_pass"
	ActionDeactivate    = "deactivate_pass"
	ActionGateScan      = "gate_scan"
	ActionEmergencyExit = "emergency_exit"
	ActionViewDashboard = "view_dashboard"
	ActionManageRefs    = "manage_reference_data"
)

// Authorizer decides whether a principal may perform an action.
type Authorizer interface {
	IsPermitted(p Principal, action string) error
}

// RoleAuthorizer grants actions by role. Admins hold every grant.
type RoleAuthorizer struct {
	grants map[string]map[string]bool
}

const (
	RoleAdmin        = "admin"
	RoleReceptionist = "receptionist"
	RoleHost         = "host"
	RoleGuard        = "guard"
)

func NewRoleAuthorizer() *RoleAuthorizer {
	return &RoleAuthorizer{
		grants: map[string]map[string]bool{
			RoleReceptionist: {
				ActionCreatePass:    true,
				ActionUpdatePass:    true,
				ActionCancelPass:    true,
				ActionReschedule:    true,
				ActionViewDashboard: true,
			},
			RoleHost: {
				ActionCreatePass:  true,
				ActionUpdatePass:  true,
				ActionApprovePass: true,
				ActionRejectPass:  true,
				ActionCancelPass:  true,
				ActionReschedule:  true,
			},
			RoleGuard: {
				ActionGateScan:      true,
				ActionEmergencyExit: true,
				ActionViewDashboard: true,
			},
		},
	}
}

func (a *RoleAuthorizer) IsPermitted(p Principal, action string) error {
	if p.Role == RoleAdmin {
		return nil
	}
	if a.grants[p.Role][action] {
		return nil
	}
	return domain.PermissionDenied(fmt.Sprintf("role %q may not perform %s", p.Role, action))
}
