package auth

import "strings"

// Role represents a staff role.
type Role string

const (
	// RoleViewer is for wall displays and read-only dashboards.
	RoleViewer Role = "viewer"
	// RoleOperator is front desk staff running sessions and the waiting list.
	RoleOperator Role = "operator"
	// RoleAdmin may correct running timers and export reports.
	RoleAdmin Role = "admin"
)

// NormalizeRole validates and normalizes a role string.
func NormalizeRole(value string) (Role, bool) {
	switch role := Role(strings.ToLower(strings.TrimSpace(value))); role {
	case RoleViewer, RoleOperator, RoleAdmin:
		return role, true
	default:
		return "", false
	}
}

// RoleAtLeast returns true when role satisfies required role.
func RoleAtLeast(role Role, required Role) bool {
	return roleRank(role) >= roleRank(required) && roleRank(role) > 0
}

func roleRank(role Role) int {
	switch role {
	case RoleViewer:
		return 1
	case RoleOperator:
		return 2
	case RoleAdmin:
		return 3
	default:
		return 0
	}
}
