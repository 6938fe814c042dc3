package auth

import (
	"net/http"
	"strings"
)

const stationsPrefix = "/api/v1/stations/"

// StationRoute is the station and action a request targets. Action is empty
// for reads of the station itself; queue routes use "queue" and "queue-promote".
type StationRoute struct {
	StationID string
	Action    string
}

// ParseStationRoute extracts the station route from a request path.
func ParseStationRoute(path string) (StationRoute, bool) {
	if !strings.HasPrefix(path, stationsPrefix) {
		return StationRoute{}, false
	}
	parts := strings.Split(strings.TrimPrefix(path, stationsPrefix), "/")
	if parts[0] == "" {
		return StationRoute{}, false
	}
	route := StationRoute{StationID: parts[0]}
	if len(parts) > 1 {
		route.Action = parts[1]
	}
	if route.Action == "queue" && len(parts) > 2 && parts[2] == "promote" {
		route.Action = "queue-promote"
	}
	return route, true
}

// Requirement is what a request needs from the caller's token.
type Requirement struct {
	Role      Role
	StationID string
}

// Policy maps requests to requirements.
type Policy struct {
	exemptPaths map[string]struct{}
	actionRoles map[string]Role
}

// PolicyOption customizes a policy.
type PolicyOption func(*Policy)

// WithExemptPaths skips auth for exact paths such as /metrics.
func WithExemptPaths(paths ...string) PolicyOption {
	return func(p *Policy) {
		for _, path := range paths {
			p.exemptPaths[path] = struct{}{}
		}
	}
}

// WithActionRole sets the role required for a station action.
func WithActionRole(action string, role Role) PolicyOption {
	return func(p *Policy) {
		if _, ok := NormalizeRole(string(role)); ok && action != "" {
			p.actionRoles[action] = role
		}
	}
}

// NewPolicy builds the venue policy: viewers read, operators run stations and
// the waiting list, admins adjust timers and export reports.
func NewPolicy(opts ...PolicyOption) Policy {
	p := Policy{
		exemptPaths: make(map[string]struct{}),
		actionRoles: map[string]Role{"adjust": RoleAdmin},
	}
	for _, opt := range opts {
		opt(&p)
	}
	return p
}

// IsExempt reports whether a request skips authentication.
func (p Policy) IsExempt(r *http.Request) bool {
	if r == nil || r.Method == http.MethodOptions {
		return true
	}
	_, ok := p.exemptPaths[r.URL.Path]
	return ok
}

// Resolve returns the requirement for r; false means the route is public.
func (p Policy) Resolve(r *http.Request) (Requirement, bool) {
	if r == nil {
		return Requirement{}, false
	}
	path := r.URL.Path
	read := r.Method == http.MethodGet || r.Method == http.MethodHead

	if route, ok := ParseStationRoute(path); ok {
		req := Requirement{Role: RoleOperator, StationID: route.StationID}
		if role, ok := p.actionRoles[route.Action]; ok {
			req.Role = role
		} else if read {
			req.Role = RoleViewer
		}
		return req, true
	}

	switch {
	case strings.HasPrefix(path, "/api/v1/overtime/export."):
		return Requirement{Role: RoleAdmin}, true
	case !strings.HasPrefix(path, "/api/"):
		return Requirement{}, false
	case read:
		return Requirement{Role: RoleViewer}, true
	default:
		return Requirement{Role: RoleOperator}, true
	}
}
