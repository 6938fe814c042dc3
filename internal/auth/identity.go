package auth

import (
	"context"
	"sort"
	"strings"
)

// Scope limits a token to a set of stations. The zero Scope covers every station.
type Scope struct {
	ids map[string]struct{}
}

// NewScope builds a scope from station ids. Blank ids are ignored; "*" or an
// empty list covers every station.
func NewScope(stationIDs []string) Scope {
	ids := make(map[string]struct{}, len(stationIDs))
	for _, id := range stationIDs {
		id = strings.TrimSpace(id)
		if id == "*" {
			return Scope{}
		}
		if id != "" {
			ids[id] = struct{}{}
		}
	}
	if len(ids) == 0 {
		return Scope{}
	}
	return Scope{ids: ids}
}

// All reports whether the scope is unrestricted.
func (s Scope) All() bool {
	return len(s.ids) == 0
}

// Allows reports whether stationID is inside the scope.
func (s Scope) Allows(stationID string) bool {
	if s.All() {
		return true
	}
	_, ok := s.ids[stationID]
	return ok
}

// StationIDs lists the scoped stations, nil when unrestricted.
func (s Scope) StationIDs() []string {
	if s.All() {
		return nil
	}
	out := make([]string, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Identity is the authenticated front desk caller.
type Identity struct {
	Subject  string
	Role     Role
	Stations Scope
}

type identityKey struct{}

// WithIdentity stores the caller in ctx.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext returns the caller stored by the middleware.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	if ctx == nil {
		return Identity{}, false
	}
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}

// RoleFromContext returns the caller's role, empty when unauthenticated.
func RoleFromContext(ctx context.Context) Role {
	id, _ := IdentityFromContext(ctx)
	return id.Role
}

// SubjectFromContext returns the caller's subject.
func SubjectFromContext(ctx context.Context) string {
	id, _ := IdentityFromContext(ctx)
	return id.Subject
}
