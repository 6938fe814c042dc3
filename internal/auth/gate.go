package auth

import "context"

// ContextGate authorizes timer adjustments for admins whose token covers the station.
type ContextGate struct{}

// AllowAdjust reports whether the caller may correct stationID's timer.
func (ContextGate) AllowAdjust(ctx context.Context, stationID string) bool {
	id, ok := IdentityFromContext(ctx)
	if !ok {
		return false
	}
	return RoleAtLeast(id.Role, RoleAdmin) && id.Stations.Allows(stationID)
}
