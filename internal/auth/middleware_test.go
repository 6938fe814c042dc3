package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func serve(t *testing.T, handler http.Handler, method, path, token string) int {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	return resp.Code
}

func TestAuthMiddleware_NoToken(t *testing.T) {
	handler := NewMiddleware([]byte("test-secret"), NewPolicy()).Wrap(okHandler())
	if code := serve(t, handler, http.MethodGet, "/api/v1/stations", ""); code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", code)
	}
}

func TestAuthMiddleware_RolesPerStationAction(t *testing.T) {
	secret := []byte("test-secret")
	handler := NewMiddleware(secret, NewPolicy()).Wrap(okHandler())
	viewer := mustToken(t, secret, "viewer", nil)
	operator := mustToken(t, secret, "operator", nil)
	admin := mustToken(t, secret, "admin", nil)

	cases := []struct {
		method, path, token string
		want                int
	}{
		{http.MethodGet, "/api/v1/stations/table-1", viewer, http.StatusOK},
		{http.MethodGet, "/api/v1/stations/table-1/queue", viewer, http.StatusOK},
		{http.MethodPost, "/api/v1/stations/table-1/start", viewer, http.StatusForbidden},
		{http.MethodPost, "/api/v1/stations/table-1/start", operator, http.StatusOK},
		{http.MethodPost, "/api/v1/stations/table-1/queue/promote", operator, http.StatusOK},
		{http.MethodPost, "/api/v1/stations/table-1/adjust", operator, http.StatusForbidden},
		{http.MethodPost, "/api/v1/stations/table-1/adjust", admin, http.StatusOK},
		{http.MethodGet, "/api/v1/overtime", viewer, http.StatusOK},
		{http.MethodGet, "/api/v1/overtime/export.xlsx", operator, http.StatusForbidden},
		{http.MethodPost, "/api/v1/alarms/table-1/ack", operator, http.StatusOK},
	}
	for _, tc := range cases {
		if code := serve(t, handler, tc.method, tc.path, tc.token); code != tc.want {
			t.Fatalf("%s %s: expected %d, got %d", tc.method, tc.path, tc.want, code)
		}
	}
}

func TestAuthMiddleware_StationScope(t *testing.T) {
	secret := []byte("test-secret")
	var seen Identity
	handler := NewMiddleware(secret, NewPolicy()).Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = IdentityFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))
	desk := mustToken(t, secret, "operator", []string{"table-1", "table-2"})

	if code := serve(t, handler, http.MethodPost, "/api/v1/stations/table-2/stop", desk); code != http.StatusOK {
		t.Fatalf("expected scoped station to pass, got %d", code)
	}
	if seen.Subject != "user-1" || seen.Role != RoleOperator || !seen.Stations.Allows("table-1") || seen.Stations.Allows("ps-1") {
		t.Fatalf("unexpected identity %+v", seen)
	}
	if code := serve(t, handler, http.MethodPost, "/api/v1/stations/ps-1/stop", desk); code != http.StatusForbidden {
		t.Fatalf("expected station outside scope to be forbidden, got %d", code)
	}
	if code := serve(t, handler, http.MethodGet, "/api/v1/stations", desk); code != http.StatusOK {
		t.Fatalf("listing is not station scoped, got %d", code)
	}
}

func TestAuthMiddleware_ExemptAndAdminGate(t *testing.T) {
	secret := []byte("test-secret")
	var allowed bool
	handler := NewMiddleware(secret, NewPolicy(WithExemptPaths("/healthz"))).Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowed = ContextGate{}.AllowAdjust(r.Context(), "table-1")
		w.WriteHeader(http.StatusOK)
	}))

	if code := serve(t, handler, http.MethodGet, "/healthz", ""); code != http.StatusOK || allowed {
		t.Fatalf("expected exempt 200 without admin, got %d allowed=%v", code, allowed)
	}

	token, err := IssueJWT(secret, "manager", RoleAdmin, nil, time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if code := serve(t, handler, http.MethodPost, "/api/v1/stations/table-1/adjust", token); code != http.StatusOK || !allowed {
		t.Fatalf("expected admin to pass, got %d allowed=%v", code, allowed)
	}
}

func TestContextGateChecksRoleAndScope(t *testing.T) {
	gate := ContextGate{}
	if gate.AllowAdjust(context.Background(), "table-1") {
		t.Fatalf("anonymous context must not adjust")
	}
	operator := WithIdentity(context.Background(), Identity{Subject: "desk", Role: RoleOperator})
	if gate.AllowAdjust(operator, "table-1") {
		t.Fatalf("operator must not adjust")
	}
	admin := WithIdentity(context.Background(), Identity{Subject: "floor", Role: RoleAdmin, Stations: NewScope([]string{"room-vip"})})
	if !gate.AllowAdjust(admin, "room-vip") || gate.AllowAdjust(admin, "table-1") {
		t.Fatalf("admin scope must be honoured")
	}
}

func TestScopeAndStationRoutes(t *testing.T) {
	if !NewScope(nil).All() || !NewScope([]string{"ps-1", "*"}).All() || !NewScope([]string{" ", ""}).All() {
		t.Fatalf("empty, blank and wildcard scopes cover every station")
	}
	if got := NewScope([]string{"ps-2", " ps-1 "}).StationIDs(); len(got) != 2 || got[0] != "ps-1" || got[1] != "ps-2" {
		t.Fatalf("unexpected scoped ids %v", got)
	}

	cases := map[string]StationRoute{
		"/api/v1/stations/table-1":               {StationID: "table-1"},
		"/api/v1/stations/table-1/adjust":        {StationID: "table-1", Action: "adjust"},
		"/api/v1/stations/table-1/queue/abc":     {StationID: "table-1", Action: "queue"},
		"/api/v1/stations/table-1/queue/promote": {StationID: "table-1", Action: "queue-promote"},
	}
	for path, want := range cases {
		got, ok := ParseStationRoute(path)
		if !ok || got != want {
			t.Fatalf("%s: expected %+v, got %+v ok=%v", path, want, got, ok)
		}
	}
	if _, ok := ParseStationRoute("/api/v1/stations/"); ok {
		t.Fatalf("bare prefix is not a station route")
	}
}

func TestIssuedTokenCarriesScope(t *testing.T) {
	secret := []byte("test-secret")
	token, err := IssueJWT(secret, "desk-3", RoleOperator, []string{"ps-1"}, time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	claims, err := ParseJWT(token, secret)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	id := claims.Identity()
	if id.Subject != "desk-3" || id.Role != RoleOperator || !id.Stations.Allows("ps-1") || id.Stations.Allows("ps-2") {
		t.Fatalf("unexpected identity %+v", id)
	}
}

func TestParseJWTRejectsExpired(t *testing.T) {
	secret := []byte("test-secret")
	claims := Claims{
		Role: "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := ParseJWT(signed, secret); err == nil {
		t.Fatalf("expected expired token to fail")
	}
}

func mustToken(t *testing.T, secret []byte, role string, stations []string) string {
	t.Helper()
	claims := Claims{
		Role:     role,
		Stations: stations,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-time.Minute)),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}
