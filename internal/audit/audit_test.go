package audit

import (
	"net/http/httptest"
	"strings"
	"testing"
)

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest("POST", "/api/v1/stations/t1/adjust", nil)
	r.RemoteAddr = "10.0.0.7:51234"
	if got := ClientIP(r); got != "10.0.0.7" {
		t.Fatalf("remote addr: got %q", got)
	}
	r.Header.Set("X-Forwarded-For", "192.168.1.20, 10.0.0.1")
	if got := ClientIP(r); got != "192.168.1.20" {
		t.Fatalf("forwarded: got %q", got)
	}
}

func TestDigestAndID(t *testing.T) {
	if DigestJSON(nil) != "" {
		t.Fatalf("empty payload must have no digest")
	}
	a := DigestJSON([]byte(`{"delta_minutes":5}`))
	if len(a) != 64 || a == DigestJSON([]byte(`{"delta_minutes":6}`)) {
		t.Fatalf("unexpected digest %q", a)
	}
	if id := NewID(); !strings.HasPrefix(id, "audit-") || id == NewID() {
		t.Fatalf("unexpected id %q", id)
	}
}
