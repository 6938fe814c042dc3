package alerts

import "testing"

func TestPhaseFor(t *testing.T) {
	cases := map[string]Phase{
		"warning":  PhaseWarning,
		"finished": PhaseFinished,
		"running":  PhaseSilent,
		"idle":     PhaseSilent,
	}
	for status, want := range cases {
		got, ok := PhaseFor(status)
		if !ok || got != want {
			t.Fatalf("%s: expected %s, got %s ok=%v", status, want, got, ok)
		}
	}
	if _, ok := PhaseFor("stopped"); ok {
		t.Fatalf("stopped must not drive the alarm")
	}
}
