package timers

import (
	"errors"
	"testing"
)

func TestEvaluateThresholds(t *testing.T) {
	cases := []struct {
		remaining int64
		want      Status
	}{
		{3_600_000, StatusRunning},
		{300_001, StatusRunning},
		{300_000, StatusWarning},
		{1, StatusWarning},
		{0, StatusFinished},
		{-120_000, StatusFinished},
	}
	for _, tc := range cases {
		if got := Evaluate(tc.remaining, DefaultWarningThresholdMs); got != tc.want {
			t.Fatalf("remaining %d: expected %s, got %s", tc.remaining, tc.want, got)
		}
	}
	if got := Evaluate(-120_000+60*MsPerMinute, DefaultWarningThresholdMs); got != StatusRunning {
		t.Fatalf("expected running after extension, got %s", got)
	}
}

func TestCheckActionTable(t *testing.T) {
	all := []Status{StatusIdle, StatusRunning, StatusWarning, StatusFinished, StatusStopped}
	allowed := map[Action][]Status{
		ActionSetDuration: {StatusIdle},
		ActionStart:       {StatusIdle, StatusStopped},
		ActionExtend:      {StatusRunning, StatusWarning, StatusFinished},
		ActionAdjust:      {StatusRunning, StatusWarning, StatusFinished},
		ActionTick:        {StatusRunning, StatusWarning, StatusFinished},
		ActionStop:        {StatusRunning, StatusWarning, StatusFinished},
		ActionReset:       {StatusStopped},
	}
	for action, legal := range allowed {
		set := map[Status]bool{}
		for _, s := range legal {
			set[s] = true
		}
		for _, from := range all {
			if got := CheckAction(from, action); got != set[from] {
				t.Fatalf("%s from %s: expected %v, got %v", action, from, set[from], got)
			}
		}
	}
	if CheckAction(StatusIdle, Action("bogus")) {
		t.Fatalf("unknown action must be rejected")
	}
}

func TestTransitionErrorUnwraps(t *testing.T) {
	var err error = &TransitionError{Action: ActionReset, StationID: "t1", From: StatusRunning}
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition")
	}
}

func TestCreditAndCharge(t *testing.T) {
	state := NewIdleState("t1")
	state.Credit(PaymentCash, Charge(45, 90))
	state.Credit(PaymentDeferred, Charge(45, 20))
	if state.PaidAmount != 67.5 || state.UnpaidAmount != 15 {
		t.Fatalf("unexpected amounts: paid=%v unpaid=%v", state.PaidAmount, state.UnpaidAmount)
	}
	if _, err := ParsePaymentKind("crypto"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	if kind, _ := ParsePaymentKind(" Card "); kind != PaymentCard {
		t.Fatalf("expected card, got %s", kind)
	}
}

func TestCloneCopiesStartedAt(t *testing.T) {
	at := int64(1000)
	state := TimerState{StationID: "t1", Status: StatusRunning, StartedAtEpochMs: &at}
	clone := state.Clone()
	*clone.StartedAtEpochMs = 2000
	if *state.StartedAtEpochMs != 1000 {
		t.Fatalf("clone shares pointer")
	}
}
