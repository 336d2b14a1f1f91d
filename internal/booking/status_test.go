package booking

import (
	"errors"
	"testing"
)

func TestTransitionTable(t *testing.T) {
	all := []Status{StatusPending, StatusConfirmed, StatusInProgress, StatusCompleted, StatusCancelled, StatusDisputed}
	legal := map[Status]map[Status]bool{
		StatusPending:    {StatusConfirmed: true, StatusCancelled: true},
		StatusConfirmed:  {StatusInProgress: true, StatusCancelled: true},
		StatusInProgress: {StatusCompleted: true},
		StatusCompleted:  {},
		StatusCancelled:  {},
		StatusDisputed:   {StatusCompleted: true, StatusCancelled: true},
	}

	for _, from := range all {
		for _, to := range all {
			b := Booking{ID: "b1", Status: from}
			err := Transition(&b, to)
			if legal[from][to] {
				if err != nil {
					t.Errorf("expected %s -> %s to be legal, got %v", from, to, err)
				}
				if b.Status != to {
					t.Errorf("transition %s -> %s did not apply, status=%s", from, to, b.Status)
				}
				continue
			}
			if err == nil {
				t.Errorf("expected %s -> %s to be rejected", from, to)
				continue
			}
			if !errors.Is(err, ErrIllegalTransition) {
				t.Errorf("expected ErrIllegalTransition for %s -> %s, got %v", from, to, err)
			}
			if b.Status != from {
				t.Errorf("rejected transition %s -> %s mutated status to %s", from, to, b.Status)
			}
		}
	}
}

func TestIllegalTransitionErrorNamesBothEnds(t *testing.T) {
	b := Booking{Status: StatusCompleted}
	err := Transition(&b, StatusConfirmed)
	var ite *IllegalTransitionError
	if !errors.As(err, &ite) {
		t.Fatalf("expected IllegalTransitionError, got %v", err)
	}
	if ite.From != StatusCompleted || ite.To != StatusConfirmed {
		t.Fatalf("error missing endpoints: %+v", ite)
	}
}

func TestDisputeFromAnyNonTerminalStatus(t *testing.T) {
	for _, from := range []Status{StatusPending, StatusConfirmed, StatusInProgress} {
		b := Booking{Status: from}
		if err := Dispute(&b, "no-show"); err != nil {
			t.Fatalf("dispute from %s: %v", from, err)
		}
		if b.Status != StatusDisputed {
			t.Fatalf("expected disputed, got %s", b.Status)
		}
		if b.DisputeReason != "no-show" {
			t.Fatalf("reason not recorded: %q", b.DisputeReason)
		}
	}
}

func TestDisputeRejectedForTerminalAndDisputed(t *testing.T) {
	for _, from := range []Status{StatusCompleted, StatusCancelled} {
		b := Booking{Status: from}
		if err := Dispute(&b, "late"); !errors.Is(err, ErrBookingTerminal) {
			t.Fatalf("dispute from %s: expected ErrBookingTerminal, got %v", from, err)
		}
	}

	b := Booking{Status: StatusDisputed}
	if err := Dispute(&b, "again"); !errors.Is(err, ErrAlreadyDisputed) {
		t.Fatalf("expected ErrAlreadyDisputed, got %v", err)
	}
}

func TestTerminalStatuses(t *testing.T) {
	if !StatusCompleted.Terminal() || !StatusCancelled.Terminal() {
		t.Fatal("completed and cancelled must be terminal")
	}
	for _, s := range []Status{StatusPending, StatusConfirmed, StatusInProgress, StatusDisputed} {
		if s.Terminal() {
			t.Fatalf("%s must not be terminal", s)
		}
	}
}
