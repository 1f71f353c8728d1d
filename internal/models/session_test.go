package models

import "testing"

func TestSessionStatusTransitions(t *testing.T) {
	cases := []struct {
		from, to SessionStatus
		want     bool
	}{
		{SessionDraft, SessionActive, true},
		{SessionActive, SessionEnded, true},
		{SessionDraft, SessionEnded, false},
		{SessionDraft, SessionDraft, false},
		{SessionActive, SessionDraft, false},
		{SessionEnded, SessionActive, false},
		{SessionEnded, SessionDraft, false},
		{SessionEnded, SessionEnded, false},
	}
	for _, tc := range cases {
		if got := tc.from.CanTransitionTo(tc.to); got != tc.want {
			t.Errorf("CanTransitionTo(%s -> %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestJoinableByParticipants(t *testing.T) {
	for _, tc := range []struct {
		status SessionStatus
		want   bool
	}{
		{SessionDraft, true},
		{SessionActive, true},
		{SessionEnded, false},
	} {
		s := &Session{Status: tc.status}
		if got := s.JoinableByParticipants(); got != tc.want {
			t.Errorf("JoinableByParticipants(%s) = %v, want %v", tc.status, got, tc.want)
		}
	}
}

func TestIsShapeError(t *testing.T) {
	if !IsShapeError(NewShapeError("option", "unknown option id")) {
		t.Error("IsShapeError should match a ShapeError")
	}
	if IsShapeError(ErrCrossSessionReference) {
		t.Error("IsShapeError should not match unrelated errors")
	}
}
