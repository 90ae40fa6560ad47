package mcrm

import (
	"errors"
	"testing"

	"kyri56xcaesar/opscrm/internal/apperr"
)

func TestWorkStatusAdvance(t *testing.T) {
	cases := []struct {
		from, to WorkStatus
		want     error
	}{
		{WorkPending, WorkProgress, nil},
		{WorkProgress, WorkCompleted, nil},
		{WorkPending, WorkCompleted, nil},
		{WorkProgress, WorkPending, apperr.ErrConflict},
		{WorkCompleted, WorkProgress, apperr.ErrConflict},
		{WorkCompleted, WorkCompleted, apperr.ErrConflict},
		{WorkPending, WorkPending, apperr.ErrConflict},
		{WorkPending, "Done", apperr.ErrValidation},
	}
	for _, tc := range cases {
		err := tc.from.Advance(tc.to)
		if tc.want == nil && err != nil {
			t.Errorf("%s -> %s: unexpected %v", tc.from, tc.to, err)
		}
		if tc.want != nil && !errors.Is(err, tc.want) {
			t.Errorf("%s -> %s: got %v, want %v", tc.from, tc.to, err, tc.want)
		}
	}
}

func TestLeadStatusRules(t *testing.T) {
	if err := CanConvert(LeadOpen); err != nil {
		t.Fatalf("open lead: %v", err)
	}
	for _, s := range []LeadStatus{LeadConverted, LeadLost} {
		if err := CanConvert(s); !errors.Is(err, apperr.ErrConflict) {
			t.Errorf("CanConvert(%s) = %v", s, err)
		}
	}

	if err := CanSetLeadStatus(LeadOpen, LeadLost); err != nil {
		t.Errorf("open -> lost: %v", err)
	}
	if err := CanSetLeadStatus(LeadLost, LeadOpen); err != nil {
		t.Errorf("reopen: %v", err)
	}
	if err := CanSetLeadStatus(LeadOpen, LeadConverted); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("manual conversion: %v", err)
	}
	if err := CanSetLeadStatus(LeadConverted, LeadOpen); !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("leaving converted: %v", err)
	}
}
