package mleave

import (
	"errors"
	"testing"

	"kyri56xcaesar/opscrm/internal/apperr"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to Status
		want     error
	}{
		{StatusPending, StatusApprove, nil},
		{StatusPending, StatusReject, nil},
		{StatusApprove, StatusPending, apperr.ErrValidation},
		{StatusApprove, StatusReject, apperr.ErrConflict},
		{StatusReject, StatusApprove, apperr.ErrConflict},
		{StatusPending, "Maybe", apperr.ErrValidation},
	}

	for _, tt := range tests {
		err := CanTransition(tt.from, tt.to)
		if tt.want == nil && err != nil {
			t.Errorf("%s -> %s: unexpected %v", tt.from, tt.to, err)
		}
		if tt.want != nil && !errors.Is(err, tt.want) {
			t.Errorf("%s -> %s: got %v, want %v", tt.from, tt.to, err, tt.want)
		}
	}
}

func TestCheckEditable(t *testing.T) {
	tests := []struct {
		name         string
		staff, owner int64
		status       Status
		want         error
	}{
		{"owner pending", 7, 7, StatusPending, nil},
		{"admin pending", 7, 0, StatusPending, nil},
		{"someone else", 7, 8, StatusPending, apperr.ErrForbidden},
		{"owner approved", 7, 7, StatusApprove, apperr.ErrConflict},
		{"admin rejected", 7, 0, StatusReject, apperr.ErrConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckEditable(tt.staff, tt.owner, tt.status)
			if tt.want == nil && err != nil {
				t.Fatalf("unexpected %v", err)
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Fatalf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestEditable(t *testing.T) {
	if !StatusPending.Editable() || StatusApprove.Editable() || StatusReject.Editable() {
		t.Fatal("only pending requests are editable")
	}
}

func TestLeaveInputValidate(t *testing.T) {
	tests := []struct {
		name string
		in   LeaveInput
		want error
	}{
		{"ok range", LeaveInput{LeaveType: "fullday", Category: "Leave", LeaveDate: "2025-03-10", EndDate: "2025-03-12"}, nil},
		{"single day", LeaveInput{LeaveType: "morning", Category: "WFH", HalfTime: "Offline", LeaveDate: "2025-03-10"}, nil},
		{"end before start", LeaveInput{LeaveType: "fullday", Category: "Leave", LeaveDate: "2025-03-12", EndDate: "2025-03-10"}, apperr.ErrDateOrder},
		{"malformed date", LeaveInput{LeaveType: "fullday", Category: "Leave", LeaveDate: "12/03/2025"}, apperr.ErrValidation},
		{"half time on full day", LeaveInput{LeaveType: "fullday", Category: "WFH", HalfTime: "Leave", LeaveDate: "2025-03-10"}, apperr.ErrValidation},
		{"half time on leave", LeaveInput{LeaveType: "morning", Category: "Leave", HalfTime: "Leave", LeaveDate: "2025-03-10"}, apperr.ErrValidation},
		{"approve through create", LeaveInput{LeaveType: "fullday", Category: "Leave", LeaveDate: "2025-03-10", Status: "Approve"}, apperr.ErrValidation},
		{"whole calendar", LeaveInput{LeaveType: "fullday", Category: "Leave", LeaveDate: "0001-01-01", EndDate: "9999-12-31"}, apperr.ErrValidation},
		{"before window", LeaveInput{LeaveType: "fullday", Category: "Leave", LeaveDate: "1999-12-31"}, apperr.ErrValidation},
		{"after window", LeaveInput{LeaveType: "fullday", Category: "Leave", LeaveDate: "2101-01-01"}, apperr.ErrValidation},
		{"longer than a year", LeaveInput{LeaveType: "fullday", Category: "Leave", LeaveDate: "2025-01-01", EndDate: "2026-01-02"}, apperr.ErrValidation},
		{"full leap year", LeaveInput{LeaveType: "fullday", Category: "Leave", LeaveDate: "2024-01-01", EndDate: "2024-12-31"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := tt.in.Validate()
			if tt.want == nil {
				if err != nil {
					t.Fatalf("unexpected %v", err)
				}
				if d.EndDate.Before(d.LeaveDate) {
					t.Fatalf("draft out of order: %+v", d)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Fatalf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestDateOrderHasItsOwnCode(t *testing.T) {
	_, err := LeaveInput{LeaveType: "fullday", Category: "Leave", LeaveDate: "2025-03-12", EndDate: "2025-03-10"}.Validate()
	if apperr.Code(err) != "date_order" {
		t.Fatalf("code = %q", apperr.Code(err))
	}
}
