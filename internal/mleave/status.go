package mleave

import (
	"fmt"

	"kyri56xcaesar/opscrm/internal/apperr"
)

type Status string

const (
	StatusPending Status = "Pending"
	StatusApprove Status = "Approve"
	StatusReject  Status = "Reject"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApprove, StatusReject:
		return true
	}
	return false
}

// Editable reports whether the owner may still change or withdraw the request.
func (s Status) Editable() bool {
	return s == StatusPending
}

// CheckEditable decides whether ownerID may change a request of staffID in status s.
// ownerID 0 skips the ownership check; the status check applies to everyone.
func CheckEditable(staffID, ownerID int64, s Status) error {
	if ownerID > 0 && staffID != ownerID {
		return apperr.Forbidden("leave request belongs to someone else")
	}
	if !s.Editable() {
		return apperr.Conflict(fmt.Sprintf("leave request already %s, it can no longer change", s))
	}
	return nil
}

// CanTransition allows Pending→Approve and Pending→Reject only.
func CanTransition(from, to Status) error {
	if !to.Valid() || to == StatusPending {
		return apperr.Validation(fmt.Sprintf("decision must be %s or %s", StatusApprove, StatusReject))
	}
	if from != StatusPending {
		return apperr.Conflict(fmt.Sprintf("leave request already %s", from))
	}
	return nil
}
