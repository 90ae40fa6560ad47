package mcrm

import (
	"fmt"

	"kyri56xcaesar/opscrm/internal/apperr"
)

type LeadStatus string

const (
	LeadOpen      LeadStatus = "Open"
	LeadConverted LeadStatus = "Converted"
	LeadLost      LeadStatus = "Lost"
)

// CanSetLeadStatus covers manual status edits. Converted is only reached through
// conversion and never left.
func CanSetLeadStatus(from, to LeadStatus) error {
	switch {
	case to != LeadOpen && to != LeadLost:
		return apperr.Validation(fmt.Sprintf("status %q cannot be set directly", to))
	case from == LeadConverted:
		return apperr.Conflict("lead already converted")
	}
	return nil
}

// CanConvert requires an open lead.
func CanConvert(s LeadStatus) error {
	if s != LeadOpen {
		return apperr.Conflict(fmt.Sprintf("lead is %s", s))
	}
	return nil
}

type WorkStatus string

const (
	WorkPending   WorkStatus = "Pending"
	WorkProgress  WorkStatus = "Progress"
	WorkCompleted WorkStatus = "Completed"
)

var workOrder = map[WorkStatus]int{WorkPending: 0, WorkProgress: 1, WorkCompleted: 2}

func (s WorkStatus) Valid() bool {
	_, ok := workOrder[s]
	return ok
}

// Advance moves a work assignment forward. Skipping Progress is allowed, going back is not.
func (s WorkStatus) Advance(to WorkStatus) error {
	if !to.Valid() {
		return apperr.Validation(fmt.Sprintf("unknown work status %q", to))
	}
	if workOrder[to] <= workOrder[s] {
		return apperr.Conflict(fmt.Sprintf("cannot move work from %s to %s", s, to))
	}
	return nil
}
