package mtask

import (
	"fmt"

	"kyri56xcaesar/opscrm/internal/apperr"
)

// Stage is how far a task has progressed. A task at stage N has reached every stage
// 1..N; stage 1 is always reached.
type Stage int

const (
	StageNotStarted Stage = iota + 1
	StageOngoing
	StageReview
	StageCompleted
)

const stageCount = int(StageCompleted)

var stageNames = [stageCount]string{"Not Started", "Ongoing", "Review", "Completed"}

func (s Stage) Valid() bool {
	return s >= StageNotStarted && s <= StageCompleted
}

func (s Stage) String() string {
	if !s.Valid() {
		return fmt.Sprintf("Stage(%d)", int(s))
	}
	return stageNames[s-1]
}

// Checks expands s into per-stage checkbox state.
func (s Stage) Checks() [stageCount]bool {
	var checks [stageCount]bool
	for i := 0; i < int(s) && i < stageCount; i++ {
		checks[i] = true
	}
	return checks
}

// FromChecks counts the contiguous checked stages starting at stage 1. Nothing checked
// maps back to StageNotStarted.
func FromChecks(checks [stageCount]bool) Stage {
	n := 0
	for _, done := range checks {
		if !done {
			break
		}
		n++
	}
	if n == 0 {
		return StageNotStarted
	}
	return Stage(n)
}

// Toggle applies a checkbox change on stage k to a task at stage current.
// Checking k marks 1..k reached; unchecking k clears k..Completed.
func Toggle(current, k Stage, checked bool) (Stage, error) {
	if !current.Valid() {
		return 0, apperr.Validation(fmt.Sprintf("current stage %d out of range", int(current)))
	}
	if !k.Valid() {
		return 0, apperr.Validation(fmt.Sprintf("stage %d out of range", int(k)))
	}

	checks := current.Checks()
	if checked {
		for i := 0; i < int(k); i++ {
			checks[i] = true
		}
	} else {
		for i := int(k) - 1; i < stageCount; i++ {
			checks[i] = false
		}
	}

	return FromChecks(checks), nil
}
