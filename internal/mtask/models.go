package mtask

import (
	"time"

	"kyri56xcaesar/opscrm/internal/apperr"
)

type Task struct {
	ID          int64      `json:"id"`
	ContactID   *int64     `json:"contactId,omitempty"`
	AssignedTo  int64      `json:"assignedTo"`
	Requirement string     `json:"requirement"`
	Priority    string     `json:"priority"`
	Stage       Stage      `json:"stage"`
	StageName   string     `json:"stageName"`
	Notes       string     `json:"notes"`
	Rework      bool       `json:"rework"`
	NewUpdate   bool       `json:"newUpdate"`
	FinishBy    *time.Time `json:"finishBy,omitempty"`
	TeamWork    []string   `json:"teamWork"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// CompleteRework is the only way out of rework and always raises NewUpdate.
func (t *Task) CompleteRework() error {
	if !t.Rework {
		return apperr.Conflict("task is not in rework")
	}
	t.Rework = false
	t.NewUpdate = true
	return nil
}

// NewTask is the insert shape shared with lead conversion.
type NewTask struct {
	ContactID   *int64
	AssignedTo  int64
	Requirement string
	Priority    string
	FinishBy    *time.Time
}

type CreateTaskRequest struct {
	ContactID   *int64 `json:"contactId" binding:"omitempty,gt=0"`
	AssignedTo  int64  `json:"assignedTo" binding:"required,gt=0"`
	Requirement string `json:"requirement" binding:"required,min=2,max=4000"`
	Priority    string `json:"priority" binding:"omitempty,oneof=High Normal Low"`
	FinishBy    string `json:"finishBy" binding:"omitempty"`
}

type UpdateTaskRequest struct {
	AssignedTo  *int64  `json:"assignedTo" binding:"omitempty,gt=0"`
	Requirement *string `json:"requirement" binding:"omitempty,min=2,max=4000"`
	Priority    *string `json:"priority" binding:"omitempty,oneof=High Normal Low"`
	FinishBy    *string `json:"finishBy"`
}

// StageNotesRequest is the combined progress update. Id travels in the body.
type StageNotesRequest struct {
	Stages int    `json:"stages"`
	Notes  string `json:"notes" binding:"max=8000"`
	ID     int64  `json:"id"`
}

type ToggleStageRequest struct {
	Stage   int  `json:"stage" binding:"required"`
	Checked bool `json:"checked"`
}

type TeamWorkRequest struct {
	Entry string `json:"entry" binding:"required,min=1,max=2000"`
}

type ChecklistItemRequest struct {
	Item string `json:"item" binding:"required,min=1,max=500"`
}

type ListFilter struct {
	AssignedTo int64
	Stage      int
	Priority   string
	Rework     *bool
	Limit      int
	Order      string
}

func validPriority(p string) bool {
	return p == "High" || p == "Normal" || p == "Low"
}

func taskOrderClause(order string) string {
	switch order {
	case "created_asc":
		return "created_at ASC"
	case "finish_asc":
		return "finish_by ASC NULLS LAST"
	case "updated_desc":
		return "updated_at DESC"
	case "priority":
		return "CASE priority WHEN 'High' THEN 0 WHEN 'Normal' THEN 1 ELSE 2 END, created_at DESC"
	case "created_desc":
		fallthrough
	default:
		return "created_at DESC"
	}
}
