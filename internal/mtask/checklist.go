package mtask

import (
	"slices"
	"strings"
	"time"

	"kyri56xcaesar/opscrm/internal/apperr"
	"kyri56xcaesar/opscrm/internal/authmw"
)

// Checklist is a per-role subtask list of a task. An item is either in NotChecked or in
// Checked, never both.
type Checklist struct {
	ID         int64     `json:"id"`
	TaskID     int64     `json:"taskId"`
	Role       string    `json:"role"`
	NotChecked []string  `json:"notChecked"`
	Checked    []string  `json:"checked"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

func validChecklistRole(role string) bool {
	return role == authmw.RoleAdmin || role == authmw.RoleStaff
}

func NewChecklist(taskID int64, role string) *Checklist {
	return &Checklist{
		TaskID:     taskID,
		Role:       role,
		NotChecked: []string{},
		Checked:    []string{},
	}
}

// Items is the full requirement set, unchecked first.
func (cl *Checklist) Items() []string {
	out := make([]string, 0, len(cl.NotChecked)+len(cl.Checked))
	out = append(out, cl.NotChecked...)
	return append(out, cl.Checked...)
}

func (cl *Checklist) Add(item string) error {
	item = strings.TrimSpace(item)
	if item == "" {
		return apperr.Validation("item required")
	}
	if slices.Contains(cl.NotChecked, item) || slices.Contains(cl.Checked, item) {
		return apperr.Conflict("item already on the checklist")
	}

	cl.NotChecked = append(cl.NotChecked, item)
	return nil
}

func (cl *Checklist) Check(item string) error {
	return move(&cl.NotChecked, &cl.Checked, strings.TrimSpace(item), "checked")
}

func (cl *Checklist) Uncheck(item string) error {
	return move(&cl.Checked, &cl.NotChecked, strings.TrimSpace(item), "unchecked")
}

func move(from, to *[]string, item, state string) error {
	i := slices.Index(*from, item)
	if i < 0 {
		if slices.Contains(*to, item) {
			return apperr.Conflict("item already " + state)
		}
		return apperr.NotFound("checklist item")
	}

	*from = slices.Delete(*from, i, i+1)
	*to = append(*to, item)
	return nil
}
