package mtask

import (
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"kyri56xcaesar/opscrm/internal/apperr"
	"kyri56xcaesar/opscrm/internal/authmw"
	"kyri56xcaesar/opscrm/internal/notify"
	"kyri56xcaesar/opscrm/internal/utils"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	store    Repository
	notifier notify.Notifier
}

func NewHandler(store Repository, notifier notify.Notifier) *Handler {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &Handler{store: store, notifier: notifier}
}

// loadOwned fetches the task and checks the caller may work on it: its assignee or an admin.
// On failure the response is already written.
func (h *Handler) loadOwned(c *gin.Context, id int64) (*Task, bool) {
	staffID, ok := authmw.StaffID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return nil, false
	}

	t, err := h.store.GetTask(c.Request.Context(), id)
	if err != nil {
		apperr.Respond(c, err)
		return nil, false
	}

	if t.AssignedTo != staffID && !authmw.IsAdmin(c) {
		apperr.Respond(c, apperr.Forbidden("task is assigned to someone else"))
		return nil, false
	}

	return t, true
}

func taskIDParam(c *gin.Context) (int64, bool) {
	id, ok := utils.ParseID(c.Param("id"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "task id required", "code": "validation"})
	}
	return id, ok
}

func (h *Handler) handleListTasks(c *gin.Context) {
	staffID, ok := authmw.StaffID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	limit, err := utils.ParseQueryInt(c.Query("limit"), 20)
	if err != nil {
		apperr.Respond(c, apperr.Validation("limit must be a number"))
		return
	}
	stage, err := utils.ParseQueryInt(c.Query("stage"), 0)
	if err != nil || (stage != 0 && !Stage(stage).Valid()) {
		apperr.Respond(c, apperr.Validation("stage must be between 1 and 4"))
		return
	}
	if p := c.Query("priority"); p != "" && !validPriority(p) {
		apperr.Respond(c, apperr.Validation("priority must be High, Normal or Low"))
		return
	}

	f := ListFilter{
		AssignedTo: staffID,
		Stage:      stage,
		Priority:   c.Query("priority"),
		Limit:      limit,
		Order:      c.DefaultQuery("order", "created_desc"),
	}
	if rw := c.Query("rework"); rw != "" {
		b := rw == "true"
		f.Rework = &b
	}

	// admins see everyone's tasks unless they narrow it down
	if authmw.IsAdmin(c) {
		f.AssignedTo = 0
		if a, ok := utils.ParseID(c.Query("assignedTo")); ok {
			f.AssignedTo = a
		}
	}

	items, err := h.store.ListTasks(c.Request.Context(), f)
	if err != nil {
		apperr.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"items": items,
		"order": f.Order,
		"stage": f.Stage,
	})
}

func (h *Handler) handleGetTask(c *gin.Context) {
	id, ok := taskIDParam(c)
	if !ok {
		return
	}

	t, ok := h.loadOwned(c, id)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, t)
}

func (h *Handler) handleCreateTask(c *gin.Context) {
	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "code": "validation"})
		return
	}

	nt := NewTask{
		ContactID:   req.ContactID,
		AssignedTo:  req.AssignedTo,
		Requirement: req.Requirement,
		Priority:    req.Priority,
	}
	if req.FinishBy != "" {
		d, err := utils.ParseDate(req.FinishBy)
		if err != nil {
			apperr.Respond(c, apperr.Validation("malformed finishBy date"))
			return
		}
		nt.FinishBy = &d
	}

	id, err := h.store.CreateTask(c.Request.Context(), nt)
	if err != nil {
		apperr.Respond(c, err)
		return
	}

	h.notifier.Notify(c.Request.Context(), notify.Event{
		StaffID: req.AssignedTo,
		Kind:    notify.KindTaskAssigned,
		Title:   "New task assigned",
		Body:    req.Requirement,
	})

	c.JSON(http.StatusCreated, gin.H{"status": "ok", "id": id})
}

func (h *Handler) handleUpdateTask(c *gin.Context) {
	id, ok := taskIDParam(c)
	if !ok {
		return
	}

	var req UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "code": "validation"})
		return
	}

	if err := h.store.UpdateTask(c.Request.Context(), id, req); err != nil {
		apperr.Respond(c, err)
		return
	}

	if req.AssignedTo != nil {
		h.notifier.Notify(c.Request.Context(), notify.Event{
			StaffID: *req.AssignedTo,
			Kind:    notify.KindTaskAssigned,
			Title:   fmt.Sprintf("Task #%d reassigned to you", id),
		})
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleStageNotes is the combined progress update: {stages, notes, id}.
func (h *Handler) handleStageNotes(c *gin.Context) {
	var req StageNotesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "code": "validation"})
		return
	}

	if req.ID <= 0 {
		apperr.Respond(c, apperr.Validation("task id required"))
		return
	}
	stage := Stage(req.Stages)
	if !stage.Valid() {
		apperr.Respond(c, apperr.Validation("stages must be between 1 and 4"))
		return
	}

	if _, ok := h.loadOwned(c, req.ID); !ok {
		return
	}

	if err := h.store.UpdateStageNotes(c.Request.Context(), req.ID, stage, req.Notes); err != nil {
		apperr.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok", "stage": stage, "stageName": stage.String()})
}

func (h *Handler) handleToggleStage(c *gin.Context) {
	id, ok := taskIDParam(c)
	if !ok {
		return
	}

	var req ToggleStageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "code": "validation"})
		return
	}

	t, ok := h.loadOwned(c, id)
	if !ok {
		return
	}

	next, err := Toggle(t.Stage, Stage(req.Stage), req.Checked)
	if err != nil {
		apperr.Respond(c, err)
		return
	}

	if next != t.Stage {
		if err := h.store.SetStage(c.Request.Context(), id, next); err != nil {
			apperr.Respond(c, err)
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok", "stage": next, "stageName": next.String(), "checks": next.Checks()})
}

func (h *Handler) handleFlagRework(c *gin.Context) {
	id, ok := taskIDParam(c)
	if !ok {
		return
	}

	assignee, err := h.store.FlagRework(c.Request.Context(), id)
	if err != nil {
		apperr.Respond(c, err)
		return
	}

	h.notifier.Notify(c.Request.Context(), notify.Event{
		StaffID: assignee,
		Kind:    notify.KindTaskRework,
		Title:   fmt.Sprintf("Task #%d needs rework", id),
	})

	c.JSON(http.StatusOK, gin.H{"status": "ok", "rework": true})
}

func (h *Handler) handleCompleteRework(c *gin.Context) {
	id, ok := taskIDParam(c)
	if !ok {
		return
	}

	t, ok := h.loadOwned(c, id)
	if !ok {
		return
	}

	if err := t.CompleteRework(); err != nil {
		apperr.Respond(c, err)
		return
	}

	if err := h.store.SetFlags(c.Request.Context(), id, t.Rework, t.NewUpdate); err != nil {
		apperr.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok", "rework": t.Rework, "newUpdate": t.NewUpdate})
}

// handleAcknowledge clears newUpdate once an admin has looked at the reworked task.
func (h *Handler) handleAcknowledge(c *gin.Context) {
	id, ok := taskIDParam(c)
	if !ok {
		return
	}

	t, err := h.store.GetTask(c.Request.Context(), id)
	if err != nil {
		apperr.Respond(c, err)
		return
	}

	if err := h.store.SetFlags(c.Request.Context(), id, t.Rework, false); err != nil {
		apperr.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) handleAppendTeamWork(c *gin.Context) {
	id, ok := taskIDParam(c)
	if !ok {
		return
	}

	var req TeamWorkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "code": "validation"})
		return
	}
	entry := strings.TrimSpace(req.Entry)
	if entry == "" {
		apperr.Respond(c, apperr.Validation("entry required"))
		return
	}

	if _, ok := h.loadOwned(c, id); !ok {
		return
	}

	entry = fmt.Sprintf("%s %s: %s", utils.FormatDate(time.Now().UTC()), authmw.Username(c), entry)
	if err := h.store.AppendTeamWork(c.Request.Context(), id, entry); err != nil {
		apperr.Respond(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"status": "ok", "entry": entry})
}

func (h *Handler) handleDeleteTask(c *gin.Context) {
	id, ok := taskIDParam(c)
	if !ok {
		return
	}

	actor, _ := authmw.StaffID(c)
	if err := h.store.DeleteTask(c.Request.Context(), id, actor); err != nil {
		apperr.Respond(c, err)
		return
	}

	log.Printf("task %d moved to trash by staff %d", id, actor)
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// checklistTarget resolves the task and the role discriminator. Staff may read both
// checklists but only change their own.
func (h *Handler) checklistTarget(c *gin.Context, write bool) (int64, string, bool) {
	id, ok := taskIDParam(c)
	if !ok {
		return 0, "", false
	}

	role := strings.ToLower(c.Param("role"))
	if !validChecklistRole(role) {
		apperr.Respond(c, apperr.Validation("role must be admin or staff"))
		return 0, "", false
	}

	if _, ok := h.loadOwned(c, id); !ok {
		return 0, "", false
	}

	if write && role == authmw.RoleAdmin && !authmw.IsAdmin(c) {
		apperr.Respond(c, apperr.Forbidden("admin checklist is read only"))
		return 0, "", false
	}

	return id, role, true
}

func (h *Handler) handleGetChecklist(c *gin.Context) {
	id, role, ok := h.checklistTarget(c, false)
	if !ok {
		return
	}

	cl, err := h.store.GetChecklist(c.Request.Context(), id, role)
	if err != nil {
		apperr.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, cl)
}

func (h *Handler) checklistMutation(op func(*Checklist, string) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, role, ok := h.checklistTarget(c, true)
		if !ok {
			return
		}

		var req ChecklistItemRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "code": "validation"})
			return
		}

		cl, err := h.store.MutateChecklist(c.Request.Context(), id, role, func(cl *Checklist) error {
			return op(cl, req.Item)
		})
		if err != nil {
			apperr.Respond(c, err)
			return
		}

		c.JSON(http.StatusOK, cl)
	}
}
