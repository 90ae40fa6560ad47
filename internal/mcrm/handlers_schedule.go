package mcrm

import (
	"fmt"
	"net/http"

	"kyri56xcaesar/opscrm/internal/apperr"
	"kyri56xcaesar/opscrm/internal/authmw"
	"kyri56xcaesar/opscrm/internal/docstore"
	"kyri56xcaesar/opscrm/internal/notify"

	"github.com/gin-gonic/gin"
)

// --- work assignments ---

func (h *Handler) handleListMyWork(c *gin.Context) {
	self, ok := caller(c)
	if !ok {
		return
	}
	h.listWork(c, self)
}

func (h *Handler) handleListAllWork(c *gin.Context) {
	self, ok := caller(c)
	if !ok {
		return
	}
	staff, ok := scope(c, self, "staffId")
	if !ok {
		return
	}
	h.listWork(c, staff)
}

func (h *Handler) listWork(c *gin.Context, staffID int64) {
	status := c.Query("status")
	if status != "" && !WorkStatus(status).Valid() {
		apperr.Respond(c, apperr.Validation("status must be Pending, Progress or Completed"))
		return
	}

	limit, ok := limitQuery(c)
	if !ok {
		return
	}
	items, err := h.store.ListWork(c.Request.Context(), WorkFilter{StaffID: staffID, Status: status, Limit: limit})
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *Handler) handleGetWork(c *gin.Context) {
	id, ok := idParam(c, "work")
	if !ok {
		return
	}
	w, err := h.store.GetWork(c.Request.Context(), id)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, w)
}

func (h *Handler) handleCreateWork(c *gin.Context) {
	actor, ok := caller(c)
	if !ok {
		return
	}
	var req CreateWorkRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.AssignedTo == nil && req.TeamID == nil {
		apperr.Respond(c, apperr.Validation("assign the work to a staff member or a team"))
		return
	}
	due, err := optionalDate(req.DueDate, "dueDate")
	if err != nil {
		apperr.Respond(c, err)
		return
	}

	id, err := h.store.CreateWork(c.Request.Context(), req, due, actor)
	if err != nil {
		apperr.Respond(c, err)
		return
	}

	if req.AssignedTo != nil {
		h.notifier.Notify(c.Request.Context(), notify.Event{
			StaffID: *req.AssignedTo,
			Kind:    notify.KindWorkAssigned,
			Title:   fmt.Sprintf("Work assigned: %s", req.Title),
			Body:    req.Description,
		})
	}

	c.JSON(http.StatusCreated, gin.H{"status": "ok", "id": id})
}

func (h *Handler) handleUpdateWork(c *gin.Context) {
	id, ok := idParam(c, "work")
	if !ok {
		return
	}
	var req UpdateWorkRequest
	if !bindJSON(c, &req) {
		return
	}
	var raw string
	if req.DueDate != nil {
		raw = *req.DueDate
	}
	due, err := optionalDate(raw, "dueDate")
	if err != nil {
		apperr.Respond(c, err)
		return
	}

	if err := h.store.UpdateWork(c.Request.Context(), id, req, due); err != nil {
		apperr.Respond(c, err)
		return
	}

	if req.AssignedTo != nil {
		h.notifier.Notify(c.Request.Context(), notify.Event{StaffID: *req.AssignedTo, Kind: notify.KindWorkAssigned, Title: "Work reassigned to you"})
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleWorkStatus lets the assignee, a member of the assigned team or an admin move the
// work forward.
func (h *Handler) handleWorkStatus(c *gin.Context) {
	self, ok := caller(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "work")
	if !ok {
		return
	}
	var req WorkStatusRequest
	if !bindJSON(c, &req) {
		return
	}

	admin := authmw.IsAdmin(c)
	w, err := h.store.SetWorkStatus(c.Request.Context(), id, self, WorkStatus(req.Status), func(acc WorkAccess) error {
		if admin || acc.InTeam || (acc.AssignedTo != nil && *acc.AssignedTo == self) {
			return nil
		}
		return apperr.Forbidden("work is not assigned to you")
	})
	if err != nil {
		apperr.Respond(c, err)
		return
	}

	if w.CreatedBy != self {
		h.notifier.Notify(c.Request.Context(), notify.Event{
			StaffID: w.CreatedBy,
			Kind:    notify.KindTaskUpdated,
			Title:   fmt.Sprintf("%s is now %s", w.Title, w.Status),
		})
	}
	c.JSON(http.StatusOK, w)
}

func (h *Handler) handleDeleteWork(c *gin.Context) {
	actor, ok := caller(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "work")
	if !ok {
		return
	}
	if err := h.store.DeleteWork(c.Request.Context(), id, actor); err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// --- calls ---

func (h *Handler) handleListCalls(c *gin.Context) {
	self, ok := caller(c)
	if !ok {
		return
	}
	staff, ok := scope(c, self, "staffId")
	if !ok {
		return
	}
	r, ok := rangeQuery(c)
	if !ok {
		return
	}

	limit, ok := limitQuery(c)
	if !ok {
		return
	}
	items, err := h.store.ListCalls(c.Request.Context(), staff, r, limit)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *Handler) handleCreateCall(c *gin.Context) {
	self, ok := caller(c)
	if !ok {
		return
	}
	var req CallRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.StaffID == 0 {
		req.StaffID = self
	} else if !ownerOrAdmin(c, self, req.StaffID, "call") {
		return
	}

	id, err := h.store.CreateCall(c.Request.Context(), req)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"status": "ok", "id": id})
}

func (h *Handler) loadCall(c *gin.Context, self int64) (*Call, bool) {
	id, ok := idParam(c, "call")
	if !ok {
		return nil, false
	}
	call, err := h.store.GetCall(c.Request.Context(), id)
	if err != nil {
		apperr.Respond(c, err)
		return nil, false
	}
	return call, ownerOrAdmin(c, self, call.StaffID, "call")
}

func (h *Handler) handleUpdateCall(c *gin.Context) {
	self, ok := caller(c)
	if !ok {
		return
	}
	var req UpdateCallRequest
	if !bindJSON(c, &req) {
		return
	}
	call, ok := h.loadCall(c, self)
	if !ok {
		return
	}

	if err := h.store.UpdateCall(c.Request.Context(), call.ID, req); err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) handleDeleteCall(c *gin.Context) {
	self, ok := caller(c)
	if !ok {
		return
	}
	call, ok := h.loadCall(c, self)
	if !ok {
		return
	}
	if err := h.store.DeleteCall(c.Request.Context(), call.ID, self); err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// --- meetings ---

func (h *Handler) handleListMeetings(c *gin.Context) {
	self, ok := caller(c)
	if !ok {
		return
	}
	organizer, ok := scope(c, self, "staffId")
	if !ok {
		return
	}
	r, ok := rangeQuery(c)
	if !ok {
		return
	}

	limit, ok := limitQuery(c)
	if !ok {
		return
	}
	items, err := h.store.ListMeetings(c.Request.Context(), organizer, r, limit)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *Handler) handleCreateMeeting(c *gin.Context) {
	self, ok := caller(c)
	if !ok {
		return
	}
	var req MeetingRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.OrganizerID == 0 {
		req.OrganizerID = self
	} else if !ownerOrAdmin(c, self, req.OrganizerID, "meeting") {
		return
	}

	id, err := h.store.CreateMeeting(c.Request.Context(), req)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"status": "ok", "id": id})
}

func (h *Handler) loadMeeting(c *gin.Context, self int64) (*Meeting, bool) {
	id, ok := idParam(c, "meeting")
	if !ok {
		return nil, false
	}
	m, err := h.store.GetMeeting(c.Request.Context(), id)
	if err != nil {
		apperr.Respond(c, err)
		return nil, false
	}
	return m, ownerOrAdmin(c, self, m.OrganizerID, "meeting")
}

func (h *Handler) handleUpdateMeeting(c *gin.Context) {
	self, ok := caller(c)
	if !ok {
		return
	}
	var req UpdateMeetingRequest
	if !bindJSON(c, &req) {
		return
	}
	m, ok := h.loadMeeting(c, self)
	if !ok {
		return
	}

	if err := h.store.UpdateMeeting(c.Request.Context(), m.ID, req); err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) handleDeleteMeeting(c *gin.Context) {
	self, ok := caller(c)
	if !ok {
		return
	}
	m, ok := h.loadMeeting(c, self)
	if !ok {
		return
	}
	if err := h.store.DeleteMeeting(c.Request.Context(), m.ID, self); err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// --- documents ---

func (h *Handler) requireDocs(c *gin.Context) bool {
	if h.docs == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "document storage is not configured"})
		return false
	}
	return true
}

// handleCreateDocument records the attachment and returns the URL the client uploads to.
func (h *Handler) handleCreateDocument(c *gin.Context) {
	self, ok := caller(c)
	if !ok {
		return
	}
	if !h.requireDocs(c) {
		return
	}
	var req DocumentRequest
	if !bindJSON(c, &req) {
		return
	}

	ctx := c.Request.Context()
	key := docstore.ObjectKey(req.EntityType, req.EntityID, req.Name)
	upload, err := h.docs.UploadURL(ctx, key, req.ContentType)
	if err != nil {
		apperr.Respond(c, err)
		return
	}

	id, err := h.store.CreateDocument(ctx, Document{
		EntityType: req.EntityType,
		EntityID:   req.EntityID,
		Name:       req.Name,
		ObjectKey:  key,
		UploadedBy: self,
	})
	if err != nil {
		apperr.Respond(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"status": "ok", "id": id, "objectKey": key, "upload": upload})
}

func (h *Handler) handleListDocuments(c *gin.Context) {
	entityType := c.Query("entityType")
	entityID, ok := parseQueryID(c, "entityId")
	if !ok {
		return
	}
	if entityType == "" {
		apperr.Respond(c, apperr.Validation("entityType required"))
		return
	}

	items, err := h.store.ListDocuments(c.Request.Context(), entityType, entityID)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *Handler) handleDownloadDocument(c *gin.Context) {
	if !h.requireDocs(c) {
		return
	}
	id, ok := idParam(c, "document")
	if !ok {
		return
	}

	ctx := c.Request.Context()
	d, err := h.store.GetDocument(ctx, id)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	download, err := h.docs.DownloadURL(ctx, d.ObjectKey)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"document": d, "download": download})
}

func (h *Handler) handleDeleteDocument(c *gin.Context) {
	self, ok := caller(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "document")
	if !ok {
		return
	}

	ctx := c.Request.Context()
	d, err := h.store.GetDocument(ctx, id)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	if !ownerOrAdmin(c, self, d.UploadedBy, "document") {
		return
	}
	if err := h.store.DeleteDocument(ctx, id, self); err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
