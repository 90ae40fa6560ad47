package mcrm

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"kyri56xcaesar/opscrm/internal/apperr"
	"kyri56xcaesar/opscrm/internal/authmw"
	"kyri56xcaesar/opscrm/internal/docstore"
	"kyri56xcaesar/opscrm/internal/notify"
	"kyri56xcaesar/opscrm/internal/utils"

	"github.com/gin-gonic/gin"
)

// Presigner issues the URLs clients move document bytes with. *docstore.Store is one.
type Presigner interface {
	UploadURL(ctx context.Context, key, contentType string) (docstore.Presigned, error)
	DownloadURL(ctx context.Context, key string) (docstore.Presigned, error)
}

type Handler struct {
	store    Repository
	notifier notify.Notifier
	// nil when no bucket is configured
	docs Presigner
}

func NewHandler(store Repository, notifier notify.Notifier, docs Presigner) *Handler {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &Handler{store: store, notifier: notifier, docs: docs}
}

func caller(c *gin.Context) (int64, bool) {
	id, ok := authmw.StaffID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
	}
	return id, ok
}

func idParam(c *gin.Context, what string) (int64, bool) {
	id, ok := utils.ParseID(c.Param("id"))
	if !ok {
		apperr.Respond(c, apperr.Validation(what+" id required"))
	}
	return id, ok
}

// ownerOrAdmin answers 403 unless the caller owns the row or is an admin.
func ownerOrAdmin(c *gin.Context, self, owner int64, what string) bool {
	if owner == self || authmw.IsAdmin(c) {
		return true
	}
	apperr.Respond(c, apperr.Forbidden(fmt.Sprintf("not your %s", what)))
	return false
}

// scope resolves whose rows a list shows: staff always see their own, admins see
// everyone unless they pass ?<param>=.
func scope(c *gin.Context, self int64, param string) (int64, bool) {
	raw := c.Query(param)
	if !authmw.IsAdmin(c) {
		if raw != "" && raw != strconv.FormatInt(self, 10) {
			apperr.Respond(c, apperr.Forbidden("only admins can look at other staff"))
			return 0, false
		}
		return self, true
	}
	if raw == "" {
		return 0, true
	}
	id, ok := utils.ParseID(raw)
	if !ok {
		apperr.Respond(c, apperr.Validation("invalid "+param))
		return 0, false
	}
	return id, true
}

// rangeQuery reads ?from=&to= as inclusive dates.
func rangeQuery(c *gin.Context) (Range, bool) {
	var r Range
	if raw := c.Query("from"); raw != "" {
		d, err := utils.ParseDate(raw)
		if err != nil {
			apperr.Respond(c, apperr.Validation("from must be YYYY-MM-DD"))
			return r, false
		}
		r.From = d
	}
	if raw := c.Query("to"); raw != "" {
		d, err := utils.ParseDate(raw)
		if err != nil {
			apperr.Respond(c, apperr.Validation("to must be YYYY-MM-DD"))
			return r, false
		}
		r.To = d.AddDate(0, 0, 1)
	}
	if !r.From.IsZero() && !r.To.IsZero() && !r.To.After(r.From) {
		apperr.Respond(c, apperr.ErrDateOrder)
		return r, false
	}
	return r, true
}

func optionalDate(raw, field string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	d, err := utils.ParseDate(raw)
	if err != nil {
		return nil, apperr.Validation("malformed " + field + " date")
	}
	return &d, nil
}

func bindJSON(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		log.Printf("failed to bind input: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "code": "validation"})
		return false
	}
	return true
}

func parseQueryID(c *gin.Context, name string) (int64, bool) {
	id, ok := utils.ParseID(c.Query(name))
	if !ok {
		apperr.Respond(c, apperr.Validation(name+" required"))
	}
	return id, ok
}

func limitQuery(c *gin.Context) (int, bool) {
	limit, err := utils.ParseQueryInt(c.Query("limit"), 50)
	if err != nil {
		apperr.Respond(c, apperr.Validation("limit must be a number"))
		return 0, false
	}
	return limit, true
}

// --- companies ---

func (h *Handler) handleListCompanies(c *gin.Context) {
	limit, ok := limitQuery(c)
	if !ok {
		return
	}
	items, err := h.store.ListCompanies(c.Request.Context(), c.Query("q"), limit)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *Handler) handleGetCompany(c *gin.Context) {
	id, ok := idParam(c, "company")
	if !ok {
		return
	}
	co, err := h.store.GetCompany(c.Request.Context(), id)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, co)
}

func (h *Handler) handleCreateCompany(c *gin.Context) {
	actor, ok := caller(c)
	if !ok {
		return
	}
	var req CompanyRequest
	if !bindJSON(c, &req) {
		return
	}

	id, err := h.store.CreateCompany(c.Request.Context(), req, actor)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"status": "ok", "id": id})
}

func (h *Handler) handleUpdateCompany(c *gin.Context) {
	id, ok := idParam(c, "company")
	if !ok {
		return
	}
	var req CompanyRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.store.UpdateCompany(c.Request.Context(), id, req); err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) handleDeleteCompany(c *gin.Context) {
	actor, ok := caller(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "company")
	if !ok {
		return
	}
	if err := h.store.DeleteCompany(c.Request.Context(), id, actor); err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// --- contacts ---

func (h *Handler) loadContact(c *gin.Context, self int64) (*Contact, bool) {
	id, ok := idParam(c, "contact")
	if !ok {
		return nil, false
	}
	ct, err := h.store.GetContact(c.Request.Context(), id)
	if err != nil {
		apperr.Respond(c, err)
		return nil, false
	}
	if !ownerOrAdmin(c, self, ct.OwnerID, "contact") {
		return nil, false
	}
	return ct, true
}

func (h *Handler) handleListContacts(c *gin.Context) {
	self, ok := caller(c)
	if !ok {
		return
	}
	owner, ok := scope(c, self, "ownerId")
	if !ok {
		return
	}

	limit, ok := limitQuery(c)
	if !ok {
		return
	}
	items, err := h.store.ListContacts(c.Request.Context(), owner, c.Query("q"), limit)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *Handler) handleGetContact(c *gin.Context) {
	self, ok := caller(c)
	if !ok {
		return
	}
	ct, ok := h.loadContact(c, self)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, ct)
}

func (h *Handler) handleCreateContact(c *gin.Context) {
	self, ok := caller(c)
	if !ok {
		return
	}
	var req CreateContactRequest
	if !bindJSON(c, &req) {
		return
	}

	id, err := h.store.CreateContact(c.Request.Context(), req, self)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"status": "ok", "id": id})
}

func (h *Handler) handleUpdateContact(c *gin.Context) {
	self, ok := caller(c)
	if !ok {
		return
	}
	var req UpdateContactRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.OwnerID != nil && !authmw.IsAdmin(c) {
		apperr.Respond(c, apperr.Forbidden("only admins can reassign contacts"))
		return
	}

	ct, ok := h.loadContact(c, self)
	if !ok {
		return
	}
	if err := h.store.UpdateContact(c.Request.Context(), ct.ID, req); err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) handleDeleteContact(c *gin.Context) {
	self, ok := caller(c)
	if !ok {
		return
	}
	ct, ok := h.loadContact(c, self)
	if !ok {
		return
	}
	if err := h.store.DeleteContact(c.Request.Context(), ct.ID, self); err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// --- leads ---

func (h *Handler) handleListLeads(c *gin.Context) {
	self, ok := caller(c)
	if !ok {
		return
	}
	assignee, ok := scope(c, self, "assignedTo")
	if !ok {
		return
	}
	status := c.Query("status")
	if status != "" && status != string(LeadOpen) && status != string(LeadConverted) && status != string(LeadLost) {
		apperr.Respond(c, apperr.Validation("status must be Open, Converted or Lost"))
		return
	}

	limit, ok := limitQuery(c)
	if !ok {
		return
	}
	items, err := h.store.ListLeads(c.Request.Context(), LeadFilter{AssignedTo: assignee, Status: status, Limit: limit})
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *Handler) handleGetLead(c *gin.Context) {
	self, ok := caller(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "lead")
	if !ok {
		return
	}
	l, err := h.store.GetLead(c.Request.Context(), id)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	if !ownerOrAdmin(c, self, l.AssignedTo, "lead") {
		return
	}
	c.JSON(http.StatusOK, l)
}

func (h *Handler) handleCreateLead(c *gin.Context) {
	var req CreateLeadRequest
	if !bindJSON(c, &req) {
		return
	}

	id, err := h.store.CreateLead(c.Request.Context(), req)
	if err != nil {
		apperr.Respond(c, err)
		return
	}

	h.notifier.Notify(c.Request.Context(), notify.Event{
		StaffID: req.AssignedTo,
		Kind:    notify.KindLeadAssigned,
		Title:   "New lead assigned",
		Body:    req.Requirement,
	})

	c.JSON(http.StatusCreated, gin.H{"status": "ok", "id": id})
}

// handleUpdateLead: the assignee may only move the lead between Open and Lost.
func (h *Handler) handleUpdateLead(c *gin.Context) {
	self, ok := caller(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "lead")
	if !ok {
		return
	}
	var req UpdateLeadRequest
	if !bindJSON(c, &req) {
		return
	}

	ctx := c.Request.Context()
	if !authmw.IsAdmin(c) {
		if req.AssignedTo != nil || req.Requirement != nil || req.Priority != nil {
			apperr.Respond(c, apperr.Forbidden("only admins can edit lead details"))
			return
		}
		l, err := h.store.GetLead(ctx, id)
		if err != nil {
			apperr.Respond(c, err)
			return
		}
		if !ownerOrAdmin(c, self, l.AssignedTo, "lead") {
			return
		}
	}

	if err := h.store.UpdateLead(ctx, id, req); err != nil {
		apperr.Respond(c, err)
		return
	}

	if req.AssignedTo != nil {
		h.notifier.Notify(ctx, notify.Event{StaffID: *req.AssignedTo, Kind: notify.KindLeadAssigned, Title: "Lead reassigned to you"})
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) handleDeleteLead(c *gin.Context) {
	actor, ok := caller(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "lead")
	if !ok {
		return
	}
	if err := h.store.DeleteLead(c.Request.Context(), id, actor); err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) handleConvertLead(c *gin.Context) {
	id, ok := idParam(c, "lead")
	if !ok {
		return
	}
	// the body is optional
	var req ConvertLeadRequest
	if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
		return
	}
	finishBy, err := optionalDate(req.FinishBy, "finishBy")
	if err != nil {
		apperr.Respond(c, err)
		return
	}

	l, err := h.store.ConvertLead(c.Request.Context(), id, finishBy)
	if err != nil {
		apperr.Respond(c, err)
		return
	}

	h.notifier.Notify(c.Request.Context(), notify.Event{
		StaffID: l.AssignedTo,
		Kind:    notify.KindTaskAssigned,
		Title:   "Lead converted to a task",
		Body:    l.Requirement,
	})

	c.JSON(http.StatusCreated, gin.H{"status": "ok", "taskId": l.TaskID, "lead": l})
}
