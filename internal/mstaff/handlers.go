package mstaff

import (
	"context"
	"log"
	"net/http"
	"time"

	"kyri56xcaesar/opscrm/internal/apperr"
	"kyri56xcaesar/opscrm/internal/authmw"
	"kyri56xcaesar/opscrm/internal/menu"
	"kyri56xcaesar/opscrm/internal/utils"

	"github.com/gin-gonic/gin"
)

// Provisioner creates and disables identity provider accounts. *authmw.Service is one.
type Provisioner interface {
	Provision(ctx context.Context, acc authmw.Account) (authmw.Provisioned, error)
	Disable(ctx context.Context, username string) error
}

type Handler struct {
	store Repository
	// nil when no admin client is configured
	provisioner Provisioner
	now         func() time.Time
}

func NewHandler(store Repository, provisioner Provisioner) *Handler {
	return &Handler{store: store, provisioner: provisioner, now: time.Now}
}

func caller(c *gin.Context) (int64, bool) {
	id, ok := authmw.StaffID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
	}
	return id, ok
}

func idParam(c *gin.Context) (int64, bool) {
	id, ok := utils.ParseID(c.Param("id"))
	if !ok {
		apperr.Respond(c, apperr.Validation("staff id required"))
	}
	return id, ok
}

// lookupRole never fails: anything that goes wrong yields the staff role.
func (h *Handler) lookupRole(c *gin.Context) menu.Role {
	id, ok := authmw.StaffID(c)
	if !ok {
		return menu.RoleStaff
	}
	role, err := h.store.RoleOf(c.Request.Context(), id)
	if err != nil {
		log.Printf("role lookup for staff %d failed: %v", id, err)
		return menu.RoleStaff
	}
	return menu.ParseRole(role)
}

func (h *Handler) handleRole(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"role": h.lookupRole(c).String()})
}

func (h *Handler) handleMenu(c *gin.Context) {
	role := h.lookupRole(c)
	c.JSON(http.StatusOK, gin.H{"role": role.String(), "menu": menu.For(role)})
}

func (h *Handler) handleMe(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}

	st, err := h.store.GetStaff(c.Request.Context(), id)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// handleUpdateMe lets staff edit their own contact details, nothing else.
func (h *Handler) handleUpdateMe(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}

	var req UpdateStaffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "code": "validation"})
		return
	}
	if req.Role != nil || req.ManagerID != nil {
		apperr.Respond(c, apperr.Forbidden("role and manager are set by admins"))
		return
	}

	if err := h.store.UpdateStaff(c.Request.Context(), id, req); err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) handleListStaff(c *gin.Context) {
	limit, err := utils.ParseQueryInt(c.Query("limit"), 100)
	if err != nil {
		apperr.Respond(c, apperr.Validation("limit must be a number"))
		return
	}
	items, err := h.store.ListStaff(c.Request.Context(), c.Query("q"), limit)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *Handler) handleGetStaff(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	st, err := h.store.GetStaff(c.Request.Context(), id)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (h *Handler) handleCreateStaff(c *gin.Context) {
	var req CreateStaffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Printf("failed to bind input: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "code": "validation"})
		return
	}
	if req.Provision && h.provisioner == nil {
		apperr.Respond(c, apperr.Validation("account provisioning is not configured"))
		return
	}

	ctx := c.Request.Context()
	id, err := h.store.CreateStaff(ctx, req)
	if err != nil {
		apperr.Respond(c, err)
		return
	}

	payload := gin.H{"status": "ok", "id": id}
	if req.Provision {
		first, last := authmw.SplitName(req.FullName)
		role := req.Role
		if role == "" {
			role = authmw.RoleStaff
		}
		acc, err := h.provisioner.Provision(ctx, authmw.Account{
			Username:  req.Username,
			Email:     req.Email,
			FirstName: first,
			LastName:  last,
			Role:      role,
		})
		if err != nil {
			// the staff row stays; the account can be provisioned again later
			log.Printf("failed to provision account for %q: %v", req.Username, err)
			payload["provisioned"] = false
		} else {
			payload["provisioned"] = true
			payload["account"] = acc
		}
	}

	c.JSON(http.StatusCreated, payload)
}

func (h *Handler) handleUpdateStaff(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}

	var req UpdateStaffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "code": "validation"})
		return
	}

	if err := h.store.UpdateStaff(c.Request.Context(), id, req); err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) handleDeleteStaff(c *gin.Context) {
	actor, ok := caller(c)
	if !ok {
		return
	}
	id, ok := idParam(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	st, err := h.store.GetStaff(ctx, id)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	if err := h.store.DeleteStaff(ctx, id, actor); err != nil {
		apperr.Respond(c, err)
		return
	}

	if h.provisioner != nil {
		if err := h.provisioner.Disable(ctx, st.Username); err != nil {
			log.Printf("failed to disable account %q: %v", st.Username, err)
		}
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) handlePunchIn(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	p, err := h.store.PunchIn(c.Request.Context(), id, h.now())
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (h *Handler) handlePunchOut(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	p, err := h.store.PunchOut(c.Request.Context(), id, h.now())
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// handleAttendance lists the caller's days, or ?staffId= for admins. The range defaults
// to the current month.
func (h *Handler) handleAttendance(c *gin.Context) {
	self, ok := caller(c)
	if !ok {
		return
	}
	target := self
	if raw := c.Query("staffId"); raw != "" {
		id, ok := utils.ParseID(raw)
		if !ok {
			apperr.Respond(c, apperr.Validation("invalid staffId"))
			return
		}
		if id != self && !authmw.IsAdmin(c) {
			apperr.Respond(c, apperr.Forbidden("only admins can look at other staff"))
			return
		}
		target = id
	}

	now := h.now()
	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, -1)
	if raw := c.Query("from"); raw != "" {
		t, err := utils.ParseDate(raw)
		if err != nil {
			apperr.Respond(c, apperr.Validation("from must be YYYY-MM-DD"))
			return
		}
		from = t
	}
	if raw := c.Query("to"); raw != "" {
		t, err := utils.ParseDate(raw)
		if err != nil {
			apperr.Respond(c, apperr.Validation("to must be YYYY-MM-DD"))
			return
		}
		to = t
	}
	if to.Before(from) {
		apperr.Respond(c, apperr.ErrDateOrder)
		return
	}

	punches, err := h.store.PunchesBetween(c.Request.Context(), target, from, to)
	if err != nil {
		apperr.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"staffId": target,
		"from":    utils.FormatDate(from),
		"to":      utils.FormatDate(to),
		"days":    GroupByDay(punches, now),
	})
}
