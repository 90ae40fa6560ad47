package mleave

import (
	"fmt"
	"net/http"
	"strconv"
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
	// holiday descriptions containing this marker are maintenance days
	marker string
	now    func() time.Time
}

func NewHandler(store Repository, notifier notify.Notifier, maintenanceMarker string) *Handler {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &Handler{store: store, notifier: notifier, marker: maintenanceMarker, now: time.Now}
}

func (h *Handler) caller(c *gin.Context) (int64, bool) {
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

// yearQuery defaults to the current year.
func (h *Handler) yearQuery(c *gin.Context) (int, bool) {
	raw := c.Query("year")
	if raw == "" {
		return h.now().Year(), true
	}
	y, err := strconv.Atoi(raw)
	if err != nil || y < MinYear || y > MaxYear {
		apperr.Respond(c, apperr.Validation(fmt.Sprintf("year must be between %d and %d", MinYear, MaxYear)))
		return 0, false
	}
	return y, true
}

// targetStaff is the caller, or for admins the ?staffId= they ask about.
func (h *Handler) targetStaff(c *gin.Context) (int64, bool) {
	self, ok := h.caller(c)
	if !ok {
		return 0, false
	}
	raw := c.Query("staffId")
	if raw == "" {
		return self, true
	}

	id, ok := utils.ParseID(raw)
	if !ok {
		apperr.Respond(c, apperr.Validation("invalid staffId"))
		return 0, false
	}
	if id != self && !authmw.IsAdmin(c) {
		apperr.Respond(c, apperr.Forbidden("only admins can look at other staff"))
		return 0, false
	}
	return id, true
}

func (h *Handler) handleCreateLeave(c *gin.Context) {
	staffID, ok := h.caller(c)
	if !ok {
		return
	}

	var in LeaveInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "code": "validation"})
		return
	}

	draft, err := in.Validate()
	if err != nil {
		apperr.Respond(c, err)
		return
	}

	id, err := h.store.CreateLeave(c.Request.Context(), staffID, draft)
	if err != nil {
		apperr.Respond(c, err)
		return
	}

	if manager, err := h.store.ManagerOf(c.Request.Context(), staffID); err == nil && manager > 0 {
		h.notifier.Notify(c.Request.Context(), notify.Event{
			StaffID: manager,
			Kind:    notify.KindLeaveCreated,
			Title:   fmt.Sprintf("%s request from %s", draft.Category, authmw.Username(c)),
			Body:    fmt.Sprintf("%s to %s", utils.FormatDate(draft.LeaveDate), utils.FormatDate(draft.EndDate)),
		})
	}

	c.JSON(http.StatusCreated, gin.H{"status": "ok", "id": id})
}

func (h *Handler) handleUpdateLeave(c *gin.Context) {
	staffID, ok := h.caller(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "leave")
	if !ok {
		return
	}

	var in LeaveInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "code": "validation"})
		return
	}

	draft, err := in.Validate()
	if err != nil {
		apperr.Respond(c, err)
		return
	}

	owner := staffID
	if authmw.IsAdmin(c) {
		owner = 0
	}
	if err := h.store.UpdateLeave(c.Request.Context(), id, owner, draft); err != nil {
		apperr.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) handleDeleteLeave(c *gin.Context) {
	staffID, ok := h.caller(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "leave")
	if !ok {
		return
	}

	owner := staffID
	if authmw.IsAdmin(c) {
		owner = 0
	}
	if err := h.store.DeleteLeave(c.Request.Context(), id, owner, staffID); err != nil {
		apperr.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) listLeaves(c *gin.Context, f ListFilter) {
	if s := c.Query("status"); s != "" {
		f.Status = Status(s)
		if !f.Status.Valid() {
			apperr.Respond(c, apperr.Validation("status must be Pending, Approve or Reject"))
			return
		}
	}
	if c.Query("year") != "" {
		y, ok := h.yearQuery(c)
		if !ok {
			return
		}
		f.Year = y
	}
	limit, err := utils.ParseQueryInt(c.Query("limit"), 50)
	if err != nil {
		apperr.Respond(c, apperr.Validation("limit must be a number"))
		return
	}
	f.Limit = limit

	items, err := h.store.ListLeaves(c.Request.Context(), f)
	if err != nil {
		apperr.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *Handler) handleListMine(c *gin.Context) {
	staffID, ok := h.caller(c)
	if !ok {
		return
	}
	h.listLeaves(c, ListFilter{StaffID: staffID})
}

func (h *Handler) handleListAll(c *gin.Context) {
	var f ListFilter
	if raw := c.Query("staffId"); raw != "" {
		id, ok := utils.ParseID(raw)
		if !ok {
			apperr.Respond(c, apperr.Validation("invalid staffId"))
			return
		}
		f.StaffID = id
	}
	h.listLeaves(c, f)
}

func (h *Handler) handleDecide(c *gin.Context) {
	actor, ok := h.caller(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "leave")
	if !ok {
		return
	}

	var req DecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "code": "validation"})
		return
	}

	r, err := h.store.Decide(c.Request.Context(), id, Status(req.Status), actor)
	if err != nil {
		apperr.Respond(c, err)
		return
	}

	h.notifier.Notify(c.Request.Context(), notify.Event{
		StaffID: r.StaffID,
		Kind:    notify.KindLeaveDecided,
		Title:   fmt.Sprintf("Your %s request was %s", r.Category, r.Status),
		Body:    fmt.Sprintf("%s to %s", utils.FormatDate(r.LeaveDate.Time), utils.FormatDate(r.EndDate.Time)),
	})

	c.JSON(http.StatusOK, r)
}

func (h *Handler) summaryFor(c *gin.Context, staffID int64, year int) (Summary, error) {
	ctx := c.Request.Context()

	name, err := h.store.StaffName(ctx, staffID)
	if err != nil {
		return Summary{}, err
	}
	requests, err := h.store.LeavesForYear(ctx, staffID, year)
	if err != nil {
		return Summary{}, err
	}
	alloc, err := h.store.Allocation(ctx, staffID, year)
	if err != nil {
		return Summary{}, err
	}

	return Summarize(staffID, name, year, requests, alloc), nil
}

func (h *Handler) handleSummary(c *gin.Context) {
	staffID, ok := h.targetStaff(c)
	if !ok {
		return
	}
	year, ok := h.yearQuery(c)
	if !ok {
		return
	}

	s, err := h.summaryFor(c, staffID, year)
	if err != nil {
		apperr.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, s)
}

// handleAllSummaries answers one entry per active staff member.
func (h *Handler) handleAllSummaries(c *gin.Context) {
	year, ok := h.yearQuery(c)
	if !ok {
		return
	}

	items, err := h.store.YearSummaries(c.Request.Context(), year)
	if err != nil {
		apperr.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"allocationYear": year, "items": items})
}

func (h *Handler) handleSetAllocation(c *gin.Context) {
	var req AllocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "code": "validation"})
		return
	}

	a := Allocation(req)
	if err := h.store.SetAllocation(c.Request.Context(), a); err != nil {
		apperr.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, a)
}

func (h *Handler) handleRecompute(c *gin.Context) {
	year, ok := h.yearQuery(c)
	if !ok {
		return
	}

	n, err := h.store.RecomputeYear(c.Request.Context(), year)
	if err != nil {
		apperr.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok", "year": year, "staff": n})
}

func (h *Handler) handleCalendar(c *gin.Context) {
	staffID, ok := h.targetStaff(c)
	if !ok {
		return
	}
	year, ok := h.yearQuery(c)
	if !ok {
		return
	}

	month := int(h.now().Month())
	if raw := c.Query("month"); raw != "" {
		m, err := strconv.Atoi(raw)
		if err != nil || m < 1 || m > 12 {
			apperr.Respond(c, apperr.Validation("month must be between 1 and 12"))
			return
		}
		month = m
	}

	from := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(year, time.Month(month), utils.DaysIn(year, time.Month(month)), 0, 0, 0, 0, time.UTC)

	holidays, err := h.store.HolidaysBetween(c.Request.Context(), from, to)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	leaves, err := h.store.LeavesBetween(c.Request.Context(), staffID, from, to)
	if err != nil {
		apperr.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"year":    year,
		"month":   month,
		"staffId": staffID,
		"days":    Classify(year, time.Month(month), holidays, leaves, h.marker),
	})
}

func (h *Handler) handleListHolidays(c *gin.Context) {
	year, ok := h.yearQuery(c)
	if !ok {
		return
	}

	from, to := yearBounds(year)
	items, err := h.store.HolidaysBetween(c.Request.Context(), from, to)
	if err != nil {
		apperr.Respond(c, err)
		return
	}

	out := make([]gin.H, 0, len(items))
	for _, hd := range items {
		out = append(out, gin.H{
			"id":          hd.ID,
			"date":        hd.Date,
			"name":        hd.Name,
			"description": hd.Description,
			"maintenance": IsMaintenance(hd, h.marker),
		})
	}

	c.JSON(http.StatusOK, gin.H{"year": year, "items": out})
}

func bindHoliday(c *gin.Context) (time.Time, HolidayRequest, bool) {
	var req HolidayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "code": "validation"})
		return time.Time{}, req, false
	}
	d, err := utils.ParseDate(req.Date)
	if err != nil {
		apperr.Respond(c, apperr.Validation("malformed date, expected YYYY-MM-DD"))
		return time.Time{}, req, false
	}
	return d, req, true
}

func (h *Handler) handleCreateHoliday(c *gin.Context) {
	d, req, ok := bindHoliday(c)
	if !ok {
		return
	}

	id, err := h.store.CreateHoliday(c.Request.Context(), d, req.Name, req.Description)
	if err != nil {
		apperr.Respond(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"status": "ok", "id": id})
}

func (h *Handler) handleUpdateHoliday(c *gin.Context) {
	id, ok := idParam(c, "holiday")
	if !ok {
		return
	}
	d, req, ok := bindHoliday(c)
	if !ok {
		return
	}

	if err := h.store.UpdateHoliday(c.Request.Context(), id, d, req.Name, req.Description); err != nil {
		apperr.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) handleDeleteHoliday(c *gin.Context) {
	actor, ok := h.caller(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "holiday")
	if !ok {
		return
	}

	if err := h.store.DeleteHoliday(c.Request.Context(), id, actor); err != nil {
		apperr.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
