package mteam

import (
	"fmt"
	"log"
	"net/http"
	"strings"

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

func mustStaff(c *gin.Context) (int64, bool) {
	id, ok := authmw.StaffID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
	}
	return id, ok
}

func teamIDParam(c *gin.Context) (int64, bool) {
	id, ok := utils.ParseID(c.Param("teamid"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing/invalid teamid", "code": "validation"})
	}
	return id, ok
}

// loadForMember fetches the team when the caller belongs to it (or is an admin).
func (h *Handler) loadForMember(c *gin.Context, teamID, staffID int64) (*Team, bool) {
	t, err := h.store.GetTeam(c.Request.Context(), teamID)
	if err != nil {
		apperr.Respond(c, err)
		return nil, false
	}
	if !NewRoster(t.LeaderID, t.MemberIDs).Has(staffID) && !authmw.IsAdmin(c) {
		apperr.Respond(c, apperr.Forbidden("not a member of this team"))
		return nil, false
	}
	return t, true
}

func (h *Handler) createHandler(c *gin.Context) {
	actor, ok := mustStaff(c)
	if !ok {
		return
	}

	var req CreateTeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Printf("failed to bind input: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "code": "validation"})
		return
	}

	roster := NewRoster(req.LeaderID, req.MemberIDs)
	id, err := h.store.CreateTeam(c.Request.Context(), req.Name, roster, actor)
	if err != nil {
		apperr.Respond(c, err)
		return
	}

	for _, member := range roster.All() {
		h.notifier.Notify(c.Request.Context(), notify.Event{
			StaffID: member,
			Kind:    notify.KindTeamMembership,
			Title:   fmt.Sprintf("You were added to team %s", req.Name),
		})
	}

	c.JSON(http.StatusCreated, gin.H{"status": "ok", "teamid": id})
}

func (h *Handler) updateHandler(c *gin.Context) {
	actor, ok := mustStaff(c)
	if !ok {
		return
	}
	teamID, ok := teamIDParam(c)
	if !ok {
		return
	}

	var req UpdateTeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "code": "validation"})
		return
	}
	if req.Name == nil && req.LeaderID == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "provide name and/or leaderId", "code": "validation"})
		return
	}

	ctx := c.Request.Context()
	if req.Name != nil {
		_, err := h.store.MutateTeam(ctx, teamID, actor, ActionRenamed, func(st *TeamState) error {
			st.Name = strings.TrimSpace(*req.Name)
			return nil
		})
		if err != nil {
			apperr.Respond(c, err)
			return
		}
	}
	if req.LeaderID != nil {
		st, err := h.store.MutateTeam(ctx, teamID, actor, ActionLeaderChanged, func(st *TeamState) error {
			return st.Roster.SetLeader(*req.LeaderID)
		})
		if err != nil {
			apperr.Respond(c, err)
			return
		}
		h.notifier.Notify(ctx, notify.Event{
			StaffID: st.Roster.LeaderID,
			Kind:    notify.KindTeamMembership,
			Title:   fmt.Sprintf("You now lead team %s", st.Name),
		})
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) deleteHandler(c *gin.Context) {
	actor, ok := mustStaff(c)
	if !ok {
		return
	}
	teamID, ok := teamIDParam(c)
	if !ok {
		return
	}

	if err := h.store.DeleteTeam(c.Request.Context(), teamID, actor); err != nil {
		apperr.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) getHandler(c *gin.Context) {
	limit, err := utils.ParseQueryInt(c.Query("limit"), 20)
	if err != nil {
		apperr.Respond(c, apperr.Validation("limit must be a number"))
		return
	}
	order := c.DefaultQuery("order", "created_desc")
	name := c.Query("name")

	teams, err := h.store.ListTeams(c.Request.Context(), ListFilter{Name: name, Limit: limit, Order: order})
	if err != nil {
		apperr.Respond(c, err)
		return
	}

	payload := gin.H{
		"items": teams,
		"order": order,
	}
	if name != "" {
		payload["name"] = name
	}

	c.JSON(http.StatusOK, payload)
}

func (h *Handler) handleMyTeams(c *gin.Context) {
	staffID, ok := mustStaff(c)
	if !ok {
		return
	}

	limit, err := utils.ParseQueryInt(c.Query("limit"), 50)
	if err != nil {
		apperr.Respond(c, apperr.Validation("limit must be a number"))
		return
	}
	teams, err := h.store.ListTeamsForStaff(c.Request.Context(), staffID, limit)
	if err != nil {
		apperr.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": teams})
}

// memberChange is shared by add and remove: only the team leader or an admin may do it.
func (h *Handler) memberChange(c *gin.Context, staffID int64, action Action) {
	actor, ok := mustStaff(c)
	if !ok {
		return
	}
	teamID, ok := teamIDParam(c)
	if !ok {
		return
	}

	st, err := h.store.MutateTeam(c.Request.Context(), teamID, actor, action, func(st *TeamState) error {
		if st.Roster.LeaderID != actor && !authmw.IsAdmin(c) {
			return apperr.Forbidden("only the team leader can change members")
		}
		if action == ActionMemberAdded {
			return st.Roster.Add(staffID)
		}
		return st.Roster.Remove(staffID)
	})
	if err != nil {
		apperr.Respond(c, err)
		return
	}

	title := fmt.Sprintf("You were added to team %s", st.Name)
	if action == ActionMemberRemoved {
		title = fmt.Sprintf("You were removed from team %s", st.Name)
	}
	h.notifier.Notify(c.Request.Context(), notify.Event{StaffID: staffID, Kind: notify.KindTeamMembership, Title: title})

	c.JSON(http.StatusOK, gin.H{"status": "ok", "leaderId": st.Roster.LeaderID, "memberIds": st.Roster.Members})
}

func (h *Handler) addTeamMemberHandler(c *gin.Context) {
	var req AddTeamMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "code": "validation"})
		return
	}
	h.memberChange(c, req.StaffID, ActionMemberAdded)
}

func (h *Handler) removeTeamMemberHandler(c *gin.Context) {
	staffID, ok := utils.ParseID(c.Param("staffid"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing/invalid staffid", "code": "validation"})
		return
	}
	h.memberChange(c, staffID, ActionMemberRemoved)
}

func (h *Handler) historyHandler(c *gin.Context) {
	teamID, ok := teamIDParam(c)
	if !ok {
		return
	}

	limit, err := utils.ParseQueryInt(c.Query("limit"), 50)
	if err != nil {
		apperr.Respond(c, apperr.Validation("limit must be a number"))
		return
	}
	items, err := h.store.History(c.Request.Context(), teamID, limit)
	if err != nil {
		apperr.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *Handler) handlePostMessage(c *gin.Context) {
	staffID, ok := mustStaff(c)
	if !ok {
		return
	}
	teamID, ok := teamIDParam(c)
	if !ok {
		return
	}

	var req MessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "code": "validation"})
		return
	}
	if strings.TrimSpace(req.Body) == "" {
		apperr.Respond(c, apperr.Validation("message body required"))
		return
	}

	t, ok := h.loadForMember(c, teamID, staffID)
	if !ok {
		return
	}

	id, err := h.store.PostMessage(c.Request.Context(), teamID, staffID, req.Body)
	if err != nil {
		apperr.Respond(c, err)
		return
	}

	recipients := utils.Filter(NewRoster(t.LeaderID, t.MemberIDs).All(), func(id int64) bool { return id != staffID })
	for _, member := range recipients {
		h.notifier.Notify(c.Request.Context(), notify.Event{
			StaffID: member,
			Kind:    notify.KindTeamMessage,
			Title:   fmt.Sprintf("New message in %s", t.Name),
			Body:    req.Body,
		})
	}

	c.JSON(http.StatusCreated, gin.H{"status": "ok", "id": id})
}

func (h *Handler) handleListMessages(c *gin.Context) {
	staffID, ok := mustStaff(c)
	if !ok {
		return
	}
	teamID, ok := teamIDParam(c)
	if !ok {
		return
	}

	if _, ok := h.loadForMember(c, teamID, staffID); !ok {
		return
	}

	limit, err := utils.ParseQueryInt(c.Query("limit"), 50)
	if err != nil {
		apperr.Respond(c, apperr.Validation("limit must be a number"))
		return
	}
	items, err := h.store.ListMessages(c.Request.Context(), teamID, limit)
	if err != nil {
		apperr.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": items})
}
