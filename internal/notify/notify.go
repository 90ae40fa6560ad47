// Package notify delivers fire-and-forget events to staff members: a row in the
// notifications table plus a postgres NOTIFY on the configured channel for live clients.
package notify

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"kyri56xcaesar/opscrm/internal/apperr"
	"kyri56xcaesar/opscrm/internal/authmw"
	"kyri56xcaesar/opscrm/internal/database"
	"kyri56xcaesar/opscrm/internal/utils"

	"github.com/gin-gonic/gin"
)

type Kind string

const (
	KindTaskAssigned   Kind = "task_assigned"
	KindTaskRework     Kind = "task_rework"
	KindTaskUpdated    Kind = "task_updated"
	KindLeaveDecided   Kind = "leave_decided"
	KindLeaveCreated   Kind = "leave_created"
	KindTeamMessage    Kind = "team_message"
	KindWorkAssigned   Kind = "work_assigned"
	KindTeamMembership Kind = "team_membership"
	KindLeadAssigned   Kind = "lead_assigned"
)

type Event struct {
	StaffID int64  `json:"staffId"`
	Kind    Kind   `json:"kind"`
	Title   string `json:"title"`
	Body    string `json:"body,omitempty"`
}

type Notification struct {
	ID        int64     `json:"id"`
	StaffID   int64     `json:"staffId"`
	Kind      Kind      `json:"kind"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"createdAt"`
}

// Notifier never reports failure to the caller; delivery is best effort.
type Notifier interface {
	Notify(ctx context.Context, ev Event)
}

// Nop drops every event.
type Nop struct{}

func (Nop) Notify(context.Context, Event) {}

type Publisher struct {
	db      database.DB
	channel string
}

func NewPublisher(db database.DB, channel string) *Publisher {
	return &Publisher{db: db, channel: channel}
}

func (p *Publisher) Notify(ctx context.Context, ev Event) {
	if ev.StaffID <= 0 {
		return
	}

	var id int64
	err := p.db.QueryRow(ctx, `
		INSERT INTO notifications (staff_id, kind, title, body)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, ev.StaffID, string(ev.Kind), ev.Title, ev.Body).Scan(&id)
	if err != nil {
		log.Printf("failed to store notification %s for staff %d: %v", ev.Kind, ev.StaffID, err)
		return
	}

	payload, err := json.Marshal(struct {
		ID int64 `json:"id"`
		Event
	}{id, ev})
	if err != nil {
		log.Printf("failed to marshal notification payload: %v", err)
		return
	}

	if _, err := p.db.Exec(ctx, `SELECT pg_notify($1, $2)`, p.channel, string(payload)); err != nil {
		log.Printf("failed to publish notification %d: %v", id, err)
	}
}

func (p *Publisher) List(ctx context.Context, staffID int64, unreadOnly bool, limit int) ([]Notification, error) {
	limit = database.NormalizeLimit(limit, 30, 200)

	rows, err := p.db.Query(ctx, `
		SELECT id, staff_id, kind, title, body, read, created_at
		FROM notifications
		WHERE staff_id = $1 AND (NOT $2 OR read = FALSE)
		ORDER BY created_at DESC
		LIMIT $3
	`, staffID, unreadOnly, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Notification, 0, limit)
	for rows.Next() {
		var n Notification
		var kind string
		if err := rows.Scan(&n.ID, &n.StaffID, &kind, &n.Title, &n.Body, &n.Read, &n.CreatedAt); err != nil {
			return nil, err
		}
		n.Kind = Kind(kind)
		out = append(out, n)
	}
	return out, rows.Err()
}

func (p *Publisher) MarkRead(ctx context.Context, staffID, id int64) error {
	ct, err := p.db.Exec(ctx, `
		UPDATE notifications SET read = TRUE WHERE id = $1 AND staff_id = $2
	`, id, staffID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return apperr.NotFound("notification")
	}
	return nil
}

// Register mounts the notification inbox on an authenticated group.
func (p *Publisher) Register(auth gin.IRoutes) {
	auth.GET("/notifications", p.handleList)
	auth.PATCH("/notifications/:id/read", p.handleMarkRead)
}

func (p *Publisher) handleList(c *gin.Context) {
	staffID, ok := authmw.StaffID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	limit, err := utils.ParseQueryInt(c.Query("limit"), 30)
	if err != nil {
		apperr.Respond(c, apperr.Validation("limit must be a number"))
		return
	}
	items, err := p.List(c.Request.Context(), staffID, c.Query("unread") == "true", limit)
	if err != nil {
		apperr.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (p *Publisher) handleMarkRead(c *gin.Context) {
	staffID, ok := authmw.StaffID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	if err := p.MarkRead(c.Request.Context(), staffID, id); err != nil {
		apperr.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
