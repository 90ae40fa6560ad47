package mcrm

import (
	"context"
	"strings"
	"time"

	"kyri56xcaesar/opscrm/internal/apperr"
	"kyri56xcaesar/opscrm/internal/database"
	"kyri56xcaesar/opscrm/internal/lifecycle"
	"kyri56xcaesar/opscrm/internal/utils"

	"github.com/jackc/pgx/v5"
)

// --- work assignments ---

func (s *Store) CreateWork(ctx context.Context, req CreateWorkRequest, dueDate *time.Time, actorID int64) (int64, error) {
	priority := req.Priority
	if priority == "" {
		priority = "Normal"
	}

	var id int64
	err := s.db.QueryRow(ctx, `
		INSERT INTO work_assignments (title, description, priority, assigned_to, team_id, due_date, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, strings.TrimSpace(req.Title), req.Description, priority, req.AssignedTo, req.TeamID, dueDate, actorID).Scan(&id)
	return id, err
}

const workColumns = `id, title, description, priority, status, assigned_to, team_id, due_date, created_by, created_at, updated_at`

func scanWork(row pgx.Row, w *WorkAssignment) error {
	var (
		status string
		due    *time.Time
	)
	if err := row.Scan(&w.ID, &w.Title, &w.Description, &w.Priority, &status, &w.AssignedTo, &w.TeamID, &due,
		&w.CreatedBy, &w.CreatedAt, &w.UpdatedAt); err != nil {
		return err
	}
	w.Status = WorkStatus(status)
	if due != nil {
		d := utils.NewDate(*due)
		w.DueDate = &d
	}
	return nil
}

func (s *Store) GetWork(ctx context.Context, id int64) (*WorkAssignment, error) {
	var w WorkAssignment
	if err := scanWork(s.db.QueryRow(ctx, `SELECT `+workColumns+` FROM work_assignments WHERE id = $1 AND soft_delete = FALSE`, id), &w); err != nil {
		return nil, notFound(err, "work assignment")
	}
	return &w, nil
}

// ListWork with StaffID set returns work assigned to the staff member directly or to a
// team they lead or belong to.
func (s *Store) ListWork(ctx context.Context, f WorkFilter) ([]WorkAssignment, error) {
	limit := database.NormalizeLimit(f.Limit, 50, 500)

	rows, err := s.db.Query(ctx, `
		SELECT `+workColumns+` FROM work_assignments w
		WHERE w.soft_delete = FALSE
		  AND ($1 = 0 OR w.assigned_to = $1 OR w.team_id IN (
		        SELECT t.id FROM teams t
		        WHERE t.soft_delete = FALSE AND (t.leader_id = $1 OR $1 = ANY(t.member_ids))))
		  AND ($2 = '' OR w.status = $2)
		ORDER BY w.due_date ASC NULLS LAST, w.created_at DESC
		LIMIT $3
	`, f.StaffID, f.Status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]WorkAssignment, 0, limit)
	for rows.Next() {
		var w WorkAssignment
		if err := scanWork(rows, &w); err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

func (s *Store) UpdateWork(ctx context.Context, id int64, req UpdateWorkRequest, dueDate *time.Time) error {
	var set setList
	if req.Title != nil {
		set.add("title", trimmed(req.Title))
	}
	if req.Description != nil {
		set.add("description", *req.Description)
	}
	if req.Priority != nil {
		set.add("priority", *req.Priority)
	}
	if req.AssignedTo != nil {
		set.add("assigned_to", *req.AssignedTo)
	}
	if req.TeamID != nil {
		set.add("team_id", *req.TeamID)
	}
	if req.DueDate != nil {
		// an empty string clears the due date
		set.add("due_date", dueDate)
	}
	return set.exec(ctx, s.db, "work_assignments", "work assignment", id)
}

// SetWorkStatus locks the assignment, lets authorize decide, then applies the move.
func (s *Store) SetWorkStatus(ctx context.Context, id, actorID int64, to WorkStatus, authorize func(WorkAccess) error) (*WorkAssignment, error) {
	var out *WorkAssignment
	err := database.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		var (
			acc    WorkAccess
			status string
		)
		err := tx.QueryRow(ctx, `
			SELECT w.status, w.assigned_to,
			       EXISTS (SELECT 1 FROM teams t
			               WHERE t.id = w.team_id AND t.soft_delete = FALSE
			                 AND (t.leader_id = $2 OR $2 = ANY(t.member_ids)))
			FROM work_assignments w
			WHERE w.id = $1 AND w.soft_delete = FALSE
			FOR UPDATE OF w
		`, id, actorID).Scan(&status, &acc.AssignedTo, &acc.InTeam)
		if err != nil {
			return notFound(err, "work assignment")
		}
		acc.Status = WorkStatus(status)

		if err := authorize(acc); err != nil {
			return err
		}
		if err := acc.Status.Advance(to); err != nil {
			return err
		}

		var w WorkAssignment
		if err := scanWork(tx.QueryRow(ctx, `
			UPDATE work_assignments SET status = $1, updated_at = now() WHERE id = $2
			RETURNING `+workColumns, string(to), id), &w); err != nil {
			return err
		}
		out = &w
		return nil
	})
	return out, err
}

func (s *Store) DeleteWork(ctx context.Context, id, actorID int64) error {
	_, err := lifecycle.SoftDelete(ctx, s.db, lifecycle.EntityWork, id, actorID)
	return err
}

// --- calls ---

func (s *Store) CreateCall(ctx context.Context, req CallRequest) (int64, error) {
	var id int64
	err := s.db.QueryRow(ctx, `
		INSERT INTO calls (staff_id, contact_id, subject, scheduled_at, duration_minutes, outcome)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, req.StaffID, req.ContactID, strings.TrimSpace(req.Subject), req.ScheduledAt, req.DurationMinutes, req.Outcome).Scan(&id)
	return id, err
}

const callColumns = `id, staff_id, contact_id, subject, scheduled_at, duration_minutes, outcome, created_at, updated_at`

func scanCall(row pgx.Row, c *Call) error {
	return row.Scan(&c.ID, &c.StaffID, &c.ContactID, &c.Subject, &c.ScheduledAt, &c.DurationMinutes, &c.Outcome,
		&c.CreatedAt, &c.UpdatedAt)
}

func (s *Store) GetCall(ctx context.Context, id int64) (*Call, error) {
	var c Call
	if err := scanCall(s.db.QueryRow(ctx, `SELECT `+callColumns+` FROM calls WHERE id = $1 AND soft_delete = FALSE`, id), &c); err != nil {
		return nil, notFound(err, "call")
	}
	return &c, nil
}

// rangeArgs turns open ends into nil so the query can skip them.
func rangeArgs(r Range) (from, to *time.Time) {
	if !r.From.IsZero() {
		from = &r.From
	}
	if !r.To.IsZero() {
		to = &r.To
	}
	return from, to
}

func (s *Store) ListCalls(ctx context.Context, staffID int64, r Range, limit int) ([]Call, error) {
	limit = database.NormalizeLimit(limit, 100, 500)
	from, to := rangeArgs(r)

	rows, err := s.db.Query(ctx, `
		SELECT `+callColumns+` FROM calls
		WHERE soft_delete = FALSE
		  AND ($1 = 0 OR staff_id = $1)
		  AND ($2::timestamptz IS NULL OR scheduled_at >= $2)
		  AND ($3::timestamptz IS NULL OR scheduled_at < $3)
		ORDER BY scheduled_at
		LIMIT $4
	`, staffID, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Call, 0, limit)
	for rows.Next() {
		var c Call
		if err := scanCall(rows, &c); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) UpdateCall(ctx context.Context, id int64, req UpdateCallRequest) error {
	var set setList
	if req.Subject != nil {
		set.add("subject", trimmed(req.Subject))
	}
	if req.ScheduledAt != nil {
		set.add("scheduled_at", *req.ScheduledAt)
	}
	if req.DurationMinutes != nil {
		set.add("duration_minutes", *req.DurationMinutes)
	}
	if req.Outcome != nil {
		set.add("outcome", *req.Outcome)
	}
	return set.exec(ctx, s.db, "calls", "call", id)
}

func (s *Store) DeleteCall(ctx context.Context, id, actorID int64) error {
	_, err := lifecycle.SoftDelete(ctx, s.db, lifecycle.EntityCall, id, actorID)
	return err
}

// --- meetings ---

func (s *Store) CreateMeeting(ctx context.Context, req MeetingRequest) (int64, error) {
	if req.EndsAt.Before(req.StartsAt) {
		return 0, apperr.ErrDateOrder
	}

	var id int64
	err := s.db.QueryRow(ctx, `
		INSERT INTO meetings (organizer_id, contact_id, title, location, starts_at, ends_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, req.OrganizerID, req.ContactID, strings.TrimSpace(req.Title), req.Location, req.StartsAt, req.EndsAt).Scan(&id)
	return id, err
}

const meetingColumns = `id, organizer_id, contact_id, title, location, starts_at, ends_at, created_at, updated_at`

func scanMeeting(row pgx.Row, m *Meeting) error {
	return row.Scan(&m.ID, &m.OrganizerID, &m.ContactID, &m.Title, &m.Location, &m.StartsAt, &m.EndsAt,
		&m.CreatedAt, &m.UpdatedAt)
}

func (s *Store) GetMeeting(ctx context.Context, id int64) (*Meeting, error) {
	var m Meeting
	if err := scanMeeting(s.db.QueryRow(ctx, `SELECT `+meetingColumns+` FROM meetings WHERE id = $1 AND soft_delete = FALSE`, id), &m); err != nil {
		return nil, notFound(err, "meeting")
	}
	return &m, nil
}

// ListMeetings returns meetings overlapping r.
func (s *Store) ListMeetings(ctx context.Context, organizerID int64, r Range, limit int) ([]Meeting, error) {
	limit = database.NormalizeLimit(limit, 100, 500)
	from, to := rangeArgs(r)

	rows, err := s.db.Query(ctx, `
		SELECT `+meetingColumns+` FROM meetings
		WHERE soft_delete = FALSE
		  AND ($1 = 0 OR organizer_id = $1)
		  AND ($2::timestamptz IS NULL OR ends_at >= $2)
		  AND ($3::timestamptz IS NULL OR starts_at < $3)
		ORDER BY starts_at
		LIMIT $4
	`, organizerID, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Meeting, 0, limit)
	for rows.Next() {
		var m Meeting
		if err := scanMeeting(rows, &m); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// UpdateMeeting checks the merged time window before writing.
func (s *Store) UpdateMeeting(ctx context.Context, id int64, req UpdateMeetingRequest) error {
	return database.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		var starts, ends time.Time
		err := tx.QueryRow(ctx, `
			SELECT starts_at, ends_at FROM meetings WHERE id = $1 AND soft_delete = FALSE FOR UPDATE
		`, id).Scan(&starts, &ends)
		if err != nil {
			return notFound(err, "meeting")
		}

		var set setList
		if req.Title != nil {
			set.add("title", trimmed(req.Title))
		}
		if req.Location != nil {
			set.add("location", *req.Location)
		}
		if req.StartsAt != nil {
			starts = *req.StartsAt
			set.add("starts_at", starts)
		}
		if req.EndsAt != nil {
			ends = *req.EndsAt
			set.add("ends_at", ends)
		}
		if ends.Before(starts) {
			return apperr.ErrDateOrder
		}
		return set.exec(ctx, tx, "meetings", "meeting", id)
	})
}

func (s *Store) DeleteMeeting(ctx context.Context, id, actorID int64) error {
	_, err := lifecycle.SoftDelete(ctx, s.db, lifecycle.EntityMeeting, id, actorID)
	return err
}

// --- documents ---

func (s *Store) CreateDocument(ctx context.Context, d Document) (int64, error) {
	var id int64
	err := s.db.QueryRow(ctx, `
		INSERT INTO documents (entity_type, entity_id, name, object_key, uploaded_by)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, d.EntityType, d.EntityID, strings.TrimSpace(d.Name), d.ObjectKey, d.UploadedBy).Scan(&id)
	return id, err
}

const documentColumns = `id, entity_type, entity_id, name, object_key, uploaded_by, created_at`

func scanDocument(row pgx.Row, d *Document) error {
	return row.Scan(&d.ID, &d.EntityType, &d.EntityID, &d.Name, &d.ObjectKey, &d.UploadedBy, &d.CreatedAt)
}

func (s *Store) GetDocument(ctx context.Context, id int64) (*Document, error) {
	var d Document
	if err := scanDocument(s.db.QueryRow(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = $1 AND soft_delete = FALSE`, id), &d); err != nil {
		return nil, notFound(err, "document")
	}
	return &d, nil
}

func (s *Store) ListDocuments(ctx context.Context, entityType string, entityID int64) ([]Document, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+documentColumns+` FROM documents
		WHERE soft_delete = FALSE AND entity_type = $1 AND entity_id = $2
		ORDER BY created_at DESC
	`, entityType, entityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Document{}
	for rows.Next() {
		var d Document
		if err := scanDocument(rows, &d); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *Store) DeleteDocument(ctx context.Context, id, actorID int64) error {
	_, err := lifecycle.SoftDelete(ctx, s.db, lifecycle.EntityDocument, id, actorID)
	return err
}
