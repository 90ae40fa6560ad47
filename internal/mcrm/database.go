package mcrm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"kyri56xcaesar/opscrm/internal/apperr"
	"kyri56xcaesar/opscrm/internal/database"
	"kyri56xcaesar/opscrm/internal/lifecycle"
	"kyri56xcaesar/opscrm/internal/mtask"

	"github.com/jackc/pgx/v5"
)

// WorkAccess is what a status change is authorized against.
type WorkAccess struct {
	Status     WorkStatus
	AssignedTo *int64
	// the actor leads or belongs to the assigned team
	InTeam bool
}

type Repository interface {
	CreateCompany(ctx context.Context, req CompanyRequest, actorID int64) (int64, error)
	GetCompany(ctx context.Context, id int64) (*Company, error)
	ListCompanies(ctx context.Context, search string, limit int) ([]Company, error)
	UpdateCompany(ctx context.Context, id int64, req CompanyRequest) error
	DeleteCompany(ctx context.Context, id, actorID int64) error

	CreateContact(ctx context.Context, req CreateContactRequest, ownerID int64) (int64, error)
	GetContact(ctx context.Context, id int64) (*Contact, error)
	ListContacts(ctx context.Context, ownerID int64, search string, limit int) ([]Contact, error)
	UpdateContact(ctx context.Context, id int64, req UpdateContactRequest) error
	DeleteContact(ctx context.Context, id, actorID int64) error

	CreateLead(ctx context.Context, req CreateLeadRequest) (int64, error)
	GetLead(ctx context.Context, id int64) (*Lead, error)
	ListLeads(ctx context.Context, f LeadFilter) ([]Lead, error)
	UpdateLead(ctx context.Context, id int64, req UpdateLeadRequest) error
	DeleteLead(ctx context.Context, id, actorID int64) error
	ConvertLead(ctx context.Context, id int64, finishBy *time.Time) (*Lead, error)

	CreateWork(ctx context.Context, req CreateWorkRequest, dueDate *time.Time, actorID int64) (int64, error)
	GetWork(ctx context.Context, id int64) (*WorkAssignment, error)
	ListWork(ctx context.Context, f WorkFilter) ([]WorkAssignment, error)
	UpdateWork(ctx context.Context, id int64, req UpdateWorkRequest, dueDate *time.Time) error
	SetWorkStatus(ctx context.Context, id, actorID int64, to WorkStatus, authorize func(WorkAccess) error) (*WorkAssignment, error)
	DeleteWork(ctx context.Context, id, actorID int64) error

	CreateCall(ctx context.Context, req CallRequest) (int64, error)
	GetCall(ctx context.Context, id int64) (*Call, error)
	ListCalls(ctx context.Context, staffID int64, r Range, limit int) ([]Call, error)
	UpdateCall(ctx context.Context, id int64, req UpdateCallRequest) error
	DeleteCall(ctx context.Context, id, actorID int64) error

	CreateMeeting(ctx context.Context, req MeetingRequest) (int64, error)
	GetMeeting(ctx context.Context, id int64) (*Meeting, error)
	ListMeetings(ctx context.Context, organizerID int64, r Range, limit int) ([]Meeting, error)
	UpdateMeeting(ctx context.Context, id int64, req UpdateMeetingRequest) error
	DeleteMeeting(ctx context.Context, id, actorID int64) error

	CreateDocument(ctx context.Context, d Document) (int64, error)
	GetDocument(ctx context.Context, id int64) (*Document, error)
	ListDocuments(ctx context.Context, entityType string, entityID int64) ([]Document, error)
	DeleteDocument(ctx context.Context, id, actorID int64) error
}

type Store struct {
	db database.DB
}

func NewStore(db database.DB) *Store {
	return &Store{db: db}
}

// setList collects the SET clause of a partial update.
type setList struct {
	parts []string
	args  []any
}

func (s *setList) add(col string, v any) {
	s.args = append(s.args, v)
	s.parts = append(s.parts, fmt.Sprintf("%s = $%d", col, len(s.args)))
}

func (s *setList) exec(ctx context.Context, db database.DB, table, what string, id int64) error {
	if len(s.parts) == 0 {
		return apperr.Validation("no fields to update")
	}

	// table is always a literal of this package
	query := fmt.Sprintf(`UPDATE %s SET %s, updated_at = now() WHERE id = $%d AND soft_delete = FALSE`,
		table, strings.Join(s.parts, ", "), len(s.args)+1)

	ct, err := db.Exec(ctx, query, append(s.args, id)...)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return apperr.NotFound(what)
	}
	return nil
}

func notFound(err error, what string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound(what)
	}
	return err
}

// --- companies ---

func (s *Store) CreateCompany(ctx context.Context, req CompanyRequest, actorID int64) (int64, error) {
	var id int64
	err := s.db.QueryRow(ctx, `
		INSERT INTO companies (name, website, address, created_by) VALUES ($1, $2, $3, $4) RETURNING id
	`, strings.TrimSpace(req.Name), strings.TrimSpace(req.Website), strings.TrimSpace(req.Address), actorID).Scan(&id)
	return id, err
}

const companyColumns = `id, name, website, address, created_by, created_at, updated_at`

func scanCompany(row pgx.Row, c *Company) error {
	return row.Scan(&c.ID, &c.Name, &c.Website, &c.Address, &c.CreatedBy, &c.CreatedAt, &c.UpdatedAt)
}

func (s *Store) GetCompany(ctx context.Context, id int64) (*Company, error) {
	var c Company
	err := scanCompany(s.db.QueryRow(ctx, `SELECT `+companyColumns+` FROM companies WHERE id = $1 AND soft_delete = FALSE`, id), &c)
	if err != nil {
		return nil, notFound(err, "company")
	}
	return &c, nil
}

func (s *Store) ListCompanies(ctx context.Context, search string, limit int) ([]Company, error) {
	limit = database.NormalizeLimit(limit, 50, 500)

	rows, err := s.db.Query(ctx, `
		SELECT `+companyColumns+` FROM companies
		WHERE soft_delete = FALSE AND ($1 = '' OR name ILIKE '%' || $1 || '%')
		ORDER BY name
		LIMIT $2
	`, strings.TrimSpace(search), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Company, 0, limit)
	for rows.Next() {
		var c Company
		if err := scanCompany(rows, &c); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) UpdateCompany(ctx context.Context, id int64, req CompanyRequest) error {
	var set setList
	set.add("name", strings.TrimSpace(req.Name))
	set.add("website", strings.TrimSpace(req.Website))
	set.add("address", strings.TrimSpace(req.Address))
	return set.exec(ctx, s.db, "companies", "company", id)
}

// DeleteCompany refuses while active contacts still point at the company.
func (s *Store) DeleteCompany(ctx context.Context, id, actorID int64) error {
	_, err := lifecycle.SoftDelete(ctx, s.db, lifecycle.EntityCompany, id, actorID, func(ctx context.Context, tx pgx.Tx) error {
		var n int
		if err := tx.QueryRow(ctx, `
			SELECT count(*) FROM contacts WHERE company_id = $1 AND soft_delete = FALSE
		`, id).Scan(&n); err != nil {
			return err
		}
		if n > 0 {
			return apperr.Conflict(fmt.Sprintf("company still has %d contacts", n))
		}
		return nil
	})
	return err
}

// --- contacts ---

func (s *Store) CreateContact(ctx context.Context, req CreateContactRequest, ownerID int64) (int64, error) {
	var id int64
	err := s.db.QueryRow(ctx, `
		INSERT INTO contacts (company_id, name, email, phone, owner_id) VALUES ($1, $2, $3, $4, $5) RETURNING id
	`, req.CompanyID, strings.TrimSpace(req.Name), req.Email, req.Phone, ownerID).Scan(&id)
	return id, err
}

const contactSelect = `
	SELECT c.id, c.company_id, COALESCE(co.name, ''), c.name, c.email, c.phone, c.owner_id, c.created_at, c.updated_at
	FROM contacts c
	LEFT JOIN companies co ON co.id = c.company_id AND co.soft_delete = FALSE
`

func scanContact(row pgx.Row, c *Contact) error {
	return row.Scan(&c.ID, &c.CompanyID, &c.CompanyName, &c.Name, &c.Email, &c.Phone, &c.OwnerID, &c.CreatedAt, &c.UpdatedAt)
}

func (s *Store) GetContact(ctx context.Context, id int64) (*Contact, error) {
	var c Contact
	if err := scanContact(s.db.QueryRow(ctx, contactSelect+` WHERE c.id = $1 AND c.soft_delete = FALSE`, id), &c); err != nil {
		return nil, notFound(err, "contact")
	}
	return &c, nil
}

// ListContacts lists every contact when ownerID is 0.
func (s *Store) ListContacts(ctx context.Context, ownerID int64, search string, limit int) ([]Contact, error) {
	limit = database.NormalizeLimit(limit, 50, 500)

	rows, err := s.db.Query(ctx, contactSelect+`
		WHERE c.soft_delete = FALSE
		  AND ($1 = 0 OR c.owner_id = $1)
		  AND ($2 = '' OR c.name ILIKE '%' || $2 || '%' OR c.email ILIKE '%' || $2 || '%')
		ORDER BY c.name
		LIMIT $3
	`, ownerID, strings.TrimSpace(search), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Contact, 0, limit)
	for rows.Next() {
		var c Contact
		if err := scanContact(rows, &c); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) UpdateContact(ctx context.Context, id int64, req UpdateContactRequest) error {
	var set setList
	if req.CompanyID != nil {
		set.add("company_id", *req.CompanyID)
	}
	if req.Name != nil {
		set.add("name", trimmed(req.Name))
	}
	if req.Email != nil {
		set.add("email", trimmed(req.Email))
	}
	if req.Phone != nil {
		set.add("phone", trimmed(req.Phone))
	}
	if req.OwnerID != nil {
		set.add("owner_id", *req.OwnerID)
	}
	return set.exec(ctx, s.db, "contacts", "contact", id)
}

// DeleteContact refuses while an open lead references the contact.
func (s *Store) DeleteContact(ctx context.Context, id, actorID int64) error {
	_, err := lifecycle.SoftDelete(ctx, s.db, lifecycle.EntityContact, id, actorID, func(ctx context.Context, tx pgx.Tx) error {
		var open bool
		if err := tx.QueryRow(ctx, `
			SELECT EXISTS (SELECT 1 FROM leads WHERE contact_id = $1 AND status = 'Open' AND soft_delete = FALSE)
		`, id).Scan(&open); err != nil {
			return err
		}
		if open {
			return apperr.Conflict("contact has open leads")
		}
		return nil
	})
	return err
}

// --- leads ---

func (s *Store) CreateLead(ctx context.Context, req CreateLeadRequest) (int64, error) {
	priority := req.Priority
	if priority == "" {
		priority = "Normal"
	}

	var id int64
	err := database.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		var exists bool
		if err := tx.QueryRow(ctx, `
			SELECT EXISTS (SELECT 1 FROM contacts WHERE id = $1 AND soft_delete = FALSE)
		`, req.ContactID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return apperr.NotFound("contact")
		}

		return tx.QueryRow(ctx, `
			INSERT INTO leads (contact_id, assigned_to, requirement, priority) VALUES ($1, $2, $3, $4) RETURNING id
		`, req.ContactID, req.AssignedTo, strings.TrimSpace(req.Requirement), priority).Scan(&id)
	})
	return id, err
}

const leadSelect = `
	SELECT l.id, l.contact_id, COALESCE(c.name, ''), l.assigned_to, l.requirement, l.priority, l.status,
	       l.task_id, l.created_at, l.updated_at
	FROM leads l
	LEFT JOIN contacts c ON c.id = l.contact_id
`

func scanLead(row pgx.Row, l *Lead) error {
	var status string
	if err := row.Scan(&l.ID, &l.ContactID, &l.ContactName, &l.AssignedTo, &l.Requirement, &l.Priority, &status,
		&l.TaskID, &l.CreatedAt, &l.UpdatedAt); err != nil {
		return err
	}
	l.Status = LeadStatus(status)
	return nil
}

func (s *Store) GetLead(ctx context.Context, id int64) (*Lead, error) {
	var l Lead
	if err := scanLead(s.db.QueryRow(ctx, leadSelect+` WHERE l.id = $1 AND l.soft_delete = FALSE`, id), &l); err != nil {
		return nil, notFound(err, "lead")
	}
	return &l, nil
}

func (s *Store) ListLeads(ctx context.Context, f LeadFilter) ([]Lead, error) {
	limit := database.NormalizeLimit(f.Limit, 50, 500)

	rows, err := s.db.Query(ctx, leadSelect+`
		WHERE l.soft_delete = FALSE
		  AND ($1 = 0 OR l.assigned_to = $1)
		  AND ($2 = '' OR l.status = $2)
		ORDER BY CASE l.priority WHEN 'High' THEN 0 WHEN 'Normal' THEN 1 ELSE 2 END, l.created_at DESC
		LIMIT $3
	`, f.AssignedTo, f.Status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Lead, 0, limit)
	for rows.Next() {
		var l Lead
		if err := scanLead(rows, &l); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (s *Store) UpdateLead(ctx context.Context, id int64, req UpdateLeadRequest) error {
	return database.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		var status string
		err := tx.QueryRow(ctx, `SELECT status FROM leads WHERE id = $1 AND soft_delete = FALSE FOR UPDATE`, id).Scan(&status)
		if err != nil {
			return notFound(err, "lead")
		}
		if LeadStatus(status) == LeadConverted {
			return apperr.Conflict("lead already converted")
		}

		var set setList
		if req.AssignedTo != nil {
			set.add("assigned_to", *req.AssignedTo)
		}
		if req.Requirement != nil {
			set.add("requirement", trimmed(req.Requirement))
		}
		if req.Priority != nil {
			set.add("priority", *req.Priority)
		}
		if req.Status != nil {
			if err := CanSetLeadStatus(LeadStatus(status), LeadStatus(*req.Status)); err != nil {
				return err
			}
			set.add("status", *req.Status)
		}
		return set.exec(ctx, tx, "leads", "lead", id)
	})
}

func (s *Store) DeleteLead(ctx context.Context, id, actorID int64) error {
	_, err := lifecycle.SoftDelete(ctx, s.db, lifecycle.EntityLead, id, actorID)
	return err
}

// ConvertLead creates the task for an open lead and marks the lead converted, atomically.
func (s *Store) ConvertLead(ctx context.Context, id int64, finishBy *time.Time) (*Lead, error) {
	var out *Lead
	err := database.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		var l Lead
		err := scanLead(tx.QueryRow(ctx, leadSelect+`
			WHERE l.id = $1 AND l.soft_delete = FALSE
			FOR UPDATE OF l
		`, id), &l)
		if err != nil {
			return notFound(err, "lead")
		}
		if err := CanConvert(l.Status); err != nil {
			return err
		}

		contactID := l.ContactID
		taskID, err := mtask.InsertTask(ctx, tx, mtask.NewTask{
			ContactID:   &contactID,
			AssignedTo:  l.AssignedTo,
			Requirement: l.Requirement,
			Priority:    l.Priority,
			FinishBy:    finishBy,
		})
		if err != nil {
			return fmt.Errorf("insert task for lead %d: %w", id, err)
		}

		if _, err := tx.Exec(ctx, `
			UPDATE leads SET status = $1, task_id = $2, updated_at = now() WHERE id = $3
		`, string(LeadConverted), taskID, id); err != nil {
			return err
		}

		l.Status = LeadConverted
		l.TaskID = &taskID
		out = &l
		return nil
	})
	return out, err
}
