package mstaff

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"kyri56xcaesar/opscrm/internal/apperr"
	"kyri56xcaesar/opscrm/internal/database"
	"kyri56xcaesar/opscrm/internal/lifecycle"
	"kyri56xcaesar/opscrm/internal/utils"

	"github.com/jackc/pgx/v5"
)

type Repository interface {
	StaffIDByUsername(ctx context.Context, username string) (int64, error)
	RoleOf(ctx context.Context, staffID int64) (string, error)

	CreateStaff(ctx context.Context, req CreateStaffRequest) (int64, error)
	GetStaff(ctx context.Context, id int64) (*Staff, error)
	ListStaff(ctx context.Context, search string, limit int) ([]Staff, error)
	UpdateStaff(ctx context.Context, id int64, req UpdateStaffRequest) error
	DeleteStaff(ctx context.Context, id, actorID int64) error

	PunchesOn(ctx context.Context, staffID int64, day time.Time) ([]Punch, error)
	PunchIn(ctx context.Context, staffID int64, at time.Time) (*Punch, error)
	PunchOut(ctx context.Context, staffID int64, at time.Time) (*Punch, error)
	PunchesBetween(ctx context.Context, staffID int64, from, to time.Time) ([]Punch, error)
}

type Store struct {
	db database.DB
}

func NewStore(db database.DB) *Store {
	return &Store{db: db}
}

// StaffIDByUsername lets the store act as the auth middleware's staff lookup.
func (s *Store) StaffIDByUsername(ctx context.Context, username string) (int64, error) {
	var id int64
	err := s.db.QueryRow(ctx, `
		SELECT id FROM staff WHERE username = $1 AND soft_delete = FALSE
	`, username).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, apperr.NotFound("staff")
	}
	return id, err
}

func (s *Store) RoleOf(ctx context.Context, staffID int64) (string, error) {
	var role string
	err := s.db.QueryRow(ctx, `SELECT role FROM staff WHERE id = $1 AND soft_delete = FALSE`, staffID).Scan(&role)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", apperr.NotFound("staff")
	}
	return role, err
}

func (s *Store) CreateStaff(ctx context.Context, req CreateStaffRequest) (int64, error) {
	role := req.Role
	if role == "" {
		role = "staff"
	}

	var id int64
	err := s.db.QueryRow(ctx, `
		INSERT INTO staff (username, full_name, email, phone, role, manager_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, strings.TrimSpace(req.Username), strings.TrimSpace(req.FullName), req.Email, req.Phone, role, req.ManagerID).Scan(&id)
	if database.IsUniqueViolation(err, "staff_username_key") {
		return 0, apperr.Conflict("username already taken")
	}
	return id, err
}

const staffColumns = `id, username, full_name, email, phone, role, manager_id, profile_image, created_at, updated_at`

func scanStaff(row pgx.Row, st *Staff) error {
	return row.Scan(&st.ID, &st.Username, &st.FullName, &st.Email, &st.Phone, &st.Role,
		&st.ManagerID, &st.ProfileImage, &st.CreatedAt, &st.UpdatedAt)
}

func (s *Store) GetStaff(ctx context.Context, id int64) (*Staff, error) {
	var st Staff
	err := scanStaff(s.db.QueryRow(ctx, `
		SELECT `+staffColumns+` FROM staff WHERE id = $1 AND soft_delete = FALSE
	`, id), &st)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("staff")
	}
	if err != nil {
		return nil, err
	}
	return &st, nil
}

func (s *Store) ListStaff(ctx context.Context, search string, limit int) ([]Staff, error) {
	limit = database.NormalizeLimit(limit, 100, 500)

	rows, err := s.db.Query(ctx, `
		SELECT `+staffColumns+` FROM staff
		WHERE soft_delete = FALSE
		  AND ($1 = '' OR full_name ILIKE '%' || $1 || '%' OR username ILIKE '%' || $1 || '%')
		ORDER BY full_name
		LIMIT $2
	`, strings.TrimSpace(search), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Staff, 0, limit)
	for rows.Next() {
		var st Staff
		if err := scanStaff(rows, &st); err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

func (s *Store) UpdateStaff(ctx context.Context, id int64, req UpdateStaffRequest) error {
	setParts := []string{}
	args := []any{}
	argIdx := 1

	add := func(col string, v any) {
		setParts = append(setParts, fmt.Sprintf("%s = $%d", col, argIdx))
		args = append(args, v)
		argIdx++
	}

	if req.FullName != nil {
		add("full_name", strings.TrimSpace(*req.FullName))
	}
	if req.Email != nil {
		add("email", *req.Email)
	}
	if req.Phone != nil {
		add("phone", *req.Phone)
	}
	if req.Role != nil {
		add("role", *req.Role)
	}
	if req.ManagerID != nil {
		if *req.ManagerID == id {
			return apperr.Validation("staff cannot manage themselves")
		}
		add("manager_id", *req.ManagerID)
	}
	if req.ProfileImage != nil {
		add("profile_image", *req.ProfileImage)
	}

	if len(setParts) == 0 {
		return apperr.Validation("no fields to update")
	}

	query := fmt.Sprintf(`
		UPDATE staff SET %s, updated_at = now()
		WHERE id = $%d AND soft_delete = FALSE
	`, strings.Join(setParts, ", "), argIdx)
	args = append(args, id)

	ct, err := s.db.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return apperr.NotFound("staff")
	}
	return nil
}

func (s *Store) DeleteStaff(ctx context.Context, id, actorID int64) error {
	if id == actorID {
		return apperr.Conflict("cannot delete yourself")
	}
	_, err := lifecycle.SoftDelete(ctx, s.db, lifecycle.EntityStaff, id, actorID)
	return err
}

const punchColumns = `id, staff_id, work_date, entry_at, exit_at`

func scanPunches(rows pgx.Rows) ([]Punch, error) {
	defer rows.Close()

	out := []Punch{}
	for rows.Next() {
		var (
			p    Punch
			date time.Time
		)
		if err := rows.Scan(&p.ID, &p.StaffID, &date, &p.EntryAt, &p.ExitAt); err != nil {
			return nil, err
		}
		p.WorkDate = utils.NewDate(date)
		out = append(out, p)
	}
	return out, rows.Err()
}

func punchesOn(ctx context.Context, q database.DB, staffID int64, day time.Time, lock bool) ([]Punch, error) {
	query := `SELECT ` + punchColumns + ` FROM attendance WHERE staff_id = $1 AND work_date = $2 ORDER BY entry_at`
	if lock {
		query += ` FOR UPDATE`
	}
	rows, err := q.Query(ctx, query, staffID, utils.Day(day))
	if err != nil {
		return nil, err
	}
	return scanPunches(rows)
}

func (s *Store) PunchesOn(ctx context.Context, staffID int64, day time.Time) ([]Punch, error) {
	return punchesOn(ctx, s.db, staffID, day, false)
}

// PunchIn opens a new pair for the day of at.
func (s *Store) PunchIn(ctx context.Context, staffID int64, at time.Time) (*Punch, error) {
	var out *Punch
	err := database.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		// serializes concurrent punches of the same staff member
		if _, err := tx.Exec(ctx, `SELECT id FROM staff WHERE id = $1 FOR UPDATE`, staffID); err != nil {
			return err
		}
		today, err := punchesOn(ctx, tx, staffID, at, true)
		if err != nil {
			return err
		}
		if err := CanPunchIn(today); err != nil {
			return err
		}

		p := Punch{StaffID: staffID, WorkDate: utils.NewDate(utils.Day(at)), EntryAt: at}
		err = tx.QueryRow(ctx, `
			INSERT INTO attendance (staff_id, work_date, entry_at) VALUES ($1, $2, $3) RETURNING id
		`, staffID, p.WorkDate.Time, at).Scan(&p.ID)
		if err != nil {
			return err
		}
		out = &p
		return nil
	})
	return out, err
}

// PunchOut closes the open pair of the day of at.
func (s *Store) PunchOut(ctx context.Context, staffID int64, at time.Time) (*Punch, error) {
	var out *Punch
	err := database.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		today, err := punchesOn(ctx, tx, staffID, at, true)
		if err != nil {
			return err
		}
		p, err := OpenPunch(today)
		if err != nil {
			return err
		}

		if _, err := tx.Exec(ctx, `
			UPDATE attendance SET exit_at = $1, updated_at = now() WHERE id = $2
		`, at, p.ID); err != nil {
			return err
		}
		p.ExitAt = &at
		out = &p
		return nil
	})
	return out, err
}

func (s *Store) PunchesBetween(ctx context.Context, staffID int64, from, to time.Time) ([]Punch, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+punchColumns+` FROM attendance
		WHERE staff_id = $1 AND work_date BETWEEN $2 AND $3
		ORDER BY work_date, entry_at
	`, staffID, utils.Day(from), utils.Day(to))
	if err != nil {
		return nil, err
	}
	return scanPunches(rows)
}
