package mleave

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

// Repository is the persistence the leave handlers need.
type Repository interface {
	CreateLeave(ctx context.Context, staffID int64, d LeaveDraft) (int64, error)
	GetLeave(ctx context.Context, id int64) (*LeaveRequest, error)
	ListLeaves(ctx context.Context, f ListFilter) ([]LeaveRequest, error)
	UpdateLeave(ctx context.Context, id, ownerID int64, d LeaveDraft) error
	DeleteLeave(ctx context.Context, id, ownerID, actorID int64) error
	Decide(ctx context.Context, id int64, to Status, actorID int64) (*LeaveRequest, error)

	LeavesForYear(ctx context.Context, staffID int64, year int) ([]LeaveRequest, error)
	LeavesBetween(ctx context.Context, staffID int64, from, to time.Time) ([]LeaveRequest, error)
	Allocation(ctx context.Context, staffID int64, year int) (Allocation, error)
	SetAllocation(ctx context.Context, a Allocation) error
	StaffName(ctx context.Context, staffID int64) (string, error)
	ManagerOf(ctx context.Context, staffID int64) (int64, error)
	YearSummaries(ctx context.Context, year int) ([]Summary, error)
	RecomputeYear(ctx context.Context, year int) (int, error)

	CreateHoliday(ctx context.Context, date time.Time, name, description string) (int64, error)
	UpdateHoliday(ctx context.Context, id int64, date time.Time, name, description string) error
	DeleteHoliday(ctx context.Context, id, actorID int64) error
	HolidaysBetween(ctx context.Context, from, to time.Time) ([]Holiday, error)
}

type Store struct {
	db database.DB
}

func NewStore(db database.DB) *Store {
	return &Store{db: db}
}

const leaveColumns = `l.id, l.staff_id, s.full_name, l.leave_type, l.category, l.half_time,
	l.leave_date, l.end_date, l.description, l.status, l.decided_by, l.decided_at,
	l.created_at, l.updated_at`

const leaveFrom = `leave_requests l JOIN staff s ON s.id = l.staff_id`

func scanLeave(row pgx.Row) (*LeaveRequest, error) {
	var (
		r         LeaveRequest
		lt, cat   string
		st        string
		halfTime  *string
		from, end time.Time
	)
	if err := row.Scan(&r.ID, &r.StaffID, &r.StaffName, &lt, &cat, &halfTime,
		&from, &end, &r.Description, &st, &r.DecidedBy, &r.DecidedAt,
		&r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	r.LeaveType = LeaveType(lt)
	r.Category = Category(cat)
	r.Status = Status(st)
	r.LeaveDate = utils.NewDate(from)
	r.EndDate = utils.NewDate(end)
	if halfTime != nil {
		ht := HalfTime(*halfTime)
		r.HalfTime = &ht
	}
	return &r, nil
}

func collectLeaves(rows pgx.Rows) ([]LeaveRequest, error) {
	defer rows.Close()

	out := []LeaveRequest{}
	for rows.Next() {
		r, err := scanLeave(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

func halfTimeArg(h *HalfTime) any {
	if h == nil {
		return nil
	}
	return string(*h)
}

func (s *Store) CreateLeave(ctx context.Context, staffID int64, d LeaveDraft) (int64, error) {
	var id int64
	err := s.db.QueryRow(ctx, `
		INSERT INTO leave_requests (staff_id, leave_type, category, half_time, leave_date, end_date, description)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, staffID, string(d.LeaveType), string(d.Category), halfTimeArg(d.HalfTime), d.LeaveDate, d.EndDate, d.Description).Scan(&id)
	return id, err
}

func (s *Store) GetLeave(ctx context.Context, id int64) (*LeaveRequest, error) {
	r, err := scanLeave(s.db.QueryRow(ctx,
		`SELECT `+leaveColumns+` FROM `+leaveFrom+` WHERE l.id = $1 AND l.soft_delete = FALSE`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("leave request")
	}
	return r, err
}

func (s *Store) ListLeaves(ctx context.Context, f ListFilter) ([]LeaveRequest, error) {
	limit := database.NormalizeLimit(f.Limit, 50, 500)

	where := []string{"l.soft_delete = FALSE"}
	args := []any{}
	i := 1

	if f.StaffID > 0 {
		where = append(where, fmt.Sprintf("l.staff_id = $%d", i))
		args = append(args, f.StaffID)
		i++
	}
	if f.Status != "" {
		where = append(where, fmt.Sprintf("l.status = $%d", i))
		args = append(args, string(f.Status))
		i++
	}
	if f.Year > 0 {
		from, to := yearBounds(f.Year)
		where = append(where, fmt.Sprintf("l.leave_date <= $%d AND l.end_date >= $%d", i, i+1))
		args = append(args, to, from)
		i += 2
	}

	q := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE %s
		ORDER BY l.leave_date DESC, l.id DESC
		LIMIT $%d
	`, leaveColumns, leaveFrom, strings.Join(where, " AND "), i)
	args = append(args, limit)

	rows, err := s.db.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	return collectLeaves(rows)
}

// lockEditable locks the request row and checks it is the owner's and still Pending.
func lockEditable(ctx context.Context, tx pgx.Tx, id, ownerID int64) error {
	var (
		staffID int64
		status  string
	)
	err := tx.QueryRow(ctx, `
		SELECT staff_id, status FROM leave_requests
		WHERE id = $1 AND soft_delete = FALSE
		FOR UPDATE
	`, id).Scan(&staffID, &status)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound("leave request")
	}
	if err != nil {
		return err
	}

	return CheckEditable(staffID, ownerID, Status(status))
}

// UpdateLeave rewrites a Pending request. ownerID 0 skips the ownership check.
func (s *Store) UpdateLeave(ctx context.Context, id, ownerID int64, d LeaveDraft) error {
	return database.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		if err := lockEditable(ctx, tx, id, ownerID); err != nil {
			return err
		}

		_, err := tx.Exec(ctx, `
			UPDATE leave_requests
			SET leave_type = $1, category = $2, half_time = $3, leave_date = $4, end_date = $5,
			    description = $6, updated_at = now()
			WHERE id = $7
		`, string(d.LeaveType), string(d.Category), halfTimeArg(d.HalfTime), d.LeaveDate, d.EndDate, d.Description, id)
		return err
	})
}

func (s *Store) DeleteLeave(ctx context.Context, id, ownerID, actorID int64) error {
	_, err := lifecycle.SoftDelete(ctx, s.db, lifecycle.EntityLeave, id, actorID,
		func(ctx context.Context, tx pgx.Tx) error {
			return lockEditable(ctx, tx, id, ownerID)
		})
	return err
}

// Decide applies an approval decision and rebuilds the staff member's yearly records in
// the same transaction.
func (s *Store) Decide(ctx context.Context, id int64, to Status, actorID int64) (*LeaveRequest, error) {
	var out *LeaveRequest
	err := database.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		r, err := scanLeave(tx.QueryRow(ctx, `
			SELECT `+leaveColumns+` FROM `+leaveFrom+`
			WHERE l.id = $1 AND l.soft_delete = FALSE
			FOR UPDATE OF l
		`, id))
		if errors.Is(err, pgx.ErrNoRows) {
			return apperr.NotFound("leave request")
		}
		if err != nil {
			return err
		}

		if err := CanTransition(r.Status, to); err != nil {
			return err
		}

		err = tx.QueryRow(ctx, `
			UPDATE leave_requests
			SET status = $1, decided_by = $2, decided_at = now(), updated_at = now()
			WHERE id = $3
			RETURNING decided_at, updated_at
		`, string(to), actorID, id).Scan(&r.DecidedAt, &r.UpdatedAt)
		if err != nil {
			return err
		}
		r.Status = to
		r.DecidedBy = &actorID

		for y := r.LeaveDate.Year(); y <= r.EndDate.Year(); y++ {
			if err := recomputeRecord(ctx, tx, r.StaffID, y); err != nil {
				return err
			}
		}

		out = r
		return nil
	})
	return out, err
}

func yearBounds(year int) (time.Time, time.Time) {
	return time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC),
		time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)
}

func leavesBetween(ctx context.Context, q database.DB, staffID int64, from, to time.Time) ([]LeaveRequest, error) {
	rows, err := q.Query(ctx, `
		SELECT `+leaveColumns+` FROM `+leaveFrom+`
		WHERE l.soft_delete = FALSE AND l.staff_id = $1 AND l.leave_date <= $2 AND l.end_date >= $3
		ORDER BY l.leave_date
	`, staffID, to, from)
	if err != nil {
		return nil, err
	}
	return collectLeaves(rows)
}

// recomputeRecord rebuilds leave_wfh_records for one staff member and year from the
// approved requests. The record is never written any other way.
func recomputeRecord(ctx context.Context, tx pgx.Tx, staffID int64, year int) error {
	from, to := yearBounds(year)
	requests, err := leavesBetween(ctx, tx, staffID, from, to)
	if err != nil {
		return err
	}

	leave, wfh := Totals(year, requests)
	_, err = tx.Exec(ctx, `
		INSERT INTO leave_wfh_records (staff_id, record_year, total_leaves, total_wfh)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (staff_id, record_year)
		DO UPDATE SET total_leaves = EXCLUDED.total_leaves, total_wfh = EXCLUDED.total_wfh, updated_at = now()
	`, staffID, year, leave, wfh)
	return err
}

func (s *Store) LeavesForYear(ctx context.Context, staffID int64, year int) ([]LeaveRequest, error) {
	from, to := yearBounds(year)
	return leavesBetween(ctx, s.db, staffID, from, to)
}

func (s *Store) LeavesBetween(ctx context.Context, staffID int64, from, to time.Time) ([]LeaveRequest, error) {
	return leavesBetween(ctx, s.db, staffID, from, to)
}

// Allocation returns zero allotments when none were configured.
func (s *Store) Allocation(ctx context.Context, staffID int64, year int) (Allocation, error) {
	a := Allocation{StaffID: staffID, Year: year}
	err := s.db.QueryRow(ctx, `
		SELECT allocated_leaves, allocated_wfh FROM leave_allocations
		WHERE staff_id = $1 AND allocation_year = $2
	`, staffID, year).Scan(&a.AllocatedLeaves, &a.AllocatedWFH)
	if errors.Is(err, pgx.ErrNoRows) {
		return a, nil
	}
	return a, err
}

func (s *Store) SetAllocation(ctx context.Context, a Allocation) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO leave_allocations (staff_id, allocation_year, allocated_leaves, allocated_wfh)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (staff_id, allocation_year)
		DO UPDATE SET allocated_leaves = EXCLUDED.allocated_leaves, allocated_wfh = EXCLUDED.allocated_wfh, updated_at = now()
	`, a.StaffID, a.Year, a.AllocatedLeaves, a.AllocatedWFH)
	return err
}

func (s *Store) StaffName(ctx context.Context, staffID int64) (string, error) {
	var name string
	err := s.db.QueryRow(ctx, `SELECT full_name FROM staff WHERE id = $1 AND soft_delete = FALSE`, staffID).Scan(&name)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", apperr.NotFound("staff")
	}
	return name, err
}

// ManagerOf returns 0 when the staff member reports to nobody.
func (s *Store) ManagerOf(ctx context.Context, staffID int64) (int64, error) {
	var manager *int64
	err := s.db.QueryRow(ctx, `SELECT manager_id FROM staff WHERE id = $1`, staffID).Scan(&manager)
	if err != nil || manager == nil {
		return 0, err
	}
	return *manager, nil
}

type staffRef struct {
	id   int64
	name string
}

func (s *Store) activeStaff(ctx context.Context) ([]staffRef, error) {
	rows, err := s.db.Query(ctx, `SELECT id, full_name FROM staff WHERE soft_delete = FALSE ORDER BY full_name, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []staffRef
	for rows.Next() {
		var r staffRef
		if err := rows.Scan(&r.id, &r.name); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// YearSummaries reports every active staff member for year.
func (s *Store) YearSummaries(ctx context.Context, year int) ([]Summary, error) {
	staff, err := s.activeStaff(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]Summary, 0, len(staff))
	for _, st := range staff {
		requests, err := s.LeavesForYear(ctx, st.id, year)
		if err != nil {
			return nil, err
		}
		alloc, err := s.Allocation(ctx, st.id, year)
		if err != nil {
			return nil, err
		}
		out = append(out, Summarize(st.id, st.name, year, requests, alloc))
	}
	return out, nil
}

// RecomputeYear rebuilds the materialized records of every active staff member.
func (s *Store) RecomputeYear(ctx context.Context, year int) (int, error) {
	staff, err := s.activeStaff(ctx)
	if err != nil {
		return 0, err
	}

	err = database.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		for _, st := range staff {
			if err := recomputeRecord(ctx, tx, st.id, year); err != nil {
				return fmt.Errorf("recompute staff %d: %w", st.id, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(staff), nil
}

func (s *Store) CreateHoliday(ctx context.Context, date time.Time, name, description string) (int64, error) {
	var id int64
	err := s.db.QueryRow(ctx, `
		INSERT INTO holidays (holiday_date, name, description) VALUES ($1, $2, $3) RETURNING id
	`, date, strings.TrimSpace(name), strings.TrimSpace(description)).Scan(&id)
	return id, err
}

func (s *Store) UpdateHoliday(ctx context.Context, id int64, date time.Time, name, description string) error {
	ct, err := s.db.Exec(ctx, `
		UPDATE holidays SET holiday_date = $1, name = $2, description = $3, updated_at = now()
		WHERE id = $4 AND soft_delete = FALSE
	`, date, strings.TrimSpace(name), strings.TrimSpace(description), id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return apperr.NotFound("holiday")
	}
	return nil
}

func (s *Store) DeleteHoliday(ctx context.Context, id, actorID int64) error {
	_, err := lifecycle.SoftDelete(ctx, s.db, lifecycle.EntityHoliday, id, actorID)
	return err
}

func (s *Store) HolidaysBetween(ctx context.Context, from, to time.Time) ([]Holiday, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, holiday_date, name, description, created_at
		FROM holidays
		WHERE soft_delete = FALSE AND holiday_date BETWEEN $1 AND $2
		ORDER BY holiday_date, id
	`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Holiday{}
	for rows.Next() {
		var h Holiday
		var d time.Time
		if err := rows.Scan(&h.ID, &d, &h.Name, &h.Description, &h.CreatedAt); err != nil {
			return nil, err
		}
		h.Date = utils.NewDate(d)
		out = append(out, h)
	}
	return out, rows.Err()
}
