package mtask

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

// Repository is the persistence the task handlers need.
type Repository interface {
	CreateTask(ctx context.Context, t NewTask) (int64, error)
	GetTask(ctx context.Context, id int64) (*Task, error)
	ListTasks(ctx context.Context, f ListFilter) ([]Task, error)
	UpdateTask(ctx context.Context, id int64, req UpdateTaskRequest) error
	UpdateStageNotes(ctx context.Context, id int64, stage Stage, notes string) error
	SetStage(ctx context.Context, id int64, stage Stage) error
	SetFlags(ctx context.Context, id int64, rework, newUpdate bool) error
	FlagRework(ctx context.Context, id int64) (int64, error)
	AppendTeamWork(ctx context.Context, id int64, entry string) error
	DeleteTask(ctx context.Context, id, actorID int64) error

	GetChecklist(ctx context.Context, taskID int64, role string) (*Checklist, error)
	MutateChecklist(ctx context.Context, taskID int64, role string, fn func(*Checklist) error) (*Checklist, error)
}

// Querier is satisfied by both the pool and a transaction.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Store struct {
	db database.DB
}

func NewStore(db database.DB) *Store {
	return &Store{db: db}
}

const taskColumns = `id, contact_id, assigned_to, requirement, priority, stage, notes,
	rework, new_update, finish_by, team_work, created_at, updated_at`

func scanTask(row pgx.Row) (*Task, error) {
	var t Task
	var stage int16
	if err := row.Scan(&t.ID, &t.ContactID, &t.AssignedTo, &t.Requirement, &t.Priority, &stage, &t.Notes,
		&t.Rework, &t.NewUpdate, &t.FinishBy, &t.TeamWork, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	t.Stage = Stage(stage)
	t.StageName = t.Stage.String()
	if t.TeamWork == nil {
		t.TeamWork = []string{}
	}
	return &t, nil
}

// InsertTask writes a new task at StageNotStarted using q, so lead conversion can run it
// inside its own transaction.
func InsertTask(ctx context.Context, q Querier, t NewTask) (int64, error) {
	priority := t.Priority
	if priority == "" {
		priority = "Normal"
	}

	var id int64
	err := q.QueryRow(ctx, `
		INSERT INTO tasks (contact_id, assigned_to, requirement, priority, stage, finish_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, t.ContactID, t.AssignedTo, strings.TrimSpace(t.Requirement), priority, int16(StageNotStarted), t.FinishBy).Scan(&id)
	return id, err
}

func (s *Store) CreateTask(ctx context.Context, t NewTask) (int64, error) {
	return InsertTask(ctx, s.db, t)
}

func (s *Store) GetTask(ctx context.Context, id int64) (*Task, error) {
	t, err := scanTask(s.db.QueryRow(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = $1 AND soft_delete = FALSE`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("task")
	}
	return t, err
}

func (s *Store) ListTasks(ctx context.Context, f ListFilter) ([]Task, error) {
	limit := database.NormalizeLimit(f.Limit, 20, 100)

	where := []string{"soft_delete = FALSE"}
	args := []any{}
	i := 1

	if f.AssignedTo > 0 {
		where = append(where, fmt.Sprintf("assigned_to = $%d", i))
		args = append(args, f.AssignedTo)
		i++
	}
	if f.Stage > 0 {
		where = append(where, fmt.Sprintf("stage = $%d", i))
		args = append(args, int16(f.Stage))
		i++
	}
	if strings.TrimSpace(f.Priority) != "" {
		where = append(where, fmt.Sprintf("priority = $%d", i))
		args = append(args, strings.TrimSpace(f.Priority))
		i++
	}
	if f.Rework != nil {
		where = append(where, fmt.Sprintf("rework = $%d", i))
		args = append(args, *f.Rework)
		i++
	}

	q := fmt.Sprintf(`
		SELECT %s
		FROM tasks
		WHERE %s
		ORDER BY %s
		LIMIT $%d
	`, taskColumns, strings.Join(where, " AND "), taskOrderClause(f.Order), i)
	args = append(args, limit)

	rows, err := s.db.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Task, 0, limit)
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

func (s *Store) UpdateTask(ctx context.Context, id int64, req UpdateTaskRequest) error {
	sets := make([]string, 0, 4)
	args := make([]any, 0, 5)
	i := 1

	if req.AssignedTo != nil {
		sets = append(sets, fmt.Sprintf("assigned_to = $%d", i))
		args = append(args, *req.AssignedTo)
		i++
	}
	if req.Requirement != nil {
		sets = append(sets, fmt.Sprintf("requirement = $%d", i))
		args = append(args, strings.TrimSpace(*req.Requirement))
		i++
	}
	if req.Priority != nil {
		sets = append(sets, fmt.Sprintf("priority = $%d", i))
		args = append(args, *req.Priority)
		i++
	}
	if req.FinishBy != nil {
		var finish *time.Time
		if *req.FinishBy != "" {
			d, err := utils.ParseDate(*req.FinishBy)
			if err != nil {
				return apperr.Validation("malformed finishBy date")
			}
			finish = &d
		}
		sets = append(sets, fmt.Sprintf("finish_by = $%d", i))
		args = append(args, finish)
		i++
	}

	if len(sets) == 0 {
		return apperr.Validation("no fields to update")
	}

	args = append(args, id)
	q := fmt.Sprintf("UPDATE tasks SET %s, updated_at = now() WHERE id = $%d AND soft_delete = FALSE", strings.Join(sets, ", "), i)

	return s.execOne(ctx, q, args...)
}

// UpdateStageNotes writes both columns in one statement; repeating it only moves updated_at.
func (s *Store) UpdateStageNotes(ctx context.Context, id int64, stage Stage, notes string) error {
	return s.execOne(ctx, `
		UPDATE tasks SET stage = $1, notes = $2, updated_at = now()
		WHERE id = $3 AND soft_delete = FALSE
	`, int16(stage), notes, id)
}

func (s *Store) SetStage(ctx context.Context, id int64, stage Stage) error {
	return s.execOne(ctx, `
		UPDATE tasks SET stage = $1, updated_at = now()
		WHERE id = $2 AND soft_delete = FALSE
	`, int16(stage), id)
}

func (s *Store) SetFlags(ctx context.Context, id int64, rework, newUpdate bool) error {
	return s.execOne(ctx, `
		UPDATE tasks SET rework = $1, new_update = $2, updated_at = now()
		WHERE id = $3 AND soft_delete = FALSE
	`, rework, newUpdate, id)
}

// FlagRework returns the task for correction and reports its assignee. Only the rework
// flag is written; stage and new_update keep whatever the assignee last set.
func (s *Store) FlagRework(ctx context.Context, id int64) (int64, error) {
	var assignedTo int64
	err := s.db.QueryRow(ctx, `
		UPDATE tasks SET rework = TRUE, updated_at = now()
		WHERE id = $1 AND soft_delete = FALSE
		RETURNING assigned_to
	`, id).Scan(&assignedTo)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, apperr.NotFound("task")
	}
	return assignedTo, err
}

func (s *Store) AppendTeamWork(ctx context.Context, id int64, entry string) error {
	return s.execOne(ctx, `
		UPDATE tasks SET team_work = array_append(team_work, $1), updated_at = now()
		WHERE id = $2 AND soft_delete = FALSE
	`, entry, id)
}

func (s *Store) DeleteTask(ctx context.Context, id, actorID int64) error {
	_, err := lifecycle.SoftDelete(ctx, s.db, lifecycle.EntityTask, id, actorID)
	return err
}

func (s *Store) execOne(ctx context.Context, q string, args ...any) error {
	ct, err := s.db.Exec(ctx, q, args...)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return apperr.NotFound("task")
	}
	return nil
}

func scanChecklist(row pgx.Row) (*Checklist, error) {
	var cl Checklist
	if err := row.Scan(&cl.ID, &cl.TaskID, &cl.Role, &cl.NotChecked, &cl.Checked, &cl.UpdatedAt); err != nil {
		return nil, err
	}
	if cl.NotChecked == nil {
		cl.NotChecked = []string{}
	}
	if cl.Checked == nil {
		cl.Checked = []string{}
	}
	return &cl, nil
}

// GetChecklist returns an empty, unsaved checklist when none exists yet.
func (s *Store) GetChecklist(ctx context.Context, taskID int64, role string) (*Checklist, error) {
	cl, err := scanChecklist(s.db.QueryRow(ctx, `
		SELECT id, task_id, role, not_checked, checked, updated_at
		FROM subtasks WHERE task_id = $1 AND role = $2
	`, taskID, role))
	if errors.Is(err, pgx.ErrNoRows) {
		return NewChecklist(taskID, role), nil
	}
	return cl, err
}

// MutateChecklist loads (or creates) the checklist row under a lock, applies fn and
// writes both lists back in the same transaction.
func (s *Store) MutateChecklist(ctx context.Context, taskID int64, role string, fn func(*Checklist) error) (*Checklist, error) {
	var out *Checklist
	err := database.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO subtasks (task_id, role) VALUES ($1, $2)
			ON CONFLICT (task_id, role) DO NOTHING
		`, taskID, role)
		if err != nil {
			return err
		}

		cl, err := scanChecklist(tx.QueryRow(ctx, `
			SELECT id, task_id, role, not_checked, checked, updated_at
			FROM subtasks WHERE task_id = $1 AND role = $2
			FOR UPDATE
		`, taskID, role))
		if err != nil {
			return err
		}

		if err := fn(cl); err != nil {
			return err
		}

		err = tx.QueryRow(ctx, `
			UPDATE subtasks SET not_checked = $1, checked = $2, updated_at = now()
			WHERE id = $3
			RETURNING updated_at
		`, cl.NotChecked, cl.Checked, cl.ID).Scan(&cl.UpdatedAt)
		if err != nil {
			return err
		}

		out = cl
		return nil
	})
	return out, err
}
