package mteam

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"kyri56xcaesar/opscrm/internal/apperr"
	"kyri56xcaesar/opscrm/internal/database"
	"kyri56xcaesar/opscrm/internal/lifecycle"

	"github.com/jackc/pgx/v5"
)

// TeamState is the mutable part of a team, handed to MutateTeam callbacks.
type TeamState struct {
	Name   string
	Roster Roster
}

type Repository interface {
	CreateTeam(ctx context.Context, name string, r Roster, actorID int64) (int64, error)
	GetTeam(ctx context.Context, id int64) (*Team, error)
	ListTeams(ctx context.Context, f ListFilter) ([]Team, error)
	ListTeamsForStaff(ctx context.Context, staffID int64, limit int) ([]Team, error)
	MutateTeam(ctx context.Context, id, actorID int64, action Action, fn func(*TeamState) error) (*TeamState, error)
	History(ctx context.Context, teamID int64, limit int) ([]HistoryEntry, error)
	DeleteTeam(ctx context.Context, id, actorID int64) error

	PostMessage(ctx context.Context, teamID, senderID int64, body string) (int64, error)
	ListMessages(ctx context.Context, teamID int64, limit int) ([]Message, error)
}

type Store struct {
	db database.DB
}

func NewStore(db database.DB) *Store {
	return &Store{db: db}
}

func orderClause(order string) string {
	switch order {
	case "created_asc":
		return "t.created_at ASC"
	case "name_asc":
		return "t.name ASC"
	case "name_desc":
		return "t.name DESC"
	case "created_desc":
		fallthrough
	default:
		return "t.created_at DESC"
	}
}

func journal(ctx context.Context, tx pgx.Tx, teamID int64, action Action, st TeamState, actorID int64) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO team_history (team_id, action, name, leader_id, member_ids, actor_id)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, teamID, string(action), st.Name, st.Roster.LeaderID, st.Roster.Members, actorID)
	return err
}

func (s *Store) CreateTeam(ctx context.Context, name string, r Roster, actorID int64) (int64, error) {
	var id int64
	err := database.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		st := TeamState{Name: strings.TrimSpace(name), Roster: r}

		err := tx.QueryRow(ctx, `
			INSERT INTO teams (name, leader_id, member_ids) VALUES ($1, $2, $3) RETURNING id
		`, st.Name, r.LeaderID, r.Members).Scan(&id)
		if err != nil {
			return err
		}

		return journal(ctx, tx, id, ActionCreated, st, actorID)
	})
	return id, err
}

const teamSelect = `
	SELECT
	  t.id,
	  t.name,
	  t.leader_id,
	  COALESCE(l.full_name, '') AS leader_name,
	  t.member_ids,
	  t.created_at,
	  t.updated_at,

	  COALESCE(
	    json_agg(
	      json_build_object(
	        'staffId', s.id,
	        'name', s.full_name,
	        'role', CASE WHEN s.id = t.leader_id THEN 'leader' ELSE 'member' END
	      )
	      ORDER BY (s.id = t.leader_id) DESC, s.full_name
	    ) FILTER (WHERE s.id IS NOT NULL),
	    '[]'::json
	  ) AS members_json

	FROM teams t
	LEFT JOIN staff l ON l.id = t.leader_id
	LEFT JOIN staff s ON s.id = t.leader_id OR s.id = ANY(t.member_ids)
`

func scanTeams(rows pgx.Rows, capacity int) ([]Team, error) {
	defer rows.Close()

	out := make([]Team, 0, capacity)
	for rows.Next() {
		var (
			t           Team
			membersJSON []byte
		)
		if err := rows.Scan(
			&t.ID,
			&t.Name,
			&t.LeaderID,
			&t.LeaderName,
			&t.MemberIDs,
			&t.CreatedAt,
			&t.UpdatedAt,
			&membersJSON,
		); err != nil {
			return nil, err
		}

		if err := json.Unmarshal(membersJSON, &t.Members); err != nil {
			return nil, fmt.Errorf("unmarshal members_json: %w", err)
		}
		if t.MemberIDs == nil {
			t.MemberIDs = []int64{}
		}
		t.MemberCount = len(t.Members)

		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) GetTeam(ctx context.Context, id int64) (*Team, error) {
	rows, err := s.db.Query(ctx, teamSelect+`
		WHERE t.id = $1 AND t.soft_delete = FALSE
		GROUP BY t.id, l.full_name
	`, id)
	if err != nil {
		return nil, err
	}

	teams, err := scanTeams(rows, 1)
	if err != nil {
		return nil, err
	}
	if len(teams) == 0 {
		return nil, apperr.NotFound("team")
	}
	return &teams[0], nil
}

func (s *Store) ListTeams(ctx context.Context, f ListFilter) ([]Team, error) {
	limit := database.NormalizeLimit(f.Limit, 50, 200)

	where := "WHERE t.soft_delete = FALSE"
	args := []any{}
	argIdx := 1

	if name := strings.TrimSpace(f.Name); name != "" {
		where += fmt.Sprintf(" AND t.name ILIKE $%d", argIdx)
		args = append(args, "%"+name+"%")
		argIdx++
	}

	query := fmt.Sprintf(`%s
		%s
		GROUP BY t.id, l.full_name
		ORDER BY %s
		LIMIT $%d
	`, teamSelect, where, orderClause(f.Order), argIdx)
	args = append(args, limit)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return scanTeams(rows, limit)
}

// ListTeamsForStaff returns the teams staffID leads or belongs to.
func (s *Store) ListTeamsForStaff(ctx context.Context, staffID int64, limit int) ([]Team, error) {
	limit = database.NormalizeLimit(limit, 50, 200)

	rows, err := s.db.Query(ctx, teamSelect+`
		WHERE t.soft_delete = FALSE AND (t.leader_id = $1 OR $1 = ANY(t.member_ids))
		GROUP BY t.id, l.full_name
		ORDER BY t.created_at DESC
		LIMIT $2
	`, staffID, limit)
	if err != nil {
		return nil, err
	}
	return scanTeams(rows, limit)
}

// MutateTeam locks the team, lets fn change it, stores the result and journals a snapshot,
// all in one transaction.
func (s *Store) MutateTeam(ctx context.Context, id, actorID int64, action Action, fn func(*TeamState) error) (*TeamState, error) {
	var out *TeamState
	err := database.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		var (
			st      TeamState
			members []int64
		)
		err := tx.QueryRow(ctx, `
			SELECT name, leader_id, member_ids FROM teams
			WHERE id = $1 AND soft_delete = FALSE
			FOR UPDATE
		`, id).Scan(&st.Name, &st.Roster.LeaderID, &members)
		if errors.Is(err, pgx.ErrNoRows) {
			return apperr.NotFound("team")
		}
		if err != nil {
			return err
		}
		st.Roster = NewRoster(st.Roster.LeaderID, members)

		if err := fn(&st); err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `
			UPDATE teams SET name = $1, leader_id = $2, member_ids = $3, updated_at = now()
			WHERE id = $4
		`, st.Name, st.Roster.LeaderID, st.Roster.Members, id)
		if err != nil {
			return err
		}

		if err := journal(ctx, tx, id, action, st, actorID); err != nil {
			return err
		}

		out = &st
		return nil
	})
	return out, err
}

func (s *Store) History(ctx context.Context, teamID int64, limit int) ([]HistoryEntry, error) {
	limit = database.NormalizeLimit(limit, 50, 500)

	rows, err := s.db.Query(ctx, `
		SELECT id, team_id, action, name, leader_id, member_ids, actor_id, created_at
		FROM team_history
		WHERE team_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, teamID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]HistoryEntry, 0, limit)
	for rows.Next() {
		var (
			h      HistoryEntry
			action string
		)
		if err := rows.Scan(&h.ID, &h.TeamID, &action, &h.Name, &h.LeaderID, &h.MemberIDs, &h.ActorID, &h.CreatedAt); err != nil {
			return nil, err
		}
		h.Action = Action(action)
		out = append(out, h)
	}
	return out, rows.Err()
}

func (s *Store) DeleteTeam(ctx context.Context, id, actorID int64) error {
	_, err := lifecycle.SoftDelete(ctx, s.db, lifecycle.EntityTeam, id, actorID)
	return err
}

func (s *Store) PostMessage(ctx context.Context, teamID, senderID int64, body string) (int64, error) {
	var id int64
	err := s.db.QueryRow(ctx, `
		INSERT INTO messages (team_id, sender_id, body) VALUES ($1, $2, $3) RETURNING id
	`, teamID, senderID, strings.TrimSpace(body)).Scan(&id)
	return id, err
}

// ListMessages returns the latest messages, oldest first.
func (s *Store) ListMessages(ctx context.Context, teamID int64, limit int) ([]Message, error) {
	limit = database.NormalizeLimit(limit, 50, 500)

	rows, err := s.db.Query(ctx, `
		SELECT * FROM (
			SELECT m.id, m.team_id, m.sender_id, s.full_name, m.body, m.created_at
			FROM messages m
			JOIN staff s ON s.id = m.sender_id
			WHERE m.team_id = $1
			ORDER BY m.created_at DESC, m.id DESC
			LIMIT $2
		) recent
		ORDER BY created_at, id
	`, teamID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Message, 0, limit)
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.TeamID, &m.SenderID, &m.SenderName, &m.Body, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
