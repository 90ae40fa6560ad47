// Package lifecycle moves entities between Active and Deleted.
//
// The soft_delete flag and the trash ledger are only ever written together, inside one
// transaction, by SoftDelete and Restore.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"kyri56xcaesar/opscrm/internal/apperr"
	"kyri56xcaesar/opscrm/internal/database"

	"github.com/jackc/pgx/v5"
)

type Entity string

const (
	EntityTask     Entity = "task"
	EntityLead     Entity = "lead"
	EntityContact  Entity = "contact"
	EntityCompany  Entity = "company"
	EntityLeave    Entity = "leave"
	EntityHoliday  Entity = "holiday"
	EntityWork     Entity = "work"
	EntityTeam     Entity = "team"
	EntityDocument Entity = "document"
	EntityCall     Entity = "call"
	EntityMeeting  Entity = "meeting"
	EntityStaff    Entity = "staff"
)

var tables = map[Entity]string{
	EntityTask:     "tasks",
	EntityLead:     "leads",
	EntityContact:  "contacts",
	EntityCompany:  "companies",
	EntityLeave:    "leave_requests",
	EntityHoliday:  "holidays",
	EntityWork:     "work_assignments",
	EntityTeam:     "teams",
	EntityDocument: "documents",
	EntityCall:     "calls",
	EntityMeeting:  "meetings",
	EntityStaff:    "staff",
}

// Table returns the table backing e.
func (e Entity) Table() (string, bool) {
	t, ok := tables[e]
	return t, ok
}

type TrashRecord struct {
	ID         int64      `json:"id"`
	EntityType Entity     `json:"entityType"`
	EntityID   int64      `json:"entityId"`
	DeletedBy  int64      `json:"deletedBy"`
	Restored   bool       `json:"restored"`
	RestoredBy *int64     `json:"restoredBy,omitempty"`
	RestoredAt *time.Time `json:"restoredAt,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
}

// Guard runs inside the delete transaction against the locked row; returning an error
// aborts the transition.
type Guard func(ctx context.Context, tx pgx.Tx) error

// SoftDelete flips the tombstone of an active row and appends the ledger entry.
func SoftDelete(ctx context.Context, db database.DB, e Entity, id, actorID int64, guards ...Guard) (int64, error) {
	table, ok := e.Table()
	if !ok {
		return 0, apperr.Validation(fmt.Sprintf("unknown entity type %q", e))
	}
	if id <= 0 {
		return 0, apperr.Validation(string(e) + " id required")
	}

	var trashID int64
	err := database.WithTx(ctx, db, func(tx pgx.Tx) error {
		for _, g := range guards {
			if err := g(ctx, tx); err != nil {
				return err
			}
		}

		// table comes from the whitelist above
		ct, err := tx.Exec(ctx, fmt.Sprintf(
			`UPDATE %s SET soft_delete = TRUE, updated_at = now() WHERE id = $1 AND soft_delete = FALSE`, table,
		), id)
		if err != nil {
			return err
		}
		if ct.RowsAffected() == 0 {
			return apperr.NotFound(string(e))
		}

		return tx.QueryRow(ctx, `
			INSERT INTO trash (entity_type, entity_id, deleted_by)
			VALUES ($1, $2, $3)
			RETURNING id
		`, string(e), id, actorID).Scan(&trashID)
	})

	return trashID, err
}

// Restore reverses a ledger entry. The ledger row is kept and marked restored.
func Restore(ctx context.Context, db database.DB, trashID, actorID int64) error {
	return database.WithTx(ctx, db, func(tx pgx.Tx) error {
		var (
			entity   string
			entityID int64
			restored bool
		)
		err := tx.QueryRow(ctx, `
			SELECT entity_type, entity_id, restored FROM trash WHERE id = $1 FOR UPDATE
		`, trashID).Scan(&entity, &entityID, &restored)
		if errors.Is(err, pgx.ErrNoRows) {
			return apperr.NotFound("trash record")
		}
		if err != nil {
			return err
		}
		if restored {
			return apperr.Conflict("already restored")
		}

		table, ok := Entity(entity).Table()
		if !ok {
			return fmt.Errorf("trash %d references unknown entity %q", trashID, entity)
		}

		ct, err := tx.Exec(ctx, fmt.Sprintf(
			`UPDATE %s SET soft_delete = FALSE, updated_at = now() WHERE id = $1 AND soft_delete = TRUE`, table,
		), entityID)
		if err != nil {
			return err
		}
		if ct.RowsAffected() == 0 {
			return apperr.Conflict(entity + " is not deleted")
		}

		_, err = tx.Exec(ctx, `
			UPDATE trash SET restored = TRUE, restored_by = $2, restored_at = now() WHERE id = $1
		`, trashID, actorID)
		return err
	})
}

// ListTrash returns ledger entries, newest first.
func ListTrash(ctx context.Context, db database.DB, entity Entity, limit int) ([]TrashRecord, error) {
	limit = database.NormalizeLimit(limit, 50, 200)

	rows, err := db.Query(ctx, `
		SELECT id, entity_type, entity_id, deleted_by, restored, restored_by, restored_at, created_at
		FROM trash
		WHERE ($1 = '' OR entity_type = $1)
		ORDER BY created_at DESC
		LIMIT $2
	`, string(entity), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]TrashRecord, 0, limit)
	for rows.Next() {
		var r TrashRecord
		var et string
		if err := rows.Scan(&r.ID, &et, &r.EntityID, &r.DeletedBy, &r.Restored, &r.RestoredBy, &r.RestoredAt, &r.CreatedAt); err != nil {
			return nil, err
		}
		r.EntityType = Entity(et)
		out = append(out, r)
	}
	return out, rows.Err()
}
