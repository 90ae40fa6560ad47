package mtask

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"kyri56xcaesar/opscrm/internal/apperr"

	"github.com/pashagolub/pgxmock/v4"
)

func TestStoreFlagReworkWritesOnlyTheFlag(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(mock.Close)

	mock.ExpectQuery(`^\s*UPDATE tasks SET rework = TRUE, updated_at = now\(\)\s+WHERE id = \$1 AND soft_delete = FALSE\s+RETURNING assigned_to\s*$`).
		WithArgs(int64(5)).
		WillReturnRows(pgxmock.NewRows([]string{"assigned_to"}).AddRow(int64(7)))
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE tasks SET rework = TRUE")).
		WithArgs(int64(6)).
		WillReturnRows(pgxmock.NewRows([]string{"assigned_to"}))

	s := NewStore(mock)

	assignee, err := s.FlagRework(context.Background(), 5)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if assignee != 7 {
		t.Fatalf("assignee = %d", assignee)
	}

	if _, err := s.FlagRework(context.Background(), 6); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}
