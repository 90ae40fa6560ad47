package mtask

import (
	"errors"
	"slices"
	"testing"

	"kyri56xcaesar/opscrm/internal/apperr"
)

func assertDisjoint(t *testing.T, cl *Checklist) {
	t.Helper()
	for _, item := range cl.Checked {
		if slices.Contains(cl.NotChecked, item) {
			t.Fatalf("item %q is both checked and unchecked", item)
		}
	}
}

func TestChecklistMovesItemsBetweenLists(t *testing.T) {
	cl := NewChecklist(1, "staff")

	for _, item := range []string{"call client", "send quote", " draft contract "} {
		if err := cl.Add(item); err != nil {
			t.Fatalf("add %q: %v", item, err)
		}
	}

	if err := cl.Check("send quote"); err != nil {
		t.Fatalf("check: %v", err)
	}
	assertDisjoint(t, cl)
	if !slices.Equal(cl.Checked, []string{"send quote"}) {
		t.Fatalf("checked = %v", cl.Checked)
	}

	if err := cl.Uncheck("send quote"); err != nil {
		t.Fatalf("uncheck: %v", err)
	}
	assertDisjoint(t, cl)

	items := cl.Items()
	slices.Sort(items)
	want := []string{"call client", "draft contract", "send quote"}
	if !slices.Equal(items, want) {
		t.Fatalf("items = %v, want %v", items, want)
	}
}

func TestChecklistErrors(t *testing.T) {
	cl := NewChecklist(1, "admin")
	_ = cl.Add("review")

	if err := cl.Add("review"); !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("duplicate add: got %v", err)
	}
	if err := cl.Add("   "); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("blank add: got %v", err)
	}
	if err := cl.Check("missing"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("check unknown: got %v", err)
	}

	_ = cl.Check("review")
	if err := cl.Check("review"); !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("double check: got %v", err)
	}
	if err := cl.Add("review"); !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("re-adding a checked item: got %v", err)
	}
	assertDisjoint(t, cl)
}
