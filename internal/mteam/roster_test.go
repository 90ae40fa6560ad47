package mteam

import (
	"errors"
	"slices"
	"testing"

	"kyri56xcaesar/opscrm/internal/apperr"
)

func TestNewRosterDropsLeaderAndDuplicates(t *testing.T) {
	r := NewRoster(1, []int64{2, 1, 3, 2, 0})
	if !slices.Equal(r.Members, []int64{2, 3}) {
		t.Fatalf("members = %v", r.Members)
	}
	if !slices.Equal(r.All(), []int64{1, 2, 3}) {
		t.Fatalf("all = %v", r.All())
	}
}

func TestRosterMembership(t *testing.T) {
	r := NewRoster(1, nil)

	if err := r.Add(2); err != nil {
		t.Fatal(err)
	}
	if err := r.Add(2); !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("duplicate add: %v", err)
	}
	if err := r.Add(1); !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("adding the leader: %v", err)
	}
	if err := r.Remove(1); !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("removing the leader: %v", err)
	}
	if err := r.Remove(9); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("removing a stranger: %v", err)
	}
	if err := r.Remove(2); err != nil || r.Has(2) {
		t.Fatalf("remove: %v %v", err, r.Members)
	}
}

func TestRosterSetLeader(t *testing.T) {
	r := NewRoster(1, []int64{2, 3})

	if err := r.SetLeader(3); err != nil {
		t.Fatal(err)
	}
	if r.LeaderID != 3 || !slices.Equal(r.Members, []int64{2, 1}) {
		t.Fatalf("roster = %+v", r)
	}

	if err := r.SetLeader(4); err != nil {
		t.Fatal(err)
	}
	if r.LeaderID != 4 || !r.Has(3) || r.Has(0) {
		t.Fatalf("roster = %+v", r)
	}
}
