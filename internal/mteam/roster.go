package mteam

import (
	"slices"

	"kyri56xcaesar/opscrm/internal/apperr"
)

type Action string

const (
	ActionCreated       Action = "created"
	ActionRenamed       Action = "renamed"
	ActionLeaderChanged Action = "leader_changed"
	ActionMemberAdded   Action = "member_added"
	ActionMemberRemoved Action = "member_removed"
)

// Roster is the membership of a team. The leader is always part of the team and never
// listed among Members.
type Roster struct {
	LeaderID int64
	Members  []int64
}

func NewRoster(leaderID int64, members []int64) Roster {
	r := Roster{LeaderID: leaderID}
	for _, m := range members {
		if m > 0 && m != leaderID && !slices.Contains(r.Members, m) {
			r.Members = append(r.Members, m)
		}
	}
	if r.Members == nil {
		r.Members = []int64{}
	}
	return r
}

func (r Roster) Has(staffID int64) bool {
	return staffID == r.LeaderID || slices.Contains(r.Members, staffID)
}

// All is the leader followed by the members.
func (r Roster) All() []int64 {
	return append([]int64{r.LeaderID}, r.Members...)
}

func (r *Roster) Add(staffID int64) error {
	if staffID <= 0 {
		return apperr.Validation("staff id required")
	}
	if r.Has(staffID) {
		return apperr.Conflict("already a member of the team")
	}
	r.Members = append(r.Members, staffID)
	return nil
}

func (r *Roster) Remove(staffID int64) error {
	if staffID == r.LeaderID {
		return apperr.Conflict("the leader cannot leave the team, appoint another leader first")
	}
	i := slices.Index(r.Members, staffID)
	if i < 0 {
		return apperr.NotFound("team member")
	}
	r.Members = slices.Delete(r.Members, i, i+1)
	return nil
}

// SetLeader promotes staffID. The previous leader stays on as a member.
func (r *Roster) SetLeader(staffID int64) error {
	if staffID <= 0 {
		return apperr.Validation("leader id required")
	}
	if staffID == r.LeaderID {
		return nil
	}
	if i := slices.Index(r.Members, staffID); i >= 0 {
		r.Members = slices.Delete(r.Members, i, i+1)
	}
	r.Members = append(r.Members, r.LeaderID)
	r.LeaderID = staffID
	return nil
}
