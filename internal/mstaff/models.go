package mstaff

import (
	"time"

	"kyri56xcaesar/opscrm/internal/utils"
)

type Staff struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	FullName     string    `json:"fullName"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone"`
	Role         string    `json:"role"`
	ManagerID    *int64    `json:"managerId,omitempty"`
	ProfileImage string    `json:"profileImage,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type CreateStaffRequest struct {
	Username  string `json:"username" binding:"required,min=3,max=64"`
	FullName  string `json:"fullName" binding:"required,min=2,max=200"`
	Email     string `json:"email" binding:"omitempty,email"`
	Phone     string `json:"phone" binding:"max=40"`
	Role      string `json:"role" binding:"omitempty,oneof=admin staff"`
	ManagerID *int64 `json:"managerId" binding:"omitempty,gt=0"`
	// create the identity provider account as well
	Provision bool `json:"provision"`
}

type UpdateStaffRequest struct {
	FullName     *string `json:"fullName" binding:"omitempty,min=2,max=200"`
	Email        *string `json:"email" binding:"omitempty,email"`
	Phone        *string `json:"phone" binding:"omitempty,max=40"`
	Role         *string `json:"role" binding:"omitempty,oneof=admin staff"`
	ManagerID    *int64  `json:"managerId" binding:"omitempty,gt=0"`
	ProfileImage *string `json:"profileImage" binding:"omitempty,max=1000"`
}

// Punch is one entry/exit pair. ExitAt stays nil while the staff member is still in.
type Punch struct {
	ID       int64      `json:"id"`
	StaffID  int64      `json:"staffId"`
	WorkDate utils.Date `json:"workDate"`
	EntryAt  time.Time  `json:"entryAt"`
	ExitAt   *time.Time `json:"exitAt,omitempty"`
}

func (p Punch) Open() bool {
	return p.ExitAt == nil
}

// Worked is the duration of a closed pair, or up to now for an open one.
func (p Punch) Worked(now time.Time) time.Duration {
	end := now
	if p.ExitAt != nil {
		end = *p.ExitAt
	}
	if end.Before(p.EntryAt) {
		return 0
	}
	return end.Sub(p.EntryAt)
}

type DayAttendance struct {
	Date          utils.Date `json:"date"`
	Punches       []Punch    `json:"punches"`
	WorkedMinutes int        `json:"workedMinutes"`
}
