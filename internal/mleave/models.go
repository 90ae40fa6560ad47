package mleave

import (
	"fmt"
	"strings"
	"time"

	"kyri56xcaesar/opscrm/internal/apperr"
	"kyri56xcaesar/opscrm/internal/utils"
)

// Accepted request window. MaxSpanDays keeps a single request within roughly one year.
const (
	MinYear     = 2000
	MaxYear     = 2100
	MaxSpanDays = 366
)

type LeaveType string

const (
	TypeMorning   LeaveType = "morning"
	TypeAfternoon LeaveType = "afternoon"
	TypeFullDay   LeaveType = "fullday"
)

func (t LeaveType) HalfDay() bool {
	return t == TypeMorning || t == TypeAfternoon
}

type Category string

const (
	CategoryLeave Category = "Leave"
	CategoryWFH   Category = "WFH"
)

// HalfTime qualifies a half-day WFH: the other half is either worked offline or taken as leave.
// It is informational only and never changes the day credit.
type HalfTime string

const (
	HalfTimeOffline HalfTime = "Offline"
	HalfTimeLeave   HalfTime = "Leave"
)

type LeaveRequest struct {
	ID          int64      `json:"id"`
	StaffID     int64      `json:"staffId"`
	StaffName   string     `json:"staffName,omitempty"`
	LeaveType   LeaveType  `json:"leaveType"`
	Category    Category   `json:"category"`
	HalfTime    *HalfTime  `json:"halfTime,omitempty"`
	LeaveDate   utils.Date `json:"leaveDate"`
	EndDate     utils.Date `json:"endDate"`
	Description string     `json:"description"`
	Status      Status     `json:"status"`
	DecidedBy   *int64     `json:"decidedBy,omitempty"`
	DecidedAt   *time.Time `json:"decidedAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// Covers reports whether day falls inside the request's range.
func (r LeaveRequest) Covers(day time.Time) bool {
	return utils.Overlaps(r.LeaveDate.Time, r.EndDate.Time, day, day)
}

// LeaveInput is the body of both create and update.
type LeaveInput struct {
	LeaveType   string `json:"leaveType" binding:"required,oneof=morning afternoon fullday"`
	Category    string `json:"category" binding:"required,oneof=Leave WFH"`
	HalfTime    string `json:"halfTime" binding:"omitempty,oneof=Offline Leave"`
	LeaveDate   string `json:"leaveDate" binding:"required"`
	EndDate     string `json:"endDate"`
	Description string `json:"description" binding:"max=2000"`
	Status      string `json:"status"`
}

// LeaveDraft is a validated LeaveInput.
type LeaveDraft struct {
	LeaveType   LeaveType
	Category    Category
	HalfTime    *HalfTime
	LeaveDate   time.Time
	EndDate     time.Time
	Description string
}

// Validate parses the dates and checks the field combination. An end date before the
// start date yields apperr.ErrDateOrder; a missing end date means a single day.
func (in LeaveInput) Validate() (LeaveDraft, error) {
	d := LeaveDraft{
		LeaveType:   LeaveType(in.LeaveType),
		Category:    Category(in.Category),
		Description: strings.TrimSpace(in.Description),
	}

	switch d.LeaveType {
	case TypeMorning, TypeAfternoon, TypeFullDay:
	default:
		return d, apperr.Validation("leaveType must be morning, afternoon or fullday")
	}
	if d.Category != CategoryLeave && d.Category != CategoryWFH {
		return d, apperr.Validation("category must be Leave or WFH")
	}

	if in.Status != "" && Status(in.Status) != StatusPending {
		return d, apperr.Validation("status is set through the decision endpoint")
	}

	if in.HalfTime != "" {
		if !d.LeaveType.HalfDay() || d.Category != CategoryWFH {
			return d, apperr.Validation("halfTime only applies to half-day WFH")
		}
		ht := HalfTime(in.HalfTime)
		if ht != HalfTimeOffline && ht != HalfTimeLeave {
			return d, apperr.Validation("halfTime must be Offline or Leave")
		}
		d.HalfTime = &ht
	}

	start, err := utils.ParseDate(in.LeaveDate)
	if err != nil {
		return d, apperr.Validation("malformed leaveDate, expected YYYY-MM-DD")
	}
	end := start
	if strings.TrimSpace(in.EndDate) != "" {
		end, err = utils.ParseDate(in.EndDate)
		if err != nil {
			return d, apperr.Validation("malformed endDate, expected YYYY-MM-DD")
		}
	}
	if end.Before(start) {
		return d, apperr.ErrDateOrder
	}
	if start.Year() < MinYear || end.Year() > MaxYear {
		return d, apperr.Validation(fmt.Sprintf("leave dates must fall between %d and %d", MinYear, MaxYear))
	}
	if days := int(end.Sub(start).Hours()/24) + 1; days > MaxSpanDays {
		return d, apperr.Validation(fmt.Sprintf("a request covers at most %d days", MaxSpanDays))
	}

	d.LeaveDate, d.EndDate = start, end
	return d, nil
}

type DecisionRequest struct {
	Status string `json:"status" binding:"required"`
}

type Allocation struct {
	StaffID         int64   `json:"staffId"`
	Year            int     `json:"allocationYear"`
	AllocatedLeaves float64 `json:"allocatedLeaves"`
	AllocatedWFH    float64 `json:"allocatedWFH"`
}

type AllocationRequest struct {
	StaffID         int64   `json:"staffId" binding:"required,gt=0"`
	Year            int     `json:"allocationYear" binding:"required,gte=2000,lte=2100"`
	AllocatedLeaves float64 `json:"allocatedLeaves" binding:"gte=0,lte=366"`
	AllocatedWFH    float64 `json:"allocatedWFH" binding:"gte=0,lte=366"`
}

type Holiday struct {
	ID          int64      `json:"id"`
	Date        utils.Date `json:"date"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	CreatedAt   time.Time  `json:"createdAt"`
}

type HolidayRequest struct {
	Date        string `json:"date" binding:"required"`
	Name        string `json:"name" binding:"required,min=1,max=200"`
	Description string `json:"description" binding:"max=2000"`
}

type ListFilter struct {
	StaffID int64
	Status  Status
	Year    int
	Limit   int
}
