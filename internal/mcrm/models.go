package mcrm

import (
	"strings"
	"time"

	"kyri56xcaesar/opscrm/internal/utils"
)

type Company struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Website   string    `json:"website"`
	Address   string    `json:"address"`
	CreatedBy int64     `json:"createdBy"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type CompanyRequest struct {
	Name    string `json:"name" binding:"required,min=1,max=200"`
	Website string `json:"website" binding:"max=500"`
	Address string `json:"address" binding:"max=1000"`
}

type Contact struct {
	ID          int64     `json:"id"`
	CompanyID   *int64    `json:"companyId,omitempty"`
	CompanyName string    `json:"companyName,omitempty"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Phone       string    `json:"phone"`
	OwnerID     int64     `json:"ownerId"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type CreateContactRequest struct {
	CompanyID *int64 `json:"companyId" binding:"omitempty,gt=0"`
	Name      string `json:"name" binding:"required,min=1,max=200"`
	Email     string `json:"email" binding:"omitempty,email"`
	Phone     string `json:"phone" binding:"max=40"`
}

type UpdateContactRequest struct {
	CompanyID *int64  `json:"companyId" binding:"omitempty,gt=0"`
	Name      *string `json:"name" binding:"omitempty,min=1,max=200"`
	Email     *string `json:"email" binding:"omitempty,email"`
	Phone     *string `json:"phone" binding:"omitempty,max=40"`
	// admins only
	OwnerID *int64 `json:"ownerId" binding:"omitempty,gt=0"`
}

type Lead struct {
	ID          int64      `json:"id"`
	ContactID   int64      `json:"contactId"`
	ContactName string     `json:"contactName"`
	AssignedTo  int64      `json:"assignedTo"`
	Requirement string     `json:"requirement"`
	Priority    string     `json:"priority"`
	Status      LeadStatus `json:"status"`
	TaskID      *int64     `json:"taskId,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

type CreateLeadRequest struct {
	ContactID   int64  `json:"contactId" binding:"required,gt=0"`
	AssignedTo  int64  `json:"assignedTo" binding:"required,gt=0"`
	Requirement string `json:"requirement" binding:"required,min=2,max=4000"`
	Priority    string `json:"priority" binding:"omitempty,oneof=High Normal Low"`
}

type UpdateLeadRequest struct {
	AssignedTo  *int64  `json:"assignedTo" binding:"omitempty,gt=0"`
	Requirement *string `json:"requirement" binding:"omitempty,min=2,max=4000"`
	Priority    *string `json:"priority" binding:"omitempty,oneof=High Normal Low"`
	Status      *string `json:"status" binding:"omitempty,oneof=Open Lost"`
}

type ConvertLeadRequest struct {
	FinishBy string `json:"finishBy"`
}

type WorkAssignment struct {
	ID          int64       `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Priority    string      `json:"priority"`
	Status      WorkStatus  `json:"status"`
	AssignedTo  *int64      `json:"assignedTo,omitempty"`
	TeamID      *int64      `json:"teamId,omitempty"`
	DueDate     *utils.Date `json:"dueDate,omitempty"`
	CreatedBy   int64       `json:"createdBy"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

type CreateWorkRequest struct {
	Title       string `json:"title" binding:"required,min=1,max=300"`
	Description string `json:"description" binding:"max=8000"`
	Priority    string `json:"priority" binding:"omitempty,oneof=High Normal Low"`
	AssignedTo  *int64 `json:"assignedTo" binding:"omitempty,gt=0"`
	TeamID      *int64 `json:"teamId" binding:"omitempty,gt=0"`
	DueDate     string `json:"dueDate"`
}

type UpdateWorkRequest struct {
	Title       *string `json:"title" binding:"omitempty,min=1,max=300"`
	Description *string `json:"description" binding:"omitempty,max=8000"`
	Priority    *string `json:"priority" binding:"omitempty,oneof=High Normal Low"`
	AssignedTo  *int64  `json:"assignedTo" binding:"omitempty,gt=0"`
	TeamID      *int64  `json:"teamId" binding:"omitempty,gt=0"`
	DueDate     *string `json:"dueDate"`
}

type WorkStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type Call struct {
	ID              int64     `json:"id"`
	StaffID         int64     `json:"staffId"`
	ContactID       *int64    `json:"contactId,omitempty"`
	Subject         string    `json:"subject"`
	ScheduledAt     time.Time `json:"scheduledAt"`
	DurationMinutes int       `json:"durationMinutes"`
	Outcome         string    `json:"outcome"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

type CallRequest struct {
	// admins may log a call for someone else
	StaffID         int64     `json:"staffId" binding:"omitempty,gt=0"`
	ContactID       *int64    `json:"contactId" binding:"omitempty,gt=0"`
	Subject         string    `json:"subject" binding:"required,min=1,max=300"`
	ScheduledAt     time.Time `json:"scheduledAt" binding:"required"`
	DurationMinutes int       `json:"durationMinutes" binding:"gte=0,lte=1440"`
	Outcome         string    `json:"outcome" binding:"max=4000"`
}

type UpdateCallRequest struct {
	Subject         *string    `json:"subject" binding:"omitempty,min=1,max=300"`
	ScheduledAt     *time.Time `json:"scheduledAt"`
	DurationMinutes *int       `json:"durationMinutes" binding:"omitempty,gte=0,lte=1440"`
	Outcome         *string    `json:"outcome" binding:"omitempty,max=4000"`
}

type Meeting struct {
	ID          int64     `json:"id"`
	OrganizerID int64     `json:"organizerId"`
	ContactID   *int64    `json:"contactId,omitempty"`
	Title       string    `json:"title"`
	Location    string    `json:"location"`
	StartsAt    time.Time `json:"startsAt"`
	EndsAt      time.Time `json:"endsAt"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type MeetingRequest struct {
	OrganizerID int64     `json:"organizerId" binding:"omitempty,gt=0"`
	ContactID   *int64    `json:"contactId" binding:"omitempty,gt=0"`
	Title       string    `json:"title" binding:"required,min=1,max=300"`
	Location    string    `json:"location" binding:"max=500"`
	StartsAt    time.Time `json:"startsAt" binding:"required"`
	EndsAt      time.Time `json:"endsAt" binding:"required"`
}

type UpdateMeetingRequest struct {
	Title    *string    `json:"title" binding:"omitempty,min=1,max=300"`
	Location *string    `json:"location" binding:"omitempty,max=500"`
	StartsAt *time.Time `json:"startsAt"`
	EndsAt   *time.Time `json:"endsAt"`
}

type Document struct {
	ID         int64     `json:"id"`
	EntityType string    `json:"entityType"`
	EntityID   int64     `json:"entityId"`
	Name       string    `json:"name"`
	ObjectKey  string    `json:"objectKey"`
	UploadedBy int64     `json:"uploadedBy"`
	CreatedAt  time.Time `json:"createdAt"`
}

type DocumentRequest struct {
	EntityType  string `json:"entityType" binding:"required,oneof=company contact lead task work"`
	EntityID    int64  `json:"entityId" binding:"required,gt=0"`
	Name        string `json:"name" binding:"required,min=1,max=255"`
	ContentType string `json:"contentType" binding:"max=200"`
}

// Range bounds list queries on scheduled items. Zero values are open ends.
type Range struct {
	From time.Time
	To   time.Time
}

type LeadFilter struct {
	AssignedTo int64
	Status     string
	Limit      int
}

type WorkFilter struct {
	// matches direct assignment or membership of the assigned team
	StaffID int64
	Status  string
	Limit   int
}

func trimmed(p *string) string {
	if p == nil {
		return ""
	}
	return strings.TrimSpace(*p)
}
