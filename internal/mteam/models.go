package mteam

import "time"

type Team struct {
	ID          int64        `json:"id"`
	Name        string       `json:"name"`
	LeaderID    int64        `json:"leaderId"`
	LeaderName  string       `json:"leaderName"`
	MemberIDs   []int64      `json:"memberIds"`
	MemberCount int          `json:"memberCount"`
	Members     []TeamMember `json:"members,omitempty"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

type TeamMember struct {
	StaffID int64  `json:"staffId"`
	Name    string `json:"name"`
	Role    string `json:"role"` // leader/member
}

// HistoryEntry is a snapshot of the team taken after each change.
type HistoryEntry struct {
	ID        int64     `json:"id"`
	TeamID    int64     `json:"teamId"`
	Action    Action    `json:"action"`
	Name      string    `json:"name"`
	LeaderID  int64     `json:"leaderId"`
	MemberIDs []int64   `json:"memberIds"`
	ActorID   int64     `json:"actorId"`
	CreatedAt time.Time `json:"createdAt"`
}

type Message struct {
	ID         int64     `json:"id"`
	TeamID     int64     `json:"teamId"`
	SenderID   int64     `json:"senderId"`
	SenderName string    `json:"senderName"`
	Body       string    `json:"body"`
	CreatedAt  time.Time `json:"createdAt"`
}

type CreateTeamRequest struct {
	Name      string  `json:"name" binding:"required,min=2,max=64"`
	LeaderID  int64   `json:"leaderId" binding:"required,gt=0"`
	MemberIDs []int64 `json:"memberIds" binding:"dive,gt=0"`
}

type UpdateTeamRequest struct {
	Name     *string `json:"name" binding:"omitempty,min=2,max=64"`
	LeaderID *int64  `json:"leaderId" binding:"omitempty,gt=0"`
}

type AddTeamMemberRequest struct {
	StaffID int64 `json:"staffId" binding:"required,gt=0"`
}

type MessageRequest struct {
	Body string `json:"body" binding:"required,min=1,max=4000"`
}

type ListFilter struct {
	Name  string
	Limit int
	Order string
}
