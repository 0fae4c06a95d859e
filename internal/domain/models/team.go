package models

import (
	"database/sql"
	"time"
)

type Team struct {
	TeamID      string       `db:"team_id" json:"team_id"`
	Name        string       `db:"name" json:"name"`
	Description string       `db:"description" json:"description,omitempty"`
	CreatedBy   string       `db:"created_by" json:"created_by"`
	CreatedAt   time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time    `db:"updated_at" json:"updated_at"`
	IsDeleted   bool         `db:"is_deleted" json:"-"`
	DeletedAt   sql.NullTime `db:"deleted_at" json:"-"`
}

// TeamPatch is a partial update; nil fields are left untouched.
type TeamPatch struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
}

func (p TeamPatch) Empty() bool {
	return p.Name == nil && p.Description == nil
}

type AdminInfo struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
}

// TeamView is a team as seen by one of its members.
type TeamView struct {
	TeamID      string       `json:"team_id"`
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	Role        Role         `json:"role"`
	Status      MemberStatus `json:"status"`
	MemberCount int          `json:"member_count"`
	CreatedAt   time.Time    `json:"created_at"`
	CreatedBy   string       `json:"created_by"`
	Admins      []AdminInfo  `json:"admins,omitempty"`
}

type TeamsList struct {
	Teams              []TeamView       `json:"teams"`
	PendingInvitations []TeamInvitation `json:"pending_invitations"`
}

type DeleteTeamResult struct {
	Message          string    `json:"message"`
	DeletedAt        time.Time `json:"deleted_at"`
	RecoveryDeadline time.Time `json:"recovery_deadline"`
	RemovedMembers   int       `json:"removed_members"`
}

type LeaveTeamResult struct {
	Message    string    `json:"message"`
	TeamName   string    `json:"team_name"`
	LeftAt     time.Time `json:"left_at"`
	PromotedTo string    `json:"promoted_user_id,omitempty"`
}

type RemoveMemberResult struct {
	Message     string    `json:"message"`
	RemovedUser AdminInfo `json:"removed_user"`
	RemovedAt   time.Time `json:"removed_at"`
}
