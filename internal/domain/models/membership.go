package models

import (
	"database/sql"
	"time"
)

type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleMember
}

type MemberStatus string

const (
	StatusPending MemberStatus = "pending"
	StatusMember  MemberStatus = "member"
)

func (s MemberStatus) Valid() bool {
	return s == StatusPending || s == StatusMember
}

// Membership is the (team, user) relationship. Only rows with
// Status == StatusMember count as membership.
type Membership struct {
	TeamID    string       `db:"team_id" json:"team_id"`
	UserID    string       `db:"user_id" json:"user_id"`
	Role      Role         `db:"role" json:"role"`
	Status    MemberStatus `db:"status" json:"status"`
	InvitedBy string       `db:"invited_by" json:"invited_by"`
	InvitedAt time.Time    `db:"invited_at" json:"invited_at"`
	JoinedAt  sql.NullTime `db:"joined_at" json:"-"`
}

func (m Membership) IsActive() bool {
	return m.Status == StatusMember
}

func (m Membership) IsActiveAdmin() bool {
	return m.IsActive() && m.Role == RoleAdmin
}

type DataSharing struct {
	Profile     bool `json:"profile"`
	Activity    bool `json:"activity"`
	Sleep       bool `json:"sleep"`
	TestResults bool `json:"test_results"`
}

// DefaultDataSharing is the fixed projection used until per-member privacy
// settings exist.
func DefaultDataSharing() DataSharing {
	return DataSharing{Profile: true}
}

type MemberView struct {
	UserID      string       `json:"user_id"`
	Name        string       `json:"name"`
	Email       string       `json:"email"`
	Role        Role         `json:"role"`
	Status      MemberStatus `json:"status"`
	JoinedAt    *time.Time   `json:"joined_at"`
	DataSharing DataSharing  `json:"data_sharing"`
}

type TeamMembers struct {
	TeamID       string       `json:"team_id"`
	Members      []MemberView `json:"members"`
	TotalMembers int          `json:"total_members"`
}

type SharedDataCategory struct {
	Shared  bool           `json:"shared"`
	Data    map[string]any `json:"data,omitempty"`
	Message string         `json:"message,omitempty"`
}

type MemberSharedData struct {
	UserID      string             `json:"user_id"`
	Name        string             `json:"name"`
	Role        Role               `json:"role"`
	Profile     SharedDataCategory `json:"profile"`
	Activity    SharedDataCategory `json:"activity"`
	Sleep       SharedDataCategory `json:"sleep"`
	TestResults SharedDataCategory `json:"test_results"`
}

type TeamSharedData struct {
	TeamID     string             `json:"team_id"`
	SharedData []MemberSharedData `json:"shared_data"`
}
