package models

import "time"

// EmailInvitationTTL is the lifetime of an invitation addressed to an email
// that has no account yet.
const EmailInvitationTTL = 30 * 24 * time.Hour

// EmailInvitation is a pending invitation for an address with no account.
type EmailInvitation struct {
	TeamID    string    `db:"team_id" json:"team_id"`
	Email     string    `db:"email" json:"email"`
	InvitedBy string    `db:"invited_by" json:"invited_by"`
	InvitedAt time.Time `db:"invited_at" json:"invited_at"`
	ExpiresAt time.Time `db:"expires_at" json:"expires_at"`
}

func (i EmailInvitation) Expired(now time.Time) bool {
	return now.After(i.ExpiresAt)
}

type inviteeKind int

const (
	inviteeAccount inviteeKind = iota + 1
	inviteeEmail
)

// Invitee is either a registered account or a bare email address.
type Invitee struct {
	kind   inviteeKind
	userID string
	email  string
}

func ForAccount(userID, email string) Invitee {
	return Invitee{kind: inviteeAccount, userID: userID, email: email}
}

func ForEmail(email string) Invitee {
	return Invitee{kind: inviteeEmail, email: email}
}

func (i Invitee) IsAccount() bool { return i.kind == inviteeAccount }

func (i Invitee) UserID() string { return i.userID }

func (i Invitee) Email() string { return i.email }

// Channel names the storage shape backing the invitation.
func (i Invitee) Channel() string {
	if i.IsAccount() {
		return "account"
	}
	return "email"
}

// Invitation unifies the two pending representations: a PENDING membership
// for registered invitees and an EmailInvitation row for everybody else.
type Invitation struct {
	TeamID    string
	Invitee   Invitee
	InvitedBy string
	InvitedAt time.Time
	ExpiresAt time.Time
}

// Membership returns the pending membership row for an account invitee.
func (inv Invitation) Membership() Membership {
	return Membership{
		TeamID:    inv.TeamID,
		UserID:    inv.Invitee.UserID(),
		Role:      RoleMember,
		Status:    StatusPending,
		InvitedBy: inv.InvitedBy,
		InvitedAt: inv.InvitedAt,
	}
}

// EmailInvitation returns the row stored for an email invitee.
func (inv Invitation) EmailInvitation() EmailInvitation {
	return EmailInvitation{
		TeamID:    inv.TeamID,
		Email:     inv.Invitee.Email(),
		InvitedBy: inv.InvitedBy,
		InvitedAt: inv.InvitedAt,
		ExpiresAt: inv.ExpiresAt,
	}
}

// InvitationEmail is the content handed to the notifier.
type InvitationEmail struct {
	To           string
	InviterName  string
	TeamName     string
	Link         string
	IsRegistered bool
}

// TeamInvitation is a pending invitation shown to the invited user.
type TeamInvitation struct {
	TeamID        string    `json:"team_id"`
	TeamName      string    `json:"team_name"`
	InvitedByName string    `json:"invited_by_name"`
	InvitedAt     time.Time `json:"invited_at"`
}

type InviteResult struct {
	TeamID         string    `json:"team_id"`
	InvitedEmail   string    `json:"invited_email"`
	IsRegistered   bool      `json:"is_registered"`
	Status         string    `json:"status"`
	InvitedAt      time.Time `json:"invited_at"`
	InvitationLink string    `json:"invitation_link"`
	EmailSent      bool      `json:"email_sent"`
}

type AcceptedTeam struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	MemberCount int    `json:"member_count"`
}

type AcceptResult struct {
	TeamID   string       `json:"team_id"`
	Status   MemberStatus `json:"status"`
	Role     Role         `json:"role"`
	JoinedAt time.Time    `json:"joined_at"`
	Team     AcceptedTeam `json:"team"`
}

// Token lookup outcomes.
const (
	InvitationAlreadyMember = "already_member"
	InvitationPending       = "pending"
	InvitationNeedsSignup   = "needs_signup"
)

type InvitationDetails struct {
	TeamID          string `json:"team_id"`
	TeamName        string `json:"team_name"`
	TeamDescription string `json:"team_description,omitempty"`
	InvitedBy       string `json:"invited_by,omitempty"`
	Email           string `json:"email"`
	Status          string `json:"status"`
	Message         string `json:"message"`
}

type PendingInvitationView struct {
	UserID      string    `json:"user_id"`
	Email       string    `json:"email"`
	Name        string    `json:"name"`
	InvitedBy   AdminInfo `json:"invited_by"`
	InvitedAt   time.Time `json:"invited_at"`
	DaysPending int       `json:"days_pending"`
}

type PendingInvitations struct {
	TeamID             string                  `json:"team_id"`
	PendingInvitations []PendingInvitationView `json:"pending_invitations"`
	TotalPending       int                     `json:"total_pending"`
}

type EmailInvitationView struct {
	Email       string    `json:"email"`
	InvitedBy   AdminInfo `json:"invited_by"`
	InvitedAt   time.Time `json:"invited_at"`
	ExpiresAt   time.Time `json:"expires_at"`
	DaysPending int       `json:"days_pending"`
}

type EmailInvitations struct {
	TeamID      string                `json:"team_id"`
	Invitations []EmailInvitationView `json:"invitations"`
	Total       int                   `json:"total"`
}
