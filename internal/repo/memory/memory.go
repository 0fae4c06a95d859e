// Package memory is an in-process store with the same semantics as the SQL
// repos. Service tests run against it.
package memory

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"sync"
	"time"

	"teams-service/internal/apperrors"
	"teams-service/internal/domain/models"
)

type memberKey struct {
	teamID string
	userID string
}

type inviteKey struct {
	teamID string
	email  string
}

type Store struct {
	mu          sync.RWMutex
	teams       map[string]models.Team
	members     map[memberKey]models.Membership
	invitations map[inviteKey]models.EmailInvitation
	users       map[string]models.User
}

func New() *Store {
	return &Store{
		teams:       make(map[string]models.Team),
		members:     make(map[memberKey]models.Membership),
		invitations: make(map[inviteKey]models.EmailInvitation),
		users:       make(map[string]models.User),
	}
}

func (s *Store) liveTeam(teamID string) (models.Team, bool) {
	t, ok := s.teams[teamID]
	if !ok || t.IsDeleted {
		return models.Team{}, false
	}
	return t, true
}

// Teams.

func (s *Store) CreateTeam(_ context.Context, team models.Team) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.teams[team.TeamID] = team
	return nil
}

func (s *Store) GetTeam(_ context.Context, teamID string) (models.Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.liveTeam(teamID)
	if !ok {
		return models.Team{}, apperrors.ErrTeamNotFound
	}
	return t, nil
}

func (s *Store) GetTeams(_ context.Context, ids []string) (map[string]models.Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	teams := make(map[string]models.Team, len(ids))
	for _, id := range ids {
		if t, ok := s.liveTeam(id); ok {
			teams[id] = t
		}
	}
	return teams, nil
}

func (s *Store) UpdateTeam(_ context.Context, teamID string, patch models.TeamPatch, updatedAt time.Time) (models.Team, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.liveTeam(teamID)
	if !ok {
		return models.Team{}, apperrors.ErrTeamNotFound
	}
	if patch.Name != nil {
		t.Name = *patch.Name
	}
	if patch.Description != nil {
		t.Description = *patch.Description
	}
	t.UpdatedAt = updatedAt
	s.teams[teamID] = t

	return t, nil
}

func (s *Store) SoftDeleteTeam(_ context.Context, teamID string, at time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.liveTeam(teamID)
	if !ok {
		return 0, apperrors.ErrTeamNotFound
	}
	t.IsDeleted = true
	t.DeletedAt = sql.NullTime{Time: at, Valid: true}
	t.UpdatedAt = at
	s.teams[teamID] = t

	removed := 0
	for k := range s.members {
		if k.teamID == teamID {
			delete(s.members, k)
			removed++
		}
	}

	return removed, nil
}

// Memberships.

func (s *Store) AddMembership(_ context.Context, m models.Membership) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.liveTeam(m.TeamID); !ok {
		return apperrors.ErrTeamNotFound
	}
	k := memberKey{m.TeamID, m.UserID}
	if _, exists := s.members[k]; exists {
		return apperrors.ErrMembershipExists
	}
	s.members[k] = m

	return nil
}

func (s *Store) GetMembership(_ context.Context, teamID, userID string) (models.Membership, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.members[memberKey{teamID, userID}]
	if !ok {
		return models.Membership{}, apperrors.ErrMembershipNotFound
	}
	return m, nil
}

func (s *Store) ListTeamMemberships(_ context.Context, teamID string, status models.MemberStatus) ([]models.Membership, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []models.Membership{}
	for _, m := range s.members {
		if m.TeamID == teamID && m.Status == status {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.JoinedAt.Time.Equal(b.JoinedAt.Time) {
			return a.JoinedAt.Time.Before(b.JoinedAt.Time)
		}
		if !a.InvitedAt.Equal(b.InvitedAt) {
			return a.InvitedAt.Before(b.InvitedAt)
		}
		return a.UserID < b.UserID
	})

	return out, nil
}

func (s *Store) ListUserMemberships(_ context.Context, userID string) ([]models.Membership, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []models.Membership{}
	for _, m := range s.members {
		if m.UserID != userID {
			continue
		}
		if _, ok := s.liveTeam(m.TeamID); ok {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].InvitedAt.Equal(out[j].InvitedAt) {
			return out[i].InvitedAt.Before(out[j].InvitedAt)
		}
		return out[i].TeamID < out[j].TeamID
	})

	return out, nil
}

func (s *Store) CountUserTeams(_ context.Context, userID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, m := range s.members {
		if m.UserID != userID || !m.IsActive() {
			continue
		}
		if _, ok := s.liveTeam(m.TeamID); ok {
			n++
		}
	}
	return n, nil
}

func (s *Store) CountTeamMembers(_ context.Context, teamID string) (int, error) {
	return s.countTeam(teamID, func(m models.Membership) bool { return m.IsActive() }), nil
}

func (s *Store) CountTeamAdmins(_ context.Context, teamID string) (int, error) {
	return s.countTeam(teamID, func(m models.Membership) bool { return m.IsActiveAdmin() }), nil
}

func (s *Store) countTeam(teamID string, match func(models.Membership) bool) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, m := range s.members {
		if m.TeamID == teamID && match(m) {
			n++
		}
	}
	return n
}

func (s *Store) ActivateMembership(_ context.Context, teamID, userID string, joinedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := memberKey{teamID, userID}
	m, ok := s.members[k]
	if !ok || m.Status != models.StatusPending {
		return apperrors.ErrNoPendingInvite
	}
	if _, live := s.liveTeam(teamID); !live {
		return apperrors.ErrNoPendingInvite
	}
	m.Status = models.StatusMember
	m.JoinedAt = sql.NullTime{Time: joinedAt, Valid: true}
	s.members[k] = m

	return nil
}

func (s *Store) UpdateRole(_ context.Context, teamID, userID string, role models.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := memberKey{teamID, userID}
	m, ok := s.members[k]
	if !ok || !m.IsActive() {
		return apperrors.ErrMembershipNotFound
	}
	if _, live := s.liveTeam(teamID); !live {
		return apperrors.ErrMembershipNotFound
	}
	m.Role = role
	s.members[k] = m

	return nil
}

func (s *Store) DeleteMembership(_ context.Context, teamID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := memberKey{teamID, userID}
	if _, ok := s.members[k]; !ok {
		return apperrors.ErrMembershipNotFound
	}
	delete(s.members, k)

	return nil
}

func (s *Store) DeletePendingMembership(_ context.Context, teamID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := memberKey{teamID, userID}
	m, ok := s.members[k]
	if !ok || m.Status != models.StatusPending {
		return apperrors.ErrNoPendingInvite
	}
	delete(s.members, k)

	return nil
}

// Email invitations.

func (s *Store) AddEmailInvitation(_ context.Context, inv models.EmailInvitation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.liveTeam(inv.TeamID); !ok {
		return apperrors.ErrTeamNotFound
	}
	k := inviteKey{inv.TeamID, inv.Email}
	if _, exists := s.invitations[k]; exists {
		return apperrors.ErrInvitationExists
	}
	s.invitations[k] = inv

	return nil
}

func (s *Store) GetEmailInvitation(_ context.Context, teamID, email string) (models.EmailInvitation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	inv, ok := s.invitations[inviteKey{teamID, email}]
	if !ok {
		return models.EmailInvitation{}, apperrors.ErrInvitationNotFound
	}
	return inv, nil
}

func (s *Store) ListEmailInvitationsByEmail(_ context.Context, email string) ([]models.EmailInvitation, error) {
	return s.listInvitations(func(inv models.EmailInvitation) bool { return inv.Email == email }), nil
}

func (s *Store) ListEmailInvitationsByTeam(_ context.Context, teamID string) ([]models.EmailInvitation, error) {
	return s.listInvitations(func(inv models.EmailInvitation) bool { return inv.TeamID == teamID }), nil
}

func (s *Store) listInvitations(match func(models.EmailInvitation) bool) []models.EmailInvitation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []models.EmailInvitation{}
	for _, inv := range s.invitations {
		if match(inv) {
			out = append(out, inv)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].InvitedAt.Equal(out[j].InvitedAt) {
			return out[i].InvitedAt.Before(out[j].InvitedAt)
		}
		if out[i].TeamID != out[j].TeamID {
			return out[i].TeamID < out[j].TeamID
		}
		return out[i].Email < out[j].Email
	})
	return out
}

func (s *Store) DeleteEmailInvitation(_ context.Context, teamID, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := inviteKey{teamID, email}
	if _, ok := s.invitations[k]; !ok {
		return apperrors.ErrInvitationNotFound
	}
	delete(s.invitations, k)

	return nil
}

// Users.

func (s *Store) GetUser(_ context.Context, userID string) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[userID]
	if !ok {
		return models.User{}, apperrors.ErrUserNotFound
	}
	return u, nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	email = strings.ToLower(email)
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return models.User{}, apperrors.ErrUserNotFound
}

func (s *Store) GetUsers(_ context.Context, ids []string) (map[string]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make(map[string]models.User, len(ids))
	for _, id := range ids {
		if u, ok := s.users[id]; ok {
			users[id] = u
		}
	}
	return users, nil
}

func (s *Store) UpsertUser(_ context.Context, user models.User) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user.Email = strings.ToLower(user.Email)
	for id, u := range s.users {
		if id != user.UserID && u.Email == user.Email {
			return false, apperrors.ErrEmailTaken
		}
	}

	existing, ok := s.users[user.UserID]
	if ok {
		user.CreatedAt = existing.CreatedAt
	}
	s.users[user.UserID] = user

	return !ok, nil
}
