package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"github.com/google/uuid"
	"log/slog"
	"strings"
	"teams-service/internal/apperrors"
	"teams-service/internal/domain/models"
	"teams-service/internal/lib/capacity"
	"teams-service/internal/lib/logger/sl"
	"time"
	"unicode/utf8"
)

const (
	maxTeamNameLen    = 100
	maxDescriptionLen = 500

	// RecoveryWindow is reported to clients on delete. Membership rows are
	// removed with the team, so it is informational only.
	RecoveryWindow = 30 * 24 * time.Hour
)

type TeamProvider interface {
	CreateTeam(ctx context.Context, team models.Team) error
	GetTeam(ctx context.Context, teamID string) (models.Team, error)
	GetTeams(ctx context.Context, ids []string) (map[string]models.Team, error)
	UpdateTeam(ctx context.Context, teamID string, patch models.TeamPatch, updatedAt time.Time) (models.Team, error)
	SoftDeleteTeam(ctx context.Context, teamID string, at time.Time) (int, error)
}

type MembershipProvider interface {
	AddMembership(ctx context.Context, m models.Membership) error
	GetMembership(ctx context.Context, teamID, userID string) (models.Membership, error)
	ListTeamMemberships(ctx context.Context, teamID string, status models.MemberStatus) ([]models.Membership, error)
	ListUserMemberships(ctx context.Context, userID string) ([]models.Membership, error)
	CountUserTeams(ctx context.Context, userID string) (int, error)
	CountTeamMembers(ctx context.Context, teamID string) (int, error)
	CountTeamAdmins(ctx context.Context, teamID string) (int, error)
	ActivateMembership(ctx context.Context, teamID, userID string, joinedAt time.Time) error
	UpdateRole(ctx context.Context, teamID, userID string, role models.Role) error
	DeleteMembership(ctx context.Context, teamID, userID string) error
	DeletePendingMembership(ctx context.Context, teamID, userID string) error
}

type UserProvider interface {
	GetUser(ctx context.Context, userID string) (models.User, error)
	GetUserByEmail(ctx context.Context, email string) (models.User, error)
	GetUsers(ctx context.Context, ids []string) (map[string]models.User, error)
	UpsertUser(ctx context.Context, user models.User) (bool, error)
}

// LastAdminPolicy decides what happens when the only admin of a team with
// other members leaves. The only admin of a single-member team can never
// leave; they must delete the team.
type LastAdminPolicy string

const (
	// LastAdminAllow lets the admin leave, the team stays without an admin.
	LastAdminAllow LastAdminPolicy = "allow"
	// LastAdminReject refuses with ErrLastAdmin.
	LastAdminReject LastAdminPolicy = "reject"
	// LastAdminPromote promotes the longest-standing member before leaving.
	LastAdminPromote LastAdminPolicy = "promote"
)

func ParseLastAdminPolicy(raw string) (LastAdminPolicy, error) {
	switch p := LastAdminPolicy(strings.ToLower(strings.TrimSpace(raw))); p {
	case LastAdminAllow, LastAdminReject, LastAdminPromote:
		return p, nil
	case "":
		return LastAdminAllow, nil
	default:
		return "", fmt.Errorf("unknown last admin policy %q", raw)
	}
}

type TeamConfig struct {
	Capacity  *capacity.Policy
	LastAdmin LastAdminPolicy
	Metrics   Recorder
	Now       func() time.Time
	NewID     func() string
}

type TeamService struct {
	log       *slog.Logger
	teams     TeamProvider
	members   MembershipProvider
	users     UserProvider
	quota     teamQuota
	lastAdmin LastAdminPolicy
	metrics   Recorder
	now       func() time.Time
	newID     func() string
}

func NewTeamService(
	log *slog.Logger,
	teams TeamProvider,
	members MembershipProvider,
	users UserProvider,
	cfg TeamConfig) *TeamService {
	metrics := recorderOrNop(cfg.Metrics)

	lastAdmin := cfg.LastAdmin
	if lastAdmin == "" {
		lastAdmin = LastAdminAllow
	}

	newID := cfg.NewID
	if newID == nil {
		newID = uuid.NewString
	}

	return &TeamService{
		log:     log,
		teams:   teams,
		members: members,
		users:   users,
		quota: teamQuota{
			log:     log,
			policy:  policyOrDefault(cfg.Capacity),
			members: members,
			users:   users,
			metrics: metrics,
		},
		lastAdmin: lastAdmin,
		metrics:   metrics,
		now:       timeOrNow(cfg.Now),
		newID:     newID,
	}
}

func validateTeamName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", apperrors.ErrTeamNameRequired
	}
	if utf8.RuneCountInString(name) > maxTeamNameLen {
		return "", apperrors.ErrTeamNameTooLong
	}
	return name, nil
}

func validateDescription(description string) (string, error) {
	description = strings.TrimSpace(description)
	if utf8.RuneCountInString(description) > maxDescriptionLen {
		return "", apperrors.ErrDescriptionLong
	}
	return description, nil
}

// CreateTeam creates a team with the actor as its first admin.
func (s *TeamService) CreateTeam(ctx context.Context, actor models.Actor, name, description string) (models.TeamView, error) {
	const op = "service.team.CreateTeam"

	log := s.log.With(
		slog.String("op", op),
		slog.String("user_id", actor.UserID),
	)

	log.Info("attempting to create team")

	name, err := validateTeamName(name)
	if err != nil {
		log.Warn("invalid team name", sl.Err(err))
		return models.TeamView{}, fmt.Errorf("%s: %w", op, err)
	}

	description, err = validateDescription(description)
	if err != nil {
		log.Warn("invalid team description", sl.Err(err))
		return models.TeamView{}, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.quota.check(ctx, actor.UserID, capacity.ActionCreate); err != nil {
		return models.TeamView{}, fmt.Errorf("%s: %w", op, err)
	}

	now := s.now()
	team := models.Team{
		TeamID:      s.newID(),
		Name:        name,
		Description: description,
		CreatedBy:   actor.UserID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.teams.CreateTeam(ctx, team); err != nil {
		log.Error("failed to create team", sl.Err(err))
		return models.TeamView{}, fmt.Errorf("%s: %w", op, err)
	}

	admin := models.Membership{
		TeamID:    team.TeamID,
		UserID:    actor.UserID,
		Role:      models.RoleAdmin,
		Status:    models.StatusMember,
		InvitedBy: actor.UserID,
		InvitedAt: now,
		JoinedAt:  sql.NullTime{Time: now, Valid: true},
	}

	if err := s.members.AddMembership(ctx, admin); err != nil {
		log.Error("failed to add creator as admin", sl.Err(err))
		// A team without its admin row must not stay visible.
		if _, delErr := s.teams.SoftDeleteTeam(ctx, team.TeamID, now); delErr != nil {
			log.Error("failed to discard team without admin", sl.Err(delErr))
		}
		return models.TeamView{}, fmt.Errorf("%s: %w", op, err)
	}

	users, err := lookupUsers(ctx, s.users, actor.UserID)
	if err != nil {
		log.Warn("failed to resolve creator name", sl.Err(err))
	}

	s.metrics.TeamEvent("created")
	log.Info("team created successfully", slog.String("team_id", team.TeamID))

	return models.TeamView{
		TeamID:      team.TeamID,
		Name:        team.Name,
		Description: team.Description,
		Role:        models.RoleAdmin,
		Status:      models.StatusMember,
		MemberCount: 1,
		CreatedAt:   team.CreatedAt,
		CreatedBy:   team.CreatedBy,
		Admins:      []models.AdminInfo{{UserID: actor.UserID, Name: displayName(users, actor.UserID)}},
	}, nil
}

// GetTeams lists the actor's active teams and the invitations waiting for them.
func (s *TeamService) GetTeams(ctx context.Context, actor models.Actor) (models.TeamsList, error) {
	const op = "service.team.GetTeams"

	log := s.log.With(
		slog.String("op", op),
		slog.String("user_id", actor.UserID),
	)

	rows, err := s.members.ListUserMemberships(ctx, actor.UserID)
	if err != nil {
		log.Error("failed to list memberships", sl.Err(err))
		return models.TeamsList{}, fmt.Errorf("%s: %w", op, err)
	}

	teamIDs := make([]string, 0, len(rows))
	inviterIDs := make([]string, 0, len(rows))
	for _, m := range rows {
		teamIDs = append(teamIDs, m.TeamID)
		if !m.IsActive() {
			inviterIDs = append(inviterIDs, m.InvitedBy)
		}
	}

	teams, err := s.teams.GetTeams(ctx, uniqueIDs(teamIDs))
	if err != nil {
		log.Error("failed to load teams", sl.Err(err))
		return models.TeamsList{}, fmt.Errorf("%s: %w", op, err)
	}

	inviters, err := lookupUsers(ctx, s.users, inviterIDs...)
	if err != nil {
		log.Error("failed to load inviters", sl.Err(err))
		return models.TeamsList{}, fmt.Errorf("%s: %w", op, err)
	}

	list := models.TeamsList{
		Teams:              []models.TeamView{},
		PendingInvitations: []models.TeamInvitation{},
	}

	for _, m := range rows {
		team, ok := teams[m.TeamID]
		if !ok {
			continue
		}

		if !m.IsActive() {
			list.PendingInvitations = append(list.PendingInvitations, models.TeamInvitation{
				TeamID:        team.TeamID,
				TeamName:      team.Name,
				InvitedByName: displayName(inviters, m.InvitedBy),
				InvitedAt:     m.InvitedAt,
			})
			continue
		}

		count, err := s.members.CountTeamMembers(ctx, m.TeamID)
		if err != nil {
			log.Error("failed to count members", sl.Err(err), slog.String("team_id", m.TeamID))
			return models.TeamsList{}, fmt.Errorf("%s: %w", op, err)
		}

		list.Teams = append(list.Teams, models.TeamView{
			TeamID:      team.TeamID,
			Name:        team.Name,
			Description: team.Description,
			Role:        m.Role,
			Status:      m.Status,
			MemberCount: count,
			CreatedAt:   team.CreatedAt,
			CreatedBy:   team.CreatedBy,
		})
	}

	log.Info("teams retrieved",
		slog.Int("teams", len(list.Teams)),
		slog.Int("pending", len(list.PendingInvitations)))

	return list, nil
}

func (s *TeamService) GetTeam(ctx context.Context, teamID string, actor models.Actor) (models.TeamView, error) {
	const op = "service.team.GetTeam"

	log := s.log.With(
		slog.String("op", op),
		slog.String("team_id", teamID),
		slog.String("user_id", actor.UserID),
	)

	m, err := requireMember(ctx, s.members, teamID, actor.UserID)
	if err != nil {
		log.Warn("access denied", sl.Err(err))
		return models.TeamView{}, fmt.Errorf("%s: %w", op, err)
	}

	team, err := s.teams.GetTeam(ctx, teamID)
	if err != nil {
		log.Warn("failed to get team", sl.Err(err))
		return models.TeamView{}, fmt.Errorf("%s: %w", op, err)
	}

	view, err := s.teamView(ctx, team, m)
	if err != nil {
		log.Error("failed to build team view", sl.Err(err))
		return models.TeamView{}, fmt.Errorf("%s: %w", op, err)
	}

	return view, nil
}

func (s *TeamService) teamView(ctx context.Context, team models.Team, caller models.Membership) (models.TeamView, error) {
	active, err := s.members.ListTeamMemberships(ctx, team.TeamID, models.StatusMember)
	if err != nil {
		return models.TeamView{}, err
	}

	adminIDs := make([]string, 0, 1)
	for _, m := range active {
		if m.Role == models.RoleAdmin {
			adminIDs = append(adminIDs, m.UserID)
		}
	}

	users, err := lookupUsers(ctx, s.users, adminIDs...)
	if err != nil {
		return models.TeamView{}, err
	}

	admins := make([]models.AdminInfo, 0, len(adminIDs))
	for _, id := range adminIDs {
		admins = append(admins, models.AdminInfo{UserID: id, Name: displayName(users, id)})
	}

	return models.TeamView{
		TeamID:      team.TeamID,
		Name:        team.Name,
		Description: team.Description,
		Role:        caller.Role,
		Status:      caller.Status,
		MemberCount: len(active),
		CreatedAt:   team.CreatedAt,
		CreatedBy:   team.CreatedBy,
		Admins:      admins,
	}, nil
}

func (s *TeamService) UpdateTeam(ctx context.Context, teamID string, actor models.Actor, patch models.TeamPatch) (models.TeamView, error) {
	const op = "service.team.UpdateTeam"

	log := s.log.With(
		slog.String("op", op),
		slog.String("team_id", teamID),
		slog.String("user_id", actor.UserID),
	)

	log.Info("attempting to update team")

	if patch.Empty() {
		return models.TeamView{}, fmt.Errorf("%s: %w", op, apperrors.ErrInvalidInput)
	}
	if patch.Name != nil {
		name, err := validateTeamName(*patch.Name)
		if err != nil {
			return models.TeamView{}, fmt.Errorf("%s: %w", op, err)
		}
		patch.Name = &name
	}
	if patch.Description != nil {
		description, err := validateDescription(*patch.Description)
		if err != nil {
			return models.TeamView{}, fmt.Errorf("%s: %w", op, err)
		}
		patch.Description = &description
	}

	m, err := requireAdmin(ctx, s.members, teamID, actor.UserID)
	if err != nil {
		log.Warn("access denied", sl.Err(err))
		return models.TeamView{}, fmt.Errorf("%s: %w", op, err)
	}

	team, err := s.teams.UpdateTeam(ctx, teamID, patch, s.now())
	if err != nil {
		log.Warn("failed to update team", sl.Err(err))
		return models.TeamView{}, fmt.Errorf("%s: %w", op, err)
	}

	view, err := s.teamView(ctx, team, m)
	if err != nil {
		log.Error("failed to build team view", sl.Err(err))
		return models.TeamView{}, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("team updated successfully")

	return view, nil
}

// DeleteTeam soft-deletes the team and drops every membership row.
func (s *TeamService) DeleteTeam(ctx context.Context, teamID string, actor models.Actor) (models.DeleteTeamResult, error) {
	const op = "service.team.DeleteTeam"

	log := s.log.With(
		slog.String("op", op),
		slog.String("team_id", teamID),
		slog.String("user_id", actor.UserID),
	)

	log.Info("attempting to delete team")

	if _, err := requireAdmin(ctx, s.members, teamID, actor.UserID); err != nil {
		log.Warn("access denied", sl.Err(err))
		return models.DeleteTeamResult{}, fmt.Errorf("%s: %w", op, err)
	}

	now := s.now()
	removed, err := s.teams.SoftDeleteTeam(ctx, teamID, now)
	if err != nil {
		log.Error("failed to delete team", sl.Err(err))
		return models.DeleteTeamResult{}, fmt.Errorf("%s: %w", op, err)
	}

	s.metrics.TeamEvent("deleted")
	log.Info("team deleted successfully", slog.Int("removed_members", removed))

	return models.DeleteTeamResult{
		Message:          "Team deleted successfully",
		DeletedAt:        now,
		RecoveryDeadline: now.Add(RecoveryWindow),
		RemovedMembers:   removed,
	}, nil
}

func (s *TeamService) LeaveTeam(ctx context.Context, teamID string, actor models.Actor) (models.LeaveTeamResult, error) {
	const op = "service.team.LeaveTeam"

	log := s.log.With(
		slog.String("op", op),
		slog.String("team_id", teamID),
		slog.String("user_id", actor.UserID),
	)

	log.Info("attempting to leave team")

	m, err := requireMember(ctx, s.members, teamID, actor.UserID)
	if err != nil {
		log.Warn("access denied", sl.Err(err))
		return models.LeaveTeamResult{}, fmt.Errorf("%s: %w", op, err)
	}

	team, err := s.teams.GetTeam(ctx, teamID)
	if err != nil {
		log.Warn("failed to get team", sl.Err(err))
		return models.LeaveTeamResult{}, fmt.Errorf("%s: %w", op, err)
	}

	var promoted string
	if m.Role == models.RoleAdmin {
		promoted, err = s.handOverAdmin(ctx, log, teamID, actor.UserID)
		if err != nil {
			return models.LeaveTeamResult{}, fmt.Errorf("%s: %w", op, err)
		}
	}

	if err := s.members.DeleteMembership(ctx, teamID, actor.UserID); err != nil {
		log.Error("failed to remove membership", sl.Err(err))
		return models.LeaveTeamResult{}, fmt.Errorf("%s: %w", op, err)
	}

	s.metrics.TeamEvent("left")
	log.Info("left team successfully")

	return models.LeaveTeamResult{
		Message:    "Successfully left the team",
		TeamName:   team.Name,
		LeftAt:     s.now(),
		PromotedTo: promoted,
	}, nil
}

// handOverAdmin applies the last admin policy before an admin leaves and
// returns the id of a promoted member, if any.
func (s *TeamService) handOverAdmin(ctx context.Context, log *slog.Logger, teamID, leaving string) (string, error) {
	admins, err := s.members.CountTeamAdmins(ctx, teamID)
	if err != nil {
		log.Error("failed to count admins", sl.Err(err))
		return "", err
	}
	if admins > 1 {
		return "", nil
	}

	active, err := s.members.ListTeamMemberships(ctx, teamID, models.StatusMember)
	if err != nil {
		log.Error("failed to list members", sl.Err(err))
		return "", err
	}

	var successor string
	for _, m := range active {
		if m.UserID != leaving {
			successor = m.UserID
			break
		}
	}

	if successor == "" {
		log.Warn("sole admin is the last member")
		return "", apperrors.ErrLastAdmin
	}

	switch s.lastAdmin {
	case LastAdminReject:
		log.Warn("sole admin cannot leave")
		return "", apperrors.ErrLastAdmin
	case LastAdminPromote:
		if err := s.members.UpdateRole(ctx, teamID, successor, models.RoleAdmin); err != nil {
			log.Error("failed to promote successor", sl.Err(err))
			return "", err
		}
		log.Info("promoted successor to admin", slog.String("successor", successor))
		return successor, nil
	default:
		log.Warn("sole admin leaving, team will have no admin")
		return "", nil
	}
}

func (s *TeamService) RemoveMember(ctx context.Context, teamID string, actor models.Actor, targetUserID string) (models.RemoveMemberResult, error) {
	const op = "service.team.RemoveMember"

	log := s.log.With(
		slog.String("op", op),
		slog.String("team_id", teamID),
		slog.String("user_id", actor.UserID),
		slog.String("target_user_id", targetUserID),
	)

	log.Info("attempting to remove member")

	if _, err := requireAdmin(ctx, s.members, teamID, actor.UserID); err != nil {
		log.Warn("access denied", sl.Err(err))
		return models.RemoveMemberResult{}, fmt.Errorf("%s: %w", op, err)
	}

	if targetUserID == actor.UserID {
		return models.RemoveMemberResult{}, fmt.Errorf("%s: %w", op, apperrors.ErrCannotRemoveSelf)
	}

	target, err := s.members.GetMembership(ctx, teamID, targetUserID)
	if err != nil {
		log.Warn("target membership not found", sl.Err(err))
		return models.RemoveMemberResult{}, fmt.Errorf("%s: %w", op, err)
	}

	if target.Role == models.RoleAdmin {
		return models.RemoveMemberResult{}, fmt.Errorf("%s: %w", op, apperrors.ErrCannotRemoveAdmin)
	}

	if err := s.members.DeleteMembership(ctx, teamID, targetUserID); err != nil {
		log.Error("failed to remove member", sl.Err(err))
		return models.RemoveMemberResult{}, fmt.Errorf("%s: %w", op, err)
	}

	users, err := lookupUsers(ctx, s.users, targetUserID)
	if err != nil {
		log.Warn("failed to resolve member name", sl.Err(err))
	}

	s.metrics.TeamEvent("member_removed")
	log.Info("member removed successfully")

	return models.RemoveMemberResult{
		Message:     "Member removed successfully",
		RemovedUser: models.AdminInfo{UserID: targetUserID, Name: displayName(users, targetUserID)},
		RemovedAt:   s.now(),
	}, nil
}

func (s *TeamService) GetTeamMembers(ctx context.Context, teamID string, actor models.Actor) (models.TeamMembers, error) {
	const op = "service.team.GetTeamMembers"

	log := s.log.With(
		slog.String("op", op),
		slog.String("team_id", teamID),
		slog.String("user_id", actor.UserID),
	)

	active, users, err := s.activeMembers(ctx, teamID, actor)
	if err != nil {
		log.Warn("failed to list members", sl.Err(err))
		return models.TeamMembers{}, fmt.Errorf("%s: %w", op, err)
	}

	members := make([]models.MemberView, 0, len(active))
	for _, m := range active {
		view := models.MemberView{
			UserID:      m.UserID,
			Name:        displayName(users, m.UserID),
			Email:       users[m.UserID].Email,
			Role:        m.Role,
			Status:      m.Status,
			DataSharing: models.DefaultDataSharing(),
		}
		if m.JoinedAt.Valid {
			joined := m.JoinedAt.Time
			view.JoinedAt = &joined
		}
		members = append(members, view)
	}

	return models.TeamMembers{
		TeamID:       teamID,
		Members:      members,
		TotalMembers: len(members),
	}, nil
}

// activeMembers checks that actor belongs to a live team and returns its
// active memberships with their directory entries.
func (s *TeamService) activeMembers(ctx context.Context, teamID string, actor models.Actor) ([]models.Membership, map[string]models.User, error) {
	if _, err := requireMember(ctx, s.members, teamID, actor.UserID); err != nil {
		return nil, nil, err
	}

	if _, err := s.teams.GetTeam(ctx, teamID); err != nil {
		return nil, nil, err
	}

	active, err := s.members.ListTeamMemberships(ctx, teamID, models.StatusMember)
	if err != nil {
		return nil, nil, err
	}

	ids := make([]string, 0, len(active))
	for _, m := range active {
		ids = append(ids, m.UserID)
	}

	users, err := lookupUsers(ctx, s.users, ids...)
	if err != nil {
		return nil, nil, err
	}

	return active, users, nil
}

func notShared() models.SharedDataCategory {
	return models.SharedDataCategory{Shared: false, Message: "Not shared"}
}

func sharedData(m models.Membership, u models.User, name string) models.MemberSharedData {
	return models.MemberSharedData{
		UserID: m.UserID,
		Name:   name,
		Role:   m.Role,
		Profile: models.SharedDataCategory{
			Shared: true,
			Data: map[string]any{
				"name":  name,
				"email": u.Email,
			},
		},
		Activity:    notShared(),
		Sleep:       notShared(),
		TestResults: notShared(),
	}
}

// GetSharedData returns what every active member shares with the team. Only
// the profile is shared until per-member privacy settings exist.
func (s *TeamService) GetSharedData(ctx context.Context, teamID string, actor models.Actor) (models.TeamSharedData, error) {
	const op = "service.team.GetSharedData"

	log := s.log.With(
		slog.String("op", op),
		slog.String("team_id", teamID),
		slog.String("user_id", actor.UserID),
	)

	active, users, err := s.activeMembers(ctx, teamID, actor)
	if err != nil {
		log.Warn("failed to list members", sl.Err(err))
		return models.TeamSharedData{}, fmt.Errorf("%s: %w", op, err)
	}

	data := make([]models.MemberSharedData, 0, len(active))
	for _, m := range active {
		data = append(data, sharedData(m, users[m.UserID], displayName(users, m.UserID)))
	}

	return models.TeamSharedData{TeamID: teamID, SharedData: data}, nil
}

func (s *TeamService) GetMemberData(ctx context.Context, teamID string, actor models.Actor, targetUserID string) (models.MemberSharedData, error) {
	const op = "service.team.GetMemberData"

	log := s.log.With(
		slog.String("op", op),
		slog.String("team_id", teamID),
		slog.String("user_id", actor.UserID),
		slog.String("target_user_id", targetUserID),
	)

	if _, err := requireMember(ctx, s.members, teamID, actor.UserID); err != nil {
		log.Warn("access denied", sl.Err(err))
		return models.MemberSharedData{}, fmt.Errorf("%s: %w", op, err)
	}

	target, err := s.members.GetMembership(ctx, teamID, targetUserID)
	if err == nil && !target.IsActive() {
		err = apperrors.ErrMembershipNotFound
	}
	if err != nil {
		log.Warn("target is not a member", sl.Err(err))
		return models.MemberSharedData{}, fmt.Errorf("%s: %w", op, err)
	}

	user, err := s.users.GetUser(ctx, targetUserID)
	if err != nil && !errors.Is(err, apperrors.ErrUserNotFound) {
		log.Error("failed to load member", sl.Err(err))
		return models.MemberSharedData{}, fmt.Errorf("%s: %w", op, err)
	}

	name := user.DisplayName
	if name == "" {
		name = unknownName
	}

	return sharedData(target, user, name), nil
}
