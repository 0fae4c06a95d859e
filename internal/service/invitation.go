package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"teams-service/internal/apperrors"
	"teams-service/internal/domain/models"
	"teams-service/internal/lib/capacity"
	"teams-service/internal/lib/invitetoken"
	"teams-service/internal/lib/logger/sl"
	"time"
)

const defaultTokenTTLDays = 30

type EmailInvitationProvider interface {
	AddEmailInvitation(ctx context.Context, inv models.EmailInvitation) error
	GetEmailInvitation(ctx context.Context, teamID, email string) (models.EmailInvitation, error)
	ListEmailInvitationsByEmail(ctx context.Context, email string) ([]models.EmailInvitation, error)
	ListEmailInvitationsByTeam(ctx context.Context, teamID string) ([]models.EmailInvitation, error)
	DeleteEmailInvitation(ctx context.Context, teamID, email string) error
}

type TokenCodec interface {
	Encode(teamID, email string, ttlDays int) (string, error)
	Decode(token string) (invitetoken.Claims, error)
}

// Notifier delivers invitation emails. Delivery is best effort.
type Notifier interface {
	SendInvitationEmail(ctx context.Context, msg models.InvitationEmail) error
}

type InvitationConfig struct {
	Capacity    *capacity.Policy
	LinkBaseURL string
	TTLDays     int
	Metrics     Recorder
	Now         func() time.Time
}

// InvitationService drives an invitee through NONE -> PENDING -> MEMBER for
// both registered accounts and bare email addresses.
type InvitationService struct {
	log         *slog.Logger
	teams       TeamProvider
	members     MembershipProvider
	invitations EmailInvitationProvider
	users       UserProvider
	codec       TokenCodec
	notifier    Notifier
	quota       teamQuota
	linkBaseURL string
	ttlDays     int
	metrics     Recorder
	now         func() time.Time
}

func NewInvitationService(
	log *slog.Logger,
	teams TeamProvider,
	members MembershipProvider,
	invitations EmailInvitationProvider,
	users UserProvider,
	codec TokenCodec,
	notifier Notifier,
	cfg InvitationConfig) *InvitationService {
	metrics := recorderOrNop(cfg.Metrics)

	ttl := cfg.TTLDays
	if ttl <= 0 {
		ttl = defaultTokenTTLDays
	}

	return &InvitationService{
		log:         log,
		teams:       teams,
		members:     members,
		invitations: invitations,
		users:       users,
		codec:       codec,
		notifier:    notifier,
		quota: teamQuota{
			log:     log,
			policy:  policyOrDefault(cfg.Capacity),
			members: members,
			users:   users,
			metrics: metrics,
		},
		linkBaseURL: cfg.LinkBaseURL,
		ttlDays:     ttl,
		metrics:     metrics,
		now:         timeOrNow(cfg.Now),
	}
}

// NormalizeEmail lower-cases and validates a bare address.
func NormalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return "", apperrors.ErrInvalidEmail
	}

	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", apperrors.ErrInvalidEmail
	}

	return email, nil
}

// resolveInvitee maps an address to a registered account when one exists.
func (s *InvitationService) resolveInvitee(ctx context.Context, email string) (models.Invitee, error) {
	user, err := s.users.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		return models.ForAccount(user.UserID, email), nil
	case errors.Is(err, apperrors.ErrUserNotFound):
		return models.ForEmail(email), nil
	default:
		return models.Invitee{}, err
	}
}

// discardStale deletes an expired email invitation row, ignoring a
// concurrent delete.
func (s *InvitationService) discardStale(ctx context.Context, inv models.EmailInvitation) error {
	err := s.invitations.DeleteEmailInvitation(ctx, inv.TeamID, inv.Email)
	if err != nil && !errors.Is(err, apperrors.ErrInvitationNotFound) {
		return err
	}
	return nil
}

// checkNotInvited fails when a live row already exists for the pair.
func (s *InvitationService) checkNotInvited(ctx context.Context, teamID string, invitee models.Invitee) error {
	if invitee.IsAccount() {
		m, err := s.members.GetMembership(ctx, teamID, invitee.UserID())
		switch {
		case errors.Is(err, apperrors.ErrMembershipNotFound):
			return nil
		case err != nil:
			return err
		case m.IsActive():
			return apperrors.ErrAlreadyMember
		default:
			return apperrors.ErrInvitationExists
		}
	}

	existing, err := s.invitations.GetEmailInvitation(ctx, teamID, invitee.Email())
	switch {
	case errors.Is(err, apperrors.ErrInvitationNotFound):
		return nil
	case err != nil:
		return err
	case existing.Expired(s.now()):
		return s.discardStale(ctx, existing)
	default:
		return apperrors.ErrInvitationExists
	}
}

func (s *InvitationService) store(ctx context.Context, inv models.Invitation) error {
	if inv.Invitee.IsAccount() {
		err := s.members.AddMembership(ctx, inv.Membership())
		if errors.Is(err, apperrors.ErrMembershipExists) {
			return apperrors.ErrInvitationExists
		}
		return err
	}
	return s.invitations.AddEmailInvitation(ctx, inv.EmailInvitation())
}

// InviteMember invites email to the team. The actor must be an admin.
func (s *InvitationService) InviteMember(ctx context.Context, teamID string, actor models.Actor, rawEmail string) (models.InviteResult, error) {
	const op = "service.invitation.InviteMember"

	log := s.log.With(
		slog.String("op", op),
		slog.String("team_id", teamID),
		slog.String("user_id", actor.UserID),
	)

	log.Info("attempting to invite member")

	email, err := NormalizeEmail(rawEmail)
	if err != nil {
		log.Warn("invalid email")
		return models.InviteResult{}, fmt.Errorf("%s: %w", op, err)
	}

	if _, err := requireAdmin(ctx, s.members, teamID, actor.UserID); err != nil {
		log.Warn("access denied", sl.Err(err))
		return models.InviteResult{}, fmt.Errorf("%s: %w", op, err)
	}

	team, err := s.teams.GetTeam(ctx, teamID)
	if err != nil {
		log.Warn("failed to get team", sl.Err(err))
		return models.InviteResult{}, fmt.Errorf("%s: %w", op, err)
	}

	invitee, err := s.resolveInvitee(ctx, email)
	if err != nil {
		log.Error("failed to look up invitee", sl.Err(err))
		return models.InviteResult{}, fmt.Errorf("%s: %w", op, err)
	}

	log = log.With(slog.String("channel", invitee.Channel()))

	if err := s.checkNotInvited(ctx, teamID, invitee); err != nil {
		log.Warn("invitee already has a row", sl.Err(err))
		return models.InviteResult{}, fmt.Errorf("%s: %w", op, err)
	}

	token, err := s.codec.Encode(teamID, email, s.ttlDays)
	if err != nil {
		log.Error("failed to mint invitation token", sl.Err(err))
		return models.InviteResult{}, fmt.Errorf("%s: %w", op, err)
	}

	now := s.now()
	inv := models.Invitation{
		TeamID:    teamID,
		Invitee:   invitee,
		InvitedBy: actor.UserID,
		InvitedAt: now,
		ExpiresAt: now.Add(models.EmailInvitationTTL),
	}

	if err := s.store(ctx, inv); err != nil {
		log.Warn("failed to store invitation", sl.Err(err))
		return models.InviteResult{}, fmt.Errorf("%s: %w", op, err)
	}

	s.metrics.InvitationSent(invitee.Channel())

	inviters, err := lookupUsers(ctx, s.users, actor.UserID)
	if err != nil {
		log.Warn("failed to resolve inviter name", sl.Err(err))
	}

	link := s.linkBaseURL + token
	sent := true
	err = s.notifier.SendInvitationEmail(ctx, models.InvitationEmail{
		To:           email,
		InviterName:  displayName(inviters, actor.UserID),
		TeamName:     team.Name,
		Link:         link,
		IsRegistered: invitee.IsAccount(),
	})
	if err != nil {
		sent = false
		s.metrics.NotificationFailed()
		log.Error("failed to send invitation email", sl.Err(err))
	}

	log.Info("member invited successfully", slog.Bool("email_sent", sent))

	return models.InviteResult{
		TeamID:         teamID,
		InvitedEmail:   email,
		IsRegistered:   invitee.IsAccount(),
		Status:         string(models.StatusPending),
		InvitedAt:      now,
		InvitationLink: link,
		EmailSent:      sent,
	}, nil
}

// AcceptInvitation turns the actor's pending row into an active membership.
func (s *InvitationService) AcceptInvitation(ctx context.Context, teamID string, actor models.Actor) (models.AcceptResult, error) {
	const op = "service.invitation.AcceptInvitation"

	log := s.log.With(
		slog.String("op", op),
		slog.String("team_id", teamID),
		slog.String("user_id", actor.UserID),
	)

	log.Info("attempting to accept invitation")

	m, err := s.members.GetMembership(ctx, teamID, actor.UserID)
	if err != nil {
		if errors.Is(err, apperrors.ErrMembershipNotFound) {
			err = apperrors.ErrNoPendingInvite
		}
		log.Warn("no pending invitation", sl.Err(err))
		return models.AcceptResult{}, fmt.Errorf("%s: %w", op, err)
	}
	if m.Status != models.StatusPending {
		log.Warn("invitation already accepted")
		return models.AcceptResult{}, fmt.Errorf("%s: %w", op, apperrors.ErrNoPendingInvite)
	}

	if err := s.quota.check(ctx, actor.UserID, capacity.ActionJoin); err != nil {
		return models.AcceptResult{}, fmt.Errorf("%s: %w", op, err)
	}

	now := s.now()
	if err := s.members.ActivateMembership(ctx, teamID, actor.UserID, now); err != nil {
		log.Warn("failed to activate membership", sl.Err(err))
		return models.AcceptResult{}, fmt.Errorf("%s: %w", op, err)
	}

	s.metrics.InvitationAccepted()

	result := models.AcceptResult{
		TeamID:   teamID,
		Status:   models.StatusMember,
		Role:     m.Role,
		JoinedAt: now,
	}

	team, err := s.teams.GetTeam(ctx, teamID)
	if err != nil {
		log.Warn("team vanished after accept", sl.Err(err))
		return models.AcceptResult{}, fmt.Errorf("%s: %w", op, err)
	}

	count, err := s.members.CountTeamMembers(ctx, teamID)
	if err != nil {
		log.Error("failed to count members", sl.Err(err))
		return models.AcceptResult{}, fmt.Errorf("%s: %w", op, err)
	}

	result.Team = models.AcceptedTeam{
		Name:        team.Name,
		Description: team.Description,
		MemberCount: count,
	}

	log.Info("invitation accepted successfully")

	return result, nil
}

func (s *InvitationService) decode(log *slog.Logger, token string) (invitetoken.Claims, error) {
	claims, err := s.codec.Decode(token)
	if err != nil {
		var tokenErr *invitetoken.Error
		if errors.As(err, &tokenErr) {
			log.Warn("invalid invitation token", slog.String("reason", string(tokenErr.Reason)))
		} else {
			log.Warn("invalid invitation token", sl.Err(err))
		}
		return invitetoken.Claims{}, err
	}
	return claims, nil
}

// AcceptInvitationByToken accepts the invitation carried by token. The token
// must have been issued to the actor's email.
func (s *InvitationService) AcceptInvitationByToken(ctx context.Context, token string, actor models.Actor) (models.AcceptResult, error) {
	const op = "service.invitation.AcceptInvitationByToken"

	log := s.log.With(
		slog.String("op", op),
		slog.String("user_id", actor.UserID),
	)

	claims, err := s.decode(log, token)
	if err != nil {
		return models.AcceptResult{}, fmt.Errorf("%s: %w", op, err)
	}

	email := actor.Email
	user, err := s.users.GetUser(ctx, actor.UserID)
	switch {
	case err == nil:
		email = user.Email
	case !errors.Is(err, apperrors.ErrUserNotFound):
		log.Error("failed to load user", sl.Err(err))
		return models.AcceptResult{}, fmt.Errorf("%s: %w", op, err)
	}

	if !strings.EqualFold(email, claims.Email) {
		log.Warn("invitation addressed to another email")
		return models.AcceptResult{}, fmt.Errorf("%s: %w", op, apperrors.ErrEmailMismatch)
	}

	result, err := s.AcceptInvitation(ctx, claims.TeamID, actor)
	if err != nil {
		return models.AcceptResult{}, fmt.Errorf("%s: %w", op, err)
	}

	return result, nil
}

// GetInvitationFromToken describes the invitation behind a link without
// authentication. Every positive outcome requires a backing row.
func (s *InvitationService) GetInvitationFromToken(ctx context.Context, token string) (models.InvitationDetails, error) {
	const op = "service.invitation.GetInvitationFromToken"

	log := s.log.With(slog.String("op", op))

	claims, err := s.decode(log, token)
	if err != nil {
		return models.InvitationDetails{}, fmt.Errorf("%s: %w", op, err)
	}

	log = log.With(slog.String("team_id", claims.TeamID))

	team, err := s.teams.GetTeam(ctx, claims.TeamID)
	if err != nil {
		log.Warn("failed to get team", sl.Err(err))
		return models.InvitationDetails{}, fmt.Errorf("%s: %w", op, err)
	}

	details := models.InvitationDetails{
		TeamID:          team.TeamID,
		TeamName:        team.Name,
		TeamDescription: team.Description,
		Email:           claims.Email,
	}

	invitee, err := s.resolveInvitee(ctx, claims.Email)
	if err != nil {
		log.Error("failed to look up invitee", sl.Err(err))
		return models.InvitationDetails{}, fmt.Errorf("%s: %w", op, err)
	}

	var invitedBy string
	if invitee.IsAccount() {
		m, err := s.members.GetMembership(ctx, team.TeamID, invitee.UserID())
		if err != nil {
			if errors.Is(err, apperrors.ErrMembershipNotFound) {
				err = apperrors.ErrInvitationNotFound
			}
			return models.InvitationDetails{}, fmt.Errorf("%s: %w", op, err)
		}

		if m.IsActive() {
			details.Status = models.InvitationAlreadyMember
			details.Message = "You are already a member of this team"
			return details, nil
		}

		invitedBy = m.InvitedBy
		details.Status = models.InvitationPending
		details.Message = "You have been invited to join this team"
	} else {
		inv, err := s.invitations.GetEmailInvitation(ctx, team.TeamID, claims.Email)
		if err != nil {
			return models.InvitationDetails{}, fmt.Errorf("%s: %w", op, err)
		}

		if inv.Expired(s.now()) {
			if err := s.discardStale(ctx, inv); err != nil {
				log.Error("failed to discard expired invitation", sl.Err(err))
			}
			return models.InvitationDetails{}, fmt.Errorf("%s: %w", op, apperrors.ErrInvitationNotFound)
		}

		invitedBy = inv.InvitedBy
		details.Status = models.InvitationNeedsSignup
		details.Message = fmt.Sprintf("Sign up with %s to join this team", claims.Email)
	}

	inviters, err := lookupUsers(ctx, s.users, invitedBy)
	if err != nil {
		log.Warn("failed to resolve inviter name", sl.Err(err))
	}
	details.InvitedBy = displayName(inviters, invitedBy)

	return details, nil
}

// ProcessPendingInvitationsOnSignup converts the email invitations of a new
// account into pending memberships and returns how many were converted.
// Rows of deleted teams, expired rows and rows for teams the user already
// has a membership in are discarded.
func (s *InvitationService) ProcessPendingInvitationsOnSignup(ctx context.Context, userID, rawEmail string) (int, error) {
	const op = "service.invitation.ProcessPendingInvitationsOnSignup"

	log := s.log.With(
		slog.String("op", op),
		slog.String("user_id", userID),
	)

	email := strings.ToLower(strings.TrimSpace(rawEmail))

	pending, err := s.invitations.ListEmailInvitationsByEmail(ctx, email)
	if err != nil {
		log.Error("failed to list email invitations", sl.Err(err))
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	now := s.now()
	converted := 0

	for _, inv := range pending {
		keep, err := s.convertable(ctx, inv, userID, now)
		if err != nil {
			log.Error("failed to check invitation", sl.Err(err), slog.String("team_id", inv.TeamID))
			return converted, fmt.Errorf("%s: %w", op, err)
		}

		if keep {
			err = s.members.AddMembership(ctx, models.Membership{
				TeamID:    inv.TeamID,
				UserID:    userID,
				Role:      models.RoleMember,
				Status:    models.StatusPending,
				InvitedBy: inv.InvitedBy,
				InvitedAt: inv.InvitedAt,
			})
			switch {
			case err == nil:
				converted++
			case errors.Is(err, apperrors.ErrMembershipExists), errors.Is(err, apperrors.ErrTeamNotFound):
				log.Info("invitation superseded", slog.String("team_id", inv.TeamID))
			default:
				log.Error("failed to create pending membership", sl.Err(err), slog.String("team_id", inv.TeamID))
				return converted, fmt.Errorf("%s: %w", op, err)
			}
		}

		if err := s.discardStale(ctx, inv); err != nil {
			log.Error("failed to delete email invitation", sl.Err(err), slog.String("team_id", inv.TeamID))
			return converted, fmt.Errorf("%s: %w", op, err)
		}
	}

	s.metrics.InvitationsConverted(converted)
	log.Info("processed pending invitations",
		slog.Int("found", len(pending)),
		slog.Int("converted", converted))

	return converted, nil
}

func (s *InvitationService) convertable(ctx context.Context, inv models.EmailInvitation, userID string, now time.Time) (bool, error) {
	if _, err := s.teams.GetTeam(ctx, inv.TeamID); err != nil {
		if errors.Is(err, apperrors.ErrTeamNotFound) {
			return false, nil
		}
		return false, err
	}

	if inv.Expired(now) {
		return false, nil
	}

	_, err := s.members.GetMembership(ctx, inv.TeamID, userID)
	switch {
	case err == nil:
		return false, nil
	case errors.Is(err, apperrors.ErrMembershipNotFound):
		return true, nil
	default:
		return false, err
	}
}

// CancelInvitation withdraws a pending invitation of either kind.
func (s *InvitationService) CancelInvitation(ctx context.Context, teamID string, actor models.Actor, rawEmail string) error {
	const op = "service.invitation.CancelInvitation"

	log := s.log.With(
		slog.String("op", op),
		slog.String("team_id", teamID),
		slog.String("user_id", actor.UserID),
	)

	email, err := NormalizeEmail(rawEmail)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if _, err := requireAdmin(ctx, s.members, teamID, actor.UserID); err != nil {
		log.Warn("access denied", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	invitee, err := s.resolveInvitee(ctx, email)
	if err != nil {
		log.Error("failed to look up invitee", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	if invitee.IsAccount() {
		err = s.members.DeletePendingMembership(ctx, teamID, invitee.UserID())
		if err == nil {
			log.Info("pending membership cancelled")
			return nil
		}
		if !errors.Is(err, apperrors.ErrNoPendingInvite) {
			log.Error("failed to cancel pending membership", sl.Err(err))
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	if err := s.invitations.DeleteEmailInvitation(ctx, teamID, email); err != nil {
		log.Warn("failed to cancel email invitation", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	log.Info("email invitation cancelled")

	return nil
}

// GetPendingInvitations lists invitations waiting on registered users.
func (s *InvitationService) GetPendingInvitations(ctx context.Context, teamID string, actor models.Actor) (models.PendingInvitations, error) {
	const op = "service.invitation.GetPendingInvitations"

	log := s.log.With(
		slog.String("op", op),
		slog.String("team_id", teamID),
		slog.String("user_id", actor.UserID),
	)

	if _, err := requireAdmin(ctx, s.members, teamID, actor.UserID); err != nil {
		log.Warn("access denied", sl.Err(err))
		return models.PendingInvitations{}, fmt.Errorf("%s: %w", op, err)
	}

	rows, err := s.members.ListTeamMemberships(ctx, teamID, models.StatusPending)
	if err != nil {
		log.Error("failed to list pending memberships", sl.Err(err))
		return models.PendingInvitations{}, fmt.Errorf("%s: %w", op, err)
	}

	ids := make([]string, 0, 2*len(rows))
	for _, m := range rows {
		ids = append(ids, m.UserID, m.InvitedBy)
	}

	users, err := lookupUsers(ctx, s.users, ids...)
	if err != nil {
		log.Error("failed to load users", sl.Err(err))
		return models.PendingInvitations{}, fmt.Errorf("%s: %w", op, err)
	}

	now := s.now()
	views := make([]models.PendingInvitationView, 0, len(rows))
	for _, m := range rows {
		views = append(views, models.PendingInvitationView{
			UserID:      m.UserID,
			Email:       users[m.UserID].Email,
			Name:        displayName(users, m.UserID),
			InvitedBy:   models.AdminInfo{UserID: m.InvitedBy, Name: displayName(users, m.InvitedBy)},
			InvitedAt:   m.InvitedAt,
			DaysPending: daysSince(now, m.InvitedAt),
		})
	}

	return models.PendingInvitations{
		TeamID:             teamID,
		PendingInvitations: views,
		TotalPending:       len(views),
	}, nil
}

// GetEmailInvitations lists live invitations for addresses without an
// account. Expired rows are discarded on the way.
func (s *InvitationService) GetEmailInvitations(ctx context.Context, teamID string, actor models.Actor) (models.EmailInvitations, error) {
	const op = "service.invitation.GetEmailInvitations"

	log := s.log.With(
		slog.String("op", op),
		slog.String("team_id", teamID),
		slog.String("user_id", actor.UserID),
	)

	if _, err := requireAdmin(ctx, s.members, teamID, actor.UserID); err != nil {
		log.Warn("access denied", sl.Err(err))
		return models.EmailInvitations{}, fmt.Errorf("%s: %w", op, err)
	}

	rows, err := s.invitations.ListEmailInvitationsByTeam(ctx, teamID)
	if err != nil {
		log.Error("failed to list email invitations", sl.Err(err))
		return models.EmailInvitations{}, fmt.Errorf("%s: %w", op, err)
	}

	now := s.now()
	live := make([]models.EmailInvitation, 0, len(rows))
	inviterIDs := make([]string, 0, len(rows))
	for _, inv := range rows {
		if inv.Expired(now) {
			if err := s.discardStale(ctx, inv); err != nil {
				log.Error("failed to discard expired invitation", sl.Err(err))
			}
			continue
		}
		live = append(live, inv)
		inviterIDs = append(inviterIDs, inv.InvitedBy)
	}

	inviters, err := lookupUsers(ctx, s.users, inviterIDs...)
	if err != nil {
		log.Error("failed to load inviters", sl.Err(err))
		return models.EmailInvitations{}, fmt.Errorf("%s: %w", op, err)
	}

	views := make([]models.EmailInvitationView, 0, len(live))
	for _, inv := range live {
		views = append(views, models.EmailInvitationView{
			Email:       inv.Email,
			InvitedBy:   models.AdminInfo{UserID: inv.InvitedBy, Name: displayName(inviters, inv.InvitedBy)},
			InvitedAt:   inv.InvitedAt,
			ExpiresAt:   inv.ExpiresAt,
			DaysPending: daysSince(now, inv.InvitedAt),
		})
	}

	return models.EmailInvitations{
		TeamID:      teamID,
		Invitations: views,
		Total:       len(views),
	}, nil
}
