package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"teams-service/internal/apperrors"
	"teams-service/internal/domain/models"
	"teams-service/internal/lib/capacity"
	"teams-service/internal/lib/logger/sl"
	"time"
)

const unknownName = "Unknown"

// Recorder receives domain events for metrics. NopRecorder is used when no
// metrics backend is configured.
type Recorder interface {
	TeamEvent(event string)
	InvitationSent(channel string)
	InvitationAccepted()
	InvitationsConverted(n int)
	NotificationFailed()
	CapacityDenied(resource string)
}

type NopRecorder struct{}

func (NopRecorder) TeamEvent(string)         {}
func (NopRecorder) InvitationSent(string)    {}
func (NopRecorder) InvitationAccepted()      {}
func (NopRecorder) InvitationsConverted(int) {}
func (NopRecorder) NotificationFailed()      {}
func (NopRecorder) CapacityDenied(string)    {}

// requireMember returns the caller's membership if it is active.
func requireMember(ctx context.Context, members MembershipProvider, teamID, userID string) (models.Membership, error) {
	m, err := members.GetMembership(ctx, teamID, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrMembershipNotFound) {
			return models.Membership{}, apperrors.ErrNotTeamMember
		}
		return models.Membership{}, err
	}

	if !m.IsActive() {
		return models.Membership{}, apperrors.ErrNotTeamMember
	}

	return m, nil
}

// requireAdmin returns the caller's membership if it is an active admin.
func requireAdmin(ctx context.Context, members MembershipProvider, teamID, userID string) (models.Membership, error) {
	m, err := members.GetMembership(ctx, teamID, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrMembershipNotFound) {
			return models.Membership{}, apperrors.ErrNotTeamAdmin
		}
		return models.Membership{}, err
	}

	if !m.IsActiveAdmin() {
		return models.Membership{}, apperrors.ErrNotTeamAdmin
	}

	return m, nil
}

// teamQuota checks whether userID may hold one more team.
type teamQuota struct {
	log     *slog.Logger
	policy  capacity.Policy
	members MembershipProvider
	users   UserProvider
	metrics Recorder
}

func (q teamQuota) check(ctx context.Context, userID string, action capacity.Action) error {
	const op = "service.quota.check"

	log := q.log.With(
		slog.String("op", op),
		slog.String("user_id", userID),
		slog.String("action", string(action)),
	)

	tier := capacity.TierFree
	user, err := q.users.GetUser(ctx, userID)
	switch {
	case err == nil:
		tier = capacity.ParseTier(user.Tier)
	case errors.Is(err, apperrors.ErrUserNotFound):
		log.Warn("user not in directory, applying free tier")
	default:
		log.Error("failed to load user", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	current, err := q.members.CountUserTeams(ctx, userID)
	if err != nil {
		log.Error("failed to count user teams", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := q.policy.Enforce(capacity.ResourceTeams, tier, action, current); err != nil {
		log.Info("team limit reached",
			slog.String("tier", string(tier)),
			slog.Int("current", current))
		q.metrics.CapacityDenied(string(capacity.ResourceTeams))
		return err
	}

	return nil
}

func lookupUsers(ctx context.Context, users UserProvider, ids ...string) (map[string]models.User, error) {
	return users.GetUsers(ctx, uniqueIDs(ids))
}

func displayName(users map[string]models.User, userID string) string {
	if u, ok := users[userID]; ok && u.DisplayName != "" {
		return u.DisplayName
	}
	return unknownName
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok || id == "" {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func daysSince(now, t time.Time) int {
	d := int(now.Sub(t) / (24 * time.Hour))
	if d < 0 {
		return 0
	}
	return d
}

func timeOrNow(now func() time.Time) func() time.Time {
	if now == nil {
		return func() time.Time { return time.Now().UTC() }
	}
	return func() time.Time { return now().UTC() }
}

func recorderOrNop(r Recorder) Recorder {
	if r == nil {
		return NopRecorder{}
	}
	return r
}

func policyOrDefault(p *capacity.Policy) capacity.Policy {
	if p == nil {
		return capacity.DefaultPolicy()
	}
	return *p
}
