package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"github.com/jmoiron/sqlx"
	"teams-service/internal/apperrors"
	"teams-service/internal/domain/models"
	"time"
)

const membershipColumns = `team_id, user_id, role, status, invited_by, invited_at, joined_at`

type MembershipRepo struct {
	storage *sqlx.DB
}

func NewMembershipRepo(storage *sqlx.DB) *MembershipRepo {
	return &MembershipRepo{storage: storage}
}

// AddMembership inserts m if the team is live. A row for the same
// (team, user) pair yields ErrMembershipExists.
func (r *MembershipRepo) AddMembership(ctx context.Context, m models.Membership) error {
	const op = "repo.membership.AddMembership"

	tx, err := r.storage.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer tx.Rollback()

	if err := ensureTeamLive(ctx, tx, m.TeamID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	query := tx.Rebind(`
		INSERT INTO team_members (team_id, user_id, role, status, invited_by, invited_at, joined_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)

	_, err = tx.ExecContext(ctx, query,
		m.TeamID, m.UserID, m.Role, m.Status, m.InvitedBy, m.InvitedAt, m.JoinedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%s: %w", op, apperrors.ErrMembershipExists)
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: failed to commit transaction: %w", op, err)
	}

	return nil
}

func (r *MembershipRepo) GetMembership(ctx context.Context, teamID, userID string) (models.Membership, error) {
	const op = "repo.membership.GetMembership"

	query := r.storage.Rebind(`SELECT ` + membershipColumns + ` FROM team_members WHERE team_id = ? AND user_id = ?`)

	var m models.Membership
	err := r.storage.GetContext(ctx, &m, query, teamID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Membership{}, fmt.Errorf("%s: %w", op, apperrors.ErrMembershipNotFound)
	}
	if err != nil {
		return models.Membership{}, fmt.Errorf("%s: %w", op, err)
	}

	return m, nil
}

// ListTeamMemberships returns the team's rows with the given status, oldest
// joiners first.
func (r *MembershipRepo) ListTeamMemberships(ctx context.Context, teamID string, status models.MemberStatus) ([]models.Membership, error) {
	const op = "repo.membership.ListTeamMemberships"

	query := r.storage.Rebind(`
		SELECT ` + membershipColumns + ` FROM team_members
		WHERE team_id = ? AND status = ?
		ORDER BY joined_at, invited_at, user_id`)

	memberships := []models.Membership{}
	if err := r.storage.SelectContext(ctx, &memberships, query, teamID, status); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return memberships, nil
}

// ListUserMemberships returns every row of the user on live teams.
func (r *MembershipRepo) ListUserMemberships(ctx context.Context, userID string) ([]models.Membership, error) {
	const op = "repo.membership.ListUserMemberships"

	query := r.storage.Rebind(`
		SELECT tm.team_id, tm.user_id, tm.role, tm.status, tm.invited_by, tm.invited_at, tm.joined_at
		FROM team_members tm
		JOIN teams t ON t.team_id = tm.team_id
		WHERE tm.user_id = ? AND t.is_deleted = ?
		ORDER BY tm.invited_at, tm.team_id`)

	memberships := []models.Membership{}
	if err := r.storage.SelectContext(ctx, &memberships, query, userID, false); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return memberships, nil
}

// CountUserTeams counts live teams where the user has status member.
func (r *MembershipRepo) CountUserTeams(ctx context.Context, userID string) (int, error) {
	const op = "repo.membership.CountUserTeams"

	query := r.storage.Rebind(`
		SELECT COUNT(*) FROM team_members tm
		JOIN teams t ON t.team_id = tm.team_id
		WHERE tm.user_id = ? AND tm.status = ? AND t.is_deleted = ?`)

	var count int
	if err := r.storage.GetContext(ctx, &count, query, userID, models.StatusMember, false); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return count, nil
}

func (r *MembershipRepo) CountTeamMembers(ctx context.Context, teamID string) (int, error) {
	const op = "repo.membership.CountTeamMembers"

	query := r.storage.Rebind(`SELECT COUNT(*) FROM team_members WHERE team_id = ? AND status = ?`)

	var count int
	if err := r.storage.GetContext(ctx, &count, query, teamID, models.StatusMember); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return count, nil
}

func (r *MembershipRepo) CountTeamAdmins(ctx context.Context, teamID string) (int, error) {
	const op = "repo.membership.CountTeamAdmins"

	query := r.storage.Rebind(`SELECT COUNT(*) FROM team_members WHERE team_id = ? AND status = ? AND role = ?`)

	var count int
	if err := r.storage.GetContext(ctx, &count, query, teamID, models.StatusMember, models.RoleAdmin); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return count, nil
}

// ActivateMembership moves a pending row to member and stamps joined_at.
// Nothing changes unless the row is still pending and the team is live, so a
// repeated accept never re-stamps joined_at.
func (r *MembershipRepo) ActivateMembership(ctx context.Context, teamID, userID string, joinedAt time.Time) error {
	const op = "repo.membership.ActivateMembership"

	query := r.storage.Rebind(`
		UPDATE team_members SET status = ?, joined_at = ?
		WHERE team_id = ? AND user_id = ? AND status = ?
		AND EXISTS (SELECT 1 FROM teams t WHERE t.team_id = team_members.team_id AND t.is_deleted = ?)`)

	res, err := r.storage.ExecContext(ctx, query,
		models.StatusMember, joinedAt, teamID, userID, models.StatusPending, false,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	n, err := rowsAffected(res)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, apperrors.ErrNoPendingInvite)
	}

	return nil
}

// UpdateRole changes the role of an active member of a live team.
func (r *MembershipRepo) UpdateRole(ctx context.Context, teamID, userID string, role models.Role) error {
	const op = "repo.membership.UpdateRole"

	query := r.storage.Rebind(`
		UPDATE team_members SET role = ?
		WHERE team_id = ? AND user_id = ? AND status = ?
		AND EXISTS (SELECT 1 FROM teams t WHERE t.team_id = team_members.team_id AND t.is_deleted = ?)`)

	res, err := r.storage.ExecContext(ctx, query, role, teamID, userID, models.StatusMember, false)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	n, err := rowsAffected(res)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, apperrors.ErrMembershipNotFound)
	}

	return nil
}

func (r *MembershipRepo) DeleteMembership(ctx context.Context, teamID, userID string) error {
	const op = "repo.membership.DeleteMembership"

	res, err := r.storage.ExecContext(ctx,
		r.storage.Rebind(`DELETE FROM team_members WHERE team_id = ? AND user_id = ?`),
		teamID, userID,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	n, err := rowsAffected(res)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, apperrors.ErrMembershipNotFound)
	}

	return nil
}

// DeletePendingMembership removes the row only while it is still pending.
func (r *MembershipRepo) DeletePendingMembership(ctx context.Context, teamID, userID string) error {
	const op = "repo.membership.DeletePendingMembership"

	res, err := r.storage.ExecContext(ctx,
		r.storage.Rebind(`DELETE FROM team_members WHERE team_id = ? AND user_id = ? AND status = ?`),
		teamID, userID, models.StatusPending,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	n, err := rowsAffected(res)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, apperrors.ErrNoPendingInvite)
	}

	return nil
}
