package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"github.com/jmoiron/sqlx"
	"teams-service/internal/apperrors"
	"teams-service/internal/domain/models"
)

const emailInvitationColumns = `team_id, email, invited_by, invited_at, expires_at`

type EmailInvitationRepo struct {
	storage *sqlx.DB
}

func NewEmailInvitationRepo(storage *sqlx.DB) *EmailInvitationRepo {
	return &EmailInvitationRepo{storage: storage}
}

func (r *EmailInvitationRepo) AddEmailInvitation(ctx context.Context, inv models.EmailInvitation) error {
	const op = "repo.emailInvitation.AddEmailInvitation"

	tx, err := r.storage.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer tx.Rollback()

	if err := ensureTeamLive(ctx, tx, inv.TeamID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	query := tx.Rebind(`
		INSERT INTO pending_email_invitations (team_id, email, invited_by, invited_at, expires_at)
		VALUES (?, ?, ?, ?, ?)`)

	_, err = tx.ExecContext(ctx, query, inv.TeamID, inv.Email, inv.InvitedBy, inv.InvitedAt, inv.ExpiresAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%s: %w", op, apperrors.ErrInvitationExists)
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: failed to commit transaction: %w", op, err)
	}

	return nil
}

func (r *EmailInvitationRepo) GetEmailInvitation(ctx context.Context, teamID, email string) (models.EmailInvitation, error) {
	const op = "repo.emailInvitation.GetEmailInvitation"

	query := r.storage.Rebind(`SELECT ` + emailInvitationColumns + ` FROM pending_email_invitations WHERE team_id = ? AND email = ?`)

	var inv models.EmailInvitation
	err := r.storage.GetContext(ctx, &inv, query, teamID, email)
	if errors.Is(err, sql.ErrNoRows) {
		return models.EmailInvitation{}, fmt.Errorf("%s: %w", op, apperrors.ErrInvitationNotFound)
	}
	if err != nil {
		return models.EmailInvitation{}, fmt.Errorf("%s: %w", op, err)
	}

	return inv, nil
}

// ListEmailInvitationsByEmail returns every row for the address, including
// rows of deleted teams and expired rows. Callers discard those.
func (r *EmailInvitationRepo) ListEmailInvitationsByEmail(ctx context.Context, email string) ([]models.EmailInvitation, error) {
	const op = "repo.emailInvitation.ListEmailInvitationsByEmail"

	query := r.storage.Rebind(`SELECT ` + emailInvitationColumns + ` FROM pending_email_invitations
		WHERE email = ? ORDER BY invited_at, team_id`)

	invitations := []models.EmailInvitation{}
	if err := r.storage.SelectContext(ctx, &invitations, query, email); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return invitations, nil
}

func (r *EmailInvitationRepo) ListEmailInvitationsByTeam(ctx context.Context, teamID string) ([]models.EmailInvitation, error) {
	const op = "repo.emailInvitation.ListEmailInvitationsByTeam"

	query := r.storage.Rebind(`SELECT ` + emailInvitationColumns + ` FROM pending_email_invitations
		WHERE team_id = ? ORDER BY invited_at, email`)

	invitations := []models.EmailInvitation{}
	if err := r.storage.SelectContext(ctx, &invitations, query, teamID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return invitations, nil
}

func (r *EmailInvitationRepo) DeleteEmailInvitation(ctx context.Context, teamID, email string) error {
	const op = "repo.emailInvitation.DeleteEmailInvitation"

	res, err := r.storage.ExecContext(ctx,
		r.storage.Rebind(`DELETE FROM pending_email_invitations WHERE team_id = ? AND email = ?`),
		teamID, email,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	n, err := rowsAffected(res)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, apperrors.ErrInvitationNotFound)
	}

	return nil
}
