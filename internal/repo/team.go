package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"github.com/jmoiron/sqlx"
	"strings"
	"teams-service/internal/apperrors"
	"teams-service/internal/domain/models"
	"time"
)

const teamColumns = `team_id, name, description, created_by, created_at, updated_at, is_deleted, deleted_at`

type TeamRepo struct {
	storage *sqlx.DB
}

func NewTeamRepo(storage *sqlx.DB) *TeamRepo {
	return &TeamRepo{storage: storage}
}

func (r *TeamRepo) CreateTeam(ctx context.Context, team models.Team) error {
	const op = "repo.team.CreateTeam"

	query := r.storage.Rebind(`
		INSERT INTO teams (team_id, name, description, created_by, created_at, updated_at, is_deleted)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)

	_, err := r.storage.ExecContext(ctx, query,
		team.TeamID, team.Name, team.Description, team.CreatedBy,
		team.CreatedAt, team.UpdatedAt, false,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// GetTeam returns a live team.
func (r *TeamRepo) GetTeam(ctx context.Context, teamID string) (models.Team, error) {
	const op = "repo.team.GetTeam"

	query := r.storage.Rebind(`SELECT ` + teamColumns + ` FROM teams WHERE team_id = ? AND is_deleted = ?`)

	var team models.Team
	err := r.storage.GetContext(ctx, &team, query, teamID, false)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Team{}, fmt.Errorf("%s: %w", op, apperrors.ErrTeamNotFound)
	}
	if err != nil {
		return models.Team{}, fmt.Errorf("%s: %w", op, err)
	}

	return team, nil
}

// GetTeams returns the live teams among ids keyed by team id.
func (r *TeamRepo) GetTeams(ctx context.Context, ids []string) (map[string]models.Team, error) {
	const op = "repo.team.GetTeams"

	teams := make(map[string]models.Team, len(ids))
	if len(ids) == 0 {
		return teams, nil
	}

	query, args, err := sqlx.In(`SELECT `+teamColumns+` FROM teams WHERE team_id IN (?) AND is_deleted = ?`, ids, false)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var rows []models.Team
	if err := r.storage.SelectContext(ctx, &rows, r.storage.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	for _, t := range rows {
		teams[t.TeamID] = t
	}

	return teams, nil
}

// UpdateTeam applies patch to a live team. The is_deleted predicate is part
// of the UPDATE itself so a concurrent delete wins.
func (r *TeamRepo) UpdateTeam(ctx context.Context, teamID string, patch models.TeamPatch, updatedAt time.Time) (models.Team, error) {
	const op = "repo.team.UpdateTeam"

	sets := make([]string, 0, 3)
	args := make([]any, 0, 5)

	if patch.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *patch.Name)
	}
	if patch.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *patch.Description)
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, updatedAt, teamID, false)

	query := r.storage.Rebind(`UPDATE teams SET ` + strings.Join(sets, ", ") +
		` WHERE team_id = ? AND is_deleted = ? RETURNING ` + teamColumns)

	var team models.Team
	err := r.storage.QueryRowxContext(ctx, query, args...).StructScan(&team)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Team{}, fmt.Errorf("%s: %w", op, apperrors.ErrTeamNotFound)
	}
	if err != nil {
		return models.Team{}, fmt.Errorf("%s: %w", op, err)
	}

	return team, nil
}

// SoftDeleteTeam marks the team deleted and removes every membership row in
// one transaction. It returns the number of removed rows.
func (r *TeamRepo) SoftDeleteTeam(ctx context.Context, teamID string, at time.Time) (int, error) {
	const op = "repo.team.SoftDeleteTeam"

	tx, err := r.storage.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, tx.Rebind(`
		UPDATE teams SET is_deleted = ?, deleted_at = ?, updated_at = ?
		WHERE team_id = ? AND is_deleted = ?`),
		true, at, at, teamID, false,
	)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	n, err := rowsAffected(res)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return 0, fmt.Errorf("%s: %w", op, apperrors.ErrTeamNotFound)
	}

	res, err = tx.ExecContext(ctx, tx.Rebind(`DELETE FROM team_members WHERE team_id = ?`), teamID)
	if err != nil {
		return 0, fmt.Errorf("%s: failed to remove members: %w", op, err)
	}

	removed, err := rowsAffected(res)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%s: failed to commit transaction: %w", op, err)
	}

	return removed, nil
}
