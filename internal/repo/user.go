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
)

const userColumns = `user_id, email, display_name, tier, created_at`

// UserRepo reads the account directory mirrored from the identity service.
type UserRepo struct {
	storage *sqlx.DB
}

func NewUserRepo(storage *sqlx.DB) *UserRepo {
	return &UserRepo{storage: storage}
}

func (r *UserRepo) GetUser(ctx context.Context, userID string) (models.User, error) {
	const op = "repo.user.GetUser"

	query := r.storage.Rebind(`SELECT ` + userColumns + ` FROM users WHERE user_id = ?`)

	var user models.User
	err := r.storage.GetContext(ctx, &user, query, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, fmt.Errorf("%s: %w", op, apperrors.ErrUserNotFound)
	}
	if err != nil {
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	return user, nil
}

func (r *UserRepo) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	const op = "repo.user.GetUserByEmail"

	query := r.storage.Rebind(`SELECT ` + userColumns + ` FROM users WHERE email = ?`)

	var user models.User
	err := r.storage.GetContext(ctx, &user, query, strings.ToLower(email))
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, fmt.Errorf("%s: %w", op, apperrors.ErrUserNotFound)
	}
	if err != nil {
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	return user, nil
}

// GetUsers returns the known users among ids keyed by user id.
func (r *UserRepo) GetUsers(ctx context.Context, ids []string) (map[string]models.User, error) {
	const op = "repo.user.GetUsers"

	users := make(map[string]models.User, len(ids))
	if len(ids) == 0 {
		return users, nil
	}

	query, args, err := sqlx.In(`SELECT `+userColumns+` FROM users WHERE user_id IN (?)`, ids)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var rows []models.User
	if err := r.storage.SelectContext(ctx, &rows, r.storage.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	for _, u := range rows {
		users[u.UserID] = u
	}

	return users, nil
}

// UpsertUser inserts the user or refreshes email, display name and tier of an
// existing one. created reports whether a new row was inserted.
func (r *UserRepo) UpsertUser(ctx context.Context, user models.User) (created bool, err error) {
	const op = "repo.user.UpsertUser"

	tx, err := r.storage.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.GetContext(ctx, &exists, tx.Rebind(`SELECT COUNT(*) FROM users WHERE user_id = ?`), user.UserID)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	email := strings.ToLower(user.Email)
	if exists == 0 {
		_, err = tx.ExecContext(ctx, tx.Rebind(`
			INSERT INTO users (user_id, email, display_name, tier, created_at)
			VALUES (?, ?, ?, ?, ?)`),
			user.UserID, email, user.DisplayName, user.Tier, user.CreatedAt,
		)
		created = true
	} else {
		_, err = tx.ExecContext(ctx, tx.Rebind(`
			UPDATE users SET email = ?, display_name = ?, tier = ? WHERE user_id = ?`),
			email, user.DisplayName, user.Tier, user.UserID,
		)
	}
	if err != nil {
		if isUniqueViolation(err) {
			return false, fmt.Errorf("%s: %w", op, apperrors.ErrEmailTaken)
		}
		return false, fmt.Errorf("%s: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("%s: failed to commit transaction: %w", op, err)
	}

	return created, nil
}
