package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"teams-service/internal/apperrors"

	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

// Queries are written with '?' placeholders and passed through Rebind so the
// same repo serves postgres and sqlite.

const driverPostgres = "postgres"

const pgUniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == pgUniqueViolation
	}

	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}

	return false
}

// ensureTeamLive fails with ErrTeamNotFound unless the team exists and is not
// soft-deleted. On postgres the row is share-locked until tx ends, so a
// concurrent delete waits for the insert that follows.
func ensureTeamLive(ctx context.Context, tx *sqlx.Tx, teamID string) error {
	query := `SELECT 1 FROM teams WHERE team_id = ? AND is_deleted = ?`
	if tx.DriverName() == driverPostgres {
		query += ` FOR SHARE`
	}

	var one int
	err := tx.GetContext(ctx, &one, tx.Rebind(query), teamID, false)
	if errors.Is(err, sql.ErrNoRows) {
		return apperrors.ErrTeamNotFound
	}
	if err != nil {
		return fmt.Errorf("check team: %w", err)
	}

	return nil
}

func rowsAffected(res sql.Result) (int, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}
