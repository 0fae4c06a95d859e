// Package sqlite opens the embedded database used for local runs and tests.
package sqlite

import (
	"fmt"
	"github.com/jmoiron/sqlx"
	"net/url"
	"teams-service/internal/config"

	_ "modernc.org/sqlite"
)

const driverName = "sqlite"

func init() {
	sqlx.BindDriver(driverName, sqlx.QUESTION)
}

type Storage struct {
	db *sqlx.DB
}

func Init(cfg config.SQLiteConfig) (*Storage, error) {
	const op = "storage.sqlite.Init"

	db, err := sqlx.Connect(driverName, DSN(cfg.Path))
	if err != nil {
		return nil, fmt.Errorf("%s: failed to open db: %w", op, err)
	}

	// One writer at a time; busy_timeout covers the rest.
	db.SetMaxOpenConns(1)

	return &Storage{db: db}, nil
}

// DSN builds a modernc.org/sqlite connection string for path with WAL,
// foreign keys and a busy timeout enabled. Times are written in the sqlite
// text format so they sort lexically.
func DSN(path string) string {
	q := url.Values{}
	q.Add("_pragma", "busy_timeout(5000)")
	q.Add("_pragma", "journal_mode(WAL)")
	q.Add("_pragma", "foreign_keys(1)")
	q.Add("_time_format", "sqlite")
	return "file:" + path + "?" + q.Encode()
}

func (s *Storage) GetDB() *sqlx.DB {
	return s.db
}

func (s *Storage) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
