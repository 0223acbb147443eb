// Package sqlite opens the SQLite backend of storage.Storage.
//
// WHY SQLite?
// ───────────
// SQLite stores everything in a single file on disk. There is no
// network, no separate server process, and no installation beyond the
// driver. It is fast enough for a class register and trivial to set up.
//
// The package registers its own variant of the go-sqlite3 driver with
// database/sql (see init below) and opens every database through it.
package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"

	"github.com/aanand-mishra/students-console/internal/storage/sqlstore"
)

// schema is idempotent — safe to run on every startup.
//
//	id         — integer primary key, auto-incremented by SQLite
//	email      — unique, the natural key users recognise
//	address    — optional, NULL when not given
//	created_at — set once on insert
//	updated_at — refreshed on every update
const schema = `
	CREATE TABLE IF NOT EXISTS students (
		id         INTEGER  PRIMARY KEY AUTOINCREMENT,
		name       TEXT     NOT NULL,
		email      TEXT     NOT NULL UNIQUE,
		age        INTEGER  NOT NULL,
		address    TEXT,
		created_at DATETIME,
		updated_at DATETIME
	)
`

// driverName is go-sqlite3 with a Unicode-aware lowercase function,
// registered on every new connection. SQLite's own LOWER folds ASCII
// only, so "ÖZGÜR" would never match "özgür".
const driverName = "sqlite3_students"

// lowerFunc is the SQL name of strings.ToLower inside SQLite.
const lowerFunc = "ulower"

func init() {
	sql.Register(driverName, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			return conn.RegisterFunc(lowerFunc, strings.ToLower, true)
		},
	})
	sqlx.BindDriver(driverName, sqlx.QUESTION)
}

// New opens the SQLite database at path (":memory:" works for tests),
// creates the students table if it does not already exist, and returns
// a ready-to-use store.
func New(path string) (*sqlstore.Store, error) {
	// sqlx.Open does NOT open a real connection yet — it just validates
	// the driver name and data source name (DSN).
	db, err := sqlx.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("sqlite.New: open db: %w", err)
	}

	// SQLite serialises writers anyway, and an in-memory database lives
	// inside one connection: a pool of one keeps every query on it.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite.New: create table: %w", err)
	}

	return sqlstore.New(db, isUniqueViolation, sqlstore.WithLowerFunc(lowerFunc)), nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}
