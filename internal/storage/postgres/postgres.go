// Package postgres opens the PostgreSQL backend of storage.Storage
// through the lib/pq driver.
package postgres

import (
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/aanand-mishra/students-console/internal/storage/sqlstore"
)

const schema = `
	CREATE TABLE IF NOT EXISTS students (
		id         BIGSERIAL    PRIMARY KEY,
		name       VARCHAR(100) NOT NULL,
		email      VARCHAR(150) NOT NULL,
		age        INTEGER      NOT NULL,
		address    VARCHAR(500),
		created_at TIMESTAMPTZ,
		updated_at TIMESTAMPTZ,
		CONSTRAINT uk_student_email UNIQUE (email)
	)
`

// uniqueViolation is the SQLSTATE for unique_violation.
const uniqueViolation = "23505"

// New connects to dsn, verifies the connection and creates the students
// table if it is missing.
func New(dsn string) (*sqlstore.Store, error) {
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres.New: open db: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres.New: ping: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres.New: create table: %w", err)
	}

	return sqlstore.New(db, isUniqueViolation), nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == uniqueViolation
	}
	return false
}
