// Package sqlstore implements storage.Storage on top of jmoiron/sqlx.
//
// The queries are written once with "?" placeholders; db.Rebind turns
// them into the driver's native form ("$1" for PostgreSQL), so the same
// Store serves every backend. Driver packages (sqlite, postgres) open the
// connection, create the schema and hand the *sqlx.DB over to New.
//
// HOW PREPARED STATEMENTS PREVENT SQL INJECTION:
// ────────────────────────────────────────────────
// Every value below travels as a bound argument, never concatenated into
// the SQL text. The only dynamic SQL is the WHERE clause of the age-range
// queries and the name of the lowercase function, both assembled from
// constants.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/aanand-mishra/students-console/internal/storage"
	"github.com/aanand-mishra/students-console/internal/types"
)

// columns is the explicit select list. Never use SELECT * — if a column
// is added later, struct scanning would silently change shape.
const columns = "id, name, email, age, address, created_at, updated_at"

// Store is the sqlx-backed implementation of storage.Storage.
// A single *sqlx.DB is safe for concurrent use by multiple goroutines.
type Store struct {
	db *sqlx.DB

	// isUniqueViolation recognises the driver's unique-constraint error,
	// which backs up the explicit email check under concurrent inserts.
	isUniqueViolation func(error) bool

	// lower is the SQL function that lowercases a name for search. It
	// must fold every Unicode letter, not only ASCII.
	lower string

	now func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithLowerFunc names the SQL function used to lowercase names when the
// backend's LOWER only folds ASCII (SQLite).
func WithLowerFunc(name string) Option {
	return func(s *Store) {
		s.lower = name
	}
}

// New wraps an opened and migrated database.
func New(db *sqlx.DB, isUniqueViolation func(error) bool, opts ...Option) *Store {
	if isUniqueViolation == nil {
		isUniqueViolation = func(error) bool { return false }
	}
	s := &Store{db: db, isUniqueViolation: isUniqueViolation, lower: "LOWER", now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DB exposes the connection pool (used by health checks and tests).
func (s *Store) DB() *sqlx.DB {
	return s.db
}

func (s *Store) Close() error {
	return s.db.Close()
}

// ─────────────────────────────────────────────────────────────────────────────
// CreateStudent rejects a taken email before inserting, then returns the
// row exactly as stored (RETURNING works on SQLite ≥ 3.35 and PostgreSQL).
// ─────────────────────────────────────────────────────────────────────────────
func (s *Store) CreateStudent(ctx context.Context, draft types.Draft) (types.Student, error) {
	exists, err := s.emailExists(ctx, draft.Email)
	if err != nil {
		return types.Student{}, fmt.Errorf("CreateStudent: %w", err)
	}
	if exists {
		return types.Student{}, duplicateEmail(draft.Email)
	}

	now := types.NewTimestamp(s.now())
	query := s.db.Rebind(`
		INSERT INTO students (name, email, age, address, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING ` + columns)

	var student types.Student
	err = s.db.QueryRowxContext(ctx, query,
		draft.Name, draft.Email, draft.Age, draft.AddressPtr(), now, now,
	).StructScan(&student)
	if err != nil {
		if s.isUniqueViolation(err) {
			return types.Student{}, duplicateEmail(draft.Email)
		}
		return types.Student{}, fmt.Errorf("CreateStudent: insert: %w", err)
	}

	return student, nil
}

func (s *Store) GetStudentByID(ctx context.Context, id int64) (types.Student, error) {
	var student types.Student
	query := s.db.Rebind("SELECT " + columns + " FROM students WHERE id = ? LIMIT 1")

	if err := s.db.GetContext(ctx, &student, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Student{}, notFound(id)
		}
		return types.Student{}, fmt.Errorf("GetStudentByID: scan: %w", err)
	}

	return student, nil
}

func (s *Store) GetStudentByEmail(ctx context.Context, email string) (types.Student, error) {
	var student types.Student
	query := s.db.Rebind("SELECT " + columns + " FROM students WHERE email = ? LIMIT 1")

	if err := s.db.GetContext(ctx, &student, query, email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Student{}, fmt.Errorf("%w with email: %s", storage.ErrNotFound, email)
		}
		return types.Student{}, fmt.Errorf("GetStudentByEmail: scan: %w", err)
	}

	return student, nil
}

func (s *Store) GetStudents(ctx context.Context) ([]types.Student, error) {
	return s.selectStudents(ctx, "GetStudents",
		"SELECT "+columns+" FROM students ORDER BY id")
}

// SearchStudentsByName matches a case-insensitive substring. LIKE
// wildcards in the fragment are escaped so "%" and "_" match literally.
func (s *Store) SearchStudentsByName(ctx context.Context, fragment string) ([]types.Student, error) {
	pattern := "%" + escapeLike(strings.ToLower(fragment)) + "%"
	return s.selectStudents(ctx, "SearchStudentsByName",
		"SELECT "+columns+" FROM students WHERE "+s.lower+`(name) LIKE ? ESCAPE '\' ORDER BY id`,
		pattern)
}

func (s *Store) GetStudentsByAgeRange(ctx context.Context, r storage.AgeRange) ([]types.Student, error) {
	where, args := ageWhere(r)
	return s.selectStudents(ctx, "GetStudentsByAgeRange",
		"SELECT "+columns+" FROM students"+where+" ORDER BY id", args...)
}

func (s *Store) CountStudentsByAgeRange(ctx context.Context, r storage.AgeRange) (int64, error) {
	where, args := ageWhere(r)

	var count int64
	if err := s.db.GetContext(ctx, &count, s.db.Rebind("SELECT COUNT(*) FROM students"+where), args...); err != nil {
		return 0, fmt.Errorf("CountStudentsByAgeRange: %w", err)
	}
	return count, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// UpdateStudentByID replaces name, email, age and address, refreshes
// updated_at and returns the stored record. Changing the email to one
// that belongs to another student is rejected.
// ─────────────────────────────────────────────────────────────────────────────
func (s *Store) UpdateStudentByID(ctx context.Context, id int64, draft types.Draft) (types.Student, error) {
	existing, err := s.GetStudentByID(ctx, id)
	if err != nil {
		return types.Student{}, err
	}

	if existing.Email != draft.Email {
		exists, err := s.emailExists(ctx, draft.Email)
		if err != nil {
			return types.Student{}, fmt.Errorf("UpdateStudentByID: %w", err)
		}
		if exists {
			return types.Student{}, duplicateEmail(draft.Email)
		}
	}

	query := s.db.Rebind(`
		UPDATE students
		SET name = ?, email = ?, age = ?, address = ?, updated_at = ?
		WHERE id = ?
		RETURNING ` + columns)

	var student types.Student
	err = s.db.QueryRowxContext(ctx, query,
		draft.Name, draft.Email, draft.Age, draft.AddressPtr(), types.NewTimestamp(s.now()), id,
	).StructScan(&student)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return types.Student{}, notFound(id)
		case s.isUniqueViolation(err):
			return types.Student{}, duplicateEmail(draft.Email)
		}
		return types.Student{}, fmt.Errorf("UpdateStudentByID: exec: %w", err)
	}

	return student, nil
}

func (s *Store) DeleteStudentByID(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, s.db.Rebind("DELETE FROM students WHERE id = ?"), id)
	if err != nil {
		return fmt.Errorf("DeleteStudentByID: exec: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("DeleteStudentByID: rows affected: %w", err)
	}
	if affected == 0 {
		return notFound(id)
	}

	return nil
}

func (s *Store) selectStudents(ctx context.Context, op, query string, args ...any) ([]types.Student, error) {
	// Pre-allocate an empty (non-nil) slice so JSON encodes [] not null.
	students := make([]types.Student, 0)
	if err := s.db.SelectContext(ctx, &students, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("%s: query: %w", op, err)
	}
	return students, nil
}

func (s *Store) emailExists(ctx context.Context, email string) (bool, error) {
	var count int
	query := s.db.Rebind("SELECT COUNT(*) FROM students WHERE email = ?")
	if err := s.db.GetContext(ctx, &count, query, email); err != nil {
		return false, fmt.Errorf("email exists: %w", err)
	}
	return count > 0, nil
}

func ageWhere(r storage.AgeRange) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if r.Min != nil {
		conds = append(conds, "age >= ?")
		args = append(args, *r.Min)
	}
	if r.Max != nil {
		conds = append(conds, "age <= ?")
		args = append(args, *r.Max)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func notFound(id int64) error {
	return fmt.Errorf("%w with id: %d", storage.ErrNotFound, id)
}

func duplicateEmail(email string) error {
	return fmt.Errorf("%w: %s", storage.ErrDuplicateEmail, email)
}
