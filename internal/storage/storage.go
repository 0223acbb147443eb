// Package storage defines the Storage interface — a contract that any
// database backend must satisfy to work with this application.
//
// WHY AN INTERFACE?
// ─────────────────
// Handlers (HTTP layer) should not know or care which database they are
// talking to. By depending only on this interface:
//
//   - Switching databases = pick another driver in the config file.
//     SQLite and PostgreSQL share one sqlx implementation (sqlstore).
//
//   - Writing tests = use the SQLite backend with an in-memory database.
package storage

import (
	"context"
	"errors"

	"github.com/aanand-mishra/students-console/internal/types"
)

// Sentinel errors. Backends wrap them with %w so callers can use errors.Is.
var (
	ErrNotFound       = errors.New("student not found")
	ErrDuplicateEmail = errors.New("email already exists")
)

// AgeRange is an inclusive age interval. A nil bound is open.
type AgeRange struct {
	Min *int
	Max *int
}

// Storage is the database contract.
type Storage interface {
	// CreateStudent inserts a new student and returns the stored record,
	// including the generated id and timestamps. Fails with
	// ErrDuplicateEmail if the email is taken.
	CreateStudent(ctx context.Context, draft types.Draft) (types.Student, error)

	// GetStudentByID fetches a single student by primary key.
	GetStudentByID(ctx context.Context, id int64) (types.Student, error)

	// GetStudentByEmail fetches a single student by exact email.
	GetStudentByEmail(ctx context.Context, email string) (types.Student, error)

	// GetStudents returns every student ordered by id.
	// Returns an empty slice (not nil) if there are no students.
	GetStudents(ctx context.Context) ([]types.Student, error)

	// SearchStudentsByName returns students whose name contains the
	// fragment, case-insensitively.
	SearchStudentsByName(ctx context.Context, fragment string) ([]types.Student, error)

	// GetStudentsByAgeRange returns students whose age lies in r.
	GetStudentsByAgeRange(ctx context.Context, r AgeRange) ([]types.Student, error)

	// CountStudentsByAgeRange counts students whose age lies in r.
	CountStudentsByAgeRange(ctx context.Context, r AgeRange) (int64, error)

	// UpdateStudentByID replaces the mutable fields of an existing student
	// and returns the stored record.
	UpdateStudentByID(ctx context.Context, id int64, draft types.Draft) (types.Student, error)

	// DeleteStudentByID removes a student record permanently.
	DeleteStudentByID(ctx context.Context, id int64) error

	// Close releases the underlying connection pool.
	Close() error
}
