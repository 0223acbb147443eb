// Package student contains all HTTP handlers related to the Student resource.
//
// HANDLER PATTERN USED HERE — THE CLOSURE / FACTORY PATTERN:
// ────────────────────────────────────────────────────────────
// Go's router expects handler functions with the signature:
//
//	func(http.ResponseWriter, *http.Request)
//
// That signature has no room for extra parameters like a database.
// To inject dependencies we use a factory function that:
//  1. Accepts dependencies (storage)
//  2. Returns a function with the exact signature the router needs
//
//	router.HandleFunc("POST /api/students", student.New(storage))
//	//                                              ^^^^^^^^^^^^^
//	//                         New(storage) is called ONCE at startup.
//	//                         It returns a handler func which is called
//	//                         on EVERY incoming request.
package student

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/aanand-mishra/students-console/internal/storage"
	"github.com/aanand-mishra/students-console/internal/types"
	"github.com/aanand-mishra/students-console/internal/utils/response"
)

// validate caches struct metadata, so one instance serves every request.
var validate = validator.New(validator.WithRequiredStructEnabled())

// ─────────────────────────────────────────────────────────────────────────────
// New handles POST /api/students
// Creates a new student from the JSON request body.
//
// Request body (JSON):
//
//	{ "name": "Ayşe Yılmaz", "email": "ayse@test.com", "age": 21, "address": "Ankara" }
//
// Success response (201 Created) — the stored record:
//
//	{ "id": 1, "name": "Ayşe Yılmaz", ..., "createdAt": "...", "updatedAt": "..." }
//
// Error responses:
//
//	400 Bad Request  — empty body, malformed JSON, or failed validation
//	409 Conflict     — the email belongs to another student
//	500 Internal     — database error
//
// ─────────────────────────────────────────────────────────────────────────────
func New(storage storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slog.Info("creating a student")

		draft, ok := decodeDraft(w, r)
		if !ok {
			return
		}

		student, err := storage.CreateStudent(r.Context(), draft)
		if err != nil {
			writeStorageError(w, err, draft, 0)
			return
		}

		slog.Info("student created", slog.Int64("id", student.ID))
		response.WriteJSON(w, http.StatusCreated, student)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// GetByID handles GET /api/students/{id}
//
// Error responses:
//
//	400 Bad Request  — id is not a valid integer
//	404 Not Found    — no such student
//
// ─────────────────────────────────────────────────────────────────────────────
func GetByID(storage storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// r.PathValue("id") extracts the {id} segment from the URL.
		id := r.PathValue("id")
		slog.Info("getting a student", slog.String("id", id))

		intID, ok := parseID(w, id)
		if !ok {
			return
		}

		student, err := storage.GetStudentByID(r.Context(), intID)
		if err != nil {
			writeStorageError(w, err, types.Draft{}, intID)
			return
		}

		response.WriteJSON(w, http.StatusOK, student)
	}
}

// GetByEmail handles GET /api/students/email/{email}
func GetByEmail(storage storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		email := r.PathValue("email")
		slog.Info("getting a student by email")

		student, err := storage.GetStudentByEmail(r.Context(), email)
		if errors.Is(err, errNotFound) {
			response.Error(w, http.StatusNotFound,
				fmt.Sprintf("Student not found with email: %s", email))
			return
		}
		if err != nil {
			writeStorageError(w, err, types.Draft{}, 0)
			return
		}

		response.WriteJSON(w, http.StatusOK, student)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// GetList handles GET /api/students
// Returns a JSON array of all students, ordered by id.
// Returns an empty array [] (not null) when there are no students.
// ─────────────────────────────────────────────────────────────────────────────
func GetList(storage storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slog.Info("getting all students")

		students, err := storage.GetStudents(r.Context())
		if err != nil {
			slog.Error("error getting students", slog.String("error", err.Error()))
			response.WriteJSON(w, http.StatusInternalServerError,
				response.GeneralError(err))
			return
		}

		response.WriteJSON(w, http.StatusOK, students)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Search handles GET /api/students/search?name=<substring>
// Matching is case-insensitive; the name parameter is mandatory.
// ─────────────────────────────────────────────────────────────────────────────
func Search(storage storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		if !query.Has("name") {
			response.Error(w, http.StatusBadRequest, "required parameter name is missing")
			return
		}
		name := query.Get("name")
		slog.Info("searching students", slog.String("name", name))

		students, err := storage.SearchStudentsByName(r.Context(), name)
		if err != nil {
			slog.Error("error searching students", slog.String("error", err.Error()))
			response.WriteJSON(w, http.StatusInternalServerError,
				response.GeneralError(err))
			return
		}

		response.WriteJSON(w, http.StatusOK, students)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// AgeRange handles GET /api/students/age-range?minAge=<int>&maxAge=<int>
// Either bound may be omitted; both bounds are inclusive.
// ─────────────────────────────────────────────────────────────────────────────
func AgeRange(storage storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ageRange, ok := parseAgeRange(w, r, "minAge", "maxAge")
		if !ok {
			return
		}
		slog.Info("filtering students by age", ageAttrs(ageRange)...)

		students, err := storage.GetStudentsByAgeRange(r.Context(), ageRange)
		if err != nil {
			slog.Error("error filtering students", slog.String("error", err.Error()))
			response.WriteJSON(w, http.StatusInternalServerError,
				response.GeneralError(err))
			return
		}

		response.WriteJSON(w, http.StatusOK, students)
	}
}

// OlderThan handles GET /api/students/older-than?minAge=<int>
func OlderThan(storage storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ageRange, ok := parseAgeRange(w, r, "minAge", "")
		if !ok {
			return
		}
		if ageRange.Min == nil {
			response.Error(w, http.StatusBadRequest, "required parameter minAge is missing")
			return
		}

		students, err := storage.GetStudentsByAgeRange(r.Context(), ageRange)
		if err != nil {
			response.WriteJSON(w, http.StatusInternalServerError,
				response.GeneralError(err))
			return
		}

		response.WriteJSON(w, http.StatusOK, students)
	}
}

// CountByAgeRange handles GET /api/students/count/age-range
// and answers with a bare JSON integer.
func CountByAgeRange(storage storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ageRange, ok := parseAgeRange(w, r, "minAge", "maxAge")
		if !ok {
			return
		}

		count, err := storage.CountStudentsByAgeRange(r.Context(), ageRange)
		if err != nil {
			response.WriteJSON(w, http.StatusInternalServerError,
				response.GeneralError(err))
			return
		}

		response.WriteJSON(w, http.StatusOK, count)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Update handles PUT /api/students/{id}
// Replaces ALL mutable fields of an existing student.
//
// Error responses:
//
//	400 Bad Request  — invalid id, empty body, or validation failure
//	404 Not Found    — no such student
//	409 Conflict     — the new email belongs to another student
//
// ─────────────────────────────────────────────────────────────────────────────
func Update(storage storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		slog.Info("updating a student", slog.String("id", id))

		intID, ok := parseID(w, id)
		if !ok {
			return
		}

		draft, ok := decodeDraft(w, r)
		if !ok {
			return
		}

		updated, err := storage.UpdateStudentByID(r.Context(), intID, draft)
		if err != nil {
			writeStorageError(w, err, draft, intID)
			return
		}

		slog.Info("student updated", slog.String("id", id))
		response.WriteJSON(w, http.StatusOK, updated)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Delete handles DELETE /api/students/{id}
// Permanently removes a student record. Success is 204 No Content.
// ─────────────────────────────────────────────────────────────────────────────
func Delete(storage storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		slog.Info("deleting a student", slog.String("id", id))

		intID, ok := parseID(w, id)
		if !ok {
			return
		}

		if err := storage.DeleteStudentByID(r.Context(), intID); err != nil {
			writeStorageError(w, err, types.Draft{}, intID)
			return
		}

		slog.Info("student deleted", slog.String("id", id))
		w.WriteHeader(http.StatusNoContent)
	}
}

var errNotFound = storage.ErrNotFound

// decodeDraft reads and validates the JSON body. On failure it has
// already written the response.
func decodeDraft(w http.ResponseWriter, r *http.Request) (types.Draft, bool) {
	var draft types.Draft

	err := json.NewDecoder(r.Body).Decode(&draft)
	if errors.Is(err, io.EOF) {
		// io.EOF means the body was completely empty — nothing to decode.
		response.WriteJSON(w, http.StatusBadRequest,
			response.GeneralError(errors.New("request body is empty")))
		return types.Draft{}, false
	}
	if err != nil {
		response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
		return types.Draft{}, false
	}

	draft = draft.Normalize()

	if err := validate.Struct(draft); err != nil {
		var validateErrs validator.ValidationErrors
		if errors.As(err, &validateErrs) {
			response.WriteJSON(w, http.StatusBadRequest,
				response.ValidationError(validateErrs))
			return types.Draft{}, false
		}
		response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
		return types.Draft{}, false
	}

	return draft, true
}

// writeStorageError maps storage failures onto HTTP statuses.
func writeStorageError(w http.ResponseWriter, err error, draft types.Draft, id int64) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		response.Error(w, http.StatusNotFound,
			fmt.Sprintf("Student not found with id: %d", id))
	case errors.Is(err, storage.ErrDuplicateEmail):
		response.Error(w, http.StatusConflict,
			fmt.Sprintf("Email already exists: %s", draft.Email))
	default:
		slog.Error("storage error", slog.String("error", err.Error()))
		response.WriteJSON(w, http.StatusInternalServerError,
			response.GeneralError(err))
	}
}

func parseID(w http.ResponseWriter, raw string) (int64, bool) {
	// The URL gives us a string; the database needs int64.
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		response.WriteJSON(w, http.StatusBadRequest,
			response.GeneralError(errors.New("invalid id: must be an integer")))
		return 0, false
	}
	return id, true
}

// parseAgeRange reads optional integer bounds from the query string.
// An empty key name skips that bound.
func parseAgeRange(w http.ResponseWriter, r *http.Request, minKey, maxKey string) (storage.AgeRange, bool) {
	var ageRange storage.AgeRange
	query := r.URL.Query()

	for _, bound := range []struct {
		key string
		dst **int
	}{
		{minKey, &ageRange.Min},
		{maxKey, &ageRange.Max},
	} {
		if bound.key == "" || query.Get(bound.key) == "" {
			continue
		}
		v, err := strconv.Atoi(query.Get(bound.key))
		if err != nil {
			response.Error(w, http.StatusBadRequest,
				fmt.Sprintf("invalid %s: must be an integer", bound.key))
			return storage.AgeRange{}, false
		}
		*bound.dst = &v
	}

	return ageRange, true
}

func ageAttrs(r storage.AgeRange) []any {
	var attrs []any
	if r.Min != nil {
		attrs = append(attrs, slog.Int("min_age", *r.Min))
	}
	if r.Max != nil {
		attrs = append(attrs, slog.Int("max_age", *r.Max))
	}
	return attrs
}
