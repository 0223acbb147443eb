// Package types holds all shared data structures (models) used across
// the application. Keeping them in one place prevents import cycles —
// handlers, storage, the API client and the console can all import types
// without depending on each other.
package types

import "strings"

// Student represents a student record as the server stores it.
//
// Struct tags serve two purposes:
//
//  1. json:"..." — the wire names of the REST resource (camelCase, as
//     the browser console has always read them).
//
//  2. db:"..."   — column names used by sqlx when scanning rows.
//
// The client never patches a Student field by field: every mutation
// replaces the whole record with what the server returned.
type Student struct {
	ID        int64      `json:"id"        db:"id"`
	Name      string     `json:"name"      db:"name"`
	Email     string     `json:"email"     db:"email"`
	Age       int        `json:"age"       db:"age"`
	Address   *string    `json:"address"   db:"address"`
	CreatedAt *Timestamp `json:"createdAt" db:"created_at"`
	UpdatedAt *Timestamp `json:"updatedAt" db:"updated_at"`
}

// AddressOr returns the address, or fallback when it is absent or blank.
func (s Student) AddressOr(fallback string) string {
	if s.Address == nil || strings.TrimSpace(*s.Address) == "" {
		return fallback
	}
	return *s.Address
}

// Draft is unsaved, user-entered student data. The server assigns the
// identity and the timestamps when the draft is persisted.
//
// validate:"..." tags are checked by go-playground/validator on the
// server; they mirror the constraints of the students table.
type Draft struct {
	Name    string `json:"name"              validate:"required,min=2,max=100"`
	Email   string `json:"email"             validate:"required,email,max=150"`
	Age     int    `json:"age"               validate:"required,min=1,max=150"`
	Address string `json:"address,omitempty" validate:"max=500"`
}

// Normalize trims surrounding whitespace from every text field.
func (d Draft) Normalize() Draft {
	d.Name = strings.TrimSpace(d.Name)
	d.Email = strings.TrimSpace(d.Email)
	d.Address = strings.TrimSpace(d.Address)
	return d
}

// AddressPtr returns nil for an empty address so it is stored as NULL.
func (d Draft) AddressPtr() *string {
	if d.Address == "" {
		return nil
	}
	addr := d.Address
	return &addr
}
