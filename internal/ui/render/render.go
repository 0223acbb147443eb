// Package render turns the cached records and the page view-model into
// what the operator sees: table rows, summary statistics and HTML.
//
// Everything here is a deterministic function of its input. The HTML is
// produced by html/template, whose contextual escaping guarantees that
// names, emails and addresses are inserted as text and can never be
// parsed as markup.
package render

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/aanand-mishra/students-console/internal/types"
	"github.com/aanand-mishra/students-console/internal/ui/i18n"
)

// Missing is shown for absent optional values.
const Missing = "-"

// Stats are the figures above the table.
type Stats struct {
	Total      int
	AverageAge int
}

// Statistics counts records and averages their ages. The mean is rounded
// half away from zero (math.Round); for the non-negative ages a student
// can have this equals rounding half up. An empty input yields zeros.
func Statistics(records []types.Student) Stats {
	if len(records) == 0 {
		return Stats{}
	}

	var sum int64
	for _, r := range records {
		sum += int64(r.Age)
	}

	return Stats{
		Total:      len(records),
		AverageAge: int(math.Round(float64(sum) / float64(len(records)))),
	}
}

// DateFormatter prints timestamps as "D Mon YYYY HH:MM" with a localized
// month abbreviation, in a fixed time zone.
type DateFormatter struct {
	loc      *time.Location
	localize i18n.Localizer
}

// NewDateFormatter uses loc (UTC when nil) and the month names of l.
func NewDateFormatter(loc *time.Location, l i18n.Localizer) DateFormatter {
	if loc == nil {
		loc = time.UTC
	}
	return DateFormatter{loc: loc, localize: l}
}

// Format returns Missing for an absent or zero timestamp.
func (f DateFormatter) Format(ts *types.Timestamp) string {
	if ts == nil || ts.IsZero() {
		return Missing
	}
	t := ts.In(f.loc)
	return fmt.Sprintf("%d %s %d %02d:%02d",
		t.Day(), f.localize.Month(int(t.Month())), t.Year(), t.Hour(), t.Minute())
}

// Row is one table line. Fields hold plain text; escaping happens when
// the row is written into markup.
type Row struct {
	ID        int64
	Name      string
	Email     string
	Age       string
	Address   string
	CreatedAt string
}

// Rows maps records to rows, preserving order.
func Rows(records []types.Student, f DateFormatter) []Row {
	rows := make([]Row, 0, len(records))
	for _, r := range records {
		rows = append(rows, Row{
			ID:        r.ID,
			Name:      r.Name,
			Email:     r.Email,
			Age:       strconv.Itoa(r.Age),
			Address:   r.AddressOr(Missing),
			CreatedAt: f.Format(r.CreatedAt),
		})
	}
	return rows
}

// EmptyState says what an empty table means.
type EmptyState int

const (
	// NotEmpty: the table has rows.
	NotEmpty EmptyState = iota
	// Placeholder: nothing is registered (or loaded) yet.
	Placeholder
	// NoResults: a search or filter matched nothing.
	NoResults
)

// Table is the view of the records.
type Table struct {
	Rows  []Row
	Empty EmptyState
	Stats Stats
}

// BuildTable derives the table from the records. noResults marks an
// empty answer to a search or filter, which is shown differently from
// an empty register.
func BuildTable(records []types.Student, noResults bool, f DateFormatter) Table {
	t := Table{
		Rows:  Rows(records, f),
		Stats: Statistics(records),
	}
	switch {
	case len(records) > 0:
		t.Empty = NotEmpty
	case noResults:
		t.Empty = NoResults
	default:
		t.Empty = Placeholder
	}
	return t
}

// NoResults reports whether the table shows the "no match" state.
func (t Table) NoResults() bool {
	return t.Empty == NoResults
}
