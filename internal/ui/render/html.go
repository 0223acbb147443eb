package render

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/aanand-mishra/students-console/internal/types"
	"github.com/aanand-mishra/students-console/internal/ui/i18n"
	"github.com/aanand-mishra/students-console/internal/ui/viewmodel"
)

//go:embed templates/*.html
var templateFS embed.FS

// Details is the details panel of one student.
type Details struct {
	ID        int64
	Name      string
	Email     string
	Age       int
	Address   string
	CreatedAt string
	UpdatedAt string
}

// PageData is what the templates see.
type PageData struct {
	L       i18n.Localizer
	State   viewmodel.State
	Table   Table
	Details *Details
}

// Renderer writes the console markup.
type Renderer struct {
	tmpl *template.Template
	loc  *time.Location
}

// NewRenderer parses the embedded templates. Dates are shown in loc.
func NewRenderer(loc *time.Location) (*Renderer, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("render: parse templates: %w", err)
	}
	return &Renderer{tmpl: tmpl, loc: loc}, nil
}

// Data assembles the template input for one render.
func (r *Renderer) Data(l i18n.Localizer, state viewmodel.State, records []types.Student) PageData {
	dates := NewDateFormatter(r.loc, l)
	data := PageData{
		L:     l,
		State: state,
		Table: BuildTable(records, state.Indicators.NoResults, dates),
	}
	if s := state.Details; s != nil {
		data.Details = &Details{
			ID:        s.ID,
			Name:      s.Name,
			Email:     s.Email,
			Age:       s.Age,
			Address:   s.AddressOr(l.T("details.address_missing")),
			CreatedAt: dates.Format(s.CreatedAt),
			UpdatedAt: dates.Format(s.UpdatedAt),
		}
	}
	return data
}

// Page writes the full document.
func (r *Renderer) Page(w io.Writer, l i18n.Localizer, state viewmodel.State, records []types.Student) error {
	if err := r.tmpl.ExecuteTemplate(w, "page", r.Data(l, state, records)); err != nil {
		return fmt.Errorf("render: page: %w", err)
	}
	return nil
}

// TableBody writes only the statistics and the table, for partial reloads.
func (r *Renderer) TableBody(w io.Writer, l i18n.Localizer, state viewmodel.State, records []types.Student) error {
	if err := r.tmpl.ExecuteTemplate(w, "table", r.Data(l, state, records)); err != nil {
		return fmt.Errorf("render: table: %w", err)
	}
	return nil
}
