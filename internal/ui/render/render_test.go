package render

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/assert/v2"

	"github.com/aanand-mishra/students-console/internal/logging"
	"github.com/aanand-mishra/students-console/internal/types"
	"github.com/aanand-mishra/students-console/internal/ui/i18n"
	"github.com/aanand-mishra/students-console/internal/ui/viewmodel"
)

func localizer(t *testing.T, lang string) i18n.Localizer {
	t.Helper()
	bundle, err := i18n.Load(logging.Discard())
	assert.Equal(t, nil, err)
	return bundle.Localizer(lang)
}

func withAges(ages ...int) []types.Student {
	out := make([]types.Student, 0, len(ages))
	for i, age := range ages {
		out = append(out, types.Student{ID: int64(i + 1), Name: "s", Email: "s@example.com", Age: age})
	}
	return out
}

func TestStatistics(t *testing.T) {
	tests := []struct {
		name  string
		ages  []int
		total int
		avg   int
	}{
		{"empty", nil, 0, 0},
		{"single", []int{21}, 1, 21},
		{"exact mean", []int{20, 22, 24}, 3, 22},
		{"half rounds up", []int{20, 21}, 2, 21},
		{"below half rounds down", []int{20, 20, 21}, 3, 20},
		{"above half rounds up", []int{20, 21, 21}, 3, 21},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stats := Statistics(withAges(tt.ages...))
			assert.Equal(t, tt.total, stats.Total)
			assert.Equal(t, tt.avg, stats.AverageAge)
		})
	}
}

func TestDateFormatter(t *testing.T) {
	ts := types.NewTimestamp(time.Date(2024, time.March, 5, 7, 4, 0, 0, time.UTC))

	en := NewDateFormatter(time.UTC, localizer(t, "en"))
	assert.Equal(t, "5 Mar 2024 07:04", en.Format(ts))
	assert.Equal(t, Missing, en.Format(nil))
	assert.Equal(t, Missing, en.Format(&types.Timestamp{}))

	istanbul := time.FixedZone("TRT", 3*60*60)
	tr := NewDateFormatter(istanbul, localizer(t, "tr"))
	assert.Equal(t, "5 Mar 2024 10:04", tr.Format(ts))

	aug := types.NewTimestamp(time.Date(2023, time.August, 31, 23, 30, 0, 0, time.UTC))
	assert.Equal(t, "1 Eyl 2023 02:30", tr.Format(aug))
}

func TestRows_PreservesOrderAndFillsMissing(t *testing.T) {
	addr := "Kadıköy"
	records := []types.Student{
		{ID: 9, Name: "Zeynep", Email: "z@example.com", Age: 30, Address: &addr},
		{ID: 2, Name: "Ali", Email: "a@example.com", Age: 19},
	}

	rows := Rows(records, NewDateFormatter(time.UTC, localizer(t, "en")))
	assert.Equal(t, 2, len(rows))
	assert.Equal(t, int64(9), rows[0].ID)
	assert.Equal(t, "Kadıköy", rows[0].Address)
	assert.Equal(t, "30", rows[0].Age)
	assert.Equal(t, int64(2), rows[1].ID)
	assert.Equal(t, Missing, rows[1].Address)
	assert.Equal(t, Missing, rows[1].CreatedAt)
}

func TestBuildTable_EmptyStates(t *testing.T) {
	f := NewDateFormatter(time.UTC, localizer(t, "en"))

	assert.Equal(t, Placeholder, BuildTable(nil, false, f).Empty)
	assert.Equal(t, NoResults, BuildTable([]types.Student{}, true, f).Empty)
	// rows win over the flag
	assert.Equal(t, NotEmpty, BuildTable(withAges(20), true, f).Empty)
}

func render(t *testing.T, state viewmodel.State, records []types.Student) string {
	t.Helper()
	r, err := NewRenderer(time.UTC)
	assert.Equal(t, nil, err)

	var buf bytes.Buffer
	err = r.Page(&buf, localizer(t, "en"), state, records)
	assert.Equal(t, nil, err)
	return buf.String()
}

func TestRenderer_EscapesUserText(t *testing.T) {
	addr := `"Main" & <Side> St`
	records := []types.Student{{
		ID:      1,
		Name:    `<script>alert("x")</script>`,
		Email:   `a&b@example.com`,
		Age:     20,
		Address: &addr,
	}}

	html := render(t, viewmodel.State{}, records)
	assert.Equal(t, false, strings.Contains(html, "<script>"))
	assert.Equal(t, true, strings.Contains(html, "&lt;script&gt;alert(&#34;x&#34;)&lt;/script&gt;"))
	assert.Equal(t, true, strings.Contains(html, "a&amp;b@example.com"))
	assert.Equal(t, true, strings.Contains(html, "&#34;Main&#34; &amp; &lt;Side&gt; St"))
}

func TestRenderer_EmptyAndNoResults(t *testing.T) {
	html := render(t, viewmodel.State{}, nil)
	assert.Equal(t, true, strings.Contains(html, "No students yet"))
	assert.Equal(t, false, strings.Contains(html, "No students match your search"))

	state := viewmodel.State{Indicators: viewmodel.Indicators{NoResults: true}}
	html = render(t, state, nil)
	assert.Equal(t, true, strings.Contains(html, "No students match your search"))
	assert.Equal(t, false, strings.Contains(html, "No students yet"))
}

func TestRenderer_StatisticsAndModals(t *testing.T) {
	n := 2
	state := viewmodel.State{
		Notification: &viewmodel.Notification{Kind: viewmodel.NotifyError, Message: "Email already exists: a@b.c", Seq: 1},
		Confirm:      viewmodel.ConfirmState{Open: true, ID: 1, Name: "Ayşe <3"},
		Indicators:   viewmodel.Indicators{SearchCount: &n},
	}

	html := render(t, state, withAges(20, 21))
	assert.Equal(t, true, strings.Contains(html, `<strong id="total-students">2</strong>`))
	assert.Equal(t, true, strings.Contains(html, `<strong id="avg-age">21</strong>`))
	assert.Equal(t, true, strings.Contains(html, `<strong id="search-results">2</strong>`))
	assert.Equal(t, true, strings.Contains(html, "toast-error"))
	assert.Equal(t, true, strings.Contains(html, "Email already exists: a@b.c"))
	assert.Equal(t, true, strings.Contains(html, "Are you sure you want to delete Ayşe &lt;3?"))
	assert.Equal(t, false, strings.Contains(html, "filtered-results"))
}

func TestRenderer_Deterministic(t *testing.T) {
	records := withAges(18, 40, 33)
	assert.Equal(t, render(t, viewmodel.State{}, records), render(t, viewmodel.State{}, records))
}
