// Package controller is the synchronization controller of the console.
//
// Each operation issues exactly one call to the students API and, only
// when it succeeds, patches the local cache. Failures become localized
// notifications and leave the cache untouched. The widgets the controller
// drives (toast, form modal, confirmation modal, indicators) are consumed
// through the small interfaces below; viewmodel.Page implements all of
// them.
//
// Ordering: every operation draws a ticket from a monotonic sequence when
// it is issued. A read that completes after a newer read has already been
// applied is discarded by the cache, so the table always answers the most
// recently issued question. Writes that complete while an older read is in
// flight are replayed on top of it when it lands.
package controller

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/aanand-mishra/students-console/internal/client"
	"github.com/aanand-mishra/students-console/internal/types"
	"github.com/aanand-mishra/students-console/internal/ui/cache"
	"github.com/aanand-mishra/students-console/internal/ui/i18n"
	"github.com/aanand-mishra/students-console/internal/ui/viewmodel"
)

var (
	// ErrInvalidForm is returned by Submit when the form is incomplete;
	// no request is sent.
	ErrInvalidForm = errors.New("form is incomplete")

	// ErrNotCached is returned when an action names a record the cache
	// does not hold.
	ErrNotCached = errors.New("student is not in the current view")

	// ErrNoPendingDelete is returned by ConfirmDelete when nothing is
	// awaiting confirmation.
	ErrNoPendingDelete = errors.New("no delete is awaiting confirmation")
)

// API is the remote collection resource. *client.Client implements it.
type API interface {
	List(ctx context.Context) ([]types.Student, error)
	Search(ctx context.Context, query string) ([]types.Student, error)
	ByAgeRange(ctx context.Context, minAge, maxAge *int) ([]types.Student, error)
	Create(ctx context.Context, draft types.Draft) (types.Student, error)
	Update(ctx context.Context, id int64, draft types.Draft) (types.Student, error)
	Delete(ctx context.Context, id int64) error
}

// Notifier shows transient messages.
type Notifier interface {
	Success(msg string)
	Error(msg string)
}

// Form is the create/update modal.
type Form interface {
	OpenForm(title string, values viewmodel.FormValues)
	CloseForm()
	ClearForm()
	FormValues() viewmodel.FormValues
}

// Confirmation is the delete confirmation modal.
type Confirmation interface {
	AskDelete(id int64, name string)
	DismissDelete()
	PendingDelete() (int64, bool)
}

// Indicators are the busy flag and the result badges.
type Indicators interface {
	SetBusy(busy bool)
	SetNoResults(noResults bool)
	SetSearchCount(n int)
	SetFilteredCount(n int)
	ClearCounts(search, filtered bool)
}

// Details is the read-only details panel.
type Details interface {
	ShowDetails(s types.Student)
}

// Widgets groups the surfaces the controller drives.
type Widgets struct {
	Notifier     Notifier
	Form         Form
	Confirmation Confirmation
	Indicators   Indicators
	Details      Details
}

// PageWidgets wires every surface to one view-model page.
func PageWidgets(p *viewmodel.Page) Widgets {
	return Widgets{
		Notifier:     p,
		Form:         p,
		Confirmation: p,
		Indicators:   p,
		Details:      p,
	}
}

// Controller is safe for concurrent use.
type Controller struct {
	api      API
	cache    *cache.Cache
	ui       Widgets
	l        i18n.Localizer
	logger   *slog.Logger
	metrics  *metrics
	validate *validator.Validate

	seq atomic.Uint64

	busyMu sync.Mutex
	busy   int
}

// New creates a controller. reg may be nil.
func New(api API, c *cache.Cache, ui Widgets, l i18n.Localizer, logger *slog.Logger, reg prometheus.Registerer) *Controller {
	return &Controller{
		api:      api,
		cache:    c,
		ui:       ui,
		l:        l,
		logger:   logger.With(slog.String("component", "controller")),
		metrics:  newMetrics(reg),
		validate: validator.New(),
	}
}

// ticket identifies one issued operation.
type ticket struct {
	op      string
	seq     uint64
	started time.Time
}

// begin issues a ticket and raises the busy indicator. Every operation,
// read or write, holds the indicator until it ends.
func (c *Controller) begin(op string) ticket {
	c.busyMu.Lock()
	c.busy++
	c.ui.Indicators.SetBusy(true)
	c.busyMu.Unlock()
	c.metrics.inFlight.Inc()

	return ticket{op: op, seq: c.seq.Add(1), started: time.Now()}
}

func (c *Controller) end() {
	c.metrics.inFlight.Dec()
	c.busyMu.Lock()
	defer c.busyMu.Unlock()
	c.busy--
	if c.busy == 0 {
		c.ui.Indicators.SetBusy(false)
	}
}

// Busy reports whether any operation is waiting for the API.
func (c *Controller) Busy() bool {
	c.busyMu.Lock()
	defer c.busyMu.Unlock()
	return c.busy > 0
}

// ── Reads ───────────────────────────────────────────────────────────────────

// LoadAll replaces the cache with the full collection.
func (c *Controller) LoadAll(ctx context.Context) error {
	t := c.begin("load_all")
	defer c.end()

	records, err := c.api.List(ctx)
	if err != nil {
		c.failed(t, err)
		c.ui.Notifier.Error(c.l.Tf("msg.load_failed", c.describe(err)))
		return err
	}

	if !c.apply(t, cache.ViewAll, records) {
		return nil
	}
	c.ui.Indicators.SetNoResults(false)
	c.ui.Indicators.ClearCounts(true, true)
	return nil
}

// Search shows the students whose name contains query. A blank query
// shows everyone.
func (c *Controller) Search(ctx context.Context, query string) error {
	query = strings.TrimSpace(query)
	if query == "" {
		return c.LoadAll(ctx)
	}

	t := c.begin("search")
	defer c.end()

	records, err := c.api.Search(ctx, query)
	if err != nil {
		c.failed(t, err)
		c.ui.Notifier.Error(c.l.Tf("msg.search_failed", c.describe(err)))
		return err
	}

	if !c.apply(t, cache.ViewSearch, records) {
		return nil
	}
	c.ui.Indicators.SetNoResults(len(records) == 0)
	c.ui.Indicators.SetSearchCount(len(records))
	c.ui.Indicators.ClearCounts(false, true)
	return nil
}

// FilterByAgeRange shows the students within the given bounds. Either
// bound may be nil; with both nil it shows everyone.
func (c *Controller) FilterByAgeRange(ctx context.Context, minAge, maxAge *int) error {
	if minAge == nil && maxAge == nil {
		return c.LoadAll(ctx)
	}

	t := c.begin("filter")
	defer c.end()

	records, err := c.api.ByAgeRange(ctx, minAge, maxAge)
	if err != nil {
		c.failed(t, err)
		c.ui.Notifier.Error(c.l.Tf("msg.filter_failed", c.describe(err)))
		return err
	}

	if !c.apply(t, cache.ViewFilter, records) {
		return nil
	}
	c.ui.Indicators.SetNoResults(len(records) == 0)
	c.ui.Indicators.SetFilteredCount(len(records))
	c.ui.Indicators.ClearCounts(true, false)
	return nil
}

// apply installs a read result, reporting false when it arrived too late.
func (c *Controller) apply(t ticket, view cache.View, records []types.Student) bool {
	if !c.cache.Replace(view, records, t.seq) {
		c.metrics.observe(t.op, outcomeStale, t.started)
		c.logger.Debug("discarded stale response",
			slog.String("op", t.op),
			slog.Uint64("seq", t.seq),
		)
		return false
	}
	c.succeeded(t, slog.Int("records", len(records)), slog.String("view", view.String()))
	return true
}

// ── Writes ──────────────────────────────────────────────────────────────────

// Create stores a new student and appends the server's record (with its
// assigned id and timestamps) to the cache.
func (c *Controller) Create(ctx context.Context, draft types.Draft) error {
	t := c.begin("create")
	defer c.end()

	created, err := c.api.Create(ctx, draft)
	if err != nil {
		c.failed(t, err)
		c.ui.Notifier.Error(c.writeMessage(err, "msg.create_failed"))
		return err
	}

	c.cache.Append(created, t.seq)
	c.succeeded(t, slog.Int64("id", created.ID))
	c.ui.Notifier.Success(c.l.T("msg.created"))
	c.ui.Form.CloseForm()
	c.ui.Form.ClearForm()
	return nil
}

// Update replaces student id and swaps the server's record into the
// cache.
func (c *Controller) Update(ctx context.Context, id int64, draft types.Draft) error {
	t := c.begin("update")
	defer c.end()

	updated, err := c.api.Update(ctx, id, draft)
	if err != nil {
		c.failed(t, err, slog.Int64("id", id))
		c.ui.Notifier.Error(c.writeMessage(err, "msg.update_failed"))
		return err
	}

	c.cache.ReplaceByID(updated, t.seq)
	c.succeeded(t, slog.Int64("id", id))
	c.ui.Notifier.Success(c.l.T("msg.updated"))
	c.ui.Form.CloseForm()
	c.ui.Form.ClearForm()
	return nil
}

// Delete removes student id. On failure the confirmation stays open so
// the operator can retry.
func (c *Controller) Delete(ctx context.Context, id int64) error {
	t := c.begin("delete")
	defer c.end()

	if err := c.api.Delete(ctx, id); err != nil {
		c.failed(t, err, slog.Int64("id", id))
		reason, ok := client.ServerMessage(err)
		if !ok {
			reason = c.l.T("msg.delete_fallback")
		}
		c.ui.Notifier.Error(c.l.Tf("msg.delete_failed", reason))
		return err
	}

	c.cache.RemoveByID(id, t.seq)
	c.succeeded(t, slog.Int64("id", id))
	c.ui.Notifier.Success(c.l.T("msg.deleted"))
	c.ui.Confirmation.DismissDelete()
	return nil
}

// ── Form and modal actions ──────────────────────────────────────────────────

// ShowAddForm opens an empty form for a new student.
func (c *Controller) ShowAddForm() {
	c.ui.Form.OpenForm(c.l.T("form.title.create"), viewmodel.FormValues{})
}

// Edit opens the form prefilled with the cached record id.
func (c *Controller) Edit(id int64) error {
	s, ok := c.cache.Find(id)
	if !ok {
		c.ui.Notifier.Error(c.l.T("msg.not_found"))
		return ErrNotCached
	}

	c.ui.Form.OpenForm(c.l.T("form.title.update"), viewmodel.FormValues{
		ID:      strconv.FormatInt(s.ID, 10),
		Name:    s.Name,
		Email:   s.Email,
		Age:     strconv.Itoa(s.Age),
		Address: s.AddressOr(""),
	})
	return nil
}

// Details shows the cached record id.
func (c *Controller) Details(id int64) error {
	s, ok := c.cache.Find(id)
	if !ok {
		c.ui.Notifier.Error(c.l.T("msg.not_found"))
		return ErrNotCached
	}
	c.ui.Details.ShowDetails(s)
	return nil
}

// Submit reads the form and creates or updates depending on whether it
// carries an id. An incomplete form (blank name or email, non-numeric
// age) is rejected before any request is made.
func (c *Controller) Submit(ctx context.Context) error {
	values := c.ui.Form.FormValues()
	values.ID = strings.TrimSpace(values.ID)
	values.Name = strings.TrimSpace(values.Name)
	values.Email = strings.TrimSpace(values.Email)
	values.Age = strings.TrimSpace(values.Age)

	if err := c.validate.Struct(values); err != nil {
		c.logger.Debug("form rejected", slog.String("error", err.Error()))
		c.ui.Notifier.Error(c.l.T("form.invalid"))
		return ErrInvalidForm
	}

	age, err := strconv.Atoi(values.Age)
	if err != nil {
		c.ui.Notifier.Error(c.l.T("form.invalid"))
		return ErrInvalidForm
	}

	draft := types.Draft{
		Name:    values.Name,
		Email:   values.Email,
		Age:     age,
		Address: values.Address,
	}.Normalize()

	if values.ID == "" {
		return c.Create(ctx, draft)
	}

	id, err := strconv.ParseInt(values.ID, 10, 64)
	if err != nil {
		c.ui.Notifier.Error(c.l.T("form.invalid"))
		return ErrInvalidForm
	}
	return c.Update(ctx, id, draft)
}

// RequestDelete asks the operator to confirm deleting the cached record id.
func (c *Controller) RequestDelete(id int64) error {
	s, ok := c.cache.Find(id)
	if !ok {
		c.ui.Notifier.Error(c.l.T("msg.not_found"))
		return ErrNotCached
	}
	c.ui.Confirmation.AskDelete(s.ID, s.Name)
	return nil
}

// ConfirmDelete deletes the record awaiting confirmation.
func (c *Controller) ConfirmDelete(ctx context.Context) error {
	id, ok := c.ui.Confirmation.PendingDelete()
	if !ok {
		c.ui.Notifier.Error(c.l.T("msg.no_pending_delete"))
		return ErrNoPendingDelete
	}
	return c.Delete(ctx, id)
}

// ── Outcomes ────────────────────────────────────────────────────────────────

func (c *Controller) succeeded(t ticket, attrs ...any) {
	c.metrics.observe(t.op, outcomeOK, t.started)
	c.metrics.records.Set(float64(c.cache.Len()))

	args := append([]any{
		slog.String("op", t.op),
		slog.Uint64("seq", t.seq),
		slog.Duration("took", time.Since(t.started)),
	}, attrs...)
	c.logger.Info("operation succeeded", args...)
}

func (c *Controller) failed(t ticket, err error, attrs ...any) {
	outcome := outcomeError
	var (
		network   *client.NetworkError
		rejection *client.RejectionError
	)
	switch {
	case errors.As(err, &network):
		outcome = outcomeNetwork
	case errors.As(err, &rejection):
		outcome = outcomeRejected
		attrs = append(attrs, slog.Int("status", rejection.StatusCode))
	}
	c.metrics.observe(t.op, outcome, t.started)

	args := append([]any{
		slog.String("op", t.op),
		slog.Uint64("seq", t.seq),
		slog.String("outcome", outcome),
		slog.String("error", err.Error()),
	}, attrs...)
	c.logger.Warn("operation failed", args...)
}

// describe turns a read failure into the text shown after the localized
// prefix.
func (c *Controller) describe(err error) string {
	var network *client.NetworkError
	if errors.As(err, &network) {
		return c.l.T("msg.network")
	}
	return err.Error()
}

// writeMessage prefers the server's own words; create and update show
// them verbatim.
func (c *Controller) writeMessage(err error, fallbackKey string) string {
	if msg, ok := client.ServerMessage(err); ok {
		return msg
	}
	return c.l.T(fallbackKey)
}
