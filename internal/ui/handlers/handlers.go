// Package handlers is the web surface of the console: one chi router
// that renders the page from the view-model and turns form posts into
// controller operations.
//
// Every mutating action answers with 303 See Other back to "/", so a
// browser refresh never repeats a write.
package handlers

import (
	"bytes"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aanand-mishra/students-console/internal/http/middleware"
	"github.com/aanand-mishra/students-console/internal/ui/cache"
	"github.com/aanand-mishra/students-console/internal/ui/controller"
	"github.com/aanand-mishra/students-console/internal/ui/i18n"
	"github.com/aanand-mishra/students-console/internal/ui/render"
	"github.com/aanand-mishra/students-console/internal/ui/viewmodel"
)

// Console serves one operator's page.
type Console struct {
	ctrl     *controller.Controller
	page     *viewmodel.Page
	cache    *cache.Cache
	renderer *render.Renderer
	l        i18n.Localizer
	logger   *slog.Logger
}

// NewConsole creates the console handlers.
func NewConsole(
	ctrl *controller.Controller,
	page *viewmodel.Page,
	c *cache.Cache,
	renderer *render.Renderer,
	l i18n.Localizer,
	logger *slog.Logger,
) *Console {
	return &Console{
		ctrl:     ctrl,
		page:     page,
		cache:    c,
		renderer: renderer,
		l:        l,
		logger:   logger.With(slog.String("component", "ui.handlers")),
	}
}

// NewRouter registers the console routes:
//
//	GET  /                          → the page
//	GET  /partials/table            → statistics and table only
//	POST /reload                    → load all students
//	POST /search                    → search by name (q)
//	POST /filter                    → filter by age (minAge, maxAge)
//	POST /students/new              → open an empty form
//	POST /students/save             → submit the form
//	POST /students/{id}/edit        → open the form for a student
//	GET  /students/{id}             → the page with the details panel
//	POST /students/{id}/delete      → ask to confirm a delete
//	POST /students/delete/confirm   → delete the pending student
//	POST /dismiss                   → close the toast or a modal (target)
//	GET  /metrics                   → Prometheus metrics
func NewRouter(h *Console, logger *slog.Logger, reg *prometheus.Registry) http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.Logging(logger))
	router.Use(middleware.Metrics("students_console", reg))

	router.Get("/", h.HandlePage)
	router.Get("/partials/table", h.HandleTable)
	router.Post("/reload", h.HandleReload)
	router.Post("/search", h.HandleSearch)
	router.Post("/filter", h.HandleFilter)
	router.Post("/dismiss", h.HandleDismiss)

	router.Route("/students", func(r chi.Router) {
		r.Post("/new", h.HandleNew)
		r.Post("/save", h.HandleSave)
		r.Post("/delete/confirm", h.HandleConfirmDelete)
		r.Get("/{id}", h.HandleDetails)
		r.Post("/{id}/edit", h.HandleEdit)
		r.Post("/{id}/delete", h.HandleRequestDelete)
	})

	router.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	return router
}

// HandlePage handles GET /.
func (h *Console) HandlePage(w http.ResponseWriter, r *http.Request) {
	h.page.HideDetails()
	h.writePage(w)
}

// HandleTable handles GET /partials/table.
func (h *Console) HandleTable(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := h.renderer.TableBody(&buf, h.l, h.page.State(), h.cache.Snapshot().Records); err != nil {
		h.renderFailed(w, err)
		return
	}
	writeHTML(w, buf.Bytes())
}

// HandleReload handles POST /reload.
func (h *Console) HandleReload(w http.ResponseWriter, r *http.Request) {
	h.page.SetSearchInputs("", "", "")
	_ = h.ctrl.LoadAll(r.Context())
	backToPage(w, r)
}

// HandleSearch handles POST /search.
func (h *Console) HandleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.FormValue("q")
	h.page.SetSearchInputs(query, "", "")
	_ = h.ctrl.Search(r.Context(), query)
	backToPage(w, r)
}

// HandleFilter handles POST /filter. A blank bound is omitted.
func (h *Console) HandleFilter(w http.ResponseWriter, r *http.Request) {
	rawMin := strings.TrimSpace(r.FormValue("minAge"))
	rawMax := strings.TrimSpace(r.FormValue("maxAge"))
	h.page.SetSearchInputs("", rawMin, rawMax)

	minAge, okMin := optionalInt(rawMin)
	maxAge, okMax := optionalInt(rawMax)
	if !okMin || !okMax {
		h.page.Error(h.l.T("filter.invalid"))
		backToPage(w, r)
		return
	}

	_ = h.ctrl.FilterByAgeRange(r.Context(), minAge, maxAge)
	backToPage(w, r)
}

// HandleNew handles POST /students/new.
func (h *Console) HandleNew(w http.ResponseWriter, r *http.Request) {
	h.ctrl.ShowAddForm()
	backToPage(w, r)
}

// HandleSave handles POST /students/save.
func (h *Console) HandleSave(w http.ResponseWriter, r *http.Request) {
	h.page.SetFormValues(viewmodel.FormValues{
		ID:      r.FormValue("id"),
		Name:    r.FormValue("name"),
		Email:   r.FormValue("email"),
		Age:     r.FormValue("age"),
		Address: r.FormValue("address"),
	})
	_ = h.ctrl.Submit(r.Context())
	backToPage(w, r)
}

// HandleEdit handles POST /students/{id}/edit.
func (h *Console) HandleEdit(w http.ResponseWriter, r *http.Request) {
	if id, ok := h.pathID(r); ok {
		_ = h.ctrl.Edit(id)
	}
	backToPage(w, r)
}

// HandleDetails handles GET /students/{id}.
func (h *Console) HandleDetails(w http.ResponseWriter, r *http.Request) {
	h.page.HideDetails()
	if id, ok := h.pathID(r); ok {
		_ = h.ctrl.Details(id)
	}
	h.writePage(w)
}

// HandleRequestDelete handles POST /students/{id}/delete.
func (h *Console) HandleRequestDelete(w http.ResponseWriter, r *http.Request) {
	if id, ok := h.pathID(r); ok {
		_ = h.ctrl.RequestDelete(id)
	}
	backToPage(w, r)
}

// HandleConfirmDelete handles POST /students/delete/confirm.
func (h *Console) HandleConfirmDelete(w http.ResponseWriter, r *http.Request) {
	_ = h.ctrl.ConfirmDelete(r.Context())
	backToPage(w, r)
}

// HandleDismiss handles POST /dismiss. target names what to close:
// toast, form, confirm or details; anything else closes everything.
func (h *Console) HandleDismiss(w http.ResponseWriter, r *http.Request) {
	switch r.FormValue("target") {
	case "toast":
		h.page.DismissNotification()
	case "form":
		h.page.CloseForm()
		h.page.ClearForm()
	case "confirm":
		h.page.DismissDelete()
	case "details":
		h.page.HideDetails()
	default:
		h.page.DismissNotification()
		h.page.CloseForm()
		h.page.DismissDelete()
		h.page.HideDetails()
	}
	backToPage(w, r)
}

func (h *Console) writePage(w http.ResponseWriter) {
	var buf bytes.Buffer
	if err := h.renderer.Page(&buf, h.l, h.page.State(), h.cache.Snapshot().Records); err != nil {
		h.renderFailed(w, err)
		return
	}
	writeHTML(w, buf.Bytes())
}

func (h *Console) renderFailed(w http.ResponseWriter, err error) {
	h.logger.Error("render failed", slog.String("error", err.Error()))
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

// pathID parses {id}; a malformed id is reported like an unknown one.
func (h *Console) pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.page.Error(h.l.T("msg.not_found"))
		return 0, false
	}
	return id, true
}

func writeHTML(w http.ResponseWriter, body []byte) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func backToPage(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// optionalInt parses a bound; blank means absent.
func optionalInt(raw string) (*int, bool) {
	if raw == "" {
		return nil, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, false
	}
	return &v, true
}
