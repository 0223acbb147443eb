// Package viewmodel is the explicit state of the console page: toast,
// form modal, delete confirmation, details panel and the result
// indicators. The controller writes it through small interfaces; the
// render pipeline reads it through State.
//
// A Page is one operator's screen. It is safe for concurrent use since
// every HTTP request of the console runs on its own goroutine.
package viewmodel

import (
	"sync"

	"github.com/aanand-mishra/students-console/internal/types"
)

// NotificationKind distinguishes the two toasts.
type NotificationKind string

const (
	NotifySuccess NotificationKind = "success"
	NotifyError   NotificationKind = "error"
)

// Notification is a transient message. Seq increases with every new
// message so a view can tell a repeated text from a new one.
type Notification struct {
	Kind    NotificationKind
	Message string
	Seq     uint64
}

// FormValues are the raw inputs of the student form, as typed. ID is
// empty when the form creates a new student.
type FormValues struct {
	ID      string `validate:"omitempty,number"`
	Name    string `validate:"required"`
	Email   string `validate:"required"`
	Age     string `validate:"required,number"`
	Address string
}

// FormState describes the student form modal.
type FormState struct {
	Open   bool
	Title  string
	Values FormValues
}

// ConfirmState describes the delete confirmation modal.
type ConfirmState struct {
	Open bool
	ID   int64
	Name string
}

// Indicators are the small counters and flags around the table.
type Indicators struct {
	Busy          bool
	NoResults     bool
	SearchCount   *int
	FilteredCount *int
}

// State is a copy of everything on the page except the records.
type State struct {
	Notification *Notification
	Form         FormState
	Confirm      ConfirmState
	Details      *types.Student
	Indicators   Indicators
	Search       string
	MinAge       string
	MaxAge       string
}

// Page is the mutable view-model.
type Page struct {
	mu    sync.Mutex
	state State
	seq   uint64
}

// NewPage returns an empty page.
func NewPage() *Page {
	return &Page{}
}

// State copies the page.
func (p *Page) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := p.state
	if s.Notification != nil {
		n := *s.Notification
		s.Notification = &n
	}
	if s.Details != nil {
		d := *s.Details
		s.Details = &d
	}
	return s
}

// ── Notifier ────────────────────────────────────────────────────────────────

func (p *Page) Success(msg string) {
	p.notify(NotifySuccess, msg)
}

func (p *Page) Error(msg string) {
	p.notify(NotifyError, msg)
}

func (p *Page) notify(kind NotificationKind, msg string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seq++
	p.state.Notification = &Notification{Kind: kind, Message: msg, Seq: p.seq}
}

// DismissNotification hides the toast.
func (p *Page) DismissNotification() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state.Notification = nil
}

// ── Form ────────────────────────────────────────────────────────────────────

func (p *Page) OpenForm(title string, values FormValues) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state.Form = FormState{Open: true, Title: title, Values: values}
}

func (p *Page) CloseForm() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state.Form.Open = false
}

func (p *Page) ClearForm() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state.Form.Values = FormValues{}
}

func (p *Page) FormValues() FormValues {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state.Form.Values
}

// SetFormValues records what the operator typed before a submit.
func (p *Page) SetFormValues(values FormValues) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state.Form.Values = values
}

// ── Confirmation ────────────────────────────────────────────────────────────

func (p *Page) AskDelete(id int64, name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state.Confirm = ConfirmState{Open: true, ID: id, Name: name}
}

// DismissDelete closes the confirmation and forgets the pending id.
func (p *Page) DismissDelete() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state.Confirm = ConfirmState{}
}

func (p *Page) PendingDelete() (int64, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.state.Confirm.Open || p.state.Confirm.ID == 0 {
		return 0, false
	}
	return p.state.Confirm.ID, true
}

// ── Indicators ──────────────────────────────────────────────────────────────

func (p *Page) SetBusy(busy bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state.Indicators.Busy = busy
}

func (p *Page) SetNoResults(noResults bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state.Indicators.NoResults = noResults
}

func (p *Page) SetSearchCount(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state.Indicators.SearchCount = &n
}

func (p *Page) SetFilteredCount(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state.Indicators.FilteredCount = &n
}

// ClearCounts hides the result badges; search and filter select which.
func (p *Page) ClearCounts(search, filtered bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if search {
		p.state.Indicators.SearchCount = nil
	}
	if filtered {
		p.state.Indicators.FilteredCount = nil
	}
}

// ── Details and inputs ──────────────────────────────────────────────────────

func (p *Page) ShowDetails(s types.Student) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state.Details = &s
}

func (p *Page) HideDetails() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state.Details = nil
}

// SetSearchInputs remembers the search and filter inputs so the page
// shows what produced the current table.
func (p *Page) SetSearchInputs(search, minAge, maxAge string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state.Search = search
	p.state.MinAge = minAge
	p.state.MaxAge = maxAge
}
