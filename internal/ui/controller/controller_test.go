package controller

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/assert/v2"

	"github.com/aanand-mishra/students-console/internal/client"
	"github.com/aanand-mishra/students-console/internal/logging"
	"github.com/aanand-mishra/students-console/internal/types"
	"github.com/aanand-mishra/students-console/internal/ui/cache"
	"github.com/aanand-mishra/students-console/internal/ui/i18n"
	"github.com/aanand-mishra/students-console/internal/ui/viewmodel"
)

// fakeAPI answers from canned values and records what it was asked.
type fakeAPI struct {
	mu sync.Mutex

	list    []types.Student
	found   []types.Student
	created types.Student
	updated types.Student
	err     error

	// gate, when set, blocks the next List until it is closed; started
	// is closed once that List has been issued.
	gate    chan struct{}
	started chan struct{}

	calls   []string
	drafts  []types.Draft
	deleted []int64
}

func (f *fakeAPI) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeAPI) List(ctx context.Context) ([]types.Student, error) {
	f.mu.Lock()
	f.calls = append(f.calls, "list")
	gate := f.gate
	f.gate = nil
	f.mu.Unlock()

	if gate != nil {
		close(f.started)
		<-gate
	}
	return f.list, f.err
}

func (f *fakeAPI) Search(ctx context.Context, query string) ([]types.Student, error) {
	f.record("search:" + query)
	return f.found, f.err
}

func (f *fakeAPI) ByAgeRange(ctx context.Context, minAge, maxAge *int) ([]types.Student, error) {
	f.record("age-range")
	return f.found, f.err
}

func (f *fakeAPI) Create(ctx context.Context, draft types.Draft) (types.Student, error) {
	f.write("create", draft)
	return f.created, f.err
}

func (f *fakeAPI) Update(ctx context.Context, id int64, draft types.Draft) (types.Student, error) {
	f.write("update", draft)
	return f.updated, f.err
}

func (f *fakeAPI) write(call string, draft types.Draft) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
	f.drafts = append(f.drafts, draft)
}

func (f *fakeAPI) Delete(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "delete")
	if f.err == nil {
		f.deleted = append(f.deleted, id)
	}
	return f.err
}

func student(id int64, name string, age int) types.Student {
	return types.Student{ID: id, Name: name, Email: name + "@example.com", Age: age}
}

type fixture struct {
	api   *fakeAPI
	cache *cache.Cache
	page  *viewmodel.Page
	ctrl  *Controller
}

func setup(t *testing.T, api *fakeAPI) fixture {
	t.Helper()
	bundle, err := i18n.Load(logging.Discard())
	assert.Equal(t, nil, err)

	c := cache.New()
	page := viewmodel.NewPage()
	ctrl := New(api, c, PageWidgets(page), bundle.Localizer("en"), logging.Discard(), nil)
	return fixture{api: api, cache: c, page: page, ctrl: ctrl}
}

func (f fixture) notification(t *testing.T) viewmodel.Notification {
	t.Helper()
	n := f.page.State().Notification
	if n == nil {
		t.Fatal("expected a notification")
	}
	return *n
}

func TestLoadAll(t *testing.T) {
	f := setup(t, &fakeAPI{list: []types.Student{student(1, "ali", 20), student(2, "ayse", 22)}})

	assert.Equal(t, nil, f.ctrl.LoadAll(context.Background()))
	snap := f.cache.Snapshot()
	assert.Equal(t, cache.ViewAll, snap.View)
	assert.Equal(t, 2, len(snap.Records))
	assert.Equal(t, false, f.page.State().Indicators.NoResults)
	assert.Equal(t, false, f.page.State().Indicators.Busy)
}

func TestLoadAll_FailureKeepsCache(t *testing.T) {
	api := &fakeAPI{list: []types.Student{student(1, "ali", 20)}}
	f := setup(t, api)
	f.ctrl.LoadAll(context.Background())
	before := f.cache.Snapshot().Records

	api.err = &client.NetworkError{Op: "List", Err: errors.New("connection refused")}
	err := f.ctrl.LoadAll(context.Background())
	assert.NotEqual(t, nil, err)

	assert.Equal(t, true, reflect.DeepEqual(before, f.cache.Snapshot().Records))
	n := f.notification(t)
	assert.Equal(t, viewmodel.NotifyError, n.Kind)
	assert.Equal(t, "Error while loading students: The server could not be reached", n.Message)
}

func TestSearch_NoResultsIsDistinctFromEmpty(t *testing.T) {
	f := setup(t, &fakeAPI{list: []types.Student{}, found: []types.Student{}})

	f.ctrl.LoadAll(context.Background())
	assert.Equal(t, false, f.page.State().Indicators.NoResults)

	assert.Equal(t, nil, f.ctrl.Search(context.Background(), "xyz"))
	state := f.page.State()
	assert.Equal(t, true, state.Indicators.NoResults)
	assert.Equal(t, 0, *state.Indicators.SearchCount)
	assert.Equal(t, cache.ViewSearch, f.cache.Snapshot().View)
	// no error notification for an empty answer
	assert.Equal(t, true, state.Notification == nil)
}

func TestSearch_BlankQueryLoadsAll(t *testing.T) {
	api := &fakeAPI{list: []types.Student{student(1, "ali", 20)}}
	f := setup(t, api)

	f.ctrl.Search(context.Background(), "   ")
	assert.Equal(t, []string{"list"}, api.calls)
}

func TestFilterByAgeRange(t *testing.T) {
	api := &fakeAPI{found: []types.Student{student(3, "can", 30)}}
	f := setup(t, api)

	minAge := 25
	assert.Equal(t, nil, f.ctrl.FilterByAgeRange(context.Background(), &minAge, nil))
	assert.Equal(t, cache.ViewFilter, f.cache.Snapshot().View)
	assert.Equal(t, 1, *f.page.State().Indicators.FilteredCount)

	// both bounds absent behaves as a full load
	f.ctrl.FilterByAgeRange(context.Background(), nil, nil)
	assert.Equal(t, []string{"age-range", "list"}, api.calls)
}

func TestCreate_AppendsServerRecord(t *testing.T) {
	created := student(10, "zeynep", 25)
	created.CreatedAt = types.NewTimestamp(time.Date(2024, time.May, 2, 10, 0, 0, 0, time.UTC))
	api := &fakeAPI{list: []types.Student{student(1, "ali", 20)}, created: created}
	f := setup(t, api)
	f.ctrl.LoadAll(context.Background())
	f.ctrl.ShowAddForm()

	draft := types.Draft{Name: "zeynep", Email: "typed@example.com", Age: 25}
	assert.Equal(t, nil, f.ctrl.Create(context.Background(), draft))

	snap := f.cache.Snapshot()
	assert.Equal(t, 2, len(snap.Records))
	assert.Equal(t, true, reflect.DeepEqual(created, snap.Records[1]))

	state := f.page.State()
	assert.Equal(t, false, state.Form.Open)
	assert.Equal(t, viewmodel.FormValues{}, state.Form.Values)
	assert.Equal(t, "Student added successfully!", state.Notification.Message)
}

func TestCreate_RejectionKeepsFormAndCache(t *testing.T) {
	api := &fakeAPI{list: []types.Student{student(1, "ali", 20)}}
	f := setup(t, api)
	f.ctrl.LoadAll(context.Background())
	before := f.cache.Snapshot().Records

	values := viewmodel.FormValues{Name: "ali", Email: "ali@example.com", Age: "20"}
	f.page.OpenForm("Add New Student", values)

	api.err = &client.RejectionError{Op: "Create", StatusCode: 409, Message: "Email already exists: ali@example.com"}
	assert.NotEqual(t, nil, f.ctrl.Submit(context.Background()))

	assert.Equal(t, true, reflect.DeepEqual(before, f.cache.Snapshot().Records))
	state := f.page.State()
	assert.Equal(t, true, state.Form.Open)
	assert.Equal(t, values, state.Form.Values)
	assert.Equal(t, "Email already exists: ali@example.com", state.Notification.Message)
}

func TestCreate_FallbackMessage(t *testing.T) {
	api := &fakeAPI{err: &client.RejectionError{Op: "Create", StatusCode: 500}}
	f := setup(t, api)

	f.ctrl.Create(context.Background(), types.Draft{Name: "ali", Email: "a@b.co", Age: 20})
	assert.Equal(t, "Error while adding the student", f.notification(t).Message)
}

func TestUpdate_ReplacesOnlyMatch(t *testing.T) {
	updated := student(2, "ayse-updated", 23)
	api := &fakeAPI{
		list:    []types.Student{student(1, "ali", 20), student(2, "ayse", 22), student(3, "can", 30)},
		updated: updated,
	}
	f := setup(t, api)
	f.ctrl.LoadAll(context.Background())
	before := f.cache.Snapshot().Records

	assert.Equal(t, nil, f.ctrl.Update(context.Background(), 2, types.Draft{Name: "ayse-updated", Email: "x@y.co", Age: 23}))

	after := f.cache.Snapshot().Records
	assert.Equal(t, 3, len(after))
	assert.Equal(t, before[0], after[0])
	assert.Equal(t, updated, after[1])
	assert.Equal(t, before[2], after[2])
	assert.Equal(t, "Student updated successfully!", f.notification(t).Message)
}

func TestUpdate_RejectionKeepsFormAndCache(t *testing.T) {
	api := &fakeAPI{list: []types.Student{student(1, "ali", 20), student(2, "ayse", 22)}}
	f := setup(t, api)
	f.ctrl.LoadAll(context.Background())
	before := f.cache.Snapshot().Records

	assert.Equal(t, nil, f.ctrl.Edit(1))
	values := viewmodel.FormValues{ID: "1", Name: "ali", Email: "ayse@example.com", Age: "21"}
	f.page.SetFormValues(values)

	api.err = &client.RejectionError{Op: "Update", StatusCode: 409, Message: "Email already exists: ayse@example.com"}
	assert.NotEqual(t, nil, f.ctrl.Submit(context.Background()))

	assert.Equal(t, true, reflect.DeepEqual(before, f.cache.Snapshot().Records))
	state := f.page.State()
	assert.Equal(t, true, state.Form.Open)
	assert.Equal(t, values, state.Form.Values)
	assert.Equal(t, "Email already exists: ayse@example.com", state.Notification.Message)

	// without a server message the localized fallback is used
	api.err = &client.NetworkError{Op: "Update", Err: errors.New("timeout")}
	f.ctrl.Submit(context.Background())
	assert.Equal(t, "Error while updating the student", f.notification(t).Message)
	assert.Equal(t, true, reflect.DeepEqual(before, f.cache.Snapshot().Records))
}

func TestDelete_ConfirmFlow(t *testing.T) {
	api := &fakeAPI{list: []types.Student{student(1, "ali", 20), student(2, "ayse", 22)}}
	f := setup(t, api)
	f.ctrl.LoadAll(context.Background())

	assert.Equal(t, nil, f.ctrl.RequestDelete(2))
	confirm := f.page.State().Confirm
	assert.Equal(t, true, confirm.Open)
	assert.Equal(t, "ayse", confirm.Name)

	assert.Equal(t, nil, f.ctrl.ConfirmDelete(context.Background()))
	assert.Equal(t, []int64{2}, api.deleted)
	assert.Equal(t, 1, f.cache.Len())
	_, ok := f.cache.Find(2)
	assert.Equal(t, false, ok)
	assert.Equal(t, false, f.page.State().Confirm.Open)
	assert.Equal(t, "Student deleted successfully!", f.notification(t).Message)
}

func TestDelete_FailureKeepsConfirmation(t *testing.T) {
	api := &fakeAPI{list: []types.Student{student(1, "ali", 20)}}
	f := setup(t, api)
	f.ctrl.LoadAll(context.Background())
	f.ctrl.RequestDelete(1)
	before := f.cache.Snapshot().Records

	api.err = &client.RejectionError{Op: "Delete", StatusCode: 404, Message: "Student not found with id: 1"}
	assert.NotEqual(t, nil, f.ctrl.ConfirmDelete(context.Background()))

	assert.Equal(t, true, reflect.DeepEqual(before, f.cache.Snapshot().Records))
	assert.Equal(t, true, f.page.State().Confirm.Open)
	assert.Equal(t, "Delete failed: Student not found with id: 1", f.notification(t).Message)

	// without a server message the localized fallback is used
	api.err = &client.NetworkError{Op: "Delete", Err: errors.New("timeout")}
	f.ctrl.ConfirmDelete(context.Background())
	assert.Equal(t, "Delete failed: Error while deleting the student", f.notification(t).Message)
}

func TestDelete_AbsentIDLeavesLength(t *testing.T) {
	api := &fakeAPI{list: []types.Student{student(1, "ali", 20)}}
	f := setup(t, api)
	f.ctrl.LoadAll(context.Background())

	assert.Equal(t, nil, f.ctrl.Delete(context.Background(), 99))
	assert.Equal(t, 1, f.cache.Len())
}

func TestConfirmDelete_NothingPending(t *testing.T) {
	api := &fakeAPI{}
	f := setup(t, api)

	assert.Equal(t, ErrNoPendingDelete, f.ctrl.ConfirmDelete(context.Background()))
	assert.Equal(t, 0, len(api.calls))
	assert.Equal(t, "Student ID not found! Please try again.", f.notification(t).Message)
}

func TestSubmit_GatesIncompleteForm(t *testing.T) {
	tests := []struct {
		name   string
		values viewmodel.FormValues
	}{
		{"blank name", viewmodel.FormValues{Name: "  ", Email: "a@b.co", Age: "20"}},
		{"blank email", viewmodel.FormValues{Name: "ali", Age: "20"}},
		{"non-numeric age", viewmodel.FormValues{Name: "ali", Email: "a@b.co", Age: "twenty"}},
		{"missing age", viewmodel.FormValues{Name: "ali", Email: "a@b.co"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &fakeAPI{}
			f := setup(t, api)
			f.page.OpenForm("Add New Student", tt.values)

			assert.Equal(t, ErrInvalidForm, f.ctrl.Submit(context.Background()))
			assert.Equal(t, 0, len(api.calls))
			assert.Equal(t, true, f.page.State().Form.Open)
		})
	}
}

func TestSubmit_DispatchesByID(t *testing.T) {
	api := &fakeAPI{
		list:    []types.Student{student(4, "ali", 20)},
		created: student(5, "new", 30),
		updated: student(4, "ali", 21),
	}
	f := setup(t, api)
	f.ctrl.LoadAll(context.Background())

	f.page.OpenForm("Add New Student", viewmodel.FormValues{Name: " new ", Email: "n@b.co", Age: "30", Address: " Izmir "})
	assert.Equal(t, nil, f.ctrl.Submit(context.Background()))

	assert.Equal(t, nil, f.ctrl.Edit(4))
	assert.Equal(t, "4", f.page.FormValues().ID)
	f.page.SetFormValues(viewmodel.FormValues{ID: "4", Name: "ali", Email: "ali@example.com", Age: "21"})
	assert.Equal(t, nil, f.ctrl.Submit(context.Background()))

	assert.Equal(t, []string{"list", "create", "update"}, api.calls)
	assert.Equal(t, types.Draft{Name: "new", Email: "n@b.co", Age: 30, Address: "Izmir"}, api.drafts[0])
	assert.Equal(t, 21, api.drafts[1].Age)
}

func TestEditAndDetails_UnknownID(t *testing.T) {
	f := setup(t, &fakeAPI{})

	assert.Equal(t, ErrNotCached, f.ctrl.Edit(7))
	assert.Equal(t, "Student not found!", f.notification(t).Message)
	assert.Equal(t, ErrNotCached, f.ctrl.Details(7))
	assert.Equal(t, ErrNotCached, f.ctrl.RequestDelete(7))
}

func TestDetails(t *testing.T) {
	f := setup(t, &fakeAPI{list: []types.Student{student(1, "ali", 20)}})
	f.ctrl.LoadAll(context.Background())

	assert.Equal(t, nil, f.ctrl.Details(1))
	assert.Equal(t, "ali", f.page.State().Details.Name)
}

// A read issued before a later search must not overwrite the search
// results when it completes last.
func TestStaleReadIsDiscarded(t *testing.T) {
	gate := make(chan struct{})
	api := &fakeAPI{
		list:    []types.Student{student(1, "ali", 20), student(2, "ayse", 22)},
		found:   []types.Student{student(2, "ayse", 22)},
		gate:    gate,
		started: make(chan struct{}),
	}
	f := setup(t, api)

	done := make(chan error)
	go func() { done <- f.ctrl.LoadAll(context.Background()) }()
	<-api.started
	assert.Equal(t, true, f.ctrl.Busy())

	assert.Equal(t, nil, f.ctrl.Search(context.Background(), "ayse"))
	// the load is still in flight, so the page stays busy
	assert.Equal(t, true, f.page.State().Indicators.Busy)

	close(gate)
	assert.Equal(t, nil, <-done)

	snap := f.cache.Snapshot()
	assert.Equal(t, cache.ViewSearch, snap.View)
	assert.Equal(t, 1, len(snap.Records))
	assert.Equal(t, false, f.page.State().Indicators.Busy)
}

// A create that completes while the first load is in flight must not
// hide the loaded rows, nor be lost when the load lands.
func TestCreateDuringLoad_KeepsBoth(t *testing.T) {
	gate := make(chan struct{})
	api := &fakeAPI{
		list:    []types.Student{student(1, "ali", 20), student(2, "ayse", 22), student(3, "can", 30)},
		created: student(4, "zeynep", 25),
		gate:    gate,
		started: make(chan struct{}),
	}
	f := setup(t, api)

	done := make(chan error)
	go func() { done <- f.ctrl.LoadAll(context.Background()) }()
	<-api.started

	assert.Equal(t, nil, f.ctrl.Create(context.Background(), types.Draft{Name: "zeynep", Email: "z@example.com", Age: 25}))
	assert.Equal(t, 1, f.cache.Len())

	close(gate)
	assert.Equal(t, nil, <-done)

	snap := f.cache.Snapshot()
	assert.Equal(t, cache.ViewAll, snap.View)
	assert.Equal(t, 4, len(snap.Records))
	assert.Equal(t, int64(4), snap.Records[3].ID)
}

// A delete that completes while a load is in flight must not come back
// when the load lands.
func TestDeleteDuringLoad_StaysDeleted(t *testing.T) {
	api := &fakeAPI{list: []types.Student{student(1, "ali", 20), student(2, "ayse", 22)}}
	f := setup(t, api)
	f.ctrl.LoadAll(context.Background())

	gate := make(chan struct{})
	api.mu.Lock()
	api.gate = gate
	api.started = make(chan struct{})
	api.mu.Unlock()

	done := make(chan error)
	go func() { done <- f.ctrl.LoadAll(context.Background()) }()
	<-api.started

	assert.Equal(t, nil, f.ctrl.Delete(context.Background(), 1))
	close(gate)
	assert.Equal(t, nil, <-done)

	_, ok := f.cache.Find(1)
	assert.Equal(t, false, ok)
	assert.Equal(t, 1, f.cache.Len())
}

func TestResultCounts_ClearedWhenViewChanges(t *testing.T) {
	api := &fakeAPI{
		list:  []types.Student{student(1, "ali", 20), student(2, "ayse", 22)},
		found: []types.Student{student(2, "ayse", 22)},
	}
	f := setup(t, api)
	ctx := context.Background()

	f.ctrl.Search(ctx, "ayse")
	assert.Equal(t, 1, *f.page.State().Indicators.SearchCount)

	minAge := 21
	f.ctrl.FilterByAgeRange(ctx, &minAge, nil)
	indicators := f.page.State().Indicators
	assert.Equal(t, true, indicators.SearchCount == nil)
	assert.Equal(t, 1, *indicators.FilteredCount)

	f.ctrl.Search(ctx, "ayse")
	indicators = f.page.State().Indicators
	assert.Equal(t, true, indicators.FilteredCount == nil)
	assert.Equal(t, 1, *indicators.SearchCount)

	f.ctrl.LoadAll(ctx)
	indicators = f.page.State().Indicators
	assert.Equal(t, true, indicators.SearchCount == nil)
	assert.Equal(t, true, indicators.FilteredCount == nil)
}
