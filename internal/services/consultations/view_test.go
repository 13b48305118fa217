package consultations

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAPI scripts ListPage responses and optionally blocks them so tests can
// control the order in which fetches complete
type fakeAPI struct {
	mu        sync.Mutex
	pages     []*ListPage
	listErr   error
	listCalls int
	gate      chan struct{}

	generateResp *GenerateReportsResponse
	generateErr  error
	generateIDs  []string

	deleteResp *DeleteResponse
	deleteErr  error
	deleteIDs  []string
}

func (f *fakeAPI) ListPage(req ListRequest) (*ListPage, error) {
	f.mu.Lock()
	call := f.listCalls
	f.listCalls++
	gate := f.gate
	err := f.listErr
	var page *ListPage
	if len(f.pages) > 0 {
		if call < len(f.pages) {
			page = f.pages[call]
		} else {
			page = f.pages[len(f.pages)-1]
		}
	}
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}
	if page == nil {
		return &ListPage{Page: req.Page, PageSize: req.PageSize}, nil
	}
	cp := *page
	cp.Items = append([]Consultation(nil), page.Items...)
	return &cp, nil
}

func (f *fakeAPI) GenerateReports(ids []string) (*GenerateReportsResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.generateIDs = ids
	if f.generateErr != nil {
		return nil, f.generateErr
	}
	if f.generateResp != nil {
		return f.generateResp, nil
	}
	return &GenerateReportsResponse{Triggered: len(ids), TriggeredIDs: ids}, nil
}

func (f *fakeAPI) DeleteMany(ids []string) (*DeleteResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteIDs = ids
	if f.deleteErr != nil {
		return nil, f.deleteErr
	}
	if f.deleteResp != nil {
		return f.deleteResp, nil
	}
	return &DeleteResponse{Deleted: len(ids), IDs: ids}, nil
}

func (f *fakeAPI) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls
}

func pageOf(items ...Consultation) *ListPage {
	return &ListPage{Items: items, Total: len(items), Page: 1, PageSize: 20}
}

func TestListViewLoad(t *testing.T) {
	t.Run("Should install the fetched page and clear the selection", func(t *testing.T) {
		fake := &fakeAPI{pages: []*ListPage{pageOf(
			Consultation{ID: "a", Status: StatusRegistered},
			Consultation{ID: "b", Status: StatusReportReady},
		)}}
		view := NewListView(fake, time.Hour, nil)
		defer view.Close()

		_, err := view.Load(ListRequest{Page: 1, PageSize: 20})
		require.NoError(t, err)
		view.ToggleSelect("a")

		state, err := view.Load(ListRequest{Page: 2, PageSize: 20})

		require.NoError(t, err)
		require.NotNil(t, state.Page)
		assert.Len(t, state.Page.Items, 2)
		assert.Empty(t, state.Selected)
		assert.False(t, state.Polling)
	})

	t.Run("Should start polling when the page has in-flight items", func(t *testing.T) {
		fake := &fakeAPI{pages: []*ListPage{pageOf(
			Consultation{ID: "a", Status: StatusProcessing},
		)}}
		view := NewListView(fake, time.Hour, nil)
		defer view.Close()

		state, err := view.Load(ListRequest{Page: 1})

		require.NoError(t, err)
		assert.True(t, state.Polling)
	})

	t.Run("Should stop polling once nothing is in flight", func(t *testing.T) {
		fake := &fakeAPI{pages: []*ListPage{
			pageOf(Consultation{ID: "a", Status: StatusReportGenerating}),
			pageOf(Consultation{ID: "a", Status: StatusReportReady}),
		}}
		view := NewListView(fake, time.Hour, nil)
		defer view.Close()

		_, err := view.Load(ListRequest{Page: 1})
		require.NoError(t, err)
		require.True(t, view.Polling())

		view.Refresh()
		assert.False(t, view.Polling())
	})

	t.Run("Should report fetch errors from an explicit load", func(t *testing.T) {
		fake := &fakeAPI{listErr: errors.New("connection refused")}
		view := NewListView(fake, time.Hour, nil)
		defer view.Close()

		state, err := view.Load(ListRequest{Page: 1})

		require.Error(t, err)
		assert.Contains(t, state.LastError, "connection refused")
	})
}

func TestListViewToggleSelect(t *testing.T) {
	t.Run("Should only select rows present on the current page", func(t *testing.T) {
		fake := &fakeAPI{pages: []*ListPage{pageOf(Consultation{ID: "a", Status: StatusRegistered})}}
		view := NewListView(fake, time.Hour, nil)
		defer view.Close()

		_, err := view.Load(ListRequest{Page: 1})
		require.NoError(t, err)

		state := view.ToggleSelect("ghost")
		assert.Empty(t, state.Selected)

		state = view.ToggleSelect("a")
		assert.Equal(t, []string{"a"}, state.Selected)
	})

	t.Run("Should ignore toggles before any page is loaded", func(t *testing.T) {
		view := NewListView(&fakeAPI{}, time.Hour, nil)
		defer view.Close()

		state := view.ToggleSelect("a")
		assert.Empty(t, state.Selected)
	})

	t.Run("Should never let an off-page ID reach a bulk delete", func(t *testing.T) {
		fake := &fakeAPI{pages: []*ListPage{pageOf(
			Consultation{ID: "a", Status: StatusRegistered},
			Consultation{ID: "b", Status: StatusReportSent},
		)}}
		view := NewListView(fake, time.Hour, nil)
		defer view.Close()

		_, err := view.Load(ListRequest{Page: 1})
		require.NoError(t, err)
		view.ToggleSelect("a")
		view.ToggleSelect("deleted-elsewhere")

		_, err = view.DeleteSelected(true)
		require.NoError(t, err)
		assert.Equal(t, []string{"a"}, fake.deleteIDs)
	})
}

func TestListViewStaleResponses(t *testing.T) {
	t.Run("Should discard a slow fetch that a newer load superseded", func(t *testing.T) {
		gate := make(chan struct{})
		fake := &fakeAPI{
			gate: gate,
			pages: []*ListPage{
				pageOf(Consultation{ID: "old", Status: StatusRegistered}),
				pageOf(Consultation{ID: "new", Status: StatusRegistered}),
			},
		}
		view := NewListView(fake, time.Hour, nil)
		defer view.Close()

		done := make(chan struct{})
		go func() {
			view.Refresh() // slow fetch, will return the "old" page
			close(done)
		}()
		require.Eventually(t, func() bool { return fake.calls() == 1 }, time.Second, time.Millisecond)

		loadDone := make(chan struct{})
		go func() {
			view.Load(ListRequest{Page: 2}) // newer load, returns the "new" page
			close(loadDone)
		}()
		require.Eventually(t, func() bool { return fake.calls() == 2 }, time.Second, time.Millisecond)

		// Let the newer load finish first, then release the stale refresh
		fake.mu.Lock()
		fake.gate = nil
		fake.mu.Unlock()
		close(gate)
		<-loadDone
		<-done

		state := view.Snapshot()
		require.NotNil(t, state.Page)
		require.Len(t, state.Page.Items, 1)
		assert.Equal(t, "new", state.Page.Items[0].ID)
	})

	t.Run("Should keep the last good page when a silent refresh fails", func(t *testing.T) {
		fake := &fakeAPI{pages: []*ListPage{pageOf(Consultation{ID: "a", Status: StatusReportReady})}}
		view := NewListView(fake, time.Hour, nil)
		defer view.Close()

		_, err := view.Load(ListRequest{Page: 1})
		require.NoError(t, err)

		fake.mu.Lock()
		fake.listErr = errors.New("backend down")
		fake.mu.Unlock()
		view.Refresh()

		state := view.Snapshot()
		require.NotNil(t, state.Page)
		assert.Equal(t, "a", state.Page.Items[0].ID)
		assert.Empty(t, state.LastError)
	})
}

func TestListViewBulkGenerate(t *testing.T) {
	t.Run("Should require confirmation", func(t *testing.T) {
		view := NewListView(&fakeAPI{}, time.Hour, nil)
		defer view.Close()

		_, err := view.GenerateReportsForSelected(false)
		assert.ErrorIs(t, err, ErrNotConfirmed)
	})

	t.Run("Should require a selection", func(t *testing.T) {
		view := NewListView(&fakeAPI{}, time.Hour, nil)
		defer view.Close()

		_, err := view.GenerateReportsForSelected(true)
		assert.Error(t, err)
	})

	t.Run("Should flip eligible rows to processing and clear the selection immediately", func(t *testing.T) {
		var emitted []*ViewState
		var emitMu sync.Mutex
		fake := &fakeAPI{pages: []*ListPage{pageOf(
			Consultation{ID: "a", Status: StatusRegistered},
			Consultation{ID: "b", Status: StatusReportFailed, ErrorMessage: "LLM timeout"},
			Consultation{ID: "c", Status: StatusReportSent},
		)}}
		view := NewListView(fake, time.Hour, func(event string, data interface{}) {
			emitMu.Lock()
			if state, ok := data.(*ViewState); ok {
				emitted = append(emitted, state)
			}
			emitMu.Unlock()
		})
		defer view.Close()

		_, err := view.Load(ListRequest{Page: 1})
		require.NoError(t, err)
		view.ToggleSelect("a")
		view.ToggleSelect("b")
		view.ToggleSelect("c")

		resp, err := view.GenerateReportsForSelected(true)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"a", "b", "c"}, fake.generateIDs)
		assert.Equal(t, 3, resp.Triggered)

		// The emit fired between the optimistic flip and the reconciling
		// re-fetch shows processing rows and an empty selection
		emitMu.Lock()
		require.NotEmpty(t, emitted)
		optimistic := emitted[len(emitted)-2]
		emitMu.Unlock()
		byID := map[string]Status{}
		for _, item := range optimistic.Page.Items {
			byID[item.ID] = item.Status
		}
		assert.Equal(t, StatusProcessing, byID["a"])
		assert.Equal(t, StatusProcessing, byID["b"])
		assert.Equal(t, StatusReportSent, byID["c"]) // not retriggerable, untouched
		assert.Empty(t, optimistic.Selected)
		assert.True(t, optimistic.Polling)
	})

	t.Run("Should roll back via re-fetch when the request fails", func(t *testing.T) {
		fake := &fakeAPI{
			pages:       []*ListPage{pageOf(Consultation{ID: "a", Status: StatusRegistered})},
			generateErr: errors.New("backend rejected"),
		}
		view := NewListView(fake, time.Hour, nil)
		defer view.Close()

		_, err := view.Load(ListRequest{Page: 1})
		require.NoError(t, err)
		view.ToggleSelect("a")

		_, err = view.GenerateReportsForSelected(true)
		require.Error(t, err)

		// The reconciling fetch restored the server's view of the row
		state := view.Snapshot()
		assert.Equal(t, StatusRegistered, state.Page.Items[0].Status)
	})
}

func TestListViewBulkDelete(t *testing.T) {
	t.Run("Should require confirmation", func(t *testing.T) {
		view := NewListView(&fakeAPI{}, time.Hour, nil)
		defer view.Close()

		_, err := view.DeleteSelected(false)
		assert.ErrorIs(t, err, ErrNotConfirmed)
	})

	t.Run("Should delete the selection and re-fetch", func(t *testing.T) {
		fake := &fakeAPI{pages: []*ListPage{
			pageOf(
				Consultation{ID: "a", Status: StatusReportSent},
				Consultation{ID: "b", Status: StatusRegistered},
			),
			pageOf(Consultation{ID: "b", Status: StatusRegistered}),
		}}
		view := NewListView(fake, time.Hour, nil)
		defer view.Close()

		_, err := view.Load(ListRequest{Page: 1})
		require.NoError(t, err)
		view.ToggleSelect("a")

		resp, err := view.DeleteSelected(true)
		require.NoError(t, err)
		assert.Equal(t, []string{"a"}, fake.deleteIDs)
		assert.Equal(t, 1, resp.Deleted)

		state := view.Snapshot()
		require.Len(t, state.Page.Items, 1)
		assert.Equal(t, "b", state.Page.Items[0].ID)
		assert.Empty(t, state.Selected)
	})

	t.Run("Should not touch the page when deletion fails", func(t *testing.T) {
		fake := &fakeAPI{
			pages:     []*ListPage{pageOf(Consultation{ID: "a", Status: StatusRegistered})},
			deleteErr: errors.New("forbidden"),
		}
		view := NewListView(fake, time.Hour, nil)
		defer view.Close()

		_, err := view.Load(ListRequest{Page: 1})
		require.NoError(t, err)
		view.ToggleSelect("a")

		_, err = view.DeleteSelected(true)
		require.Error(t, err)

		state := view.Snapshot()
		assert.Len(t, state.Page.Items, 1)
		assert.Equal(t, []string{"a"}, state.Selected)
	})
}

func TestListViewClose(t *testing.T) {
	t.Run("Should stop polling and refuse further loads", func(t *testing.T) {
		fake := &fakeAPI{pages: []*ListPage{pageOf(Consultation{ID: "a", Status: StatusProcessing})}}
		view := NewListView(fake, time.Hour, nil)

		_, err := view.Load(ListRequest{Page: 1})
		require.NoError(t, err)
		require.True(t, view.Polling())

		view.Close()

		assert.False(t, view.Polling())
		_, err = view.Load(ListRequest{Page: 1})
		assert.Error(t, err)
	})

	t.Run("Should discard a fetch that completes after Close", func(t *testing.T) {
		gate := make(chan struct{})
		fake := &fakeAPI{
			gate:  gate,
			pages: []*ListPage{pageOf(Consultation{ID: "late", Status: StatusRegistered})},
		}
		view := NewListView(fake, time.Hour, nil)

		done := make(chan struct{})
		go func() {
			view.Refresh()
			close(done)
		}()
		require.Eventually(t, func() bool { return fake.calls() == 1 }, time.Second, time.Millisecond)

		view.Close()
		close(gate)
		<-done

		state := view.Snapshot()
		assert.Nil(t, state.Page)
	})
}
