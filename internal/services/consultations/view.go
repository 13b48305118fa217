package consultations

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"
)

// consultationAPI is the slice of the consultations service the list view
// needs. Narrowed to an interface so tests can stub slow or out-of-order
// fetches.
type consultationAPI interface {
	ListPage(req ListRequest) (*ListPage, error)
	GenerateReports(ids []string) (*GenerateReportsResponse, error)
	DeleteMany(ids []string) (*DeleteResponse, error)
}

// ErrNotConfirmed is returned when a destructive bulk action is attempted
// without the admin confirming first
var ErrNotConfirmed = errors.New("action requires confirmation")

// ViewState is the snapshot pushed to the UI after every change
type ViewState struct {
	Page        *ListPage   `json:"page"`
	Request     ListRequest `json:"request"`
	Selected    []string    `json:"selected"`
	Polling     bool        `json:"polling"`
	LastError   string      `json:"last_error"`
	RefreshedAt string      `json:"refreshed_at"`
}

// ListView drives the consultation list screen. It owns the current page,
// the selection, and a poll session that silently re-fetches every
// DefaultPollInterval while any visible item is still in the pipeline.
//
// Every fetch is stamped with a generation counter taken under the lock.
// A response whose generation no longer matches is discarded, so a slow poll
// response can never overwrite the result of a later explicit load.
type ListView struct {
	mu        sync.Mutex
	api       consultationAPI
	emit      func(event string, data interface{})
	selection *SelectionSet
	poller    *pollSession

	gen         uint64
	req         ListRequest
	page        *ListPage
	lastErr     string
	closed      bool
	refreshedAt time.Time
}

// NewListView creates a list view. emit may be nil, in which case state
// changes are not pushed anywhere and must be pulled via Snapshot.
func NewListView(service consultationAPI, interval time.Duration, emit func(event string, data interface{})) *ListView {
	v := &ListView{
		api:       service,
		emit:      emit,
		selection: NewSelectionSet(),
		req:       ListRequest{Page: 1, PageSize: 20},
	}
	v.poller = newPollSession(interval, v.pollTick)
	return v
}

// Load fetches a page for the given request and makes it current. Used for
// the initial load and for every filter or page change. Loading replaces the
// request, so any in-flight silent refresh for the old request is stale and
// will be discarded by the generation check.
func (v *ListView) Load(req ListRequest) (*ViewState, error) {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return nil, errors.New("view is closed")
	}
	v.gen++
	gen := v.gen
	v.req = req
	v.mu.Unlock()

	page, err := v.api.ListPage(req)

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed || gen != v.gen {
		return v.snapshotLocked(), nil
	}
	if err != nil {
		v.lastErr = err.Error()
		v.emitLocked()
		return v.snapshotLocked(), err
	}

	v.applyPageLocked(page)
	v.selection.Clear()
	v.emitLocked()
	return v.snapshotLocked(), nil
}

// Refresh re-fetches the current request without touching the selection.
// Errors are swallowed: a refresh that fails leaves the last good page on
// screen rather than flashing an error during background polling.
func (v *ListView) Refresh() {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	v.gen++
	gen := v.gen
	req := v.req
	v.mu.Unlock()

	page, err := v.api.ListPage(req)

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed || gen != v.gen {
		return
	}
	if err != nil {
		log.Printf("WARNING: Silent refresh failed: %v", err)
		return
	}

	v.applyPageLocked(page)
	v.emitLocked()
}

// pollTick runs on every poll interval. It is a plain silent refresh; the
// generation counter protects against its response arriving after a newer
// explicit load.
func (v *ListView) pollTick() {
	v.Refresh()
}

// applyPageLocked installs a fetched page, prunes the selection to the rows
// actually on it, and starts or stops polling based on whether anything on
// the page is still in-flight. Caller holds v.mu.
func (v *ListView) applyPageLocked(page *ListPage) {
	v.page = page
	v.lastErr = ""
	v.refreshedAt = time.Now()

	ids := make([]string, 0, len(page.Items))
	for _, item := range page.Items {
		ids = append(ids, item.ID)
	}
	v.selection.Retain(ids)

	if page.AnyInFlight() {
		v.poller.Start()
	} else {
		v.poller.Stop()
	}
}

// ToggleSelect flips one row's selection. IDs not on the current page are
// ignored, so a bulk action can never target a row the admin cannot see.
func (v *ListView) ToggleSelect(id string) *ViewState {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.pageHasLocked(id) {
		v.selection.Toggle(id)
	}
	return v.snapshotLocked()
}

// pageHasLocked reports whether an ID is on the current page. Caller holds v.mu.
func (v *ListView) pageHasLocked(id string) bool {
	if v.page == nil {
		return false
	}
	for _, item := range v.page.Items {
		if item.ID == id {
			return true
		}
	}
	return false
}

// ToggleSelectAll selects every row on the current page, or clears the
// selection if every row was already selected
func (v *ListView) ToggleSelectAll() *ViewState {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.page == nil {
		return v.snapshotLocked()
	}
	ids := make([]string, 0, len(v.page.Items))
	for _, item := range v.page.Items {
		ids = append(ids, item.ID)
	}
	if v.selection.Len() == len(ids) && len(ids) > 0 {
		v.selection.Clear()
	} else {
		v.selection.SelectAll(ids)
	}
	return v.snapshotLocked()
}

// GenerateReportsForSelected re-triggers report generation for the selected
// consultations. The rows flip to processing immediately and the selection
// clears, so the screen reacts without waiting for the backend; a silent
// re-fetch afterwards reconciles with what the server actually did, which
// also rolls back the optimism if the request failed.
func (v *ListView) GenerateReportsForSelected(confirmed bool) (*GenerateReportsResponse, error) {
	if !confirmed {
		return nil, ErrNotConfirmed
	}

	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return nil, errors.New("view is closed")
	}
	ids := v.selection.IDs()
	if len(ids) == 0 {
		v.mu.Unlock()
		return nil, errors.New("no consultations selected")
	}

	selected := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		selected[id] = struct{}{}
	}
	if v.page != nil {
		for i := range v.page.Items {
			item := &v.page.Items[i]
			if _, ok := selected[item.ID]; ok && item.Status.Retriggerable() {
				item.Status = StatusProcessing
				item.ErrorMessage = ""
			}
		}
	}
	v.selection.Clear()
	v.poller.Start()
	v.emitLocked()
	v.mu.Unlock()

	result, err := v.api.GenerateReports(ids)
	v.Refresh()
	if err != nil {
		return nil, fmt.Errorf("failed to trigger report generation: %w", err)
	}
	return result, nil
}

// DeleteSelected deletes the selected consultations. No optimistic mutation
// here: rows only disappear once the re-fetch shows the server deleted them.
func (v *ListView) DeleteSelected(confirmed bool) (*DeleteResponse, error) {
	if !confirmed {
		return nil, ErrNotConfirmed
	}

	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return nil, errors.New("view is closed")
	}
	ids := v.selection.IDs()
	v.mu.Unlock()
	if len(ids) == 0 {
		return nil, errors.New("no consultations selected")
	}

	result, err := v.api.DeleteMany(ids)
	if err != nil {
		return nil, fmt.Errorf("failed to delete consultations: %w", err)
	}

	v.mu.Lock()
	v.selection.Clear()
	v.mu.Unlock()
	v.Refresh()
	return result, nil
}

// Snapshot returns the current view state for pull-based consumers
func (v *ListView) Snapshot() *ViewState {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.snapshotLocked()
}

// Polling reports whether the silent refresh session is running
func (v *ListView) Polling() bool {
	return v.poller.Running()
}

// Close stops polling and marks the view dead. Any fetch still in flight
// when Close runs will see the closed flag and discard its response, so a
// torn-down screen never receives a late update.
func (v *ListView) Close() {
	v.mu.Lock()
	v.closed = true
	v.gen++
	v.mu.Unlock()
	v.poller.Stop()
}

func (v *ListView) snapshotLocked() *ViewState {
	state := &ViewState{
		Page:      v.page,
		Request:   v.req,
		Selected:  v.selection.IDs(),
		Polling:   v.poller.Running(),
		LastError: v.lastErr,
	}
	if !v.refreshedAt.IsZero() {
		state.RefreshedAt = v.refreshedAt.Format(time.RFC3339)
	}
	return state
}

func (v *ListView) emitLocked() {
	if v.emit == nil {
		return
	}
	v.emit("consultations:updated", v.snapshotLocked())
}
