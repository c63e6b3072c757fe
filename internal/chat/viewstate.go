package chat

import "sync"

// View identifies a dashboard panel.
type View string

const (
	ViewHome      View = "home"
	ViewTasks     View = "tasks"
	ViewPipeline  View = "pipeline"
	ViewReporting View = "reporting"
)

// knownViews are the panels a setView directive may target.
var knownViews = map[View]bool{
	ViewHome:      true,
	ViewTasks:     true,
	ViewPipeline:  true,
	ViewReporting: true,
}

// ViewState holds the current view and each view's free-form data. The
// current view changes only through an explicit setView directive; data is
// mutated only by shallow merges from updateView directives.
type ViewState struct {
	mu       sync.RWMutex
	current  View
	data     map[View]map[string]any
	onChange func()
}

// NewViewState creates a ViewState starting at ViewHome.
func NewViewState(onChange func()) *ViewState {
	return &ViewState{
		current:  ViewHome,
		data:     make(map[View]map[string]any),
		onChange: onChange,
	}
}

// Current returns the active view.
func (v *ViewState) Current() View {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.current
}

// SetView switches the active view. Unknown views are rejected.
func (v *ViewState) SetView(view View) bool {
	if !knownViews[view] {
		return false
	}
	v.mu.Lock()
	changed := v.current != view
	v.current = view
	v.mu.Unlock()
	if changed {
		v.changed()
	}
	return true
}

// Merge shallow-merges a data patch into one view's state: patch keys
// overwrite same-named keys, all other keys are untouched.
func (v *ViewState) Merge(view View, patch map[string]any) {
	if len(patch) == 0 {
		return
	}
	v.mu.Lock()
	if v.data[view] == nil {
		v.data[view] = make(map[string]any)
	}
	for k, val := range patch {
		v.data[view][k] = val
	}
	v.mu.Unlock()
	v.changed()
}

// Data returns a copy of one view's state.
func (v *ViewState) Data(view View) map[string]any {
	v.mu.RLock()
	defer v.mu.RUnlock()
	out := make(map[string]any, len(v.data[view]))
	for k, val := range v.data[view] {
		out[k] = val
	}
	return out
}

// Reset clears all view data and returns to ViewHome. Used on session
// switch: no two sessions' data coexist.
func (v *ViewState) Reset() {
	v.mu.Lock()
	v.current = ViewHome
	v.data = make(map[View]map[string]any)
	v.mu.Unlock()
	v.changed()
}

func (v *ViewState) changed() {
	if v.onChange != nil {
		v.onChange()
	}
}
