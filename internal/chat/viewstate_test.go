package chat

import (
	"testing"
)

func TestViewState_StartsAtHome(t *testing.T) {
	v := NewViewState(nil)
	if v.Current() != ViewHome {
		t.Errorf("Current = %q, want %q", v.Current(), ViewHome)
	}
}

func TestViewState_SetView(t *testing.T) {
	v := NewViewState(nil)

	if !v.SetView(ViewPipeline) {
		t.Fatal("SetView(pipeline) = false, want true")
	}
	if v.Current() != ViewPipeline {
		t.Errorf("Current = %q, want %q", v.Current(), ViewPipeline)
	}

	if v.SetView(View("settings")) {
		t.Error("SetView accepted an unknown view")
	}
	if v.Current() != ViewPipeline {
		t.Errorf("Current = %q after rejected switch, want %q", v.Current(), ViewPipeline)
	}
}

func TestViewState_MergeIsShallow(t *testing.T) {
	v := NewViewState(nil)

	v.Merge(ViewReporting, map[string]any{"total": 10, "period": "daily"})
	v.Merge(ViewReporting, map[string]any{"total": 12})

	data := v.Data(ViewReporting)
	if data["total"] != 12 {
		t.Errorf("total = %v, want 12 (patched)", data["total"])
	}
	if data["period"] != "daily" {
		t.Errorf("period = %v, want daily (untouched by the patch)", data["period"])
	}
}

func TestViewState_MergeDoesNotSwitchView(t *testing.T) {
	v := NewViewState(nil)

	v.Merge(ViewReporting, map[string]any{"total": 1})
	if v.Current() != ViewHome {
		t.Errorf("Current = %q, want %q (merge never switches)", v.Current(), ViewHome)
	}
}

func TestViewState_DataIsolatedPerView(t *testing.T) {
	v := NewViewState(nil)

	v.Merge(ViewTasks, map[string]any{"count": 3})
	v.Merge(ViewPipeline, map[string]any{"stage": "demo"})

	if got := v.Data(ViewTasks); got["stage"] != nil {
		t.Errorf("tasks data = %v, leaked pipeline keys", got)
	}
	if got := v.Data(ViewPipeline); got["count"] != nil {
		t.Errorf("pipeline data = %v, leaked tasks keys", got)
	}
}

func TestViewState_DataReturnsCopy(t *testing.T) {
	v := NewViewState(nil)
	v.Merge(ViewTasks, map[string]any{"count": 3})

	got := v.Data(ViewTasks)
	got["count"] = 99

	if v.Data(ViewTasks)["count"] != 3 {
		t.Error("mutating the returned map changed internal state")
	}
}

func TestViewState_Reset(t *testing.T) {
	v := NewViewState(nil)
	v.SetView(ViewReporting)
	v.Merge(ViewReporting, map[string]any{"total": 10})

	v.Reset()

	if v.Current() != ViewHome {
		t.Errorf("Current = %q after Reset, want %q", v.Current(), ViewHome)
	}
	if len(v.Data(ViewReporting)) != 0 {
		t.Errorf("data = %v after Reset, want empty", v.Data(ViewReporting))
	}
}

func TestViewState_OnChange(t *testing.T) {
	calls := 0
	v := NewViewState(func() { calls++ })

	v.SetView(ViewTasks)            // change
	v.SetView(ViewTasks)            // same view, no signal
	v.SetView(View("bogus"))        // rejected, no signal
	v.Merge(ViewTasks, nil)         // empty patch, no signal
	v.Merge(ViewTasks, map[string]any{"count": 1})
	v.Reset()

	if calls != 3 {
		t.Errorf("onChange calls = %d, want 3", calls)
	}
}
