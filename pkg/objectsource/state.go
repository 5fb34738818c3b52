package objectsource

import viewstate "github.com/goliatone/go-viewstate"

// stateLayout holds the select and filter parameters in two positional slots.
func (v *ObjectView) stateLayout() *viewstate.Composite {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.state == nil {
		state := viewstate.NewComposite(nil, viewstate.WithName(v.Name()))
		state.MustRegister("select", v.SelectParameters)
		state.MustRegister("filter", v.FilterParameters)
		v.state = state
	}
	return v.state
}

func (v *ObjectView) TrackState() {
	v.stateLayout().TrackState()
}

func (v *ObjectView) IsTrackingState() bool {
	return v.stateLayout().IsTrackingState()
}

// SaveState returns nil when neither parameter collection changed.
func (v *ObjectView) SaveState() (*viewstate.Snapshot, error) {
	return v.stateLayout().SaveState()
}

func (v *ObjectView) LoadState(snapshot *viewstate.Snapshot) error {
	return v.stateLayout().LoadState(snapshot)
}
