package viewstate

// Entry is one saved key/value pair.
type Entry struct {
	Key   string
	Value any
}

// Snapshot is the positional structure produced by SaveState. Entries hold the
// store's own dirty values in insertion order; Slots hold one child snapshot
// per registered child, nil when the child did not change.
type Snapshot struct {
	Version int
	Entries []Entry
	Slots   []*Snapshot
}

// Stateful is implemented by anything that takes part in the round trip.
type Stateful interface {
	TrackState()
	IsTrackingState() bool
	SaveState() (*Snapshot, error)
	LoadState(*Snapshot) error
}

// IsEmpty reports whether the snapshot carries no entries and no non-nil slots.
func (s *Snapshot) IsEmpty() bool {
	if s == nil {
		return true
	}
	if len(s.Entries) > 0 {
		return false
	}
	for _, slot := range s.Slots {
		if !slot.IsEmpty() {
			return false
		}
	}
	return true
}

// Lookup returns the entry value stored under key.
func (s *Snapshot) Lookup(key string) (any, bool) {
	if s == nil {
		return nil, false
	}
	for _, entry := range s.Entries {
		if entry.Key == key {
			return entry.Value, true
		}
	}
	return nil, false
}

// Slot returns the child snapshot at index, nil when absent.
func (s *Snapshot) Slot(index int) *Snapshot {
	if s == nil || index < 0 || index >= len(s.Slots) {
		return nil
	}
	return s.Slots[index]
}

// Clone copies the snapshot tree. Entry values are copied shallowly except
// nested snapshots, slices of any and maps of any.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}
	out := &Snapshot{Version: s.Version}
	if s.Entries != nil {
		out.Entries = make([]Entry, len(s.Entries))
		for i, entry := range s.Entries {
			out.Entries[i] = Entry{Key: entry.Key, Value: cloneEntryValue(entry.Value)}
		}
	}
	if s.Slots != nil {
		out.Slots = make([]*Snapshot, len(s.Slots))
		for i, slot := range s.Slots {
			out.Slots[i] = slot.Clone()
		}
	}
	return out
}

func cloneEntryValue(value any) any {
	switch v := value.(type) {
	case *Snapshot:
		return v.Clone()
	case []any:
		out := make([]any, len(v))
		for i := range v {
			out[i] = cloneEntryValue(v[i])
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			out[key] = cloneEntryValue(item)
		}
		return out
	case []string:
		return append([]string(nil), v...)
	default:
		return value
	}
}
