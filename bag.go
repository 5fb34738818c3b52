package viewstate

import (
	"time"
)

type bagItem struct {
	value any
	dirty bool
}

// Bag is a dirty-tracking key/value store. Iteration follows insertion order.
// A Bag belongs to one control for one request and is not safe for concurrent
// use.
type Bag struct {
	cfg      config
	items    map[string]*bagItem
	order    []string
	tracking bool
}

// NewBag constructs an empty, non-tracking bag.
func NewBag(opts ...Option) *Bag {
	return &Bag{
		cfg:   applyOptions(opts),
		items: map[string]*bagItem{},
	}
}

// Get returns the value stored for key.
func (b *Bag) Get(key string) (any, bool) {
	if b == nil || b.items == nil {
		return nil, false
	}
	item, ok := b.items[key]
	if !ok {
		return nil, false
	}
	return item.value, true
}

// Set stores value under key, marking the entry dirty while tracking.
func (b *Bag) Set(key string, value any) {
	if b.items == nil {
		b.items = map[string]*bagItem{}
	}
	item, ok := b.items[key]
	if !ok {
		item = &bagItem{}
		b.items[key] = item
		b.order = append(b.order, key)
	}
	item.value = value
	if b.tracking {
		item.dirty = true
	}
}

// Remove deletes key. Removals are not carried by SaveState.
func (b *Bag) Remove(key string) {
	if b == nil || b.items == nil {
		return
	}
	if _, ok := b.items[key]; !ok {
		return
	}
	delete(b.items, key)
	for i, existing := range b.order {
		if existing == key {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
}

// Keys returns the stored keys in insertion order.
func (b *Bag) Keys() []string {
	if b == nil {
		return nil
	}
	return append([]string(nil), b.order...)
}

// Len reports the number of stored entries.
func (b *Bag) Len() int {
	if b == nil {
		return 0
	}
	return len(b.order)
}

// Clear drops every entry. Tracking is left unchanged.
func (b *Bag) Clear() {
	b.items = map[string]*bagItem{}
	b.order = nil
}

// IsDirty reports whether key will be emitted by the next SaveState.
func (b *Bag) IsDirty(key string) bool {
	if b == nil || b.items == nil {
		return false
	}
	item, ok := b.items[key]
	return ok && item.dirty
}

// SetItemDirty overrides the dirty flag for one existing entry.
func (b *Bag) SetItemDirty(key string, dirty bool) {
	if b == nil || b.items == nil {
		return
	}
	if item, ok := b.items[key]; ok {
		item.dirty = dirty
	}
}

// SetDirty marks every stored entry dirty or clean.
func (b *Bag) SetDirty(dirty bool) {
	if b == nil {
		return
	}
	for _, item := range b.items {
		item.dirty = dirty
	}
}

// TrackState starts dirty tracking. Calling it again has no effect and it
// never marks entries written before the first call.
func (b *Bag) TrackState() {
	b.tracking = true
}

// IsTrackingState reports whether writes are being tracked.
func (b *Bag) IsTrackingState() bool {
	return b != nil && b.tracking
}

// SaveState returns the dirty entries, or nil when nothing is dirty.
func (b *Bag) SaveState() (*Snapshot, error) {
	if b == nil {
		return nil, nil
	}
	start := time.Now()
	var entries []Entry
	for _, key := range b.order {
		item := b.items[key]
		if item == nil || !item.dirty {
			continue
		}
		entries = append(entries, Entry{Key: key, Value: item.value})
	}
	b.logger().LogState(LogEvent{Op: "save", Store: b.cfg.name, Entries: len(entries), Duration: time.Since(start)})
	if len(entries) == 0 {
		return nil, nil
	}
	return &Snapshot{Entries: entries}, nil
}

// LoadState restores entries from snapshot. A bag that is not tracking yet
// loads without marking anything dirty. A bag that is already tracking marks
// the loaded entries dirty, so a page that starts tracking before it loads
// re-emits its restored state on the next save instead of dropping it.
func (b *Bag) LoadState(snapshot *Snapshot) error {
	if snapshot == nil {
		return nil
	}
	start := time.Now()
	if len(snapshot.Slots) > 0 {
		err := corruptf("load", b.cfg.name, "bag snapshot carries %d child slots", len(snapshot.Slots))
		b.logger().LogState(LogEvent{Op: "load", Store: b.cfg.name, Err: err})
		return err
	}
	for _, entry := range snapshot.Entries {
		if entry.Key == "" {
			err := corruptf("load", b.cfg.name, "entry with empty key")
			b.logger().LogState(LogEvent{Op: "load", Store: b.cfg.name, Err: err})
			return err
		}
	}
	for _, entry := range snapshot.Entries {
		b.Set(entry.Key, entry.Value)
	}
	b.logger().LogState(LogEvent{Op: "load", Store: b.cfg.name, Entries: len(snapshot.Entries), Duration: time.Since(start)})
	return nil
}

func (b *Bag) logger() Logger {
	return loggerOrNoop(b.cfg.logger)
}

// Value returns the entry under key as T, or fallback when it is missing or
// holds another type.
func Value[T any](b *Bag, key string, fallback T) T {
	raw, ok := b.Get(key)
	if !ok {
		return fallback
	}
	typed, ok := raw.(T)
	if !ok {
		return fallback
	}
	return typed
}
