package viewstate

import (
	"fmt"
	"time"
)

// Composite saves an optional own Bag plus one positional slot per registered
// child. Children must be registered in the same order on every request.
type Composite struct {
	cfg      config
	own      *Bag
	names    []string
	children []Stateful
	tracking bool
}

// NewComposite wraps own (which may be nil) with no children.
func NewComposite(own *Bag, opts ...Option) *Composite {
	return &Composite{
		cfg: applyOptions(opts),
		own: own,
	}
}

// Register appends child under name. A child registered after tracking began
// starts tracking immediately.
func (c *Composite) Register(name string, child Stateful) error {
	if child == nil {
		return fmt.Errorf("viewstate: child %q is nil", name)
	}
	if name == "" {
		return fmt.Errorf("viewstate: child name must not be empty")
	}
	for _, existing := range c.names {
		if existing == name {
			return fmt.Errorf("viewstate: child %q already registered", name)
		}
	}
	c.names = append(c.names, name)
	c.children = append(c.children, child)
	if c.tracking {
		child.TrackState()
	}
	return nil
}

// MustRegister is Register for fixed layouts built at construction time.
func (c *Composite) MustRegister(name string, child Stateful) {
	if err := c.Register(name, child); err != nil {
		panic(err)
	}
}

// Own returns the composite's own bag.
func (c *Composite) Own() *Bag {
	return c.own
}

// Child returns the child registered under name.
func (c *Composite) Child(name string) Stateful {
	for i, existing := range c.names {
		if existing == name {
			return c.children[i]
		}
	}
	return nil
}

// Names lists child names in slot order.
func (c *Composite) Names() []string {
	return append([]string(nil), c.names...)
}

// Len reports the number of child slots.
func (c *Composite) Len() int {
	return len(c.children)
}

// TrackState starts tracking on the own bag and every child.
func (c *Composite) TrackState() {
	c.tracking = true
	if c.own != nil {
		c.own.TrackState()
	}
	for _, child := range c.children {
		child.TrackState()
	}
}

// IsTrackingState reports whether TrackState was called.
func (c *Composite) IsTrackingState() bool {
	return c.tracking
}

// SaveState returns nil when neither the own bag nor any child changed.
func (c *Composite) SaveState() (*Snapshot, error) {
	start := time.Now()
	var own *Snapshot
	if c.own != nil {
		saved, err := c.own.SaveState()
		if err != nil {
			return nil, err
		}
		own = saved
	}

	var slots []*Snapshot
	changed := own != nil
	if len(c.children) > 0 {
		slots = make([]*Snapshot, len(c.children))
		for i, child := range c.children {
			saved, err := child.SaveState()
			if err != nil {
				return nil, fmt.Errorf("viewstate: save child %q: %w", c.names[i], err)
			}
			slots[i] = saved
			if saved != nil {
				changed = true
			}
		}
	}

	c.logger().LogState(LogEvent{Op: "save", Store: c.cfg.name, Slots: len(slots), Duration: time.Since(start)})
	if !changed {
		return nil, nil
	}
	out := &Snapshot{Slots: slots}
	if own != nil {
		out.Entries = own.Entries
	}
	return out, nil
}

// LoadState applies own entries and every non-nil slot. The slot count must
// match the registered children.
func (c *Composite) LoadState(snapshot *Snapshot) error {
	if snapshot == nil {
		return nil
	}
	start := time.Now()
	if len(snapshot.Slots) != len(c.children) {
		err := corruptf("load", c.cfg.name, "expected %d child slots, got %d", len(c.children), len(snapshot.Slots))
		c.logger().LogState(LogEvent{Op: "load", Store: c.cfg.name, Err: err})
		return err
	}
	if len(snapshot.Entries) > 0 {
		if c.own == nil {
			err := corruptf("load", c.cfg.name, "entries present but composite has no own store")
			c.logger().LogState(LogEvent{Op: "load", Store: c.cfg.name, Err: err})
			return err
		}
		if err := c.own.LoadState(&Snapshot{Entries: snapshot.Entries}); err != nil {
			return wrapCorruption("load", c.cfg.name, -1, err)
		}
	}
	for i, slot := range snapshot.Slots {
		if slot == nil {
			continue
		}
		if err := c.children[i].LoadState(slot); err != nil {
			err = wrapCorruption("load", c.names[i], i, err)
			c.logger().LogState(LogEvent{Op: "load", Store: c.cfg.name, Err: err})
			return err
		}
	}
	c.logger().LogState(LogEvent{Op: "load", Store: c.cfg.name, Entries: len(snapshot.Entries), Slots: len(snapshot.Slots), Duration: time.Since(start)})
	return nil
}

func (c *Composite) logger() Logger {
	return loggerOrNoop(c.cfg.logger)
}
