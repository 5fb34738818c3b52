package viewstate

import (
	"errors"
	"fmt"
	"strings"
)

// ErrStateCorrupt is matched by every StateCorruptionError.
var ErrStateCorrupt = errors.New("viewstate: state corrupt")

// StateCorruptionError reports a snapshot or blob that cannot be applied.
type StateCorruptionError struct {
	Op     string
	Store  string
	Slot   int
	Key    string
	Reason string
	Err    error
}

func (e *StateCorruptionError) Error() string {
	if e == nil {
		return "<nil>"
	}
	parts := []string{"viewstate: corrupt state"}
	if e.Op != "" {
		parts = append(parts, "op="+e.Op)
	}
	if e.Store != "" {
		parts = append(parts, "store="+e.Store)
	}
	if e.Slot >= 0 {
		parts = append(parts, fmt.Sprintf("slot=%d", e.Slot))
	}
	if e.Key != "" {
		parts = append(parts, fmt.Sprintf("key=%q", e.Key))
	}
	msg := strings.Join(parts, " ")
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *StateCorruptionError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is lets errors.Is(err, ErrStateCorrupt) match any corruption error.
func (e *StateCorruptionError) Is(target error) bool {
	return target == ErrStateCorrupt
}

func corruptf(op, store string, format string, args ...any) *StateCorruptionError {
	return &StateCorruptionError{
		Op:     op,
		Store:  store,
		Slot:   -1,
		Reason: fmt.Sprintf(format, args...),
	}
}

func wrapCorruption(op, store string, slot int, err error) error {
	if err == nil {
		return nil
	}
	var corrupt *StateCorruptionError
	if errors.As(err, &corrupt) {
		if corrupt.Store == "" {
			corrupt.Store = store
		}
		if corrupt.Slot < 0 {
			corrupt.Slot = slot
		}
		return corrupt
	}
	return &StateCorruptionError{Op: op, Store: store, Slot: slot, Err: err}
}
