package activity

import (
	"context"
	"sync"
)

// CaptureHook records notified events; Err is returned from every Notify.
type CaptureHook struct {
	mu     sync.Mutex
	Events []Event
	Err    error
}

func (h *CaptureHook) Notify(_ context.Context, event Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Events = append(h.Events, event)
	return h.Err
}

// Verbs lists the captured verbs in notification order.
func (h *CaptureHook) Verbs() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	verbs := make([]string, len(h.Events))
	for i, event := range h.Events {
		verbs[i] = event.Verb
	}
	return verbs
}

func (h *CaptureHook) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Events = nil
}
