package activity

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"time"
)

// DefaultChannel is applied to events emitted without a channel.
const DefaultChannel = "viewstate"

type Config struct {
	Enabled bool
	Channel string
	// Now stamps events emitted without OccurredAt. Defaults to time.Now.
	Now func() time.Time
}

// Actor identifies who ran a modification.
type Actor struct {
	ID       string
	UserID   string
	TenantID string
}

type actorKey struct{}

// WithActor attaches actor to ctx. The Emitter fills the empty identity
// fields of events emitted under ctx from it.
func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

func ActorFromContext(ctx context.Context) (Actor, bool) {
	if ctx == nil {
		return Actor{}, false
	}
	actor, ok := ctx.Value(actorKey{}).(Actor)
	return actor, ok
}

// Emitter applies channel, clock and actor defaults before notifying its
// hooks. A nil Emitter is disabled.
type Emitter struct {
	hooks   Hooks
	channel string
	now     func() time.Time
	enabled bool
}

func NewEmitter(hooks Hooks, cfg Config) *Emitter {
	e := &Emitter{
		hooks:   slices.DeleteFunc(slices.Clone(hooks), func(h ActivityHook) bool { return h == nil }),
		channel: cmp.Or(strings.TrimSpace(cfg.Channel), DefaultChannel),
		now:     cfg.Now,
	}
	if e.now == nil {
		e.now = time.Now
	}
	e.enabled = cfg.Enabled && len(e.hooks) > 0
	return e
}

func (e *Emitter) Enabled() bool {
	return e != nil && e.enabled
}

// Emit fills the defaults of event and notifies the hooks. Fields already set
// on the event win over the defaults.
func (e *Emitter) Emit(ctx context.Context, event Event) error {
	if !e.Enabled() {
		return nil
	}
	event.Channel = cmp.Or(strings.TrimSpace(event.Channel), e.channel)
	if event.OccurredAt.IsZero() {
		event.OccurredAt = e.now().UTC()
	}
	if actor, ok := ActorFromContext(ctx); ok {
		event.ActorID = cmp.Or(strings.TrimSpace(event.ActorID), actor.ID)
		event.UserID = cmp.Or(strings.TrimSpace(event.UserID), actor.UserID)
		event.TenantID = cmp.Or(strings.TrimSpace(event.TenantID), actor.TenantID)
	}
	return e.hooks.Notify(ctx, event)
}
