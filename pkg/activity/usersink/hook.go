package usersink

import (
	"context"
	"strings"

	"github.com/goliatone/go-viewstate/pkg/activity"
	usertypes "github.com/goliatone/go-users/pkg/types"
	"github.com/google/uuid"
)

// Hook forwards data modification events to a go-users ActivitySink.
type Hook struct {
	Sink usertypes.ActivitySink
}

// Notify maps the event with Record and logs it on the sink.
func (h Hook) Notify(ctx context.Context, event activity.Event) error {
	if h.Sink == nil {
		return nil
	}
	record, ok := Record(event)
	if !ok {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return h.Sink.Log(ctx, record)
}

// Record converts an event into an ActivityRecord. Identity fields that are
// not UUIDs map to uuid.Nil. Events without verb or object are rejected.
func Record(event activity.Event) (usertypes.ActivityRecord, bool) {
	normalized := activity.NormalizeEvent(event)
	if normalized.Verb == "" || normalized.ObjectType == "" || normalized.ObjectID == "" {
		return usertypes.ActivityRecord{}, false
	}

	data := map[string]any{}
	for key, value := range normalized.Metadata {
		data[key] = value
	}
	if normalized.DefinitionCode != "" {
		data["definition_code"] = normalized.DefinitionCode
	}
	if len(normalized.Recipients) > 0 {
		data["recipients"] = append([]string{}, normalized.Recipients...)
	}
	if len(data) == 0 {
		data = nil
	}

	return usertypes.ActivityRecord{
		ActorID:    parseUUID(normalized.ActorID),
		UserID:     parseUUID(normalized.UserID),
		TenantID:   parseUUID(normalized.TenantID),
		Verb:       normalized.Verb,
		ObjectType: normalized.ObjectType,
		ObjectID:   normalized.ObjectID,
		Channel:    normalized.Channel,
		Data:       data,
		OccurredAt: normalized.OccurredAt,
	}, true
}

func parseUUID(input string) uuid.UUID {
	id, err := uuid.Parse(strings.TrimSpace(input))
	if err != nil {
		return uuid.Nil
	}
	return id
}
