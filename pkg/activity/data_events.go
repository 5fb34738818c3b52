package activity

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"
)

const (
	VerbInserted = "data.inserted"
	VerbUpdated  = "data.updated"
	VerbDeleted  = "data.deleted"
)

// DataEventInput describes one completed data modification.
type DataEventInput struct {
	ActorID        string
	UserID         string
	TenantID       string
	Channel        string
	DefinitionCode string
	Recipients     []string
	Metadata       map[string]any

	// View names the data source view that ran the operation.
	View         string
	TypeName     string
	Method       string
	AffectedRows int
	Keys         map[string]any
	Values       map[string]any
	OldValues    map[string]any
	OccurredAt   time.Time
}

// BuildInsertedEvent constructs the activity event for an insert.
func BuildInsertedEvent(input DataEventInput) Event {
	return buildDataEvent(VerbInserted, input)
}

// BuildUpdatedEvent constructs the activity event for an update.
func BuildUpdatedEvent(input DataEventInput) Event {
	return buildDataEvent(VerbUpdated, input)
}

// BuildDeletedEvent constructs the activity event for a delete.
func BuildDeletedEvent(input DataEventInput) Event {
	return buildDataEvent(VerbDeleted, input)
}

func buildDataEvent(verb string, input DataEventInput) Event {
	metadata := cloneMap(input.Metadata)
	if input.TypeName != "" || input.Method != "" {
		metadata = ensureMetadata(metadata)
		metadata["method"] = strings.Trim(input.TypeName+"."+input.Method, ".")
	}
	if input.AffectedRows >= 0 {
		metadata = ensureMetadata(metadata)
		metadata["affected_rows"] = input.AffectedRows
	}
	if len(input.Keys) > 0 {
		metadata = ensureMetadata(metadata)
		metadata["keys"] = cloneMap(input.Keys)
	}
	if len(input.Values) > 0 {
		metadata = ensureMetadata(metadata)
		metadata["new_values"] = cloneMap(input.Values)
	}
	if len(input.OldValues) > 0 {
		metadata = ensureMetadata(metadata)
		metadata["old_values"] = cloneMap(input.OldValues)
	}

	recipients := input.Recipients
	if len(recipients) > 0 {
		recipients = append([]string{}, input.Recipients...)
	}

	objectType := strings.TrimSpace(input.View)
	if objectType == "" {
		objectType = strings.TrimSpace(input.TypeName)
	}
	if objectType == "" {
		objectType = "datasource"
	}
	objectID := keyString(input.Keys)
	if objectID == "" {
		objectID = objectType
	}

	return Event{
		Verb:           verb,
		ActorID:        strings.TrimSpace(input.ActorID),
		UserID:         strings.TrimSpace(input.UserID),
		TenantID:       strings.TrimSpace(input.TenantID),
		ObjectType:     objectType,
		ObjectID:       objectID,
		Channel:        strings.TrimSpace(input.Channel),
		DefinitionCode: strings.TrimSpace(input.DefinitionCode),
		Recipients:     recipients,
		Metadata:       metadata,
		OccurredAt:     input.OccurredAt,
	}
}

// keyString renders keys as "name=value" pairs sorted by name.
func keyString(keys map[string]any) string {
	if len(keys) == 0 {
		return ""
	}
	names := slices.Sorted(maps.Keys(keys))
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = fmt.Sprintf("%s=%v", name, keys[name])
	}
	return strings.Join(parts, ",")
}

func cloneMap(src map[string]any) map[string]any {
	if len(src) == 0 {
		return nil
	}
	return maps.Clone(src)
}

func ensureMetadata(meta map[string]any) map[string]any {
	if meta == nil {
		return map[string]any{}
	}
	return meta
}
