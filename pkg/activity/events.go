package activity

import (
	"strings"
	"time"
)

// Settings lifecycle verbs.
const (
	VerbLoaded   = "settings.loaded"
	VerbSaved    = "settings.saved"
	VerbRepaired = "settings.repaired"
	VerbReset    = "settings.reset"
	VerbUnloaded = "settings.unloaded"

	// ObjectType is the object type of every settings event.
	ObjectType = "settings"
)

// Load sources reported in settings.loaded events.
const (
	SourceTenant   = "tenant"
	SourceTemplate = "template"
	SourceDefaults = "defaults"
	SourceRecovery = "recovery"
)

// SettingsEventInput describes the common fields of settings events.
type SettingsEventInput struct {
	ActorID  string
	TenantID string
	// Location is the persistence key the event concerns.
	Location string
	Revision string
	// Source tells where a load took its values from.
	Source string
	// Member names a stripped unrecognized member or a failed field.
	Member     string
	Reason     string
	Metadata   map[string]any
	OccurredAt time.Time
}

func BuildSettingsLoadedEvent(input SettingsEventInput) Event {
	return buildSettingsEvent(VerbLoaded, input)
}

func BuildSettingsSavedEvent(input SettingsEventInput) Event {
	return buildSettingsEvent(VerbSaved, input)
}

// BuildSettingsRepairedEvent reports a persisted blob that was rewritten in
// canonical form, or from which an unrecognized member was stripped.
func BuildSettingsRepairedEvent(input SettingsEventInput) Event {
	return buildSettingsEvent(VerbRepaired, input)
}

// BuildSettingsResetEvent reports a document reset to defaults after a
// failed load.
func BuildSettingsResetEvent(input SettingsEventInput) Event {
	return buildSettingsEvent(VerbReset, input)
}

func BuildSettingsUnloadedEvent(input SettingsEventInput) Event {
	return buildSettingsEvent(VerbUnloaded, input)
}

func buildSettingsEvent(verb string, input SettingsEventInput) Event {
	metadata := cloneMap(input.Metadata)
	set := func(key, value string) {
		value = strings.TrimSpace(value)
		if value == "" {
			return
		}
		if metadata == nil {
			metadata = map[string]any{}
		}
		metadata[key] = value
	}
	set("location", input.Location)
	set("revision", input.Revision)
	set("source", input.Source)
	set("member", input.Member)
	set("reason", input.Reason)

	objectID := strings.TrimSpace(input.Location)
	if objectID == "" {
		objectID = strings.TrimSpace(input.TenantID)
	}
	if objectID == "" {
		objectID = ObjectType
	}

	return Event{
		Verb:       verb,
		ActorID:    strings.TrimSpace(input.ActorID),
		TenantID:   strings.TrimSpace(input.TenantID),
		ObjectType: ObjectType,
		ObjectID:   objectID,
		Metadata:   metadata,
		OccurredAt: input.OccurredAt,
	}
}
