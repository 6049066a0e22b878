package enums

import "fmt"

// ActivityType enumerates the federation activity variants exchanged between
// instances. The set is closed: an unmatched value is a recognized terminal
// outcome for the message carrying it, never a runtime failure.
type ActivityType string

const (
	ActivityCreate   ActivityType = "Create"
	ActivityUpdate   ActivityType = "Update"
	ActivityDelete   ActivityType = "Delete"
	ActivityFollow   ActivityType = "Follow"
	ActivityAccept   ActivityType = "Accept"
	ActivityAnnounce ActivityType = "Announce"
	ActivityUndo     ActivityType = "Undo"
	ActivityFlag     ActivityType = "Flag"
)

var validActivityTypes = []ActivityType{
	ActivityCreate,
	ActivityUpdate,
	ActivityDelete,
	ActivityFollow,
	ActivityAccept,
	ActivityAnnounce,
	ActivityUndo,
	ActivityFlag,
}

// IsValid reports whether the value matches a supported activity type.
func (a ActivityType) IsValid() bool {
	for _, candidate := range validActivityTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseActivityType converts raw input into ActivityType.
func ParseActivityType(value string) (ActivityType, error) {
	for _, candidate := range validActivityTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid activity type %q", value)
}
