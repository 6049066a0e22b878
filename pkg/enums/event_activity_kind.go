package enums

import "fmt"

// EventActivityKind records how a remote actor interacted with a local object.
type EventActivityKind string

const (
	EventActivityShare EventActivityKind = "share"
	EventActivityFlag  EventActivityKind = "flag"
)

var validEventActivityKinds = []EventActivityKind{
	EventActivityShare,
	EventActivityFlag,
}

// IsValid reports whether the value matches a known interaction kind.
func (k EventActivityKind) IsValid() bool {
	for _, candidate := range validEventActivityKinds {
		if candidate == k {
			return true
		}
	}
	return false
}

// ParseEventActivityKind converts raw input into EventActivityKind.
func ParseEventActivityKind(value string) (EventActivityKind, error) {
	for _, candidate := range validEventActivityKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event activity kind %q", value)
}
