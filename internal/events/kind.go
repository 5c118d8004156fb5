package events

import (
	"fmt"
	"strings"
)

// Kind identifies a render lifecycle event.
type Kind int

const (
	Start Kind = iota
	Progress
	Complete
	Cancel
	Error
)

var names = [...]string{
	Start:    "start",
	Progress: "progress",
	Complete: "complete",
	Cancel:   "cancel",
	Error:    "error",
}

// All returns every kind in lifecycle order.
func All() []Kind {
	return []Kind{Start, Progress, Complete, Cancel, Error}
}

// Valid reports whether k is one of the defined kinds.
func (k Kind) Valid() bool {
	return k >= Start && k <= Error
}

// String returns the wire name (e.g. "progress").
func (k Kind) String() string {
	if !k.Valid() {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return names[k]
}

// Parse converts a wire name into a Kind.
func Parse(value string) (Kind, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for _, k := range All() {
		if names[k] == normalized {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown render event %q (want one of %s)", value, strings.Join(names[:], ", "))
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("invalid render event %d", int(k))
	}
	return []byte(names[k]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
