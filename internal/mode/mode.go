// Package mode implements the fixture's exclusive operating selector.
package mode

import "fmt"

// Mode is the operating mode requested from the fixture.
type Mode int

const (
	Manual Mode = iota
	Automatic
)

// String returns the wire name of the mode.
func (m Mode) String() string {
	switch m {
	case Manual:
		return "manual"
	case Automatic:
		return "automatic"
	default:
		return "unknown"
	}
}

// Other returns the mode that excludes m.
func (m Mode) Other() Mode {
	if m == Manual {
		return Automatic
	}
	return Manual
}

// ParseMode parses a wire mode name.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "manual":
		return Manual, nil
	case "automatic":
		return Automatic, nil
	default:
		return 0, fmt.Errorf("unknown mode %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) {
	switch m {
	case Manual, Automatic:
		return []byte(m.String()), nil
	default:
		return nil, fmt.Errorf("invalid mode %d", int(m))
	}
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Mode) UnmarshalText(text []byte) error {
	parsed, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// State is the selector state derived from the two checkboxes.
type State int

const (
	StateIdle State = iota
	StateManual
	StateAutomatic
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateManual:
		return "manual"
	case StateAutomatic:
		return "automatic"
	default:
		return "unknown"
	}
}

// Mode returns the active mode, if any.
func (s State) Mode() (Mode, bool) {
	switch s {
	case StateManual:
		return Manual, true
	case StateAutomatic:
		return Automatic, true
	}
	return 0, false
}

// stateOf returns the state in which m is active.
func stateOf(m Mode) State {
	if m == Automatic {
		return StateAutomatic
	}
	return StateManual
}

// Next computes the state after the checkbox of m changes to checked.
// Checking a mode always makes it active; unchecking only matters for the active mode.
func Next(current State, m Mode, checked bool) State {
	if checked {
		return stateOf(m)
	}
	if active, ok := current.Mode(); ok && active == m {
		return StateIdle
	}
	return current
}
