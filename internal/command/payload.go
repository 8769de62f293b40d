// Package command builds and publishes fixture commands.
package command

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dokzlo13/lumos/internal/mode"
)

var (
	// ErrInvalidReading is returned when a reading cannot be parsed or is out of range.
	ErrInvalidReading = errors.New("invalid reading")
)

// Reading is a brightness/temperature pair taken from the form at submit time.
type Reading struct {
	Brightness  int
	Temperature int
}

// Payload is the command sent to the fixture.
type Payload struct {
	Mode        string `json:"mode"`
	Brightness  int    `json:"brightness"`
	Temperature int    `json:"temperature"`
}

// BuildPayload constructs a command payload. It performs no validation.
func BuildPayload(m mode.Mode, brightness, temperature int) Payload {
	return Payload{
		Mode:        m.String(),
		Brightness:  brightness,
		Temperature: temperature,
	}
}

// Marshal serializes the payload to its wire form.
func (p Payload) Marshal() ([]byte, error) {
	return json.Marshal(p)
}

// Decode parses a wire payload. Single-quoted bodies, as produced by some
// scripting clients, are accepted when strict decoding fails.
func Decode(body []byte) (Payload, error) {
	var p Payload
	if err := json.Unmarshal(body, &p); err != nil {
		lenient := strings.ReplaceAll(string(body), "'", `"`)
		if err2 := json.Unmarshal([]byte(lenient), &p); err2 != nil {
			return Payload{}, fmt.Errorf("failed to decode command: %w", err)
		}
	}
	if _, err := mode.ParseMode(p.Mode); err != nil {
		return Payload{}, fmt.Errorf("failed to decode command: %w", err)
	}
	return p, nil
}

// ParseReading parses raw form values as base-10 integers.
func ParseReading(brightness, temperature string) (Reading, error) {
	b, err := strconv.Atoi(strings.TrimSpace(brightness))
	if err != nil {
		return Reading{}, fmt.Errorf("%w: brightness %q is not a number", ErrInvalidReading, brightness)
	}
	t, err := strconv.Atoi(strings.TrimSpace(temperature))
	if err != nil {
		return Reading{}, fmt.Errorf("%w: temperature %q is not a number", ErrInvalidReading, temperature)
	}
	return Reading{Brightness: b, Temperature: t}, nil
}
