// Package display applies sensor readings received from the fixture to the panel page.
package display

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/lumos/internal/color"
	"github.com/dokzlo13/lumos/internal/ui"
)

// DefaultTopic is the topic the fixture reports its color on.
const DefaultTopic = "iot/to_ui"

// ErrMalformedMessage is returned for messages that do not carry a valid color.
var ErrMalformedMessage = errors.New("malformed display message")

// channels uses pointers so missing fields can be told apart from zero.
type channels struct {
	R *int `json:"r"`
	G *int `json:"g"`
	B *int `json:"b"`
}

type message struct {
	AverageColor *channels `json:"average_color"`
}

// Message is the body published by the fixture.
type Message struct {
	AverageColor color.RGB8 `json:"average_color"`
}

// Encode serializes a display message for c.
func Encode(c color.Color) ([]byte, error) {
	return json.Marshal(Message{AverageColor: c.RGB8()})
}

// Decode parses and validates a display message.
func Decode(body []byte) (color.Color, error) {
	var msg message
	if err := json.Unmarshal(body, &msg); err != nil {
		lenient := strings.ReplaceAll(string(body), "'", `"`)
		if err2 := json.Unmarshal([]byte(lenient), &msg); err2 != nil {
			return color.Color{}, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
		}
	}

	c := msg.AverageColor
	if c == nil {
		return color.Color{}, fmt.Errorf("%w: average_color missing", ErrMalformedMessage)
	}
	if c.R == nil || c.G == nil || c.B == nil {
		return color.Color{}, fmt.Errorf("%w: average_color needs r, g and b", ErrMalformedMessage)
	}

	rgb := color.RGB8{R: *c.R, G: *c.G, B: *c.B}
	if !rgb.Valid() {
		return color.Color{}, fmt.Errorf("%w: channel out of range %+v", ErrMalformedMessage, rgb)
	}

	return color.FromRGB8(rgb), nil
}

// Updater sets the page background from incoming messages.
type Updater struct {
	target ui.Display
}

// NewUpdater creates an updater writing to target.
func NewUpdater(target ui.Display) *Updater {
	return &Updater{target: target}
}

// Handle applies one message. Malformed messages are dropped and leave the page unchanged.
func (u *Updater) Handle(body []byte) (color.Color, error) {
	c, err := Decode(body)
	if err != nil {
		log.Debug().Err(err).Int("len", len(body)).Msg("Dropping display message")
		return color.Color{}, err
	}

	u.target.SetBackground(c)
	log.Debug().Str("background", c.Hex()).Msg("Background updated")
	return c, nil
}
