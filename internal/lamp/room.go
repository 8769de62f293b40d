package lamp

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/dokzlo13/lumos/internal/color"
)

// ErrMalformedRoom is returned for room readings that cannot be used.
var ErrMalformedRoom = errors.New("malformed room reading")

// RoomSensor reports the ambient color of the room.
type RoomSensor interface {
	Color() color.Color
}

// StaticRoom is a fixed room color.
type StaticRoom color.Color

func (r StaticRoom) Color() color.Color {
	return color.Color(r)
}

// TopicRoom holds the latest reading published on the room topic.
type TopicRoom struct {
	mu      sync.RWMutex
	current color.Color
}

// NewTopicRoom creates a sensor that reports initial until the first reading.
func NewTopicRoom(initial color.Color) *TopicRoom {
	return &TopicRoom{current: initial}
}

func (r *TopicRoom) Color() color.Color {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}

// Handle applies a reading of the form {"r":..,"g":..,"b":..} with 8-bit channels.
func (r *TopicRoom) Handle(body []byte) (color.Color, error) {
	var in struct {
		R *int `json:"r"`
		G *int `json:"g"`
		B *int `json:"b"`
	}
	if err := json.Unmarshal(body, &in); err != nil {
		lenient := strings.ReplaceAll(string(body), "'", `"`)
		if err2 := json.Unmarshal([]byte(lenient), &in); err2 != nil {
			return color.Color{}, fmt.Errorf("%w: %v", ErrMalformedRoom, err)
		}
	}
	if in.R == nil || in.G == nil || in.B == nil {
		return color.Color{}, fmt.Errorf("%w: needs r, g and b", ErrMalformedRoom)
	}

	rgb := color.RGB8{R: *in.R, G: *in.G, B: *in.B}
	if !rgb.Valid() {
		return color.Color{}, fmt.Errorf("%w: channel out of range %+v", ErrMalformedRoom, rgb)
	}

	c := color.FromRGB8(rgb)
	r.mu.Lock()
	r.current = c
	r.mu.Unlock()
	return c, nil
}
