// Package lamp drives the light fixture: it follows commands from the panel,
// compensates for the room color and reports the color it shows.
package lamp

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/lumos/internal/color"
	"github.com/dokzlo13/lumos/internal/command"
	"github.com/dokzlo13/lumos/internal/lua"
	"github.com/dokzlo13/lumos/internal/mode"
)

// DefaultInputScale is the full-scale value of brightness and temperature.
const DefaultInputScale = 100

// Settings is the last command the lamp received.
type Settings struct {
	Mode        string  `json:"mode"`
	Brightness  float64 `json:"brightness"`
	Temperature float64 `json:"temperature"`
}

// SettingsFrom converts a decoded command into lamp settings.
func SettingsFrom(p command.Payload) Settings {
	return Settings{
		Mode:        p.Mode,
		Brightness:  float64(p.Brightness),
		Temperature: float64(p.Temperature),
	}
}

// Target returns the color the settings ask for, ignoring the room.
// Warm temperatures lean red, cold ones blue; brightness scales all channels.
func Target(s Settings, scale float64) color.Color {
	if scale <= 0 {
		scale = DefaultInputScale
	}
	t := s.Temperature / scale
	b := s.Brightness / scale

	return color.Color{
		R: t,
		G: 0.3 + t*0.4,
		B: 1.0 - t,
	}.Scale(b)
}

// Decide picks the lamp color for the given settings and room color.
func Decide(s Settings, room color.Color, scale float64) (color.Color, error) {
	m, err := mode.ParseMode(s.Mode)
	if err != nil {
		return color.Color{}, err
	}

	target := Target(s, scale)

	switch m {
	case mode.Manual:
		return target, nil
	case mode.Automatic:
		offset := color.Color{R: target.R - room.R, G: target.G - room.G, B: target.B - room.B}
		return color.Color{R: room.R + offset.R, G: room.G + offset.G, B: room.B + offset.B}.Clamp(), nil
	}
	return color.Color{}, fmt.Errorf("unknown mode: %s", s.Mode)
}

// Policy decides the lamp color.
type Policy interface {
	Decide(s Settings, room color.Color) (color.Color, error)
}

// BuiltinPolicy is the compiled-in color policy.
type BuiltinPolicy struct {
	Scale float64
}

func (p BuiltinPolicy) Decide(s Settings, room color.Color) (color.Color, error) {
	return Decide(s, room, p.Scale)
}

// ScriptPolicy delegates to a Lua function decide(settings, room) that returns
// a table {r=, g=, b=} with channels in [0, 1]. Script failures fall back.
type ScriptPolicy struct {
	runtime  *lua.Runtime
	fallback BuiltinPolicy
}

// NewScriptPolicy loads path into a fresh runtime.
func NewScriptPolicy(path string, fallback BuiltinPolicy) (*ScriptPolicy, error) {
	rt := lua.NewRuntime()
	if err := rt.LoadFile(path); err != nil {
		rt.Close()
		return nil, err
	}
	return newScriptPolicy(rt, fallback)
}

func newScriptPolicy(rt *lua.Runtime, fallback BuiltinPolicy) (*ScriptPolicy, error) {
	if !rt.HasFunction("decide") {
		rt.Close()
		return nil, fmt.Errorf("script does not define decide(settings, room)")
	}
	return &ScriptPolicy{runtime: rt, fallback: fallback}, nil
}

func (p *ScriptPolicy) Decide(s Settings, room color.Color) (color.Color, error) {
	c, err := p.call(s, room)
	if err != nil {
		log.Warn().Err(err).Msg("Lamp script failed, using builtin policy")
		return p.fallback.Decide(s, room)
	}
	return c, nil
}

func (p *ScriptPolicy) call(s Settings, room color.Color) (color.Color, error) {
	scale := p.fallback.Scale
	if scale <= 0 {
		scale = DefaultInputScale
	}

	out, err := p.runtime.Call("decide",
		map[string]any{
			"mode":        s.Mode,
			"brightness":  s.Brightness,
			"temperature": s.Temperature,
			"scale":       scale,
		},
		map[string]any{"r": room.R, "g": room.G, "b": room.B},
	)
	if err != nil {
		return color.Color{}, err
	}

	var c color.Color
	for key, dst := range map[string]*float64{"r": &c.R, "g": &c.G, "b": &c.B} {
		v, ok := out[key].(float64)
		if !ok {
			return color.Color{}, fmt.Errorf("decide result: %q missing or not a number", key)
		}
		*dst = v
	}
	return c.Clamp(), nil
}

// Close releases the script runtime.
func (p *ScriptPolicy) Close() {
	p.runtime.Close()
}
