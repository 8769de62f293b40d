// Package color provides the RGB color used by the lamp and the panel background.
package color

import (
	"fmt"
	"math"
)

// Color is an RGB color with channels normalized to [0, 1].
type Color struct {
	R float64 `json:"r"`
	G float64 `json:"g"`
	B float64 `json:"b"`
}

var (
	Black = Color{}
	White = Color{R: 1, G: 1, B: 1}
)

// RGB8 is an RGB color with 8-bit channels, the form used on the wire.
type RGB8 struct {
	R int `json:"r"`
	G int `json:"g"`
	B int `json:"b"`
}

// FromRGB8 converts 8-bit channels to a normalized color.
func FromRGB8(c RGB8) Color {
	return Color{
		R: float64(c.R) / 255.0,
		G: float64(c.G) / 255.0,
		B: float64(c.B) / 255.0,
	}
}

// RGB8 converts the color to 8-bit channels, rounding to the nearest step.
func (c Color) RGB8() RGB8 {
	c = c.Clamp()
	return RGB8{
		R: int(math.Round(c.R * 255)),
		G: int(math.Round(c.G * 255)),
		B: int(math.Round(c.B * 255)),
	}
}

// Hex formats the color as #RRGGBB.
func (c Color) Hex() string {
	v := c.RGB8()
	return fmt.Sprintf("#%02X%02X%02X", v.R, v.G, v.B)
}

func (c Color) String() string {
	return c.Hex()
}

// Reverse returns the complementary color.
func (c Color) Reverse() Color {
	return Color{R: 1 - c.R, G: 1 - c.G, B: 1 - c.B}
}

// Clamp limits every channel to [0, 1].
func (c Color) Clamp() Color {
	return Color{R: clamp01(c.R), G: clamp01(c.G), B: clamp01(c.B)}
}

// Scale multiplies every channel by f.
func (c Color) Scale(f float64) Color {
	return Color{R: c.R * f, G: c.G * f, B: c.B * f}
}

// Mix adds two colors channel-wise, saturating at 1.
func Mix(a, b Color) Color {
	return Color{
		R: math.Min(1, a.R+b.R),
		G: math.Min(1, a.G+b.G),
		B: math.Min(1, a.B+b.B),
	}
}

// Valid reports whether every channel of an 8-bit color is within [0, 255].
func (c RGB8) Valid() bool {
	return inByte(c.R) && inByte(c.G) && inByte(c.B)
}

func inByte(v int) bool {
	return v >= 0 && v <= 255
}

func clamp01(v float64) float64 {
	return math.Min(1, math.Max(0, v))
}
