package common

import (
	"fmt"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// MaxChannel is the largest value an Avea color channel can hold
const MaxChannel = 0x0fff

// Color is used to represent the color of a bulb.
// The bulb mixes four independent LED channels, each with 12 bits of
// resolution.
type Color struct {
	White uint16 // range 0 to 4095
	Red   uint16 // range 0 to 4095
	Green uint16 // range 0 to 4095
	Blue  uint16 // range 0 to 4095
}

// Clamped returns a copy of c with every channel limited to MaxChannel
func (c Color) Clamped() Color {
	return Color{
		White: clampChannel(c.White),
		Red:   clampChannel(c.Red),
		Green: clampChannel(c.Green),
		Blue:  clampChannel(c.Blue),
	}
}

// Hex returns the RGB part of the color as a #rrggbb string, white is ignored
func (c Color) Hex() string {
	return colorful.Color{
		R: float64(clampChannel(c.Red)) / MaxChannel,
		G: float64(clampChannel(c.Green)) / MaxChannel,
		B: float64(clampChannel(c.Blue)) / MaxChannel,
	}.Hex()
}

func (c Color) String() string {
	return fmt.Sprintf("w:%d r:%d g:%d b:%d", c.White, c.Red, c.Green, c.Blue)
}

// ColorFromColorful converts an RGB color to bulb channels, white is a fraction
// in the range 0 to 1
func ColorFromColorful(rgb colorful.Color, white float64) Color {
	rgb = rgb.Clamped()
	return Color{
		White: scaleChannel(white),
		Red:   scaleChannel(rgb.R),
		Green: scaleChannel(rgb.G),
		Blue:  scaleChannel(rgb.B),
	}
}

// ParseColor parses a #rrggbb hex string into a Color with the white channel
// off
func ParseColor(hex string) (Color, error) {
	rgb, err := colorful.Hex(hex)
	if err != nil {
		return Color{}, err
	}
	return ColorFromColorful(rgb, 0), nil
}

func scaleChannel(v float64) uint16 {
	switch {
	case v <= 0:
		return 0
	case v >= 1:
		return MaxChannel
	}
	return uint16(v*MaxChannel + 0.5)
}

func clampChannel(v uint16) uint16 {
	if v > MaxChannel {
		return MaxChannel
	}
	return v
}
