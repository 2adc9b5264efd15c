package lights

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"
)

// MaxBrightness caps the alpha channel so a full-white cue never drives the
// strip at full current.
const MaxBrightness uint8 = 200

const (
	alphaOffset uint8 = 0x18
	redOffset   uint8 = 0x10
	greenOffset uint8 = 0x08
	blueOffset  uint8 = 0x0
)

// Color is a packed 0xAARRGGBB value.
type Color uint32

// Black is fully off.
const Black Color = 0xFF000000

func channel(c Color, off uint8) uint8 {
	return uint8((uint32(c) >> off) & 0xFF)
}

func withChannel(c Color, n uint8, off uint8) Color {
	mask := uint32(0xFF) << off
	return Color((uint32(c) &^ mask) | uint32(n)<<off)
}

func (c Color) R() uint8 { return channel(c, redOffset) }
func (c Color) G() uint8 { return channel(c, greenOffset) }
func (c Color) B() uint8 { return channel(c, blueOffset) }
func (c Color) A() uint8 { return channel(c, alphaOffset) }

// WithAlpha returns c with its alpha channel replaced.
func (c Color) WithAlpha(a uint8) Color { return withChannel(c, a, alphaOffset) }

// Scale returns c with alpha multiplied by f in [0,1].
func (c Color) Scale(f float64) Color {
	return c.WithAlpha(uint8(float64(c.A()) * clamp01(f)))
}

// NRGBA folds alpha into the channels, capped at MaxBrightness, since the
// strip has no alpha of its own.
func (c Color) NRGBA() color.NRGBA {
	a := float64(c.A())
	if a > float64(MaxBrightness) {
		a = float64(MaxBrightness)
	}
	return color.NRGBA{
		R: uint8(float64(c.R()) * a / 255),
		G: uint8(float64(c.G()) * a / 255),
		B: uint8(float64(c.B()) * a / 255),
		A: 255,
	}
}

func (c Color) String() string { return fmt.Sprintf("#%08X", uint32(c)) }

// ParseHex reads "#RRGGBB" or "#AARRGGBB" (leading '#' optional). Six-digit
// values are fully opaque.
func ParseHex(s string) (Color, error) {
	h := strings.TrimPrefix(strings.TrimSpace(s), "#")
	switch len(h) {
	case 6, 8:
	default:
		return 0, fmt.Errorf("lights: bad color %q", s)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("lights: bad color %q: %w", s, err)
	}
	if len(h) == 6 {
		v |= 0xFF000000
	}
	return Color(v), nil
}

// Palette maps background keys to strip colors.
type Palette map[string]Color

// ParsePalette converts a key->hex map, as found in config files.
func ParsePalette(m map[string]string) (Palette, error) {
	p := make(Palette, len(m))
	for k, v := range m {
		c, err := ParseHex(v)
		if err != nil {
			return nil, fmt.Errorf("palette %q: %w", k, err)
		}
		p[k] = c
	}
	return p, nil
}
