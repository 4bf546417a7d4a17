// Package domain: color types and palette definitions.
package domain

import (
	"math"
)

// Color is an RGB color with channels in the 0-1 range.
type Color struct {
	R, G, B float64
}

// Lerp blends toward other by t (0 returns c, 1 returns other).
func (c Color) Lerp(other Color, t float64) Color {
	return Color{
		R: c.R + (other.R-c.R)*t,
		G: c.G + (other.G-c.G)*t,
		B: c.B + (other.B-c.B)*t,
	}
}

// Scale multiplies all channels by k, clamping to the valid range.
func (c Color) Scale(k float64) Color {
	return Color{
		R: clamp01(c.R * k),
		G: clamp01(c.G * k),
		B: clamp01(c.B * k),
	}
}

// RGBA8 returns the color as 8-bit channels.
func (c Color) RGBA8() (r, g, b uint8) {
	return uint8(clamp01(c.R) * 255), uint8(clamp01(c.G) * 255), uint8(clamp01(c.B) * 255)
}

// HSL returns the hue/saturation/lightness decomposition, all in 0-1.
func (c Color) HSL() HSL {
	maxC := math.Max(c.R, math.Max(c.G, c.B))
	minC := math.Min(c.R, math.Min(c.G, c.B))
	l := (maxC + minC) / 2

	if maxC == minC {
		return HSL{H: 0, S: 0, L: l}
	}

	d := maxC - minC
	var s float64
	if l > 0.5 {
		s = d / (2 - maxC - minC)
	} else {
		s = d / (maxC + minC)
	}

	var h float64
	switch maxC {
	case c.R:
		h = (c.G - c.B) / d
		if c.G < c.B {
			h += 6
		}
	case c.G:
		h = (c.B-c.R)/d + 2
	default:
		h = (c.R-c.G)/d + 4
	}
	h /= 6

	return HSL{H: h, S: s, L: l}
}

// HSL is a color in hue/saturation/lightness form, all components in 0-1.
// Hue wraps: 0 and 1 are the same angle.
type HSL struct {
	H, S, L float64
}

// RGB converts back to RGB.
func (h HSL) RGB() Color {
	r, g, b := hslToRGB(h.H, h.S, h.L)
	return Color{R: r, G: g, B: b}
}

// Shift returns the color with its hue rotated by the given number of turns.
func (h HSL) Shift(turns float64) HSL {
	h.H = wrapHue(h.H + turns)
	return h
}

// hslToRGB converts HSL to RGB (h, s, l in 0-1 range).
func hslToRGB(h, s, l float64) (r, g, b float64) {
	if s == 0 {
		return l, l, l
	}

	var q float64
	if l < 0.5 {
		q = l * (1 + s)
	} else {
		q = l + s - l*s
	}
	p := 2*l - q

	r = hueToRGB(p, q, h+1.0/3.0)
	g = hueToRGB(p, q, h)
	b = hueToRGB(p, q, h-1.0/3.0)

	return r, g, b
}

// hueToRGB is a helper for HSL to RGB conversion.
func hueToRGB(p, q, t float64) float64 {
	if t < 0 {
		t += 1
	}
	if t > 1 {
		t -= 1
	}
	if t < 1.0/6.0 {
		return p + (q-p)*6*t
	}
	if t < 0.5 {
		return q
	}
	if t < 2.0/3.0 {
		return p + (q-p)*(2.0/3.0-t)*6
	}
	return p
}

func wrapHue(h float64) float64 {
	h = math.Mod(h, 1)
	if h < 0 {
		h += 1
	}
	return h
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Palette is a named color scheme. The HSL decomposition of the base and
// glow colors is computed once at construction, so per-frame hue shifts
// always start from the same anchor instead of accumulating drift.
type Palette struct {
	// Name identifies the palette in settings and telemetry
	Name string

	// Base is the mesh surface color
	Base Color

	// Glow is the emissive color used for wireframe, stars and bloom
	Glow Color

	// Background is the scene clear color
	Background Color

	baseHSL HSL
	glowHSL HSL
}

// NewPalette builds a palette and caches the HSL anchors for hue shifting.
func NewPalette(name string, base, glow, background Color) Palette {
	return Palette{
		Name:       name,
		Base:       base,
		Glow:       glow,
		Background: background,
		baseHSL:    base.HSL(),
		glowHSL:    glow.HSL(),
	}
}

// ShiftedBase returns the base color with its hue rotated by shift turns,
// computed fresh from the cached anchor.
func (p Palette) ShiftedBase(shift float64) Color {
	return p.baseHSL.Shift(shift).RGB()
}

// ShiftedGlow returns the glow color with its hue rotated by shift turns.
func (p Palette) ShiftedGlow(shift float64) Color {
	return p.glowHSL.Shift(shift).RGB()
}

// GlowHSL returns the cached glow anchor, used when scattering star colors.
func (p Palette) GlowHSL() HSL {
	return p.glowHSL
}

// Built-in palettes.
func paletteAurora() Palette {
	return NewPalette("aurora",
		Color{R: 0.10, G: 0.55, B: 0.45},
		Color{R: 0.35, G: 0.95, B: 0.75},
		Color{R: 0.01, G: 0.02, B: 0.05},
	)
}

func paletteEmber() Palette {
	return NewPalette("ember",
		Color{R: 0.60, G: 0.22, B: 0.08},
		Color{R: 1.00, G: 0.55, B: 0.20},
		Color{R: 0.03, G: 0.01, B: 0.01},
	)
}

func paletteViolet() Palette {
	return NewPalette("violet",
		Color{R: 0.38, G: 0.16, B: 0.60},
		Color{R: 0.78, G: 0.45, B: 1.00},
		Color{R: 0.02, G: 0.01, B: 0.05},
	)
}

func paletteMono() Palette {
	return NewPalette("mono",
		Color{R: 0.55, G: 0.58, B: 0.62},
		Color{R: 0.92, G: 0.95, B: 1.00},
		Color{R: 0.02, G: 0.02, B: 0.03},
	)
}

// Palettes returns all built-in palettes in display order.
func Palettes() []Palette {
	return []Palette{paletteAurora(), paletteEmber(), paletteViolet(), paletteMono()}
}

// PaletteByName looks up a built-in palette. The second return value is
// false if the name is unknown.
func PaletteByName(name string) (Palette, bool) {
	for _, p := range Palettes() {
		if p.Name == name {
			return p, true
		}
	}
	return Palette{}, false
}
