// Package scene: the star backdrop.
package scene

import (
	"math"
	"math/rand"

	"github.com/auroraviz/aurora/internal/domain"
)

// Star is a single point on the backdrop shell.
type Star struct {
	Dir        domain.Vec3 // unit direction from the origin
	Radius     float64     // shell radius for this star
	Color      domain.Color
	Brightness float64
	Size       float64
}

// Starfield is the spherical star shell behind the mesh. It is fully
// rebuilt whenever the palette or star count changes, and rotated at draw
// time for parallax tied to the camera orbit.
type Starfield struct {
	stars  []Star
	radius float64
	rng    *rand.Rand
}

// NewStarfield creates an empty starfield. Call Build before drawing.
// The seed keeps star layouts reproducible in tests.
func NewStarfield(seed int64) *Starfield {
	// nolint:gosec // G404 - weak random is fine for visual effects
	return &Starfield{rng: rand.New(rand.NewSource(seed))}
}

// Build replaces all stars with count points uniformly distributed on a
// shell between 0.6 and 1.0 of the given radius, tinted from the palette's
// glow hue with small random perturbations. Passing a new palette here is
// how a palette swap recolors the backdrop.
func (f *Starfield) Build(count int, radius float64, palette domain.Palette) {
	if count < 0 {
		count = 0
	}
	f.radius = radius
	f.stars = make([]Star, count)

	glow := palette.GlowHSL()

	for i := range f.stars {
		// acos(2u-1) spreads latitude uniformly over the sphere
		phi := math.Acos(2*f.rng.Float64() - 1)
		theta := 2 * math.Pi * f.rng.Float64()
		dir := domain.Vec3{
			X: math.Sin(phi) * math.Cos(theta),
			Y: math.Cos(phi),
			Z: math.Sin(phi) * math.Sin(theta),
		}

		tint := glow.Shift((f.rng.Float64() - 0.5) * 0.16)
		tint.S = 0.15 + f.rng.Float64()*0.55
		tint.L = 0.55 + f.rng.Float64()*0.4

		f.stars[i] = Star{
			Dir:        dir,
			Radius:     radius * (0.6 + 0.4*f.rng.Float64()),
			Color:      tint.RGB(),
			Brightness: 0.5 + f.rng.Float64()*0.5,
			Size:       1 + f.rng.Float64()*1.6,
		}
	}
}

// Stars returns the current star list for drawing.
func (f *Starfield) Stars() []Star {
	return f.stars
}

// Count returns the number of stars.
func (f *Starfield) Count() int {
	return len(f.stars)
}

// Radius returns the outer shell radius the field was built with.
func (f *Starfield) Radius() float64 {
	return f.radius
}
