package scene

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/auroraviz/aurora/internal/domain"
)

func testPalette(name string) domain.Palette {
	p, ok := domain.PaletteByName(name)
	if !ok {
		panic("unknown test palette " + name)
	}
	return p
}

func TestStarfield_Build_Count(t *testing.T) {
	f := NewStarfield(1)

	f.Build(250, 20, testPalette("aurora"))
	assert.Equal(t, 250, f.Count())

	f.Build(0, 20, testPalette("aurora"))
	assert.Equal(t, 0, f.Count())

	f.Build(-5, 20, testPalette("aurora"))
	assert.Equal(t, 0, f.Count(), "negative counts clamp to empty")
}

func TestStarfield_Build_StarsOnShell(t *testing.T) {
	f := NewStarfield(7)
	f.Build(500, 20, testPalette("aurora"))

	for i, s := range f.Stars() {
		require.InDelta(t, 1.0, s.Dir.Length(), 1e-9, "star %d direction", i)
		assert.GreaterOrEqual(t, s.Radius, 20*0.6, "star %d radius", i)
		assert.LessOrEqual(t, s.Radius, 20.0, "star %d radius", i)
	}
	assert.InDelta(t, 20.0, f.Radius(), 1e-12)
}

func TestStarfield_Build_CoversBothHemispheres(t *testing.T) {
	f := NewStarfield(42)
	f.Build(1000, 10, testPalette("mono"))

	up, down := 0, 0
	for _, s := range f.Stars() {
		if s.Dir.Y > 0 {
			up++
		} else {
			down++
		}
	}

	// A uniform shell should not pile up at the poles or the equator
	assert.Greater(t, up, 300)
	assert.Greater(t, down, 300)
}

func TestStarfield_Build_BrightnessAndSizeRanges(t *testing.T) {
	f := NewStarfield(3)
	f.Build(400, 15, testPalette("violet"))

	for i, s := range f.Stars() {
		assert.GreaterOrEqual(t, s.Brightness, 0.5, "star %d", i)
		assert.LessOrEqual(t, s.Brightness, 1.0, "star %d", i)
		assert.GreaterOrEqual(t, s.Size, 1.0, "star %d", i)
		assert.LessOrEqual(t, s.Size, 2.6, "star %d", i)
	}
}

func TestStarfield_Build_SameSeedSameLayout(t *testing.T) {
	a := NewStarfield(99)
	b := NewStarfield(99)

	a.Build(100, 20, testPalette("aurora"))
	b.Build(100, 20, testPalette("aurora"))

	require.Equal(t, a.Count(), b.Count())
	for i := range a.Stars() {
		assert.Equal(t, a.Stars()[i], b.Stars()[i], "star %d", i)
	}
}

func TestStarfield_Build_PaletteSwapRecolors(t *testing.T) {
	a := NewStarfield(5)
	b := NewStarfield(5)

	a.Build(50, 20, testPalette("aurora"))
	b.Build(50, 20, testPalette("ember"))

	differ := 0
	for i := range a.Stars() {
		if a.Stars()[i].Color != b.Stars()[i].Color {
			differ++
		}
	}
	assert.Greater(t, differ, 40, "most stars should pick up the new glow hue")

	// Geometry is driven by the same seed, not by the palette
	for i := range a.Stars() {
		assert.Equal(t, a.Stars()[i].Dir, b.Stars()[i].Dir, "star %d direction", i)
	}
}
