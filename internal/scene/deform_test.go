package scene

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/auroraviz/aurora/internal/domain"
)

func newTestDeformer(level int) *Deformer {
	return NewDeformer(level, testPalette("aurora"), domain.VariantClassic())
}

func bassHit() domain.SmoothedEnergy {
	return domain.SmoothedEnergy{
		Slow:     domain.BandEnergy{Bass: 0.8, Overall: 0.4},
		FastBass: 1.0,
	}
}

func fullSnapshot(bins int) *domain.SpectrumSnapshot {
	b := make([]byte, bins)
	for i := range b {
		b[i] = 255
	}
	return &domain.SpectrumSnapshot{Bins: b, SampleRate: 44100}
}

func TestDeformer_VertexCountFollowsResolution(t *testing.T) {
	d := newTestDeformer(3)
	assert.Equal(t, 642, d.VertexCount())

	assert.Equal(t, 42, d.SetResolution(1))
	assert.Equal(t, 42, d.VertexCount())
	assert.Equal(t, 42, d.BaseMesh().VertexCount())
}

func TestDeformer_SetMorphField_RejectsMismatch(t *testing.T) {
	d := newTestDeformer(1) // 42 vertices

	wrong := IdentityField("x", Icosphere(2))
	err := d.SetMorphField(wrong)
	assert.ErrorIs(t, err, domain.ErrFieldLengthMismatch)

	short := domain.MorphField{AssetID: "x", VertexCount: 42, Points: make([]float64, 5)}
	assert.ErrorIs(t, d.SetMorphField(short), domain.ErrFieldLengthMismatch)
}

func TestDeformer_SetResolution_DropsMorphField(t *testing.T) {
	d := newTestDeformer(1)

	field := IdentityField("x", d.BaseMesh())
	for i := range field.Points {
		field.Points[i] *= 2
	}
	require.NoError(t, d.SetMorphField(field))

	d.SetResolution(2)

	// Full blend after the rebuild must leave the mesh at the base shape
	params := d.BuildParams(1.0/60, silence(), 1.0, nil)
	out := d.Apply(params)
	for i, v := range out.Vertices {
		assert.InDelta(t, 1.0, v.Length(), deformWobbleScale+1e-6, "vertex %d", i)
	}
}

func TestDeformer_BuildParams_Silence(t *testing.T) {
	d := newTestDeformer(2)

	params := d.BuildParams(1.0/60, silence(), 0.3, nil)

	assert.InDelta(t, 0.9, params.Reactivity, 1e-12)
	assert.InDelta(t, 0.0, params.SpikeAmount, 1e-12)
	assert.InDelta(t, 0.3, params.MorphBlend, 1e-12)
	assert.InDelta(t, 1.0, params.LightLevel, 1e-12)
	assert.InDelta(t, 1.0, params.BloomStrength, 1e-12)
	assert.InDelta(t, deformWireBase, params.WireOpacity, 1e-12)

	// Zero hue shift reproduces the palette anchors
	base := testPalette("aurora").Base
	assert.InDelta(t, base.R, params.BaseColor.R, 1e-6)
	assert.InDelta(t, base.G, params.BaseColor.G, 1e-6)
	assert.InDelta(t, base.B, params.BaseColor.B, 1e-6)

	for _, s := range params.Spectrum {
		assert.Zero(t, s)
	}
}

func TestDeformer_BuildParams_LoudMix(t *testing.T) {
	d := newTestDeformer(2)
	variant := domain.VariantClassic()

	energy := domain.SmoothedEnergy{
		Slow:     domain.BandEnergy{Bass: 1, Mid: 1, Treble: 1, Overall: 1},
		FastBass: 1,
	}
	params := d.BuildParams(1.0/60, energy, 0, fullSnapshot(1024))

	assert.InDelta(t, 0.9+2.6, params.Reactivity, 1e-12)
	assert.InDelta(t, variant.SpikeStrength, params.SpikeAmount, 1e-12)
	assert.InDelta(t, variant.SpikeSharpness, params.SpikeSharpness, 1e-12)
	assert.InDelta(t, deformWireBase+deformWireBoost, params.WireOpacity, 1e-12)

	for i, s := range params.Spectrum {
		assert.InDelta(t, 1.0, s, 1e-9, "spectrum bin %d", i)
	}
}

func TestDeformer_BuildParams_UserScalesApply(t *testing.T) {
	d := newTestDeformer(2)
	d.SetUserReactivity(2)
	d.SetUserBloom(0.5)

	var params domain.ShaderParams
	for i := 0; i < 300; i++ {
		params = d.BuildParams(1.0/60, silence(), 0, nil)
	}

	assert.InDelta(t, 1.8, params.Reactivity, 1e-12)
	assert.InDelta(t, 0.5, params.BloomStrength, 1e-3, "bloom eases toward the scaled target")
}

func TestDeformer_BuildParams_LightDimsWhenLoud(t *testing.T) {
	d := newTestDeformer(2)

	energy := domain.SmoothedEnergy{Slow: domain.BandEnergy{Overall: 1}}
	var params domain.ShaderParams
	for i := 0; i < 300; i++ {
		params = d.BuildParams(1.0/60, energy, 0, nil)
	}

	assert.InDelta(t, 1-deformLightDim, params.LightLevel, 1e-3)
	assert.InDelta(t, 1-deformBloomDim, params.BloomStrength, 1e-3)
}

func TestDeformer_BuildParams_NoHueDrift(t *testing.T) {
	d := newTestDeformer(2)
	energy := domain.SmoothedEnergy{Slow: domain.BandEnergy{Mid: 0.5}}

	first := d.BuildParams(1.0/60, energy, 0, nil)
	var last domain.ShaderParams
	for i := 0; i < 500; i++ {
		last = d.BuildParams(1.0/60, energy, 0, nil)
	}

	// The shift is recomputed from the palette anchor every frame, so a
	// constant mid level yields exactly the same color forever
	assert.Equal(t, first.BaseColor, last.BaseColor)
	assert.Equal(t, first.GlowColor, last.GlowColor)
}

func TestDeformer_BuildParams_SpectrumIsACopy(t *testing.T) {
	d := newTestDeformer(1)
	snap := fullSnapshot(256)

	params := d.BuildParams(1.0/60, silence(), 0, snap)
	for i := range snap.Bins {
		snap.Bins[i] = 0
	}

	assert.InDelta(t, 1.0, params.Spectrum[0], 1e-9, "params must not alias the snapshot buffer")
}

func TestDeformer_BuildParams_TimeAdvances(t *testing.T) {
	d := newTestDeformer(1)

	p1 := d.BuildParams(0.5, silence(), 0, nil)
	p2 := d.BuildParams(0.25, silence(), 0, nil)

	assert.InDelta(t, 0.5, p1.Time, 1e-12)
	assert.InDelta(t, 0.75, p2.Time, 1e-12)
}

func TestDeformer_Apply_SilenceStaysNearBase(t *testing.T) {
	d := newTestDeformer(2)

	params := d.BuildParams(1.0/60, silence(), 0, nil)
	out := d.Apply(params)

	for i, v := range out.Vertices {
		assert.InDelta(t, 1.0, v.Length(), deformWobbleScale+1e-6, "vertex %d", i)
	}
}

func TestDeformer_Apply_ReusesOutputMesh(t *testing.T) {
	d := newTestDeformer(1)

	params := d.BuildParams(1.0/60, silence(), 0, nil)
	m1 := d.Apply(params)
	m2 := d.Apply(params)

	assert.Same(t, m1, m2, "the deformer owns one output buffer")
}

func TestDeformer_Apply_LeavesBaseUntouched(t *testing.T) {
	d := newTestDeformer(1)

	before := d.BaseMesh().Clone()
	params := d.BuildParams(1.0/60, bassHit(), 0, fullSnapshot(1024))
	d.Apply(params)

	for i := range before.Vertices {
		assert.Equal(t, before.Vertices[i], d.BaseMesh().Vertices[i], "vertex %d", i)
	}
}

func TestDeformer_Apply_SpectrumDisplacesOutward(t *testing.T) {
	d := newTestDeformer(2)

	params := d.BuildParams(1.0/60, silence(), 0, fullSnapshot(1024))
	out := d.Apply(params)

	mean := 0.0
	for _, v := range out.Vertices {
		mean += v.Length()
	}
	mean /= float64(len(out.Vertices))

	// Full-scale spectrum pushes the whole surface outward
	assert.InDelta(t, 1+deformDisplaceScale*params.Reactivity, mean, 0.03)
}

func vertexBand(v domain.Vec3) int {
	u := math.Atan2(v.Z, v.X)/(2*math.Pi) + 0.5
	return int(u * float64(domain.SpectrumTexSize-1))
}

func TestDeformer_Apply_SingleBandIsDirectional(t *testing.T) {
	d := newTestDeformer(2)

	// Heat up only the band the first vertex falls in
	hot := vertexBand(d.BaseMesh().Vertices[0])
	params := d.BuildParams(1.0/60, silence(), 0, nil)
	params.Spectrum[hot] = 1.0

	out := d.Apply(params)

	maxDisp, maxIdx := 0.0, 0
	for i := range out.Vertices {
		disp := out.Vertices[i].Sub(d.BaseMesh().Vertices[i]).Length()
		if disp > maxDisp {
			maxDisp, maxIdx = disp, i
		}
	}

	require.Greater(t, maxDisp, 0.1, "the hot band must move its sector")
	assert.Equal(t, hot, vertexBand(d.BaseMesh().Vertices[maxIdx]), "most displaced vertex sits in the hot sector")
}

func TestDeformer_Apply_SpikesFollowFastBass(t *testing.T) {
	d := newTestDeformer(2)

	params := d.BuildParams(1.0/60, bassHit(), 0, nil)
	require.Greater(t, params.SpikeAmount, 0.0)

	out := d.Apply(params)

	minR, maxR := math.Inf(1), 0.0
	for _, v := range out.Vertices {
		r := v.Length()
		if r < minR {
			minR = r
		}
		if r > maxR {
			maxR = r
		}
	}

	// Stellation is uneven: vertices on the axes spike far beyond the rest
	assert.Greater(t, maxR, 1+params.SpikeAmount*0.9)
	assert.Greater(t, maxR-minR, 0.1)
}

func TestDeformer_Apply_MorphBlendReachesTarget(t *testing.T) {
	d := newTestDeformer(1)

	field := IdentityField("double", d.BaseMesh())
	for i := range field.Points {
		field.Points[i] *= 2
	}
	require.NoError(t, d.SetMorphField(field))

	params := d.BuildParams(1.0/60, silence(), 1.0, nil)
	out := d.Apply(params)
	for i, v := range out.Vertices {
		assert.InDelta(t, 2.0, v.Length(), deformWobbleScale+1e-6, "vertex %d at full blend", i)
	}

	params = d.BuildParams(1.0/60, silence(), 0.5, nil)
	out = d.Apply(params)
	for i, v := range out.Vertices {
		assert.InDelta(t, 1.5, v.Length(), deformWobbleScale+1e-6, "vertex %d at half blend", i)
	}
}

func TestDeformer_ClearMorphField(t *testing.T) {
	d := newTestDeformer(1)

	field := IdentityField("double", d.BaseMesh())
	for i := range field.Points {
		field.Points[i] *= 2
	}
	require.NoError(t, d.SetMorphField(field))
	d.ClearMorphField()

	params := d.BuildParams(1.0/60, silence(), 1.0, nil)
	out := d.Apply(params)
	for i, v := range out.Vertices {
		assert.InDelta(t, 1.0, v.Length(), deformWobbleScale+1e-6, "vertex %d", i)
	}
}
