package dsp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/auroraviz/aurora/internal/domain"
)

func TestSmoother_Update_ConvergesToConstantInput(t *testing.T) {
	s := NewSmoother(0.06, 0.55)

	raw := domain.BandEnergy{Bass: 0.8, Mid: 0.5, Treble: 0.3, Overall: 0.6}

	var state domain.SmoothedEnergy
	for i := 0; i < 400; i++ {
		state = s.Update(raw)
	}

	assert.InDelta(t, raw.Bass, state.Slow.Bass, 1e-6)
	assert.InDelta(t, raw.Mid, state.Slow.Mid, 1e-6)
	assert.InDelta(t, raw.Treble, state.Slow.Treble, 1e-6)
	assert.InDelta(t, raw.Overall, state.Slow.Overall, 1e-6)
	assert.InDelta(t, raw.Bass, state.FastBass, 1e-6)
}

func TestSmoother_Update_FactorOneTracksExactly(t *testing.T) {
	s := NewSmoother(1, 1)

	state := s.Update(domain.BandEnergy{Bass: 0.42, Mid: 0.1, Treble: 0.9, Overall: 0.33})

	assert.Equal(t, 0.42, state.Slow.Bass)
	assert.Equal(t, 0.1, state.Slow.Mid)
	assert.Equal(t, 0.9, state.Slow.Treble)
	assert.Equal(t, 0.33, state.Slow.Overall)
	assert.Equal(t, 0.42, state.FastBass)
}

func TestSmoother_Update_FastTrackLeadsSlowTrack(t *testing.T) {
	s := NewSmoother(0.06, 0.55)

	// One loud frame from silence: the fast track must move further
	state := s.Update(domain.BandEnergy{Bass: 1})

	assert.Greater(t, state.FastBass, state.Slow.Bass)
}

func TestSmoother_Update_StaysInRange(t *testing.T) {
	s := NewSmoother(0.08, 0.8)

	inputs := []float64{0, 1, 1, 0, 0.5, 1, 0, 0, 1}
	for _, v := range inputs {
		state := s.Update(domain.BandEnergy{Bass: v, Mid: v, Treble: v, Overall: v})
		for name, got := range map[string]float64{
			"bass":     state.Slow.Bass,
			"mid":      state.Slow.Mid,
			"treble":   state.Slow.Treble,
			"overall":  state.Slow.Overall,
			"fastBass": state.FastBass,
		} {
			assert.GreaterOrEqual(t, got, 0.0, name)
			assert.LessOrEqual(t, got, 1.0, name)
		}
	}
}

func TestSmoother_Reset(t *testing.T) {
	s := NewSmoother(0.5, 0.5)
	s.Update(domain.BandEnergy{Bass: 1, Mid: 1, Treble: 1, Overall: 1})
	require.NotZero(t, s.State().Slow.Bass)

	s.Reset()

	assert.Equal(t, domain.SmoothedEnergy{}, s.State())
}

func newTestEnvelope() *MorphEnvelope {
	v := domain.VariantClassic()
	return NewMorphEnvelope(v.MorphThreshold, v.MorphKnee, v.MorphAttackRate, v.MorphReleaseRate)
}

func TestMorphEnvelope_SilenceStaysClosed(t *testing.T) {
	env := newTestEnvelope()

	for i := 0; i < 100; i++ {
		assert.Zero(t, env.Update(0))
	}
}

func TestMorphEnvelope_BelowGateStaysClosed(t *testing.T) {
	env := newTestEnvelope()

	// Well under threshold minus knee
	for i := 0; i < 100; i++ {
		v := env.Update(0.1)
		assert.Zero(t, v)
	}
}

func TestMorphEnvelope_FullScaleOpens(t *testing.T) {
	env := newTestEnvelope()

	var prev float64
	for i := 0; i < 200; i++ {
		v := env.Update(1)
		assert.GreaterOrEqual(t, v, prev, "envelope must rise monotonically toward the target")
		assert.LessOrEqual(t, v, 1.0)
		prev = v
	}

	assert.InDelta(t, 1.0, env.Value(), 1e-3)
}

func TestMorphEnvelope_AttackFasterThanRelease(t *testing.T) {
	env := newTestEnvelope()

	// Open fully, then drop to silence
	for i := 0; i < 200; i++ {
		env.Update(1)
	}
	opened := env.Value()
	require.Greater(t, opened, 0.95)

	// After the same number of frames the release has further to go
	env2 := newTestEnvelope()
	rises := 0
	for env2.Update(1) < opened*0.9 {
		rises++
	}

	falls := 0
	for env.Update(0) > opened*0.1 {
		falls++
	}

	assert.Greater(t, falls, rises, "release should be slower than attack")
}

func TestMorphEnvelope_ClampsWildInput(t *testing.T) {
	env := newTestEnvelope()

	for _, v := range []float64{5, -3, 2, 100, -0.5} {
		got := env.Update(v)
		assert.GreaterOrEqual(t, got, 0.0)
		assert.LessOrEqual(t, got, 1.0)
	}
}

func TestMorphEnvelope_Reset(t *testing.T) {
	env := newTestEnvelope()
	env.Update(1)
	require.NotZero(t, env.Value())

	env.Reset()

	assert.Zero(t, env.Value())
}

func TestSmoothstep_Shape(t *testing.T) {
	assert.Zero(t, smoothstep(0.2, 0.6, 0.1))
	assert.Equal(t, 1.0, smoothstep(0.2, 0.6, 0.9))
	assert.InDelta(t, 0.5, smoothstep(0.2, 0.6, 0.4), 1e-9)

	// Degenerate edge collapses to a hard step
	assert.Zero(t, smoothstep(0.5, 0.5, 0.4))
	assert.Equal(t, 1.0, smoothstep(0.5, 0.5, 0.6))
}
