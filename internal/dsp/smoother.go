// Package dsp: frame-to-frame smoothing of band energies.
package dsp

import (
	"github.com/auroraviz/aurora/internal/domain"
)

// Smoother carries band energies across frames, applying the two smoothing
// tracks the scene consumes: a slow track over every band for color, light
// and camera, and a fast track over bass alone for percussive effects.
type Smoother struct {
	slowK float64
	fastK float64
	state domain.SmoothedEnergy
}

// NewSmoother creates a Smoother with the given per-frame blend factors.
// Factors are clamped to [0, 1]; a factor of 1 tracks the input exactly.
func NewSmoother(slowK, fastK float64) *Smoother {
	return &Smoother{
		slowK: clampF(slowK, 0, 1),
		fastK: clampF(fastK, 0, 1),
	}
}

// Update folds one frame of raw band energy into both tracks and returns
// the new state.
func (s *Smoother) Update(raw domain.BandEnergy) domain.SmoothedEnergy {
	s.state.Slow.Bass = ema(s.state.Slow.Bass, raw.Bass, s.slowK)
	s.state.Slow.Mid = ema(s.state.Slow.Mid, raw.Mid, s.slowK)
	s.state.Slow.Treble = ema(s.state.Slow.Treble, raw.Treble, s.slowK)
	s.state.Slow.Overall = ema(s.state.Slow.Overall, raw.Overall, s.slowK)
	s.state.FastBass = ema(s.state.FastBass, raw.Bass, s.fastK)
	return s.state
}

// State returns the current smoothed values without advancing them.
func (s *Smoother) State() domain.SmoothedEnergy {
	return s.state
}

// Retune swaps the blend factors while keeping the smoothed state, so a
// variant change does not make the scene dip to black and fade back in.
func (s *Smoother) Retune(slowK, fastK float64) {
	s.slowK = clampF(slowK, 0, 1)
	s.fastK = clampF(fastK, 0, 1)
}

// Reset zeroes the state, used when the spectrum source switches.
func (s *Smoother) Reset() {
	s.state = domain.SmoothedEnergy{}
}

// ema moves current toward input by factor k.
func ema(current, input, k float64) float64 {
	return current + (input-current)*k
}

// MorphEnvelope turns a band level into the 0-1 blend that drives shape
// morphing. A soft gate around the threshold holds the envelope at zero
// through quiet passages; above the gate, the level itself scales the
// target so louder music morphs further. Attack and release rates differ:
// the shape snaps open and relaxes slowly.
type MorphEnvelope struct {
	threshold float64
	knee      float64
	attack    float64
	release   float64
	value     float64
}

// NewMorphEnvelope creates an envelope with the given gate and rates.
func NewMorphEnvelope(threshold, knee, attack, release float64) *MorphEnvelope {
	return &MorphEnvelope{
		threshold: threshold,
		knee:      knee,
		attack:    clampF(attack, 0, 1),
		release:   clampF(release, 0, 1),
	}
}

// Update advances the envelope toward the level implied by the input band
// value and returns the new envelope. The result is always in [0, 1].
func (m *MorphEnvelope) Update(band float64) float64 {
	gateStart := m.threshold - m.knee
	gateEnd := m.threshold + m.knee
	gate := smoothstep(gateStart, gateEnd, band)

	lifted := 1.0
	if denom := 1 - gateStart; denom > 0 {
		lifted = clampF((band-gateStart)/denom, 0, 1)
	}

	desired := clampF(gate*lifted*1.35, 0, 1)

	rate := m.release
	if desired > m.value {
		rate = m.attack
	}
	m.value = clampF(m.value+(desired-m.value)*rate, 0, 1)
	return m.value
}

// Value returns the current envelope without advancing it.
func (m *MorphEnvelope) Value() float64 {
	return m.value
}

// Retune swaps the gate and rate constants while keeping the current
// envelope value.
func (m *MorphEnvelope) Retune(threshold, knee, attack, release float64) {
	m.threshold = threshold
	m.knee = knee
	m.attack = clampF(attack, 0, 1)
	m.release = clampF(release, 0, 1)
}

// Reset drops the envelope to zero.
func (m *MorphEnvelope) Reset() {
	m.value = 0
}

// smoothstep is the cubic Hermite step between lo and hi.
func smoothstep(lo, hi, x float64) float64 {
	if hi <= lo {
		if x < lo {
			return 0
		}
		return 1
	}
	t := clampF((x-lo)/(hi-lo), 0, 1)
	return t * t * (3 - 2*t)
}
