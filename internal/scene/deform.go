// Package scene: per-frame mesh deformation and uniform building.
package scene

import (
	"math"

	"github.com/auroraviz/aurora/internal/domain"
)

const (
	deformDisplaceScale = 0.22
	deformWobbleScale   = 0.015
	deformHueShift      = 0.45
	deformEaseRate      = 0.1
	deformLightDim      = 0.45
	deformBloomDim      = 0.5
	deformWireBase      = 0.28
	deformWireBoost     = 0.45
)

// Deformer owns the base mesh and produces, once per frame, the uniform
// record and the deformed geometry derived from it. The solid and
// wireframe passes both consume the same record, which is what keeps the
// two representations in lockstep.
//
// Deformer is not thread-safe; the render loop is its single owner.
type Deformer struct {
	base *Mesh
	out  *Mesh
	axes [12]domain.Vec3

	// morph holds the per-vertex morph target positions. With no baked
	// field loaded it equals the base vertices, so full blend is a no-op.
	morph []domain.Vec3

	palette        domain.Palette
	variant        domain.VariantConfig
	userReactivity float64
	userBloom      float64

	time       float64
	lightLevel float64
	bloomLevel float64
}

// NewDeformer builds a deformer around a unit icosphere at the given
// subdivision level.
func NewDeformer(level int, palette domain.Palette, variant domain.VariantConfig) *Deformer {
	d := &Deformer{
		axes:           StellationAxes(),
		palette:        palette,
		variant:        variant,
		userReactivity: 1,
		userBloom:      1,
		lightLevel:     1,
		bloomLevel:     1,
	}
	d.rebuild(level)
	return d
}

func (d *Deformer) rebuild(level int) {
	d.base = Icosphere(level)
	d.out = d.base.Clone()
	d.morph = make([]domain.Vec3, len(d.base.Vertices))
	copy(d.morph, d.base.Vertices)
}

// SetResolution rebuilds the base mesh at a new subdivision level and
// drops any loaded morph field (a field baked for another vertex count is
// meaningless). Returns the new vertex count.
func (d *Deformer) SetResolution(level int) int {
	d.rebuild(level)
	return d.base.VertexCount()
}

// SetMorphField installs a baked field.
//
// Returns domain.ErrFieldLengthMismatch if the field does not match the
// current vertex count; the deformer keeps its previous targets.
func (d *Deformer) SetMorphField(field domain.MorphField) error {
	if !field.Valid() || field.VertexCount != d.base.VertexCount() {
		return domain.ErrFieldLengthMismatch
	}
	for i := range d.morph {
		d.morph[i] = domain.Vec3{
			X: field.Points[i*3],
			Y: field.Points[i*3+1],
			Z: field.Points[i*3+2],
		}
	}
	return nil
}

// ClearMorphField resets the morph targets to the base shape.
func (d *Deformer) ClearMorphField() {
	copy(d.morph, d.base.Vertices)
}

// SetPalette swaps the color scheme. The caller is responsible for
// refreshing the other palette-dependent layers in the same operation.
func (d *Deformer) SetPalette(p domain.Palette) {
	d.palette = p
}

// SetVariant swaps the variant constants (spike tuning).
func (d *Deformer) SetVariant(v domain.VariantConfig) {
	d.variant = v
}

// SetUserReactivity scales all audio-driven displacement.
func (d *Deformer) SetUserReactivity(f float64) {
	d.userReactivity = f
}

// SetUserBloom scales the bloom pass.
func (d *Deformer) SetUserBloom(f float64) {
	d.userBloom = f
}

// BaseMesh exposes the undeformed mesh for morph baking.
func (d *Deformer) BaseMesh() *Mesh {
	return d.base
}

// VertexCount returns the base mesh vertex count.
func (d *Deformer) VertexCount() int {
	return d.base.VertexCount()
}

// BuildParams advances the deformer clock by dt and assembles the uniform
// record for this frame. Colors are recomputed from the palette's cached
// anchors, so repeated calls at the same energy yield identical colors
// with no accumulated hue drift.
func (d *Deformer) BuildParams(dt float64, energy domain.SmoothedEnergy, morphBlend float64, snap *domain.SpectrumSnapshot) domain.ShaderParams {
	d.time += dt

	overall := energy.Slow.Overall

	// Light and bloom dim as the mix gets loud, eased at a fixed rate
	lightTarget := 1.0 - deformLightDim*overall
	bloomTarget := d.userBloom * (1.0 - deformBloomDim*overall)
	d.lightLevel += (lightTarget - d.lightLevel) * deformEaseRate
	d.bloomLevel += (bloomTarget - d.bloomLevel) * deformEaseRate

	shift := energy.Slow.Mid * deformHueShift

	params := domain.ShaderParams{
		Time:           d.time,
		Reactivity:     (0.9 + 2.6*overall) * d.userReactivity,
		MorphBlend:     morphBlend,
		SpikeAmount:    d.variant.SpikeStrength * energy.FastBass,
		SpikeSharpness: d.variant.SpikeSharpness,
		BaseColor:      d.palette.ShiftedBase(shift),
		GlowColor:      d.palette.ShiftedGlow(shift),
		Background:     d.palette.Background,
		LightLevel:     d.lightLevel,
		BloomStrength:  d.bloomLevel,
		WireOpacity:    deformWireBase + deformWireBoost*energy.Slow.Treble,
	}

	fillSpectrum(&params, snap)
	return params
}

// fillSpectrum downsamples the snapshot into the fixed-size strip carried
// by the params. The strip is a copy; the bin buffer stays with its source.
func fillSpectrum(p *domain.ShaderParams, snap *domain.SpectrumSnapshot) {
	if snap == nil || snap.BinCount() == 0 {
		return
	}
	n := snap.BinCount()
	for i := 0; i < domain.SpectrumTexSize; i++ {
		lo := i * n / domain.SpectrumTexSize
		hi := (i + 1) * n / domain.SpectrumTexSize
		if hi <= lo {
			hi = lo + 1
		}
		sum := 0
		for _, b := range snap.Bins[lo:hi] {
			sum += int(b)
		}
		p.Spectrum[i] = float64(sum) / float64(hi-lo) / 255.0
	}
}

// Apply deforms the base mesh under the given params and returns the
// result. The returned mesh is owned by the deformer and rewritten on the
// next call; the renderer must finish with it within the frame.
func (d *Deformer) Apply(params domain.ShaderParams) *Mesh {
	for i, v := range d.base.Vertices {
		n := d.base.Normals[i]

		// Morph blend first: the audio displacement rides the blended shape
		p := v.Lerp(d.morph[i], params.MorphBlend)

		// The vertex direction selects a spectrum band, so the mesh acts
		// as an equalizer the camera rotates around
		angle := math.Atan2(v.Z, v.X)/(2*math.Pi) + 0.5
		level := params.Spectrum[int(angle*float64(domain.SpectrumTexSize-1))]

		wobble := deformWobbleScale * math.Sin(v.Y*4+params.Time*1.8)
		p = p.Add(n.Scale(level*deformDisplaceScale*params.Reactivity + wobble))

		// Stellation along the icosahedral axes
		if params.SpikeAmount > 0 {
			best := 0.0
			for _, axis := range d.axes {
				dot := n.Dot(axis)
				if dot <= 0 {
					continue
				}
				if s := math.Pow(dot, params.SpikeSharpness); s > best {
					best = s
				}
			}
			p = p.Add(n.Scale(best * params.SpikeAmount))
		}

		d.out.Vertices[i] = p
	}
	d.out.RecomputeNormals()
	return d.out
}
