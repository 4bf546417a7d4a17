// Package domain contains core business models and logic with no external dependencies.
// This package defines the fundamental entities of the Aurora visualizer.
package domain

import (
	"time"
)

// SpectrumSnapshot is a single frame of frequency-domain audio data.
//
// The Bins slice is owned by the producing source and is rewritten in place
// on every sample call. It is valid only until the next call; consumers that
// keep spectrum data past the current frame must copy the values out.
type SpectrumSnapshot struct {
	// Bins holds per-bin magnitudes scaled to 0-255, lowest frequency first.
	// The bin count is a power of two, typically 1024.
	Bins []byte

	// SampleRate is the sample rate of the analyzed signal in Hz
	SampleRate float64
}

// BinCount returns the number of frequency bins in the snapshot.
func (s *SpectrumSnapshot) BinCount() int {
	return len(s.Bins)
}

// NyquistHz returns the highest frequency the snapshot can represent.
func (s *SpectrumSnapshot) NyquistHz() float64 {
	return s.SampleRate / 2
}

// BandEnergy holds the normalized loudness of the frequency bands that drive
// the scene. All values are in the range 0.0 to 1.0.
type BandEnergy struct {
	// Bass is the low band energy (kick drums, bass lines)
	Bass float64

	// Mid is the mid band energy (vocals, leads)
	Mid float64

	// Treble is the wide composite band energy (see VariantConfig.TrebleWindow)
	Treble float64

	// Overall is the near-full-range energy used for global intensity
	Overall float64
}

// BandWindow is an inclusive frequency range in Hz.
type BandWindow struct {
	LowHz  float64
	HighHz float64
}

// SmoothedEnergy carries both smoothing tracks derived from raw band energy.
type SmoothedEnergy struct {
	// Slow is the heavily smoothed energy used for color, light and camera
	Slow BandEnergy

	// FastBass is the lightly smoothed bass used for percussive effects
	FastBass float64
}

// VariantConfig collects the tunable constants that distinguish one visual
// variant from another. The pipeline is a single implementation; a variant
// is nothing but a bag of numbers fed into it.
type VariantConfig struct {
	// Name identifies the variant ("classic", "pulse", "stellar")
	Name string

	// BassWindow selects the low band
	BassWindow BandWindow

	// MidWindow selects the mid band
	MidWindow BandWindow

	// TrebleWindow selects the treble band. It deliberately overlaps the
	// other windows and spans most of the musical range, so it tracks the
	// composite signal rather than cymbals alone.
	TrebleWindow BandWindow

	// OverallWindow selects the near-full-range band
	OverallWindow BandWindow

	// SlowK is the per-frame EMA blend factor applied to every band
	SlowK float64

	// FastK is the per-frame EMA blend factor applied to the fast bass track
	FastK float64

	// MorphEnabled gates the shape morph for this variant
	MorphEnabled bool

	// MorphThreshold is the band level at the center of the morph gate
	MorphThreshold float64

	// MorphKnee is the half-width of the soft gate around the threshold
	MorphKnee float64

	// MorphAttackRate is the envelope approach rate while rising
	MorphAttackRate float64

	// MorphReleaseRate is the envelope approach rate while falling
	MorphReleaseRate float64

	// SpikeStrength scales the stellation displacement
	SpikeStrength float64

	// SpikeSharpness is the exponent focusing spikes around their axes
	SpikeSharpness float64
}

// DefaultBandWindows returns the standard band layout shared by the built-in
// variants. Callers get fresh values and may tune them per variant.
func DefaultBandWindows() (bass, mid, treble, overall BandWindow) {
	bass = BandWindow{LowHz: 20, HighHz: 200}
	mid = BandWindow{LowHz: 110, HighHz: 1500}
	treble = BandWindow{LowHz: 20, HighHz: 3000}
	overall = BandWindow{LowHz: 20, HighHz: 16000}
	return bass, mid, treble, overall
}

// VariantClassic returns the default variant: balanced smoothing, morph on.
func VariantClassic() VariantConfig {
	bass, mid, treble, overall := DefaultBandWindows()
	return VariantConfig{
		Name:             "classic",
		BassWindow:       bass,
		MidWindow:        mid,
		TrebleWindow:     treble,
		OverallWindow:    overall,
		SlowK:            0.06,
		FastK:            0.55,
		MorphEnabled:     true,
		MorphThreshold:   0.38,
		MorphKnee:        0.12,
		MorphAttackRate:  0.22,
		MorphReleaseRate: 0.07,
		SpikeStrength:    0.45,
		SpikeSharpness:   6,
	}
}

// VariantPulse returns a percussive variant: snappier bass, heavier spikes,
// no shape morph.
func VariantPulse() VariantConfig {
	v := VariantClassic()
	v.Name = "pulse"
	v.SlowK = 0.08
	v.FastK = 0.8
	v.MorphEnabled = false
	v.SpikeStrength = 0.7
	v.SpikeSharpness = 4
	return v
}

// VariantStellar returns a slow, spiky variant tuned for ambient material.
func VariantStellar() VariantConfig {
	v := VariantClassic()
	v.Name = "stellar"
	v.SlowK = 0.03
	v.FastK = 0.35
	v.MorphThreshold = 0.3
	v.MorphKnee = 0.16
	v.SpikeStrength = 0.6
	v.SpikeSharpness = 9
	return v
}

// Variants returns all built-in variants in display order.
func Variants() []VariantConfig {
	return []VariantConfig{VariantClassic(), VariantPulse(), VariantStellar()}
}

// VariantByName looks up a built-in variant. The second return value is false
// if the name is unknown.
func VariantByName(name string) (VariantConfig, bool) {
	for _, v := range Variants() {
		if v.Name == name {
			return v, true
		}
	}
	return VariantConfig{}, false
}

// SpectrumTexSize is the number of samples in the downsampled spectrum strip
// carried inside ShaderParams.
const SpectrumTexSize = 64

// ShaderParams is the single uniform record consumed by both the solid and
// wireframe passes of a frame. The deformer builds exactly one value per
// frame and every pass reads that same value; nothing mutates it afterwards.
type ShaderParams struct {
	// Time is the accumulated scene time in seconds
	Time float64

	// Reactivity scales audio-driven vertex displacement
	Reactivity float64

	// MorphBlend is the morph envelope value: 0 base shape, 1 full target
	MorphBlend float64

	// SpikeAmount is the stellation drive for this frame
	// (configured strength premultiplied by fast bass)
	SpikeAmount float64

	// SpikeSharpness is the stellation focus exponent
	SpikeSharpness float64

	// BaseColor is the hue-shifted surface color
	BaseColor Color

	// GlowColor is the hue-shifted emissive/wireframe color
	GlowColor Color

	// Background is the clear color behind the starfield
	Background Color

	// LightLevel scales diffuse lighting, dimming as energy rises
	LightLevel float64

	// BloomStrength scales the bloom pass, dimming as energy rises
	BloomStrength float64

	// WireOpacity is the wireframe overlay opacity
	WireOpacity float64

	// Spectrum is a downsampled copy of the frame's snapshot, indexed by
	// angular band during deformation. Always a copy, never a view into
	// the source buffer.
	Spectrum [SpectrumTexSize]float64
}

// VisualSettings are the user-adjustable knobs persisted across sessions.
type VisualSettings struct {
	// PaletteName selects the active color palette
	PaletteName string

	// VariantName selects the active visual variant
	VariantName string

	// RotationSpeed is the base camera orbit speed in radians per second
	RotationSpeed float64

	// Reactivity scales all audio-driven displacement (1.0 = default)
	Reactivity float64

	// BloomStrength scales the bloom pass (0 disables it)
	BloomStrength float64

	// StarCount is the number of stars in the backdrop shell
	StarCount int

	// MeshResolution is the icosphere subdivision level (0 to MaxMeshResolution)
	MeshResolution int

	// GyroEnabled applies device orientation input to the camera when available
	GyroEnabled bool

	// Volume is the playback volume (0.0 to 1.0)
	Volume float64
}

// MaxMeshResolution is the highest supported icosphere subdivision level.
const MaxMeshResolution = 4

// ClampResolution limits a subdivision level to the supported range.
func ClampResolution(level int) int {
	if level < 0 {
		return 0
	}
	if level > MaxMeshResolution {
		return MaxMeshResolution
	}
	return level
}

// DefaultVisualSettings returns the settings used on first launch.
func DefaultVisualSettings() VisualSettings {
	return VisualSettings{
		PaletteName:    "aurora",
		VariantName:    "classic",
		RotationSpeed:  0.22,
		Reactivity:     1.0,
		BloomStrength:  0.6,
		StarCount:      900,
		MeshResolution: 3,
		GyroEnabled:    false,
		Volume:         0.8,
	}
}

// MorphField is a baked morph target: for every base mesh vertex, the point
// where a ray from the origin through that vertex first hits the target
// surface, flattened as x,y,z triples. Vertices whose rays miss the target
// sit at distance 1 along their direction (on the unit sphere).
type MorphField struct {
	// AssetID identifies the target shape the field was baked against
	AssetID string

	// VertexCount is the base mesh vertex count the field was baked for
	VertexCount int

	// Points holds the flattened target positions, length 3*VertexCount
	Points []float64
}

// Valid reports whether the field length matches its vertex count.
// Invalid fields are discarded and rebaked rather than rendered.
func (f MorphField) Valid() bool {
	return f.VertexCount > 0 && len(f.Points) == 3*f.VertexCount
}

// BakeProgress reports how far a morph bake job has advanced.
type BakeProgress struct {
	// JobID correlates progress reports with a single bake run
	JobID string

	// AssetID identifies the target shape being baked
	AssetID string

	// VerticesDone is the number of base vertices processed so far
	VerticesDone int

	// VertexCount is the total number of base vertices
	VertexCount int
}

// Percentage returns the completion percentage (0-100), or -1 if the total
// is unknown.
func (p BakeProgress) Percentage() float64 {
	if p.VertexCount <= 0 {
		return -1
	}
	return float64(p.VerticesDone) / float64(p.VertexCount) * 100.0
}

// MusicTrack identifies an audio file and the metadata shown while it plays.
type MusicTrack struct {
	// ID is a unique identifier for the track (UUID)
	ID string

	// FilePath is the absolute path to the audio file on the filesystem
	FilePath string

	// Title is the song title (from metadata or filename)
	Title string

	// Artist is the performing artist name
	Artist string

	// Album is the album name
	Album string

	// Duration is the total length of the track
	Duration time.Duration
}

// PlaybackStatus represents the current playback state.
type PlaybackStatus int

const (
	// StatusStopped indicates playback is stopped
	StatusStopped PlaybackStatus = iota

	// StatusPlaying indicates playback is active
	StatusPlaying

	// StatusPaused indicates playback is paused
	StatusPaused
)

// String returns a human-readable representation of the playback status.
func (s PlaybackStatus) String() string {
	switch s {
	case StatusStopped:
		return "stopped"
	case StatusPlaying:
		return "playing"
	case StatusPaused:
		return "paused"
	default:
		return "unknown"
	}
}

// TelemetryFrame is the status snapshot served to remote clients. It is a
// value type so handing it to the web layer never exposes live scene state.
type TelemetryFrame struct {
	// Bands is the current smoothed band energy
	Bands BandEnergy

	// FastBass is the fast-track bass level
	FastBass float64

	// MorphBlend is the current morph envelope value
	MorphBlend float64

	// FPS is the measured render rate
	FPS float64

	// Palette is the active palette name
	Palette string

	// Variant is the active variant name
	Variant string

	// Track is the currently playing track title, empty when idle
	Track string

	// Params is the last frame's uniform record
	Params ShaderParams
}
