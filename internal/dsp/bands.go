// Package dsp turns raw spectrum snapshots into the normalized band energies
// and smoothed envelopes the scene consumes. Everything here is pure
// computation; sources produce snapshots, the scene reads the results.
package dsp

import (
	"math"

	"github.com/auroraviz/aurora/internal/domain"
)

// Sample rates outside this range are clamped before bin mapping, so odd
// device configurations degrade instead of producing wild indices.
const (
	minSampleRate = 8_000
	maxSampleRate = 192_000
)

// Config selects the frequency windows for the four bands.
type Config struct {
	Bass    domain.BandWindow
	Mid     domain.BandWindow
	Treble  domain.BandWindow
	Overall domain.BandWindow
}

// ConfigFromVariant pulls the band windows out of a variant.
func ConfigFromVariant(v domain.VariantConfig) Config {
	return Config{
		Bass:    v.BassWindow,
		Mid:     v.MidWindow,
		Treble:  v.TrebleWindow,
		Overall: v.OverallWindow,
	}
}

// Extractor computes normalized band energies from spectrum snapshots.
// It holds no per-frame state; one instance can serve any number of sources.
type Extractor struct {
	cfg Config
}

// NewExtractor creates an Extractor for the given band windows.
func NewExtractor(cfg Config) *Extractor {
	return &Extractor{cfg: cfg}
}

// Extract returns the normalized energy of each configured band.
// Bins are averaged over the window's closed index range and scaled to 0-1.
// A nil or empty snapshot yields zero energy everywhere.
func (e *Extractor) Extract(snap *domain.SpectrumSnapshot) domain.BandEnergy {
	return domain.BandEnergy{
		Bass:    bandMean(snap, e.cfg.Bass),
		Mid:     bandMean(snap, e.cfg.Mid),
		Treble:  bandMean(snap, e.cfg.Treble),
		Overall: bandMean(snap, e.cfg.Overall),
	}
}

// FreqToIndex maps a frequency to the nearest snapshot bin. Frequencies
// outside the representable range clamp to the first or last bin.
func FreqToIndex(hz, sampleRate float64, binCount int) int {
	if binCount <= 0 {
		return 0
	}
	nyquist := clampF(sampleRate, minSampleRate, maxSampleRate) / 2
	t := clampF(hz/nyquist, 0, 1)
	return int(math.Round(t * float64(binCount-1)))
}

func bandMean(snap *domain.SpectrumSnapshot, w domain.BandWindow) float64 {
	if snap == nil || snap.BinCount() == 0 {
		return 0
	}
	lo := FreqToIndex(w.LowHz, snap.SampleRate, snap.BinCount())
	hi := FreqToIndex(w.HighHz, snap.SampleRate, snap.BinCount())
	if hi < lo {
		return 0
	}
	sum := 0
	for _, b := range snap.Bins[lo : hi+1] {
		sum += int(b)
	}
	return float64(sum) / float64(hi-lo+1) / 255.0
}

func clampF(v, minVal, maxVal float64) float64 {
	if v < minVal {
		return minVal
	}
	if v > maxVal {
		return maxVal
	}
	return v
}
