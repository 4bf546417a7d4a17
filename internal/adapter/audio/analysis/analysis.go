// Package analysis turns raw PCM into the byte-bin spectrum snapshots the
// rest of the pipeline consumes. Every spectrum source (file playback,
// live capture, synth) feeds its samples through the same analyzer so the
// band extraction downstream sees one consistent scale.
package analysis

import (
	"math"

	"github.com/mjibson/go-dsp/fft"

	"github.com/auroraviz/aurora/internal/domain"
)

const (
	// DefaultFFTSize balances frequency resolution against latency at the
	// usual 44.1kHz rates.
	DefaultFFTSize = 2048

	minFFTSize = 256

	// Decibel window mapped onto the 0-255 bin range.
	minDecibels = -100.0
	maxDecibels = -30.0

	// Per-call smoothing applied to bin magnitudes before the dB mapping.
	smoothing = 0.8
)

// Analyzer runs a windowed FFT over mono samples and rewrites its internal
// bin buffer with dB-mapped byte magnitudes.
//
// The snapshot returned by Process references that buffer directly, so it
// is valid only until the next call. One analyzer belongs to one source.
type Analyzer struct {
	size    int
	buffer  []complex128
	window  []float64
	winGain float64
	smooth  []float64
	bins    []byte
	snap    domain.SpectrumSnapshot
}

// NewAnalyzer creates an analyzer. The FFT size is rounded up to a power
// of two and clamped to a usable minimum.
func NewAnalyzer(fftSize int) *Analyzer {
	size := nextPow2(fftSize)
	if size < minFFTSize {
		size = minFFTSize
	}

	a := &Analyzer{
		size:   size,
		buffer: make([]complex128, size),
		window: make([]float64, size),
		smooth: make([]float64, size/2),
		bins:   make([]byte, size/2),
	}
	sizeF := float64(size)
	for i := range a.window {
		a.window[i] = hann(float64(i), sizeF)
		a.winGain += a.window[i]
	}
	// A unit sine windowed by hann peaks at half the window sum
	a.winGain /= 2

	return a
}

// BinCount returns the number of spectrum bins the analyzer produces.
func (a *Analyzer) BinCount() int {
	return a.size / 2
}

// Process analyzes the given mono samples and returns the snapshot for
// this call. Fewer samples than the FFT size are zero-padded; extra
// samples beyond it are ignored.
func (a *Analyzer) Process(samples []float32, sampleRate float64) *domain.SpectrumSnapshot {
	for i := 0; i < a.size; i++ {
		if i < len(samples) {
			a.buffer[i] = complex(float64(samples[i])*a.window[i], 0)
			continue
		}
		a.buffer[i] = 0
	}

	res := fft.FFT(a.buffer)

	for i := 0; i < a.size/2; i++ {
		mag := cmag(res[i]) / a.winGain
		a.smooth[i] = smoothing*a.smooth[i] + (1-smoothing)*mag

		db := 20 * math.Log10(a.smooth[i]+1e-12)
		v := (db - minDecibels) / (maxDecibels - minDecibels) * 255
		if v < 0 {
			v = 0
		}
		if v > 255 {
			v = 255
		}
		a.bins[i] = byte(v)
	}

	a.snap.Bins = a.bins
	a.snap.SampleRate = sampleRate
	return &a.snap
}

// Reset clears the smoothing state, so the next Process starts cold.
func (a *Analyzer) Reset() {
	for i := range a.smooth {
		a.smooth[i] = 0
		a.bins[i] = 0
	}
}

func hann(i, size float64) float64 {
	return 0.5 * (1.0 - math.Cos(2.0*math.Pi*i/size))
}

func cmag(c complex128) float64 {
	return math.Sqrt(real(c)*real(c) + imag(c)*imag(c))
}

func nextPow2(n int) int {
	if n <= 0 {
		return 1
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	return n + 1
}
