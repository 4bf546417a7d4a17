// Package synth provides a self-contained spectrum source that synthesizes
// a deterministic music-like signal and feeds it through the same analysis
// path as the real inputs. It needs no audio hardware, which makes it the
// source for demo mode, headless runs and service tests.
package synth

import (
	"math"
	"sync"

	"github.com/auroraviz/aurora/internal/adapter/audio/analysis"
	"github.com/auroraviz/aurora/internal/domain"
	"github.com/auroraviz/aurora/internal/ports"
)

const (
	sampleRate = 44100.0

	// frameHop is how far the synthesis clock advances per Sample call.
	// The synthesized window is longer than the hop, so consecutive
	// frames overlap the way a real-time analyzer sees a live stream.
	frameHop = 1.0 / 60

	beatRate = 2.1 // kicks per second
)

// Source is a SpectrumSource over a procedural backing track: a kick, a
// bass root, a slow chord swell and offbeat hats. Given the same call
// sequence it always produces the same spectra.
//
// Thread-safety: all methods take the internal lock.
type Source struct {
	mu sync.Mutex

	analyzer *analysis.Analyzer
	scratch  []float32
	clock    float64
	seed     uint64

	started bool
	closed  bool

	// Behavior toggles for exercising error paths in service tests.
	failStart  bool
	failSample bool
}

// New creates a synth source.
func New() *Source {
	return &Source{
		analyzer: analysis.NewAnalyzer(analysis.DefaultFFTSize),
		scratch:  make([]float32, analysis.DefaultFFTSize),
		seed:     0x5EED,
	}
}

// SetFailStart configures the source to fail Start (for testing).
func (s *Source) SetFailStart(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failStart = fail
}

// SetFailSample configures the source to fail Sample (for testing).
func (s *Source) SetFailSample(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failSample = fail
}

// Start begins producing spectrum data.
func (s *Source) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return domain.ErrSourceClosed
	}
	if s.failStart {
		return domain.NewSourceError("start", "", "synth source configured to fail", nil)
	}
	s.started = true
	return nil
}

// Sample advances the backing track by one frame and returns its spectrum.
func (s *Source) Sample() (*domain.SpectrumSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, domain.ErrSourceClosed
	}
	if !s.started {
		return nil, domain.ErrSourceNotStarted
	}
	if s.failSample {
		return nil, domain.NewSourceError("sample", "", "synth source configured to fail", nil)
	}

	s.synthesize(s.clock)
	s.clock += frameHop
	return s.analyzer.Process(s.scratch, sampleRate), nil
}

// Kind identifies the source in settings and telemetry.
func (s *Source) Kind() string {
	return "synth"
}

// Close stops the source permanently.
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.started = false
	return nil
}

// synthesize renders one analysis window of the backing track starting at
// absolute time t0.
func (s *Source) synthesize(t0 float64) {
	const beatLen = 1.0 / beatRate
	for i := range s.scratch {
		t := t0 + float64(i)/sampleRate
		trig := math.Mod(t, beatLen)

		// Kick: pitch-swept sine with a fast decay
		kick := math.Sin(2*math.Pi*160/12.0*(1-math.Exp(-trig*12.0))) *
			math.Exp(-trig*16.0) * 0.9

		// Sustained bass root
		bass := math.Sin(2*math.Pi*55*t) * 0.25

		// Minor chord swelling on a slow LFO
		chordEnv := 0.4 + 0.3*math.Sin(2*math.Pi*0.13*t)
		chord := (math.Sin(2*math.Pi*220*t) +
			math.Sin(2*math.Pi*261.63*t) +
			math.Sin(2*math.Pi*329.63*t)) / 3 * chordEnv * 0.5

		// Hats on the offbeats
		hatTrig := math.Mod(t+beatLen/2, beatLen)
		hat := s.noise() * math.Exp(-hatTrig*60) * 0.3

		// High shimmer riding the chord swell
		shimmer := math.Sin(2*math.Pi*5200*t) * chordEnv * 0.08

		s.scratch[i] = float32(softSat(kick + bass + chord + hat + shimmer))
	}
}

// noise advances an LCG and returns a sample in -1..1.
func (s *Source) noise() float64 {
	s.seed = s.seed*6364136223846793005 + 1442695040888963407
	return float64(int64(s.seed>>33)-int64(1<<30)) / float64(1<<30)
}

// softSat applies gentle saturation so stacked voices cannot clip hard.
func softSat(x float64) float64 {
	if x > 1.0 {
		return 1.0 - 0.5/x
	}
	if x < -1.0 {
		return -1.0 + 0.5/(-x)
	}
	return x - x*x*x/3.0
}

var _ ports.SpectrumSource = (*Source)(nil)
