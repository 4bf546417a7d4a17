// Package live provides a microphone-backed spectrum source using PortAudio.
// Captured input is mixed down to mono and analyzed exactly like decoded
// file audio, so the visuals react the same way to either.
package live

import (
	"strings"
	"sync"

	"github.com/gordonklaus/portaudio"

	"github.com/auroraviz/aurora/internal/adapter/audio/analysis"
	"github.com/auroraviz/aurora/internal/domain"
	"github.com/auroraviz/aurora/internal/ports"
)

var (
	initOnce sync.Once
	termOnce sync.Once
	initErr  error
)

// Initialize wraps portaudio.Initialize with sync.Once so multiple callers
// are safe.
func Initialize() error {
	initOnce.Do(func() {
		initErr = portaudio.Initialize()
	})
	return initErr
}

// Terminate balances Initialize at process shutdown.
func Terminate() {
	if initErr != nil {
		return
	}
	termOnce.Do(func() {
		_ = portaudio.Terminate()
	})
}

// Source is the PortAudio implementation of the SpectrumSource interface.
// It opens an input stream on Start and feeds the capture callback into the
// analysis ring.
//
// Thread-safety: This implementation is thread-safe via sync.Mutex. The
// capture callback runs on PortAudio's thread and only touches the ring,
// which has its own lock.
type Source struct {
	mu sync.Mutex

	deviceName string
	analyzer   *analysis.Analyzer
	ring       *analysis.Ring
	scratch    []float32

	stream     *portaudio.Stream
	channels   int
	sampleRate float64
	started    bool
	closed     bool
}

// New creates a live capture source. deviceName selects an input device by
// case-insensitive substring; empty picks the system default.
func New(deviceName string) *Source {
	return &Source{
		deviceName: deviceName,
		analyzer:   analysis.NewAnalyzer(analysis.DefaultFFTSize),
		ring:       analysis.NewRing(analysis.DefaultFFTSize),
		scratch:    make([]float32, analysis.DefaultFFTSize),
	}
}

// Start initializes PortAudio and opens the capture stream.
func (s *Source) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return domain.ErrSourceClosed
	}
	if s.started {
		return nil
	}

	if err := Initialize(); err != nil {
		return domain.NewSourceError("start", s.deviceName, "cannot initialize portaudio", err)
	}

	device, err := findDevice(s.deviceName)
	if err != nil {
		return domain.NewSourceError("start", s.deviceName, "no usable input device", err)
	}

	channels := device.MaxInputChannels
	if channels > 2 {
		channels = 2
	}
	s.channels = channels
	s.sampleRate = device.DefaultSampleRate

	stream, err := portaudio.OpenStream(portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   device,
			Channels: channels,
			Latency:  device.DefaultLowInputLatency,
		},
		SampleRate:      s.sampleRate,
		FramesPerBuffer: portaudio.FramesPerBufferUnspecified,
	}, s.process)
	if err != nil {
		return domain.NewSourceError("start", device.Name, "cannot open capture stream", err)
	}

	if err := stream.Start(); err != nil {
		_ = stream.Close()
		return domain.NewSourceError("start", device.Name, "cannot start capture stream", err)
	}

	s.stream = stream
	s.started = true

	return nil
}

// process is the PortAudio capture callback.
func (s *Source) process(in []float32) {
	s.ring.Write(mixdown(in, s.channels))
}

// Sample returns the spectrum of the most recent captured audio. The
// snapshot is rewritten in place on the next call.
func (s *Source) Sample() (*domain.SpectrumSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, domain.ErrSourceClosed
	}
	if !s.started {
		return nil, domain.ErrSourceNotStarted
	}

	s.ring.Read(s.scratch)

	return s.analyzer.Process(s.scratch, s.sampleRate), nil
}

// Kind returns the source identifier.
func (s *Source) Kind() string {
	return "live"
}

// Close stops the capture stream. The PortAudio library itself is released
// by Terminate at process shutdown.
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	s.started = false

	if s.stream == nil {
		return nil
	}

	if err := s.stream.Stop(); err != nil && !isStoppedStreamErr(err) {
		_ = s.stream.Close()
		s.stream = nil
		return domain.NewSourceError("close", s.deviceName, "cannot stop capture stream", err)
	}

	err := s.stream.Close()
	s.stream = nil
	if err != nil {
		return domain.NewSourceError("close", s.deviceName, "cannot close capture stream", err)
	}

	return nil
}

// mixdown folds interleaved multichannel samples to mono. Single-channel
// input passes through untouched.
func mixdown(in []float32, channels int) []float32 {
	if channels <= 1 {
		return in
	}

	mono := make([]float32, len(in)/channels)
	for i := range mono {
		sum := float32(0)
		base := i * channels
		for ch := 0; ch < channels; ch++ {
			sum += in[base+ch]
		}
		mono[i] = sum / float32(channels)
	}
	return mono
}

// findDevice locates an input device by name substring, or the system
// default when name is empty.
func findDevice(name string) (*portaudio.DeviceInfo, error) {
	if name != "" {
		return findDeviceByName(name)
	}

	if dev, err := portaudio.DefaultInputDevice(); err == nil && dev != nil && dev.MaxInputChannels > 0 {
		return dev, nil
	}

	if host, err := portaudio.DefaultHostApi(); err == nil && host != nil {
		if host.DefaultInputDevice != nil && host.DefaultInputDevice.MaxInputChannels > 0 {
			return host.DefaultInputDevice, nil
		}
	}

	return nil, domain.NewSourceError("start", "", "no input device available", nil)
}

func findDeviceByName(name string) (*portaudio.DeviceInfo, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, err
	}

	name = strings.ToLower(name)
	for _, device := range devices {
		if device.MaxInputChannels == 0 {
			continue
		}
		if strings.Contains(strings.ToLower(device.Name), name) {
			return device, nil
		}
	}

	return nil, domain.NewSourceError("start", name, "no input device matches", nil)
}

// isStoppedStreamErr reports whether err stems from stopping an already
// stopped stream.
func isStoppedStreamErr(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "PaErrorCode -9986")
}

// Verify that Source implements the SpectrumSource interface
var _ ports.SpectrumSource = (*Source)(nil)
