// Package file provides an MP3-backed track player implementing the
// TrackPlayer interface. Decoded samples are split two ways: they stream to
// the audio device for audible playback, and a tap between the decoder and
// the device copies them into the analysis ring so the spectrum always
// reflects what the listener hears.
package file

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dhowden/tag"
	"github.com/google/uuid"
	mp3 "github.com/hajimehoshi/go-mp3"
	"github.com/hajimehoshi/oto/v2"

	"github.com/auroraviz/aurora/internal/adapter/audio/analysis"
	"github.com/auroraviz/aurora/internal/domain"
	"github.com/auroraviz/aurora/internal/ports"
)

const (
	channelCount  = 2
	bitDepthBytes = 2
	bytesPerFrame = channelCount * bitDepthBytes

	// defaultSampleRate is assumed while no track is loaded so silence
	// still produces snapshots with a usable Nyquist range.
	defaultSampleRate = 44100
)

// Player is the MP3 implementation of the TrackPlayer interface. It decodes
// with go-mp3, plays through oto and reads tags with dhowden/tag.
//
// Thread-safety: This implementation is thread-safe via sync.Mutex. The
// decode tap runs on the audio device's goroutine and deliberately avoids
// the player lock, it only touches the ring and atomics.
type Player struct {
	mu sync.Mutex

	analyzer *analysis.Analyzer
	ring     *analysis.Ring
	scratch  []float32

	// The audio device context. oto allows one per process, created on the
	// first Play and locked to that track's sample rate.
	otoCtx   *oto.Context
	otoReady chan struct{}
	ctxRate  int

	file    *os.File
	decoder *mp3.Decoder
	tap     *tapReader
	out     oto.Player

	track      *domain.MusicTrack
	sampleRate int
	volume     float64
	paused     bool
	started    bool
	closed     bool
}

// NewPlayer creates a file-backed track player. The audio device is opened
// lazily on the first Play call, so loading and sampling work headless.
func NewPlayer() *Player {
	return &Player{
		analyzer: analysis.NewAnalyzer(analysis.DefaultFFTSize),
		ring:     analysis.NewRing(analysis.DefaultFFTSize),
		scratch:  make([]float32, analysis.DefaultFFTSize),
		volume:   1.0,
	}
}

// tapReader sits between the decoder and the audio device, copying every
// chunk the device pulls into the analysis ring and counting the bytes that
// have flowed through.
type tapReader struct {
	src  io.Reader
	ring *analysis.Ring
	pos  atomic.Int64
	eof  atomic.Bool
}

// Read implements io.Reader.
func (t *tapReader) Read(p []byte) (int, error) {
	n, err := t.src.Read(p)
	if n > 0 {
		t.ring.WriteStereoPCM16(p[:n])
		t.pos.Add(int64(n))
	}
	if errors.Is(err, io.EOF) {
		t.eof.Store(true)
	}
	return n, err
}

// Load opens an MP3 file, reads its metadata and prepares it for playback.
// The previous track keeps playing until the new one has opened and decoded
// successfully, so a failed load never interrupts playback.
func (p *Player) Load(filePath string) (*domain.MusicTrack, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, domain.ErrSourceClosed
	}

	if ext := strings.ToLower(filepath.Ext(filePath)); ext != ".mp3" {
		return nil, domain.NewSourceError("load", filePath, "only mp3 files are supported", domain.ErrUnsupportedFormat)
	}

	f, err := os.Open(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.NewSourceError("load", filePath, "file does not exist", domain.ErrFileNotFound)
		}
		return nil, domain.NewSourceError("load", filePath, "cannot open file", err)
	}

	track := readMetadata(f, filePath)

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		_ = f.Close()
		return nil, domain.NewSourceError("load", filePath, "cannot rewind file after reading tags", err)
	}

	dec, err := mp3.NewDecoder(f)
	if err != nil {
		_ = f.Close()
		return nil, domain.NewSourceError("load", filePath, "cannot decode mp3 stream", err)
	}

	p.unloadLocked()

	p.file = f
	p.decoder = dec
	p.sampleRate = dec.SampleRate()
	p.tap = &tapReader{src: dec, ring: p.ring}

	// go-mp3 reports total decoded bytes for seekable sources.
	if length := dec.Length(); length > 0 {
		seconds := float64(length) / bytesPerFrame / float64(p.sampleRate)
		track.Duration = time.Duration(seconds * float64(time.Second))
	}

	p.track = track
	p.analyzer.Reset()

	return track, nil
}

// Play starts or resumes playback of the loaded track. After the track has
// run to its end, Play restarts it from the beginning.
func (p *Player) Play() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return domain.ErrSourceClosed
	}
	if p.decoder == nil {
		return domain.ErrNoTrackLoaded
	}

	if p.out != nil {
		p.out.Play()
		p.paused = false
		return nil
	}

	if p.tap.eof.Load() {
		if err := p.rewindLocked("play"); err != nil {
			return err
		}
	}

	if err := p.ensureContextLocked(); err != nil {
		return err
	}

	player := p.otoCtx.NewPlayer(p.tap)
	player.SetVolume(p.volume)
	player.Play()
	p.out = player
	p.paused = false

	return nil
}

// Pause pauses playback, preserving the position.
func (p *Player) Pause() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return domain.ErrSourceClosed
	}
	if p.decoder == nil {
		return domain.ErrNoTrackLoaded
	}
	if p.out == nil {
		return nil
	}

	p.out.Pause()
	p.paused = true

	return nil
}

// Stop stops playback and rewinds to the beginning. The track stays loaded.
func (p *Player) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return domain.ErrSourceClosed
	}
	if p.decoder == nil {
		return domain.ErrNoTrackLoaded
	}

	if p.out != nil {
		_ = p.out.Close()
		p.out = nil
	}
	p.paused = false

	return p.rewindLocked("stop")
}

// rewindLocked seeks the decoder back to the start of the track and resets
// the tap counters. Caller must hold the lock.
func (p *Player) rewindLocked(op string) error {
	if _, err := p.decoder.Seek(0, io.SeekStart); err != nil {
		return domain.NewSourceError(op, p.track.FilePath, "cannot rewind decoder", err)
	}
	p.tap.pos.Store(0)
	p.tap.eof.Store(false)
	return nil
}

// ensureContextLocked opens the audio device once and waits until it is
// ready. Caller must hold the lock.
func (p *Player) ensureContextLocked() error {
	if p.otoCtx == nil {
		ctx, ready, err := oto.NewContext(p.sampleRate, channelCount, bitDepthBytes)
		if err != nil {
			return domain.NewSourceError("start", p.track.FilePath, "cannot open audio device", err)
		}
		p.otoCtx = ctx
		p.otoReady = ready
		p.ctxRate = p.sampleRate
	}

	// The device keeps the sample rate of the first track played.
	if p.sampleRate != p.ctxRate {
		return domain.NewSourceError("start", p.track.FilePath,
			"audio device is locked to a different sample rate", domain.ErrUnsupportedFormat)
	}

	<-p.otoReady
	return nil
}

// Status returns the current playback status. A track that has played to
// its end and drained the device buffer reports as stopped.
func (p *Player) Status() domain.PlaybackStatus {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch {
	case p.out == nil:
		return domain.StatusStopped
	case p.paused:
		return domain.StatusPaused
	case p.tap.eof.Load() && !p.out.IsPlaying():
		return domain.StatusStopped
	default:
		return domain.StatusPlaying
	}
}

// Position returns the playback position of the loaded track. The device
// buffer holds decoded audio that has not sounded yet, so the tap count is
// corrected by the unplayed remainder.
func (p *Player) Position() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.decoder == nil || p.sampleRate == 0 {
		return 0
	}

	bytes := p.tap.pos.Load()
	if p.out != nil {
		bytes -= int64(p.out.UnplayedBufferSize())
	}
	if bytes < 0 {
		bytes = 0
	}

	seconds := float64(bytes) / bytesPerFrame / float64(p.sampleRate)
	return time.Duration(seconds * float64(time.Second))
}

// Duration returns the total duration of the loaded track.
func (p *Player) Duration() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.track == nil {
		return 0
	}
	return p.track.Duration
}

// SetVolume sets the playback volume.
func (p *Player) SetVolume(volume float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if volume < 0.0 || volume > 1.0 {
		return domain.ErrInvalidVolume
	}

	p.volume = volume
	if p.out != nil {
		p.out.SetVolume(volume)
	}

	return nil
}

// Volume returns the current volume level.
func (p *Player) Volume() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.volume
}

// Start begins producing spectrum data. Until a track plays, snapshots
// carry silence.
func (p *Player) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return domain.ErrSourceClosed
	}
	p.started = true

	return nil
}

// Sample returns the spectrum of the most recent audio that flowed to the
// device. The snapshot is rewritten in place on the next call.
func (p *Player) Sample() (*domain.SpectrumSnapshot, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, domain.ErrSourceClosed
	}
	if !p.started {
		return nil, domain.ErrSourceNotStarted
	}

	p.ring.Read(p.scratch)

	rate := float64(p.sampleRate)
	if rate == 0 {
		rate = defaultSampleRate
	}

	return p.analyzer.Process(p.scratch, rate), nil
}

// Kind returns the source identifier.
func (p *Player) Kind() string {
	return "file"
}

// Close stops playback and releases the file. The oto context has no close
// operation and stays with the process.
func (p *Player) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.unloadLocked()
	p.closed = true
	p.started = false

	return nil
}

// unloadLocked tears down the current track. Caller must hold the lock.
func (p *Player) unloadLocked() {
	if p.out != nil {
		_ = p.out.Close()
		p.out = nil
	}
	if p.file != nil {
		_ = p.file.Close()
		p.file = nil
	}
	p.decoder = nil
	p.tap = nil
	p.track = nil
	p.sampleRate = 0
	p.paused = false
}

// readMetadata builds the track record from the file's tags, falling back
// to the bare filename when tags are missing or unreadable.
func readMetadata(f *os.File, filePath string) *domain.MusicTrack {
	track := &domain.MusicTrack{
		ID:       uuid.NewString(),
		FilePath: filePath,
		Title:    strings.TrimSuffix(filepath.Base(filePath), filepath.Ext(filePath)),
	}

	meta, err := tag.ReadFrom(f)
	if err != nil || meta == nil {
		return track
	}

	if title := strings.TrimSpace(meta.Title()); title != "" {
		track.Title = title
	}
	if artist := strings.TrimSpace(meta.Artist()); artist != "" {
		track.Artist = artist
	}
	if album := strings.TrimSpace(meta.Album()); album != "" {
		track.Album = album
	}

	return track
}

// Verify that Player implements the TrackPlayer interface
var _ ports.TrackPlayer = (*Player)(nil)
