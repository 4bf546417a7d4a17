package service

import (
	"log/slog"
	"sync"
	"time"

	"github.com/auroraviz/aurora/internal/domain"
	"github.com/auroraviz/aurora/internal/ports"
)

// TrackConfig holds the track service tuning.
type TrackConfig struct {
	// ProgressInterval is the cadence of progress events while a track
	// is loaded.
	ProgressInterval time.Duration
}

// DefaultTrackConfig returns the configuration used by the application.
func DefaultTrackConfig() TrackConfig {
	return TrackConfig{
		ProgressInterval: 333 * time.Millisecond, // 3 times per second
	}
}

// TrackService orchestrates file playback. It wraps the track player
// adapter with event publishing and a progress loop that also detects
// natural end of track.
//
// All operations are thread-safe via sync.RWMutex.
type TrackService struct {
	logger *slog.Logger
	player ports.TrackPlayer
	bus    ports.EventBus

	currentTrack *domain.MusicTrack
	userStopped  bool // Stop came from the user, not the decoder running out
	playedOnce   bool // Play was called for the current track

	mu         sync.RWMutex
	quit       chan struct{}
	progressOn bool
	wg         sync.WaitGroup
	interval   time.Duration
}

// NewTrackService creates a new track service and starts its progress loop.
func NewTrackService(
	logger *slog.Logger,
	player ports.TrackPlayer,
	bus ports.EventBus,
	cfg TrackConfig,
) *TrackService {
	if cfg.ProgressInterval <= 0 {
		cfg.ProgressInterval = DefaultTrackConfig().ProgressInterval
	}

	service := &TrackService{
		logger:   logger,
		player:   player,
		bus:      bus,
		interval: cfg.ProgressInterval,
		quit:     make(chan struct{}),
	}

	logger.Debug("track service initialized")

	service.startProgressLoop()

	return service
}

// Load opens a file for playback, replacing the current track.
func (s *TrackService) Load(filePath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.logger.Debug("opening track", slog.String("file_path", filePath))

	track, err := s.player.Load(filePath)
	if err != nil {
		s.logger.Debug("track load failed", slog.Any("error", err))
		s.bus.Publish(domain.NewTrackErrorEvent(domain.MusicTrack{FilePath: filePath}, err))
		return err
	}

	s.currentTrack = track
	s.userStopped = false
	s.playedOnce = false

	s.logger.Debug("track loaded",
		slog.String("title", track.Title),
		slog.Duration("duration", track.Duration))

	s.bus.Publish(domain.NewTrackLoadedEvent(*track, track.Duration))

	return nil
}

// Play starts or resumes playback of the current track. Calling Play while
// already playing is a no-op.
func (s *TrackService) Play() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.currentTrack == nil {
		return domain.ErrNoTrackLoaded
	}

	if s.player.Status() == domain.StatusPlaying {
		return nil
	}

	s.userStopped = false
	s.playedOnce = true
	if err := s.player.Play(); err != nil {
		return err
	}

	s.bus.Publish(domain.NewTrackStartedEvent(*s.currentTrack))

	return nil
}

// Pause pauses playback of the current track.
func (s *TrackService) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.currentTrack == nil {
		return domain.ErrNoTrackLoaded
	}

	position := s.player.Position()

	if err := s.player.Pause(); err != nil {
		return err
	}

	s.bus.Publish(domain.NewTrackPausedEvent(*s.currentTrack, position))

	return nil
}

// Stop stops playback and rewinds. The track stays loaded so Play starts
// it over.
func (s *TrackService) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.stopLocked()
}

// stopLocked stops playback. Caller must hold the write lock.
func (s *TrackService) stopLocked() error {
	if s.currentTrack == nil {
		return nil
	}

	s.userStopped = true
	s.playedOnce = false

	if err := s.player.Stop(); err != nil {
		return err
	}

	s.bus.Publish(domain.NewTrackStoppedEvent(*s.currentTrack))

	return nil
}

// SetVolume sets the playback volume (0.0 to 1.0).
func (s *TrackService) SetVolume(volume float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.player.SetVolume(volume); err != nil {
		return err
	}

	s.bus.Publish(domain.NewVolumeChangedEvent(volume))

	return nil
}

// Volume returns the current volume (0.0 to 1.0).
func (s *TrackService) Volume() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.player.Volume()
}

// CurrentTrack returns a copy of the loaded track, or nil when idle.
func (s *TrackService) CurrentTrack() *domain.MusicTrack {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.currentTrack == nil {
		return nil
	}
	track := *s.currentTrack
	return &track
}

// Status returns the current playback status.
func (s *TrackService) Status() domain.PlaybackStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.player.Status()
}

// Position returns the current playback position.
func (s *TrackService) Position() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.player.Position()
}

// Duration returns the duration of the loaded track.
func (s *TrackService) Duration() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.player.Duration()
}

// Shutdown stops the progress loop and playback. It does not close the
// player; the adapter belongs to whoever constructed it.
func (s *TrackService) Shutdown() error {
	s.mu.Lock()
	if s.progressOn {
		close(s.quit)
		s.progressOn = false
	}
	// Waiting under the lock would deadlock with a progress tick that is
	// about to take it.
	s.mu.Unlock()

	s.wg.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.stopLocked(); err != nil {
		s.logger.Warn("failed to stop playback during shutdown", slog.Any("error", err))
	}

	return nil
}

// startProgressLoop launches the goroutine that publishes progress events
// and watches for natural end of track.
func (s *TrackService) startProgressLoop() {
	s.mu.Lock()
	if s.progressOn {
		s.mu.Unlock()
		return
	}
	s.progressOn = true
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-s.quit:
				return
			case <-ticker.C:
				s.emitProgress()
			}
		}
	}()
}

// emitProgress publishes a progress event for the loaded track, plus a
// completion event when the track ran out on its own.
func (s *TrackService) emitProgress() {
	s.mu.Lock()

	if s.currentTrack == nil {
		s.mu.Unlock()
		return
	}

	status := s.player.Status()
	position := s.player.Position()
	duration := s.player.Duration()

	// The player reports Stopped once the decoder hits EOF and the device
	// buffer drains; that plus playedOnce and no user stop means the track
	// finished on its own.
	finished := status == domain.StatusStopped && s.playedOnce && !s.userStopped
	if finished {
		s.playedOnce = false
	}
	track := *s.currentTrack

	s.mu.Unlock()

	s.bus.Publish(domain.NewTrackProgressEvent(position, duration))

	if finished {
		s.logger.Debug("track completed", slog.String("title", track.Title))
		s.bus.Publish(domain.NewTrackCompletedEvent(track))
	}
}

// Verify that TrackService implements the expected interface patterns
var _ interface {
	Load(string) error
	Play() error
	Pause() error
	Stop() error
	SetVolume(float64) error
	Volume() float64
	CurrentTrack() *domain.MusicTrack
	Status() domain.PlaybackStatus
	Position() time.Duration
	Duration() time.Duration
	Shutdown() error
} = (*TrackService)(nil)
