// Package service provides business logic for the Aurora application.
package service

import (
	"log/slog"
	"sync"

	"github.com/auroraviz/aurora/internal/domain"
	"github.com/auroraviz/aurora/internal/ports"
)

// SettingsService owns the persisted visual settings. It keeps a cached
// snapshot so readers never touch the repository on the hot path, and it
// publishes a SettingsChangedEvent whenever a new snapshot is stored.
//
// The service persists; it does not apply. Wiring code feeds a restored
// snapshot into the visualizer and player at startup and hands changed
// snapshots back here.
//
// All operations are thread-safe via sync.RWMutex.
type SettingsService struct {
	// Dependencies (injected)
	logger     *slog.Logger
	repository ports.SettingsRepository
	bus        ports.EventBus

	// Cached snapshot
	settings domain.VisualSettings

	// Concurrency control
	mu sync.RWMutex
}

// NewSettingsService creates a settings service and restores the last
// saved snapshot. A failing repository degrades to defaults.
func NewSettingsService(
	logger *slog.Logger,
	repository ports.SettingsRepository,
	bus ports.EventBus,
) *SettingsService {
	service := &SettingsService{
		logger:     logger,
		repository: repository,
		bus:        bus,
		settings:   domain.DefaultVisualSettings(),
	}

	if saved, err := repository.Load(); err == nil {
		service.settings = saved
	} else {
		logger.Warn("failed to restore settings, using defaults", slog.Any("error", err))
	}

	logger.Debug("settings service initialized",
		slog.String("palette", service.settings.PaletteName),
		slog.String("variant", service.settings.VariantName))

	return service
}

// Settings returns the current snapshot.
func (s *SettingsService) Settings() domain.VisualSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.settings
}

// Save validates, persists and caches a new snapshot, then publishes a
// SettingsChangedEvent. Out-of-range numeric fields are clamped rather
// than rejected; unknown palette or variant names are errors.
func (s *SettingsService) Save(settings domain.VisualSettings) error {
	if err := validateSettings(settings); err != nil {
		return err
	}

	settings.MeshResolution = domain.ClampResolution(settings.MeshResolution)
	if settings.StarCount < 0 {
		settings.StarCount = 0
	}

	s.mu.Lock()
	s.settings = settings
	s.mu.Unlock()

	if err := s.repository.Save(settings); err != nil {
		return err
	}

	s.bus.Publish(domain.NewSettingsChangedEvent(settings))

	return nil
}

// Reset clears the repository and restores the default snapshot.
func (s *SettingsService) Reset() error {
	defaults := domain.DefaultVisualSettings()

	s.mu.Lock()
	s.settings = defaults
	s.mu.Unlock()

	if err := s.repository.Clear(); err != nil {
		return err
	}

	s.bus.Publish(domain.NewSettingsChangedEvent(defaults))

	return nil
}

// Shutdown cleans up resources.
func (s *SettingsService) Shutdown() error {
	// No cleanup needed for settings service
	return nil
}

func validateSettings(settings domain.VisualSettings) error {
	if settings.Volume < 0.0 || settings.Volume > 1.0 {
		return domain.ErrInvalidVolume
	}

	if _, ok := domain.PaletteByName(settings.PaletteName); !ok {
		return domain.ErrUnknownPalette
	}

	if _, ok := domain.VariantByName(settings.VariantName); !ok {
		return domain.ErrUnknownVariant
	}

	if settings.RotationSpeed < 0 {
		return domain.NewValidationError("rotation_speed", settings.RotationSpeed, "must not be negative")
	}

	if settings.Reactivity < 0 {
		return domain.NewValidationError("reactivity", settings.Reactivity, "must not be negative")
	}

	if settings.BloomStrength < 0 {
		return domain.NewValidationError("bloom_strength", settings.BloomStrength, "must not be negative")
	}

	return nil
}

// Verify that SettingsService implements the expected interface patterns
var _ interface {
	Settings() domain.VisualSettings
	Save(domain.VisualSettings) error
	Reset() error
	Shutdown() error
} = (*SettingsService)(nil)
