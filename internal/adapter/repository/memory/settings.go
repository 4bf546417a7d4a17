// Package memory provides repository implementations backed by Fyne
// preferences.
//
// Fyne preferences automatically use OS-specific app data directories:
// - macOS: ~/Library/Preferences/com.auroraviz.aurora.plist
// - Linux: ~/.config/aurora/
// - Windows: %APPDATA%\aurora\
package memory

import (
	"sync"

	"fyne.io/fyne/v2"

	"github.com/auroraviz/aurora/internal/domain"
	"github.com/auroraviz/aurora/internal/ports"
)

// Preference keys for visual settings.
const (
	keyPalette    = "settings.palette"
	keyVariant    = "settings.variant"
	keySpeed      = "settings.rotation_speed"
	keyReactivity = "settings.reactivity"
	keyBloom      = "settings.bloom_strength"
	keyStars      = "settings.star_count"
	keyResolution = "settings.mesh_resolution"
	keyGyro       = "settings.gyro_enabled"
	keyVolume     = "settings.volume"
)

// SettingsRepository implements ports.SettingsRepository using Fyne
// preferences. Each field is stored under its own key so partial saves from
// older versions still load with defaults for the rest.
//
// Thread-safe: All operations protected by sync.RWMutex.
type SettingsRepository struct {
	prefs fyne.Preferences
	mu    sync.RWMutex
}

// NewSettingsRepository creates a new settings repository.
// The preferences parameter should be obtained from fyne.CurrentApp().Preferences().
func NewSettingsRepository(prefs fyne.Preferences) *SettingsRepository {
	return &SettingsRepository{
		prefs: prefs,
	}
}

// Save persists the complete settings snapshot.
func (r *SettingsRepository) Save(settings domain.VisualSettings) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.prefs.SetString(keyPalette, settings.PaletteName)
	r.prefs.SetString(keyVariant, settings.VariantName)
	r.prefs.SetFloat(keySpeed, settings.RotationSpeed)
	r.prefs.SetFloat(keyReactivity, settings.Reactivity)
	r.prefs.SetFloat(keyBloom, settings.BloomStrength)
	r.prefs.SetInt(keyStars, settings.StarCount)
	r.prefs.SetInt(keyResolution, settings.MeshResolution)
	r.prefs.SetBool(keyGyro, settings.GyroEnabled)
	r.prefs.SetFloat(keyVolume, settings.Volume)

	return nil
}

// Load retrieves the saved settings, falling back to defaults for fields
// that were never saved.
func (r *SettingsRepository) Load() (domain.VisualSettings, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	def := domain.DefaultVisualSettings()

	settings := domain.VisualSettings{
		PaletteName:    r.prefs.StringWithFallback(keyPalette, def.PaletteName),
		VariantName:    r.prefs.StringWithFallback(keyVariant, def.VariantName),
		RotationSpeed:  r.prefs.FloatWithFallback(keySpeed, def.RotationSpeed),
		Reactivity:     r.prefs.FloatWithFallback(keyReactivity, def.Reactivity),
		BloomStrength:  r.prefs.FloatWithFallback(keyBloom, def.BloomStrength),
		StarCount:      r.prefs.IntWithFallback(keyStars, def.StarCount),
		MeshResolution: r.prefs.IntWithFallback(keyResolution, def.MeshResolution),
		GyroEnabled:    r.prefs.BoolWithFallback(keyGyro, def.GyroEnabled),
		Volume:         r.prefs.FloatWithFallback(keyVolume, def.Volume),
	}

	settings.MeshResolution = domain.ClampResolution(settings.MeshResolution)

	return settings, nil
}

// Clear removes all saved settings.
func (r *SettingsRepository) Clear() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, key := range []string{
		keyPalette, keyVariant, keySpeed, keyReactivity, keyBloom,
		keyStars, keyResolution, keyGyro, keyVolume,
	} {
		r.prefs.RemoveValue(key)
	}

	return nil
}

// Verify interface implementation
var _ ports.SettingsRepository = (*SettingsRepository)(nil)
