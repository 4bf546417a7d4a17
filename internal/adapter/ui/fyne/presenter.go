// Package fyne provides Fyne UI adapter implementations.
// This package implements the UI layer using the Fyne toolkit.
package fyne

import (
	"errors"
	"image"
	"log/slog"
	"sync"

	"github.com/auroraviz/aurora/internal/domain"
	"github.com/auroraviz/aurora/internal/ports"
	"github.com/auroraviz/aurora/internal/service"
)

// Presenter implements the Presenter pattern (MVP architecture).
// It coordinates between services and the UI, handling all event-driven updates.
//
// Responsibilities:
// - Subscribe to events from the event bus
// - Map domain events to UI updates
// - Translate UI commands to service method calls
//
// Thread-safety: Command methods arrive on the UI thread while event handlers
// arrive on service goroutines. Presenter state is guarded by a mutex; the
// view marshals its own updates onto the UI thread.
type Presenter struct {
	// Dependencies
	logger *slog.Logger

	// Services (injected)
	visualizer *service.VisualizerService
	tracks     *service.TrackService
	settings   *service.SettingsService
	baker      *service.BakeService

	// Event bus for subscriptions
	bus ports.EventBus

	// UI view
	view ports.UI

	// Presentation state
	currentTrack *domain.MusicTrack

	// Concurrency control
	mu           sync.RWMutex
	subs         []domain.SubscriptionID
	shutdownOnce sync.Once
}

// NewPresenter creates a new presenter, wires its event subscriptions and
// pushes the initial service state to the view.
func NewPresenter(
	logger *slog.Logger,
	visualizer *service.VisualizerService,
	tracks *service.TrackService,
	settings *service.SettingsService,
	baker *service.BakeService,
	eventBus ports.EventBus,
	view ports.UI,
) *Presenter {
	p := &Presenter{
		logger:     logger,
		visualizer: visualizer,
		tracks:     tracks,
		settings:   settings,
		baker:      baker,
		bus:        eventBus,
		view:       view,
	}

	// Subscribe to events
	p.subscribeToEvents()

	// Sync UI with current state
	p.syncInitialState()

	return p
}

// subscribeToEvents subscribes to all relevant events from the event bus.
func (p *Presenter) subscribeToEvents() {
	subscriptions := map[domain.EventType]domain.EventHandler{
		// Playback events
		domain.EventTrackLoaded:    p.onTrackLoaded,
		domain.EventTrackStarted:   p.onTrackStarted,
		domain.EventTrackPaused:    p.onTrackPaused,
		domain.EventTrackStopped:   p.onTrackStopped,
		domain.EventTrackCompleted: p.onTrackCompleted,
		domain.EventTrackProgress:  p.onTrackProgress,
		domain.EventTrackError:     p.onTrackError,

		// Volume events
		domain.EventVolumeChanged: p.onVolumeChanged,

		// Scene events
		domain.EventPaletteChanged: p.onPaletteChanged,
		domain.EventVariantChanged: p.onVariantChanged,

		// Bake events
		domain.EventBakeStarted:   p.onBakeStarted,
		domain.EventBakeProgress:  p.onBakeProgress,
		domain.EventBakeCompleted: p.onBakeCompleted,
		domain.EventBakeFailed:    p.onBakeFailed,
	}

	for eventType, handler := range subscriptions {
		p.subs = append(p.subs, p.bus.Subscribe(eventType, handler))
	}
}

// syncInitialState synchronizes the UI with the current application state.
// This is called during presenter initialization so the view reflects the
// restored settings rather than widget defaults.
func (p *Presenter) syncInitialState() {
	p.view.SetPlayState(false)
	p.view.SetVolume(p.tracks.Volume())

	settings := p.visualizer.Settings()
	p.view.SetPaletteName(settings.PaletteName)
	p.view.SetVariantName(settings.VariantName)
}

// Event handlers (called on service goroutines)

func (p *Presenter) onTrackLoaded(event domain.Event) {
	e, ok := event.(domain.TrackLoadedEvent)
	if !ok {
		p.logger.Error("invalid event type for track loaded")
		return
	}

	p.mu.Lock()
	track := e.Track
	p.currentTrack = &track
	p.mu.Unlock()

	p.view.SetTrackInfo(e.Track)
	p.view.SetProgress(0, e.Duration.Seconds())
}

func (p *Presenter) onTrackStarted(event domain.Event) {
	if _, ok := event.(domain.TrackStartedEvent); !ok {
		p.logger.Error("invalid event type for track started")
		return
	}
	p.view.SetPlayState(true)
}

func (p *Presenter) onTrackPaused(event domain.Event) {
	if _, ok := event.(domain.TrackPausedEvent); !ok {
		p.logger.Error("invalid event type for track paused")
		return
	}
	p.view.SetPlayState(false)
}

func (p *Presenter) onTrackStopped(event domain.Event) {
	if _, ok := event.(domain.TrackStoppedEvent); !ok {
		p.logger.Error("invalid event type for track stopped")
		return
	}
	p.view.SetPlayState(false)
	p.view.SetProgress(0, p.tracks.Duration().Seconds())
}

func (p *Presenter) onTrackCompleted(event domain.Event) {
	e, ok := event.(domain.TrackCompletedEvent)
	if !ok {
		p.logger.Error("invalid event type for track completed")
		return
	}

	p.logger.Info("track completed", slog.String("title", e.Track.Title))
	p.view.SetPlayState(false)
	p.view.SetProgress(0, p.tracks.Duration().Seconds())
}

func (p *Presenter) onTrackProgress(event domain.Event) {
	e, ok := event.(domain.TrackProgressEvent)
	if !ok {
		p.logger.Error("invalid event type for track progress")
		return
	}
	p.view.SetProgress(e.Position.Seconds(), e.Duration.Seconds())
}

func (p *Presenter) onTrackError(event domain.Event) {
	e, ok := event.(domain.TrackErrorEvent)
	if !ok {
		p.logger.Error("invalid event type for track error")
		return
	}

	p.logger.Error("playback error",
		slog.String("title", e.Track.Title),
		slog.Any("error", e.Error))
	p.view.ShowError("Playback Error", e.Error.Error())
}

func (p *Presenter) onVolumeChanged(event domain.Event) {
	e, ok := event.(domain.VolumeChangedEvent)
	if !ok {
		p.logger.Error("invalid event type for volume changed")
		return
	}
	p.view.SetVolume(e.Volume)
}

func (p *Presenter) onPaletteChanged(event domain.Event) {
	e, ok := event.(domain.PaletteChangedEvent)
	if !ok {
		p.logger.Error("invalid event type for palette changed")
		return
	}
	p.view.SetPaletteName(e.Palette.Name)
}

func (p *Presenter) onVariantChanged(event domain.Event) {
	e, ok := event.(domain.VariantChangedEvent)
	if !ok {
		p.logger.Error("invalid event type for variant changed")
		return
	}
	p.view.SetVariantName(e.Variant.Name)
}

func (p *Presenter) onBakeStarted(event domain.Event) {
	e, ok := event.(domain.BakeStartedEvent)
	if !ok {
		p.logger.Error("invalid event type for bake started")
		return
	}

	p.view.ShowBakeProgress(domain.BakeProgress{
		JobID:       e.JobID,
		AssetID:     e.AssetID,
		VertexCount: e.VertexCount,
	})
}

func (p *Presenter) onBakeProgress(event domain.Event) {
	e, ok := event.(domain.BakeProgressEvent)
	if !ok {
		p.logger.Error("invalid event type for bake progress")
		return
	}
	p.view.ShowBakeProgress(e.Progress)
}

func (p *Presenter) onBakeCompleted(event domain.Event) {
	e, ok := event.(domain.BakeCompletedEvent)
	if !ok {
		p.logger.Error("invalid event type for bake completed")
		return
	}

	p.view.HideBakeProgress()
	if !e.Cached {
		p.view.ShowNotification("Morph Ready", "Shape \""+e.AssetID+"\" is ready")
	}
}

func (p *Presenter) onBakeFailed(event domain.Event) {
	e, ok := event.(domain.BakeFailedEvent)
	if !ok {
		p.logger.Error("invalid event type for bake failed")
		return
	}

	p.view.HideBakeProgress()
	p.view.ShowError("Bake Failed", e.Error.Error())
}

// UI command methods (called by the view)

// OnPlayClicked toggles between play and pause.
func (p *Presenter) OnPlayClicked() {
	if p.tracks.CurrentTrack() == nil {
		p.view.ShowNotification("No Track", "Open an audio file to start playback")
		return
	}

	var err error
	if p.tracks.Status() == domain.StatusPlaying {
		err = p.tracks.Pause()
	} else {
		err = p.tracks.Play()
	}
	if err != nil {
		p.logger.Error("play/pause failed", slog.Any("error", err))
		p.view.ShowError("Playback Error", err.Error())
	}
}

// OnStopClicked stops playback and rewinds to the beginning.
func (p *Presenter) OnStopClicked() {
	if err := p.tracks.Stop(); err != nil && !errors.Is(err, domain.ErrNoTrackLoaded) {
		p.logger.Error("stop failed", slog.Any("error", err))
	}
}

// OnVolumeChanged sets the playback volume. volume is 0.0 to 1.0.
func (p *Presenter) OnVolumeChanged(volume float64) {
	if err := p.tracks.SetVolume(volume); err != nil {
		p.logger.Warn("volume change rejected", slog.Any("error", err))
		return
	}
	p.persistSettings()
}

// OnFileOpened loads the chosen audio file and starts playing it.
// Track metadata reaches the view through the track loaded event.
func (p *Presenter) OnFileOpened(path string) {
	if err := p.tracks.Load(path); err != nil {
		p.logger.Error("failed to load track",
			slog.String("path", path),
			slog.Any("error", err))
		p.view.ShowError("Cannot Open File", err.Error())
		return
	}

	if err := p.tracks.Play(); err != nil {
		p.view.ShowError("Playback Error", err.Error())
	}
}

// OnPaletteSelected switches the active color palette.
func (p *Presenter) OnPaletteSelected(name string) {
	if err := p.visualizer.SetPalette(name); err != nil {
		p.logger.Warn("palette rejected",
			slog.String("palette", name),
			slog.Any("error", err))
		return
	}
	p.persistSettings()
}

// OnVariantSelected switches the visual variant.
func (p *Presenter) OnVariantSelected(name string) {
	if err := p.visualizer.SetVariant(name); err != nil {
		p.logger.Warn("variant rejected",
			slog.String("variant", name),
			slog.Any("error", err))
		return
	}
	p.persistSettings()
}

// OnShapeSelected requests a morph bake for the chosen target shape.
// The baked field lands asynchronously via the event bus.
func (p *Presenter) OnShapeSelected(assetID string) {
	if _, err := p.baker.Bake(assetID, p.visualizer.BaseMesh()); err != nil {
		if errors.Is(err, domain.ErrBakeInProgress) {
			p.view.ShowNotification("Bake Busy", "Another shape is still baking")
			return
		}
		p.logger.Warn("bake request failed",
			slog.String("asset_id", assetID),
			slog.Any("error", err))
	}
}

// OnMorphCleared drops the active morph target.
func (p *Presenter) OnMorphCleared() {
	p.visualizer.ClearMorphField()
}

// OnResolutionChanged rebuilds the mesh at the given subdivision level.
func (p *Presenter) OnResolutionChanged(level int) {
	if err := p.visualizer.SetResolution(level); err != nil {
		p.logger.Warn("resolution rejected", slog.Any("error", err))
		return
	}
	p.persistSettings()
}

// OnRotationSpeedChanged sets the camera orbit speed floor.
func (p *Presenter) OnRotationSpeedChanged(speed float64) {
	if err := p.visualizer.SetRotationSpeed(speed); err != nil {
		p.logger.Warn("rotation speed rejected", slog.Any("error", err))
		return
	}
	p.persistSettings()
}

// OnReactivityChanged scales audio-driven displacement.
func (p *Presenter) OnReactivityChanged(factor float64) {
	if err := p.visualizer.SetReactivity(factor); err != nil {
		p.logger.Warn("reactivity rejected", slog.Any("error", err))
		return
	}
	p.persistSettings()
}

// OnBloomChanged scales the bloom pass.
func (p *Presenter) OnBloomChanged(strength float64) {
	if err := p.visualizer.SetBloomStrength(strength); err != nil {
		p.logger.Warn("bloom strength rejected", slog.Any("error", err))
		return
	}
	p.persistSettings()
}

// OnStarCountChanged rebuilds the starfield with the given star count.
func (p *Presenter) OnStarCountChanged(count int) {
	if err := p.visualizer.SetStarCount(count); err != nil {
		p.logger.Warn("star count rejected", slog.Any("error", err))
		return
	}
	p.persistSettings()
}

// OnGyroToggled enables or disables device-orientation input.
func (p *Presenter) OnGyroToggled(enabled bool) {
	p.visualizer.SetGyroEnabled(enabled)
	p.persistSettings()
}

// Scene bridge methods (called by the scene widget)

// RenderFrame rasterizes the current scene state at the given pixel size.
func (p *Presenter) RenderFrame(w, h int) image.Image {
	return p.visualizer.RenderFrame(w, h)
}

// OnSceneFrame registers the view callback invoked after every scene tick.
func (p *Presenter) OnSceneFrame(callback func()) {
	p.visualizer.OnFrame(callback)
}

// OnSceneDragged feeds pointer drag velocity into the camera orbit.
func (p *Presenter) OnSceneDragged(velocity float64) {
	p.visualizer.AddDrag(velocity)
}

// View queries

// CurrentSettings returns the live visual settings plus playback volume,
// used to seed control positions when the window is built.
func (p *Presenter) CurrentSettings() domain.VisualSettings {
	settings := p.visualizer.Settings()
	settings.Volume = p.tracks.Volume()
	return settings
}

// ShapeNames lists the morph target shapes for the shape selector.
func (p *Presenter) ShapeNames() []string {
	names, err := p.baker.Shapes()
	if err != nil {
		p.logger.Warn("failed to list shapes", slog.Any("error", err))
		return nil
	}
	return names
}

// persistSettings saves the current visual settings and volume so they
// survive a restart. A persistence failure costs a log line, not a dialog.
func (p *Presenter) persistSettings() {
	settings := p.visualizer.Settings()
	settings.Volume = p.tracks.Volume()
	if err := p.settings.Save(settings); err != nil {
		p.logger.Warn("failed to persist settings", slog.Any("error", err))
	}
}

// Shutdown unsubscribes the presenter from the event bus.
// Safe to call multiple times.
func (p *Presenter) Shutdown() {
	p.shutdownOnce.Do(func() {
		for _, id := range p.subs {
			p.bus.Unsubscribe(id)
		}
		p.logger.Info("presenter shutdown complete")
	})
}
