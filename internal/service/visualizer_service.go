package service

import (
	"image"
	"log/slog"
	"sync"
	"time"

	"github.com/auroraviz/aurora/internal/domain"
	"github.com/auroraviz/aurora/internal/dsp"
	"github.com/auroraviz/aurora/internal/ports"
	"github.com/auroraviz/aurora/internal/scene"
)

// maxFrameDelta caps the simulation step after a stall, so a debugger
// pause or a long GC does not slingshot the camera and smoothers.
const maxFrameDelta = 0.1

// fpsBlend is the easing factor for the measured frame rate.
const fpsBlend = 0.1

// VisualizerConfig holds the render loop tuning.
type VisualizerConfig struct {
	// TickInterval is the simulation clock period.
	TickInterval time.Duration

	// StarRadius is the starfield shell radius.
	StarRadius float64

	// StarSeed seeds the starfield layout.
	StarSeed int64

	// Camera is the orbit tuning.
	Camera scene.CameraConfig
}

// DefaultVisualizerConfig returns the configuration used by the
// application.
func DefaultVisualizerConfig() VisualizerConfig {
	return VisualizerConfig{
		TickInterval: 33 * time.Millisecond,
		StarRadius:   20,
		StarSeed:     1,
		Camera:       scene.DefaultCameraConfig(),
	}
}

// VisualizerService drives the audio-to-visual pipeline. A single ticker
// goroutine advances every frame: sample the spectrum source, extract
// band energies, fold them into the smoothing tracks and morph envelope,
// move the camera, and assemble the frame's shader params. Nothing else
// writes frame state, which is what keeps the solid pass, wireframe pass
// and telemetry readers consistent with each other.
//
// Drawing is pull-based: the UI widget calls RenderFrame from its paint
// path and receives the scene rasterized under the current params. The
// OnFrame callback only signals that a fresh frame is ready.
//
// All operations are thread-safe via sync.Mutex.
type VisualizerService struct {
	// Dependencies (injected)
	logger *slog.Logger
	bus    ports.EventBus
	cfg    VisualizerConfig

	// Pipeline state (guarded by mu)
	source    ports.SpectrumSource
	extractor *dsp.Extractor
	smoother  *dsp.Smoother
	envelope  *dsp.MorphEnvelope
	deformer  *scene.Deformer
	rig       *scene.Rig
	stars     *scene.Starfield
	renderer  *scene.Renderer

	palette       domain.Palette
	variant       domain.VariantConfig
	resolution    int
	rotationSpeed float64
	reactivity    float64
	bloomStrength float64
	starCount     int
	gyroEnabled   bool
	morphAssetID  string

	lastParams   domain.ShaderParams
	lastEnergy   domain.SmoothedEnergy
	lastBlend    float64
	fps          float64
	lastTick     time.Time
	sampleFailed bool

	onFrame func()

	// Concurrency control
	mu      sync.Mutex
	running bool
	closed  bool
	stop    chan struct{}
	wg      sync.WaitGroup
}

// NewVisualizerService creates a visualizer around the given spectrum
// source, tuned to the default visual settings. The loop does not run
// until Start.
func NewVisualizerService(
	logger *slog.Logger,
	bus ports.EventBus,
	source ports.SpectrumSource,
	cfg VisualizerConfig,
) *VisualizerService {
	defaults := DefaultVisualizerConfig()
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = defaults.TickInterval
	}
	if cfg.StarRadius <= 0 {
		cfg.StarRadius = defaults.StarRadius
	}
	if cfg.Camera == (scene.CameraConfig{}) {
		cfg.Camera = defaults.Camera
	}

	settings := domain.DefaultVisualSettings()
	palette, _ := domain.PaletteByName(settings.PaletteName)
	variant, _ := domain.VariantByName(settings.VariantName)

	cfg.Camera.BaseSpeed = settings.RotationSpeed

	service := &VisualizerService{
		logger:        logger,
		bus:           bus,
		cfg:           cfg,
		source:        source,
		extractor:     dsp.NewExtractor(dsp.ConfigFromVariant(variant)),
		smoother:      dsp.NewSmoother(variant.SlowK, variant.FastK),
		envelope:      dsp.NewMorphEnvelope(variant.MorphThreshold, variant.MorphKnee, variant.MorphAttackRate, variant.MorphReleaseRate),
		deformer:      scene.NewDeformer(settings.MeshResolution, palette, variant),
		rig:           scene.NewRig(cfg.Camera),
		stars:         scene.NewStarfield(cfg.StarSeed),
		renderer:      scene.NewRenderer(),
		palette:       palette,
		variant:       variant,
		resolution:    settings.MeshResolution,
		rotationSpeed: settings.RotationSpeed,
		reactivity:    settings.Reactivity,
		bloomStrength: settings.BloomStrength,
		starCount:     settings.StarCount,
		stop:          make(chan struct{}),
	}

	service.deformer.SetUserReactivity(settings.Reactivity)
	service.deformer.SetUserBloom(settings.BloomStrength)
	service.stars.Build(settings.StarCount, cfg.StarRadius, palette)

	logger.Debug("visualizer service initialized",
		slog.String("palette", palette.Name),
		slog.String("variant", variant.Name),
		slog.Int("vertex_count", service.deformer.VertexCount()))

	return service
}

// Start opens the spectrum source and launches the frame loop.
func (s *VisualizerService) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return domain.NewServiceError("visualizer", "start", "service is shut down", nil)
	}
	if s.running {
		return nil
	}

	if err := s.source.Start(); err != nil {
		return err
	}

	s.running = true
	s.lastTick = time.Now()
	s.wg.Add(1)
	go s.loop()

	s.logger.Debug("visualizer loop started",
		slog.String("source", s.source.Kind()),
		slog.Duration("tick", s.cfg.TickInterval))

	return nil
}

// Close stops the frame loop. It does not close the spectrum source; the
// adapters belong to whoever wired them in.
func (s *VisualizerService) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	if s.running {
		s.running = false
		close(s.stop)
	}
	s.mu.Unlock()

	s.wg.Wait()
	return nil
}

// OnFrame registers the redraw signal. The callback runs on the loop
// goroutine after each tick and must be cheap; a fyne widget typically
// just calls Refresh.
func (s *VisualizerService) OnFrame(callback func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.onFrame = callback
}

func (s *VisualizerService) loop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case now := <-ticker.C:
			s.tick(now)
		}
	}
}

// tick advances the pipeline by one frame.
func (s *VisualizerService) tick(now time.Time) {
	s.mu.Lock()

	dt := now.Sub(s.lastTick).Seconds()
	s.lastTick = now
	if dt < 0 {
		dt = 0
	}
	if dt > maxFrameDelta {
		dt = maxFrameDelta
	}

	var raw domain.BandEnergy
	snap, err := s.source.Sample()
	if err != nil {
		// Treat a failing source as silence; the smoothers decay and the
		// scene settles instead of freezing.
		snap = nil
		if !s.sampleFailed {
			s.logger.Warn("spectrum source failed, rendering silence", slog.Any("error", err))
			s.sampleFailed = true
		}
	} else {
		if s.sampleFailed {
			s.logger.Info("spectrum source recovered")
			s.sampleFailed = false
		}
		raw = s.extractor.Extract(snap)
	}

	energy := s.smoother.Update(raw)

	blend := 0.0
	if s.variant.MorphEnabled {
		blend = s.envelope.Update(energy.FastBass)
	}

	s.rig.Update(dt, energy)

	s.lastParams = s.deformer.BuildParams(dt, energy, blend, snap)
	s.lastEnergy = energy
	s.lastBlend = blend
	if dt > 0 {
		s.fps += (1/dt - s.fps) * fpsBlend
	}

	callback := s.onFrame
	s.mu.Unlock()

	if callback != nil {
		callback()
	}
}

// RenderFrame rasterizes the scene under the current frame params at the
// given size. It is safe to call from the UI paint path concurrently
// with the loop; the returned image is reused by the next call from the
// same goroutine.
func (s *VisualizerService) RenderFrame(w, h int) image.Image {
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	mesh := s.deformer.Apply(s.lastParams)
	return s.renderer.Render(w, h, mesh, s.lastParams, s.rig.Eye(), s.stars.Stars())
}

// SetSource swaps the spectrum source. The new source is started before
// the swap; on failure the current source keeps playing. The previous
// source is not closed.
func (s *VisualizerService) SetSource(source ports.SpectrumSource) error {
	if source == nil {
		return domain.NewValidationError("source", nil, "must not be nil")
	}

	if err := source.Start(); err != nil {
		return err
	}

	s.mu.Lock()
	s.source = source
	s.sampleFailed = false
	s.smoother.Reset()
	s.envelope.Reset()
	kind := source.Kind()
	s.mu.Unlock()

	s.logger.Debug("spectrum source changed", slog.String("kind", kind))
	s.bus.Publish(domain.NewSourceChangedEvent(kind))

	return nil
}

// Source returns the kind of the current spectrum source.
func (s *VisualizerService) Source() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.source.Kind()
}

// SetPalette swaps the color scheme. Shader colors, background and
// starfield tint all change under one lock, so no frame mixes palettes.
func (s *VisualizerService) SetPalette(name string) error {
	palette, ok := domain.PaletteByName(name)
	if !ok {
		return domain.ErrUnknownPalette
	}

	s.mu.Lock()
	s.palette = palette
	s.deformer.SetPalette(palette)
	s.stars.Build(s.starCount, s.cfg.StarRadius, palette)
	s.mu.Unlock()

	s.bus.Publish(domain.NewPaletteChangedEvent(palette))

	return nil
}

// SetVariant swaps the pipeline tuning. The smoothing tracks keep their
// state so the scene does not dip to black; the extractor and morph gate
// pick up the new constants immediately.
func (s *VisualizerService) SetVariant(name string) error {
	variant, ok := domain.VariantByName(name)
	if !ok {
		return domain.ErrUnknownVariant
	}

	s.mu.Lock()
	s.variant = variant
	s.deformer.SetVariant(variant)
	s.extractor = dsp.NewExtractor(dsp.ConfigFromVariant(variant))
	s.smoother.Retune(variant.SlowK, variant.FastK)
	s.envelope.Retune(variant.MorphThreshold, variant.MorphKnee, variant.MorphAttackRate, variant.MorphReleaseRate)
	if !variant.MorphEnabled {
		s.envelope.Reset()
	}
	s.mu.Unlock()

	s.bus.Publish(domain.NewVariantChangedEvent(variant))

	return nil
}

// SetResolution rebuilds the base mesh at the given subdivision level.
// Any loaded morph field is dropped; the mesh renders undeformed until a
// fresh bake for the new vertex count lands via ApplyMorphField.
func (s *VisualizerService) SetResolution(level int) error {
	level = domain.ClampResolution(level)

	s.mu.Lock()
	if level == s.resolution {
		s.mu.Unlock()
		return nil
	}
	s.resolution = level
	vertexCount := s.deformer.SetResolution(level)
	s.envelope.Reset()
	s.mu.Unlock()

	s.logger.Debug("mesh resolution changed",
		slog.Int("level", level),
		slog.Int("vertex_count", vertexCount))
	s.bus.Publish(domain.NewResolutionChangedEvent(level, vertexCount))

	return nil
}

// SetReactivity scales audio-driven displacement.
func (s *VisualizerService) SetReactivity(factor float64) error {
	if factor < 0 {
		return domain.NewValidationError("reactivity", factor, "must not be negative")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.reactivity = factor
	s.deformer.SetUserReactivity(factor)

	return nil
}

// SetBloomStrength scales the bloom pass.
func (s *VisualizerService) SetBloomStrength(strength float64) error {
	if strength < 0 {
		return domain.NewValidationError("bloom_strength", strength, "must not be negative")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.bloomStrength = strength
	s.deformer.SetUserBloom(strength)

	return nil
}

// SetRotationSpeed changes the orbit speed floor.
func (s *VisualizerService) SetRotationSpeed(speed float64) error {
	if speed < 0 {
		return domain.NewValidationError("rotation_speed", speed, "must not be negative")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.rotationSpeed = speed
	s.rig.SetBaseSpeed(speed)

	return nil
}

// SetStarCount rebuilds the starfield with the given number of stars.
func (s *VisualizerService) SetStarCount(count int) error {
	if count < 0 {
		return domain.NewValidationError("star_count", count, "must not be negative")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.starCount = count
	s.stars.Build(count, s.cfg.StarRadius, s.palette)

	return nil
}

// SetGyroEnabled toggles device-orientation input on the camera.
func (s *VisualizerService) SetGyroEnabled(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.gyroEnabled = on
	s.rig.SetGyroEnabled(on)
}

// SetOrientationRate feeds the current device-orientation angular rate.
func (s *VisualizerService) SetOrientationRate(rate float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rig.SetOrientationRate(rate)
}

// AddDrag feeds manual drag input into the camera orbit.
func (s *VisualizerService) AddDrag(velocity float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rig.AddDrag(velocity)
}

// ApplyMorphField installs a baked field as the morph target.
func (s *VisualizerService) ApplyMorphField(field domain.MorphField) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.deformer.SetMorphField(field); err != nil {
		return err
	}
	s.morphAssetID = field.AssetID

	return nil
}

// ClearMorphField drops the morph target; the mesh morphs to itself.
func (s *VisualizerService) ClearMorphField() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.deformer.ClearMorphField()
	s.morphAssetID = ""
}

// MorphAssetID returns the asset of the installed morph field, or the
// empty string when none is loaded.
func (s *VisualizerService) MorphAssetID() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.morphAssetID
}

// BaseMesh exposes the current undeformed mesh for morph baking. The
// returned mesh is immutable; a resolution change builds a new one
// instead of touching it.
func (s *VisualizerService) BaseMesh() *scene.Mesh {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.deformer.BaseMesh()
}

// VertexCount returns the current base mesh vertex count.
func (s *VisualizerService) VertexCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.deformer.VertexCount()
}

// ApplySettings restores a persisted snapshot. Unknown palette or
// variant names are logged and skipped, everything else applies;
// the volume field belongs to the track service and is ignored here.
func (s *VisualizerService) ApplySettings(settings domain.VisualSettings) {
	if err := s.SetPalette(settings.PaletteName); err != nil {
		s.logger.Warn("saved palette not restored", slog.String("palette", settings.PaletteName))
	}
	if err := s.SetVariant(settings.VariantName); err != nil {
		s.logger.Warn("saved variant not restored", slog.String("variant", settings.VariantName))
	}
	if err := s.SetResolution(settings.MeshResolution); err != nil {
		s.logger.Warn("saved resolution not restored", slog.Int("level", settings.MeshResolution))
	}
	if err := s.SetRotationSpeed(settings.RotationSpeed); err != nil {
		s.logger.Warn("saved rotation speed not restored", slog.Float64("speed", settings.RotationSpeed))
	}
	if err := s.SetReactivity(settings.Reactivity); err != nil {
		s.logger.Warn("saved reactivity not restored", slog.Float64("reactivity", settings.Reactivity))
	}
	if err := s.SetBloomStrength(settings.BloomStrength); err != nil {
		s.logger.Warn("saved bloom strength not restored", slog.Float64("bloom", settings.BloomStrength))
	}
	if err := s.SetStarCount(settings.StarCount); err != nil {
		s.logger.Warn("saved star count not restored", slog.Int("stars", settings.StarCount))
	}
	s.SetGyroEnabled(settings.GyroEnabled)
}

// Settings returns the current visual settings snapshot. The Volume
// field is zero; the track service owns playback volume and wiring code
// merges it before persisting.
func (s *VisualizerService) Settings() domain.VisualSettings {
	s.mu.Lock()
	defer s.mu.Unlock()

	return domain.VisualSettings{
		PaletteName:    s.palette.Name,
		VariantName:    s.variant.Name,
		RotationSpeed:  s.rotationSpeed,
		Reactivity:     s.reactivity,
		BloomStrength:  s.bloomStrength,
		StarCount:      s.starCount,
		MeshResolution: s.resolution,
		GyroEnabled:    s.gyroEnabled,
	}
}

// Telemetry returns the current frame state for remote clients. The
// Track field is left empty; the caller composes it from the track
// service.
func (s *VisualizerService) Telemetry() domain.TelemetryFrame {
	s.mu.Lock()
	defer s.mu.Unlock()

	return domain.TelemetryFrame{
		Bands:      s.lastEnergy.Slow,
		FastBass:   s.lastEnergy.FastBass,
		MorphBlend: s.lastBlend,
		FPS:        s.fps,
		Palette:    s.palette.Name,
		Variant:    s.variant.Name,
		Params:     s.lastParams,
	}
}

// Verify that VisualizerService implements the expected interface patterns
var _ interface {
	Start() error
	Close() error
	RenderFrame(int, int) image.Image
	SetSource(ports.SpectrumSource) error
	SetPalette(string) error
	SetVariant(string) error
	SetResolution(int) error
	ApplyMorphField(domain.MorphField) error
	Telemetry() domain.TelemetryFrame
	Settings() domain.VisualSettings
} = (*VisualizerService)(nil)
