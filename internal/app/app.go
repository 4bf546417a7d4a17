// Package app provides application-level orchestration and dependency injection.
// This package wires together all components and manages the application lifecycle.
package app

import (
	"fmt"
	"log/slog"
	"sync"

	"fyne.io/fyne/v2"
	fyneapp "fyne.io/fyne/v2/app"

	"github.com/auroraviz/aurora/internal/adapter/audio/file"
	"github.com/auroraviz/aurora/internal/adapter/audio/live"
	"github.com/auroraviz/aurora/internal/adapter/audio/synth"
	"github.com/auroraviz/aurora/internal/adapter/eventbus"
	"github.com/auroraviz/aurora/internal/adapter/repository/memory"
	"github.com/auroraviz/aurora/internal/adapter/repository/sqlite"
	"github.com/auroraviz/aurora/internal/adapter/shape/obj"
	fyneui "github.com/auroraviz/aurora/internal/adapter/ui/fyne"
	"github.com/auroraviz/aurora/internal/adapter/web"
	"github.com/auroraviz/aurora/internal/domain"
	"github.com/auroraviz/aurora/internal/logger"
	"github.com/auroraviz/aurora/internal/ports"
	"github.com/auroraviz/aurora/internal/service"
)

// Application is the root application structure that holds all dependencies.
// It follows the Dependency Injection pattern with constructor-based injection.
//
// The Application struct is responsible for:
// - Creating and wiring all dependencies
// - Managing the application lifecycle (startup, shutdown)
// - Providing a clean entry point for main.go
type Application struct {
	// Core dependencies
	logger  *slog.Logger
	fyneApp fyne.App // nil in headless mode

	// Infrastructure
	eventBus ports.EventBus

	// Spectrum sources. The ambient source (synthetic sweep or live capture)
	// drives the scene until a file is loaded; the player takes over then.
	player  ports.TrackPlayer
	ambient ports.SpectrumSource

	// Repositories
	settingsRepo ports.SettingsRepository
	morphRepo    ports.MorphFieldRepository
	sqliteRepo   *sqlite.MorphFieldRepository // kept for Close in headless mode

	// Services
	visualizerService *service.VisualizerService
	trackService      *service.TrackService
	settingsService   *service.SettingsService // nil in headless mode
	bakeService       *service.BakeService

	// Optional remote-control surface
	webServer *web.Server

	// UI (desktop mode)
	presenter  *fyneui.Presenter
	mainWindow *fyneui.MainWindow

	// Lifecycle
	headless     bool
	musicFile    string
	done         chan struct{}
	shutdownOnce sync.Once
}

// Config holds application configuration.
type Config struct {
	// AppID is the unique application identifier
	AppID string

	// AppName is the display name
	AppName string

	// Headless disables the desktop window; the scene renders for the
	// web surface only
	Headless bool

	// MusicFile is an audio file to load and play at startup ("" for none)
	MusicFile string

	// UseCapture drives the scene from a live input device instead of the
	// synthetic sweep when no file is playing
	UseCapture bool

	// CaptureDevice selects the input device by name substring ("" for default)
	CaptureDevice string

	// ShapesDir is a directory of OBJ morph targets that shadow the
	// built-in shapes ("" for built-ins only)
	ShapesDir string

	// StoragePath is the morph cache database path used in headless mode
	StoragePath string

	// WebEnabled starts the HTTP/WebSocket remote-control server
	WebEnabled bool

	// Web configures the remote-control server
	Web web.Config

	// Visualizer configures the render loop
	Visualizer service.VisualizerConfig

	// Track configures playback progress reporting
	Track service.TrackConfig

	// Bake configures the morph baker
	Bake service.BakeConfig

	// LogLevel controls logging verbosity
	LogLevel slog.Level

	// TestFyneApp allows injecting a test Fyne app for testing (nil for production)
	TestFyneApp fyne.App
}

// DefaultConfig returns the default application configuration.
func DefaultConfig() Config {
	loggerCfg := logger.DefaultConfig()
	return Config{
		AppID:       "com.auroraviz.aurora",
		AppName:     "Aurora",
		StoragePath: "aurora.db",
		Web:         web.DefaultConfig(),
		Visualizer:  service.DefaultVisualizerConfig(),
		Track:       service.DefaultTrackConfig(),
		Bake:        service.DefaultBakeConfig(),
		LogLevel:    loggerCfg.Level,
	}
}

// NewApplication creates a new application with all dependencies wired.
// This is the main dependency injection function.
func NewApplication(config Config) (*Application, error) {
	app := &Application{
		headless:  config.Headless,
		musicFile: config.MusicFile,
		done:      make(chan struct{}),
	}

	// Step 1: Create Fyne application (desktop mode only)
	if !config.Headless {
		if config.TestFyneApp != nil {
			app.fyneApp = config.TestFyneApp
		} else {
			app.fyneApp = fyneapp.NewWithID(config.AppID)
		}
	}

	// Step 1.5: Create logger
	loggerCfg := logger.Config{
		Level:  config.LogLevel,
		Format: "text",
	}
	app.logger = logger.NewLogger(loggerCfg)
	app.logger.Info("initializing application",
		slog.String("app_id", config.AppID),
		slog.String("app_name", config.AppName),
		slog.Bool("headless", config.Headless))

	// Step 2: Create an event bus
	syncBus := eventbus.NewSyncEventBus()
	syncBus.SetLogger(app.logger.With(slog.String("component", "eventbus")))
	app.eventBus = syncBus

	// Step 3: Create spectrum sources
	app.player = file.NewPlayer()
	if config.UseCapture {
		app.ambient = live.New(config.CaptureDevice)
	} else {
		app.ambient = synth.New()
	}

	// Step 4: Create repositories
	if config.Headless {
		fields, err := sqlite.NewMorphFieldRepository(
			config.StoragePath,
			app.logger.With(slog.String("repository", "morphfield")),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to open morph cache: %w", err)
		}
		app.sqliteRepo = fields
		app.morphRepo = fields
	} else {
		prefs := app.fyneApp.Preferences()
		app.settingsRepo = memory.NewSettingsRepository(prefs)
		app.morphRepo = memory.NewMorphFieldRepository(
			prefs,
			app.logger.With(slog.String("repository", "morphfield")),
		)
	}

	// Step 5: Create the shape source
	shapes := obj.New(config.ShapesDir)

	// Step 6: Create services (with dependency injection)
	app.visualizerService = service.NewVisualizerService(
		app.logger.With(slog.String("service", "visualizer")),
		app.eventBus,
		app.ambient,
		config.Visualizer,
	)

	app.trackService = service.NewTrackService(
		app.logger.With(slog.String("service", "track")),
		app.player,
		app.eventBus,
		config.Track,
	)

	app.bakeService = service.NewBakeService(
		app.logger.With(slog.String("service", "bake")),
		shapes,
		app.morphRepo,
		app.eventBus,
		config.Bake,
	)

	if !config.Headless {
		app.settingsService = service.NewSettingsService(
			app.logger.With(slog.String("service", "settings")),
			app.settingsRepo,
			app.eventBus,
		)
	}

	// Step 7: Load saved state
	if err := app.loadSavedState(); err != nil {
		// Non-fatal - just log and continue
		app.logger.Warn("failed to load saved state", slog.Any("error", err))
	}

	// Step 8: Wire cross-service event glue
	app.wireEvents()

	// Step 9: Create the remote-control server
	if config.WebEnabled {
		app.webServer = web.NewServer(
			app.logger.With(slog.String("component", "web")),
			app.visualizerService,
			app.trackService,
			config.Web,
		)
	}

	// Step 10: Create UI and presenter (desktop mode only)
	if !config.Headless {
		app.mainWindow = fyneui.NewMainWindow(app.fyneApp)
		app.presenter = fyneui.NewPresenter(
			app.logger.With(slog.String("component", "presenter")),
			app.visualizerService,
			app.trackService,
			app.settingsService,
			app.bakeService,
			app.eventBus,
			app.mainWindow,
		)

		// Connect presenter to the main window
		app.mainWindow.SetPresenter(app.presenter)
	}

	return app, nil
}

// loadSavedState restores visual settings and volume from the previous session.
func (a *Application) loadSavedState() error {
	if a.settingsService == nil {
		return nil
	}

	settings := a.settingsService.Settings()
	a.visualizerService.ApplySettings(settings)
	if err := a.trackService.SetVolume(settings.Volume); err != nil {
		a.logger.Warn("failed to restore volume", slog.Any("error", err))
	}

	return nil
}

// wireEvents subscribes the cross-cutting glue that no single service owns.
func (a *Application) wireEvents() {
	// Hand the scene to the file player as soon as a track loads. The
	// ambient source keeps running; it takes over again only by flag.
	a.eventBus.Subscribe(domain.EventTrackLoaded, func(event domain.Event) {
		if a.visualizerService.Source() == a.player.Kind() {
			return
		}
		if err := a.visualizerService.SetSource(a.player); err != nil {
			a.logger.Warn("failed to switch spectrum source", slog.Any("error", err))
		}
	})

	// Install baked morph fields into the scene.
	a.eventBus.Subscribe(domain.EventBakeCompleted, func(event domain.Event) {
		e, ok := event.(domain.BakeCompletedEvent)
		if !ok {
			return
		}
		if err := a.visualizerService.ApplyMorphField(e.Field); err != nil {
			a.logger.Warn("baked morph field rejected",
				slog.String("asset_id", e.AssetID),
				slog.Any("error", err))
		}
	})

	// A resolution change drops the installed field. Invalidate the cache
	// entry for the old vertex count and rebake the selected shape.
	var rebakeMu sync.Mutex
	lastVertexCount := a.visualizerService.VertexCount()
	a.eventBus.Subscribe(domain.EventResolutionChanged, func(event domain.Event) {
		e, ok := event.(domain.ResolutionChangedEvent)
		if !ok {
			return
		}

		rebakeMu.Lock()
		oldCount := lastVertexCount
		lastVertexCount = e.VertexCount
		rebakeMu.Unlock()

		assetID := a.visualizerService.MorphAssetID()
		if assetID == "" {
			return
		}
		if err := a.bakeService.Invalidate(assetID, oldCount); err != nil {
			a.logger.Warn("failed to invalidate morph cache",
				slog.String("asset_id", assetID),
				slog.Any("error", err))
		}
		if _, err := a.bakeService.Bake(assetID, a.visualizerService.BaseMesh()); err != nil {
			a.logger.Warn("rebake after resolution change failed",
				slog.String("asset_id", assetID),
				slog.Any("error", err))
		}
	})
}

// Run starts the render loop and blocks until the application exits.
// This is called from main.go after the application is created.
func (a *Application) Run() error {
	if err := a.visualizerService.Start(); err != nil {
		return fmt.Errorf("failed to start visualizer: %w", err)
	}

	if a.webServer != nil {
		// The web surface is optional equipment; keep rendering without it.
		if err := a.webServer.Start(); err != nil {
			a.logger.Warn("web server failed to start", slog.Any("error", err))
		}
	}

	if a.musicFile != "" {
		if err := a.trackService.Load(a.musicFile); err != nil {
			a.logger.Warn("failed to load startup track",
				slog.String("path", a.musicFile),
				slog.Any("error", err))
		} else if err := a.trackService.Play(); err != nil {
			a.logger.Warn("failed to start playback", slog.Any("error", err))
		}
	}

	a.logger.Info("all services initialized successfully")

	if a.headless {
		a.logger.Info("running headless, press ctrl+c to exit")
		<-a.done
		return nil
	}

	// Show and run UI (blocks until the window is closed)
	return a.mainWindow.Run()
}

// Shutdown gracefully shuts down the application.
// Safe to call multiple times; this should be deferred in main.go.
func (a *Application) Shutdown() error {
	a.shutdownOnce.Do(func() {
		a.logger.Info("shutting down application")

		close(a.done)

		// Shutdown the presenter; the window is gone once Run returns
		if a.presenter != nil {
			a.presenter.Shutdown()
		}

		// Stop the remote-control surface before the services it reads
		if a.webServer != nil {
			if err := a.webServer.Close(); err != nil {
				a.logger.Warn("failed to close web server", slog.Any("error", err))
			}
		}

		// Shutdown services (in reverse order of creation)
		if a.bakeService != nil {
			if err := a.bakeService.Close(); err != nil {
				a.logger.Warn("failed to close bake service", slog.Any("error", err))
			}
		}

		if a.trackService != nil {
			if err := a.trackService.Shutdown(); err != nil {
				a.logger.Warn("failed to shutdown track service", slog.Any("error", err))
			}
		}

		if a.settingsService != nil {
			if err := a.settingsService.Shutdown(); err != nil {
				a.logger.Warn("failed to shutdown settings service", slog.Any("error", err))
			}
		}

		if a.visualizerService != nil {
			if err := a.visualizerService.Close(); err != nil {
				a.logger.Warn("failed to close visualizer service", slog.Any("error", err))
			}
		}

		// Close the spectrum adapters; the services above only borrow them
		if a.player != nil {
			if err := a.player.Close(); err != nil {
				a.logger.Warn("failed to close player", slog.Any("error", err))
			}
		}
		if a.ambient != nil {
			if err := a.ambient.Close(); err != nil {
				a.logger.Warn("failed to close ambient source", slog.Any("error", err))
			}
		}

		if a.sqliteRepo != nil {
			if err := a.sqliteRepo.Close(); err != nil {
				a.logger.Warn("failed to close morph cache", slog.Any("error", err))
			}
		}

		if err := a.eventBus.Close(); err != nil {
			a.logger.Warn("failed to close event bus", slog.Any("error", err))
		}

		a.logger.Info("application shutdown complete")
	})

	return nil
}
