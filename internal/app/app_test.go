package app

import (
	"path/filepath"
	"testing"
	"time"

	"fyne.io/fyne/v2/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/auroraviz/aurora/internal/domain"
)

// newTestConfig returns a desktop-mode config backed by a test Fyne app.
func newTestConfig() Config {
	config := DefaultConfig()
	config.TestFyneApp = test.NewApp()
	return config
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.Equal(t, "com.auroraviz.aurora", config.AppID)
	assert.Equal(t, "Aurora", config.AppName)
	assert.Equal(t, "aurora.db", config.StoragePath)
	assert.False(t, config.Headless)
	assert.False(t, config.WebEnabled)
	assert.Equal(t, ":8080", config.Web.Addr)
	assert.Positive(t, config.Visualizer.TickInterval)
}

func TestNewApplication(t *testing.T) {
	app, err := NewApplication(newTestConfig())
	require.NoError(t, err)
	require.NotNil(t, app)

	// Verify all services were created
	assert.NotNil(t, app.visualizerService)
	assert.NotNil(t, app.trackService)
	assert.NotNil(t, app.settingsService)
	assert.NotNil(t, app.bakeService)

	// Verify the desktop wiring
	assert.NotNil(t, app.eventBus)
	assert.NotNil(t, app.fyneApp)
	assert.NotNil(t, app.presenter)
	assert.NotNil(t, app.mainWindow)
	assert.Nil(t, app.webServer)

	// Cleanup
	err = app.Shutdown()
	assert.NoError(t, err)
}

func TestApplicationLifecycle(t *testing.T) {
	app, err := NewApplication(newTestConfig())
	require.NoError(t, err)

	// Run would normally block, but we're not calling it in test

	// Shutdown
	err = app.Shutdown()
	assert.NoError(t, err)

	// Shutdown again should not panic
	err = app.Shutdown()
	assert.NoError(t, err)
}

func TestApplicationLoadSavedState(t *testing.T) {
	config := newTestConfig()

	first, err := NewApplication(config)
	require.NoError(t, err)

	saved := domain.DefaultVisualSettings()
	saved.PaletteName = "ember"
	saved.RotationSpeed = 0.9
	saved.StarCount = 450
	saved.Volume = 0.4
	require.NoError(t, first.settingsService.Save(saved))
	require.NoError(t, first.Shutdown())

	// A second application on the same preferences restores the settings.
	second, err := NewApplication(config)
	require.NoError(t, err)
	defer func() {
		require.NoError(t, second.Shutdown())
	}()

	restored := second.visualizerService.Settings()
	assert.Equal(t, "ember", restored.PaletteName)
	assert.InDelta(t, 0.9, restored.RotationSpeed, 1e-9)
	assert.Equal(t, 450, restored.StarCount)
	assert.InDelta(t, 0.4, second.trackService.Volume(), 1e-9)
}

func TestApplicationHeadless(t *testing.T) {
	config := DefaultConfig()
	config.Headless = true
	config.StoragePath = filepath.Join(t.TempDir(), "morph.db")
	config.WebEnabled = true
	config.Web.Addr = "127.0.0.1:0"
	config.Web.TelemetryInterval = 20 * time.Millisecond

	app, err := NewApplication(config)
	require.NoError(t, err)

	// No desktop stack in headless mode
	assert.Nil(t, app.fyneApp)
	assert.Nil(t, app.mainWindow)
	assert.Nil(t, app.settingsService)
	require.NotNil(t, app.webServer)
	require.NotNil(t, app.sqliteRepo)

	runErr := make(chan error, 1)
	go func() {
		runErr <- app.Run()
	}()

	// The web server is up once it reports its bound address.
	require.Eventually(t, func() bool {
		return app.webServer.Addr() != ""
	}, 2*time.Second, 20*time.Millisecond)

	require.NoError(t, app.Shutdown())

	select {
	case err := <-runErr:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("run did not exit after shutdown")
	}
}

func TestApplicationRebakesOnResolutionChange(t *testing.T) {
	config := newTestConfig()

	app, err := NewApplication(config)
	require.NoError(t, err)
	defer func() {
		require.NoError(t, app.Shutdown())
	}()

	// Bake a built-in shape; the completed event glue installs the field.
	_, err = app.bakeService.Bake("cube", app.visualizerService.BaseMesh())
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return app.visualizerService.MorphAssetID() == "cube"
	}, 5*time.Second, 20*time.Millisecond)

	// Changing resolution drops the field and triggers a rebake at the new
	// vertex count.
	oldCount := app.visualizerService.VertexCount()
	require.NoError(t, app.visualizerService.SetResolution(1))
	newCount := app.visualizerService.VertexCount()
	require.NotEqual(t, oldCount, newCount)

	// The rebake is done once the cache holds a field for the new count.
	require.Eventually(t, func() bool {
		_, err := app.morphRepo.Load("cube", newCount)
		return err == nil
	}, 5*time.Second, 20*time.Millisecond)
}
