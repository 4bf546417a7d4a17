package fyne

import (
	"fmt"
	"image"
	"math"
	"sync"

	fyneapp "fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"github.com/auroraviz/aurora/internal/adapter/ui/fyne/widgets"
	"github.com/auroraviz/aurora/internal/domain"
	"github.com/auroraviz/aurora/internal/ports"
)

const (
	appTitle      = "Aurora"
	defaultWidth  = 1100
	defaultHeight = 680

	// noShapeOption is the shape selector entry that clears the morph target.
	noShapeOption = "(none)"
)

// MainWindow is the main UI window implementing the ports.UI interface.
// It handles all UI rendering and user interactions.
//
// The MainWindow follows the MVP pattern:
// - It's a "dumb view" that just displays data
// - All business logic is in the Presenter
// - User interactions are forwarded to the Presenter
//
// Event handlers deliver view updates on service goroutines, so every
// ports.UI method marshals onto the UI thread via fyne.Do.
type MainWindow struct {
	app    fyneapp.App
	window fyneapp.Window

	// UI components
	sceneView      *widgets.SceneView
	openButton     *widget.Button
	playButton     *widget.Button
	stopButton     *widget.Button
	trackInfo      *widget.Label
	currentTime    *widget.Label
	endTime        *widget.Label
	progressSlider *widget.Slider
	volumeSlider   *widget.Slider

	paletteSelect    *widget.Select
	variantSelect    *widget.Select
	shapeSelect      *widget.Select
	resolutionSlider *widget.Slider
	speedSlider      *widget.Slider
	reactivitySlider *widget.Slider
	bloomSlider      *widget.Slider
	starSlider       *widget.Slider
	gyroCheck        *widget.Check

	bakeLabel    *widget.Label
	bakeProgress *widget.ProgressBar
	bakeBox      *fyneapp.Container

	// Lifecycle management
	closeOnce sync.Once

	// Presenter (set after construction)
	presenter *Presenter
}

// NewMainWindow creates a new main window.
func NewMainWindow(app fyneapp.App) *MainWindow {
	w := &MainWindow{
		app: app,
	}

	// Create a window
	w.window = app.NewWindow(appTitle)

	// Build UI
	w.buildUI()

	// Set window properties
	w.window.Resize(fyneapp.Size{
		Width:  defaultWidth,
		Height: defaultHeight,
	})

	return w
}

// SetPresenter connects the presenter to this view.
// This must be called before showing the window.
func (w *MainWindow) SetPresenter(presenter *Presenter) {
	w.presenter = presenter

	w.applySettings(presenter.CurrentSettings())
	w.populateShapes()
	w.wirePresenterHandlers()
	w.addShortcuts()

	// Repaint the scene after every tick. The callback arrives on the
	// render-loop goroutine.
	presenter.OnSceneFrame(func() {
		fyneapp.Do(w.sceneView.Redraw)
	})
}

// buildUI constructs the UI components.
func (w *MainWindow) buildUI() {
	// Scene raster. The presenter is attached later, so the source guards
	// against early paints.
	w.sceneView = widgets.NewSceneView(
		func(width, height int) image.Image {
			if w.presenter == nil {
				return image.NewRGBA(image.Rect(0, 0, max(width, 1), max(height, 1)))
			}
			return w.presenter.RenderFrame(width, height)
		},
		func(velocity float64) {
			if w.presenter != nil {
				w.presenter.OnSceneDragged(velocity)
			}
		},
	)

	// Control buttons
	w.openButton = widget.NewButtonWithIcon("", theme.FolderOpenIcon(), nil)
	w.playButton = widget.NewButtonWithIcon("", theme.MediaPlayIcon(), nil)
	w.stopButton = widget.NewButtonWithIcon("", theme.MediaStopIcon(), nil)

	// Track info label
	w.trackInfo = widget.NewLabel("No track loaded")
	w.trackInfo.Truncation = fyneapp.TextTruncateClip
	w.trackInfo.TextStyle = fyneapp.TextStyle{
		Bold: true,
	}

	// Volume slider
	w.volumeSlider = widget.NewSlider(0, 100)
	w.volumeSlider.Orientation = widget.Horizontal
	volumeHolder := container.NewHBox(widget.NewIcon(theme.VolumeUpIcon()), w.volumeSlider)

	// Button container
	buttonsHBox := container.NewHBox(w.openButton, w.playButton, w.stopButton)
	buttonsHolder := container.NewBorder(nil, nil, buttonsHBox, volumeHolder, w.trackInfo)

	// Progress slider (display only; the player has no seek)
	w.progressSlider = widget.NewSlider(0, 100)
	w.currentTime = widget.NewLabel("00:00")
	w.endTime = widget.NewLabel("00:00")
	sliderHolder := container.NewBorder(nil, nil, w.currentTime, w.endTime, w.progressSlider)

	// Main layout
	controls := container.NewVBox(buttonsHolder, sliderHolder)
	scenePanel := container.NewBorder(nil, controls, nil, nil, w.sceneView)
	root := container.NewBorder(nil, nil, nil, w.buildSidePanel(), scenePanel)
	w.window.SetContent(container.NewPadded(root))

	// Menu
	w.window.SetMainMenu(fyneapp.NewMainMenu(w.createMenu()...))
}

// buildSidePanel constructs the scene settings column.
func (w *MainWindow) buildSidePanel() fyneapp.CanvasObject {
	w.paletteSelect = widget.NewSelect(paletteNames(), nil)
	w.variantSelect = widget.NewSelect(variantNames(), nil)
	w.shapeSelect = widget.NewSelect([]string{noShapeOption}, nil)

	w.resolutionSlider = widget.NewSlider(0, float64(domain.MaxMeshResolution))
	w.resolutionSlider.Step = 1

	w.speedSlider = widget.NewSlider(0, 2)
	w.speedSlider.Step = 0.01

	w.reactivitySlider = widget.NewSlider(0, 3)
	w.reactivitySlider.Step = 0.05

	w.bloomSlider = widget.NewSlider(0, 2)
	w.bloomSlider.Step = 0.05

	w.starSlider = widget.NewSlider(0, 3000)
	w.starSlider.Step = 50

	w.gyroCheck = widget.NewCheck("Gyro camera", nil)

	w.bakeLabel = widget.NewLabel("")
	w.bakeProgress = widget.NewProgressBar()
	w.bakeBox = container.NewVBox(w.bakeLabel, w.bakeProgress)
	w.bakeBox.Hide()

	heading := widget.NewLabel("Scene")
	heading.TextStyle = fyneapp.TextStyle{Bold: true}

	return container.NewVBox(
		heading,
		widget.NewLabel("Palette"),
		w.paletteSelect,
		widget.NewLabel("Variant"),
		w.variantSelect,
		widget.NewLabel("Morph shape"),
		w.shapeSelect,
		widget.NewLabel("Resolution"),
		w.resolutionSlider,
		widget.NewLabel("Rotation speed"),
		w.speedSlider,
		widget.NewLabel("Reactivity"),
		w.reactivitySlider,
		widget.NewLabel("Bloom"),
		w.bloomSlider,
		widget.NewLabel("Stars"),
		w.starSlider,
		w.gyroCheck,
		w.bakeBox,
	)
}

// applySettings seeds control positions from restored settings.
// Handlers are not wired yet, so nothing fires back into the presenter.
func (w *MainWindow) applySettings(settings domain.VisualSettings) {
	w.paletteSelect.Selected = settings.PaletteName
	w.variantSelect.Selected = settings.VariantName
	w.resolutionSlider.Value = float64(settings.MeshResolution)
	w.speedSlider.Value = settings.RotationSpeed
	w.reactivitySlider.Value = settings.Reactivity
	w.bloomSlider.Value = settings.BloomStrength
	w.starSlider.Value = float64(settings.StarCount)
	w.gyroCheck.Checked = settings.GyroEnabled
	w.volumeSlider.Value = settings.Volume * 100.0
}

// populateShapes fills the shape selector with the available morph targets.
func (w *MainWindow) populateShapes() {
	options := []string{noShapeOption}
	options = append(options, w.presenter.ShapeNames()...)
	w.shapeSelect.Options = options
	w.shapeSelect.Selected = noShapeOption
	w.shapeSelect.Refresh()
}

// wirePresenterHandlers connects UI events to presenter handlers.
func (w *MainWindow) wirePresenterHandlers() {
	if w.presenter == nil {
		return
	}

	// Button handlers
	w.openButton.OnTapped = func() {
		w.handleOpenFile()
	}

	w.playButton.OnTapped = func() {
		w.presenter.OnPlayClicked()
	}

	w.stopButton.OnTapped = func() {
		w.presenter.OnStopClicked()
	}

	// Volume slider (0-100 in the UI, 0.0-1.0 in the service)
	w.volumeSlider.OnChanged = func(value float64) {
		w.presenter.OnVolumeChanged(value / 100.0)
	}

	// Scene controls
	w.paletteSelect.OnChanged = func(name string) {
		w.presenter.OnPaletteSelected(name)
	}

	w.variantSelect.OnChanged = func(name string) {
		w.presenter.OnVariantSelected(name)
	}

	w.shapeSelect.OnChanged = func(name string) {
		if name == noShapeOption {
			w.presenter.OnMorphCleared()
			return
		}
		w.presenter.OnShapeSelected(name)
	}

	// Mesh and starfield rebuilds are expensive, so they fire on release
	// rather than on every drag tick.
	w.resolutionSlider.OnChangeEnded = func(value float64) {
		w.presenter.OnResolutionChanged(int(value))
	}

	w.starSlider.OnChangeEnded = func(value float64) {
		w.presenter.OnStarCountChanged(int(value))
	}

	w.speedSlider.OnChanged = func(value float64) {
		w.presenter.OnRotationSpeedChanged(value)
	}

	w.reactivitySlider.OnChanged = func(value float64) {
		w.presenter.OnReactivityChanged(value)
	}

	w.bloomSlider.OnChanged = func(value float64) {
		w.presenter.OnBloomChanged(value)
	}

	w.gyroCheck.OnChanged = func(checked bool) {
		w.presenter.OnGyroToggled(checked)
	}
}

// createMenu creates the application menu.
func (w *MainWindow) createMenu() []*fyneapp.Menu {
	menus := make([]*fyneapp.Menu, 0)
	separator := fyneapp.NewMenuItemSeparator()

	openFile := fyneapp.NewMenuItem("Open", func() {
		w.handleOpenFile()
	})

	exitMenu := fyneapp.NewMenuItem("Exit", func() {
		w.window.Close()
	})

	fileMenuItems := fyneapp.NewMenu("File", openFile, separator, exitMenu)
	menus = append(menus, fileMenuItems)

	return menus
}

// handleOpenFile handles the "Open" action.
func (w *MainWindow) handleOpenFile() {
	if w.presenter == nil {
		return
	}

	fileDialog := NewFileDialog(w.window, func(filePath string) {
		w.presenter.OnFileOpened(filePath)
	})
	fileDialog.Show()
}

// addShortcuts adds keyboard shortcuts.
func (w *MainWindow) addShortcuts() {
	w.window.Canvas().AddShortcut(&desktop.CustomShortcut{
		KeyName:  fyneapp.KeyUp,
		Modifier: desktop.AltModifier,
	}, func(shortcut fyneapp.Shortcut) {
		// Volume up
		w.volumeSlider.SetValue(math.Min(w.volumeSlider.Value+5, 100))
	})

	w.window.Canvas().AddShortcut(&desktop.CustomShortcut{
		KeyName:  fyneapp.KeyDown,
		Modifier: desktop.AltModifier,
	}, func(shortcut fyneapp.Shortcut) {
		// Volume down
		w.volumeSlider.SetValue(math.Max(w.volumeSlider.Value-5, 0))
	})
}

// GetWindow returns the underlying Fyne window.
func (w *MainWindow) GetWindow() fyneapp.Window {
	return w.window
}

// ports.UI interface implementation

// SetTrackInfo updates the displayed track information.
func (w *MainWindow) SetTrackInfo(track domain.MusicTrack) {
	// Format: "Artist - Title"
	text := track.Title
	if track.Artist != "" && track.Title != "" {
		text = fmt.Sprintf("%s - %s", track.Artist, track.Title)
	}
	if text == "" {
		text = "No track loaded"
	}

	fyneapp.Do(func() {
		w.trackInfo.SetText(text)
	})
}

// SetPlayState updates the play/pause button state.
func (w *MainWindow) SetPlayState(playing bool) {
	fyneapp.Do(func() {
		if playing {
			w.playButton.SetIcon(theme.MediaPauseIcon())
		} else {
			w.playButton.SetIcon(theme.MediaPlayIcon())
		}
	})
}

// SetProgress updates the playback position display.
func (w *MainWindow) SetProgress(current, total float64) {
	fyneapp.Do(func() {
		w.progressSlider.Max = math.Max(total, 1)
		w.progressSlider.Value = current
		w.progressSlider.Refresh()
		w.currentTime.SetText(formatTime(current))
		w.endTime.SetText(formatTime(total))
	})
}

// SetVolume updates the volume slider.
// The value is written directly so the change handler does not echo the
// update back into the presenter.
func (w *MainWindow) SetVolume(volume float64) {
	fyneapp.Do(func() {
		w.volumeSlider.Value = volume * 100.0
		w.volumeSlider.Refresh()
	})
}

// SetPaletteName highlights the active palette in the selector.
func (w *MainWindow) SetPaletteName(name string) {
	fyneapp.Do(func() {
		w.paletteSelect.Selected = name
		w.paletteSelect.Refresh()
	})
}

// SetVariantName highlights the active variant in the selector.
func (w *MainWindow) SetVariantName(name string) {
	fyneapp.Do(func() {
		w.variantSelect.Selected = name
		w.variantSelect.Refresh()
	})
}

// ShowBakeProgress displays morph bake progress.
func (w *MainWindow) ShowBakeProgress(progress domain.BakeProgress) {
	fraction := 0.0
	if progress.VertexCount > 0 {
		fraction = float64(progress.VerticesDone) / float64(progress.VertexCount)
	}

	fyneapp.Do(func() {
		w.bakeLabel.SetText(fmt.Sprintf("Baking %s", progress.AssetID))
		w.bakeProgress.SetValue(fraction)
		w.bakeBox.Show()
	})
}

// HideBakeProgress removes the bake progress indicator.
func (w *MainWindow) HideBakeProgress() {
	fyneapp.Do(func() {
		w.bakeBox.Hide()
	})
}

// ShowNotification displays a system notification.
func (w *MainWindow) ShowNotification(title, message string) {
	w.app.SendNotification(fyneapp.NewNotification(title, message))
}

// ShowError displays an error dialog.
func (w *MainWindow) ShowError(title, message string) {
	fyneapp.Do(func() {
		dialog.ShowInformation(title, message, w.window)
	})
}

// Run shows the window and runs the application event loop.
// This is a blocking call.
func (w *MainWindow) Run() error {
	w.window.ShowAndRun()
	return nil
}

// Quit closes the application.
func (w *MainWindow) Quit() {
	w.app.Quit()
}

// Free closes the window. Safe to call multiple times (idempotent).
func (w *MainWindow) Free() {
	w.closeOnce.Do(func() {
		w.window.Close()
	})
}

// formatTime renders seconds as mm:ss.
func formatTime(seconds float64) string {
	return fmt.Sprintf("%.2d:%.2d", int(seconds/60), int(math.Mod(seconds, 60)))
}

// paletteNames lists the palette options in display order.
func paletteNames() []string {
	palettes := domain.Palettes()
	names := make([]string, 0, len(palettes))
	for _, p := range palettes {
		names = append(names, p.Name)
	}
	return names
}

// variantNames lists the variant options in display order.
func variantNames() []string {
	variants := domain.Variants()
	names := make([]string, 0, len(variants))
	for _, v := range variants {
		names = append(names, v.Name)
	}
	return names
}

// Verify ports.UI implementation
var _ ports.UI = (*MainWindow)(nil)
