// Package ports define the UI interface for view abstraction.
// This interface allows the presenter to update the UI without depending on Fyne directly.
package ports

import (
	"github.com/auroraviz/aurora/internal/domain"
)

// UI is the interface for the user interface layer.
// This abstracts the Fyne UI implementation and allows for testing without a real UI.
//
// The presenter layer receives events from the event bus and calls these methods
// to update the UI accordingly. This creates a clean separation between business logic
// (services), presentation logic (presenter), and view rendering (UI).
//
// Thread-safety: All methods must be called from the main UI thread.
// The Fyne framework handles thread-safety internally.
type UI interface {
	// Track display methods

	// SetTrackInfo updates the displayed track information
	// (title, artist, album).
	SetTrackInfo(track domain.MusicTrack)

	// SetPlayState updates the play/pause button state.
	// playing: true if currently playing, false if paused/stopped
	SetPlayState(playing bool)

	// SetProgress updates the playback progress display.
	// current: Current position in seconds
	// total: Total duration in seconds
	SetProgress(current, total float64)

	// SetVolume updates the volume slider and display.
	// volume: Volume level (0.0 to 1.0)
	SetVolume(volume float64)

	// Scene state methods

	// SetPaletteName highlights the active palette in the selector.
	SetPaletteName(name string)

	// SetVariantName highlights the active variant in the selector.
	SetVariantName(name string)

	// Bake progress methods

	// ShowBakeProgress displays morph bake progress.
	// Called repeatedly while a bake advances.
	ShowBakeProgress(progress domain.BakeProgress)

	// HideBakeProgress removes the bake progress indicator.
	HideBakeProgress()

	// Notification methods

	// ShowNotification displays a temporary notification to the user.
	// title: Notification title
	// message: Notification message
	ShowNotification(title, message string)

	// ShowError displays an error dialog to the user.
	// title: Error dialog title
	// message: Error message
	ShowError(title, message string)

	// Lifecycle methods

	// Run starts the UI event loop.
	// This is a blocking call that runs until the application quits.
	//
	// Returns an error if the UI fails to start.
	Run() error

	// Quit closes the application.
	// This should trigger cleanup and shutdown of all services.
	Quit()

	// Free releases UI resources.
	// Called during application shutdown.
	Free()
}

// UIFactory is a function that creates a UI instance.
// This allows for dependency injection of different UI implementations.
type UIFactory func() (UI, error)
