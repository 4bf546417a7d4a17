package fyne

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
)

// FileDialog is a helper for creating audio file open dialogs.
type FileDialog struct {
	window   fyne.Window
	callback func(string)
}

// NewFileDialog creates a new file dialog.
// The callback receives the chosen file path; it is not called on cancel.
func NewFileDialog(window fyne.Window, callback func(string)) *FileDialog {
	return &FileDialog{
		window:   window,
		callback: callback,
	}
}

// Show displays the file dialog, filtered to supported audio files.
func (d *FileDialog) Show() {
	fileOpen := dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil {
			dialog.ShowError(err, d.window)
			return
		}
		if reader == nil {
			return // User cancelled
		}
		defer reader.Close()

		// Get file path
		filePath := reader.URI().Path()
		if d.callback != nil {
			d.callback(filePath)
		}
	}, d.window)

	fileOpen.SetFilter(storage.NewExtensionFileFilter([]string{".mp3"}))
	fileOpen.Show()
}
