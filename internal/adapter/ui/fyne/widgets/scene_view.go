// Package widgets provides custom Fyne widgets for the Aurora application.
package widgets

import (
	"image"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/widget"
)

// dragSpinScale converts horizontal drag pixels to orbit velocity.
const dragSpinScale = 0.012

// FrameSource produces the pixels for one widget-sized frame.
type FrameSource func(w, h int) image.Image

// SceneView is the raster widget hosting the rendered 3D scene.
// It owns no scene state: every repaint pulls a fresh frame from the source,
// and pointer drags are forwarded as spin velocity.
type SceneView struct {
	widget.BaseWidget

	raster *canvas.Raster
	source FrameSource
	onDrag func(velocity float64)
}

// NewSceneView creates a scene view backed by the given frame source.
// onDrag receives spin velocity for horizontal pointer drags; it may be nil.
func NewSceneView(source FrameSource, onDrag func(velocity float64)) *SceneView {
	v := &SceneView{
		source: source,
		onDrag: onDrag,
	}

	v.raster = canvas.NewRaster(v.draw)
	v.ExtendBaseWidget(v)

	return v
}

// CreateRenderer implements fyne.Widget.
func (v *SceneView) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(v.raster)
}

// MinSize keeps the scene from collapsing below a usable viewport.
func (v *SceneView) MinSize() fyne.Size {
	return fyne.NewSize(320, 240)
}

// Redraw requests a repaint. Call it once per scene tick from the UI thread.
func (v *SceneView) Redraw() {
	v.raster.Refresh()
}

// draw is the raster generator function that renders the scene.
func (v *SceneView) draw(w, h int) image.Image {
	if v.source == nil || w <= 0 || h <= 0 {
		return image.NewRGBA(image.Rect(0, 0, max(w, 1), max(h, 1)))
	}
	return v.source(w, h)
}

// Dragged implements fyne.Draggable. Horizontal swipes spin the camera.
func (v *SceneView) Dragged(e *fyne.DragEvent) {
	if v.onDrag != nil {
		v.onDrag(float64(e.Dragged.DX) * dragSpinScale)
	}
}

// DragEnd implements fyne.Draggable. The orbit keeps its momentum and
// decays on its own, so there is nothing to release.
func (v *SceneView) DragEnd() {}

// Ensure SceneView implements the required interfaces
var _ fyne.Widget = (*SceneView)(nil)
var _ fyne.Draggable = (*SceneView)(nil)
