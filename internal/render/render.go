package render

import (
	"image/color"

	"detectserver/internal/detection"
)

var (
	// Cyan is used for box outlines and label backgrounds.
	Cyan = color.RGBA{R: 0, G: 255, B: 255, A: 255}
	// Black is used for label text.
	Black = color.RGBA{R: 0, G: 0, B: 0, A: 255}
)

// Rect is a rectangle in canvas pixels.
type Rect struct {
	X, Y, Width, Height float64
}

// Canvas is a 2D drawing surface. Text is positioned by its top-left corner.
type Canvas interface {
	Size() (width, height int)
	Clear()
	StrokeRect(r Rect, clr color.RGBA, lineWidth int)
	FillRect(r Rect, clr color.RGBA)
	FillText(text string, x, y float64, clr color.RGBA)
	MeasureText(text string) (width, height float64)
}

// Renderer draws detections on a canvas.
type Renderer struct {
	BoxColor  color.RGBA
	TextColor color.RGBA
	LineWidth int
	// LabelPad is added to the measured text size for the label background.
	LabelPad float64
}

// NewRenderer returns a Renderer with the default overlay style.
func NewRenderer() *Renderer {
	return &Renderer{
		BoxColor:  Cyan,
		TextColor: Black,
		LineWidth: 2,
		LabelPad:  4,
	}
}

// Render clears the canvas and draws every detection. All boxes and label
// backgrounds are drawn before any text so a later box never covers an
// earlier label.
func (r *Renderer) Render(canvas Canvas, detections []detection.Detection) {
	canvas.Clear()

	for _, d := range detections {
		box := Rect{X: d.Box.X, Y: d.Box.Y, Width: d.Box.Width, Height: d.Box.Height}
		canvas.StrokeRect(box, r.BoxColor, r.LineWidth)

		textWidth, textHeight := canvas.MeasureText(d.Caption())
		canvas.FillRect(Rect{
			X:      d.Box.X,
			Y:      d.Box.Y,
			Width:  textWidth + r.LabelPad,
			Height: textHeight + r.LabelPad,
		}, r.BoxColor)
	}

	for _, d := range detections {
		canvas.FillText(d.Caption(), d.Box.X, d.Box.Y, r.TextColor)
	}
}
