package ai

import (
	"image"
	"image/color"
	"math"

	"detectserver/internal/render"

	"gocv.io/x/gocv"
)

// MatCanvas draws the overlay straight onto a copy of a video frame.
// Clear restores the original frame.
type MatCanvas struct {
	base      gocv.Mat
	mat       gocv.Mat
	font      gocv.HersheyFont
	fontScale float64
	thickness int
	err       error
}

// NewMatCanvas copies frame. The caller closes the canvas.
func NewMatCanvas(frame gocv.Mat) *MatCanvas {
	return &MatCanvas{
		base:      frame.Clone(),
		mat:       frame.Clone(),
		font:      gocv.FontHersheySimplex,
		fontScale: 0.5,
		thickness: 1,
	}
}

// Mat returns the drawn frame. It stays owned by the canvas.
func (c *MatCanvas) Mat() gocv.Mat {
	return c.mat
}

// Err returns the first drawing error.
func (c *MatCanvas) Err() error {
	return c.err
}

func (c *MatCanvas) Close() error {
	c.base.Close()
	return c.mat.Close()
}

func (c *MatCanvas) Size() (int, int) {
	return c.mat.Cols(), c.mat.Rows()
}

func (c *MatCanvas) Clear() {
	c.base.CopyTo(&c.mat)
}

func (c *MatCanvas) StrokeRect(r render.Rect, clr color.RGBA, lineWidth int) {
	c.keep(gocv.Rectangle(&c.mat, toRectangle(r), clr, lineWidth))
}

func (c *MatCanvas) FillRect(r render.Rect, clr color.RGBA) {
	c.keep(gocv.Rectangle(&c.mat, toRectangle(r), clr, -1))
}

// FillText treats y as the top of the text, like a canvas with a top baseline.
func (c *MatCanvas) FillText(text string, x, y float64, clr color.RGBA) {
	size := gocv.GetTextSize(text, c.font, c.fontScale, c.thickness)
	org := image.Pt(int(math.Round(x)), int(math.Round(y))+size.Y)
	c.keep(gocv.PutText(&c.mat, text, org, c.font, c.fontScale, clr, c.thickness))
}

func (c *MatCanvas) MeasureText(text string) (float64, float64) {
	size := gocv.GetTextSize(text, c.font, c.fontScale, c.thickness)
	return float64(size.X), float64(size.Y)
}

func (c *MatCanvas) keep(err error) {
	if err != nil && c.err == nil {
		c.err = err
	}
}

func toRectangle(r render.Rect) image.Rectangle {
	return image.Rect(
		int(math.Round(r.X)),
		int(math.Round(r.Y)),
		int(math.Round(r.X+r.Width)),
		int(math.Round(r.Y+r.Height)),
	)
}
