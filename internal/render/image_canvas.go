package render

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// ImageCanvas draws on a transparent RGBA image, the overlay layer that sits
// on top of the video.
type ImageCanvas struct {
	img  *image.RGBA
	face font.Face
}

// NewImageCanvas returns a transparent canvas of the given size.
func NewImageCanvas(width, height int) *ImageCanvas {
	return &ImageCanvas{
		img:  image.NewRGBA(image.Rect(0, 0, width, height)),
		face: basicfont.Face7x13,
	}
}

// Image returns the backing image.
func (c *ImageCanvas) Image() *image.RGBA {
	return c.img
}

func (c *ImageCanvas) Size() (int, int) {
	b := c.img.Bounds()
	return b.Dx(), b.Dy()
}

func (c *ImageCanvas) Clear() {
	draw.Draw(c.img, c.img.Bounds(), image.Transparent, image.Point{}, draw.Src)
}

func (c *ImageCanvas) StrokeRect(r Rect, clr color.RGBA, lineWidth int) {
	if lineWidth < 1 {
		lineWidth = 1
	}
	outer := toImageRect(r)
	lw := lineWidth

	fill := func(rect image.Rectangle) {
		draw.Draw(c.img, rect.Intersect(c.img.Bounds()), image.NewUniform(clr), image.Point{}, draw.Over)
	}

	fill(image.Rect(outer.Min.X, outer.Min.Y, outer.Max.X, outer.Min.Y+lw))
	fill(image.Rect(outer.Min.X, outer.Max.Y-lw, outer.Max.X, outer.Max.Y))
	fill(image.Rect(outer.Min.X, outer.Min.Y, outer.Min.X+lw, outer.Max.Y))
	fill(image.Rect(outer.Max.X-lw, outer.Min.Y, outer.Max.X, outer.Max.Y))
}

func (c *ImageCanvas) FillRect(r Rect, clr color.RGBA) {
	rect := toImageRect(r).Intersect(c.img.Bounds())
	draw.Draw(c.img, rect, image.NewUniform(clr), image.Point{}, draw.Over)
}

func (c *ImageCanvas) FillText(text string, x, y float64, clr color.RGBA) {
	ascent := c.face.Metrics().Ascent
	d := &font.Drawer{
		Dst:  c.img,
		Src:  image.NewUniform(clr),
		Face: c.face,
		Dot:  fixed.Point26_6{X: fixed.I(int(math.Round(x))), Y: fixed.I(int(math.Round(y))) + ascent},
	}
	d.DrawString(text)
}

func (c *ImageCanvas) MeasureText(text string) (float64, float64) {
	width := font.MeasureString(c.face, text)
	height := c.face.Metrics().Height
	return float64(width.Ceil()), float64(height.Ceil())
}

func toImageRect(r Rect) image.Rectangle {
	return image.Rect(
		int(math.Round(r.X)),
		int(math.Round(r.Y)),
		int(math.Round(r.X+r.Width)),
		int(math.Round(r.Y+r.Height)),
	)
}
