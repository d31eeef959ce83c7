package render

import (
	"image/color"
	"strings"
	"testing"

	"detectserver/internal/detection"
)

type drawCall struct {
	op   string
	text string
	rect Rect
}

// recordingCanvas records draw calls in order.
type recordingCanvas struct {
	calls []drawCall
}

func (c *recordingCanvas) Size() (int, int) { return 640, 480 }
func (c *recordingCanvas) Clear()           { c.calls = append(c.calls, drawCall{op: "clear"}) }
func (c *recordingCanvas) StrokeRect(r Rect, _ color.RGBA, _ int) {
	c.calls = append(c.calls, drawCall{op: "stroke", rect: r})
}
func (c *recordingCanvas) FillRect(r Rect, _ color.RGBA) {
	c.calls = append(c.calls, drawCall{op: "fill", rect: r})
}
func (c *recordingCanvas) FillText(text string, x, y float64, _ color.RGBA) {
	c.calls = append(c.calls, drawCall{op: "text", text: text, rect: Rect{X: x, Y: y}})
}
func (c *recordingCanvas) MeasureText(text string) (float64, float64) {
	return float64(len(text) * 8), 16
}

func overlapping() []detection.Detection {
	return []detection.Detection{
		{ClassID: 1, Label: "person", Labeled: true, Score: 0.91, Box: detection.BoundingBox{X: 10, Y: 10, Width: 200, Height: 300}},
		{ClassID: 18, Label: "dog", Labeled: true, Score: 0.8, Box: detection.BoundingBox{X: 50, Y: 20, Width: 100, Height: 100}},
		{ClassID: 77, Score: 0.75, Box: detection.BoundingBox{X: 60, Y: 30, Width: 40, Height: 40}},
	}
}

func TestRender_TwoPassOrdering(t *testing.T) {
	canvas := &recordingCanvas{}
	NewRenderer().Render(canvas, overlapping())

	if len(canvas.calls) == 0 || canvas.calls[0].op != "clear" {
		t.Fatal("canvas must be cleared before drawing")
	}

	firstText := -1
	lastShape := -1
	for i, call := range canvas.calls {
		switch call.op {
		case "text":
			if firstText == -1 {
				firstText = i
			}
		case "stroke", "fill":
			lastShape = i
		}
	}

	if firstText == -1 {
		t.Fatal("no label text drawn")
	}
	if lastShape > firstText {
		t.Errorf("shape drawn at %d after first text at %d: %+v", lastShape, firstText, canvas.calls)
	}
}

func TestRender_CallCounts(t *testing.T) {
	canvas := &recordingCanvas{}
	dets := overlapping()
	NewRenderer().Render(canvas, dets)

	counts := map[string]int{}
	for _, call := range canvas.calls {
		counts[call.op]++
	}

	if counts["clear"] != 1 || counts["stroke"] != len(dets) || counts["fill"] != len(dets) || counts["text"] != len(dets) {
		t.Errorf("unexpected call counts %v", counts)
	}
}

func TestRender_LabelBackgroundSize(t *testing.T) {
	canvas := &recordingCanvas{}
	d := overlapping()[:1]
	NewRenderer().Render(canvas, d)

	caption := d[0].Caption()
	for _, call := range canvas.calls {
		if call.op != "fill" {
			continue
		}
		expected := Rect{X: 10, Y: 10, Width: float64(len(caption)*8) + 4, Height: 20}
		if call.rect != expected {
			t.Errorf("label background = %+v, expected %+v", call.rect, expected)
		}
	}
}

func TestRender_MissingLabelText(t *testing.T) {
	canvas := &recordingCanvas{}
	NewRenderer().Render(canvas, overlapping())

	last := canvas.calls[len(canvas.calls)-1]
	if last.op != "text" || !strings.HasPrefix(last.text, detection.MissingLabel) {
		t.Errorf("expected text for unlabeled detection, got %+v", last)
	}
}

func TestRender_EmptyClearsOnly(t *testing.T) {
	canvas := &recordingCanvas{}
	NewRenderer().Render(canvas, nil)

	if len(canvas.calls) != 1 || canvas.calls[0].op != "clear" {
		t.Errorf("expected a single clear, got %+v", canvas.calls)
	}
}
