package detection

import (
	"math"
	"reflect"
	"strings"
	"testing"
)

var cocoSubset = NewLabelTable(map[int]string{1: "person", 3: "car", 18: "dog"})

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-3
}

func TestBuild_ThresholdIsStrict(t *testing.T) {
	raw := RawPrediction{
		Boxes:    [][4]float32{{0, 0, 1, 1}, {0, 0, 1, 1}, {0, 0, 1, 1}},
		Scores:   []float32{0.5, 0.75, 0.25},
		ClassIDs: []int{1, 3, 18},
	}

	dets := Build(raw, Params{Threshold: 0.5, Viewport: Viewport{Width: 100, Height: 100}, Labels: cocoSubset})

	if len(dets) != 1 {
		t.Fatalf("expected 1 detection, got %d", len(dets))
	}
	if dets[0].ClassID != 3 || dets[0].Label != "car" {
		t.Errorf("unexpected detection %+v", dets[0])
	}
}

func TestBuild_ScoresAboveThreshold(t *testing.T) {
	tests := []struct {
		score     float32
		threshold float64
		included  bool
	}{
		{0.71, 0.7, true},
		{0.7, 0.7, false}, // float32(0.7) widens to just under 0.7
		{0.75, 0.75, false},
		{1, 0.7, true},
		{0.1, 0.7, false},
		{0.01, 0, true},
		{0, 0, false},
	}

	for _, tt := range tests {
		raw := RawPrediction{
			Boxes:    [][4]float32{{0.1, 0.1, 0.2, 0.2}},
			Scores:   []float32{tt.score},
			ClassIDs: []int{1},
		}
		dets := Build(raw, Params{Threshold: tt.threshold, Viewport: Viewport{Width: 10, Height: 10}})
		if got := len(dets) == 1; got != tt.included {
			t.Errorf("score %v threshold %v: included = %v, expected %v", tt.score, tt.threshold, got, tt.included)
		}
		for _, d := range dets {
			if !(d.Score > tt.threshold) {
				t.Errorf("detection score %v not above threshold %v", d.Score, tt.threshold)
			}
		}
	}
}

func TestBuild_CoordinateTransform(t *testing.T) {
	tests := []struct {
		name     string
		box      [4]float32
		expected BoundingBox
	}{
		{"quarter", [4]float32{0.1, 0.2, 0.4, 0.6}, BoundingBox{X: 128, Y: 48, Width: 256, Height: 144}},
		{"half height", [4]float32{0.1, 0.2, 0.5, 0.6}, BoundingBox{X: 128, Y: 48, Width: 256, Height: 192}},
		{"full frame", [4]float32{0, 0, 1, 1}, BoundingBox{X: 0, Y: 0, Width: 640, Height: 480}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := RawPrediction{Boxes: [][4]float32{tt.box}, Scores: []float32{0.9}, ClassIDs: []int{1}}
			dets := Build(raw, Params{Threshold: 0.7, Viewport: Viewport{Width: 640, Height: 480}, Labels: cocoSubset})
			if len(dets) != 1 {
				t.Fatalf("expected 1 detection, got %d", len(dets))
			}
			got := dets[0].Box
			if !approx(got.X, tt.expected.X) || !approx(got.Y, tt.expected.Y) ||
				!approx(got.Width, tt.expected.Width) || !approx(got.Height, tt.expected.Height) {
				t.Errorf("box = %+v, expected %+v", got, tt.expected)
			}
		})
	}
}

func TestBuild_WidthFromCorners(t *testing.T) {
	box := [4]float32{0.13, 0.27, 0.91, 0.73}
	raw := RawPrediction{Boxes: [][4]float32{box}, Scores: []float32{0.8}, ClassIDs: []int{1}}
	vp := Viewport{Width: 333.3, Height: 251.7}

	dets := Build(raw, Params{Threshold: 0.7, Viewport: vp})

	minX := float64(box[1]) * vp.Width
	maxX := float64(box[3]) * vp.Width
	minY := float64(box[0]) * vp.Height
	maxY := float64(box[2]) * vp.Height

	if dets[0].Box.Width != maxX-minX {
		t.Errorf("width = %v, expected exactly %v", dets[0].Box.Width, maxX-minX)
	}
	if dets[0].Box.Height != maxY-minY {
		t.Errorf("height = %v, expected exactly %v", dets[0].Box.Height, maxY-minY)
	}
}

func TestBuild_BoxesStayInsideViewport(t *testing.T) {
	raw := RawPrediction{
		Boxes:    [][4]float32{{-0.2, -0.1, 1.3, 1.05}},
		Scores:   []float32{0.99},
		ClassIDs: []int{18},
	}
	vp := Viewport{Width: 320, Height: 240}

	d := Build(raw, Params{Threshold: 0.7, Viewport: vp})[0]

	if d.Box.X < 0 || d.Box.Y < 0 || d.Box.X+d.Box.Width > vp.Width || d.Box.Y+d.Box.Height > vp.Height {
		t.Errorf("box %+v escapes viewport %+v", d.Box, vp)
	}
}

func TestBuild_OrderAndIdempotence(t *testing.T) {
	raw := RawPrediction{
		Boxes:    [][4]float32{{0, 0, 0.5, 0.5}, {0.5, 0.5, 1, 1}, {0.2, 0.2, 0.3, 0.3}, {0.1, 0.1, 0.9, 0.9}},
		Scores:   []float32{0.8, 0.95, 0.8, 0.2},
		ClassIDs: []int{3, 1, 18, 1},
	}
	params := Params{Threshold: 0.7, Viewport: Viewport{Width: 640, Height: 480}, Labels: cocoSubset}

	first := Build(raw, params)
	second := Build(raw, params)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("Build is not deterministic:\n%+v\n%+v", first, second)
	}

	var ids []int
	for _, d := range first {
		ids = append(ids, d.ClassID)
	}
	if !reflect.DeepEqual(ids, []int{3, 1, 18}) {
		t.Errorf("expected source order [3 1 18], got %v", ids)
	}
}

func TestBuild_LabelMissIsPropagated(t *testing.T) {
	raw := RawPrediction{
		Boxes:    [][4]float32{{0, 0, 1, 1}},
		Scores:   []float32{0.9},
		ClassIDs: []int{77},
	}

	d := Build(raw, Params{Threshold: 0.7, Viewport: Viewport{Width: 10, Height: 10}, Labels: cocoSubset})[0]

	if d.Labeled || d.Label != "" {
		t.Errorf("expected absent label, got %+v", d)
	}
	if !strings.HasPrefix(d.Caption(), MissingLabel+" ") {
		t.Errorf("caption = %q, expected %q prefix", d.Caption(), MissingLabel)
	}
}

func TestBuild_MismatchedLengths(t *testing.T) {
	raw := RawPrediction{
		Boxes:    [][4]float32{{0, 0, 1, 1}},
		Scores:   []float32{0.9, 0.9},
		ClassIDs: []int{1, 1, 1},
	}

	if got := len(Build(raw, Params{Threshold: 0.5, Viewport: Viewport{Width: 1, Height: 1}})); got != 1 {
		t.Errorf("expected 1 detection from truncated prediction, got %d", got)
	}
}

func TestDetection_Caption(t *testing.T) {
	d := Detection{Label: "person", Labeled: true, Score: 0.87123}
	if got := d.Caption(); got != "person 87.12%" {
		t.Errorf("Caption() = %q", got)
	}
}
