package detection

import (
	"fmt"
	"math"
)

// MissingLabel is printed for a detection whose class ID is not in the label table.
const MissingLabel = "undefined"

// BoundingBox is a box in the pixel space of the display surface.
type BoundingBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Detection is one recognized object instance in a single frame.
type Detection struct {
	ClassID int         `json:"class_id"`
	Label   string      `json:"label,omitempty"`
	Labeled bool        `json:"labeled"`
	Score   float64     `json:"score"`
	Box     BoundingBox `json:"bbox"`
}

// Caption is the text drawn next to the box, eg. "person 87.12%".
func (d Detection) Caption() string {
	label := d.Label
	if !d.Labeled {
		label = MissingLabel
	}
	rounded := math.Round(d.Score*10000) / 10000
	return fmt.Sprintf("%s %.2f%%", label, 100*rounded)
}

// RawPrediction is the decoded output of one inference call. Boxes hold
// normalized corners in (y1, x1, y2, x2) order.
type RawPrediction struct {
	Boxes    [][4]float32
	Scores   []float32
	ClassIDs []int
}

// Len returns the number of candidate detections in the prediction.
func (r RawPrediction) Len() int {
	n := len(r.Scores)
	if len(r.Boxes) < n {
		n = len(r.Boxes)
	}
	if len(r.ClassIDs) < n {
		n = len(r.ClassIDs)
	}
	return n
}

// Params is the per-session state the builder needs.
type Params struct {
	Threshold float64
	Viewport  Viewport
	Labels    LabelTable
}

// Build filters raw by score and converts the survivors into detections in
// viewport pixel space. Output keeps the index order of raw.
func Build(raw RawPrediction, params Params) []Detection {
	n := raw.Len()
	detections := make([]Detection, 0, n)

	width := params.Viewport.Width
	height := params.Viewport.Height

	for i := 0; i < n; i++ {
		score := float64(raw.Scores[i])
		if !(score > params.Threshold) {
			continue
		}

		box := raw.Boxes[i]
		minY := clampUnit(box[0]) * height
		minX := clampUnit(box[1]) * width
		maxY := clampUnit(box[2]) * height
		maxX := clampUnit(box[3]) * width

		classID := raw.ClassIDs[i]
		label, ok := params.Labels.Lookup(classID)

		detections = append(detections, Detection{
			ClassID: classID,
			Label:   label,
			Labeled: ok,
			Score:   score,
			Box: BoundingBox{
				X:      minX,
				Y:      minY,
				Width:  maxX - minX,
				Height: maxY - minY,
			},
		})
	}

	return detections
}

// clampUnit restricts a normalized coordinate to [0, 1].
func clampUnit(v float32) float64 {
	f := float64(v)
	if f < 0 || math.IsNaN(f) {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
