package ai

import (
	"errors"
	"image"

	"gocv.io/x/gocv"
)

// PreprocessParams describe how a frame becomes the network input.
type PreprocessParams struct {
	Size   int     // bok kwadratu wejsciowego, 0 = rozmiar klatki
	Scale  float64 // mnoznik wartosci pikseli
	Mean   float64 // odejmowane od kazdego kanalu przed skalowaniem
	SwapRB bool    // klatki z kamery sa BGR, model oczekuje RGB
}

// DefaultPreprocessParams keeps integer pixel values in RGB order.
func DefaultPreprocessParams() PreprocessParams {
	return PreprocessParams{Size: 300, Scale: 1, Mean: 0, SwapRB: true}
}

// ToTensor converts a frame into a 4-D NCHW blob with batch size 1.
// The frame itself is not modified. The caller closes the blob.
func ToTensor(frame gocv.Mat, p PreprocessParams) (gocv.Mat, error) {
	if frame.Empty() {
		return gocv.NewMat(), errors.New("empty frame")
	}

	size := image.Pt(frame.Cols(), frame.Rows())
	if p.Size > 0 {
		size = image.Pt(p.Size, p.Size)
	}
	scale := p.Scale
	if scale == 0 {
		scale = 1
	}

	mean := gocv.NewScalar(p.Mean, p.Mean, p.Mean, 0)
	blob := gocv.BlobFromImage(frame, scale, size, mean, p.SwapRB, false)
	if blob.Empty() {
		return blob, errors.New("failed to build input blob")
	}
	return blob, nil
}
