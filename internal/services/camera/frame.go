package camera

import "gocv.io/x/gocv"

// Frame is one decoded video frame. Whoever holds it closes it.
type Frame struct {
	mat gocv.Mat
}

// NewFrame wraps mat. The frame takes ownership of it.
func NewFrame(mat gocv.Mat) *Frame {
	return &Frame{mat: mat}
}

// Mat returns the pixels in BGR order.
func (f *Frame) Mat() gocv.Mat {
	return f.mat
}

func (f *Frame) Width() int {
	return f.mat.Cols()
}

func (f *Frame) Height() int {
	return f.mat.Rows()
}

func (f *Frame) Close() error {
	return f.mat.Close()
}
