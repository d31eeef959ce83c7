package ai

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"detectserver/internal/detection"
	"detectserver/internal/logger"
	"detectserver/internal/services/camera"
	"detectserver/internal/tensor"

	"gocv.io/x/gocv"
)

// ErrModelNotLoaded is returned by Infer until a model has been set.
var ErrModelNotLoaded = errors.New("model not loaded")

// SSD DetectionOutput: [imageId, classId, score, x1, y1, x2, y2]
const detectionRowSize = 7

// forwarder runs the network on a blob. *Model implements it.
type forwarder interface {
	Forward(blob gocv.Mat) (gocv.Mat, error)
}

// Invoker runs a model on camera frames. The model may be swapped at any time.
type Invoker struct {
	model    atomic.Pointer[Model]
	params   PreprocessParams
	logger   *logger.Logger
	newScope func() *tensor.Scope
}

// NewInvoker returns an invoker without a model.
func NewInvoker(params PreprocessParams, logger *logger.Logger) *Invoker {
	return &Invoker{params: params, logger: logger, newScope: tensor.NewScope}
}

// SetModel installs m and returns the previous model, which the caller closes.
func (i *Invoker) SetModel(m *Model) *Model {
	return i.model.Swap(m)
}

// Model returns the current model or nil.
func (i *Invoker) Model() *Model {
	return i.model.Load()
}

// Infer runs the model on a camera frame.
func (i *Invoker) Infer(ctx context.Context, frame *camera.Frame) (detection.RawPrediction, error) {
	return i.InferMat(ctx, frame.Mat())
}

type inferResult struct {
	raw detection.RawPrediction
	err error
}

// InferMat runs the model on mat. Every buffer allocated on the way is freed
// before the result is delivered. If ctx ends first InferMat returns at once
// and the forward pass cleans up after itself.
func (i *Invoker) InferMat(ctx context.Context, mat gocv.Mat) (detection.RawPrediction, error) {
	model := i.model.Load()
	if model == nil {
		return detection.RawPrediction{}, ErrModelNotLoaded
	}
	return i.infer(ctx, model, mat)
}

func (i *Invoker) infer(ctx context.Context, net forwarder, mat gocv.Mat) (detection.RawPrediction, error) {
	if mat.Empty() {
		return detection.RawPrediction{}, errors.New("empty frame")
	}

	// kopia, bo wywolujacy moze zamknac klatke zanim skonczy sie Forward
	input := mat.Clone()
	done := make(chan inferResult, 1)

	go func() {
		done <- i.forward(net, input)
	}()

	select {
	case res := <-done:
		return res.raw, res.err
	case <-ctx.Done():
		return detection.RawPrediction{}, ctx.Err()
	}
}

// forward owns input and releases it together with every intermediate buffer
// before returning. A panic inside OpenCV becomes an error.
func (i *Invoker) forward(net forwarder, input gocv.Mat) (res inferResult) {
	scope := i.newScope()
	scope.Track(&input)

	defer func() {
		if r := recover(); r != nil {
			res = inferResult{err: fmt.Errorf("panic: %v", r)}
		}
		if err := scope.Close(); err != nil {
			i.logger.Warning("Failed to release inference buffers: %v", err)
		}
	}()

	raw, err := i.run(scope, net, input)
	return inferResult{raw: raw, err: err}
}

func (i *Invoker) run(scope *tensor.Scope, net forwarder, input gocv.Mat) (detection.RawPrediction, error) {
	blob, err := ToTensor(input, i.params)
	scope.Track(&blob)
	if err != nil {
		return detection.RawPrediction{}, fmt.Errorf("preprocess: %w", err)
	}

	out, err := net.Forward(blob)
	scope.Track(&out)
	if err != nil {
		return detection.RawPrediction{}, fmt.Errorf("forward: %w", err)
	}

	return Decode(scope, out)
}

// Decode converts SSD output rows into plain slices. Boxes are returned as
// normalized [y1, x1, y2, x2]. Intermediate Mats are tracked by scope.
func Decode(scope *tensor.Scope, out gocv.Mat) (detection.RawPrediction, error) {
	total := out.Total()
	if total%detectionRowSize != 0 {
		return detection.RawPrediction{}, fmt.Errorf("unexpected output size %d", total)
	}
	rows := total / detectionRowSize
	if rows == 0 {
		return detection.RawPrediction{}, nil
	}

	table := out.Reshape(1, rows)
	scope.Track(&table)

	raw := detection.RawPrediction{
		Boxes:    make([][4]float32, 0, rows),
		Scores:   make([]float32, 0, rows),
		ClassIDs: make([]int, 0, rows),
	}
	for r := 0; r < rows; r++ {
		classID := int(table.GetFloatAt(r, 1))
		if classID < 0 {
			// wiersz wypelniajacy
			continue
		}
		x1 := table.GetFloatAt(r, 3)
		y1 := table.GetFloatAt(r, 4)
		x2 := table.GetFloatAt(r, 5)
		y2 := table.GetFloatAt(r, 6)

		raw.Boxes = append(raw.Boxes, [4]float32{y1, x1, y2, x2})
		raw.Scores = append(raw.Scores, table.GetFloatAt(r, 2))
		raw.ClassIDs = append(raw.ClassIDs, classID)
	}
	return raw, nil
}
