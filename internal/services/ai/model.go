package ai

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"gocv.io/x/gocv"
)

// ModelOptions wskazuje pliki modelu i preferowany backend OpenCV DNN.
type ModelOptions struct {
	Path       string // zamrozony graf (.pb)
	ConfigPath string // opis grafu (.pbtxt), moze byc pusty
	Backend    string // default, opencv, openvino, cuda, ...
	Target     string // cpu, fp16, cuda, ...
}

// ModelLoadError is returned when the model asset is missing or malformed.
type ModelLoadError struct {
	Path  string
	Cause error
}

func (e *ModelLoadError) Error() string {
	return fmt.Sprintf("failed to load model %s: %v", e.Path, e.Cause)
}

func (e *ModelLoadError) Unwrap() error {
	return e.Cause
}

var errModelClosed = errors.New("model closed")

// Model is a loaded detection network. Forward passes are serialised.
type Model struct {
	net    gocv.Net
	path   string
	mu     sync.Mutex
	closed bool
}

// LoadModel reads the network from disk. There are no retries.
func LoadModel(opts ModelOptions) (*Model, error) {
	if _, err := os.Stat(opts.Path); err != nil {
		return nil, &ModelLoadError{Path: opts.Path, Cause: err}
	}
	if opts.ConfigPath != "" {
		if _, err := os.Stat(opts.ConfigPath); err != nil {
			return nil, &ModelLoadError{Path: opts.ConfigPath, Cause: err}
		}
	}

	net := gocv.ReadNet(opts.Path, opts.ConfigPath)
	if net.Empty() {
		net.Close()
		return nil, &ModelLoadError{Path: opts.Path, Cause: errors.New("network is empty")}
	}

	if err := net.SetPreferableBackend(gocv.ParseNetBackend(opts.Backend)); err != nil {
		net.Close()
		return nil, &ModelLoadError{Path: opts.Path, Cause: fmt.Errorf("set backend %q: %w", opts.Backend, err)}
	}
	if err := net.SetPreferableTarget(gocv.ParseNetTarget(opts.Target)); err != nil {
		net.Close()
		return nil, &ModelLoadError{Path: opts.Path, Cause: fmt.Errorf("set target %q: %w", opts.Target, err)}
	}

	return &Model{net: net, path: opts.Path}, nil
}

// Path returns the file the model was loaded from.
func (m *Model) Path() string {
	return m.path
}

// Forward runs the network on blob. The caller closes the returned Mat.
func (m *Model) Forward(blob gocv.Mat) (gocv.Mat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return gocv.NewMat(), errModelClosed
	}

	m.net.SetInput(blob, "")
	out := m.net.Forward("")
	if out.Empty() {
		return out, errors.New("network returned an empty output")
	}
	return out, nil
}

// Close releases the network. It waits for a running forward pass.
func (m *Model) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true
	return m.net.Close()
}
