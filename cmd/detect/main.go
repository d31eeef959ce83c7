package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"detectserver/internal/config"
	"detectserver/internal/detection"
	"detectserver/internal/logger"
	"detectserver/internal/render"
	"detectserver/internal/services"
	"detectserver/internal/services/ai"

	"gocv.io/x/gocv"
)

// detect runs the detection pipeline once on an image file and writes the
// annotated JPEG next to it.
func main() {
	cfg := config.Load()

	imagePath := flag.String("image", "", "Image to run detection on")
	outPath := flag.String("out", "", "Output JPEG (default: <image>_detections.jpg)")
	modelPath := flag.String("model", cfg.ModelPath, "Frozen graph")
	modelConfig := flag.String("config", cfg.ModelConfigPath, "Graph description (.pbtxt)")
	labelsPath := flag.String("labels", cfg.LabelsPath, "Labels file")
	threshold := flag.Float64("threshold", cfg.Threshold, "Minimum score (strict)")
	width := flag.Int("width", cfg.DisplayWidth, "Display width, 0 = image width")
	height := flag.Int("height", cfg.DisplayHeight, "Display height, 0 = image height")
	flag.Parse()

	if *imagePath == "" {
		flag.Usage()
		os.Exit(2)
	}
	if *outPath == "" {
		ext := filepath.Ext(*imagePath)
		*outPath = (*imagePath)[:len(*imagePath)-len(ext)] + "_detections.jpg"
	}

	level, _ := logger.ParseLevel(cfg.LogLevel)
	l, err := logger.New(cfg.LogDirectory, level)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer l.Close()

	labels, err := detection.LoadLabels(*labelsPath)
	if err != nil {
		l.Warning("Labels not loaded, every detection will be undefined: %v", err)
	}

	model, err := ai.LoadModel(ai.ModelOptions{
		Path:       *modelPath,
		ConfigPath: *modelConfig,
		Backend:    cfg.ModelBackend,
		Target:     cfg.ModelTarget,
	})
	if err != nil {
		log.Fatalf("Failed to load model: %v", err)
	}
	defer model.Close()

	img := gocv.IMRead(*imagePath, gocv.IMReadColor)
	if img.Empty() {
		log.Fatalf("Failed to read image %s", *imagePath)
	}
	defer img.Close()

	invoker := ai.NewInvoker(ai.PreprocessParams{
		Size:   cfg.InputSize,
		Scale:  cfg.InputScale,
		Mean:   cfg.InputMean,
		SwapRB: true,
	}, l)
	invoker.SetModel(model)

	start := time.Now()
	raw, err := invoker.InferMat(context.Background(), img)
	if err != nil {
		log.Fatalf("Inference failed: %v", err)
	}
	elapsed := time.Since(start)

	viewport := detection.Letterbox(img.Cols(), img.Rows(), *width, *height)
	detections := detection.Build(raw, detection.Params{
		Threshold: *threshold,
		Viewport:  viewport,
		Labels:    labels,
	})

	jpeg, err := services.Annotate(render.NewRenderer(), img, viewport, detections)
	if err != nil {
		log.Fatalf("Failed to draw detections: %v", err)
	}
	if err := os.WriteFile(*outPath, jpeg, 0644); err != nil {
		log.Fatalf("Failed to write %s: %v", *outPath, err)
	}

	fmt.Printf("%d detections in %v (%d candidates)\n", len(detections), elapsed.Round(time.Millisecond), raw.Len())
	for _, d := range detections {
		fmt.Printf("  %-20s x=%.0f y=%.0f w=%.0f h=%.0f\n", d.Caption(), d.Box.X, d.Box.Y, d.Box.Width, d.Box.Height)
	}
	fmt.Printf("Saved %s\n", *outPath)
}
