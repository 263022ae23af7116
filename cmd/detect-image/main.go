// Detect-image - one-shot object detection on a still image
//
// Runs the SSD detector once over an image file, prints the detections
// and optionally writes an annotated copy. Useful for checking a model
// export before pointing the live loop at it.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"gocv.io/x/gocv"

	"github.com/camwatch/go-camwatch/pkg/detect"
	"github.com/camwatch/go-camwatch/pkg/overlay"
)

func main() {
	modelPath := flag.String("model", "models/ssd_mobilenet.onnx", "Detection model file")
	configPath := flag.String("model-config", "", "Optional graph config file")
	imagePath := flag.String("image", "", "Image to run detection on")
	outPath := flag.String("out", "", "Write annotated image here (optional)")
	threshold := flag.Float64("threshold", 0.7, "Confidence cutoff")
	inputSize := flag.Int("input-size", 300, "Square model input edge in pixels")
	flag.Parse()

	if *imagePath == "" {
		fmt.Fprintln(os.Stderr, "usage: detect-image -image photo.jpg [-model model.onnx] [-out annotated.jpg]")
		os.Exit(1)
	}

	img := gocv.IMRead(*imagePath, gocv.IMReadColor)
	if img.Empty() {
		fmt.Fprintf(os.Stderr, "❌ Could not read %s\n", *imagePath)
		os.Exit(1)
	}
	defer img.Close()

	cfg := detect.DefaultSSDConfig()
	cfg.ModelPath = *modelPath
	cfg.ConfigPath = *configPath
	cfg.InputSize = *inputSize

	model, err := detect.NewSSD(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Model load failed: %v\n", err)
		os.Exit(1)
	}
	defer model.Close()

	input, err := detect.FrameTensor(img, cfg.InputSize, cfg.Preprocess)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Preprocess failed: %v\n", err)
		os.Exit(1)
	}
	defer input.Close()

	outputs, err := model.Execute(context.Background(), input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Inference failed: %v\n", err)
		os.Exit(1)
	}
	defer detect.CloseAll(outputs)

	var dets []detect.Detection
	if len(outputs) == 1 {
		dets = detect.DecodeCombined(outputs[0], 100)
	} else {
		dets, err = detect.Decode(outputs, detect.DefaultSSDOutputMap(), 100)
		if err != nil {
			fmt.Fprintf(os.Stderr, "❌ Output decode failed: %v\n", err)
			os.Exit(1)
		}
	}

	kept := 0
	for _, d := range dets {
		if float64(d.Score) < *threshold {
			continue
		}
		kept++
		r := d.Box.Rect(img.Cols(), img.Rows())
		fmt.Printf("%-16s %5.1f%%  [%d,%d %dx%d]\n",
			detect.ClassName(d.ClassID), float64(d.Score)*100,
			r.Min.X, r.Min.Y, r.Dx(), r.Dy())
	}
	fmt.Printf("\n%d detections above %.2f (%d total)\n", kept, *threshold, len(dets))

	if *outPath != "" {
		annotated := img.Clone()
		defer annotated.Close()

		surface := overlay.NewMatSurface(&annotated)
		surface.SetBackground(&img)
		renderer := overlay.NewRenderer(float32(*threshold))
		renderer.Draw(surface, dets)

		if ok := gocv.IMWrite(*outPath, annotated); !ok {
			fmt.Fprintf(os.Stderr, "❌ Could not write %s\n", *outPath)
			os.Exit(1)
		}
		fmt.Printf("✅ Wrote %s\n", *outPath)
	}
}
