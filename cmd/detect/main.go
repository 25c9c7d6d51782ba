package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"kiosk/internal/config"
	"kiosk/internal/logger"
	"kiosk/internal/model"
	"kiosk/internal/pipeline"
	"kiosk/internal/service/ai"
)

func main() {
	imagePath := flag.String("image", "", "JPEG image to run the detector on")
	outPath := flag.String("out", "", "Where to write the annotated image (default <image>_annotated.jpg)")
	flag.Parse()

	if *imagePath == "" {
		log.Fatal("Usage: detect -image photo.jpg [-out annotated.jpg]")
	}
	if *outPath == "" {
		ext := filepath.Ext(*imagePath)
		*outPath = strings.TrimSuffix(*imagePath, ext) + "_annotated.jpg"
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	logs := logger.NewLogger(cfg)

	detector, err := ai.NewDetectorService(cfg, logs)
	if err != nil {
		log.Fatalf("Failed to initialize detector: %v", err)
	}
	defer detector.Close()

	data, err := os.ReadFile(*imagePath)
	if err != nil {
		log.Fatalf("Failed to read image: %v", err)
	}

	fmt.Printf("🤖 Model: %s (%s)\n", cfg.ModelPath, cfg.ModelFormat)
	start := time.Now()
	batch := pipeline.DetectFrame(detector, model.Frame{Data: data, CapturedAt: start}, logs)
	fmt.Printf("⏱️  Inference: %s\n", time.Since(start).Round(time.Millisecond))

	fmt.Printf("\n📊 Detections (x1, y1, x2, y2, confidence, label):\n")
	if len(batch.Detections) == 0 {
		fmt.Println("   none")
	}
	for _, det := range batch.Detections {
		fmt.Printf("   (%d, %d, %d, %d) %.2f %s\n", det.Box.X1, det.Box.Y1, det.Box.X2, det.Box.Y2, det.Confidence, det.Label)
	}

	if err := os.WriteFile(*outPath, batch.Annotated.Data, 0644); err != nil {
		log.Fatalf("Failed to write annotated image: %v", err)
	}
	fmt.Printf("\n✅ Annotated image saved to %s\n", *outPath)
}
