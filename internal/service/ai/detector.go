package ai

import (
	"bufio"
	"fmt"
	"image"
	"image/color"
	"os"
	"strings"
	"sync"

	"kiosk/internal/config"
	"kiosk/internal/logger"
	"kiosk/internal/model"

	"gocv.io/x/gocv"
)

const (
	FormatSSD    = "ssd"
	FormatYOLOv8 = "yolov8"

	yoloInputSize = 640
	ssdInputSize  = 300
)

// DetectorService runs a DNN network over JPEG frames and draws the results.
type DetectorService struct {
	net                 gocv.Net
	format              string
	labels              []string
	confidenceThreshold float32
	nmsThreshold        float32
	mutex               sync.Mutex
	logger              *logger.Logger
}

// NewDetectorService loads the labels and the network described by the config.
func NewDetectorService(config *config.Config, logger *logger.Logger) (*DetectorService, error) {
	labels, err := loadLabels(config.LabelsPath)
	if err != nil {
		return nil, err
	}

	service := &DetectorService{
		format:              config.ModelFormat,
		labels:              labels,
		confidenceThreshold: float32(config.ConfidenceThreshold),
		nmsThreshold:        float32(config.NMSThreshold),
		logger:              logger,
	}

	if err := service.initializeNet(config.ModelPath, config.ModelConfigPath); err != nil {
		return nil, err
	}

	return service, nil
}

// initializeNet loads the DNN network and sets backend/target preferences.
func (s *DetectorService) initializeNet(modelPath, configPath string) error {
	if _, err := os.Stat(modelPath); os.IsNotExist(err) {
		return fmt.Errorf("model file not found: %s", modelPath)
	}

	if configPath != "" {
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			return fmt.Errorf("config file not found: %s", configPath)
		}
	}

	net := gocv.ReadNet(modelPath, configPath)
	if net.Empty() {
		return fmt.Errorf("failed to load network from %s", modelPath)
	}

	errBackend := net.SetPreferableBackend(gocv.NetBackendDefault)
	errTarget := net.SetPreferableTarget(gocv.NetTargetCPU)
	if errBackend != nil || errTarget != nil {
		net.Close()
		return fmt.Errorf("failed to set preferable backend or target")
	}

	s.net = net
	s.logger.Info("Detection network initialized (%s, %d labels)", s.format, len(s.labels))
	return nil
}

// Detect runs inference on the frame and returns the detections above the
// confidence threshold together with an annotated copy of the frame.
func (s *DetectorService) Detect(frame model.Frame) ([]model.Detection, model.Frame, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	mat, err := gocv.IMDecode(frame.Data, gocv.IMReadColor)
	if err != nil {
		return nil, model.Frame{}, fmt.Errorf("failed to decode image: %w", err)
	}
	defer mat.Close()

	if mat.Empty() {
		return nil, model.Frame{}, fmt.Errorf("decoded image is empty")
	}

	var detections []model.Detection
	switch s.format {
	case FormatSSD:
		detections = s.detectSSD(mat)
	default:
		detections, err = s.detectYOLO(mat)
		if err != nil {
			return nil, model.Frame{}, err
		}
	}

	annotated, err := s.drawDetections(mat, detections)
	if err != nil {
		return detections, model.Frame{}, err
	}

	return detections, model.Frame{
		Data:       annotated,
		Width:      mat.Cols(),
		Height:     mat.Rows(),
		CapturedAt: frame.CapturedAt,
	}, nil
}

// detectSSD parses the [batch_id, class_id, confidence, x1, y1, x2, y2] output
// of SSD networks.
func (s *DetectorService) detectSSD(mat gocv.Mat) []model.Detection {
	blob := gocv.BlobFromImage(mat, 1.0/127.5, image.Pt(ssdInputSize, ssdInputSize), gocv.NewScalar(127.5, 127.5, 127.5, 0), true, false)
	defer blob.Close()

	s.net.SetInput(blob, "")
	output := s.net.Forward("")
	defer output.Close()

	outputReshaped := output.Reshape(1, output.Total()/7)
	defer outputReshaped.Close()

	var detections []model.Detection
	for i := 0; i < outputReshaped.Rows(); i++ {
		confidence := outputReshaped.GetFloatAt(i, 2)
		if confidence < s.confidenceThreshold {
			continue
		}
		classID := int(outputReshaped.GetFloatAt(i, 1))
		detections = append(detections, model.Detection{
			Label:      s.label(classID),
			Confidence: float64(confidence),
			Box: model.BoundingBox{
				X1: int(outputReshaped.GetFloatAt(i, 3) * float32(mat.Cols())),
				Y1: int(outputReshaped.GetFloatAt(i, 4) * float32(mat.Rows())),
				X2: int(outputReshaped.GetFloatAt(i, 5) * float32(mat.Cols())),
				Y2: int(outputReshaped.GetFloatAt(i, 6) * float32(mat.Rows())),
			},
		})
	}
	return detections
}

// detectYOLO parses the [1, 4+classes, anchors] output of YOLOv8 exports and
// suppresses overlapping boxes.
func (s *DetectorService) detectYOLO(mat gocv.Mat) ([]model.Detection, error) {
	blob := gocv.BlobFromImage(mat, 1.0/255.0, image.Pt(yoloInputSize, yoloInputSize), gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	s.net.SetInput(blob, "")
	output := s.net.Forward("")
	defer output.Close()

	dims := output.Size()
	if len(dims) != 3 || dims[1] < 5 {
		return nil, fmt.Errorf("unexpected YOLO output shape %v", dims)
	}
	rows, anchors := dims[1], dims[2]

	data, err := output.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("failed to read YOLO output: %w", err)
	}

	xFactor := float32(mat.Cols()) / yoloInputSize
	yFactor := float32(mat.Rows()) / yoloInputSize

	var (
		boxes   []image.Rectangle
		scores  []float32
		classes []int
	)
	for a := 0; a < anchors; a++ {
		bestClass, bestScore := -1, float32(0)
		for c := 4; c < rows; c++ {
			if score := data[c*anchors+a]; score > bestScore {
				bestClass, bestScore = c-4, score
			}
		}
		if bestClass < 0 || bestScore < s.confidenceThreshold {
			continue
		}

		cx, cy := data[a], data[anchors+a]
		w, h := data[2*anchors+a], data[3*anchors+a]
		x1 := int((cx - w/2) * xFactor)
		y1 := int((cy - h/2) * yFactor)
		x2 := int((cx + w/2) * xFactor)
		y2 := int((cy + h/2) * yFactor)

		boxes = append(boxes, image.Rect(x1, y1, x2, y2))
		scores = append(scores, bestScore)
		classes = append(classes, bestClass)
	}

	if len(boxes) == 0 {
		return nil, nil
	}

	indices := gocv.NMSBoxes(boxes, scores, s.confidenceThreshold, s.nmsThreshold)
	detections := make([]model.Detection, 0, len(indices))
	for _, idx := range indices {
		box := boxes[idx]
		detections = append(detections, model.Detection{
			Label:      s.label(classes[idx]),
			Confidence: float64(scores[idx]),
			Box:        model.BoundingBox{X1: box.Min.X, Y1: box.Min.Y, X2: box.Max.X, Y2: box.Max.Y},
		})
	}
	return detections, nil
}

// drawDetections draws detection results on the image and returns a re-encoded JPEG buffer.
func (s *DetectorService) drawDetections(mat gocv.Mat, detections []model.Detection) ([]byte, error) {
	green := color.RGBA{R: 0, G: 255, B: 0, A: 0}

	for _, detection := range detections {
		rect := image.Rect(detection.Box.X1, detection.Box.Y1, detection.Box.X2, detection.Box.Y2)
		if err := gocv.Rectangle(&mat, rect, green, 2); err != nil {
			return nil, fmt.Errorf("failed to draw rectangle: %w", err)
		}

		label := fmt.Sprintf("%s (%.2f)", detection.Label, detection.Confidence)
		pt := image.Pt(detection.Box.X1, detection.Box.Y1-5)
		if err := gocv.PutText(&mat, label, pt, gocv.FontHersheySimplex, 0.5, green, 1); err != nil {
			return nil, fmt.Errorf("failed to draw text: %w", err)
		}
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, mat)
	if err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	defer buf.Close()

	finalImage := make([]byte, buf.Len())
	copy(finalImage, buf.GetBytes())
	return finalImage, nil
}

// label maps a class index to its name from the labels file.
func (s *DetectorService) label(classID int) string {
	if classID >= 0 && classID < len(s.labels) {
		return s.labels[classID]
	}
	return fmt.Sprintf("unknown%d", classID)
}

// Close releases the network.
func (s *DetectorService) Close() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.net.Close()
}

// loadLabels reads one class name per line; blank lines are skipped.
func loadLabels(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open labels file: %w", err)
	}
	defer file.Close()

	var labels []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			labels = append(labels, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read labels file: %w", err)
	}
	if len(labels) == 0 {
		return nil, fmt.Errorf("labels file %s is empty", path)
	}
	return labels, nil
}
