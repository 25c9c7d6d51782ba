package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"kiosk/internal/dto"
	"kiosk/internal/logger"
	"kiosk/internal/model"
	"kiosk/internal/repository"

	"github.com/benbjohnson/clock"
)

const timestampLayout = "2006-01-02_15-04_05.000"

// BufferService buffers checkout evidence frames in memory and periodically
// flushes them to disk and to the evidence repository.
type BufferService struct {
	imagesDir     string
	bufferLimit   int
	flushInterval time.Duration
	images        []dto.BufferedImage
	mu            sync.Mutex
	clock         clock.Clock
	logger        *logger.Logger
	evidenceRepo  repository.EvidenceRepository
}

// NewBufferService creates a new BufferService. evidenceRepo may be nil, in
// which case frames are only written to disk.
func NewBufferService(imagesDir string, bufferLimit int, flushInterval time.Duration, clk clock.Clock, logger *logger.Logger, evidenceRepo repository.EvidenceRepository) *BufferService {
	if clk == nil {
		clk = clock.New()
	}
	return &BufferService{
		imagesDir:     imagesDir,
		bufferLimit:   bufferLimit,
		flushInterval: flushInterval,
		images:        make([]dto.BufferedImage, 0),
		clock:         clk,
		logger:        logger,
		evidenceRepo:  evidenceRepo,
	}
}

// Run flushes on a ticker until ctx is cancelled, then flushes once more.
func (s *BufferService) Run(ctx context.Context) {
	ticker := s.clock.Ticker(s.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.FlushImages()
			return
		case <-ticker.C:
			s.FlushImages()
		}
	}
}

// Record implements checkout.EvidenceRecorder. Frames beyond the buffer
// limit are dropped until the next flush.
func (s *BufferService) Record(receipt string, frame model.Frame, detections []model.Detection) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.images) >= s.bufferLimit {
		s.logger.Warning("Evidence buffer full (%d), dropping frame for receipt %s", s.bufferLimit, receipt)
		return
	}

	s.images = append(s.images, dto.BufferedImage{
		Timestamp:  s.clock.Now(),
		Receipt:    receipt,
		Detections: detections,
		Data:       frame.Data,
	})
	s.logger.Info("Evidence buffer size: %d/%d", len(s.images), s.bufferLimit)
}

// Pending returns the number of buffered frames.
func (s *BufferService) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.images)
}

// FlushImages writes buffered frames to disk and resets the buffer.
func (s *BufferService) FlushImages() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.images) == 0 {
		return
	}

	if err := os.MkdirAll(s.imagesDir, 0755); err != nil {
		s.logger.Error("Error creating directory: %v", err)
		return
	}

	savedCount := 0
	for _, image := range s.images {
		filename := fmt.Sprintf("%s_%s.jpg", image.Timestamp.Format(timestampLayout), image.Receipt)
		fullpath := filepath.Join(s.imagesDir, filename)

		if err := os.WriteFile(fullpath, image.Data, 0644); err != nil {
			s.logger.Error("Error saving image %s: %v", filename, err)
			continue
		}

		if s.evidenceRepo != nil {
			s.saveRecord(image, filename, fullpath)
		}
		savedCount++
	}

	s.logger.Info("Flushed %d evidence frame(s) to disk", savedCount)
	s.images = s.images[:0]
}

func (s *BufferService) saveRecord(image dto.BufferedImage, filename, fullpath string) {
	evidenceID, err := s.evidenceRepo.Insert(&model.Evidence{
		Receipt:   image.Receipt,
		Filename:  filename,
		FilePath:  fullpath,
		FileSize:  int64(len(image.Data)),
		Timestamp: image.Timestamp,
	})
	if err != nil {
		s.logger.Error("Error saving evidence to database %s: %v", filename, err)
		return
	}

	if len(image.Detections) == 0 {
		return
	}
	detections := make([]model.EvidenceDetection, 0, len(image.Detections))
	for _, det := range image.Detections {
		detections = append(detections, model.EvidenceDetection{
			EvidenceID: evidenceID,
			Label:      det.Label,
			Box:        det.Box,
			Confidence: det.Confidence,
		})
	}
	if err := s.evidenceRepo.InsertDetections(detections); err != nil {
		s.logger.Error("Error saving evidence detections to database: %v", err)
	}
}
