package camera

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	"kiosk/internal/logger"
	"kiosk/internal/model"

	"gocv.io/x/gocv"
)

// CameraService reads frames from a local capture device or a stream URL
// and hands them out as JPEG buffers.
type CameraService struct {
	device  string
	capture *gocv.VideoCapture
	img     gocv.Mat
	mutex   sync.Mutex
	logger  *logger.Logger
}

// NewCameraService opens the capture device. A numeric device is treated as
// a local camera index, anything else as a stream URL or file path.
func NewCameraService(device string, logger *logger.Logger) (*CameraService, error) {
	var (
		capture *gocv.VideoCapture
		err     error
	)
	if id, convErr := strconv.Atoi(device); convErr == nil {
		capture, err = gocv.OpenVideoCapture(id)
	} else {
		capture, err = gocv.OpenVideoCapture(device)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open camera %s: %w", device, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return nil, fmt.Errorf("camera %s is not available", device)
	}

	logger.Info("Camera %s opened", device)
	return &CameraService{
		device:  device,
		capture: capture,
		img:     gocv.NewMat(),
		logger:  logger,
	}, nil
}

// ReadFrame grabs the next frame and encodes it as JPEG.
func (c *CameraService) ReadFrame() (model.Frame, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if ok := c.capture.Read(&c.img); !ok {
		return model.Frame{}, fmt.Errorf("cannot read camera device: %s", c.device)
	}
	if c.img.Empty() {
		return model.Frame{}, fmt.Errorf("empty frame from camera device: %s", c.device)
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, c.img)
	if err != nil {
		return model.Frame{}, fmt.Errorf("failed to encode frame: %w", err)
	}
	defer buf.Close()

	data := make([]byte, buf.Len())
	copy(data, buf.GetBytes())

	return model.Frame{
		Data:       data,
		Width:      c.img.Cols(),
		Height:     c.img.Rows(),
		CapturedAt: time.Now(),
	}, nil
}

// Close releases the capture device.
func (c *CameraService) Close() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.img.Close()
	if err := c.capture.Close(); err != nil {
		return fmt.Errorf("failed to close camera %s: %w", c.device, err)
	}
	c.logger.Info("Camera %s closed", c.device)
	return nil
}
