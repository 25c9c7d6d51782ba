package pipeline

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"kiosk/internal/model"
)

type fakeSource struct {
	mu     sync.Mutex
	frames []model.Frame
	fail   bool
	reads  int
	closed atomic.Bool
}

func (s *fakeSource) ReadFrame() (model.Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads++
	if s.fail {
		return model.Frame{}, errors.New("camera unplugged")
	}
	if len(s.frames) == 0 {
		return testFrame(time.Now()), nil
	}
	frame := s.frames[0]
	s.frames = s.frames[1:]
	return frame, nil
}

func (s *fakeSource) Close() error {
	s.closed.Store(true)
	return nil
}

type fakeDetector struct {
	detections []model.Detection
	err        error
	panicWith  interface{}
	calls      atomic.Int32
	closed     atomic.Bool
}

func (d *fakeDetector) Detect(frame model.Frame) ([]model.Detection, model.Frame, error) {
	d.calls.Add(1)
	if d.panicWith != nil {
		panic(d.panicWith)
	}
	if d.err != nil {
		return nil, model.Frame{}, d.err
	}
	annotated := frame
	annotated.Data = append([]byte("annotated:"), frame.Data...)
	return d.detections, annotated, nil
}

func (d *fakeDetector) Close() error {
	d.closed.Store(true)
	return nil
}

type recordingDisplay struct {
	mu    sync.Mutex
	kinds []string
}

func (d *recordingDisplay) ShowFrame(kind string, frame model.Frame) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.kinds = append(d.kinds, kind)
}

func (d *recordingDisplay) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.kinds)
}

func testFrame(at time.Time) model.Frame {
	return model.Frame{Data: []byte{0xFF, 0xD8, 0xFF, 0xD9}, Width: 640, Height: 480, CapturedAt: at}
}
