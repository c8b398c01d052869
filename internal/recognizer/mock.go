package recognizer

import (
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// MockRecognizer is a test implementation of the Recognizer interface.
// It allows tests to control the detection results and latency.
type MockRecognizer struct {
	mu         sync.Mutex
	detections []Detection
	err        error
	delay      time.Duration
	panicMsg   string
	calls      int
	active     int
	maxActive  int
}

// NewMockRecognizer creates a new MockRecognizer instance.
func NewMockRecognizer() *MockRecognizer {
	return &MockRecognizer{}
}

// SetDetections sets the detections that will be returned by Recognize.
func (m *MockRecognizer) SetDetections(d []Detection) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.detections = d
}

// SetError sets the error that will be returned by Recognize.
func (m *MockRecognizer) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// SetDelay makes every Recognize call take at least d.
func (m *MockRecognizer) SetDelay(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
}

// SetPanic makes Recognize panic with msg. An empty msg disables it.
func (m *MockRecognizer) SetPanic(msg string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.panicMsg = msg
}

// Recognize returns the pre-configured detections or error after the configured delay.
func (m *MockRecognizer) Recognize(frame *gocv.Mat) ([]Detection, error) {
	m.mu.Lock()
	m.calls++
	m.active++
	if m.active > m.maxActive {
		m.maxActive = m.active
	}
	delay, err, panicMsg := m.delay, m.err, m.panicMsg
	detections := append([]Detection(nil), m.detections...)
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.active--
		m.mu.Unlock()
	}()

	if delay > 0 {
		time.Sleep(delay)
	}
	if panicMsg != "" {
		panic(panicMsg)
	}
	if err != nil {
		return nil, err
	}
	return detections, nil
}

// Calls returns how many times Recognize was invoked.
func (m *MockRecognizer) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// MaxConcurrent returns the highest number of overlapping Recognize calls seen.
func (m *MockRecognizer) MaxConcurrent() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.maxActive
}

// Close is a no-op for the mock recognizer.
func (m *MockRecognizer) Close() error {
	return nil
}
