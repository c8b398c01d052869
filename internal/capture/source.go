package capture

import (
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"gocv.io/x/gocv"
)

// Source timing constants.
const (
	// StopTimeout bounds how long Stop waits for the capture loop to exit.
	StopTimeout = time.Second
	// ReadBackoff is the pause after a failed device read.
	ReadBackoff = 10 * time.Millisecond
)

// Source runs a capture loop on its own goroutine and keeps only the latest frame.
//
// The slot is overwritten on every capture. A slow reader silently misses the
// frames captured between two of its reads; Dropped counts them.
type Source struct {
	camera Camera

	mu      sync.Mutex // guards the slot
	latest  *gocv.Mat
	seq     uint64
	ts      time.Time
	unread  bool
	stopped bool

	lifecycle sync.Mutex
	stopCh    chan struct{}
	doneCh    chan struct{}

	captured atomic.Uint64
	dropped  atomic.Uint64
	failures atomic.Uint64
}

// NewSource creates a Source reading from camera. Nothing is opened until Start.
func NewSource(camera Camera) *Source {
	return &Source{camera: camera}
}

// Start opens the device and begins continuous capture.
// If the device cannot be opened the error is returned and Read keeps reporting ok=false.
func (s *Source) Start() error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	if s.stopCh != nil {
		return nil
	}

	if err := s.camera.Open(); err != nil {
		return fmt.Errorf("open camera: %w", err)
	}

	s.mu.Lock()
	s.stopped = false
	s.mu.Unlock()

	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	go s.loop(s.stopCh, s.doneCh)

	log.Println("capture: started")
	return nil
}

// loop reads from the device as fast as it allows until stop is closed.
func (s *Source) loop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	for {
		select {
		case <-stop:
			return
		default:
		}

		mat, err := s.camera.ReadFrame()
		if err != nil {
			n := s.failures.Add(1)
			if n == 1 || n%100 == 0 {
				log.Printf("capture: read failed (%d so far): %v", n, err)
			}
			select {
			case <-stop:
				return
			case <-time.After(ReadBackoff):
			}
			continue
		}

		s.write(mat, time.Now())
	}
}

// write replaces the slot with mat, taking ownership of it.
func (s *Source) write(mat *gocv.Mat, ts time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		mat.Close()
		return
	}

	if s.latest != nil {
		if s.unread {
			s.dropped.Add(1)
		}
		s.latest.Close()
	}

	s.latest = mat
	s.seq++
	s.ts = ts
	s.unread = true
	s.captured.Add(1)
}

// Read returns a copy of the most recent frame without blocking on the device.
// ok is false when nothing has been captured yet or the source is stopped.
// The returned Frame belongs to the caller.
func (s *Source) Read() (Frame, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.latest == nil || s.latest.Empty() {
		return Frame{}, false
	}

	m := s.latest.Clone()
	s.unread = false

	return Frame{Mat: &m, Seq: s.seq, Timestamp: s.ts}, true
}

// Stop halts capture, waits up to StopTimeout for the loop to exit and closes the device.
func (s *Source) Stop() {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	if s.stopCh == nil {
		return
	}

	close(s.stopCh)
	select {
	case <-s.doneCh:
	case <-time.After(StopTimeout):
		log.Printf("capture: loop did not exit within %v, closing device anyway", StopTimeout)
	}
	s.stopCh = nil
	s.doneCh = nil

	if err := s.camera.Close(); err != nil {
		log.Printf("capture: error closing camera: %v", err)
	}

	s.mu.Lock()
	s.stopped = true
	if s.latest != nil {
		s.latest.Close()
		s.latest = nil
	}
	s.unread = false
	s.mu.Unlock()

	log.Println("capture: stopped")
}

// SourceStats is a point-in-time view of capture counters.
type SourceStats struct {
	Captured     uint64 `json:"captured"`
	Dropped      uint64 `json:"dropped"`
	ReadFailures uint64 `json:"read_failures"`
}

// Stats returns the capture counters.
func (s *Source) Stats() SourceStats {
	return SourceStats{
		Captured:     s.captured.Load(),
		Dropped:      s.dropped.Load(),
		ReadFailures: s.failures.Load(),
	}
}
