// Package pipeline decouples frame capture from face recognition.
//
// The Orchestrator is driven by the display loop: every Tick polls the single
// in-flight recognition Job without blocking, submits a new one when idle, and
// hands back the newest frame with the last completed Result. A Dispatcher fans
// fresh results out to the journal, snapshot and alert sinks.
package pipeline

import (
	"errors"
	"sync"
	"time"

	"github.com/ayusman/facewatch/internal/capture"
	"github.com/ayusman/facewatch/internal/recognizer"
	"github.com/google/uuid"
)

var (
	// ErrJobPending is returned by Take before the job has finished.
	ErrJobPending = errors.New("job still running")
	// ErrJobTaken is returned by Take when the result was already consumed.
	ErrJobTaken = errors.New("job result already taken")
)

// Result is the outcome of one completed recognition job.
type Result struct {
	JobID       string                 `json:"job_id"`
	Detections  []recognizer.Detection `json:"detections"`
	FrameSeq    uint64                 `json:"frame_seq"`
	FrameTime   time.Time              `json:"frame_time"`
	FrameWidth  int                    `json:"frame_width"`
	FrameHeight int                    `json:"frame_height"`
	CompletedAt time.Time              `json:"completed_at"`
}

// Known returns the detections that name a gallery person.
func (r Result) Known() []recognizer.Detection {
	var known []recognizer.Detection
	for _, d := range r.Detections {
		if d.Known() {
			known = append(known, d)
		}
	}
	return known
}

// clamped returns a copy of r with every box limited to width x height.
func (r Result) clamped(width, height int) Result {
	if len(r.Detections) == 0 {
		return r
	}
	dets := make([]recognizer.Detection, len(r.Detections))
	for i, d := range r.Detections {
		dets[i] = recognizer.Detection{Box: d.Box.Clamp(width, height), Identity: d.Identity}
	}
	r.Detections = dets
	return r
}

// Job is one recognition run over a private frame snapshot.
//
// Done never blocks. Take consumes the outcome and may succeed only once.
type Job struct {
	ID          string
	SubmittedAt time.Time

	seq   uint64
	frame capture.Frame // owned by the worker running the job
	done  chan struct{}

	mu     sync.Mutex
	result Result
	err    error
	taken  bool
}

func newJob(frame capture.Frame) *Job {
	return &Job{
		ID:          uuid.NewString(),
		SubmittedAt: time.Now(),
		seq:         frame.Seq,
		frame:       frame,
		done:        make(chan struct{}),
	}
}

// FrameSeq returns the sequence number of the frame the job was built from.
func (j *Job) FrameSeq() uint64 {
	return j.seq
}

// Done reports whether the job has finished, successfully or not.
func (j *Job) Done() bool {
	select {
	case <-j.done:
		return true
	default:
		return false
	}
}

// Take returns the job outcome. It fails with ErrJobPending before Done and
// with ErrJobTaken on every call after the first.
func (j *Job) Take() (Result, error) {
	if !j.Done() {
		return Result{}, ErrJobPending
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	if j.taken {
		return Result{}, ErrJobTaken
	}
	j.taken = true
	return j.result, j.err
}

// finish records the outcome and releases the frame snapshot.
func (j *Job) finish(dets []recognizer.Detection, err error) {
	j.mu.Lock()
	if err == nil {
		j.result = Result{
			JobID:       j.ID,
			Detections:  dets,
			FrameSeq:    j.frame.Seq,
			FrameTime:   j.frame.Timestamp,
			FrameWidth:  j.frame.Width(),
			FrameHeight: j.frame.Height(),
			CompletedAt: time.Now(),
		}
	}
	j.err = err
	j.mu.Unlock()

	j.frame.Close()
	close(j.done)
}
