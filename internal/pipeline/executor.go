package pipeline

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"

	"github.com/ayusman/facewatch/internal/capture"
	"github.com/ayusman/facewatch/internal/recognizer"
)

var (
	// ErrBusy is returned by Submit while a job is queued or running.
	ErrBusy = errors.New("executor busy")
	// ErrClosed is returned by Submit after Close, and is the outcome of jobs
	// still queued when the executor closed.
	ErrClosed = errors.New("executor closed")
)

// Submitter starts a recognition job over frame, taking ownership of it.
type Submitter interface {
	Submit(frame capture.Frame) (*Job, error)
}

// Executor runs recognition jobs one at a time on a single worker goroutine.
type Executor struct {
	rec  recognizer.Recognizer
	jobs chan *Job

	busy   atomic.Bool
	closed atomic.Bool

	stopCh    chan struct{}
	closeOnce sync.Once
}

// NewExecutor starts the worker goroutine.
func NewExecutor(rec recognizer.Recognizer) *Executor {
	e := &Executor{
		rec:    rec,
		jobs:   make(chan *Job, 1),
		stopCh: make(chan struct{}),
	}
	go e.worker()
	return e
}

// Submit hands frame to the worker and returns the job handle without waiting.
// It never blocks: when a job is already in flight it returns ErrBusy and the
// caller keeps ownership of frame.
func (e *Executor) Submit(frame capture.Frame) (*Job, error) {
	if e.closed.Load() {
		return nil, ErrClosed
	}
	if !e.busy.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}

	job := newJob(frame)
	e.jobs <- job
	return job, nil
}

// Busy reports whether a job is queued or running.
func (e *Executor) Busy() bool {
	return e.busy.Load()
}

func (e *Executor) worker() {
	for {
		select {
		case <-e.stopCh:
			e.drain()
			return
		case job := <-e.jobs:
			e.run(job)
			e.busy.Store(false)
		}
	}
}

// run executes one job. A panicking recognizer fails the job instead of the process.
func (e *Executor) run(job *Job) {
	var (
		dets []recognizer.Detection
		err  error
	)

	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("recognizer panic: %v", r)
			}
		}()
		dets, err = e.rec.Recognize(job.frame.Mat)
	}()

	job.finish(dets, err)
}

// drain fails any job that was queued but never started.
func (e *Executor) drain() {
	for {
		select {
		case job := <-e.jobs:
			job.finish(nil, ErrClosed)
		default:
			return
		}
	}
}

// Close stops accepting jobs. A job already running is abandoned: it finishes
// in the background and nobody reads its result.
func (e *Executor) Close() {
	e.closeOnce.Do(func() {
		e.closed.Store(true)
		close(e.stopCh)
		log.Println("pipeline: executor closed")
	})
}
