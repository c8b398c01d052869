package pipeline

import (
	"errors"
	"log"
	"sync"
	"sync/atomic"

	"github.com/ayusman/facewatch/internal/capture"
)

// Annotated pairs the frame to display with the newest completed result.
type Annotated struct {
	Frame  capture.Frame
	Result Result
	// Fresh is true on the single tick that adopted Result.
	Fresh bool
}

// Orchestrator keeps at most one recognition job in flight and caches the last
// completed result. Tick is meant to be called from a single display loop.
type Orchestrator struct {
	exec Submitter

	job *Job

	mu     sync.RWMutex // guards cached for readers outside the display loop
	cached Result

	ticks     atomic.Uint64
	submitted atomic.Uint64
	completed atomic.Uint64
	failed    atomic.Uint64
}

// NewOrchestrator creates an idle orchestrator submitting jobs to exec.
func NewOrchestrator(exec Submitter) *Orchestrator {
	return &Orchestrator{exec: exec}
}

// Tick advances the state machine with the latest frame and never blocks on recognition.
//
//  1. Busy: poll the job. On success adopt its result; on failure keep the
//     previous one. Either way become idle. A pending job leaves things as they are.
//  2. Idle: submit a job over a copy of frame and become busy.
//  3. Return frame with the cached result, which may lag frame by one job.
//
// frame stays owned by the caller and is returned inside Annotated.
func (o *Orchestrator) Tick(frame capture.Frame) Annotated {
	o.ticks.Add(1)
	fresh := false

	if o.job != nil && o.job.Done() {
		res, err := o.job.Take()
		if err != nil {
			o.failed.Add(1)
			if !errors.Is(err, ErrClosed) {
				log.Printf("pipeline: job %s failed, keeping previous result: %v", o.job.ID, err)
			}
		} else {
			o.completed.Add(1)
			o.setCached(res.clamped(res.FrameWidth, res.FrameHeight))
			fresh = true
		}
		o.job = nil
	}

	if o.job == nil && frame.Valid() {
		snapshot := frame.Clone()
		job, err := o.exec.Submit(snapshot)
		if err != nil {
			snapshot.Close()
			if !errors.Is(err, ErrBusy) && !errors.Is(err, ErrClosed) {
				log.Printf("pipeline: submit failed: %v", err)
			}
		} else {
			o.job = job
			o.submitted.Add(1)
		}
	}

	return Annotated{Frame: frame, Result: o.Cached(), Fresh: fresh}
}

func (o *Orchestrator) setCached(r Result) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.cached = r
}

// Cached returns the last completed result.
func (o *Orchestrator) Cached() Result {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.cached
}

// Busy reports whether a job is in flight. Only valid from the display loop.
func (o *Orchestrator) Busy() bool {
	return o.job != nil
}

// Stats is a point-in-time view of orchestrator counters.
type Stats struct {
	Ticks     uint64 `json:"ticks"`
	Submitted uint64 `json:"submitted"`
	Completed uint64 `json:"completed"`
	Failed    uint64 `json:"failed"`
	InFlight  uint64 `json:"in_flight"`
}

// Stats returns the orchestrator counters. Safe to call from any goroutine.
func (o *Orchestrator) Stats() Stats {
	s := Stats{
		Ticks:     o.ticks.Load(),
		Submitted: o.submitted.Load(),
		Completed: o.completed.Load(),
		Failed:    o.failed.Load(),
	}
	s.InFlight = s.Submitted - s.Completed - s.Failed
	return s
}
