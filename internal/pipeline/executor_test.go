package pipeline

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ayusman/facewatch/internal/recognizer"
)

func TestExecutor_SubmitAndTake(t *testing.T) {
	rec := recognizer.NewMockRecognizer()
	rec.SetDetections([]recognizer.Detection{{Box: recognizer.Box{Top: 1, Right: 10, Bottom: 10, Left: 1}, Identity: "alice"}})
	e := NewExecutor(rec)
	defer e.Close()

	job, err := e.Submit(testFrame(7))
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if job.ID == "" {
		t.Error("job should have an ID")
	}
	if job.FrameSeq() != 7 {
		t.Errorf("FrameSeq() = %d, want 7", job.FrameSeq())
	}

	eventually(t, time.Second, job.Done)

	res, err := job.Take()
	if err != nil {
		t.Fatalf("Take() error = %v", err)
	}
	if res.JobID != job.ID || res.FrameSeq != 7 {
		t.Errorf("result = %+v, want job %s frame 7", res, job.ID)
	}
	if res.FrameWidth != testWidth || res.FrameHeight != testHeight {
		t.Errorf("result frame size = %dx%d", res.FrameWidth, res.FrameHeight)
	}
	if len(res.Detections) != 1 || res.Detections[0].Identity != "alice" {
		t.Errorf("Detections = %+v", res.Detections)
	}

	if _, err := job.Take(); !errors.Is(err, ErrJobTaken) {
		t.Errorf("second Take() error = %v, want ErrJobTaken", err)
	}
}

func TestJob_TakeBeforeDone(t *testing.T) {
	rec := recognizer.NewMockRecognizer()
	rec.SetDelay(100 * time.Millisecond)
	e := NewExecutor(rec)
	defer e.Close()

	job, err := e.Submit(testFrame(1))
	if err != nil {
		t.Fatal(err)
	}

	if job.Done() {
		t.Fatal("Done() should be false while the recognizer is still running")
	}
	if _, err := job.Take(); !errors.Is(err, ErrJobPending) {
		t.Errorf("Take() before Done error = %v, want ErrJobPending", err)
	}

	eventually(t, 2*time.Second, job.Done)
	if _, err := job.Take(); err != nil {
		t.Errorf("Take() after Done error = %v", err)
	}
}

func TestExecutor_Busy(t *testing.T) {
	rec := recognizer.NewMockRecognizer()
	rec.SetDelay(100 * time.Millisecond)
	e := NewExecutor(rec)
	defer e.Close()

	first, err := e.Submit(testFrame(1))
	if err != nil {
		t.Fatal(err)
	}
	if !e.Busy() {
		t.Error("Busy() should be true right after Submit")
	}

	f := testFrame(2)
	defer f.Close()
	if _, err := e.Submit(f); !errors.Is(err, ErrBusy) {
		t.Errorf("Submit() while running error = %v, want ErrBusy", err)
	}
	// A refused frame stays with the caller and is still usable.
	if !f.Valid() {
		t.Error("refused frame should not be released")
	}

	eventually(t, 2*time.Second, func() bool { return first.Done() && !e.Busy() })

	second, err := e.Submit(testFrame(3))
	if err != nil {
		t.Fatalf("Submit() after completion error = %v", err)
	}
	eventually(t, 2*time.Second, second.Done)

	if rec.MaxConcurrent() != 1 {
		t.Errorf("MaxConcurrent() = %d, want 1", rec.MaxConcurrent())
	}
}

func TestExecutor_RecognizerFailure(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(*recognizer.MockRecognizer)
		wantErr string
	}{
		{
			name:    "error",
			setup:   func(r *recognizer.MockRecognizer) { r.SetError(errors.New("dlib exploded")) },
			wantErr: "dlib exploded",
		},
		{
			name:    "panic",
			setup:   func(r *recognizer.MockRecognizer) { r.SetPanic("nil descriptor") },
			wantErr: "recognizer panic: nil descriptor",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := recognizer.NewMockRecognizer()
			tt.setup(rec)
			e := NewExecutor(rec)
			defer e.Close()

			job, err := e.Submit(testFrame(1))
			if err != nil {
				t.Fatal(err)
			}
			eventually(t, time.Second, job.Done)

			_, err = job.Take()
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Take() error = %v, want %q", err, tt.wantErr)
			}

			// The worker survives and accepts the next job.
			eventually(t, time.Second, func() bool { return !e.Busy() })
			next, err := e.Submit(testFrame(2))
			if err != nil {
				t.Fatalf("Submit() after failure error = %v", err)
			}
			eventually(t, time.Second, next.Done)
		})
	}
}

func TestExecutor_Close(t *testing.T) {
	e := NewExecutor(recognizer.NewMockRecognizer())
	e.Close()
	e.Close()

	f := testFrame(1)
	defer f.Close()
	if _, err := e.Submit(f); !errors.Is(err, ErrClosed) {
		t.Errorf("Submit() after Close error = %v, want ErrClosed", err)
	}
}
