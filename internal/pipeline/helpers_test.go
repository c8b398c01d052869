package pipeline

import (
	"testing"
	"time"

	"github.com/ayusman/facewatch/internal/capture"
	"gocv.io/x/gocv"
)

const (
	testWidth  = 64
	testHeight = 48
)

// testFrame returns a solid grey 64x48 frame. The caller owns it.
func testFrame(seq uint64) capture.Frame {
	m := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(100, 100, 100, 0), testHeight, testWidth, gocv.MatTypeCV8UC3)
	return capture.Frame{Mat: &m, Seq: seq, Timestamp: time.Now()}
}

// eventually polls cond until it holds or the deadline passes.
func eventually(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

// tickUntil ticks o with a fresh frame until cond holds on the returned annotation.
func tickUntil(t *testing.T, o *Orchestrator, timeout time.Duration, cond func(Annotated) bool) Annotated {
	t.Helper()
	deadline := time.Now().Add(timeout)
	var seq uint64
	for time.Now().Before(deadline) {
		seq++
		f := testFrame(seq)
		ann := o.Tick(f)
		f.Close()
		if cond(ann) {
			return ann
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("tick condition not met before deadline")
	return Annotated{}
}
